package api

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/bilgisen/wpsync/internal/content"
	"github.com/gofiber/fiber/v2"
)

// ActionRequest is the body of the POST import and sync endpoints.
type ActionRequest struct {
	Action string          `json:"action" validate:"required"`
	Data   json.RawMessage `json:"data"`
}

type exportRequest struct {
	ID int `json:"id" validate:"required,gt=0"`
}

func parseSince(c *fiber.Ctx, required bool) (time.Time, error) {
	raw := c.Query("since")
	if raw == "" {
		if required {
			return time.Time{}, badRequest("since is required")
		}
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, badRequest("since must be an RFC 3339 timestamp")
	}
	return t, nil
}

// decodeData unmarshals the data member of an action request and validates
// it.
func (h *Handlers) decodeData(req *ActionRequest, dst any) error {
	if len(req.Data) == 0 || string(req.Data) == "null" {
		return badRequest("data is required for action " + req.Action)
	}
	if err := json.Unmarshal(req.Data, dst); err != nil {
		return badRequest("invalid data: " + err.Error())
	}
	return h.validate.Validate(dst)
}

// ImportGet handles GET /api/import/wordpress
func (h *Handlers) ImportGet(c *fiber.Ctx) error {
	if h.importer == nil {
		return fail(c, content.ErrNoRemote)
	}
	ctx := c.UserContext()

	switch action := c.Query("action"); action {
	case "import-all":
		rep, err := h.importer.ImportAll(ctx)
		if err != nil {
			return fail(c, err)
		}
		return okWithStats(c, rep, h.importer.Stats(ctx), "Import finished")

	case "import-recent":
		since, err := parseSince(c, false)
		if err != nil {
			return fail(c, err)
		}
		rep, err := h.importer.ImportRecent(ctx, since)
		if err != nil {
			return fail(c, err)
		}
		return okWithStats(c, rep, h.importer.Stats(ctx), "Import finished")

	case "stats":
		return okWithStats(c, nil, h.importer.Stats(ctx), "")

	default:
		return fail(c, badRequest("unknown action "+strconv.Quote(action)+"; expected import-all, import-recent or stats"))
	}
}

// ImportPost handles POST /api/import/wordpress
func (h *Handlers) ImportPost(c *fiber.Ctx) error {
	if h.importer == nil {
		return fail(c, content.ErrNoRemote)
	}
	ctx := c.UserContext()

	var req ActionRequest
	if err := h.validate.Bind(c, &req); err != nil {
		return fail(c, err)
	}

	switch req.Action {
	case "export-post":
		var data exportRequest
		if err := h.decodeData(&req, &data); err != nil {
			return fail(c, err)
		}
		item, err := h.importer.ExportPost(ctx, data.ID)
		if err != nil {
			return fail(c, err)
		}
		return ok(c, item, "Exported")

	case "sync-bidirectional":
		rep, err := h.importer.SyncBidirectional(ctx)
		if err != nil {
			return fail(c, err)
		}
		return okWithStats(c, rep, h.importer.Stats(ctx), "Bidirectional sync finished")

	case "reset-stats":
		if err := h.importer.ResetStats(ctx); err != nil {
			return fail(c, err)
		}
		return okWithStats(c, nil, h.importer.Stats(ctx), "Stats reset")

	default:
		return fail(c, badRequest("unknown action "+strconv.Quote(req.Action)+"; expected export-post, sync-bidirectional or reset-stats"))
	}
}
