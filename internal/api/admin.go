package api

import (
	"encoding/json"
	"time"

	"github.com/bilgisen/wpsync/internal/autosync"
	"github.com/bilgisen/wpsync/internal/content"
	"github.com/bilgisen/wpsync/internal/middleware"
	"github.com/bilgisen/wpsync/internal/models"
	"github.com/gofiber/fiber/v2"
)

// resource serves the admin endpoints of one collection.
type resource[T any, PT interface {
	*T
	content.Item
}] struct {
	coll     *content.Collection[T, PT]
	validate *middleware.Validator
	// normalize fills defaults and rejects values the tags cannot express.
	normalize func(*T) error
}

func newsResource(h *Handlers) *resource[models.NewsItem, *models.NewsItem] {
	return &resource[models.NewsItem, *models.NewsItem]{
		coll:     h.news.Collection,
		validate: h.validate,
		normalize: func(n *models.NewsItem) error {
			if n.Status == "" {
				n.Status = models.StatusDraft
			}
			if !n.Status.Valid() {
				return badRequest("status must be draft or published")
			}
			return nil
		},
	}
}

func eventsResource(h *Handlers) *resource[models.EventItem, *models.EventItem] {
	return &resource[models.EventItem, *models.EventItem]{
		coll:     h.events.Collection,
		validate: h.validate,
		normalize: func(e *models.EventItem) error {
			if e.Status == "" {
				e.Status = models.EventUpcoming
			}
			if !e.Status.Valid() {
				return badRequest("status must be upcoming, ongoing, completed or cancelled")
			}
			return nil
		},
	}
}

func (r *resource[T, PT]) create(c *fiber.Ctx) error {
	var item T
	if err := r.validate.Bind(c, &item); err != nil {
		return fail(c, err)
	}
	if err := r.normalize(&item); err != nil {
		return fail(c, err)
	}

	created, err := r.coll.Add(c.UserContext(), item)
	if err != nil {
		return fail(c, err)
	}
	return okWithStats(c, created, fiber.Map{"syncStatus": r.coll.LastStatus()}, "Created")
}

// update overlays the request body on the stored item. Fields missing from
// the body keep their value.
func (r *resource[T, PT]) update(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	current, found := r.coll.GetByID(id)
	if !found {
		return fail(c, content.ErrNotFound)
	}

	body := c.Body()
	if err := json.Unmarshal(body, &current); err != nil {
		return fail(c, badRequest("Invalid request body: "+err.Error()))
	}
	if err := r.validate.Validate(&current); err != nil {
		return fail(c, err)
	}
	if err := r.normalize(&current); err != nil {
		return fail(c, err)
	}

	updated, err := r.coll.Update(c.UserContext(), id, func(item *T) {
		_ = json.Unmarshal(body, item)
		_ = r.normalize(item)
	})
	if err != nil {
		return fail(c, err)
	}
	return okWithStats(c, updated, fiber.Map{"syncStatus": r.coll.LastStatus()}, "Updated")
}

func (r *resource[T, PT]) remove(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := r.coll.Delete(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return okWithStats(c, fiber.Map{"id": id}, fiber.Map{"syncStatus": r.coll.LastStatus()}, "Deleted")
}

func (r *resource[T, PT]) syncState(c *fiber.Ctx) error {
	return okWithStats(c, r.coll.SyncState(c.UserContext()), fiber.Map{"syncStatus": r.coll.LastStatus()}, "")
}

func (r *resource[T, PT]) toggleSync(c *fiber.Ctx) error {
	state, err := r.coll.ToggleSync(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, state, "")
}

func (r *resource[T, PT]) toggleAutoSync(c *fiber.Ctx) error {
	state, err := r.coll.ToggleAutoSync(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, state, "")
}

func (r *resource[T, PT]) push(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	item, err := r.coll.SyncItem(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, item, r.coll.LastStatus())
}

// AutoSyncRequest is the body of PUT /admin/autosync.
type AutoSyncRequest struct {
	Enabled    *bool  `json:"enabled"`
	IntervalMS *int64 `json:"intervalMs" validate:"omitempty,gt=0"`
}

// GetAutoSync handles GET /api/v1/admin/autosync
func (h *Handlers) GetAutoSync(c *fiber.Ctx) error {
	return ok(c, autoSyncView(h.autosync.Status(c.UserContext())), "")
}

// UpdateAutoSync handles PUT /api/v1/admin/autosync
func (h *Handlers) UpdateAutoSync(c *fiber.Ctx) error {
	req := middleware.BodyOf[AutoSyncRequest](c)
	if req == nil {
		req = new(AutoSyncRequest)
		if err := h.validate.Bind(c, req); err != nil {
			return fail(c, err)
		}
	}

	var patch autosync.Patch
	patch.Enabled = req.Enabled
	if req.IntervalMS != nil {
		d := time.Duration(*req.IntervalMS) * time.Millisecond
		patch.Interval = &d
	}

	if _, err := h.autosync.UpdateConfig(c.UserContext(), patch); err != nil {
		return fail(c, err)
	}
	return ok(c, autoSyncView(h.autosync.Status(c.UserContext())), "Auto-sync updated")
}

// TriggerAutoSync handles POST /api/v1/admin/autosync/trigger
func (h *Handlers) TriggerAutoSync(c *fiber.Ctx) error {
	res, err := h.autosync.TriggerManualSync(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	if res.Skipped {
		return ok(c, res, "A sync is already running")
	}
	return ok(c, res, "Sync finished")
}

func autoSyncView(s autosync.Status) fiber.Map {
	view := fiber.Map{
		"enabled":    s.Enabled,
		"intervalMs": s.Interval.Milliseconds(),
		"running":    s.Running,
		"inFlight":   s.InFlight,
	}
	if !s.LastSync.IsZero() {
		view["lastSync"] = s.LastSync.UTC().Format(time.RFC3339)
	}
	return view
}
