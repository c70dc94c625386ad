package api

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"github.com/bilgisen/wpsync/internal/cache"
	"github.com/bilgisen/wpsync/internal/content"
	"github.com/bilgisen/wpsync/internal/models"
	"github.com/bilgisen/wpsync/internal/wordpress"
	"github.com/gofiber/fiber/v2"
)

const cacheNamespace = "wp-posts"

// PostRequest is the data of the create and update sync actions. Status uses
// the local vocabulary and is mapped before it is sent.
type PostRequest struct {
	Title   string               `json:"title" validate:"required"`
	Content string               `json:"content"`
	Excerpt string               `json:"excerpt"`
	Status  models.PublishStatus `json:"status" validate:"required,oneof=draft published"`
	WPID    *int                 `json:"wpId" validate:"omitempty,gt=0"`
}

type deleteRequest struct {
	WPID  int   `json:"wpId" validate:"required,gt=0"`
	Force *bool `json:"force"`
}

// PushItem is one element of the array form of push-to-wordpress.
type PushItem struct {
	ID int `json:"id"`
	PostRequest
}

type pushRequest struct {
	Type string `json:"type" validate:"omitempty,oneof=news events"`
	IDs  []int  `json:"ids"`
}

// PushItemResult is the outcome for one item of push-to-wordpress.
type PushItemResult struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
	WPID   *int   `json:"wpId,omitempty"`
	Error  string `json:"error,omitempty"`
}

// SyncGet handles GET /api/sync/wordpress
func (h *Handlers) SyncGet(c *fiber.Ctx) error {
	if h.wp == nil {
		return fail(c, content.ErrNoRemote)
	}
	ctx := c.UserContext()

	switch action := c.Query("action"); action {
	case "fetch":
		perPage := c.QueryInt("per_page", 10)
		if perPage < 1 || perPage > 100 {
			return fail(c, badRequest("per_page must be between 1 and 100"))
		}
		pg := c.QueryInt("page", 1)
		if pg < 1 {
			return fail(c, badRequest("page must be positive"))
		}
		key := cache.Key(cacheNamespace, "fetch", strconv.Itoa(perPage), strconv.Itoa(pg))
		return h.cachedPosts(c, key, wordpress.PostQuery{PerPage: perPage, Page: pg})

	case "fetch-updated":
		since, err := parseSince(c, true)
		if err != nil {
			return fail(c, err)
		}
		key := cache.Key(cacheNamespace, "updated", since.UTC().Format("2006-01-02T15:04:05"))
		return h.cachedPosts(c, key, wordpress.PostQuery{
			PerPage:       100,
			OrderBy:       "modified",
			Order:         "desc",
			ModifiedAfter: since,
		})

	case "health":
		res := h.wp.TestConnection(ctx)
		switch {
		case res.Success:
			return ok(c, res, res.Message)
		case res.AuthFailed:
			return c.Status(fiber.StatusUnauthorized).JSON(failure(res, "auth"))
		default:
			return c.Status(fiber.StatusBadGateway).JSON(failure(res, "unreachable"))
		}

	default:
		return fail(c, badRequest("unknown action "+strconv.Quote(action)+"; expected fetch, fetch-updated or health"))
	}
}

func (h *Handlers) cachedPosts(c *fiber.Ctx, key string, q wordpress.PostQuery) error {
	ctx := c.UserContext()

	var posts []models.Post
	if cache.GetJSON(ctx, h.cache, key, &posts) {
		return okWithStats(c, posts, fiber.Map{"count": len(posts), "cached": true}, "")
	}

	posts, err := h.wp.GetPosts(ctx, q)
	if err != nil {
		return fail(c, err)
	}
	if err := cache.SetJSON(ctx, h.cache, key, posts, h.cfg.CacheTTL); err != nil {
		h.log.Warn().Err(err).Msg("Failed to cache posts")
	}
	return okWithStats(c, posts, fiber.Map{"count": len(posts), "cached": false}, "")
}

// SyncPost handles POST /api/sync/wordpress
func (h *Handlers) SyncPost(c *fiber.Ctx) error {
	if h.wp == nil {
		return fail(c, content.ErrNoRemote)
	}
	ctx := c.UserContext()

	var req ActionRequest
	if err := h.validate.Bind(c, &req); err != nil {
		return fail(c, err)
	}

	switch req.Action {
	case "create":
		var data PostRequest
		if err := h.decodeData(&req, &data); err != nil {
			return fail(c, err)
		}
		post, err := h.wp.CreatePost(ctx, wordpress.NewPayload(data.Title, data.Content, data.Excerpt, data.Status))
		if err != nil {
			return fail(c, err)
		}
		h.invalidate(ctx)
		return ok(c, post, "Post created")

	case "update":
		var data PostRequest
		if err := h.decodeData(&req, &data); err != nil {
			return fail(c, err)
		}
		if data.WPID == nil {
			return fail(c, badRequest("wpId is required for update"))
		}
		post, err := h.wp.UpdatePost(ctx, *data.WPID, wordpress.NewPayload(data.Title, data.Content, data.Excerpt, data.Status))
		if err != nil {
			return fail(c, err)
		}
		h.invalidate(ctx)
		return ok(c, post, "Post updated")

	case "delete":
		var data deleteRequest
		if err := h.decodeData(&req, &data); err != nil {
			return fail(c, err)
		}
		force := data.Force == nil || *data.Force
		if err := h.wp.DeletePost(ctx, data.WPID, force); err != nil {
			return fail(c, err)
		}
		h.invalidate(ctx)
		return ok(c, fiber.Map{"wpId": data.WPID}, "Post deleted")

	case "push-to-wordpress":
		var results []PushItemResult
		if raw := bytes.TrimSpace(req.Data); len(raw) > 0 && raw[0] == '[' {
			var items []PushItem
			if err := json.Unmarshal(raw, &items); err != nil {
				return fail(c, badRequest("invalid data: "+err.Error()))
			}
			results = h.pushPayloads(ctx, items)
		} else {
			var data pushRequest
			if len(raw) > 0 && string(raw) != "null" {
				if err := h.decodeData(&req, &data); err != nil {
					return fail(c, err)
				}
			}
			if data.Type == "events" {
				results = pushAll(ctx, h.events.Collection, data.IDs)
			} else {
				results = pushAll(ctx, h.news.Collection, data.IDs)
			}
		}
		h.invalidate(ctx)

		var created, updated, failed int
		for _, r := range results {
			switch r.Status {
			case "created":
				created++
			case "updated":
				updated++
			default:
				failed++
			}
		}
		stats := fiber.Map{"total": len(results), "created": created, "updated": updated, "errors": failed}
		return okWithStats(c, results, stats, "Push finished")

	default:
		return fail(c, badRequest("unknown action "+strconv.Quote(req.Action)+"; expected create, update, delete or push-to-wordpress"))
	}
}

// invalidate drops cached remote reads after a write.
func (h *Handlers) invalidate(ctx context.Context) {
	if err := h.cache.Clear(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Failed to clear cache")
	}
}

// pushPayloads sends caller-supplied posts. Items with a wpId are updated,
// the others created.
func (h *Handlers) pushPayloads(ctx context.Context, items []PushItem) []PushItemResult {
	results := make([]PushItemResult, 0, len(items))
	for _, item := range items {
		res := PushItemResult{ID: item.ID, WPID: item.WPID}
		if err := h.validate.Validate(&item); err != nil {
			res.Status = "error"
			res.Error = err.Error()
			results = append(results, res)
			continue
		}

		payload := wordpress.NewPayload(item.Title, item.Content, item.Excerpt, item.Status)
		var (
			post *models.Post
			err  error
		)
		if item.WPID != nil {
			res.Status = "updated"
			post, err = h.wp.UpdatePost(ctx, *item.WPID, payload)
		} else {
			res.Status = "created"
			post, err = h.wp.CreatePost(ctx, payload)
		}
		if err != nil {
			res.Status = "error"
			res.Error = err.Error()
		} else {
			id := post.ID
			res.WPID = &id
		}
		results = append(results, res)
	}
	return results
}

// pushAll pushes the selected items, or all items when ids is empty. One
// failure does not stop the batch.
func pushAll[T any, PT interface {
	*T
	content.Item
}](ctx context.Context, coll *content.Collection[T, PT], ids []int) []PushItemResult {
	if len(ids) == 0 {
		for _, item := range coll.List() {
			ids = append(ids, PT(&item).GetID())
		}
	}

	results := make([]PushItemResult, 0, len(ids))
	for _, id := range ids {
		var before *int
		if cur, found := coll.GetByID(id); found {
			before = PT(&cur).RemoteID()
		}

		item, err := coll.SyncItem(ctx, id)
		if err != nil {
			results = append(results, PushItemResult{ID: id, Status: "error", WPID: before, Error: err.Error()})
			continue
		}

		after := PT(&item).RemoteID()
		status := "created"
		if before != nil && after != nil && *before == *after {
			status = "updated"
		}
		results = append(results, PushItemResult{ID: id, Status: status, WPID: after})
	}
	return results
}
