package api

import (
	"context"
	"strconv"
	"time"

	"github.com/bilgisen/wpsync/internal/autosync"
	"github.com/bilgisen/wpsync/internal/cache"
	"github.com/bilgisen/wpsync/internal/config"
	"github.com/bilgisen/wpsync/internal/content"
	"github.com/bilgisen/wpsync/internal/importer"
	"github.com/bilgisen/wpsync/internal/logger"
	"github.com/bilgisen/wpsync/internal/middleware"
	"github.com/bilgisen/wpsync/internal/models"
	"github.com/bilgisen/wpsync/internal/wordpress"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// WordPress is the part of the WordPress client the handlers use.
type WordPress interface {
	TestConnection(ctx context.Context) wordpress.ConnectionResult
	GetPosts(ctx context.Context, q wordpress.PostQuery) ([]models.Post, error)
	CreatePost(ctx context.Context, p wordpress.PostPayload) (*models.Post, error)
	UpdatePost(ctx context.Context, id int, p wordpress.PostPayload) (*models.Post, error)
	DeletePost(ctx context.Context, id int, force bool) error
}

// Deps are the services behind the HTTP API. WordPress and Importer are nil
// when the connection is disabled.
type Deps struct {
	Config    *config.Config
	News      *content.News
	Events    *content.Events
	WordPress WordPress
	Importer  *importer.Service
	AutoSync  *autosync.Manager
	Cache     cache.Cache
}

// Handlers holds the HTTP handlers.
type Handlers struct {
	cfg      *config.Config
	news     *content.News
	events   *content.Events
	wp       WordPress
	importer *importer.Service
	autosync *autosync.Manager
	cache    cache.Cache
	validate *middleware.Validator
	log      zerolog.Logger
}

// NewHandlers creates the handlers.
func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		cfg:      d.Config,
		news:     d.News,
		events:   d.Events,
		wp:       d.WordPress,
		importer: d.Importer,
		autosync: d.AutoSync,
		cache:    d.Cache,
		validate: middleware.NewValidator(),
		log:      logger.For("api"),
	}
}

// HealthCheck handles the /health endpoint
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return ok(c, fiber.Map{
		"status":    "ok",
		"version":   Version,
		"time":      time.Now().Format(time.RFC3339),
		"wordpress": h.wp != nil,
		"news":      h.news.Len(),
		"events":    h.events.Len(),
	}, "")
}

// page parses the page and page_size query parameters.
func page(c *fiber.Ctx) (int, int) {
	p, _ := strconv.Atoi(c.Query("page", "1"))
	if p < 1 {
		p = 1
	}

	size, _ := strconv.Atoi(c.Query("page_size", "20"))
	switch {
	case size > 100:
		size = 100
	case size <= 0:
		size = 20
	}
	return p, size
}

func paginate[T any](items []T, p, size int) []T {
	if size <= 0 || p < 1 || p-1 > len(items)/size {
		return []T{}
	}
	start := (p - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func paramID(c *fiber.Ctx) (int, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, badRequest("id must be a positive integer")
	}
	return id, nil
}

// GetNews handles GET /api/v1/news
func (h *Handlers) GetNews(c *fiber.Ctx) error {
	items := h.news.List()
	if s := c.Query("status"); s != "" {
		status := models.PublishStatus(s)
		if !status.Valid() {
			return fail(c, badRequest("status must be draft or published"))
		}
		filtered := items[:0]
		for _, n := range items {
			if n.Status == status {
				filtered = append(filtered, n)
			}
		}
		items = filtered
	}

	synced := 0
	for i := range items {
		if items[i].Synced() {
			synced++
		}
	}

	p, size := page(c)
	return okWithStats(c, paginate(items, p, size), fiber.Map{
		"page":       p,
		"page_size":  size,
		"total":      len(items),
		"synced":     synced,
		"totalViews": h.news.TotalViews(),
	}, "")
}

// GetNewsByID handles GET /api/v1/news/:id
func (h *Handlers) GetNewsByID(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	item, found := h.news.GetByID(id)
	if !found {
		return fail(c, content.ErrNotFound)
	}
	return ok(c, item, "")
}

// GetEvents handles GET /api/v1/events
func (h *Handlers) GetEvents(c *fiber.Ctx) error {
	items := h.events.List()
	if s := c.Query("status"); s != "" {
		status := models.EventStatus(s)
		if !status.Valid() {
			return fail(c, badRequest("unknown event status"))
		}
		filtered := items[:0]
		for _, e := range items {
			if e.Status == status {
				filtered = append(filtered, e)
			}
		}
		items = filtered
	}

	p, size := page(c)
	return okWithStats(c, paginate(items, p, size), fiber.Map{
		"page":               p,
		"page_size":          size,
		"total":              len(items),
		"totalViews":         h.events.TotalViews(),
		"totalRegistrations": h.events.TotalRegistrations(),
	}, "")
}

// GetEventByID handles GET /api/v1/events/:id
func (h *Handlers) GetEventByID(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	item, found := h.events.GetByID(id)
	if !found {
		return fail(c, content.ErrNotFound)
	}
	return ok(c, item, "")
}
