package api

import (
	"github.com/bilgisen/wpsync/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, h *Handlers) {
	admin := middleware.AdminOnly(h.cfg.AdminAPIKey)

	// WordPress import and sync APIs
	app.Get("/api/import/wordpress", admin, h.ImportGet)
	app.Post("/api/import/wordpress", admin, h.ImportPost)
	app.Get("/api/sync/wordpress", admin, h.SyncGet)
	app.Post("/api/sync/wordpress", admin, h.SyncPost)

	// API group with versioning
	api := app.Group("/api/v1")

	api.Get("/health", h.HealthCheck)

	news := api.Group("/news")
	{
		news.Get("", h.GetNews)
		news.Get("/:id", h.GetNewsByID)
	}

	events := api.Group("/events")
	{
		events.Get("", h.GetEvents)
		events.Get("/:id", h.GetEventByID)
	}

	adm := api.Group("/admin", admin)
	{
		n := newsResource(h)
		adm.Post("/news", n.create)
		adm.Get("/news/sync", n.syncState)
		adm.Post("/news/sync/toggle", n.toggleSync)
		adm.Post("/news/autosync/toggle", n.toggleAutoSync)
		adm.Put("/news/:id", n.update)
		adm.Delete("/news/:id", n.remove)
		adm.Post("/news/:id/push", n.push)

		e := eventsResource(h)
		adm.Post("/events", e.create)
		adm.Get("/events/sync", e.syncState)
		adm.Post("/events/sync/toggle", e.toggleSync)
		adm.Post("/events/autosync/toggle", e.toggleAutoSync)
		adm.Put("/events/:id", e.update)
		adm.Delete("/events/:id", e.remove)
		adm.Post("/events/:id/push", e.push)

		adm.Get("/autosync", h.GetAutoSync)
		adm.Put("/autosync", middleware.Body[AutoSyncRequest](h.validate), h.UpdateAutoSync)
		adm.Post("/autosync/trigger", h.TriggerAutoSync)
	}

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return middleware.Fail(c, fiber.StatusNotFound, "Endpoint not found", "not_found")
	})
}
