// Package server assembles the fiber application.
package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"itinerary-pdf/internal/config"
	"itinerary-pdf/internal/deliver"
	"itinerary-pdf/internal/export"
	"itinerary-pdf/internal/http/handlers"
	"itinerary-pdf/internal/http/middleware"
	"itinerary-pdf/internal/infra/logging"
	"itinerary-pdf/internal/store"
)

// Deps are the collaborators shared by all routes.
type Deps struct {
	Config   config.Config
	Registry *store.Registry
	Exporter *export.Exporter
	Chrome   handlers.StatsSource
	Archive  deliver.Saver
	// LimiterStore backs the rate limiter; nil selects memory.
	LimiterStore fiber.Storage
}

// New creates and configures the fiber app.
func New(deps Deps) *fiber.App {
	cfg := deps.Config
	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit(cfg),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				msg = e.Message
			}

			logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

			return c.Status(code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    code,
					"message": msg,
				},
			})
		},
	})

	middleware.Register(app, cfg, deps.LimiterStore)
	RegisterRoutes(app, deps)

	// JSON 404 for everything unmatched.
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// bodyLimit leaves headroom over the snapshot limit so oversized snapshots
// reach the handler and get a JSON 413.
func bodyLimit(cfg config.Config) int {
	limit := cfg.Limits.MaxSnapshotBytes * 2
	if limit < 4<<20 {
		limit = 4 << 20
	}
	return limit
}

// RegisterRoutes mounts all route handlers.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/v1")

	its := handlers.NewItineraryService(deps.Registry)
	pdf := &handlers.PDFService{
		Config:   deps.Config,
		Registry: deps.Registry,
		Exporter: deps.Exporter,
		Chrome:   deps.Chrome,
		Archive:  deps.Archive,
	}

	v1.Post("/itineraries", its.HandleCreate)
	v1.Get("/itineraries/:id", its.HandleGet)
	v1.Put("/itineraries/:id", its.HandleImport)
	v1.Delete("/itineraries/:id", its.HandleDelete)
	v1.Get("/itineraries/:id/snapshot", its.HandleSnapshot)
	v1.Post("/itineraries/:id/import", its.HandleImport)
	v1.Post("/itineraries/:id/reset", its.HandleReset)
	v1.Post("/itineraries/:id/installments/generate", its.HandleGenerateInstallments)
	v1.Get("/itineraries/:id/html", pdf.HandlePreview)
	v1.Post("/itineraries/:id/pdf", pdf.HandleExport)
	v1.Patch("/itineraries/:id/:section", its.HandleSection)
	v1.Post("/itineraries/:id/:collection", its.HandleAddItem)
	v1.Patch("/itineraries/:id/:collection/:item", its.HandleUpdateItem)
	v1.Delete("/itineraries/:id/:collection/:item", its.HandleRemoveItem)

	v1.Post("/pdf", pdf.HandleInlineExport)
	v1.Get("/chrome/stats", pdf.HandleChromeStats)

	v1.Get("/monitor", monitor.New())
}
