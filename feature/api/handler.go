package api

import (
	"asset-pipeline/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for asset operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the asset routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/assets")
	group.Post("/load", h.HandleLoad)
	group.Post("/reload", h.HandleReload)
	group.Get("/state", h.HandleState)
	group.Get("/events", h.HandleEvents)
	group.Post("/collect", h.HandleCollect)
	group.Delete("/", h.HandleUnload)
}

type pathRequest struct {
	Path string `json:"path"`
}

// HandleLoad starts loading an asset. With ?wait=true the response is
// delayed until the load is terminal.
func (h *Handler) HandleLoad(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req pathRequest
	if err := c.BodyParser(&req); err != nil || req.Path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "body must carry a path"})
	}
	l.Info("Load requested", zap.String("path", req.Path))

	report := h.service.Load(req.Path)
	if c.Query("wait") == "true" {
		var err error
		report, err = h.service.Wait(c.Context(), req.Path)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(report)
	}
	return c.Status(fiber.StatusAccepted).JSON(report)
}

// HandleReload re-imports a source if its content changed.
func (h *Handler) HandleReload(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req pathRequest
	if err := c.BodyParser(&req); err != nil || req.Path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "body must carry a path"})
	}
	l.Info("Reload requested", zap.String("path", req.Path))

	if err := h.service.Reload(c.Context(), req.Path); err != nil {
		l.Error("Reload failed", zap.String("path", req.Path), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(h.service.Status(req.Path))
}

// HandleState reports the load state of a source path.
func (h *Handler) HandleState(c *fiber.Ctx) error {
	path := c.Query("path")
	if path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query parameter path is required"})
	}
	return c.JSON(h.service.Status(path))
}

// HandleEvents drains and returns the buffered lifecycle events.
func (h *Handler) HandleEvents(c *fiber.Ctx) error {
	events := h.service.Events()
	return c.JSON(fiber.Map{
		"count":  len(events),
		"events": events,
	})
}

// HandleCollect triggers a garbage collection pass.
func (h *Handler) HandleCollect(c *fiber.Ctx) error {
	h.service.Collect()
	return c.JSON(fiber.Map{"status": "collected"})
}

// HandleUnload force-removes a source and its assets.
func (h *Handler) HandleUnload(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	path := c.Query("path")
	if path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query parameter path is required"})
	}
	l.Info("Unload requested", zap.String("path", path))
	h.service.Unload(path)
	return c.JSON(fiber.Map{"status": "unloaded", "path": path})
}
