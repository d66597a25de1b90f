package api

import (
	"asset-pipeline/core/server"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature wires the asset API into the application.
type Feature struct {
	cfg     Config
	service *Service
}

// NewFeature creates the API feature over the asset server.
func NewFeature(cfg Config, srv *server.Server, logger *zap.Logger) *Feature {
	return &Feature{
		cfg:     cfg,
		service: NewService(srv, logger),
	}
}

func (f *Feature) Name() string {
	return "api"
}

func (f *Feature) IsEnabled() bool {
	return f.cfg.Enabled
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	NewHandler(f.service).RegisterRoutes(app)
	return nil
}
