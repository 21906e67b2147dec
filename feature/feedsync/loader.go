package feedsync

import (
	"feed-sync/core/notifier"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
	enabled bool
}

// NewFeature creates the feed sync feature. The feature is disabled when
// the service has no database-backed store behind it.
func NewFeature(service *Service, hub *notifier.Hub, logger *zap.Logger, enabled bool) *Feature {
	return &Feature{
		service: service,
		handler: NewHandler(service, hub, logger),
		enabled: enabled,
	}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "feedsync"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.enabled
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Service exposes the underlying sync service for CLI entry points.
func (f *Feature) Service() *Service {
	return f.service
}
