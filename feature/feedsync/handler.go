package feedsync

import (
	"bufio"
	"context"
	"encoding/json"
	"net/url"
	"time"

	"feed-sync/core/logger"
	"feed-sync/core/notifier"
	"feed-sync/feature/feedsync/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for feed sync.
type Handler struct {
	service *Service
	hub     *notifier.Hub
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, hub *notifier.Hub, logger *zap.Logger) *Handler {
	return &Handler{service: service, hub: hub, logger: logger}
}

// RegisterRoutes registers the feed sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Post("/providers", h.HandleCreateProvider)
	group.Get("/providers", h.HandleListProviders)
	group.Get("/providers/:id/logs", h.HandleListSyncLogs)
	group.Post("/providers/:id/run", h.HandleRunSync)
	group.Get("/events", h.HandleEvents)
}

type createProviderRequest struct {
	Shop          string `json:"shop"`
	Name          string `json:"name"`
	FeedURL       string `json:"feed_url"`
	SyncFrequency int    `json:"sync_frequency"`
	AutoDelete    bool   `json:"auto_delete"`
}

// HandleCreateProvider registers a new feed source.
// @Summary Create Provider
// @Description Register a feed source for a shop.
// @Tags sync
// @Accept json
// @Produce json
// @Success 201 {object} models.Provider "Created provider"
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /sync/providers [post]
func (h *Handler) HandleCreateProvider(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	var req createProviderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Shop == "" || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "shop and name are required",
		})
	}
	if !validFeedURL(req.FeedURL) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "feed_url must be an absolute http(s) URL",
		})
	}
	if req.SyncFrequency <= 0 {
		req.SyncFrequency = 24
	}

	provider := &models.Provider{
		Shop:          req.Shop,
		Name:          req.Name,
		FeedURL:       req.FeedURL,
		SyncFrequency: req.SyncFrequency,
		AutoDelete:    req.AutoDelete,
		IsActive:      true,
	}
	if err := h.service.store.CreateProvider(c.Context(), provider); err != nil {
		l.Error("failed to create provider", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	l.Info("provider created",
		zap.Uint("provider_id", provider.ID),
		zap.String("shop", provider.Shop),
	)
	return c.Status(fiber.StatusCreated).JSON(provider)
}

// HandleListProviders lists a shop's providers.
// @Summary List Providers
// @Tags sync
// @Produce json
// @Param shop query string true "Shop domain"
// @Success 200 {array} models.Provider "Providers"
// @Router /sync/providers [get]
func (h *Handler) HandleListProviders(c *fiber.Ctx) error {
	shop := c.Query("shop")
	if shop == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "shop query parameter is required",
		})
	}

	providers, err := h.service.store.Providers(c.Context(), shop)
	if err != nil {
		logger.WithRayID(h.logger, c).Error("failed to list providers", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(providers)
}

// HandleListSyncLogs lists the latest runs of a provider.
// @Summary List Sync Logs
// @Tags sync
// @Produce json
// @Param id path int true "Provider ID"
// @Success 200 {array} models.SyncLog "Sync logs"
// @Router /sync/providers/{id}/logs [get]
func (h *Handler) HandleListSyncLogs(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid provider id",
		})
	}

	logs, err := h.service.store.RecentSyncLogs(c.Context(), uint(id), c.QueryInt("limit", 20))
	if err != nil {
		logger.WithRayID(h.logger, c).Error("failed to list sync logs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(logs)
}

// HandleRunSync starts a reconciliation run in the background and returns
// its run id immediately. Progress streams on /sync/events.
// @Summary Run Sync
// @Tags sync
// @Produce json
// @Param id path int true "Provider ID"
// @Success 202 {object} map[string]string "Run accepted"
// @Router /sync/providers/{id}/run [post]
func (h *Handler) HandleRunSync(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid provider id",
		})
	}

	provider, err := h.service.store.ProviderByID(c.Context(), uint(id))
	if err != nil {
		logger.WithRayID(h.logger, c).Error("failed to load provider", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if provider == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "provider not found",
		})
	}

	runID := uuid.NewString()
	go func() {
		// The run outlives the HTTP request on purpose.
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()
		if _, err := h.service.RunSync(ctx, provider.ID, runID); err != nil {
			h.logger.Error("background sync run failed",
				zap.Uint("provider_id", provider.ID),
				zap.String("run_id", runID),
				zap.Error(err),
			)
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"run_id": runID,
		"status": "accepted",
	})
}

// HandleEvents streams sync progress for a shop as server-sent events.
// @Summary Stream Sync Events
// @Tags sync
// @Produce text/event-stream
// @Param shop query string true "Shop domain"
// @Router /sync/events [get]
func (h *Handler) HandleEvents(c *fiber.Ctx) error {
	shop := c.Query("shop")
	if shop == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "shop query parameter is required",
		})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	events, cancel := h.hub.Subscribe(shop)
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		keepAlive := time.NewTicker(15 * time.Second)
		defer keepAlive.Stop()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				payload, err := json.Marshal(event)
				if err != nil {
					continue
				}
				if _, err := w.WriteString("data: " + string(payload) + "\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					// Client went away.
					return
				}
			case <-keepAlive.C:
				if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func validFeedURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
