package feedsync

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feed-sync/core/notifier"
	"feed-sync/feature/feedsync/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupApp(t *testing.T, store Store) (*fiber.App, *notifier.Hub) {
	t.Helper()
	hub := notifier.NewHub()
	svc, _ := testService(t, store, `<products></products>`)
	app := fiber.New()
	NewHandler(svc, hub, zap.NewNop()).RegisterRoutes(app)
	return app, hub
}

func TestHandleCreateProvider(t *testing.T) {
	store := newMemStore()
	app, _ := setupApp(t, store)

	body, _ := json.Marshal(map[string]any{
		"shop":     "demo.myshopify.com",
		"name":     "Main feed",
		"feed_url": "https://example.com/feed.xml",
	})
	req := httptest.NewRequest(http.MethodPost, "/sync/providers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created models.Provider
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, 24, created.SyncFrequency) // default applied
	assert.True(t, created.IsActive)
}

func TestHandleCreateProvider_RejectsBadURL(t *testing.T) {
	app, _ := setupApp(t, newMemStore())

	tests := []string{
		"ftp://example.com/feed.xml",
		"not-a-url",
		"",
	}
	for _, feedURL := range tests {
		body, _ := json.Marshal(map[string]any{
			"shop": "demo.myshopify.com", "name": "Main", "feed_url": feedURL,
		})
		req := httptest.NewRequest(http.MethodPost, "/sync/providers", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "url %q", feedURL)
	}
}

func TestHandleListProviders_RequiresShop(t *testing.T) {
	app, _ := setupApp(t, newMemStore())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sync/providers", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleRunSync_UnknownProvider(t *testing.T) {
	app, _ := setupApp(t, newMemStore())

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/sync/providers/42/run", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleRunSync_ReturnsRunID(t *testing.T) {
	store := newMemStore()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<products></products>`))
	}))
	defer srv.Close()

	provider := &models.Provider{Shop: "demo.myshopify.com", Name: "Main", FeedURL: srv.URL, IsActive: true}
	require.NoError(t, store.CreateProvider(context.Background(), provider))

	app, _ := setupApp(t, store)
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/sync/providers/1/run", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.NotEmpty(t, payload["run_id"])
	assert.Equal(t, "accepted", payload["status"])

	// Give the background run a moment to record its log.
	require.Eventually(t, func() bool {
		logs, err := store.RecentSyncLogs(context.Background(), provider.ID, 10)
		return err == nil && len(logs) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
