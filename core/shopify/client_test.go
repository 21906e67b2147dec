package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPClient_Execute(t *testing.T) {
	var gotToken, gotContentType string
	var gotBody graphqlRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Shopify-Access-Token")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"shop":{"name":"demo"}}}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(Config{
		Endpoint:    srv.URL,
		AccessToken: "secret-token",
	}, zap.NewNop())

	result, err := client.Execute(context.Background(), "query { shop { name } }", map[string]any{"first": 1})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Empty(t, result.Errors)
	assert.JSONEq(t, `{"shop":{"name":"demo"}}`, string(result.Data))

	assert.Equal(t, "secret-token", gotToken)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "query { shop { name } }", gotBody.Query)
}

func TestHTTPClient_Execute_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewHTTPClient(Config{Endpoint: srv.URL}, zap.NewNop())
	_, err := client.Execute(context.Background(), "query {}", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestConfig_URL(t *testing.T) {
	cfg := Config{ShopDomain: "demo-shop", APIVersion: "2024-10"}
	assert.Equal(t, "https://demo-shop.myshopify.com/admin/api/2024-10/graphql.json", cfg.URL())

	cfg.Endpoint = "http://localhost:9999/graphql"
	assert.Equal(t, "http://localhost:9999/graphql", cfg.URL())
}
