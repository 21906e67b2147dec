package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"feed-sync/core/shopify"
	"feed-sync/feature/feedsync/feed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedCall struct {
	operation string
	variables map[string]any
}

// fakeClient scripts remote responses and records every call.
type fakeClient struct {
	mu      sync.Mutex
	calls   []recordedCall
	handler func(operation string, variables map[string]any) (*shopify.Result, error)
}

func (c *fakeClient) Execute(_ context.Context, operation string, variables map[string]any) (*shopify.Result, error) {
	c.mu.Lock()
	c.calls = append(c.calls, recordedCall{operation: operation, variables: variables})
	c.mu.Unlock()
	return c.handler(operation, variables)
}

func (c *fakeClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func searchResult(t *testing.T, nodes ...map[string]any) *shopify.Result {
	t.Helper()
	edges := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		edges = append(edges, map[string]any{"node": n})
	}
	data, err := json.Marshal(map[string]any{
		"products": map[string]any{"edges": edges},
	})
	require.NoError(t, err)
	return &shopify.Result{Data: data}
}

func matchableItem() feed.Item {
	return feed.Item{Vendor: "Acme", Title: "Phone 128GB Black"}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name string
		item feed.Item
		want string
	}{
		{
			name: "vendor and title",
			item: feed.Item{Vendor: "Acme", Title: "Phone 128GB"},
			want: `vendor:"Acme" AND title:*Phone 128GB*`,
		},
		{
			name: "quotes and newlines stripped",
			item: feed.Item{Vendor: `Ac"me`, Title: "Phone\n128GB"},
			want: `vendor:"Acme" AND title:*Phone 128GB*`,
		},
		{
			name: "vendor alone",
			item: feed.Item{Vendor: "Acme", Title: "Pen"},
			want: `vendor:"Acme"`,
		},
		{
			name: "title words only",
			item: feed.Item{Title: "Wireless Mouse Ergonomic Pro Max"},
			want: `title:*Wireless Mouse Ergonomic*`,
		},
		{
			name: "short vendor falls to title words",
			item: feed.Item{Vendor: "AB", Title: "Wireless Mouse Pro Max"},
			want: `title:*Wireless Mouse Pro*`,
		},
		{
			name: "too little signal",
			item: feed.Item{Vendor: "AB", Title: "Pen"},
			want: "",
		},
		{
			name: "multi word vendor with short title",
			item: feed.Item{Vendor: "Big Corp Inc", Title: "Pen"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildSearchQuery(tt.item))
		})
	}
}

func TestFindMatch_CachesByQuery(t *testing.T) {
	client := &fakeClient{handler: func(string, map[string]any) (*shopify.Result, error) {
		return searchResult(t, map[string]any{"id": "gid://P/1", "title": "Phone"}), nil
	}}
	m := NewMatcher(client, zap.NewNop(), true)

	first := m.FindMatch(context.Background(), matchableItem())
	second := m.FindMatch(context.Background(), matchableItem())

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, "gid://P/1", first.ID)
	assert.Equal(t, 1, client.callCount())

	hits, misses := m.CacheStats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestFindMatch_NegativeResultCached(t *testing.T) {
	client := &fakeClient{handler: func(string, map[string]any) (*shopify.Result, error) {
		return searchResult(t), nil
	}}
	m := NewMatcher(client, zap.NewNop(), true)

	assert.Nil(t, m.FindMatch(context.Background(), matchableItem()))
	assert.Nil(t, m.FindMatch(context.Background(), matchableItem()))
	assert.Equal(t, 1, client.callCount())
}

func TestFindMatch_TransportFailureNotCached(t *testing.T) {
	calls := 0
	client := &fakeClient{handler: func(string, map[string]any) (*shopify.Result, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("connection reset")
		}
		return searchResult(t, map[string]any{"id": "gid://P/2"}), nil
	}}
	m := NewMatcher(client, zap.NewNop(), true)

	assert.Nil(t, m.FindMatch(context.Background(), matchableItem()))

	// The failure must not stick; the next call reaches the remote and
	// finds the product.
	found := m.FindMatch(context.Background(), matchableItem())
	require.NotNil(t, found)
	assert.Equal(t, "gid://P/2", found.ID)
	assert.Equal(t, 2, client.callCount())
}

func TestFindMatch_UnusableQuerySkipsRemote(t *testing.T) {
	client := &fakeClient{handler: func(string, map[string]any) (*shopify.Result, error) {
		t.Fatal("remote must not be called")
		return nil, nil
	}}
	m := NewMatcher(client, zap.NewNop(), true)

	assert.Nil(t, m.FindMatch(context.Background(), feed.Item{Vendor: "X", Title: "Y"}))
	assert.Equal(t, 0, client.callCount())
}

func TestFindMatch_CacheDisabled(t *testing.T) {
	client := &fakeClient{handler: func(string, map[string]any) (*shopify.Result, error) {
		return searchResult(t, map[string]any{"id": "gid://P/1"}), nil
	}}
	m := NewMatcher(client, zap.NewNop(), false)

	m.FindMatch(context.Background(), matchableItem())
	m.FindMatch(context.Background(), matchableItem())
	assert.Equal(t, 2, client.callCount())
}

func TestFindExistingByGroup_QueryOrder(t *testing.T) {
	var queries []string
	client := &fakeClient{handler: func(_ string, vars map[string]any) (*shopify.Result, error) {
		queries = append(queries, vars["query"].(string))
		return &shopify.Result{Data: json.RawMessage(`{"productVariants":{"edges":[]}}`)}, nil
	}}
	m := NewMatcher(client, zap.NewNop(), true)

	product, err := m.FindExistingByGroup(context.Background(), "grp-1", "SKU-9")
	require.NoError(t, err)
	assert.Nil(t, product)
	assert.Equal(t, []string{
		`sku:"grp-1"`, `barcode:"grp-1"`, `sku:"SKU-9"`, `barcode:"SKU-9"`,
	}, queries)
}

func TestFindExistingByGroup_StopsOnHit(t *testing.T) {
	calls := 0
	client := &fakeClient{handler: func(string, map[string]any) (*shopify.Result, error) {
		calls++
		if calls < 2 {
			return &shopify.Result{Data: json.RawMessage(`{"productVariants":{"edges":[]}}`)}, nil
		}
		return &shopify.Result{Data: json.RawMessage(
			`{"productVariants":{"edges":[{"node":{"id":"gid://V/1","product":{"id":"gid://P/7","title":"Found"}}}]}}`,
		)}, nil
	}}
	m := NewMatcher(client, zap.NewNop(), true)

	product, err := m.FindExistingByGroup(context.Background(), "grp-1", "SKU-9")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, "gid://P/7", product.ID)
	assert.Equal(t, 2, calls)
}

func TestFindMatch_Concurrent(t *testing.T) {
	// The remote blocks until released so every goroutine is in flight
	// before the first result lands.
	release := make(chan struct{})
	client := &fakeClient{handler: func(string, map[string]any) (*shopify.Result, error) {
		<-release
		return searchResult(t, map[string]any{"id": "gid://P/1"}), nil
	}}
	m := NewMatcher(client, zap.NewNop(), true)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := m.FindMatch(context.Background(), matchableItem())
			assert.NotNil(t, p)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	// Identical in-flight queries collapse to one remote call.
	assert.Equal(t, 1, client.callCount())
}
