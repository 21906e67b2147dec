package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"feed-sync/core/shopify"
	"feed-sync/feature/feedsync/feed"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func okResult(payload string) *shopify.Result {
	return &shopify.Result{Data: json.RawMessage(payload)}
}

// scriptedClient answers by operation document, so a whole mutation flow
// can run against canned payloads.
func scriptedClient() *fakeClient {
	return &fakeClient{handler: func(operation string, _ map[string]any) (*shopify.Result, error) {
		switch operation {
		case productCreateMutation:
			return okResult(`{"productCreate":{"product":{"id":"gid://P/1","handle":"phone",
				"variants":{"edges":[{"node":{"id":"gid://V/1","price":"0.00"}}]}},"userErrors":[]}}`), nil
		case productUpdateMutation:
			return okResult(`{"productUpdate":{"product":{"id":"gid://P/1"},"userErrors":[]}}`), nil
		case productDeleteMutation:
			return okResult(`{"productDelete":{"deletedProductId":"gid://P/1","userErrors":[]}}`), nil
		case variantsBulkUpdateMutation:
			return okResult(`{"productVariantsBulkUpdate":{"productVariants":[],"userErrors":[]}}`), nil
		case variantsBulkCreateMutation:
			return okResult(`{"productVariantsBulkCreate":{"productVariants":[{"id":"gid://V/2"}],"userErrors":[]}}`), nil
		case productCreateMediaMutation:
			return okResult(`{"productCreateMedia":{"media":[],"mediaUserErrors":[]}}`), nil
		default:
			return nil, errors.New("unexpected operation")
		}
	}}
}

func variantGroup() feed.VariantGroup {
	return feed.Group([]feed.Item{
		{
			ExternalID: "a", GroupID: "g1", Title: "Phone 128GB", Vendor: "Acme",
			SKU: "SKU-A", GTIN: "12345678901",
			Price:        decimal.RequireFromString("179.00"),
			Availability: feed.AvailabilityInStock,
			Condition:    feed.ConditionNew,
			Tags:         []string{"Acme", "new"},
			Images:       []string{"https://cdn.example.com/a.jpg"},
		},
		{
			ExternalID: "b", GroupID: "g1", Title: "Phone 256GB", Vendor: "Acme",
			SKU: "SKU-B",
			Price:        decimal.RequireFromString("229.00"),
			Availability: feed.AvailabilityInStock,
			Condition:    feed.ConditionNew,
			Tags:         []string{"Acme"},
		},
	})[0]
}

func TestCreate_RejectsNonPositivePrice(t *testing.T) {
	client := scriptedClient()
	e := NewExecutor(client, zap.NewNop(), 3, time.Millisecond)

	group := feed.Group([]feed.Item{{ExternalID: "a", Title: "Free Sample"}})[0]
	_, err := e.Create(context.Background(), group)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 0, client.callCount())
}

func TestCreate_FullFlow(t *testing.T) {
	client := scriptedClient()
	e := NewExecutor(client, zap.NewNop(), 3, time.Millisecond)

	result, err := e.Create(context.Background(), variantGroup())
	require.NoError(t, err)
	assert.Equal(t, "gid://P/1", result.ProductID)
	assert.Equal(t, "phone", result.Handle)
	assert.Equal(t, 2, result.VariantsCreated)

	ops := make([]string, 0, len(client.calls))
	for _, c := range client.calls {
		ops = append(ops, c.operation)
	}
	assert.Equal(t, []string{
		productCreateMutation,
		variantsBulkUpdateMutation, // master claims the default variant
		variantsBulkCreateMutation,
		variantsBulkUpdateMutation, // sku follow-up for created variants
		productCreateMediaMutation,
	}, ops)
}

func TestCreate_MultiVariantOptions(t *testing.T) {
	client := scriptedClient()
	e := NewExecutor(client, zap.NewNop(), 3, time.Millisecond)

	_, err := e.Create(context.Background(), variantGroup())
	require.NoError(t, err)

	input := client.calls[0].variables["input"].(map[string]any)
	assert.Equal(t, "Phone 128GB", input["title"])
	assert.Equal(t, "ACTIVE", input["status"])

	options := input["productOptions"].([]map[string]any)
	require.Len(t, options, 2) // single color, so no Color axis
	assert.Equal(t, optionCapacity, options[0]["name"])
	assert.Equal(t, optionCondition, options[1]["name"])
}

func TestUpdate_PriceUnchangedShortCircuits(t *testing.T) {
	client := scriptedClient()
	e := NewExecutor(client, zap.NewNop(), 3, time.Millisecond)

	group := variantGroup()
	last := group.Master.Price
	result, err := e.Update(context.Background(), group, &RemoteProduct{ID: "gid://P/1"}, &last)

	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, 0, client.callCount())
}

func TestUpdate_MatchesVariantsBySKUThenBarcode(t *testing.T) {
	client := scriptedClient()
	e := NewExecutor(client, zap.NewNop(), 3, time.Millisecond)

	existing := &RemoteProduct{
		ID:   "gid://P/1",
		Tags: []string{"Legacy"},
		Variants: []RemoteVariant{
			{ID: "gid://V/10", SKU: "SKU-A"},
			{ID: "gid://V/11", Barcode: "no-match"},
		},
		Images: []string{"https://cdn.example.com/a.jpg"},
	}

	result, err := e.Update(context.Background(), variantGroup(), existing, nil)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, 1, result.VariantsUpdated) // SKU-A matched
	assert.Equal(t, 1, result.VariantsCreated) // SKU-B added

	input := client.calls[0].variables["input"].(map[string]any)
	tags := input["tags"].([]string)
	assert.Equal(t, "Legacy", tags[0]) // remote tags survive the merge
	assert.Contains(t, tags, "Acme")

	// The only group image already exists remotely, so no media call.
	for _, c := range client.calls {
		assert.NotEqual(t, productCreateMediaMutation, c.operation)
	}
}

func TestUpdate_SingletonFallsBackToDefaultVariant(t *testing.T) {
	client := scriptedClient()
	e := NewExecutor(client, zap.NewNop(), 3, time.Millisecond)

	group := feed.Group([]feed.Item{{
		ExternalID: "a", Title: "Desk Lamp", Vendor: "Acme",
		SKU:          "FEED-SKU",
		Price:        decimal.RequireFromString("15.00"),
		Availability: feed.AvailabilityInStock,
		Condition:    feed.ConditionNew,
	}})[0]

	// A fuzzy-matched product this system never created: its only variant
	// carries the merchant's own sku, which matches nothing in the feed.
	existing := &RemoteProduct{
		ID: "gid://P/1",
		Variants: []RemoteVariant{
			{ID: "gid://V/10", SKU: "MERCHANT-SKU", Price: decimal.RequireFromString("12.00")},
		},
	}

	result, err := e.Update(context.Background(), group, existing, nil)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, 1, result.VariantsUpdated)
	assert.Equal(t, 0, result.VariantsCreated)

	ops := make([]string, 0, len(client.calls))
	for _, c := range client.calls {
		ops = append(ops, c.operation)
	}
	assert.Equal(t, []string{productUpdateMutation, variantsBulkUpdateMutation}, ops)

	variants := client.calls[1].variables["variants"].([]map[string]any)
	require.Len(t, variants, 1)
	assert.Equal(t, "gid://V/10", variants[0]["id"])
	assert.Equal(t, "15.00", variants[0]["price"])
}

func TestDelete_MutationErrorIsPermanent(t *testing.T) {
	client := &fakeClient{handler: func(string, map[string]any) (*shopify.Result, error) {
		return okResult(`{"productDelete":{"deletedProductId":null,
			"userErrors":[{"field":["id"],"message":"Product does not exist"}]}}`), nil
	}}
	e := NewExecutor(client, zap.NewNop(), 5, time.Millisecond)

	err := e.Delete(context.Background(), "gid://P/404")

	var mutationErr *MutationError
	require.ErrorAs(t, err, &mutationErr)
	assert.Equal(t, 1, client.callCount())
}

func TestDelete_RetriesTransportFailures(t *testing.T) {
	calls := 0
	client := &fakeClient{handler: func(string, map[string]any) (*shopify.Result, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset")
		}
		return okResult(`{"productDelete":{"deletedProductId":"gid://P/1","userErrors":[]}}`), nil
	}}

	base := 30 * time.Millisecond
	e := NewExecutor(client, zap.NewNop(), 3, base)

	start := time.Now()
	err := e.Delete(context.Background(), "gid://P/1")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	// Two backoff sleeps: base, then base*2.
	assert.GreaterOrEqual(t, elapsed, 3*base)
}

func TestDelete_ExhaustsRetries(t *testing.T) {
	client := &fakeClient{handler: func(string, map[string]any) (*shopify.Result, error) {
		return nil, errors.New("connection reset")
	}}
	e := NewExecutor(client, zap.NewNop(), 2, time.Millisecond)

	err := e.Delete(context.Background(), "gid://P/1")

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 2, client.callCount())
}
