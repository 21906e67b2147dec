package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"feed-sync/core/shopify"
	"feed-sync/feature/feedsync/feed"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// searchPageSize bounds how many candidates a fuzzy search pulls back.
const searchPageSize = 5

// Matcher finds existing remote products for feed items. Results are
// cached per search query for the lifetime of the matcher, so one sync
// run resolves each distinct query against the remote at most once.
type Matcher struct {
	client  shopify.Client
	logger  *zap.Logger
	enabled bool

	mu    sync.Mutex
	cache map[string]*RemoteProduct
	group singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewMatcher creates a matcher. With caching disabled every call hits the
// remote.
func NewMatcher(client shopify.Client, logger *zap.Logger, cacheEnabled bool) *Matcher {
	return &Matcher{
		client:  client,
		logger:  logger,
		enabled: cacheEnabled,
		cache:   make(map[string]*RemoteProduct),
	}
}

// BuildSearchQuery derives the fuzzy search query for an item, trying the
// most selective form first:
//
//  1. vendor plus title when both are meaningful,
//  2. vendor alone when it is a single distinctive token,
//  3. the first words of the title.
//
// An empty result means the item carries too little signal to search for
// safely.
func BuildSearchQuery(item feed.Item) string {
	vendor := sanitizeQueryText(item.Vendor)
	title := sanitizeQueryText(item.Title)

	if len(vendor) > 2 && len(title) > 3 {
		return fmt.Sprintf(`vendor:"%s" AND title:*%s*`, vendor, title)
	}
	if len(vendor) > 3 && !strings.ContainsAny(vendor, " \t") {
		return fmt.Sprintf(`vendor:"%s"`, vendor)
	}
	if len(title) > 5 {
		words := strings.Fields(title)
		if len(words) > 3 {
			words = words[:3]
		}
		return fmt.Sprintf(`title:*%s*`, strings.Join(words, " "))
	}
	return ""
}

// sanitizeQueryText strips characters that break the remote query syntax
// and collapses runs of whitespace.
func sanitizeQueryText(s string) string {
	s = strings.NewReplacer(`"`, "", "'", "", "\n", " ", "\r", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// FindMatch resolves the remote product an item corresponds to, or nil
// when no confident match exists. Items yielding no usable query resolve
// to nil without touching the remote. Transport failures also resolve to
// nil so the caller falls back to creating; they are never cached.
func (m *Matcher) FindMatch(ctx context.Context, item feed.Item) *RemoteProduct {
	query := BuildSearchQuery(item)
	if query == "" {
		return nil
	}

	if m.enabled {
		m.mu.Lock()
		product, ok := m.cache[query]
		m.mu.Unlock()
		if ok {
			m.hits.Add(1)
			return product
		}
	}
	m.misses.Add(1)

	result, err, _ := m.group.Do(query, func() (any, error) {
		return m.search(ctx, query)
	})
	if err != nil {
		m.logger.Warn("product search failed, treating as no match",
			zap.String("query", query),
			zap.Error(err),
		)
		return nil
	}

	product, _ := result.(*RemoteProduct)
	if m.enabled {
		m.mu.Lock()
		m.cache[query] = product
		m.mu.Unlock()
	}
	return product
}

func (m *Matcher) search(ctx context.Context, query string) (*RemoteProduct, error) {
	res, err := m.client.Execute(ctx, productSearchQuery, map[string]any{
		"query": query,
		"first": searchPageSize,
	})
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if len(res.Errors) > 0 {
		return nil, &TransportError{Err: fmt.Errorf("search errors: %s", res.ErrorMessages())}
	}

	var payload struct {
		Products struct {
			Edges []struct {
				Node productNode `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	}
	if err := decodePayload(res.Data, &payload); err != nil {
		return nil, err
	}
	if len(payload.Products.Edges) == 0 {
		return nil, nil
	}
	return payload.Products.Edges[0].Node.toRemote(), nil
}

// FindExistingByGroup looks up a product previously created for the
// group, by exact variant identifiers. The group key is checked before
// the first item's SKU, as SKU against barcode, in fixed order.
func (m *Matcher) FindExistingByGroup(ctx context.Context, groupKey, firstSKU string) (*RemoteProduct, error) {
	queries := make([]string, 0, 4)
	seen := make(map[string]struct{}, 4)
	add := func(field, value string) {
		if value == "" {
			return
		}
		q := fmt.Sprintf(`%s:"%s"`, field, sanitizeQueryText(value))
		if _, dup := seen[q]; dup {
			return
		}
		seen[q] = struct{}{}
		queries = append(queries, q)
	}
	add("sku", groupKey)
	add("barcode", groupKey)
	add("sku", firstSKU)
	add("barcode", firstSKU)

	for _, query := range queries {
		product, err := m.lookupVariant(ctx, query)
		if err != nil {
			return nil, err
		}
		if product != nil {
			return product, nil
		}
	}
	return nil, nil
}

func (m *Matcher) lookupVariant(ctx context.Context, query string) (*RemoteProduct, error) {
	res, err := m.client.Execute(ctx, variantLookupQuery, map[string]any{
		"query": query,
	})
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if len(res.Errors) > 0 {
		return nil, &TransportError{Err: fmt.Errorf("variant lookup errors: %s", res.ErrorMessages())}
	}

	var payload struct {
		ProductVariants struct {
			Edges []struct {
				Node struct {
					Product productNode `json:"product"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"productVariants"`
	}
	if err := decodePayload(res.Data, &payload); err != nil {
		return nil, err
	}
	if len(payload.ProductVariants.Edges) == 0 {
		return nil, nil
	}
	return payload.ProductVariants.Edges[0].Node.Product.toRemote(), nil
}

// CacheStats returns the hit and miss counters accumulated so far.
func (m *Matcher) CacheStats() (hits, misses uint64) {
	return m.hits.Load(), m.misses.Load()
}
