package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"feed-sync/core/shopify"
	"feed-sync/feature/feedsync/feed"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Option names used when a group carries more than one variant.
const (
	optionCapacity  = "Capacity"
	optionCondition = "Condition"
	optionColor     = "Color"

	defaultCapacity = "Standard"
)

// capacityPattern pulls a storage or volume designation out of a title
// ("Phone 128GB Black" yields "128GB").
var capacityPattern = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s?(?:GB|TB|ML|L)\b`)

// CreateResult reports a successful product creation.
type CreateResult struct {
	ProductID       string
	Handle          string
	VariantsCreated int
}

// UpdateResult reports the outcome of an update. Changed is false when
// the price was already current and the update short-circuited.
type UpdateResult struct {
	ProductID       string
	Changed         bool
	VariantsUpdated int
	VariantsCreated int
}

// Executor performs catalog mutations with bounded retries. Transport
// failures back off exponentially; mutations the remote rejected are
// permanent and surface immediately.
type Executor struct {
	client     shopify.Client
	logger     *zap.Logger
	retryCount int
	retryBase  time.Duration
}

// NewExecutor creates an executor. retryCount is the total number of
// attempts per call, retryBase the delay before the first retry.
func NewExecutor(client shopify.Client, logger *zap.Logger, retryCount int, retryBase time.Duration) *Executor {
	if retryCount < 1 {
		retryCount = 1
	}
	if retryBase <= 0 {
		retryBase = time.Second
	}
	return &Executor{
		client:     client,
		logger:     logger,
		retryCount: retryCount,
		retryBase:  retryBase,
	}
}

// execute runs one GraphQL call under the retry policy and returns the
// data payload. Top-level response errors count as transient; the remote
// reports them for throttling as well as for hard failures, and the
// backoff budget bounds the damage either way.
func (e *Executor) execute(ctx context.Context, operation string, variables map[string]any) (json.RawMessage, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = e.retryBase
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	attempt := 0
	return backoff.RetryWithData(func() (json.RawMessage, error) {
		attempt++
		res, err := e.client.Execute(ctx, operation, variables)
		if err != nil {
			e.logger.Warn("remote call failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return nil, &TransportError{Err: err}
		}
		if len(res.Errors) > 0 {
			e.logger.Warn("remote call returned errors",
				zap.Int("attempt", attempt),
				zap.String("errors", res.ErrorMessages()),
			)
			return nil, &TransportError{Err: fmt.Errorf("response errors: %s", res.ErrorMessages())}
		}
		return res.Data, nil
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(e.retryCount-1)), ctx))
}

// mutationErrors converts a userErrors list into a MutationError, or nil.
// Payloads are decoded after the retry loop, so the error needs no
// permanent marker; it simply never re-enters the loop.
func mutationErrors(operation string, errs []UserError) error {
	if len(errs) == 0 {
		return nil
	}
	return &MutationError{Operation: operation, Errors: errs}
}

// Create publishes a new product for the group, with one variant per feed
// item. The master item seeds the base attributes; its price must be
// positive.
func (e *Executor) Create(ctx context.Context, group feed.VariantGroup) (*CreateResult, error) {
	master := group.Master
	if !master.Price.IsPositive() {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("cannot create %q without a positive price", master.Title),
		}
	}

	input := map[string]any{
		"title":           master.Title,
		"vendor":          master.Vendor,
		"descriptionHtml": master.Description,
		"status":          "ACTIVE",
		"productType":     master.Category,
		"tags":            group.Tags(),
	}
	if len(group.Items) > 1 {
		input["productOptions"] = buildProductOptions(group)
	}

	data, err := e.execute(ctx, productCreateMutation, map[string]any{"input": input})
	if err != nil {
		return nil, err
	}

	var payload struct {
		ProductCreate struct {
			Product    *productNode `json:"product"`
			UserErrors []UserError  `json:"userErrors"`
		} `json:"productCreate"`
	}
	if err := decodePayload(data, &payload); err != nil {
		return nil, err
	}
	if err := mutationErrors("productCreate", payload.ProductCreate.UserErrors); err != nil {
		return nil, err
	}
	if payload.ProductCreate.Product == nil {
		return nil, fmt.Errorf("productCreate returned no product")
	}

	product := payload.ProductCreate.Product.toRemote()
	result := &CreateResult{ProductID: product.ID, Handle: product.Handle, VariantsCreated: 1}

	// The create leaves a single default variant behind; claim it for the
	// master item.
	if len(product.Variants) > 0 {
		if err := e.bulkUpdateVariants(ctx, product.ID, []map[string]any{
			variantInput(product.Variants[0].ID, master, group.Key),
		}); err != nil {
			return result, err
		}
	}

	extras := make([]feed.Item, 0, len(group.Items))
	for _, item := range group.Items {
		if item.ExternalID != master.ExternalID {
			extras = append(extras, item)
		}
	}
	if len(extras) > 0 {
		created, err := e.bulkCreateVariants(ctx, product.ID, group, extras)
		if err != nil {
			return result, err
		}
		result.VariantsCreated += created
	}

	e.attachImages(ctx, product.ID, group.Images())
	return result, nil
}

// Update reconciles an existing remote product with the group. A master
// price identical to the mapping's last synced price short-circuits the
// whole update.
func (e *Executor) Update(ctx context.Context, group feed.VariantGroup, existing *RemoteProduct, lastPrice *decimal.Decimal) (*UpdateResult, error) {
	master := group.Master
	result := &UpdateResult{ProductID: existing.ID}

	if lastPrice != nil && lastPrice.Equal(master.Price) {
		return result, nil
	}
	result.Changed = true

	input := map[string]any{
		"id":              existing.ID,
		"title":           master.Title,
		"vendor":          master.Vendor,
		"descriptionHtml": master.Description,
		"tags":            mergeTags(existing.Tags, group.Tags()),
	}
	data, err := e.execute(ctx, productUpdateMutation, map[string]any{"input": input})
	if err != nil {
		return nil, err
	}

	var payload struct {
		ProductUpdate struct {
			UserErrors []UserError `json:"userErrors"`
		} `json:"productUpdate"`
	}
	if err := decodePayload(data, &payload); err != nil {
		return nil, err
	}
	if err := mutationErrors("productUpdate", payload.ProductUpdate.UserErrors); err != nil {
		return nil, err
	}

	updates := make([]map[string]any, 0, len(group.Items))
	var additions []feed.Item
	for _, item := range group.Items {
		variant := existing.VariantBySKU(item.SKU)
		if variant == nil {
			variant = existing.VariantByBarcode(item.GTIN)
		}
		if variant == nil && len(group.Items) == 1 && len(existing.Variants) > 0 {
			// A single-item group reconciles against the product's default
			// variant. Products this system did not create carry the
			// merchant's own sku, and appending would duplicate the variant
			// on every run.
			variant = &existing.Variants[0]
		}
		if variant == nil {
			additions = append(additions, item)
			continue
		}
		if variantCurrent(variant, item, group.Key) {
			continue
		}
		updates = append(updates, variantInput(variant.ID, item, group.Key))
	}

	if len(updates) > 0 {
		if err := e.bulkUpdateVariants(ctx, existing.ID, updates); err != nil {
			return result, err
		}
		result.VariantsUpdated = len(updates)
	}
	if len(additions) > 0 {
		created, err := e.bulkCreateVariants(ctx, existing.ID, group, additions)
		if err != nil {
			return result, err
		}
		result.VariantsCreated = created
	}

	missing := make([]string, 0)
	for _, url := range group.Images() {
		if !existing.HasImage(url) {
			missing = append(missing, url)
		}
	}
	e.attachImages(ctx, existing.ID, missing)
	return result, nil
}

// Delete removes a remote product.
func (e *Executor) Delete(ctx context.Context, productID string) error {
	data, err := e.execute(ctx, productDeleteMutation, map[string]any{
		"input": map[string]any{"id": productID},
	})
	if err != nil {
		return err
	}

	var payload struct {
		ProductDelete struct {
			DeletedProductID string      `json:"deletedProductId"`
			UserErrors       []UserError `json:"userErrors"`
		} `json:"productDelete"`
	}
	if err := decodePayload(data, &payload); err != nil {
		return err
	}
	return mutationErrors("productDelete", payload.ProductDelete.UserErrors)
}

// variantInput builds the bulk-update entry for one feed item. The group
// key doubles as the barcode fallback so later runs can find the product
// again by exact lookup.
func variantInput(variantID string, item feed.Item, groupKey string) map[string]any {
	barcode := item.GTIN
	if barcode == "" {
		barcode = groupKey
	}
	return map[string]any{
		"id":            variantID,
		"price":         item.Price.StringFixed(2),
		"barcode":       barcode,
		"inventoryItem": map[string]any{"sku": item.SKU},
	}
}

// variantCurrent reports whether the remote variant already carries the
// item's price, sku and barcode; pushing it again would be a wasted call.
func variantCurrent(variant *RemoteVariant, item feed.Item, groupKey string) bool {
	barcode := item.GTIN
	if barcode == "" {
		barcode = groupKey
	}
	return variant.Price.Equal(item.Price) &&
		variant.SKU == item.SKU &&
		variant.Barcode == barcode
}

func (e *Executor) bulkUpdateVariants(ctx context.Context, productID string, variants []map[string]any) error {
	data, err := e.execute(ctx, variantsBulkUpdateMutation, map[string]any{
		"productId": productID,
		"variants":  variants,
	})
	if err != nil {
		return err
	}

	var payload struct {
		ProductVariantsBulkUpdate struct {
			UserErrors []UserError `json:"userErrors"`
		} `json:"productVariantsBulkUpdate"`
	}
	if err := decodePayload(data, &payload); err != nil {
		return err
	}
	return mutationErrors("productVariantsBulkUpdate", payload.ProductVariantsBulkUpdate.UserErrors)
}

// bulkCreateVariants adds the given items as new variants, then assigns
// their SKUs in a follow-up bulk update; the create input cannot carry
// inventory fields.
func (e *Executor) bulkCreateVariants(ctx context.Context, productID string, group feed.VariantGroup, items []feed.Item) (int, error) {
	colors := group.Colors()
	inputs := make([]map[string]any, 0, len(items))
	for _, item := range items {
		barcode := item.GTIN
		if barcode == "" {
			barcode = group.Key
		}
		inputs = append(inputs, map[string]any{
			"price":        item.Price.StringFixed(2),
			"barcode":      barcode,
			"optionValues": optionValues(item, len(colors) >= 2),
		})
	}

	data, err := e.execute(ctx, variantsBulkCreateMutation, map[string]any{
		"productId": productID,
		"variants":  inputs,
	})
	if err != nil {
		return 0, err
	}

	var payload struct {
		ProductVariantsBulkCreate struct {
			ProductVariants []struct {
				ID string `json:"id"`
			} `json:"productVariants"`
			UserErrors []UserError `json:"userErrors"`
		} `json:"productVariantsBulkCreate"`
	}
	if err := decodePayload(data, &payload); err != nil {
		return 0, err
	}
	if err := mutationErrors("productVariantsBulkCreate", payload.ProductVariantsBulkCreate.UserErrors); err != nil {
		return 0, err
	}

	created := payload.ProductVariantsBulkCreate.ProductVariants
	updates := make([]map[string]any, 0, len(created))
	for i, variant := range created {
		if i >= len(items) {
			break
		}
		updates = append(updates, map[string]any{
			"id":            variant.ID,
			"inventoryItem": map[string]any{"sku": items[i].SKU},
		})
	}
	if len(updates) > 0 {
		if err := e.bulkUpdateVariants(ctx, productID, updates); err != nil {
			return len(created), err
		}
	}
	return len(created), nil
}

// attachImages adds each image in its own mutation so one bad URL cannot
// sink the rest. Failures are logged and swallowed; media is best effort.
func (e *Executor) attachImages(ctx context.Context, productID string, urls []string) {
	for _, url := range urls {
		data, err := e.execute(ctx, productCreateMediaMutation, map[string]any{
			"productId": productID,
			"media": []map[string]any{
				{"originalSource": url, "mediaContentType": "IMAGE"},
			},
		})
		if err == nil {
			var payload struct {
				ProductCreateMedia struct {
					MediaUserErrors []UserError `json:"mediaUserErrors"`
				} `json:"productCreateMedia"`
			}
			if decodeErr := decodePayload(data, &payload); decodeErr == nil {
				err = mutationErrors("productCreateMedia", payload.ProductCreateMedia.MediaUserErrors)
			} else {
				err = decodeErr
			}
		}
		if err != nil {
			e.logger.Warn("failed to attach image",
				zap.String("product_id", productID),
				zap.String("url", url),
				zap.Error(err),
			)
		}
	}
}

// buildProductOptions derives the option axes for a multi-variant group.
func buildProductOptions(group feed.VariantGroup) []map[string]any {
	capacities := make([]string, 0, len(group.Items))
	conditions := make([]string, 0, len(group.Items))
	seenCap := make(map[string]struct{})
	seenCond := make(map[string]struct{})
	for _, item := range group.Items {
		c := capacityOf(item)
		if _, dup := seenCap[c]; !dup {
			seenCap[c] = struct{}{}
			capacities = append(capacities, c)
		}
		label := item.Condition.Label()
		if _, dup := seenCond[label]; !dup {
			seenCond[label] = struct{}{}
			conditions = append(conditions, label)
		}
	}

	options := []map[string]any{
		{"name": optionCapacity, "values": optionValueNames(capacities)},
		{"name": optionCondition, "values": optionValueNames(conditions)},
	}
	if colors := group.Colors(); len(colors) >= 2 {
		options = append(options, map[string]any{
			"name": optionColor, "values": optionValueNames(colors),
		})
	}
	return options
}

func optionValueNames(values []string) []map[string]any {
	out := make([]map[string]any, 0, len(values))
	for _, v := range values {
		out = append(out, map[string]any{"name": v})
	}
	return out
}

// optionValues positions one item on the group's option axes.
func optionValues(item feed.Item, includeColor bool) []map[string]any {
	values := []map[string]any{
		{"optionName": optionCapacity, "name": capacityOf(item)},
		{"optionName": optionCondition, "name": item.Condition.Label()},
	}
	if includeColor && item.Color != "" {
		values = append(values, map[string]any{"optionName": optionColor, "name": item.Color})
	}
	return values
}

func capacityOf(item feed.Item) string {
	if c := capacityPattern.FindString(item.Title); c != "" {
		return c
	}
	return defaultCapacity
}

// mergeTags unions the remote product's tags with the feed's, remote
// first, order preserved.
func mergeTags(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, t := range existing {
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			merged = append(merged, t)
		}
	}
	for _, t := range incoming {
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			merged = append(merged, t)
		}
	}
	return merged
}
