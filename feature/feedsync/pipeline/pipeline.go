package pipeline

import (
	"context"
	"sync"
	"time"

	"feed-sync/core/notifier"
	"feed-sync/feature/feedsync/catalog"
	"feed-sync/feature/feedsync/feed"
	"feed-sync/feature/feedsync/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Matcher resolves variant groups against the remote catalog.
type Matcher interface {
	FindMatch(ctx context.Context, item feed.Item) *catalog.RemoteProduct
	FindExistingByGroup(ctx context.Context, groupKey, firstSKU string) (*catalog.RemoteProduct, error)
}

// Executor applies catalog mutations.
type Executor interface {
	Create(ctx context.Context, group feed.VariantGroup) (*catalog.CreateResult, error)
	Update(ctx context.Context, group feed.VariantGroup, existing *catalog.RemoteProduct, lastPrice *decimal.Decimal) (*catalog.UpdateResult, error)
	Delete(ctx context.Context, productID string) error
}

// MappingStore tracks which remote product each group maps to.
type MappingStore interface {
	MappingByGroupKey(ctx context.Context, providerID uint, groupKey string) (*models.ProductMapping, error)
	SaveMapping(ctx context.Context, m *models.ProductMapping) error
	DeactivateMapping(ctx context.Context, providerID uint, groupKey string) error
	ActiveMappings(ctx context.Context, providerID uint) ([]models.ProductMapping, error)
}

// GroupError records one failed group without stopping the run.
type GroupError struct {
	GroupKey string `json:"group_key"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}

// Pipeline reconciles a parsed feed against the remote catalog in
// concurrent batches. One run processes every group exactly once; group
// failures are collected, never propagated.
type Pipeline struct {
	cfg      Config
	matcher  Matcher
	executor Executor
	store    MappingStore
	notify   notifier.Notifier
	logger   *zap.Logger
}

// New assembles a pipeline.
func New(cfg Config, matcher Matcher, executor Executor, store MappingStore, notify notifier.Notifier, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg.normalized(),
		matcher:  matcher,
		executor: executor,
		store:    store,
		notify:   notify,
		logger:   logger,
	}
}

// Run processes the groups for one provider. It returns the aggregated
// stats and the per-group failures. Only a cancelled context stops the
// run early.
func (p *Pipeline) Run(ctx context.Context, shop string, provider models.Provider, runID string, groups []feed.VariantGroup) (notifier.Stats, []GroupError) {
	stats := &statsCollector{}
	stats.stats.TotalGroups = len(groups)

	var (
		errMu     sync.Mutex
		groupErrs []GroupError
	)
	recordErr := func(group feed.VariantGroup, err error) {
		stats.errored()
		errMu.Lock()
		groupErrs = append(groupErrs, GroupError{
			GroupKey: group.Key,
			Title:    group.Master.Title,
			Message:  err.Error(),
		})
		errMu.Unlock()

		p.logger.Error("group failed",
			zap.String("group_key", group.Key),
			zap.String("title", group.Master.Title),
			zap.Error(err),
		)
		p.notify.Send(shop, notifier.Event{
			Type:         notifier.EventError,
			RunID:        runID,
			ProductTitle: group.Master.Title,
			Error:        err.Error(),
			Processed:    stats.snapshot().Processed,
			Total:        len(groups),
		})
	}

	p.notify.Send(shop, notifier.Event{
		Type:  notifier.EventSyncStarted,
		RunID: runID,
		Total: len(groups),
	})

	for start := 0; start < len(groups); start += p.cfg.BatchSize {
		if ctx.Err() != nil {
			break
		}

		end := start + p.cfg.BatchSize
		if end > len(groups) {
			end = len(groups)
		}

		var wg sync.WaitGroup
		for _, group := range groups[start:end] {
			wg.Add(1)
			go func(group feed.VariantGroup) {
				defer wg.Done()
				p.processGroup(ctx, shop, provider, runID, group, len(groups), stats, recordErr)
			}(group)
		}
		wg.Wait()

		if end < len(groups) && p.cfg.InterBatchDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(p.cfg.InterBatchDelay):
			}
		}
	}

	if provider.AutoDelete && ctx.Err() == nil {
		p.deleteVanished(ctx, shop, provider, runID, groups, stats)
	}

	final := stats.snapshot()
	p.notify.Send(shop, notifier.Event{
		Type:      notifier.EventSyncCompleted,
		RunID:     runID,
		Processed: final.Processed,
		Total:     final.TotalGroups,
		Stats:     &final,
	})
	return final, groupErrs
}

func (p *Pipeline) processGroup(ctx context.Context, shop string, provider models.Provider, runID string, group feed.VariantGroup, total int, stats *statsCollector, recordErr func(feed.VariantGroup, error)) {
	p.notify.Send(shop, notifier.Event{
		Type:         notifier.EventProcessing,
		RunID:        runID,
		ProductTitle: group.Master.Title,
		Processed:    stats.snapshot().Processed,
		Total:        total,
	})

	mapping, err := p.store.MappingByGroupKey(ctx, provider.ID, group.Key)
	if err != nil {
		recordErr(group, err)
		return
	}

	existing, err := p.resolveExisting(ctx, group, mapping)
	if err != nil {
		recordErr(group, err)
		return
	}

	if existing == nil {
		result, err := p.executor.Create(ctx, group)
		if err != nil {
			recordErr(group, err)
			return
		}
		stats.created(result.VariantsCreated)
		p.saveMapping(ctx, provider.ID, group, mapping, result.ProductID, result.Handle)
		p.notify.Send(shop, notifier.Event{
			Type:            notifier.EventCreated,
			RunID:           runID,
			ProductTitle:    group.Master.Title,
			Processed:       stats.snapshot().Processed,
			Total:           total,
			VariantsCreated: result.VariantsCreated,
		})
		return
	}

	result, err := p.executor.Update(ctx, group, existing, lastSyncedPrice(mapping))
	if err != nil {
		recordErr(group, err)
		return
	}

	p.saveMapping(ctx, provider.ID, group, mapping, existing.ID, existing.Handle)

	if !result.Changed {
		stats.skipped()
		p.notify.Send(shop, notifier.Event{
			Type:         notifier.EventSkipped,
			RunID:        runID,
			ProductTitle: group.Master.Title,
			Processed:    stats.snapshot().Processed,
			Total:        total,
		})
		return
	}

	stats.updated(result.VariantsUpdated, result.VariantsCreated)
	p.notify.Send(shop, notifier.Event{
		Type:            notifier.EventUpdated,
		RunID:           runID,
		ProductTitle:    group.Master.Title,
		Processed:       stats.snapshot().Processed,
		Total:           total,
		VariantsCreated: result.VariantsCreated,
		VariantsUpdated: result.VariantsUpdated,
	})
}

// resolveExisting finds the remote product a group should reconcile
// against: the exact variant lookup first, the fuzzy title match as a
// fallback. A mapped product that vanished remotely resolves to nil and
// the group is treated as new.
func (p *Pipeline) resolveExisting(ctx context.Context, group feed.VariantGroup, mapping *models.ProductMapping) (*catalog.RemoteProduct, error) {
	firstSKU := ""
	if len(group.Items) > 0 {
		firstSKU = group.Items[0].SKU
	}

	existing, err := p.matcher.FindExistingByGroup(ctx, group.Key, firstSKU)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	if mapping != nil && mapping.RemoteProductID != "" {
		// The exact lookup is authoritative for a previously synced
		// group; do not risk a fuzzy match grabbing someone else's
		// product.
		return nil, nil
	}
	return p.matcher.FindMatch(ctx, group.Master), nil
}

func (p *Pipeline) saveMapping(ctx context.Context, providerID uint, group feed.VariantGroup, previous *models.ProductMapping, productID, handle string) {
	mapping := &models.ProductMapping{
		ProviderID:      providerID,
		GroupKey:        group.Key,
		FeedSKU:         group.Master.SKU,
		RemoteProductID: productID,
		RemoteHandle:    handle,
		Title:           group.Master.Title,
		LastPrice:       group.Master.Price.StringFixed(2),
		IsActive:        true,
		LastSeenInFeed:  time.Now(),
	}
	if previous != nil {
		mapping.ID = previous.ID
		mapping.CreatedAt = previous.CreatedAt
	}
	if err := p.store.SaveMapping(ctx, mapping); err != nil {
		p.logger.Error("failed to save mapping",
			zap.String("group_key", group.Key),
			zap.Error(err),
		)
	}
}

// deleteVanished removes remote products whose groups dropped out of the
// feed. Failures are logged; the run still completes.
func (p *Pipeline) deleteVanished(ctx context.Context, shop string, provider models.Provider, runID string, groups []feed.VariantGroup, stats *statsCollector) {
	mappings, err := p.store.ActiveMappings(ctx, provider.ID)
	if err != nil {
		p.logger.Error("failed to list mappings for auto delete", zap.Error(err))
		return
	}

	present := make(map[string]struct{}, len(groups))
	for _, group := range groups {
		present[group.Key] = struct{}{}
	}

	for _, mapping := range mappings {
		if _, ok := present[mapping.GroupKey]; ok {
			continue
		}
		if mapping.RemoteProductID != "" {
			if err := p.executor.Delete(ctx, mapping.RemoteProductID); err != nil {
				p.logger.Error("failed to delete vanished product",
					zap.String("group_key", mapping.GroupKey),
					zap.String("remote_product_id", mapping.RemoteProductID),
					zap.Error(err),
				)
				continue
			}
		}
		if err := p.store.DeactivateMapping(ctx, provider.ID, mapping.GroupKey); err != nil {
			p.logger.Error("failed to deactivate mapping",
				zap.String("group_key", mapping.GroupKey),
				zap.Error(err),
			)
			continue
		}
		stats.deleted()
		p.logger.Info("deleted vanished product",
			zap.String("group_key", mapping.GroupKey),
			zap.String("title", mapping.Title),
		)
	}
}

// lastSyncedPrice parses the mapping's stored price, nil when absent or
// unreadable.
func lastSyncedPrice(mapping *models.ProductMapping) *decimal.Decimal {
	if mapping == nil || mapping.LastPrice == "" {
		return nil
	}
	price, err := decimal.NewFromString(mapping.LastPrice)
	if err != nil {
		return nil
	}
	return &price
}
