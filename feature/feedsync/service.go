package feedsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"feed-sync/core/notifier"
	"feed-sync/core/shopify"
	"feed-sync/core/storage"
	"feed-sync/feature/feedsync/catalog"
	"feed-sync/feature/feedsync/feed"
	"feed-sync/feature/feedsync/models"
	"feed-sync/feature/feedsync/pipeline"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Store is the persistence surface the feature needs. models.Repository
// implements it.
type Store interface {
	pipeline.MappingStore

	CreateProvider(ctx context.Context, p *models.Provider) error
	ProviderByID(ctx context.Context, id uint) (*models.Provider, error)
	Providers(ctx context.Context, shop string) ([]models.Provider, error)
	ProvidersDue(ctx context.Context, now time.Time) ([]models.Provider, error)
	TouchProviderSync(ctx context.Context, p *models.Provider, completedAt time.Time) error

	CreateSyncLog(ctx context.Context, log *models.SyncLog) error
	CompleteSyncLog(ctx context.Context, log *models.SyncLog) error
	RecentSyncLogs(ctx context.Context, providerID uint, limit int) ([]models.SyncLog, error)
}

// Service orchestrates feed sync runs end to end: download, snapshot,
// parse, reconcile, record.
type Service struct {
	store   Store
	client  shopify.Client
	fetcher *feed.Fetcher
	parser  *feed.Parser
	pipeCfg pipeline.Config
	archive storage.Client // nil disables snapshots
	bucket  string
	notify  notifier.Notifier
	logger  *zap.Logger
}

// NewService wires a sync service. archive may be nil when no object
// storage is configured; feed snapshots are then skipped.
func NewService(store Store, client shopify.Client, fetcher *feed.Fetcher, pipeCfg pipeline.Config, archive storage.Client, bucket string, notify notifier.Notifier, logger *zap.Logger) *Service {
	return &Service{
		store:   store,
		client:  client,
		fetcher: fetcher,
		parser:  feed.NewParser(),
		pipeCfg: pipeCfg,
		archive: archive,
		bucket:  bucket,
		notify:  notify,
		logger:  logger,
	}
}

// RunSync executes one reconciliation run for a provider. The returned
// sync log is already persisted in its terminal state.
func (s *Service) RunSync(ctx context.Context, providerID uint, runID string) (*models.SyncLog, error) {
	provider, err := s.store.ProviderByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, fmt.Errorf("provider %d not found", providerID)
	}

	l := s.logger.With(
		zap.Uint("provider_id", provider.ID),
		zap.String("run_id", runID),
	)
	l.Info("starting sync run", zap.String("feed_url", provider.FeedURL))

	syncLog := &models.SyncLog{ProviderID: provider.ID, RunID: runID}
	if err := s.store.CreateSyncLog(ctx, syncLog); err != nil {
		return nil, err
	}

	data, err := s.fetcher.Fetch(ctx, provider.FeedURL)
	if err != nil {
		return s.failRun(ctx, syncLog, l, err)
	}
	s.archiveSnapshot(ctx, l, provider.ID, runID, data)

	items, err := s.parser.Parse(data)
	if err != nil {
		return s.failRun(ctx, syncLog, l, err)
	}
	groups := feed.Group(items)
	syncLog.TotalItems = len(items)
	syncLog.TotalGroups = len(groups)

	// The matcher is rebuilt per run so its cache never outlives the
	// feed snapshot it was computed from.
	matcher := catalog.NewMatcher(s.client, l, s.pipeCfg.CacheEnabled)
	executor := catalog.NewExecutor(s.client, l, s.pipeCfg.RetryCount, s.pipeCfg.RetryBaseDelay)
	pipe := pipeline.New(s.pipeCfg, matcher, executor, s.store, s.notify, l)

	stats, groupErrs := pipe.Run(ctx, provider.Shop, *provider, runID, groups)

	syncLog.Created = stats.Created
	syncLog.Updated = stats.Updated
	syncLog.Deleted = stats.Deleted
	syncLog.Skipped = stats.Skipped
	syncLog.Errored = stats.Errored
	syncLog.Status = statusFor(stats)
	if len(groupErrs) > 0 {
		if details, err := json.Marshal(groupErrs); err == nil {
			syncLog.Details = string(details)
		}
	}

	if err := s.store.CompleteSyncLog(ctx, syncLog); err != nil {
		l.Error("failed to finalize sync log", zap.Error(err))
	}
	if err := s.store.TouchProviderSync(ctx, provider, time.Now()); err != nil {
		l.Error("failed to update provider schedule", zap.Error(err))
	}

	hits, misses := matcher.CacheStats()
	l.Info("sync run finished",
		zap.String("status", syncLog.Status),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("deleted", stats.Deleted),
		zap.Int("skipped", stats.Skipped),
		zap.Int("errored", stats.Errored),
		zap.Uint64("cache_hits", hits),
		zap.Uint64("cache_misses", misses),
	)
	return syncLog, nil
}

// RunDue syncs every provider whose schedule has elapsed.
func (s *Service) RunDue(ctx context.Context, newRunID func() string) error {
	providers, err := s.store.ProvidersDue(ctx, time.Now())
	if err != nil {
		return err
	}
	if len(providers) == 0 {
		s.logger.Info("no providers due")
		return nil
	}

	var firstErr error
	for _, provider := range providers {
		if _, err := s.RunSync(ctx, provider.ID, newRunID()); err != nil {
			s.logger.Error("sync run failed",
				zap.Uint("provider_id", provider.ID),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// failRun finalizes a run that never reached its groups.
func (s *Service) failRun(ctx context.Context, syncLog *models.SyncLog, l *zap.Logger, cause error) (*models.SyncLog, error) {
	l.Error("sync run aborted", zap.Error(cause))

	syncLog.Status = models.SyncStatusError
	if details, err := json.Marshal(map[string]string{"error": cause.Error()}); err == nil {
		syncLog.Details = string(details)
	}
	if err := s.store.CompleteSyncLog(ctx, syncLog); err != nil {
		l.Error("failed to finalize sync log", zap.Error(err))
	}
	return syncLog, cause
}

// archiveSnapshot stores the raw feed document for later inspection.
// Best effort: a failed upload is logged and the run continues.
func (s *Service) archiveSnapshot(ctx context.Context, l *zap.Logger, providerID uint, runID string, data []byte) {
	if s.archive == nil {
		return
	}
	objectName := fmt.Sprintf("feeds/%d/%s.xml", providerID, runID)
	_, err := s.archive.PutObject(ctx, s.bucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/xml"},
	)
	if err != nil {
		l.Warn("failed to archive feed snapshot",
			zap.String("object", objectName),
			zap.Error(err),
		)
		return
	}
	l.Debug("archived feed snapshot", zap.String("object", objectName))
}

// statusFor maps run counters to a terminal status: clean runs succeed,
// runs with some failed groups are partial, runs where nothing worked are
// errors.
func statusFor(stats notifier.Stats) string {
	if stats.Errored == 0 {
		return models.SyncStatusSuccess
	}
	if stats.Errored < stats.Processed || stats.Deleted > 0 {
		return models.SyncStatusPartial
	}
	return models.SyncStatusError
}
