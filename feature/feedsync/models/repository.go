package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Repository is the persistence layer for providers, product mappings and
// sync logs.
type Repository struct {
	db *gorm.DB
}

// NewRepository wraps a database handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateProvider registers a new feed source.
func (r *Repository) CreateProvider(ctx context.Context, p *Provider) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	return nil
}

// ProviderByID fetches a provider, nil when absent.
func (r *Repository) ProviderByID(ctx context.Context, id uint) (*Provider, error) {
	var p Provider
	err := r.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load provider %d: %w", id, err)
	}
	return &p, nil
}

// Providers lists a shop's providers, newest first.
func (r *Repository) Providers(ctx context.Context, shop string) ([]Provider, error) {
	var providers []Provider
	err := r.db.WithContext(ctx).
		Where("shop = ?", shop).
		Order("id DESC").
		Find(&providers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	return providers, nil
}

// ProvidersDue lists active providers whose next scheduled run is at or
// before now. Providers never synced before are always due.
func (r *Repository) ProvidersDue(ctx context.Context, now time.Time) ([]Provider, error) {
	var providers []Provider
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("next_sync_at IS NULL OR next_sync_at <= ?", now).
		Find(&providers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due providers: %w", err)
	}
	return providers, nil
}

// TouchProviderSync stamps a completed run and schedules the next one
// from the provider's frequency.
func (r *Repository) TouchProviderSync(ctx context.Context, p *Provider, completedAt time.Time) error {
	next := completedAt.Add(time.Duration(p.SyncFrequency) * time.Hour)
	err := r.db.WithContext(ctx).Model(p).Updates(map[string]any{
		"last_sync_at": completedAt,
		"next_sync_at": next,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update provider sync times: %w", err)
	}
	return nil
}

// MappingByGroupKey fetches the mapping for a variant group, nil when the
// group has never been synced.
func (r *Repository) MappingByGroupKey(ctx context.Context, providerID uint, groupKey string) (*ProductMapping, error) {
	var m ProductMapping
	err := r.db.WithContext(ctx).
		Where("provider_id = ? AND group_key = ?", providerID, groupKey).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping for group %q: %w", groupKey, err)
	}
	return &m, nil
}

// SaveMapping inserts or updates the mapping for its provider and group
// key.
func (r *Repository) SaveMapping(ctx context.Context, m *ProductMapping) error {
	existing, err := r.MappingByGroupKey(ctx, m.ProviderID, m.GroupKey)
	if err != nil {
		return err
	}
	if existing != nil {
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
	}
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return fmt.Errorf("failed to save mapping for group %q: %w", m.GroupKey, err)
	}
	return nil
}

// DeactivateMapping soft-deletes a mapping. The row survives so the group
// is recognized if the feed ever lists it again.
func (r *Repository) DeactivateMapping(ctx context.Context, providerID uint, groupKey string) error {
	err := r.db.WithContext(ctx).
		Model(&ProductMapping{}).
		Where("provider_id = ? AND group_key = ?", providerID, groupKey).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate mapping for group %q: %w", groupKey, err)
	}
	return nil
}

// ActiveMappings lists every active mapping of a provider.
func (r *Repository) ActiveMappings(ctx context.Context, providerID uint) ([]ProductMapping, error) {
	var mappings []ProductMapping
	err := r.db.WithContext(ctx).
		Where("provider_id = ? AND is_active = ?", providerID, true).
		Find(&mappings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active mappings: %w", err)
	}
	return mappings, nil
}

// CreateSyncLog opens a run record in running state.
func (r *Repository) CreateSyncLog(ctx context.Context, log *SyncLog) error {
	log.Status = SyncStatusRunning
	log.StartedAt = time.Now()
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create sync log: %w", err)
	}
	return nil
}

// CompleteSyncLog finalizes a run record with its counters and terminal
// status.
func (r *Repository) CompleteSyncLog(ctx context.Context, log *SyncLog) error {
	now := time.Now()
	log.CompletedAt = &now
	log.DurationSeconds = now.Sub(log.StartedAt).Seconds()
	if err := r.db.WithContext(ctx).Save(log).Error; err != nil {
		return fmt.Errorf("failed to complete sync log: %w", err)
	}
	return nil
}

// RecentSyncLogs lists a provider's latest runs, newest first.
func (r *Repository) RecentSyncLogs(ctx context.Context, providerID uint, limit int) ([]SyncLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var logs []SyncLog
	err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sync logs: %w", err)
	}
	return logs, nil
}
