package models

import (
	"time"
)

// Sync log statuses. A run that processed every group cleanly is a
// success; a run with some failed groups is partial; a run that never got
// to its groups is an error.
const (
	SyncStatusRunning = "running"
	SyncStatusSuccess = "success"
	SyncStatusPartial = "partial"
	SyncStatusError   = "error"
)

// Provider is one configured feed source for a shop.
type Provider struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Shop          string     `gorm:"size:255;index;not null" json:"shop"`
	Name          string     `gorm:"size:255;not null" json:"name"`
	FeedURL       string     `gorm:"size:2048;not null" json:"feed_url"`
	SyncFrequency int        `gorm:"default:24" json:"sync_frequency"` // hours between runs
	AutoDelete    bool       `gorm:"default:false" json:"auto_delete"`
	IsActive      bool       `gorm:"default:true" json:"is_active"`
	LastSyncAt    *time.Time `json:"last_sync_at"`
	NextSyncAt    *time.Time `json:"next_sync_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ProductMapping links a feed variant group to the remote product created
// for it. Mappings are soft-deleted by flipping IsActive so a product
// removed from the feed can be recognized if it ever returns.
type ProductMapping struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ProviderID      uint      `gorm:"index:idx_provider_group,unique;not null" json:"provider_id"`
	GroupKey        string    `gorm:"size:512;index:idx_provider_group,unique;not null" json:"group_key"`
	FeedSKU         string    `gorm:"size:255" json:"feed_sku"`
	RemoteProductID string    `gorm:"size:255;index" json:"remote_product_id"`
	RemoteHandle    string    `gorm:"size:255" json:"remote_handle"`
	Title           string    `gorm:"size:512" json:"title"`
	LastPrice       string    `gorm:"size:32" json:"last_price"`
	IsActive        bool      `gorm:"default:true" json:"is_active"`
	LastSeenInFeed  time.Time `json:"last_seen_in_feed"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SyncLog records one reconciliation run.
type SyncLog struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	ProviderID      uint       `gorm:"index;not null" json:"provider_id"`
	RunID           string     `gorm:"size:64;index" json:"run_id"`
	Status          string     `gorm:"size:32;default:running" json:"status"`
	TotalItems      int        `json:"total_items"`
	TotalGroups     int        `json:"total_groups"`
	Created         int        `json:"created"`
	Updated         int        `json:"updated"`
	Deleted         int        `json:"deleted"`
	Skipped         int        `json:"skipped"`
	Errored         int        `json:"errored"`
	Details         string     `gorm:"type:text" json:"details"` // JSON blob of per-group errors
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	DurationSeconds float64    `json:"duration_seconds"`
}

// All lists every model the feature migrates.
func All() []any {
	return []any{&Provider{}, &ProductMapping{}, &SyncLog{}}
}
