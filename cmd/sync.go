package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"feed-sync/core/config"
	"feed-sync/core/database"
	"feed-sync/core/logger"
	"feed-sync/core/notifier"
	"feed-sync/core/shopify"
	"feed-sync/core/storage"
	"feed-sync/feature/feedsync"
	"feed-sync/feature/feedsync/feed"
	"feed-sync/feature/feedsync/models"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	syncProviderID uint
	syncAllDue     bool
	syncBatchSize  int
)

// syncCmd runs a reconciliation from the command line, without the HTTP
// server.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a feed sync once and exit",
	Long: `Runs a reconciliation for one provider (--provider) or for every
provider whose schedule has elapsed (--all), then exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncProviderID == 0 && !syncAllDue {
			return fmt.Errorf("either --provider or --all is required")
		}

		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if syncBatchSize > 0 {
			cfg.Sync.BatchSize = syncBatchSize
		}

		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("database is required for sync runs: %w", err)
		}
		if err := database.Migrate(db, models.All()...); err != nil {
			return fmt.Errorf("failed to migrate tracking tables: %w", err)
		}

		var archive storage.Client
		if cfg.Storage.Endpoint != "" {
			if store, err := storage.NewClient(cfg.Storage); err != nil {
				logg.Warn("Feed snapshots disabled", zap.Error(err))
			} else {
				archive = store
			}
		}

		repo := models.NewRepository(db)
		client := shopify.NewHTTPClient(cfg.Shopify, logg)
		fetcher := feed.NewFetcher(cfg.Server.UserAgent, 60*time.Second)
		svc := feedsync.NewService(repo, client, fetcher, cfg.Sync, archive, cfg.Storage.Bucket,
			notifier.NewZapNotifier(logg), logg)

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Hour)
		defer cancel()

		if syncAllDue {
			return svc.RunDue(ctx, uuid.NewString)
		}

		syncLog, err := svc.RunSync(ctx, syncProviderID, uuid.NewString())
		if err != nil {
			return err
		}
		if syncLog.Status == models.SyncStatusError {
			return fmt.Errorf("sync run %s finished with status %s", syncLog.RunID, syncLog.Status)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().UintVar(&syncProviderID, "provider", 0, "provider id to sync")
	syncCmd.Flags().BoolVar(&syncAllDue, "all", false, "sync every provider whose schedule has elapsed")
	syncCmd.Flags().IntVar(&syncBatchSize, "batch-size", 0, "override the configured batch size")
	RootCmd.AddCommand(syncCmd)
}
