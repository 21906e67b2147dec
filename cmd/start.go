package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feed-sync/core/config"
	"feed-sync/core/database"
	"feed-sync/core/loader"
	"feed-sync/core/logger"
	"feed-sync/core/middleware/auth"
	"feed-sync/core/middleware/rayid"
	"feed-sync/core/notifier"
	"feed-sync/core/shopify"
	"feed-sync/core/storage"

	"feed-sync/feature/feedsync"
	"feed-sync/feature/feedsync/feed"
	"feed-sync/feature/feedsync/models"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the feed sync server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to Database (Optional)
		// Without it the sync feature stays disabled but the server still
		// answers health checks.
		var db *gorm.DB
		if conn, err := database.Connect(cfg.Database); err != nil {
			logg.Warn("Optional database connection failed", zap.Error(err))
		} else {
			db = conn
			if err := database.Migrate(db, models.All()...); err != nil {
				logg.Fatal("Failed to migrate tracking tables", zap.Error(err))
			}
			logg.Info("Connected to tracking database")
		}

		// 4. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
		})

		// 5. Initialize Storage (Optional, feed snapshots)
		var archive storage.Client
		if cfg.Storage.Endpoint != "" {
			store, err := storage.NewClient(cfg.Storage)
			if err != nil {
				logg.Fatal("Failed to create storage client", zap.Error(err))
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := storage.EnsureBucket(ctx, store, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
				logg.Warn("Feed snapshot bucket unavailable", zap.Error(err))
			} else {
				archive = store
			}
			cancel()
		}

		// 6. Assemble the sync service
		hub := notifier.NewHub()
		notify := notifier.Multi{hub, notifier.NewZapNotifier(logg)}
		client := shopify.NewHTTPClient(cfg.Shopify, logg)
		fetcher := feed.NewFetcher(cfg.Server.UserAgent, 60*time.Second)

		var svc *feedsync.Service
		if db != nil {
			repo := models.NewRepository(db)
			svc = feedsync.NewService(repo, client, fetcher, cfg.Sync, archive, cfg.Storage.Bucket, notify, logg)
		}

		// 7. Initialize Feature Loader
		mgr := loader.NewManager()
		mgr.Register(feedsync.NewFeature(svc, hub, logg, db != nil))

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Custom to use Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 3. Auth (Protect API)
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 4. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 5. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 6. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
