package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"asset-pipeline/core/config"
	"asset-pipeline/core/loader"
	"asset-pipeline/core/logger"
	"asset-pipeline/core/meta"
	"asset-pipeline/core/middleware/auth"
	"asset-pipeline/core/middleware/rayid"
	"asset-pipeline/core/server"
	"asset-pipeline/core/source"
	"asset-pipeline/core/storage"

	"asset-pipeline/feature/api"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the asset pipeline daemon",
	Long:  `Starts the asset server, the source watcher and the HTTP API.`,
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

		// 3. Sources: local filesystem root plus optional object storage
		if err := os.MkdirAll(cfg.Assets.Root, 0o755); err != nil {
			logg.Fatal("Failed to create asset root", zap.Error(err))
		}
		fsio, err := source.NewFileIO(cfg.Assets.Root)
		if err != nil {
			logg.Fatal("Failed to open asset root", zap.Error(err))
		}
		sources := source.NewRegistry()
		sources.Add("default", fsio)

		if cfg.Storage.Enabled {
			client, err := storage.NewClient(cfg.Storage)
			if err != nil {
				logg.Warn("Optional object storage connection failed", zap.Error(err))
			} else {
				probeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				exists, err := client.BucketExists(probeCtx, cfg.Storage.Bucket)
				cancel()
				switch {
				case err != nil:
					logg.Warn("Object storage probe failed", zap.Error(err))
				case !exists:
					logg.Warn("Configured bucket does not exist",
						zap.String("bucket", cfg.Storage.Bucket))
				default:
					sources.Add("remote", source.NewObjectIO(client, cfg.Storage.Bucket, ""))
					logg.Info("Connected to object storage",
						zap.String("bucket", cfg.Storage.Bucket))
				}
			}
		}

		// 4. Asset server
		srv := server.New(cfg.Assets, sources, meta.NewStore(sources, logg), logg)
		server.RegisterBuiltins(srv, cfg.Assets.RawExtensionList())

		watchCtx, stopWatch := context.WithCancel(context.Background())
		defer stopWatch()
		if cfg.Assets.Watch {
			go func() {
				if err := srv.Watch(watchCtx); err != nil && watchCtx.Err() == nil {
					logg.Error("Source watch stopped", zap.Error(err))
				}
			}()
		}

		// 5. Fiber app and middleware
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
		})

		// RayID must be first to trace everything
		app.Use(rayid.New())

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

		app.Use(auth.New(auth.Config{ApiKey: cfg.Api.ApiKey}))

		// 6. Features
		mgr := loader.NewManager(logg)
		mgr.Register(api.NewFeature(cfg.Api, srv, logg))
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 7. Start Server
		go func() {
			logg.Info("Starting server",
				zap.String("port", cfg.Api.Port),
				zap.String("root", cfg.Assets.Root))
			if err := app.Listen(":" + cfg.Api.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 8. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		stopWatch()
		_ = app.Shutdown()
		srv.Close()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
