package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blueprint-library/core/config"
	"blueprint-library/core/database"
	"blueprint-library/core/esi"
	"blueprint-library/core/loader"
	"blueprint-library/core/logger"
	"blueprint-library/core/middleware/auth"
	"blueprint-library/core/middleware/rayid"
	"blueprint-library/core/scheduler"
	"blueprint-library/core/sso"
	"blueprint-library/feature/blueprints"
	"blueprint-library/feature/blueprints/models"
	blueprintsync "blueprint-library/feature/blueprints/sync"
	"blueprint-library/feature/requests"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the blueprint library server",
	Long:  `Starts the HTTP server and the background synchronization scheduler.`,
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

		// 3. Connect to Database (required: everything persists here)
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to connect to database", zap.Error(err))
		}
		migrations := append(models.All(), &sso.CharacterToken{})
		if err := db.AutoMigrate(migrations...); err != nil {
			logg.Fatal("Failed to migrate schema", zap.Error(err))
		}

		// 4. ESI client, credential provider, sync engine
		client := esi.NewClient(cfg.ESI)
		tokens := sso.NewProvider(db, cfg.SSO)
		syncer := blueprintsync.New(db, client, tokens, logg)

		// 5. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We log our own startup message
		})

		// Middleware: RayID first to trace everything
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
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 6. Load Features
		mgr := loader.NewManager()
		mgr.Register(blueprints.NewFeature(db, logg))
		mgr.Register(requests.NewFeature(db, logg))
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 7. Background sync scheduler
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sched := scheduler.New(logg)
		sched.Add(scheduler.Job{
			Name:     "blueprints",
			Interval: time.Duration(cfg.Sync.BlueprintsInterval) * time.Minute,
			Run:      syncer.SyncAllBlueprints,
		})
		sched.Add(scheduler.Job{
			Name:     "industry_jobs",
			Interval: time.Duration(cfg.Sync.JobsInterval) * time.Minute,
			Run:      syncer.SyncAllIndustryJobs,
		})
		sched.Add(scheduler.Job{
			Name:     "locations",
			Interval: time.Duration(cfg.Sync.LocationsInterval) * time.Minute,
			Run:      syncer.ResolveLocations,
		})
		sched.Add(scheduler.Job{
			Name:     "type_names",
			Interval: time.Duration(cfg.Sync.TypesInterval) * time.Minute,
			Run:      syncer.EnrichTypeNames,
		})
		go func() {
			if err := sched.Start(ctx); err != nil {
				logg.Error("Scheduler stopped", zap.Error(err))
			}
		}()

		// 8. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 9. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		cancel()
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
