package cmd

import (
	"context"
	"fmt"

	"blueprint-library/core/config"
	"blueprint-library/core/database"
	"blueprint-library/core/esi"
	"blueprint-library/core/logger"
	"blueprint-library/core/sso"
	"blueprint-library/feature/blueprints/models"
	blueprintsync "blueprint-library/feature/blueprints/sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// syncCmd is the parent command for one-shot synchronization passes.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run synchronization passes against ESI",
	Long: `Run one synchronization pass for a resource kind. These are the same
work units the background scheduler triggers periodically.

Examples:
  # Reconcile all owners' blueprints once
  blueprint-library sync blueprints

  # Resolve pending location names
  blueprint-library sync locations

  # Everything, in order
  blueprint-library sync all`,
}

var syncBlueprintsCmd = &cobra.Command{
	Use:   "blueprints",
	Short: "Reconcile every owner's blueprints against ESI",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(func(ctx context.Context, s *blueprintsync.Syncer) error {
			return s.SyncAllBlueprints(ctx)
		})
	},
}

var syncJobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Reconcile every owner's industry jobs against ESI",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(func(ctx context.Context, s *blueprintsync.Syncer) error {
			return s.SyncAllIndustryJobs(ctx)
		})
	},
}

var syncLocationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "Resolve pending location names",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(func(ctx context.Context, s *blueprintsync.Syncer) error {
			return s.ResolveLocations(ctx)
		})
	},
}

var syncTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "Enrich placeholder type names",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(func(ctx context.Context, s *blueprintsync.Syncer) error {
			return s.EnrichTypeNames(ctx)
		})
	},
}

var syncAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Run every synchronization pass once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(func(ctx context.Context, s *blueprintsync.Syncer) error {
			if err := s.SyncAllBlueprints(ctx); err != nil {
				return err
			}
			if err := s.SyncAllIndustryJobs(ctx); err != nil {
				return err
			}
			if err := s.ResolveLocations(ctx); err != nil {
				return err
			}
			return s.EnrichTypeNames(ctx)
		})
	},
}

func init() {
	syncCmd.AddCommand(syncBlueprintsCmd, syncJobsCmd, syncLocationsCmd, syncTypesCmd, syncAllCmd)
	RootCmd.AddCommand(syncCmd)
}

// runSync wires up the sync engine and runs one pass.
func runSync(pass func(ctx context.Context, s *blueprintsync.Syncer) error) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	migrations := append(models.All(), &sso.CharacterToken{})
	if err := db.AutoMigrate(migrations...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	syncer := blueprintsync.New(db, esi.NewClient(cfg.ESI), sso.NewProvider(db, cfg.SSO), l)

	l.Info("Starting synchronization pass")
	if err := pass(ctx, syncer); err != nil {
		return err
	}
	l.Info("Synchronization pass finished", zap.Bool("ok", true))
	return nil
}
