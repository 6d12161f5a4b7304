package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/timmy/mealplan/internal/app"
	"github.com/timmy/mealplan/internal/config"
	"github.com/timmy/mealplan/internal/logger"
	"github.com/timmy/mealplan/internal/service"
	"github.com/timmy/mealplan/internal/source/jsonl"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "worker",
		Short:        "Meal-plan batch worker",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "Path to config file")

	root.AddCommand(newTickCmd(&configPath), newImportCmd(&configPath))
	return root
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func setup(ctx context.Context, configPath string) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return app.New(ctx, cfg)
}

func newTickCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run one phase of up to batch_size actionable jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := setup(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx = logger.SetComponent(ctx, "worker")
			result, err := a.Orchestrator.ProcessBatch(ctx)
			if err != nil {
				return err
			}

			logger.FromContext(ctx).WithFields(logger.Fields{
				"processed": result.Processed,
				"succeeded": result.Succeeded,
				"failed":    result.Failed,
			}).Info("Tick completed")
			for _, e := range result.Errors {
				fmt.Fprintln(cmd.ErrOrStderr(), e)
			}
			return nil
		},
	}
}

func newImportCmd(configPath *string) *cobra.Command {
	var (
		dir   string
		force bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load recipes.jsonl from a directory into the recipe library",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := setup(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			src := jsonl.NewAdapter(dir)
			stats, err := a.Importer.Import(ctx, src, &service.ImportOptions{Force: force, Limit: limit})
			if err != nil {
				return fmt.Errorf("failed to import from %s: %w", src.GetSourceID(), err)
			}

			librarySize, err := a.Library.Count(ctx, "")
			if err != nil {
				return fmt.Errorf("failed to count library recipes: %w", err)
			}

			logger.FromContext(ctx).WithFields(logger.Fields{
				"source":       src.GetSourceID(),
				"total":        stats.TotalItems,
				"imported":     stats.ImportedItems,
				"skipped":      stats.SkippedItems,
				"failed":       stats.FailedItems,
				"library_size": librarySize,
			}).Info("Import completed")
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "source", "", "Directory containing "+jsonl.ManifestFileName)
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite recipes that already exist")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of recipes to import (0 = all)")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}
