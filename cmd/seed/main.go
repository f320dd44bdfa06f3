package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/config"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/logging"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/repository"
)

var (
	configPath string
	skipSchema bool
)

var rootCmd = &cobra.Command{
	Use:          "seed",
	Short:        "Load demo patients and policies into PostgreSQL",
	Long:         "Applies the schema and upserts the demo practice fixtures. Safe to run repeatedly.",
	SilenceUsage: true,
	RunE:         runSeed,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to config.yaml (default ./config.yaml)")
	rootCmd.Flags().BoolVar(&skipSchema, "skip-schema", false, "Do not apply the schema before seeding")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	pool, err := repository.Connect(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	if !skipSchema {
		if err := repository.Migrate(ctx, pool); err != nil {
			return err
		}
		logger.Info("schema applied")
	}

	fixtures := repository.DemoFixtures()
	if err := fixtures.Load(ctx, repository.NewPostgresStore(pool)); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	logger.Info("seeding complete",
		"practice_id", repository.DemoPracticeID,
		"patients", len(fixtures.Patients),
		"policies", len(fixtures.Policies),
	)
	return nil
}
