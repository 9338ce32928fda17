package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rosy/taxirides/internal/config"
	"github.com/rosy/taxirides/internal/ingest"
	"github.com/rosy/taxirides/internal/logging"
	"github.com/rosy/taxirides/internal/store"
)

func ingestCmd() *cobra.Command {
	var (
		configPath string
		source     string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Bulk-load the ride tables from a CSV file or URL",
		Long:  "Drop and recreate both ride tables, then load rides from the given CSV, split by vendor_id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if source == "" {
				return fmt.Errorf("--source is required")
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logging.Init(cfg.Server.LogFormat, cfg.Server.LogLevel)

			ctx := cmd.Context()
			st, err := store.NewPostgresStore(ctx, cfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer st.Close()

			counts, err := ingest.NewLoader(st).Run(ctx, source)
			if err != nil {
				return err
			}

			var total int64
			for _, n := range counts {
				total += n
			}
			logging.Op().Info("ingestion complete", "rows", total)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")
	cmd.Flags().StringVar(&source, "source", "", "CSV file path or http(s) URL")

	return cmd
}
