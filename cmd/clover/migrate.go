package main

import (
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/config"
)

func migrateCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the config storage migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envFiles(envFile)...)
			if err != nil {
				return err
			}

			logger, sync, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer sync()

			conn, err := connectDatabase(cmd.Context(), cfg, logger)
			if err != nil {
				logger.WithError(err).Error("Failed to connect to database")
				return err
			}
			defer conn.Close()

			if err := runMigrations(cfg, conn, logger); err != nil {
				logger.WithError(err).Error("Migration failed")
				return err
			}

			logger.Info("Migrations applied")
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment")
	return cmd
}

func envFiles(envFile string) []string {
	if envFile == "" {
		return nil
	}
	return []string{envFile}
}
