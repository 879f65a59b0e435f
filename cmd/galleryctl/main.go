package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/vasiliy-maslov/art-gallery/internal/app"
	"github.com/vasiliy-maslov/art-gallery/internal/config"
	"github.com/vasiliy-maslov/art-gallery/internal/db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "galleryctl",
		Short:         "Administrative tasks for the gallery service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.NewConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			app.SetupLogger(loaded)
			cfg = loaded
			return nil
		},
	}

	current := func() *config.Config { return cfg }
	root.AddCommand(newMigrateCmd(current), newCreateAdminCmd(current), newSweepCmd(current))
	return root
}

func newMigrateCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.ApplyMigrations(cfg().Postgres); err != nil {
				log.Error().Err(err).Msg("Migration failed")
				return err
			}
			return nil
		},
	}
}

func newCreateAdminCmd(cfg func() *config.Config) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a gallery administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := app.New(cmd.Context(), cfg())
			if err != nil {
				log.Error().Err(err).Msg("Failed to initialize services")
				return err
			}
			defer services.Close()

			admin, err := services.Accounts.CreateAdmin(cmd.Context(), username, email, password)
			if err != nil {
				log.Error().Err(err).Str("username", username).Msg("Failed to create admin")
				return err
			}

			log.Info().Stringer("admin_id", admin.ID).Str("username", admin.Username).Msg("Admin created")
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "admin username")
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newSweepCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-sessions",
		Short: "Delete expired sessions once",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := app.New(cmd.Context(), cfg())
			if err != nil {
				log.Error().Err(err).Msg("Failed to initialize services")
				return err
			}
			defer services.Close()

			n, err := services.Sessions.Sweep(cmd.Context())
			if err != nil {
				log.Error().Err(err).Msg("Session sweep failed")
				return err
			}

			log.Info().Int64("deleted", n).Msg("Expired sessions swept")
			return nil
		},
	}
}
