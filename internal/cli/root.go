// Package cli is the operator command line for the marketplace backend.
package cli

import (
	"fmt"

	"planhub-be/internal/config"
	"planhub-be/pkg/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "planhubctl",
		Short: "PlanHub backend operator tool",
		Long:  "Runs the API server and performs operator tasks against the PlanHub database.",
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log every SQL statement")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewSeedAdminCommand(opts))

	return cmd
}

func openDatabase(opts *RootOptions) (*config.Config, *gorm.DB, error) {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		return nil, nil, fmt.Errorf("DB_CONNECTION_STRING is not set")
	}
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, opts.Verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, db, nil
}
