package cli

import (
	"planhub-be/pkg/database"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Create or update the database schema",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDatabase(rootOpts)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			color.Green("Schema is up to date")
			return nil
		},
	}
}
