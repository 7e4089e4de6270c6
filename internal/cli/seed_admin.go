package cli

import (
	"planhub-be/internal/bootstrap"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type seedAdminOptions struct {
	email    string
	password string
	fullName string
}

func NewSeedAdminCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &seedAdminOptions{}

	cmd := &cobra.Command{
		Use:          "seed-admin",
		Short:        "Create an administrator account",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDatabase(rootOpts)
			if err != nil {
				return err
			}
			container := bootstrap.NewContainer(cmd.Context(), db, cfg)
			defer container.Close()

			res, err := container.AuthService.SeedAdmin(cmd.Context(), opts.email, opts.password, opts.fullName)
			if err != nil {
				return err
			}
			color.Green("Admin %s created (%s)", res.Email, res.Id)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "admin email")
	cmd.Flags().StringVar(&opts.password, "password", "", "admin password")
	cmd.Flags().StringVar(&opts.fullName, "name", "Administrator", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
