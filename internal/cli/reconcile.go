package cli

import (
	"fmt"
	"io"

	"planhub-be/internal/apperr"
	"planhub-be/internal/bootstrap"
	"planhub-be/internal/dto"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewReconcileCommand re-verifies a reference with its gateway and completes
// the purchase when the payment settled. Safe to run repeatedly.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "reconcile <reference>...",
		Short:         "Verify payment references against the gateway",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDatabase(rootOpts)
			if err != nil {
				return err
			}
			container := bootstrap.NewContainer(cmd.Context(), db, cfg)
			defer container.Close()

			failed := 0
			for _, reference := range args {
				res, err := container.PaymentService.VerifyForAdmin(cmd.Context(), reference)
				if !printOutcome(cmd.OutOrStdout(), reference, res, err) {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d references failed", failed, len(args))
			}
			return nil
		},
	}
}

func printOutcome(w io.Writer, reference string, res *dto.CompletionResponse, err error) bool {
	if err != nil {
		if apperr.IsSoft(err) {
			fmt.Fprintf(w, "%s %s: %v\n", color.YellowString("PENDING"), reference, err)
			return true
		}
		fmt.Fprintf(w, "%s %s: %v\n", color.RedString("FAILED"), reference, err)
		return false
	}
	status := color.GreenString("COMPLETED")
	if res.Already {
		status = color.CyanString("ALREADY")
	}
	fmt.Fprintf(w, "%s %s order=%s\n", status, reference, res.OrderId)
	return true
}
