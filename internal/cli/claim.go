package cli

import (
	"fmt"

	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/Alias1177/FixPredict/internal/engine"
	"github.com/Alias1177/FixPredict/internal/host"
	"github.com/Alias1177/FixPredict/internal/notify"
	"github.com/Alias1177/FixPredict/models"
	"github.com/spf13/cobra"
)

func newClaimCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "File and adjudicate insurance claims on failed predictions",
	}

	var amount uint64
	var description string
	file := &cobra.Command{
		Use:   "file <contract-id>",
		Short: "File a claim against an incorrectly validated contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.whoami()
			if err != nil {
				return err
			}
			contractID, err := parseUint("contract id", args[0])
			if err != nil {
				return err
			}
			var cl models.Claim
			err = a.update(cmd, func(s *host.Session) error {
				id, err := s.Engine.FileClaim(caller, contractID, amount, description)
				if err != nil {
					return err
				}
				cl, _ = s.Engine.Claim(id)
				return nil
			})
			if err != nil {
				return err
			}
			return a.print(cl)
		},
	}
	file.Flags().Uint64Var(&amount, "amount", 0, "requested compensation")
	file.Flags().StringVar(&description, "description", "", "what went wrong")

	var approve, reject bool
	process := &cobra.Command{
		Use:   "process <claim-id>",
		Short: "Approve or reject a pending claim (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.whoami()
			if err != nil {
				return err
			}
			id, err := parseUint("claim id", args[0])
			if err != nil {
				return err
			}
			if approve == reject {
				return fmt.Errorf("exactly one of --approve or --reject is required: %w", apperr.ErrInvalidInput)
			}
			var cl models.Claim
			err = a.update(cmd, func(s *host.Session) error {
				if _, err := s.Engine.ProcessClaim(caller, id, approve); err != nil {
					return err
				}
				cl, _ = s.Engine.Claim(id)
				return nil
			})
			if err != nil {
				return err
			}
			return a.print(cl)
		},
	}
	process.Flags().BoolVar(&approve, "approve", false, "approve and pay the claim")
	process.Flags().BoolVar(&reject, "reject", false, "reject the claim")

	show := &cobra.Command{
		Use:   "show <claim-id>",
		Short: "Show an insurance claim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUint("claim id", args[0])
			if err != nil {
				return err
			}
			var cl models.Claim
			err = a.view(cmd, func(s *host.Session) error {
				var ok bool
				if cl, ok = s.Engine.Claim(id); !ok {
					return fmt.Errorf("claim %d: %w", id, apperr.ErrNotFound)
				}
				return nil
			})
			if err != nil {
				return err
			}
			return a.print(cl)
		},
	}

	cmd.AddCommand(file, process, show)
	return cmd
}

func newPremiumCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "premium <coverage>",
		Short: "Compute the insurance premium for a coverage amount",
		Args:  cobra.ExactArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			coverage, err := parseUint("coverage", args[0])
			if err != nil {
				return err
			}
			premium := engine.Premium(coverage)
			return a.print(map[string]any{
				"coverage":  coverage,
				"premium":   premium,
				"formatted": notify.FormatAmount(premium),
			})
		},
	}
}
