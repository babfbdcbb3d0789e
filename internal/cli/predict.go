package cli

import (
	"fmt"

	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/Alias1177/FixPredict/internal/host"
	"github.com/Alias1177/FixPredict/models"
	"github.com/spf13/cobra"
)

func newPredictCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Submit, validate and inspect maintenance predictions",
	}
	cmd.AddCommand(
		newPredictSubmitCmd(a),
		newPredictValidateCmd(a),
		newPredictShowCmd(a),
		newPredictPositionCmd(a),
	)
	return cmd
}

func newPredictSubmitCmd(a *app) *cobra.Command {
	var equipmentID, stake, coverage, target, in uint64
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Stake a prediction that equipment needs maintenance by a height",
		Long: `Submit stakes FIX from --as predicting that the equipment will need maintenance
by the target height. Give either --target (absolute height) or --in (heights
from now).

Example:
  fixpredict predict submit --as acme --equipment 1 --in 100 --stake 2000 --coverage 10000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.whoami()
			if err != nil {
				return err
			}
			if (target == 0) == (in == 0) {
				return fmt.Errorf("exactly one of --target or --in is required: %w", apperr.ErrInvalidInput)
			}

			var c models.Contract
			err = a.update(cmd, func(s *host.Session) error {
				deadline := target
				if in > 0 {
					deadline = s.Engine.Height() + in
				}
				id, err := s.Engine.Submit(caller, equipmentID, deadline, stake, coverage)
				if err != nil {
					return err
				}
				c, _ = s.Engine.Contract(id)
				return nil
			})
			if err != nil {
				return err
			}
			return a.print(c)
		},
	}
	cmd.Flags().Uint64Var(&equipmentID, "equipment", 0, "equipment id")
	cmd.Flags().Uint64Var(&target, "target", 0, "height by which maintenance is predicted")
	cmd.Flags().Uint64Var(&in, "in", 0, "target as an offset from the current height")
	cmd.Flags().Uint64Var(&stake, "stake", 0, "FIX staked on the prediction")
	cmd.Flags().Uint64Var(&coverage, "coverage", 0, "insured value bounding claim payouts")
	return cmd
}

func newPredictValidateCmd(a *app) *cobra.Command {
	var occurred, missed bool
	cmd := &cobra.Command{
		Use:   "validate <contract-id>",
		Short: "Settle a prediction as the equipment owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.whoami()
			if err != nil {
				return err
			}
			id, err := parseUint("contract id", args[0])
			if err != nil {
				return err
			}
			if occurred == missed {
				return fmt.Errorf("exactly one of --occurred or --missed is required: %w", apperr.ErrInvalidInput)
			}

			var out struct {
				Outcome  models.Outcome  `yaml:"outcome" json:"outcome"`
				Contract models.Contract `yaml:"contract" json:"contract"`
			}
			err = a.update(cmd, func(s *host.Session) error {
				outcome, err := s.Engine.Validate(caller, id, occurred)
				if err != nil {
					return err
				}
				out.Outcome = outcome
				out.Contract, _ = s.Engine.Contract(id)
				return nil
			})
			if err != nil {
				return err
			}
			return a.print(out)
		},
	}
	cmd.Flags().BoolVar(&occurred, "occurred", false, "maintenance was needed, the prediction was correct")
	cmd.Flags().BoolVar(&missed, "missed", false, "maintenance was not needed, the prediction failed")
	return cmd
}

func newPredictShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <contract-id>",
		Short: "Show a prediction contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUint("contract id", args[0])
			if err != nil {
				return err
			}
			var c models.Contract
			err = a.view(cmd, func(s *host.Session) error {
				var ok bool
				if c, ok = s.Engine.Contract(id); !ok {
					return fmt.Errorf("contract %d: %w", id, apperr.ErrNotFound)
				}
				return nil
			})
			if err != nil {
				return err
			}
			return a.print(c)
		},
	}
}

func newPredictPositionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "position <contract-id> <provider>",
		Short: "Show the stake a provider holds on a contract",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUint("contract id", args[0])
			if err != nil {
				return err
			}
			var pos models.StakingPosition
			err = a.view(cmd, func(s *host.Session) error {
				var ok bool
				if pos, ok = s.Engine.StakingPosition(id, args[1]); !ok {
					return fmt.Errorf("position of %s on contract %d: %w", args[1], id, apperr.ErrNotFound)
				}
				return nil
			})
			if err != nil {
				return err
			}
			return a.print(pos)
		},
	}
}
