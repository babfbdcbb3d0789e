package cli

import (
	"fmt"

	"github.com/Alias1177/FixPredict/internal/access"
	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/Alias1177/FixPredict/internal/host"
	"github.com/Alias1177/FixPredict/models"
	"github.com/spf13/cobra"
)

type adminView struct {
	Owner     string                  `yaml:"owner" json:"owner"`
	Treasury  string                  `yaml:"treasury" json:"treasury"`
	Paused    bool                    `yaml:"paused" json:"paused"`
	Emergency bool                    `yaml:"emergency" json:"emergency"`
	Pending   *access.PendingTreasury `yaml:"pending_treasury,omitempty" json:"pending_treasury,omitempty"`
}

func currentAdmin(s *host.Session) adminView {
	v := adminView{
		Owner:     s.Engine.Owner(),
		Treasury:  s.Engine.Treasury(),
		Paused:    s.Engine.Paused(),
		Emergency: s.Engine.Emergency(),
	}
	if p, ok := s.Engine.PendingTreasury(); ok {
		v.Pending = &p
	}
	return v
}

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative switches and the timelocked treasury (owner only)",
	}

	// switchCmd runs one caller-gated admin operation and prints the result.
	switchCmd := func(use, short string, op func(s *host.Session, caller string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				caller, err := a.whoami()
				if err != nil {
					return err
				}
				var view adminView
				err = a.update(cmd, func(s *host.Session) error {
					if err := op(s, caller); err != nil {
						return err
					}
					view = currentAdmin(s)
					return nil
				})
				if err != nil {
					return err
				}
				return a.print(view)
			},
		}
	}

	emergency := &cobra.Command{
		Use:   "emergency on|off",
		Short: "Enter or leave emergency mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.whoami()
			if err != nil {
				return err
			}
			var op func(string) error
			var view adminView
			err = a.update(cmd, func(s *host.Session) error {
				switch args[0] {
				case "on":
					op = s.Engine.EnableEmergency
				case "off":
					op = s.Engine.DisableEmergency
				default:
					return fmt.Errorf("emergency %q, want on or off: %w", args[0], apperr.ErrInvalidInput)
				}
				if err := op(caller); err != nil {
					return err
				}
				view = currentAdmin(s)
				return nil
			})
			if err != nil {
				return err
			}
			return a.print(view)
		},
	}

	treasury := &cobra.Command{
		Use:   "treasury",
		Short: "Schedule, execute and inspect treasury changes",
	}
	treasury.AddCommand(
		&cobra.Command{
			Use:   "set <account>",
			Short: "Schedule a treasury change behind the timelock",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				caller, err := a.whoami()
				if err != nil {
					return err
				}
				var pending access.PendingTreasury
				err = a.update(cmd, func(s *host.Session) error {
					pending, err = s.Engine.SetTreasury(caller, args[0])
					return err
				})
				if err != nil {
					return err
				}
				return a.print(pending)
			},
		},
		switchCmd("execute", "Apply the scheduled treasury change once its timelock passed", func(s *host.Session, caller string) error {
			_, err := s.Engine.ExecuteTreasuryChange(caller)
			return err
		}),
		&cobra.Command{
			Use:   "show",
			Short: "Show owner, treasury and switches",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				var view adminView
				err := a.view(cmd, func(s *host.Session) error {
					view = currentAdmin(s)
					return nil
				})
				if err != nil {
					return err
				}
				return a.print(view)
			},
		},
	)

	cmd.AddCommand(
		switchCmd("pause", "Pause every state-changing operation", func(s *host.Session, caller string) error {
			return s.Engine.Pause(caller)
		}),
		switchCmd("unpause", "Resume operations", func(s *host.Session, caller string) error {
			return s.Engine.Unpause(caller)
		}),
		emergency,
		treasury,
	)
	return cmd
}

func newChainCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Inspect and advance the logical height",
	}

	height := &cobra.Command{
		Use:   "height",
		Short: "Print the current height",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var h uint64
			err := a.view(cmd, func(s *host.Session) error {
				h = s.Engine.Height()
				return nil
			})
			if err != nil {
				return err
			}
			return a.print(map[string]uint64{"height": h})
		},
	}

	advance := &cobra.Command{
		Use:   "advance <n>",
		Short: "Advance the height by n (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.whoami()
			if err != nil {
				return err
			}
			n, err := parseUint("heights", args[0])
			if err != nil {
				return err
			}
			var h uint64
			err = a.update(cmd, func(s *host.Session) error {
				if caller != s.Engine.Owner() {
					return fmt.Errorf("advance height: %w", apperr.ErrPrivilegedOnly)
				}
				h, err = s.Clock.Advance(n)
				return err
			})
			if err != nil {
				return err
			}
			return a.print(map[string]uint64{"height": h})
		},
	}

	cmd.AddCommand(height, advance)
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show platform counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var stats models.Stats
			err := a.view(cmd, func(s *host.Session) error {
				stats = s.Engine.Stats()
				return nil
			})
			if err != nil {
				return err
			}
			return a.print(stats)
		},
	}
}
