package cli

import (
	"fmt"

	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/Alias1177/FixPredict/internal/host"
	"github.com/Alias1177/FixPredict/models"
	"github.com/spf13/cobra"
)

func newEquipmentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "equipment",
		Short: "Register and inspect equipment",
	}

	var name, location, sensor string
	register := &cobra.Command{
		Use:   "register",
		Short: "Register equipment owned by --as",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.whoami()
			if err != nil {
				return err
			}
			var eq models.Equipment
			err = a.update(cmd, func(s *host.Session) error {
				id, err := s.Engine.RegisterEquipment(caller, name, location, sensor)
				if err != nil {
					return err
				}
				eq, _ = s.Engine.Equipment(id)
				return nil
			})
			if err != nil {
				return err
			}
			return a.print(eq)
		},
	}
	register.Flags().StringVar(&name, "name", "", "equipment name")
	register.Flags().StringVar(&location, "location", "", "where the equipment is installed")
	register.Flags().StringVar(&sensor, "sensor", "", "sensor serial, stored only as a fingerprint")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show registered equipment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUint("equipment id", args[0])
			if err != nil {
				return err
			}
			var eq models.Equipment
			err = a.view(cmd, func(s *host.Session) error {
				var ok bool
				if eq, ok = s.Engine.Equipment(id); !ok {
					return fmt.Errorf("equipment %d: %w", id, apperr.ErrNotFound)
				}
				return nil
			})
			if err != nil {
				return err
			}
			return a.print(eq)
		},
	}

	cmd.AddCommand(register, show)
	return cmd
}

type providerView struct {
	models.Provider `yaml:",inline"`
	Reputation      uint32 `yaml:"reputation" json:"reputation"`
}

func newProviderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provider",
		Short: "Register and inspect service providers",
	}

	var name string
	register := &cobra.Command{
		Use:   "register",
		Short: "Register --as as a service provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.whoami()
			if err != nil {
				return err
			}
			var view providerView
			err = a.update(cmd, func(s *host.Session) error {
				if err := s.Engine.RegisterProvider(caller, name); err != nil {
					return err
				}
				view, err = lookupProvider(s, caller)
				return err
			})
			if err != nil {
				return err
			}
			return a.print(view)
		},
	}
	register.Flags().StringVar(&name, "name", "", "provider display name")

	show := &cobra.Command{
		Use:   "show <account>",
		Short: "Show a provider and its reputation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var view providerView
			err := a.view(cmd, func(s *host.Session) error {
				var err error
				view, err = lookupProvider(s, args[0])
				return err
			})
			if err != nil {
				return err
			}
			return a.print(view)
		},
	}

	cmd.AddCommand(register, show)
	return cmd
}

func lookupProvider(s *host.Session, account string) (providerView, error) {
	p, ok := s.Engine.Provider(account)
	if !ok {
		return providerView{}, fmt.Errorf("provider %s: %w", account, apperr.ErrNotFound)
	}
	score, err := s.Engine.Reputation(account)
	if err != nil {
		return providerView{}, err
	}
	return providerView{Provider: p, Reputation: score}, nil
}
