package cli

import (
	"github.com/Alias1177/FixPredict/internal/host"
	"github.com/Alias1177/FixPredict/internal/notify"
	"github.com/Alias1177/FixPredict/internal/payment"
	"github.com/spf13/cobra"
)

type balanceView struct {
	Account   string `yaml:"account" json:"account"`
	Balance   uint64 `yaml:"balance" json:"balance"`
	Formatted string `yaml:"formatted" json:"formatted"`
}

func newMintCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mint <recipient> <amount>",
		Short: "Mint FIX tokens to an account (owner only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.whoami()
			if err != nil {
				return err
			}
			amount, err := parseUint("amount", args[1])
			if err != nil {
				return err
			}

			var view balanceView
			err = a.update(cmd, func(s *host.Session) error {
				if err := s.Engine.Mint(caller, amount, args[0]); err != nil {
					return err
				}
				view = newBalanceView(args[0], s.Engine.Balance(args[0]))
				return nil
			})
			if err != nil {
				return err
			}
			return a.print(view)
		},
	}
}

func newBalanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account>",
		Short: "Show the spendable FIX balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var view balanceView
			err := a.view(cmd, func(s *host.Session) error {
				view = newBalanceView(args[0], s.Engine.Balance(args[0]))
				return nil
			})
			if err != nil {
				return err
			}
			return a.print(view)
		},
	}
}

func newBalanceView(account string, balance uint64) balanceView {
	return balanceView{Account: account, Balance: balance, Formatted: notify.FormatAmount(balance)}
}

func newPurchaseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purchase <units>",
		Short: "Create a Stripe checkout to buy FIX tokens for --as",
		Long: `Purchase creates a Stripe checkout session for units of the configured token
price. Tokens are minted to the account once "fixpredict webhook serve" receives
the paid checkout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := a.whoami()
			if err != nil {
				return err
			}
			units, err := parseUint("units", args[0])
			if err != nil {
				return err
			}

			svc := payment.NewStripeService(a.cfg.Stripe)
			tokens, err := svc.TokensFor(units)
			if err != nil {
				return err
			}
			id, url, err := svc.CreateCheckoutSession(account, units)
			if err != nil {
				return err
			}
			return a.print(map[string]any{
				"session_id": id,
				"url":        url,
				"account":    account,
				"tokens":     tokens,
			})
		},
	}
}
