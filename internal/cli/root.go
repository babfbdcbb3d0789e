// Package cli is the fixpredict operator command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Alias1177/FixPredict/internal/config"
	"github.com/Alias1177/FixPredict/internal/host"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X".
var Version = "dev"

// app carries the global flags and the lazily opened host.
type app struct {
	cfgFile  string
	caller   string
	output   string
	logLevel string

	cfg    *config.Config
	logger zerolog.Logger
	host   *host.Host
	out    io.Writer
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCmd(os.Stdout).Execute()
}

// NewRootCmd builds the command tree writing results to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "fixpredict",
		Short: "FixPredict - staked maintenance predictions with insurance",
		Long: `FixPredict runs a maintenance-prediction market: providers stake FIX tokens
predicting when equipment will need maintenance, equipment owners validate the
outcome, correct predictions earn reward and reputation, failed ones forfeit
their stake and open an insurance claim.

Every command loads the persisted state, runs one operation as the account
given by --as and saves the result.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.host != nil {
				return a.host.Close()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./fixpredict.yaml)")
	flags.StringVar(&a.caller, "as", "", "account performing the operation")
	flags.StringVarP(&a.output, "output", "o", "yaml", "record output format: yaml or json")
	flags.StringVar(&a.logLevel, "log-level", "", "log level, overrides log_level from config")

	root.AddCommand(
		newVersionCmd(a),
		newConfigCmd(a),
		newMintCmd(a),
		newBalanceCmd(a),
		newPurchaseCmd(a),
		newEquipmentCmd(a),
		newProviderCmd(a),
		newPredictCmd(a),
		newClaimCmd(a),
		newPremiumCmd(a),
		newAdminCmd(a),
		newChainCmd(a),
		newStatsCmd(a),
		newWebhookCmd(a),
		newBroadcastCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()

	if a.output != "yaml" && a.output != "json" {
		return fmt.Errorf("unknown output format %q", a.output)
	}
	return nil
}

// openHost connects to the configured store on first use.
func (a *app) openHost(ctx context.Context) (*host.Host, error) {
	if a.host != nil {
		return a.host, nil
	}
	h, err := host.FromConfig(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.host = h
	return h, nil
}

func (a *app) update(cmd *cobra.Command, fn func(*host.Session) error) error {
	h, err := a.openHost(cmd.Context())
	if err != nil {
		return err
	}
	return h.Update(cmd.Context(), fn)
}

func (a *app) view(cmd *cobra.Command, fn func(*host.Session) error) error {
	h, err := a.openHost(cmd.Context())
	if err != nil {
		return err
	}
	return h.View(cmd.Context(), fn)
}

// whoami returns --as, required by every state-changing command.
func (a *app) whoami() (string, error) {
	if a.caller == "" {
		return "", fmt.Errorf("--as <account> is required")
	}
	return a.caller, nil
}

func parseUint(name, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return v, nil
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "fixpredict %s\n", Version)
		},
	}
}
