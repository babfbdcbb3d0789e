package cli

import (
	"fmt"

	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/Alias1177/FixPredict/internal/database"
	"github.com/Alias1177/FixPredict/internal/host"
	"github.com/Alias1177/FixPredict/internal/notify"
	httpclient "github.com/Alias1177/FixPredict/internal/platform/http"
	"github.com/spf13/cobra"
)

func newBroadcastCmd(a *app) *cobra.Command {
	var (
		since  uint64
		limit  int
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Replay the event journal to the operator Telegram chat",
		Long: `Replay journaled events to the operator chat, for example after the chat
changed or notifications were down. Events are sent oldest first; --since
filters by height before --limit counts them.`,
		Example: `  fixpredict broadcast --since 1440 --limit 50
  fixpredict broadcast --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := host.OpenStore(ctx, a.cfg)
			if err != nil {
				return fmt.Errorf("open state store: %w", err)
			}
			defer store.Close()

			journal, ok := store.(database.Journal)
			if !ok {
				return fmt.Errorf("state store keeps no event journal: %w", apperr.ErrInvalidInput)
			}
			events, err := journal.Events(ctx, since, limit)
			if err != nil {
				return fmt.Errorf("read event journal: %w", err)
			}
			a.logger.Info().Int("events", len(events)).Uint64("since", since).Msg("Replaying journal")

			var n notify.Notifier = notify.NewLog(a.logger)
			if !dryRun {
				if a.cfg.Telegram.Token == "" || a.cfg.Telegram.ChatID == 0 {
					return fmt.Errorf("telegram token and chat id must be configured: %w", apperr.ErrInvalidInput)
				}
				n, err = notify.NewTelegram(a.cfg.Telegram.Token, a.cfg.Telegram.ChatID, httpclient.NewClient(a.cfg.HTTP), a.logger)
				if err != nil {
					return fmt.Errorf("initialize Telegram bot: %w", err)
				}
			}

			if err := n.Notify(ctx, events); err != nil {
				return fmt.Errorf("broadcast incomplete: %w", err)
			}
			a.logger.Info().Int("sent", len(events)).Msg("Broadcast completed")
			return a.print(map[string]int{"sent": len(events)})
		},
	}

	flags := cmd.Flags()
	flags.Uint64Var(&since, "since", 0, "only replay events at or above this height")
	flags.IntVar(&limit, "limit", 0, "replay at most this many events (0 replays all)")
	flags.BoolVar(&dryRun, "dry-run", false, "log the events instead of sending them")
	return cmd
}
