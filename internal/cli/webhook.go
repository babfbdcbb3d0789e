package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/Alias1177/FixPredict/internal/host"
	"github.com/Alias1177/FixPredict/internal/payment"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newWebhookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Stripe payment webhook",
	}

	var port string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Stripe webhook, minting purchased tokens",
		Long: `Serve /webhook for Stripe checkout events and /health for probes.

Every paid checkout session mints its tokens once, as the configured owner, to
the account recorded in the session metadata. Redelivered events are answered
as duplicates.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Owner == "" {
				return fmt.Errorf("owner not configured, purchases are minted as the owner: %w", apperr.ErrInvalidInput)
			}
			if a.cfg.Stripe.WebhookSecret == "" {
				return fmt.Errorf("stripe webhook secret not configured: %w", apperr.ErrInvalidInput)
			}
			if port == "" {
				port = a.cfg.Webhook.Port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			h, err := a.openHost(ctx)
			if err != nil {
				return fmt.Errorf("open state store: %w", err)
			}

			stripeService := payment.NewStripeService(a.cfg.Stripe)
			a.logger.Info().Str("webhook_secret", maskSecret(a.cfg.Stripe.WebhookSecret)).Msg("Stripe initialized")

			srv := &http.Server{
				Addr:              ":" + port,
				Handler:           newWebhookMux(h, a.cfg.Owner, stripeService, a.logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					a.logger.Error().Err(err).Msg("Server shutdown failed")
				}
			}()

			a.logger.Info().Str("port", port).Msg("Starting webhook server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("webhook server: %w", err)
			}
			return nil
		},
	}
	serve.Flags().StringVar(&port, "port", "", "listen port, overrides webhook.port from config")

	cmd.AddCommand(serve)
	return cmd
}

// newWebhookMux routes Stripe events to MintOnce keyed on the checkout session.
func newWebhookMux(h *host.Host, owner string, s *payment.StripeService, logger zerolog.Logger) *http.ServeMux {
	credit := func(ctx context.Context, p payment.Purchase) error {
		return h.Update(ctx, func(sess *host.Session) error {
			return sess.Engine.MintOnce(owner, p.Reference, p.Tokens, p.Account)
		})
	}

	mux := http.NewServeMux()
	mux.Handle("/webhook", payment.WebhookHandler(s, credit, logger))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Webhook server is running"))
	})
	return mux
}

// maskSecret masks a secret string for logging (shows first 3 and last 3 characters)
func maskSecret(secret string) string {
	if len(secret) < 7 {
		return "***"
	}
	return secret[:3] + "..." + secret[len(secret)-3:]
}
