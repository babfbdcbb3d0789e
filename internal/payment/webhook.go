package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/rs/zerolog"
)

const maxWebhookBody = 64 << 10

// PurchaseFunc credits a settled purchase.
type PurchaseFunc func(ctx context.Context, p Purchase) error

// WebhookHandler serves Stripe webhooks, crediting every paid checkout through
// credit. Duplicate deliveries are acknowledged without crediting twice when
// credit reports apperr.ErrAlreadyExists.
func WebhookHandler(s *StripeService, credit PurchaseFunc, logger zerolog.Logger) http.Handler {
	logger = logger.With().Str("component", "stripe-webhook").Logger()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			logger.Error().Err(err).Msg("reading webhook body")
			http.Error(w, "Error reading request body", http.StatusBadRequest)
			return
		}

		signature := r.Header.Get("Stripe-Signature")
		if signature == "" {
			http.Error(w, "Stripe-Signature header required", http.StatusBadRequest)
			return
		}

		event, err := s.VerifyWebhookSignature(body, signature)
		if err != nil {
			logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("webhook signature rejected")
			http.Error(w, "Invalid signature", http.StatusBadRequest)
			return
		}
		log := logger.With().Str("event_id", event.ID).Str("event_type", string(event.Type)).Logger()

		purchase, err := ParseTokenPurchase(event)
		switch {
		case errors.Is(err, ErrIgnoredEvent), errors.Is(err, ErrNotPaid):
			log.Debug().Err(err).Msg("webhook event ignored")
			respond(w, http.StatusOK, "ignored")
			return
		case err != nil:
			log.Error().Err(err).Msg("malformed purchase event")
			respond(w, http.StatusUnprocessableEntity, "invalid purchase")
			return
		}

		err = credit(r.Context(), purchase)
		switch {
		case errors.Is(err, apperr.ErrAlreadyExists):
			log.Info().Str("reference", purchase.Reference).Msg("purchase already credited")
			respond(w, http.StatusOK, "duplicate")
		case apperr.CodeOf(err) != 0:
			log.Error().Err(err).Str("account", purchase.Account).Msg("purchase rejected by engine")
			respond(w, http.StatusUnprocessableEntity, "rejected")
		case err != nil:
			log.Error().Err(err).Msg("crediting purchase")
			respond(w, http.StatusInternalServerError, "error")
		default:
			log.Info().Str("account", purchase.Account).Uint64("tokens", purchase.Tokens).Msg("purchase credited")
			respond(w, http.StatusOK, "success")
		}
	})
}

func respond(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"status": msg})
}
