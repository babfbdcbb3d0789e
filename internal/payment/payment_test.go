package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/Alias1177/FixPredict/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testSecret = "whsec_test"

func testService() *StripeService {
	return NewStripeService(config.StripeConfig{
		WebhookSecret: testSecret,
		TokenPriceID:  "price_fix",
		TokensPerUnit: 1000,
		SuccessURL:    "https://example.com/ok",
		CancelURL:     "https://example.com/cancel",
	})
}

func checkoutEvent(id, eventType, paymentStatus string, metadata map[string]string) []byte {
	sess := map[string]any{
		"id":             "cs_" + id,
		"object":         "checkout.session",
		"payment_status": paymentStatus,
		"metadata":       metadata,
	}
	event := map[string]any{
		"id":          "evt_" + id,
		"object":      "event",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"data":        map[string]any{"object": sess},
	}
	payload, _ := json.Marshal(event)
	return payload
}

func sign(payload []byte) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func TestTokensFor(t *testing.T) {
	s := testService()

	tokens, err := s.TokensFor(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3000), tokens)

	_, err = s.TokensFor(0)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = s.TokensFor(math.MaxUint64)
	assert.ErrorIs(t, err, apperr.ErrOverflow)
}

func TestSessionParams(t *testing.T) {
	s := testService()

	params, err := s.SessionParams("alice", 2)
	require.NoError(t, err)
	assert.Equal(t, string(stripe.CheckoutSessionModePayment), *params.Mode)
	assert.Equal(t, "alice", params.Metadata[MetadataAccount])
	assert.Equal(t, "2000", params.Metadata[MetadataTokens])
	require.Len(t, params.LineItems, 1)
	assert.Equal(t, int64(2), *params.LineItems[0].Quantity)

	_, err = s.SessionParams("", 2)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestParseTokenPurchase(t *testing.T) {
	s := testService()
	paid := map[string]string{MetadataAccount: "alice", MetadataTokens: "2000"}

	tests := []struct {
		name    string
		payload []byte
		want    Purchase
		wantErr error
	}{
		{
			name:    "paid checkout",
			payload: checkoutEvent("1", "checkout.session.completed", "paid", paid),
			want:    Purchase{Reference: "cs_1", EventID: "evt_1", Account: "alice", Tokens: 2000},
		},
		{
			name:    "async payment settled",
			payload: checkoutEvent("2", "checkout.session.async_payment_succeeded", "paid", paid),
			want:    Purchase{Reference: "cs_2", EventID: "evt_2", Account: "alice", Tokens: 2000},
		},
		{
			name:    "unpaid checkout",
			payload: checkoutEvent("3", "checkout.session.completed", "unpaid", paid),
			wantErr: ErrNotPaid,
		},
		{
			name:    "other event",
			payload: checkoutEvent("4", "customer.created", "paid", paid),
			wantErr: ErrIgnoredEvent,
		},
		{
			name:    "missing account",
			payload: checkoutEvent("5", "checkout.session.completed", "paid", map[string]string{MetadataTokens: "5"}),
			wantErr: apperr.ErrInvalidInput,
		},
		{
			name:    "bad tokens",
			payload: checkoutEvent("6", "checkout.session.completed", "paid", map[string]string{MetadataAccount: "a", MetadataTokens: "-1"}),
			wantErr: apperr.ErrInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := s.VerifyWebhookSignature(tt.payload, sign(tt.payload))
			require.NoError(t, err)

			got, err := ParseTokenPurchase(event)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerifyWebhookSignatureRejectsTampering(t *testing.T) {
	s := testService()
	payload := checkoutEvent("1", "checkout.session.completed", "paid", nil)
	header := sign(payload)

	_, err := s.VerifyWebhookSignature([]byte(strings.Replace(string(payload), "evt_1", "evt_2", 1)), header)
	assert.Error(t, err)
}

func TestWebhookHandler(t *testing.T) {
	s := testService()
	credited := map[string]uint64{}
	credit := func(_ context.Context, p Purchase) error {
		if p.Account == "broken" {
			return fmt.Errorf("mint: %w", apperr.ErrContractPaused)
		}
		if _, ok := credited[p.Reference]; ok {
			return fmt.Errorf("mint: %w", apperr.ErrAlreadyExists)
		}
		credited[p.Reference] = p.Tokens
		return nil
	}
	handler := WebhookHandler(s, credit, zerolog.Nop())

	post := func(payload []byte, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(string(payload)))
		if signature != "" {
			req.Header.Set("Stripe-Signature", signature)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	paid := checkoutEvent("1", "checkout.session.completed", "paid", map[string]string{MetadataAccount: "alice", MetadataTokens: "2000"})
	rec := post(paid, sign(paid))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "success")
	assert.Equal(t, uint64(2000), credited["cs_1"])

	rec = post(paid, sign(paid))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "duplicate")

	rec = post(paid, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = post(paid, "t=1,v1=deadbeef")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ignored := checkoutEvent("2", "invoice.paid", "paid", nil)
	rec = post(ignored, sign(ignored))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")

	rejected := checkoutEvent("3", "checkout.session.completed", "paid", map[string]string{MetadataAccount: "broken", MetadataTokens: "1"})
	rec = post(rejected, sign(rejected))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
