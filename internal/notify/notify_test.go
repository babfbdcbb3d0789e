package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/Alias1177/FixPredict/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	fail bool
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.fail {
		return tgbotapi.Message{}, errors.New("telegram down")
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount uint64
		want   string
	}{
		{0, "0 FIX"},
		{2000, "0.002 FIX"},
		{1_500_000, "1.5 FIX"},
		{18446744073709551615, "18446744073709.551615 FIX"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(tt.amount))
	}
}

func TestDescribe(t *testing.T) {
	ev := models.Event{Kind: models.EventPredictionValidated, ContractID: 3, Account: "acme", Amount: 200, Detail: string(models.OutcomeCorrect)}
	assert.Equal(t, "Prediction #3 correct, acme rewarded 0.0002 FIX", Describe(ev))

	ev.Detail = string(models.OutcomeFailed)
	assert.Equal(t, "Prediction #3 failed, stake of acme forfeited", Describe(ev))
}

func TestTelegramDeduplicates(t *testing.T) {
	sender := &fakeSender{}
	tg := NewTelegramWithSender(sender, 42, zerolog.Nop())

	events := []models.Event{
		{ID: uuid.New(), Kind: models.EventMinted, Height: 7, Account: "alice", Amount: 1_000_000},
		{ID: uuid.New(), Kind: models.EventClaimFiled, Height: 8, Account: "plant_1", ClaimID: 1, ContractID: 2, Amount: 5},
	}
	require.NoError(t, tg.Notify(context.Background(), events))
	require.NoError(t, tg.Notify(context.Background(), events))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, int64(42), sender.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, sender.sent[0].ParseMode)
	assert.Contains(t, sender.sent[0].Text, "Minted 1 FIX to alice")
	assert.Contains(t, sender.sent[1].Text, `plant\_1`)
}

func TestTelegramRetriesFailedEvents(t *testing.T) {
	sender := &fakeSender{fail: true}
	tg := NewTelegramWithSender(sender, 42, zerolog.Nop())
	events := []models.Event{{ID: uuid.New(), Kind: models.EventMinted, Amount: 1}}

	assert.Error(t, tg.Notify(context.Background(), events))

	sender.fail = false
	require.NoError(t, tg.Notify(context.Background(), events))
	assert.Len(t, sender.sent, 1)
}

func TestLogNotifier(t *testing.T) {
	n := NewLog(zerolog.Nop())
	assert.NoError(t, n.Notify(context.Background(), []models.Event{{Kind: models.EventMinted}}))
}
