// Package notify tells operators about committed engine transitions.
package notify

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Alias1177/FixPredict/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional digits a FIX base unit amount carries.
const Decimals = 6

// Notifier delivers events to someone who cares.
type Notifier interface {
	Notify(ctx context.Context, events []models.Event) error
}

// FormatAmount renders base units as a decimal FIX amount, e.g. 1500000 as "1.5 FIX".
func FormatAmount(amount uint64) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -Decimals)
	return d.String() + " FIX"
}

// Describe renders an event as one human-readable line.
func Describe(ev models.Event) string {
	switch ev.Kind {
	case models.EventMinted:
		return fmt.Sprintf("Minted %s to %s", FormatAmount(ev.Amount), ev.Account)
	case models.EventEquipmentRegistered:
		return fmt.Sprintf("Equipment %q registered by %s", ev.Detail, ev.Account)
	case models.EventProviderRegistered:
		return fmt.Sprintf("Provider %s registered (%s)", ev.Account, ev.Detail)
	case models.EventPredictionSubmitted:
		return fmt.Sprintf("Prediction #%d submitted by %s, stake %s", ev.ContractID, ev.Account, FormatAmount(ev.Amount))
	case models.EventPredictionValidated:
		if ev.Detail == string(models.OutcomeCorrect) {
			return fmt.Sprintf("Prediction #%d correct, %s rewarded %s", ev.ContractID, ev.Account, FormatAmount(ev.Amount))
		}
		return fmt.Sprintf("Prediction #%d failed, stake of %s forfeited", ev.ContractID, ev.Account)
	case models.EventClaimFiled:
		return fmt.Sprintf("Claim #%d filed on prediction #%d by %s for %s", ev.ClaimID, ev.ContractID, ev.Account, FormatAmount(ev.Amount))
	case models.EventClaimProcessed:
		return fmt.Sprintf("Claim #%d %s, paid %s to %s", ev.ClaimID, ev.Detail, FormatAmount(ev.Amount), ev.Account)
	case models.EventAdminChanged:
		return fmt.Sprintf("Admin: %s (%s)", ev.Detail, ev.Account)
	default:
		return fmt.Sprintf("%s at height %d", ev.Kind, ev.Height)
	}
}

// Log writes events to a zerolog logger.
type Log struct {
	logger zerolog.Logger
}

// NewLog creates a notifier logging at info level.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger.With().Str("component", "notify").Logger()}
}

func (l *Log) Notify(_ context.Context, events []models.Event) error {
	for _, ev := range events {
		l.logger.Info().
			Str("event_id", ev.ID.String()).
			Str("kind", string(ev.Kind)).
			Uint64("height", ev.Height).
			Msg(Describe(ev))
	}
	return nil
}
