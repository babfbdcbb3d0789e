// Package host runs engine operations against persisted state: load the
// latest snapshot, apply one operation, save it with its events, notify.
package host

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/Alias1177/FixPredict/internal/config"
	"github.com/Alias1177/FixPredict/internal/database"
	"github.com/Alias1177/FixPredict/internal/engine"
	"github.com/Alias1177/FixPredict/internal/notify"
	httpclient "github.com/Alias1177/FixPredict/internal/platform/http"
	"github.com/rs/zerolog"
)

// Session is an engine loaded for one operation, with the clock it runs on.
type Session struct {
	Engine *engine.Engine
	Clock  *engine.ManualClock
}

// Host serializes operations on one store.
type Host struct {
	mu       sync.Mutex
	owner    string
	params   engine.Params
	store    database.Store
	notifier notify.Notifier
	logger   zerolog.Logger
}

// New creates a host. owner administers the engine created on first use.
func New(owner string, params engine.Params, store database.Store, notifier notify.Notifier, logger zerolog.Logger) *Host {
	return &Host{
		owner:    owner,
		params:   params,
		store:    store,
		notifier: notifier,
		logger:   logger.With().Str("component", "host").Logger(),
	}
}

// FromConfig wires a host with the store and notifier cfg selects.
func FromConfig(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Host, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	notifier, err := OpenNotifier(cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return New(cfg.Owner, cfg.Engine, store, notifier, logger), nil
}

// OpenStore returns PostgreSQL when a database host is configured, the state
// file otherwise.
func OpenStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	if cfg.UsesPostgres() {
		return database.New(ctx, cfg.Database)
	}
	return database.NewFile(cfg.StateFile), nil
}

// OpenNotifier returns the Telegram notifier when a bot token is configured,
// a log notifier otherwise.
func OpenNotifier(cfg *config.Config, logger zerolog.Logger) (notify.Notifier, error) {
	if cfg.Telegram.Token == "" {
		return notify.NewLog(logger), nil
	}
	if cfg.Telegram.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat id not configured: %w", apperr.ErrInvalidInput)
	}
	client := httpclient.NewClient(cfg.HTTP)
	return notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, client, logger)
}

// Close releases the store.
func (h *Host) Close() error {
	return h.store.Close()
}

func (h *Host) load(ctx context.Context) (*Session, error) {
	snap, err := h.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		if h.owner == "" {
			return nil, fmt.Errorf("no saved state and no owner configured: %w", apperr.ErrInvalidInput)
		}
		clock := engine.NewManualClock(0)
		e, err := engine.New(h.owner, clock, h.params, h.logger)
		if err != nil {
			return nil, err
		}
		h.logger.Info().Str("owner", h.owner).Msg("genesis: new engine created")
		return &Session{Engine: e, Clock: clock}, nil
	}

	clock := engine.NewManualClock(snap.Height)
	e, err := engine.Restore(snap, clock, h.params, h.logger)
	if err != nil {
		return nil, err
	}
	return &Session{Engine: e, Clock: clock}, nil
}

// View runs fn on the current state without saving.
func (h *Host) View(ctx context.Context, fn func(*Session) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := h.load(ctx)
	if err != nil {
		return err
	}
	return fn(s)
}

// Update runs fn on the current state and saves whatever it committed, even
// when fn fails after earlier operations succeeded. Notification failures are
// logged, not returned.
func (h *Host) Update(ctx context.Context, fn func(*Session) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := h.load(ctx)
	if err != nil {
		return err
	}
	before := s.Clock.Height()
	opErr := fn(s)

	events := s.Engine.DrainEvents()
	if opErr != nil && len(events) == 0 && s.Clock.Height() == before {
		return opErr
	}
	// record the clock even when no operation read it
	s.Engine.Height()
	if err := h.store.Save(ctx, s.Engine.Snapshot(), events); err != nil {
		return errors.Join(opErr, fmt.Errorf("save state: %w", err))
	}

	if len(events) > 0 {
		if err := h.notifier.Notify(ctx, events); err != nil {
			h.logger.Warn().Err(err).Int("events", len(events)).Msg("notification failed")
		}
	}
	return opErr
}
