package host

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/Alias1177/FixPredict/internal/config"
	"github.com/Alias1177/FixPredict/internal/database"
	"github.com/Alias1177/FixPredict/internal/engine"
	"github.com/Alias1177/FixPredict/internal/notify"
	"github.com/Alias1177/FixPredict/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []models.Event
}

func (r *recorder) Notify(_ context.Context, events []models.Event) error {
	r.events = append(r.events, events...)
	return nil
}

func newHost(t *testing.T, owner string) (*Host, *database.File, *recorder) {
	t.Helper()
	store := database.NewFile(filepath.Join(t.TempDir(), "state.json"))
	rec := &recorder{}
	return New(owner, engine.DefaultParams(), store, rec, zerolog.Nop()), store, rec
}

func TestUpdatePersistsAcrossSessions(t *testing.T) {
	ctx := context.Background()
	h, store, rec := newHost(t, "owner")

	err := h.Update(ctx, func(s *Session) error {
		return s.Engine.Mint("owner", 5000, "alice")
	})
	require.NoError(t, err)
	require.Len(t, rec.events, 1)
	assert.Equal(t, models.EventMinted, rec.events[0].Kind)

	err = h.Update(ctx, func(s *Session) error {
		s.Clock.Advance(25)
		return nil
	})
	require.NoError(t, err)

	err = h.View(ctx, func(s *Session) error {
		assert.Equal(t, uint64(5000), s.Engine.Balance("alice"))
		assert.Equal(t, uint64(25), s.Engine.Height())
		return nil
	})
	require.NoError(t, err)

	journal, err := store.Events(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, journal, 1)
}

func TestUpdateFailureSavesNothing(t *testing.T) {
	ctx := context.Background()
	h, store, rec := newHost(t, "owner")

	err := h.Update(ctx, func(s *Session) error {
		return s.Engine.Mint("mallory", 5000, "mallory")
	})
	assert.ErrorIs(t, err, apperr.ErrPrivilegedOnly)
	assert.Empty(t, rec.events)

	snap, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestUpdateKeepsEarlierOperations(t *testing.T) {
	ctx := context.Background()
	h, _, _ := newHost(t, "owner")

	err := h.Update(ctx, func(s *Session) error {
		if err := s.Engine.Mint("owner", 10, "bob"); err != nil {
			return err
		}
		return s.Engine.Mint("owner", 0, "bob")
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	err = h.View(ctx, func(s *Session) error {
		assert.Equal(t, uint64(10), s.Engine.Balance("bob"))
		return nil
	})
	require.NoError(t, err)
}

func TestGenesisNeedsOwner(t *testing.T) {
	h, _, _ := newHost(t, "")
	err := h.View(context.Background(), func(*Session) error { return nil })
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestOpenFromConfig(t *testing.T) {
	cfg := &config.Config{StateFile: filepath.Join(t.TempDir(), "s.json")}

	store, err := OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &database.File{}, store)

	n, err := OpenNotifier(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &notify.Log{}, n)

	cfg.Telegram.Token = "123:abc"
	_, err = OpenNotifier(cfg, zerolog.Nop())
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}
