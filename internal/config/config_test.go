package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "fixpredict.json", cfg.StateFile)
	assert.Equal(t, uint64(1000), cfg.Engine.MinStake)
	assert.Equal(t, uint64(1440), cfg.Engine.TreasuryDelay)
	assert.Equal(t, 5, cfg.Engine.RateLimitMax)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.False(t, cfg.UsesPostgres())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
owner: admin
engine:
  min_stake: 2500
  reward_bps: 500
database:
  host: db.internal
  password: hunter2
telegram:
  chat_id: 4242
`), 0o644))

	t.Setenv("FIXPREDICT_ENGINE_REWARD_BPS", "750")
	t.Setenv("FIXPREDICT_STRIPE_API_KEY", "sk_test_123")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "admin", cfg.Owner)
	assert.Equal(t, uint64(2500), cfg.Engine.MinStake)
	assert.Equal(t, uint64(750), cfg.Engine.RewardBps)
	assert.Equal(t, int64(4242), cfg.Telegram.ChatID)
	assert.True(t, cfg.UsesPostgres())

	shown := cfg.Masked()
	assert.Equal(t, masked, shown.Database.Password)
	assert.Equal(t, masked, shown.Stripe.APIKey)
	assert.Equal(t, "", shown.Stripe.WebhookSecret)
	assert.Equal(t, "hunter2", cfg.Database.Password)
}

func TestLoadRejectsBadEngineParams(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("FIXPREDICT_ENGINE_MIN_STAKE", "0")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
