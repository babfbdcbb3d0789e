package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func setup(t *testing.T) {
	t.Helper()
	t.Setenv("FIXPREDICT_STATE_FILE", filepath.Join(t.TempDir(), "state.json"))
	t.Setenv("FIXPREDICT_OWNER", "owner")
	t.Setenv("FIXPREDICT_LOG_LEVEL", "disabled")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) map[string]any {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "fixpredict %v", args)
	var record map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &record))
	return record
}

func TestPredictionLifecycle(t *testing.T) {
	setup(t)

	mustRun(t, "mint", "acme", "1000000", "--as", "owner")
	mustRun(t, "mint", "owner", "50000", "--as", "owner")
	eq := mustRun(t, "equipment", "register", "--as", "plant", "--name", "Pump", "--location", "Hall 1", "--sensor", "SN1")
	assert.Equal(t, 1, eq["id"])
	prov := mustRun(t, "provider", "register", "--as", "acme", "--name", "Acme")
	assert.Equal(t, 50, prov["reputation"])

	c := mustRun(t, "predict", "submit", "--as", "acme", "--equipment", "1", "--in", "10", "--stake", "2000", "--coverage", "10000")
	assert.Equal(t, 1, c["id"])
	assert.Equal(t, "pending", c["status"])

	_, err := run(t, "predict", "validate", "1", "--as", "plant", "--missed")
	assert.ErrorIs(t, err, apperr.ErrTooEarly)

	mustRun(t, "chain", "advance", "10", "--as", "owner")
	v := mustRun(t, "predict", "validate", "1", "--as", "plant", "--missed")
	assert.Equal(t, "prediction-failed", v["outcome"])

	prov = mustRun(t, "provider", "show", "acme")
	assert.Equal(t, 40, prov["reputation"])

	cl := mustRun(t, "claim", "file", "1", "--as", "plant", "--amount", "3000", "--description", "seized bearing")
	assert.Equal(t, "pending-review", cl["status"])

	_, err = run(t, "claim", "process", "1", "--as", "plant", "--approve")
	assert.ErrorIs(t, err, apperr.ErrPrivilegedOnly)

	cl = mustRun(t, "claim", "process", "1", "--as", "owner", "--approve")
	assert.Equal(t, "claim-approved", cl["status"])
	assert.Equal(t, 3000, cl["paid"])

	bal := mustRun(t, "balance", "plant")
	assert.Equal(t, 3000, bal["balance"])

	stats := mustRun(t, "stats")
	assert.Equal(t, 1, stats["total_predictions"])
	assert.Equal(t, 1, stats["total_equipment"])
}

func TestAdminCommands(t *testing.T) {
	setup(t)

	_, err := run(t, "admin", "pause", "--as", "mallory")
	assert.ErrorIs(t, err, apperr.ErrPrivilegedOnly)

	view := mustRun(t, "admin", "pause", "--as", "owner")
	assert.Equal(t, true, view["paused"])

	_, err = run(t, "mint", "x", "5", "--as", "owner")
	assert.ErrorIs(t, err, apperr.ErrContractPaused)

	mustRun(t, "admin", "unpause", "--as", "owner")
	view = mustRun(t, "admin", "emergency", "on", "--as", "owner")
	assert.Equal(t, true, view["emergency"])
	mustRun(t, "admin", "emergency", "off", "--as", "owner")

	pending := mustRun(t, "admin", "treasury", "set", "vault", "--as", "owner")
	assert.Equal(t, 1440, pending["eligible_height"])

	_, err = run(t, "admin", "treasury", "execute", "--as", "owner")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	mustRun(t, "chain", "advance", "1440", "--as", "owner")
	view = mustRun(t, "admin", "treasury", "execute", "--as", "owner")
	assert.Equal(t, "vault", view["treasury"])

	_, err = run(t, "chain", "advance", "18446744073709551615", "--as", "owner")
	assert.ErrorIs(t, err, apperr.ErrOverflow)

	h := mustRun(t, "chain", "height")
	assert.Equal(t, 1440, h["height"])
}

func TestReadOnlyCommands(t *testing.T) {
	setup(t)

	p := mustRun(t, "premium", "10000")
	assert.Equal(t, 500, p["premium"])

	_, err := run(t, "predict", "show", "9")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = run(t, "claim", "show", "9")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = run(t, "equipment", "show", "9")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = run(t, "mint", "x", "5")
	assert.Error(t, err)

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "fixpredict")
}

func TestBroadcastDryRun(t *testing.T) {
	setup(t)

	mustRun(t, "mint", "acme", "100", "--as", "owner")
	mustRun(t, "chain", "advance", "10", "--as", "owner")
	mustRun(t, "mint", "acme", "200", "--as", "owner")
	mustRun(t, "mint", "plant", "300", "--as", "owner")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"whole journal", nil, 3},
		{"since height", []string{"--since", "5"}, 2},
		{"limit counts filtered events", []string{"--since", "5", "--limit", "1"}, 1},
		{"nothing new", []string{"--since", "11"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustRun(t, append([]string{"broadcast", "--dry-run"}, tt.args...)...)
			assert.Equal(t, tt.want, got["sent"])
		})
	}

	_, err := run(t, "broadcast")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput, "sending needs telegram settings")
}

func TestWebhookServeNeedsSecret(t *testing.T) {
	setup(t)

	_, err := run(t, "webhook", "serve")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestConfigShowMasksSecrets(t *testing.T) {
	setup(t)
	t.Setenv("FIXPREDICT_STRIPE_API_KEY", "sk_live_secret")

	out, err := run(t, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "sk_live_secret")
	assert.Contains(t, out, "********")
}
