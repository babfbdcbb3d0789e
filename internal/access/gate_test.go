package access

import (
	"testing"

	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwitchesRequireOwner(t *testing.T) {
	ops := map[string]func(g *Gate, caller string) error{
		"pause":             (*Gate).Pause,
		"unpause":           (*Gate).Unpause,
		"enable emergency":  (*Gate).EnableEmergency,
		"disable emergency": (*Gate).DisableEmergency,
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			g := NewGate("deployer", DefaultTreasuryDelay)
			assert.ErrorIs(t, op(g, "wallet1"), apperr.ErrPrivilegedOnly)
			assert.ErrorIs(t, op(g, ""), apperr.ErrPrivilegedOnly)
			assert.NoError(t, op(g, "deployer"))
		})
	}
}

func TestPauseAndEmergency(t *testing.T) {
	g := NewGate("deployer", DefaultTreasuryDelay)
	require.NoError(t, g.CheckOpen())

	require.NoError(t, g.EnableEmergency("deployer"))
	assert.True(t, g.Emergency())
	assert.ErrorIs(t, g.CheckOpen(), apperr.ErrEmergencyMode)

	require.NoError(t, g.Pause("deployer"))
	assert.True(t, g.Paused())
	assert.ErrorIs(t, g.CheckOpen(), apperr.ErrContractPaused, "paused is reported before emergency")

	require.NoError(t, g.Unpause("deployer"))
	require.NoError(t, g.DisableEmergency("deployer"))
	assert.False(t, g.Paused())
	assert.False(t, g.Emergency())
	assert.NoError(t, g.CheckOpen())
}

func TestTreasuryTimelock(t *testing.T) {
	g := NewGate("deployer", DefaultTreasuryDelay)
	assert.Equal(t, "deployer", g.Treasury())

	pending, err := g.SetTreasury("deployer", "wallet4", 100)
	require.NoError(t, err)
	assert.Equal(t, PendingTreasury{Account: "wallet4", EligibleHeight: 1540}, pending)

	got, ok := g.Pending()
	require.True(t, ok)
	assert.Equal(t, "wallet4", got.Account)

	_, err = g.ExecuteTreasuryChange("deployer", 100)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = g.ExecuteTreasuryChange("deployer", 1539)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Equal(t, "deployer", g.Treasury())

	_, err = g.ExecuteTreasuryChange("wallet1", 1541)
	assert.ErrorIs(t, err, apperr.ErrPrivilegedOnly)

	account, err := g.ExecuteTreasuryChange("deployer", 100+1441)
	require.NoError(t, err)
	assert.Equal(t, "wallet4", account)
	assert.Equal(t, "wallet4", g.Treasury())

	_, ok = g.Pending()
	assert.False(t, ok)
	_, err = g.ExecuteTreasuryChange("deployer", 5000)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSetTreasuryValidation(t *testing.T) {
	g := NewGate("deployer", DefaultTreasuryDelay)

	_, err := g.SetTreasury("wallet1", "wallet4", 1)
	assert.ErrorIs(t, err, apperr.ErrPrivilegedOnly)

	_, err = g.SetTreasury("deployer", "", 1)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, ok := g.Pending()
	assert.False(t, ok)
}

func TestStateIsCopied(t *testing.T) {
	g := NewGate("deployer", 10)
	_, err := g.SetTreasury("deployer", "w", 0)
	require.NoError(t, err)

	state := g.State()
	state.Pending.Account = "mutated"

	pending, _ := g.Pending()
	assert.Equal(t, "w", pending.Account)

	restored := RestoreGate(g.State(), 10)
	assert.Equal(t, g.State(), restored.State())
}
