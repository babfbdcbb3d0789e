// Package access holds the administrative controls every operation is gated by:
// the owner, the pause and emergency switches, and the timelocked treasury.
package access

import (
	"fmt"

	"github.com/Alias1177/FixPredict/internal/apperr"
)

// DefaultTreasuryDelay is the number of heights a treasury change waits before it
// can be executed.
const DefaultTreasuryDelay uint64 = 1440

// PendingTreasury is a treasury change waiting for its timelock.
type PendingTreasury struct {
	Account        string `json:"account" yaml:"account"`
	EligibleHeight uint64 `json:"eligible_height" yaml:"eligible_height"`
}

// State is the persisted form of a Gate.
type State struct {
	Owner     string           `json:"owner"`
	Treasury  string           `json:"treasury"`
	Paused    bool             `json:"paused"`
	Emergency bool             `json:"emergency"`
	Pending   *PendingTreasury `json:"pending,omitempty"`
}

// Gate enforces administrative rights and switches.
type Gate struct {
	state State
	delay uint64
}

// NewGate creates a gate owned by owner. The owner is also the initial treasury.
func NewGate(owner string, delay uint64) *Gate {
	return &Gate{state: State{Owner: owner, Treasury: owner}, delay: delay}
}

// RestoreGate rebuilds a gate from persisted state.
func RestoreGate(state State, delay uint64) *Gate {
	if state.Pending != nil {
		pending := *state.Pending
		state.Pending = &pending
	}
	return &Gate{state: state, delay: delay}
}

// State returns a copy of the gate's state.
func (g *Gate) State() State {
	state := g.state
	if g.state.Pending != nil {
		pending := *g.state.Pending
		state.Pending = &pending
	}
	return state
}

func (g *Gate) Owner() string    { return g.state.Owner }
func (g *Gate) Treasury() string { return g.state.Treasury }
func (g *Gate) Paused() bool     { return g.state.Paused }
func (g *Gate) Emergency() bool  { return g.state.Emergency }

// IsPrivileged reports whether caller holds administrative rights.
func (g *Gate) IsPrivileged(caller string) bool {
	return caller != "" && caller == g.state.Owner
}

// CheckOpen fails when operations are halted. Paused is checked before emergency.
func (g *Gate) CheckOpen() error {
	if g.state.Paused {
		return apperr.ErrContractPaused
	}
	if g.state.Emergency {
		return apperr.ErrEmergencyMode
	}
	return nil
}

// RequirePrivileged fails unless caller is the owner.
func (g *Gate) RequirePrivileged(caller string) error {
	if !g.IsPrivileged(caller) {
		return fmt.Errorf("caller %q: %w", caller, apperr.ErrPrivilegedOnly)
	}
	return nil
}

func (g *Gate) Pause(caller string) error {
	return g.set(caller, func(s *State) { s.Paused = true })
}

func (g *Gate) Unpause(caller string) error {
	return g.set(caller, func(s *State) { s.Paused = false })
}

func (g *Gate) EnableEmergency(caller string) error {
	return g.set(caller, func(s *State) { s.Emergency = true })
}

func (g *Gate) DisableEmergency(caller string) error {
	return g.set(caller, func(s *State) { s.Emergency = false })
}

func (g *Gate) set(caller string, fn func(*State)) error {
	if err := g.RequirePrivileged(caller); err != nil {
		return err
	}
	fn(&g.state)
	return nil
}

// Pending returns the waiting treasury change, if any.
func (g *Gate) Pending() (PendingTreasury, bool) {
	if g.state.Pending == nil {
		return PendingTreasury{}, false
	}
	return *g.state.Pending, true
}

// SetTreasury schedules account to become the treasury once the delay has passed.
// A new call replaces any earlier pending change and restarts the timelock.
func (g *Gate) SetTreasury(caller, account string, height uint64) (PendingTreasury, error) {
	if err := g.RequirePrivileged(caller); err != nil {
		return PendingTreasury{}, err
	}
	if account == "" {
		return PendingTreasury{}, fmt.Errorf("treasury: empty account: %w", apperr.ErrInvalidInput)
	}
	eligible := height + g.delay
	if eligible < height {
		return PendingTreasury{}, fmt.Errorf("treasury eligible height: %w", apperr.ErrOverflow)
	}
	g.state.Pending = &PendingTreasury{Account: account, EligibleHeight: eligible}
	return *g.state.Pending, nil
}

// ExecuteTreasuryChange commits the pending treasury once height reaches its
// eligible height.
func (g *Gate) ExecuteTreasuryChange(caller string, height uint64) (string, error) {
	if err := g.RequirePrivileged(caller); err != nil {
		return "", err
	}
	pending, ok := g.Pending()
	if !ok {
		return "", fmt.Errorf("treasury change: nothing pending: %w", apperr.ErrNotFound)
	}
	if height < pending.EligibleHeight {
		return "", fmt.Errorf("treasury change: timelock active until %d (now %d): %w",
			pending.EligibleHeight, height, apperr.ErrUnauthorized)
	}
	g.state.Treasury = pending.Account
	g.state.Pending = nil
	return pending.Account, nil
}
