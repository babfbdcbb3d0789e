package engine

import (
	"github.com/Alias1177/FixPredict/internal/access"
	"github.com/Alias1177/FixPredict/models"
)

// Pause halts every state-changing operation except administration.
func (e *Engine) Pause(caller string) error {
	return e.admin("pause", caller, e.gate.Pause)
}

// Unpause lifts a pause.
func (e *Engine) Unpause(caller string) error {
	return e.admin("unpause", caller, e.gate.Unpause)
}

// EnableEmergency halts operations like Pause, failing them with ErrEmergencyMode.
func (e *Engine) EnableEmergency(caller string) error {
	return e.admin("enable emergency", caller, e.gate.EnableEmergency)
}

// DisableEmergency leaves emergency mode.
func (e *Engine) DisableEmergency(caller string) error {
	return e.admin("disable emergency", caller, e.gate.DisableEmergency)
}

func (e *Engine) admin(op, caller string, fn func(string) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	height := e.now()
	if err := fn(caller); err != nil {
		return e.reject(op, err)
	}
	e.logger.Warn().Str("op", op).Str("caller", caller).Msg("administrative switch changed")
	e.emit(models.Event{Kind: models.EventAdminChanged, Height: height, Account: caller, Detail: op})
	return nil
}

// Paused reports whether the platform is paused.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate.Paused()
}

// Emergency reports whether emergency mode is on.
func (e *Engine) Emergency() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate.Emergency()
}

// Owner returns the administrator account.
func (e *Engine) Owner() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate.Owner()
}

// Treasury returns the account that funds rewards and backs claim payouts.
func (e *Engine) Treasury() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate.Treasury()
}

// PendingTreasury returns the scheduled treasury change, if any.
func (e *Engine) PendingTreasury() (access.PendingTreasury, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate.Pending()
}

// SetTreasury schedules a treasury change behind the timelock.
func (e *Engine) SetTreasury(caller, account string) (access.PendingTreasury, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	height := e.now()
	pending, err := e.gate.SetTreasury(caller, account, height)
	if err != nil {
		return access.PendingTreasury{}, e.reject("set treasury", err)
	}
	e.logger.Warn().Str("account", account).Uint64("eligible_height", pending.EligibleHeight).Msg("treasury change scheduled")
	e.emit(models.Event{Kind: models.EventAdminChanged, Height: height, Account: account, Detail: "treasury scheduled"})
	return pending, nil
}

// ExecuteTreasuryChange commits the scheduled treasury once its timelock passed.
func (e *Engine) ExecuteTreasuryChange(caller string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	height := e.now()
	account, err := e.gate.ExecuteTreasuryChange(caller, height)
	if err != nil {
		return "", e.reject("execute treasury change", err)
	}
	e.logger.Warn().Str("account", account).Msg("treasury changed")
	e.emit(models.Event{Kind: models.EventAdminChanged, Height: height, Account: account, Detail: "treasury changed"})
	return account, nil
}
