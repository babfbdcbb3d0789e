// Package ledger implements the FIX token balances behind stake custody and payouts.
package ledger

import (
	"fmt"
	"math/bits"

	"github.com/Alias1177/FixPredict/internal/apperr"
)

// Ledger maps accounts to balances. Tokens enter only through Mint; staked tokens
// sit in the held bucket until released. Ledger is not safe for concurrent use,
// the engine serializes every call.
type Ledger struct {
	balances map[string]uint64
	minted   uint64
	held     uint64
}

// New creates an empty ledger
func New() *Ledger {
	return &Ledger{balances: make(map[string]uint64)}
}

// Restore rebuilds a ledger from persisted state
func Restore(balances map[string]uint64, minted, held uint64) *Ledger {
	l := New()
	for account, amount := range balances {
		if amount > 0 {
			l.balances[account] = amount
		}
	}
	l.minted = minted
	l.held = held
	return l
}

// Balance returns the spendable balance of account, 0 when unknown.
func (l *Ledger) Balance(account string) uint64 {
	return l.balances[account]
}

// Minted returns the cumulative amount ever minted.
func (l *Ledger) Minted() uint64 {
	return l.minted
}

// Held returns the amount currently in custody.
func (l *Ledger) Held() uint64 {
	return l.held
}

// Balances returns a copy of every non-zero balance.
func (l *Ledger) Balances() map[string]uint64 {
	out := make(map[string]uint64, len(l.balances))
	for account, amount := range l.balances {
		out[account] = amount
	}
	return out
}

// Conserved reports whether spendable balances plus custody equal everything minted.
func (l *Ledger) Conserved() bool {
	var sum, carry uint64
	for _, amount := range l.balances {
		var c uint64
		sum, c = bits.Add64(sum, amount, 0)
		carry |= c
	}
	sum, c := bits.Add64(sum, l.held, 0)
	carry |= c
	return carry == 0 && sum == l.minted
}

// Mint creates amount new tokens for recipient.
func (l *Ledger) Mint(amount uint64, recipient string) error {
	tx := l.Begin()
	if err := tx.Mint(amount, recipient); err != nil {
		return err
	}
	tx.Commit()
	return nil
}

// Debit decreases the balance of account.
func (l *Ledger) Debit(account string, amount uint64) error {
	tx := l.Begin()
	if err := tx.Debit(account, amount); err != nil {
		return err
	}
	tx.Commit()
	return nil
}

// Credit increases the balance of account.
func (l *Ledger) Credit(account string, amount uint64) error {
	tx := l.Begin()
	if err := tx.Credit(account, amount); err != nil {
		return err
	}
	tx.Commit()
	return nil
}

// Tx stages balance changes over a ledger. Nothing is visible to the ledger until
// Commit; an abandoned Tx leaves it untouched.
type Tx struct {
	l        *Ledger
	balances map[string]uint64
	minted   uint64
	held     uint64
}

// Begin starts a staged set of changes
func (l *Ledger) Begin() *Tx {
	return &Tx{
		l:        l,
		balances: make(map[string]uint64),
		minted:   l.minted,
		held:     l.held,
	}
}

// Balance returns the staged balance of account.
func (tx *Tx) Balance(account string) uint64 {
	if amount, ok := tx.balances[account]; ok {
		return amount
	}
	return tx.l.balances[account]
}

// Mint stages the creation of amount tokens for recipient.
func (tx *Tx) Mint(amount uint64, recipient string) error {
	if amount == 0 {
		return fmt.Errorf("mint: zero amount: %w", apperr.ErrInvalidInput)
	}
	if recipient == "" {
		return fmt.Errorf("mint: empty recipient: %w", apperr.ErrInvalidInput)
	}
	minted, carry := bits.Add64(tx.minted, amount, 0)
	if carry != 0 {
		return fmt.Errorf("mint %d: total supply: %w", amount, apperr.ErrOverflow)
	}
	if err := tx.Credit(recipient, amount); err != nil {
		return err
	}
	tx.minted = minted
	return nil
}

// Credit stages an increase of account's balance.
func (tx *Tx) Credit(account string, amount uint64) error {
	if account == "" {
		return fmt.Errorf("credit: empty account: %w", apperr.ErrInvalidInput)
	}
	balance, carry := bits.Add64(tx.Balance(account), amount, 0)
	if carry != 0 {
		return fmt.Errorf("credit %d to %s: %w", amount, account, apperr.ErrOverflow)
	}
	tx.balances[account] = balance
	return nil
}

// Debit stages a decrease of account's balance.
func (tx *Tx) Debit(account string, amount uint64) error {
	balance := tx.Balance(account)
	if balance < amount {
		return fmt.Errorf("debit %d from %s (balance %d): %w", amount, account, balance, apperr.ErrInsufficientFunds)
	}
	tx.balances[account] = balance - amount
	return nil
}

// Hold moves amount from account into custody.
func (tx *Tx) Hold(account string, amount uint64) error {
	if err := tx.Debit(account, amount); err != nil {
		return err
	}
	// held never exceeds minted, so this cannot wrap
	tx.held += amount
	return nil
}

// Release moves amount out of custody to account.
func (tx *Tx) Release(account string, amount uint64) error {
	if amount > tx.held {
		return fmt.Errorf("release %d (held %d): %w", amount, tx.held, apperr.ErrInsufficientFunds)
	}
	if err := tx.Credit(account, amount); err != nil {
		return err
	}
	tx.held -= amount
	return nil
}

// Transfer moves amount between two accounts.
func (tx *Tx) Transfer(from, to string, amount uint64) error {
	if err := tx.Debit(from, amount); err != nil {
		return err
	}
	return tx.Credit(to, amount)
}

// Commit applies every staged change. It cannot fail: all checks ran when the
// changes were staged.
func (tx *Tx) Commit() {
	for account, amount := range tx.balances {
		if amount == 0 {
			delete(tx.l.balances, account)
			continue
		}
		tx.l.balances[account] = amount
	}
	tx.l.minted = tx.minted
	tx.l.held = tx.held
}
