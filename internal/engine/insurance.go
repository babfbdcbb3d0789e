package engine

import (
	"fmt"
	"math/bits"
	"strings"
	"unicode/utf8"

	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/Alias1177/FixPredict/models"
)

const (
	// PremiumPercent is the insurance premium rate applied to coverage.
	PremiumPercent = 5
	// MaxDescriptionLength bounds a claim description.
	MaxDescriptionLength = 500
)

// Premium returns the insurance premium for coverage, truncated toward zero.
func Premium(coverage uint64) uint64 {
	hi, lo := bits.Mul64(coverage, PremiumPercent)
	// hi < PremiumPercent < 100, so the division cannot overflow
	q, _ := bits.Div64(hi, lo, 100)
	return q
}

// FileClaim opens an insurance claim by caller against a contract whose
// prediction failed. Each contract takes at most one claim.
func (e *Engine) FileClaim(caller string, contractID, requested uint64, description string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	height := e.now()
	if err := e.gate.CheckOpen(); err != nil {
		return 0, e.reject("file claim", err)
	}
	c, ok := e.contracts[contractID]
	if !ok {
		return 0, e.reject("file claim", fmt.Errorf("contract %d: %w", contractID, apperr.ErrNotFound))
	}
	if c.Status != models.StatusIncorrectValidated {
		return 0, e.reject("file claim", fmt.Errorf("contract %d is %s: %w", contractID, c.Status, apperr.ErrUnauthorized))
	}
	if existing, ok := e.claimByContract[contractID]; ok {
		return 0, e.reject("file claim", fmt.Errorf("contract %d has claim %d: %w", contractID, existing, apperr.ErrAlreadyExists))
	}
	if caller == "" {
		return 0, e.reject("file claim", fmt.Errorf("empty claimant: %w", apperr.ErrInvalidInput))
	}
	if requested == 0 {
		return 0, e.reject("file claim", fmt.Errorf("zero amount: %w", apperr.ErrInvalidInput))
	}
	if strings.TrimSpace(description) == "" || utf8.RuneCountInString(description) > MaxDescriptionLength {
		return 0, e.reject("file claim", fmt.Errorf("description must be 1-%d characters: %w", MaxDescriptionLength, apperr.ErrInvalidInput))
	}

	cl := models.Claim{
		ID:          e.nextClaimID,
		ContractID:  contractID,
		Claimant:    caller,
		Requested:   requested,
		Description: description,
		Status:      models.ClaimPendingReview,
		FiledAt:     height,
	}
	e.claims[cl.ID] = cl
	e.claimByContract[contractID] = cl.ID
	e.nextClaimID++

	e.logger.Info().Uint64("claim_id", cl.ID).Uint64("contract_id", contractID).Uint64("requested", requested).Msg("insurance claim filed")
	e.emit(models.Event{Kind: models.EventClaimFiled, Height: height, Account: caller, ContractID: contractID, ClaimID: cl.ID, Amount: requested})
	return cl.ID, nil
}

// ProcessClaim adjudicates a pending claim. Approval pays min(requested,
// coverage) to the claimant from the insurance pool, topped up by the treasury.
func (e *Engine) ProcessClaim(caller string, id uint64, approve bool) (models.ClaimStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	height := e.now()
	if err := e.gate.CheckOpen(); err != nil {
		return "", e.reject("process claim", err)
	}
	if err := e.gate.RequirePrivileged(caller); err != nil {
		return "", e.reject("process claim", err)
	}
	cl, ok := e.claims[id]
	if !ok {
		return "", e.reject("process claim", fmt.Errorf("claim %d: %w", id, apperr.ErrNotFound))
	}
	if cl.Status != models.ClaimPendingReview {
		return "", e.reject("process claim", fmt.Errorf("claim %d already %s: %w", id, cl.Status, apperr.ErrUnauthorized))
	}

	status := models.ClaimRejected
	var paid uint64
	if approve {
		c := e.contracts[cl.ContractID]
		paid = min(cl.Requested, c.Coverage)

		tx := e.ledger.Begin()
		fromPool := min(paid, tx.Balance(PoolAccount))
		if err := tx.Transfer(PoolAccount, cl.Claimant, fromPool); err != nil {
			return "", e.reject("process claim", err)
		}
		if err := tx.Transfer(e.gate.Treasury(), cl.Claimant, paid-fromPool); err != nil {
			return "", e.reject("process claim", fmt.Errorf("treasury top-up: %w", err))
		}
		tx.Commit()
		status = models.ClaimApproved
	}

	cl.Status = status
	cl.ProcessedAt = height
	cl.Paid = paid
	e.claims[id] = cl

	e.logger.Info().Uint64("claim_id", id).Str("status", string(status)).Uint64("paid", paid).Msg("insurance claim processed")
	e.emit(models.Event{Kind: models.EventClaimProcessed, Height: height, Account: cl.Claimant, ContractID: cl.ContractID, ClaimID: id, Amount: paid, Detail: string(status)})
	return status, nil
}

// Claim returns the insurance claim with id, or false.
func (e *Engine) Claim(id uint64) (models.Claim, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cl, ok := e.claims[id]
	return cl, ok
}

// ClaimForContract returns the claim filed against contract id, or false.
func (e *Engine) ClaimForContract(contractID uint64) (models.Claim, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.claimByContract[contractID]
	if !ok {
		return models.Claim{}, false
	}
	return e.claims[id], true
}
