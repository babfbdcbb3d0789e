package engine

import (
	"fmt"
	"math/bits"

	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/Alias1177/FixPredict/models"
)

const bpsDenominator = 10000

// Submit stakes a prediction by caller that equipment will need maintenance by
// targetHeight. The stake leaves caller's spendable balance until validation.
func (e *Engine) Submit(caller string, equipmentID, targetHeight, stake, coverage uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	height := e.now()
	if err := e.gate.CheckOpen(); err != nil {
		return 0, e.reject("submit prediction", err)
	}
	if !e.registry.EquipmentExists(equipmentID) {
		return 0, e.reject("submit prediction", fmt.Errorf("equipment %d: %w", equipmentID, apperr.ErrNotFound))
	}
	if !e.registry.ProviderExists(caller) {
		return 0, e.reject("submit prediction", fmt.Errorf("provider %q: %w", caller, apperr.ErrNotFound))
	}
	if stake < e.params.MinStake {
		return 0, e.reject("submit prediction", fmt.Errorf("stake %d below minimum %d: %w", stake, e.params.MinStake, apperr.ErrInvalidStake))
	}
	if coverage == 0 {
		return 0, e.reject("submit prediction", fmt.Errorf("zero coverage: %w", apperr.ErrInvalidInput))
	}
	if targetHeight <= height {
		return 0, e.reject("submit prediction", fmt.Errorf("target height %d not after current height %d: %w", targetHeight, height, apperr.ErrInvalidInput))
	}

	tx := e.ledger.Begin()
	if err := tx.Hold(caller, stake); err != nil {
		return 0, e.reject("submit prediction", err)
	}
	tx.Commit()

	c := models.Contract{
		ID:           e.nextContractID,
		EquipmentID:  equipmentID,
		Provider:     caller,
		TargetHeight: targetHeight,
		Stake:        stake,
		Coverage:     coverage,
		Status:       models.StatusPending,
		SubmittedAt:  height,
	}
	e.contracts[c.ID] = c
	e.nextContractID++
	e.totalPredictions++

	e.logger.Info().
		Uint64("contract_id", c.ID).
		Uint64("equipment_id", equipmentID).
		Str("provider", caller).
		Uint64("stake", stake).
		Uint64("target_height", targetHeight).
		Msg("prediction submitted")
	e.emit(models.Event{Kind: models.EventPredictionSubmitted, Height: height, Account: caller, ContractID: c.ID, Amount: stake})
	return c.ID, nil
}

// Validate settles contract id on the word of the equipment owner. When
// maintenance occurred the provider gets the stake back plus the reward;
// otherwise the stake is forfeited to the insurance pool.
func (e *Engine) Validate(caller string, id uint64, maintenanceOccurred bool) (models.Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	height := e.now()
	if err := e.gate.CheckOpen(); err != nil {
		return "", e.reject("validate prediction", err)
	}
	c, ok := e.contracts[id]
	if !ok {
		return "", e.reject("validate prediction", fmt.Errorf("contract %d: %w", id, apperr.ErrNotFound))
	}
	owner, ok := e.registry.EquipmentOwner(c.EquipmentID)
	if !ok {
		return "", e.reject("validate prediction", fmt.Errorf("equipment %d: %w", c.EquipmentID, apperr.ErrNotFound))
	}
	if caller != owner {
		return "", e.reject("validate prediction", fmt.Errorf("caller %q does not own equipment %d: %w", caller, c.EquipmentID, apperr.ErrUnauthorized))
	}
	if c.Status != models.StatusPending {
		return "", e.reject("validate prediction", fmt.Errorf("contract %d already %s: %w", id, c.Status, apperr.ErrUnauthorized))
	}
	if height < c.TargetHeight {
		return "", e.reject("validate prediction", fmt.Errorf("contract %d window closes at %d (now %d): %w", id, c.TargetHeight, height, apperr.ErrTooEarly))
	}
	if _, err := e.book.Score(c.Provider); err != nil {
		return "", e.reject("validate prediction", err)
	}

	tx := e.ledger.Begin()
	outcome := models.OutcomeFailed
	status := models.StatusIncorrectValidated
	var reward uint64

	if maintenanceOccurred {
		outcome = models.OutcomeCorrect
		status = models.StatusCorrectValidated

		if err := tx.Release(c.Provider, c.Stake); err != nil {
			return "", e.reject("validate prediction", err)
		}
		want, err := mulDiv(c.Stake, e.params.RewardBps, bpsDenominator)
		if err != nil {
			return "", e.reject("validate prediction", err)
		}
		// a treasury paying itself would record a reward that moved nothing
		if treasury := e.gate.Treasury(); treasury != c.Provider {
			reward = min(want, tx.Balance(treasury))
			if err := tx.Transfer(treasury, c.Provider, reward); err != nil {
				return "", e.reject("validate prediction", err)
			}
		}
	} else {
		if err := tx.Release(PoolAccount, c.Stake); err != nil {
			return "", e.reject("validate prediction", err)
		}
	}

	tx.Commit()
	score, _ := e.book.ApplyOutcome(c.Provider, maintenanceOccurred)
	c.Status = status
	c.ValidatedAt = height
	c.Reward = reward
	e.contracts[id] = c

	e.logger.Info().
		Uint64("contract_id", id).
		Str("outcome", string(outcome)).
		Uint64("reward", reward).
		Uint32("reputation", score).
		Msg("prediction validated")
	e.emit(models.Event{Kind: models.EventPredictionValidated, Height: height, Account: c.Provider, ContractID: id, Amount: reward, Detail: string(outcome)})
	return outcome, nil
}

// Contract returns the prediction contract with id, or false.
func (e *Engine) Contract(id uint64) (models.Contract, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.contracts[id]
	return c, ok
}

// StakingPosition returns provider's stake on contract id, or false when the
// contract is unknown or belongs to someone else.
func (e *Engine) StakingPosition(id uint64, provider string) (models.StakingPosition, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.contracts[id]
	if !ok || c.Provider != provider {
		return models.StakingPosition{}, false
	}
	return models.StakingPosition{
		ContractID: id,
		Provider:   provider,
		Amount:     c.Stake,
		Locked:     c.Status == models.StatusPending,
	}, true
}

// mulDiv returns a*b/d truncated, computing a*b in 128 bits.
func mulDiv(a, b, d uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, fmt.Errorf("%d*%d/%d: %w", a, b, d, apperr.ErrOverflow)
	}
	q, _ := bits.Div64(hi, lo, d)
	return q, nil
}
