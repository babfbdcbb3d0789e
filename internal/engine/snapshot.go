package engine

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Alias1177/FixPredict/internal/access"
	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/Alias1177/FixPredict/internal/ledger"
	"github.com/Alias1177/FixPredict/internal/registry"
	"github.com/Alias1177/FixPredict/internal/reputation"
	"github.com/Alias1177/FixPredict/models"
	"github.com/rs/zerolog"
)

// SnapshotVersion is bumped whenever the snapshot layout changes.
const SnapshotVersion = 1

// AccountBalance is one ledger entry of a snapshot.
type AccountBalance struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

// ProviderScore is one reputation entry of a snapshot.
type ProviderScore struct {
	Provider string `json:"provider"`
	Score    uint32 `json:"score"`
}

// Snapshot is the complete persisted state of an engine. Every collection is
// sorted so equal states encode to equal bytes.
type Snapshot struct {
	Version          int                `json:"version"`
	Height           uint64             `json:"height"`
	Access           access.State       `json:"access"`
	Minted           uint64             `json:"minted"`
	Held             uint64             `json:"held"`
	Balances         []AccountBalance   `json:"balances"`
	Reputation       []ProviderScore    `json:"reputation"`
	Equipment        []models.Equipment `json:"equipment"`
	Providers        []models.Provider  `json:"providers"`
	Contracts        []models.Contract  `json:"contracts"`
	Claims           []models.Claim     `json:"claims"`
	NextEquipmentID  uint64             `json:"next_equipment_id"`
	NextContractID   uint64             `json:"next_contract_id"`
	NextClaimID      uint64             `json:"next_claim_id"`
	TotalPredictions uint64             `json:"total_predictions"`
	MintReferences   []string           `json:"mint_references"`
}

// Snapshot exports the engine state.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := &Snapshot{
		Version:          SnapshotVersion,
		Height:           e.lastHeight,
		Access:           e.gate.State(),
		Minted:           e.ledger.Minted(),
		Held:             e.ledger.Held(),
		Balances:         []AccountBalance{},
		Reputation:       []ProviderScore{},
		Equipment:        e.registry.AllEquipment(),
		Providers:        e.registry.AllProviders(),
		Contracts:        make([]models.Contract, 0, len(e.contracts)),
		Claims:           make([]models.Claim, 0, len(e.claims)),
		NextEquipmentID:  e.registry.NextEquipmentID(),
		NextContractID:   e.nextContractID,
		NextClaimID:      e.nextClaimID,
		TotalPredictions: e.totalPredictions,
		MintReferences:   make([]string, 0, len(e.mintRefs)),
	}
	for account, amount := range e.ledger.Balances() {
		snap.Balances = append(snap.Balances, AccountBalance{Account: account, Amount: amount})
	}
	sort.Slice(snap.Balances, func(i, j int) bool { return snap.Balances[i].Account < snap.Balances[j].Account })

	for provider, score := range e.book.Scores() {
		snap.Reputation = append(snap.Reputation, ProviderScore{Provider: provider, Score: score})
	}
	sort.Slice(snap.Reputation, func(i, j int) bool { return snap.Reputation[i].Provider < snap.Reputation[j].Provider })

	for _, c := range e.contracts {
		snap.Contracts = append(snap.Contracts, c)
	}
	sort.Slice(snap.Contracts, func(i, j int) bool { return snap.Contracts[i].ID < snap.Contracts[j].ID })

	for _, cl := range e.claims {
		snap.Claims = append(snap.Claims, cl)
	}
	sort.Slice(snap.Claims, func(i, j int) bool { return snap.Claims[i].ID < snap.Claims[j].ID })

	for ref := range e.mintRefs {
		snap.MintReferences = append(snap.MintReferences, ref)
	}
	sort.Strings(snap.MintReferences)
	return snap
}

// Marshal encodes the snapshot as JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalSnapshot decodes a snapshot written by Marshal.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d: %w", snap.Version, SnapshotVersion, apperr.ErrInvalidInput)
	}
	return &snap, nil
}

// Restore rebuilds an engine from snap. The clock must not be behind the
// snapshot's height.
func Restore(snap *Snapshot, clock Clock, params Params, logger zerolog.Logger) (*Engine, error) {
	if snap == nil {
		return nil, fmt.Errorf("restore: nil snapshot: %w", apperr.ErrInvalidInput)
	}
	if snap.Access.Owner == "" {
		return nil, fmt.Errorf("restore: snapshot has no owner: %w", apperr.ErrInvalidInput)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if h := clock.Height(); h < snap.Height {
		return nil, fmt.Errorf("restore: clock at %d behind snapshot height %d: %w", h, snap.Height, apperr.ErrInvalidInput)
	}

	e := newEngine(clock, params, logger)
	e.lastHeight = snap.Height

	balances := make(map[string]uint64, len(snap.Balances))
	for _, b := range snap.Balances {
		balances[b.Account] = b.Amount
	}
	e.ledger = ledger.Restore(balances, snap.Minted, snap.Held)
	if !e.ledger.Conserved() {
		return nil, fmt.Errorf("restore: balances and custody do not add up to %d minted: %w", snap.Minted, apperr.ErrInvalidInput)
	}

	scores := make(map[string]uint32, len(snap.Reputation))
	for _, s := range snap.Reputation {
		scores[s.Provider] = s.Score
	}
	e.book = reputation.RestoreBook(scores)
	e.registry = registry.Restore(snap.Equipment, snap.Providers, snap.NextEquipmentID, e.newLimiter())
	e.gate = access.RestoreGate(snap.Access, params.TreasuryDelay)

	for _, c := range snap.Contracts {
		e.contracts[c.ID] = c
		if c.ID >= e.nextContractID {
			e.nextContractID = c.ID + 1
		}
	}
	for _, cl := range snap.Claims {
		if _, ok := e.contracts[cl.ContractID]; !ok {
			return nil, fmt.Errorf("restore: claim %d references contract %d: %w", cl.ID, cl.ContractID, apperr.ErrNotFound)
		}
		e.claims[cl.ID] = cl
		e.claimByContract[cl.ContractID] = cl.ID
		if cl.ID >= e.nextClaimID {
			e.nextClaimID = cl.ID + 1
		}
	}
	if snap.NextContractID > e.nextContractID {
		e.nextContractID = snap.NextContractID
	}
	if snap.NextClaimID > e.nextClaimID {
		e.nextClaimID = snap.NextClaimID
	}
	e.totalPredictions = snap.TotalPredictions
	for _, ref := range snap.MintReferences {
		e.mintRefs[ref] = struct{}{}
	}

	e.logger.Debug().Uint64("height", snap.Height).Int("contracts", len(snap.Contracts)).Msg("engine restored")
	return e, nil
}
