package models

import (
	"github.com/google/uuid"
)

// ContractStatus is the lifecycle state of a prediction contract.
type ContractStatus string

// Contract statuses. Pending is the only non-terminal state.
const (
	StatusPending            ContractStatus = "pending"
	StatusCorrectValidated   ContractStatus = "correct-validated"
	StatusIncorrectValidated ContractStatus = "incorrect-validated"
)

// Terminal reports whether no further transition is possible.
func (s ContractStatus) Terminal() bool {
	return s == StatusCorrectValidated || s == StatusIncorrectValidated
}

// Outcome is the result of validating a prediction.
type Outcome string

const (
	OutcomeCorrect Outcome = "prediction-correct"
	OutcomeFailed  Outcome = "prediction-failed"
)

// ClaimStatus is the lifecycle state of an insurance claim.
type ClaimStatus string

const (
	ClaimPendingReview ClaimStatus = "pending-review"
	ClaimApproved      ClaimStatus = "claim-approved"
	ClaimRejected      ClaimStatus = "claim-rejected"
)

// Contract is one staked maintenance prediction.
type Contract struct {
	ID           uint64         `json:"id" yaml:"id"`
	EquipmentID  uint64         `json:"equipment_id" yaml:"equipment_id"`
	Provider     string         `json:"provider" yaml:"provider"`
	TargetHeight uint64         `json:"target_height" yaml:"target_height"`
	Stake        uint64         `json:"stake" yaml:"stake"`
	Coverage     uint64         `json:"coverage" yaml:"coverage"`
	Status       ContractStatus `json:"status" yaml:"status"`
	SubmittedAt  uint64         `json:"submitted_at" yaml:"submitted_at"`
	ValidatedAt  uint64         `json:"validated_at,omitempty" yaml:"validated_at,omitempty"`
	Reward       uint64         `json:"reward,omitempty" yaml:"reward,omitempty"` // paid on top of the returned stake
}

// Claim is an insurance claim against an incorrectly validated contract.
type Claim struct {
	ID          uint64      `json:"id" yaml:"id"`
	ContractID  uint64      `json:"contract_id" yaml:"contract_id"`
	Claimant    string      `json:"claimant" yaml:"claimant"`
	Requested   uint64      `json:"requested" yaml:"requested"`
	Description string      `json:"description" yaml:"description"`
	Status      ClaimStatus `json:"status" yaml:"status"`
	FiledAt     uint64      `json:"filed_at" yaml:"filed_at"`
	ProcessedAt uint64      `json:"processed_at,omitempty" yaml:"processed_at,omitempty"`
	Paid        uint64      `json:"paid,omitempty" yaml:"paid,omitempty"`
}

// Equipment is a registered physical asset.
type Equipment struct {
	ID           uint64 `json:"id" yaml:"id"`
	Owner        string `json:"owner" yaml:"owner"`
	Name         string `json:"name" yaml:"name"`
	Location     string `json:"location" yaml:"location"`
	SensorHash   string `json:"sensor_hash" yaml:"sensor_hash"`
	RegisteredAt uint64 `json:"registered_at" yaml:"registered_at"`
}

// Provider is a registered maintenance service provider.
type Provider struct {
	Account      string `json:"account" yaml:"account"`
	Name         string `json:"name" yaml:"name"`
	RegisteredAt uint64 `json:"registered_at" yaml:"registered_at"`
}

// StakingPosition is the stake a provider holds on a contract.
type StakingPosition struct {
	ContractID uint64 `json:"contract_id" yaml:"contract_id"`
	Provider   string `json:"provider" yaml:"provider"`
	Amount     uint64 `json:"amount" yaml:"amount"`
	Locked     bool   `json:"locked" yaml:"locked"`
}

// Stats holds the raw platform counters.
type Stats struct {
	TotalEquipment   uint64 `json:"total_equipment" yaml:"total_equipment"`
	TotalPredictions uint64 `json:"total_predictions" yaml:"total_predictions"`
	ContractPaused   bool   `json:"contract_paused" yaml:"contract_paused"`
	EmergencyMode    bool   `json:"emergency_mode" yaml:"emergency_mode"`
}

// EventKind names a committed state transition.
type EventKind string

const (
	EventMinted              EventKind = "minted"
	EventEquipmentRegistered EventKind = "equipment-registered"
	EventProviderRegistered  EventKind = "provider-registered"
	EventPredictionSubmitted EventKind = "prediction-submitted"
	EventPredictionValidated EventKind = "prediction-validated"
	EventClaimFiled          EventKind = "claim-filed"
	EventClaimProcessed      EventKind = "claim-processed"
	EventAdminChanged        EventKind = "admin-changed"
)

// Event records one committed transition for the journal and notifications.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Kind       EventKind `json:"kind"`
	Height     uint64    `json:"height"`
	Account    string    `json:"account,omitempty"`
	ContractID uint64    `json:"contract_id,omitempty"`
	ClaimID    uint64    `json:"claim_id,omitempty"`
	Amount     uint64    `json:"amount,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}
