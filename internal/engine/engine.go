// Package engine is the FixPredict state machine: prediction contracts, their
// settlement against the FIX ledger, provider reputation and insurance claims.
//
// Every exported method takes the engine lock for its whole duration, checks all
// preconditions, stages ledger movements in a ledger.Tx and only then commits.
// A failed call leaves no trace.
package engine

import (
	"fmt"
	"math/bits"
	"sync"

	"github.com/Alias1177/FixPredict/internal/access"
	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/Alias1177/FixPredict/internal/ledger"
	"github.com/Alias1177/FixPredict/internal/ratelimit"
	"github.com/Alias1177/FixPredict/internal/registry"
	"github.com/Alias1177/FixPredict/internal/reputation"
	"github.com/Alias1177/FixPredict/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PoolAccount receives forfeited stakes and funds approved claims first.
const PoolAccount = "pool:insurance"

// Params are the tunable economics of the platform.
type Params struct {
	MinStake        uint64 `mapstructure:"min_stake" yaml:"min_stake"`
	RewardBps       uint64 `mapstructure:"reward_bps" yaml:"reward_bps"` // reward on a correct prediction, in basis points of the stake
	TreasuryDelay   uint64 `mapstructure:"treasury_delay" yaml:"treasury_delay"`
	RateLimitMax    int    `mapstructure:"rate_limit_max" yaml:"rate_limit_max"`
	RateLimitWindow uint64 `mapstructure:"rate_limit_window" yaml:"rate_limit_window"`
}

// DefaultParams returns the production economics.
func DefaultParams() Params {
	return Params{
		MinStake:        1000,
		RewardBps:       1000,
		TreasuryDelay:   access.DefaultTreasuryDelay,
		RateLimitMax:    5,
		RateLimitWindow: 144,
	}
}

// Validate checks params for values the engine cannot work with.
func (p Params) Validate() error {
	if p.MinStake == 0 {
		return fmt.Errorf("min stake must be positive: %w", apperr.ErrInvalidInput)
	}
	if p.RewardBps > bpsDenominator {
		return fmt.Errorf("reward bps %d above %d: %w", p.RewardBps, bpsDenominator, apperr.ErrInvalidInput)
	}
	return nil
}

// Clock supplies the logical height. The host advances it, the engine never does.
type Clock interface {
	Height() uint64
}

// ManualClock is a Clock advanced explicitly by its owner.
type ManualClock struct {
	mu     sync.Mutex
	height uint64
}

// NewManualClock creates a clock at height
func NewManualClock(height uint64) *ManualClock {
	return &ManualClock{height: height}
}

func (c *ManualClock) Height() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

// Advance moves the clock forward by n heights and returns the new height.
// The height never wraps: an advance past the largest height fails with
// ErrOverflow and leaves the clock where it was.
func (c *ManualClock) Advance(n uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, carry := bits.Add64(c.height, n, 0)
	if carry != 0 {
		return c.height, fmt.Errorf("advance height %d by %d: %w", c.height, n, apperr.ErrOverflow)
	}
	c.height = next
	return c.height, nil
}

// Engine owns every balance, score, contract and claim.
type Engine struct {
	mu     sync.Mutex
	params Params
	clock  Clock
	logger zerolog.Logger

	ledger   *ledger.Ledger
	book     *reputation.Book
	registry *registry.Registry
	gate     *access.Gate

	contracts        map[uint64]models.Contract
	claims           map[uint64]models.Claim
	claimByContract  map[uint64]uint64
	nextContractID   uint64
	nextClaimID      uint64
	totalPredictions uint64
	mintRefs         map[string]struct{}
	lastHeight       uint64

	events []models.Event
}

// New creates an empty engine administered by owner.
func New(owner string, clock Clock, params Params, logger zerolog.Logger) (*Engine, error) {
	if owner == "" {
		return nil, fmt.Errorf("engine owner: %w", apperr.ErrInvalidInput)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	e := newEngine(clock, params, logger)
	e.ledger = ledger.New()
	e.book = reputation.NewBook()
	e.registry = registry.New(e.newLimiter())
	e.gate = access.NewGate(owner, params.TreasuryDelay)
	return e, nil
}

func newEngine(clock Clock, params Params, logger zerolog.Logger) *Engine {
	return &Engine{
		params:          params,
		clock:           clock,
		logger:          logger.With().Str("component", "engine").Logger(),
		contracts:       make(map[uint64]models.Contract),
		claims:          make(map[uint64]models.Claim),
		claimByContract: make(map[uint64]uint64),
		nextContractID:  1,
		nextClaimID:     1,
		mintRefs:        make(map[string]struct{}),
	}
}

func (e *Engine) newLimiter() *ratelimit.Limiter {
	return ratelimit.New(e.params.RateLimitMax, e.params.RateLimitWindow)
}

// now reads the clock and remembers the highest height seen for snapshots.
func (e *Engine) now() uint64 {
	h := e.clock.Height()
	if h > e.lastHeight {
		e.lastHeight = h
	}
	return h
}

func (e *Engine) emit(ev models.Event) {
	ev.ID = uuid.New()
	e.events = append(e.events, ev)
}

// DrainEvents returns the events committed since the last call.
func (e *Engine) DrainEvents() []models.Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := e.events
	e.events = nil
	return out
}

func (e *Engine) reject(op string, err error) error {
	e.logger.Debug().Err(err).Str("op", op).Msg("operation rejected")
	return fmt.Errorf("%s: %w", op, err)
}

// Mint creates amount tokens for recipient. Only the owner may mint.
func (e *Engine) Mint(caller string, amount uint64, recipient string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mint(caller, "", amount, recipient)
}

// MintOnce mints like Mint but at most once per external reference, such as a
// payment provider's event id. A repeated reference fails with AlreadyExists.
func (e *Engine) MintOnce(caller, reference string, amount uint64, recipient string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if reference == "" {
		return e.reject("mint", fmt.Errorf("empty reference: %w", apperr.ErrInvalidInput))
	}
	return e.mint(caller, reference, amount, recipient)
}

func (e *Engine) mint(caller, reference string, amount uint64, recipient string) error {
	height := e.now()
	if err := e.gate.CheckOpen(); err != nil {
		return e.reject("mint", err)
	}
	if err := e.gate.RequirePrivileged(caller); err != nil {
		return e.reject("mint", err)
	}
	if reference != "" {
		if _, seen := e.mintRefs[reference]; seen {
			return e.reject("mint", fmt.Errorf("reference %s: %w", reference, apperr.ErrAlreadyExists))
		}
	}

	tx := e.ledger.Begin()
	if err := tx.Mint(amount, recipient); err != nil {
		return e.reject("mint", err)
	}
	tx.Commit()
	if reference != "" {
		e.mintRefs[reference] = struct{}{}
	}

	e.logger.Info().Str("recipient", recipient).Uint64("amount", amount).Msg("tokens minted")
	e.emit(models.Event{Kind: models.EventMinted, Height: height, Account: recipient, Amount: amount, Detail: reference})
	return nil
}

// Balance returns the spendable balance of account.
func (e *Engine) Balance(account string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Balance(account)
}

// Conserved reports whether balances plus custody equal everything minted.
func (e *Engine) Conserved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Conserved()
}

// Held returns the total stake in custody.
func (e *Engine) Held() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Held()
}

// RegisterEquipment records an asset owned by caller and returns its id.
func (e *Engine) RegisterEquipment(caller, name, location, sensorID string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	height := e.now()
	if err := e.gate.CheckOpen(); err != nil {
		return 0, e.reject("register equipment", err)
	}
	eq, err := e.registry.RegisterEquipment(caller, name, location, sensorID, height)
	if err != nil {
		return 0, e.reject("register equipment", err)
	}

	e.logger.Info().Uint64("equipment_id", eq.ID).Str("owner", caller).Msg("equipment registered")
	e.emit(models.Event{Kind: models.EventEquipmentRegistered, Height: height, Account: caller, Detail: name})
	return eq.ID, nil
}

// RegisterProvider records caller as a service provider with the default reputation.
func (e *Engine) RegisterProvider(caller, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	height := e.now()
	if err := e.gate.CheckOpen(); err != nil {
		return e.reject("register provider", err)
	}
	if _, err := e.book.Score(caller); err == nil {
		return e.reject("register provider", fmt.Errorf("%s: %w", caller, apperr.ErrAlreadyExists))
	}
	if _, err := e.registry.RegisterProvider(caller, name, height); err != nil {
		return e.reject("register provider", err)
	}
	// cannot fail: absence was checked above
	_ = e.book.Open(caller)

	e.logger.Info().Str("provider", caller).Msg("provider registered")
	e.emit(models.Event{Kind: models.EventProviderRegistered, Height: height, Account: caller, Detail: name})
	return nil
}

// Equipment returns the asset with id, or false.
func (e *Engine) Equipment(id uint64) (models.Equipment, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Equipment(id)
}

// Provider returns the provider profile of account, or false.
func (e *Engine) Provider(account string) (models.Provider, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Provider(account)
}

// Reputation returns the score of provider; unknown providers fail with NotFound.
func (e *Engine) Reputation(provider string) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Score(provider)
}

// Stats returns the platform counters.
func (e *Engine) Stats() models.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.Stats{
		TotalEquipment:   e.registry.EquipmentCount(),
		TotalPredictions: e.totalPredictions,
		ContractPaused:   e.gate.Paused(),
		EmergencyMode:    e.gate.Emergency(),
	}
}

// Height returns the current logical height.
func (e *Engine) Height() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now()
}

// Params returns the engine's economics.
func (e *Engine) Params() Params {
	return e.params
}
