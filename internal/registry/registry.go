// Package registry is the directory of equipment and service providers the
// prediction engine resolves ids and ownership against.
package registry

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/Alias1177/FixPredict/internal/ratelimit"
	"github.com/Alias1177/FixPredict/models"
	"golang.org/x/crypto/blake2b"
)

// Field length limits.
const (
	MaxNameLength     = 100
	MaxLocationLength = 100
	MaxSensorIDLength = 64
)

// Registry stores equipment and providers.
type Registry struct {
	equipment       map[uint64]models.Equipment
	sensors         map[string]uint64
	providers       map[string]models.Provider
	nextEquipmentID uint64
	limiter         *ratelimit.Limiter
}

// New creates an empty registry. Equipment registration is throttled per caller
// by limiter.
func New(limiter *ratelimit.Limiter) *Registry {
	return &Registry{
		equipment:       make(map[uint64]models.Equipment),
		sensors:         make(map[string]uint64),
		providers:       make(map[string]models.Provider),
		nextEquipmentID: 1,
		limiter:         limiter,
	}
}

// Restore rebuilds a registry from persisted records. Registrations are replayed
// into limiter in id order so the per-caller budget survives a restart.
func Restore(equipment []models.Equipment, providers []models.Provider, nextEquipmentID uint64, limiter *ratelimit.Limiter) *Registry {
	r := New(limiter)
	ordered := append([]models.Equipment(nil), equipment...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	for _, eq := range ordered {
		if limiter != nil {
			limiter.Allow(eq.Owner, eq.RegisteredAt)
		}
		r.equipment[eq.ID] = eq
		r.sensors[eq.SensorHash] = eq.ID
		if eq.ID >= r.nextEquipmentID {
			r.nextEquipmentID = eq.ID + 1
		}
	}
	if nextEquipmentID > r.nextEquipmentID {
		r.nextEquipmentID = nextEquipmentID
	}
	for _, p := range providers {
		r.providers[p.Account] = p
	}
	return r
}

// SensorHash fingerprints a sensor id so the raw serial is never stored.
func SensorHash(sensorID string) string {
	sum := blake2b.Sum256([]byte(strings.TrimSpace(sensorID)))
	return hex.EncodeToString(sum[:])
}

// RegisterEquipment records a new asset owned by caller.
func (r *Registry) RegisterEquipment(caller, name, location, sensorID string, height uint64) (models.Equipment, error) {
	if caller == "" {
		return models.Equipment{}, fmt.Errorf("register equipment: empty owner: %w", apperr.ErrInvalidInput)
	}
	if err := checkField("name", name, MaxNameLength); err != nil {
		return models.Equipment{}, err
	}
	if err := checkField("location", location, MaxLocationLength); err != nil {
		return models.Equipment{}, err
	}
	if err := checkField("sensor id", sensorID, MaxSensorIDLength); err != nil {
		return models.Equipment{}, err
	}

	hash := SensorHash(sensorID)
	if id, ok := r.sensors[hash]; ok {
		return models.Equipment{}, fmt.Errorf("register equipment: sensor already bound to equipment %d: %w", id, apperr.ErrAlreadyExists)
	}
	if r.limiter != nil && !r.limiter.Peek(caller, height) {
		return models.Equipment{}, fmt.Errorf("register equipment for %s: %w", caller, apperr.ErrRateLimitExceeded)
	}

	eq := models.Equipment{
		ID:           r.nextEquipmentID,
		Owner:        caller,
		Name:         name,
		Location:     location,
		SensorHash:   hash,
		RegisteredAt: height,
	}
	if r.limiter != nil {
		r.limiter.Allow(caller, height)
	}
	r.equipment[eq.ID] = eq
	r.sensors[hash] = eq.ID
	r.nextEquipmentID++
	return eq, nil
}

// RegisterProvider records caller as a service provider.
func (r *Registry) RegisterProvider(caller, name string, height uint64) (models.Provider, error) {
	if caller == "" {
		return models.Provider{}, fmt.Errorf("register provider: empty account: %w", apperr.ErrInvalidInput)
	}
	if err := checkField("name", name, MaxNameLength); err != nil {
		return models.Provider{}, err
	}
	if _, ok := r.providers[caller]; ok {
		return models.Provider{}, fmt.Errorf("register provider %s: %w", caller, apperr.ErrAlreadyExists)
	}

	p := models.Provider{Account: caller, Name: name, RegisteredAt: height}
	r.providers[caller] = p
	return p, nil
}

func (r *Registry) EquipmentExists(id uint64) bool {
	_, ok := r.equipment[id]
	return ok
}

// EquipmentOwner returns the owning account of equipment id.
func (r *Registry) EquipmentOwner(id uint64) (string, bool) {
	eq, ok := r.equipment[id]
	return eq.Owner, ok
}

func (r *Registry) Equipment(id uint64) (models.Equipment, bool) {
	eq, ok := r.equipment[id]
	return eq, ok
}

func (r *Registry) ProviderExists(account string) bool {
	_, ok := r.providers[account]
	return ok
}

func (r *Registry) Provider(account string) (models.Provider, bool) {
	p, ok := r.providers[account]
	return p, ok
}

// EquipmentCount returns the number of registered assets.
func (r *Registry) EquipmentCount() uint64 {
	return uint64(len(r.equipment))
}

// NextEquipmentID is the id the next registration will receive.
func (r *Registry) NextEquipmentID() uint64 {
	return r.nextEquipmentID
}

// AllEquipment lists equipment ordered by id.
func (r *Registry) AllEquipment() []models.Equipment {
	out := make([]models.Equipment, 0, len(r.equipment))
	for _, eq := range r.equipment {
		out = append(out, eq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllProviders lists providers ordered by account.
func (r *Registry) AllProviders() []models.Provider {
	out := make([]models.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account < out[j].Account })
	return out
}

func checkField(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is empty: %w", field, apperr.ErrInvalidInput)
	}
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%s longer than %d: %w", field, max, apperr.ErrInvalidInput)
	}
	return nil
}
