// Package reputation keeps the bounded trust score of each service provider.
package reputation

import (
	"fmt"

	"github.com/Alias1177/FixPredict/internal/apperr"
)

const (
	// Default is the score a provider starts with.
	Default uint32 = 50
	// Step is the change applied per validated prediction.
	Step uint32 = 10
	// Min and Max bound every score.
	Min uint32 = 0
	Max uint32 = 100
)

// Next returns the score after one validated prediction.
func Next(score uint32, correct bool) uint32 {
	if correct {
		if score >= Max-Step {
			return Max
		}
		return score + Step
	}
	if score <= Min+Step {
		return Min
	}
	return score - Step
}

// Book stores provider scores.
type Book struct {
	scores map[string]uint32
}

// NewBook creates an empty reputation book
func NewBook() *Book {
	return &Book{scores: make(map[string]uint32)}
}

// RestoreBook rebuilds a book from persisted scores, clamping anything out of range.
func RestoreBook(scores map[string]uint32) *Book {
	b := NewBook()
	for provider, score := range scores {
		if score > Max {
			score = Max
		}
		b.scores[provider] = score
	}
	return b
}

// Open creates the record for provider at the default score.
func (b *Book) Open(provider string) error {
	if _, ok := b.scores[provider]; ok {
		return fmt.Errorf("reputation for %s: %w", provider, apperr.ErrAlreadyExists)
	}
	b.scores[provider] = Default
	return nil
}

// Score returns the provider's score.
func (b *Book) Score(provider string) (uint32, error) {
	score, ok := b.scores[provider]
	if !ok {
		return 0, fmt.Errorf("reputation for %s: %w", provider, apperr.ErrNotFound)
	}
	return score, nil
}

// ApplyOutcome moves the provider's score one step and returns the new value.
func (b *Book) ApplyOutcome(provider string, correct bool) (uint32, error) {
	score, err := b.Score(provider)
	if err != nil {
		return 0, err
	}
	score = Next(score, correct)
	b.scores[provider] = score
	return score, nil
}

// Scores returns a copy of every score.
func (b *Book) Scores() map[string]uint32 {
	out := make(map[string]uint32, len(b.scores))
	for provider, score := range b.scores {
		out[provider] = score
	}
	return out
}
