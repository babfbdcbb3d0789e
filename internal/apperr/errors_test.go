package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want uint32
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain error", err: errors.New("boom"), want: 0},
		{name: "sentinel", err: ErrInvalidStake, want: 109},
		{name: "wrapped twice", err: fmt.Errorf("submit: %w", fmt.Errorf("stake 500: %w", ErrInvalidStake)), want: 109},
		{name: "paused", err: fmt.Errorf("mint: %w", ErrContractPaused), want: 110},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("claim 7: %w", ErrAlreadyExists)
	assert.True(t, errors.Is(err, ErrAlreadyExists))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "already-exists (u105)", ErrAlreadyExists.Error())
}
