package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, ModeLinear, p.Mode)
	assert.Equal(t, 200*time.Millisecond, p.Initial)
	assert.Equal(t, 2*time.Second, p.Max)
	assert.Equal(t, 2, p.MaxRetries)
	require.NoError(t, p.Validate())
}

// TestNewPolicyOverrides checks override precedence and clamping when initial > max.
func TestNewPolicyOverrides(t *testing.T) {
	p := NewPolicy(ModeFixed, 5*time.Second, 2*time.Second, 5)
	assert.Equal(t, 2*time.Second, p.Initial)
	assert.Equal(t, 2*time.Second, p.Max)
	assert.Equal(t, ModeFixed, p.Mode)
	assert.Equal(t, 5, p.MaxRetries)

	unknown := NewPolicy("random", 0, 0, -1)
	assert.Equal(t, DefaultPolicy(), unknown)
}

func TestDelayModes(t *testing.T) {
	fixed := NewPolicy(ModeFixed, 100*time.Millisecond, 500*time.Millisecond, 3)
	for i := 1; i <= 3; i++ {
		assert.Equal(t, 100*time.Millisecond, fixed.Delay(i))
	}

	linear := NewPolicy(ModeLinear, 100*time.Millisecond, 250*time.Millisecond, 5)
	for attempt, want := range map[int]time.Duration{1: 100 * time.Millisecond, 2: 200 * time.Millisecond, 3: 250 * time.Millisecond, 4: 250 * time.Millisecond} {
		assert.Equal(t, want, linear.Delay(attempt), "linear attempt %d", attempt)
	}

	exp := NewPolicy(ModeExponential, 50*time.Millisecond, 160*time.Millisecond, 5)
	for attempt, want := range map[int]time.Duration{1: 50 * time.Millisecond, 2: 100 * time.Millisecond, 3: 160 * time.Millisecond, 4: 160 * time.Millisecond} {
		assert.Equal(t, want, exp.Delay(attempt), "exponential attempt %d", attempt)
	}

	assert.Zero(t, linear.Delay(0))
	assert.Zero(t, linear.Delay(-1))
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	p := NewPolicy(ModeFixed, time.Millisecond, time.Millisecond, 3)
	calls := 0
	err := p.Do(t.Context(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ReturnsLastError(t *testing.T) {
	p := NewPolicy(ModeFixed, time.Millisecond, time.Millisecond, 2)
	calls := 0
	err := p.Do(t.Context(), func() error {
		calls++
		return errors.New("down")
	})
	require.EqualError(t, err, "down")
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnContextCancel(t *testing.T) {
	p := NewPolicy(ModeFixed, time.Hour, time.Hour, 5)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	calls := 0
	err := p.Do(ctx, func() error {
		calls++
		return errors.New("down")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
