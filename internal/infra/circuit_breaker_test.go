package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errRelay = errors.New("dial tcp: connection refused")

func TestCircuitBreaker_AbreYSeRecupera(t *testing.T) {
	ahora := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("smtp", CircuitBreakerConfig{FailureThreshold: 3, SuccessThreshold: 2, OpenTimeout: time.Minute})
	cb.now = func() time.Time { return ahora }

	falla := func() error { return errRelay }
	ok := func() error { return nil }

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(falla), errRelay)
	}
	assert.Equal(t, CBOpen, cb.State())

	llamado := false
	err := cb.Execute(func() error { llamado = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, llamado)

	ahora = ahora.Add(time.Minute)
	assert.Equal(t, CBHalfOpen, cb.State())

	assert.NoError(t, cb.Execute(ok))
	assert.Equal(t, CBHalfOpen, cb.State())
	assert.NoError(t, cb.Execute(ok))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_ProbeFallidaReabre(t *testing.T) {
	ahora := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("smtp", CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Second})
	cb.now = func() time.Time { return ahora }

	_ = cb.Execute(func() error { return errRelay })
	assert.Equal(t, CBOpen, cb.State())

	ahora = ahora.Add(time.Second)
	assert.ErrorIs(t, cb.Execute(func() error { return errRelay }), errRelay)
	assert.Equal(t, CBOpen, cb.State())
}

func TestCircuitBreaker_ExitoReiniciaConteo(t *testing.T) {
	cb := NewCircuitBreaker("smtp", CircuitBreakerConfig{FailureThreshold: 2})
	_ = cb.Execute(func() error { return errRelay })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errRelay })
	assert.Equal(t, CBClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}
