package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TripsAfterConsecutiveFailures(t *testing.T) {
	cb := New[int]("rates", Config{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nil)
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, boom })
		require.ErrorIs(t, err, boom)
	}

	_, err := cb.Execute(func() (int, error) { return 1, nil })
	assert.True(t, IsOpen(err))
}

func TestNew_SuccessPassesThrough(t *testing.T) {
	cb := New[string]("invoice", Config{}, nil)

	v, err := cb.Execute(func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.False(t, IsOpen(errors.New("other")))
}
