package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_AllowsWithinLimit(t *testing.T) {
	l := NewLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		res := l.Check("session-1")
		assert.True(t, res.Allowed)
		assert.Equal(t, 3, res.Limit)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res := l.Check("session-1")
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestLimiter_IdentifiersAreIndependent(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	assert.True(t, l.Check("a").Allowed)
	assert.False(t, l.Check("a").Allowed)
	assert.True(t, l.Check("b").Allowed)
}

func TestLimiter_WindowResets(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	current := time.Now()
	l.now = func() time.Time { return current }

	assert.True(t, l.Check("a").Allowed)
	assert.False(t, l.Check("a").Allowed)

	current = current.Add(61 * time.Second)
	assert.True(t, l.Check("a").Allowed)
}

func TestLimiter_ResetAt(t *testing.T) {
	l := NewLimiter(5, time.Minute)

	current := time.Now()
	l.now = func() time.Time { return current }

	res := l.Check("a")
	assert.Equal(t, current.Add(time.Minute), res.ResetAt)
}

func TestLimiter_Sweep(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	current := time.Now()
	l.now = func() time.Time { return current }

	l.Check("a")
	l.Check("b")
	assert.Len(t, l.windows, 2)

	current = current.Add(2 * time.Minute)
	l.Sweep()
	assert.Empty(t, l.windows)
}

func TestResult_RetryAfter(t *testing.T) {
	res := Result{ResetAt: time.Now().Add(30 * time.Second)}
	assert.Greater(t, res.RetryAfter(), 25*time.Second)

	res = Result{ResetAt: time.Now().Add(-time.Second)}
	assert.Equal(t, time.Duration(0), res.RetryAfter())
}
