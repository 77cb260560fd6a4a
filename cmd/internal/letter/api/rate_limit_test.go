package letterapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIPLimiter(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(2, time.Minute)

	ok, _ := l.Allow("10.0.0.1", now)
	require.True(t, ok)
	ok, _ = l.Allow("10.0.0.1", now.Add(10*time.Second))
	require.True(t, ok)

	ok, retry := l.Allow("10.0.0.1", now.Add(20*time.Second))
	require.False(t, ok)
	require.Equal(t, 40*time.Second, retry)

	// Other keys are independent.
	ok, _ = l.Allow("10.0.0.2", now.Add(20*time.Second))
	require.True(t, ok)

	// The first event slides out of the window.
	ok, _ = l.Allow("10.0.0.1", now.Add(61*time.Second))
	require.True(t, ok)
}

func TestIPLimiter_SweepsIdleKeys(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(5, time.Minute)

	l.Allow("a", now)
	l.Allow("b", now)
	l.Allow("c", now.Add(2*time.Minute))

	l.mu.Lock()
	defer l.mu.Unlock()
	require.Len(t, l.events, 1)
	require.Contains(t, l.events, "c")
}

func TestIPLimiter_Disabled(t *testing.T) {
	require.Nil(t, newIPLimiter(0, time.Minute))

	var l *ipLimiter
	for range 100 {
		ok, _ := l.Allow("x", time.Now())
		require.True(t, ok)
	}
}
