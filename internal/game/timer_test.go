package game

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_FiresAtDeadline(t *testing.T) {
	var fired atomic.Bool
	deadline := time.Now().Add(10 * time.Millisecond)
	tm := NewTimer(deadline, func() { fired.Store(true) })

	assert.Equal(t, deadline, tm.Deadline())
	require.Eventually(t, fired.Load, time.Second, 2*time.Millisecond)
}

func TestTimer_StopPreventsFire(t *testing.T) {
	var fired atomic.Bool
	tm := NewTimer(time.Now().Add(20*time.Millisecond), func() { fired.Store(true) })

	tm.Stop()
	tm.Stop() // idempotent

	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestTimer_PastDeadlineFiresImmediately(t *testing.T) {
	var fired atomic.Bool
	NewTimer(time.Now().Add(-time.Second), func() { fired.Store(true) })

	require.Eventually(t, fired.Load, time.Second, 2*time.Millisecond)
}
