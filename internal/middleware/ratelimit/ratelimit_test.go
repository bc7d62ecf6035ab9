package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestAllowExhaustsBucket(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 3, Logger: zap.NewNop()})
	defer rl.Stop()

	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
}

func TestAllowKeysAreIndependent(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 1, Logger: zap.NewNop()})
	defer rl.Stop()

	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"))
}

func TestAllowRefills(t *testing.T) {
	rl := New(Config{
		MaxRequestsPerMinute: 2,
		WindowDuration:       20 * time.Millisecond, // refill every 10ms
		Logger:               zap.NewNop(),
	})
	defer rl.Stop()

	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))

	time.Sleep(15 * time.Millisecond)
	assert.True(t, rl.allow("a"))
}
