package authapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPLimiter_BurstThenRefill(t *testing.T) {
	clock := &fakeClock{t: t0}
	l := newIPLimiter(1, 2, time.Minute, clock.Now)

	ok, _ := l.reserve("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.reserve("10.0.0.1")
	assert.True(t, ok)

	ok, retry := l.reserve("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, time.Second, retry)

	ok, _ = l.reserve("10.0.0.2")
	assert.True(t, ok, "buckets are per client")

	clock.Advance(time.Second)
	ok, _ = l.reserve("10.0.0.1")
	assert.True(t, ok)
}

func TestIPLimiter_SweepsIdleClients(t *testing.T) {
	clock := &fakeClock{t: t0}
	l := newIPLimiter(1, 1, time.Minute, clock.Now)

	l.reserve("10.0.0.1")
	l.reserve("10.0.0.2")
	assert.Equal(t, 2, l.size())

	clock.Advance(2 * time.Minute)
	l.reserve("10.0.0.3")
	assert.Equal(t, 1, l.size())
}
