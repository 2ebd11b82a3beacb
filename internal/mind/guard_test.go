package mind

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardAcquireRelease(t *testing.T) {
	g := NewGuard()
	k := SessionKey{UserID: "u1", ChannelID: "c1"}

	assert.True(t, g.TryAcquire(k))
	assert.False(t, g.TryAcquire(k))
	assert.True(t, g.Active(k))

	other := SessionKey{UserID: "u1", ChannelID: "c2"}
	assert.True(t, g.TryAcquire(other), "keys are independent")
	assert.Equal(t, 2, g.Len())

	g.Release(k)
	assert.False(t, g.Active(k))
	assert.True(t, g.TryAcquire(k))

	g.Release(k)
	g.Release(k)
	g.Release(other)
	assert.Equal(t, 0, g.Len())
}

func TestGuardSingleWinner(t *testing.T) {
	g := NewGuard()
	k := SessionKey{UserID: "u1", ChannelID: "c1"}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TryAcquire(k) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
