package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_StartsAtDefault(t *testing.T) {
	clock := NewClock(time.Time{})
	assert.Equal(t, DefaultStart, clock.Now())
}

func TestClock_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	clock := NewClock(time.Date(2024, 6, 1, 12, 0, 0, 0, loc))

	assert.Equal(t, time.UTC, clock.Now().Location())
	assert.Equal(t, 10, clock.Now().Hour())
}

func TestClock_Advance(t *testing.T) {
	clock := NewClock(time.Time{})

	got := clock.Advance(90 * time.Second)
	assert.Equal(t, DefaultStart.Add(90*time.Second), got)
	assert.Equal(t, got, clock.Now())

	// Now alone never moves time
	assert.Equal(t, got, clock.Now())
}

func TestClock_Set(t *testing.T) {
	clock := NewClock(time.Time{})
	target := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	clock.Set(target)
	assert.Equal(t, target, clock.Now())
}

func TestClock_ThreadSafe(t *testing.T) {
	clock := NewClock(time.Time{})
	const numGoroutines = 50
	const callsPerGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				clock.Advance(time.Second)
				_ = clock.Now()
			}
		}()
	}
	wg.Wait()

	want := DefaultStart.Add(numGoroutines * callsPerGoroutine * time.Second)
	assert.Equal(t, want, clock.Now())
}
