package keylock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_SerializesSameKey(t *testing.T) {
	l := New()

	var (
		wg      sync.WaitGroup
		counter int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("user:1")
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, l.Len(), "entries should be released")
}

func TestLock_OverlappingSetsDoNotDeadlock(t *testing.T) {
	l := New()

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for i := range 100 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				var unlock func()
				if i%2 == 0 {
					unlock = l.Lock("item:A", "user:1")
				} else {
					unlock = l.Lock("user:1", "item:A")
				}
				unlock()
			}()
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lock ordering deadlocked")
	}
}

func TestLock_DistinctKeysIndependent(t *testing.T) {
	l := New()

	unlockA := l.Lock("item:A")
	defer unlockA()

	acquired := make(chan struct{})
	go func() {
		unlock := l.Lock("item:B")
		unlock()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("independent key was blocked")
	}
}

func TestLock_UnlockIsIdempotent(t *testing.T) {
	l := New()

	unlock := l.Lock("a", "a", "b")
	require.Equal(t, 2, l.Len())
	unlock()
	unlock()
	assert.Equal(t, 0, l.Len())
}
