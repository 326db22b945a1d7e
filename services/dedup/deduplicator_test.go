package dedup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentCallsShareOneInvocation(t *testing.T) {
	d := NewDeduplicator(100, 30*time.Second)

	var invocations atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})

	fn := func() (any, error) {
		invocations.Add(1)
		close(started)
		<-release
		return "shared-value", nil
	}

	const callers = 16
	results := make([]any, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = d.Do(context.Background(), "key", fn)
	}()
	<-started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = d.Do(context.Background(), "key", func() (any, error) {
				invocations.Add(1)
				return "unexpected", nil
			})
		}(i)
	}

	// Let the followers attach before the leader settles.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), invocations.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared-value", results[i])
	}
}

func TestFailureIsSharedAndEntryCleared(t *testing.T) {
	d := NewDeduplicator(100, 30*time.Second)
	boom := errors.New("upstream exploded")

	_, err := d.Do(context.Background(), "key", func() (any, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, d.Len())

	// The failed entry is gone, so a retry runs fn again.
	value, err := d.Do(context.Background(), "key", func() (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestSequentialCallsEachInvoke(t *testing.T) {
	d := NewDeduplicator(100, 30*time.Second)

	var invocations int
	for i := 0; i < 3; i++ {
		_, err := d.Do(context.Background(), "key", func() (any, error) {
			invocations++
			return invocations, nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 3, invocations)
}

func TestWaiterContextCancellation(t *testing.T) {
	d := NewDeduplicator(100, 30*time.Second)

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	go d.Do(context.Background(), "key", func() (any, error) {
		close(started)
		<-release
		return "late", nil
	})
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Do(ctx, "key", func() (any, error) { return nil, nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPanicInFnSurfacesAsError(t *testing.T) {
	d := NewDeduplicator(100, 30*time.Second)

	_, err := d.Do(context.Background(), "key", func() (any, error) {
		panic("bad decode")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, 0, d.Len())
}

func TestSafetyTTLAllowsReplacingStaleEntry(t *testing.T) {
	d := NewDeduplicator(100, 30*time.Second)
	current := time.Now()
	d.now = func() time.Time { return current }

	// Simulate a leaked entry by parking a call that never settles.
	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})
	go d.Do(context.Background(), "key", func() (any, error) {
		close(started)
		<-release
		return nil, nil
	})
	<-started

	current = current.Add(31 * time.Second)

	value, err := d.Do(context.Background(), "key", func() (any, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", value)
}

func TestRequestKeyCanonicalizesParameterOrder(t *testing.T) {
	a := RequestKey("/quote", map[string]string{"symbol": "AAPL", "resolution": "D"})
	b := RequestKey("/quote", map[string]string{"resolution": "D", "symbol": "AAPL"})
	assert.Equal(t, a, b)
	assert.Equal(t, "/quote?resolution=D&symbol=AAPL", a)

	assert.Equal(t, "/news", RequestKey("/news", nil))
}
