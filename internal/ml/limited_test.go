package ml

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type countingClassifier struct {
	inFlight atomic.Int64
	peak     atomic.Int64
	release  chan struct{}
}

func (c *countingClassifier) Classify(ctx context.Context, imagePath string) (string, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		peak := c.peak.Load()
		if n <= peak || c.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	select {
	case <-c.release:
	case <-time.After(20 * time.Millisecond):
	}
	return "Tomato_healthy", nil
}

func TestLimited_CapsConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	inner := &countingClassifier{release: make(chan struct{})}
	c := NewLimited(inner, 2)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			label, err := c.Classify(context.Background(), "leaf.jpg")
			assert.NoError(t, err)
			assert.Equal(t, "Tomato_healthy", label)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, inner.peak.Load(), int64(2))
	assert.Equal(t, int64(0), inner.inFlight.Load())
}

func TestLimited_WaitHonoursContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	inner := &countingClassifier{release: make(chan struct{})}
	c := NewLimited(inner, 1).(*limitedClassifier)

	// hold the only slot
	require.True(t, c.sem.TryAcquire(1))
	defer c.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Classify(ctx, "leaf.jpg")
	var clsErr *ClassifierError
	require.ErrorAs(t, err, &clsErr)
	assert.Equal(t, ReasonStartFailed, clsErr.Reason)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "waiting for classifier slot")
	assert.Equal(t, int64(0), inner.peak.Load())
}
