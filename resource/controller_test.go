package resource

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(t.Context(), 50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(t.Context(), 40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// TryAcquire 20 (should fail)
	ok := c.TryAcquireMemory(20)
	assert.False(t, ok)
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Acquire 20 (should block/timeout)
	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	err := c.AcquireMemory(ctx, 20)
	assert.ErrorIs(t, err, ErrMemoryLimitExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(t.Context(), 20))
	assert.Equal(t, int64(60), c.MemoryUsage())
}

func TestController_RequestAboveLimit(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	err := c.AcquireMemory(t.Context(), 101)
	assert.ErrorIs(t, err, ErrMemoryLimitExceeded)
	assert.Zero(t, c.MemoryUsage())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 0})

	require.NoError(t, c.AcquireMemory(t.Context(), 1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
}

func TestController_NilIsUnlimited(t *testing.T) {
	var c *Controller

	require.NoError(t, c.AcquireMemory(t.Context(), 1<<40))
	assert.True(t, c.TryAcquireMemory(1<<40))
	c.ReleaseMemory(1 << 40)
	assert.Zero(t, c.MemoryUsage())
	require.NoError(t, c.AcquireExport(t.Context()))
	c.ReleaseExport()
	require.NoError(t, c.AcquireIO(t.Context(), 1<<20))
}

func TestController_Exports(t *testing.T) {
	c := NewController(Config{MaxConcurrentExports: 2})

	require.NoError(t, c.AcquireExport(t.Context()))
	require.NoError(t, c.AcquireExport(t.Context()))

	assert.False(t, c.TryAcquireExport())

	c.ReleaseExport()

	assert.True(t, c.TryAcquireExport())
}

func TestController_DefaultsOneExport(t *testing.T) {
	c := NewController(Config{})
	assert.Equal(t, int64(1), c.Config().MaxConcurrentExports)
}

func TestRateLimitedWriter(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	var buf bytes.Buffer
	w := NewRateLimitedWriter(t.Context(), &buf, c)

	payload := bytes.Repeat([]byte("x"), 1<<20+10)
	n, err := w.Write(payload[:100])
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, 100, buf.Len())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	// Larger than the burst and canceled: nothing reaches the sink.
	_, err = NewRateLimitedWriter(ctx, &buf, c).Write(payload)
	assert.Error(t, err)
	assert.Equal(t, 100, buf.Len())
}
