package device

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tensorblob/internal/config"
	"github.com/born-ml/tensorblob/internal/metrics"
	"github.com/born-ml/tensorblob/internal/tensor"
)

var (
	host  = HostMemCase()
	cuda0 = MemCase{Device: tensor.CUDA, DeviceID: 0}
	cuda1 = MemCase{Device: tensor.CUDA, DeviceID: 1}
	gpu   = MemCase{Device: tensor.WebGPU}
)

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + 3)
	}
	return b
}

func TestMemCase(t *testing.T) {
	assert.True(t, host.IsHost())
	assert.False(t, cuda0.IsHost())
	assert.True(t, host.SameDevice(MemCase{Device: tensor.CPU, DeviceID: 3}))
	assert.True(t, cuda0.SameDevice(cuda0))
	assert.False(t, cuda0.SameDevice(cuda1))
	assert.False(t, cuda0.SameDevice(host))
	assert.Equal(t, "CPU", host.String())
	assert.Equal(t, "CUDA:1", cuda1.String())
}

func TestSyncCtx(t *testing.T) {
	ctx := NewSyncCtx()

	ran := false
	ctx.Enqueue(func() error { ran = true; return nil })
	assert.True(t, ran, "sync ctx runs inline")
	require.NoError(t, ctx.Sync())

	first := errors.New("first")
	ctx.Enqueue(func() error { return first })
	ctx.Enqueue(func() error { return errors.New("second") })
	assert.ErrorIs(t, ctx.Sync(), first)
	assert.NoError(t, ctx.Sync(), "Sync clears the error")
}

func TestStreamCtxOrdering(t *testing.T) {
	s := NewStreamCtx(4)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 100; i++ {
		s.Enqueue(func() error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, s.Sync())
	require.Len(t, order, 100)
	for i, v := range order {
		assert.Equal(t, i, v)
	}

	boom := errors.New("boom")
	s.Enqueue(func() error { return boom })
	assert.ErrorIs(t, s.Close(), boom)
	assert.NoError(t, s.Close(), "second Close is a no-op")
	assert.Panics(t, func() { s.Enqueue(func() error { return nil }) })
}

func TestDispatcherSelect(t *testing.T) {
	staging := NewStagingEngine(NewStagingPool(4))
	d := NewDispatcher(&WebGPUEngine{}, staging)

	e, err := d.Select(host, host)
	require.NoError(t, err)
	assert.Equal(t, "host", e.Name())

	e, err = d.Select(cuda0, cuda0)
	require.NoError(t, err)
	assert.Equal(t, "host", e.Name(), "same device takes the fast path")

	e, err = d.Select(cuda1, cuda0)
	require.NoError(t, err)
	assert.Equal(t, "staging", e.Name())

	e, err = d.Select(gpu, host)
	require.NoError(t, err)
	assert.Equal(t, "webgpu", e.Name())

	_, err = NewDispatcher().Select(cuda0, host)
	assert.ErrorIs(t, err, ErrNoCopyPath)
}

func TestDispatcherPathsAgree(t *testing.T) {
	d := NewDispatcher(NewStagingEngine(NewStagingPool(4)))
	src := pattern(10_000)

	placements := []struct {
		name     string
		dst, src MemCase
	}{
		{"host to host", host, host},
		{"same device", cuda0, cuda0},
		{"host to device", cuda0, host},
		{"device to host", host, cuda1},
		{"device to device", cuda1, cuda0},
	}

	for _, p := range placements {
		t.Run(p.name, func(t *testing.T) {
			ctx := NewSyncCtx()
			dst := make([]byte, len(src))
			d.AutoMemcpy(ctx, dst, src, p.dst, p.src)
			require.NoError(t, ctx.Sync())
			assert.True(t, bytes.Equal(src, dst))
		})
	}
}

func TestDispatcherOnStream(t *testing.T) {
	d := NewDispatcher(NewStagingEngine(NewStagingPool(4)))
	s := NewStreamCtx(8)
	defer s.Close()

	a := pattern(64)
	b := make([]byte, 64)
	c := make([]byte, 64)
	d.AutoMemcpy(s, b, a, cuda0, host)
	d.AutoMemcpy(s, c, b, host, cuda0)
	require.NoError(t, s.Sync())
	assert.Equal(t, a, c, "second copy observes the first")
}

func TestDispatcherNoPathReportsOnSync(t *testing.T) {
	d := NewDispatcher()
	ctx := NewSyncCtx()
	dst := make([]byte, 8)
	d.AutoMemcpy(ctx, dst, pattern(8), cuda0, host)
	assert.ErrorIs(t, ctx.Sync(), ErrNoCopyPath)
	assert.Equal(t, make([]byte, 8), dst)
}

func TestDispatcherEngineErrorWrapped(t *testing.T) {
	d := NewDispatcher(&WebGPUEngine{})
	ctx := NewSyncCtx()
	d.AutoMemcpy(ctx, make([]byte, 8), pattern(8), gpu, host)
	assert.ErrorIs(t, ctx.Sync(), ErrUnavailable)
}

func TestDispatcherLengthMismatchPanics(t *testing.T) {
	d := NewDispatcher()
	assert.Panics(t, func() {
		d.Memcpy(NewSyncCtx(), make([]byte, 4), make([]byte, 5))
	})
}

func TestDispatcherMetrics(t *testing.T) {
	metrics.Register()
	d := NewDispatcher()

	before := testutil.ToFloat64(metrics.CopyBytesFor("host"))
	d.Memcpy(NewSyncCtx(), make([]byte, 32), pattern(32))
	assert.Equal(t, before+32, testutil.ToFloat64(metrics.CopyBytesFor("host")))
}

func TestNewDefaultDispatcher(t *testing.T) {
	d := NewDefaultDispatcher(config.DefaultConfig())
	engines := d.Engines()
	require.NotEmpty(t, engines)
	assert.Equal(t, "staging", engines[len(engines)-1].Name())
}

func TestStagingPoolReuse(t *testing.T) {
	pool := NewStagingPool(2)

	buf := pool.Acquire(1000)
	assert.Len(t, buf, 1000)
	pool.Release(buf)

	again := pool.Acquire(800)
	assert.Len(t, again, 800)

	allocated, released, hits, misses, pooled := pool.Stats()
	assert.Equal(t, uint64(1), allocated)
	assert.Equal(t, uint64(1), released)
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, 0, pooled)

	pool.Release(again)
	pool.Release(make([]byte, 10))
	pool.Release(make([]byte, 10))
	_, _, _, _, pooled = pool.Stats()
	assert.Equal(t, 2, pooled, "class is capped")

	pool.Clear()
	_, _, _, _, pooled = pool.Stats()
	assert.Equal(t, 0, pooled)
}

func TestCategorize(t *testing.T) {
	assert.Equal(t, SmallStaging, categorize(100))
	assert.Equal(t, MediumStaging, categorize(4096))
	assert.Equal(t, LargeStaging, categorize(2*1024*1024))
}
