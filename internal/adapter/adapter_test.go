package adapter

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rowvirt/vlist/internal/item"
	"github.com/rowvirt/vlist/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeSource(calls *int64) SourceFunc[string] {
	return func(ctx context.Context, req ReadRequest) (ReadResult[string], error) {
		atomic.AddInt64(calls, 1)
		items := make([]item.Item[string], req.Range.Len())
		for i := range items {
			items[i] = item.Item[string]{ID: "x", Data: "loaded"}
		}
		return ReadResult[string]{Items: items, Range: req.Range}, nil
	}
}

func TestEnsureRangeFetchesMissingAndFillsStore(t *testing.T) {
	st := store.New[string](store.WithChunkWidth[string](10))
	st.SetTotal(100)
	var calls int64
	sched := New[string](st, fakeSource(&calls))

	err := sched.EnsureRange(context.Background(), item.Range{Start: 0, End: 9})
	require.NoError(t, err)
	assert.True(t, st.IsRangeLoaded(0, 9))
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestEnsureRangeNoopWhenAlreadyLoaded(t *testing.T) {
	st := store.New[string](store.WithChunkWidth[string](10))
	st.SetTotal(100)
	var calls int64
	sched := New[string](st, fakeSource(&calls))

	require.NoError(t, sched.EnsureRange(context.Background(), item.Range{Start: 0, End: 9}))
	require.NoError(t, sched.EnsureRange(context.Background(), item.Range{Start: 0, End: 9}))
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestOnVelocityTickGatesByThreshold(t *testing.T) {
	st := store.New[string]()
	sched := New[string](st, fakeSource(new(int64)), WithVelocityGate[string](25, 2, 50))

	shouldLoad, shouldPreload := sched.OnVelocityTick(30)
	assert.False(t, shouldLoad)
	assert.False(t, shouldPreload)

	shouldLoad, shouldPreload = sched.OnVelocityTick(10)
	assert.True(t, shouldLoad)
	assert.True(t, shouldPreload)

	shouldLoad, shouldPreload = sched.OnVelocityTick(1)
	assert.True(t, shouldLoad)
	assert.False(t, shouldPreload)
}

func TestReloadBumpsGenerationAndRefetches(t *testing.T) {
	st := store.New[string](store.WithChunkWidth[string](10))
	st.SetTotal(100)
	var calls int64
	sched := New[string](st, fakeSource(&calls))

	require.NoError(t, sched.EnsureRange(context.Background(), item.Range{Start: 0, End: 9}))
	require.NoError(t, sched.Reload(context.Background(), item.Range{Start: 0, End: 9}))
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
	assert.True(t, st.IsRangeLoaded(0, 9))
}

func TestStaleResultIsDroppedAfterReload(t *testing.T) {
	st := store.New[string](store.WithChunkWidth[string](10))
	st.SetTotal(100)

	release := make(chan struct{})
	var calls int64
	slow := SourceFunc[string](func(ctx context.Context, req ReadRequest) (ReadResult[string], error) {
		n := atomic.AddInt64(&calls, 1)
		if n == 1 {
			<-release // block the first (stale) fetch until after Reload runs
		}
		items := make([]item.Item[string], req.Range.Len())
		for i := range items {
			items[i] = item.Item[string]{ID: "x", Data: "v"}
		}
		return ReadResult[string]{Items: items, Range: req.Range}, nil
	})
	sched := New[string](st, slow)

	done := make(chan error, 1)
	go func() { done <- sched.EnsureRange(context.Background(), item.Range{Start: 0, End: 9}) }()

	time.Sleep(20 * time.Millisecond) // let the first fetch start and block
	require.NoError(t, sched.Reload(context.Background(), item.Range{Start: 10, End: 19}))
	close(release)
	require.NoError(t, <-done)

	// The stale fetch landed after Reload bumped the generation, so it must
	// not have populated the store for range [0,9].
	assert.False(t, st.IsRangeLoaded(0, 9))
	assert.True(t, st.IsRangeLoaded(10, 19))
}

func TestErrorHandlerInvokedOnSourceFailure(t *testing.T) {
	st := store.New[string](store.WithChunkWidth[string](10))
	st.SetTotal(100)

	var gotErr error
	failing := SourceFunc[string](func(ctx context.Context, req ReadRequest) (ReadResult[string], error) {
		return ReadResult[string]{}, assert.AnError
	})
	sched := New[string](st, failing, WithErrorHandler[string](func(err error) { gotErr = err }))

	err := sched.EnsureRange(context.Background(), item.Range{Start: 0, End: 9})
	assert.Error(t, err)
	assert.Equal(t, assert.AnError, gotErr)
}

func TestLoadMoreExtendsPastVisibleRange(t *testing.T) {
	st := store.New[string](store.WithChunkWidth[string](10))
	st.SetTotal(1000)
	var calls int64
	sched := New[string](st, fakeSource(&calls), WithVelocityGate[string](25, 2, 20))

	require.NoError(t, sched.LoadMore(context.Background(), item.Range{Start: 0, End: 9}, 1))
	assert.True(t, st.IsRangeLoaded(10, 29))
}
