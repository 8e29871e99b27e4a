package xtier

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

type characterSummary struct {
	Name  string `json:"name"`
	Realm string `json:"realm"`
	Level int    `json:"level"`
}

// =============================================================================
// GetAs / SetAs
// =============================================================================

func TestSetAsGetAs_RoundTrip(t *testing.T) {
	remote, _ := newTestRemote(t)
	ctx := context.Background()

	want := &characterSummary{Name: "thrall", Realm: "tichondrius", Level: 80}
	require.NoError(t, SetAs(ctx, remote, "k1", want, time.Minute))

	got, found, err := GetAs[characterSummary](ctx, remote, "k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
}

func TestSetAs_NilValue_ReturnsError(t *testing.T) {
	remote, _ := newTestRemote(t)

	err := SetAs[characterSummary](context.Background(), remote, "k1", nil, time.Minute)
	assert.ErrorIs(t, err, ErrNilValue)
}

func TestGetAs_MissingKey_ReturnsNotFound(t *testing.T) {
	remote, _ := newTestRemote(t)

	_, found, err := GetAs[characterSummary](context.Background(), remote, "absent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetAs_CorruptEntry_SelfHealsToMiss(t *testing.T) {
	remote, mr := newTestRemote(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("k1", "not-json{{{"))

	_, found, err := GetAs[characterSummary](ctx, remote, "k1")
	require.NoError(t, err)
	assert.False(t, found)

	// 脏条目已被删除，而非留待下次继续失败
	assert.False(t, mr.Exists("k1"))
}

func TestGetAs_NilRemote_ReturnsError(t *testing.T) {
	_, _, err := GetAs[characterSummary](context.Background(), nil, "k1")
	assert.ErrorIs(t, err, ErrNilClient)
}

// =============================================================================
// GetOrSet
// =============================================================================

func TestGetOrSet_Validation(t *testing.T) {
	remote, _ := newTestRemote(t)
	ctx := context.Background()
	producer := func(context.Context) (*characterSummary, error) {
		return &characterSummary{}, nil
	}

	_, err := GetOrSet(ctx, nil, "k", time.Minute, producer)
	assert.ErrorIs(t, err, ErrNilClient)

	_, err = GetOrSet(ctx, remote, "", time.Minute, producer)
	assert.ErrorIs(t, err, ErrEmptyKey)

	_, err = GetOrSet(ctx, remote, "k", 0, producer)
	assert.ErrorIs(t, err, ErrInvalidTTL)

	_, err = GetOrSet[characterSummary](ctx, remote, "k", time.Minute, nil)
	assert.ErrorIs(t, err, ErrNilProducer)
}

func TestGetOrSet_Closed_ReturnsErrClosed(t *testing.T) {
	remote, _ := newTestRemote(t)
	require.NoError(t, remote.Close())

	_, err := GetOrSet(context.Background(), remote, "k", time.Minute,
		func(context.Context) (*characterSummary, error) {
			return &characterSummary{}, nil
		})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestGetOrSet_Miss_ProducesAndFills(t *testing.T) {
	remote, _ := newTestRemote(t)
	ctx := context.Background()

	var calls atomic.Int32
	producer := func(context.Context) (*characterSummary, error) {
		calls.Add(1)
		return &characterSummary{Name: "jaina", Realm: "proudmoore", Level: 80}, nil
	}

	got, err := GetOrSet(ctx, remote, "k1", time.Minute, producer)
	require.NoError(t, err)
	assert.Equal(t, "jaina", got.Name)
	assert.Equal(t, int32(1), calls.Load())

	// 第二次命中缓存，不再回源
	got, err = GetOrSet(ctx, remote, "k1", time.Minute, producer)
	require.NoError(t, err)
	assert.Equal(t, "jaina", got.Name)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOrSet_AfterTTLExpiry_ProducesAgain(t *testing.T) {
	remote, mr := newTestRemote(t)
	ctx := context.Background()

	var calls atomic.Int32
	producer := func(context.Context) (*characterSummary, error) {
		calls.Add(1)
		return &characterSummary{Name: "jaina"}, nil
	}

	_, err := GetOrSet(ctx, remote, "k1", time.Minute, producer)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = GetOrSet(ctx, remote, "k1", time.Minute, producer)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetOrSet_ProducerError_PropagatedNothingCached(t *testing.T) {
	remote, mr := newTestRemote(t)
	wantErr := errors.New("upstream down")

	_, err := GetOrSet(context.Background(), remote, "k1", time.Minute,
		func(context.Context) (*characterSummary, error) {
			return nil, wantErr
		})
	assert.ErrorIs(t, err, wantErr)
	assert.False(t, mr.Exists("k1"))
}

func TestGetOrSet_ProducerEmpty_ReturnsErrorNothingCached(t *testing.T) {
	remote, mr := newTestRemote(t)

	_, err := GetOrSet(context.Background(), remote, "k1", time.Minute,
		func(context.Context) (*characterSummary, error) {
			return nil, nil
		})
	assert.ErrorIs(t, err, ErrProducerEmpty)
	assert.False(t, mr.Exists("k1"))
}

func TestGetOrSet_CorruptEntry_ReproducesCleanValue(t *testing.T) {
	remote, mr := newTestRemote(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("k1", "garbage%%%"))

	got, err := GetOrSet(ctx, remote, "k1", time.Minute,
		func(context.Context) (*characterSummary, error) {
			return &characterSummary{Name: "sylvanas"}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, "sylvanas", got.Name)

	// 回填后的条目可正常读取
	healed, found, err := GetAs[characterSummary](ctx, remote, "k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "sylvanas", healed.Name)
}

func TestGetOrSet_StoreDown_DegradesToProducer(t *testing.T) {
	remote, mr := newTestRemote(t)

	var hookCalls atomic.Int32
	remote.options.OnSetError = func(_ context.Context, _ string, err error) {
		hookCalls.Add(1)
		assert.Error(t, err)
	}
	remote.options.Logger = nil

	// 存储不可用：读降级为未命中，写失败只触发钩子
	mr.Close()

	got, err := GetOrSet(context.Background(), remote, "k1", time.Minute,
		func(context.Context) (*characterSummary, error) {
			return &characterSummary{Name: "anduin"}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, "anduin", got.Name)
	assert.Equal(t, int32(1), hookCalls.Load())
}

// =============================================================================
// Singleflight
// =============================================================================

func TestGetOrSet_WithSingleflight_ConcurrentCallsShareOneProduce(t *testing.T) {
	remote, _ := newTestRemote(t, WithSingleflight(true))
	ctx := context.Background()

	var calls atomic.Int32
	producer := func(context.Context) (*characterSummary, error) {
		calls.Add(1)
		time.Sleep(100 * time.Millisecond)
		return &characterSummary{Name: "varian"}, nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*characterSummary, workers)
	errs := make([]error, workers)

	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = GetOrSet(ctx, remote, "k1", time.Minute, producer)
		}()
	}
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.Equal(t, "varian", results[i].Name)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOrSet_WithoutSingleflight_EachMissProduces(t *testing.T) {
	remote, _ := newTestRemote(t)
	ctx := context.Background()

	var calls atomic.Int32
	start := make(chan struct{})
	producer := func(context.Context) (*characterSummary, error) {
		calls.Add(1)
		<-start
		return &characterSummary{Name: "tyrande"}, nil
	}

	const workers = 4
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := GetOrSet(ctx, remote, "k1", time.Minute, producer)
			assert.NoError(t, err)
		}()
	}

	// 等待所有 worker 进入回源后再放行
	require.Eventually(t, func() bool {
		return calls.Load() == int32(workers)
	}, time.Second, 5*time.Millisecond)
	close(start)
	wg.Wait()

	assert.Equal(t, int32(workers), calls.Load())
}
