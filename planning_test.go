package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPlanning_BucketsDrainInOrder(t *testing.T) {
	const limit = 3
	var (
		mu      sync.Mutex
		byClass = map[int][]int{}
		rec     recorder
		final   atomic.Int64
	)

	r, err := Run(context.Background(), 10,
		WorkerFunc(func(i int) {
			rec.add(i)
			mu.Lock()
			byClass[i%limit] = append(byClass[i%limit], i)
			mu.Unlock()
		}),
		WithThreadLimit(limit),
		WithPlanningMode(),
		WithFinal(func() { final.Add(1) }),
	)
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, r.Outcome)
	require.True(t, r.Planning)
	require.Equal(t, sequence(10), rec.sorted())
	require.Equal(t, int64(1), final.Load())

	// one worker per bucket runs its indices sequentially, in assignment order
	require.Equal(t, map[int][]int{
		0: {0, 3, 6, 9},
		1: {1, 4, 7},
		2: {2, 5, 8},
	}, byClass)
}

func TestPlanning_MoreWorkersThanIndices(t *testing.T) {
	var rec recorder
	r, err := Run(context.Background(), 2, WorkerFunc(rec.add),
		WithThreadLimit(5),
		WithPlanningMode(),
		WithSleepTime(0),
	)
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, r.Outcome)
	require.Equal(t, []int{0, 1}, rec.sorted())
}

func TestPlanning_TTLStopsStartingBuckets(t *testing.T) {
	var (
		rec   recorder
		final atomic.Int64
	)

	// Buckets are evaluated at ~0ms, ~300ms and ~600ms; the TTL lands in between.
	d, err := New(
		WorkerFunc(rec.add),
		WithWorkload(8),
		WithThreadLimit(4),
		WithPlanningMode(),
		WithSleepTime(300*time.Millisecond),
		WithTTL(450*time.Millisecond),
		WithFinal(func() { final.Add(1) }),
	)
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))

	r := d.Stop()
	require.Equal(t, OutcomeAbandoned, r.Outcome)
	require.Zero(t, final.Load())
	require.Equal(t, int64(4), r.Completed)
	require.Equal(t, []int{0, 1, 4, 5}, rec.sorted())
}

func TestPlanning_StartedBucketsOutliveTTL(t *testing.T) {
	var rec recorder

	d, err := New(
		WorkerContext(func(ctx context.Context, i int) {
			time.Sleep(150 * time.Millisecond)
			if ctx.Err() == nil {
				rec.add(i)
			}
		}),
		WithWorkload(4),
		WithThreadLimit(2),
		WithPlanningMode(),
		WithSleepTime(time.Second),
		WithTTL(100*time.Millisecond),
	)
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))
	require.Equal(t, OutcomeAbandoned, d.Wait().Outcome)

	// bucket 0 = {0, 2} keeps running; bucket 1 never starts.
	require.Eventually(t, func() bool { return rec.len() == 2 }, 2*time.Second, 10*time.Millisecond)
	r := d.Stop()
	require.Equal(t, []int{0, 2}, rec.sorted())
	require.Equal(t, int64(2), r.Completed)
}

func TestPlanning_CallerCancellationStopsBetweenItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var invoked atomic.Int64
	d, err := New(
		WorkerFunc(func(int) {
			if invoked.Add(1) == 1 {
				cancel()
			}
		}),
		WithWorkload(10),
		WithThreadLimit(1),
		WithPlanningMode(),
	)
	require.NoError(t, err)
	require.NoError(t, d.Start(ctx))

	r := d.Stop()
	require.Equal(t, OutcomeCancelled, r.Outcome)
	require.Equal(t, int64(1), invoked.Load())
}

func TestPlanning_StopOnErrorStopsBetweenItems(t *testing.T) {
	var (
		rec   recorder
		final atomic.Int64
	)
	boom := errors.New("boom")

	// buckets: {0, 2, 4} and {1, 3, 5}; index 2 fails.
	r, err := Run(context.Background(), 6,
		WorkerError(func(_ context.Context, i int) error {
			rec.add(i)
			if i == 2 {
				return boom
			}
			return nil
		}),
		WithThreadLimit(2),
		WithPlanningMode(),
		WithSleepTime(0),
		WithStopOnError(),
		WithFinal(func() { final.Add(1) }),
	)
	require.NoError(t, err)
	require.Equal(t, OutcomeStopped, r.Outcome)
	require.Zero(t, final.Load())
	require.NotContains(t, rec.sorted(), 4)
	require.ErrorIs(t, r.Err, boom)

	idx, ok := ExtractIndex(r.Err)
	require.True(t, ok)
	require.Equal(t, 2, idx)
}

func TestPlanning_TTLInterruptsSpawnRateWait(t *testing.T) {
	var (
		rec   recorder
		final atomic.Int64
	)

	// The first bucket takes the only token; the next one arrives long after the TTL.
	d, err := New(
		WorkerFunc(rec.add),
		WithWorkload(4),
		WithThreadLimit(2),
		WithPlanningMode(),
		WithSleepTime(0),
		WithTTL(200*time.Millisecond),
		WithSpawnRate(0.5, 1),
		WithFinal(func() { final.Add(1) }),
	)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, d.Start(context.Background()))
	require.Less(t, time.Since(start), time.Second)

	r := d.Stop()
	require.Equal(t, OutcomeAbandoned, r.Outcome)
	require.Zero(t, final.Load())
	got := rec.sorted()
	require.NotContains(t, got, 1)
	require.NotContains(t, got, 3)
}

func TestPlanning_SpawnRateWaitOutlastsCallerDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var rec recorder
	d, err := New(
		WorkerFunc(rec.add),
		WithWorkload(4),
		WithThreadLimit(2),
		WithPlanningMode(),
		WithSleepTime(0),
		WithSpawnRate(0.001, 1),
		WithRunAsync(),
	)
	require.NoError(t, err)
	require.NoError(t, d.Start(ctx))

	// The second bucket waits for a token due well after the deadline; the run
	// keeps waiting instead of giving up.
	require.Eventually(t, func() bool { return rec.len() == 2 }, time.Second, 5*time.Millisecond)
	require.Never(t, func() bool {
		select {
		case <-d.Done():
			return true
		default:
			return false
		}
	}, 200*time.Millisecond, 10*time.Millisecond)

	r := d.Stop()
	require.Equal(t, OutcomeCancelled, r.Outcome)
	require.Equal(t, []int{0, 2}, rec.sorted())
}

func TestPlanning_HugeThreadLimit(t *testing.T) {
	var rec recorder
	r, err := Run(context.Background(), 3, WorkerFunc(rec.add),
		WithThreadLimit(1<<30),
		WithPlanningMode(),
		WithSleepTime(0),
	)
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, r.Outcome)
	require.Equal(t, 1<<30, r.ThreadLimit)
	require.Equal(t, []int{0, 1, 2}, rec.sorted())
}
