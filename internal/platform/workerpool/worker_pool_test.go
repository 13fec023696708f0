// internal/platform/workerpool/worker_pool_test.go
package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"reconmcp/internal/testutil"
)

func TestMap_PreservesOrder(t *testing.T) {
	pool := New(Config{Workers: 3})
	items := []int{5, 1, 4, 2, 3}

	results := Map(context.Background(), pool, items, func(ctx context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})

	testutil.AssertLen(t, results, 5, "one result per item")
	for i, r := range results {
		testutil.AssertEqual(t, r.Index, i, "index")
		testutil.AssertEqual(t, r.Item, items[i], "item")
		testutil.AssertEqual(t, r.Value, items[i]*10, "value")
		testutil.AssertNoError(t, r.Err, "error")
	}
}

func TestMap_BoundsConcurrency(t *testing.T) {
	pool := New(Config{Workers: 2})
	var inFlight, peak int32

	items := make([]int, 10)
	Map(context.Background(), pool, items, func(ctx context.Context, _ int) (struct{}, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return struct{}{}, nil
	})

	testutil.AssertTrue(t, atomic.LoadInt32(&peak) <= 2, "never more than 2 in flight")
}

func TestMap_ErrorsPerItem(t *testing.T) {
	pool := New(Config{Workers: 4})
	boom := errors.New("connection refused")

	results := Map(context.Background(), pool, []string{"www", "bad", "mail"}, func(ctx context.Context, s string) (string, error) {
		if s == "bad" {
			return "", boom
		}
		return s + ".example.com", nil
	})

	testutil.AssertNoError(t, results[0].Err, "www")
	testutil.AssertErrorIs(t, results[1].Err, boom, "bad")
	testutil.AssertEqual(t, results[2].Value, "mail.example.com", "mail")
}

func TestMap_CancelledContext(t *testing.T) {
	pool := New(Config{Workers: 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls int32

	results := Map(ctx, pool, []int{1, 2, 3}, func(ctx context.Context, n int) (int, error) {
		atomic.AddInt32(&calls, 1)
		return n, nil
	})

	testutil.AssertEqual(t, atomic.LoadInt32(&calls), int32(0), "fn not called")
	for _, r := range results {
		testutil.AssertErrorIs(t, r.Err, context.Canceled, "cancelled")
	}
}

func TestMap_Empty(t *testing.T) {
	results := Map(context.Background(), New(Config{}), []int(nil), func(ctx context.Context, n int) (int, error) {
		return n, nil
	})
	testutil.AssertLen(t, results, 0, "empty")
	testutil.AssertEqual(t, New(Config{}).Workers(), 4, "default workers")
}
