package snapshot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wonny/gedash/internal/contracts"
	"github.com/wonny/gedash/internal/validation"
	"github.com/wonny/gedash/pkg/logger"
	"github.com/wonny/gedash/pkg/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	calls   atomic.Int32
	release chan struct{}

	mu      sync.Mutex
	records []contracts.ValidationRecord
	err     error
}

func (f *fakeSource) LoadAll(ctx context.Context) ([]contracts.ValidationRecord, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]contracts.ValidationRecord(nil), f.records...), nil
}

func (f *fakeSource) Relation() string { return "great_expectations.ge_validations_store_normalized" }

func (f *fakeSource) set(records []contracts.ValidationRecord, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
	f.err = err
}

func records(n int) []contracts.ValidationRecord {
	out := make([]contracts.ValidationRecord, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i].SchemaName = "s"
		out[i].TableName = "t"
		out[i].SchemaTableName = "s.t"
		validation.SetTime(&out[i], base.Add(time.Duration(i)*time.Hour))
	}
	return out
}

func newStore(src validation.Source) (*Store, *metrics.Metrics) {
	m := metrics.New()
	return NewStore(src, m, logger.Nop()), m
}

func TestGetLoadsOnce(t *testing.T) {
	src := &fakeSource{records: records(3)}
	store, m := newStore(src)

	first, err := store.Get(context.Background())
	require.NoError(t, err)
	second, err := store.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), src.calls.Load())
	assert.Same(t, first, second)
	assert.Equal(t, 3, first.Len())
	assert.Equal(t, src.Relation(), first.Relation)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Records))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Loads.WithLabelValues(metrics.ResultSuccess)))
}

func TestConcurrentGetSharesOneRead(t *testing.T) {
	src := &fakeSource{records: records(5), release: make(chan struct{})}
	store, _ := newStore(src)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*Snapshot, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = store.Get(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	// let the waiters pile up behind the in-flight read
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
}

func TestGetIgnoresCallerCancellation(t *testing.T) {
	src := &fakeSource{records: records(2)}
	store, _ := newStore(src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())
}

func TestRecordsReturnsCopy(t *testing.T) {
	src := &fakeSource{records: records(2)}
	store, _ := newStore(src)

	snap, err := store.Get(context.Background())
	require.NoError(t, err)

	got := snap.Records()
	got[0].SchemaName = "mutated"

	again := snap.Records()
	assert.Equal(t, "s", again[0].SchemaName)
}

func TestRecordsCopiesNumericValues(t *testing.T) {
	rows := records(1)
	lo, hi, observed := 1.0, 5.0, 3.0
	rows[0].ExpectationMin = &lo
	rows[0].ExpectationMax = &hi
	rows[0].ObservedValue = &observed

	store, _ := newStore(&fakeSource{records: rows})
	snap, err := store.Get(context.Background())
	require.NoError(t, err)

	got := snap.Records()
	*got[0].ExpectationMin = -1
	*got[0].ExpectationMax = -1
	*got[0].ObservedValue = -1

	again := snap.Records()
	require.NotNil(t, again[0].ObservedValue)
	assert.Equal(t, 1.0, *again[0].ExpectationMin)
	assert.Equal(t, 5.0, *again[0].ExpectationMax)
	assert.Equal(t, 3.0, *again[0].ObservedValue)
}

// scriptedSource answers each LoadAll call with the next step
type scriptedSource struct {
	calls atomic.Int32
	steps []func() ([]contracts.ValidationRecord, error)
}

func (s *scriptedSource) LoadAll(ctx context.Context) ([]contracts.ValidationRecord, error) {
	i := s.calls.Add(1) - 1
	return s.steps[i]()
}

func (s *scriptedSource) Relation() string { return "great_expectations.ge_validations_store_normalized" }

func TestReloadDoesNotJoinInFlightLoad(t *testing.T) {
	gate := make(chan struct{})
	src := &scriptedSource{steps: []func() ([]contracts.ValidationRecord, error){
		func() ([]contracts.ValidationRecord, error) { <-gate; return records(2), nil },
		func() ([]contracts.ValidationRecord, error) { return records(4), nil },
	}}
	store, _ := newStore(src)

	type result struct {
		snap *Snapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		snap, err := store.Get(context.Background())
		done <- result{snap, err}
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	reloaded, err := store.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, reloaded.Len())
	assert.Equal(t, int32(2), src.calls.Load())

	close(gate)
	stale := <-done
	require.NoError(t, stale.err)
	assert.Equal(t, 2, stale.snap.Len())

	// the older read finished last but does not replace the reload
	cached, ok := store.Cached()
	require.True(t, ok)
	assert.Same(t, reloaded, cached)
}

func TestReloadReplacesSnapshot(t *testing.T) {
	src := &fakeSource{records: records(2)}
	store, _ := newStore(src)

	first, err := store.Get(context.Background())
	require.NoError(t, err)

	src.set(records(4), nil)
	second, err := store.Reload(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), src.calls.Load())
	assert.Equal(t, 2, first.Len())
	assert.Equal(t, 4, second.Len())

	cached, ok := store.Cached()
	require.True(t, ok)
	assert.Same(t, second, cached)
}

func TestLoadErrorIsNotCached(t *testing.T) {
	connErr := &validation.ConnectionError{Op: "query", Err: errors.New("connection refused")}
	src := &fakeSource{err: connErr}
	store, m := newStore(src)

	_, err := store.Get(context.Background())
	require.Error(t, err)
	var ce *validation.ConnectionError
	assert.ErrorAs(t, err, &ce)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Loads.WithLabelValues(metrics.ResultConnectionError)))

	_, ok := store.Cached()
	assert.False(t, ok)

	src.set(records(1), nil)
	snap, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Len())
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestFailedReloadLeavesStoreEmpty(t *testing.T) {
	src := &fakeSource{records: records(2)}
	store, m := newStore(src)

	_, err := store.Get(context.Background())
	require.NoError(t, err)

	src.set(nil, &validation.DataFormatError{Column: validation.ColValidationTime, Row: 0, Err: validation.ErrTimeFormat})
	_, err = store.Reload(context.Background())
	require.Error(t, err)

	_, ok := store.Cached()
	assert.False(t, ok)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Records))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Loads.WithLabelValues(metrics.ResultFormatError)))
}

func TestInvalidate(t *testing.T) {
	src := &fakeSource{records: records(1)}
	store, _ := newStore(src)

	_, err := store.Get(context.Background())
	require.NoError(t, err)

	store.Invalidate()
	_, ok := store.Cached()
	assert.False(t, ok)

	_, err = store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}
