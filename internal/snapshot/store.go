package snapshot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/gedash/internal/contracts"
	"github.com/wonny/gedash/internal/validation"
	"github.com/wonny/gedash/pkg/logger"
	"github.com/wonny/gedash/pkg/metrics"
)

const loadKey = "load"

// Snapshot is one fully loaded, immutable copy of the validation relation
type Snapshot struct {
	records  []contracts.ValidationRecord
	LoadedAt time.Time
	Duration time.Duration
	Relation string
}

// Records returns a deep copy of the loaded relation; callers may do anything with it
func (s *Snapshot) Records() []contracts.ValidationRecord {
	out := slices.Clone(s.records)
	for i := range out {
		out[i].ExpectationMin = cloneFloat(out[i].ExpectationMin)
		out[i].ExpectationMax = cloneFloat(out[i].ExpectationMax)
		out[i].ObservedValue = cloneFloat(out[i].ObservedValue)
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Len returns the number of records
func (s *Snapshot) Len() int {
	return len(s.records)
}

// Store memoizes the loaded relation for the life of the process.
// There is no expiry: the cache changes only through Reload or Invalidate.
// ⭐ SSOT: the only holder of the loaded relation
type Store struct {
	source  validation.Source
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu    sync.RWMutex
	snap  *Snapshot
	gen   uint64 // bumped on every Invalidate
	group singleflight.Group
}

// NewStore creates an empty store backed by source
func NewStore(source validation.Source, m *metrics.Metrics, log *logger.Logger) *Store {
	return &Store{
		source:  source,
		logger:  log.WithComponent("snapshot"),
		metrics: m,
		now:     time.Now,
	}
}

// Get returns the cached snapshot, loading it first if the store is empty.
// Concurrent callers on an empty store share a single read. The read is not
// cancelled with ctx: it runs until it completes or the driver gives up.
func (s *Store) Get(ctx context.Context) (*Snapshot, error) {
	if snap, ok := s.Cached(); ok {
		return snap, nil
	}
	return s.load(ctx)
}

// Reload drops the cached snapshot and reads the relation again.
// The read always starts after the call; it never joins a load that was
// already in flight, and such a load no longer replaces the cache.
// On failure the store stays empty and the next Get retries the read.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	s.Invalidate()
	return s.read(context.WithoutCancel(ctx))
}

// Invalidate drops the cached snapshot
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.snap = nil
	s.gen++
	s.mu.Unlock()

	s.metrics.Records.Set(0)
}

// Cached returns the snapshot without loading
func (s *Store) Cached() (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snap, s.snap != nil
}

func (s *Store) load(ctx context.Context) (*Snapshot, error) {
	v, err, shared := s.group.Do(loadKey, func() (interface{}, error) {
		// a caller that missed the cache may arrive after the read finished
		if snap, ok := s.Cached(); ok {
			return snap, nil
		}
		return s.read(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("Joined in-flight load")
	}
	return v.(*Snapshot), nil
}

func (s *Store) read(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	start := s.now()
	records, err := s.source.LoadAll(ctx)
	elapsed := s.now().Sub(start)
	s.metrics.LoadDuration.Observe(elapsed.Seconds())

	if err != nil {
		s.metrics.Loads.WithLabelValues(loadResult(err)).Inc()
		s.logger.WithError(err).WithField("relation", s.source.Relation()).Error("Failed to load validation relation")
		return nil, fmt.Errorf("load %s: %w", s.source.Relation(), err)
	}

	snap := &Snapshot{
		records:  records,
		LoadedAt: s.now(),
		Duration: elapsed,
		Relation: s.source.Relation(),
	}

	s.metrics.Loads.WithLabelValues(metrics.ResultSuccess).Inc()

	s.mu.Lock()
	current := s.gen == gen
	if current {
		s.snap = snap
	}
	s.mu.Unlock()

	if !current {
		s.logger.WithField("relation", snap.Relation).Debug("Discarded load superseded by reload")
		return snap, nil
	}

	s.metrics.Records.Set(float64(len(records)))
	s.metrics.LastLoad.Set(float64(snap.LoadedAt.Unix()))

	s.logger.WithFields(map[string]interface{}{
		"relation": snap.Relation,
		"records":  len(records),
		"duration": elapsed.String(),
	}).Info("Loaded validation relation")

	return snap, nil
}

func loadResult(err error) string {
	var ce *validation.ConnectionError
	var dfe *validation.DataFormatError
	switch {
	case errors.As(err, &ce):
		return metrics.ResultConnectionError
	case errors.As(err, &dfe):
		return metrics.ResultFormatError
	default:
		return metrics.ResultError
	}
}
