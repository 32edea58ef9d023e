package repository

import (
	"context"
	"hash/fnv"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/okian/chicane/internal/domain/model"
	"github.com/okian/chicane/pkg/metrics"
)

// defaultShardCount spreads rider timelines over independent locks so
// concurrent merges for different riders never contend.
const defaultShardCount = 8

type shard struct {
	mu    sync.RWMutex
	marks map[model.RiderKey][]model.ComputedTime
}

// MemStore is the sharded in-memory Store implementation.
type MemStore struct {
	shards []*shard
	count  int // shard count, immutable after construction
}

// NewMemStore creates a MemStore with configuration options.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{count: defaultShardCount}
	for _, opt := range opts {
		opt(s)
	}
	s.shards = make([]*shard, s.count)
	for i := range s.shards {
		s.shards[i] = &shard{marks: make(map[model.RiderKey][]model.ComputedTime)}
	}
	metrics.UpdateStoreShardCount(s.count)
	return s
}

func (s *MemStore) shardFor(key model.RiderKey) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key.StageID))
	_, _ = h.Write([]byte(strconv.Itoa(key.RiderNumber)))
	return s.shards[h.Sum32()%uint32(s.count)]
}

// Rider returns a copy of all marks for one rider.
func (s *MemStore) Rider(_ context.Context, key model.RiderKey) ([]model.ComputedTime, error) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	marks := sh.marks[key]
	out := make([]model.ComputedTime, len(marks))
	copy(out, marks)
	return out, nil
}

// PutRider replaces the rider's marks.
func (s *MemStore) PutRider(_ context.Context, key model.RiderKey, marks []model.ComputedTime) error {
	start := time.Now()
	cp := make([]model.ComputedTime, len(marks))
	copy(cp, marks)
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.marks[key] = cp
	sh.mu.Unlock()
	metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	return nil
}

// Timeline returns one rider's marks ordered by index, then timestamp.
func (s *MemStore) Timeline(ctx context.Context, stageID string, riderNumber int) ([]model.ComputedTime, error) {
	marks, err := s.Rider(ctx, model.RiderKey{StageID: stageID, RiderNumber: riderNumber})
	if err != nil {
		return nil, err
	}
	sortMarks(marks)
	return marks, nil
}

// StageRecords returns every mark committed for a stage.
func (s *MemStore) StageRecords(_ context.Context, stageID string) ([]model.ComputedTime, error) {
	var out []model.ComputedTime
	for _, sh := range s.shards {
		sh.mu.RLock()
		for key, marks := range sh.marks {
			if key.StageID == stageID {
				out = append(out, marks...)
			}
		}
		sh.mu.RUnlock()
	}
	sortMarks(out)
	return out, nil
}

// Riders returns the number of rider timelines tracked.
func (s *MemStore) Riders(_ context.Context) int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.marks)
		sh.mu.RUnlock()
	}
	return n
}

// Count returns the total number of stored records.
func (s *MemStore) Count(_ context.Context) int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, marks := range sh.marks {
			n += len(marks)
		}
		sh.mu.RUnlock()
	}
	return n
}

func sortMarks(marks []model.ComputedTime) {
	sort.Slice(marks, func(i, j int) bool {
		a, b := marks[i], marks[j]
		if a.RiderNumber != b.RiderNumber {
			return a.RiderNumber < b.RiderNumber
		}
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		return a.Timestamp.Before(b.Timestamp)
	})
}
