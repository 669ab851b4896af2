// Package partition implements the local partition store (spec §4.2): an
// ordered, mutex-guarded map from integer key to data item, scoped to the
// owning node's key interval.
package partition

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"go.uber.org/zap"

	"github.com/basecamp-overlay/overlay/internal/model"
)

// Store is the mutex-guarded, pebble-backed local partition store for one
// node's key interval [Lo, Hi]. It is backed by pebble's in-memory VFS so
// its contents do not outlive the process (spec §3: "destroyed when the
// process exits") while still getting pebble's ordered-key iteration for
// range reads.
type Store struct {
	mu     sync.Mutex
	db     *pebble.DB
	lo, hi int64
	nodeID string
	logger *zap.Logger
}

// Open creates a Store scoped to [lo, hi] for node nodeID. The store starts
// empty; callers populate it with Seed.
func Open(nodeID string, lo, hi int64, logger *zap.Logger) (*Store, error) {
	db, err := pebble.Open(fmt.Sprintf("mem-%s", nodeID), &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, fmt.Errorf("open partition store for %s: %w", nodeID, err)
	}
	return &Store{db: db, lo: lo, hi: hi, nodeID: nodeID, logger: logger}, nil
}

// Close releases the underlying pebble handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Lo and Hi report the store's owned key interval.
func (s *Store) Lo() int64 { return s.lo }
func (s *Store) Hi() int64 { return s.hi }

// InRange reports whether key falls inside this store's interval.
func (s *Store) InRange(key int64) bool { return key >= s.lo && key <= s.hi }

func encodeKey(key int64) []byte {
	buf := make([]byte, 8)
	// Bias to unsigned so pebble's byte-order iteration matches integer
	// order even for negative keys.
	binary.BigEndian.PutUint64(buf, uint64(key)^(1<<63))
	return buf
}

func decodeKey(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63))
}

// Get returns the item at key, or ok=false if key is absent or out of
// range — absence is not an error (spec §4.2 contract: get(key) → value|absent).
func (s *Store) Get(key int64) (model.DataItem, bool, error) {
	if !s.InRange(key) {
		return model.DataItem{}, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(key)
}

func (s *Store) getLocked(key int64) (model.DataItem, bool, error) {
	data, closer, err := s.db.Get(encodeKey(key))
	if err == pebble.ErrNotFound {
		return model.DataItem{}, false, nil
	}
	if err != nil {
		return model.DataItem{}, false, fmt.Errorf("partition get %d: %w", key, err)
	}
	defer closer.Close()

	var item model.DataItem
	if err := json.Unmarshal(data, &item); err != nil {
		return model.DataItem{}, false, fmt.Errorf("partition decode %d: %w", key, err)
	}
	return item, true, nil
}

// Put stores item at item.Key. It is rejected (ok=false, err=nil) if the
// key falls outside this store's interval (spec §4.2).
func (s *Store) Put(item model.DataItem) (bool, error) {
	if !s.InRange(item.Key) {
		return false, nil
	}
	data, err := json.Marshal(item)
	if err != nil {
		return false, fmt.Errorf("partition encode %d: %w", item.Key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Set(encodeKey(item.Key), data, pebble.Sync); err != nil {
		return false, fmt.Errorf("partition put %d: %w", item.Key, err)
	}
	return true, nil
}

// Range returns every item whose key lies in [max(qlo,lo), min(qhi,hi)], in
// key order (spec §4.2).
func (s *Store) Range(qlo, qhi int64) ([]model.DataItem, error) {
	lo := qlo
	if s.lo > lo {
		lo = s.lo
	}
	hi := qhi
	if s.hi < hi {
		hi = s.hi
	}
	if lo > hi {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: encodeKey(lo),
		UpperBound: encodeKey(hi + 1), // pebble upper bound is exclusive
	})
	if err != nil {
		return nil, fmt.Errorf("partition range iter: %w", err)
	}
	defer iter.Close()

	var out []model.DataItem
	for valid := iter.First(); valid; valid = iter.Next() {
		var item model.DataItem
		if err := json.Unmarshal(iter.Value(), &item); err != nil {
			return nil, fmt.Errorf("partition decode %d: %w", decodeKey(iter.Key()), err)
		}
		out = append(out, item)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

// All returns every item in this store's interval, in key order.
func (s *Store) All() ([]model.DataItem, error) {
	return s.Range(s.lo, s.hi)
}

// CompactExpired runs a routine pebble compaction over this store's key
// range. The local partition store has no TTL concept of its own (spec
// §3 data items do not expire), so there is nothing to filter out; this
// exists purely as scheduled maintenance grounded in the teacher's
// ticker-driven dbCleanup pass, repurposed here to keep the underlying
// LSM tree compact rather than to evict anything.
func (s *Store) CompactExpired() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Compact(encodeKey(s.lo), encodeKey(s.hi+1), false)
}

// Seed populates the store with one synthetic item per key in [lo, hi], as
// required by the Local partition store entry lifecycle in spec §3.
func (s *Store) Seed() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.db.NewBatch()
	defer batch.Close()
	for key := s.lo; key <= s.hi; key++ {
		item := model.DataItem{
			Key:         key,
			Value:       model.Value{Kind: model.ValueString, Str: fmt.Sprintf("seed-%s-%d", s.nodeID, key)},
			SourceNode:  s.nodeID,
			CreatedAtMs: 0,
			DataType:    "string",
		}
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("partition seed encode %d: %w", key, err)
		}
		if err := batch.Set(encodeKey(key), data, nil); err != nil {
			return fmt.Errorf("partition seed set %d: %w", key, err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("partition seed commit: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("partition seeded", zap.String("node", s.nodeID), zap.Int64("lo", s.lo), zap.Int64("hi", s.hi))
	}
	return nil
}
