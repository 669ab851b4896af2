package query

import (
	"fmt"
	"time"

	"github.com/basecamp-overlay/overlay/internal/model"
	"github.com/basecamp-overlay/overlay/internal/partition"
)

// LocalRead executes q against store using the kind-specific rules of
// spec §4.7, returning whatever data items this node contributes. It is
// shared verbatim by the portal query engine and the peer gather
// handler — neither special-cases "am I the portal" here.
func LocalRead(store *partition.Store, selfID string, q model.Query) ([]model.DataItem, error) {
	switch q.Kind {
	case model.QueryExact:
		item, ok, err := store.Get(q.Key)
		if err != nil {
			return nil, fmt.Errorf("local read: exact key %d: %w", q.Key, err)
		}
		if !ok {
			return nil, nil
		}
		return []model.DataItem{item}, nil

	case model.QueryRange:
		items, err := store.Range(q.RangeStart, q.RangeEnd)
		if err != nil {
			return nil, fmt.Errorf("local read: range [%d,%d]: %w", q.RangeStart, q.RangeEnd, err)
		}
		return items, nil

	case model.QueryAll:
		items, err := store.All()
		if err != nil {
			return nil, fmt.Errorf("local read: all: %w", err)
		}
		return items, nil

	case model.QueryWrite:
		if !store.InRange(q.Key) {
			// Non-owning node: a no-op contribution, not an error (spec §4.7).
			return nil, nil
		}
		item := model.DataItem{
			Key:         q.Key,
			Value:       model.Value{Kind: model.ValueString, Str: q.StringParam},
			SourceNode:  selfID,
			CreatedAtMs: time.Now().UnixMilli(),
			DataType:    "string",
		}
		ok, err := store.Put(item)
		if err != nil {
			return nil, fmt.Errorf("local write: key %d: %w", q.Key, err)
		}
		if !ok {
			return nil, nil
		}
		return []model.DataItem{item}, nil

	default:
		return nil, fmt.Errorf("local read: unknown query kind %q", q.Kind)
	}
}
