package query

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/basecamp-overlay/overlay/internal/cache"
	"github.com/basecamp-overlay/overlay/internal/model"
	"github.com/basecamp-overlay/overlay/internal/partition"
	"github.com/basecamp-overlay/overlay/internal/registry"
	"github.com/basecamp-overlay/overlay/internal/topology"
)

// DefaultTotalDeadline is the overall peer-wait budget D_total (spec §4.5).
const DefaultTotalDeadline = 4 * time.Second

// DefaultPeerDeadline is the per-call outbound deadline D_peer (spec §5).
const DefaultPeerDeadline = 5 * time.Second

// DefaultMaxHops is the bound on gather recursion depth (spec §3).
const DefaultMaxHops = 3

// Engine orchestrates the portal query path (spec §4.5): cache lookup,
// local read, concurrent peer fan-out under a bounded aggregate wait, and
// cache insert. It is only ever invoked on the node designated portal;
// the RPC layer (internal/rpcserver) is responsible for the "not portal"
// refusal in spec §4.5's first sentence.
type Engine struct {
	selfID  string
	topo    *topology.Topology
	store   *partition.Store
	cache   *cache.Cache
	reg     *registry.Registry
	logger  *zap.Logger
	dTotal  time.Duration
	dPeer   time.Duration
	maxHops int
}

// New builds a query Engine for the portal node selfID.
func New(selfID string, topo *topology.Topology, store *partition.Store, c *cache.Cache, reg *registry.Registry, logger *zap.Logger) *Engine {
	return &Engine{
		selfID:  selfID,
		topo:    topo,
		store:   store,
		cache:   c,
		reg:     reg,
		logger:  logger,
		dTotal:  DefaultTotalDeadline,
		dPeer:   DefaultPeerDeadline,
		maxHops: DefaultMaxHops,
	}
}

// Query runs the portal procedure of spec §4.5. It never returns a
// transport-level error: every failure mode short of a programming bug is
// folded into the returned QueryResponse, per spec §7's propagation policy.
func (e *Engine) Query(ctx context.Context, q model.Query) *model.QueryResponse {
	start := time.Now()
	resp := &model.QueryResponse{QueryID: q.QueryID}

	if cached, ok := e.cache.Lookup(q.QueryID); ok {
		cached.ProcessingMs = time.Since(start).Milliseconds()
		return cached
	}

	items, err := LocalRead(e.store, e.selfID, q)
	if err != nil {
		e.logger.Warn("query: local read failed", zap.String("query_id", q.QueryID), zap.Error(err))
	}
	resp.Results = append(resp.Results, items...)

	if time.Since(start) < e.dTotal {
		peerItems := e.fanOut(ctx, q, start)
		resp.Results = append(resp.Results, peerItems...)
	}

	resp.Success = true
	resp.ProcessingMs = time.Since(start).Milliseconds()
	e.cache.Insert(q.QueryID, resp)
	return resp
}

// fanOut dispatches one concurrent GatherData call per eligible peer and
// aggregates whichever responses arrive before the remaining D_total
// budget (measured from start) expires. Calls still outstanding when the
// budget expires are abandoned; their eventual results are never merged
// (spec §5). A node reachable along more than one path answers once per
// path; since every key has exactly one owner, an item whose key has
// already been aggregated is dropped.
func (e *Engine) fanOut(ctx context.Context, q model.Query, start time.Time) []model.DataItem {
	deadline := start.Add(e.dTotal)
	req := &model.PeerRequest{
		Query:          q,
		RequesterID:    e.selfID,
		HopCount:       0,
		MaxHops:        e.maxHops,
		RoutePath:      e.selfID,
		VisitedNodes:   map[string]bool{e.selfID: true},
		ForwardToPeers: true,
		DeadlineUnixMs: deadline.UnixMilli(),
	}

	type outcome struct {
		peerID string
		resp   *model.PeerResponse
		err    error
	}

	var dispatched int
	resultsCh := make(chan outcome, len(e.topo.PeersOf(e.selfID)))
	for _, peerID := range e.topo.PeersOf(e.selfID) {
		if !Eligible(e.topo, peerID, req.VisitedNodes, q.Kind, q.Key, q.RangeStart, q.RangeEnd) {
			continue
		}
		peer, ok := e.reg.Get(peerID)
		if !ok {
			continue
		}
		dispatched++
		go func(peerID string, peer *registry.Peer) {
			resp, err := peer.GatherData(ctx, req, e.dPeer)
			resultsCh <- outcome{peerID: peerID, resp: resp, err: err}
		}(peerID, peer)
	}

	if dispatched == 0 {
		return nil
	}

	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()

	var items []model.DataItem
	seenKeys := make(map[int64]bool)
	received := 0
	for received < dispatched {
		select {
		case o := <-resultsCh:
			received++
			if o.err != nil {
				e.logger.Warn("query: peer call failed", zap.String("peer", o.peerID), zap.Error(o.err))
				continue
			}
			if o.resp == nil || !o.resp.Success {
				continue
			}
			for _, item := range o.resp.Items {
				if seenKeys[item.Key] {
					continue
				}
				seenKeys[item.Key] = true
				items = append(items, item)
			}
		case <-timer.C:
			e.logger.Warn("query: aggregate wait budget expired, abandoning outstanding peers",
				zap.String("query_id", q.QueryID), zap.Int("received", received), zap.Int("dispatched", dispatched))
			return items
		}
	}
	return items
}
