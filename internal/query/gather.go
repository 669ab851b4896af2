package query

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/basecamp-overlay/overlay/internal/model"
	"github.com/basecamp-overlay/overlay/internal/partition"
	"github.com/basecamp-overlay/overlay/internal/registry"
	"github.com/basecamp-overlay/overlay/internal/topology"
)

// GatherHandler answers internal peer-to-peer GatherData calls (spec
// §4.6). Every node in the overlay runs one, including the portal — the
// portal's own fan-out targets run the exact same handler a non-portal
// node would.
type GatherHandler struct {
	selfID string
	topo   *topology.Topology
	store  *partition.Store
	reg    *registry.Registry
	logger *zap.Logger
	dTotal time.Duration
	dPeer  time.Duration
}

// NewGatherHandler builds a GatherHandler for node selfID.
func NewGatherHandler(selfID string, topo *topology.Topology, store *partition.Store, reg *registry.Registry, logger *zap.Logger) *GatherHandler {
	return &GatherHandler{
		selfID: selfID,
		topo:   topo,
		store:  store,
		reg:    reg,
		logger: logger,
		dTotal: DefaultTotalDeadline,
		dPeer:  DefaultPeerDeadline,
	}
}

// Handle runs the peer gather procedure of spec §4.6.
func (h *GatherHandler) Handle(ctx context.Context, req *model.PeerRequest) *model.PeerResponse {
	start := time.Now()
	resp := &model.PeerResponse{
		RequestID:         req.QueryID,
		ResponderID:       h.selfID,
		RoutePath:         appendRoute(req.RoutePath, h.selfID),
		ContributingNodes: []string{h.selfID},
	}

	items, err := LocalRead(h.store, h.selfID, req.Query)
	if err != nil {
		h.logger.Warn("gather: local read failed", zap.String("request_id", req.QueryID), zap.Error(err))
	}
	resp.Items = append(resp.Items, items...)

	if req.ForwardToPeers && req.HopCount+1 < req.MaxHops {
		deadline := start.Add(h.dTotal)
		if req.DeadlineUnixMs != 0 {
			deadline = time.UnixMilli(req.DeadlineUnixMs)
		}
		// Stop waiting one margin per hop before the shared deadline, so
		// this relay's reply still reaches its caller before the caller's
		// own timer (set for a later point) fires.
		const replyMargin = 100 * time.Millisecond
		deadline = deadline.Add(-time.Duration(req.HopCount+1) * replyMargin)
		childItems, childNodes := h.forward(ctx, req, deadline)
		resp.Items = append(resp.Items, childItems...)
		resp.ContributingNodes = append(resp.ContributingNodes, childNodes...)
	}

	resp.Success = true
	resp.ProcessingMs = time.Since(start).Milliseconds()
	return resp
}

// forward builds the incremented request of spec §4.6 step 3 and fans it
// out to every eligible peer not already on the visited path, aggregating
// under the same bounded-wait discipline as the portal's fan-out. deadline
// is the originating request's absolute D_total deadline, less this hop's
// reply margin (see Handle).
func (h *GatherHandler) forward(ctx context.Context, req *model.PeerRequest, deadline time.Time) ([]model.DataItem, []string) {
	forwarded := *req
	forwarded.HopCount = req.HopCount + 1
	forwarded.RoutePath = appendRoute(req.RoutePath, h.selfID)
	forwarded.VisitedNodes = make(map[string]bool, len(req.VisitedNodes)+1)
	for k, v := range req.VisitedNodes {
		forwarded.VisitedNodes[k] = v
	}
	forwarded.VisitedNodes[h.selfID] = true

	type outcome struct {
		peerID string
		resp   *model.PeerResponse
		err    error
	}

	var dispatched int
	resultsCh := make(chan outcome, len(h.topo.PeersOf(h.selfID)))
	for _, peerID := range h.topo.PeersOf(h.selfID) {
		if forwarded.Visited(peerID) {
			continue
		}
		if !Eligible(h.topo, peerID, forwarded.VisitedNodes, forwarded.Kind, forwarded.Key, forwarded.RangeStart, forwarded.RangeEnd) {
			continue
		}
		peer, ok := h.reg.Get(peerID)
		if !ok {
			continue
		}
		dispatched++
		fwd := forwarded
		go func(peerID string, peer *registry.Peer, fwd model.PeerRequest) {
			resp, err := peer.GatherData(ctx, &fwd, h.dPeer)
			resultsCh <- outcome{peerID: peerID, resp: resp, err: err}
		}(peerID, peer, fwd)
	}

	if dispatched == 0 {
		return nil, nil
	}

	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()

	var items []model.DataItem
	var nodes []string
	received := 0
	for received < dispatched {
		select {
		case o := <-resultsCh:
			received++
			if o.err != nil {
				h.logger.Warn("gather: peer call failed", zap.String("peer", o.peerID), zap.Error(o.err))
				continue
			}
			if o.resp == nil || !o.resp.Success {
				continue
			}
			items = append(items, o.resp.Items...)
			nodes = append(nodes, o.resp.ContributingNodes...)
		case <-timer.C:
			return items, nodes
		}
	}
	return items, nodes
}

func appendRoute(path, nodeID string) string {
	if path == "" {
		return nodeID
	}
	return path + "->" + nodeID
}
