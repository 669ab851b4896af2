// Package registry builds the peer-to-peer gRPC client handles described
// in spec §4.4: one long-lived connection per peer, dialed once at
// startup from the static topology and shared across every concurrent
// query. Dialing and host resolution are grounded in the teacher's
// api/grpc/clients/peer.go; the result set stays fixed for the process
// lifetime, matching spec.md's "no cluster-membership discovery" non-goal.
package registry

import (
	"context"
	"fmt"
	"os"
	"time"

	retry "github.com/avast/retry-go/v4"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/basecamp-overlay/overlay/internal/genproto"
	"github.com/basecamp-overlay/overlay/internal/model"
	"github.com/basecamp-overlay/overlay/internal/topology"
)

// remoteAddrEnv names the environment variable carrying the remote host
// address used for cross-host-group peers (spec §6 "Environment").
const remoteAddrEnv = "OVERLAY_REMOTE_ADDR"

// Peer is a long-lived handle to one remote node's OverlayService.
type Peer struct {
	ID     string
	conn   *grpc.ClientConn
	client genproto.OverlayServiceClient
	logger *zap.Logger
}

// Close releases the underlying connection.
func (p *Peer) Close() error { return p.conn.Close() }

// GatherData issues a GatherData call against this peer with the given
// per-call deadline (spec §4.5/§4.6's D_peer).
func (p *Peer) GatherData(ctx context.Context, req *model.PeerRequest, deadline time.Duration) (*model.PeerResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	return p.client.GatherData(ctx, req)
}

// Ping issues a zero-hop, kind="all" GatherData health probe against
// this peer (supplemental, not part of spec.md's core — see DESIGN.md).
// It does not recurse and uses a tight deadline, so a slow or unreachable
// peer is detected quickly without perturbing the overlay's call graph.
func (p *Peer) Ping(ctx context.Context) error {
	req := &model.PeerRequest{
		Query: model.Query{
			QueryID: "health-probe",
			Kind:    model.QueryAll,
		},
		RequesterID:    "health-probe",
		HopCount:       0,
		MaxHops:        0,
		ForwardToPeers: false,
		VisitedNodes:   map[string]bool{},
	}
	_, err := p.GatherData(ctx, req, 750*time.Millisecond)
	return err
}

// Registry holds every peer handle this node dials at startup, keyed by
// peer id (spec §4.4). Built once, read concurrently thereafter — no lock
// is needed since the map is never mutated after New returns.
type Registry struct {
	peers map[string]*Peer
}

// New dials every peer in topology.PeersOf(selfID) and returns the
// resulting Registry. A dial failure against any single peer is logged
// and that peer is simply omitted — spec §4.5/§4.6 already treat an
// unreachable peer as "contributes nothing", so a registry missing one
// handle degrades the same way a live call that later times out would.
func New(t *topology.Topology, selfID string, logger *zap.Logger) (*Registry, error) {
	self, ok := t.Node(selfID)
	if !ok {
		return nil, fmt.Errorf("registry: unknown self node %q", selfID)
	}

	r := &Registry{peers: make(map[string]*Peer)}
	for _, peerID := range t.PeersOf(selfID) {
		peerNode, ok := t.Node(peerID)
		if !ok {
			return nil, fmt.Errorf("registry: %q connects_to unknown node %q", selfID, peerID)
		}

		target := fmt.Sprintf("%s:%d", resolveHost(self, peerNode), peerNode.Port)
		conn, err := grpc.NewClient(target,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithKeepaliveParams(keepalive.ClientParameters{Time: 300 * time.Second}),
		)
		if err != nil {
			logger.Warn("registry: dial failed, peer omitted", zap.String("peer", peerID), zap.String("target", target), zap.Error(err))
			continue
		}

		conn.Connect()
		waitErr := retry.Do(func() error {
			if state := conn.GetState(); state == connectivity.Ready {
				return nil
			} else {
				return fmt.Errorf("peer %s connection state %s", peerID, state)
			}
		},
			retry.Attempts(3),
			retry.Delay(150*time.Millisecond),
			retry.OnRetry(func(n uint, err error) {
				logger.Warn("registry: waiting for peer connection", zap.String("peer", peerID), zap.Uint("attempt", n), zap.Error(err))
			}),
		)
		if waitErr != nil {
			// Not yet ready after a few attempts; keep the handle anyway —
			// grpc-go reconnects lazily on the first real call, so a slow
			// peer at startup degrades to its own first-query latency
			// rather than being permanently omitted (spec §4.4 treats the
			// registry as fixed for the process lifetime).
			logger.Warn("registry: peer not ready after retries, keeping handle for lazy reconnect",
				zap.String("peer", peerID), zap.Error(waitErr))
		}

		r.peers[peerID] = &Peer{
			ID:     peerID,
			conn:   conn,
			client: genproto.NewOverlayServiceClient(conn),
			logger: logger,
		}
	}
	return r, nil
}

// resolveHost implements spec §4.4's host-resolution rule: peers in the
// same host group are reached over loopback; peers in a different host
// group use the externally supplied remote address, falling back to
// loopback when that variable is unset.
func resolveHost(self, peer topology.NodeDescriptor) string {
	if self.HostGroup == peer.HostGroup {
		return "127.0.0.1"
	}
	if addr := os.Getenv(remoteAddrEnv); addr != "" {
		return addr
	}
	return "127.0.0.1"
}

// Get returns the handle for peerID, if this node dialed it at startup.
func (r *Registry) Get(peerID string) (*Peer, bool) {
	p, ok := r.peers[peerID]
	return p, ok
}

// All returns every peer handle in unspecified order.
func (r *Registry) All() []*Peer {
	out := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}

// Close closes every peer connection. Intended for graceful shutdown.
func (r *Registry) Close() {
	for _, p := range r.peers {
		_ = p.Close()
	}
}
