// Package query implements the distributed query engine (spec §4.5), the
// peer gather handler (spec §4.6), and the pure predicates they share:
// kind-specific local reads (§4.7) and peer eligibility (§4.8). Neither
// predicate is duplicated between the portal path and the gather path —
// the teacher's own "two parallel copies of the service implementation"
// is the anti-pattern §9 calls out, and this package deliberately avoids
// repeating it.
package query

import (
	"github.com/basecamp-overlay/overlay/internal/model"
	"github.com/basecamp-overlay/overlay/internal/topology"
)

// Eligible reports whether calling peerID could possibly turn up matching
// data for a request of the given kind (spec §4.8). Every node loads the
// same full static topology at startup (spec §4.1), so this is evaluated
// against the bounding interval of peerID's entire unvisited subtree
// (topology.ReachableInterval), not just peerID's own range: a relay node
// that doesn't own the key can still be the only route to one that does
// (spec §8 scenario S2's A->B->D path, where B itself owns neither key).
// Checking only the immediate peer's own interval would prune that route
// away; checking reachability still prunes branches that provably cannot
// help, which is the rationale spec §4.8 gives for the check at all.
func Eligible(topo *topology.Topology, peerID string, visited map[string]bool, kind model.QueryKind, key, rangeStart, rangeEnd int64) bool {
	lo, hi, ok := topo.ReachableInterval(peerID, visited)
	if !ok {
		return false
	}
	switch kind {
	case model.QueryExact, model.QueryWrite:
		return lo <= key && key <= hi
	case model.QueryRange:
		return rangeStart <= hi && rangeEnd >= lo
	case model.QueryAll:
		return true
	default:
		return false
	}
}
