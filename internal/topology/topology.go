package topology

import (
	"fmt"
	"sort"
)

// NodeDescriptor is the immutable description of one node (spec §3).
type NodeDescriptor struct {
	ID         string
	HostGroup  int
	Port       int
	ConnectsTo []string
	Lo, Hi     int64
}

// Contains reports whether key falls inside this node's closed interval.
func (n NodeDescriptor) Contains(key int64) bool {
	return key >= n.Lo && key <= n.Hi
}

// Overlaps reports whether [lo, hi] intersects this node's interval.
func (n NodeDescriptor) Overlaps(lo, hi int64) bool {
	return lo <= n.Hi && hi >= n.Lo
}

// Topology is the immutable, validated in-memory representation of the
// static overlay (spec §4.1). It is built once at startup and never
// mutated afterward — concurrent readers need no lock.
type Topology struct {
	nodes           map[string]NodeDescriptor
	order           []string // stable iteration order, sorted by id
	portal          string
	sharedMemoryKey string
	cacheSize       int
	cacheTTLSeconds int
}

// Load reads the topology document at cfgFile and builds a validated
// Topology, or returns a configuration error (spec §7) if any invariant in
// spec §3 is violated.
func Load(cfgFile string) (*Topology, error) {
	raw, err := LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	return Build(raw)
}

// Build validates a RawConfig and constructs the immutable Topology.
func Build(raw *RawConfig) (*Topology, error) {
	if len(raw.Nodes) == 0 {
		return nil, fmt.Errorf("topology config: no nodes defined")
	}

	t := &Topology{
		nodes:           make(map[string]NodeDescriptor, len(raw.Nodes)),
		portal:          raw.Portal,
		sharedMemoryKey: raw.SharedMemoryKey,
		cacheSize:       raw.CacheSize,
		cacheTTLSeconds: raw.CacheTTLSeconds,
	}
	if t.cacheSize <= 0 {
		return nil, fmt.Errorf("topology config: cache_size must be > 0, got %d", t.cacheSize)
	}
	if t.cacheTTLSeconds <= 0 {
		return nil, fmt.Errorf("topology config: cache_ttl_seconds must be > 0, got %d", t.cacheTTLSeconds)
	}

	ids := make([]string, 0, len(raw.Nodes))
	for id := range raw.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		rn := raw.Nodes[id]
		if rn.DataRange[0] > rn.DataRange[1] {
			return nil, fmt.Errorf("topology config: node %q has inverted range [%d, %d]", id, rn.DataRange[0], rn.DataRange[1])
		}
		t.nodes[id] = NodeDescriptor{
			ID:         id,
			HostGroup:  rn.HostGroup,
			Port:       rn.Port,
			ConnectsTo: append([]string(nil), rn.ConnectsTo...),
			Lo:         rn.DataRange[0],
			Hi:         rn.DataRange[1],
		}
		t.order = append(t.order, id)
	}

	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Topology) validate() error {
	if t.portal == "" {
		return fmt.Errorf("topology config: no portal designated")
	}
	if _, ok := t.nodes[t.portal]; !ok {
		return fmt.Errorf("topology config: portal %q is not a known node", t.portal)
	}

	for _, id := range t.order {
		n := t.nodes[id]
		for _, peer := range n.ConnectsTo {
			if _, ok := t.nodes[peer]; !ok {
				return fmt.Errorf("topology config: node %q connects_to unknown node %q", id, peer)
			}
		}
	}

	// Pairwise-disjoint intervals (spec §3 invariant).
	for i, idA := range t.order {
		a := t.nodes[idA]
		for _, idB := range t.order[i+1:] {
			b := t.nodes[idB]
			if a.Overlaps(b.Lo, b.Hi) {
				return fmt.Errorf("topology config: key ranges for %q [%d,%d] and %q [%d,%d] overlap", idA, a.Lo, a.Hi, idB, b.Lo, b.Hi)
			}
		}
	}

	return nil
}

// Nodes returns every node descriptor in stable (sorted-id) order.
func (t *Topology) Nodes() []NodeDescriptor {
	out := make([]NodeDescriptor, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.nodes[id])
	}
	return out
}

// Node returns the descriptor for id, if known.
func (t *Topology) Node(id string) (NodeDescriptor, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// PeersOf returns the node ids that id initiates connections to.
func (t *Topology) PeersOf(id string) []string {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	return append([]string(nil), n.ConnectsTo...)
}

// Portal returns the id of the designated portal node.
func (t *Topology) Portal() string { return t.portal }

// IsPortal reports whether id is the designated portal.
func (t *Topology) IsPortal(id string) bool { return id == t.portal }

// SharedStoreKey returns the configured cross-process shared-segment name,
// or "" when cross-process sharing is not configured (spec §9 — the core
// contracts are unchanged either way).
func (t *Topology) SharedStoreKey() string { return t.sharedMemoryKey }

// CacheCapacity returns the configured bounded-cache size.
func (t *Topology) CacheCapacity() int { return t.cacheSize }

// CacheTTLSeconds returns the configured cache entry TTL, in seconds.
func (t *Topology) CacheTTLSeconds() int { return t.cacheTTLSeconds }

// OwnerOf returns the id of the node whose interval contains key (spec §8
// invariant 1: exactly one node's interval contains any given key).
func (t *Topology) OwnerOf(key int64) (string, bool) {
	for _, id := range t.order {
		if t.nodes[id].Contains(key) {
			return id, true
		}
	}
	return "", false
}

// ReachableInterval computes the bounding key interval of every node
// reachable from start by following connects_to edges, never entering a
// node in exclude (typically a request's visited-node set). Every node
// loads the same full static topology at startup (spec §4.1), so a node
// deciding whether a given peer is worth calling can reason about that
// peer's whole unvisited subtree, not just the peer's own interval —
// this is what makes multi-hop routing through a non-owning relay
// possible while still pruning branches that provably cannot help (spec
// §4.8's rationale). ok is false only when start itself is excluded or
// unknown.
func (t *Topology) ReachableInterval(start string, exclude map[string]bool) (lo, hi int64, ok bool) {
	if exclude[start] {
		return 0, 0, false
	}
	if _, known := t.nodes[start]; !known {
		return 0, 0, false
	}

	seen := make(map[string]bool)
	stack := []string{start}
	first := true

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] || exclude[id] {
			continue
		}
		seen[id] = true

		n := t.nodes[id]
		if first {
			lo, hi = n.Lo, n.Hi
			first = false
		} else {
			if n.Lo < lo {
				lo = n.Lo
			}
			if n.Hi > hi {
				hi = n.Hi
			}
		}
		for _, peer := range n.ConnectsTo {
			if !seen[peer] && !exclude[peer] {
				stack = append(stack, peer)
			}
		}
	}
	return lo, hi, true
}

// NodesOverlapping returns the ids of every node whose interval intersects
// [lo, hi], in stable order.
func (t *Topology) NodesOverlapping(lo, hi int64) []string {
	var out []string
	for _, id := range t.order {
		if t.nodes[id].Overlaps(lo, hi) {
			out = append(out, id)
		}
	}
	return out
}
