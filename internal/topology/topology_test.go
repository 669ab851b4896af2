package topology_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basecamp-overlay/overlay/internal/topology"
)

func fiveNodeConfig() *topology.RawConfig {
	return &topology.RawConfig{
		Portal:          "A",
		CacheSize:       10,
		CacheTTLSeconds: 5,
		Nodes: map[string]topology.RawNode{
			"A": {HostGroup: 1, Port: 7001, ConnectsTo: []string{"B"}, DataRange: [2]int64{0, 199}},
			"B": {HostGroup: 1, Port: 7002, ConnectsTo: []string{"A", "C", "D"}, DataRange: [2]int64{200, 399}},
			"C": {HostGroup: 1, Port: 7003, ConnectsTo: []string{"B", "E"}, DataRange: [2]int64{400, 599}},
			"D": {HostGroup: 1, Port: 7004, ConnectsTo: []string{"B", "E"}, DataRange: [2]int64{600, 799}},
			"E": {HostGroup: 1, Port: 7005, ConnectsTo: []string{"C", "D"}, DataRange: [2]int64{800, 999}},
		},
	}
}

func TestBuildValidTopology(t *testing.T) {
	topo, err := topology.Build(fiveNodeConfig())
	require.NoError(t, err)
	assert.Equal(t, "A", topo.Portal())
	assert.True(t, topo.IsPortal("A"))
	assert.ElementsMatch(t, []string{"A", "B", "C", "D", "E"}, func() []string {
		var ids []string
		for _, n := range topo.Nodes() {
			ids = append(ids, n.ID)
		}
		return ids
	}())
}

func TestOwnerOfIsUniquePerKey(t *testing.T) {
	topo, err := topology.Build(fiveNodeConfig())
	require.NoError(t, err)

	for key := int64(0); key <= 999; key += 37 {
		owner, ok := topo.OwnerOf(key)
		require.True(t, ok, "key %d should have an owner", key)
		for _, n := range topo.Nodes() {
			if n.ID == owner {
				continue
			}
			assert.False(t, n.Contains(key), "key %d owned by %s but also claimed by %s", key, owner, n.ID)
		}
	}

	_, ok := topo.OwnerOf(-1)
	assert.False(t, ok)
	_, ok = topo.OwnerOf(1000)
	assert.False(t, ok)
}

func TestNodesOverlapping(t *testing.T) {
	topo, err := topology.Build(fiveNodeConfig())
	require.NoError(t, err)

	overlapping := topo.NodesOverlapping(150, 450)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, overlapping)
}

func TestRejectsOverlappingRanges(t *testing.T) {
	cfg := fiveNodeConfig()
	n := cfg.Nodes["B"]
	n.DataRange = [2]int64{190, 399} // now overlaps A's [0,199]
	cfg.Nodes["B"] = n

	_, err := topology.Build(cfg)
	assert.Error(t, err)
}

func TestRejectsUnknownPeer(t *testing.T) {
	cfg := fiveNodeConfig()
	n := cfg.Nodes["A"]
	n.ConnectsTo = []string{"Z"}
	cfg.Nodes["A"] = n

	_, err := topology.Build(cfg)
	assert.Error(t, err)
}

func TestRejectsMissingPortal(t *testing.T) {
	cfg := fiveNodeConfig()
	cfg.Portal = "Z"

	_, err := topology.Build(cfg)
	assert.Error(t, err)
}

func TestReachableIntervalFromNonOwningRelay(t *testing.T) {
	topo, err := topology.Build(fiveNodeConfig())
	require.NoError(t, err)

	// From B, excluding A (already visited), B's own subtree spans
	// everything downstream of it: B, C, D, E.
	lo, hi, ok := topo.ReachableInterval("B", map[string]bool{"A": true})
	require.True(t, ok)
	assert.Equal(t, int64(200), lo)
	assert.Equal(t, int64(999), hi)
}

func TestReachableIntervalExcludesVisitedBranch(t *testing.T) {
	topo, err := topology.Build(fiveNodeConfig())
	require.NoError(t, err)

	// From C, excluding B (the back-edge): C, E, and D (through E) remain
	// reachable.
	lo, hi, ok := topo.ReachableInterval("C", map[string]bool{"A": true, "B": true})
	require.True(t, ok)
	assert.Equal(t, int64(400), lo)
	assert.Equal(t, int64(999), hi)
}

func TestReachableIntervalFalseWhenStartExcluded(t *testing.T) {
	topo, err := topology.Build(fiveNodeConfig())
	require.NoError(t, err)

	_, _, ok := topo.ReachableInterval("B", map[string]bool{"B": true})
	assert.False(t, ok)
}

func TestReachableIntervalFalseForUnknownNode(t *testing.T) {
	topo, err := topology.Build(fiveNodeConfig())
	require.NoError(t, err)

	_, _, ok := topo.ReachableInterval("Z", map[string]bool{})
	assert.False(t, ok)
}

func TestRejectsBadCacheSettings(t *testing.T) {
	cfg := fiveNodeConfig()
	cfg.CacheSize = 0
	_, err := topology.Build(cfg)
	assert.Error(t, err)

	cfg = fiveNodeConfig()
	cfg.CacheTTLSeconds = 0
	_, err = topology.Build(cfg)
	assert.Error(t, err)
}
