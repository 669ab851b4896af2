package registry

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/basecamp-overlay/overlay/internal/topology"
)

func TestResolveHostSameGroupUsesLoopback(t *testing.T) {
	self := topology.NodeDescriptor{ID: "a", HostGroup: 1}
	peer := topology.NodeDescriptor{ID: "b", HostGroup: 1}
	assert.Equal(t, "127.0.0.1", resolveHost(self, peer))
}

func TestResolveHostDifferentGroupUsesEnvVar(t *testing.T) {
	t.Setenv(remoteAddrEnv, "10.0.0.9")
	self := topology.NodeDescriptor{ID: "a", HostGroup: 1}
	peer := topology.NodeDescriptor{ID: "b", HostGroup: 2}
	assert.Equal(t, "10.0.0.9", resolveHost(self, peer))
}

func TestResolveHostDifferentGroupFallsBackToLoopbackWhenEnvUnset(t *testing.T) {
	os.Unsetenv(remoteAddrEnv)
	self := topology.NodeDescriptor{ID: "a", HostGroup: 1}
	peer := topology.NodeDescriptor{ID: "b", HostGroup: 2}
	assert.Equal(t, "127.0.0.1", resolveHost(self, peer))
}
