package replication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeerRegistry_AddGetRemove(t *testing.T) {
	r := NewPeerRegistry()

	_, ok := r.Get("P")
	assert.False(t, ok)

	r.Add(PeerConfig{ID: "P", Endpoint: "peer:9090", Mode: ModeAsync, Enabled: true})
	cfg, ok := r.Get("P")
	require.True(t, ok)
	assert.Equal(t, "peer:9090", cfg.Endpoint)

	r.Remove("P")
	_, ok = r.Get("P")
	assert.False(t, ok, "addPeer then removePeer leaves no trace of the peer")
}

func TestPeerRegistry_SyncStateDefaultsToActiveForSyncPeers(t *testing.T) {
	r := NewPeerRegistry()
	r.Add(PeerConfig{ID: "S", Mode: ModeSync, Enabled: true})
	assert.Equal(t, SyncStateActive, r.SyncState("S"))

	r.SetSyncState("S", SyncStateStandby)
	assert.Equal(t, SyncStateStandby, r.SyncState("S"))
}

func TestPeerRegistry_List(t *testing.T) {
	r := NewPeerRegistry()
	r.Add(PeerConfig{ID: "A"})
	r.Add(PeerConfig{ID: "B"})
	assert.Len(t, r.List(), 2)
}
