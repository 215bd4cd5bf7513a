package replication

import "sync"

// PeerRegistry holds the set of configured replication peers and their
// current sync-replication state. It is consulted by addPeer/removePeer and
// by cleanOldLogs when deciding whether a sync peer's remote WAL mirror must
// also be pruned.
type PeerRegistry struct {
	mu    sync.RWMutex
	peers map[string]*PeerConfig
	state map[string]SyncReplicationState
}

func NewPeerRegistry() *PeerRegistry {
	return &PeerRegistry{
		peers: make(map[string]*PeerConfig),
		state: make(map[string]SyncReplicationState),
	}
}

// Add registers or replaces peer cfg, called from addPeer.
func (r *PeerRegistry) Add(cfg PeerConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := cfg
	r.peers[cfg.ID] = &c
	if cfg.Mode == ModeSync {
		r.state[cfg.ID] = SyncStateActive
	}
}

// Remove drops peer id, called from removePeer once its queues are drained.
func (r *PeerRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, id)
	delete(r.state, id)
}

// Get returns peer id's configuration, if registered.
func (r *PeerRegistry) Get(id string) (PeerConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.peers[id]
	if !ok {
		return PeerConfig{}, false
	}
	return *cfg, true
}

// List returns every registered peer, in no particular order.
func (r *PeerRegistry) List() []PeerConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PeerConfig, 0, len(r.peers))
	for _, cfg := range r.peers {
		out = append(out, *cfg)
	}
	return out
}

// SetSyncState transitions a sync-replication peer's state machine.
func (r *PeerRegistry) SetSyncState(id string, state SyncReplicationState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[id] = state
}

// SyncState returns a sync-replication peer's current state.
func (r *PeerRegistry) SyncState(id string) SyncReplicationState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[id]
}
