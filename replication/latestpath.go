package replication

import "sync"

// LatestPathTable records, per WAL rotation prefix, the newest segment name
// the log roller has rolled into — independent of which queues exist yet.
// preLogRoll updates it as part of the same durable step that enqueues the
// new segment on every live source; addPeer consults it to seed a freshly
// added peer at the current tail instead of replaying from the dawn of time.
//
// Lock ordering: latestPaths is acquired before walsById whenever both are
// needed by the same operation (see WALIndex's doc comment).
type LatestPathTable struct {
	mu    sync.RWMutex
	paths map[WALPrefix]WALName
}

func NewLatestPathTable() *LatestPathTable {
	return &LatestPathTable{paths: make(map[WALPrefix]WALName)}
}

// Set records name as the newest WAL rolled under prefix.
func (t *LatestPathTable) Set(prefix WALPrefix, name WALName) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths[prefix] = name
}

// Get returns the newest WAL rolled under prefix, if any has been recorded.
func (t *LatestPathTable) Get(prefix WALPrefix) (WALName, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	name, ok := t.paths[prefix]
	return name, ok
}

// Snapshot returns a defensive copy of the whole table, used by
// observability getters and by cleanOldLogs-adjacent bookkeeping that needs
// a consistent read across every prefix.
func (t *LatestPathTable) Snapshot() map[WALPrefix]WALName {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[WALPrefix]WALName, len(t.paths))
	for k, v := range t.paths {
		out[k] = v
	}
	return out
}
