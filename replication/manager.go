package replication

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/INLOpen/nexusbase/config"
	"github.com/INLOpen/nexusbase/hooks"
	"github.com/INLOpen/nexusbase/sys"
	"github.com/INLOpen/nexusbase/wal"
)

// legacyRegionReplicationEndpoint is the historical region-replication
// endpoint identifier that addPeer must recognize and skip: it names an
// in-process delivery mechanism this module does not implement a source
// for, not a remote peer to dial.
const legacyRegionReplicationEndpoint = "_REGION_REPLICATION_"

// walPrefixDefault is the only WAL rotation prefix PrefixOf ever produces
// for this server's single-lineage WAL, used as the latest-path table key.
const walPrefixDefault WALPrefix = ""

// DialEndpointFunc opens a PeerEndpoint for a configured peer. Overridable in
// tests to avoid real network dials; defaults to DialPeerEndpoint.
type DialEndpointFunc func(cfg PeerConfig) (PeerEndpoint, error)

// IsServerAliveFunc reports whether the server at addr is still considered
// part of the cluster. The source manager only consumes this capability; the
// liveness oracle itself (ZooKeeper watches, a gossip layer, etc.) is outside
// this module's scope.
type IsServerAliveFunc func(addr string) bool

// SourceManager is the coordination point for every replication source on
// this server: it owns the WAL index, the latest-path table, the buffer
// quota, and the set of active Source goroutines, and it is the sole
// subscriber of the WAL's pre/post rotate hooks.
//
// Lock ordering follows latestPaths before walsById (see WALIndex and
// LatestPathTable's doc comments); sourcesMu and oldsourcesMu, the locks
// guarding the normal-source and recovered-source maps, are acquired
// independently of both and never while either is held, and never while the
// other is held.
type SourceManager struct {
	serverName string
	walDir     string

	cfg    config.ReplicationConfig
	logger *slog.Logger

	walIndex   *WALIndex
	latestPath *LatestPathTable
	quota      *BufferQuota
	peers      *PeerRegistry
	storage    QueueStorage
	fs         sys.File

	dialEndpoint  DialEndpointFunc
	isServerAlive IsServerAliveFunc
	wal           wal.WALInterface

	sourcesMu sync.RWMutex
	sources   map[QueueID]Source // one normal source per configured peer
	oldwal    map[QueueID]Source // queues draining after removePeer, disjoint from sources

	// oldsourcesMu guards oldsources, the recovered-source registry
	// populated by claimQueue: sources installed here were originally
	// opened by a server that has since died, distinct from both sources
	// and from the removePeer drain state in oldwal.
	oldsourcesMu sync.RWMutex
	oldsources   map[QueueID]Source

	failover *failoverClaimer

	hookMgr hooks.HookManager

	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

// NewSourceManager builds a SourceManager for this server. walDir is the
// directory the local WAL rolls segments into; serverName identifies this
// server's queues to peers and to claimQueue.
func NewSourceManager(serverName, walDir string, cfg config.ReplicationConfig, storage QueueStorage, hookMgr hooks.HookManager, logger *slog.Logger) *SourceManager {
	logger = logger.With("component", "replication_source_manager")

	limitBytes := cfg.TotalBufferBytes
	m := &SourceManager{
		serverName: serverName,
		walDir:     walDir,
		cfg:        cfg,
		logger:     logger,
		walIndex:   NewWALIndex(),
		latestPath: NewLatestPathTable(),
		quota:      NewBufferQuota(limitBytes, nil),
		peers:      NewPeerRegistry(),
		storage:    storage,
		dialEndpoint: func(pc PeerConfig) (PeerEndpoint, error) {
			return DialPeerEndpoint(pc.Endpoint)
		},
		isServerAlive: func(string) bool { return false },
		sources:       make(map[QueueID]Source),
		oldwal:        make(map[QueueID]Source),
		oldsources:    make(map[QueueID]Source),
		fs:            sys.NewFile(),
		hookMgr:       hookMgr,
		closed:        make(chan struct{}),
	}

	sleepBefore := time.Duration(cfg.SleepBeforeFailoverMs) * time.Millisecond
	m.failover = newFailoverClaimer(m, cfg.ExecutorWorkers, sleepBefore, func(addr string) bool { return m.isServerAlive(addr) }, logger)
	return m
}

// SetIsServerAliveFunc overrides the liveness oracle the failover claimer
// consults before stealing a dead server's queues.
func (m *SourceManager) SetIsServerAliveFunc(f IsServerAliveFunc) {
	m.isServerAlive = f
}

// SetDialEndpointFunc overrides how a peer's PeerEndpoint is dialed; tests
// substitute an in-memory fake here.
func (m *SourceManager) SetDialEndpointFunc(f DialEndpointFunc) {
	m.dialEndpoint = f
}

// SetWAL wires the local WAL whose segments CleanOldLogs is allowed to purge
// once every queue has shipped past them. Must be called before the first
// rotation if replication is to gate WAL purges at all.
func (m *SourceManager) SetWAL(w wal.WALInterface) {
	m.wal = w
}

// SetFs overrides the filesystem abstraction sync-replication sources use to
// delete their remote WAL mirror; tests substitute a fake here.
func (m *SourceManager) SetFs(fs sys.File) {
	m.fs = fs
}

// fireFatalAbort logs and, if a hook manager is configured, fires
// hooks.EventFatalAbort so other subsystems learn this component can no
// longer guarantee its durable state and should treat it as a signal to
// abort rather than retry.
func (m *SourceManager) fireFatalAbort(ctx context.Context, component string, err error) {
	m.logger.Error("fatal error in replication subsystem, aborting", "component", component, "error", err)
	if m.hookMgr == nil {
		return
	}
	if herr := m.hookMgr.Trigger(ctx, hooks.NewFatalAbortEvent(hooks.FatalAbortPayload{Component: component, Err: err})); herr != nil {
		m.logger.Error("fatal-abort hook listener failed", "component", component, "error", herr)
	}
}

// Init subscribes to the WAL's rotate hooks and starts the failover claimer.
// It must be called once, after every configured peer has been added via
// AddPeer, before the WAL begins rolling segments.
func (m *SourceManager) Init(ctx context.Context) error {
	if m.hookMgr != nil {
		m.hookMgr.Register(hooks.EventPreWALRotate, &hookFunc{fn: m.onPreWALRotate})
		m.hookMgr.Register(hooks.EventPostWALRotate, &hookFunc{fn: m.onPostWALRotate})
	}
	m.failover.start(ctx)

	for _, pc := range m.cfg.Peers {
		if !pc.Enabled {
			continue
		}
		if err := m.AddPeer(ctx, PeerConfig{
			ID:           pc.ID,
			Endpoint:     pc.Endpoint,
			Mode:         ParseReplicationMode(pc.Mode),
			RemoteWALDir: pc.RemoteWALDir,
			Serial:       pc.Serial,
			Enabled:      pc.Enabled,
		}); err != nil {
			return fmt.Errorf("replication: add configured peer %s: %w", pc.ID, err)
		}
	}
	return nil
}

// hookFunc adapts a plain function into a hooks.HookListener so the source
// manager doesn't need a dedicated named type per subscribed event.
type hookFunc struct {
	fn func(ctx context.Context, evt hooks.HookEvent) error
}

func (h *hookFunc) OnEvent(ctx context.Context, evt hooks.HookEvent) error { return h.fn(ctx, evt) }
func (h *hookFunc) Priority() int                                         { return 50 }
func (h *hookFunc) IsAsync() bool                                         { return false }

// --- Component D: Log-Roll Handler ---

func (m *SourceManager) onPreWALRotate(ctx context.Context, evt hooks.HookEvent) error {
	payload, ok := evt.Payload().(hooks.PreWALRotatePayload)
	if !ok {
		return nil
	}
	return m.preLogRoll(ctx, WALName(formatWALSegmentName(payload.NewSegmentIndex)))
}

func (m *SourceManager) onPostWALRotate(ctx context.Context, evt hooks.HookEvent) error {
	payload, ok := evt.Payload().(hooks.PostWALRotatePayload)
	if !ok {
		return nil
	}
	return m.postLogRoll(ctx, WALName(formatWALSegmentName(payload.NewSegmentIndex)))
}

func formatWALSegmentName(index uint64) string {
	return fmt.Sprintf("%08d.wal", index)
}

// preLogRoll fires after the new segment has been created but before the
// WAL closes the one being rolled out. It durably records the new segment
// against every live normal source's queue here, before the old segment
// closes, so a crash between preLogRoll and postLogRoll never leaves durable
// state that doesn't yet account for the segment about to become active. A
// storage failure here is fatal: the roll must not proceed with queues that
// don't durably know about it yet.
func (m *SourceManager) preLogRoll(ctx context.Context, newName WALName) error {
	m.sourcesMu.RLock()
	qids := make([]QueueID, 0, len(m.sources))
	for qid := range m.sources {
		qids = append(qids, qid)
	}
	m.sourcesMu.RUnlock()

	for _, qid := range qids {
		m.walIndex.AddWAL(qid, newName)
		if m.storage != nil {
			if err := m.storage.AddWAL(qid, newName); err != nil {
				fatal := &FatalError{Op: "persist new wal for queue " + qid.String(), Err: err}
				m.fireFatalAbort(ctx, "preLogRoll", fatal)
				return fatal
			}
		}
	}
	m.latestPath.Set(walPrefixDefault, newName)
	return nil
}

// postLogRoll fires once the old segment has actually closed. It hands the
// now-active segment to every live normal source's shipping loop; recovered
// sources are never notified here since they only ever ship what they were
// claimed with.
func (m *SourceManager) postLogRoll(ctx context.Context, newName WALName) error {
	m.sourcesMu.RLock()
	defer m.sourcesMu.RUnlock()
	for qid, src := range m.sources {
		if err := src.EnqueueLog(newName); err != nil {
			m.logger.Warn("failed to enqueue rolled wal on source", "queue", qid.String(), "wal", newName, "error", err)
		}
	}
	return nil
}

// --- Component A: Source Registry / Component F: Peer Lifecycle ---

// AddPeer registers a new peer and starts a fresh source for it. If the
// latest-path table already knows of a segment rolled before this peer
// existed, the new source is seeded with it so the peer catches up from the
// current tail rather than from the dawn of time. The legacy
// region-replication endpoint identifier is recognized and skipped: it
// names an in-process delivery path this module never builds a source for.
func (m *SourceManager) AddPeer(ctx context.Context, cfg PeerConfig) error {
	if cfg.Endpoint == legacyRegionReplicationEndpoint {
		m.logger.Info("skipping legacy region-replication endpoint peer", "peer", cfg.ID)
		return nil
	}

	m.peers.Add(cfg)

	qid := QueueID{PeerID: cfg.ID}
	var endpoint PeerEndpoint
	var err error
	if cfg.Enabled {
		endpoint, err = m.dialEndpoint(cfg)
		if err != nil {
			return &ErrInterrupted{Op: "dial peer " + cfg.ID, Err: err}
		}
	}

	src := NewSource(cfg.ID, qid, cfg.Mode, m.walDir, endpoint, m.walIndex, m.quota, m.storage,
		time.Duration(m.cfg.SourceSyncSleepForRetriesMs)*time.Millisecond, m.cfg.SourceSyncMaxRetriesMultiplier, m.logger)
	if cfg.Mode == ModeSync && cfg.RemoteWALDir != "" {
		src.SetRemoteDelete(m.fs, cfg.RemoteWALDir)
	}

	// Seed from the latest-path table under its lock before walIndex's,
	// matching this manager's documented lock order.
	seeded, hasSeed := m.latestPath.Get(walPrefixDefault)
	if hasSeed {
		m.walIndex.AddWAL(qid, seeded)
		if m.storage != nil {
			if err := m.storage.AddWAL(qid, seeded); err != nil {
				fatal := &FatalError{Op: "seed new peer queue from latest path", Err: err}
				m.fireFatalAbort(ctx, "AddPeer", fatal)
				return fatal
			}
		}
	}

	m.sourcesMu.Lock()
	m.sources[qid] = src
	m.sourcesMu.Unlock()

	src.Startup(ctx)
	if hasSeed {
		if err := src.EnqueueLog(seeded); err != nil {
			m.logger.Warn("failed to enqueue seeded wal on new source", "peer", cfg.ID, "wal", seeded, "error", err)
		}
	}
	m.logger.Info("added replication peer", "peer", cfg.ID, "mode", cfg.Mode.String())
	return nil
}

// RemovePeer stops accepting new WALs for peer id and moves its queue into
// oldwal to drain whatever is still pending before the queue and peer
// registration are finally removed. oldwal is disjoint from oldsources: it
// holds normal sources being torn down, never recovered ones.
//
// Open question (matches the original's ambiguity): this implementation does
// not block the caller waiting for the drain to finish — it returns once the
// source has stopped accepting new logs, mirroring the non-blocking behavior
// documented as acceptable for removePeer.
func (m *SourceManager) RemovePeer(ctx context.Context, id string) error {
	qid := QueueID{PeerID: id}

	m.sourcesMu.Lock()
	src, ok := m.sources[qid]
	if !ok {
		m.sourcesMu.Unlock()
		return ErrPeerNotFound
	}
	delete(m.sources, qid)
	m.oldwal[qid] = src
	m.sourcesMu.Unlock()

	m.peers.Remove(id)

	go func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := src.Terminate(drainCtx); err != nil {
			m.logger.Warn("peer source did not drain cleanly", "peer", id, "error", err)
		}
		m.sourcesMu.Lock()
		delete(m.oldwal, qid)
		m.sourcesMu.Unlock()
		m.walIndex.RemoveQueue(qid)
		if m.storage != nil {
			if err := m.storage.RemoveQueue(qid); err != nil {
				m.logger.Error("failed to remove queue from durable storage", "queue", qid.String(), "error", err)
			}
		}
	}()
	return nil
}

// RefreshSources swaps in a freshly configured source for every registered
// peer, used after a configuration reload changes peer definitions in place
// (endpoint, mode) without a full restart. Unlike RemovePeer, it never
// touches the WAL index or durable queue state and never resets ship
// metrics: the replacement source adopts the outgoing source's metrics and
// is re-enqueued with every WAL still pending in the index before the
// outgoing source is asked to stop.
func (m *SourceManager) RefreshSources(ctx context.Context) error {
	for _, p := range m.peers.List() {
		if err := m.refreshSource(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (m *SourceManager) refreshSource(ctx context.Context, cfg PeerConfig) error {
	qid := QueueID{PeerID: cfg.ID}

	m.sourcesMu.Lock()
	old, hadOld := m.sources[qid]
	m.sourcesMu.Unlock()

	var endpoint PeerEndpoint
	var err error
	if cfg.Enabled {
		endpoint, err = m.dialEndpoint(cfg)
		if err != nil {
			return &ErrInterrupted{Op: "dial peer " + cfg.ID, Err: err}
		}
	}

	next := NewSource(cfg.ID, qid, cfg.Mode, m.walDir, endpoint, m.walIndex, m.quota, m.storage,
		time.Duration(m.cfg.SourceSyncSleepForRetriesMs)*time.Millisecond, m.cfg.SourceSyncMaxRetriesMultiplier, m.logger)
	if cfg.Mode == ModeSync && cfg.RemoteWALDir != "" {
		next.SetRemoteDelete(m.fs, cfg.RemoteWALDir)
	}
	if hadOld {
		next.AdoptMetricsFrom(old)
	}

	m.sourcesMu.Lock()
	m.sources[qid] = next
	m.sourcesMu.Unlock()

	next.Startup(ctx)
	for _, name := range m.walIndex.WALsFor(qid, walPrefixDefault) {
		if err := next.EnqueueLog(name); err != nil {
			m.logger.Warn("failed to re-enqueue pending wal onto refreshed source", "peer", cfg.ID, "wal", name, "error", err)
		}
	}

	if hadOld {
		go func() {
			drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := old.Terminate(drainCtx); err != nil {
				m.logger.Warn("previous source did not stop cleanly during refresh", "peer", cfg.ID, "error", err)
			}
		}()
	}
	m.logger.Info("refreshed replication source", "peer", cfg.ID, "mode", cfg.Mode.String())
	return nil
}

// DrainSources stops peerID's source without removing the peer registration
// or any durable queue state, transitioning a synchronous-replication peer
// into SyncStateStandby. It is the per-peer operation a peer goes through
// when this cluster stops shipping to it without the peer being removed;
// node shutdown uses Join (and its internal drainAllSources), not this
// method.
func (m *SourceManager) DrainSources(ctx context.Context, peerID string) error {
	qid := QueueID{PeerID: peerID}

	m.sourcesMu.Lock()
	src, ok := m.sources[qid]
	if ok {
		delete(m.sources, qid)
	}
	m.sourcesMu.Unlock()
	if !ok {
		return ErrPeerNotFound
	}

	if err := src.Terminate(ctx); err != nil {
		return &ErrInterrupted{Op: "drain source for peer " + peerID, Err: err}
	}
	m.peers.SetSyncState(peerID, SyncStateStandby)
	m.logger.Info("drained replication source, peer now standby", "peer", peerID)
	return nil
}

// drainAllSources blocks until every active, recovered, and draining source
// has stopped — the node-shutdown half of a graceful Join, as opposed to
// DrainSources's single-peer standby transition.
func (m *SourceManager) drainAllSources(ctx context.Context) error {
	m.sourcesMu.Lock()
	all := make([]Source, 0, len(m.sources)+len(m.oldwal))
	for _, s := range m.sources {
		all = append(all, s)
	}
	for _, s := range m.oldwal {
		all = append(all, s)
	}
	m.sources = make(map[QueueID]Source)
	m.oldwal = make(map[QueueID]Source)
	m.sourcesMu.Unlock()

	m.oldsourcesMu.Lock()
	for _, s := range m.oldsources {
		all = append(all, s)
	}
	m.oldsources = make(map[QueueID]Source)
	m.oldsourcesMu.Unlock()

	var firstErr error
	for _, s := range all {
		if err := s.Terminate(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// --- Component G: Failover Claimer ---

// NotifyServerDead submits the given dead server's queues, discovered from
// durable storage, to the failover claimer. Called by whatever membership
// watcher this server uses to learn a peer server died.
func (m *SourceManager) NotifyServerDead(deadServer string) {
	if m.storage == nil {
		return
	}
	all, err := m.storage.GetAllQueues()
	if err != nil {
		m.logger.Error("failed to list queues while handling dead server", "dead_server", deadServer, "error", err)
		return
	}
	var owned []QueueID
	for _, qid := range all {
		if qid.OwnerServer == deadServer {
			owned = append(owned, qid)
		}
	}
	if len(owned) == 0 {
		return
	}
	m.failover.submit(failoverTask{deadServer: deadServer, queueIDs: owned})
}

// claimQueue transfers ownership of qid (originally opened by deadServer)
// to this server, recreating a recovered Source for it in the oldsources
// registry and seeding that source's shipping loop with whatever WALs the
// durable store still lists.
//
// Two races are handled explicitly, per the claim procedure: if the named
// peer no longer exists locally, the task is dropped before any durable
// claim is attempted (step 2); if the peer's identity changed (removed, or
// removed and re-added under a different endpoint) while the claim was in
// flight, the claimed queue is released instead of installing a source for
// an identity that no longer applies (step 5).
func (m *SourceManager) claimQueue(ctx context.Context, qid QueueID, deadServer string) error {
	pc, ok := m.peers.Get(qid.PeerID)
	if !ok {
		m.logger.Info("dropping failover claim for peer no longer configured locally", "peer", qid.PeerID, "dead_server", deadServer)
		return nil
	}

	claimedID := QueueID{PeerID: qid.PeerID, OwnerServer: deadServer}

	if m.storage == nil {
		fatal := &FatalError{Op: "claim queue without durable storage", Err: fmt.Errorf("no queue storage configured")}
		m.fireFatalAbort(ctx, "claimQueue", fatal)
		return fatal
	}
	walNames, err := m.storage.ClaimQueue(qid, claimedID)
	if err != nil {
		return &ErrInterrupted{Op: "claim queue " + qid.String(), Err: err}
	}

	var endpoint PeerEndpoint
	if pc.Enabled {
		endpoint, err = m.dialEndpoint(pc)
		if err != nil {
			return &ErrInterrupted{Op: "dial peer for claimed queue " + claimedID.String(), Err: err}
		}
	}

	current, stillExists := m.peers.Get(qid.PeerID)
	if !stillExists || current.Endpoint != pc.Endpoint {
		m.logger.Warn("peer identity changed during claim, releasing claimed queue", "peer", qid.PeerID, "dead_server", deadServer)
		if endpoint != nil {
			endpoint.Close()
		}
		if err := m.storage.RemoveQueue(claimedID); err != nil {
			m.logger.Error("failed to release abandoned claimed queue", "queue", claimedID.String(), "error", err)
		}
		return nil
	}

	src := NewSource(pc.ID, claimedID, pc.Mode, m.walDir, endpoint, m.walIndex, m.quota, m.storage,
		time.Duration(m.cfg.SourceSyncSleepForRetriesMs)*time.Millisecond, m.cfg.SourceSyncMaxRetriesMultiplier, m.logger)
	if pc.Mode == ModeSync && pc.RemoteWALDir != "" {
		src.SetRemoteDelete(m.fs, pc.RemoteWALDir)
	}

	m.oldsourcesMu.Lock()
	m.oldsources[claimedID] = src
	m.oldsourcesMu.Unlock()

	for _, name := range walNames {
		m.walIndex.AddWAL(claimedID, name)
	}
	src.Startup(ctx)

	m.logger.Info("claimed replication queue", "queue", claimedID.String(), "dead_server", deadServer, "wal_count", len(walNames))
	return nil
}

// --- Component E: Cleanup Engine ---

// LogPositionAndCleanOldLogs records qid's new shipped position and then
// runs cleanOldLogs, matching the original's combined "report then sweep"
// call made after every successful shipment.
func (m *SourceManager) LogPositionAndCleanOldLogs(qid QueueID, name WALName, position int64) error {
	if m.storage != nil {
		if err := m.storage.SetWALPosition(qid, name, position); err != nil {
			return &ErrInterrupted{Op: "set wal position", Err: err}
		}
	}
	m.CleanOldLogs()
	return nil
}

// CleanOldLogs computes the oldest WAL segment every currently tracked queue
// (active or draining) still needs, and purges everything strictly older
// than that bound. A source with zero peers is vacuously past everything, so
// a server with no replication configured never blocks its own WAL purge.
func (m *SourceManager) CleanOldLogs() {
	if m.wal == nil {
		return
	}

	queues := m.walIndex.Queues()
	var minIndex uint64 = math.MaxUint64
	anyPending := false
	for _, qid := range queues {
		names := m.walIndex.WALsFor(qid, "")
		if len(names) == 0 {
			continue
		}
		idx, err := names[0].SegmentIndex()
		if err != nil {
			m.logger.Warn("unparseable wal name in index, skipping purge this round", "queue", qid.String(), "name", names[0])
			return
		}
		anyPending = true
		if idx < minIndex {
			minIndex = idx
		}
	}

	if !anyPending || minIndex == 0 || minIndex == math.MaxUint64 {
		return
	}
	if err := m.wal.Purge(minIndex - 1); err != nil {
		fatal := &FatalError{Op: "purge wal segments cleared by replication", Err: err}
		m.fireFatalAbort(context.Background(), "CleanOldLogs", fatal)
	}
}

// IsSafeToPurge reports whether name has been fully shipped to every
// active and draining queue, the predicate the WAL package's own segment
// purge should consult before deleting a rolled segment's file.
func (m *SourceManager) IsSafeToPurge(name WALName) bool {
	return m.walIndex.IsSafeToPurge(name)
}

// --- Buffer quota delegation ---

func (m *SourceManager) AcquireBuffer(n int64) (bool, error) { return m.quota.Acquire(n) }
func (m *SourceManager) ReleaseBuffer(n int64)                { m.quota.Release(n) }
func (m *SourceManager) BufferUsed() int64                    { return m.quota.Used() }
func (m *SourceManager) BufferLimit() int64                   { return m.quota.Limit() }

// --- HFile reference tracking (bulk-load, optional) ---

func (m *SourceManager) AddHFileRefs(qid QueueID, refs []string) error {
	if !m.cfg.BulkLoadEnabled || m.storage == nil {
		return nil
	}
	return m.storage.AddPeerToHFileRefs(qid, refs)
}

func (m *SourceManager) RemoveHFileRefs(qid QueueID, refs []string) error {
	if !m.cfg.BulkLoadEnabled || m.storage == nil {
		return nil
	}
	return m.storage.RemovePeerFromHFileRefs(qid, refs)
}

// --- Getters ---

// Sources returns a snapshot of every active source's stats, used for
// getStats()-style monitoring endpoints.
func (m *SourceManager) Sources() []SourceStats {
	m.sourcesMu.RLock()
	defer m.sourcesMu.RUnlock()
	out := make([]SourceStats, 0, len(m.sources))
	for _, s := range m.sources {
		out = append(out, s.GetStats())
	}
	return out
}

// GetSource returns the normal (non-recovered) source for peerID, if one is
// currently registered.
func (m *SourceManager) GetSource(peerID string) (SourceStats, bool) {
	m.sourcesMu.RLock()
	defer m.sourcesMu.RUnlock()
	src, ok := m.sources[QueueID{PeerID: peerID}]
	if !ok {
		return SourceStats{}, false
	}
	return src.GetStats(), true
}

// GetOldSources returns a snapshot of every recovered (claimed) source's
// stats, the counterpart to Sources for queues this server claimed from a
// dead peer.
func (m *SourceManager) GetOldSources() []SourceStats {
	m.oldsourcesMu.RLock()
	defer m.oldsourcesMu.RUnlock()
	out := make([]SourceStats, 0, len(m.oldsources))
	for _, s := range m.oldsources {
		out = append(out, s.GetStats())
	}
	return out
}

// removeRecoveredSource drops id from the recovered-source registry without
// terminating it; callers that have already terminated the source use this
// to finish tearing down its bookkeeping.
func (m *SourceManager) removeRecoveredSource(id QueueID) {
	m.oldsourcesMu.Lock()
	delete(m.oldsources, id)
	m.oldsourcesMu.Unlock()
}

// TerminateRecoveredSource stops and removes a claimed queue's source once
// it has shipped everything the dead server left behind, and drops the
// queue from durable storage and the WAL index along with it.
func (m *SourceManager) TerminateRecoveredSource(ctx context.Context, id QueueID) error {
	m.oldsourcesMu.RLock()
	src, ok := m.oldsources[id]
	m.oldsourcesMu.RUnlock()
	if !ok {
		return ErrQueueNotFound
	}

	if err := src.Terminate(ctx); err != nil {
		return &ErrInterrupted{Op: "terminate recovered source " + id.String(), Err: err}
	}
	m.removeRecoveredSource(id)
	m.walIndex.RemoveQueue(id)
	if m.storage != nil {
		if err := m.storage.RemoveQueue(id); err != nil {
			return &ErrInterrupted{Op: "remove recovered queue from storage " + id.String(), Err: err}
		}
	}
	return nil
}

// GetAllQueues lists every queue this server's durable storage currently
// tracks, normal and recovered alike.
func (m *SourceManager) GetAllQueues() ([]QueueID, error) {
	if m.storage == nil {
		return nil, nil
	}
	return m.storage.GetAllQueues()
}

// GetSizeOfLatestPath reports how many distinct WAL rotation prefixes the
// latest-path table currently tracks.
func (m *SourceManager) GetSizeOfLatestPath() int {
	return len(m.latestPath.Snapshot())
}

// GetLatestPaths returns a snapshot of every rotation prefix's newest WAL
// segment name.
func (m *SourceManager) GetLatestPaths() map[WALPrefix]WALName {
	return m.latestPath.Snapshot()
}

// GetLogDir returns the directory the local WAL rolls active segments into.
func (m *SourceManager) GetLogDir() string {
	return m.walDir
}

// GetOldLogDir returns the directory rolled-out WAL segments are archived
// into once CleanOldLogs is done with them.
func (m *SourceManager) GetOldLogDir() string {
	return filepath.Join(m.walDir, "oldWALs")
}

// GetFs returns the filesystem abstraction sync-replication sources use to
// delete their remote WAL mirror.
func (m *SourceManager) GetFs() sys.File {
	return m.fs
}

// GetReplicationPeers returns every registered peer's configuration.
func (m *SourceManager) GetReplicationPeers() []PeerConfig {
	return m.peers.List()
}

// ManagerStats is a point-in-time snapshot of this server's replication
// state, surfaced through host-wide monitoring endpoints.
type ManagerStats struct {
	Sources             []SourceStats
	OldSources          []SourceStats
	BufferUsed          int64
	BufferLimit         int64
	ActiveFailoverTasks int
}

// GetStats returns a snapshot of every source's stats alongside buffer
// quota usage and in-flight failover claim count.
func (m *SourceManager) GetStats() ManagerStats {
	return ManagerStats{
		Sources:             m.Sources(),
		OldSources:          m.GetOldSources(),
		BufferUsed:          m.quota.Used(),
		BufferLimit:         m.quota.Limit(),
		ActiveFailoverTasks: m.failover.activeCount(),
	}
}

// ActiveFailoverTaskCount reports how many failover claim tasks are
// currently sleeping, checking liveness, or claiming.
func (m *SourceManager) ActiveFailoverTaskCount() int {
	return m.failover.activeCount()
}

// WALIndex exposes the underlying WAL index for components (like a WAL
// purge routine) that need to query pending-WAL state directly.
func (m *SourceManager) WALIndex() *WALIndex { return m.walIndex }

// Join blocks until every hook registration is torn down and every source
// has drained, the terminal step of a graceful server shutdown.
func (m *SourceManager) Join(ctx context.Context) error {
	var err error
	m.closeOnce.Do(func() {
		m.failover.stop()
		err = m.drainAllSources(ctx)
		close(m.closed)
	})
	<-m.closed
	return err
}
