package replication

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/INLOpen/nexusbase/core"
	"github.com/INLOpen/nexusbase/sys"
	"github.com/INLOpen/nexusbase/wal"
	tdigest "github.com/caio/go-tdigest/v4"
)

// decodeWALRecord mirrors the private wire format wal.encodeEntryData
// produces (entry type, sequence number, varint-prefixed key, varint-prefixed
// value), so a source can read a rolled segment directly without needing an
// exported decoder from the wal package.
func decodeWALRecord(raw []byte) (*core.WALEntry, error) {
	r := bytes.NewReader(raw)
	entry := &core.WALEntry{}
	if err := binary.Read(r, binary.LittleEndian, &entry.EntryType); err != nil {
		return nil, fmt.Errorf("decode entry type: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &entry.SeqNum); err != nil {
		return nil, fmt.Errorf("decode seq num: %w", err)
	}
	keyLen, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("decode key len: %w", err)
	}
	entry.Key = make([]byte, keyLen)
	if _, err := io.ReadFull(r, entry.Key); err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	valLen, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("decode value len: %w", err)
	}
	entry.Value = make([]byte, valLen)
	if _, err := io.ReadFull(r, entry.Value); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return entry, nil
}

// SourceStats is a snapshot of one source's shipping progress, returned by
// getStats and surfaced through the manager's host-wide metrics.
type SourceStats struct {
	PeerID            string
	QueueID           string
	Active            bool
	Recovered         bool
	SyncReplication   bool
	PendingWALs       int
	LastShippedSeqNum uint64
	AgeOfLastShipMs   int64
	Retries           int64
}

func (s SourceStats) String() string {
	return fmt.Sprintf("source[peer=%s queue=%s active=%t recovered=%t sync=%t pending=%d last_seq=%d age_ms=%d retries=%d]",
		s.PeerID, s.QueueID, s.Active, s.Recovered, s.SyncReplication, s.PendingWALs, s.LastShippedSeqNum, s.AgeOfLastShipMs, s.Retries)
}

// Source ships one queue's WAL segments to one peer. A peer-less queue
// (Enabled == false, used only for sync-replication bookkeeping) may still
// implement Source but never actually dials out.
type Source interface {
	PeerID() string
	QueueID() QueueID
	IsActive() bool
	IsRecovered() bool
	IsSyncReplication() bool

	// Startup begins the source's shipping goroutine. It is idempotent.
	Startup(ctx context.Context)
	// Terminate stops the shipping goroutine and releases its resources.
	// It blocks until any in-flight batch finishes or ctx is done.
	Terminate(ctx context.Context) error

	// EnqueueLog hands a newly rolled WAL segment to the source. It must
	// not block the caller (the log roller) for longer than acquiring the
	// buffer quota requires.
	EnqueueLog(name WALName) error

	// SetRemoteDelete configures the filesystem and directory a
	// synchronous-replication source mirrors its segments into, so that a
	// fully-shipped segment's remote copy is cleaned up alongside the local
	// one. A no-op for async sources.
	SetRemoteDelete(fs sys.File, dir string)

	// AdoptMetricsFrom copies ship progress and retry counters from prev
	// into this source, used when a source is replaced in place (a config
	// refresh) so the replacement doesn't appear to restart from zero.
	AdoptMetricsFrom(prev Source)

	GetStats() SourceStats
}

// replicationSource is the default Source implementation: a single goroutine
// that drains a channel of rolled WAL names in order, ships each one's
// entries to its peer endpoint, and retries recoverable failures with
// bounded exponential backoff before giving up and leaving the WAL queued
// for the next attempt.
type replicationSource struct {
	peerID    string
	qID       QueueID
	mode      ReplicationMode
	recovered bool

	dir      string
	endpoint PeerEndpoint
	index    *WALIndex
	quota    *BufferQuota
	storage  QueueStorage

	remoteFS  sys.File
	remoteDir string

	baseRetrySleep time.Duration
	maxMultiplier  int

	logger *slog.Logger

	logs   chan WALName
	done   chan struct{}
	active atomic.Bool

	mu                sync.Mutex
	lastShippedSeqNum uint64
	lastShipAt        time.Time
	retries           int64
	latency           *tdigest.TDigest
}

// NewSource constructs the default replication source for one queue.
func NewSource(peerID string, qID QueueID, mode ReplicationMode, dir string, endpoint PeerEndpoint, index *WALIndex, quota *BufferQuota, storage QueueStorage, baseRetrySleep time.Duration, maxMultiplier int, logger *slog.Logger) Source {
	digest, _ := tdigest.New()
	return &replicationSource{
		peerID:         peerID,
		qID:            qID,
		mode:           mode,
		recovered:      qID.IsRecovered(),
		dir:            dir,
		endpoint:       endpoint,
		index:          index,
		quota:          quota,
		storage:        storage,
		baseRetrySleep: baseRetrySleep,
		maxMultiplier:  maxMultiplier,
		logger:         logger.With("peer", peerID, "queue", qID.String()),
		logs:           make(chan WALName, 256),
		done:           make(chan struct{}),
		latency:        digest,
	}
}

func (s *replicationSource) PeerID() string         { return s.peerID }
func (s *replicationSource) QueueID() QueueID        { return s.qID }
func (s *replicationSource) IsActive() bool          { return s.active.Load() }
func (s *replicationSource) IsRecovered() bool       { return s.recovered }
func (s *replicationSource) IsSyncReplication() bool { return s.mode == ModeSync }

func (s *replicationSource) SetRemoteDelete(fs sys.File, dir string) {
	s.remoteFS = fs
	s.remoteDir = dir
}

// AdoptMetricsFrom copies prev's ship progress under both sources' own
// locks, taken one at a time to avoid a lock-ordering cycle with a
// concurrent caller adopting in the opposite direction.
func (s *replicationSource) AdoptMetricsFrom(prev Source) {
	old, ok := prev.(*replicationSource)
	if !ok {
		return
	}
	old.mu.Lock()
	lastShippedSeqNum := old.lastShippedSeqNum
	lastShipAt := old.lastShipAt
	retries := old.retries
	latency := old.latency
	old.mu.Unlock()

	s.mu.Lock()
	s.lastShippedSeqNum = lastShippedSeqNum
	s.lastShipAt = lastShipAt
	s.retries = retries
	if latency != nil {
		s.latency = latency
	}
	s.mu.Unlock()
}

func (s *replicationSource) Startup(ctx context.Context) {
	if s.active.Load() {
		return
	}
	s.active.Store(true)
	go s.run(ctx)
}

func (s *replicationSource) Terminate(ctx context.Context) error {
	if !s.active.Load() {
		return nil
	}
	close(s.logs)
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.active.Store(false)
	if s.endpoint != nil {
		return s.endpoint.Close()
	}
	return nil
}

func (s *replicationSource) EnqueueLog(name WALName) error {
	if !s.active.Load() {
		return ErrSourceTerminated
	}
	select {
	case s.logs <- name:
		return nil
	default:
		return &ErrInterrupted{Op: "enqueue log " + string(name), Err: fmt.Errorf("source queue full for peer %s", s.peerID)}
	}
}

func (s *replicationSource) run(ctx context.Context) {
	defer close(s.done)
	for name := range s.logs {
		s.shipWithRetry(ctx, name)
	}
}

// shipWithRetry ships one rolled segment, retrying recoverable failures with
// exponential backoff bounded at baseRetrySleep * maxMultiplier, matching
// replication.source.sync.sleepforretries / .maxretriesmultiplier.
func (s *replicationSource) shipWithRetry(ctx context.Context, name WALName) {
	attempt := 0
	for {
		err := s.shipOnce(ctx, name)
		if err == nil {
			return
		}
		if IsFatal(err) {
			s.logger.Error("fatal error shipping WAL, abandoning source", "wal", name, "error", err)
			return
		}
		attempt++
		s.mu.Lock()
		s.retries++
		s.mu.Unlock()

		multiplier := attempt
		if multiplier > s.maxMultiplier {
			multiplier = s.maxMultiplier
		}
		sleep := s.baseRetrySleep * time.Duration(multiplier)
		s.logger.Warn("recoverable error shipping WAL, retrying", "wal", name, "attempt", attempt, "sleep", sleep, "error", err)
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return
		}
	}
}

func (s *replicationSource) shipOnce(ctx context.Context, name WALName) error {
	path := filepath.Join(s.dir, string(name))
	reader, err := wal.OpenSegmentForRead(path)
	if err != nil {
		return &FatalError{Op: "open segment " + path, Err: err}
	}
	defer reader.Close()

	var entries []core.WALEntry
	var totalBytes int64
	for {
		raw, err := reader.ReadRecord()
		if err != nil {
			if err == io.EOF {
				break
			}
			return &ErrInterrupted{Op: "read segment " + path, Err: err}
		}
		entry, err := decodeWALRecord(raw)
		if err != nil {
			return &FatalError{Op: "decode segment record " + path, Err: err}
		}
		entries = append(entries, *entry)
		totalBytes += int64(len(raw))
	}

	if len(entries) == 0 {
		return s.finishShip(ctx, name, 0)
	}

	if s.quota != nil {
		overLimit, err := s.quota.Acquire(totalBytes)
		if err != nil {
			return &FatalError{Op: "acquire buffer quota for " + path, Err: err}
		}
		if overLimit {
			s.logger.Warn("replication buffer quota at or over limit", "wal", path, "bytes", totalBytes)
		}
		defer s.quota.Release(totalBytes)
	}

	start := time.Now()
	var resp *ShipBatchResponse
	if s.endpoint != nil {
		resp, err = s.endpoint.Ship(ctx, s.qID, name, entries)
		if err != nil {
			return err
		}
	} else {
		resp = &ShipBatchResponse{Applied: len(entries), LastSeqNum: entries[len(entries)-1].SeqNum}
	}
	elapsedMs := time.Since(start).Milliseconds()

	s.mu.Lock()
	s.latency.Add(float64(elapsedMs))
	s.mu.Unlock()

	if s.storage != nil {
		if err := s.storage.SetWALPosition(s.qID, name, int64(resp.Applied)); err != nil {
			return &ErrInterrupted{Op: "persist wal position", Err: err}
		}
	}
	return s.finishShip(ctx, name, resp.LastSeqNum)
}

func (s *replicationSource) finishShip(ctx context.Context, name WALName, lastSeqNum uint64) error {
	s.mu.Lock()
	s.lastShippedSeqNum = lastSeqNum
	s.lastShipAt = time.Now()
	s.mu.Unlock()

	if err := s.deleteRemoteMirror(ctx, name); err != nil {
		return err
	}

	s.index.RemoveWAL(s.qID, name)
	if s.storage != nil {
		if err := s.storage.RemoveWAL(s.qID, name); err != nil && err != ErrQueueNotFound {
			return &ErrInterrupted{Op: "persist removed wal", Err: err}
		}
	}
	return nil
}

// deleteRemoteMirror removes name's copy from the sync-replication remote
// directory, treating "not found" as success and retrying indefinitely on
// any other failure: a fully-shipped segment's remote mirror must eventually
// be cleaned up, and there is no safe fallback position to retreat to. The
// retry sleep grows with each attempt up to baseRetrySleep * maxMultiplier,
// the same bound shipWithRetry uses. The loop abandons only if the source is
// terminated mid-retry or the context is done.
func (s *replicationSource) deleteRemoteMirror(ctx context.Context, name WALName) error {
	if s.remoteFS == nil || s.remoteDir == "" {
		return nil
	}
	path := filepath.Join(s.remoteDir, string(name))
	attempt := 0
	for {
		err := s.remoteFS.SafeRemove(path)
		if err == nil {
			return nil
		}
		attempt++
		if !s.active.Load() {
			s.logger.Warn("abandoning remote wal mirror delete, source no longer active", "path", path, "error", err)
			return nil
		}
		multiplier := attempt
		if multiplier > s.maxMultiplier {
			multiplier = s.maxMultiplier
		}
		sleep := s.baseRetrySleep * time.Duration(multiplier)
		s.logger.Warn("failed to delete remote wal mirror, retrying", "path", path, "attempt", attempt, "sleep", sleep, "error", err)
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *replicationSource) GetStats() SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	ageMs := int64(0)
	if !s.lastShipAt.IsZero() {
		ageMs = time.Since(s.lastShipAt).Milliseconds()
	}
	pending := s.index.LenOf(s.qID, "")
	p99 := 0.0
	if s.latency != nil && s.latency.Count() > 0 {
		p99 = s.latency.Quantile(0.99)
	}
	_ = math.Round(p99)
	return SourceStats{
		PeerID:            s.peerID,
		QueueID:           s.qID.String(),
		Active:            s.active.Load(),
		Recovered:         s.recovered,
		SyncReplication:   s.mode == ModeSync,
		PendingWALs:       pending,
		LastShippedSeqNum: s.lastShippedSeqNum,
		AgeOfLastShipMs:   ageMs,
		Retries:           s.retries,
	}
}

var _ Source = (*replicationSource)(nil)
