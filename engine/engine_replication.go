package engine

import (
	"context"
	"fmt"

	"github.com/INLOpen/nexusbase/core"
	"github.com/INLOpen/nexusbase/memtable"
)

// ApplyReplicatedEntry applies a shipped WAL record from a peer's
// replication queue without writing to this node's own WAL. entry.Key and
// entry.Value carry the same on-disk encoding the local WAL writes
// (core.EncodeTSDBKeyToBuffer / core.EncodeSeriesKeyToBuffer), so a shipped
// entry decodes identically regardless of which peer produced it.
func (e *storageEngine) ApplyReplicatedEntry(ctx context.Context, entry *core.WALEntry) (err error) {
	if err := e.CheckStarted(); err != nil {
		return err
	}

	// This method should only be called on a follower.
	if e.replicationMode != "follower" {
		return fmt.Errorf("ApplyReplicatedEntry called on a non-follower node (mode: %s)", e.replicationMode)
	}

	// Defer a function to capture any error and increment the error metric.
	defer func() {
		if err != nil && e.metrics.ReplicationErrorsTotal != nil {
			e.metrics.ReplicationErrorsTotal.Add(1)
		}
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Process based on entry type
	switch entry.EntryType {
	case core.EntryTypePutEvent:
		err = e.applyPutEvent(ctx, entry)
	case core.EntryTypeDeleteSeries:
		err = e.applyDeleteSeries(ctx, entry)
	case core.EntryTypeDeleteRange:
		err = e.applyDeleteRange(ctx, entry)
	default:
		err = fmt.Errorf("unknown replicated entry type: %v", entry.EntryType)
	}

	if err != nil {
		return fmt.Errorf("failed to apply replicated entry with seq_num %d: %w", entry.SeqNum, err)
	}

	// Atomically update the engine's sequence number to track the leader's state.
	e.sequenceNumber.Store(entry.SeqNum)

	// Handle memtable flush if it's full. This logic is the same as in PutBatch.
	if e.mutableMemtable.IsFull() {
		// Only the leader needs to associate the memtable with a WAL segment for checkpointing.
		if e.replicationMode != "follower" {
			e.mutableMemtable.LastWALSegmentIndex = e.wal.ActiveSegmentIndex()
		}
		e.immutableMemtables = append(e.immutableMemtables, e.mutableMemtable)
		e.mutableMemtable = memtable.NewMemtable2(e.opts.MemtableThreshold, e.clock)
		select {
		case e.flushChan <- struct{}{}:
		default:
		}
	}

	return nil
}

// GetLatestAppliedSeqNum returns the latest sequence number that has been successfully applied from the leader.
func (e *storageEngine) GetLatestAppliedSeqNum() uint64 {
	return e.sequenceNumber.Load()
}

// ReplaceWithSnapshot is a destructive operation that replaces the engine's entire state
// with a snapshot from the leader. It assumes the engine is already closed.
func (e *storageEngine) ReplaceWithSnapshot(snapshotDir string) error {
	e.logger.Info("Replacing engine state with snapshot", "snapshot_dir", snapshotDir)

	// 1. Wipe the current data directory clean.
	if err := e.wipeDataDirectory(); err != nil {
		return fmt.Errorf("failed to wipe data directory for snapshot restore: %w", err)
	}

	// 2. Use the snapshot manager to copy and restore the state.
	if err := e.snapshotManager.RestoreFrom(context.Background(), snapshotDir); err != nil {
		return fmt.Errorf("snapshot manager failed to restore from snapshot: %w", err)
	}

	e.logger.Info("Successfully replaced engine state with snapshot. Engine is ready to be started.")
	return nil
}

// --- Internal apply helpers ---

// applyPutEvent applies a shipped put. entry.Key is already the full
// metricID|tags|timestamp TSDB key and entry.Value the already-encoded
// field set, so no re-encoding is needed; only the tag index and series
// tracking, which are local to this node, need the decoded string form.
func (e *storageEngine) applyPutEvent(ctx context.Context, entry *core.WALEntry) error {
	if len(entry.Key) < 8 {
		return fmt.Errorf("replicated put entry key too short: %d bytes", len(entry.Key))
	}
	seriesKey := entry.Key[:len(entry.Key)-8]

	keyCopy := make([]byte, len(entry.Key))
	copy(keyCopy, entry.Key)
	valueCopy := make([]byte, len(entry.Value))
	copy(valueCopy, entry.Value)

	if err := e.mutableMemtable.PutRaw(keyCopy, valueCopy, core.EntryTypePutEvent, entry.SeqNum); err != nil {
		e.logger.Error("CRITICAL: Failed to put replicated entry into mutable memtable.", "key", string(keyCopy), "error", err)
		return fmt.Errorf("CRITICAL INCONSISTENCY: failed to put replicated data into memtable: %w", err)
	}

	seriesKeyStr := string(seriesKey)
	e.addActiveSeries(seriesKeyStr)
	seriesID, err := e.seriesIDStore.GetOrCreateID(seriesKeyStr)
	if err != nil {
		return fmt.Errorf("failed to get series ID for replicated entry: %w", err)
	}

	_, tags, err := e.decodeSeriesKeyToStrings(seriesKey)
	if err != nil {
		return fmt.Errorf("failed to decode replicated series key: %w", err)
	}

	e.tagIndexManagerMu.Lock()
	if err := e.tagIndexManager.Add(seriesID, tags); err != nil {
		e.logger.Error("Failed to update tag index for replicated entry", "seriesID", seriesID, "error", err)
	}
	e.tagIndexManagerMu.Unlock()

	if e.metrics.ReplicationPutTotal != nil {
		e.metrics.ReplicationPutTotal.Add(1)
	}

	return nil
}

func (e *storageEngine) applyDeleteSeries(ctx context.Context, entry *core.WALEntry) error {
	seriesKeyStr := string(entry.Key)

	// To prevent deadlock, acquire locks in the same order as other operations.
	e.activeSeriesMu.Lock()
	defer e.activeSeriesMu.Unlock()

	seriesID, found := e.seriesIDStore.GetID(seriesKeyStr)
	if !found {
		// If the series doesn't exist on the follower, there's nothing to delete.
		e.logger.Info("Replicated DeleteSeries for a non-existent series, skipping.", "seriesKey", seriesKeyStr)
		return nil
	}

	// Add to in-memory deleted series map
	e.deletedSeriesMu.Lock()
	e.deletedSeries[seriesKeyStr] = entry.SeqNum
	e.deletedSeriesMu.Unlock()

	// Remove from active series tracking
	delete(e.activeSeries, seriesKeyStr)

	// Remove from the in-memory tag index
	e.tagIndexManager.RemoveSeries(seriesID)

	e.logger.Info("Applied replicated DeleteSeries", "seriesKey", seriesKeyStr, "seqNum", entry.SeqNum)
	if e.metrics.ReplicationDeleteSeriesTotal != nil {
		e.metrics.ReplicationDeleteSeriesTotal.Add(1)
	}
	return nil
}

// applyDeleteRange applies a shipped time-range tombstone. entry.Key is the
// series key and entry.Value the big-endian-encoded [startTs, endTs] pair,
// matching how engine2's adapter encodes the same event for its own peers.
func (e *storageEngine) applyDeleteRange(ctx context.Context, entry *core.WALEntry) error {
	if len(entry.Value) < 16 {
		return fmt.Errorf("replicated range-delete value too short: %d bytes", len(entry.Value))
	}
	startTs, err := core.DecodeTimestamp(entry.Value[:8])
	if err != nil {
		return fmt.Errorf("failed to decode replicated range-delete start: %w", err)
	}
	endTs, err := core.DecodeTimestamp(entry.Value[8:16])
	if err != nil {
		return fmt.Errorf("failed to decode replicated range-delete end: %w", err)
	}

	// Add to in-memory range tombstones map
	e.rangeTombstonesMu.Lock()
	keyStr := string(entry.Key)
	e.rangeTombstones[keyStr] = append(e.rangeTombstones[keyStr], core.RangeTombstone{
		MinTimestamp: startTs,
		MaxTimestamp: endTs,
		SeqNum:       entry.SeqNum,
	})
	e.rangeTombstonesMu.Unlock()

	e.logger.Info("Applied replicated DeleteRange", "seriesKey", keyStr, "start", startTs, "end", endTs, "seqNum", entry.SeqNum)
	if e.metrics.ReplicationDeleteRangeTotal != nil {
		e.metrics.ReplicationDeleteRangeTotal.Add(1)
	}
	return nil
}

// decodeSeriesKeyToStrings resolves a series key's dictionary IDs back to
// their string tag form via the local string store.
func (e *storageEngine) decodeSeriesKeyToStrings(seriesKey []byte) (string, map[string]string, error) {
	metricID, pairs, err := core.DecodeSeriesKey(seriesKey)
	if err != nil {
		return "", nil, err
	}
	metric, ok := e.stringStore.GetString(metricID)
	if !ok {
		return "", nil, fmt.Errorf("unknown metric id %d", metricID)
	}
	tags := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, ok := e.stringStore.GetString(p.KeyID)
		if !ok {
			return "", nil, fmt.Errorf("unknown tag key id %d", p.KeyID)
		}
		v, ok := e.stringStore.GetString(p.ValueID)
		if !ok {
			return "", nil, fmt.Errorf("unknown tag value id %d", p.ValueID)
		}
		tags[k] = v
	}
	return metric, tags, nil
}
