package replication

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/INLOpen/nexusbase/core"
	"github.com/INLOpen/nexusbase/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeEndpoint records every shipped batch instead of dialing a real peer,
// the same role a fake transport plays in the teacher's own server tests.
type fakeEndpoint struct {
	mu      sync.Mutex
	shipped [][]core.WALEntry
	closed  bool
	err     error
}

func (f *fakeEndpoint) Ship(ctx context.Context, queueID QueueID, walName WALName, entries []core.WALEntry) (*ShipBatchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.shipped = append(f.shipped, entries)
	var last uint64
	if len(entries) > 0 {
		last = entries[len(entries)-1].SeqNum
	}
	return &ShipBatchResponse{Applied: len(entries), LastSeqNum: last}, nil
}

func (f *fakeEndpoint) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestSource_StartupTerminateIdempotent(t *testing.T) {
	index := NewWALIndex()
	quota := NewBufferQuota(0, nil)
	ep := &fakeEndpoint{}
	qid := QueueID{PeerID: "P"}

	src := NewSource("P", qid, ModeAsync, t.TempDir(), ep, index, quota, nil, time.Millisecond, 3, testLogger())
	assert.False(t, src.IsActive())

	ctx := context.Background()
	src.Startup(ctx)
	assert.True(t, src.IsActive())

	// Startup is idempotent: a second call must not start a second run loop.
	src.Startup(ctx)
	assert.True(t, src.IsActive())

	require.NoError(t, src.Terminate(context.Background()))
	assert.False(t, src.IsActive())
	assert.True(t, ep.closed)

	// Terminate on an already-terminated source is a no-op, not an error.
	require.NoError(t, src.Terminate(context.Background()))
}

func TestSource_EnqueueLogRejectedAfterTerminate(t *testing.T) {
	index := NewWALIndex()
	quota := NewBufferQuota(0, nil)
	qid := QueueID{PeerID: "P"}
	src := NewSource("P", qid, ModeAsync, t.TempDir(), &fakeEndpoint{}, index, quota, nil, time.Millisecond, 3, testLogger())

	err := src.EnqueueLog(WALName("00000001.wal"))
	assert.ErrorIs(t, err, ErrSourceTerminated, "a source must not accept logs before Startup")

	src.Startup(context.Background())
	require.NoError(t, src.Terminate(context.Background()))

	err = src.EnqueueLog(WALName("00000001.wal"))
	assert.ErrorIs(t, err, ErrSourceTerminated)
}

func TestSource_IsRecoveredDerivedFromQueueID(t *testing.T) {
	index := NewWALIndex()
	quota := NewBufferQuota(0, nil)

	normal := NewSource("P", QueueID{PeerID: "P"}, ModeAsync, t.TempDir(), nil, index, quota, nil, time.Millisecond, 3, testLogger())
	assert.False(t, normal.IsRecovered())

	recovered := NewSource("P", QueueID{PeerID: "P", OwnerServer: "dead-1"}, ModeAsync, t.TempDir(), nil, index, quota, nil, time.Millisecond, 3, testLogger())
	assert.True(t, recovered.IsRecovered())
}

func TestSource_IsSyncReplicationMatchesMode(t *testing.T) {
	index := NewWALIndex()
	quota := NewBufferQuota(0, nil)

	async := NewSource("P", QueueID{PeerID: "P"}, ModeAsync, t.TempDir(), nil, index, quota, nil, time.Millisecond, 3, testLogger())
	assert.False(t, async.IsSyncReplication())

	sync_ := NewSource("P", QueueID{PeerID: "P"}, ModeSync, t.TempDir(), nil, index, quota, nil, time.Millisecond, 3, testLogger())
	assert.True(t, sync_.IsSyncReplication())
}

func TestSource_GetStatsReflectsPendingWALs(t *testing.T) {
	index := NewWALIndex()
	quota := NewBufferQuota(0, nil)
	qid := QueueID{PeerID: "P"}
	index.AddWAL(qid, WALName("00000001.wal"))
	index.AddWAL(qid, WALName("00000002.wal"))

	src := NewSource("P", qid, ModeAsync, t.TempDir(), &fakeEndpoint{}, index, quota, nil, time.Millisecond, 3, testLogger())
	stats := src.GetStats()
	assert.Equal(t, "P", stats.PeerID)
	assert.Equal(t, 2, stats.PendingWALs)
	assert.False(t, stats.Active)
}

func TestSourceStats_StringIncludesQueueAndPeer(t *testing.T) {
	s := SourceStats{PeerID: "P", QueueID: "P", Active: true, PendingWALs: 3}
	str := s.String()
	assert.Contains(t, str, "P")
	assert.Contains(t, str, "pending=3")
}

// fakeFS is a minimal sys.File stand-in whose only behavior that matters to
// these tests is SafeRemove; every other method is unused by a replication
// source and simply delegates to the real filesystem.
type fakeFS struct {
	mu        sync.Mutex
	removed   []string
	failTimes int
}

func (f *fakeFS) SafeRemove(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTimes > 0 {
		f.failTimes--
		return os.ErrPermission
	}
	f.removed = append(f.removed, name)
	return nil
}

func (f *fakeFS) removedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.removed)
}

func (f *fakeFS) Create(name string) (*os.File, error) { return os.Create(name) }
func (f *fakeFS) Open(name string) (*os.File, error)    { return os.Open(name) }
func (f *fakeFS) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}
func (f *fakeFS) OpenWithRetry(path string, flag int, perm os.FileMode, maxRetries int, retryInterval time.Duration) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}
func (f *fakeFS) SafeRemoveWithOption(name string, opts sys.SafeRemoveOptions) error {
	return f.SafeRemove(name)
}
func (f *fakeFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}
func (f *fakeFS) GC() error                                   { return nil }
func (f *fakeFS) CreateTemp(dir, pattern string) (*os.File, error) { return os.CreateTemp(dir, pattern) }
func (f *fakeFS) NewFile(fd uintptr, name string) *os.File    { return os.NewFile(fd, name) }
func (f *fakeFS) OpenInRoot(dir, name string) (*os.File, error) {
	return os.Open(filepath.Join(dir, name))
}

var _ sys.File = (*fakeFS)(nil)

func TestSource_DeleteRemoteMirrorNoopWithoutConfiguration(t *testing.T) {
	index := NewWALIndex()
	quota := NewBufferQuota(0, nil)
	qid := QueueID{PeerID: "P"}
	src := NewSource("P", qid, ModeSync, t.TempDir(), &fakeEndpoint{}, index, quota, nil, time.Millisecond, 3, testLogger()).(*replicationSource)

	require.NoError(t, src.deleteRemoteMirror(context.Background(), WALName("00000001.wal")))
}

func TestSource_DeleteRemoteMirrorRemovesConfiguredPath(t *testing.T) {
	index := NewWALIndex()
	quota := NewBufferQuota(0, nil)
	qid := QueueID{PeerID: "P"}
	src := NewSource("P", qid, ModeSync, t.TempDir(), &fakeEndpoint{}, index, quota, nil, time.Millisecond, 3, testLogger()).(*replicationSource)

	fs := &fakeFS{}
	src.SetRemoteDelete(fs, "/remote/wals")
	require.NoError(t, src.deleteRemoteMirror(context.Background(), WALName("00000001.wal")))
	assert.Equal(t, 1, fs.removedCount())
	assert.Equal(t, filepath.Join("/remote/wals", "00000001.wal"), fs.removed[0])
}

func TestSource_DeleteRemoteMirrorRetriesUntilSuccess(t *testing.T) {
	index := NewWALIndex()
	quota := NewBufferQuota(0, nil)
	qid := QueueID{PeerID: "P"}
	src := NewSource("P", qid, ModeSync, t.TempDir(), &fakeEndpoint{}, index, quota, nil, time.Millisecond, 3, testLogger()).(*replicationSource)
	src.active.Store(true)

	fs := &fakeFS{failTimes: 2}
	src.SetRemoteDelete(fs, "/remote/wals")
	require.NoError(t, src.deleteRemoteMirror(context.Background(), WALName("00000001.wal")))
	assert.Equal(t, 1, fs.removedCount())
}

func TestSource_DeleteRemoteMirrorAbandonsOnceInactive(t *testing.T) {
	index := NewWALIndex()
	quota := NewBufferQuota(0, nil)
	qid := QueueID{PeerID: "P"}
	src := NewSource("P", qid, ModeSync, t.TempDir(), &fakeEndpoint{}, index, quota, nil, time.Millisecond, 3, testLogger()).(*replicationSource)
	// active stays false, so the very first failure abandons the retry loop.

	fs := &fakeFS{failTimes: 100}
	src.SetRemoteDelete(fs, "/remote/wals")
	require.NoError(t, src.deleteRemoteMirror(context.Background(), WALName("00000001.wal")))
	assert.Equal(t, 0, fs.removedCount())
}

func TestSource_AdoptMetricsFromCopiesShipProgress(t *testing.T) {
	index := NewWALIndex()
	quota := NewBufferQuota(0, nil)
	qid := QueueID{PeerID: "P"}

	old := NewSource("P", qid, ModeAsync, t.TempDir(), &fakeEndpoint{}, index, quota, nil, time.Millisecond, 3, testLogger()).(*replicationSource)
	old.mu.Lock()
	old.lastShippedSeqNum = 42
	old.lastShipAt = time.Now()
	old.retries = 3
	old.mu.Unlock()

	next := NewSource("P", qid, ModeAsync, t.TempDir(), &fakeEndpoint{}, index, quota, nil, time.Millisecond, 3, testLogger()).(*replicationSource)
	next.AdoptMetricsFrom(old)

	stats := next.GetStats()
	assert.Equal(t, uint64(42), stats.LastShippedSeqNum)
	assert.Equal(t, int64(3), stats.Retries)
}
