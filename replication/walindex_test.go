package replication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWALIndex_AddAndRemove(t *testing.T) {
	idx := NewWALIndex()
	qid := QueueID{PeerID: "P"}

	idx.AddWAL(qid, WALName("00000001.wal"))
	idx.AddWAL(qid, WALName("00000002.wal"))
	assert.Equal(t, 2, idx.LenOf(qid, ""))

	ok := idx.RemoveWAL(qid, WALName("00000001.wal"))
	assert.True(t, ok)
	assert.Equal(t, 1, idx.LenOf(qid, ""))

	ok = idx.RemoveWAL(qid, WALName("00000001.wal"))
	assert.False(t, ok, "removing an already-removed name reports false")
}

func TestWALIndex_AscendingOrder(t *testing.T) {
	idx := NewWALIndex()
	qid := QueueID{PeerID: "P"}

	idx.AddWAL(qid, WALName("00000003.wal"))
	idx.AddWAL(qid, WALName("00000001.wal"))
	idx.AddWAL(qid, WALName("00000002.wal"))

	names := idx.WALsFor(qid, "")
	require.Len(t, names, 3)
	assert.Equal(t, []WALName{"00000001.wal", "00000002.wal", "00000003.wal"}, names)
}

func TestWALIndex_RemoveQueueDropsEverything(t *testing.T) {
	idx := NewWALIndex()
	qid := QueueID{PeerID: "P"}
	idx.AddWAL(qid, WALName("00000001.wal"))

	idx.RemoveQueue(qid)
	assert.Equal(t, 0, idx.LenOf(qid, ""))
	assert.Empty(t, idx.Queues())
}

func TestWALIndex_IsSafeToPurge(t *testing.T) {
	idx := NewWALIndex()
	p1 := QueueID{PeerID: "P1"}
	p2 := QueueID{PeerID: "P2"}

	idx.AddWAL(p1, WALName("00000001.wal"))
	idx.AddWAL(p2, WALName("00000001.wal"))

	assert.False(t, idx.IsSafeToPurge(WALName("00000001.wal")), "still pending for both queues")

	idx.RemoveWAL(p1, WALName("00000001.wal"))
	assert.False(t, idx.IsSafeToPurge(WALName("00000001.wal")), "still pending for p2")

	idx.RemoveWAL(p2, WALName("00000001.wal"))
	assert.True(t, idx.IsSafeToPurge(WALName("00000001.wal")))
}

func TestWALIndex_IsSafeToPurgeWithNoQueues(t *testing.T) {
	idx := NewWALIndex()
	assert.True(t, idx.IsSafeToPurge(WALName("00000001.wal")), "no queue pending means vacuously safe")
}

func TestWalSet_HeadSet(t *testing.T) {
	s := newWALSet()
	s.add(WALName("00000001.wal"))
	s.add(WALName("00000002.wal"))
	s.add(WALName("00000003.wal"))

	inclusive := s.headSet(WALName("00000002.wal"), true)
	assert.Equal(t, []WALName{"00000001.wal", "00000002.wal"}, inclusive)

	exclusive := s.headSet(WALName("00000002.wal"), false)
	assert.Equal(t, []WALName{"00000001.wal"}, exclusive)
}

func TestWalSet_HeadSet_ExactNewestExclusiveIsNoop(t *testing.T) {
	s := newWALSet()
	s.add(WALName("00000001.wal"))
	s.add(WALName("00000002.wal"))

	got := s.headSet(WALName("00000002.wal"), false)
	assert.Equal(t, []WALName{"00000001.wal"}, got)
}

func TestWalSet_Newest(t *testing.T) {
	s := newWALSet()
	_, ok := s.newest()
	assert.False(t, ok)

	s.add(WALName("00000002.wal"))
	s.add(WALName("00000001.wal"))
	newest, ok := s.newest()
	require.True(t, ok)
	assert.Equal(t, WALName("00000002.wal"), newest)
}

func TestQueueID_SegmentIndexAndOwnership(t *testing.T) {
	normal := QueueID{PeerID: "P"}
	assert.Equal(t, "P", normal.String())
	assert.False(t, normal.IsRecovered())

	recovered := QueueID{PeerID: "P", OwnerServer: "dead-1"}
	assert.Equal(t, "P-dead-1", recovered.String())
	assert.True(t, recovered.IsRecovered())

	idx, err := WALName("00000042.wal").SegmentIndex()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), idx)

	_, err = WALName("not-a-segment").SegmentIndex()
	assert.Error(t, err)
}
