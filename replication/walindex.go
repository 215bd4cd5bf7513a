package replication

import (
	"strings"
	"sync"

	"github.com/INLOpen/skiplist"
)

// walNameComparator orders WAL names lexically, which is also numeric order
// for the fixed-width "%08d.wal" segment names the WAL package produces.
func walNameComparator(a, b WALName) int {
	return strings.Compare(string(a), string(b))
}

// walSet is an ordered set of WAL names for a single (queueId, prefix) pair,
// backed by the same skiplist the memtable uses for its ordered keys. It
// supports the head-set removal pattern cleanOldLogs needs: "every name not
// greater than X", without a linear scan.
type walSet struct {
	data *skiplist.SkipList[WALName, struct{}]
}

func newWALSet() *walSet {
	return &walSet{data: skiplist.NewWithComparator[WALName, struct{}](walNameComparator)}
}

func (s *walSet) add(name WALName) {
	s.data.Insert(name, struct{}{})
}

func (s *walSet) remove(name WALName) bool {
	if !s.contains(name) {
		return false
	}
	s.data.Remove(name)
	return true
}

func (s *walSet) len() int {
	return s.data.Len()
}

func (s *walSet) contains(name WALName) bool {
	node, ok := s.data.Seek(name)
	if !ok {
		return false
	}
	return walNameComparator(node.Key(), name) == 0
}

// names returns every WAL name currently tracked, in ascending order.
func (s *walSet) names() []WALName {
	out := make([]WALName, 0, s.data.Len())
	iter := s.data.NewIterator()
	for iter.Next() {
		out = append(out, iter.Key())
	}
	return out
}

// headSet returns every WAL name less than (or, if inclusive, less than or
// equal to) upTo, in ascending order. This is the set cleanOldLogs deletes
// once every source has reported past upTo.
func (s *walSet) headSet(upTo WALName, inclusive bool) []WALName {
	out := make([]WALName, 0)
	iter := s.data.NewIterator()
	for iter.Next() {
		name := iter.Key()
		cmp := walNameComparator(name, upTo)
		if cmp < 0 || (inclusive && cmp == 0) {
			out = append(out, name)
			continue
		}
		break
	}
	return out
}

// newest returns the lexically greatest WAL name in the set, i.e. the
// segment most recently rolled into the queue.
func (s *walSet) newest() (WALName, bool) {
	iter := s.data.NewIterator(skiplist.WithReverse[WALName, struct{}]())
	if !iter.Next() {
		return "", false
	}
	return iter.Key(), true
}

// WALIndex tracks, per queue and per WAL rotation prefix, the ordered set of
// WAL segment names still pending replication to that queue's peer. It is
// the authoritative structure cleanOldLogs consults to decide whether a
// rolled segment can be purged: a segment is safe to delete only once it has
// been removed from every queue's set.
//
// Lock ordering: callers that also hold the latest-path table's lock must
// acquire that lock first; WALIndex never calls back into the latest-path
// table while holding its own lock.
type WALIndex struct {
	mu   sync.RWMutex
	byID map[QueueID]map[WALPrefix]*walSet
}

func NewWALIndex() *WALIndex {
	return &WALIndex{byID: make(map[QueueID]map[WALPrefix]*walSet)}
}

func (w *WALIndex) ensureLocked(id QueueID) map[WALPrefix]*walSet {
	prefixes, ok := w.byID[id]
	if !ok {
		prefixes = make(map[WALPrefix]*walSet)
		w.byID[id] = prefixes
	}
	return prefixes
}

// AddWAL registers name as pending for queue id, creating the queue's
// tracking state if this is its first WAL.
func (w *WALIndex) AddWAL(id QueueID, name WALName) {
	prefix := PrefixOf(name)
	w.mu.Lock()
	defer w.mu.Unlock()
	prefixes := w.ensureLocked(id)
	set, ok := prefixes[prefix]
	if !ok {
		set = newWALSet()
		prefixes[prefix] = set
	}
	set.add(name)
}

// RemoveWAL drops name from queue id's pending set once the peer has
// acknowledged shipping it, or once a peer-less queue's log has simply aged
// out. Returns false if the name was not present.
func (w *WALIndex) RemoveWAL(id QueueID, name WALName) bool {
	prefix := PrefixOf(name)
	w.mu.Lock()
	defer w.mu.Unlock()
	prefixes, ok := w.byID[id]
	if !ok {
		return false
	}
	set, ok := prefixes[prefix]
	if !ok {
		return false
	}
	removed := set.remove(name)
	if set.len() == 0 {
		delete(prefixes, prefix)
	}
	return removed
}

// RemoveQueue drops all tracking state for id, called once a queue is fully
// drained (removePeer) or a recovered queue finishes shipping every WAL it
// was claimed with.
func (w *WALIndex) RemoveQueue(id QueueID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.byID, id)
}

// Queues returns every queue id currently tracked.
func (w *WALIndex) Queues() []QueueID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]QueueID, 0, len(w.byID))
	for id := range w.byID {
		out = append(out, id)
	}
	return out
}

// WALsFor returns, in ascending order, every WAL name pending for queue id
// under prefix.
func (w *WALIndex) WALsFor(id QueueID, prefix WALPrefix) []WALName {
	w.mu.RLock()
	defer w.mu.RUnlock()
	prefixes, ok := w.byID[id]
	if !ok {
		return nil
	}
	set, ok := prefixes[prefix]
	if !ok {
		return nil
	}
	return set.names()
}

// LenOf returns how many WALs are pending for queue id under prefix.
func (w *WALIndex) LenOf(id QueueID, prefix WALPrefix) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	prefixes, ok := w.byID[id]
	if !ok {
		return 0
	}
	set, ok := prefixes[prefix]
	if !ok {
		return 0
	}
	return set.len()
}

// IsSafeToPurge reports whether name has been removed from every queue's
// pending set under prefix, i.e. no queue still needs it shipped.
func (w *WALIndex) IsSafeToPurge(name WALName) bool {
	prefix := PrefixOf(name)
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, prefixes := range w.byID {
		set, ok := prefixes[prefix]
		if !ok {
			continue
		}
		if set.contains(name) {
			return false
		}
	}
	return true
}
