package replication

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/INLOpen/nexusbase/indexer"
	"github.com/INLOpen/nexusbase/sys"
	"github.com/RoaringBitmap/roaring/roaring64"
)

// QueueStorage is the durable record of replication queue state: which WAL
// segments each queue still owes its peer, each queue's last-shipped
// position, and (when bulk-load tracking is enabled) which HFiles a queue
// still references. Implementations must tolerate concurrent calls from the
// owning source's goroutine and from claimQueue during failover.
type QueueStorage interface {
	AddWAL(id QueueID, name WALName) error
	RemoveWAL(id QueueID, name WALName) error
	SetWALPosition(id QueueID, name WALName, offset int64) error
	RemoveQueue(id QueueID) error
	// ClaimQueue transfers ownership of a queue originally opened under
	// fromID to toID (typically changing OwnerServer from "" to the dead
	// server's address, or from one claimant chain to a longer one), and
	// returns the claimed queue's remaining WAL names in order.
	ClaimQueue(fromID, toID QueueID) ([]WALName, error)
	GetAllQueues() ([]QueueID, error)

	AddPeerToHFileRefs(id QueueID, refs []string) error
	RemovePeerFromHFileRefs(id QueueID, refs []string) error
	RemoveHFileRefs(refs []string) error
}

type queueRecord struct {
	WALs     []WALName `json:"wals"`
	Position int64     `json:"position,omitempty"`
}

// FileQueueStorage persists queue state as one JSON document per server
// restart, written with a write-to-temp-then-rename sequence so a crash mid
// write never leaves a half-written file behind, matching the
// create-temp-then-rename discipline the snapshot manager uses for manifests.
type FileQueueStorage struct {
	mu      sync.Mutex
	path    string
	records map[string]*queueRecord // keyed by QueueID.String()
	ids     map[string]QueueID

	hfileStrings *indexer.StringStore
	hfileRefs    map[string]*roaring64.Bitmap // keyed by QueueID.String(), values are interned HFile path IDs
}

// NewFileQueueStorage opens (or creates) the durable queue state file under
// dir. hfileStrings interns HFile paths to the small integer IDs the ref
// bitmaps are built from; pass nil when bulk-load tracking is disabled.
func NewFileQueueStorage(dir string, hfileStrings *indexer.StringStore) (*FileQueueStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("replication: create queue storage dir: %w", err)
	}
	s := &FileQueueStorage{
		path:         filepath.Join(dir, "replication_queues.json"),
		records:      make(map[string]*queueRecord),
		ids:          make(map[string]QueueID),
		hfileStrings: hfileStrings,
		hfileRefs:    make(map[string]*roaring64.Bitmap),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

type persistedQueue struct {
	ID       QueueID     `json:"id"`
	Record   queueRecord `json:"record"`
	HFileIDs []uint64    `json:"hfile_ids,omitempty"`
}

func (s *FileQueueStorage) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("replication: read queue storage: %w", err)
	}
	var persisted []persistedQueue
	if err := json.Unmarshal(data, &persisted); err != nil {
		return fmt.Errorf("replication: decode queue storage: %w", err)
	}
	for _, p := range persisted {
		key := p.ID.String()
		rec := p.Record
		s.records[key] = &rec
		s.ids[key] = p.ID
		if len(p.HFileIDs) > 0 {
			bm := roaring64.New()
			bm.AddMany(p.HFileIDs)
			s.hfileRefs[key] = bm
		}
	}
	return nil
}

func (s *FileQueueStorage) persistLocked() error {
	persisted := make([]persistedQueue, 0, len(s.records))
	for key, rec := range s.records {
		p := persistedQueue{ID: s.ids[key], Record: *rec}
		if bm, ok := s.hfileRefs[key]; ok {
			p.HFileIDs = bm.ToArray()
		}
		persisted = append(persisted, p)
	}
	sort.Slice(persisted, func(i, j int) bool { return persisted[i].ID.String() < persisted[j].ID.String() })

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return fmt.Errorf("replication: encode queue storage: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := sys.WriteFile(tmp, data, 0644); err != nil {
		return &ErrInterrupted{Op: "persist queue storage", Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return &ErrInterrupted{Op: "persist queue storage (rename)", Err: err}
	}
	return nil
}

func (s *FileQueueStorage) recordLocked(id QueueID) *queueRecord {
	key := id.String()
	rec, ok := s.records[key]
	if !ok {
		rec = &queueRecord{}
		s.records[key] = rec
		s.ids[key] = id
	}
	return rec
}

func (s *FileQueueStorage) AddWAL(id QueueID, name WALName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.recordLocked(id)
	rec.WALs = append(rec.WALs, name)
	return s.persistLocked()
}

func (s *FileQueueStorage) RemoveWAL(id QueueID, name WALName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := id.String()
	rec, ok := s.records[key]
	if !ok {
		return ErrQueueNotFound
	}
	for i, w := range rec.WALs {
		if w == name {
			rec.WALs = append(rec.WALs[:i], rec.WALs[i+1:]...)
			break
		}
	}
	return s.persistLocked()
}

func (s *FileQueueStorage) SetWALPosition(id QueueID, name WALName, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id.String()]
	if !ok {
		return ErrQueueNotFound
	}
	rec.Position = offset
	return s.persistLocked()
}

func (s *FileQueueStorage) RemoveQueue(id QueueID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := id.String()
	delete(s.records, key)
	delete(s.ids, key)
	delete(s.hfileRefs, key)
	return s.persistLocked()
}

func (s *FileQueueStorage) ClaimQueue(fromID, toID QueueID) ([]WALName, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fromKey := fromID.String()
	rec, ok := s.records[fromKey]
	if !ok {
		return nil, ErrQueueNotFound
	}
	delete(s.records, fromKey)
	delete(s.ids, fromKey)

	toKey := toID.String()
	s.records[toKey] = rec
	s.ids[toKey] = toID
	if bm, ok := s.hfileRefs[fromKey]; ok {
		delete(s.hfileRefs, fromKey)
		s.hfileRefs[toKey] = bm
	}
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	out := make([]WALName, len(rec.WALs))
	copy(out, rec.WALs)
	return out, nil
}

func (s *FileQueueStorage) GetAllQueues() ([]QueueID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]QueueID, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, id)
	}
	return out, nil
}

func (s *FileQueueStorage) AddPeerToHFileRefs(id QueueID, refs []string) error {
	if s.hfileStrings == nil || len(refs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := id.String()
	bm, ok := s.hfileRefs[key]
	if !ok {
		bm = roaring64.New()
		s.hfileRefs[key] = bm
	}
	for _, ref := range refs {
		id, err := s.hfileStrings.GetOrCreateID(ref)
		if err != nil {
			return &ErrInterrupted{Op: "intern hfile ref", Err: err}
		}
		bm.Add(id)
	}
	return s.persistLocked()
}

func (s *FileQueueStorage) RemovePeerFromHFileRefs(id QueueID, refs []string) error {
	if s.hfileStrings == nil || len(refs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bm, ok := s.hfileRefs[id.String()]
	if !ok {
		return nil
	}
	for _, ref := range refs {
		if refID, ok := s.hfileStrings.GetID(ref); ok {
			bm.Remove(refID)
		}
	}
	return s.persistLocked()
}

func (s *FileQueueStorage) RemoveHFileRefs(refs []string) error {
	if s.hfileStrings == nil || len(refs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint64, 0, len(refs))
	for _, ref := range refs {
		if id, ok := s.hfileStrings.GetID(ref); ok {
			ids = append(ids, id)
		}
	}
	for _, bm := range s.hfileRefs {
		for _, id := range ids {
			bm.Remove(id)
		}
	}
	return s.persistLocked()
}

// HasHFileRef reports whether any queue still references path, used to gate
// deletion of the underlying bulk-loaded file.
func (s *FileQueueStorage) HasHFileRef(path string) bool {
	if s.hfileStrings == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.hfileStrings.GetID(path)
	if !ok {
		return false
	}
	for _, bm := range s.hfileRefs {
		if bm.Contains(id) {
			return true
		}
	}
	return false
}

var _ QueueStorage = (*FileQueueStorage)(nil)
