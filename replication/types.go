package replication

import (
	"fmt"
	"strconv"
	"strings"
)

// ReplicationMode describes how a peer's queues are delivered.
type ReplicationMode int

const (
	// ModeAsync ships WAL entries to a remote peer over the network with no
	// ordering guarantee relative to the local write path.
	ModeAsync ReplicationMode = iota
	// ModeSync additionally mirrors each rolled WAL segment into a shared
	// remote directory before the local roll is allowed to proceed.
	ModeSync
)

func (m ReplicationMode) String() string {
	if m == ModeSync {
		return "sync"
	}
	return "async"
}

// ParseReplicationMode converts a config string into a ReplicationMode,
// defaulting to ModeAsync for anything other than "sync".
func ParseReplicationMode(s string) ReplicationMode {
	if strings.EqualFold(s, "sync") {
		return ModeSync
	}
	return ModeAsync
}

// SyncReplicationState tracks the lifecycle of a synchronous-replication
// peer, mirroring the states a region transitions through while its remote
// WAL directory is being established, actively mirrored, or torn down.
type SyncReplicationState int

const (
	SyncStateNone SyncReplicationState = iota
	SyncStateDowngrading
	SyncStateActive
	SyncStateUpgrading
	SyncStateStandby
)

func (s SyncReplicationState) String() string {
	switch s {
	case SyncStateDowngrading:
		return "downgrading"
	case SyncStateActive:
		return "active"
	case SyncStateUpgrading:
		return "upgrading"
	case SyncStateStandby:
		return "standby"
	default:
		return "none"
	}
}

// PeerConfig describes one replication peer, either a remote cluster reached
// over the network (ModeAsync) or a shared filesystem mirror (ModeSync).
type PeerConfig struct {
	ID           string
	Endpoint     string
	Mode         ReplicationMode
	RemoteWALDir string
	Serial       bool
	Enabled      bool
}

// QueueID identifies one (peerID, walGroup) queue of WAL segments. A server
// normally owns one queue per peer; after a failover claim it can also own
// queues originally opened by a dead server, distinguished by OwnerServer.
type QueueID struct {
	PeerID      string
	OwnerServer string
}

// String renders the canonical "peerID/ownerServer" queue identifier used as
// a map key and as the on-disk directory name for the queue's durable state.
func (q QueueID) String() string {
	if q.OwnerServer == "" {
		return q.PeerID
	}
	return q.PeerID + "-" + q.OwnerServer
}

// IsRecovered reports whether this queue was claimed from another server's
// failed replication state rather than opened locally.
func (q QueueID) IsRecovered() bool {
	return q.OwnerServer != ""
}

// WALPrefix groups WAL segment names that share a rotation lineage (for
// multi-WAL setups where several independent logs roll independently). Most
// deployments have exactly one prefix, the empty string.
type WALPrefix string

// WALName is a single rolled WAL segment's file name, ordered lexically
// within a prefix because segment indexes are fixed-width decimal.
type WALName string

// SegmentIndex extracts the numeric index encoded in a WAL segment's file
// name, returning an error if the name isn't in the expected format.
func (n WALName) SegmentIndex() (uint64, error) {
	name := string(n)
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.TrimSuffix(name, ".wal")
	return strconv.ParseUint(name, 10, 64)
}

// PrefixOf derives the rotation-lineage prefix for a WAL name. The teacher's
// WAL implementation rolls a single unprefixed lineage per directory, so this
// always returns the empty prefix; it exists so a multi-WAL engine can be
// plugged in without changing the index's shape.
func PrefixOf(name WALName) WALPrefix {
	return ""
}

// HFileRef identifies a bulk-loaded HFile that a peer still needs to ship
// before the referencing WAL entries can be considered fully replicated.
type HFileRef struct {
	QueueID QueueID
	Path    string
}

func (r HFileRef) String() string {
	return fmt.Sprintf("%s:%s", r.QueueID, r.Path)
}
