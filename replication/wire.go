package replication

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// WALEntryWire is the over-the-wire representation of one core.WALEntry
// shipped to a peer. The wire protocol spoken with a remote cluster's own
// replication sink is intentionally out of scope; this type exists so the
// default gRPC endpoint below has something concrete to exercise.
type WALEntryWire struct {
	EntryType uint8  `json:"entry_type"`
	Key       []byte `json:"key"`
	Value     []byte `json:"value"`
	SeqNum    uint64 `json:"seq_num"`
}

// ShipBatchRequest carries one queue's pending WAL entries to a peer.
type ShipBatchRequest struct {
	QueueID string         `json:"queue_id"`
	WALName string         `json:"wal_name"`
	Entries []WALEntryWire `json:"entries"`
}

// ShipBatchResponse acknowledges how much of a ShipBatchRequest was applied.
type ShipBatchResponse struct {
	Applied    int    `json:"applied"`
	LastSeqNum uint64 `json:"last_seq_num"`
}

const jsonCodecName = "json"

// jsonCodec lets the replication service speak gRPC without generated
// protobuf message types: every message here is a plain struct marshaled as
// JSON, registered as a codec gRPC selects via the call's content-subtype.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
func (jsonCodec) Name() string { return jsonCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
