package replication

import (
	"context"
	"fmt"

	"github.com/INLOpen/nexusbase/core"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// PeerEndpoint is how a source delivers a shipped batch to one peer. It is
// the seam at which the wire protocol to a remote peer's cluster would live;
// this module only needs enough of it to drive enqueueLog's retry loop, the
// remote side of the link is out of scope.
type PeerEndpoint interface {
	Ship(ctx context.Context, queueID QueueID, walName WALName, entries []core.WALEntry) (*ShipBatchResponse, error)
	Close() error
}

// GRPCPeerEndpoint ships batches to a peer's replication listen address
// using the hand-rolled JSON-codec service in rpc.go/wire.go.
type GRPCPeerEndpoint struct {
	conn   *grpc.ClientConn
	client *PeerReplicationClient
}

// DialPeerEndpoint opens an insecure gRPC connection to a peer's replication
// endpoint. TLS follows the same pattern as the main gRPC server's
// loadClientTLSConfig and is wired in by callers that configure it.
func DialPeerEndpoint(addr string) (*GRPCPeerEndpoint, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("replication: dial peer %s: %w", addr, err)
	}
	return &GRPCPeerEndpoint{conn: conn, client: NewPeerReplicationClient(conn)}, nil
}

func (e *GRPCPeerEndpoint) Ship(ctx context.Context, queueID QueueID, walName WALName, entries []core.WALEntry) (*ShipBatchResponse, error) {
	wire := make([]WALEntryWire, len(entries))
	for i, ent := range entries {
		wire[i] = WALEntryWire{
			EntryType: uint8(ent.EntryType),
			Key:       ent.Key,
			Value:     ent.Value,
			SeqNum:    ent.SeqNum,
		}
	}
	req := &ShipBatchRequest{
		QueueID: queueID.String(),
		WALName: string(walName),
		Entries: wire,
	}
	resp, err := e.client.ShipBatch(ctx, req)
	if err != nil {
		return nil, &ErrInterrupted{Op: "ship batch to " + queueID.PeerID, Err: err}
	}
	return resp, nil
}

func (e *GRPCPeerEndpoint) Close() error {
	return e.conn.Close()
}
