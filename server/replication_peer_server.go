package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/INLOpen/nexusbase/core"
	"github.com/INLOpen/nexusbase/replication"
)

// replicatedEntryApplier is implemented by a storage engine that can accept
// a shipped WAL record from a peer without re-appending it to its own WAL.
type replicatedEntryApplier interface {
	ApplyReplicatedEntry(ctx context.Context, entry *core.WALEntry) error
}

// ReplicationPeerServer is the receiving end of the peer replication link:
// it accepts ShipBatch calls from other cluster members' replication
// sources and applies each entry to the local engine in order.
type ReplicationPeerServer struct {
	engine    replicatedEntryApplier
	server    *grpc.Server
	healthSrv *health.Server
	logger    *slog.Logger
}

// NewReplicationPeerServer builds the gRPC server that exposes this node as
// a replication peer to the rest of the cluster.
func NewReplicationPeerServer(eng replicatedEntryApplier, logger *slog.Logger) *ReplicationPeerServer {
	s := &ReplicationPeerServer{
		engine:    eng,
		logger:    logger.With("component", "ReplicationPeerServer"),
		healthSrv: health.NewServer(),
	}
	s.server = grpc.NewServer()
	replication.RegisterPeerReplicationServer(s.server, s)
	grpc_health_v1.RegisterHealthServer(s.server, s.healthSrv)
	reflection.Register(s.server)
	return s
}

// Start begins listening for shipped batches.
func (s *ReplicationPeerServer) Start(lis net.Listener) error {
	s.logger.Info("replication peer server listening", "address", lis.Addr().String())
	s.healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	return s.server.Serve(lis)
}

// Stop gracefully stops the gRPC server.
func (s *ReplicationPeerServer) Stop() {
	if s.healthSrv != nil {
		s.healthSrv.Shutdown()
	}
	if s.server != nil {
		s.server.GracefulStop()
	}
}

// ShipBatch applies every entry in req, in order, and reports how far it got.
func (s *ReplicationPeerServer) ShipBatch(ctx context.Context, req *replication.ShipBatchRequest) (*replication.ShipBatchResponse, error) {
	if s.engine == nil {
		return nil, fmt.Errorf("replication peer server has no engine attached")
	}
	applied := 0
	var lastSeqNum uint64
	for _, wire := range req.Entries {
		entry := &core.WALEntry{
			EntryType: core.EntryType(wire.EntryType),
			Key:       wire.Key,
			Value:     wire.Value,
			SeqNum:    wire.SeqNum,
		}
		if err := s.engine.ApplyReplicatedEntry(ctx, entry); err != nil {
			s.logger.Error("failed to apply replicated entry", "queue", req.QueueID, "wal", req.WALName, "seq_num", wire.SeqNum, "error", err)
			return &replication.ShipBatchResponse{Applied: applied, LastSeqNum: lastSeqNum}, err
		}
		applied++
		lastSeqNum = wire.SeqNum
	}
	return &replication.ShipBatchResponse{Applied: applied, LastSeqNum: lastSeqNum}, nil
}

var _ replication.PeerReplicationServer = (*ReplicationPeerServer)(nil)
