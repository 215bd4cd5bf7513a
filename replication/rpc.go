package replication

import (
	"context"

	"google.golang.org/grpc"
)

// PeerReplicationServer is implemented by whatever accepts shipped WAL
// batches on the remote side of a peer link. Hand-written in place of a
// protoc-generated service interface since the wire format here is a local
// JSON codec rather than a published protobuf schema (see wire.go).
type PeerReplicationServer interface {
	ShipBatch(ctx context.Context, req *ShipBatchRequest) (*ShipBatchResponse, error)
}

const peerReplicationServiceName = "replication.PeerReplication"

func shipBatchHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ShipBatchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PeerReplicationServer).ShipBatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + peerReplicationServiceName + "/ShipBatch",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PeerReplicationServer).ShipBatch(ctx, req.(*ShipBatchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var peerReplicationServiceDesc = grpc.ServiceDesc{
	ServiceName: peerReplicationServiceName,
	HandlerType: (*PeerReplicationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ShipBatch", Handler: shipBatchHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "replication/rpc.go",
}

// RegisterPeerReplicationServer attaches srv to s under the peer
// replication service name.
func RegisterPeerReplicationServer(s *grpc.Server, srv PeerReplicationServer) {
	s.RegisterService(&peerReplicationServiceDesc, srv)
}

// PeerReplicationClient invokes ShipBatch on a remote peer connection.
type PeerReplicationClient struct {
	cc *grpc.ClientConn
}

func NewPeerReplicationClient(cc *grpc.ClientConn) *PeerReplicationClient {
	return &PeerReplicationClient{cc: cc}
}

func (c *PeerReplicationClient) ShipBatch(ctx context.Context, req *ShipBatchRequest, opts ...grpc.CallOption) (*ShipBatchResponse, error) {
	out := new(ShipBatchResponse)
	opts = append(opts, grpc.CallContentSubtype(jsonCodecName))
	err := c.cc.Invoke(ctx, "/"+peerReplicationServiceName+"/ShipBatch", req, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}
