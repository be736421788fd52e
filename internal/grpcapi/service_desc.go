package grpcapi

import (
	"context"
	"encoding/base64"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// serviceDesc is a hand-written grpc.ServiceDesc standing in for what
// protoc-gen-go-grpc would normally emit from a .proto file. grpc-go
// registers its own reflection and health-check services the same way,
// so this is a supported low-level path, not a workaround.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: "regulator.RegulatorService",
	HandlerType: (*RegulatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ReadSnapshot", Handler: readSnapshotHandler},
		{MethodName: "ListAllowedSnapshots", Handler: listAllowedSnapshotsHandler},
		{MethodName: "ExportCompliance", Handler: exportComplianceHandler},
		{MethodName: "DenialSummary", Handler: denialSummaryHandler},
		{MethodName: "DenialCounts", Handler: denialCountsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "regulator.proto",
}

func readSnapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegulatorServer).ReadSnapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/regulator.RegulatorService/ReadSnapshot"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RegulatorServer).ReadSnapshot(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listAllowedSnapshotsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegulatorServer).ListAllowedSnapshots(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/regulator.RegulatorService/ListAllowedSnapshots"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RegulatorServer).ListAllowedSnapshots(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func exportComplianceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegulatorServer).ExportCompliance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/regulator.RegulatorService/ExportCompliance"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RegulatorServer).ExportCompliance(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func denialSummaryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegulatorServer).DenialSummary(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/regulator.RegulatorService/DenialSummary"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RegulatorServer).DenialSummary(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func denialCountsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegulatorServer).DenialCounts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/regulator.RegulatorService/DenialCounts"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RegulatorServer).DenialCounts(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func encodeBase64(payload []byte) string {
	return base64.StdEncoding.EncodeToString(payload)
}
