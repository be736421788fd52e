// Package grpcapi implements the gRPC server that exposes the regulator
// surface (§4.11). It is the only transport the regulator surface is
// reachable through — the operator-facing REST API never mounts these
// routes.
//
// The regulator has no stable, versioned wire contract of its own yet
// (no shared/proto package exists in this repo), so requests and
// responses travel as google.golang.org/protobuf/types/known/structpb.Struct
// values — a real, already-compiled proto.Message the protobuf module
// ships directly, requiring no hand-generated stub code — and the
// service is registered with a hand-written grpc.ServiceDesc, the same
// low-level registration mechanism grpc-go itself uses for its
// reflection and health services.
//
// Security note: agents authenticate via a shared secret passed in gRPC
// metadata, mirroring arkeep's agent-auth interceptor. A role-claim-based
// interceptor is a natural next step once internal/auth is wired in.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nlogistics/control-tower/internal/forensic"
	"github.com/nlogistics/control-tower/internal/regulator"
)

// RegulatorServer is the interface the hand-written ServiceDesc below
// registers. Every method takes and returns structpb envelopes (or
// emptypb.Empty where there is no request body) instead of generated
// message types.
type RegulatorServer interface {
	ReadSnapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAllowedSnapshots(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ExportCompliance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DenialSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DenialCounts(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// Server adapts internal/regulator.Views onto the gRPC transport.
type Server struct {
	views        *regulator.Views
	logger       *zap.Logger
	sharedSecret string
}

// Config holds the gRPC listener configuration.
type Config struct {
	// ListenAddr records the gRPC listen address (e.g. ":9091"). New does
	// not read it; ListenAndServe binds to the address passed to it.
	ListenAddr string
	// SharedSecret is the value callers must present in the
	// "regulator-secret" metadata key. If empty, a warning is logged and
	// authentication is disabled (development mode only).
	SharedSecret string
}

// New creates a Server over views.
func New(cfg Config, views *regulator.Views, logger *zap.Logger) *Server {
	s := &Server{
		views:        views,
		logger:       logger.Named("grpcapi"),
		sharedSecret: cfg.SharedSecret,
	}
	if s.sharedSecret == "" {
		s.logger.Warn("regulator shared secret not configured, authentication disabled")
	}
	return s
}

// ListenAndServe starts the gRPC server and blocks until ctx is cancelled
// or a fatal error occurs.
func (s *Server) ListenAndServe(ctx context.Context, listenAddr string) error {
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("grpcapi: failed to listen on %s: %w", listenAddr, err)
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(s.authUnaryInterceptor),
	)
	grpcServer.RegisterService(&serviceDesc, s)

	go func() {
		<-ctx.Done()
		s.logger.Info("regulator grpc server shutting down gracefully")
		grpcServer.GracefulStop()
	}()

	s.logger.Info("regulator grpc server listening", zap.String("addr", listenAddr))

	if err := grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("grpcapi: server error: %w", err)
	}
	return nil
}

// authUnaryInterceptor validates the caller's shared secret on every RPC.
func (s *Server) authUnaryInterceptor(
	ctx context.Context,
	req any,
	_ *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	if err := s.validateSecret(ctx); err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

func (s *Server) validateSecret(ctx context.Context) error {
	if s.sharedSecret == "" {
		return nil
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	values := md.Get("regulator-secret")
	if len(values) == 0 || values[0] != s.sharedSecret {
		return status.Error(codes.Unauthenticated, "invalid regulator secret")
	}
	return nil
}

// ─── RegulatorServer implementation ──────────────────────────────────────

// ReadSnapshot expects a "snapshot_name" string field and returns the
// flat SnapshotView fields as a Struct.
func (s *Server) ReadSnapshot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, err := requiredStringField(req, "snapshot_name")
	if err != nil {
		return nil, err
	}

	view, err := s.views.ReadSnapshot(name)
	if err != nil {
		return nil, mapViewError(err)
	}

	return structpb.NewStruct(map[string]any{
		"snapshot_name":    view.Name,
		"content":          view.Content,
		"integrity_status": view.IntegrityStatus,
		"timestamp":        view.Timestamp,
	})
}

// ListAllowedSnapshots returns the configured allow-list.
func (s *Server) ListAllowedSnapshots(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	names := s.views.Guard().AllowedSnapshots()
	values := make([]any, len(names))
	for i, n := range names {
		values[i] = n
	}
	return structpb.NewStruct(map[string]any{"snapshot_names": values})
}

// ExportCompliance expects "snapshot_name", "format", and
// "include_timeline" fields and returns the export payload base64-encoded
// under "payload", since structpb has no byte-slice kind.
func (s *Server) ExportCompliance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, err := requiredStringField(req, "snapshot_name")
	if err != nil {
		return nil, err
	}
	formatStr, err := requiredStringField(req, "format")
	if err != nil {
		return nil, err
	}
	includeTimeline := req.Fields["include_timeline"].GetBoolValue()

	payload, err := s.views.ExportCompliance(name, forensic.Format(formatStr), includeTimeline)
	if err != nil {
		return nil, mapViewError(err)
	}

	return structpb.NewStruct(map[string]any{
		"snapshot_name": name,
		"format":        formatStr,
		"payload":       encodeBase64(payload),
	})
}

// DenialSummary expects a "role" field and returns a DenialSummary.
func (s *Server) DenialSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	role, err := requiredStringField(req, "role")
	if err != nil {
		return nil, err
	}

	summary, err := s.views.DenialSummaryForRole(ctx, role)
	if err != nil {
		return nil, mapViewError(err)
	}

	reasons := make(map[string]any, len(summary.Reasons))
	for reason, count := range summary.Reasons {
		reasons[string(reason)] = count
	}
	return structpb.NewStruct(map[string]any{
		"role":      summary.Role,
		"total":     summary.Total,
		"by_reason": reasons,
	})
}

// DenialCounts returns the global denial histogram.
func (s *Server) DenialCounts(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	counts, err := s.views.DenialCounts(ctx)
	if err != nil {
		return nil, mapViewError(err)
	}
	reasons := make(map[string]any, len(counts))
	for reason, count := range counts {
		reasons[string(reason)] = count
	}
	return structpb.NewStruct(map[string]any{"by_reason": reasons})
}

// ─── Helpers ──────────────────────────────────────────────────────────────

func requiredStringField(req *structpb.Struct, key string) (string, error) {
	if req == nil {
		return "", status.Errorf(codes.InvalidArgument, "missing request body")
	}
	v, ok := req.Fields[key]
	if !ok || v.GetStringValue() == "" {
		return "", status.Errorf(codes.InvalidArgument, "missing %s", key)
	}
	return v.GetStringValue(), nil
}

// mapViewError translates regulator policy errors to gRPC status codes.
// Forbidden operations and disallowed snapshots are PermissionDenied —
// the caller asked for something the policy refuses. Anything else (a
// replay or export failure) is Internal.
func mapViewError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, regulator.ErrForbidden) || errors.Is(err, regulator.ErrSnapshotNotAllowed) {
		return status.Error(codes.PermissionDenied, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
