package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/ppiankov/hglc/internal/engine"
	"github.com/ppiankov/hglc/internal/ledger"
	"github.com/ppiankov/hglc/internal/sentence"
)

// ErrorDomain is the ErrorInfo domain attached to rejected lines.
const ErrorDomain = "hglc"

// Config holds gRPC server configuration.
type Config struct {
	Port int
}

// Server implements SentenceServiceServer on top of an engine.Service.
type Server struct {
	svc        *engine.Service
	cfg        Config
	grpcServer *grpc.Server
}

// New creates a gRPC server for svc.
func New(svc *engine.Service, cfg Config) *Server {
	s := &Server{
		svc:        svc,
		cfg:        cfg,
		grpcServer: grpc.NewServer(),
	}
	RegisterSentenceServiceServer(s.grpcServer, s)
	return s
}

// Serve starts the gRPC server on the configured port. Blocks until stopped.
func (s *Server) Serve() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.cfg.Port, err)
	}
	return s.grpcServer.Serve(lis)
}

// ServeOn starts the gRPC server on the given listener.
func (s *Server) ServeOn(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// GracefulStop gracefully shuts down the gRPC server.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}

// Compile implements the Compile RPC.
func (s *Server) Compile(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	res, err := s.svc.Compile(ctx, engine.SourceGRPC, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := structpb.NewStruct(map[string]any{
		"fingerprint": res.Fingerprint,
		"canonical":   string(res.Canonical),
		"duplicate":   res.Duplicate,
		"sentence":    res.Sentence.Record(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// Canonicalize implements the Canonicalize RPC.
func (s *Server) Canonicalize(_ context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	b, err := s.svc.Canonicalize([]byte(req.GetValue()))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return wrapperspb.String(string(b)), nil
}

// Fingerprint implements the Fingerprint RPC.
func (s *Server) Fingerprint(_ context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	_, fp, err := s.svc.Fingerprint([]byte(req.GetValue()))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return wrapperspb.String(fp), nil
}

// Lookup implements the Lookup RPC.
func (s *Server) Lookup(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	e, err := s.svc.Lookup(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := structpb.NewStruct(map[string]any{
		"fingerprint":  e.Fingerprint,
		"canonical":    e.Canonical,
		"subject_kind": e.SubjectKind,
		"subject_id":   e.SubjectID,
		"intent":       e.Intent,
		"act":          e.Act,
		"object_kind":  e.ObjectKind,
		"object_id":    e.ObjectID,
		"first_run":    e.FirstRun,
		"first_seen":   e.FirstSeen.UTC().Format(time.RFC3339Nano),
		"last_seen":    e.LastSeen.UTC().Format(time.RFC3339Nano),
		"seen_count":   e.SeenCount,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// toStatus maps service errors onto gRPC codes. A rejected line carries an
// ErrorInfo (kind, field, reason) and a BadRequest field violation.
func toStatus(err error) error {
	var se *sentence.Error
	switch {
	case errors.As(err, &se):
		st := status.New(codes.InvalidArgument, se.Error())
		detailed, derr := st.WithDetails(
			&errdetails.ErrorInfo{
				Reason: string(se.Kind),
				Domain: ErrorDomain,
				Metadata: map[string]string{
					"field":  string(se.Field),
					"reason": se.Reason,
				},
			},
			&errdetails.BadRequest{
				FieldViolations: []*errdetails.BadRequest_FieldViolation{{
					Field:       string(se.Field),
					Description: se.Reason,
				}},
			},
		)
		if derr != nil {
			return st.Err()
		}
		return detailed.Err()
	case errors.Is(err, ledger.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, engine.ErrNoLedger):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
