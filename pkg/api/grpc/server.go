// Package grpcapi implements the looplang.v1.Runner gRPC service. Requests
// and responses are google.protobuf.Struct messages, so any gRPC client can
// call the service without generated stubs.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/looplang/pkg/parser"
	"github.com/lemonberrylabs/looplang/pkg/runner"
	"github.com/lemonberrylabs/looplang/pkg/store"
	"github.com/lemonberrylabs/looplang/pkg/types"
)

// Server implements the Runner gRPC service.
type Server struct {
	runner *runner.Runner
	grpc   *grpc.Server
}

// New creates a new gRPC server executing programs with r.
func New(r *runner.Runner) *Server {
	srv := &Server{runner: r}

	gs := grpc.NewServer()
	RegisterRunnerServer(gs, srv)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

// Run executes a program. The request carries either "source" (with
// optional "sugar" and "enhanced") or "program", the ID of a stored program.
// "preamble" and "registers" apply to both.
func (s *Server) Run(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	regs, err := registersFromStruct(fields["registers"].GetStructValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	preamble := fields["preamble"].GetStringValue()

	if id := fields["program"].GetStringValue(); id != "" {
		return s.runProgram(ctx, id, regs, preamble)
	}

	out, err := s.runner.Run(ctx, runner.Request{
		Source:    fields["source"].GetStringValue(),
		Preamble:  preamble,
		Registers: regs,
		Dialect:   dialectFromStruct(fields),
	})
	if err != nil {
		return nil, programStatus(err)
	}

	resp := map[string]any{
		"registers": out.Registers.Export(),
		"stopped":   out.Stopped,
	}
	if out.Stopped {
		resp["message"] = out.Message
	}
	return newStruct(resp)
}

func (s *Server) runProgram(ctx context.Context, id string, regs map[string]uint64, preamble string) (*structpb.Struct, error) {
	run, err := s.runner.RunProgram(ctx, id, regs, preamble)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, status.Error(codes.NotFound, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}

	resp := map[string]any{
		"run":     run.Name,
		"state":   string(run.State),
		"stopped": run.State == store.RunStopped,
	}
	if run.Result != nil {
		resp["registers"] = run.Result
	}
	if run.StopMessage != "" {
		resp["message"] = run.StopMessage
	}
	if run.Error != nil {
		resp["error"] = map[string]any{
			"kind":    run.Error.Kind,
			"message": run.Error.Message,
			"line":    run.Error.Line,
		}
	}
	return newStruct(resp)
}

// Check parses and statically checks "source".
func (s *Server) Check(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	if err := s.runner.Check(fields["source"].GetStringValue(), dialectFromStruct(fields)); err != nil {
		return nil, programStatus(err)
	}
	return newStruct(map[string]any{"ok": true})
}

// --- Internal helpers ---

func dialectFromStruct(fields map[string]*structpb.Value) parser.Dialect {
	return parser.Dialect{
		Sugar:    fields["sugar"].GetBoolValue(),
		Enhanced: fields["enhanced"].GetBoolValue(),
	}
}

// maxExactNumber is the largest integer a protobuf double holds exactly.
const maxExactNumber = 1 << 53

func registersFromStruct(st *structpb.Struct) (map[string]uint64, error) {
	if st == nil {
		return nil, nil
	}
	regs := make(map[string]uint64, len(st.GetFields()))
	for name, v := range st.GetFields() {
		num, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("register %s: expected a number", name)
		}
		f := num.NumberValue
		if f < 0 || f != math.Trunc(f) || f > maxExactNumber {
			return nil, fmt.Errorf("register %s: %v is not a natural number", name, f)
		}
		regs[name] = uint64(f)
	}
	return regs, nil
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return st, nil
}

// programStatus maps compile and run failures to gRPC status codes.
func programStatus(err error) error {
	var le *types.LoopError
	if !errors.As(err, &le) {
		return status.Error(codes.Internal, err.Error())
	}
	switch {
	case runner.IsTimeout(err):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case le.Kind == types.KindRuntime:
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.InvalidArgument, err.Error())
	}
}
