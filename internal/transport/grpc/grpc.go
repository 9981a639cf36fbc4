// Package grpc implements the gRPC transport for doctech.
//
// The Navigator service mirrors the HTTP routes for native clients. Messages
// travel as JSON through a registered codec, so no generated protobuf code
// is needed.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/doctech/internal/message"
	"github.com/nadzzz/doctech/internal/transport"
)

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
	logger *zap.Logger
}

var _ transport.Transport = (*Transport)(nil)

// New creates a new gRPC transport on the given port.
func New(port int, logger *zap.Logger) *Transport {
	return &Transport{port: port, logger: logger}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server on the configured port.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	t.logger.Info("grpc transport listening", zap.Int("port", t.port))
	return t.Serve(ctx, lis, svc)
}

// Serve serves svc on lis until ctx is cancelled.
func (t *Transport) Serve(ctx context.Context, lis net.Listener, svc transport.Service) error {
	t.server = grpc.NewServer(grpc.ChainUnaryInterceptor(t.logCalls))
	t.server.RegisterService(&NavigatorServiceDesc, &navigator{svc: svc})

	go func() {
		<-ctx.Done()
		t.logger.Info("grpc transport shutting down")
		t.server.GracefulStop()
	}()

	if err := t.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}

func (t *Transport) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	t.logger.Info("grpc_request",
		zap.String("method", info.FullMethod),
		zap.String("code", status.Code(err).String()),
		zap.Duration("latency", time.Since(start)),
	)
	return resp, err
}

// navigator adapts transport.Service to NavigatorServer.
type navigator struct {
	svc transport.Service
}

func (n *navigator) Decide(ctx context.Context, req *message.DecideRequest) (*message.Decision, error) {
	d, err := n.svc.Decide(ctx, req)
	return d, toStatus(err)
}

func (n *navigator) Execute(ctx context.Context, plan *message.Plan) (*message.Resolution, error) {
	r, err := n.svc.Execute(ctx, *plan)
	return r, toStatus(err)
}

func (n *navigator) Ask(ctx context.Context, req *AskRequest) (*message.Answer, error) {
	a, err := n.svc.Ask(ctx, req.Text, req.Context)
	return a, toStatus(err)
}

func (n *navigator) Audio(ctx context.Context, req *AudioRequest) (*AudioReply, error) {
	clip, err := n.svc.Audio(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &AudioReply{Data: clip.Data, ContentType: clip.ContentType}, nil
}

var codeByKind = map[message.ErrorKind]codes.Code{
	message.KindInvalidRequest:    codes.InvalidArgument,
	message.KindInvalidPlan:       codes.InvalidArgument,
	message.KindTranscription:     codes.FailedPrecondition,
	message.KindClassification:    codes.FailedPrecondition,
	message.KindExtraction:        codes.FailedPrecondition,
	message.KindNoMatch:           codes.NotFound,
	message.KindSearchUnavailable: codes.Unavailable,
}

// toStatus maps a pipeline error to a gRPC status whose message starts with
// the error kind.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	f := transport.Failure(err)
	code, ok := codeByKind[f.Kind]
	if !ok {
		code = codes.Internal
	}
	return status.Error(code, string(f.Kind)+": "+f.Message)
}
