// Package transport defines the contract between network front ends and the
// command pipeline.
//
// Each transport (HTTP, gRPC) decodes requests into pipeline calls and
// encodes results back. Transports hold no pipeline logic.
package transport

import (
	"context"
	"errors"

	"github.com/nadzzz/doctech/internal/audio"
	"github.com/nadzzz/doctech/internal/message"
)

// Service is the pipeline as seen by a transport.
type Service interface {
	Decide(ctx context.Context, req *message.DecideRequest) (*message.Decision, error)
	Execute(ctx context.Context, plan message.Plan) (*message.Resolution, error)
	Ask(ctx context.Context, utterance string, navctx message.NavigationContext) (*message.Answer, error)
	Audio(ctx context.Context, id string) (*audio.Clip, error)
}

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen serves requests against svc until ctx is cancelled.
	Listen(ctx context.Context, svc Service) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}

// Failure returns the caller-facing error payload for err.
func Failure(err error) message.Failure {
	if errors.Is(err, audio.ErrNotFound) {
		return message.Failure{Kind: message.KindNoMatch, Message: err.Error()}
	}
	return message.NewFailure(err)
}
