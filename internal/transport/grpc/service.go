package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/nadzzz/doctech/internal/message"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "doctech.v1.Navigator"

// AskRequest is the one-shot query input.
type AskRequest struct {
	Text    string                    `json:"text"`
	Context message.NavigationContext `json:"context"`
}

// AudioRequest names a stored confirmation clip.
type AudioRequest struct {
	ID string `json:"id"`
}

// AudioReply is a stored confirmation clip.
type AudioReply struct {
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
}

// NavigatorServer is the server API for the Navigator service.
type NavigatorServer interface {
	Decide(context.Context, *message.DecideRequest) (*message.Decision, error)
	Execute(context.Context, *message.Plan) (*message.Resolution, error)
	Ask(context.Context, *AskRequest) (*message.Answer, error)
	Audio(context.Context, *AudioRequest) (*AudioReply, error)
}

func unary[Req any, Resp any](method string, call func(NavigatorServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(NavigatorServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(NavigatorServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// NavigatorServiceDesc describes the Navigator service for grpc.Server.RegisterService.
var NavigatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NavigatorServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Decide", NavigatorServer.Decide),
		unary("Execute", NavigatorServer.Execute),
		unary("Ask", NavigatorServer.Ask),
		unary("Audio", NavigatorServer.Audio),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "doctech/v1/navigator",
}

// NavigatorClient calls a Navigator server using the JSON codec.
type NavigatorClient struct {
	cc grpc.ClientConnInterface
}

// NewNavigatorClient wraps cc.
func NewNavigatorClient(cc grpc.ClientConnInterface) *NavigatorClient {
	return &NavigatorClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *NavigatorClient, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Decide classifies a request.
func (c *NavigatorClient) Decide(ctx context.Context, in *message.DecideRequest, opts ...grpc.CallOption) (*message.Decision, error) {
	return invoke[message.Decision](ctx, c, "Decide", in, opts)
}

// Execute resolves a plan.
func (c *NavigatorClient) Execute(ctx context.Context, in *message.Plan, opts ...grpc.CallOption) (*message.Resolution, error) {
	return invoke[message.Resolution](ctx, c, "Execute", in, opts)
}

// Ask classifies and resolves a typed utterance.
func (c *NavigatorClient) Ask(ctx context.Context, in *AskRequest, opts ...grpc.CallOption) (*message.Answer, error) {
	return invoke[message.Answer](ctx, c, "Ask", in, opts)
}

// Audio fetches a stored confirmation clip.
func (c *NavigatorClient) Audio(ctx context.Context, in *AudioRequest, opts ...grpc.CallOption) (*AudioReply, error) {
	return invoke[AudioReply](ctx, c, "Audio", in, opts)
}
