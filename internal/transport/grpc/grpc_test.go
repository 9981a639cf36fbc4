package grpc

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/nadzzz/doctech/internal/audio"
	"github.com/nadzzz/doctech/internal/message"
)

type stubService struct {
	err error
}

func (s *stubService) Decide(_ context.Context, req *message.DecideRequest) (*message.Decision, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &message.Decision{
		Plan: message.Plan{Action: message.ActionSnapPage, Parameters: message.PageParameters(12), Utterance: req.Text, Context: req.Context},
		ID:   "d-1",
	}, nil
}

func (s *stubService) Execute(_ context.Context, plan message.Plan) (*message.Resolution, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &message.Resolution{Action: plan.Action, Page: plan.Parameters.Page, Utterance: plan.Utterance}, nil
}

func (s *stubService) Ask(_ context.Context, utterance string, navctx message.NavigationContext) (*message.Answer, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &message.Answer{
		Decision:   &message.Decision{Plan: message.Plan{Action: message.ActionIndeterminate, Utterance: utterance, Context: navctx}},
		Resolution: &message.Resolution{Action: message.ActionIndeterminate, Utterance: utterance, Context: navctx},
	}, nil
}

func (s *stubService) Audio(_ context.Context, id string) (*audio.Clip, error) {
	if id != "clip-1" {
		return nil, audio.ErrNotFound
	}
	return &audio.Clip{Data: []byte("RIFF"), ContentType: "audio/wav"}, nil
}

func dial(t *testing.T, svc *stubService) *NavigatorClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())

	tr := New(0, zap.NewNop())
	done := make(chan error, 1)
	go func() { done <- tr.Serve(ctx, lis, svc) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		assert.NoError(t, <-done)
	})
	return NewNavigatorClient(conn)
}

func TestNavigator_DecideAndExecute(t *testing.T) {
	client := dial(t, &stubService{})
	ctx := context.Background()

	decision, err := client.Decide(ctx, &message.DecideRequest{Text: "go to page 12", Context: message.NavigationContext{CurrentPage: 3}})
	require.NoError(t, err)
	assert.Equal(t, message.ActionSnapPage, decision.Action)
	assert.Equal(t, "go to page 12", decision.Utterance)
	assert.Equal(t, 3, decision.Context.CurrentPage)

	res, err := client.Execute(ctx, &decision.Plan)
	require.NoError(t, err)
	require.NotNil(t, res.Page)
	assert.Equal(t, 12, *res.Page)
}

func TestNavigator_AskAndAudio(t *testing.T) {
	client := dial(t, &stubService{})
	ctx := context.Background()

	answer, err := client.Ask(ctx, &AskRequest{Text: "asdfghjkl", Context: message.NavigationContext{CurrentPage: 1}})
	require.NoError(t, err)
	assert.True(t, answer.Resolution.NoAction())

	clip, err := client.Audio(ctx, &AudioRequest{ID: "clip-1"})
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", clip.ContentType)

	_, err = client.Audio(ctx, &AudioRequest{ID: "gone"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestNavigator_StatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{message.ErrInvalidRequest, codes.InvalidArgument},
		{message.ErrInvalidPlan, codes.InvalidArgument},
		{message.ErrClassification, codes.FailedPrecondition},
		{message.ErrExtraction, codes.FailedPrecondition},
		{message.ErrTranscription, codes.FailedPrecondition},
		{message.ErrNoMatch, codes.NotFound},
		{message.ErrSearchUnavailable, codes.Unavailable},
		{fmt.Errorf("disk on fire"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			client := dial(t, &stubService{err: fmt.Errorf("wrapped: %w", tt.err)})
			_, err := client.Execute(context.Background(), &message.Plan{Action: message.ActionFindFigure})
			require.Error(t, err)
			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, st.Code())
		})
	}
}

func TestJSONCodec(t *testing.T) {
	c := jsonCodec{}
	data, err := c.Marshal(&AudioRequest{ID: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"x"}`, string(data))

	var out AudioRequest
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, "x", out.ID)
	assert.Equal(t, "json", c.Name())
}
