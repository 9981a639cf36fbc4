package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nadzzz/doctech/internal/audio"
	"github.com/nadzzz/doctech/internal/config"
	"github.com/nadzzz/doctech/internal/message"
)

type stubService struct {
	decideReq  *message.DecideRequest
	decision   *message.Decision
	executed   *message.Plan
	resolution *message.Resolution
	err        error
	clips      map[string]*audio.Clip
}

func (s *stubService) Decide(_ context.Context, req *message.DecideRequest) (*message.Decision, error) {
	s.decideReq = req
	return s.decision, s.err
}

func (s *stubService) Execute(_ context.Context, plan message.Plan) (*message.Resolution, error) {
	s.executed = &plan
	return s.resolution, s.err
}

func (s *stubService) Ask(_ context.Context, utterance string, navctx message.NavigationContext) (*message.Answer, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &message.Answer{
		Decision:   &message.Decision{Plan: message.Plan{Action: message.ActionNextPage, Utterance: utterance, Context: navctx}},
		Resolution: &message.Resolution{Action: message.ActionNextPage, Utterance: utterance, Context: navctx},
	}, nil
}

func (s *stubService) Audio(_ context.Context, id string) (*audio.Clip, error) {
	if c, ok := s.clips[id]; ok {
		return c, nil
	}
	return nil, audio.ErrNotFound
}

func newServer(t *testing.T, svc *stubService) *httptest.Server {
	t.Helper()
	tr := New(config.HTTPConfig{MaxUploadBytes: 1 << 20}, zap.NewNop())
	srv := httptest.NewServer(tr.Router(svc))
	t.Cleanup(srv.Close)
	return srv
}

func decodeError(t *testing.T, resp *http.Response) message.Failure {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error
}

func TestDecideAndRespond_Multipart(t *testing.T) {
	svc := &stubService{decision: &message.Decision{
		Plan:    message.Plan{Action: message.ActionSnapPage, Parameters: message.PageParameters(12)},
		ID:      "d-1",
		AudioID: "clip-1",
	}}
	srv := newServer(t, svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="audio"; filename="speech.webm"`)
	h.Set("Content-Type", "audio/webm")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write([]byte("webm-bytes"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/decide_and_respond?current_page=5&page_count=20&response_mode=audio",
		mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out decideResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, srv.URL+"/audio_response/clip-1", out.AudioURL)
	assert.Equal(t, message.ActionSnapPage, out.Plan.Action)

	require.NotNil(t, svc.decideReq)
	assert.Equal(t, []byte("webm-bytes"), svc.decideReq.Audio)
	assert.Equal(t, "audio/webm", svc.decideReq.ContentType)
	assert.Equal(t, message.NavigationContext{CurrentPage: 5, PageCount: 20}, svc.decideReq.Context)
	assert.Equal(t, message.ResponseModeAudio, svc.decideReq.ResponseMode)
}

func TestDecideAndRespond_RawAudio(t *testing.T) {
	svc := &stubService{decision: &message.Decision{Plan: message.Plan{Action: message.ActionNextPage}}}
	srv := newServer(t, svc)

	resp, err := http.Post(srv.URL+"/decide_and_respond", "audio/ogg", strings.NewReader("OggS"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.NotContains(t, raw, "audio_url")
	assert.Equal(t, "audio/ogg", svc.decideReq.ContentType)
}

func TestDecideAndRespond_JSON(t *testing.T) {
	svc := &stubService{decision: &message.Decision{Plan: message.Plan{Action: message.ActionFindFigure}}}
	srv := newServer(t, svc)

	body := `{"text":"what does figure 3 look like","context":{"current_page":2},"response_mode":"text"}`
	resp, err := http.Post(srv.URL+"/decide_and_respond", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "what does figure 3 look like", svc.decideReq.Text)
	assert.Equal(t, 2, svc.decideReq.Context.CurrentPage)
	assert.Equal(t, message.ResponseModeText, svc.decideReq.ResponseMode)
}

func TestDecideAndRespond_BadRequests(t *testing.T) {
	srv := newServer(t, &stubService{})

	tests := []struct {
		name        string
		url         string
		contentType string
		body        string
	}{
		{"bad page", "/decide_and_respond?current_page=abc", "audio/ogg", "OggS"},
		{"empty audio", "/decide_and_respond", "audio/ogg", ""},
		{"bad json", "/decide_and_respond", "application/json", "{"},
		{"blank text", "/decide_and_respond", "application/json", `{"text":"  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+tt.url, tt.contentType, strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, message.KindInvalidRequest, decodeError(t, resp).Kind)
		})
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   message.ErrorKind
	}{
		{fmt.Errorf("x: %w", message.ErrTranscription), http.StatusUnprocessableEntity, message.KindTranscription},
		{fmt.Errorf("x: %w", message.ErrClassification), http.StatusUnprocessableEntity, message.KindClassification},
		{fmt.Errorf("x: %w", message.ErrExtraction), http.StatusUnprocessableEntity, message.KindExtraction},
		{fmt.Errorf("x: %w", message.ErrNoMatch), http.StatusNotFound, message.KindNoMatch},
		{fmt.Errorf("x: %w", message.ErrSearchUnavailable), http.StatusBadGateway, message.KindSearchUnavailable},
		{fmt.Errorf("x: %w", message.ErrInvalidPlan), http.StatusBadRequest, message.KindInvalidPlan},
		{fmt.Errorf("boom"), http.StatusInternalServerError, message.KindInternal},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			srv := newServer(t, &stubService{err: tt.err})
			resp, err := http.Post(srv.URL+"/execute_plan", "application/json", strings.NewReader(`{"action":"find_fig"}`))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.kind, decodeError(t, resp).Kind)
		})
	}
}

func TestExecutePlan_AcceptsDecision(t *testing.T) {
	page := 7
	svc := &stubService{resolution: &message.Resolution{
		Action:   message.ActionFindFigure,
		Document: "https://files.example/doc_A.pdf",
		Page:     &page,
	}}
	srv := newServer(t, svc)

	decision := message.Decision{
		Plan: message.Plan{
			Action:     message.ActionFindFigure,
			Parameters: &message.Parameters{FigureDescription: "figure 3"},
			Utterance:  "what does figure 3 look like",
			Context:    message.NavigationContext{CurrentPage: 1},
		},
		ID:           "d-9",
		Confirmation: "Finding figure 3.",
	}
	body, err := json.Marshal(decision)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/execute_plan", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res message.Resolution
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, 7, *res.Page)
	assert.Equal(t, decision.Plan, *svc.executed)
}

func TestQuery(t *testing.T) {
	srv := newServer(t, &stubService{})

	resp, err := http.Post(srv.URL+"/query", "application/json",
		strings.NewReader(`{"text":"next page","context":{"current_page":3}}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var answer message.Answer
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&answer))
	assert.Equal(t, 3, answer.Resolution.Context.CurrentPage)
}

func TestAudioResponse(t *testing.T) {
	srv := newServer(t, &stubService{clips: map[string]*audio.Clip{
		"clip-1": {Data: []byte("ID3"), ContentType: "audio/mpeg"},
	}})

	resp, err := http.Get(srv.URL + "/audio_response/clip-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	missing, err := http.Get(srv.URL + "/audio_response/nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestBaseURL_PublicURLWins(t *testing.T) {
	tr := New(config.HTTPConfig{PublicURL: "https://doctech.example/"}, zap.NewNop())
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "https://doctech.example", tr.baseURL(r))
}
