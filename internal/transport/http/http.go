// Package http implements the HTTP transport for doctech.
//
// The viewer front end posts recorded speech to /decide_and_respond, plays
// the returned confirmation from /audio_response/{id} and echoes the plan to
// /execute_plan. /query runs both steps for a typed question.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/nadzzz/doctech/docs" // registers the OpenAPI document
	"github.com/nadzzz/doctech/internal/config"
	"github.com/nadzzz/doctech/internal/message"
	"github.com/nadzzz/doctech/internal/metrics"
	"github.com/nadzzz/doctech/internal/transport"
)

const defaultMaxUpload = 25 << 20

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port      int
	publicURL string
	maxUpload int64
	server    *http.Server
	logger    *zap.Logger
}

var _ transport.Transport = (*Transport)(nil)

// New creates a new HTTP transport.
func New(cfg config.HTTPConfig, logger *zap.Logger) *Transport {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &Transport{
		port:      cfg.Port,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Router builds the route table for svc.
func (t *Transport) Router(svc transport.Service) http.Handler {
	h := &handlers{svc: svc, t: t}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(jsonRecoverer(t.logger))
	r.Use(requestLogger(t.logger))
	r.Use(metrics.Middleware())

	r.Post("/decide_and_respond", h.decideAndRespond)
	r.Post("/execute_plan", h.executePlan)
	r.Post("/query", h.query)
	r.Get("/audio_response/{id}", h.audioResponse)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	return r
}

// Listen starts the HTTP server and blocks until ctx is cancelled.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Router(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	t.logger.Info("http transport listening", zap.Int("port", t.port))

	go func() {
		<-ctx.Done()
		t.logger.Info("http transport shutting down")
		_ = t.Close()
	}()

	if err := t.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return t.server.Shutdown(ctx)
}

type handlers struct {
	svc transport.Service
	t   *Transport
}

// decideRequest is the JSON form of a decide call.
type decideRequest struct {
	Text         string                     `json:"text"`
	Context      *message.NavigationContext `json:"context,omitempty"`
	ResponseMode message.ResponseMode       `json:"response_mode,omitempty"`
}

// decideResponse carries the plan and where to fetch its spoken confirmation.
type decideResponse struct {
	AudioURL string            `json:"audio_url,omitempty"`
	Plan     *message.Decision `json:"plan"`
}

// queryRequest is the body of a one-shot query.
type queryRequest struct {
	Text    string                    `json:"text"`
	Context message.NavigationContext `json:"context"`
}

// errorResponse wraps a failure for the wire.
type errorResponse struct {
	Error message.Failure `json:"error"`
}

// decideAndRespond handles POST /decide_and_respond.
//
// @Summary     Classify a voice command and speak a confirmation
// @Description Accepts a multipart upload (field "audio"), raw audio bytes, or a JSON text request.
// @Description Returns the plan to echo to /execute_plan and, when speech was produced, the URL of the clip.
// @Description No search is performed.
// @Tags        pipeline
// @Accept      multipart/form-data
// @Accept      json
// @Accept      audio/ogg
// @Accept      audio/webm
// @Produce     json
// @Param       current_page   query     int     false  "Page currently displayed (1-based)"
// @Param       page_count     query     int     false  "Pages in the open document"
// @Param       response_mode  query     string  false  "none, text, audio or text+audio"
// @Param       audio          formData  file    false  "Recorded speech"
// @Success     200  {object}  decideResponse
// @Failure     400  {object}  errorResponse  "Malformed request"
// @Failure     422  {object}  errorResponse  "Speech or intent could not be understood"
// @Failure     500  {object}  errorResponse
// @Router      /decide_and_respond [post]
func (h *handlers) decideAndRespond(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseDecide(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	decision, err := h.svc.Decide(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := decideResponse{Plan: decision}
	if decision.AudioID != "" {
		resp.AudioURL = h.t.baseURL(r) + "/audio_response/" + decision.AudioID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) parseDecide(w http.ResponseWriter, r *http.Request) (*message.DecideRequest, error) {
	req := &message.DecideRequest{}
	if err := parseContextQuery(r, req); err != nil {
		return nil, err
	}

	body := http.MaxBytesReader(w, r.Body, h.t.maxUpload)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch {
	case mediaType == "multipart/form-data":
		r.Body = body
		if err := r.ParseMultipartForm(h.t.maxUpload); err != nil {
			return nil, fmt.Errorf("parsing upload: %v: %w", err, message.ErrInvalidRequest)
		}
		req.Text = r.FormValue("text")
		file, header, err := r.FormFile("audio")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			return nil, fmt.Errorf("reading upload: %v: %w", err, message.ErrInvalidRequest)
		default:
			defer file.Close()
			if req.Audio, err = io.ReadAll(file); err != nil {
				return nil, fmt.Errorf("reading upload: %v: %w", err, message.ErrInvalidRequest)
			}
			req.ContentType = header.Header.Get("Content-Type")
		}

	case mediaType == "application/json":
		var in decideRequest
		if err := json.NewDecoder(body).Decode(&in); err != nil {
			return nil, fmt.Errorf("invalid json: %v: %w", err, message.ErrInvalidRequest)
		}
		req.Text = in.Text
		if in.Context != nil {
			req.Context = *in.Context
		}
		if in.ResponseMode != "" {
			req.ResponseMode = in.ResponseMode
		}

	default:
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("reading audio: %v: %w", err, message.ErrInvalidRequest)
		}
		req.Audio = data
		req.ContentType = r.Header.Get("Content-Type")
	}

	if !req.HasAudio() && strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("no audio or text in request: %w", message.ErrInvalidRequest)
	}
	return req, nil
}

func parseContextQuery(r *http.Request, req *message.DecideRequest) error {
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"current_page", &req.Context.CurrentPage},
		{"page_count", &req.Context.PageCount},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer: %w", p.name, message.ErrInvalidRequest)
		}
		*p.dst = n
	}
	req.ResponseMode = message.ResponseMode(q.Get("response_mode"))
	return nil
}

// executePlan handles POST /execute_plan.
//
// @Summary     Execute a plan returned by /decide_and_respond
// @Description Resolves the target page or document. The "plan" object from the decide response is accepted as-is.
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       plan  body      message.Plan  true  "Plan to execute"
// @Success     200   {object}  message.Resolution
// @Failure     400   {object}  errorResponse  "Malformed plan"
// @Failure     404   {object}  errorResponse  "Nothing in the index matched"
// @Failure     502   {object}  errorResponse  "Search service unavailable"
// @Router      /execute_plan [post]
func (h *handlers) executePlan(w http.ResponseWriter, r *http.Request) {
	var plan message.Plan
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.t.maxUpload)).Decode(&plan); err != nil {
		writeError(w, fmt.Errorf("invalid json: %v: %w", err, message.ErrInvalidPlan))
		return
	}
	res, err := h.svc.Execute(r.Context(), plan)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// query handles POST /query.
//
// @Summary     Classify and execute a typed command in one call
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       query  body      queryRequest  true  "Utterance and viewer state"
// @Success     200    {object}  message.Answer
// @Failure     400    {object}  errorResponse
// @Failure     404    {object}  errorResponse
// @Failure     422    {object}  errorResponse
// @Failure     502    {object}  errorResponse
// @Router      /query [post]
func (h *handlers) query(w http.ResponseWriter, r *http.Request) {
	var in queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.t.maxUpload)).Decode(&in); err != nil {
		writeError(w, fmt.Errorf("invalid json: %v: %w", err, message.ErrInvalidRequest))
		return
	}
	if strings.TrimSpace(in.Text) == "" {
		writeError(w, fmt.Errorf("text is required: %w", message.ErrInvalidRequest))
		return
	}
	answer, err := h.svc.Ask(r.Context(), in.Text, in.Context)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// audioResponse handles GET /audio_response/{id}.
//
// @Summary     Fetch a spoken confirmation
// @Tags        pipeline
// @Produce     audio/mpeg
// @Produce     audio/wav
// @Param       id   path      string  true  "Audio id from the decide response"
// @Success     200  {file}    binary
// @Failure     404  {object}  errorResponse  "Unknown or expired clip"
// @Router      /audio_response/{id} [get]
func (h *handlers) audioResponse(w http.ResponseWriter, r *http.Request) {
	clip, err := h.svc.Audio(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", clip.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(clip.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(clip.Data)
}

// baseURL is the externally visible origin used in audio links.
func (t *Transport) baseURL(r *http.Request) string {
	if t.publicURL != "" {
		return t.publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host
}
