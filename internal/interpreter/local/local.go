// Package local implements the Interpreter interface using self-hosted models.
//
// It supports any Whisper-compatible transcription endpoint (e.g., whisper.cpp
// server, faster-whisper, whisper-asr-webservice) and any OpenAI-compatible
// chat endpoint (e.g., Ollama's /v1, vLLM, llama.cpp server).
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nadzzz/doctech/internal/config"
	"github.com/nadzzz/doctech/internal/interpreter"
	"github.com/nadzzz/doctech/internal/metrics"
)

// Interpreter uses self-hosted models for transcription and structured completions.
type Interpreter struct {
	whisperEndpoint string
	whisperType     string // "openai" or "asr"
	llm             *openai.Client
	llmModel        string
	vadFilter       bool
	defaultLanguage string
	client          *http.Client
	logger          *zap.Logger
}

// New creates a new local interpreter from config.
func New(cfg config.LocalConfig, logger *zap.Logger) *Interpreter {
	wt := cfg.WhisperType
	if wt == "" {
		wt = "openai"
	}
	model := cfg.LLMModel
	if model == "" {
		model = "llama3.2"
	}

	// Ollama ignores the key but go-openai always sends one.
	llmCfg := openai.DefaultConfig("ollama")
	llmCfg.BaseURL = strings.TrimSuffix(cfg.LLMEndpoint, "/")

	return &Interpreter{
		whisperEndpoint: cfg.WhisperEndpoint,
		whisperType:     wt,
		llm:             openai.NewClientWithConfig(llmCfg),
		llmModel:        model,
		vadFilter:       cfg.VADFilter,
		defaultLanguage: cfg.Language,
		client:          &http.Client{},
		logger:          logger,
	}
}

// Name returns the backend identifier.
func (i *Interpreter) Name() string { return "local" }

// Transcribe sends audio to the local Whisper-compatible endpoint.
// Supports two flavors:
//   - "openai": OpenAI-compatible API (whisper.cpp server, faster-whisper)
//   - "asr":    ahmetoner/whisper-asr-webservice (POST /asr with query params)
func (i *Interpreter) Transcribe(
	ctx context.Context, audio []byte, contentType string, opts interpreter.TranscribeOpts,
) (*interpreter.TranscribeResult, error) {
	var (
		res *interpreter.TranscribeResult
		err error
	)
	switch i.whisperType {
	case "asr":
		res, err = i.transcribeASR(ctx, audio, contentType, opts)
	default:
		res, err = i.transcribeOpenAI(ctx, audio, contentType, opts)
	}
	metrics.BackendRequestsTotal.WithLabelValues(i.Name(), "transcribe", metrics.Outcome(err)).Inc()
	return res, err
}

// transcribeASR handles the ahmetoner/whisper-asr-webservice format.
// API: POST /asr?task=transcribe&language=en&output=json&vad_filter=true
// Body: multipart/form-data with field "audio_file"
func (i *Interpreter) transcribeASR(
	ctx context.Context, audio []byte, contentType string, opts interpreter.TranscribeOpts,
) (*interpreter.TranscribeResult, error) {
	body, formType, err := audioForm("audio_file", audio, contentType, nil)
	if err != nil {
		return nil, err
	}

	q := make(url.Values)
	q.Set("task", "transcribe")
	q.Set("output", "json")
	q.Set("encode", "true")
	if lang := i.language(opts); lang != "" {
		q.Set("language", lang)
	}
	if opts.Prompt != "" {
		q.Set("initial_prompt", opts.Prompt)
	}
	if i.vadFilter {
		q.Set("vad_filter", "true")
	}

	reqURL := i.whisperEndpoint + "?" + q.Encode()
	i.logger.Debug("whisper-asr request", zap.String("url", reqURL))
	return i.postTranscription(ctx, reqURL, body, formType)
}

// transcribeOpenAI handles OpenAI-compatible whisper endpoints.
func (i *Interpreter) transcribeOpenAI(
	ctx context.Context, audio []byte, contentType string, opts interpreter.TranscribeOpts,
) (*interpreter.TranscribeResult, error) {
	fields := map[string]string{"response_format": "verbose_json"}
	if opts.Model != "" {
		fields["model"] = opts.Model
	}
	if lang := i.language(opts); lang != "" {
		fields["language"] = lang
	}
	if opts.Prompt != "" {
		fields["prompt"] = opts.Prompt
	}

	body, formType, err := audioForm("file", audio, contentType, fields)
	if err != nil {
		return nil, err
	}
	return i.postTranscription(ctx, i.whisperEndpoint, body, formType)
}

func (i *Interpreter) language(opts interpreter.TranscribeOpts) string {
	if opts.Language != "" {
		return opts.Language
	}
	return i.defaultLanguage
}

func (i *Interpreter) postTranscription(
	ctx context.Context, endpoint string, body *bytes.Buffer, formType string,
) (*interpreter.TranscribeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", formType)

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("local transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("local transcription failed (status %d): %s", resp.StatusCode, respBody)
	}

	var result struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding transcription: %w", err)
	}

	lang := interpreter.NormalizeLanguage(result.Language)
	i.logger.Debug("local transcription complete", zap.Int("text_length", len(result.Text)), zap.String("language", lang))
	return &interpreter.TranscribeResult{
		Text:     strings.TrimSpace(result.Text),
		Language: lang,
	}, nil
}

// Complete asks the local model for a JSON object. Most self-hosted servers
// only support the json_object response format, so the schema is spelled out
// in the system prompt and enforced on decode.
func (i *Interpreter) Complete(ctx context.Context, req interpreter.StructuredRequest, out any) error {
	schema := req.Schema
	schemaJSON, err := json.Marshal(&schema)
	if err != nil {
		return fmt.Errorf("marshalling schema: %w", err)
	}

	system := req.System + "\n\nRespond with a single JSON object matching this JSON schema:\n" + string(schemaJSON)
	msgs := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: system}}
	for _, t := range req.Turns {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: string(t.Role), Content: t.Content})
	}

	resp, err := i.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          i.llmModel,
		Messages:       msgs,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(i.Name(), req.Name, "error").Inc()
		return fmt.Errorf("local LLM request: %w", err)
	}
	if len(resp.Choices) == 0 {
		metrics.BackendRequestsTotal.WithLabelValues(i.Name(), req.Name, "error").Inc()
		return fmt.Errorf("empty response from local LLM")
	}

	content := stripFences(resp.Choices[0].Message.Content)
	if err := schema.Unmarshal(content, out); err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(i.Name(), req.Name, "invalid").Inc()
		return fmt.Errorf("decoding %s output: %w: %.200s", req.Name, err, content)
	}

	metrics.BackendRequestsTotal.WithLabelValues(i.Name(), req.Name, "success").Inc()
	i.logger.Debug("local structured completion complete", zap.String("schema", req.Name))
	return nil
}

// Close is a no-op for the local interpreter.
func (i *Interpreter) Close() error { return nil }

// --- Internal helpers ---

func audioForm(field string, audio []byte, contentType string, fields map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(field, "audio"+interpreter.ExtFromContentType(contentType))
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("writing audio: %w", err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

// stripFences removes a ```json ... ``` wrapper small models like to add.
func stripFences(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
