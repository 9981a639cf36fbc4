// Package openai implements the Interpreter interface using OpenAI's APIs.
//
// It uses the Audio Transcription API (Whisper) for speech-to-text, and the
// Chat Completions API with a strict JSON schema response format for the
// classification, extraction and narration calls.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nadzzz/doctech/internal/config"
	"github.com/nadzzz/doctech/internal/interpreter"
	"github.com/nadzzz/doctech/internal/metrics"
)

// zeroTemperature makes go-openai send a near-zero temperature; a literal 0
// is dropped by omitempty and the API falls back to its default of 1.
const zeroTemperature = math.SmallestNonzeroFloat32

// Interpreter uses OpenAI APIs for transcription and structured completions.
type Interpreter struct {
	client             *openai.Client
	transcriptionModel string
	completionModel    string
	logger             *zap.Logger
}

// New creates a new OpenAI interpreter from config.
func New(cfg config.OpenAIConfig, logger *zap.Logger) *Interpreter {
	return &Interpreter{
		client:             NewClient(cfg),
		transcriptionModel: cfg.TranscriptionModel,
		completionModel:    cfg.CompletionModel,
		logger:             logger,
	}
}

// NewClient builds the go-openai client shared by the interpreter and the
// OpenAI speech synthesizer.
func NewClient(cfg config.OpenAIConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// Name returns the backend identifier.
func (i *Interpreter) Name() string { return "openai" }

// Transcribe sends audio to the OpenAI Transcription API.
func (i *Interpreter) Transcribe(
	ctx context.Context, audio []byte, contentType string, opts interpreter.TranscribeOpts,
) (*interpreter.TranscribeResult, error) {
	model := i.transcriptionModel
	if opts.Model != "" {
		model = opts.Model
	}

	resp, err := i.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: "audio" + interpreter.ExtFromContentType(contentType),
		Reader:   bytes.NewReader(audio),
		Prompt:   opts.Prompt,
		Language: opts.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(i.Name(), "transcribe", "error").Inc()
		return nil, fmt.Errorf("transcription request: %w", parseAPIError(err))
	}
	metrics.BackendRequestsTotal.WithLabelValues(i.Name(), "transcribe", "success").Inc()

	// OpenAI returns full language names ("english"); normalise to ISO-639-1.
	lang := interpreter.NormalizeLanguage(resp.Language)

	i.logger.Debug("transcription complete", zap.Int("text_length", len(resp.Text)), zap.String("language", lang))
	return &interpreter.TranscribeResult{
		Text:     strings.TrimSpace(resp.Text),
		Language: lang,
	}, nil
}

// Complete runs a chat completion constrained to req.Schema and decodes the
// validated JSON into out.
func (i *Interpreter) Complete(ctx context.Context, req interpreter.StructuredRequest, out any) error {
	schema := req.Schema

	resp, err := i.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       i.completionModel,
		Messages:    chatMessages(req),
		Temperature: zeroTemperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Name,
				Schema: &schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(i.Name(), req.Name, "error").Inc()
		return fmt.Errorf("chat request: %w", parseAPIError(err))
	}

	if len(resp.Choices) == 0 {
		metrics.BackendRequestsTotal.WithLabelValues(i.Name(), req.Name, "error").Inc()
		return fmt.Errorf("no choices returned from chat API")
	}

	content := resp.Choices[0].Message.Content
	if err := schema.Unmarshal(content, out); err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(i.Name(), req.Name, "invalid").Inc()
		return fmt.Errorf("decoding %s output: %w: %.200s", req.Name, err, content)
	}

	metrics.BackendRequestsTotal.WithLabelValues(i.Name(), req.Name, "success").Inc()
	i.logger.Debug("structured completion complete", zap.String("schema", req.Name))
	return nil
}

// Close is a no-op for the OpenAI interpreter.
func (i *Interpreter) Close() error { return nil }

func chatMessages(req interpreter.StructuredRequest) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Turns)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	for _, t := range req.Turns {
		role := openai.ChatMessageRoleUser
		if t.Role == interpreter.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	return msgs
}

// parseAPIError extracts a human-readable error from the API response.
func parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("openai API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("openai API error %d: %s", reqErr.HTTPStatusCode, detail)
		}
		return fmt.Errorf("openai API error %d: %w", reqErr.HTTPStatusCode, reqErr.Err)
	}

	return err
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
