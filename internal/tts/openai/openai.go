// Package openai implements tts.Synthesizer with the OpenAI speech API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nadzzz/doctech/internal/config"
	"github.com/nadzzz/doctech/internal/metrics"
	"github.com/nadzzz/doctech/internal/tts"
)

// maxClipBytes bounds a single confirmation clip.
const maxClipBytes = 8 << 20

// Synthesizer renders speech as mp3.
type Synthesizer struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
	logger *zap.Logger
}

var _ tts.Synthesizer = (*Synthesizer)(nil)

// New creates a synthesizer using client, which is shared with the
// OpenAI interpreter.
func New(client *openai.Client, cfg config.OpenAITTSConfig, logger *zap.Logger) *Synthesizer {
	model := openai.SpeechModel(cfg.Model)
	if model == "" {
		model = openai.TTSModel1
	}
	voice := openai.SpeechVoice(cfg.Voice)
	if voice == "" {
		voice = openai.VoiceAlloy
	}
	return &Synthesizer{client: client, model: model, voice: voice, logger: logger}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "openai" }

// Synthesize renders text. The OpenAI voices are multilingual, so
// opts.Language does not change the voice; opts.Voice overrides it.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty text for synthesis")
	}
	voice := s.voice
	if opts.Voice != "" {
		voice = openai.SpeechVoice(opts.Voice)
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(s.Name(), "speech", "error").Inc()
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(io.LimitReader(resp, maxClipBytes))
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(s.Name(), "speech", "error").Inc()
		return nil, fmt.Errorf("reading speech: %w", err)
	}
	metrics.BackendRequestsTotal.WithLabelValues(s.Name(), "speech", "success").Inc()

	s.logger.Debug("speech synthesized", zap.Int("bytes", len(audio)), zap.String("voice", string(voice)))
	return &tts.SynthesizeResult{Audio: audio, ContentType: "audio/mpeg"}, nil
}

// Close is a no-op.
func (s *Synthesizer) Close() error { return nil }
