// Package dispatch runs the voice command pipeline.
//
// Decide turns speech or text into a plan (classification plus the cheap
// extraction step) and an optional spoken confirmation without touching the
// search index. Execute resolves a plan the caller echoes back. Splitting
// the two lets the confirmation play while the slower search runs.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nadzzz/doctech/internal/audio"
	"github.com/nadzzz/doctech/internal/classify"
	"github.com/nadzzz/doctech/internal/config"
	"github.com/nadzzz/doctech/internal/extract"
	"github.com/nadzzz/doctech/internal/interpreter"
	"github.com/nadzzz/doctech/internal/message"
	"github.com/nadzzz/doctech/internal/metrics"
	"github.com/nadzzz/doctech/internal/narrate"
	"github.com/nadzzz/doctech/internal/resolve"
	"github.com/nadzzz/doctech/internal/search"
	"github.com/nadzzz/doctech/internal/tts"
)

const defaultLanguage = "en"

// Dispatcher composes the pipeline stages. It holds no per-request state
// and is safe for concurrent use.
type Dispatcher struct {
	transcriber interpreter.Transcriber
	classifier  *classify.Classifier
	extractor   *extract.Extractor
	resolver    *resolve.Resolver
	narrator    *narrate.Narrator
	synthesizer tts.Synthesizer // nil if TTS is disabled
	clips       audio.Store

	callTimeout   time.Duration
	searchTimeout time.Duration
	logger        *zap.Logger
}

// New wires a dispatcher. synthesizer may be nil.
func New(
	interp interpreter.Interpreter,
	gateway search.Gateway,
	synthesizer tts.Synthesizer,
	clips audio.Store,
	cfg config.PipelineConfig,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		transcriber:   interp,
		classifier:    classify.New(interp),
		extractor:     extract.New(interp),
		resolver:      resolve.New(gateway),
		narrator:      narrate.New(interp),
		synthesizer:   synthesizer,
		clips:         clips,
		callTimeout:   cfg.CallTimeout,
		searchTimeout: cfg.SearchTimeout,
		logger:        logger,
	}
}

// resolveResponseMode determines the effective ResponseMode for a request.
// If the caller didn't specify one, the default depends on whether TTS is available.
func (d *Dispatcher) resolveResponseMode(mode message.ResponseMode) message.ResponseMode {
	switch mode {
	case message.ResponseModeNone, message.ResponseModeText,
		message.ResponseModeAudio, message.ResponseModeTextAudio:
		return mode
	default:
		if d.synthesizer != nil {
			return message.ResponseModeTextAudio
		}
		return message.ResponseModeText
	}
}

// stage runs fn under its own timeout and records its duration.
func (d *Dispatcher) stage(ctx context.Context, name string, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(name, metrics.Outcome(err)).Observe(time.Since(start).Seconds())
	return err
}

// Decide classifies the request and prepares its confirmation.
// Transcription, classification and extraction failures are terminal;
// narration and speech failures only drop the confirmation.
func (d *Dispatcher) Decide(ctx context.Context, req *message.DecideRequest) (*message.Decision, error) {
	start := time.Now()
	id := uuid.NewString()
	logger := d.logger.With(zap.String("request_id", id))

	mode := d.resolveResponseMode(req.ResponseMode)
	navctx := req.Context.Normalize()
	logger.Info("decide started", zap.String("response_mode", string(mode)), zap.Bool("audio", req.HasAudio()))

	utterance, language, err := d.utterance(ctx, req, logger)
	if err != nil {
		return nil, err
	}

	var action message.Action
	err = d.stage(ctx, "classify", d.callTimeout, func(ctx context.Context) error {
		action, err = d.classifier.Classify(ctx, utterance)
		return err
	})
	if err != nil {
		logger.Warn("classification failed", zap.Error(err))
		return nil, err
	}
	metrics.ActionsTotal.WithLabelValues(string(action)).Inc()

	var params *message.Parameters
	if action.NeedsParameters() {
		err = d.stage(ctx, "extract", d.callTimeout, func(ctx context.Context) error {
			params, err = d.extractor.For(ctx, action, utterance, navctx)
			return err
		})
		if err != nil {
			logger.Warn("extraction failed", zap.String("action", string(action)), zap.Error(err))
			return nil, err
		}
	}

	plan := message.Plan{
		Action:     action,
		Parameters: params,
		Utterance:  utterance,
		Context:    navctx,
	}

	confirmation, audioID := d.confirm(ctx, plan, mode, language, logger)

	logger.Info("decide complete",
		zap.String("action", string(action)),
		zap.Bool("confirmation", confirmation != ""),
		zap.Bool("audio", audioID != ""),
		zap.Duration("duration", time.Since(start)),
	)
	return &message.Decision{
		Plan:         plan,
		ID:           id,
		Language:     language,
		Confirmation: confirmation,
		AudioID:      audioID,
	}, nil
}

// utterance returns the transcript of the request audio, or its text.
func (d *Dispatcher) utterance(ctx context.Context, req *message.DecideRequest, logger *zap.Logger) (text, language string, err error) {
	if !req.HasAudio() {
		text = strings.TrimSpace(req.Text)
		if text == "" {
			return "", "", fmt.Errorf("request has no audio and no text: %w", message.ErrInvalidRequest)
		}
		return text, "", nil
	}

	logger.Debug("transcribing audio", zap.String("content_type", req.ContentType), zap.Int("bytes", len(req.Audio)))
	var res *interpreter.TranscribeResult
	err = d.stage(ctx, "transcribe", d.callTimeout, func(ctx context.Context) error {
		res, err = d.transcriber.Transcribe(ctx, req.Audio, req.ContentType, interpreter.TranscribeOpts{})
		return err
	})
	if err != nil {
		logger.Warn("transcription failed", zap.Error(err))
		return "", "", fmt.Errorf("%w: %w", message.ErrTranscription, err)
	}
	if strings.TrimSpace(res.Text) == "" {
		return "", "", fmt.Errorf("empty transcript: %w", message.ErrTranscription)
	}
	logger.Info("transcription complete", zap.Int("text_length", len(res.Text)), zap.String("language", res.Language))
	return res.Text, res.Language, nil
}

// confirm narrates plan and, when audio is wanted, stores the spoken clip.
// Both steps are best effort.
func (d *Dispatcher) confirm(
	ctx context.Context, plan message.Plan, mode message.ResponseMode, language string, logger *zap.Logger,
) (text, audioID string) {
	if !mode.WantsText() && !mode.WantsAudio() {
		return "", ""
	}

	var sentence string
	err := d.stage(ctx, "narrate", d.callTimeout, func(ctx context.Context) error {
		var err error
		sentence, err = d.narrator.Confirm(ctx, plan, nil)
		return err
	})
	if err != nil {
		logger.Warn("narration failed, continuing without confirmation", zap.Error(err))
		return "", ""
	}
	if mode.WantsText() {
		text = sentence
	}

	if !mode.WantsAudio() || d.synthesizer == nil {
		return text, ""
	}
	if language == "" {
		language = defaultLanguage
	}

	err = d.stage(ctx, "speak", d.callTimeout, func(ctx context.Context) error {
		res, err := d.synthesizer.Synthesize(ctx, sentence, tts.SynthesizeOpts{Language: language})
		if err != nil {
			return fmt.Errorf("%w: %w", message.ErrSynthesis, err)
		}
		audioID, err = d.clips.Put(ctx, audio.Clip{Data: res.Audio, ContentType: res.ContentType})
		return err
	})
	if err != nil {
		logger.Warn("speech synthesis failed, continuing without audio", zap.Error(err))
		return text, ""
	}
	logger.Debug("confirmation audio stored", zap.String("audio_id", audioID))
	return text, audioID
}

// Execute resolves a plan produced by Decide. The plan is trusted as a
// round-trip token but its shape is checked; a search action that arrives
// without its description is re-extracted from the utterance.
func (d *Dispatcher) Execute(ctx context.Context, plan message.Plan) (*message.Resolution, error) {
	start := time.Now()
	logger := d.logger.With(zap.String("action", string(plan.Action)))

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	plan.Context = plan.Context.Normalize()

	if plan.Action.NeedsSearch() && plan.SearchQuery() == "" {
		var params *message.Parameters
		err := d.stage(ctx, "extract", d.callTimeout, func(ctx context.Context) error {
			var err error
			params, err = d.extractor.For(ctx, plan.Action, plan.Utterance, plan.Context)
			return err
		})
		if err != nil {
			logger.Warn("extraction failed", zap.Error(err))
			return nil, err
		}
		plan.Parameters = params
	}

	var res *message.Resolution
	err := d.stage(ctx, "resolve", d.searchTimeout, func(ctx context.Context) error {
		var err error
		res, err = d.resolver.Resolve(ctx, plan)
		return err
	})
	if err != nil {
		if errors.Is(err, message.ErrNoMatch) {
			logger.Info("no match", zap.Error(err))
		} else {
			logger.Warn("resolution failed", zap.Error(err))
		}
		return nil, err
	}

	logger.Info("execute complete",
		zap.String("document", res.DocumentName),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// Ask runs decide and execute back to back for a text utterance.
// The confirmation is text only.
func (d *Dispatcher) Ask(ctx context.Context, utterance string, navctx message.NavigationContext) (*message.Answer, error) {
	decision, err := d.Decide(ctx, &message.DecideRequest{
		Text:         utterance,
		Context:      navctx,
		ResponseMode: message.ResponseModeText,
	})
	if err != nil {
		return nil, err
	}
	res, err := d.Execute(ctx, decision.Plan)
	if err != nil {
		return nil, err
	}
	return &message.Answer{Decision: decision, Resolution: res}, nil
}

// Audio returns a stored confirmation clip.
func (d *Dispatcher) Audio(ctx context.Context, id string) (*audio.Clip, error) {
	return d.clips.Get(ctx, id)
}
