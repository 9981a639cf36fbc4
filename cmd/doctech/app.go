package main

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nadzzz/doctech/internal/audio"
	redisstore "github.com/nadzzz/doctech/internal/audio/redis"
	"github.com/nadzzz/doctech/internal/config"
	"github.com/nadzzz/doctech/internal/dispatch"
	"github.com/nadzzz/doctech/internal/health"
	"github.com/nadzzz/doctech/internal/interpreter"
	localinterp "github.com/nadzzz/doctech/internal/interpreter/local"
	openaiinterp "github.com/nadzzz/doctech/internal/interpreter/openai"
	"github.com/nadzzz/doctech/internal/search/groundx"
	"github.com/nadzzz/doctech/internal/tts"
	openaitts "github.com/nadzzz/doctech/internal/tts/openai"
	"github.com/nadzzz/doctech/internal/tts/piper"
)

// app holds the wired pipeline and everything that must be released with it.
type app struct {
	dispatcher *dispatch.Dispatcher
	checks     map[string]health.Check
	closers    []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// newApp builds the backends named in cfg and the dispatcher over them.
func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{checks: make(map[string]health.Check)}

	var interp interpreter.Interpreter
	switch cfg.Interpreter.Backend {
	case "openai":
		interp = openaiinterp.New(cfg.Interpreter.OpenAI, logger)
		logger.Info("using OpenAI interpreter",
			zap.String("transcription_model", cfg.Interpreter.OpenAI.TranscriptionModel),
			zap.String("completion_model", cfg.Interpreter.OpenAI.CompletionModel))
	case "local":
		interp = localinterp.New(cfg.Interpreter.Local, logger)
		logger.Info("using local interpreter",
			zap.String("whisper", cfg.Interpreter.Local.WhisperEndpoint),
			zap.String("llm", cfg.Interpreter.Local.LLMEndpoint))
	default:
		return nil, fmt.Errorf("unknown interpreter backend %q", cfg.Interpreter.Backend)
	}
	a.closers = append(a.closers, interp.Close)

	gateway := groundx.New(cfg.Search.GroundX, cfg.Search.Breaker, logger)
	logger.Info("using GroundX search", zap.Int("bucket_id", cfg.Search.GroundX.BucketID))

	var synthesizer tts.Synthesizer
	if cfg.TTS.Enabled {
		switch cfg.TTS.Backend {
		case "openai":
			synthesizer = openaitts.New(openaiinterp.NewClient(cfg.Interpreter.OpenAI), cfg.TTS.OpenAI, logger)
		case "piper":
			synthesizer = piper.New(cfg.TTS.Piper, logger)
		default:
			return nil, fmt.Errorf("unknown tts backend %q", cfg.TTS.Backend)
		}
		a.closers = append(a.closers, synthesizer.Close)
		logger.Info("text-to-speech enabled", zap.String("backend", synthesizer.Name()))
	}

	var clips audio.Store
	switch cfg.Audio.Store {
	case "memory":
		clips = audio.NewMemoryStore(cfg.Audio.TTL)
	case "redis":
		store := redisstore.New(cfg.Audio.Redis, redisstore.WithTTL(cfg.Audio.TTL))
		a.checks["redis"] = store.Ping
		a.closers = append(a.closers, store.Close)
		clips = store
	default:
		return nil, fmt.Errorf("unknown audio store %q", cfg.Audio.Store)
	}
	logger.Info("audio store ready", zap.String("store", cfg.Audio.Store), zap.Duration("ttl", cfg.Audio.TTL))

	a.dispatcher = dispatch.New(interp, gateway, synthesizer, clips, cfg.Pipeline, logger)
	return a, nil
}
