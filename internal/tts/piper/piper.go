// Package piper implements tts.Synthesizer against a Piper server speaking
// the Wyoming protocol over TCP (port 10200 in the linuxserver/piper image).
package piper

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nadzzz/doctech/internal/config"
	"github.com/nadzzz/doctech/internal/metrics"
	"github.com/nadzzz/doctech/internal/tts"
)

const (
	dialTimeout    = 10 * time.Second
	defaultTimeout = 30 * time.Second
)

// voiceByLanguage is the built-in voice per ISO-639-1 code; config entries win.
var voiceByLanguage = map[string]string{
	"en": "en_US-lessac-medium",
	"fr": "fr_FR-siwis-medium",
	"es": "es_ES-mls_10246-low",
	"de": "de_DE-thorsten-medium",
	"it": "it_IT-riccardo-x_low",
	"pt": "pt_BR-faber-medium",
	"nl": "nl_NL-mls-medium",
}

const fallbackLanguage = "en"

// format describes the PCM stream announced by audio-start.
type format struct {
	rate, channels, width int
}

var defaultFormat = format{rate: 22050, channels: 1, width: 2}

// Synthesizer opens one connection per clip.
type Synthesizer struct {
	endpoint  string
	endpoints map[string]string
	voices    map[string]string
	logger    *zap.Logger
}

var _ tts.Synthesizer = (*Synthesizer)(nil)

// New creates a Piper synthesizer.
func New(cfg config.PiperConfig, logger *zap.Logger) *Synthesizer {
	s := &Synthesizer{
		endpoint:  hostPort(cfg.Endpoint),
		endpoints: make(map[string]string, len(cfg.Endpoints)),
		voices:    make(map[string]string, len(voiceByLanguage)+len(cfg.Voices)),
		logger:    logger,
	}
	for lang, ep := range cfg.Endpoints {
		s.endpoints[lang] = hostPort(ep)
	}
	for lang, v := range voiceByLanguage {
		s.voices[lang] = v
	}
	for lang, v := range cfg.Voices {
		s.voices[lang] = v
	}
	return s
}

func hostPort(ep string) string {
	for _, scheme := range []string{"tcp://", "http://"} {
		ep = strings.TrimPrefix(ep, scheme)
	}
	return ep
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "piper" }

// route picks the voice and server for a request.
func (s *Synthesizer) route(opts tts.SynthesizeOpts) (voice, endpoint string) {
	voice = opts.Voice
	if voice == "" {
		voice = s.voices[opts.Language]
	}
	if voice == "" {
		voice = s.voices[fallbackLanguage]
	}
	endpoint = s.endpoints[opts.Language]
	if endpoint == "" {
		endpoint = s.endpoint
	}
	return voice, endpoint
}

// Synthesize returns the spoken text as a WAV clip.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty text for synthesis")
	}
	voice, endpoint := s.route(opts)
	if endpoint == "" {
		return nil, fmt.Errorf("no piper endpoint for language %q", opts.Language)
	}

	res, err := s.synthesize(ctx, endpoint, voice, text)
	metrics.BackendRequestsTotal.WithLabelValues(s.Name(), "speech", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("piper %s: %w", endpoint, err)
	}
	return res, nil
}

func (s *Synthesizer) synthesize(ctx context.Context, endpoint, voice, text string) (*tts.SynthesizeResult, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultTimeout)
	}
	_ = conn.SetDeadline(deadline)

	req := event{Type: "synthesize", Data: map[string]any{
		"text":  text,
		"voice": map[string]any{"name": voice},
	}}
	if err := writeEvent(conn, req, nil); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}

	r := bufio.NewReader(conn)
	f := defaultFormat
	var pcm bytes.Buffer
	for {
		e, payload, err := readEvent(r)
		if err != nil {
			return nil, err
		}
		switch e.Type {
		case "audio-start":
			f = format{
				rate:     e.int("rate", defaultFormat.rate),
				channels: e.int("channels", defaultFormat.channels),
				width:    e.int("width", defaultFormat.width),
			}
		case "audio-chunk":
			pcm.Write(payload)
		case "audio-stop":
			s.logger.Debug("piper clip complete",
				zap.String("voice", voice),
				zap.Int("pcm_bytes", pcm.Len()),
				zap.Int("rate", f.rate),
			)
			return &tts.SynthesizeResult{Audio: encodeWAV(pcm.Bytes(), f), ContentType: "audio/wav"}, nil
		case "error":
			msg, _ := e.Data["text"].(string)
			return nil, fmt.Errorf("server error: %s", msg)
		default:
			s.logger.Debug("ignoring wyoming event", zap.String("type", e.Type))
		}
	}
}

// Close is a no-op; connections are per clip.
func (s *Synthesizer) Close() error { return nil }
