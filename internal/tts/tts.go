// Package tts defines the speech synthesis backends that voice the
// confirmation sentence.
package tts

import "context"

// SynthesizeOpts selects the voice.
type SynthesizeOpts struct {
	// Language is the ISO-639-1 code detected during transcription.
	Language string

	// Voice overrides language-based voice selection.
	Voice string
}

// SynthesizeResult is an encoded audio clip ready to be served as-is.
type SynthesizeResult struct {
	Audio []byte

	// ContentType is the MIME type of Audio (e.g. "audio/mpeg", "audio/wav").
	ContentType string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error)
	Name() string
	Close() error
}
