// Package interpreter defines the interface for the language backends behind
// the pipeline: speech-to-text and schema-constrained ("structured output")
// completions.
//
// doctech ships with two backends: OpenAI (cloud) and Local (self-hosted via
// Ollama and a whisper server).
package interpreter

import (
	"context"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// TranscribeOpts controls transcription behavior.
type TranscribeOpts struct {
	// Language is the ISO-639-1 code (e.g., "en", "fr") to guide transcription.
	Language string

	// Prompt provides context to improve recognition of domain-specific terms.
	Prompt string

	// Model overrides the default transcription model.
	Model string
}

// TranscribeResult holds the output of speech-to-text.
type TranscribeResult struct {
	Text string

	// Language is the ISO-639-1 code detected by the backend (may be empty).
	Language string
}

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in the conversation sent to the model.
type Turn struct {
	Role    Role
	Content string
}

// StructuredRequest asks the model for a JSON value conforming to Schema.
type StructuredRequest struct {
	// Name identifies the schema (e.g., "action", "snap_page").
	Name string

	// System is the system prompt.
	System string

	// Turns is the conversation following the system prompt.
	Turns []Turn

	// Schema constrains the output. Backends without native schema support
	// embed it in the prompt and request a JSON object.
	Schema jsonschema.Definition
}

// Transcriber converts audio bytes to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, contentType string, opts TranscribeOpts) (*TranscribeResult, error)
}

// StructuredCompleter produces schema-constrained JSON and decodes it into out.
type StructuredCompleter interface {
	Complete(ctx context.Context, req StructuredRequest, out any) error
}

// Interpreter is the interface every language backend implements.
type Interpreter interface {
	Transcriber
	StructuredCompleter

	// Name returns the backend identifier (e.g., "openai", "local").
	Name() string

	// Close releases any resources held by the interpreter.
	Close() error
}
