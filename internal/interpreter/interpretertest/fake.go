// Package interpretertest provides an in-memory language backend for tests.
package interpretertest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nadzzz/doctech/internal/interpreter"
)

// Fake answers structured requests with canned JSON keyed by schema name.
// Replies are validated against the request schema, like the real backends.
type Fake struct {
	mu sync.Mutex

	// Replies maps schema name to the JSON content returned for it.
	Replies map[string]string

	// Errors maps schema name to a failure returned instead of a reply.
	Errors map[string]error

	// Transcript is returned by Transcribe; TranscribeErr fails it.
	Transcript    interpreter.TranscribeResult
	TranscribeErr error

	calls []interpreter.StructuredRequest
}

var _ interpreter.Interpreter = (*Fake)(nil)

// Name returns the backend identifier.
func (f *Fake) Name() string { return "fake" }

// Close is a no-op.
func (f *Fake) Close() error { return nil }

// Transcribe returns the configured transcript.
func (f *Fake) Transcribe(ctx context.Context, _ []byte, _ string, _ interpreter.TranscribeOpts) (*interpreter.TranscribeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.TranscribeErr != nil {
		return nil, f.TranscribeErr
	}
	res := f.Transcript
	return &res, nil
}

// Complete records the request and decodes the canned reply into out.
func (f *Fake) Complete(ctx context.Context, req interpreter.StructuredRequest, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	reply, ok := f.Replies[req.Name]
	failure := f.Errors[req.Name]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if failure != nil {
		return failure
	}
	if !ok {
		return errors.New("fake: no reply for " + req.Name)
	}
	schema := req.Schema
	if err := schema.Unmarshal(reply, out); err != nil {
		return fmt.Errorf("fake: %s reply: %w", req.Name, err)
	}
	return nil
}

// Calls returns the schema names requested so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.calls))
	for i, c := range f.calls {
		names[i] = c.Name
	}
	return names
}

// LastRequest returns the most recent request for name.
func (f *Fake) LastRequest(name string) (interpreter.StructuredRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Name == name {
			return f.calls[i], true
		}
	}
	return interpreter.StructuredRequest{}, false
}
