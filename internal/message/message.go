// Package message defines the core data types flowing through the doctech pipeline.
package message

import (
	"fmt"
	"strings"
)

// Action is the single navigation or search category chosen for an utterance.
// Exactly one Action is active per classification.
type Action string

const (
	ActionScrollUp      Action = "scroll_up"
	ActionScrollDown    Action = "scroll_down"
	ActionNextPage      Action = "next_page"
	ActionPreviousPage  Action = "previous_page"
	ActionSnapPage      Action = "snap_page"
	ActionFindFigure    Action = "find_fig"
	ActionFindDocument  Action = "find_doc"
	ActionIndeterminate Action = "non_determ"
)

// Actions lists every category in classification order.
var Actions = []Action{
	ActionScrollUp,
	ActionScrollDown,
	ActionNextPage,
	ActionPreviousPage,
	ActionSnapPage,
	ActionFindFigure,
	ActionFindDocument,
	ActionIndeterminate,
}

// Valid reports whether a is one of the known categories.
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// NeedsSearch reports whether resolving a requires a search gateway call.
func (a Action) NeedsSearch() bool {
	return a == ActionFindFigure || a == ActionFindDocument
}

// NeedsParameters reports whether a has a follow-up extraction step.
func (a Action) NeedsParameters() bool {
	return a == ActionSnapPage || a.NeedsSearch()
}

// ResponseMode controls what natural-language output the caller wants.
// The caller declares desired output in the request body, and the server
// populates or omits response fields accordingly.
type ResponseMode string

const (
	// ResponseModeNone suppresses all natural-language output.
	ResponseModeNone ResponseMode = "none"

	// ResponseModeText returns a confirmation sentence only.
	ResponseModeText ResponseMode = "text"

	// ResponseModeAudio returns synthesized speech only (no text).
	ResponseModeAudio ResponseMode = "audio"

	// ResponseModeTextAudio returns both text and synthesized speech.
	ResponseModeTextAudio ResponseMode = "text+audio"
)

// WantsText returns true if the response mode includes text output.
func (m ResponseMode) WantsText() bool {
	return m == ResponseModeText || m == ResponseModeTextAudio
}

// WantsAudio returns true if the response mode includes audio output.
func (m ResponseMode) WantsAudio() bool {
	return m == ResponseModeAudio || m == ResponseModeTextAudio
}

// NavigationContext is the viewer state supplied by the caller.
// It is read by page extraction and never modified by the pipeline.
type NavigationContext struct {
	// CurrentPage is the 1-based page currently displayed.
	CurrentPage int `json:"current_page"`

	// PageCount is the number of pages in the open document (0 if unknown).
	PageCount int `json:"page_count,omitempty"`
}

// Normalize returns a copy with CurrentPage defaulted to 1.
func (c NavigationContext) Normalize() NavigationContext {
	if c.CurrentPage < 1 {
		c.CurrentPage = 1
	}
	if c.PageCount < 0 {
		c.PageCount = 0
	}
	return c
}

// String renders the context for prompts.
func (c NavigationContext) String() string {
	if c.PageCount > 0 {
		return fmt.Sprintf("current page %d of %d", c.CurrentPage, c.PageCount)
	}
	return fmt.Sprintf("current page %d", c.CurrentPage)
}

// Parameters holds the payload extracted for actions that need one.
type Parameters struct {
	// Page is the target page for snap_page.
	Page *int `json:"page,omitempty"`

	// FigureDescription describes the figure, table or image for find_fig.
	FigureDescription string `json:"figure_description,omitempty"`

	// DocumentDescription describes the wanted document for find_doc.
	DocumentDescription string `json:"document_description,omitempty"`
}

// PageParameters returns parameters for snap_page.
func PageParameters(page int) *Parameters {
	return &Parameters{Page: &page}
}

// Plan is the decision a caller echoes back to trigger execution.
type Plan struct {
	Action     Action            `json:"action"`
	Parameters *Parameters       `json:"parameters,omitempty"`
	Utterance  string            `json:"utterance"`
	Context    NavigationContext `json:"context"`
}

// Validate checks the structural shape of an echoed plan.
func (p Plan) Validate() error {
	if !p.Action.Valid() {
		return fmt.Errorf("unknown action %q: %w", p.Action, ErrInvalidPlan)
	}
	if p.Action == ActionSnapPage {
		if p.Parameters == nil || p.Parameters.Page == nil {
			return fmt.Errorf("snap_page without target page: %w", ErrInvalidPlan)
		}
		if *p.Parameters.Page < 1 {
			return fmt.Errorf("snap_page target %d out of range: %w", *p.Parameters.Page, ErrInvalidPlan)
		}
	}
	if p.Action.NeedsSearch() && strings.TrimSpace(p.Utterance) == "" && p.SearchQuery() == "" {
		return fmt.Errorf("%s without utterance or description: %w", p.Action, ErrInvalidPlan)
	}
	return nil
}

// SearchQuery returns the extracted description used to query the index,
// or "" if the plan carries none.
func (p Plan) SearchQuery() string {
	if p.Parameters == nil {
		return ""
	}
	switch p.Action {
	case ActionFindFigure:
		return strings.TrimSpace(p.Parameters.FigureDescription)
	case ActionFindDocument:
		return strings.TrimSpace(p.Parameters.DocumentDescription)
	default:
		return ""
	}
}

// Decision is the outcome of the decide step: the plan plus its narration.
type Decision struct {
	Plan

	// ID is a unique identifier for this decision (UUID).
	ID string `json:"id"`

	// Language is the ISO-639-1 code detected during transcription.
	Language string `json:"language,omitempty"`

	// Confirmation is a short first-person sentence describing the action.
	// Empty when narration was not requested or failed.
	Confirmation string `json:"confirmation,omitempty"`

	// AudioID identifies the stored spoken confirmation, if one was produced.
	AudioID string `json:"audio_id,omitempty"`
}

// Resolution is the final output of the execute step.
type Resolution struct {
	Action Action `json:"action"`

	// Document is the source reference (URL) of the matched document.
	Document string `json:"document,omitempty"`

	// DocumentName is the human-readable file name of the matched document.
	DocumentName string `json:"document_name,omitempty"`

	// Page is the 1-based page to display.
	Page *int `json:"page,omitempty"`

	Utterance string            `json:"utterance"`
	Context   NavigationContext `json:"context"`
}

// NoAction reports whether the resolution asks the viewer to do nothing.
func (r *Resolution) NoAction() bool {
	return r.Action == ActionIndeterminate
}

// Answer pairs a decision with its resolution for the one-shot query path.
type Answer struct {
	Decision   *Decision   `json:"decision"`
	Resolution *Resolution `json:"resolution"`
}

// DecideRequest is an incoming voice or text command.
type DecideRequest struct {
	// Audio is the raw audio payload. Nil if the request is text-only.
	Audio []byte `json:"audio,omitempty"`

	// ContentType is the MIME type of the audio (e.g., "audio/ogg").
	ContentType string `json:"content_type,omitempty"`

	// Text is an optional pre-transcribed utterance (bypasses transcription).
	Text string `json:"text,omitempty"`

	Context NavigationContext `json:"context"`

	// ResponseMode controls narration and speech output:
	//   "none"      : decision only
	//   "text"      : confirmation sentence only
	//   "audio"     : spoken confirmation only
	//   "text+audio": both
	// Defaults to "text" when TTS is disabled, "text+audio" when TTS is enabled.
	ResponseMode ResponseMode `json:"response_mode,omitempty"`
}

// HasAudio returns true if the request contains an audio payload.
func (r *DecideRequest) HasAudio() bool {
	return len(r.Audio) > 0
}
