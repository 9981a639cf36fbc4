package message

import "errors"

var (
	// ErrTranscription signals that the audio could not be turned into text.
	ErrTranscription = errors.New("transcription failed")
	// ErrClassification signals that no single valid action could be determined.
	ErrClassification = errors.New("classification failed")
	// ErrExtraction signals that a required action parameter could not be determined.
	ErrExtraction = errors.New("parameter extraction failed")
	// ErrNoMatch signals that the search index returned nothing for the query.
	ErrNoMatch = errors.New("no match found")
	// ErrSearchUnavailable signals a search gateway failure or timeout.
	ErrSearchUnavailable = errors.New("search unavailable")
	// ErrSynthesis signals that the confirmation could not be narrated or spoken.
	ErrSynthesis = errors.New("synthesis failed")
	// ErrInvalidRequest signals a malformed decide request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidPlan signals a malformed plan echoed to execute.
	ErrInvalidPlan = errors.New("invalid plan")
)

// ErrorKind is the category reported to callers for a failed request.
type ErrorKind string

const (
	KindTranscription     ErrorKind = "transcription"
	KindClassification    ErrorKind = "classification"
	KindExtraction        ErrorKind = "extraction"
	KindNoMatch           ErrorKind = "no_match"
	KindSearchUnavailable ErrorKind = "search_unavailable"
	KindSynthesis         ErrorKind = "synthesis"
	KindInvalidRequest    ErrorKind = "invalid_request"
	KindInvalidPlan       ErrorKind = "invalid_plan"
	KindInternal          ErrorKind = "internal"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrTranscription, KindTranscription},
	{ErrClassification, KindClassification},
	{ErrExtraction, KindExtraction},
	{ErrNoMatch, KindNoMatch},
	{ErrSearchUnavailable, KindSearchUnavailable},
	{ErrSynthesis, KindSynthesis},
	{ErrInvalidRequest, KindInvalidRequest},
	{ErrInvalidPlan, KindInvalidPlan},
}

// KindOf maps err to its category. Unknown errors are internal.
func KindOf(err error) ErrorKind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// Failure is the structured error payload returned to callers.
type Failure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// NewFailure builds the caller-facing payload for err.
func NewFailure(err error) Failure {
	return Failure{Kind: KindOf(err), Message: err.Error()}
}
