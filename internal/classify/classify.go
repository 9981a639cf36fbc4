// Package classify maps a transcribed utterance to exactly one viewer action.
package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/nadzzz/doctech/internal/interpreter"
	"github.com/nadzzz/doctech/internal/message"
)

// Greeting primes the model with the assistant's opening question.
const Greeting = "my name is doc tech, what action would you like me to perform?"

// systemPrompt lists the categories and the tie-break rules. Blanket questions
// about content default to find_fig unless they are clearly about a whole
// document; this asymmetry is a product decision.
const systemPrompt = `Decide if the user wants one of the following actions performed:
- scroll_up: scroll up a small amount within one page of the pdf
- scroll_down: scroll down a small amount within one page of the pdf
- next_page: go to the next page of the pdf
- previous_page: go to the previous page of the pdf
- snap_page: snap to a specific page of a pdf
- find_fig: find a specific figure, table, image, or specific item
- find_doc: find a specific document
- non_determ: no valid action is discernable
These are mutually exclusive. Exactly one should be true, the rest should be false.
Note: snap_page can also go to a page relative to the current page (e.g. "go back two pages").
Note: blanket questions should default to find_fig, unless they are obviously about a document.
Note: if the request is off-topic or ambiguous, choose non_determ rather than guessing.`

// Schema has one required boolean per category.
var Schema = func() jsonschema.Definition {
	props := make(map[string]jsonschema.Definition, len(message.Actions))
	required := make([]string, 0, len(message.Actions))
	for _, a := range message.Actions {
		props[string(a)] = jsonschema.Definition{Type: jsonschema.Boolean}
		required = append(required, string(a))
	}
	return jsonschema.Definition{
		Type:                 jsonschema.Object,
		Properties:           props,
		Required:             required,
		AdditionalProperties: false,
	}
}()

// Classifier is the single-shot intent classifier.
type Classifier struct {
	llm interpreter.StructuredCompleter
}

// New creates a classifier backed by llm.
func New(llm interpreter.StructuredCompleter) *Classifier {
	return &Classifier{llm: llm}
}

// Classify returns the one action the utterance asks for.
// Backend failures and outputs with zero or several flags set are errors
// wrapping message.ErrClassification; there is no fallback category.
func (c *Classifier) Classify(ctx context.Context, utterance string) (message.Action, error) {
	if strings.TrimSpace(utterance) == "" {
		return "", fmt.Errorf("empty utterance: %w", message.ErrClassification)
	}

	var flags map[string]bool
	err := c.llm.Complete(ctx, interpreter.StructuredRequest{
		Name:   "action",
		System: systemPrompt,
		Turns: []interpreter.Turn{
			{Role: interpreter.RoleAssistant, Content: Greeting},
			{Role: interpreter.RoleUser, Content: utterance},
		},
		Schema: Schema,
	}, &flags)
	if err != nil {
		return "", fmt.Errorf("classify: %w: %w", message.ErrClassification, err)
	}

	return pick(flags)
}

// pick returns the single action whose flag is set.
func pick(flags map[string]bool) (message.Action, error) {
	var chosen []message.Action
	for _, a := range message.Actions {
		if flags[string(a)] {
			chosen = append(chosen, a)
		}
	}
	switch len(chosen) {
	case 1:
		return chosen[0], nil
	case 0:
		return "", fmt.Errorf("no action selected: %w", message.ErrClassification)
	default:
		return "", fmt.Errorf("%d actions selected %v: %w", len(chosen), chosen, message.ErrClassification)
	}
}
