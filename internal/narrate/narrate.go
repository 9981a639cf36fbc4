// Package narrate produces the short spoken confirmation for a decision.
package narrate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/nadzzz/doctech/internal/interpreter"
	"github.com/nadzzz/doctech/internal/message"
)

const systemPrompt = `You will be given a user's query, and the action a system decided to take based on that query.
Respond to the user verbally in the first person, informing them what action will be taken.
Be brief: one or two short sentences.
Only describe the action in the payload; never promise anything else.
If the action is non_determ, say that you could not tell what they wanted and ask them to rephrase.`

var schema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"response": {Type: jsonschema.String},
	},
	Required:             []string{"response"},
	AdditionalProperties: false,
}

// payload is what the model sees of the decision.
type payload struct {
	Action     message.Action            `json:"action"`
	Parameters *message.Parameters       `json:"parameters,omitempty"`
	Context    message.NavigationContext `json:"context"`
	Document   string                    `json:"document,omitempty"`
	Page       *int                      `json:"page,omitempty"`
}

// Narrator writes confirmations.
type Narrator struct {
	llm interpreter.StructuredCompleter
}

// New creates a narrator backed by llm.
func New(llm interpreter.StructuredCompleter) *Narrator {
	return &Narrator{llm: llm}
}

// Confirm describes plan to the user. resolution is optional; when present
// the confirmation may name the resolved document and page.
func (n *Narrator) Confirm(ctx context.Context, plan message.Plan, resolution *message.Resolution) (string, error) {
	p := payload{Action: plan.Action, Parameters: plan.Parameters, Context: plan.Context}
	if resolution != nil {
		p.Document = resolution.DocumentName
		if p.Document == "" {
			p.Document = resolution.Document
		}
		p.Page = resolution.Page
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding narration payload: %w: %w", message.ErrSynthesis, err)
	}

	var out struct {
		Response string `json:"response"`
	}
	err = n.llm.Complete(ctx, interpreter.StructuredRequest{
		Name:   "response",
		System: systemPrompt,
		Turns: []interpreter.Turn{
			{Role: interpreter.RoleUser, Content: plan.Utterance},
			{Role: interpreter.RoleAssistant, Content: string(data)},
		},
		Schema: schema,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("narrate: %w: %w", message.ErrSynthesis, err)
	}

	text := strings.TrimSpace(out.Response)
	if text == "" {
		return "", fmt.Errorf("empty confirmation: %w", message.ErrSynthesis)
	}
	return text, nil
}
