// Package extract pulls the payload an action needs out of the utterance:
// a target page for snap_page and a search description for find_fig and
// find_doc.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/nadzzz/doctech/internal/interpreter"
	"github.com/nadzzz/doctech/internal/message"
)

const (
	pageKindAbsolute = "absolute"
	pageKindRelative = "relative"
	pageKindUnknown  = "unknown"
)

const snapPagePrompt = `Parse out the specific page of the pdf the user wants to snap to.
Use kind "absolute" when the user names a page number; value is that page.
Use kind "relative" when the user moves relative to the current page; value is
the signed offset (e.g. "go back two pages" is -2, "skip ahead three pages" is 3).
Use kind "unknown" with value 0 when no page can be determined.`

const figurePrompt = `The user wants to find a figure, table, image or other specific item.
Extract a short description of the item the user needs, suitable as a search query.`

const documentPrompt = `The user wants to find a document.
Extract a short description of the document the user needs, suitable as a search query.`

var pageSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"kind": {
			Type: jsonschema.String,
			Enum: []string{pageKindAbsolute, pageKindRelative, pageKindUnknown},
		},
		"value": {Type: jsonschema.Integer},
	},
	Required:             []string{"kind", "value"},
	AdditionalProperties: false,
}

func descriptionSchema(field string) jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			field: {Type: jsonschema.String},
		},
		Required:             []string{field},
		AdditionalProperties: false,
	}
}

var (
	figureSchema   = descriptionSchema("figure_description")
	documentSchema = descriptionSchema("doc_description")
)

// Extractor runs the category-specific extraction calls.
type Extractor struct {
	llm interpreter.StructuredCompleter
}

// New creates an extractor backed by llm.
func New(llm interpreter.StructuredCompleter) *Extractor {
	return &Extractor{llm: llm}
}

// For runs the extractor matching action. Actions without parameters
// return nil and make no backend call.
func (e *Extractor) For(ctx context.Context, action message.Action, utterance string, navctx message.NavigationContext) (*message.Parameters, error) {
	switch action {
	case message.ActionSnapPage:
		page, err := e.SnapPage(ctx, utterance, navctx)
		if err != nil {
			return nil, err
		}
		return message.PageParameters(page), nil
	case message.ActionFindFigure:
		desc, err := e.FigureDescription(ctx, utterance)
		if err != nil {
			return nil, err
		}
		return &message.Parameters{FigureDescription: desc}, nil
	case message.ActionFindDocument:
		desc, err := e.DocumentDescription(ctx, utterance)
		if err != nil {
			return nil, err
		}
		return &message.Parameters{DocumentDescription: desc}, nil
	default:
		return nil, nil
	}
}

// SnapPage returns the 1-based page the user wants to jump to.
func (e *Extractor) SnapPage(ctx context.Context, utterance string, navctx message.NavigationContext) (int, error) {
	navctx = navctx.Normalize()

	var out struct {
		Kind  string `json:"kind"`
		Value int    `json:"value"`
	}
	err := e.llm.Complete(ctx, interpreter.StructuredRequest{
		Name:   "snap_page",
		System: snapPagePrompt,
		Turns: []interpreter.Turn{
			{Role: interpreter.RoleAssistant, Content: "my name is doc tech, what page would you like to snap to. Current state: " + navctx.String()},
			{Role: interpreter.RoleUser, Content: utterance},
		},
		Schema: pageSchema,
	}, &out)
	if err != nil {
		return 0, fmt.Errorf("snap page: %w: %w", message.ErrExtraction, err)
	}

	var target int
	switch out.Kind {
	case pageKindAbsolute:
		target = out.Value
	case pageKindRelative:
		target = navctx.CurrentPage + out.Value
	default:
		return 0, fmt.Errorf("snap page: no page in %q: %w", utterance, message.ErrExtraction)
	}

	if target < 1 {
		return 0, fmt.Errorf("snap page: target %d before first page: %w", target, message.ErrExtraction)
	}
	if navctx.PageCount > 0 && target > navctx.PageCount {
		return 0, fmt.Errorf("snap page: target %d beyond last page %d: %w", target, navctx.PageCount, message.ErrExtraction)
	}
	return target, nil
}

// FigureDescription returns a search description of the wanted figure.
func (e *Extractor) FigureDescription(ctx context.Context, utterance string) (string, error) {
	var out struct {
		Description string `json:"figure_description"`
	}
	if err := e.describe(ctx, "figure_description", figurePrompt, figureSchema, utterance, &out); err != nil {
		return "", err
	}
	return nonBlank("figure", out.Description)
}

// DocumentDescription returns a search description of the wanted document.
func (e *Extractor) DocumentDescription(ctx context.Context, utterance string) (string, error) {
	var out struct {
		Description string `json:"doc_description"`
	}
	if err := e.describe(ctx, "doc_description", documentPrompt, documentSchema, utterance, &out); err != nil {
		return "", err
	}
	return nonBlank("document", out.Description)
}

func (e *Extractor) describe(ctx context.Context, name, system string, schema jsonschema.Definition, utterance string, out any) error {
	err := e.llm.Complete(ctx, interpreter.StructuredRequest{
		Name:   name,
		System: system,
		Turns:  []interpreter.Turn{{Role: interpreter.RoleUser, Content: utterance}},
		Schema: schema,
	}, out)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", name, message.ErrExtraction, err)
	}
	return nil
}

func nonBlank(what, desc string) (string, error) {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return "", fmt.Errorf("empty %s description: %w", what, message.ErrExtraction)
	}
	return desc, nil
}
