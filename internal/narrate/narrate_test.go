package narrate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/doctech/internal/interpreter"
	"github.com/nadzzz/doctech/internal/interpreter/interpretertest"
	"github.com/nadzzz/doctech/internal/message"
)

func TestConfirm(t *testing.T) {
	fake := &interpretertest.Fake{Replies: map[string]string{
		"response": `{"response":" I'll find figure 3 for you. "}`,
	}}
	plan := message.Plan{
		Action:     message.ActionFindFigure,
		Parameters: &message.Parameters{FigureDescription: "figure 3"},
		Utterance:  "what does figure 3 look like",
		Context:    message.NavigationContext{CurrentPage: 2},
	}

	text, err := New(fake).Confirm(context.Background(), plan, nil)
	require.NoError(t, err)
	assert.Equal(t, "I'll find figure 3 for you.", text)

	req, ok := fake.LastRequest("response")
	require.True(t, ok)
	require.Len(t, req.Turns, 2)
	assert.Equal(t, interpreter.RoleUser, req.Turns[0].Role)
	assert.Equal(t, plan.Utterance, req.Turns[0].Content)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Turns[1].Content), &sent))
	assert.Equal(t, "find_fig", sent["action"])
	assert.NotContains(t, sent, "page")
}

func TestConfirm_IncludesResolution(t *testing.T) {
	fake := &interpretertest.Fake{Replies: map[string]string{"response": `{"response":"Opening doc_A.pdf on page 7."}`}}
	page := 7
	_, err := New(fake).Confirm(context.Background(),
		message.Plan{Action: message.ActionFindFigure, Utterance: "figure 3"},
		&message.Resolution{Action: message.ActionFindFigure, Document: "https://x/doc_A.pdf", DocumentName: "doc_A.pdf", Page: &page})
	require.NoError(t, err)

	req, _ := fake.LastRequest("response")
	assert.Contains(t, req.Turns[1].Content, `"document":"doc_A.pdf"`)
	assert.Contains(t, req.Turns[1].Content, `"page":7`)
}

func TestConfirm_Failures(t *testing.T) {
	tests := map[string]*interpretertest.Fake{
		"backend error": {Errors: map[string]error{"response": errors.New("503")}},
		"blank text":    {Replies: map[string]string{"response": `{"response":""}`}},
		"bad shape":     {Replies: map[string]string{"response": `{"text":"hi"}`}},
	}
	for name, fake := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New(fake).Confirm(context.Background(), message.Plan{Action: message.ActionNextPage, Utterance: "next"}, nil)
			assert.ErrorIs(t, err, message.ErrSynthesis)
		})
	}
}
