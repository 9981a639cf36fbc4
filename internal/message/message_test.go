package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_Valid(t *testing.T) {
	for _, a := range Actions {
		assert.True(t, a.Valid(), a)
	}
	assert.False(t, Action("find_pdf").Valid())
	assert.False(t, Action("").Valid())
}

func TestAction_NeedsSearch(t *testing.T) {
	assert.True(t, ActionFindFigure.NeedsSearch())
	assert.True(t, ActionFindDocument.NeedsSearch())
	assert.False(t, ActionSnapPage.NeedsSearch())
	assert.True(t, ActionSnapPage.NeedsParameters())
	assert.False(t, ActionScrollDown.NeedsParameters())
	assert.False(t, ActionIndeterminate.NeedsParameters())
}

func TestPlan_Validate(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		wantErr bool
	}{
		{"scroll", Plan{Action: ActionScrollUp}, false},
		{"unknown action", Plan{Action: "jump"}, true},
		{"snap without page", Plan{Action: ActionSnapPage, Parameters: &Parameters{}}, true},
		{"snap nil params", Plan{Action: ActionSnapPage}, true},
		{"snap zero page", Plan{Action: ActionSnapPage, Parameters: PageParameters(0)}, true},
		{"snap ok", Plan{Action: ActionSnapPage, Parameters: PageParameters(4)}, false},
		{"figure without anything", Plan{Action: ActionFindFigure}, true},
		{"figure with utterance", Plan{Action: ActionFindFigure, Utterance: "show the chart"}, false},
		{"document with description", Plan{
			Action:     ActionFindDocument,
			Parameters: &Parameters{DocumentDescription: "the safety manual"},
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidPlan)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPlan_SearchQuery(t *testing.T) {
	p := Plan{Action: ActionFindFigure, Parameters: &Parameters{
		FigureDescription:   "  figure 3 ",
		DocumentDescription: "ignored",
	}}
	assert.Equal(t, "figure 3", p.SearchQuery())

	p.Action = ActionSnapPage
	assert.Empty(t, p.SearchQuery())
}

func TestDecision_JSONIsAPlan(t *testing.T) {
	d := Decision{
		Plan: Plan{
			Action:     ActionSnapPage,
			Parameters: PageParameters(12),
			Utterance:  "go to page 12",
			Context:    NavigationContext{CurrentPage: 3},
		},
		ID:           "abc",
		Confirmation: "Jumping to page 12.",
	}
	data, err := json.Marshal(d)
	require.NoError(t, err)

	// A decision echoed verbatim must decode as a plan.
	var p Plan
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, d.Plan, p)
}

func TestNavigationContext_Normalize(t *testing.T) {
	assert.Equal(t, 1, NavigationContext{}.Normalize().CurrentPage)
	assert.Equal(t, 7, NavigationContext{CurrentPage: 7}.Normalize().CurrentPage)
	assert.Equal(t, "current page 2 of 9", NavigationContext{CurrentPage: 2, PageCount: 9}.String())
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("search figure: %w", ErrNoMatch)
	assert.Equal(t, KindNoMatch, KindOf(wrapped))
	assert.Equal(t, KindClassification, KindOf(fmt.Errorf("x: %w: %w", ErrClassification, errors.New("timeout"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))

	f := NewFailure(wrapped)
	assert.Equal(t, KindNoMatch, f.Kind)
	assert.Equal(t, "search figure: no match found", f.Message)
}

func TestResponseMode(t *testing.T) {
	assert.True(t, ResponseModeTextAudio.WantsText())
	assert.True(t, ResponseModeTextAudio.WantsAudio())
	assert.False(t, ResponseModeNone.WantsText())
	assert.False(t, ResponseModeText.WantsAudio())
	assert.True(t, ResponseModeAudio.WantsAudio())
}
