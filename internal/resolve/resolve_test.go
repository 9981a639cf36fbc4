package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/doctech/internal/message"
	"github.com/nadzzz/doctech/internal/search"
	"github.com/nadzzz/doctech/internal/search/searchtest"
)

func fixtureIndex() *searchtest.Index {
	return searchtest.NewIndex().
		Add("figure 3", search.Match{SourceURL: "https://files.example/doc_A.pdf", FileName: "doc_A.pdf", Pages: []int{7}}).
		Add("safety report", search.Match{SourceURL: "https://files.example/safety.pdf", FileName: "safety.pdf", Pages: []int{2}}).
		Add("cover art", search.Match{SourceURL: "https://files.example/doc_C.pdf", FileName: "doc_C.pdf"})
}

var navctx = message.NavigationContext{CurrentPage: 4}

func TestResolve_TagOnlyActions(t *testing.T) {
	index := fixtureIndex()
	r := New(index)

	for _, a := range []message.Action{
		message.ActionScrollUp, message.ActionScrollDown, message.ActionNextPage,
		message.ActionPreviousPage, message.ActionIndeterminate,
	} {
		res, err := r.Resolve(context.Background(), message.Plan{Action: a, Utterance: "x", Context: navctx})
		require.NoError(t, err)
		assert.Equal(t, a, res.Action)
		assert.Nil(t, res.Page)
		assert.Empty(t, res.Document)
		assert.Equal(t, navctx, res.Context)
	}
	assert.Empty(t, index.Queries())
}

func TestResolve_SnapPageNeverSearches(t *testing.T) {
	index := fixtureIndex()
	res, err := New(index).Resolve(context.Background(), message.Plan{
		Action:     message.ActionSnapPage,
		Parameters: message.PageParameters(12),
		Utterance:  "go to page 12",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Page)
	assert.Equal(t, 12, *res.Page)
	assert.Empty(t, res.Document)
	assert.Empty(t, index.Queries())
}

func TestResolve_SnapPageWithoutPage(t *testing.T) {
	_, err := New(fixtureIndex()).Resolve(context.Background(), message.Plan{Action: message.ActionSnapPage})
	assert.ErrorIs(t, err, message.ErrInvalidPlan)
}

func TestResolve_FindFigure(t *testing.T) {
	index := fixtureIndex()
	res, err := New(index).Resolve(context.Background(), message.Plan{
		Action:     message.ActionFindFigure,
		Parameters: &message.Parameters{FigureDescription: "figure 3"},
		Utterance:  "what does figure 3 look like",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/doc_A.pdf", res.Document)
	assert.Equal(t, "doc_A.pdf", res.DocumentName)
	require.NotNil(t, res.Page)
	assert.Equal(t, 7, *res.Page)
	assert.Equal(t, []string{"figure 3"}, index.Queries())
}

func TestResolve_FindFigureWithoutLocation(t *testing.T) {
	_, err := New(fixtureIndex()).Resolve(context.Background(), message.Plan{
		Action:     message.ActionFindFigure,
		Parameters: &message.Parameters{FigureDescription: "cover art"},
	})
	assert.ErrorIs(t, err, message.ErrNoMatch)
}

func TestResolve_FindDocument(t *testing.T) {
	res, err := New(fixtureIndex()).Resolve(context.Background(), message.Plan{
		Action:     message.ActionFindDocument,
		Parameters: &message.Parameters{DocumentDescription: "the safety report"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/safety.pdf", res.Document)
	assert.Nil(t, res.Page)
}

func TestResolve_NoMatch(t *testing.T) {
	_, err := New(fixtureIndex()).Resolve(context.Background(), message.Plan{
		Action:     message.ActionFindDocument,
		Parameters: &message.Parameters{DocumentDescription: "recipes"},
	})
	assert.ErrorIs(t, err, message.ErrNoMatch)
}

func TestResolve_GatewayFailure(t *testing.T) {
	index := fixtureIndex()
	index.Err = message.ErrSearchUnavailable
	_, err := New(index).Resolve(context.Background(), message.Plan{
		Action:     message.ActionFindFigure,
		Parameters: &message.Parameters{FigureDescription: "figure 3"},
	})
	assert.ErrorIs(t, err, message.ErrSearchUnavailable)
}

func TestResolve_Idempotent(t *testing.T) {
	r := New(fixtureIndex())
	plan := message.Plan{
		Action:     message.ActionFindFigure,
		Parameters: &message.Parameters{FigureDescription: "figure 3"},
		Utterance:  "show me figure 3",
		Context:    navctx,
	}
	first, err := r.Resolve(context.Background(), plan)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolve_UnknownAction(t *testing.T) {
	_, err := New(fixtureIndex()).Resolve(context.Background(), message.Plan{Action: "teleport"})
	assert.ErrorIs(t, err, message.ErrInvalidPlan)
}
