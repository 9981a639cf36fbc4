// Package resolve turns a validated plan into the concrete viewer target.
package resolve

import (
	"context"
	"fmt"

	"github.com/nadzzz/doctech/internal/message"
	"github.com/nadzzz/doctech/internal/search"
)

// Resolver dispatches each action to its handler. Only find_fig and
// find_doc reach the search gateway.
type Resolver struct {
	gateway  search.Gateway
	handlers map[message.Action]handler
}

type handler func(ctx context.Context, plan message.Plan) (*message.Resolution, error)

// New creates a resolver over gateway.
func New(gateway search.Gateway) *Resolver {
	r := &Resolver{gateway: gateway}
	r.handlers = map[message.Action]handler{
		message.ActionScrollUp:      tagOnly,
		message.ActionScrollDown:    tagOnly,
		message.ActionNextPage:      tagOnly,
		message.ActionPreviousPage:  tagOnly,
		message.ActionIndeterminate: tagOnly,
		message.ActionSnapPage:      snapPage,
		message.ActionFindFigure:    r.findFigure,
		message.ActionFindDocument:  r.findDocument,
	}
	return r
}

// Resolve executes plan. The plan must carry the parameters its action needs.
func (r *Resolver) Resolve(ctx context.Context, plan message.Plan) (*message.Resolution, error) {
	h, ok := r.handlers[plan.Action]
	if !ok {
		return nil, fmt.Errorf("unknown action %q: %w", plan.Action, message.ErrInvalidPlan)
	}
	return h(ctx, plan)
}

func base(plan message.Plan) *message.Resolution {
	return &message.Resolution{
		Action:    plan.Action,
		Utterance: plan.Utterance,
		Context:   plan.Context,
	}
}

func tagOnly(_ context.Context, plan message.Plan) (*message.Resolution, error) {
	return base(plan), nil
}

func snapPage(_ context.Context, plan message.Plan) (*message.Resolution, error) {
	if plan.Parameters == nil || plan.Parameters.Page == nil {
		return nil, fmt.Errorf("snap_page without target page: %w", message.ErrInvalidPlan)
	}
	res := base(plan)
	page := *plan.Parameters.Page
	res.Page = &page
	return res, nil
}

func (r *Resolver) findFigure(ctx context.Context, plan message.Plan) (*message.Resolution, error) {
	match, err := r.search(ctx, plan)
	if err != nil {
		return nil, err
	}
	page, ok := match.FirstPage()
	if !ok {
		return nil, fmt.Errorf("figure match in %s has no page location: %w", match.FileName, message.ErrNoMatch)
	}
	res := base(plan)
	res.Document = match.SourceURL
	res.DocumentName = match.FileName
	res.Page = &page
	return res, nil
}

func (r *Resolver) findDocument(ctx context.Context, plan message.Plan) (*message.Resolution, error) {
	match, err := r.search(ctx, plan)
	if err != nil {
		return nil, err
	}
	res := base(plan)
	res.Document = match.SourceURL
	res.DocumentName = match.FileName
	return res, nil
}

func (r *Resolver) search(ctx context.Context, plan message.Plan) (search.Match, error) {
	query := plan.SearchQuery()
	if query == "" {
		return search.Match{}, fmt.Errorf("%s without description: %w", plan.Action, message.ErrInvalidPlan)
	}
	match, err := r.gateway.Search(ctx, query)
	if err != nil {
		return search.Match{}, fmt.Errorf("%s %q: %w", plan.Action, query, err)
	}
	return match, nil
}
