// Package application contains the page-session use cases: draft field
// saving, publish coordination, the shared comment dialog, review and reply
// drafts, and batched diff fragment loading.
package application

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ericfisherdev/rbdraft/internal/domain/model"
	"github.com/ericfisherdev/rbdraft/internal/domain/port/driven"
)

// Review draft actions accepted under /reviews/draft/<action>/.
const (
	ReviewActionSave    = "save"
	ReviewActionPublish = "publish"
	ReviewActionDelete  = "delete"
)

// CallOptions is the input to RequestGateway.Call. Path is relative to the
// review request. A nil Success navigates to the review request page.
type CallOptions struct {
	Method      string
	Path        string
	Data        map[string]string
	Buttons     driven.Controls
	ErrorPrefix string
	Success     func(driven.Payload)
	Error       func(*model.TransportError)
	Complete    func()
}

// RequestGateway builds request descriptors against a review request's
// resource tree and forwards them to the transport. It holds no mutable state.
type RequestGateway struct {
	ref       model.ReviewRequestRef
	transport driven.Transport
	navigator driven.Navigator
}

// NewRequestGateway creates a gateway for the given review request.
func NewRequestGateway(ref model.ReviewRequestRef, transport driven.Transport, navigator driven.Navigator) *RequestGateway {
	return &RequestGateway{
		ref:       ref,
		transport: transport,
		navigator: navigator,
	}
}

// Ref returns the review request the gateway targets.
func (g *RequestGateway) Ref() model.ReviewRequestRef {
	return g.ref
}

// BuildPath prefixes suffix with the review request's API path.
func (g *RequestGateway) BuildPath(suffix string) string {
	return g.ref.APIPath() + suffix
}

// Call issues exactly one request. Failures are reported by the transport's
// error banner and then the caller's Error callback; nothing is retried.
func (g *RequestGateway) Call(ctx context.Context, opts CallOptions) {
	method := opts.Method
	if method == "" {
		method = http.MethodPost
	}

	success := opts.Success
	if success == nil {
		page := g.ref.PagePath()
		success = func(driven.Payload) { g.navigator.Navigate(page) }
	}

	g.transport.Invoke(ctx, driven.Request{
		Method:      method,
		Path:        g.BuildPath(opts.Path),
		Data:        opts.Data,
		Buttons:     opts.Buttons,
		ErrorPrefix: opts.ErrorPrefix,
		Success:     success,
		Error:       opts.Error,
		Complete:    opts.Complete,
	})
}

// DraftFieldPath returns "/draft/set/<field>/".
func DraftFieldPath(field model.FieldName) string {
	return "/draft/set/" + string(field) + "/"
}

// ReviewDraftPath returns the path of the current user's in-progress review.
func ReviewDraftPath() string {
	return "/reviews/draft"
}

// ReviewDraftActionPath returns "/reviews/draft/<action>/".
func ReviewDraftActionPath(action string) string {
	return ReviewDraftPath() + "/" + action + "/"
}

// ReplyDraftPath returns "/reviews/<reviewID>/replies/draft/".
func ReplyDraftPath(reviewID int) string {
	return "/reviews/" + strconv.Itoa(reviewID) + "/replies/draft/"
}

// ReplyDraftActionPath returns "/reviews/<reviewID>/replies/draft/<action>/"
// for the save and discard actions.
func ReplyDraftActionPath(reviewID int, action string) string {
	return ReplyDraftPath(reviewID) + action + "/"
}
