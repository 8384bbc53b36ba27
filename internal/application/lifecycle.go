package application

import (
	"context"

	"github.com/ericfisherdev/rbdraft/internal/domain/port/driven"
)

// LifecycleActions are the review request's draft and status actions. None
// of them send a body; all but Delete return to the review request page.
type LifecycleActions struct {
	gateway   *RequestGateway
	navigator driven.Navigator
	buttons   driven.Controls
}

// NewLifecycleActions creates the actions. buttons are the draft banner's.
func NewLifecycleActions(gateway *RequestGateway, navigator driven.Navigator, buttons driven.Controls) *LifecycleActions {
	return &LifecycleActions{gateway: gateway, navigator: navigator, buttons: buttons}
}

// DiscardDraft reverts the review request draft.
func (a *LifecycleActions) DiscardDraft(ctx context.Context) {
	a.call(ctx, "/draft/discard/", "Reverting the draft has failed due to a server error:", nil)
}

// CloseDiscarded closes the review request as discarded.
func (a *LifecycleActions) CloseDiscarded(ctx context.Context) {
	a.call(ctx, "/close/discarded/", "Discarding the review request has failed due to a server error:", nil)
}

// CloseSubmitted closes the review request as submitted.
func (a *LifecycleActions) CloseSubmitted(ctx context.Context) {
	a.call(ctx, "/close/submitted/", "Setting the review request as submitted has failed due to a server error:", nil)
}

// Reopen reopens a closed review request.
func (a *LifecycleActions) Reopen(ctx context.Context) {
	a.call(ctx, "/reopen/", "Reopening the review request has failed due to a server error:", nil)
}

// Delete permanently deletes the review request and goes to the site root.
// confirm holds the confirmation dialog's controls, disabled alongside the
// draft banner's.
func (a *LifecycleActions) Delete(ctx context.Context, confirm driven.Controls) {
	siteRoot := a.gateway.Ref().SiteRoot
	a.call(ctx, "/delete/", "Deleting the review request has failed due to a server error:", func(driven.Payload) {
		a.navigator.Navigate(siteRoot)
	}, confirm)
}

func (a *LifecycleActions) call(ctx context.Context, path, errorPrefix string, success func(driven.Payload), extra ...driven.Controls) {
	a.gateway.Call(ctx, CallOptions{
		Path:        path,
		Buttons:     JoinControls(append([]driven.Controls{a.buttons}, extra...)...),
		ErrorPrefix: errorPrefix,
		Success:     success,
	})
}

// JoinControls combines control sets into one. Nil sets are skipped; the
// result is nil when nothing remains.
func JoinControls(sets ...driven.Controls) driven.Controls {
	var joined controlGroup
	for _, s := range sets {
		if s != nil {
			joined = append(joined, s)
		}
	}
	switch len(joined) {
	case 0:
		return nil
	case 1:
		return joined[0]
	default:
		return joined
	}
}

type controlGroup []driven.Controls

func (g controlGroup) SetEnabled(enabled bool) {
	for _, c := range g {
		c.SetEnabled(enabled)
	}
}
