package driven

import (
	"context"
	"encoding/json"

	"github.com/ericfisherdev/rbdraft/internal/domain/model"
)

// Payload is a parsed JSON API response body keyed by top-level field.
type Payload map[string]json.RawMessage

// Controls is a set of UI controls (buttons) that are disabled while a
// request is in flight.
type Controls interface {
	SetEnabled(enabled bool)
}

// Request describes one call against the review request resource tree.
type Request struct {
	Method      string            // Defaults to POST.
	Path        string            // Relative to the JSON API root, e.g. "/reviewrequests/42/publish/".
	Data        map[string]string // Form fields. May be nil.
	Buttons     Controls          // Optional. Disabled during flight.
	ErrorPrefix string            // Prefix for the error banner.

	Success  func(Payload)
	Error    func(*model.TransportError)
	Complete func()
}

// Transport is the driven port for the external HTTP-call wrapper. Invoke
// never blocks: the outcome is delivered through the request's callbacks.
// Implementations disable Buttons for the duration of the call, report
// failures to the error banner before calling Error, call Success with the
// parsed payload otherwise, and always call Complete last.
type Transport interface {
	Invoke(ctx context.Context, req Request)
}

// FragmentFetcher retrieves a rendered diff fragment batch. It blocks until
// the response body is read.
type FragmentFetcher interface {
	FetchFragment(ctx context.Context, target string) (string, error)
}
