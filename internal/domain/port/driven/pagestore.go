package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/rbdraft/internal/domain/model"
)

// FieldDisplayStore holds the rendered display value of each draft field of a
// review request, as produced by the field completion handlers.
type FieldDisplayStore interface {
	SetDisplay(ctx context.Context, reviewRequestID int, field model.FieldName, html string) error
	GetDisplay(ctx context.Context, reviewRequestID int, field model.FieldName) (string, error)
	// DraftDisplay returns the display values that gate publishing. Missing
	// fields read as empty strings.
	DraftDisplay(ctx context.Context, reviewRequestID int) (model.DraftDisplay, error)
	// ListDisplays returns every stored display value of the review request.
	ListDisplays(ctx context.Context, reviewRequestID int) (map[model.FieldName]string, error)
}

// FragmentSink receives fetched diff fragments for injection into their
// comment containers.
type FragmentSink interface {
	Inject(ctx context.Context, fragment model.Fragment) error
}

// InjectedFragment is the fragment HTML currently held by one comment
// container.
type InjectedFragment struct {
	ContainerID string
	Queue       string
	CommentID   string
	HTML        string
	InjectedAt  time.Time
}

// FragmentStore is a FragmentSink whose injected fragments can be read back.
type FragmentStore interface {
	FragmentSink
	ListFragments(ctx context.Context, queue string) ([]InjectedFragment, error)
}
