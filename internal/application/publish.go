package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ericfisherdev/rbdraft/internal/domain/model"
	"github.com/ericfisherdev/rbdraft/internal/domain/port/driven"
)

// PublishState is the state of a PublishCoordinator.
type PublishState int

const (
	PublishIdle PublishState = iota
	PublishPublishing
)

// String returns a human-readable name for the state.
func (s PublishState) String() string {
	switch s {
	case PublishIdle:
		return "idle"
	case PublishPublishing:
		return "publishing"
	default:
		return "unknown"
	}
}

// Publish precondition messages, checked in this order.
const (
	msgNeedsReviewer    = "There must be at least one reviewer or group before this review request can be published."
	msgNeedsSummary     = "The draft must have a summary."
	msgNeedsDescription = "The draft must have a description."
)

// FieldEditor is an external field editor holding unsaved changes. Save
// starts persisting the edit; the editor reports the outcome through the
// coordinator's OnFieldSaveSuccess or OnFieldSaveError.
type FieldEditor interface {
	Save(ctx context.Context)
}

// CheckPublishable validates the draft's display values. The first failing
// check wins.
func CheckPublishable(d model.DraftDisplay) error {
	switch {
	case strings.TrimSpace(d.TargetGroups) == "" && strings.TrimSpace(d.TargetPeople) == "":
		return &model.ValidationError{Message: msgNeedsReviewer}
	case strings.TrimSpace(d.Summary) == "":
		return &model.ValidationError{Message: msgNeedsSummary}
	case strings.TrimSpace(d.Description) == "":
		return &model.ValidationError{Message: msgNeedsDescription}
	}
	return nil
}

// PublishCoordinator gates publishing a review request draft on the
// completion of every pending field save. Only one publish attempt may be in
// flight; callers must keep the publish trigger disabled while Publishing.
type PublishCoordinator struct {
	mu      sync.Mutex
	state   PublishState
	pending int

	gateway  *RequestGateway
	displays driven.FieldDisplayStore
	alerter  driven.Alerter
	buttons  driven.Controls
	logger   *slog.Logger
}

// NewPublishCoordinator creates an idle coordinator. buttons are the draft
// banner controls disabled while the publish request is in flight.
func NewPublishCoordinator(
	gateway *RequestGateway,
	displays driven.FieldDisplayStore,
	alerter driven.Alerter,
	buttons driven.Controls,
	logger *slog.Logger,
) *PublishCoordinator {
	return &PublishCoordinator{
		gateway:  gateway,
		displays: displays,
		alerter:  alerter,
		buttons:  buttons,
		logger:   logger,
	}
}

// State returns the current state and pending save count.
func (c *PublishCoordinator) State() (PublishState, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.pending
}

// BeginPublish starts a publish attempt. With no dirty editors it publishes
// right away; otherwise it saves every editor and publishes once all of
// them have reported success.
func (c *PublishCoordinator) BeginPublish(ctx context.Context, dirty []FieldEditor) error {
	if len(dirty) == 0 {
		return c.publish(ctx)
	}

	c.mu.Lock()
	if c.state == PublishPublishing {
		c.logger.Warn("publish requested while a publish attempt is in flight", "pending", c.pending)
	}
	c.state = PublishPublishing
	c.pending = len(dirty)
	c.mu.Unlock()

	c.logger.Info("publish started", "review_request_id", c.gateway.Ref().ID, "pending_saves", len(dirty))

	for _, editor := range dirty {
		editor.Save(ctx)
	}
	return nil
}

// OnFieldSaveSuccess records one completed field save. The completion that
// brings the count to zero publishes. Outside a publish attempt it does nothing.
func (c *PublishCoordinator) OnFieldSaveSuccess(ctx context.Context) error {
	c.mu.Lock()
	if c.state != PublishPublishing {
		c.mu.Unlock()
		return nil
	}
	c.pending--
	fire := c.pending <= 0
	if fire {
		c.state = PublishIdle
		c.pending = 0
	}
	remaining := c.pending
	c.mu.Unlock()

	if !fire {
		c.logger.Debug("field save completed", "remaining", remaining)
		return nil
	}
	return c.publish(ctx)
}

// OnFieldSaveError aborts the current publish attempt. Fields that already
// saved stay saved; only the publish is abandoned.
func (c *PublishCoordinator) OnFieldSaveError() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != PublishPublishing {
		return
	}
	c.logger.Warn("publish aborted by field save failure", "pending", c.pending)
	c.state = PublishIdle
	c.pending = 0
}

// publish checks the publish preconditions and sends the publish request.
func (c *PublishCoordinator) publish(ctx context.Context) error {
	ref := c.gateway.Ref()

	display, err := c.displays.DraftDisplay(ctx, ref.ID)
	if err != nil {
		return fmt.Errorf("load draft display for review request %d: %w", ref.ID, err)
	}

	if err := CheckPublishable(display); err != nil {
		c.alerter.Alert(err.Error())
		return err
	}

	c.gateway.Call(ctx, CallOptions{
		Path:        "/publish/",
		Buttons:     c.buttons,
		ErrorPrefix: "Publishing the draft has failed due to a server error:",
	})
	return nil
}
