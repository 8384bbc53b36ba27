package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/ericfisherdev/rbdraft/internal/domain/model"
	"github.com/ericfisherdev/rbdraft/internal/domain/port/driven"
)

// DraftFieldSaver persists individual review request draft fields and feeds
// the outcome into the publish coordinator.
type DraftFieldSaver struct {
	gateway     *RequestGateway
	formatter   *FieldFormatter
	displays    driven.FieldDisplayStore
	banners     driven.BannerPresenter
	coordinator *PublishCoordinator
	buttons     driven.Controls
	logger      *slog.Logger
}

// NewDraftFieldSaver creates a saver reporting to coordinator.
func NewDraftFieldSaver(
	gateway *RequestGateway,
	formatter *FieldFormatter,
	displays driven.FieldDisplayStore,
	banners driven.BannerPresenter,
	coordinator *PublishCoordinator,
	buttons driven.Controls,
	logger *slog.Logger,
) *DraftFieldSaver {
	return &DraftFieldSaver{
		gateway:     gateway,
		formatter:   formatter,
		displays:    displays,
		banners:     banners,
		coordinator: coordinator,
		buttons:     buttons,
		logger:      logger,
	}
}

// SetField saves one draft field. On success the field's display is
// refreshed through its completion handler and the draft banner is shown.
func (s *DraftFieldSaver) SetField(ctx context.Context, ev model.FieldEditEvent) {
	s.gateway.Call(ctx, CallOptions{
		Path:        DraftFieldPath(ev.Field),
		Data:        map[string]string{"value": ev.Value.Encode()},
		Buttons:     s.buttons,
		ErrorPrefix: "Saving the draft has failed due to a server error:",
		Success: func(rsp driven.Payload) {
			s.updateDisplay(ctx, ev, rsp)
			s.banners.ShowBanner(driven.BannerDraft, 0)

			if err := s.coordinator.OnFieldSaveSuccess(ctx); err != nil {
				s.logger.Info("publish not sent", "error", err)
			}
		},
		Error: func(*model.TransportError) {
			s.coordinator.OnFieldSaveError()
		},
	})
}

// SeedDisplays records the display values the page was rendered with, so
// publish preconditions see fields that were not edited in this session.
// Values are stored as given after sanitizing; no request is made.
func (s *DraftFieldSaver) SeedDisplays(ctx context.Context, displays map[model.FieldName]string) error {
	id := s.gateway.Ref().ID
	for _, field := range slices.Sorted(maps.Keys(displays)) {
		if field == "" {
			return errors.New("seed display: empty field name")
		}
		if err := s.displays.SetDisplay(ctx, id, field, s.formatter.Sanitize(displays[field])); err != nil {
			return fmt.Errorf("seed display of field %q: %w", field, err)
		}
	}
	s.logger.Debug("field displays seeded", "review_request_id", id, "fields", len(displays))
	return nil
}

// Editor returns a FieldEditor that saves ev when asked to.
func (s *DraftFieldSaver) Editor(ev model.FieldEditEvent) FieldEditor {
	return pendingFieldEdit{saver: s, event: ev}
}

func (s *DraftFieldSaver) updateDisplay(ctx context.Context, ev model.FieldEditEvent, rsp driven.Payload) {
	raw, ok := rsp[string(ev.Field)]
	if !ok {
		raw = submittedValueJSON(ev.Value)
	}

	display, err := s.formatter.Format(ev.Field, raw)
	if err != nil {
		s.logger.Warn("could not format field display, showing plain value", "field", ev.Field, "error", err)
		if display, err = s.formatter.FormatPlain(raw); err != nil {
			return
		}
	}

	if err := s.displays.SetDisplay(ctx, s.gateway.Ref().ID, ev.Field, display); err != nil {
		s.logger.Error("failed to store field display", "field", ev.Field, "error", err)
	}
}

// submittedValueJSON stands in for the canonical value when the server
// response does not echo the field.
func submittedValueJSON(v model.FieldValue) json.RawMessage {
	var data []byte
	if v.IsList {
		data, _ = json.Marshal(v.List)
	} else {
		data, _ = json.Marshal(v.Text)
	}
	return data
}

// pendingFieldEdit is a FieldEditor whose accepted value is already known.
type pendingFieldEdit struct {
	saver *DraftFieldSaver
	event model.FieldEditEvent
}

func (e pendingFieldEdit) Save(ctx context.Context) {
	e.saver.SetField(ctx, e.event)
}
