package httphandler

import (
	"net/http"

	"github.com/ericfisherdev/rbdraft/internal/application"
	"github.com/ericfisherdev/rbdraft/internal/domain/model"
)

// SeedFields records the field displays the page was loaded with.
func (h *Handler) SeedFields(w http.ResponseWriter, r *http.Request) {
	var req SeedFieldsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Fields) == 0 {
		writeError(w, http.StatusBadRequest, "fields is required")
		return
	}

	displays := make(map[model.FieldName]string, len(req.Fields))
	for field, html := range req.Fields {
		if field == "" {
			writeError(w, http.StatusBadRequest, "field names must not be empty")
			return
		}
		displays[model.FieldName(field)] = html
	}

	if err := h.session.Fields.SeedDisplays(r.Context(), displays); err != nil {
		h.writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetField saves one draft field.
func (h *Handler) SetField(w http.ResponseWriter, r *http.Request) {
	var req FieldValueRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ev, ok := req.event(model.FieldName(r.PathValue("field")))
	if !ok {
		writeError(w, http.StatusBadRequest, "value or values is required")
		return
	}

	h.session.Fields.SetField(detach(r), ev)
	accepted(w)
}

// Publish saves the listed dirty fields and publishes the draft once all of
// them have been saved.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	editors := make([]application.FieldEditor, 0, len(req.Dirty))
	for _, d := range req.Dirty {
		ev, ok := d.event(model.FieldName(d.Field))
		if !ok || d.Field == "" {
			writeError(w, http.StatusBadRequest, "every dirty field needs a field name and a value")
			return
		}
		editors = append(editors, h.session.Fields.Editor(ev))
	}

	if err := h.session.Publisher.BeginPublish(detach(r), editors); err != nil {
		h.writeAppError(w, err)
		return
	}
	accepted(w)
}

// DiscardDraft reverts the review request draft.
func (h *Handler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	h.session.Lifecycle.DiscardDraft(detach(r))
	accepted(w)
}

// CloseDiscarded closes the review request as discarded.
func (h *Handler) CloseDiscarded(w http.ResponseWriter, r *http.Request) {
	h.session.Lifecycle.CloseDiscarded(detach(r))
	accepted(w)
}

// CloseSubmitted closes the review request as submitted.
func (h *Handler) CloseSubmitted(w http.ResponseWriter, r *http.Request) {
	h.session.Lifecycle.CloseSubmitted(detach(r))
	accepted(w)
}

// Reopen reopens the review request.
func (h *Handler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.session.Lifecycle.Reopen(detach(r))
	accepted(w)
}

// Delete permanently deletes the review request.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	h.session.Lifecycle.Delete(detach(r), h.page.Controls(ControlsDeleteConfirm))
	accepted(w)
}
