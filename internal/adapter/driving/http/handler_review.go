package httphandler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ericfisherdev/rbdraft/internal/application"
)

// AddReviewEditor registers a comment editor of the review form.
func (h *Handler) AddReviewEditor(w http.ResponseWriter, r *http.Request) {
	var req ReviewEditorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" || !strings.HasPrefix(req.Path, "/") {
		writeError(w, http.StatusBadRequest, "id and an absolute path are required")
		return
	}

	h.session.AddReviewEditor(req.ID, req.Path, req.TextKey, req.Text)
	writeJSON(w, http.StatusCreated, ReviewEditorResponse{ID: req.ID, Dirty: false})
}

// SetReviewEditor updates the text of a review form comment editor.
func (h *Handler) SetReviewEditor(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := r.PathValue("id")
	editor, ok := h.session.ReviewEditor(id)
	if !ok {
		writeError(w, http.StatusNotFound, "review editor not found")
		return
	}

	editor.SetValue(req.Value)
	writeJSON(w, http.StatusOK, ReviewEditorResponse{ID: id, Dirty: editor.Dirty()})
}

// SaveReview saves dirty review comments, then saves or publishes the review.
func (h *Handler) SaveReview(w http.ResponseWriter, r *http.Request) {
	var req SaveReviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	body := application.ReviewBody{
		ShipIt:     req.ShipIt,
		BodyTop:    req.BodyTop,
		BodyBottom: req.BodyBottom,
	}
	h.session.ReviewForm.Save(detach(r), req.Publish, body, h.session.ReviewEditors())
	accepted(w)
}

// DiscardReview deletes the review draft from the review form.
func (h *Handler) DiscardReview(w http.ResponseWriter, r *http.Request) {
	h.session.ReviewForm.Discard(detach(r))
	accepted(w)
}

// PublishReviewDraft publishes the review draft from the review banner.
func (h *Handler) PublishReviewDraft(w http.ResponseWriter, r *http.Request) {
	h.session.ReviewForm.PublishReviewDraft(detach(r))
	accepted(w)
}

// DiscardReviewDraft deletes the review draft from the review banner.
func (h *Handler) DiscardReviewDraft(w http.ResponseWriter, r *http.Request) {
	h.session.ReviewForm.DiscardReviewDraft(detach(r))
	accepted(w)
}

// InitReplySection registers a reply section with the drafts already on the
// page. It has no effect on a section that already exists.
func (h *Handler) InitReplySection(w http.ResponseWriter, r *http.Request) {
	var req ReplySectionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	drafts := make([]application.ReplyDraft, 0, len(req.Drafts))
	for _, d := range req.Drafts {
		drafts = append(drafts, application.ReplyDraft{EditorID: d.EditorID, Text: d.Text})
	}

	section, ok := h.replySection(w, r, drafts)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toReplySectionResponse(section.State()))
}

// GetReplySection returns the state of a reply section.
func (h *Handler) GetReplySection(w http.ResponseWriter, r *http.Request) {
	section, ok := h.replySection(w, r, nil)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toReplySectionResponse(section.State()))
}

// AddReply opens a new reply editor.
func (h *Handler) AddReply(w http.ResponseWriter, r *http.Request) {
	section, ok := h.replySection(w, r, nil)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ReplyEditorResponse{EditorID: section.AddComment()})
}

// SaveReply saves the text of a reply editor.
func (h *Handler) SaveReply(w http.ResponseWriter, r *http.Request) {
	var req ReplyRequest
	if err := decodeBody(r, &req); err != nil || req.EditorID == "" {
		writeError(w, http.StatusBadRequest, "editor_id is required")
		return
	}

	section, ok := h.replySection(w, r, nil)
	if !ok {
		return
	}
	section.SaveReply(detach(r), req.EditorID, req.Value)
	accepted(w)
}

// CancelReply closes a reply editor.
func (h *Handler) CancelReply(w http.ResponseWriter, r *http.Request) {
	var req ReplyRequest
	if err := decodeBody(r, &req); err != nil || req.EditorID == "" {
		writeError(w, http.StatusBadRequest, "editor_id is required")
		return
	}

	section, ok := h.replySection(w, r, nil)
	if !ok {
		return
	}
	section.CancelReply(req.EditorID)
	writeJSON(w, http.StatusOK, toReplySectionResponse(section.State()))
}

// PublishReplies publishes the review's reply draft.
func (h *Handler) PublishReplies(w http.ResponseWriter, r *http.Request) {
	section, ok := h.replySection(w, r, nil)
	if !ok {
		return
	}
	section.PublishReplies(detach(r))
	accepted(w)
}

// DiscardReplies discards the review's reply draft.
func (h *Handler) DiscardReplies(w http.ResponseWriter, r *http.Request) {
	section, ok := h.replySection(w, r, nil)
	if !ok {
		return
	}
	section.DiscardReplies(detach(r))
	accepted(w)
}

// replySection resolves the reply section named by the request path. It
// writes a 400 and returns false when the review ID is invalid.
func (h *Handler) replySection(w http.ResponseWriter, r *http.Request, drafts []application.ReplyDraft) (*application.ReplySection, bool) {
	reviewID, err := strconv.Atoi(r.PathValue("review"))
	if err != nil || reviewID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid review ID")
		return nil, false
	}

	return h.session.ReplySection(reviewID, r.PathValue("context"), r.PathValue("type"), drafts), true
}
