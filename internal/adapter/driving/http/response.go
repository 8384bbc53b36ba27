package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/rbdraft/internal/adapter/driven/pagestate"
	"github.com/ericfisherdev/rbdraft/internal/application"
	"github.com/ericfisherdev/rbdraft/internal/domain/model"
	"github.com/ericfisherdev/rbdraft/internal/domain/port/driven"
)

// Names of the page's control sets, as reported in PageResponse.Controls.
const (
	ControlsDraft         = "draft"
	ControlsReview        = "review"
	ControlsReply         = "reply"
	ControlsDeleteConfirm = "delete_confirm"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// statusResponse acknowledges an accepted operation.
type statusResponse struct {
	Status string `json:"status"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// PageResponse is the observable state of the page.
type PageResponse struct {
	ReviewRequestID int               `json:"review_request_id"`
	PagePath        string            `json:"page_path"`
	Location        string            `json:"location"`
	Navigations     int               `json:"navigations"`
	Alerts          []string          `json:"alerts"`
	Banners         []BannerResponse  `json:"banners"`
	Error           string            `json:"error,omitempty"`
	Controls        map[string]bool   `json:"controls"`
	PublishState    string            `json:"publish_state"`
	PendingSaves    int               `json:"pending_saves"`
	Fields          map[string]string `json:"fields"`
}

// BannerResponse is a visible draft banner.
type BannerResponse struct {
	Kind     string `json:"kind"`
	ReviewID int    `json:"review_id,omitempty"`
}

// FieldValueRequest is a single or list field value. Field is only read
// inside PublishRequest.
type FieldValueRequest struct {
	Field  string   `json:"field,omitempty"`
	Value  *string  `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

// event builds the edit event for field. It reports false when the request
// carries no value.
func (req FieldValueRequest) event(field model.FieldName) (model.FieldEditEvent, bool) {
	switch {
	case req.Values != nil:
		return model.FieldEditEvent{Field: field, Value: model.ListValue(req.Values...)}, true
	case req.Value != nil:
		return model.FieldEditEvent{Field: field, Value: model.TextValue(*req.Value)}, true
	default:
		return model.FieldEditEvent{}, false
	}
}

// SeedFieldsRequest carries the display HTML of the draft fields as the page
// was rendered, keyed by field name.
type SeedFieldsRequest struct {
	Fields map[string]string `json:"fields"`
}

// PublishRequest lists the fields still being edited when publish was clicked.
type PublishRequest struct {
	Dirty []FieldValueRequest `json:"dirty"`
}

// DiffAnchorJSON anchors a block on diff lines.
type DiffAnchorJSON struct {
	Revision      int `json:"revision"`
	InterRevision int `json:"inter_revision,omitempty"`
	FileID        int `json:"file_id"`
	InterFileID   int `json:"inter_file_id,omitempty"`
	BeginLine     int `json:"begin_line"`
	NumLines      int `json:"num_lines"`
}

// ScreenshotAnchorJSON anchors a block on a screenshot region.
type ScreenshotAnchorJSON struct {
	ScreenshotID int `json:"screenshot_id"`
	X            int `json:"x"`
	Y            int `json:"y"`
	Width        int `json:"width"`
	Height       int `json:"height"`
}

// PriorCommentJSON is an already published comment on a block.
type PriorCommentJSON struct {
	Author    string `json:"author"`
	URL       string `json:"url"`
	CommentID int64  `json:"comment_id"`
	Text      string `json:"text"`
}

// BlockRequest is the JSON body for registering a comment block.
type BlockRequest struct {
	ID         string                `json:"id"`
	SectionID  string                `json:"section_id"`
	Text       string                `json:"text"`
	CanDelete  bool                  `json:"can_delete"`
	Comments   []PriorCommentJSON    `json:"comments"`
	Diff       *DiffAnchorJSON       `json:"diff,omitempty"`
	Screenshot *ScreenshotAnchorJSON `json:"screenshot,omitempty"`
}

// BlockResponse is the JSON representation of a comment block.
type BlockResponse struct {
	ID          string             `json:"id"`
	SectionID   string             `json:"section_id"`
	Type        string             `json:"type"`
	Text        string             `json:"text"`
	CanDelete   bool               `json:"can_delete"`
	CommentPath string             `json:"comment_path"`
	Comments    []PriorCommentJSON `json:"comments"`
}

// DialogCommentResponse is one prior comment listed in the dialog. HTML is
// the comment text rendered from Markdown.
type DialogCommentResponse struct {
	Class     string `json:"class"`
	Author    string `json:"author"`
	ViewURL   string `json:"view_url"`
	ReplyURL  string `json:"reply_url"`
	Text      string `json:"text"`
	HTML      string `json:"html"`
	CommentID int64  `json:"comment_id"`
}

// DialogResponse is what the comment dialog shows.
type DialogResponse struct {
	State           string                  `json:"state"`
	BlockID         string                  `json:"block_id,omitempty"`
	Text            string                  `json:"text"`
	TextEnabled     bool                    `json:"text_enabled"`
	SaveEnabled     bool                    `json:"save_enabled"`
	DeleteVisible   bool                    `json:"delete_visible"`
	Status          string                  `json:"status"`
	Comments        []DialogCommentResponse `json:"comments"`
	CommentsVisible bool                    `json:"comments_visible"`
	Width           int                     `json:"width"`
	Height          int                     `json:"height"`
}

// UnloadResponse tells the client whether leaving the page needs confirming.
type UnloadResponse struct {
	Block   bool   `json:"block"`
	Message string `json:"message,omitempty"`
}

// OpenDialogRequest is the JSON body for opening the dialog on a block.
type OpenDialogRequest struct {
	BlockID string `json:"block_id"`
}

// TextRequest carries a text value.
type TextRequest struct {
	Value string `json:"value"`
}

// KeyRequest is a key press in the dialog's text field.
type KeyRequest struct {
	Key  string `json:"key"`
	Ctrl bool   `json:"ctrl"`
	Meta bool   `json:"meta"`
}

// KeyResponse reports the handling of a key press.
type KeyResponse struct {
	Propagate bool           `json:"propagate"`
	Dialog    DialogResponse `json:"dialog"`
}

// ReviewEditorRequest registers a review form comment editor.
type ReviewEditorRequest struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	TextKey string `json:"text_key"`
	Text    string `json:"text"`
}

// ReviewEditorResponse is the state of a review form comment editor.
type ReviewEditorResponse struct {
	ID    string `json:"id"`
	Dirty bool   `json:"dirty"`
}

// SaveReviewRequest is the JSON body for saving or publishing a review.
type SaveReviewRequest struct {
	Publish    bool   `json:"publish"`
	ShipIt     bool   `json:"ship_it"`
	BodyTop    string `json:"body_top"`
	BodyBottom string `json:"body_bottom"`
}

// ReplyDraftJSON is a reply draft already on the page.
type ReplyDraftJSON struct {
	EditorID string `json:"editor_id"`
	Text     string `json:"text"`
}

// ReplySectionRequest registers a reply section with its existing drafts.
type ReplySectionRequest struct {
	Drafts []ReplyDraftJSON `json:"drafts"`
}

// ReplyRequest targets one reply editor.
type ReplyRequest struct {
	EditorID string `json:"editor_id"`
	Value    string `json:"value"`
}

// ReplyEditorResponse names a reply editor.
type ReplyEditorResponse struct {
	EditorID string `json:"editor_id"`
}

// ReplySectionResponse is the state of a reply section.
type ReplySectionResponse struct {
	EditorIDs      []string `json:"editor_ids"`
	BannerShown    bool     `json:"banner_shown"`
	AddLinkVisible bool     `json:"add_link_visible"`
}

// EnqueueFragmentRequest queues one comment for fragment loading.
type EnqueueFragmentRequest struct {
	CommentID     string `json:"comment_id"`
	Revision      int    `json:"revision"`
	InterRevision int    `json:"inter_revision,omitempty"`
	FileID        int    `json:"file_id"`
	InterFileID   int    `json:"inter_file_id,omitempty"`
}

// QueueResponse lists a queue's pending comment ID batches, one per key.
type QueueResponse struct {
	Queue   string     `json:"queue"`
	Pending [][]string `json:"pending"`
}

// FlushRequest is the JSON body for flushing a queue.
type FlushRequest struct {
	ContainerPrefix string `json:"container_prefix"`
}

// FlushResponse lists the fetch targets issued by a flush, in order.
type FlushResponse struct {
	Targets []string `json:"targets"`
}

// FragmentResponse is the fragment held by one comment container.
type FragmentResponse struct {
	ContainerID string `json:"container_id"`
	Queue       string `json:"queue"`
	CommentID   string `json:"comment_id"`
	HTML        string `json:"html"`
	InjectedAt  string `json:"injected_at"`
}

// toPageResponse converts the page snapshot and publish progress into a response.
func toPageResponse(
	ref model.ReviewRequestRef,
	snap pagestate.Snapshot,
	state application.PublishState,
	pending int,
	displays map[model.FieldName]string,
) PageResponse {
	banners := make([]BannerResponse, 0, len(snap.Banners))
	for _, b := range snap.Banners {
		banners = append(banners, BannerResponse{Kind: string(b.Kind), ReviewID: b.ReviewID})
	}

	fields := make(map[string]string, len(displays))
	for name, html := range displays {
		fields[string(name)] = html
	}

	return PageResponse{
		ReviewRequestID: ref.ID,
		PagePath:        ref.PagePath(),
		Location:        snap.Location,
		Navigations:     snap.Navigations,
		Alerts:          snap.Alerts,
		Banners:         banners,
		Error:           snap.Error,
		Controls:        snap.Controls,
		PublishState:    state.String(),
		PendingSaves:    pending,
		Fields:          fields,
	}
}

func toBlockResponse(b model.CommentBlock) BlockResponse {
	comments := make([]PriorCommentJSON, 0, len(b.Comments))
	for _, c := range b.Comments {
		comments = append(comments, PriorCommentJSON{
			Author:    c.Author,
			URL:       c.URL,
			CommentID: c.CommentID,
			Text:      c.Text,
		})
	}

	return BlockResponse{
		ID:          b.ID,
		SectionID:   b.SectionID,
		Type:        string(b.Type),
		Text:        b.Text,
		CanDelete:   b.CanDelete,
		CommentPath: b.CommentPath(),
		Comments:    comments,
	}
}

func toDialogResponse(v application.DialogView) DialogResponse {
	comments := make([]DialogCommentResponse, 0, len(v.Comments))
	for _, c := range v.Comments {
		comments = append(comments, DialogCommentResponse{
			Class:     c.Class,
			Author:    c.Author,
			ViewURL:   c.ViewURL,
			ReplyURL:  c.ReplyURL,
			Text:      c.Text,
			HTML:      RenderMarkdown(c.Text),
			CommentID: c.CommentID,
		})
	}

	return DialogResponse{
		State:           v.State.String(),
		BlockID:         v.BlockID,
		Text:            v.Text,
		TextEnabled:     v.TextEnabled,
		SaveEnabled:     v.SaveEnabled,
		DeleteVisible:   v.DeleteVisible,
		Status:          v.Status,
		Comments:        comments,
		CommentsVisible: v.CommentsVisible,
		Width:           v.Width,
		Height:          v.Height,
	}
}

func toReplySectionResponse(s application.ReplySectionState) ReplySectionResponse {
	ids := s.EditorIDs
	if ids == nil {
		ids = []string{}
	}
	return ReplySectionResponse{
		EditorIDs:      ids,
		BannerShown:    s.BannerShown,
		AddLinkVisible: s.AddLinkVisible,
	}
}

func toFragmentResponse(f driven.InjectedFragment) FragmentResponse {
	return FragmentResponse{
		ContainerID: f.ContainerID,
		Queue:       f.Queue,
		CommentID:   f.CommentID,
		HTML:        f.HTML,
		InjectedAt:  f.InjectedAt.UTC().Format(time.RFC3339),
	}
}
