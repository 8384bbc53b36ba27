// Package httphandler is the local JSON API through which a rendering client
// drives a page session: field edits, publish, the comment dialog, review and
// reply drafts, and diff fragment loading. Server calls complete
// asynchronously; their effects are read back from GET /api/v1/page.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/rbdraft/internal/adapter/driven/pagestate"
	"github.com/ericfisherdev/rbdraft/internal/application"
	"github.com/ericfisherdev/rbdraft/internal/domain/model"
	"github.com/ericfisherdev/rbdraft/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter for one page session.
type Handler struct {
	session   *application.PageSession
	page      *pagestate.Page
	displays  driven.FieldDisplayStore
	fragments driven.FragmentStore
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	session *application.PageSession,
	page *pagestate.Page,
	displays driven.FieldDisplayStore,
	fragments driven.FragmentStore,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		session:   session,
		page:      page,
		displays:  displays,
		fragments: fragments,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/page", h.GetPage)
	mux.HandleFunc("DELETE /api/v1/page/error", h.DismissError)

	mux.HandleFunc("PUT /api/v1/fields", h.SeedFields)
	mux.HandleFunc("POST /api/v1/fields/{field}", h.SetField)
	mux.HandleFunc("POST /api/v1/publish", h.Publish)
	mux.HandleFunc("POST /api/v1/draft/discard", h.DiscardDraft)
	mux.HandleFunc("POST /api/v1/close/discarded", h.CloseDiscarded)
	mux.HandleFunc("POST /api/v1/close/submitted", h.CloseSubmitted)
	mux.HandleFunc("POST /api/v1/reopen", h.Reopen)
	mux.HandleFunc("POST /api/v1/delete", h.Delete)

	mux.HandleFunc("POST /api/v1/blocks", h.AddBlock)
	mux.HandleFunc("GET /api/v1/blocks", h.ListBlocks)
	mux.HandleFunc("GET /api/v1/blocks/{id}", h.GetBlock)
	mux.HandleFunc("GET /api/v1/dialog", h.GetDialog)
	mux.HandleFunc("GET /api/v1/dialog/unload", h.BeforeUnload)
	mux.HandleFunc("POST /api/v1/dialog/open", h.OpenDialog)
	mux.HandleFunc("POST /api/v1/dialog/text", h.DialogText)
	mux.HandleFunc("POST /api/v1/dialog/save", h.DialogSave)
	mux.HandleFunc("POST /api/v1/dialog/cancel", h.DialogCancel)
	mux.HandleFunc("POST /api/v1/dialog/delete", h.DialogDelete)
	mux.HandleFunc("POST /api/v1/dialog/close", h.DialogClose)
	mux.HandleFunc("POST /api/v1/dialog/key", h.DialogKey)

	mux.HandleFunc("POST /api/v1/review/editors", h.AddReviewEditor)
	mux.HandleFunc("PUT /api/v1/review/editors/{id}", h.SetReviewEditor)
	mux.HandleFunc("POST /api/v1/review/save", h.SaveReview)
	mux.HandleFunc("POST /api/v1/review/discard", h.DiscardReview)
	mux.HandleFunc("POST /api/v1/review/banner/publish", h.PublishReviewDraft)
	mux.HandleFunc("POST /api/v1/review/banner/discard", h.DiscardReviewDraft)

	mux.HandleFunc("PUT /api/v1/reviews/{review}/replies/{type}/{context}", h.InitReplySection)
	mux.HandleFunc("GET /api/v1/reviews/{review}/replies/{type}/{context}", h.GetReplySection)
	mux.HandleFunc("POST /api/v1/reviews/{review}/replies/{type}/{context}/add", h.AddReply)
	mux.HandleFunc("POST /api/v1/reviews/{review}/replies/{type}/{context}/save", h.SaveReply)
	mux.HandleFunc("POST /api/v1/reviews/{review}/replies/{type}/{context}/cancel", h.CancelReply)
	mux.HandleFunc("POST /api/v1/reviews/{review}/replies/{type}/{context}/publish", h.PublishReplies)
	mux.HandleFunc("POST /api/v1/reviews/{review}/replies/{type}/{context}/discard", h.DiscardReplies)

	mux.HandleFunc("POST /api/v1/fragments/{queue}", h.EnqueueFragment)
	mux.HandleFunc("POST /api/v1/fragments/{queue}/flush", h.FlushFragments)
	mux.HandleFunc("GET /api/v1/fragments/{queue}", h.ListFragments)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = limitBodyMiddleware(wrapped)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// GetPage returns the page state: location, banners, alerts, the error
// banner, control enablement, publish progress and field displays.
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	ref := h.session.Gateway.Ref()

	displays, err := h.displays.ListDisplays(r.Context(), ref.ID)
	if err != nil {
		h.logger.Error("failed to list field displays", "review_request_id", ref.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	state, pending := h.session.Publisher.State()
	writeJSON(w, http.StatusOK, toPageResponse(ref, h.page.Snapshot(), state, pending, displays))
}

// DismissError clears the error banner.
func (h *Handler) DismissError(w http.ResponseWriter, _ *http.Request) {
	h.page.DismissError()
	w.WriteHeader(http.StatusNoContent)
}

// detach returns a context for server calls that outlive the request.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// decodeBody decodes the JSON request body into v. An empty body leaves v
// unchanged.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// writeAppError maps application errors onto HTTP statuses.
func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, verr.Message)
	case errors.Is(err, model.ErrNoActiveBlock):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrReadOnly):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// accepted acknowledges an operation whose server call is in flight.
func accepted(w http.ResponseWriter) {
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "accepted"})
}
