package httphandler

import (
	"net/http"

	"github.com/ericfisherdev/rbdraft/internal/domain/model"
)

// EnqueueFragment queues a comment for diff fragment loading.
func (h *Handler) EnqueueFragment(w http.ResponseWriter, r *http.Request) {
	var req EnqueueFragmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CommentID == "" || req.Revision <= 0 || req.FileID <= 0 {
		writeError(w, http.StatusBadRequest, "comment_id, revision and file_id are required")
		return
	}

	queue := r.PathValue("queue")
	h.session.Fragments.Enqueue(queue, req.CommentID, model.FragmentRequestKey{
		Revision:      req.Revision,
		InterRevision: req.InterRevision,
		FileID:        req.FileID,
		InterFileID:   req.InterFileID,
	})
	writeJSON(w, http.StatusAccepted, QueueResponse{Queue: queue, Pending: h.session.Fragments.Pending(queue)})
}

// FlushFragments issues one fetch per queued key and empties the queue.
func (h *Handler) FlushFragments(w http.ResponseWriter, r *http.Request) {
	var req FlushRequest
	if err := decodeBody(r, &req); err != nil || req.ContainerPrefix == "" {
		writeError(w, http.StatusBadRequest, "container_prefix is required")
		return
	}

	targets := h.session.Fragments.Flush(detach(r), r.PathValue("queue"), req.ContainerPrefix)
	if targets == nil {
		targets = []string{}
	}
	writeJSON(w, http.StatusAccepted, FlushResponse{Targets: targets})
}

// ListFragments returns the fragments injected for a queue.
func (h *Handler) ListFragments(w http.ResponseWriter, r *http.Request) {
	queue := r.PathValue("queue")

	fragments, err := h.fragments.ListFragments(r.Context(), queue)
	if err != nil {
		h.logger.Error("failed to list fragments", "queue", queue, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]FragmentResponse, 0, len(fragments))
	for _, f := range fragments {
		resp = append(resp, toFragmentResponse(f))
	}
	writeJSON(w, http.StatusOK, resp)
}
