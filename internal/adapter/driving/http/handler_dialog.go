package httphandler

import (
	"errors"
	"net/http"

	"github.com/ericfisherdev/rbdraft/internal/application"
	"github.com/ericfisherdev/rbdraft/internal/domain/model"
)

// AddBlock registers a comment block anchored to a diff line range or a
// screenshot region.
func (h *Handler) AddBlock(w http.ResponseWriter, r *http.Request) {
	var req BlockRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	block, err := req.toBlock()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.session.AddBlock(block); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toBlockResponse(h.session.Dialog.BlockSnapshot(block)))
}

// ListBlocks returns the IDs of all comment blocks on the page.
func (h *Handler) ListBlocks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Blocks())
}

// GetBlock returns one comment block.
func (h *Handler) GetBlock(w http.ResponseWriter, r *http.Request) {
	block, ok := h.session.Block(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "comment block not found")
		return
	}
	writeJSON(w, http.StatusOK, toBlockResponse(h.session.Dialog.BlockSnapshot(block)))
}

// GetDialog returns what the comment dialog shows.
func (h *Handler) GetDialog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toDialogResponse(h.session.Dialog.View()))
}

// BeforeUnload reports whether leaving the page must be confirmed.
func (h *Handler) BeforeUnload(w http.ResponseWriter, _ *http.Request) {
	msg, block := h.session.Dialog.BeforeUnload()
	writeJSON(w, http.StatusOK, UnloadResponse{Block: block, Message: msg})
}

// OpenDialog opens the comment dialog on a registered block.
func (h *Handler) OpenDialog(w http.ResponseWriter, r *http.Request) {
	var req OpenDialogRequest
	if err := decodeBody(r, &req); err != nil || req.BlockID == "" {
		writeError(w, http.StatusBadRequest, "block_id is required")
		return
	}

	if err := h.session.OpenBlock(req.BlockID); err != nil {
		h.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDialogResponse(h.session.Dialog.View()))
}

// DialogText records a change of the dialog's text field.
func (h *Handler) DialogText(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.session.Dialog.OnTextChanged(req.Value); err != nil {
		h.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDialogResponse(h.session.Dialog.View()))
}

// DialogSave saves the dialog's text to its block and closes the dialog.
func (h *Handler) DialogSave(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.session.Dialog.Save(detach(r), req.Value); err != nil {
		h.writeAppError(w, err)
		return
	}
	accepted(w)
}

// DialogCancel closes the dialog, discarding an empty block.
func (h *Handler) DialogCancel(w http.ResponseWriter, _ *http.Request) {
	if err := h.session.Dialog.Cancel(); err != nil {
		h.writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DialogDelete deletes the active block's draft comment.
func (h *Handler) DialogDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Dialog.Delete(detach(r)); err != nil {
		h.writeAppError(w, err)
		return
	}
	accepted(w)
}

// DialogClose closes the dialog.
func (h *Handler) DialogClose(w http.ResponseWriter, _ *http.Request) {
	h.session.Dialog.Close()
	w.WriteHeader(http.StatusNoContent)
}

// DialogKey routes a key press from the dialog's text field.
func (h *Handler) DialogKey(w http.ResponseWriter, r *http.Request) {
	var req KeyRequest
	if err := decodeBody(r, &req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	propagate, err := h.session.Dialog.HandleKey(detach(r), application.KeyEvent{
		Key:  req.Key,
		Ctrl: req.Ctrl,
		Meta: req.Meta,
	})
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, KeyResponse{
		Propagate: propagate,
		Dialog:    toDialogResponse(h.session.Dialog.View()),
	})
}

func (req BlockRequest) toBlock() (*model.CommentBlock, error) {
	if req.ID == "" {
		return nil, errors.New("id is required")
	}

	var block *model.CommentBlock
	switch {
	case req.Diff != nil && req.Screenshot == nil:
		d := req.Diff
		if d.Revision <= 0 || d.FileID <= 0 || d.BeginLine <= 0 {
			return nil, errors.New("diff anchor needs positive revision, file_id and begin_line")
		}
		key := model.FragmentRequestKey{
			Revision:      d.Revision,
			InterRevision: d.InterRevision,
			FileID:        d.FileID,
			InterFileID:   d.InterFileID,
		}
		block = model.NewDiffCommentBlock(req.ID, req.SectionID, model.DiffAnchor{
			Key:       key,
			BeginLine: d.BeginLine,
			NumLines:  d.NumLines,
		})
	case req.Screenshot != nil && req.Diff == nil:
		s := req.Screenshot
		if s.ScreenshotID <= 0 || s.Width <= 0 || s.Height <= 0 {
			return nil, errors.New("screenshot anchor needs positive screenshot_id, width and height")
		}
		block = model.NewScreenshotCommentBlock(req.ID, req.SectionID, model.ScreenshotAnchor{
			ScreenshotID: s.ScreenshotID,
			X:            s.X,
			Y:            s.Y,
			Width:        s.Width,
			Height:       s.Height,
		})
	default:
		return nil, errors.New("exactly one of diff or screenshot is required")
	}

	block.Text = req.Text
	block.CanDelete = req.CanDelete
	for _, c := range req.Comments {
		block.Comments = append(block.Comments, model.PriorComment{
			Author:    c.Author,
			URL:       c.URL,
			CommentID: c.CommentID,
			Text:      c.Text,
		})
	}
	return block, nil
}
