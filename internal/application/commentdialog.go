package application

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/ericfisherdev/rbdraft/internal/domain/model"
	"github.com/ericfisherdev/rbdraft/internal/domain/port/driven"
)

// DialogState is the state of the shared comment dialog.
type DialogState int

const (
	DialogStateClosed DialogState = iota
	DialogOpenClean
	DialogOpenDirty
)

// String returns a human-readable name for the state.
func (s DialogState) String() string {
	switch s {
	case DialogStateClosed:
		return "closed"
	case DialogOpenClean:
		return "open_clean"
	case DialogOpenDirty:
		return "open_dirty"
	default:
		return "unknown"
	}
}

// Dialog layout, in pixels.
const (
	formBoxWidth     = 380
	commentsBoxWidth = 280
	dialogHeight     = 250
)

const (
	statusUnsaved = "This comment has unsaved changes."
	unloadWarning = "You have unsaved changes that will be lost if you navigate away from this page."
)

// Keys the dialog's text field reacts to.
const (
	KeyEnter    = "Enter"
	KeyLineFeed = "LineFeed" // Ctrl+Enter on some platforms.
	KeyEscape   = "Escape"
)

// KeyEvent is a key press in the dialog's focused text field.
type KeyEvent struct {
	Key  string
	Ctrl bool
	Meta bool
}

// CommentListItem is one prior comment as listed beside the text field.
type CommentListItem struct {
	Class     string // "odd" or "even", by position.
	Author    string
	ViewURL   string
	ReplyURL  string
	Text      string
	CommentID int64
}

// DialogView is a snapshot of what the dialog shows.
type DialogView struct {
	State           DialogState
	BlockID         string
	Text            string
	TextEnabled     bool
	SaveEnabled     bool
	DeleteVisible   bool
	Status          string
	Comments        []CommentListItem
	CommentsVisible bool
	Width           int
	Height          int
}

// CommentDialogController is the single comment editing surface shared by
// every comment block on a page. At most one block is active at a time.
//
// Server callbacks for save and delete act on the block they were issued
// for, never on whatever block is active when they arrive.
type CommentDialogController struct {
	mu       sync.Mutex
	block    *model.CommentBlock
	state    DialogState
	text     string
	saveOK   bool
	deleteOK bool
	status   string
	comments []CommentListItem
	width    int
	height   int

	readOnly bool
	pagePath string
	gateway  *RequestGateway
	banners  driven.BannerPresenter
	listener DialogListener
	logger   *slog.Logger
}

// NewCommentDialogController creates a closed dialog. A readOnly dialog
// (anonymous viewer) never enables its text field or save control.
func NewCommentDialogController(
	gateway *RequestGateway,
	banners driven.BannerPresenter,
	listener DialogListener,
	readOnly bool,
	logger *slog.Logger,
) *CommentDialogController {
	return &CommentDialogController{
		readOnly: readOnly,
		pagePath: gateway.Ref().PagePath(),
		gateway:  gateway,
		banners:  banners,
		listener: listener,
		logger:   logger,
	}
}

// SetActiveBlock makes block the dialog's active block and resets the dialog
// to a clean open state. A different previously active block that holds no
// text is discarded; one holding text is left alone.
func (c *CommentDialogController) SetActiveBlock(block *model.CommentBlock) {
	c.mu.Lock()
	var discarded *model.CommentBlock
	if c.block != nil && c.block != block && isBlankMarkup(c.block.Text) {
		discarded = c.block
	}

	c.block = block
	c.state = DialogOpenClean
	c.text = block.Text
	c.saveOK = false
	c.deleteOK = block.CanDelete
	c.status = ""
	c.comments = c.commentItems(block)
	c.width = formBoxWidth
	if len(c.comments) > 0 {
		c.width += commentsBoxWidth
	}
	c.height = dialogHeight
	width, height := c.width, c.height
	c.mu.Unlock()

	if discarded != nil {
		c.logger.Debug("discarding empty comment block", "block_id", discarded.ID)
		c.emit(BlockDiscarded{Block: discarded})
	}
	c.emit(DialogStatusChanged{Message: ""})
	c.emit(DialogResized{Width: width, Height: height})
}

// Open activates block and shows the dialog for it.
func (c *CommentDialogController) Open(block *model.CommentBlock) {
	c.SetActiveBlock(block)
	c.emit(DialogOpened{BlockID: block.ID})
}

// OnTextChanged records a new value of the text field. The dialog turns
// dirty the first time the value differs from the block's text.
func (c *CommentDialogController) OnTextChanged(value string) error {
	c.mu.Lock()
	if c.block == nil {
		c.mu.Unlock()
		return model.ErrNoActiveBlock
	}

	c.text = value
	becameDirty := false
	if c.state == DialogOpenClean && value != c.block.Text {
		c.state = DialogOpenDirty
		c.status = statusUnsaved
		becameDirty = true
	}
	if c.state == DialogOpenDirty {
		c.saveOK = value != "" && !c.readOnly
	}
	width, height := c.width, c.height
	c.mu.Unlock()

	if becameDirty {
		c.emit(DialogStatusChanged{Message: statusUnsaved})
		c.emit(DialogResized{Width: width, Height: height})
	}
	return nil
}

// Save stores value on the active block, persists it, and closes the dialog
// without waiting for the server.
func (c *CommentDialogController) Save(ctx context.Context, value string) error {
	c.mu.Lock()
	block := c.block
	if block == nil {
		c.mu.Unlock()
		return model.ErrNoActiveBlock
	}
	if c.readOnly {
		c.mu.Unlock()
		return model.ErrReadOnly
	}
	block.Text = value
	c.mu.Unlock()

	c.gateway.Call(ctx, CallOptions{
		Path:        block.CommentPath(),
		Data:        block.SaveData(value),
		ErrorPrefix: "Saving the comment has failed due to a server error:",
		Success: func(driven.Payload) {
			c.mu.Lock()
			block.CanDelete = true
			c.mu.Unlock()

			c.banners.ShowBanner(driven.BannerReview, 0)
			c.emit(BlockSaved{Block: block})
		},
	})

	c.Close()
	return nil
}

// Cancel discards the active block if it holds no text, then closes.
func (c *CommentDialogController) Cancel() error {
	c.mu.Lock()
	block := c.block
	if block == nil {
		c.mu.Unlock()
		return model.ErrNoActiveBlock
	}
	blank := isBlankMarkup(block.Text)
	c.mu.Unlock()

	if blank {
		c.emit(BlockDiscarded{Block: block})
	}
	c.Close()
	return nil
}

// Delete removes the active block's draft comment on the server and closes.
func (c *CommentDialogController) Delete(ctx context.Context) error {
	c.mu.Lock()
	block := c.block
	if block == nil {
		c.mu.Unlock()
		return model.ErrNoActiveBlock
	}
	if c.readOnly {
		c.mu.Unlock()
		return model.ErrReadOnly
	}
	c.mu.Unlock()

	c.gateway.Call(ctx, CallOptions{
		Path:        block.CommentPath(),
		Data:        block.DeleteData(),
		ErrorPrefix: "Deleting the comment has failed due to a server error:",
		Success: func(driven.Payload) {
			c.mu.Lock()
			block.Text = ""
			block.CanDelete = false
			c.mu.Unlock()

			c.emit(BlockDeleted{Block: block})
		},
	})

	c.Close()
	return nil
}

// Close detaches the active block and hides the dialog. Closing a closed
// dialog changes nothing but still notifies listeners.
func (c *CommentDialogController) Close() {
	c.mu.Lock()
	c.block = nil
	c.state = DialogStateClosed
	c.text = ""
	c.saveOK = false
	c.deleteOK = false
	c.status = ""
	c.comments = nil
	c.mu.Unlock()

	c.emit(DialogClosed{})
}

// BeforeUnload returns the confirmation prompt that should block navigation
// away from the page, and whether navigation should be blocked at all.
func (c *CommentDialogController) BeforeUnload() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == DialogOpenDirty {
		return unloadWarning, true
	}
	return "", false
}

// HandleKey routes a key press from the focused text field. Key events never
// propagate past the dialog, so page-wide shortcuts do not fire while typing.
// It reports whether the event may propagate (always false).
func (c *CommentDialogController) HandleKey(ctx context.Context, ev KeyEvent) (bool, error) {
	switch ev.Key {
	case KeyEnter, KeyLineFeed:
		if !ev.Ctrl && !ev.Meta {
			return false, nil
		}
		c.mu.Lock()
		saveOK, text := c.saveOK, c.text
		c.mu.Unlock()
		if !saveOK {
			return false, nil
		}
		return false, c.Save(ctx, text)
	case KeyEscape:
		return false, c.Cancel()
	default:
		return false, nil
	}
}

// ActiveBlock returns the active block, or nil when closed.
func (c *CommentDialogController) ActiveBlock() *model.CommentBlock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.block
}

// BlockSnapshot copies block's fields while holding the lock that guards
// their updates from server callbacks.
func (c *CommentDialogController) BlockSnapshot(block *model.CommentBlock) model.CommentBlock {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := *block
	snap.Comments = append([]model.PriorComment(nil), block.Comments...)
	return snap
}

// View returns a snapshot of the dialog.
func (c *CommentDialogController) View() DialogView {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := DialogView{
		State:           c.state,
		Text:            c.text,
		TextEnabled:     !c.readOnly && c.state != DialogStateClosed,
		SaveEnabled:     c.saveOK,
		DeleteVisible:   c.deleteOK,
		Status:          c.status,
		Comments:        append([]CommentListItem(nil), c.comments...),
		CommentsVisible: len(c.comments) > 0,
		Width:           c.width,
		Height:          c.height,
	}
	if c.block != nil {
		v.BlockID = c.block.ID
	}
	return v
}

// commentItems lists block's prior comments in arrival order, alternating
// odd and even classes starting with odd.
func (c *CommentDialogController) commentItems(block *model.CommentBlock) []CommentListItem {
	if len(block.Comments) == 0 {
		return nil
	}

	items := make([]CommentListItem, 0, len(block.Comments))
	for i, comment := range block.Comments {
		class := "odd"
		if i%2 == 1 {
			class = "even"
		}
		items = append(items, CommentListItem{
			Class:     class,
			Author:    comment.Author,
			ViewURL:   comment.URL,
			ReplyURL:  c.pagePath + "?reply_id=" + strconv.FormatInt(comment.CommentID, 10) + "&reply_type=" + string(block.Type),
			Text:      comment.Text,
			CommentID: comment.CommentID,
		})
	}
	return items
}

func (c *CommentDialogController) emit(ev DialogEvent) {
	if c.listener == nil {
		return
	}
	c.listener.HandleDialogEvent(ev)
}
