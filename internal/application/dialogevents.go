package application

import "github.com/ericfisherdev/rbdraft/internal/domain/model"

// DialogEvent is the sealed interface for notifications the comment dialog
// sends to layout and page collaborators.
type DialogEvent interface {
	isDialogEvent()
}

func (DialogOpened) isDialogEvent()        {}
func (DialogClosed) isDialogEvent()        {}
func (DialogResized) isDialogEvent()       {}
func (DialogStatusChanged) isDialogEvent() {}
func (BlockDiscarded) isDialogEvent()      {}
func (BlockSaved) isDialogEvent()          {}
func (BlockDeleted) isDialogEvent()        {}

// DialogOpened is sent when a block becomes active.
type DialogOpened struct {
	BlockID string
}

// DialogClosed is sent on every Close, including on an already closed dialog.
type DialogClosed struct{}

// DialogResized carries the dialog's new layout size.
type DialogResized struct {
	Width  int
	Height int
}

// DialogStatusChanged carries the dialog's status line.
type DialogStatusChanged struct {
	Message string
}

// BlockDiscarded asks the owning section to remove the block's transient
// draft. The block was never persisted, so no server call is made.
type BlockDiscarded struct {
	Block *model.CommentBlock
}

// BlockSaved reports that the server accepted a block's draft text.
type BlockSaved struct {
	Block *model.CommentBlock
}

// BlockDeleted reports that the server deleted a block's draft comment.
type BlockDeleted struct {
	Block *model.CommentBlock
}

// DialogListener receives dialog events.
type DialogListener interface {
	HandleDialogEvent(ev DialogEvent)
}

// DialogListenerFunc adapts a function to DialogListener.
type DialogListenerFunc func(ev DialogEvent)

// HandleDialogEvent calls f(ev).
func (f DialogListenerFunc) HandleDialogEvent(ev DialogEvent) {
	f(ev)
}
