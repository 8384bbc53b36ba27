package application

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/ericfisherdev/rbdraft/internal/domain/model"
	"github.com/ericfisherdev/rbdraft/internal/domain/port/driven"
)

// SessionDeps are the collaborators of a PageSession.
type SessionDeps struct {
	Ref       model.ReviewRequestRef
	Transport driven.Transport
	Fetcher   driven.FragmentFetcher
	Displays  driven.FieldDisplayStore
	Fragments driven.FragmentSink
	Navigator driven.Navigator
	Alerter   driven.Alerter
	Banners   driven.BannerPresenter

	DraftButtons  driven.Controls
	ReviewButtons driven.Controls
	ReplyButtons  driven.Controls

	BugTrackerURL string
	AjaxSerial    string
	ReadOnly      bool

	// Listener receives dialog events after the session has applied them.
	Listener DialogListener
	Logger   *slog.Logger
}

// PageSession wires every use case of one review request page and owns the
// page's comment blocks, review form editors and reply sections.
type PageSession struct {
	Gateway    *RequestGateway
	Formatter  *FieldFormatter
	Publisher  *PublishCoordinator
	Fields     *DraftFieldSaver
	Dialog     *CommentDialogController
	Fragments  *FragmentLoadQueue
	ReviewForm *ReviewForm
	Lifecycle  *LifecycleActions

	mu         sync.Mutex
	blocks     map[string]*model.CommentBlock
	editors    map[string]*CommentEditorSaver
	editorIDs  []string
	replies    map[string]*ReplySection
	listener   DialogListener
	banners    driven.BannerPresenter
	replyCtrls driven.Controls
	logger     *slog.Logger
}

// NewPageSession builds a session from deps.
func NewPageSession(deps SessionDeps) *PageSession {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gateway := NewRequestGateway(deps.Ref, deps.Transport, deps.Navigator)
	formatter := NewFieldFormatter(deps.Ref.SiteRoot, deps.BugTrackerURL)
	publisher := NewPublishCoordinator(gateway, deps.Displays, deps.Alerter, deps.DraftButtons, logger)

	s := &PageSession{
		Gateway:    gateway,
		Formatter:  formatter,
		Publisher:  publisher,
		Fields:     NewDraftFieldSaver(gateway, formatter, deps.Displays, deps.Banners, publisher, deps.DraftButtons, logger),
		Fragments:  NewFragmentLoadQueue(deps.Ref.PagePath(), deps.AjaxSerial, deps.Fetcher, deps.Fragments, logger),
		ReviewForm: NewReviewForm(gateway, deps.Banners, deps.Navigator, deps.ReviewButtons, logger),
		Lifecycle:  NewLifecycleActions(gateway, deps.Navigator, deps.DraftButtons),
		blocks:     make(map[string]*model.CommentBlock),
		editors:    make(map[string]*CommentEditorSaver),
		replies:    make(map[string]*ReplySection),
		listener:   deps.Listener,
		banners:    deps.Banners,
		replyCtrls: deps.ReplyButtons,
		logger:     logger,
	}
	s.Dialog = NewCommentDialogController(gateway, deps.Banners, DialogListenerFunc(s.handleDialogEvent), deps.ReadOnly, logger)
	return s
}

// AddBlock registers a comment block on the page.
func (s *PageSession) AddBlock(block *model.CommentBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blocks[block.ID]; ok {
		return fmt.Errorf("comment block %q already exists", block.ID)
	}
	s.blocks[block.ID] = block
	return nil
}

// Block returns the registered block with the given ID.
func (s *PageSession) Block(id string) (*model.CommentBlock, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[id]
	return b, ok
}

// Blocks returns the IDs of all registered blocks, sorted.
func (s *PageSession) Blocks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.blocks))
	for id := range s.blocks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// OpenBlock opens the comment dialog on a registered block.
func (s *PageSession) OpenBlock(id string) error {
	block, ok := s.Block(id)
	if !ok {
		return fmt.Errorf("comment block %q: %w", id, model.ErrNotFound)
	}
	s.Dialog.Open(block)
	return nil
}

// AddReviewEditor registers a review form comment editor saving to path.
func (s *PageSession) AddReviewEditor(id, path, textKey, initial string) *CommentEditorSaver {
	editor := NewCommentEditorSaver(s.Gateway, path, textKey, nil, initial)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.editors[id]; !ok {
		s.editorIDs = append(s.editorIDs, id)
	}
	s.editors[id] = editor
	return editor
}

// ReviewEditor returns a registered review form editor.
func (s *PageSession) ReviewEditor(id string) (*CommentEditorSaver, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.editors[id]
	return e, ok
}

// ReviewEditors returns the review form editors in registration order.
func (s *PageSession) ReviewEditors() []CommentEditor {
	s.mu.Lock()
	defer s.mu.Unlock()

	editors := make([]CommentEditor, 0, len(s.editorIDs))
	for _, id := range s.editorIDs {
		editors = append(editors, s.editors[id])
	}
	return editors
}

// ReplySection returns the reply section for a comment context of a review,
// creating it with existing drafts on first use.
func (s *PageSession) ReplySection(reviewID int, contextID, contextType string, existing []ReplyDraft) *ReplySection {
	key := strconv.Itoa(reviewID) + "/" + contextType + "/" + contextID

	s.mu.Lock()
	section, ok := s.replies[key]
	s.mu.Unlock()
	if ok {
		return section
	}

	section = NewReplySection(s.Gateway, s.banners, s.replyCtrls, reviewID, contextID, contextType, existing)

	s.mu.Lock()
	defer s.mu.Unlock()
	if prior, ok := s.replies[key]; ok {
		return prior
	}
	s.replies[key] = section
	return section
}

func (s *PageSession) handleDialogEvent(ev DialogEvent) {
	if d, ok := ev.(BlockDiscarded); ok {
		s.mu.Lock()
		delete(s.blocks, d.Block.ID)
		s.mu.Unlock()
		s.logger.Debug("comment block removed", "block_id", d.Block.ID)
	}
	if s.listener != nil {
		s.listener.HandleDialogEvent(ev)
	}
}
