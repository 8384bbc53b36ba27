package application

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/ericfisherdev/rbdraft/internal/domain/port/driven"
)

// ReplyDraft is an unpublished reply already present when the page loads.
type ReplyDraft struct {
	EditorID string
	Text     string
}

// ReplySectionState is a snapshot of a reply section.
type ReplySectionState struct {
	EditorIDs      []string
	BannerShown    bool
	AddLinkVisible bool
}

// ReplySection manages draft replies to one comment context of a review.
type ReplySection struct {
	mu          sync.Mutex
	reviewID    int
	contextID   string
	contextType string
	editors     map[string]string
	order       []string
	bannerShown bool

	gateway *RequestGateway
	banners driven.BannerPresenter
	buttons driven.Controls
}

// NewReplySection creates a section. Existing drafts get editors right away,
// the reply banner is shown, and the add-comment link is hidden.
func NewReplySection(
	gateway *RequestGateway,
	banners driven.BannerPresenter,
	buttons driven.Controls,
	reviewID int,
	contextID, contextType string,
	existing []ReplyDraft,
) *ReplySection {
	s := &ReplySection{
		reviewID:    reviewID,
		contextID:   contextID,
		contextType: contextType,
		editors:     make(map[string]string),
		gateway:     gateway,
		banners:     banners,
		buttons:     buttons,
	}
	for _, draft := range existing {
		s.editors[draft.EditorID] = draft.Text
		s.order = append(s.order, draft.EditorID)
	}
	if len(existing) > 0 {
		s.showBanner()
	}
	return s
}

// AddComment opens a new reply editor and returns its ID.
func (s *ReplySection) AddComment() string {
	id := "yourcomment_" + s.contextID + "-draft"

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.editors[id]; !ok {
		s.editors[id] = ""
		s.order = append(s.order, id)
	}
	return id
}

// SaveReply saves the reply text of editorID.
func (s *ReplySection) SaveReply(ctx context.Context, editorID, value string) {
	s.mu.Lock()
	s.editors[editorID] = value
	if !slices.Contains(s.order, editorID) {
		s.order = append(s.order, editorID)
	}
	s.mu.Unlock()

	s.gateway.Call(ctx, CallOptions{
		Path: ReplyDraftPath(s.reviewID),
		Data: map[string]string{
			"value":     value,
			"id":        s.contextID,
			"type":      s.contextType,
			"review_id": strconv.Itoa(s.reviewID),
		},
		Buttons: s.buttons,
		Success: func(driven.Payload) {
			if !s.removeIfEmpty(editorID) {
				s.showBanner()
			}
		},
	})
}

// CancelReply closes editorID, removing it if it holds no text.
func (s *ReplySection) CancelReply(editorID string) {
	s.removeIfEmpty(editorID)
}

// PublishReplies publishes the review's reply draft.
func (s *ReplySection) PublishReplies(ctx context.Context) {
	s.gateway.Call(ctx, CallOptions{
		Path:        ReplyDraftActionPath(s.reviewID, "save"),
		Buttons:     s.buttons,
		ErrorPrefix: "Saving the reply draft has failed due to a server error:",
	})
}

// DiscardReplies discards the review's reply draft.
func (s *ReplySection) DiscardReplies(ctx context.Context) {
	s.gateway.Call(ctx, CallOptions{
		Path:        ReplyDraftActionPath(s.reviewID, "discard"),
		Buttons:     s.buttons,
		ErrorPrefix: "Discarding the reply draft has failed due to a server error:",
	})
}

// State returns a snapshot of the section.
func (s *ReplySection) State() ReplySectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ReplySectionState{
		EditorIDs:      slices.Clone(s.order),
		BannerShown:    s.bannerShown,
		AddLinkVisible: len(s.order) == 0,
	}
}

// removeIfEmpty drops editorID when it holds no text and reports whether it did.
func (s *ReplySection) removeIfEmpty(editorID string) bool {
	s.mu.Lock()
	value, ok := s.editors[editorID]
	if !ok || !isBlankMarkup(value) {
		s.mu.Unlock()
		return false
	}
	delete(s.editors, editorID)
	s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == editorID })
	hide := len(s.order) == 0 && s.bannerShown
	if hide {
		s.bannerShown = false
	}
	s.mu.Unlock()

	if hide {
		s.banners.HideBanner(driven.BannerReply, s.reviewID)
	}
	return true
}

func (s *ReplySection) showBanner() {
	s.mu.Lock()
	if s.bannerShown {
		s.mu.Unlock()
		return
	}
	s.bannerShown = true
	s.mu.Unlock()

	s.banners.ShowBanner(driven.BannerReply, s.reviewID)
}
