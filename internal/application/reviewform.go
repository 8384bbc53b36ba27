package application

import (
	"context"
	"log/slog"
	"maps"
	"sync"

	"github.com/ericfisherdev/rbdraft/internal/domain/model"
	"github.com/ericfisherdev/rbdraft/internal/domain/port/driven"
)

// CommentEditor is a comment editor inside the review form. Save persists
// the editor's value and calls done exactly once with the outcome.
type CommentEditor interface {
	Dirty() bool
	Save(ctx context.Context, done func(error))
}

// ReviewBody holds the review-level fields of the review form.
type ReviewBody struct {
	ShipIt     bool
	BodyTop    string
	BodyBottom string
}

func (b ReviewBody) formData() map[string]string {
	shipIt := "0"
	if b.ShipIt {
		shipIt = "1"
	}
	return map[string]string{
		"shipit":      shipIt,
		"body_top":    b.BodyTop,
		"body_bottom": b.BodyBottom,
	}
}

// ReviewForm saves and publishes the current user's review draft. Dirty
// comment editors are saved one after another before the review itself.
type ReviewForm struct {
	gateway   *RequestGateway
	banners   driven.BannerPresenter
	navigator driven.Navigator
	buttons   driven.Controls
	queue     *FuncQueue
	logger    *slog.Logger
}

// NewReviewForm creates a review form. buttons are the form's and the
// review banner's controls.
func NewReviewForm(
	gateway *RequestGateway,
	banners driven.BannerPresenter,
	navigator driven.Navigator,
	buttons driven.Controls,
	logger *slog.Logger,
) *ReviewForm {
	return &ReviewForm{
		gateway:   gateway,
		banners:   banners,
		navigator: navigator,
		buttons:   buttons,
		queue:     NewFuncQueue(),
		logger:    logger,
	}
}

// Save saves every dirty editor in order, then saves (or publishes) the
// review. A failure at any step drops the remaining steps. Publishing hides
// the review banner and returns to the review request page; saving shows it.
func (f *ReviewForm) Save(ctx context.Context, publish bool, body ReviewBody, editors []CommentEditor) {
	f.queue.Clear()

	for _, editor := range editors {
		if !editor.Dirty() {
			continue
		}
		f.queue.Add(func(next func()) {
			editor.Save(ctx, func(err error) {
				if err != nil {
					f.logger.Warn("review comment save failed, stopping review save", "error", err)
					f.queue.Clear()
				}
				next()
			})
		})
	}

	action := ReviewActionSave
	if publish {
		action = ReviewActionPublish
	}

	f.queue.Add(func(next func()) {
		f.gateway.Call(ctx, CallOptions{
			Path:    ReviewDraftActionPath(action),
			Data:    body.formData(),
			Buttons: f.buttons,
			Success: func(driven.Payload) { next() },
			Error: func(*model.TransportError) {
				f.queue.Clear()
				next()
			},
		})
	})

	f.queue.Add(func(next func()) {
		defer next()
		if publish {
			f.banners.HideBanner(driven.BannerReview, 0)
			f.navigator.Navigate(f.gateway.Ref().PagePath())
			return
		}
		f.banners.ShowBanner(driven.BannerReview, 0)
	})

	f.queue.Start()
}

// Discard deletes the review draft and returns to the review request page.
func (f *ReviewForm) Discard(ctx context.Context) {
	f.gateway.Call(ctx, CallOptions{
		Path:    ReviewDraftActionPath(ReviewActionDelete),
		Buttons: f.buttons,
	})
}

// PublishReviewDraft publishes the review draft from the review banner.
func (f *ReviewForm) PublishReviewDraft(ctx context.Context) {
	f.bannerAction(ctx, ReviewActionPublish)
}

// DiscardReviewDraft deletes the review draft from the review banner.
func (f *ReviewForm) DiscardReviewDraft(ctx context.Context) {
	f.bannerAction(ctx, ReviewActionDelete)
}

func (f *ReviewForm) bannerAction(ctx context.Context, action string) {
	f.gateway.Call(ctx, CallOptions{
		Path:    ReviewDraftActionPath(action),
		Buttons: f.buttons,
		Success: func(driven.Payload) {
			f.banners.HideBanner(driven.BannerReview, 0)
			f.navigator.Navigate(f.gateway.Ref().PagePath())
		},
	})
}

// CommentEditorSaver edits one comment inside the review form.
type CommentEditorSaver struct {
	mu      sync.Mutex
	value   string
	saved   string
	gateway *RequestGateway
	path    string
	textKey string
	data    map[string]string
}

// NewCommentEditorSaver creates an editor saving to path. The value is sent
// under textKey ("text" when empty) together with data, which defaults to
// action=set.
func NewCommentEditorSaver(gateway *RequestGateway, path, textKey string, data map[string]string, initial string) *CommentEditorSaver {
	if textKey == "" {
		textKey = "text"
	}
	if data == nil {
		data = map[string]string{"action": "set"}
	}
	return &CommentEditorSaver{
		value:   initial,
		saved:   initial,
		gateway: gateway,
		path:    path,
		textKey: textKey,
		data:    data,
	}
}

// SetValue updates the editor's text.
func (e *CommentEditorSaver) SetValue(value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.value = value
}

// Dirty reports whether the text differs from the last saved text.
func (e *CommentEditorSaver) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value != e.saved
}

// Save persists the current text.
func (e *CommentEditorSaver) Save(ctx context.Context, done func(error)) {
	e.mu.Lock()
	value := e.value
	data := maps.Clone(e.data)
	e.mu.Unlock()
	data[e.textKey] = value

	e.gateway.Call(ctx, CallOptions{
		Path: e.path,
		Data: data,
		Success: func(driven.Payload) {
			e.mu.Lock()
			e.saved = value
			e.mu.Unlock()
			done(nil)
		},
		Error: func(err *model.TransportError) {
			done(err)
		},
	})
}
