package driven

import "github.com/ericfisherdev/rbdraft/internal/domain/model"

// BannerKind names one of the page's draft banners.
type BannerKind string

const (
	BannerDraft  BannerKind = "draft"  // Review request draft banner.
	BannerReview BannerKind = "review" // Pending review banner.
	BannerReply  BannerKind = "reply"  // Reply draft banner on a review; keyed by review ID.
)

// Navigator changes the page location.
type Navigator interface {
	Navigate(path string)
}

// Alerter shows a blocking, user-visible message.
type Alerter interface {
	Alert(message string)
}

// BannerPresenter shows and hides draft banners. reviewID is zero for
// banners that are not tied to a review.
type BannerPresenter interface {
	ShowBanner(kind BannerKind, reviewID int)
	HideBanner(kind BannerKind, reviewID int)
}

// ErrorReporter shows the shared error banner for a failed server call.
type ErrorReporter interface {
	ReportError(err *model.TransportError)
}
