package model

import (
	"strconv"
	"strings"
)

// ReviewRequestRef identifies the review request a page session operates on.
// It is immutable; every API path the session produces is a suffix of APIPath.
type ReviewRequestRef struct {
	ID       int
	SiteRoot string // Always ends with "/". Defaults to "/".
}

// NewReviewRequestRef normalizes siteRoot so it begins and ends with a slash.
func NewReviewRequestRef(id int, siteRoot string) ReviewRequestRef {
	if !strings.HasPrefix(siteRoot, "/") {
		siteRoot = "/" + siteRoot
	}
	if !strings.HasSuffix(siteRoot, "/") {
		siteRoot += "/"
	}
	return ReviewRequestRef{ID: id, SiteRoot: siteRoot}
}

// APIPath returns the review request's path relative to the JSON API tree.
func (r ReviewRequestRef) APIPath() string {
	return "/reviewrequests/" + strconv.Itoa(r.ID)
}

// PagePath returns the canonical page of the review request, e.g. "/r/42/".
func (r ReviewRequestRef) PagePath() string {
	return r.SiteRoot + "r/" + strconv.Itoa(r.ID) + "/"
}
