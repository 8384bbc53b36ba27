package model

import (
	"strconv"
	"strings"
)

// BlockType distinguishes diff-line comment blocks from screenshot regions.
// The values match the reply_type query parameter the server expects.
type BlockType string

const (
	BlockTypeDiffLine   BlockType = "comment"
	BlockTypeScreenshot BlockType = "screenshot_comment"
)

// PriorComment is an already-published comment shown alongside a block.
type PriorComment struct {
	Author    string
	URL       string
	CommentID int64
	Text      string
}

// DiffAnchor locates a comment block on a range of diff lines.
type DiffAnchor struct {
	Key       FragmentRequestKey
	BeginLine int
	NumLines  int
}

// ScreenshotAnchor locates a comment block on a screenshot region.
type ScreenshotAnchor struct {
	ScreenshotID int
	X, Y         int
	Width        int
	Height       int
}

// CommentBlock is one diff-line or screenshot-region comment thread.
// The page section that created it owns it; the comment dialog only borrows it.
type CommentBlock struct {
	ID        string
	SectionID string
	Type      BlockType
	Text      string // Current draft text, empty when nothing is drafted.
	Comments  []PriorComment
	CanDelete bool

	Diff       *DiffAnchor
	Screenshot *ScreenshotAnchor
}

// NewDiffCommentBlock creates an empty block anchored on diff lines.
func NewDiffCommentBlock(id, sectionID string, anchor DiffAnchor) *CommentBlock {
	if anchor.NumLines < 1 {
		anchor.NumLines = 1
	}
	return &CommentBlock{ID: id, SectionID: sectionID, Type: BlockTypeDiffLine, Diff: &anchor}
}

// NewScreenshotCommentBlock creates an empty block anchored on a screenshot region.
func NewScreenshotCommentBlock(id, sectionID string, anchor ScreenshotAnchor) *CommentBlock {
	return &CommentBlock{ID: id, SectionID: sectionID, Type: BlockTypeScreenshot, Screenshot: &anchor}
}

// CommentPath returns the block's comment path relative to the review request.
func (b *CommentBlock) CommentPath() string {
	switch {
	case b.Diff != nil:
		return b.Diff.Key.CommentPath(b.Diff.BeginLine)
	case b.Screenshot != nil:
		return ScreenshotCommentPath(b.Screenshot.ScreenshotID,
			b.Screenshot.X, b.Screenshot.Y, b.Screenshot.Width, b.Screenshot.Height)
	default:
		return ""
	}
}

// SaveData returns the form data for persisting text on this block.
func (b *CommentBlock) SaveData(text string) map[string]string {
	data := map[string]string{"action": "set", "text": text}
	if b.Diff != nil {
		data["num_lines"] = strconv.Itoa(b.Diff.NumLines)
	}
	return data
}

// DeleteData returns the form data for deleting this block's draft comment.
func (b *CommentBlock) DeleteData() map[string]string {
	data := map[string]string{"action": "delete"}
	if b.Diff != nil {
		data["num_lines"] = strconv.Itoa(b.Diff.NumLines)
	}
	return data
}

// ScreenshotCommentPath builds "/s/<id>/comments/<w>x<h>+<x>+<y>/".
func ScreenshotCommentPath(screenshotID, x, y, width, height int) string {
	var b strings.Builder
	b.WriteString("/s/")
	b.WriteString(strconv.Itoa(screenshotID))
	b.WriteString("/comments/")
	b.WriteString(strconv.Itoa(width))
	b.WriteByte('x')
	b.WriteString(strconv.Itoa(height))
	b.WriteByte('+')
	b.WriteString(strconv.Itoa(x))
	b.WriteByte('+')
	b.WriteString(strconv.Itoa(y))
	b.WriteByte('/')
	return b.String()
}
