package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ericfisherdev/rbdraft/internal/domain/model"
)

var (
	urlPattern          = regexp.MustCompile(`\b([a-z]+://[-A-Za-z0-9+&@#/%?=~_()|!:,.;]*([-A-Za-z0-9+@#/%=~_();|]|))`)
	trailingEntity      = regexp.MustCompile(`^(.*)(&[a-z]+;)$`)
	reviewRequestPath   = regexp.MustCompile(`(^|\s|&lt;)/(r/\d+(/[-A-Za-z0-9+&@#/%?=~_()|!:,.;]*[-A-Za-z0-9+&@#/%=~_()|])?)`)
	bugReferencePattern = regexp.MustCompile(`(?i)\b(bug|issue) (#[^.\s]+|#?\d+)`)

	stripTagsPolicy = bluemonday.StrictPolicy()
)

// formatFunc renders a field's canonical server value for display.
type formatFunc func(f *FieldFormatter, raw json.RawMessage) (string, error)

// completionHandlers is the closed dispatch table of field completion
// handlers. Fields not listed here are displayed unchanged.
var completionHandlers = map[model.FieldName]formatFunc{
	model.FieldBugsClosed:   formatBugsClosed,
	model.FieldTargetGroups: formatTargetGroups,
	model.FieldTargetPeople: formatTargetPeople,
	model.FieldDescription:  formatLinkified,
	model.FieldTestingDone:  formatLinkified,
}

// FieldFormatter turns accepted field values into display HTML.
type FieldFormatter struct {
	siteRoot      string
	bugTrackerURL string // Contains "%s" where the bug ID goes. Empty disables bug links.
	policy        *bluemonday.Policy
}

// NewFieldFormatter creates a formatter for pages served under siteRoot.
func NewFieldFormatter(siteRoot, bugTrackerURL string) *FieldFormatter {
	policy := bluemonday.NewPolicy()
	policy.AllowStandardURLs()
	policy.RequireNoFollowOnLinks(false)
	policy.AllowAttrs("href").OnElements("a")

	return &FieldFormatter{
		siteRoot:      siteRoot,
		bugTrackerURL: bugTrackerURL,
		policy:        policy,
	}
}

// HasHandler reports whether field has a registered completion handler.
func HasHandler(field model.FieldName) bool {
	_, ok := completionHandlers[field]
	return ok
}

// Format renders raw, the value the server returned under the field's own
// key, for display.
func (f *FieldFormatter) Format(field model.FieldName, raw json.RawMessage) (string, error) {
	handler, ok := completionHandlers[field]
	if !ok {
		handler = formatIdentity
	}

	out, err := handler(f, raw)
	if err != nil {
		return "", fmt.Errorf("format field %q: %w", field, err)
	}
	return f.policy.Sanitize(out), nil
}

// FormatPlain renders raw without any field-specific handler.
func (f *FieldFormatter) FormatPlain(raw json.RawMessage) (string, error) {
	out, err := formatIdentity(f, raw)
	if err != nil {
		return "", err
	}
	return f.policy.Sanitize(out), nil
}

// Sanitize cleans display HTML that was rendered elsewhere, such as the
// field values the page was loaded with.
func (f *FieldFormatter) Sanitize(display string) string {
	return f.policy.Sanitize(display)
}

// Linkify escapes text and turns URLs, "/r/<n>/" paths and bug references
// into hyperlinks.
func (f *FieldFormatter) Linkify(text string) string {
	return f.policy.Sanitize(f.linkify(text))
}

func (f *FieldFormatter) linkify(text string) string {
	text = html.EscapeString(text)

	text = urlPattern.ReplaceAllStringFunc(text, func(url string) string {
		// An escaped entity may end up glued to the URL; keep it outside the link.
		extra := ""
		if parts := trailingEntity.FindStringSubmatch(url); parts != nil {
			url, extra = parts[1], parts[2]
		}
		return `<a href="` + url + `">` + url + `</a>` + extra
	})

	text = reviewRequestPath.ReplaceAllString(text, `${1}<a href="`+f.siteRoot+`${2}">/${2}</a>`)

	if f.bugTrackerURL != "" {
		text = bugReferencePattern.ReplaceAllStringFunc(text, func(match string) string {
			groups := bugReferencePattern.FindStringSubmatch(match)
			return `<a href="` + f.bugURL(groups[2]) + `">` + match + `</a>`
		})
	}

	return text
}

func (f *FieldFormatter) bugURL(bugID string) string {
	return strings.ReplaceAll(f.bugTrackerURL, "%s", strings.TrimPrefix(bugID, "#"))
}

// urlizeList renders items as a comma-separated list of hyperlinks.
func urlizeList[T any](items []T, urlFunc, textFunc func(T) string) string {
	var b strings.Builder
	for i, item := range items {
		b.WriteString(`<a href="`)
		b.WriteString(html.EscapeString(urlFunc(item)))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(textFunc(item)))
		b.WriteString(`</a>`)
		if i < len(items)-1 {
			b.WriteString(", ")
		}
	}
	return b.String()
}

func formatBugsClosed(f *FieldFormatter, raw json.RawMessage) (string, error) {
	bugs, err := decodeStringList(raw)
	if err != nil {
		return "", err
	}

	if f.bugTrackerURL == "" {
		return html.EscapeString(strings.Join(bugs, ", ")), nil
	}

	return urlizeList(bugs, f.bugURL, func(bug string) string { return bug }), nil
}

type groupJSON struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func formatTargetGroups(_ *FieldFormatter, raw json.RawMessage) (string, error) {
	var groups []groupJSON
	if err := json.Unmarshal(raw, &groups); err != nil {
		return "", err
	}
	return urlizeList(groups,
		func(g groupJSON) string { return g.URL },
		func(g groupJSON) string { return g.Name },
	), nil
}

type personJSON struct {
	Username string `json:"username"`
	URL      string `json:"url"`
}

func formatTargetPeople(_ *FieldFormatter, raw json.RawMessage) (string, error) {
	var people []personJSON
	if err := json.Unmarshal(raw, &people); err != nil {
		return "", err
	}
	return urlizeList(people,
		func(p personJSON) string { return p.URL },
		func(p personJSON) string { return p.Username },
	), nil
}

func formatLinkified(f *FieldFormatter, raw json.RawMessage) (string, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", err
	}
	return f.linkify(text), nil
}

// formatIdentity displays the accepted value as-is. Lists are comma-joined.
func formatIdentity(_ *FieldFormatter, raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		items, err := decodeStringList(trimmed)
		if err != nil {
			return "", err
		}
		return html.EscapeString(strings.Join(items, ", ")), nil
	}

	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return html.EscapeString(string(trimmed)), nil
	}
	return html.EscapeString(text), nil
}

// decodeStringList decodes a JSON array whose items are strings or numbers.
func decodeStringList(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case json.Number:
			out = append(out, v.String())
		default:
			return nil, fmt.Errorf("unexpected list item %v", item)
		}
	}
	return out, nil
}

// isBlankMarkup reports whether s is empty once markup is stripped and
// surrounding whitespace trimmed.
func isBlankMarkup(s string) bool {
	return strings.TrimSpace(stripTagsPolicy.Sanitize(s)) == ""
}
