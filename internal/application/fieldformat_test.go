package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/rbdraft/internal/domain/model"
)

func TestFieldFormatter_TargetPeopleAndGroups(t *testing.T) {
	f := NewFieldFormatter("/", "")

	people, err := f.Format(model.FieldTargetPeople, rawJSON([]map[string]string{
		{"username": "alice", "url": "/users/alice/"},
		{"username": "bob", "url": "/users/bob/"},
	}))
	require.NoError(t, err)
	assert.Equal(t, `<a href="/users/alice/">alice</a>, <a href="/users/bob/">bob</a>`, people)

	groups, err := f.Format(model.FieldTargetGroups, rawJSON([]map[string]string{
		{"name": "devs", "url": "/groups/devs/"},
	}))
	require.NoError(t, err)
	assert.Equal(t, `<a href="/groups/devs/">devs</a>`, groups)
}

func TestFieldFormatter_BugsClosed(t *testing.T) {
	t.Run("with bug tracker", func(t *testing.T) {
		f := NewFieldFormatter("/", "https://bugs.example.com/show?id=%s")

		out, err := f.Format(model.FieldBugsClosed, rawJSON([]any{"#12", 34}))
		require.NoError(t, err)
		assert.Contains(t, out, `href="https://bugs.example.com/show?id=12"`)
		assert.Contains(t, out, `href="https://bugs.example.com/show?id=34"`)
		assert.Contains(t, out, ">#12</a>, <a")
	})

	t.Run("without bug tracker", func(t *testing.T) {
		f := NewFieldFormatter("/", "")

		out, err := f.Format(model.FieldBugsClosed, rawJSON([]any{12, 34}))
		require.NoError(t, err)
		assert.Equal(t, "12, 34", out)
	})
}

func TestFieldFormatter_Linkify(t *testing.T) {
	f := NewFieldFormatter("/reviews/", "https://bugs.example.com/%s")

	tests := []struct {
		name     string
		in       string
		contains []string
		excludes []string
	}{
		{
			name:     "url",
			in:       "see https://example.com/a?b=c for more",
			contains: []string{`<a href="https://example.com/a?b=c">`},
		},
		{
			name:     "review request path",
			in:       "follows /r/17/diff/ closely",
			contains: []string{`<a href="/reviews/r/17/diff/">/r/17/diff/</a>`},
		},
		{
			name:     "bug reference",
			in:       "fixes bug 99",
			contains: []string{`<a href="https://bugs.example.com/99">bug 99</a>`},
		},
		{
			name:     "markup is escaped",
			in:       "<script>alert(1)</script>",
			excludes: []string{"<script>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := f.Linkify(tt.in)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}

func TestFieldFormatter_IdentityForUnhandledFields(t *testing.T) {
	f := NewFieldFormatter("/", "")

	assert.False(t, HasHandler(model.FieldSummary))
	assert.True(t, HasHandler(model.FieldDescription))

	out, err := f.Format(model.FieldSummary, rawJSON("a < b"))
	require.NoError(t, err)
	assert.Equal(t, "a &lt; b", out)

	out, err = f.Format(model.FieldBranch, rawJSON([]string{"x", "y"}))
	require.NoError(t, err)
	assert.Equal(t, "x, y", out)
}

func TestFieldFormatter_HandlerError(t *testing.T) {
	f := NewFieldFormatter("/", "")

	_, err := f.Format(model.FieldTargetGroups, rawJSON("not a list"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target_groups")
}

func TestIsBlankMarkup(t *testing.T) {
	assert.True(t, isBlankMarkup(""))
	assert.True(t, isBlankMarkup("  <p> </p>\n"))
	assert.False(t, isBlankMarkup("<b>hi</b>"))
}
