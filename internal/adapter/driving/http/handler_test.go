package httphandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/rbdraft/internal/adapter/driven/pagestate"
	httphandler "github.com/ericfisherdev/rbdraft/internal/adapter/driving/http"
	"github.com/ericfisherdev/rbdraft/internal/application"
	"github.com/ericfisherdev/rbdraft/internal/domain/model"
	"github.com/ericfisherdev/rbdraft/internal/domain/port/driven"
)

// --- Fakes ---

// syncTransport completes every call before Invoke returns, following the
// transport contract: disable, banner+error or success, enable, complete.
type syncTransport struct {
	mu       sync.Mutex
	requests []driven.Request
	reporter driven.ErrorReporter
	respond  func(req driven.Request) (driven.Payload, *model.TransportError)
}

func (f *syncTransport) Invoke(_ context.Context, req driven.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	respond := f.respond
	f.mu.Unlock()

	if req.Buttons != nil {
		req.Buttons.SetEnabled(false)
	}

	payload := driven.Payload{"stat": json.RawMessage(`"ok"`)}
	var terr *model.TransportError
	if respond != nil {
		payload, terr = respond(req)
	}

	if terr != nil {
		terr.Prefix = req.ErrorPrefix
		f.reporter.ReportError(terr)
		if req.Error != nil {
			req.Error(terr)
		}
	} else if req.Success != nil {
		req.Success(payload)
	}

	if req.Buttons != nil {
		req.Buttons.SetEnabled(true)
	}
	if req.Complete != nil {
		req.Complete()
	}
}

func (f *syncTransport) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.Path)
	}
	return out
}

func (f *syncTransport) last() driven.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type mockDisplayStore struct {
	mu     sync.Mutex
	values map[model.FieldName]string
}

func (m *mockDisplayStore) SetDisplay(_ context.Context, _ int, field model.FieldName, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[field] = html
	return nil
}

func (m *mockDisplayStore) GetDisplay(_ context.Context, _ int, field model.FieldName) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[field], nil
}

func (m *mockDisplayStore) DraftDisplay(_ context.Context, _ int) (model.DraftDisplay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.DraftDisplay{
		TargetPeople: m.values[model.FieldTargetPeople],
		TargetGroups: m.values[model.FieldTargetGroups],
		Summary:      m.values[model.FieldSummary],
		Description:  m.values[model.FieldDescription],
	}, nil
}

func (m *mockDisplayStore) ListDisplays(_ context.Context, _ int) (map[model.FieldName]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[model.FieldName]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

type mockFragmentStore struct {
	mu        sync.Mutex
	fragments []driven.InjectedFragment
}

func (m *mockFragmentStore) Inject(_ context.Context, f model.Fragment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, commentID := range f.CommentIDs {
		part, ok := f.Parts[commentID]
		if !ok {
			continue
		}
		m.fragments = append(m.fragments, driven.InjectedFragment{
			ContainerID: f.ContainerID(commentID),
			Queue:       f.Queue,
			CommentID:   commentID,
			HTML:        part,
			InjectedAt:  time.Now(),
		})
	}
	return nil
}

func (m *mockFragmentStore) ListFragments(_ context.Context, queue string) ([]driven.InjectedFragment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []driven.InjectedFragment
	for _, f := range m.fragments {
		if f.Queue == queue {
			out = append(out, f)
		}
	}
	return out, nil
}

type mockFetcher struct {
	mu      sync.Mutex
	targets []string
}

func (m *mockFetcher) FetchFragment(_ context.Context, target string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets = append(m.targets, target)
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	prefix := u.Query().Get("container_prefix")
	var b strings.Builder
	for _, id := range strings.Split(path.Base(u.Path), ",") {
		fmt.Fprintf(&b, `<div id="%s_%s"><table class="sidebyside"><tr><td>line of %s</td></tr></table><script>x()</script></div>`,
			prefix, id, id)
	}
	return b.String(), nil
}

// --- Harness ---

type harness struct {
	server    *httptest.Server
	transport *syncTransport
	page      *pagestate.Page
	displays  *mockDisplayStore
	fragments *mockFragmentStore
	fetcher   *mockFetcher
	session   *application.PageSession
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ref := model.NewReviewRequestRef(42, "/")
	page := pagestate.New(ref.PagePath())

	h := &harness{
		transport: &syncTransport{reporter: page},
		page:      page,
		displays:  &mockDisplayStore{values: map[model.FieldName]string{}},
		fragments: &mockFragmentStore{},
		fetcher:   &mockFetcher{},
	}

	h.session = application.NewPageSession(application.SessionDeps{
		Ref:           ref,
		Transport:     h.transport,
		Fetcher:       h.fetcher,
		Displays:      h.displays,
		Fragments:     h.fragments,
		Navigator:     page,
		Alerter:       page,
		Banners:       page,
		DraftButtons:  page.Controls(httphandler.ControlsDraft),
		ReviewButtons: page.Controls(httphandler.ControlsReview),
		ReplyButtons:  page.Controls(httphandler.ControlsReply),
		Logger:        logger,
	})

	handler := httphandler.NewHandler(h.session, page, h.displays, h.fragments, logger)
	h.server = httptest.NewServer(httphandler.NewServeMux(handler, logger))
	t.Cleanup(h.server.Close)
	return h
}

func (h *harness) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, h.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (h *harness) pageState(t *testing.T) httphandler.PageResponse {
	t.Helper()
	resp := h.do(t, http.MethodGet, "/api/v1/page", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[httphandler.PageResponse](t, resp)
}

// echoField makes the server echo every saved field value back as a string.
func echoField(req driven.Request) (driven.Payload, *model.TransportError) {
	payload := driven.Payload{"stat": json.RawMessage(`"ok"`)}
	if field, ok := strings.CutPrefix(req.Path, "/reviewrequests/42/draft/set/"); ok {
		value, _ := json.Marshal(req.Data["value"])
		payload[strings.TrimSuffix(field, "/")] = value
	}
	return payload, nil
}

// --- Tests ---

func TestHealth(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/api/v1/health", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[httphandler.HealthResponse](t, resp).Status)
}

func TestSetField(t *testing.T) {
	h := newHarness(t)
	h.transport.respond = echoField

	resp := h.do(t, http.MethodPost, "/api/v1/fields/summary", `{"value":"Fix the frobnicator"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	req := h.transport.last()
	assert.Equal(t, "/reviewrequests/42/draft/set/summary/", req.Path)
	assert.Equal(t, "Fix the frobnicator", req.Data["value"])

	state := h.pageState(t)
	assert.Equal(t, "Fix the frobnicator", state.Fields["summary"])
	assert.Equal(t, []httphandler.BannerResponse{{Kind: "draft"}}, state.Banners)
	assert.True(t, state.Controls[httphandler.ControlsDraft])
}

func TestSetField_MissingValue(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/v1/fields/summary", `{}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, h.transport.paths())
}

func TestPublish_PreconditionFails(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/v1/publish", `{}`)

	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "There must be at least one reviewer or group before this review request can be published.", body["error"])
	assert.Empty(t, h.transport.paths())
	assert.Equal(t, []string{body["error"]}, h.pageState(t).Alerts)
}

func TestPublish_SavesDirtyFieldsThenPublishes(t *testing.T) {
	h := newHarness(t)
	h.transport.respond = echoField

	resp := h.do(t, http.MethodPost, "/api/v1/publish", `{"dirty":[
		{"field":"target_groups","values":["devs"]},
		{"field":"summary","value":"Summary"},
		{"field":"description","value":"Description"}
	]}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	assert.Equal(t, []string{
		"/reviewrequests/42/draft/set/target_groups/",
		"/reviewrequests/42/draft/set/summary/",
		"/reviewrequests/42/draft/set/description/",
		"/reviewrequests/42/publish/",
	}, h.transport.paths())

	state := h.pageState(t)
	assert.Equal(t, "/r/42/", state.Location)
	assert.Equal(t, 1, state.Navigations)
	assert.Equal(t, "idle", state.PublishState)
}

func TestSeedFields_PublishExistingDraft(t *testing.T) {
	h := newHarness(t)
	h.transport.respond = echoField

	resp := h.do(t, http.MethodPut, "/api/v1/fields", `{"fields":{
		"target_groups":"<a href=\"/groups/devs/\">devs</a>",
		"summary":"Existing summary",
		"description":"Existing description"
	}}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, h.transport.paths())

	resp = h.do(t, http.MethodPost, "/api/v1/publish", `{"dirty":[
		{"field":"testing_done","value":"Unit tests pass"}
	]}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	assert.Equal(t, []string{
		"/reviewrequests/42/draft/set/testing_done/",
		"/reviewrequests/42/publish/",
	}, h.transport.paths())

	state := h.pageState(t)
	assert.Empty(t, state.Alerts)
	assert.Equal(t, "Existing summary", state.Fields["summary"])
}

func TestSeedFields_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"fields":`},
		{"no fields", `{}`},
		{"empty field name", `{"fields":{"":"x"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			resp := h.do(t, http.MethodPut, "/api/v1/fields", tt.body)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestPublish_FieldSaveErrorAborts(t *testing.T) {
	h := newHarness(t)
	h.transport.respond = func(req driven.Request) (driven.Payload, *model.TransportError) {
		if strings.HasSuffix(req.Path, "/summary/") {
			return nil, &model.TransportError{Message: "Permission denied", Status: http.StatusForbidden}
		}
		return echoField(req)
	}

	resp := h.do(t, http.MethodPost, "/api/v1/publish", `{"dirty":[
		{"field":"summary","value":"Summary"},
		{"field":"description","value":"Description"}
	]}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	assert.NotContains(t, h.transport.paths(), "/reviewrequests/42/publish/")

	state := h.pageState(t)
	assert.Equal(t, "idle", state.PublishState)
	assert.Equal(t, 0, state.PendingSaves)
	assert.Equal(t, "Saving the draft has failed due to a server error: Permission denied (HTTP 403)", state.Error)

	resp = h.do(t, http.MethodDelete, "/api/v1/page/error", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, h.pageState(t).Error)
}

func TestLifecycleRoutes(t *testing.T) {
	tests := []struct {
		route    string
		wantPath string
		wantLoc  string
	}{
		{"/api/v1/draft/discard", "/reviewrequests/42/draft/discard/", "/r/42/"},
		{"/api/v1/close/discarded", "/reviewrequests/42/close/discarded/", "/r/42/"},
		{"/api/v1/close/submitted", "/reviewrequests/42/close/submitted/", "/r/42/"},
		{"/api/v1/reopen", "/reviewrequests/42/reopen/", "/r/42/"},
		{"/api/v1/delete", "/reviewrequests/42/delete/", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			h := newHarness(t)

			resp := h.do(t, http.MethodPost, tt.route, "")
			require.Equal(t, http.StatusAccepted, resp.StatusCode)

			assert.Equal(t, []string{tt.wantPath}, h.transport.paths())
			assert.Nil(t, h.transport.last().Data)
			assert.Equal(t, tt.wantLoc, h.pageState(t).Location)
		})
	}
}

const diffBlock = `{"id":"b1","section_id":"s1","diff":{"revision":3,"file_id":7,"begin_line":12,"num_lines":2},
	"comments":[{"author":"alice","url":"/r/42/#c1","comment_id":1,"text":"**nit**"}]}`

func TestDialog_OpenEditSave(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/v1/blocks", diffBlock)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	block := decode[httphandler.BlockResponse](t, resp)
	assert.Equal(t, "/diff/3/file/7/line/12/comments/", block.CommentPath)
	assert.Equal(t, "comment", block.Type)

	resp = h.do(t, http.MethodPost, "/api/v1/dialog/open", `{"block_id":"b1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[httphandler.DialogResponse](t, resp)
	assert.Equal(t, "open_clean", view.State)
	assert.Equal(t, 660, view.Width)
	assert.Equal(t, 250, view.Height)
	require.Len(t, view.Comments, 1)
	assert.Equal(t, "odd", view.Comments[0].Class)
	assert.Contains(t, view.Comments[0].HTML, "<strong>nit</strong>")
	assert.Equal(t, "/r/42/?reply_id=1&reply_type=comment", view.Comments[0].ReplyURL)

	resp = h.do(t, http.MethodPost, "/api/v1/dialog/text", `{"value":"Needs a test"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decode[httphandler.DialogResponse](t, resp)
	assert.Equal(t, "open_dirty", view.State)
	assert.True(t, view.SaveEnabled)
	assert.Equal(t, "This comment has unsaved changes.", view.Status)

	resp = h.do(t, http.MethodGet, "/api/v1/dialog/unload", "")
	assert.True(t, decode[httphandler.UnloadResponse](t, resp).Block)

	resp = h.do(t, http.MethodPost, "/api/v1/dialog/save", `{"value":"Needs a test"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	req := h.transport.last()
	assert.Equal(t, "/reviewrequests/42/diff/3/file/7/line/12/comments/", req.Path)
	assert.Equal(t, map[string]string{"action": "set", "text": "Needs a test", "num_lines": "2"}, req.Data)

	resp = h.do(t, http.MethodGet, "/api/v1/dialog", "")
	assert.Equal(t, "closed", decode[httphandler.DialogResponse](t, resp).State)

	resp = h.do(t, http.MethodGet, "/api/v1/blocks/b1", "")
	saved := decode[httphandler.BlockResponse](t, resp)
	assert.Equal(t, "Needs a test", saved.Text)
	assert.True(t, saved.CanDelete)

	assert.Contains(t, h.pageState(t).Banners, httphandler.BannerResponse{Kind: "review"})
}

func TestDialog_SwitchingDiscardsEmptyBlock(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/api/v1/blocks",
		`{"id":"b1","diff":{"revision":1,"file_id":1,"begin_line":1}}`).StatusCode)
	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/api/v1/blocks",
		`{"id":"b2","screenshot":{"screenshot_id":5,"x":1,"y":2,"width":30,"height":40}}`).StatusCode)

	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/v1/dialog/open", `{"block_id":"b1"}`).StatusCode)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/v1/dialog/open", `{"block_id":"b2"}`).StatusCode)

	resp := h.do(t, http.MethodGet, "/api/v1/blocks", "")
	assert.Equal(t, []string{"b2"}, decode[[]string](t, resp))
	assert.Empty(t, h.transport.paths())

	resp = h.do(t, http.MethodGet, "/api/v1/blocks/b2", "")
	assert.Equal(t, "/s/5/comments/30x40+1+2/", decode[httphandler.BlockResponse](t, resp).CommentPath)
}

func TestDialog_Errors(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/v1/dialog/text", `{"value":"x"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/api/v1/dialog/open", `{"block_id":"missing"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/api/v1/blocks", `{"id":"b1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/api/v1/blocks", diffBlock).StatusCode)
	resp = h.do(t, http.MethodPost, "/api/v1/blocks", diffBlock)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDialog_KeyEscapeCancels(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/api/v1/blocks", diffBlock).StatusCode)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/v1/dialog/open", `{"block_id":"b1"}`).StatusCode)

	resp := h.do(t, http.MethodPost, "/api/v1/dialog/key", `{"key":"Escape"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[httphandler.KeyResponse](t, resp)
	assert.False(t, got.Propagate)
	assert.Equal(t, "closed", got.Dialog.State)

	_, ok := h.session.Block("b1")
	assert.False(t, ok)
}

func TestReview_SaveWithEditors(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/v1/review/editors",
		`{"id":"e1","path":"/diff/3/file/7/line/12/comments/","text":"old"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = h.do(t, http.MethodPut, "/api/v1/review/editors/e1", `{"value":"new"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[httphandler.ReviewEditorResponse](t, resp).Dirty)

	resp = h.do(t, http.MethodPost, "/api/v1/review/save", `{"ship_it":true,"body_top":"Looks good"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	assert.Equal(t, []string{
		"/reviewrequests/42/diff/3/file/7/line/12/comments/",
		"/reviewrequests/42/reviews/draft/save/",
	}, h.transport.paths())
	assert.Equal(t, map[string]string{"shipit": "1", "body_top": "Looks good", "body_bottom": ""}, h.transport.last().Data)
	assert.Contains(t, h.pageState(t).Banners, httphandler.BannerResponse{Kind: "review"})
}

func TestReview_EditorNotFound(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPut, "/api/v1/review/editors/nope", `{"value":"x"}`)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReplies_AddSavePublish(t *testing.T) {
	h := newHarness(t)
	base := "/api/v1/reviews/9/replies/comment/55"

	resp := h.do(t, http.MethodPost, base+"/add", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	editorID := decode[httphandler.ReplyEditorResponse](t, resp).EditorID
	assert.Equal(t, "yourcomment_55-draft", editorID)

	resp = h.do(t, http.MethodPost, base+"/save", `{"editor_id":"yourcomment_55-draft","value":"Done."}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	req := h.transport.last()
	assert.Equal(t, "/reviewrequests/42/reviews/9/replies/draft/", req.Path)
	assert.Equal(t, map[string]string{"value": "Done.", "id": "55", "type": "comment", "review_id": "9"}, req.Data)
	assert.Contains(t, h.pageState(t).Banners, httphandler.BannerResponse{Kind: "reply", ReviewID: 9})

	resp = h.do(t, http.MethodPost, base+"/publish", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "/reviewrequests/42/reviews/9/replies/draft/save/", h.transport.last().Path)
}

func TestReplies_InvalidReviewID(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/v1/reviews/abc/replies/comment/55/add", "")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFragments_EnqueueFlushList(t *testing.T) {
	h := newHarness(t)

	for _, body := range []string{
		`{"comment_id":"101","revision":3,"file_id":7}`,
		`{"comment_id":"102","revision":3,"file_id":7}`,
		`{"comment_id":"103","revision":3,"file_id":8}`,
	} {
		resp := h.do(t, http.MethodPost, "/api/v1/fragments/diff_fragments", body)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
	}

	resp := h.do(t, http.MethodPost, "/api/v1/fragments/diff_fragments/flush", `{"container_prefix":"comment_container"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	flushed := decode[httphandler.FlushResponse](t, resp)
	assert.Equal(t, []string{
		"/r/42/fragments/diff-comments/101,102/?queue=diff_fragments&container_prefix=comment_container",
		"/r/42/fragments/diff-comments/103/?queue=diff_fragments&container_prefix=comment_container",
	}, flushed.Targets)

	require.Eventually(t, h.session.Fragments.Idle, time.Second, 5*time.Millisecond)

	resp = h.do(t, http.MethodGet, "/api/v1/fragments/diff_fragments", "")
	fragments := decode[[]httphandler.FragmentResponse](t, resp)
	require.Len(t, fragments, 3)
	assert.Equal(t, "comment_container_101", fragments[0].ContainerID)
	assert.Equal(t, "comment_container_103", fragments[2].ContainerID)
	assert.NotContains(t, fragments[0].HTML, "<script>")
	assert.Contains(t, fragments[0].HTML, "line of 101")
	assert.Contains(t, fragments[1].HTML, "line of 102")
	assert.NotEqual(t, fragments[0].HTML, fragments[1].HTML, "comments of one batch get their own markup")

	resp = h.do(t, http.MethodPost, "/api/v1/fragments/diff_fragments/flush", `{"container_prefix":"comment_container"}`)
	assert.Empty(t, decode[httphandler.FlushResponse](t, resp).Targets)
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	// A nil session panics on the first dereference.
	handler := httphandler.NewHandler(nil, pagestate.New("/"), &mockDisplayStore{}, &mockFragmentStore{}, logger)
	server := httptest.NewServer(httphandler.NewServeMux(handler, logger))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/api/v1/dialog")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
