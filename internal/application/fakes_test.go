package application

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/rbdraft/internal/domain/model"
	"github.com/ericfisherdev/rbdraft/internal/domain/port/driven"
)

// --- Fake implementations shared by application tests ---

// fakeTransport records every request and leaves resolution to the test.
type fakeTransport struct {
	mu       sync.Mutex
	requests []driven.Request
}

func (t *fakeTransport) Invoke(_ context.Context, req driven.Request) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, req)
}

func (t *fakeTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

func (t *fakeTransport) request(i int) driven.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.requests[i]
}

func (t *fakeTransport) paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.requests))
	for _, r := range t.requests {
		out = append(out, r.Path)
	}
	return out
}

// succeed resolves request i the way the real transport does on success.
func (t *fakeTransport) succeed(i int, payload driven.Payload) {
	req := t.request(i)
	if req.Success != nil {
		req.Success(payload)
	}
	if req.Complete != nil {
		req.Complete()
	}
}

// fail resolves request i as a server failure.
func (t *fakeTransport) fail(i int, status int, msg string) {
	req := t.request(i)
	err := &model.TransportError{Prefix: req.ErrorPrefix, Status: status, Message: msg}
	if req.Error != nil {
		req.Error(err)
	}
	if req.Complete != nil {
		req.Complete()
	}
}

type bannerCall struct {
	Show     bool
	Kind     driven.BannerKind
	ReviewID int
}

// fakePage records navigation, alerts and banner changes.
type fakePage struct {
	mu          sync.Mutex
	navigations []string
	alerts      []string
	banners     []bannerCall
}

func (p *fakePage) Navigate(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, path)
}

func (p *fakePage) Alert(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, message)
}

func (p *fakePage) ShowBanner(kind driven.BannerKind, reviewID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.banners = append(p.banners, bannerCall{Show: true, Kind: kind, ReviewID: reviewID})
}

func (p *fakePage) HideBanner(kind driven.BannerKind, reviewID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.banners = append(p.banners, bannerCall{Show: false, Kind: kind, ReviewID: reviewID})
}

type fakeControls struct{}

func (fakeControls) SetEnabled(bool) {}

// mockDisplayStore is an in-memory FieldDisplayStore.
type mockDisplayStore struct {
	mu       sync.Mutex
	displays map[model.FieldName]string
	err      error
}

func newMockDisplayStore() *mockDisplayStore {
	return &mockDisplayStore{displays: make(map[model.FieldName]string)}
}

func (m *mockDisplayStore) SetDisplay(_ context.Context, _ int, field model.FieldName, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.displays[field] = html
	return nil
}

func (m *mockDisplayStore) GetDisplay(_ context.Context, _ int, field model.FieldName) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.displays[field], nil
}

func (m *mockDisplayStore) DraftDisplay(_ context.Context, _ int) (model.DraftDisplay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return model.DraftDisplay{}, m.err
	}
	return model.DraftDisplay{
		TargetPeople: m.displays[model.FieldTargetPeople],
		TargetGroups: m.displays[model.FieldTargetGroups],
		Summary:      m.displays[model.FieldSummary],
		Description:  m.displays[model.FieldDescription],
	}, nil
}

func (m *mockDisplayStore) ListDisplays(_ context.Context, _ int) (map[model.FieldName]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[model.FieldName]string, len(m.displays))
	for k, v := range m.displays {
		out[k] = v
	}
	return out, nil
}

func (m *mockDisplayStore) publishable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.displays[model.FieldTargetPeople] = "alice"
	m.displays[model.FieldSummary] = "Fix the thing"
	m.displays[model.FieldDescription] = "Details"
}

// recordingListener collects dialog events in order.
type recordingListener struct {
	mu     sync.Mutex
	events []DialogEvent
}

func (l *recordingListener) HandleDialogEvent(ev DialogEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *recordingListener) all() []DialogEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]DialogEvent(nil), l.events...)
}

func (l *recordingListener) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// --- Helper functions ---

var testRef = model.NewReviewRequestRef(42, "/")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGateway() (*RequestGateway, *fakeTransport, *fakePage) {
	transport := &fakeTransport{}
	page := &fakePage{}
	return NewRequestGateway(testRef, transport, page), transport, page
}

func rawJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
