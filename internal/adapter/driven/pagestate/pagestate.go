// Package pagestate keeps the page-level UI effects of a session (location,
// alerts, banners, error banner, button enablement) in memory so the local
// API can report them to the rendering client.
package pagestate

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ericfisherdev/rbdraft/internal/domain/model"
	"github.com/ericfisherdev/rbdraft/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.Navigator       = (*Page)(nil)
	_ driven.Alerter         = (*Page)(nil)
	_ driven.BannerPresenter = (*Page)(nil)
	_ driven.ErrorReporter   = (*Page)(nil)
)

// Banner is a visible draft banner.
type Banner struct {
	Kind     driven.BannerKind `json:"kind"`
	ReviewID int               `json:"review_id,omitempty"`
}

// Snapshot is the state of the page at one point in time.
type Snapshot struct {
	Location    string          `json:"location"`
	Navigations int             `json:"navigations"`
	Alerts      []string        `json:"alerts"`
	Banners     []Banner        `json:"banners"`
	Error       string          `json:"error,omitempty"`
	Controls    map[string]bool `json:"controls"`
}

// Page records UI effects. The zero value is not usable; call New.
type Page struct {
	mu          sync.Mutex
	location    string
	navigations int
	alerts      []string
	banners     []Banner
	lastError   string
	controls    map[string]*Controls
}

// New creates a page located at location.
func New(location string) *Page {
	return &Page{
		location: location,
		controls: make(map[string]*Controls),
	}
}

// Navigate records a location change.
func (p *Page) Navigate(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.location = path
	p.navigations++
}

// Alert records a blocking message.
func (p *Page) Alert(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, message)
}

// ShowBanner adds a banner unless an identical one is already shown.
func (p *Page) ShowBanner(kind driven.BannerKind, reviewID int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b := Banner{Kind: kind, ReviewID: reviewID}
	if !slices.Contains(p.banners, b) {
		p.banners = append(p.banners, b)
	}
}

// HideBanner removes a banner.
func (p *Page) HideBanner(kind driven.BannerKind, reviewID int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b := Banner{Kind: kind, ReviewID: reviewID}
	p.banners = slices.DeleteFunc(p.banners, func(x Banner) bool { return x == b })
}

// ReportError shows err in the error banner.
func (p *Page) ReportError(err *model.TransportError) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastError = err.Error()
}

// DismissError clears the error banner.
func (p *Page) DismissError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastError = ""
}

// Controls returns the named control set, creating it enabled.
func (p *Page) Controls(name string) *Controls {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.controls[name]
	if !ok {
		c = &Controls{name: name, enabled: true}
		p.controls[name] = c
	}
	return c
}

// Snapshot returns a copy of the current page state.
func (p *Page) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Snapshot{
		Location:    p.location,
		Navigations: p.navigations,
		Alerts:      slices.Clone(p.alerts),
		Banners:     slices.Clone(p.banners),
		Error:       p.lastError,
		Controls:    make(map[string]bool, len(p.controls)),
	}
	if s.Alerts == nil {
		s.Alerts = []string{}
	}
	if s.Banners == nil {
		s.Banners = []Banner{}
	}
	for name, c := range p.controls {
		s.Controls[name] = c.Enabled()
	}
	return s
}

// Controls is a named set of buttons. Nested disables are counted so that
// overlapping requests sharing a set re-enable it only when the last ends.
type Controls struct {
	mu       sync.Mutex
	name     string
	enabled  bool
	disables int
}

var _ driven.Controls = (*Controls)(nil)

// SetEnabled enables or disables the set.
func (c *Controls) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if enabled {
		if c.disables > 0 {
			c.disables--
		}
	} else {
		c.disables++
	}
	c.enabled = c.disables == 0
}

// Enabled reports whether the set is enabled.
func (c *Controls) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

func (c *Controls) String() string {
	return fmt.Sprintf("%s(enabled=%t)", c.name, c.Enabled())
}
