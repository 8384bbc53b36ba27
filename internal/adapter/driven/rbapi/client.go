// Package rbapi implements the Transport and FragmentFetcher ports against a
// Review Board server's JSON API.
package rbapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/rbdraft/internal/domain/model"
	"github.com/ericfisherdev/rbdraft/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.Transport       = (*Client)(nil)
	_ driven.FragmentFetcher = (*Client)(nil)
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// Client issues Review Board JSON API calls. Each Invoke runs on its own
// goroutine; Wait blocks until all of them have delivered their callbacks.
type Client struct {
	api       *http.Client
	fragments *http.Client
	base      *url.URL
	apiPrefix string
	reporter  driven.ErrorReporter
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// NewClient creates a client for the server at serverURL whose site lives
// under siteRoot. Fragment GETs go through an in-memory ETag cache. Failed
// calls are shown through reporter before the caller's Error callback runs.
// A nil logger means slog.Default().
func NewClient(
	serverURL, siteRoot string,
	timeout time.Duration,
	reporter driven.ErrorReporter,
	logger *slog.Logger,
) (*Client, error) {
	cache := httpcache.NewMemoryCacheTransport()
	return newClient(
		&http.Client{Timeout: timeout},
		&http.Client{Timeout: timeout, Transport: cache},
		serverURL, siteRoot, reporter, logger,
	)
}

// NewClientWithHTTPClient creates a Client that uses httpClient for every
// request. This constructor is intended for testing against an httptest server.
func NewClientWithHTTPClient(
	httpClient *http.Client,
	serverURL, siteRoot string,
	reporter driven.ErrorReporter,
	logger *slog.Logger,
) (*Client, error) {
	return newClient(httpClient, httpClient, serverURL, siteRoot, reporter, logger)
}

func newClient(
	api, fragments *http.Client,
	serverURL, siteRoot string,
	reporter driven.ErrorReporter,
	logger *slog.Logger,
) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server URL %q must be absolute", serverURL)
	}

	if logger == nil {
		logger = slog.Default()
	}

	siteRoot = model.NewReviewRequestRef(0, siteRoot).SiteRoot
	return &Client{
		api:       api,
		fragments: fragments,
		base:      u,
		apiPrefix: siteRoot + "api/json",
		reporter:  reporter,
		logger:    logger,
	}, nil
}

// Invoke starts req and returns immediately. The request's buttons stay
// disabled until the outcome has been delivered.
func (c *Client) Invoke(ctx context.Context, req driven.Request) {
	if req.Buttons != nil {
		req.Buttons.SetEnabled(false)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx, req)
	}()
}

// Wait blocks until every started call has completed.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) run(ctx context.Context, req driven.Request) {
	payload, terr := c.do(ctx, req)

	if terr != nil {
		terr.Prefix = req.ErrorPrefix
		c.logger.Warn("review board call failed",
			"method", req.Method,
			"path", req.Path,
			"status", terr.Status,
			"error", terr,
		)
		if c.reporter != nil {
			c.reporter.ReportError(terr)
		}
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

func (c *Client) do(ctx context.Context, req driven.Request) (driven.Payload, *model.TransportError) {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, &model.TransportError{Message: "could not build request", Err: err}
	}

	resp, err := c.api.Do(httpReq)
	if err != nil {
		return nil, &model.TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &model.TransportError{Status: resp.StatusCode, Message: "could not read response", Err: err}
	}

	payload, env, err := decodeEnvelope(body)
	switch {
	case err != nil && resp.StatusCode/100 == 2:
		return nil, &model.TransportError{Status: resp.StatusCode, Message: "malformed response", Err: err}
	case err != nil:
		return nil, &model.TransportError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	case env.Stat != statOK || resp.StatusCode/100 != 2:
		return nil, env.transportError(resp.StatusCode)
	}
	return payload, nil
}

func (c *Client) newRequest(ctx context.Context, req driven.Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	target := c.base.ResolveReference(&url.URL{Path: c.apiPrefix + req.Path})
	form := url.Values{}
	for k, v := range req.Data {
		form.Set(k, v)
	}

	if method == http.MethodGet {
		target.RawQuery = form.Encode()
		return http.NewRequestWithContext(ctx, method, target.String(), nil)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	return httpReq, nil
}

// FetchFragment retrieves a fragment page. target is a server-relative path
// with query, as built by the fragment queue.
func (c *Client) FetchFragment(ctx context.Context, target string) (string, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parsing fragment target %q: %w", target, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.ResolveReference(ref).String(), nil)
	if err != nil {
		return "", fmt.Errorf("creating fragment request: %w", err)
	}

	resp, err := c.fragments.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("fetching fragment: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching fragment: %w", &model.TransportError{
			Status:  resp.StatusCode,
			Message: http.StatusText(resp.StatusCode),
		})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading fragment: %w", err)
	}

	if resp.Header.Get(httpcache.XFromCache) != "" {
		c.logger.Debug("fragment served from cache", "target", target)
	}
	return string(body), nil
}

const (
	statOK   = "ok"
	statFail = "fail"
)

// envelope is the status part of every JSON API response.
type envelope struct {
	Stat string `json:"stat"`
	Err  *struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"err"`
}

func (e envelope) transportError(status int) *model.TransportError {
	terr := &model.TransportError{Status: status}
	if e.Err != nil {
		terr.Code = e.Err.Code
		terr.Message = e.Err.Msg
	}
	if terr.Message == "" {
		terr.Message = http.StatusText(status)
	}
	if status/100 == 2 {
		terr.Status = 0
	}
	return terr
}

var errMissingStat = errors.New("response has no stat field")

// decodeEnvelope parses body into a payload and its status envelope.
func decodeEnvelope(body []byte) (driven.Payload, envelope, error) {
	var payload driven.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, envelope{}, fmt.Errorf("decoding response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.Stat == "" {
		return nil, envelope{}, errMissingStat
	}
	return payload, env, nil
}
