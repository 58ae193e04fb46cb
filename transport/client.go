package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/teamtrack/apierror"
	"github.com/jrsteele09/teamtrack/metrics"
	"github.com/jrsteele09/teamtrack/session"
	"github.com/jrsteele09/teamtrack/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 10 << 20
	userAgent       = "teamtrack-go/1.0"
	requestIDHeader = "X-Request-ID"
)

// Client sends requests to the TeamTrack API. It attaches the stored access
// token, unwraps response envelopes and recovers from expired access tokens
// through its Coordinator. Every error it returns is an *apierror.Error.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	timeout     time.Duration
	store       session.Repo
	coordinator *Coordinator
	refresher   Refresher
	limiter     *rate.Limiter
	metrics     metrics.Recorder
	logger      zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout overrides the per-request timeout of the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRateLimit throttles outgoing requests. A zero limit disables throttling.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		if limit <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = r
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRefresher replaces the call made to the refresh endpoint.
func WithRefresher(r Refresher) Option {
	return func(c *Client) {
		c.refresher = r
	}
}

func New(baseURL string, store session.Repo, options ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		store:      store,
		metrics:    metrics.Nop{},
		logger:     zerolog.Nop(),
	}

	for _, opt := range options {
		opt(c)
	}

	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	if c.refresher == nil {
		c.refresher = NewHTTPRefresher(c.baseURL, c.httpClient)
	}
	c.coordinator = NewCoordinator(store, c.refresher,
		WithCoordinatorMetrics(c.metrics),
		WithCoordinatorLogger(c.logger),
	)
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Store() session.Repo {
	return c.store
}

func (c *Client) Coordinator() *Coordinator {
	return c.coordinator
}

// request is one logical call. retried is set once it has been replayed
// after a refresh, and a second 401 is then returned to the caller.
type request struct {
	method  string
	path    string
	query   url.Values
	body    []byte
	retried bool
}

type response struct {
	status int
	body   []byte
}

// Do sends method path with in encoded as the JSON body and decodes the
// envelope payload into out. in and out may be nil.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	req := &request{method: method, path: path, query: query}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return apierror.New(0, "invalid request body", "", nil, errors.Wrap(err, "Client.Do Marshal"))
		}
		req.body = b
	}

	status, payload, err := c.execute(ctx, req, c.store.AccessToken())
	if err != nil {
		return err
	}
	return decodePayload(status, payload, out)
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, in, out)
}

func (c *Client) Patch(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPatch, path, nil, in, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) execute(ctx context.Context, req *request, access string) (int, json.RawMessage, error) {
	resp, err := c.send(ctx, req, access)
	if err != nil {
		return 0, nil, err
	}

	if resp.status == http.StatusUnauthorized && !req.retried {
		return c.recoverUnauthorized(ctx, req, resp)
	}

	payload, err := unwrap(resp.status, resp.body)
	return resp.status, payload, err
}

// recoverUnauthorized waits for (or runs) a refresh cycle and replays req once
// with the new access token.
func (c *Client) recoverUnauthorized(ctx context.Context, req *request, resp *response) (int, json.RawMessage, error) {
	access, err := c.coordinator.Recover(ctx)
	if err != nil {
		if errors.Is(err, apierror.ErrNoRefreshToken) {
			_, unauthorized := unwrap(resp.status, resp.body)
			apiErr := apierror.From(unauthorized)
			apiErr.Cause = err
			return resp.status, nil, apiErr
		}
		// Waiters share the cycle's error value.
		return 0, nil, apierror.From(err).Clone()
	}

	req.retried = true
	return c.execute(ctx, req, access)
}

func (c *Client) send(ctx context.Context, req *request, access string) (*response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apierror.New(0, "", "", nil, errors.Wrap(err, "Client.send rate limit"))
		}
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, apierror.New(0, "", "", nil, errors.Wrap(err, "Client.send NewRequest"))
	}

	requestID := uuid.New().String()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set(requestIDHeader, requestID)
	if access != "" {
		token.Bearer(access).SetAuthHeader(httpReq)
	}

	started := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.RecordRequest(req.method, 0, time.Since(started))
		c.logger.Debug().Err(err).
			Str("method", req.method).
			Str("path", req.path).
			Str("request_id", requestID).
			Msg("request failed")
		return nil, apierror.New(0, "", "", nil, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	elapsed := time.Since(started)
	c.metrics.RecordRequest(req.method, httpResp.StatusCode, elapsed)
	c.logger.Debug().
		Str("method", req.method).
		Str("path", req.path).
		Int("status", httpResp.StatusCode).
		Bool("retried", req.retried).
		Str("request_id", requestID).
		Dur("duration", elapsed).
		Msg("request")
	if err != nil {
		return nil, apierror.New(httpResp.StatusCode, "", "", nil, errors.Wrap(err, "Client.send read body"))
	}

	return &response{status: httpResp.StatusCode, body: data}, nil
}
