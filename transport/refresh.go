package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jrsteele09/teamtrack/apierror"
	"github.com/jrsteele09/teamtrack/metrics"
	"github.com/jrsteele09/teamtrack/session"
	"github.com/jrsteele09/teamtrack/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const refreshPath = "/auth/refresh/"

// Refresher exchanges a refresh token for a new token pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (token.Pair, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context, refreshToken string) (token.Pair, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (token.Pair, error) {
	return f(ctx, refreshToken)
}

// HTTPRefresher calls the refresh endpoint directly, outside the Client, so
// the stale access token is never attached and a 401 cannot recurse.
type HTTPRefresher struct {
	endpoint   string
	httpClient *http.Client
}

var _ Refresher = (*HTTPRefresher)(nil)

func NewHTTPRefresher(baseURL string, httpClient *http.Client) *HTTPRefresher {
	return &HTTPRefresher{
		endpoint:   baseURL + refreshPath,
		httpClient: httpClient,
	}
}

func (r *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (token.Pair, error) {
	body, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return token.Pair{}, errors.Wrap(err, "HTTPRefresher.Refresh Marshal")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return token.Pair{}, errors.Wrap(err, "HTTPRefresher.Refresh NewRequest")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return token.Pair{}, apierror.New(0, "", "", nil, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return token.Pair{}, apierror.New(resp.StatusCode, "", "", nil, errors.Wrap(err, "HTTPRefresher.Refresh read body"))
	}
	payload, err := unwrap(resp.StatusCode, data)
	if err != nil {
		return token.Pair{}, err
	}

	var pair token.Pair
	if err := decodePayload(resp.StatusCode, payload, &pair); err != nil {
		return token.Pair{}, err
	}
	return pair, nil
}

// State of the refresh coordinator.
type State int

const (
	StateIdle State = iota
	StateRefreshing
)

func (s State) String() string {
	if s == StateRefreshing {
		return "REFRESHING"
	}
	return "IDLE"
}

// outcome settles one pending request.
type outcome struct {
	access string
	err    error
}

// Coordinator makes sure only one refresh call is in flight. The first caller
// to Recover runs the refresh; callers arriving while it runs are queued and
// receive the same outcome. The queue is drained exactly once per cycle.
type Coordinator struct {
	store     session.Repo
	refresher Refresher
	metrics   metrics.Recorder
	logger    zerolog.Logger

	mu         sync.Mutex
	refreshing bool
	pending    []chan outcome
	cycles     int

	hookMu    sync.Mutex
	onCleared []func()
}

type CoordinatorOption func(*Coordinator)

func WithCoordinatorMetrics(r metrics.Recorder) CoordinatorOption {
	return func(c *Coordinator) {
		c.metrics = r
	}
}

func WithCoordinatorLogger(logger zerolog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithOnSessionCleared registers fn to run whenever a failed cycle clears the
// session.
func WithOnSessionCleared(fn func()) CoordinatorOption {
	return func(c *Coordinator) {
		c.onCleared = append(c.onCleared, fn)
	}
}

func NewCoordinator(store session.Repo, refresher Refresher, options ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:     store,
		refresher: refresher,
		metrics:   metrics.Nop{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshing {
		return StateRefreshing
	}
	return StateIdle
}

// OnSessionCleared registers fn to run after a failed cycle clears the
// session and before its waiters are released.
func (c *Coordinator) OnSessionCleared(fn func()) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onCleared = append(c.onCleared, fn)
}

// Pending is the number of callers waiting on the current cycle.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Cycles is the number of refresh cycles started so far.
func (c *Coordinator) Cycles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycles
}

// Recover returns a fresh access token, running a refresh cycle or joining
// the one in flight. On failure the session has been cleared.
//
// Errors are apierror.ErrNoRefreshToken when no refresh token was stored, an
// *apierror.Error wrapping apierror.ErrRefreshFailed when the refresh call
// failed, or ctx.Err() when a queued caller gave up waiting.
func (c *Coordinator) Recover(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.refreshing {
		wait := make(chan outcome, 1)
		c.pending = append(c.pending, wait)
		c.mu.Unlock()

		c.metrics.RecordRefreshWaiter()
		select {
		case o := <-wait:
			return o.access, o.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	c.refreshing = true
	c.cycles++
	c.mu.Unlock()

	return c.run(ctx)
}

func (c *Coordinator) run(ctx context.Context) (access string, err error) {
	started := time.Now()
	settled := false
	defer func() {
		if r := recover(); r != nil {
			if !settled {
				c.settle("", fmt.Errorf("%w: refresher panicked", apierror.ErrRefreshFailed))
			}
			panic(r)
		}
	}()

	refresh := c.store.RefreshToken()
	if refresh == "" {
		c.logger.Info().Msg("no refresh token stored, clearing session")
		c.clearSession()
		c.settle("", apierror.ErrNoRefreshToken)
		settled = true
		c.metrics.RecordRefresh(metrics.RefreshNoRefreshToken, time.Since(started))
		return "", apierror.ErrNoRefreshToken
	}

	c.logger.Info().Msg("access token rejected, refreshing")
	// One caller's cancellation must not fail the cycle every waiter shares.
	pair, err := c.refresher.Refresh(context.WithoutCancel(ctx), refresh)
	if err == nil && pair.Access == "" {
		err = apierror.ErrMissingAccessToken
	}
	if err != nil {
		failure := refreshFailure(err)
		c.logger.Warn().Err(err).Int("status", failure.Status).Msg("token refresh failed, clearing session")
		c.clearSession()
		c.settle("", failure)
		settled = true
		c.metrics.RecordRefresh(metrics.RefreshFailure, time.Since(started))
		return "", failure
	}

	if err := c.store.UpdateTokens(pair.Access, pair.Refresh); err != nil {
		c.logger.Error().Err(err).Msg("persisting refreshed tokens failed")
	}
	waiters := c.settle(pair.Access, nil)
	settled = true
	c.metrics.RecordRefresh(metrics.RefreshSuccess, time.Since(started))
	c.logger.Info().
		Bool("rotated", pair.Refresh != "").
		Int("waiters", waiters).
		Dur("expires_in", token.ExpiresIn(pair.Access, time.Now())).
		Msg("access token refreshed")
	return pair.Access, nil
}

// settle drains the queue and returns to IDLE under one lock, so a caller
// that arrives afterwards starts a new cycle instead of joining this one.
func (c *Coordinator) settle(access string, err error) int {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.refreshing = false
	c.mu.Unlock()

	for _, wait := range pending {
		wait <- outcome{access: access, err: err}
	}
	return len(pending)
}

func (c *Coordinator) clearSession() {
	if err := c.store.Clear(); err != nil {
		c.logger.Error().Err(err).Msg("clearing session failed")
	}

	c.hookMu.Lock()
	hooks := append([]func(){}, c.onCleared...)
	c.hookMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

func refreshFailure(err error) *apierror.Error {
	base := apierror.From(err)
	return &apierror.Error{
		Message: base.Message,
		Code:    base.Code,
		Details: base.Details,
		Status:  base.Status,
		Cause:   fmt.Errorf("%w: %w", apierror.ErrRefreshFailed, err),
	}
}
