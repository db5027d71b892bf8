package dandanplay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"danmaku/internal/config"
	"danmaku/internal/logging"
	"danmaku/internal/overlay"
	"danmaku/internal/services"
)

const (
	defaultBaseURL   = "https://api.dandanplay.net"
	defaultUserAgent = "danmakud/1.0"
	defaultTimeout   = 20 * time.Second
	limiterBurst     = 2
	maxResponseBytes = 64 << 20
	matchMode        = "hashAndFileName"
)

// HTTPDoer is the subset of *http.Client used by Client.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) { c.http = doer }
}

// WithTokenStore injects a custom persistence layer for the session.
func WithTokenStore(store TokenStore) Option {
	return func(c *Client) { c.store = store }
}

// WithClock injects the clock used for token expiry decisions.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithLimiter replaces the request pacing limiter.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) { c.limiter = limiter }
}

// MatchQuery is what is known about a playing file.
type MatchQuery struct {
	FileName string
	Size     *int64
	Hash     string
	// Duration in whole seconds; zero when unknown.
	Duration int
}

// EpisodeMatch identifies the remote episode and the offset of its comment timeline.
type EpisodeMatch struct {
	EpisodeID    int64
	Shift        float64
	AnimeTitle   string
	EpisodeTitle string
	// Confident mirrors the server's isMatched flag.
	Confident bool
}

// Label returns a human readable episode name.
func (m EpisodeMatch) Label() string {
	switch {
	case m.AnimeTitle != "" && m.EpisodeTitle != "":
		return m.AnimeTitle + " - " + m.EpisodeTitle
	case m.AnimeTitle != "":
		return m.AnimeTitle
	case m.EpisodeTitle != "":
		return m.EpisodeTitle
	default:
		return "episode " + strconv.FormatInt(m.EpisodeID, 10)
	}
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return "http " + e.Status
	}
	return fmt.Sprintf("http %s: %s", e.Status, e.Body)
}

type clientSettings struct {
	baseURL     *url.URL
	appID       string
	username    string
	userAgent   string
	withRelated bool
	timeout     time.Duration
}

// Client wraps the dandanplay REST API.
type Client struct {
	http    HTTPDoer
	store   TokenStore
	clock   clockwork.Clock
	limiter *rate.Limiter
	logger  *slog.Logger
	session *Session

	mu       sync.RWMutex
	settings clientSettings
}

// NewClient builds a Client from the dandanplay configuration section.
// tokenPath locates token.json; it may be empty when WithTokenStore is used.
func NewClient(cfg config.Dandanplay, tokenPath string, opts ...Option) (*Client, error) {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.store == nil && tokenPath != "" {
		c.store = NewFileTokenStore(tokenPath)
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.limiter == nil {
		c.limiter = rate.NewLimiter(limitFor(cfg.RequestsPerSecond), limiterBurst)
	}
	c.logger = logging.NewComponentLogger(c.logger, "dandanplay")
	c.session = newSession(c.store, c.clock, c.login, c.logger)
	if err := c.Reload(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload applies a new configuration section. In-flight requests keep the
// settings they started with.
func (c *Client) Reload(cfg config.Dandanplay) error {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("dandanplay: parse base url: %w", err)
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c.mu.Lock()
	c.settings = clientSettings{
		baseURL:     baseURL,
		appID:       cfg.AppID,
		username:    cfg.Username,
		userAgent:   userAgent,
		withRelated: cfg.WithRelated,
		timeout:     timeout,
	}
	c.mu.Unlock()

	if cfg.RequestsPerSecond > 0 {
		c.limiter.SetLimit(limitFor(cfg.RequestsPerSecond))
	}
	c.session.SetCredentials(Credentials{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	return nil
}

// Session exposes the token owner.
func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) snapshot() clientSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// Lookup resolves an episode for q. It returns an error wrapping
// services.ErrNoMatch when the server offered no usable candidate.
func (c *Client) Lookup(ctx context.Context, q MatchQuery) (EpisodeMatch, error) {
	settings := c.snapshot()
	body := matchRequest{
		FileName:      q.FileName,
		MatchMode:     matchMode,
		AppID:         settings.appID,
		FileSize:      q.Size,
		FileHash:      q.Hash,
		VideoDuration: q.Duration,
	}
	var resp matchResponse
	err := c.do(ctx, apiRequest{
		op:            "match",
		method:        http.MethodPost,
		path:          "api/v2/match",
		body:          body,
		authenticated: settings.username != "",
	}, &resp)
	if err != nil {
		return EpisodeMatch{}, err
	}

	// The first candidate is taken even when isMatched is false.
	if len(resp.Matches) == 0 {
		return EpisodeMatch{}, services.Wrap(services.ErrNoMatch, "dandanplay", "match", "no candidates for "+q.FileName, nil)
	}
	candidate := resp.Matches[0]
	episodeID, _ := candidate.EpisodeID.Int64()
	if episodeID == 0 {
		return EpisodeMatch{}, services.Wrap(services.ErrNoMatch, "dandanplay", "match", "candidate without episode id", nil)
	}
	return EpisodeMatch{
		EpisodeID:    episodeID,
		Shift:        candidate.Shift,
		AnimeTitle:   candidate.AnimeTitle,
		EpisodeTitle: candidate.EpisodeTitle,
		Confident:    resp.IsMatched,
	}, nil
}

// Match resolves an episode for q. Transport and decode failures are logged
// and reported as no match.
func (c *Client) Match(ctx context.Context, q MatchQuery) (EpisodeMatch, bool) {
	match, err := c.Lookup(ctx, q)
	if err != nil {
		logger := logging.WithContext(ctx, c.logger)
		if errors.Is(err, services.ErrNoMatch) || ctx.Err() != nil {
			logger.Info("no danmaku match", logging.String("file", q.FileName), logging.Error(err))
		} else {
			logging.WarnWithContext(logger, "match request failed", "match_failed",
				logging.Error(err),
				logging.String("file", q.FileName),
				logging.String(logging.FieldErrorHint, "check network access to the dandanplay API"),
				logging.String(logging.FieldImpact, "no danmaku for this video"),
			)
		}
		return EpisodeMatch{}, false
	}
	return match, true
}

// Comments fetches the comment list for an episode in server order. since, when
// set, requests only comments newer than that unix timestamp. Records that do
// not decode as {p, m} strings are dropped.
func (c *Client) Comments(ctx context.Context, episodeID int64, since *int64) ([]overlay.RawComment, error) {
	settings := c.snapshot()
	query := url.Values{}
	query.Set("withRelated", strconv.FormatBool(settings.withRelated))
	if since != nil {
		query.Set("from", strconv.FormatInt(*since, 10))
	}
	var resp commentResponse
	err := c.do(ctx, apiRequest{
		op:     "comments",
		method: http.MethodGet,
		path:   "api/v2/comment/" + strconv.FormatInt(episodeID, 10),
		query:  query,
	}, &resp)
	if err != nil {
		return nil, err
	}

	comments := make([]overlay.RawComment, 0, len(resp.Comments))
	for _, raw := range resp.Comments {
		var comment overlay.RawComment
		if err := json.Unmarshal(raw, &comment); err != nil {
			continue
		}
		comments = append(comments, comment)
	}
	return comments, nil
}

func (c *Client) login(ctx context.Context, creds Credentials, timestamp string) (map[string]any, error) {
	body := loginRequest{
		UserName: creds.Username,
		Password: creds.Password,
		AppID:    creds.AppID,
		Hash:     LoginDigest(creds, timestamp),
		Time:     timestamp,
	}
	var payload map[string]any
	if err := c.do(ctx, apiRequest{op: "login", method: http.MethodPost, path: "api/v2/login", body: body}, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

type apiRequest struct {
	op            string
	method        string
	path          string
	query         url.Values
	body          any
	authenticated bool
}

// do performs req, retrying exactly once with a refreshed token when an
// authenticated call is rejected with 401.
func (c *Client) do(ctx context.Context, req apiRequest, out any) error {
	var payload []byte
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return services.Wrap(services.ErrMalformed, "dandanplay", req.op, "encode request", err)
		}
		payload = encoded
	}

	token := ""
	if req.authenticated {
		token, _ = c.session.EnsureToken(ctx)
	}
	data, err := c.send(ctx, req, payload, token)
	if err != nil && req.authenticated && isUnauthorized(err) {
		logging.WithContext(ctx, c.logger).Info("token rejected, refreshing once", logging.String("operation", req.op))
		c.session.Invalidate()
		token, _ = c.session.EnsureToken(ctx)
		data, err = c.send(ctx, req, payload, token)
	}
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 || out == nil {
		return nil
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(out); err != nil {
		return services.Wrap(services.ErrMalformed, "dandanplay", req.op, "decode response", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, req apiRequest, payload []byte, token string) ([]byte, error) {
	settings := c.snapshot()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, services.Wrap(services.ErrTransport, "dandanplay", req.op, "rate limiter", err)
	}

	endpoint := settings.baseURL.JoinPath(req.path)
	if len(req.query) > 0 {
		endpoint.RawQuery = req.query.Encode()
	}

	reqCtx, cancel := context.WithTimeout(ctx, settings.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(reqCtx, req.method, endpoint.String(), body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "dandanplay", req.op, "build request", err)
	}
	httpReq.Header.Set("User-Agent", settings.userAgent)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "dandanplay", req.op, "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "dandanplay", req.op, "read response", err)
	}
	if resp.StatusCode >= 400 {
		statusErr := &StatusError{Code: resp.StatusCode, Status: resp.Status, Body: snippet(data)}
		marker := services.ErrTransport
		if resp.StatusCode == http.StatusUnauthorized {
			marker = services.ErrAuth
		}
		return nil, services.Wrap(marker, "dandanplay", req.op, "", statusErr)
	}
	return data, nil
}

func isUnauthorized(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusUnauthorized
}

func snippet(data []byte) string {
	text := strings.TrimSpace(string(data))
	if len(text) > 256 {
		text = text[:256]
	}
	return text
}

func limitFor(rps float64) rate.Limit {
	if rps <= 0 {
		return rate.Inf
	}
	return rate.Limit(rps)
}

type loginRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
	AppID    string `json:"appId"`
	Hash     string `json:"hash"`
	Time     string `json:"time"`
}

type matchRequest struct {
	FileName      string `json:"fileName"`
	MatchMode     string `json:"matchMode"`
	AppID         string `json:"appId,omitempty"`
	FileSize      *int64 `json:"fileSize,omitempty"`
	FileHash      string `json:"fileHash,omitempty"`
	VideoDuration int    `json:"videoDuration,omitempty"`
}

type matchResponse struct {
	IsMatched bool             `json:"isMatched"`
	Matches   []matchCandidate `json:"matches"`
}

type matchCandidate struct {
	EpisodeID    json.Number `json:"episodeId"`
	AnimeTitle   string      `json:"animeTitle"`
	EpisodeTitle string      `json:"episodeTitle"`
	Shift        float64     `json:"shift"`
}

type commentResponse struct {
	Count    int               `json:"count"`
	Comments []json.RawMessage `json:"comments"`
}
