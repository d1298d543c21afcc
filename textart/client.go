package textart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// DefaultEndpoint is the image-to-text conversion endpoint.
	DefaultEndpoint = "http://api.textart.io/img2txt.json"
	// DefaultFormat selects the service's output style.
	DefaultFormat = "mono"
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxTries is the number of attempts for transient failures.
	DefaultMaxTries = 3

	// SecretHeader carries the API credential.
	SecretHeader = "X-Textart-Api-Secret"
	// RequestIDHeader carries a per-request identifier for diagnostics.
	RequestIDHeader = "X-Request-Id"

	maxBodySize = 32 << 20
)

var (
	// ErrReadFrame indicates the local frame file could not be read. The
	// underlying error is kept, so a missing frame also matches
	// [os.ErrNotExist].
	ErrReadFrame = errors.New("read frame")
	// ErrTransient indicates a failure that may not recur for the next frame:
	// network errors, timeouts, throttling and server errors.
	ErrTransient = errors.New("transient service failure")
	// ErrRejected indicates the service refused the request.
	ErrRejected = errors.New("request rejected")
	// ErrMalformedResponse indicates a response that does not follow the
	// envelope contract.
	ErrMalformedResponse = errors.New("malformed response")
)

// Envelope is the JSON document returned by the service.
type Envelope struct {
	Contents struct {
		TextArt string `json:"textart"`
	} `json:"contents"`
}

// Client uploads frames to the text-art service.
//
// Create instances with [NewClient].
type Client struct {
	http        *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
	endpoint    string
	secret      string
	format      string
	userAgent   string
	timeout     time.Duration
	maxTries    uint
	showHeaders bool
}

// Option configures a [Client].
type Option func(*Client)

// WithEndpoint overrides [DefaultEndpoint].
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithFormat overrides [DefaultFormat].
func WithFormat(format string) Option {
	return func(c *Client) {
		c.format = format
	}
}

// WithTimeout bounds each request. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient sets the [*http.Client] requests are sent with. Its timeout
// is replaced by the one configured with [WithTimeout].
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithMaxTries sets the number of attempts for transient failures. Values
// less than 1 are clamped to 1.
func WithMaxTries(n uint) Option {
	return func(c *Client) {
		c.maxTries = max(n, 1)
	}
}

// WithRate limits requests to perSecond. Zero or less means unlimited.
func WithRate(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)

			return
		}

		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHeaders logs response headers at info level.
func WithHeaders(show bool) Option {
	return func(c *Client) {
		c.showHeaders = show
	}
}

// WithLogger sets the logger. Raw response bodies are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a [Client] authenticating with secret.
func NewClient(secret string, opts ...Option) *Client {
	c := &Client{
		http:     http.DefaultClient,
		limiter:  rate.NewLimiter(rate.Inf, 0),
		logger:   slog.New(slog.DiscardHandler),
		endpoint: DefaultEndpoint,
		secret:   secret,
		format:   DefaultFormat,
		timeout:  DefaultTimeout,
		maxTries: DefaultMaxTries,
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := *c.http
	hc.Timeout = c.timeout
	c.http = &hc

	return c
}

// Fetch uploads the image at path and returns the decoded envelope.
// Transient failures are retried with exponential backoff.
func (c *Client) Fetch(ctx context.Context, path string) (Envelope, error) {
	img, err := os.ReadFile(path) //nolint:gosec // Frame paths come from the sequence.
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrReadFrame, err)
	}

	body, contentType, err := c.form(filepath.Base(path), img)
	if err != nil {
		return Envelope{}, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second

	env, err := backoff.Retry(ctx, func() (Envelope, error) {
		return c.post(ctx, body, contentType)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, d time.Duration) {
			c.logger.Debug("retrying frame upload",
				slog.String("path", path),
				slog.Duration("after", d),
				slog.Any("err", err),
			)
		}),
	)
	if err != nil {
		return Envelope{}, err
	}

	return env, nil
}

func (c *Client) form(name string, img []byte) ([]byte, string, error) {
	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("image", name)
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}

	_, err = part.Write(img)
	if err != nil {
		return nil, "", fmt.Errorf("writing form file: %w", err)
	}

	err = mw.WriteField("format", c.format)
	if err != nil {
		return nil, "", fmt.Errorf("writing form field: %w", err)
	}

	err = mw.Close()
	if err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}

	return buf.Bytes(), mw.FormDataContentType(), nil
}

// post performs one attempt. Errors that must not be retried are wrapped
// with [backoff.Permanent].
func (c *Client) post(ctx context.Context, body []byte, contentType string) (Envelope, error) {
	var env Envelope

	err := c.limiter.Wait(ctx)
	if err != nil {
		return env, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return env, backoff.Permanent(fmt.Errorf("%w: %w", ErrRejected, err))
	}

	reqID := uuid.NewString()

	req.Header.Set("Content-Type", contentType)
	req.Header.Set(SecretHeader, c.secret)
	req.Header.Set(RequestIDHeader, reqID)

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return env, backoff.Permanent(ctx.Err())
		}

		return env, fmt.Errorf("%w: %w", ErrTransient, err)
	}

	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			c.logger.Warn("closing response body", slog.Any("err", closeErr))
		}
	}()

	if c.showHeaders {
		c.logger.Info("response headers",
			slog.String("request_id", reqID),
			slog.Any("headers", resp.Header),
		)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return env, fmt.Errorf("%w: reading body: %w", ErrTransient, err)
	}

	c.logger.Debug("response body",
		slog.String("request_id", reqID),
		slog.Int("status", resp.StatusCode),
		slog.String("body", string(raw)),
	)

	err = classify(resp)
	if err != nil {
		return env, err
	}

	err = json.Unmarshal(raw, &env)
	if err != nil {
		return env, backoff.Permanent(fmt.Errorf("%w: %w", ErrMalformedResponse, err))
	}

	if env.Contents.TextArt == "" {
		return env, backoff.Permanent(fmt.Errorf("%w: missing contents.textart", ErrMalformedResponse))
	}

	return env, nil
}

func classify(resp *http.Response) error {
	code := resp.StatusCode

	switch {
	case code >= 200 && code < 300:
		return nil

	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= 500:
		return fmt.Errorf("%w: %s", ErrTransient, resp.Status)
	}

	return backoff.Permanent(fmt.Errorf("%w: %s", ErrRejected, resp.Status))
}
