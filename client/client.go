// Package client provides the REST client for the Recall backend.
// It handles request construction, authentication headers, TLS, tracing,
// metrics, and decoding of structured backend errors.
//
// Tracing is a hook for embedding programs: spans go to the global OpenTelemetry
// provider, which the recall binary leaves as the no-op default.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/recallcontext/recall-cli/config"
	"github.com/recallcontext/recall-cli/credentials"
	"github.com/recallcontext/recall-cli/pkg/buildinfo"
	rcerrors "github.com/recallcontext/recall-cli/pkg/errors"
	"github.com/recallcontext/recall-cli/pkg/logging"
)

// Default client settings.
const (
	DefaultTimeout = config.DefaultTimeout
	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 1 << 20
)

// Header names sent with every request.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderAPIKey    = "X-API-Key"
)

// Options configures the Client behavior.
type Options struct {
	// Timeout bounds a single request, response body included.
	Timeout time.Duration

	// TLSConfig is used for https server URLs. Nil means system defaults.
	TLSConfig *tls.Config

	// HTTPClient overrides the transport entirely (tests, proxies).
	HTTPClient *http.Client

	// Credentials, when set, authenticate requests to a fronting proxy.
	Credentials *credentials.Credentials

	// Logger receives one debug line per request.
	Logger logging.Logger

	// Metrics records request counts and latency. Nil disables recording.
	Metrics *Metrics

	// Tracer starts a span per request. Nil uses the global provider.
	Tracer *Tracer

	// UserAgent overrides the default recall-cli User-Agent.
	UserAgent string
}

// DefaultOptions returns Options with default values.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		Logger:    logging.NewNopLogger(),
		UserAgent: buildinfo.UserAgent("recall-cli"),
	}
}

// Client talks to the Recall backend REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	creds      *credentials.Credentials
	logger     logging.Logger
	metrics    *Metrics
	tracer     *Tracer
	userAgent  string
	validate   *validator.Validate
}

// New creates a Client for the backend at serverURL.
func New(serverURL string, opts *Options) (*Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	base, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing server URL %q: %w", serverURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server URL %q: scheme must be http or https", serverURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if opts.TLSConfig != nil {
			transport.TLSClientConfig = opts.TLSConfig
		}
		httpClient = &http.Client{Timeout: timeout, Transport: transport}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = NewTracer()
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = buildinfo.UserAgent("recall-cli")
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		creds:      opts.Credentials,
		logger:     logger.With(logging.F("server", base.String())),
		metrics:    opts.Metrics,
		tracer:     tracer,
		userAgent:  userAgent,
		validate:   newValidator(),
	}, nil
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// NewFromConfig creates a Client from CLI configuration, loading TLS material
// for https server URLs. Fields already set in opts take precedence.
func NewFromConfig(cfg *config.CLIConfig, opts *Options) (*Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Timeout == 0 {
		opts.Timeout = cfg.Timeout
	}
	if opts.TLSConfig == nil && opts.HTTPClient == nil && strings.HasPrefix(cfg.ServerURL, "https://") {
		tlsCfg, err := LoadClientTLSConfig(&cfg.TLS, cfg.Insecure)
		if err != nil {
			return nil, fmt.Errorf("loading TLS config: %w", err)
		}
		opts.TLSConfig = tlsCfg
	}
	return New(cfg.ServerURL, opts)
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// request describes one backend call.
type request struct {
	method string
	// route is the path template used for span names and metric labels.
	route string
	path  string
	query url.Values
	body  interface{}
}

// do sends req and decodes a 2xx JSON body into out (when non-nil).
// Any other status is returned as *APIError.
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	requestID := uuid.NewString()
	ctx = logging.ContextWithRequestID(ctx, requestID)

	var bodyReader io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", req.route, err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + req.path
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("building %s %s request: %w", req.method, req.route, err)
	}
	c.setHeaders(httpReq, requestID, req.body != nil)

	ctx, span := c.tracer.StartRequestSpan(ctx, httpReq, req.route, requestID)
	httpReq = httpReq.WithContext(ctx)

	start := time.Now()
	status, err := c.roundTrip(httpReq, requestID, out)
	elapsed := time.Since(start)

	EndRequestSpan(span, status, err)
	c.metrics.RecordRequest(req.method, req.route, status, elapsed.Seconds())

	log := c.logger.WithContext(ctx)
	fields := []logging.Field{
		logging.F("method", req.method),
		logging.F("path", u.Path),
		logging.F("status", status),
		logging.F("duration", elapsed),
	}
	if err != nil {
		log.Debug("backend request failed", append(fields, logging.Err(err))...)
		return err
	}
	log.Debug("backend request", fields...)
	return nil
}

// roundTrip executes the request and returns the HTTP status (0 if none).
func (c *Client) roundTrip(httpReq *http.Request, requestID string, out interface{}) (int, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := httpReq.Context().Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("%s %s: %w: %v", httpReq.Method, httpReq.URL.Path, rcerrors.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, decodeError(resp, requestID)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return resp.StatusCode, nil
		}
		return resp.StatusCode, fmt.Errorf("decoding %s response: %w", httpReq.URL.Path, err)
	}
	return resp.StatusCode, nil
}

// setHeaders adds content negotiation, identification and auth headers.
func (c *Client) setHeaders(req *http.Request, requestID string, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderRequestID, requestID)

	if c.creds == nil {
		return
	}
	switch c.creds.AuthType {
	case credentials.AuthTypeToken:
		if c.creds.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.creds.Token)
		}
	case credentials.AuthTypeAPIKey:
		if c.creds.APIKey != "" {
			req.Header.Set(HeaderAPIKey, c.creds.APIKey)
		}
	}
}

// decodeError turns a non-2xx response into *APIError. A body that is not a
// structured error leaves Message empty.
func decodeError(resp *http.Response, requestID string) error {
	apiErr := &APIError{
		Status:    resp.StatusCode,
		RequestID: requestID,
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body ErrorResponse
	if len(raw) > 0 && json.Unmarshal(raw, &body) == nil {
		apiErr.Code = rcerrors.ErrorCode(body.Code)
		apiErr.Message = body.Message
		apiErr.Timestamp = body.Timestamp
		apiErr.Details = body.Details
	}
	return apiErr
}

// validateRequest checks v against its validate tags.
func (c *Client) validateRequest(v interface{}) error {
	err := c.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", rcerrors.ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", rcerrors.ErrValidation, strings.Join(msgs, "; "))
}

// fieldMessage renders one validator failure for the terminal.
func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return fmt.Sprintf("%s must be a date in %s form", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
