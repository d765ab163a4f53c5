package calc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/litescript/ls-sensitivity/internal/logging"
	"github.com/litescript/ls-sensitivity/internal/param"
	"github.com/litescript/ls-sensitivity/internal/version"
)

const (
	// DefaultBaseURL is where a locally started backend listens.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultAPIVersion is the path version prefix.
	DefaultAPIVersion = "1"

	// DefaultTimeout for HTTP requests.
	DefaultTimeout = 30 * time.Second

	maxBodyBytes = 1 << 20
)

// Client calls the calculator backend.
type Client struct {
	client     *http.Client
	baseURL    string
	apiVersion string
	timeout    time.Duration
	metrics    *Collector
	logger     *logging.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets the backend root URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithAPIVersion sets the version segment, with or without a leading "v".
func WithAPIVersion(v string) ClientOption {
	return func(c *Client) {
		c.apiVersion = strings.TrimPrefix(v, "v")
	}
}

// WithTimeout sets the HTTP request timeout. Zero disables it.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithCollector records request metrics.
func WithCollector(m *Collector) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a backend client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiVersion: DefaultAPIVersion,
		timeout:    DefaultTimeout,
		logger:     logging.Discard(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		c.client = &http.Client{
			Timeout: c.timeout,
		}
	}

	return c
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s/v%s/%s", c.baseURL, c.apiVersion, path)
}

// Descriptors fetches the parameter metadata set.
func (c *Client) Descriptors(ctx context.Context) (param.Set, error) {
	const op = "param-values-units"
	start := time.Now()

	body, err := c.do(ctx, op, http.MethodGet, c.endpoint(op), nil)
	c.observe(op, start, err)
	if err != nil {
		return nil, err
	}

	set, err := param.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, &RequestError{Op: op, Err: err}
	}
	c.logger.Debug("loaded %d descriptors in %v", len(set), time.Since(start).Round(time.Millisecond))
	return set, nil
}

// Calculate submits req and returns the computed quantity.
func (c *Client) Calculate(ctx context.Context, op Operation, req Request) (Result, error) {
	start := time.Now()

	payload, err := json.Marshal(req)
	if err != nil {
		return Result{}, &RequestError{Op: string(op), Err: fmt.Errorf("encode request: %w", err)}
	}

	body, err := c.do(ctx, string(op), http.MethodPost, c.endpoint(string(op)), payload)
	c.observe(string(op), start, err)
	if err != nil {
		return Result{}, err
	}

	var res Result
	if err := json.Unmarshal(body, &res); err != nil {
		return Result{}, &RequestError{Op: string(op), Err: fmt.Errorf("decode result: %w", err)}
	}
	res.Quantity = op
	c.logger.Info("%s = %s (%v)", op, FormatResult(res), time.Since(start).Round(time.Millisecond))
	return res, nil
}

// CalculateLegacy uses the older GET endpoint, which takes the entries as
// query parameters and answers with whichever quantity it derived.
func (c *Client) CalculateLegacy(ctx context.Context, req Request) (Result, error) {
	const op = "legacy"
	start := time.Now()

	q := url.Values{}
	for _, name := range req.Names() {
		e := req[name]
		q.Set(name, e.Value)
		if e.Unit != "" {
			q.Set(name+"_unit", e.Unit)
		}
	}
	u := fmt.Sprintf("%s/v1/sensitivity?%s", c.baseURL, q.Encode())

	body, err := c.do(ctx, op, http.MethodGet, u, nil)
	c.observe(op, start, err)
	if err != nil {
		return Result{}, err
	}

	res, err := decodeLegacy(body)
	if err != nil {
		return Result{}, &RequestError{Op: op, Err: err}
	}
	return res, nil
}

// Legacy adapts a Client to the GET endpoint. The backend infers the
// quantity from the entries, so the requested operation is ignored.
type Legacy struct {
	*Client
}

// Calculate implements the same signature as Client.Calculate.
func (l Legacy) Calculate(ctx context.Context, _ Operation, req Request) (Result, error) {
	return l.CalculateLegacy(ctx, req)
}

func decodeLegacy(body []byte) (Result, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Result{}, fmt.Errorf("decode legacy result: %w", err)
	}

	// The response is keyed by the computed quantity's name.
	for _, key := range []string{"integration_time", "sensitivity"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		op, err := ParseOperation(key)
		if err != nil {
			return Result{}, err
		}
		res, err := decodeQuantity(raw)
		if err != nil {
			return Result{}, fmt.Errorf("decode %s: %w", key, err)
		}
		res.Quantity = op
		return res, nil
	}
	return Result{}, errors.New("legacy result has neither sensitivity nor integration_time")
}

// decodeQuantity accepts a number, a numeric string or a {value, unit}
// object.
func decodeQuantity(raw json.RawMessage) (Result, error) {
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return Result{Value: v}, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		fields := strings.Fields(s)
		if len(fields) == 0 {
			return Result{}, fmt.Errorf("empty quantity")
		}
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return Result{}, fmt.Errorf("quantity %q: %w", s, err)
		}
		return Result{Value: v, Unit: strings.Join(fields[1:], " ")}, nil
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return Result{}, err
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, op, method, u string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &RequestError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("%s %s", method, u)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &RequestError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		rerr := &RequestError{Op: op, Status: resp.StatusCode, Detail: errorDetail(data)}
		c.logger.Warn("%v", rerr)
		return nil, rerr
	}

	return data, nil
}

// errorDetail extracts {"detail": ...} from an error body. FastAPI sends
// a string for handled errors and a list of {msg} objects for request
// validation failures.
func errorDetail(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(env.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

func (c *Client) observe(op string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	outcome := OutcomeOK
	var rerr *RequestError
	if errors.As(err, &rerr) && rerr.Status >= 400 && rerr.Status < 500 {
		outcome = OutcomeRejected
	} else if err != nil {
		outcome = OutcomeError
	}
	c.metrics.Observe(op, outcome, time.Since(start))
}
