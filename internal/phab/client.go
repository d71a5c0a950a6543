// Package phab talks to Phabricator's Conduit API to publish Harbormaster
// build results.
package phab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/felixgeelhaar/premerge/internal/errors"
	"github.com/felixgeelhaar/premerge/internal/log"
)

// DefaultURL is the Conduit endpoint of reviews.llvm.org.
const DefaultURL = "https://reviews.llvm.org/api/"

const errInvalidAuth = "ERR-INVALID-AUTH"

// Client calls Conduit methods. Transient failures are retried with
// exponential backoff.
type Client struct {
	baseURL string
	token   string
	dryRun  bool
	agent   string
	http    *retryablehttp.Client
	logger  *log.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL   string // DefaultURL when empty
	Token     string
	DryRun    bool // Log requests instead of sending them
	RetryMax  int  // 4 when zero
	// RetryWait overrides the backoff bounds when set.
	RetryWait time.Duration
	Timeout   time.Duration
	UserAgent string
	Logger    *log.Logger
}

// NewClient creates a Conduit client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultURL
	}
	if opts.Logger == nil {
		opts.Logger = log.DefaultLogger()
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}

	hc := retryablehttp.NewClient()
	hc.HTTPClient.Timeout = opts.Timeout
	hc.HTTPClient.Transport = otelhttp.NewTransport(hc.HTTPClient.Transport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "conduit " + strings.TrimPrefix(r.URL.Path, "/api/")
		}))
	hc.Logger = opts.Logger.With("component", "conduit")
	hc.RetryWaitMin = 500 * time.Millisecond
	hc.RetryWaitMax = 10 * time.Second
	if opts.RetryMax > 0 {
		hc.RetryMax = opts.RetryMax
	}
	if opts.RetryWait > 0 {
		hc.RetryWaitMin, hc.RetryWaitMax = opts.RetryWait, opts.RetryWait
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/") + "/",
		token:   opts.Token,
		dryRun:  opts.DryRun,
		agent:   opts.UserAgent,
		http:    hc,
		logger:  opts.Logger,
	}
}

// response is the envelope of every Conduit answer.
type response struct {
	Result    json.RawMessage `json:"result"`
	ErrorCode *string         `json:"error_code"`
	ErrorInfo *string         `json:"error_info"`
}

// Call invokes a Conduit method with params and decodes the result into out,
// which may be nil.
func (c *Client) Call(ctx context.Context, method string, params map[string]any, out any) error {
	body := make(map[string]any, len(params)+1)
	for k, v := range params {
		body[k] = v
	}
	body["__conduit__"] = map[string]string{"token": c.token}

	encoded, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReviewAPI, "encode "+method+" parameters", err)
	}

	if c.dryRun {
		c.logger.Info("dry run, not calling conduit", "method", method, "params", redact(string(encoded), c.token))
		return nil
	}

	form := url.Values{}
	form.Set("params", string(encoded))
	form.Set("output", "json")
	form.Set("__conduit__", "1")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(errors.ErrCodeReviewAPI, "create "+method+" request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.agent != "" {
		req.Header.Set("User-Agent", c.agent)
	}

	c.logger.Debug("calling conduit", "method", method)
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReviewNetwork, "conduit "+method+" unreachable", err).
			WithSuggestion("Check network access from the agent to " + c.baseURL)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReviewNetwork, "read "+method+" response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New(errors.ErrCodeReviewResponse,
			fmt.Sprintf("conduit %s returned HTTP %d: %s", method, resp.StatusCode, truncate(string(raw), 200)))
	}

	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return errors.Wrap(errors.ErrCodeReviewResponse, "decode "+method+" response", err)
	}
	if r.ErrorCode != nil {
		info := ""
		if r.ErrorInfo != nil {
			info = *r.ErrorInfo
		}
		if *r.ErrorCode == errInvalidAuth {
			return errors.New(errors.ErrCodeReviewAuth, "conduit rejected the API token: "+info).
				WithSuggestion("Set CONDUIT_TOKEN to a valid bot token")
		}
		return errors.NewReviewAPIError(method, *r.ErrorCode, info)
	}
	if out != nil && len(r.Result) > 0 {
		if err := json.Unmarshal(r.Result, out); err != nil {
			return errors.Wrap(errors.ErrCodeReviewResponse, "decode "+method+" result", err)
		}
	}
	return nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "***")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
