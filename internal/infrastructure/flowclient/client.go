// Package flowclient talks to the Flow upstream: the labs.google session
// endpoints and the aisandbox generation API.
package flowclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"jan-server/services/flow-api/internal/domain/flow"
	"jan-server/services/flow-api/internal/domain/retry"
	"jan-server/services/flow-api/internal/infrastructure/metrics"
	"jan-server/services/flow-api/internal/infrastructure/observability"
	"jan-server/services/flow-api/internal/utils/redact"
)

const (
	DefaultLabsBaseURL    = "https://labs.google"
	DefaultSandboxBaseURL = "https://aisandbox-pa.googleapis.com"

	sessionCookie = "__Secure-next-auth.session-token"
	csrfCookie    = "__Host-next-auth.csrf-token"
	labsReferer   = "https://labs.google/fx/tools/flow"
	sandboxRefer  = "https://labs.google/"
	sandboxType   = "text/plain;charset=UTF-8"
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Config configures a Client.
type Config struct {
	LabsBaseURL    string
	SandboxBaseURL string
	Timeout        time.Duration
	RetryPolicy    retry.Policy
	PaygateTier    string
	MaxDownload    int64
}

// ProjectLocker serializes project get-or-create per session.
type ProjectLocker interface {
	WithProjectLock(ctx context.Context, session string, fn func(ctx context.Context) error) error
}

// Client implements every upstream operation the service needs.
type Client struct {
	labs          *resty.Client
	sandbox       *resty.Client
	download      *resty.Client
	videoDownload *resty.Client
	cfg           Config
	locker        ProjectLocker
	log           zerolog.Logger
	now           func() time.Time
}

// NewClient creates Resty-backed clients for both upstream hosts.
func NewClient(cfg Config, locker ProjectLocker, log zerolog.Logger) *Client {
	if cfg.LabsBaseURL == "" {
		cfg.LabsBaseURL = DefaultLabsBaseURL
	}
	if cfg.SandboxBaseURL == "" {
		cfg.SandboxBaseURL = DefaultSandboxBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RetryPolicy.MaxAttempts <= 0 {
		cfg.RetryPolicy = retry.UpstreamPolicy(5*time.Second, 3)
	}
	if cfg.PaygateTier == "" {
		cfg.PaygateTier = flow.DefaultUserPaygateTier
	}

	return &Client{
		labs: resty.New().
			SetBaseURL(strings.TrimRight(cfg.LabsBaseURL, "/")).
			SetHeader("accept", "*/*").
			SetHeader("cache-control", "no-cache").
			SetHeader("pragma", "no-cache").
			SetHeader("content-type", "application/json").
			SetHeader("Referer", labsReferer).
			SetTimeout(cfg.Timeout),
		sandbox: resty.New().
			SetBaseURL(strings.TrimRight(cfg.SandboxBaseURL, "/")).
			SetHeader("accept", "*/*").
			SetHeader("cache-control", "no-cache").
			SetHeader("pragma", "no-cache").
			SetHeader("Referer", sandboxRefer).
			SetTimeout(cfg.Timeout),
		download: resty.New().
			SetHeader("accept", "*/*").
			SetHeader("user-agent", userAgent).
			SetTimeout(cfg.Timeout),
		videoDownload: resty.New().
			SetHeader("accept", "*/*").
			SetHeader("user-agent", userAgent).
			SetTimeout(3 * cfg.Timeout),
		cfg:    cfg,
		locker: locker,
		log:    log.With().Str("component", "flow-client").Logger(),
		now:    time.Now,
	}
}

// PaygateTier returns the tier sent in clientContext.
func (c *Client) PaygateTier() string {
	return c.cfg.PaygateTier
}

func (c *Client) labsRequest(ctx context.Context, creds flow.Credentials) *resty.Request {
	cookie := sessionCookie + "=" + creds.SessionToken
	if creds.CSRFToken != "" {
		cookie += "; " + csrfCookie + "=" + creds.CSRFToken
	}
	return c.labs.R().SetContext(ctx).SetHeader("cookie", cookie)
}

func (c *Client) sandboxRequest(ctx context.Context, accessToken string) *resty.Request {
	return c.sandbox.R().SetContext(ctx).SetHeader("authorization", "Bearer "+accessToken)
}

// call performs one upstream round trip and classifies the outcome.
type call func(ctx context.Context) (*resty.Response, error)

// once runs a call a single time. Reads and project creation are not retried.
func (c *Client) once(ctx context.Context, op string, fn call) (gjson.Result, error) {
	resp, err := c.onceRaw(ctx, op, fn)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(resp.Body()), nil
}

func (c *Client) onceRaw(ctx context.Context, op string, fn call) (*resty.Response, error) {
	ctx, span := observability.StartUpstreamSpan(ctx, op)
	defer span.End()

	resp, err := c.attempt(ctx, op, fn)
	if err != nil {
		observability.RecordError(span, err, string(flow.KindOf(err)))
	}
	return resp, err
}

// withRetry runs a call under the retry policy. Only rate limits and transport
// failures are repeated.
func (c *Client) withRetry(ctx context.Context, op string, fn call) (gjson.Result, error) {
	ctx, span := observability.StartUpstreamSpan(ctx, op)
	defer span.End()

	executor := retry.NewExecutor(c.cfg.RetryPolicy,
		retry.WithClassifier(flow.IsRetryable),
		retry.WithOnRetry(func(ev retry.Event) {
			reason := string(flow.KindOf(ev.Err))
			metrics.RecordRetry(op, reason)
			observability.AddRetryEvent(span, ev.Attempt, reason)
			c.log.Warn().
				Str("operation", op).
				Int("attempt", ev.Attempt).
				Int("max_attempts", c.cfg.RetryPolicy.MaxAttempts).
				Dur("wait", ev.Delay).
				Str("reason", reason).
				Msg("upstream call failed, retrying")
		}),
	)

	resp, err := retry.Do(ctx, executor, func(ctx context.Context, _ int) (*resty.Response, error) {
		return c.attempt(ctx, op, fn)
	})
	if err != nil {
		observability.RecordError(span, err, string(flow.KindOf(err)))
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(resp.Body()), nil
}

func (c *Client) attempt(ctx context.Context, op string, fn call) (*resty.Response, error) {
	start := time.Now()
	resp, err := fn(ctx)
	err = classify(op, resp, err)

	outcome := "success"
	if err != nil {
		outcome = string(flow.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
		c.log.Debug().Str("error", redact.Message(err.Error())).Str("operation", op).Msg("upstream call failed")
	}
	metrics.RecordUpstreamCall(op, outcome, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// classify maps a Resty outcome onto the flow error taxonomy.
func classify(op string, resp *resty.Response, err error) error {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return flow.NewError(flow.KindNetwork, op, "transport failure").WithCause(err)
	}

	status := resp.StatusCode()
	if status == http.StatusTooManyRequests && isResourceExhausted(resp.Body()) {
		return flow.NewError(flow.KindRateLimited, op, "upstream concurrency limit reached").
			WithStatus(status)
	}
	if status != http.StatusOK {
		return flow.HTTPError(op, status)
	}
	return nil
}

func isResourceExhausted(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	errObj := gjson.GetBytes(body, "error")
	return errObj.Get("code").Int() == http.StatusTooManyRequests ||
		errObj.Get("status").String() == "RESOURCE_EXHAUSTED"
}

func marshal(op string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, flow.NewError(flow.KindHTTP, op, "encode request body").WithCause(err)
	}
	return payload, nil
}

// postSandbox sends a JSON body as text/plain, the way the web client does.
func (c *Client) postSandbox(accessToken, path string, payload []byte) call {
	return func(ctx context.Context) (*resty.Response, error) {
		return c.sandboxRequest(ctx, accessToken).
			SetHeader("content-type", sandboxType).
			SetBody(payload).
			Post(path)
	}
}
