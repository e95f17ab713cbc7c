// client.go holds the HTTP side of the portal scraper: session, pacing and the
// retry state machine. Parsing lives in heuristics.go and the per-page files.

package eclass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"eclassbot-backend/internal/components/assert"
	"eclassbot-backend/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_request       = "client.request"
	report_client_login         = "client.login"
	report_client_get_courses   = "client.get-courses"
	report_client_scrape        = "client.scrape"
	report_client_scrape_course = "client.scrape-course"
	report_client_attendance    = "client.attendance"
	report_client_assignments   = "client.assignments"
	report_client_quizzes       = "client.quizzes"
	report_client_quiz_status   = "client.quiz-status"
)

type Options struct {
	BaseUrl   string
	LoginPath string
	Timeout   time.Duration
	UserAgent string
	// RequestsPerSecond paces every request made by one client, zero disables pacing.
	RequestsPerSecond float64
	Retry             RetryPolicy
	// Sleep is used for backoff waits, tests replace it to avoid real delays.
	Sleep Sleeper
}

const (
	DefaultLoginPath = "/login/index.php"
	DefaultUserAgent = "EclassLightClient/1.2"
	DefaultTimeout   = 20 * time.Second
)

func (o Options) withDefaults() Options {
	if o.LoginPath == "" {
		o.LoginPath = DefaultLoginPath
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Sleep == nil {
		o.Sleep = SleepContext
	}
	o.Retry = o.Retry.withDefaults()
	return o
}

// Client is one portal session. It is not safe to log in from multiple
// goroutines at once, but requests after login may be issued concurrently.
type Client struct {
	baseUrl  *url.URL
	loginUrl *url.URL
	http     *resty.Client
	retry    RetryPolicy
	sleep    Sleeper

	tel telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel, "tel")
	assert.NotEmptyStr(opts.BaseUrl, "base url")

	opts = opts.withDefaults()
	tel = telemetry.NewScopedAPI("eclass", tel)

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	loginUrl, err := baseUrl.Parse(opts.LoginPath)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)

	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetHeader("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	httpClient.SetTimeout(opts.Timeout)

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	// burst >= 1 means that no requests will be dropped, only delayed
	rateLimiter := rate.NewLimiter(limit, 1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, "eclassbot.eclass", tel)

	return &Client{
		baseUrl:  baseUrl,
		loginUrl: loginUrl,
		http:     httpClient,
		retry:    opts.Retry,
		sleep:    opts.Sleep,
		tel:      tel,
	}, nil
}

func (c *Client) BaseUrl() *url.URL {
	return c.baseUrl
}

// do runs one logical request through the retry state machine:
// 2xx succeeds, 429 waits for Retry-After (or backs off), 403/5xx/transport
// errors back off and retry until MaxAttempts, anything else fails at once.
func (c *Client) do(ctx context.Context, method, target string, prepare func(*resty.Request)) (*resty.Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		req := c.http.R().SetContext(ctx)
		if prepare != nil {
			prepare(req)
		}
		res, err := req.Execute(method, target)

		wait := c.retry.Backoff(attempt)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, target, ctx.Err())
			}
			lastErr = fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, target, err)
		case res.StatusCode() >= 200 && res.StatusCode() <= 299:
			return res, nil
		default:
			status := res.StatusCode()
			lastErr = statusError(method, target, status)
			if !c.retry.Retryable(status) {
				return nil, lastErr
			}
			if status == http.StatusTooManyRequests {
				if d, ok := c.retry.RetryAfter(res.Header().Get("Retry-After")); ok {
					wait = d
				}
			}
		}

		if attempt == c.retry.MaxAttempts-1 {
			break
		}
		c.tel.ReportDebug(
			"retrying request",
			method, target,
			"attempt", attempt+1,
			"wait", wait.String(),
			"cause", lastErr.Error(),
		)
		err = c.sleep(ctx, wait)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, target, err)
		}
	}

	c.tel.ReportWarning(report_client_request, lastErr)
	return nil, lastErr
}

func statusError(method, target string, status int) error {
	var kind error
	switch {
	case status == http.StatusTooManyRequests:
		kind = ErrRateLimited
	case status == http.StatusForbidden:
		kind = ErrBlocked
	case status >= 500 && status <= 599:
		kind = ErrTemporaryServer
	default:
		kind = ErrClient
	}
	return fmt.Errorf("%w: %s %s: status %d", kind, method, target, status)
}

type page struct {
	url *url.URL
	doc *goquery.Document
}

func (c *Client) parse(res *resty.Response, target string) (page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return page{}, fmt.Errorf("%w: parse %s: %w", ErrClient, target, err)
	}
	finalUrl := res.Request.RawRequest.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL
	}
	return page{url: finalUrl, doc: doc}, nil
}

func (c *Client) get(ctx context.Context, target string) (page, error) {
	res, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return page{}, err
	}
	return c.parse(res, target)
}

// getAuthed fetches a page that only exists for a logged in student, a
// logged out response is ErrAuthExpired.
func (c *Client) getAuthed(ctx context.Context, target, what string) (page, error) {
	p, err := c.get(ctx, target)
	if err != nil {
		return page{}, err
	}
	if !IsLoggedIn(p.doc) {
		return page{}, fmt.Errorf("%w: not logged in while opening %s", ErrAuthExpired, what)
	}
	return p, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}
