package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"eclassbot-backend/internal/components/assert"
	"eclassbot-backend/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const DefaultTelegramApi = "https://api.telegram.org"

type TelegramOptions struct {
	Token   string
	ApiBase string
	Timeout time.Duration
	// MessagesPerSecond paces sendMessage calls, zero means 25.
	MessagesPerSecond float64
}

// Telegram sends HTML messages through the Bot API.
type Telegram struct {
	http   *resty.Client
	token  string
	redact func(string) string
}

type telegramResponse struct {
	Ok          bool   `json:"ok"`
	Description string `json:"description"`
}

func NewTelegram(opts TelegramOptions, tel telemetry.API) *Telegram {
	assert.NotEmptyStr(opts.Token, "telegram token")
	assert.NotNil(tel, "tel")

	if opts.ApiBase == "" {
		opts.ApiBase = DefaultTelegramApi
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MessagesPerSecond <= 0 {
		opts.MessagesPerSecond = 25
	}

	client := resty.New()
	client.SetBaseURL(opts.ApiBase)
	client.SetTimeout(opts.Timeout)
	client.SetHeader("content-type", "application/json")

	limiter := rate.NewLimiter(rate.Limit(opts.MessagesPerSecond), 1)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	redact := strings.NewReplacer(opts.Token, "<redacted>").Replace
	telemetry.InstrumentRestyRedacted(client, "eclassbot.telegram", telemetry.NewScopedAPI("telegram", tel), redact)

	return &Telegram{
		http:   client,
		token:  opts.Token,
		redact: redact,
	}
}

// Send posts one message. The token is part of the request url, so neither
// the returned error nor any report may carry the url unredacted.
func (t *Telegram) Send(ctx context.Context, chatID, text string) error {
	result := &telegramResponse{}
	res, err := t.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"chat_id":                  chatID,
			"text":                     text,
			"parse_mode":               "HTML",
			"disable_web_page_preview": true,
		}).
		SetRawPathParam("token", t.token).
		SetResult(result).
		SetError(result).
		Post("/bot{token}/sendMessage")
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return fmt.Errorf("send message: %s %s: %w", urlErr.Op, t.redact(urlErr.URL), urlErr.Err)
		}
		return fmt.Errorf("send message: %s", t.redact(err.Error()))
	}
	if res.IsError() || !result.Ok {
		return fmt.Errorf("send message: status %d: %s", res.StatusCode(), result.Description)
	}
	return nil
}
