package eclass

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"eclassbot-backend/internal/components/assert"
	"eclassbot-backend/internal/components/telemetry"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Portal hands out logged in clients and keeps recent sessions around so a
// credential check followed by a scrape only logs in once.
type Portal struct {
	opts     Options
	tel      telemetry.API
	scoped   telemetry.API
	sessions *expirable.LRU[string, *Client]
}

const sessionTTL = 10 * time.Minute

func NewPortal(opts Options, tel telemetry.API) *Portal {
	assert.NotNil(tel, "tel")
	return &Portal{
		opts:     opts,
		tel:      tel,
		scoped:   telemetry.NewScopedAPI("eclass", tel),
		sessions: expirable.NewLRU[string, *Client](256, nil, sessionTTL),
	}
}

func sessionKey(username, password string) string {
	sum := sha256.Sum256([]byte(username + "\x00" + password))
	return hex.EncodeToString(sum[:])
}

// Session returns a logged in client for the credentials.
func (p *Portal) Session(ctx context.Context, username, password string) (*Client, error) {
	key := sessionKey(username, password)
	if cached, hit := p.sessions.Get(key); hit {
		return cached, nil
	}

	client, err := NewClient(p.opts, p.tel)
	if err != nil {
		return nil, err
	}
	err = client.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	p.sessions.Add(key, client)
	return client, nil
}

// Forget drops a cached session.
func (p *Portal) Forget(username, password string) {
	p.sessions.Remove(sessionKey(username, password))
}

// Scrape logs in (or reuses a session) and scrapes every course. A cached
// session that turns out to be expired is replaced by a fresh login once.
func (p *Portal) Scrape(ctx context.Context, username, password string) (StudentData, error) {
	key := sessionKey(username, password)
	_, wasCached := p.sessions.Peek(key)

	client, err := p.Session(ctx, username, password)
	if err != nil {
		return StudentData{}, err
	}
	data, err := client.Scrape(ctx)
	if err != nil && wasCached && errors.Is(err, ErrAuthExpired) {
		p.Forget(username, password)
		client, err = p.Session(ctx, username, password)
		if err != nil {
			return StudentData{}, err
		}
		data, err = client.Scrape(ctx)
	}
	if err != nil {
		if InvalidatesCredentials(err) {
			p.Forget(username, password)
		}
		return StudentData{}, err
	}
	return data, nil
}

// CheckCredentials validates credentials without failing, a successful login
// is kept as a session.
func (p *Portal) CheckCredentials(ctx context.Context, username, password string) (bool, string) {
	client, err := NewClient(p.opts, p.tel)
	if err != nil {
		p.scoped.ReportBroken(report_client_login, err)
		return false, msgNetwork
	}
	ok, msg := client.CheckCredentials(ctx, username, password)
	if ok {
		p.sessions.Add(sessionKey(username, password), client)
	}
	return ok, msg
}
