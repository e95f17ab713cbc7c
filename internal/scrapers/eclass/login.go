package eclass

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	msgFormNotFound    = "Login form not found (layout changed or blocked)."
	msgInvalidPassword = "Invalid username or password."
	msgUnknownFailure  = "Login failed (unknown)."
	msgTimeout         = "Timeout connecting to eClass."
	msgNetwork         = "Network error connecting to eClass."
)

// submitLogin reads the login form, forwards every hidden field verbatim and
// posts the credentials, returning the page the post landed on.
func (c *Client) submitLogin(ctx context.Context, username, password string) (page, error) {
	loginPage, err := c.get(ctx, c.loginUrl.String())
	if err != nil {
		return page{}, err
	}

	form := loginPage.doc.Find("form.mform.form-login").First()
	if form.Length() == 0 {
		return page{}, fmt.Errorf("%w: %s", ErrLoginFailed, msgFormNotFound)
	}

	postUrl := c.loginUrl
	if action, ok := form.Attr("action"); ok && strings.TrimSpace(action) != "" {
		resolved, err := c.baseUrl.Parse(strings.TrimSpace(action))
		if err == nil {
			postUrl = resolved
		}
	}

	payload := map[string]string{}
	for _, n := range form.Find("input[name]").Nodes {
		var name, typ, value string
		for _, a := range n.Attr {
			switch a.Key {
			case "name":
				name = a.Val
			case "type":
				typ = strings.ToLower(a.Val)
			case "value":
				value = a.Val
			}
		}
		if name != "" && typ == "hidden" {
			payload[name] = value
		}
	}
	payload["username"] = username
	payload["password"] = password

	submit := form.Find(`input[type="submit"][name]`).First()
	if name, ok := submit.Attr("name"); ok && name != "" {
		payload[name] = submit.AttrOr("value", "Log in")
	}

	origin := fmt.Sprintf("%s://%s", c.baseUrl.Scheme, c.baseUrl.Host)
	res, err := c.do(ctx, http.MethodPost, postUrl.String(), func(req *resty.Request) {
		req.SetFormData(payload).
			SetHeader("Origin", origin).
			SetHeader("Referer", loginPage.url.String())
	})
	if err != nil {
		return page{}, err
	}
	return c.parse(res, postUrl.String())
}

// Login authenticates the client's session, every failure to end up logged in
// is ErrLoginFailed with the portal's own message when one is shown.
func (c *Client) Login(ctx context.Context, username, password string) error {
	err := c.login(ctx, username, password)
	if err != nil {
		c.tel.ReportWarning(report_client_login, username, err)
	}
	return err
}

func (c *Client) login(ctx context.Context, username, password string) error {
	posted, err := c.submitLogin(ctx, username, password)
	if err != nil {
		return err
	}
	if IsLoggedIn(posted.doc) {
		return nil
	}

	home, err := c.get(ctx, c.baseUrl.String())
	if err != nil {
		return err
	}
	if IsLoggedIn(home.doc) {
		return nil
	}

	if msg := LoginError(posted.doc); msg != "" {
		return fmt.Errorf("%w: %s", ErrLoginFailed, msg)
	}
	if msg := LoginError(home.doc); msg != "" {
		return fmt.Errorf("%w: %s", ErrLoginFailed, msg)
	}
	if LooksLikeLoginPage(home.doc) || strings.Contains(home.url.String(), "login") {
		return fmt.Errorf("%w: ended at %s", ErrLoginFailed, home.url)
	}
	return fmt.Errorf("%w: no error message found", ErrLoginFailed)
}

// CheckCredentials is the non-failing variant of Login for interactive
// validation, it reports success or a message fit to show the student.
// On success the client is left logged in.
func (c *Client) CheckCredentials(ctx context.Context, username, password string) (bool, string) {
	ok, msg, err := c.checkCredentials(ctx, username, password)
	if err != nil {
		c.tel.ReportDebug("check credentials failed", username, err)
		switch {
		case isTimeout(err):
			return false, msgTimeout
		case errors.Is(err, ErrLoginFailed):
			return false, msgFormNotFound
		default:
			return false, msgNetwork
		}
	}
	return ok, msg
}

func (c *Client) checkCredentials(ctx context.Context, username, password string) (bool, string, error) {
	posted, err := c.submitLogin(ctx, username, password)
	if err != nil {
		return false, "", err
	}
	if IsLoggedIn(posted.doc) {
		return true, "", nil
	}
	if msg := LoginError(posted.doc); msg != "" {
		return false, msg, nil
	}

	home, err := c.get(ctx, c.baseUrl.String())
	if err != nil {
		return false, "", err
	}
	if IsLoggedIn(home.doc) {
		return true, "", nil
	}
	if LooksLikeLoginPage(home.doc) {
		return false, msgInvalidPassword, nil
	}
	return false, msgUnknownFailure, nil
}
