package auth

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/mo"

	"grebe/internal/httputil"
	"grebe/internal/media"
)

// CodeExchange performs a redirect-code login: credentials are posted to
// the login form, the authorization code is read from the query of the
// URL the login redirects to, and the code is exchanged for an access
// token at the token endpoint.
type CodeExchange struct {
	LoginURL    string
	TokenURL    string
	ClientID    string
	RedirectURI string
	Scope       string
	UserField   string // form field holding the username, e.g. "_email"
	PassField   string // form field holding the password
}

// Login runs the flow. The provider mandates login, so absent
// credentials fail with ErrLoginRequired up front.
func (f *CodeExchange) Login(client *httputil.Client, creds mo.Option[Credentials]) (*Session, error) {
	c, err := Require(creds)
	if err != nil {
		return nil, err
	}

	// The login form carries hidden anti-forgery inputs that must be
	// echoed back.
	page, err := client.Get(f.LoginURL)
	if err != nil {
		return nil, fmt.Errorf("downloading login page: %w", err)
	}

	form := hiddenInputs(string(page.Body))
	form.Set(f.UserField, c.Username)
	form.Set(f.PassField, c.Password)

	resp, err := client.PostForm(f.LoginURL, form, nil)
	if err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}

	code := resp.FinalURL.Query().Get("code")
	if code == "" {
		// Bad credentials leave the browser on the login form with no code.
		return nil, fmt.Errorf("%w: no authorization code in redirect (invalid credentials?)", media.ErrAuthFailed)
	}

	tokenResp, err := client.PostForm(f.TokenURL, url.Values{
		"scope":        {f.Scope},
		"client_id":    {f.ClientID},
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {f.RedirectURI},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("downloading token: %w", err)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(tokenResp.Body, &token); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response has no access_token", media.ErrAuthFailed)
	}

	return &Session{AccessToken: token.AccessToken, Authenticated: true}, nil
}

// hiddenInputs collects name/value pairs of hidden form inputs in a page.
func hiddenInputs(page string) url.Values {
	values := url.Values{}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return values
	}
	doc.Find(`input[type="hidden"]`).Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok || name == "" {
			return
		}
		values.Set(name, s.AttrOr("value", ""))
	})
	return values
}
