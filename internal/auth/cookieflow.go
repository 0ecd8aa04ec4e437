package auth

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/samber/mo"

	"grebe/internal/httputil"
	"grebe/internal/media"
)

// CookieLogin performs a cookie/bearer login: a priming request collects
// session and anti-CSRF cookies, then credentials are posted with the
// CSRF cookie value echoed in a header. The API later reads its bearer
// token out of an identity cookie the login set.
type CookieLogin struct {
	PrimeURL   string // session-priming endpoint, fetched without credentials
	LoginURL   string
	ClientID   string
	CSRFSite   string // site whose jar holds the CSRF cookie
	CSRFCookie string // cookie name, e.g. "OIDCXSRF"
	CSRFHeader string // request header the cookie value is echoed in
}

// Login runs the flow. Providers using this flow work anonymously for
// free content, so absent credentials yield an unauthenticated session
// rather than an error.
func (f *CookieLogin) Login(client *httputil.Client, creds mo.Option[Credentials]) (*Session, error) {
	c, ok := creds.Get()
	if !ok {
		return &Session{}, nil
	}

	if _, err := client.Get(f.PrimeURL); err != nil {
		return nil, fmt.Errorf("getting session cookies: %w", err)
	}

	csrf := client.CookieValue(f.CSRFSite, f.CSRFCookie)
	if csrf == "" {
		return nil, fmt.Errorf("%w: priming request set no %s cookie", media.ErrAuthFailed, f.CSRFCookie)
	}

	payload, err := json.Marshal(map[string]string{
		"loginID":  c.Username,
		"password": c.Password,
		"clientId": f.ClientID,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding login payload: %w", err)
	}

	resp, err := client.PostJSON(f.LoginURL, payload, map[string]string{
		f.CSRFHeader: csrf,
	})
	if err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}
	if resp.Status != http.StatusOK {
		return nil, fmt.Errorf("%w: login endpoint returned status %d", media.ErrAuthFailed, resp.Status)
	}

	return &Session{Authenticated: true}, nil
}
