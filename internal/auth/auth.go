// Package auth implements provider login flows. A provider authenticates
// at most once per extractor instance; the resulting session is read-only
// and reused for every subsequent API call.
package auth

import (
	"github.com/samber/mo"

	"grebe/internal/media"
)

// Credentials is a username/password pair supplied by configuration.
type Credentials struct {
	Username string
	Password string
}

// Session is the artifact a successful login yields. Token-based flows
// fill AccessToken; cookie-based flows leave it empty and rely on the
// shared client's cookie jar.
type Session struct {
	AccessToken   string
	Authenticated bool
}

// Require unwraps optional credentials for a provider that mandates
// login. Absent credentials fail immediately with ErrLoginRequired,
// before any network call is attempted.
func Require(creds mo.Option[Credentials]) (Credentials, error) {
	c, ok := creds.Get()
	if !ok {
		return Credentials{}, media.ErrLoginRequired
	}
	return c, nil
}
