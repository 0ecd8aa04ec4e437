package media

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIDNotFound indicates no id pattern matched the page markup.
	ErrIDNotFound = errors.New("no media id found in page")
	// ErrLoginRequired indicates the provider mandates login and no
	// credentials are configured.
	ErrLoginRequired = errors.New("login required")
	// ErrAuthFailed indicates a login attempt was rejected.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrForbidden indicates the API refused access for an unspecified reason.
	ErrForbidden = errors.New("access to stream info forbidden")
	// ErrNotFound indicates the item does not exist upstream.
	ErrNotFound = errors.New("item not found")
	// ErrMalformedResponse indicates the API response lacked an expected field.
	ErrMalformedResponse = errors.New("malformed API response")
)

// GeoDeniedError reports playback denied by geographic restriction,
// naming the countries where the item is available.
type GeoDeniedError struct {
	Countries []string
}

func (e *GeoDeniedError) Error() string {
	if len(e.Countries) == 0 {
		return "stream is geo-restricted"
	}
	return fmt.Sprintf("stream is geo-restricted to %s", strings.Join(e.Countries, ", "))
}

// IsGeoDenied reports whether err is a geo restriction, returning the
// restricted country set when it is.
func IsGeoDenied(err error) ([]string, bool) {
	var geo *GeoDeniedError
	if errors.As(err, &geo) {
		return geo.Countries, true
	}
	return nil, false
}
