package httputil

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// validIDPattern matches provider asset ids: alphanumerics plus the
// separators the supported backends use ($ joins publication and video
// ids on broadcaster assets).
var validIDPattern = regexp.MustCompile(`^[a-zA-Z0-9/$_.-]+$`)

// ValidateURL checks that a URL is well-formed and uses HTTPS. Plain
// HTTP is tolerated on loopback hosts only.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	if u.Scheme == "https" {
		return nil
	}
	if u.Scheme == "http" && isLoopback(u.Hostname()) {
		return nil
	}
	return fmt.Errorf("only HTTPS URLs are allowed, got %q", u.Scheme)
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// ValidateID checks that a provider asset id contains only safe characters
// before it is interpolated into an API path.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("ID cannot be empty")
	}
	if len(id) > 256 {
		return fmt.Errorf("ID too long: %d characters", len(id))
	}
	if !validIDPattern.MatchString(id) {
		return fmt.Errorf("ID contains invalid characters: %q", id)
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("ID contains path traversal: %q", id)
	}
	return nil
}

// Ext returns the lowercased file extension of a URL path, without the
// dot, ignoring query parameters. Empty when the path has none.
func Ext(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := u.Path
	idx := strings.LastIndex(path, ".")
	if idx == -1 || idx == len(path)-1 {
		return ""
	}
	ext := strings.ToLower(path[idx+1:])
	if strings.ContainsAny(ext, "/") {
		return ""
	}
	return ext
}
