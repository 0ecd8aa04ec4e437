// Package provider implements the site-specific extraction pipelines
// and the registry that dispatches URLs to them.
package provider

import (
	"errors"

	"grebe/internal/media"
)

// ErrUnsupportedURL indicates no registered provider recognizes a URL.
var ErrUnsupportedURL = errors.New("no provider recognizes this URL")

// Sequence is a lazy, forward-only stream of extraction results. A
// listing URL yields one result per item; a single-item URL yields one.
type Sequence interface {
	Next() (media.Result, bool)
}

// Provider is one content source's extraction pipeline.
type Provider interface {
	// Name is the stable provider key used in config and delegation.
	Name() string

	// Match reports whether this provider handles the URL.
	Match(rawURL string) bool

	// Extract resolves the URL into a result sequence. Fatal errors on
	// a single item (unresolvable id, failed login) surface here;
	// per-item errors inside listings are skipped by the sequence.
	Extract(rawURL string) (Sequence, error)
}

// Registry holds the fixed set of known providers, tried in order.
type Registry struct {
	providers []Provider
}

// NewRegistry creates a registry over the given providers.
func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

// Find returns the provider for a URL, or ErrUnsupportedURL.
func (r *Registry) Find(rawURL string) (Provider, error) {
	for _, p := range r.providers {
		if p.Match(rawURL) {
			return p, nil
		}
	}
	return nil, ErrUnsupportedURL
}

// All returns the registered providers.
func (r *Registry) All() []Provider {
	return r.providers
}

// single is a Sequence of exactly one result.
type single struct {
	result media.Result
	done   bool
}

// Single wraps one result as a Sequence.
func Single(r media.Result) Sequence {
	return &single{result: r}
}

func (s *single) Next() (media.Result, bool) {
	if s.done {
		return media.Result{}, false
	}
	s.done = true
	return s.result, true
}

// list is a Sequence over an already-materialized result slice.
type list struct {
	results []media.Result
}

// FromResults wraps a result slice as a Sequence.
func FromResults(results []media.Result) Sequence {
	return &list{results: results}
}

func (l *list) Next() (media.Result, bool) {
	if len(l.results) == 0 {
		return media.Result{}, false
	}
	r := l.results[0]
	l.results = l.results[1:]
	return r, true
}
