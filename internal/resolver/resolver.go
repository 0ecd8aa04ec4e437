// Package resolver extracts provider-internal asset ids from page markup.
package resolver

import (
	"regexp"

	"grebe/internal/media"
)

// Table is an ordered list of id recognizers tried in sequence; the
// first match wins. Patterns cover embedded script variables, DOM
// attributes and iframe src parameters, so a provider supplies one
// table for all its page layouts.
type Table struct {
	patterns []*regexp.Regexp
}

// NewTable compiles the given patterns. Each pattern must capture the
// asset id in a group named "id", or in its first group when no named
// group exists. Compilation failures panic: tables are package-level
// constants of their providers.
func NewTable(patterns ...string) *Table {
	t := &Table{}
	for _, p := range patterns {
		t.patterns = append(t.patterns, regexp.MustCompile(p))
	}
	return t
}

// Resolve returns the first captured id in the page markup, or
// media.ErrIDNotFound when no pattern matches. Resolution failure is
// fatal for the item: nothing downstream can run without an id.
func (t *Table) Resolve(page string) (string, error) {
	for _, re := range t.patterns {
		m := re.FindStringSubmatch(page)
		if m == nil {
			continue
		}
		if idx := re.SubexpIndex("id"); idx >= 0 && idx < len(m) && m[idx] != "" {
			return m[idx], nil
		}
		if len(m) > 1 && m[1] != "" {
			return m[1], nil
		}
	}
	return "", media.ErrIDNotFound
}
