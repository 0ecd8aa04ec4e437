// Package subtitle handles merging and normalizing subtitle track maps
// collected from manifest expansion and provider-listed subtitle URLs.
package subtitle

import (
	"strings"

	"github.com/samber/lo"

	"grebe/internal/media"
)

// Keyed returns the language key a track files under: its own language
// when declared, otherwise the provider's default.
func Keyed(lang, fallback string) string {
	if lang != "" {
		return lang
	}
	return fallback
}

// Merge appends src tracks into dst by language. dst must not be nil.
func Merge(dst, src map[string][]media.SubtitleTrack) {
	for lang, tracks := range src {
		dst[lang] = append(dst[lang], tracks...)
	}
}

// Dedupe removes tracks with duplicate URLs within each language,
// keeping the first occurrence. Languages left empty are dropped.
func Dedupe(m map[string][]media.SubtitleTrack) {
	for lang, tracks := range m {
		unique := lo.UniqBy(tracks, func(t media.SubtitleTrack) string {
			return t.URL
		})
		if len(unique) == 0 {
			delete(m, lang)
			continue
		}
		m[lang] = unique
	}
}

// Filter returns the tracks whose language key matches the preference
// (case-insensitive substring). Empty preference returns everything.
func Filter(m map[string][]media.SubtitleTrack, language string) []media.SubtitleTrack {
	var matched []media.SubtitleTrack
	if language == "" {
		for _, tracks := range m {
			matched = append(matched, tracks...)
		}
		return matched
	}

	want := strings.ToLower(language)
	for lang, tracks := range m {
		if strings.Contains(strings.ToLower(lang), want) {
			matched = append(matched, tracks...)
		}
	}
	return matched
}
