// Package classify turns heterogeneous provider stream descriptors into
// a flat, ordered list of playable variants plus subtitle tracks.
package classify

import (
	"strings"

	"github.com/sirupsen/logrus"

	"grebe/internal/httputil"
	"grebe/internal/media"
	"grebe/internal/subtitle"
)

// Kind is a recognized manifest family.
type Kind string

const (
	KindHLS  Kind = "hls"
	KindDASH Kind = "dash"
	KindISM  Kind = "ism" // smooth streaming
	KindHDS  Kind = "hds" // legacy Adobe
	KindRaw  Kind = "raw"
)

// StreamInfo is one stream descriptor as a provider's API reports it.
type StreamInfo struct {
	Type     string // declared manifest type, may be empty
	URL      string
	Language string // declared track language, may be empty
}

// SubtitleRef is an explicitly listed subtitle URL, outside any manifest.
type SubtitleRef struct {
	URL      string
	Language string
	Label    string
}

// Expander is the external manifest-expansion capability. Implementations
// must return empty results rather than failing hard on unreachable or
// malformed manifests; the classifier additionally treats any returned
// error as non-fatal.
type Expander interface {
	ExpandHLS(manifestURL, itemID, ext string) ([]media.Format, map[string][]media.SubtitleTrack, error)
	ExpandDASH(manifestURL, itemID string) ([]media.Format, map[string][]media.SubtitleTrack, error)
	ExpandISM(manifestURL, itemID string) ([]media.Format, map[string][]media.SubtitleTrack, error)
	ExpandHDS(manifestURL, itemID string) ([]media.Format, error)
}

// Classifier dispatches stream descriptors to the expander based on a
// per-provider policy of enabled manifest kinds.
type Classifier struct {
	Expander Expander
	// Enabled limits which manifest kinds the provider expands. Nil
	// enables everything. Descriptors of a disabled kind are skipped,
	// mirroring providers whose players never emit that format.
	Enabled map[Kind]bool
	// DefaultLanguage keys subtitle tracks that declare no language.
	DefaultLanguage string
}

// Classify determines the manifest kind of one descriptor. The declared
// type takes precedence; the URL file extension is only consulted when
// the type is absent or unrecognized. Pure.
func Classify(streamType, url string) Kind {
	switch strings.ToUpper(streamType) {
	case "HLS", "HLS_AES":
		return KindHLS
	case "MPEG_DASH", "DASH":
		return KindDASH
	case "HSS":
		return KindISM
	case "HDS":
		return KindHDS
	}

	switch httputil.Ext(url) {
	case "m3u8":
		return KindHLS
	case "mpd":
		return KindDASH
	case "ism", "isml":
		return KindISM
	case "f4m":
		return KindHDS
	}

	return KindRaw
}

// Expand classifies and expands every descriptor, merging the results.
// DRM presence is reported but formats are still attempted. Expansion
// failures drop the affected variants and never abort the pipeline.
func (c *Classifier) Expand(itemID string, streams []StreamInfo, subs []SubtitleRef, drm bool) ([]media.Format, map[string][]media.SubtitleTrack) {
	if drm {
		logrus.Warnf("%s: stream is DRM protected, playback may fail", itemID)
	}

	var formats []media.Format
	subtitles := make(map[string][]media.SubtitleTrack)

	for _, s := range streams {
		if s.URL == "" {
			continue
		}

		kind := Classify(s.Type, s.URL)
		if kind != KindRaw && c.Enabled != nil && !c.Enabled[kind] {
			logrus.Debugf("%s: skipping disabled manifest kind %s", itemID, kind)
			continue
		}

		fmts, fmtSubs, err := c.expandOne(kind, s, itemID)
		if err != nil {
			logrus.Warnf("%s: expanding %s manifest %s: %v", itemID, kind, s.URL, err)
			continue
		}

		// Tag variants with the track's declared language, keeping any
		// language the expansion itself already set.
		for i := range fmts {
			if fmts[i].Language == "" {
				fmts[i].Language = s.Language
			}
		}

		formats = append(formats, fmts...)
		subtitle.Merge(subtitles, fmtSubs)
	}

	for _, ref := range subs {
		if ref.URL == "" {
			continue
		}
		lang := subtitle.Keyed(ref.Language, c.DefaultLanguage)
		subtitles[lang] = append(subtitles[lang], media.SubtitleTrack{URL: ref.URL, Label: ref.Label})
	}
	subtitle.Dedupe(subtitles)

	// Broken expansions may have produced URL-less entries; those are
	// dropped, never surfaced as unplayable formats.
	kept := formats[:0]
	for _, f := range formats {
		if f.URL != "" {
			kept = append(kept, f)
		}
	}
	formats = kept

	media.SortFormats(formats)
	return formats, subtitles
}

func (c *Classifier) expandOne(kind Kind, s StreamInfo, itemID string) ([]media.Format, map[string][]media.SubtitleTrack, error) {
	switch kind {
	case KindHLS:
		return c.Expander.ExpandHLS(s.URL, itemID, "mp4")
	case KindDASH:
		return c.Expander.ExpandDASH(s.URL, itemID)
	case KindISM:
		return c.Expander.ExpandISM(s.URL, itemID)
	case KindHDS:
		fmts, err := c.Expander.ExpandHDS(s.URL, itemID)
		return fmts, nil, err
	default:
		tag := s.Type
		if tag == "" {
			tag = "raw"
		}
		return []media.Format{{
			ID:       tag,
			URL:      s.URL,
			Ext:      httputil.Ext(s.URL),
			Protocol: media.ProtocolHTTP,
		}}, nil, nil
	}
}
