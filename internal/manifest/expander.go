// Package manifest expands stream manifests into concrete variants.
// HLS master playlists are parsed fully; DASH, smooth-streaming and
// legacy Adobe manifests are surfaced as single manifest-URL variants
// handed to the downloader untouched.
package manifest

import (
	"bufio"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"grebe/internal/httputil"
	"grebe/internal/media"
)

// HTTPExpander fetches and expands manifests over the shared client.
// It satisfies the classifier's Expander contract: unreachable or
// malformed manifests yield an error the caller treats as non-fatal.
type HTTPExpander struct {
	Client *httputil.Client
}

// NewHTTPExpander wires an expander to a client.
func NewHTTPExpander(client *httputil.Client) *HTTPExpander {
	return &HTTPExpander{Client: client}
}

// ExpandHLS fetches an HLS playlist. A master playlist yields one
// variant per EXT-X-STREAM-INF entry plus any EXT-X-MEDIA subtitle
// renditions; a media playlist yields a single variant for itself.
func (e *HTTPExpander) ExpandHLS(manifestURL, itemID, ext string) ([]media.Format, map[string][]media.SubtitleTrack, error) {
	resp, err := e.Client.Get(manifestURL)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching HLS manifest: %w", err)
	}
	if resp.Status != 200 {
		return nil, nil, fmt.Errorf("HLS manifest returned status %d", resp.Status)
	}

	body := string(resp.Body)
	if !strings.HasPrefix(strings.TrimSpace(body), "#EXTM3U") {
		return nil, nil, fmt.Errorf("response is not an M3U playlist")
	}

	base, err := url.Parse(manifestURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing manifest URL: %w", err)
	}

	return parseMaster(body, base, ext)
}

// ExpandDASH surfaces the MPD as one variant; segment-level expansion
// is the downloader's concern.
func (e *HTTPExpander) ExpandDASH(manifestURL, itemID string) ([]media.Format, map[string][]media.SubtitleTrack, error) {
	return []media.Format{{
		ID:       "MPEG_DASH",
		URL:      manifestURL,
		Ext:      "mp4",
		Protocol: media.ProtocolDASH,
	}}, nil, nil
}

// ExpandISM surfaces the smooth-streaming manifest as one variant.
func (e *HTTPExpander) ExpandISM(manifestURL, itemID string) ([]media.Format, map[string][]media.SubtitleTrack, error) {
	return []media.Format{{
		ID:       "HSS",
		URL:      manifestURL,
		Ext:      "ismv",
		Protocol: media.ProtocolISM,
	}}, nil, nil
}

// ExpandHDS surfaces the f4m manifest as one variant.
func (e *HTTPExpander) ExpandHDS(manifestURL, itemID string) ([]media.Format, error) {
	return []media.Format{{
		ID:       "HDS",
		URL:      manifestURL,
		Ext:      "flv",
		Protocol: media.ProtocolHDS,
	}}, nil
}

// parseMaster walks playlist lines. EXT-X-STREAM-INF attributes apply to
// the URI on the following line; relative URIs resolve against the
// manifest's own URL.
func parseMaster(body string, base *url.URL, ext string) ([]media.Format, map[string][]media.SubtitleTrack, error) {
	var formats []media.Format
	subtitles := make(map[string][]media.SubtitleTrack)

	var pending *media.Format
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			attrs := parseAttributes(strings.TrimPrefix(line, "#EXT-X-STREAM-INF:"))
			f := media.Format{Ext: ext, Protocol: media.ProtocolHLS}
			if bw, err := strconv.Atoi(attrs["BANDWIDTH"]); err == nil {
				f.Bitrate = bw
			}
			if res := attrs["RESOLUTION"]; res != "" {
				if _, h, ok := strings.Cut(res, "x"); ok {
					f.Height, _ = strconv.Atoi(h)
				}
			}
			pending = &f

		case strings.HasPrefix(line, "#EXT-X-MEDIA:"):
			attrs := parseAttributes(strings.TrimPrefix(line, "#EXT-X-MEDIA:"))
			if attrs["TYPE"] != "SUBTITLES" || attrs["URI"] == "" {
				continue
			}
			lang := attrs["LANGUAGE"]
			subtitles[lang] = append(subtitles[lang], media.SubtitleTrack{
				URL:   resolveRef(base, attrs["URI"]),
				Label: attrs["NAME"],
			})

		case line == "" || strings.HasPrefix(line, "#"):
			// other tags carry no variant information here

		default:
			if pending == nil {
				continue
			}
			pending.URL = resolveRef(base, line)
			pending.ID = variantID(*pending)
			formats = append(formats, *pending)
			pending = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scanning playlist: %w", err)
	}

	// A media playlist has no variant entries; the playlist itself is
	// the single playable rendition.
	if len(formats) == 0 && len(subtitles) == 0 {
		formats = append(formats, media.Format{
			ID:       "HLS",
			URL:      base.String(),
			Ext:      ext,
			Protocol: media.ProtocolHLS,
		})
	}

	return formats, subtitles, nil
}

func variantID(f media.Format) string {
	if f.Height > 0 {
		return fmt.Sprintf("HLS-%d", f.Height)
	}
	if f.Bitrate > 0 {
		return fmt.Sprintf("HLS-%d", f.Bitrate/1000)
	}
	return "HLS"
}

// parseAttributes splits an m3u8 attribute list, honoring quoted values
// that may contain commas.
func parseAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	for len(s) > 0 {
		eq := strings.Index(s, "=")
		if eq == -1 {
			break
		}
		key := strings.TrimSpace(s[:eq])
		s = s[eq+1:]

		var value string
		if strings.HasPrefix(s, `"`) {
			end := strings.Index(s[1:], `"`)
			if end == -1 {
				break
			}
			value = s[1 : 1+end]
			s = strings.TrimPrefix(s[2+end:], ",")
		} else {
			end := strings.Index(s, ",")
			if end == -1 {
				value, s = s, ""
			} else {
				value, s = s[:end], s[end+1:]
			}
		}
		attrs[key] = value
	}
	return attrs
}

func resolveRef(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
