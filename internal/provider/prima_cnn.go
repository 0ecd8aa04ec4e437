package provider

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"grebe/internal/classify"
	"grebe/internal/httputil"
	"grebe/internal/jsonutil"
	"grebe/internal/manifest"
	"grebe/internal/media"
	"grebe/internal/resolver"
)

// cnnIDTable recognizes the product id on the news portal, which still
// runs the legacy player markup.
var cnnIDTable = resolver.NewTable(
	`data-product="(?P<id>[^"]+)"`,
	`id=['"]player-(?P<id>p\d+)['"]`,
	`playerId\s*:\s*['"]player-(?P<id>p\d+)`,
	`\bvideos\s*=\s*['"](?P<id>p\d+)`,
)

// cnnPlayerOptionsRe locates the legacy player's option object in the
// init response.
var cnnPlayerOptionsRe = regexp.MustCompile(`(?s)(?:TDIPlayerOptions|playerOptions)\s*=\s*(\{.+?\});\s*\]\]`)

// cnnSrcRe scavenges bare source URLs when the option object is absent.
var cnnSrcRe = regexp.MustCompile(`src["']\s*:\s*(?:"([^"]+)"|'([^']+)')`)

// PrimaCNN extracts from the cnn.iprima.cz news portal. Unlike the main
// service it needs no account: streams come from a legacy player init
// endpoint that only gates on an adult-confirmation cookie. The legacy
// player serves HLS; its DASH tracks do not play and are not expanded.
type PrimaCNN struct {
	client *httputil.Client

	playerBase string
	classifier *classify.Classifier
	geo        []string
}

// NewPrimaCNN creates the provider. enabledFormats narrows the manifest
// kinds to expand; nil keeps the provider default of HLS only.
func NewPrimaCNN(client *httputil.Client, enabledFormats []string) *PrimaCNN {
	enabled := kindSet(enabledFormats)
	if enabled == nil {
		enabled = map[classify.Kind]bool{classify.KindHLS: true}
	}
	return &PrimaCNN{
		client:     client,
		playerBase: "https://play.iprima.cz",
		classifier: &classify.Classifier{
			Expander: manifest.NewHTTPExpander(client),
			Enabled:  enabled,
		},
		geo: []string{"CZ"},
	}
}

func (p *PrimaCNN) Name() string { return "prima-cnn" }

func (p *PrimaCNN) Match(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Hostname() == "cnn.iprima.cz"
}

func (p *PrimaCNN) Extract(rawURL string) (Sequence, error) {
	// Age-gated articles serve the player only with this consent cookie.
	p.client.SetCookie(p.playerBase, "ott_adult_confirmed", "yes")

	page, err := p.client.Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("downloading page: %w", err)
	}

	id, err := cnnIDTable.Resolve(string(page.Body))
	if err != nil {
		return nil, err
	}
	if err := httputil.ValidateID(id); err != nil {
		return nil, fmt.Errorf("resolved id: %w", err)
	}

	playerPage, err := p.callInit(id, rawURL)
	if err != nil {
		return nil, err
	}

	streams := cnnStreams(playerPage)
	formats, subtitles := p.classifier.Expand(id, streams, nil, false)
	if len(formats) == 0 {
		if strings.Contains(playerPage, ">GEO_IP_NOT_ALLOWED<") {
			return nil, &media.GeoDeniedError{Countries: p.geo}
		}
		return nil, fmt.Errorf("%w: no playable sources", media.ErrMalformedResponse)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page.Body)))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	title := metaContent(doc, "og:title", "twitter:title")
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	return Single(media.NewResolved(&media.Descriptor{
		ID:          id,
		Title:       title,
		Description: metaContent(doc, "description", "og:description", "twitter:description"),
		Thumbnail:   metaContent(doc, "thumbnail", "og:image", "twitter:image"),
		Formats:     formats,
		Subtitles:   subtitles,
	})), nil
}

// callInit fetches the legacy player bootstrap document for a product.
// The endpoint checks the Referer of the embedding article.
func (p *PrimaCNN) callInit(id, referer string) (string, error) {
	query := url.Values{
		"_infuse":   {"1"},
		"_ts":       {strconv.FormatInt(time.Now().Unix(), 10)},
		"productId": {id},
	}
	resp, err := p.client.Fetch(http.MethodGet,
		p.playerBase+"/prehravac/init?"+query.Encode(),
		map[string]string{"Referer": referer}, nil)
	if err != nil {
		return "", fmt.Errorf("downloading player page: %w", err)
	}
	return string(resp.Body), nil
}

// cnnStreams pulls stream sources out of the player bootstrap: the
// embedded option object's track lists when present, otherwise any bare
// src entries, which are assumed to be HLS.
func cnnStreams(playerPage string) []classify.StreamInfo {
	if m := cnnPlayerOptionsRe.FindStringSubmatch(playerPage); m != nil {
		options, err := jsonutil.Decode([]byte(m[1]))
		if err != nil {
			return nil
		}
		tracksVal, _ := jsonutil.Get(options, "tracks")
		tracks, _ := tracksVal.(map[string]any)

		var streams []classify.StreamInfo
		for kind, entries := range tracks {
			for _, entry := range jsonutil.Slice(entries) {
				src := jsonutil.String(entry, "", "src")
				if src == "" {
					continue
				}
				streams = append(streams, classify.StreamInfo{
					Type:     strings.ToUpper(kind),
					URL:      src,
					Language: jsonutil.String(entry, "", "lang"),
				})
			}
		}
		return streams
	}

	var streams []classify.StreamInfo
	for _, m := range cnnSrcRe.FindAllStringSubmatch(playerPage, -1) {
		src := m[1]
		if src == "" {
			src = m[2]
		}
		streams = append(streams, classify.StreamInfo{Type: "HLS", URL: src})
	}
	return streams
}
