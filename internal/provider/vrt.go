package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"grebe/internal/auth"
	"grebe/internal/classify"
	"grebe/internal/httputil"
	"grebe/internal/jsonutil"
	"grebe/internal/manifest"
	"grebe/internal/media"
)

// videoPageQuery is the GraphQL document the VRT MAX site issues for an
// episode page. Only the fields the pipeline reads are requested.
const videoPageQuery = `query VideoPage($pageId: ID!) {
 page(id: $pageId) {
  ... on EpisodePage {
   id
   title
   seo { title description }
   episode {
    onTimeRaw
    name
    episodeNumberRaw
    program { title }
    watchAction { streamId }
   }
  }
 }
}`

// ketnetQuery is the query the Ketnet site's BFF answers; the media
// reference it returns feeds the shared media API.
const ketnetQuery = `{
  video(id: %q) {
    description
    episodeNr
    imageUrl
    mediaReference
    programTitle
    publicationDate
    seasonTitle
    subtitleVideodetail
    titleVideodetail
  }
}`

// vrtHosts are the broadcaster's sites that all resolve through the
// same media aggregator.
var vrtHosts = []string{
	"vrt.be",
	"sporza.be",
	"ketnet.be",
	"dagelijksekost.een.be",
	"radio1.be",
}

// VRT extracts from the Flemish public broadcaster family: news article
// pages with an embedded player, VRT MAX episode pages, Ketnet episodes,
// Dagelijkse Kost recipes and Radio1 articles. All sites share one
// token-gated media aggregator. Login is optional; anonymous sessions
// can still play free content. Subtitles without a language default to
// Dutch.
type VRT struct {
	client *httputil.Client
	creds  mo.Option[auth.Credentials]

	flow       *auth.CookieLogin
	mediaBase  string // versioned token and video endpoints hang off this
	graphqlURL string
	ketnetURL  string
	site       string // origin whose cookie jar holds identity tokens
	classifier *classify.Classifier

	session      *auth.Session
	playerTokens map[string]string // API version -> cached player token
}

// NewVRT creates the provider. enabledFormats narrows the manifest
// kinds to expand; nil enables all of them.
func NewVRT(client *httputil.Client, creds mo.Option[auth.Credentials], enabledFormats []string) *VRT {
	return &VRT{
		client: client,
		creds:  creds,
		flow: &auth.CookieLogin{
			PrimeURL:   "https://www.vrt.be/vrtnu/sso/login",
			LoginURL:   "https://login.vrt.be/perform_login",
			ClientID:   "vrtnu-site",
			CSRFSite:   "https://login.vrt.be",
			CSRFCookie: "OIDCXSRF",
			CSRFHeader: "Oidcxsrf",
		},
		mediaBase:  "https://media-services-public.vrt.be/vualto-video-aggregator-web/rest/external",
		graphqlURL: "https://www.vrt.be/vrtnu-api/graphql/v1",
		ketnetURL:  "https://senior-bff.ketnet.be/graphql",
		site:       "https://www.vrt.be",
		classifier: &classify.Classifier{
			Expander:        manifest.NewHTTPExpander(client),
			Enabled:         kindSet(enabledFormats),
			DefaultLanguage: "nl",
		},
		playerTokens: make(map[string]string),
	}
}

func (v *VRT) Name() string { return "vrt" }

func (v *VRT) Match(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return lo.Contains(vrtHosts, strings.TrimPrefix(u.Hostname(), "www."))
}

func (v *VRT) Extract(rawURL string) (Sequence, error) {
	if err := v.login(); err != nil {
		return nil, err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL: %w", err)
	}

	// Ketnet pages have no distinctive path; every other site does, so
	// the path shape picks the pipeline.
	if strings.TrimPrefix(u.Hostname(), "www.") == "ketnet.be" {
		return v.single(v.extractKetnet(u))
	}
	switch {
	case strings.HasPrefix(u.Path, "/gerechten/"):
		return v.single(v.extractDako(rawURL))
	case strings.HasPrefix(u.Path, "/lees/") || strings.HasPrefix(u.Path, "/luister/select/"):
		return v.extractRadio1(rawURL)
	case strings.HasPrefix(u.Path, "/vrtmax/a-z/") || strings.HasPrefix(u.Path, "/vrtnu/a-z/"):
		return v.single(v.extractEpisode(u))
	default:
		return v.single(v.extractArticle(u))
	}
}

func (v *VRT) single(desc *media.Descriptor, err error) (Sequence, error) {
	if err != nil {
		return nil, err
	}
	return Single(media.NewResolved(desc)), nil
}

func (v *VRT) login() error {
	if v.session != nil {
		return nil
	}
	session, err := v.flow.Login(v.client, v.creds)
	if err != nil {
		return err
	}
	v.session = session
	return nil
}

// vrtClientCode is the player client a site's pages register when the
// embedded element omits one.
func vrtClientCode(host string) string {
	switch strings.TrimPrefix(host, "www.") {
	case "vrt.be":
		return "vrtnieuws"
	case "sporza.be":
		return "sporza"
	}
	return "null"
}

// extractArticle handles news and sport pages, which carry the asset id
// in attributes of the embedded player element.
func (v *VRT) extractArticle(u *url.URL) (*media.Descriptor, error) {
	page, err := v.client.Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("downloading page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page.Body)))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	player := doc.Find(".vrtvideo").First()
	if player.Length() == 0 {
		return nil, media.ErrIDNotFound
	}

	assetID := attrOf(player, "data-video-id", "data-videoid")
	if assetID == "" {
		return nil, media.ErrIDNotFound
	}
	if pub := attrOf(player, "data-publication-id", "data-publicationid"); pub != "" {
		assetID = pub + "$" + assetID
	}
	clientCode := attrOf(player, "data-client-code", "data-client")
	if clientCode == "" {
		clientCode = vrtClientCode(u.Hostname())
	}

	data, err := v.callMediaAPI(assetID, clientCode, "v2")
	if err != nil {
		return nil, err
	}
	formats, subtitles := v.expand(assetID, data)

	description := metaContent(doc, "og:description", "twitter:description", "description")
	if description == "…" {
		description = ""
	}

	return &media.Descriptor{
		ID:          assetID,
		Title:       jsonutil.String(data, metaContent(doc, "og:title", "twitter:title"), "title"),
		Description: jsonutil.String(data, description, "shortDescription"),
		Thumbnail:   jsonutil.String(data, attrOf(player, "data-posterimage"), "posterImageUrl"),
		Duration:    jsonutil.Float(data, 0, "duration") / 1000,
		Formats:     formats,
		Subtitles:   subtitles,
	}, nil
}

// extractEpisode handles VRT MAX pages: episode metadata comes from the
// GraphQL API, authorized by the bearer token the login left in the
// identity cookie.
func (v *VRT) extractEpisode(u *url.URL) (*media.Descriptor, error) {
	// Refresh session cookies; the identity token is short-lived.
	if _, err := v.client.Get(v.flow.PrimeURL); err != nil {
		return nil, fmt.Errorf("getting tokens: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"operationName": "VideoPage",
		"query":         videoPageQuery,
		"variables": map[string]string{
			"pageId": strings.TrimRight(u.Path, "/") + ".model.json",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	resp, err := v.client.PostJSON(v.graphqlURL, payload, map[string]string{
		"Authorization": "Bearer " + v.client.CookieValue(v.site, "vrtnu-site_profile_at"),
	})
	if err != nil {
		return nil, fmt.Errorf("downloading asset JSON: %w", err)
	}
	if resp.Status != http.StatusOK {
		return nil, fmt.Errorf("%w: asset endpoint returned status %d", media.ErrForbidden, resp.Status)
	}

	body, err := jsonutil.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrMalformedResponse, err)
	}
	page, ok := jsonutil.Get(body, "data", "page")
	if !ok {
		return nil, fmt.Errorf("%w: no page data", media.ErrMalformedResponse)
	}

	streamID := jsonutil.String(page, "", "episode", "watchAction", "streamId")
	if streamID == "" {
		return nil, fmt.Errorf("%w: no stream id", media.ErrMalformedResponse)
	}

	data, err := v.callMediaAPI(streamID, "vrtnu-web@PROD", "v2")
	if err != nil {
		return nil, err
	}
	formats, subtitles := v.expand(streamID, data)

	// The broadcast year doubles as the season label on the site.
	var season string
	if onTime := jsonutil.String(page, "", "episode", "onTimeRaw"); len(onTime) >= 4 {
		season = onTime[:4]
	}

	return &media.Descriptor{
		ID:          streamID,
		Title:       jsonutil.String(page, jsonutil.String(page, "", "title"), "seo", "title"),
		Description: jsonutil.String(page, "", "seo", "description"),
		Thumbnail:   jsonutil.String(data, "", "posterImageUrl"),
		Duration:    jsonutil.Float(data, 0, "duration") / 1000,
		Formats:     formats,
		Subtitles:   subtitles,
		Series:      jsonutil.String(page, "", "episode", "program", "title"),
		Season:      season,
		Episode:     episodeNumber(page),
	}, nil
}

// extractKetnet resolves a Ketnet episode. The site's BFF answers a
// GraphQL query passed as a URL parameter and returns a percent-encoded
// media reference for the shared aggregator.
func (v *VRT) extractKetnet(u *url.URL) (*media.Descriptor, error) {
	displayID := strings.Trim(u.Path, "/")
	if displayID == "" {
		return nil, media.ErrIDNotFound
	}

	query := fmt.Sprintf(ketnetQuery, fmt.Sprintf("content/ketnet/nl/%s.model.json", displayID))
	body, err := v.client.GetJSON(v.ketnetURL+"?query="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, fmt.Errorf("downloading video JSON: %w", err)
	}
	decoded, err := jsonutil.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrMalformedResponse, err)
	}
	video, ok := jsonutil.Get(decoded, "data", "video")
	if !ok {
		return nil, fmt.Errorf("%w: no video data", media.ErrMalformedResponse)
	}

	videoID, err := url.QueryUnescape(jsonutil.String(video, "", "mediaReference"))
	if err != nil || videoID == "" {
		return nil, fmt.Errorf("%w: no media reference", media.ErrMalformedResponse)
	}

	data, err := v.callMediaAPI(videoID, "ketnet@PROD", "v1")
	if err != nil {
		return nil, err
	}
	formats, subtitles := v.expand(videoID, data)

	return &media.Descriptor{
		ID:          videoID,
		Title:       jsonutil.String(video, "", "titleVideodetail"),
		Description: jsonutil.String(video, "", "description"),
		Thumbnail:   jsonutil.String(video, "", "imageUrl"),
		Duration:    jsonutil.Float(data, 0, "duration") / 1000,
		Formats:     formats,
		Subtitles:   subtitles,
		Series:      jsonutil.String(video, "", "programTitle"),
		Season:      jsonutil.String(video, "", "seasonTitle"),
		Episode:     jsonutil.Int(video, 0, "episodeNr"),
	}, nil
}

// extractDako resolves a Dagelijkse Kost recipe page; the player
// element holds the asset id in a data-url attribute.
func (v *VRT) extractDako(rawURL string) (*media.Descriptor, error) {
	page, err := v.client.Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("downloading page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page.Body)))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	videoID := doc.Find("[data-url]").First().AttrOr("data-url", "")
	if videoID == "" {
		return nil, media.ErrIDNotFound
	}

	data, err := v.callMediaAPI(videoID, "dako@prod", "v1")
	if err != nil {
		return nil, err
	}
	formats, subtitles := v.expand(videoID, data)

	title := strings.TrimSpace(doc.Find(".dish-metadata__title").First().Text())
	if title == "" {
		title = metaContent(doc, "twitter:title")
	}
	description := strings.TrimSpace(doc.Find(".dish-description").First().Text())
	if description == "" {
		description = metaContent(doc, "description", "twitter:description", "og:description")
	}

	return &media.Descriptor{
		ID:          videoID,
		Title:       title,
		Description: description,
		Thumbnail:   metaContent(doc, "og:image", "twitter:image"),
		Duration:    jsonutil.Float(data, 0, "duration") / 1000,
		Formats:     formats,
		Subtitles:   subtitles,
	}, nil
}

// extractRadio1 resolves a Radio1 article. The page embeds its content
// model as Next.js data; the article and each of its paragraphs may
// carry a media reference, so one page can yield several items. Items
// whose media call fails are skipped, the rest still play.
func (v *VRT) extractRadio1(rawURL string) (Sequence, error) {
	page, err := v.client.Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("downloading page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page.Body)))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	nextData := doc.Find("script#__NEXT_DATA__").First().Text()
	if nextData == "" {
		return nil, media.ErrIDNotFound
	}
	decoded, err := jsonutil.Decode([]byte(nextData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrMalformedResponse, err)
	}
	item, ok := jsonutil.Get(decoded, "props", "pageProps", "item")
	if !ok {
		return nil, fmt.Errorf("%w: no page item", media.ErrMalformedResponse)
	}

	pageTitle := metaContent(doc, "og:title", "twitter:title")

	var results []media.Result
	for _, candidate := range append([]any{item}, jsonutil.Slice(item, "paragraphs")...) {
		ref := jsonutil.String(candidate, "", "mediaReference")
		if ref == "" {
			continue
		}

		data, err := v.callMediaAPI(ref, "null", "v2")
		if err != nil {
			logrus.Warnf("skipping %s: %v", ref, err)
			continue
		}
		formats, subtitles := v.expand(ref, data)

		title := jsonutil.String(candidate, pageTitle, "title")
		results = append(results, media.NewResolved(&media.Descriptor{
			ID:          ref,
			Title:       title,
			Description: htmlText(jsonutil.String(candidate, "", "body")),
			Thumbnail:   metaContent(doc, "og:image", "twitter:image"),
			Duration:    jsonutil.Float(data, 0, "duration") / 1000,
			Formats:     formats,
			Subtitles:   subtitles,
		}))
	}

	if len(results) == 0 {
		return nil, media.ErrIDNotFound
	}
	return FromResults(results), nil
}

// callMediaAPI exchanges the identity cookie for a player token once
// per API version, then fetches the video descriptor. Tokens are
// cached for the instance lifetime.
func (v *VRT) callMediaAPI(assetID, clientCode, version string) (any, error) {
	if err := httputil.ValidateID(assetID); err != nil {
		return nil, fmt.Errorf("asset id: %w", err)
	}

	if v.playerTokens[version] == "" {
		payload, err := json.Marshal(map[string]string{
			"identityToken": v.client.CookieValue(v.site, "vrtnu-site_profile_vt"),
		})
		if err != nil {
			return nil, fmt.Errorf("encoding token request: %w", err)
		}
		resp, err := v.client.PostJSON(v.mediaBase+"/"+version+"/tokens", payload, nil)
		if err != nil {
			return nil, fmt.Errorf("downloading player token: %w", err)
		}
		body, err := jsonutil.Decode(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", media.ErrMalformedResponse, err)
		}
		token := jsonutil.String(body, "", "vrtPlayerToken")
		if token == "" {
			return nil, fmt.Errorf("%w: token endpoint returned no player token", media.ErrAuthFailed)
		}
		v.playerTokens[version] = token
	}

	query := url.Values{
		"vrtPlayerToken": {v.playerTokens[version]},
		"client":         {clientCode},
	}
	body, err := v.client.GetJSON(
		v.mediaBase+"/"+version+"/videos/"+url.PathEscape(assetID)+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("downloading video JSON: %w", err)
	}
	return jsonutil.Decode(body)
}

// expand turns the media API response into formats and subtitles. The
// API lists target URLs by declared type, plus closed-caption subtitle
// URLs without a language.
func (v *VRT) expand(assetID string, data any) ([]media.Format, map[string][]media.SubtitleTrack) {
	var streams []classify.StreamInfo
	for _, t := range jsonutil.Slice(data, "targetUrls") {
		streams = append(streams, classify.StreamInfo{
			Type: strings.ToUpper(jsonutil.String(t, "", "type")),
			URL:  jsonutil.String(t, "", "url"),
		})
	}

	var subs []classify.SubtitleRef
	for _, s := range jsonutil.Slice(data, "subtitleUrls") {
		if jsonutil.String(s, "", "type") != "CLOSED" {
			continue
		}
		subs = append(subs, classify.SubtitleRef{URL: jsonutil.String(s, "", "url")})
	}

	drmVal, ok := jsonutil.Get(data, "drm")
	drm := ok && drmVal != false
	return v.classifier.Expand(assetID, streams, subs, drm)
}

func episodeNumber(page any) int {
	if n := jsonutil.Int(page, 0, "episode", "episodeNumberRaw"); n > 0 {
		return n
	}
	n, _ := strconv.Atoi(jsonutil.String(page, "", "episode", "episodeNumberRaw"))
	return n
}

// attrOf returns the first non-empty attribute among names.
func attrOf(sel *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := sel.Attr(name); ok && v != "" {
			return v
		}
	}
	return ""
}

// htmlText strips markup from an HTML fragment, returning its text.
func htmlText(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.TrimSpace(doc.Text())
}
