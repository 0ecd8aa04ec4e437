package provider

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/mo"

	"grebe/internal/auth"
	"grebe/internal/classify"
	"grebe/internal/httputil"
	"grebe/internal/jsonutil"
	"grebe/internal/manifest"
	"grebe/internal/media"
	"grebe/internal/resolver"
)

// primaIDTable recognizes the backend product id embedded in watch
// pages, either assigned to a player variable or carried by an embed
// iframe URL.
var primaIDTable = resolver.NewTable(
	`productId\s*=\s*['"](?P<id>p\d+)['"]`,
	`pproduct_id\s*=\s*['"](?P<id>p\d+)['"]`,
	`\bid=(?P<id>p\d+)`,
)

// Prima extracts from the iprima.cz family. Login is mandatory for all
// content; the player only emits HLS and DASH manifests.
type Prima struct {
	client *httputil.Client
	creds  mo.Option[auth.Credentials]

	flow       *auth.CodeExchange
	apiBase    string
	classifier *classify.Classifier

	session *auth.Session
	geo     []string // countries the service is restricted to
}

// NewPrima creates the provider. enabledFormats narrows the manifest
// kinds to expand; nil keeps the provider default of HLS and DASH.
func NewPrima(client *httputil.Client, creds mo.Option[auth.Credentials], enabledFormats []string) *Prima {
	enabled := kindSet(enabledFormats)
	if enabled == nil {
		enabled = map[classify.Kind]bool{classify.KindHLS: true, classify.KindDASH: true}
	}
	return &Prima{
		client: client,
		creds:  creds,
		flow: &auth.CodeExchange{
			LoginURL:    "https://auth.iprima.cz/oauth2/login",
			TokenURL:    "https://auth.iprima.cz/oauth2/token",
			ClientID:    "prima_sso",
			RedirectURI: "https://auth.iprima.cz/sso/auth_check.html",
			Scope:       "openid+email+profile+phone+address+offline_access",
			UserField:   "_email",
			PassField:   "_password",
		},
		apiBase: "https://api.play-backend.iprima.cz",
		classifier: &classify.Classifier{
			Expander: manifest.NewHTTPExpander(client),
			Enabled:  enabled,
		},
		geo: []string{"CZ"},
	}
}

func (p *Prima) Name() string { return "prima" }

// Match accepts any iprima.cz subdomain except the CNN portal, which
// runs a different player.
func (p *Prima) Match(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "cnn.iprima.cz" {
		return false
	}
	return host == "iprima.cz" || strings.HasSuffix(host, ".iprima.cz")
}

func (p *Prima) Extract(rawURL string) (Sequence, error) {
	if err := p.login(); err != nil {
		return nil, err
	}

	page, err := p.client.Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("downloading page: %w", err)
	}

	id, err := primaIDTable.Resolve(string(page.Body))
	if err != nil {
		return nil, err
	}
	if err := httputil.ValidateID(id); err != nil {
		return nil, fmt.Errorf("resolved id: %w", err)
	}

	body, err := p.callAPI(id)
	if err != nil {
		return nil, err
	}

	if code := jsonutil.String(body, "", "errorCode"); code != "" {
		if code == "PLAY_GEOIP_DENIED" {
			return nil, &media.GeoDeniedError{Countries: p.geo}
		}
		return nil, fmt.Errorf("%w: %s", media.ErrForbidden, code)
	}

	if _, ok := jsonutil.Get(body, "streamInfos"); !ok {
		return nil, fmt.Errorf("%w: no streamInfos", media.ErrMalformedResponse)
	}

	var streams []classify.StreamInfo
	for _, s := range jsonutil.Slice(body, "streamInfos") {
		streams = append(streams, classify.StreamInfo{
			Type:     jsonutil.String(s, "", "type"),
			URL:      jsonutil.String(s, "", "url"),
			Language: jsonutil.String(s, "", "lang"),
		})
	}
	formats, subtitles := p.classifier.Expand(id, streams, nil, false)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page.Body)))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	return Single(media.NewResolved(&media.Descriptor{
		ID:          id,
		Title:       metaContent(doc, "og:title", "twitter:title"),
		Description: metaContent(doc, "description", "og:description", "twitter:description"),
		Thumbnail:   metaContent(doc, "thumbnail", "og:image", "twitter:image"),
		Formats:     formats,
		Subtitles:   subtitles,
	})), nil
}

// login authenticates once per instance and reuses the session for
// every later call.
func (p *Prima) login() error {
	if p.session != nil {
		return nil
	}
	session, err := p.flow.Login(p.client, p.creds)
	if err != nil {
		return err
	}
	p.session = session
	return nil
}

// callAPI fetches the play manifest for a product. The backend answers
// 403 with an errorCode body for denied streams, so that status is not
// a transport failure here.
func (p *Prima) callAPI(id string) (any, error) {
	resp, err := p.client.Fetch(http.MethodGet,
		fmt.Sprintf("%s/api/v1/products/id-%s/play", p.apiBase, id),
		map[string]string{
			"Accept":             "application/json",
			"X-OTT-Access-Token": p.session.AccessToken,
		}, nil)
	if err != nil {
		return nil, fmt.Errorf("getting manifest URLs: %w", err)
	}

	switch resp.Status {
	case http.StatusOK, http.StatusForbidden:
	case http.StatusNotFound:
		return nil, media.ErrNotFound
	default:
		return nil, fmt.Errorf("manifest endpoint returned status %d", resp.Status)
	}

	body, err := jsonutil.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrMalformedResponse, err)
	}
	return body, nil
}
