package provider

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/samber/mo"

	"grebe/internal/auth"
	"grebe/internal/httputil"
	"grebe/internal/media"
)

// fakeExpander returns canned variants so tests exercise the pipeline
// without real manifests.
type fakeExpander struct {
	hlsCalls atomic.Int32
}

func (f *fakeExpander) ExpandHLS(manifestURL, itemID, ext string) ([]media.Format, map[string][]media.SubtitleTrack, error) {
	f.hlsCalls.Add(1)
	return []media.Format{
		{ID: "HLS-720", URL: manifestURL + "/720", Ext: ext, Protocol: media.ProtocolHLS, Height: 720},
		{ID: "HLS-1080", URL: manifestURL + "/1080", Ext: ext, Protocol: media.ProtocolHLS, Height: 1080},
	}, nil, nil
}

func (f *fakeExpander) ExpandDASH(manifestURL, itemID string) ([]media.Format, map[string][]media.SubtitleTrack, error) {
	return []media.Format{{ID: "DASH", URL: manifestURL, Protocol: media.ProtocolDASH}}, nil, nil
}

func (f *fakeExpander) ExpandISM(manifestURL, itemID string) ([]media.Format, map[string][]media.SubtitleTrack, error) {
	return []media.Format{{ID: "ISM", URL: manifestURL, Protocol: media.ProtocolISM}}, nil, nil
}

func (f *fakeExpander) ExpandHDS(manifestURL, itemID string) ([]media.Format, error) {
	return []media.Format{{ID: "HDS", URL: manifestURL, Protocol: media.ProtocolHDS}}, nil
}

type primaServer struct {
	*httptest.Server
	loginPosts atomic.Int32
	apiCalls   atomic.Int32
	apiBody    string
}

// newPrimaServer mimics the login endpoints and play API of the
// service. apiBody is returned verbatim from the play endpoint.
func newPrimaServer(t *testing.T, apiBody string) *primaServer {
	t.Helper()
	ps := &primaServer{apiBody: apiBody}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/oauth2/login" && r.Method == http.MethodGet:
			fmt.Fprint(w, `<html><body><form>
				<input type="hidden" name="_csrf_token" value="tok-1"/>
				<input type="text" name="_email"/>
			</form></body></html>`)
		case r.URL.Path == "/oauth2/login" && r.Method == http.MethodPost:
			ps.loginPosts.Add(1)
			if r.FormValue("_csrf_token") != "tok-1" {
				http.Error(w, "missing csrf token", http.StatusBadRequest)
				return
			}
			if r.FormValue("_email") == "user@example.com" && r.FormValue("_password") == "hunter2" {
				http.Redirect(w, r, "/sso/auth_check.html?code=abc123", http.StatusFound)
				return
			}
			// Bad credentials land back on the form, no code.
			http.Redirect(w, r, "/oauth2/login?error=1", http.StatusFound)
		case r.URL.Path == "/sso/auth_check.html":
			fmt.Fprint(w, "ok")
		case r.URL.Path == "/oauth2/token":
			if r.FormValue("code") != "abc123" || r.FormValue("client_id") == "" {
				http.Error(w, "bad token request", http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, `{"access_token":"access-1"}`)
		case r.URL.Path == "/watch/show":
			fmt.Fprint(w, `<html><head>
				<meta property="og:title" content="Show Title"/>
				<meta property="og:image" content="https://img.example.com/t.jpg"/>
				</head><body><script>var productId = 'p12345';</script></body></html>`)
		case r.URL.Path == "/api/v1/products/id-p12345/play":
			ps.apiCalls.Add(1)
			if r.Header.Get("X-OTT-Access-Token") != "access-1" {
				http.Error(w, "no token", http.StatusUnauthorized)
				return
			}
			fmt.Fprint(w, ps.apiBody)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ps.Close)
	return ps
}

func newTestPrima(server *primaServer, creds mo.Option[auth.Credentials]) (*Prima, *fakeExpander) {
	p := NewPrima(httputil.NewClient(), creds, nil)
	p.flow.LoginURL = server.URL + "/oauth2/login"
	p.flow.TokenURL = server.URL + "/oauth2/token"
	p.apiBase = server.URL
	expander := &fakeExpander{}
	p.classifier.Expander = expander
	return p, expander
}

func primaCreds() mo.Option[auth.Credentials] {
	return mo.Some(auth.Credentials{Username: "user@example.com", Password: "hunter2"})
}

func TestPrimaExtract(t *testing.T) {
	server := newPrimaServer(t,
		`{"errorCode":null,"streamInfos":[{"type":"HLS","url":"https://cdn.example.com/master.m3u8"}]}`)
	p, expander := newTestPrima(server, primaCreds())

	seq, err := p.Extract(server.URL + "/watch/show")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	result, ok := seq.Next()
	if !ok {
		t.Fatal("Next() returned no result")
	}
	if result.Delegated() {
		t.Fatal("result should be resolved, not delegated")
	}

	d := result.Descriptor
	if d.ID != "p12345" {
		t.Errorf("ID = %q, want p12345", d.ID)
	}
	if d.Title != "Show Title" {
		t.Errorf("Title = %q, want Show Title", d.Title)
	}
	if len(d.Formats) != 2 {
		t.Fatalf("got %d formats, want 2", len(d.Formats))
	}
	if d.Formats[0].Height != 1080 {
		t.Errorf("formats not sorted by height: first has height %d", d.Formats[0].Height)
	}
	if len(d.Subtitles) != 0 {
		t.Errorf("got %d subtitle languages, want 0", len(d.Subtitles))
	}
	if got := expander.hlsCalls.Load(); got != 1 {
		t.Errorf("HLS expansion called %d times, want 1", got)
	}
	if _, ok := seq.Next(); ok {
		t.Error("sequence should be exhausted after one result")
	}
}

func TestPrimaAuthenticatesOncePerInstance(t *testing.T) {
	server := newPrimaServer(t,
		`{"errorCode":null,"streamInfos":[{"type":"HLS","url":"https://cdn.example.com/master.m3u8"}]}`)
	p, _ := newTestPrima(server, primaCreds())

	first, err := p.Extract(server.URL + "/watch/show")
	if err != nil {
		t.Fatalf("first Extract() error = %v", err)
	}
	second, err := p.Extract(server.URL + "/watch/show")
	if err != nil {
		t.Fatalf("second Extract() error = %v", err)
	}

	if got := server.loginPosts.Load(); got != 1 {
		t.Errorf("login posted %d times, want 1", got)
	}

	a, _ := first.Next()
	b, _ := second.Next()
	if !reflect.DeepEqual(a.Descriptor.Formats, b.Descriptor.Formats) {
		t.Error("repeated extraction produced different format lists")
	}
}

func TestPrimaGeoDenied(t *testing.T) {
	server := newPrimaServer(t, `{"errorCode":"PLAY_GEOIP_DENIED"}`)
	p, _ := newTestPrima(server, primaCreds())

	_, err := p.Extract(server.URL + "/watch/show")
	countries, ok := media.IsGeoDenied(err)
	if !ok {
		t.Fatalf("Extract() error = %v, want geo denial", err)
	}
	if !reflect.DeepEqual(countries, []string{"CZ"}) {
		t.Errorf("restricted countries = %v, want [CZ]", countries)
	}
	if errors.Is(err, media.ErrForbidden) {
		t.Error("geo denial must not be reported as generic forbidden")
	}
}

func TestPrimaForbidden(t *testing.T) {
	server := newPrimaServer(t, `{"errorCode":"PLAY_PAYMENT_REQUIRED"}`)
	p, _ := newTestPrima(server, primaCreds())

	_, err := p.Extract(server.URL + "/watch/show")
	if !errors.Is(err, media.ErrForbidden) {
		t.Fatalf("Extract() error = %v, want ErrForbidden", err)
	}
}

func TestPrimaMissingStreamInfos(t *testing.T) {
	server := newPrimaServer(t, `{"errorCode":null}`)
	p, _ := newTestPrima(server, primaCreds())

	_, err := p.Extract(server.URL + "/watch/show")
	if !errors.Is(err, media.ErrMalformedResponse) {
		t.Fatalf("Extract() error = %v, want ErrMalformedResponse", err)
	}
}

func TestPrimaBadCredentials(t *testing.T) {
	server := newPrimaServer(t, `{}`)
	p, _ := newTestPrima(server, mo.Some(auth.Credentials{
		Username: "user@example.com", Password: "wrong",
	}))

	_, err := p.Extract(server.URL + "/watch/show")
	if !errors.Is(err, media.ErrAuthFailed) {
		t.Fatalf("Extract() error = %v, want ErrAuthFailed", err)
	}
	if got := server.apiCalls.Load(); got != 0 {
		t.Errorf("play API called %d times after failed login, want 0", got)
	}
}

func TestPrimaNoCredentials(t *testing.T) {
	server := newPrimaServer(t, `{}`)
	p, _ := newTestPrima(server, mo.None[auth.Credentials]())

	_, err := p.Extract(server.URL + "/watch/show")
	if !errors.Is(err, media.ErrLoginRequired) {
		t.Fatalf("Extract() error = %v, want ErrLoginRequired", err)
	}
	if got := server.loginPosts.Load() + server.apiCalls.Load(); got != 0 {
		t.Errorf("%d network calls after missing credentials, want 0", got)
	}
}

func TestPrimaMatch(t *testing.T) {
	p := NewPrima(httputil.NewClient(), mo.None[auth.Credentials](), nil)

	tests := []struct {
		url  string
		want bool
	}{
		{"https://prima.iprima.cz/porady/show/episode-1", true},
		{"https://zoom.iprima.cz/dokumenty/something", true},
		{"https://iprima.cz/whatever", true},
		{"https://cnn.iprima.cz/porady/news", false},
		{"https://example.com/watch", false},
		{"://bad", false},
	}
	for _, tt := range tests {
		if got := p.Match(tt.url); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
