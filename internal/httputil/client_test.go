package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchFollowsRedirectsAndReportsFinalURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/done?code=abc123", http.StatusFound)
	})
	mux.HandleFunc("/done", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient()
	resp, err := c.Fetch(http.MethodGet, srv.URL+"/login", nil, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if resp.Status != http.StatusOK {
		t.Errorf("Status = %d, want 200", resp.Status)
	}
	if string(resp.Body) != "ok" {
		t.Errorf("Body = %q, want 'ok'", resp.Body)
	}
	if got := resp.FinalURL.Query().Get("code"); got != "abc123" {
		t.Errorf("final URL code param = %q, want 'abc123'", got)
	}
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	big := make([]byte, maxBodySize+1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(big)
	}))
	defer srv.Close()

	c := NewClient()
	if _, err := c.Fetch(http.MethodGet, srv.URL, nil, nil); err == nil {
		t.Fatal("Fetch accepted a body past the size cap; a truncated manifest would be misparsed")
	}

	// A body exactly at the cap still goes through.
	exact := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(big[:maxBodySize])
	}))
	defer exact.Close()
	resp, err := c.Fetch(http.MethodGet, exact.URL, nil, nil)
	if err != nil {
		t.Fatalf("Fetch at exact cap: %v", err)
	}
	if len(resp.Body) != maxBodySize {
		t.Errorf("Body length = %d, want %d", len(resp.Body), maxBodySize)
	}
}

func TestCookieJarRoundTrip(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/prime", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "OIDCXSRF", Value: "csrf-token", Path: "/"})
	})
	mux.HandleFunc("/check", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("OIDCXSRF")
		if err != nil {
			http.Error(w, "no cookie", http.StatusForbidden)
			return
		}
		w.Write([]byte(c.Value))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient()
	if _, err := c.Get(srv.URL + "/prime"); err != nil {
		t.Fatalf("priming request: %v", err)
	}

	if got := c.CookieValue(srv.URL, "OIDCXSRF"); got != "csrf-token" {
		t.Errorf("CookieValue = %q, want 'csrf-token'", got)
	}

	resp, err := c.Get(srv.URL + "/check")
	if err != nil {
		t.Fatalf("check request: %v", err)
	}
	if string(resp.Body) != "csrf-token" {
		t.Errorf("cookie not replayed: body = %q", resp.Body)
	}
}
