package provider

import (
	"errors"
	"testing"

	"github.com/samber/mo"

	"grebe/internal/auth"
	"grebe/internal/httputil"
	"grebe/internal/media"
)

func TestRegistryFind(t *testing.T) {
	client := httputil.NewClient()
	registry := NewRegistry(
		NewPrima(client, mo.None[auth.Credentials](), nil),
		NewPrimaCNN(client, nil),
		NewVRT(client, mo.None[auth.Credentials](), nil),
		NewVideoKen(client),
	)

	tests := []struct {
		url  string
		want string
	}{
		{"https://prima.iprima.cz/porady/show/episode", "prima"},
		{"https://cnn.iprima.cz/porady/news", "prima-cnn"},
		{"https://www.vrt.be/vrtmax/a-z/pano/trailer/pano-trailer/", "vrt"},
		{"https://www.ketnet.be/kijken/m/meisjes/6/meisjes-s6a5", "vrt"},
		{"https://videos.cncf.io/category/479/", "videoken"},
	}
	for _, tt := range tests {
		p, err := registry.Find(tt.url)
		if err != nil {
			t.Errorf("Find(%q) error = %v", tt.url, err)
			continue
		}
		if p.Name() != tt.want {
			t.Errorf("Find(%q) = %s, want %s", tt.url, p.Name(), tt.want)
		}
	}

	if _, err := registry.Find("https://example.com/video"); !errors.Is(err, ErrUnsupportedURL) {
		t.Errorf("Find(unknown) error = %v, want ErrUnsupportedURL", err)
	}
}

func TestSingleSequence(t *testing.T) {
	seq := Single(media.NewDelegated("youtube", "abc", "https://www.youtube.com/watch?v=abc"))

	first, ok := seq.Next()
	if !ok || first.ID != "abc" {
		t.Fatalf("first Next() = %+v, %v", first, ok)
	}
	if _, ok := seq.Next(); ok {
		t.Error("second Next() should report exhaustion")
	}
}
