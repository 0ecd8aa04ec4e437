package walker

import (
	"errors"
	"fmt"
	"testing"

	"grebe/internal/media"
)

func boolPtr(b bool) *bool { return &b }

func refs(prefix string, n int) []media.ItemRef {
	items := make([]media.ItemRef, n)
	for i := range items {
		items[i] = media.ItemRef{ID: fmt.Sprintf("%s-%d", prefix, i+1)}
	}
	return items
}

func resolveOK(item media.ItemRef) (media.Result, error) {
	return media.NewResolved(&media.Descriptor{ID: item.ID}), nil
}

func TestWalkerIsLastPageTermination(t *testing.T) {
	fetches := 0
	fetch := func(page int) (*media.ListingPage, error) {
		fetches++
		switch page {
		case 1:
			return &media.ListingPage{Items: refs("a", 12), IsLastPage: boolPtr(false)}, nil
		case 2:
			return &media.ListingPage{Items: refs("b", 3), IsLastPage: boolPtr(true)}, nil
		default:
			t.Fatalf("unexpected fetch of page %d", page)
			return nil, nil
		}
	}

	results := New(fetch, resolveOK).Collect(0)

	if len(results) != 15 {
		t.Errorf("got %d items, want 15", len(results))
	}
	if fetches != 2 {
		t.Errorf("fetched %d pages, want exactly 2", fetches)
	}
}

func TestWalkerEarlyTerminationFetchesNoExtraPages(t *testing.T) {
	fetches := 0
	fetch := func(page int) (*media.ListingPage, error) {
		fetches++
		return &media.ListingPage{Items: refs("a", 12), IsLastPage: boolPtr(false)}, nil
	}

	w := New(fetch, resolveOK)
	for i := 0; i < 3; i++ {
		if _, ok := w.Next(); !ok {
			t.Fatal("walker ended early")
		}
	}

	if fetches != 1 {
		t.Errorf("fetched %d pages for 3 consumed items, want 1", fetches)
	}
}

func TestWalkerTotalPagesTermination(t *testing.T) {
	fetches := 0
	fetch := func(page int) (*media.ListingPage, error) {
		fetches++
		return &media.ListingPage{Items: refs(fmt.Sprintf("p%d", page), 2), TotalPages: 3}, nil
	}

	results := New(fetch, resolveOK).Collect(0)

	if len(results) != 6 {
		t.Errorf("got %d items, want 6", len(results))
	}
	if fetches != 3 {
		t.Errorf("fetched %d pages, want 3", fetches)
	}
}

func TestWalkerNoSignalIsTerminalNotError(t *testing.T) {
	fetch := func(page int) (*media.ListingPage, error) {
		// Endpoint answered but reported neither is_last_page nor a
		// page count.
		return &media.ListingPage{Items: refs("x", 5)}, nil
	}

	results := New(fetch, resolveOK).Collect(0)
	if len(results) != 0 {
		t.Errorf("got %d items for signal-less page, want 0", len(results))
	}
}

func TestWalkerSkipsFailingItems(t *testing.T) {
	fetch := func(page int) (*media.ListingPage, error) {
		return &media.ListingPage{Items: refs("a", 4), IsLastPage: boolPtr(true)}, nil
	}
	resolve := func(item media.ItemRef) (media.Result, error) {
		if item.ID == "a-2" {
			return media.Result{}, errors.New("stream info missing")
		}
		return resolveOK(item)
	}

	results := New(fetch, resolve).Collect(0)

	if len(results) != 3 {
		t.Fatalf("got %d items, want 3 (one skipped)", len(results))
	}
	for _, r := range results {
		if r.Descriptor.ID == "a-2" {
			t.Error("failing item leaked into results")
		}
	}
}

func TestWalkerPassesDelegationsThrough(t *testing.T) {
	fetch := func(page int) (*media.ListingPage, error) {
		return &media.ListingPage{
			Items:      []media.ItemRef{{ID: "yt-1", Source: "youtube", URL: "https://youtu.be/yt-1"}},
			IsLastPage: boolPtr(true),
		}, nil
	}
	resolve := func(item media.ItemRef) (media.Result, error) {
		if item.Source != "" {
			return media.NewDelegated(item.Source, item.ID, item.URL), nil
		}
		return resolveOK(item)
	}

	results := New(fetch, resolve).Collect(0)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if !results[0].Delegated() || results[0].Provider != "youtube" {
		t.Errorf("result = %+v, want youtube delegation", results[0])
	}
}

func TestWalkerSkipsEmptyMiddlePages(t *testing.T) {
	fetch := func(page int) (*media.ListingPage, error) {
		switch page {
		case 1:
			return &media.ListingPage{Items: refs("a", 2), IsLastPage: boolPtr(false)}, nil
		case 2:
			return &media.ListingPage{IsLastPage: boolPtr(false)}, nil
		default:
			return &media.ListingPage{Items: refs("c", 1), IsLastPage: boolPtr(true)}, nil
		}
	}

	results := New(fetch, resolveOK).Collect(0)
	if len(results) != 3 {
		t.Errorf("got %d items, want 3", len(results))
	}
}
