// Package walker traverses paginated listings, re-entering the per-item
// resolution pipeline for each discovered item.
package walker

import (
	"github.com/sirupsen/logrus"

	"grebe/internal/media"
)

// FetchFunc downloads one listing page. Pages are numbered from 1.
type FetchFunc func(page int) (*media.ListingPage, error)

// ResolveFunc resolves one discovered item into a result. It may return
// a delegated reference instead of resolving locally.
type ResolveFunc func(media.ItemRef) (media.Result, error)

// Walker is a forward-only, non-restartable iterator over a listing.
// Pages are fetched on demand: a caller that stops consuming stops the
// fetching too. Per-item failures are reported and skipped; only the
// listing endpoint itself can end the walk.
type Walker struct {
	fetch   FetchFunc
	resolve ResolveFunc

	page    int
	pending []media.ItemRef
	done    bool
}

// New creates a walker over the given listing.
func New(fetch FetchFunc, resolve ResolveFunc) *Walker {
	return &Walker{fetch: fetch, resolve: resolve, page: 1}
}

// Next returns the next resolved or delegated item. ok is false once the
// listing is exhausted.
func (w *Walker) Next() (media.Result, bool) {
	for {
		if len(w.pending) == 0 && !w.fill() {
			return media.Result{}, false
		}

		item := w.pending[0]
		w.pending = w.pending[1:]

		result, err := w.resolve(item)
		if err != nil {
			// Fatal for the item only; the walk continues.
			logrus.Warnf("skipping %s: %v", item.ID, err)
			continue
		}
		return result, true
	}
}

// fill fetches the next page into the pending buffer. It returns false
// when the walk is over.
func (w *Walker) fill() bool {
	if w.done {
		return false
	}

	page, err := w.fetch(w.page)
	if err != nil {
		logrus.Warnf("fetching listing page %d: %v", w.page, err)
		w.done = true
		return false
	}

	switch {
	case page.IsLastPage != nil:
		w.pending = page.Items
		w.done = *page.IsLastPage
	case page.TotalPages > 0:
		w.pending = page.Items
		w.done = w.page >= page.TotalPages
	default:
		// No pagination signal at all: terminal, and the page's items
		// are not trusted either.
		w.done = true
		return false
	}

	w.page++
	return len(w.pending) > 0 || w.fill()
}

// Collect drains up to limit items (all items when limit <= 0). It is a
// convenience for callers that do not need incremental consumption.
func (w *Walker) Collect(limit int) []media.Result {
	var results []media.Result
	for {
		if limit > 0 && len(results) >= limit {
			return results
		}
		r, ok := w.Next()
		if !ok {
			return results
		}
		results = append(results, r)
	}
}
