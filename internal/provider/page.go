package provider

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"grebe/internal/classify"
)

// metaContent returns the content of the first matching meta tag,
// looked up by property then by name.
func metaContent(doc *goquery.Document, names ...string) string {
	for _, name := range names {
		sel := doc.Find(fmt.Sprintf(`meta[property=%q], meta[name=%q]`, name, name))
		if v, ok := sel.First().Attr("content"); ok && v != "" {
			return v
		}
	}
	return ""
}

// kindSet converts configured format names into a classifier policy.
// Nil input means "use the provider default".
func kindSet(names []string) map[classify.Kind]bool {
	if names == nil {
		return nil
	}
	set := make(map[classify.Kind]bool, len(names))
	for _, n := range names {
		set[classify.Kind(n)] = true
	}
	return set
}
