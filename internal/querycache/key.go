package querycache

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gowthamvetri/bestea/internal/domain"
)

// Fixed keys for the unparameterized resource classes.
const (
	BestSellersKey = "products:best-sellers"
	FeaturedKey    = "products:featured"
	CategoriesKey  = "categories"
)

// ProductKey is the cache key for a single-product read.
func ProductKey(id string) string {
	return "product:" + id
}

// ListingKey canonicalizes a listing query into a stable cache key. Filter
// order never matters; semantically identical queries always hit the same
// slot.
func ListingKey(q domain.ListingQuery) string {
	params := map[string]string{
		"page":     strconv.Itoa(normalizePage(q.Page)),
		"per_page": strconv.Itoa(normalizePerPage(q.PerPage)),
	}
	if q.Sort != "" {
		params["sort"] = q.Sort
	}
	for k, v := range q.Filters {
		params["filter."+k] = v
	}
	return "products:" + Canonical(params)
}

// Canonical serializes params as k=v pairs joined by '&' in sorted key order.
func Canonical(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func normalizePerPage(perPage int) int {
	if perPage < 1 {
		return 20
	}
	return perPage
}
