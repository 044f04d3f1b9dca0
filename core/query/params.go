// Package query resolves read requests against a database snapshot: single
// and collection fetches with relationship embedding, equality filtering,
// pagination, and sorting.
package query

import (
	"net/url"
	"strconv"
	"strings"
)

// Filter is one equality condition on a document field. Filters are
// AND-combined in the order they appeared in the query string.
type Filter struct {
	Field string
	Value string
}

// Params carries the recognized control parameters of a read request plus
// every remaining key as an equality filter. Repeated _embed and _expand
// keys are each honored independently.
type Params struct {
	Filters []Filter
	Embeds  []string
	Expands []string
	Page    int // 0 when absent or not a positive integer
	Limit   int // 0 when absent or not a positive integer
	Sort    string
	Order   string // "asc" (default) or "desc"
}

// ParseParams interprets a raw query string. Parameter order and repeats are
// preserved; keys starting with "_" are reserved for control parameters and
// never become filters. Unknown underscore keys are ignored.
func ParseParams(rawQuery string) Params {
	p := Params{Order: "asc"}

	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}

		if !strings.HasPrefix(key, "_") {
			p.Filters = append(p.Filters, Filter{Field: key, Value: value})
			continue
		}

		switch key {
		case "_embed":
			p.Embeds = append(p.Embeds, value)
		case "_expand":
			p.Expands = append(p.Expands, value)
		case "_page":
			p.Page = positiveInt(value)
		case "_limit":
			p.Limit = positiveInt(value)
		case "_sort":
			p.Sort = value
		case "_order":
			if strings.EqualFold(value, "desc") {
				p.Order = "desc"
			}
		}
	}
	return p
}

func positiveInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
