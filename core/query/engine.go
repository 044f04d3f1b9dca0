package query

import (
	"fmt"
	"sort"

	"github.com/asaidimu/go-mimic/core/document"
	"github.com/asaidimu/go-mimic/core/store"
	"go.uber.org/zap"
)

// Engine resolves read requests against a database snapshot. It never
// mutates the snapshot it is given; callers pass a deep copy (store.Snapshot)
// and may hand the results directly to a serializer.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a query engine. A nil logger falls back to a no-op.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Get fetches a single document by id, with relationship resolution applied.
func (e *Engine) Get(db document.Database, resource, id string, p Params) (document.Document, error) {
	docs, ok := db[resource]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrResourceNotFound, resource)
	}
	idx := document.FindByID(docs, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s/%s", store.ErrItemNotFound, resource, id)
	}
	return e.relate(db, resource, docs[idx], p), nil
}

// List fetches a collection, applying in order: relationship resolution,
// equality filters, pagination, then sorting. Sorting after pagination is
// deliberate: it reproduces the slicing order existing clients depend on,
// so _sort reorders only the already-paginated subset.
func (e *Engine) List(db document.Database, resource string, p Params) ([]document.Document, error) {
	docs, ok := db[resource]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrResourceNotFound, resource)
	}

	results := make([]document.Document, 0, len(docs))
	for _, d := range docs {
		results = append(results, e.relate(db, resource, d, p))
	}

	results = applyFilters(results, p.Filters)
	results = applyPagination(results, p.Page, p.Limit)
	applySort(results, p.Sort, p.Order)

	e.logger.Debug("Resolved collection query",
		zap.String("resource", resource),
		zap.Int("results", len(results)))
	return results, nil
}

// relate applies every _embed and _expand parameter to one document. The
// target name resolves against the database as-is first, then with a naive
// trailing "s"; an unresolvable target is skipped.
func (e *Engine) relate(db document.Database, resource string, doc document.Document, p Params) document.Document {
	if len(p.Embeds) == 0 && len(p.Expands) == 0 {
		return doc
	}
	out := doc.Clone()

	for _, target := range p.Embeds {
		children, ok := resolveCollection(db, target)
		if !ok {
			continue
		}
		fk := document.ForeignKeyField(resource)
		related := make([]document.Document, 0)
		for _, child := range children {
			if document.SameID(child[fk], out["id"]) {
				related = append(related, child)
			}
		}
		out[target] = related
	}

	for _, target := range p.Expands {
		parents, ok := resolveCollection(db, target)
		if !ok {
			continue
		}
		fk := document.ForeignKeyField(target)
		if idx := document.FindByID(parents, out[fk]); idx >= 0 {
			out[target] = parents[idx]
		}
	}
	return out
}

func resolveCollection(db document.Database, name string) ([]document.Document, bool) {
	if docs, ok := db[name]; ok {
		return docs, true
	}
	if docs, ok := db[name+"s"]; ok {
		return docs, true
	}
	return nil, false
}

// applyFilters keeps documents whose stringified field value equals each
// filter value exactly. Case-sensitive, no substring matching.
func applyFilters(docs []document.Document, filters []Filter) []document.Document {
	if len(filters) == 0 {
		return docs
	}
	kept := docs[:0]
	for _, d := range docs {
		match := true
		for _, f := range filters {
			if stringify(d[f.Field]) != f.Value {
				match = false
				break
			}
		}
		if match {
			kept = append(kept, d)
		}
	}
	return kept
}

// applyPagination slices the result set. _page only takes effect together
// with _limit; _page alone is silently ignored.
func applyPagination(docs []document.Document, page, limit int) []document.Document {
	if limit <= 0 {
		return docs
	}
	start := 0
	if page > 0 {
		start = (page - 1) * limit
	}
	if start >= len(docs) {
		return docs[:0]
	}
	end := start + limit
	if end > len(docs) {
		end = len(docs)
	}
	return docs[start:end]
}

// applySort stable-sorts in place by the raw field values: two numbers
// compare numerically, anything else compares by string form.
func applySort(docs []document.Document, field, order string) {
	if field == "" {
		return
	}
	desc := order == "desc"
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i][field], docs[j][field]
		if desc {
			return lessValue(b, a)
		}
		return lessValue(a, b)
	})
}

func lessValue(a, b any) bool {
	if fa, okA := toFloat64(a); okA {
		if fb, okB := toFloat64(b); okB {
			return fa < fb
		}
	}
	return stringify(a) < stringify(b)
}

func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		// JSON numbers decode as float64; whole values print without ".0"
		// so filters written against integer ids keep matching.
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", v)
}
