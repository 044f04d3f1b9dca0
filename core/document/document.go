// Package document defines the record and database types shared by the store,
// query, and persistence layers, along with the id and foreign-key conventions
// that tie collections together.
package document

// Document is a single schemaless record. Values are whatever the JSON decoder
// produces: string, float64, bool, nil, nested map[string]any, or []any.
type Document map[string]any

// Database maps a resource name to its ordered collection of documents.
type Database map[string][]Document

// Clone returns a deep copy of the document. Query results are always cloned
// so callers can never mutate store state through a response payload.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

// CloneAll deep-copies a slice of documents.
func CloneAll(docs []Document) []Document {
	if docs == nil {
		return nil
	}
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	return out
}

// Clone deep-copies the whole database.
func (db Database) Clone() Database {
	if db == nil {
		return nil
	}
	out := make(Database, len(db))
	for name, docs := range db {
		out[name] = CloneAll(docs)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = cloneValue(inner)
		}
		return out
	case Document:
		return map[string]any(val.Clone())
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = cloneValue(inner)
		}
		return out
	case []Document:
		cloned := CloneAll(val)
		out := make([]any, len(cloned))
		for i, d := range cloned {
			out[i] = d
		}
		return out
	default:
		return v
	}
}

// MaxID returns the largest numeric id present in the collection, or 0 when
// the collection is empty or holds no numeric ids. New ids are allocated as
// MaxID+1, so id allocation is monotonic within a collection.
func MaxID(docs []Document) int64 {
	var max int64
	for _, d := range docs {
		if n, ok := ToInt64(d["id"]); ok && n > max {
			max = n
		}
	}
	return max
}
