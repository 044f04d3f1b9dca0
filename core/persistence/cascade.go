package persistence

import "github.com/asaidimu/go-mimic/core/document"

// CascadeResult maps a resource name to the ids removed from it during one
// delete operation. Every removed document appears exactly once, under its
// own resource, however many hops deep the cascade found it.
type CascadeResult map[string][]any

func (r CascadeResult) add(resource string, id any) {
	r[resource] = append(r[resource], id)
}

func (r CascadeResult) size() int {
	n := 0
	for _, ids := range r {
		n += len(ids)
	}
	return n
}

// cascadeDelete removes every document transitively referencing the deleted
// root through the foreign-key convention. It runs as an explicit worklist
// with a visited set keyed by (resource, canonical id), so a cyclic reference
// graph terminates instead of recursing forever. Each dequeued parent scans
// every collection but its own; dependents are removed, recorded, and
// enqueued as parents in turn.
func cascadeDelete(db document.Database, resource string, id any, result CascadeResult) {
	type parent struct {
		resource string
		id       any
	}

	visitKey := func(res string, id any) string {
		key, _ := document.IDKey(id)
		return res + "/" + key
	}

	queue := []parent{{resource, id}}
	visited := map[string]struct{}{visitKey(resource, id): {}}

	for len(queue) > 0 {
		head := queue[0]
		queue = queue[1:]
		fk := document.ForeignKeyField(head.resource)

		for name, docs := range db {
			if name == head.resource {
				continue
			}
			kept := docs[:0]
			for _, doc := range docs {
				if doc[fk] == nil || !document.SameID(doc[fk], head.id) {
					kept = append(kept, doc)
					continue
				}
				result.add(name, doc["id"])
				key := visitKey(name, doc["id"])
				if _, seen := visited[key]; !seen {
					visited[key] = struct{}{}
					queue = append(queue, parent{name, doc["id"]})
				}
			}
			db[name] = kept
		}
	}
}
