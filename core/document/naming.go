package document

import "strings"

// Singularize strips a single trailing "s" from a resource name. The naming
// convention is structural only; nothing validates that the result is a word.
func Singularize(resource string) string {
	return strings.TrimSuffix(resource, "s")
}

// ForeignKeyField returns the field name a child record uses to reference a
// parent in the given resource: "reservas" -> "reservaId". Embed, expand, and
// cascade deletion all derive foreign keys through this one function.
func ForeignKeyField(resource string) string {
	return Singularize(resource) + "Id"
}
