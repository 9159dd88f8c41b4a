package search

import "strings"

// normalizeQuery trims the query and collapses every whitespace run to a
// single space so equivalent queries embed identically.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
