package datastore

import "strings"

// queryKind classifies the three XPath query shapes the RPC Executors issue
// against a backend: an exact item (possibly carrying list-key predicates,
// compiled straight out of pkg/filter), a top-level wildcard ("/mod:*") used
// when no filter is present, and a descendant expansion ("{xpath}//*") used
// to materialize a matched node's subtree. Neither backend runs a general
// XPath 1.0 evaluator — both match against this closed set of shapes the
// core itself generates, the same way the teacher's datastore package never
// evaluated arbitrary predicates either.
type queryKind int

const (
	queryExact queryKind = iota
	queryTopLevelWildcard
	queryDescendant
)

type parsedQuery struct {
	kind   queryKind
	prefix string // module prefix for queryTopLevelWildcard; base path for queryDescendant/queryExact
}

// parseQuery classifies xpath into one of the three shapes above.
func parseQuery(xpath string) parsedQuery {
	if strings.HasSuffix(xpath, "//*") {
		return parsedQuery{kind: queryDescendant, prefix: strings.TrimSuffix(xpath, "//*")}
	}
	if strings.HasSuffix(xpath, ":*") {
		// "/mod:*" -> prefix "mod"
		trimmed := strings.TrimPrefix(xpath, "/")
		trimmed = strings.TrimSuffix(trimmed, ":*")
		return parsedQuery{kind: queryTopLevelWildcard, prefix: trimmed}
	}
	return parsedQuery{kind: queryExact, prefix: xpath}
}

// matches reports whether itemXPath satisfies q.
func (q parsedQuery) matches(itemXPath string) bool {
	switch q.kind {
	case queryExact:
		return itemXPath == q.prefix
	case queryTopLevelWildcard:
		rest := strings.TrimPrefix(itemXPath, "/"+q.prefix+":")
		if rest == itemXPath {
			return false // no such prefix
		}
		// top-level only: no further "/" outside an optional key predicate.
		depth := 0
		for _, c := range rest {
			switch c {
			case '[':
				depth++
			case ']':
				depth--
			case '/':
				if depth == 0 {
					return false
				}
			}
		}
		return rest != "" && rest[0] != '['
	case queryDescendant:
		return strings.HasPrefix(itemXPath, q.prefix+"/")
	default:
		return false
	}
}
