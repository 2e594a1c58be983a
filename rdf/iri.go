package rdf

import (
	"net/url"
	"strings"
)

// ResolveIRI resolves ref against base per RFC 3986. When either side
// does not parse as a URL the reference is joined naively, which keeps
// opaque identifiers usable.
func ResolveIRI(base, ref string) string {
	if base == "" || IsAbsoluteIRI(ref) {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return naiveJoin(base, ref)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return naiveJoin(base, ref)
	}
	return b.ResolveReference(u).String()
}

// IsAbsoluteIRI reports whether the reference carries a scheme.
func IsAbsoluteIRI(iri string) bool {
	for i := 0; i < len(iri); i++ {
		c := iri[i]
		if c == ':' {
			return i > 0
		}
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.')) {
			return false
		}
	}
	return false
}

func naiveJoin(base, ref string) string {
	if strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "?") {
		return base + ref
	}
	if i := strings.LastIndex(base, "/"); i >= 0 {
		return base[:i+1] + ref
	}
	return base + ref
}
