// Package urlref classifies resource references and resolves them against the page's source URL.
package urlref

import (
	"regexp"
	"strings"

	"pagepack/internal/config"
)

// Kind classifies a resource reference
type Kind int

const (
	Absolute         Kind = iota // http://host/x, https://host/x
	ProtocolRelative             // //host/x
	RootRelative                 // /x
	ParentRelative               // ../x
	DocumentRelative             // x, ./x
	Embedded                     // data:, javascript:, mailto: ... never fetched
	Fragment                     // #id
)

func (k Kind) String() string {
	switch k {
	case Absolute:
		return "absolute"
	case ProtocolRelative:
		return "protocol-relative"
	case RootRelative:
		return "root-relative"
	case ParentRelative:
		return "parent-relative"
	case DocumentRelative:
		return "document-relative"
	case Embedded:
		return "embedded"
	case Fragment:
		return "fragment"
	}
	return "unknown"
}

var (
	embeddedSchemes = []string{"data:", "about:", "blob:", "javascript:", "mailto:", "tel:"}
	originRegex     = regexp.MustCompile(`^([^/]*//[^/?#]+)`)
)

// Classify returns the kind of ref
func Classify(ref string) Kind {
	ref = strings.TrimSpace(ref)
	lower := strings.ToLower(ref)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return Absolute
	case isEmbedded(lower):
		return Embedded
	case strings.HasPrefix(ref, "#"):
		return Fragment
	case strings.HasPrefix(ref, "//"):
		return ProtocolRelative
	case strings.HasPrefix(ref, "../"):
		return ParentRelative
	case strings.HasPrefix(ref, "/"):
		return RootRelative
	}
	return DocumentRelative
}

// IsResolved reports whether ref can stand on its own in the output document
func IsResolved(ref string) bool {
	switch Classify(ref) {
	case Absolute, Embedded, Fragment:
		return true
	}
	return false
}

func isEmbedded(lower string) bool {
	for _, scheme := range embeddedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

// Resolver turns references into absolute URLs relative to a source document
type Resolver struct {
	source string // normalized source URL, may be empty
	base   string // scheme://host of source
}

// New creates a resolver for the document at source. An empty source is allowed;
// resolving anything relative then fails with a ConfigurationError.
func New(source string) *Resolver {
	source = config.NormalizeSourceURL(source)
	r := &Resolver{source: source}
	if m := originRegex.FindStringSubmatch(source); m != nil {
		r.base = m[1]
	}
	return r
}

// Source returns the normalized source URL
func (r *Resolver) Source() string { return r.source }

// Base returns the scheme://host origin of the source URL
func (r *Resolver) Base() string { return r.base }

// WithSource derives a resolver for a document found at ref, e.g. a stylesheet
// whose own url() references are relative to it
func (r *Resolver) WithSource(ref string) (*Resolver, error) {
	abs, err := r.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return New(abs), nil
}

// Resolve generates a complete URL from a fragment, even a relative ("../") one
func (r *Resolver) Resolve(fragment string) (string, error) {
	fragment = strings.TrimSpace(fragment)

	switch Classify(fragment) {
	case Absolute, Embedded:
		return fragment, nil

	case ParentRelative:
		if r.source == "" {
			return "", config.Errorf("missing required -s/--src-url flag to resolve %q", fragment)
		}
		return collapseParents(directoryOf(r.source) + fragment), nil

	case ProtocolRelative:
		return "http:" + fragment, nil
	}

	if r.base == "" {
		return "", config.Errorf("missing required -s/--src-url flag to resolve %q", fragment)
	}
	if fragment == "" {
		return r.base, nil
	}
	return r.base + "/" + strings.TrimLeft(fragment, "/"), nil
}

// directoryOf returns everything up to and including the last '/' of the path
func directoryOf(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	origin := u
	if m := originRegex.FindStringSubmatch(u); m != nil {
		origin = m[1]
	}
	path := u[len(origin):]
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return origin + path[:i+1]
	}
	return origin + "/"
}

// collapseParents removes each "/../" together with the path component before it,
// repeating until none remain. It never climbs above the host.
func collapseParents(u string) string {
	origin := ""
	if m := originRegex.FindStringSubmatch(u); m != nil {
		origin = m[1]
	}
	path := u[len(origin):]

	for {
		i := strings.Index(path, "/../")
		if i < 0 {
			break
		}
		prev := strings.LastIndex(path[:i], "/")
		if prev < 0 {
			// "/../" at the root: just drop it
			path = path[i+3:]
			continue
		}
		path = path[:prev] + path[i+3:]
	}
	return origin + path
}
