// Package handling defines the per listener strategy turning a request
// into a response: resolve it against a document root, or redirect it to
// a fixed destination.
package handling

import (
	"fmt"
)

type (
	// Kind is the handling variant
	Kind int

	// Resolver is the request resolution collaborator. Implementations
	// must be safe for concurrent use.
	Resolver interface {
		Resolve(request string) []byte
		Redirect(request, destination string) []byte
	}

	// T is a read-only value shared by all the jobs of a listener
	T struct {
		kind        Kind
		resolver    Resolver
		destination string
	}
)

const (
	KindResolve Kind = iota
	KindRedirect
)

func (k Kind) String() string {
	switch k {
	case KindResolve:
		return "resolve"
	case KindRedirect:
		return "redirect"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// NewResolve returns the variant answering requests with r.Resolve
func NewResolve(r Resolver) T {
	return T{kind: KindResolve, resolver: r}
}

// NewRedirect returns the variant answering requests with a redirect
// to destination
func NewRedirect(r Resolver, destination string) T {
	return T{kind: KindRedirect, resolver: r, destination: destination}
}

// New returns the redirect variant if destination is set, else the
// resolve variant
func New(r Resolver, destination string) T {
	if destination != "" {
		return NewRedirect(r, destination)
	}
	return NewResolve(r)
}

func (t T) Kind() Kind {
	return t.kind
}

// Valid returns false for the zero value
func (t T) Valid() bool {
	return t.resolver != nil
}

// Destination is the redirect destination, empty for KindResolve
func (t T) Destination() string {
	return t.destination
}

func (t T) String() string {
	if t.kind == KindRedirect {
		return fmt.Sprintf("%s to %s", t.kind, t.destination)
	}
	return t.kind.String()
}

// Handle returns the complete response to request
func (t T) Handle(request string) []byte {
	switch t.kind {
	case KindRedirect:
		return t.resolver.Redirect(request, t.destination)
	default:
		return t.resolver.Resolve(request)
	}
}
