// Package extension implements Kabap's extension protocol: the
// mechanism by which a host exposes filesystem, network or other
// process-state capabilities to a script under a named reference
// prefix (spec §4.4).
//
// The protocol is expressed as a small capability interface rather
// than a class hierarchy, the way go-dws exposes host capabilities to
// FFI-registered functions without requiring a common base type.
package extension

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lowerCaser = cases.Lower(language.Und)

// MessageKind distinguishes a reference read from a reference write.
type MessageKind int

const (
	Read MessageKind = iota
	Write
)

// Result is an extension's verdict on a Message it was offered.
type Result int

const (
	// Unset is the zero value: an extension that returns this (or any
	// value outside the three below) is considered broken.
	Unset Result = iota
	// Ignored means "not mine, try the next extension in the prefix's
	// list, then the catch-all bucket".
	Ignored
	// HandledOkay means Value holds the final result.
	HandledOkay
	// HandledFail means Value holds an error message to surface.
	HandledFail
)

// Message is the envelope passed to Extension.Handle. It is returned
// (possibly mutated) by the extension.
type Message struct {
	Kind   MessageKind
	Name   string // full "prefix.key" reference
	Value  string
	Result Result
	Custom any
}

// Extension is a host-supplied capability handler. An instance is
// consulted for every reference dispatched under the prefix it
// registers for.
type Extension interface {
	// Register is called once, at registration time, with the engine's
	// major version and whether the engine runs in debug mode. It
	// returns the lowercase prefix this extension wants to own ("" for
	// the catch-all bucket), or ok=false to decline (e.g. on a version
	// mismatch).
	Register(engineMajor int, debug bool) (prefix string, ok bool)

	// Reset is invoked whenever the owning engine resets.
	Reset()

	// Handle processes a READ or WRITE message and returns it, with
	// Result/Value set to the outcome.
	Handle(msg Message) Message
}

// Named is implemented by extensions with a stable host-visible
// identity, allowing the registry to reject duplicate registration and
// to support selective removal. Extensions that don't implement Named
// are anonymous: they can be added but only removed in bulk via
// RemoveAll, since the registry has no way to single one back out.
type Named interface {
	Name() string
}

// Registry maps a lowercase prefix to an ordered list of extensions,
// plus a reserved "*" catch-all bucket, and tracks named-extension
// identity for duplicate rejection and selective removal.
type Registry struct {
	byPrefix map[string][]Extension
	named    map[string]Extension
	all      []Extension // insertion order, for Reset/RemoveAll fan-out
}

// CatchAll is the reserved bucket key for extensions that registered
// with an empty prefix.
const CatchAll = "*"

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byPrefix: make(map[string][]Extension),
		named:    make(map[string]Extension),
	}
}

// Add runs the registration handshake for ext and, on success, files it
// under its requested prefix (or the catch-all bucket). It returns
// false if the extension declined (Register returned ok=false) or if
// it is a named extension already registered under the same name.
func (r *Registry) Add(ext Extension, engineMajor int, debug bool) bool {
	if named, ok := ext.(Named); ok {
		if _, exists := r.named[named.Name()]; exists {
			return false
		}
	}

	prefix, ok := ext.Register(engineMajor, debug)
	if !ok {
		return false
	}
	prefix = lower(prefix)
	if prefix == "" {
		prefix = CatchAll
	}

	if named, ok := ext.(Named); ok {
		r.named[named.Name()] = ext
	}
	r.byPrefix[prefix] = append(r.byPrefix[prefix], ext)
	r.all = append(r.all, ext)
	return true
}

// Remove removes a named extension by identity. It returns false for
// anonymous extensions (no stable identity to match on) or if ext was
// never registered.
func (r *Registry) Remove(ext Extension) bool {
	named, ok := ext.(Named)
	if !ok {
		return false
	}
	if _, exists := r.named[named.Name()]; !exists {
		return false
	}
	delete(r.named, named.Name())

	for prefix, list := range r.byPrefix {
		for i, e := range list {
			if e == ext {
				r.byPrefix[prefix] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
	for i, e := range r.all {
		if e == ext {
			r.all = append(r.all[:i], r.all[i+1:]...)
			break
		}
	}
	return true
}

// RemoveAll drops every registered extension, named and anonymous
// alike.
func (r *Registry) RemoveAll() {
	r.byPrefix = make(map[string][]Extension)
	r.named = make(map[string]Extension)
	r.all = nil
}

// Reset fans out a reset call to every registered extension, in
// insertion order.
func (r *Registry) Reset() {
	for _, ext := range r.all {
		ext.Reset()
	}
}

// Dispatch resolves a reference of the form "prefix.key" by handing msg
// to each extension registered under the prefix, in insertion order,
// falling through to the catch-all bucket if unresolved.
func (r *Registry) Dispatch(msg Message) (Message, error) {
	prefix := referencePrefix(msg.Name)

	if result, err, handled := r.dispatchBucket(r.byPrefix[prefix], msg); handled {
		return result, err
	}
	if prefix != CatchAll {
		if result, err, handled := r.dispatchBucket(r.byPrefix[CatchAll], msg); handled {
			return result, err
		}
	}
	return msg, fmt.Errorf("Reference not found: %s", msg.Name)
}

func (r *Registry) dispatchBucket(list []Extension, msg Message) (Message, error, bool) {
	for _, ext := range list {
		out := ext.Handle(msg)
		switch out.Result {
		case Ignored:
			continue
		case HandledOkay:
			return out, nil, true
		case HandledFail:
			if out.Value == "" {
				return out, fmt.Errorf("Extension is broken (no error message given)"), true
			}
			return out, fmt.Errorf("%s", out.Value), true
		default:
			return out, fmt.Errorf("Extension is broken (invalid result value)"), true
		}
	}
	return Message{}, nil, false
}

// referencePrefix returns the lowercase prefix of a "prefix.key"
// reference: everything before the first '.'.
func referencePrefix(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return lower(name[:i])
		}
	}
	return lower(name)
}

// lower folds s to lowercase via golang.org/x/text/cases rather than
// strings.ToLower, matching the rest of the engine's case-folding
// (see internal/executor for variable/label name folding).
func lower(s string) string {
	return lowerCaser.String(s)
}
