// Package cogerr defines the stable error taxonomy shared by every layer of
// the COG reader, Tile Matrix Set builder and reprojection mesher.
package cogerr

import (
	"fmt"
	"strings"
)

// Kind identifies the class of failure. Kinds are stable and safe to switch
// on across package versions.
type Kind string

const (
	InvalidTiff                Kind = "InvalidTiff"
	UnsupportedTiffFeature     Kind = "UnsupportedTiffFeature"
	HeterogeneousSampleFormat  Kind = "HeterogeneousSampleFormat"
	HeterogeneousBitsPerSample Kind = "HeterogeneousBitsPerSample"
	UnsupportedCompression     Kind = "UnsupportedCompression"
	UnsupportedPredictor       Kind = "UnsupportedPredictor"
	TileNotFound               Kind = "TileNotFound"
	SparseTile                 Kind = "SparseTile"
	ShortRead                  Kind = "ShortRead"
	Aborted                    Kind = "Aborted"
	DegenerateTransform        Kind = "DegenerateTransform"
	UnsupportedCrs             Kind = "UnsupportedCrs"
	InvalidEllipsoid           Kind = "InvalidEllipsoid"
	BandIndexOutOfRange        Kind = "BandIndexOutOfRange"
	EmptyBandOrder             Kind = "EmptyBandOrder"
	InvalidRasterSize          Kind = "InvalidRasterSize"
	WindowOutOfBounds          Kind = "WindowOutOfBounds"
)

// KV is a single context-bag entry, e.g. KV{"tileX", 3}.
type KV struct {
	Key   string
	Value any
}

// Error is the structured error returned across every exported boundary.
// It carries a stable Kind, an English message, and a context bag of
// diagnostic values (window coordinates, tile indices, compression codes).
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any

	wrapped error
}

// New constructs an Error of the given kind.
func New(kind Kind, msg string, kvs ...KV) *Error {
	e := &Error{Kind: kind, Message: msg}
	if len(kvs) > 0 {
		e.Context = make(map[string]any, len(kvs))
		for _, kv := range kvs {
			e.Context[kv.Key] = kv.Value
		}
	}
	return e
}

// Wrap constructs an Error of the given kind that wraps an underlying cause.
// errors.Unwrap(e) returns cause.
func Wrap(kind Kind, cause error, msg string, kvs ...KV) *Error {
	e := New(kind, msg, kvs...)
	e.wrapped = cause
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Context) > 0 {
		b.WriteString(" (")
		first := true
		for k, v := range e.Context {
			if !first {
				b.WriteString(", ")
			}
			first = false
			fmt.Fprintf(&b, "%s=%v", k, v)
		}
		b.WriteString(")")
	}
	if e.wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.wrapped.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.wrapped
}

// Is reports whether target is a *Error with the same Kind, so call sites
// can write errors.Is(err, cogerr.New(cogerr.TileNotFound, "")) or, more
// commonly, errors.As plus a Kind comparison via Is(err, kind).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
