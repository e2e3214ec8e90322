// Copyright 2025 The pgexec Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pgerr defines the error taxonomy shared by every stage of the
// parameter-binding pipeline: programming mistakes by the caller, codec
// and adapter failures, internal accounting bugs, and the pass-through
// surfacing of whatever the transport collaborator reports.
package pgerr

import (
	"github.com/cockroachdb/errors"
)

// Kind classifies an error without mandating a concrete Go type for it,
// mirroring the taxonomy in the design: callers should branch on Kind,
// not on a type switch.
type Kind int

const (
	// KindProgramming covers caller misuse: empty SQL, mixed placeholder
	// styles, a missing named key, an out-of-range positional index, a
	// named-cursor precondition violation.
	KindProgramming Kind = iota
	// KindInterface covers codec-not-found and invalid string-type errors.
	KindInterface
	// KindInternal covers allocation failure mid-rewrite and buffer
	// accounting mismatches — bugs in this package, not caller misuse.
	KindInternal
	// KindType covers missing adapters and non-progressing getraw calls.
	KindType
	// KindNotSupported covers operations the backend collaborator refuses
	// outright (e.g. nextset on this backend).
	KindNotSupported
	// KindTransport wraps an error surfaced verbatim from the transport
	// collaborator.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindProgramming:
		return "programming-error"
	case KindInterface:
		return "interface-error"
	case KindInternal:
		return "internal-error"
	case KindType:
		return "type-error"
	case KindNotSupported:
		return "not-supported"
	case KindTransport:
		return "transport-error"
	default:
		return "unknown-error"
	}
}

type taggedError struct {
	kind Kind
	error
}

func (e *taggedError) Unwrap() error { return e.error }

// KindOf extracts the Kind tagged onto err by New/Wrap/Wrapf, or
// KindInternal if err was not produced by this package.
func KindOf(err error) Kind {
	var te *taggedError
	if errors.As(err, &te) {
		return te.kind
	}
	return KindInternal
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// New builds a Kind-tagged error with a plain message.
func New(kind Kind, msg string) error {
	return &taggedError{kind: kind, error: errors.NewWithDepth(1, kind.String()+": "+msg)}
}

// Newf builds a Kind-tagged error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &taggedError{kind: kind, error: errors.NewWithDepthf(1, kind.String()+": "+format, args...)}
}

// Wrap tags an existing error with Kind, preserving it as the cause.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &taggedError{kind: kind, error: errors.Wrap(err, kind.String()+": "+msg)}
}

// Wrapf tags an existing error with Kind and a formatted message.
func Wrapf(kind Kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &taggedError{kind: kind, error: errors.Wrapf(err, kind.String()+": "+format, args...)}
}

// Programming is a shorthand for New(KindProgramming, ...).
func Programming(format string, args ...interface{}) error {
	return Newf(KindProgramming, format, args...)
}

// Interface is a shorthand for New(KindInterface, ...).
func Interface(format string, args ...interface{}) error {
	return Newf(KindInterface, format, args...)
}

// Internal is a shorthand for New(KindInternal, ...).
func Internal(format string, args ...interface{}) error {
	return Newf(KindInternal, format, args...)
}

// TypeErr is a shorthand for New(KindType, ...); named TypeErr because
// Type collides with too many call sites that import both this package
// and a local "type" concept.
func TypeErr(format string, args ...interface{}) error {
	return Newf(KindType, format, args...)
}

// NotSupported is a shorthand for New(KindNotSupported, ...).
func NotSupported(format string, args ...interface{}) error {
	return Newf(KindNotSupported, format, args...)
}

// Transport wraps a transport-collaborator error verbatim, tagging it
// KindTransport without altering its message.
func Transport(err error) error {
	if err == nil {
		return nil
	}
	return &taggedError{kind: KindTransport, error: err}
}
