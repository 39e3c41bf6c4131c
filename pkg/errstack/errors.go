// Package errstack carries the ordered error stack raised by the PKCS7 and
// S/MIME packages and translates it into caller-visible records.
//
// A failing operation returns an *Error holding every frame that was pushed
// while the failure propagated, oldest cause first. Frames are fixed once the
// error leaves the package that produced it.
package errstack

import (
	"errors"
	"fmt"
	"path"
	"runtime"
	"strings"
)

// Kind classifies a failure for callers.
// Kind implements error so that errors.Is(err, errstack.ParseError) works.
type Kind int

const (
	// InvalidOption is an unknown flag or cipher name, or an empty option set
	// where at least one option is required.
	InvalidOption Kind = iota + 1

	// ParseError is malformed PEM, malformed S/MIME text or undecodable DER.
	ParseError

	// CryptoEngineError is any failure raised while encrypting, decrypting,
	// signing or verifying.
	CryptoEngineError
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case InvalidOption:
		return "invalid_option"
	case ParseError:
		return "parse_error"
	case CryptoEngineError:
		return "crypto_engine_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error implements the error interface.
func (k Kind) Error() string { return k.String() }

// Library identifies the component that raised a frame.
type Library uint8

const (
	LibNone Library = iota
	LibOptions
	LibPEM
	LibX509
	LibASN1
	LibCipher
	LibPKCS7
	LibSMIME
)

var libraryNames = [...]string{
	LibNone:    "",
	LibOptions: "option routines",
	LibPEM:     "PEM routines",
	LibX509:    "X509 routines",
	LibASN1:    "asn1 encoding routines",
	LibCipher:  "cipher routines",
	LibPKCS7:   "PKCS7 routines",
	LibSMIME:   "S/MIME routines",
}

// String returns the library name used in frames.
func (l Library) String() string {
	if int(l) < len(libraryNames) {
		return libraryNames[l]
	}
	return ""
}

// Reason is a registered failure reason. Reasons are compared by identity,
// so a package-level *Reason works as a sentinel with errors.Is.
type Reason struct {
	lib  Library
	code uint16
	text string
}

// NewReason registers a reason for the given library.
func NewReason(lib Library, code uint16, text string) *Reason {
	return &Reason{lib: lib, code: code, text: text}
}

// Error implements the error interface.
func (r *Reason) Error() string { return r.text }

// Code packs library and reason into one number, library in the top byte.
func (r *Reason) Code() uint32 { return uint32(r.lib)<<24 | uint32(r.code) }

// Library returns the library that owns the reason.
func (r *Reason) Library() Library { return r.lib }

// Frame is one entry of the raw error stack. Empty string fields were not
// supplied by the producer of the frame.
type Frame struct {
	Code     uint32
	File     string
	Line     int
	Library  string
	Function string
	Reason   string
	Data     string
}

// Error is a failed operation: its kind plus the captured frames.
type Error struct {
	Kind   Kind
	Frames []Frame

	// causes holds the reasons and foreign errors behind each frame.
	causes []error
}

// Error renders the newest frame first, down to the root cause.
func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Frames))
	for i := len(e.Frames) - 1; i >= 0; i-- {
		f := e.Frames[i]
		s := f.Reason
		if f.Data != "" {
			if s == "" {
				s = f.Data
			} else {
				s += " (" + f.Data + ")"
			}
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + strings.Join(parts, ": ")
}

// Unwrap exposes the reasons and foreign errors of every frame.
func (e *Error) Unwrap() []error { return e.causes }

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Records translates the frames of e.
func (e *Error) Records() []Record { return Translate(e.Frames) }

// Raise starts a new stack with a single frame for reason.
func Raise(kind Kind, reason *Reason, data string) *Error {
	e := &Error{Kind: kind}
	e.push(reason, data, 1)
	return e
}

// Raisef is Raise with formatted data.
func Raisef(kind Kind, reason *Reason, format string, args ...any) *Error {
	e := &Error{Kind: kind}
	e.push(reason, fmt.Sprintf(format, args...), 1)
	return e
}

// Wrap pushes reason on top of err and returns a stack of the given kind. If
// err already is an *Error its frames are kept and the new frame goes on top;
// the outer kind replaces the inner one. Any other error becomes the oldest
// frame.
func Wrap(kind Kind, err error, reason *Reason, data string) *Error {
	var base *Error
	e := &Error{Kind: kind}
	if errors.As(err, &base) {
		e.Frames = append([]Frame(nil), base.Frames...)
		e.causes = append([]error(nil), base.causes...)
	} else if err != nil {
		e.pushForeign(err, 1)
	}
	if reason != nil {
		e.push(reason, data, 1)
	}
	return e
}

// KindOf returns the kind carried by err.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func (e *Error) push(reason *Reason, data string, skip int) {
	file, line, fn := caller(skip + 1)
	e.Frames = append(e.Frames, Frame{
		Code:     reason.Code(),
		File:     file,
		Line:     line,
		Library:  reason.Library().String(),
		Function: fn,
		Reason:   reason.text,
		Data:     data,
	})
	e.causes = append(e.causes, reason)
}

func (e *Error) pushForeign(err error, skip int) {
	file, line, _ := caller(skip + 1)
	e.Frames = append(e.Frames, Frame{
		File:   file,
		Line:   line,
		Reason: err.Error(),
	})
	e.causes = append(e.causes, err)
}

// caller reports the call site skip frames above its caller as a
// "package/file.go" path, line and short function name.
func caller(skip int) (string, int, string) {
	var pcs [1]uintptr
	if runtime.Callers(skip+2, pcs[:]) == 0 {
		return "unknown", 0, ""
	}
	frame, _ := runtime.CallersFrames(pcs[:]).Next()

	file := path.Join(path.Base(path.Dir(frame.File)), path.Base(frame.File))
	fn := frame.Function
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		fn = fn[i+1:]
	}
	return file, frame.Line, fn
}
