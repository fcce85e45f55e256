// Package failure defines the error kinds raised while extracting metadata
// from a trail camera video and moving it into place.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide whether to retry.
type Kind int

const (
	// Unknown is reported for errors that carry no kind.
	Unknown Kind = iota
	// Decode means a frame could not be extracted or decoded.
	Decode
	// Composition means cropping, resizing or stacking the regions failed.
	Composition
	// Recognition means OCR produced no usable output.
	Recognition
	// Parse means the OCR text was malformed or too short.
	Parse
	// Validation means a parsed field was out of range or empty.
	Validation
	// Rename means the destination could not be created or the move failed.
	Rename
)

// String returns the name of the kind as it appears in logs.
func (k Kind) String() string {
	switch k {
	case Decode:
		return "DecodeFailure"
	case Composition:
		return "CompositionFailure"
	case Recognition:
		return "RecognitionFailure"
	case Parse:
		return "ParseFailure"
	case Validation:
		return "ValidationFailure"
	case Rename:
		return "RenameFailure"
	default:
		return "UnknownFailure"
	}
}

// IsFrameLevel reports whether a failure of this kind only spoils the
// current candidate frame.
func (k Kind) IsFrameLevel() bool {
	return k >= Decode && k <= Validation
}

// Error is a failure tagged with its Kind and the operation that raised it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with the given kind and operation name.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a kinded error from a format string.
func Newf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
