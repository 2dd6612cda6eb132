package formcalc

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKinds classify the ways a formula can fail. None of them stops a report.
type ErrorKinds uint8

// values of ErrorKinds
const (
	EKnone ErrorKinds = 0 + iota
	EKparse
	EKunresolved
	EKarity
	EKdivZero
	EKgroupField
	EKcycle
	EKunknownFunction
)

func (ek ErrorKinds) String() string {
	switch ek {
	case EKparse:
		return "ParseError"
	case EKunresolved:
		return "UnresolvedFieldWarning"
	case EKarity:
		return "ArityError"
	case EKdivZero:
		return "DivisionByZero"
	case EKgroupField:
		return "GroupFieldMissing"
	case EKcycle:
		return "CircularReference"
	case EKunknownFunction:
		return "UnknownFunction"
	default:
		return "None"
	}
}

// EvalError is the error returned for a formula that cannot be parsed or evaluated.
// Pos is the byte offset in Formula, -1 if not known.
type EvalError struct {
	Kind    ErrorKinds
	Formula string
	Pos     int
	Msg     string
}

func (e *EvalError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Kind, e.Pos, e.Msg)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newEvalError(kind ErrorKinds, pos int, format string, args ...any) *EvalError {
	return &EvalError{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the ErrorKinds of err, EKnone if err is not (or does not wrap) an *EvalError.
func KindOf(err error) ErrorKinds {
	var ee *EvalError
	if errors.As(err, &ee) {
		return ee.Kind
	}

	return EKnone
}

// ErrUnresolved is returned by Catalog.Resolve for an unknown label.
var ErrUnresolved = errors.New("field not found")
