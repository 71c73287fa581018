package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is matched by every error Validate returns.
var ErrValidation = errors.New("invalid flow run filter")

// Validation failure kinds, usable with errors.Is.
var (
	ErrWrongObjectKind      = errors.New("wrong object kind")
	ErrMissingDiscriminator = errors.New("missing discriminator")
	ErrUnknownProperty      = errors.New("unknown property")
	ErrUnknownField         = errors.New("unknown field")
	ErrInvalidField         = errors.New("invalid field")
	ErrDuplicateField       = errors.New("duplicate field")
)

// Field family causes carried by InvalidField errors.
var (
	ErrNotStringList    = errors.New("expected a list of strings")
	ErrNotBool          = errors.New("expected a boolean")
	ErrNotObject        = errors.New("expected an object")
	ErrInvalidTimestamp = errors.New("expected an RFC 3339 timestamp")
	ErrInvalidRange     = errors.New("after_ is later than before_")
	ErrUnknownStateType = errors.New("unknown state type")
)

// Kind classifies a validation failure.
type Kind int

// Kind values.
const (
	KindWrongObjectKind Kind = iota + 1
	KindMissingDiscriminator
	KindUnknownProperty
	KindUnknownField
	KindInvalidField
	KindDuplicateField
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindWrongObjectKind:
		return "WrongObjectKind"
	case KindMissingDiscriminator:
		return "MissingDiscriminator"
	case KindUnknownProperty:
		return "UnknownProperty"
	case KindUnknownField:
		return "UnknownField"
	case KindInvalidField:
		return "InvalidField"
	case KindDuplicateField:
		return "DuplicateField"
	default:
		return "Unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindWrongObjectKind:
		return ErrWrongObjectKind
	case KindMissingDiscriminator:
		return ErrMissingDiscriminator
	case KindUnknownProperty:
		return ErrUnknownProperty
	case KindUnknownField:
		return ErrUnknownField
	case KindInvalidField:
		return ErrInvalidField
	case KindDuplicateField:
		return ErrDuplicateField
	default:
		return nil
	}
}

// ValidationError describes why a candidate is not a flow run filter.
// Family is set for UnknownField and InvalidField; Err holds the family's own
// cause for InvalidField.
type ValidationError struct {
	Kind   Kind
	Family Family
	Field  string
	Value  any
	Err    error
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindWrongObjectKind:
		return fmt.Sprintf("wrong object kind: %s must be %q, got %s", KeyObject, ObjectFlowRun, describe(e.Value))
	case KindMissingDiscriminator:
		return fmt.Sprintf("missing discriminator: %s is required", KeyProperty)
	case KindUnknownProperty:
		return fmt.Sprintf("unknown property %s", describe(e.Value))
	case KindUnknownField:
		return fmt.Sprintf("unknown field %q for %s filter", e.Field, e.Family)
	case KindInvalidField:
		return fmt.Sprintf("invalid field %q for %s filter: %v", e.Field, e.Family, e.Err)
	case KindDuplicateField:
		return fmt.Sprintf("duplicate field %q", e.Field)
	default:
		return ErrValidation.Error()
	}
}

// Unwrap exposes ErrValidation, the kind sentinel and the family cause.
func (e *ValidationError) Unwrap() []error {
	errs := []error{ErrValidation}
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Pointer returns a JSON pointer to the offending field, relative to the filter.
func (e *ValidationError) Pointer() string {
	switch e.Kind {
	case KindWrongObjectKind:
		return "/" + KeyObject
	case KindMissingDiscriminator, KindUnknownProperty:
		return "/" + KeyProperty
	}
	if e.Field == "" {
		return ""
	}
	var b strings.Builder
	for _, segment := range strings.Split(e.Field, ".") {
		b.WriteByte('/')
		b.WriteString(pointerEscaper.Replace(segment))
	}
	return b.String()
}

// pointerEscaper escapes a reference token as RFC 6901 requires.
var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// IndexError locates a failure inside a list of filters.
type IndexError struct {
	Index int
	Err   error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("filter %d: %v", e.Index, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

// Pointer returns a JSON pointer to the failing entry (and field, when known).
func (e *IndexError) Pointer() string {
	p := fmt.Sprintf("/%d", e.Index)
	var verr *ValidationError
	if errors.As(e.Err, &verr) {
		p += verr.Pointer()
	}
	return p
}

func describe(v any) string {
	switch val := v.(type) {
	case nil:
		return "nothing"
	case string:
		return fmt.Sprintf("%q", val)
	default:
		return fmt.Sprintf("a %T", v)
	}
}
