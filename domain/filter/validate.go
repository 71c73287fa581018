package filter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/helixml/runfilter/domain/flowrun"
)

// Validate checks a candidate and returns the filter it describes.
//
// The candidate may be a decoded JSON or YAML object (map[string]any), raw
// JSON ([]byte or json.RawMessage) or an existing FlowRunFilter, which is
// re-validated through its JSON form. A nil pointer to a variant is a
// WrongObjectKind error. Every returned error wraps ErrValidation and,
// except for malformed JSON, is a *ValidationError.
func Validate(candidate any) (FlowRunFilter, error) {
	switch c := candidate.(type) {
	case FlowRunFilter:
		f, ok := variant(c)
		if !ok {
			return nil, &ValidationError{Kind: KindWrongObjectKind, Value: candidate}
		}
		data, err := f.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("%w: encode filter: %w", ErrValidation, err)
		}
		return Parse(data)
	case json.RawMessage:
		return Parse(c)
	case []byte:
		return Parse(c)
	case map[string]any:
		return validateObject(c)
	default:
		return nil, &ValidationError{Kind: KindWrongObjectKind, Value: candidate}
	}
}

// Parse decodes a single JSON object and validates it.
// A key repeated within any object, nested state objects included, is
// rejected with a DuplicateField error naming its dotted path.
func Parse(data []byte) (FlowRunFilter, error) {
	candidate, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	if key, ok := duplicateKey(data); ok {
		return nil, &ValidationError{Kind: KindDuplicateField, Field: key}
	}
	return Validate(candidate)
}

// MustValidate is like Validate but panics on error. Intended for tests and fixtures.
func MustValidate(candidate any) FlowRunFilter {
	f, err := Validate(candidate)
	if err != nil {
		panic(err)
	}
	return f
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var candidate any
	if err := dec.Decode(&candidate); err != nil {
		return nil, fmt.Errorf("%w: decode filter: %w", ErrValidation, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decode filter: unexpected data after object", ErrValidation)
	}
	return candidate, nil
}

// duplicateKey returns the dotted path of the first key repeated within a JSON object.
func duplicateKey(data []byte) (string, bool) {
	key, err := scanDuplicates(json.NewDecoder(bytes.NewReader(data)), "")
	return key, err == nil && key != ""
}

// scanDuplicates consumes one JSON value from dec and returns the path of
// the first repeated key found in it.
func scanDuplicates(dec *json.Decoder, prefix string) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return "", nil
	}
	switch delim {
	case '[':
		for dec.More() {
			if key, err := scanDuplicates(dec, prefix); err != nil || key != "" {
				return key, err
			}
		}
	case '{':
		seen := make(map[string]struct{})
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return "", err
			}
			key, _ := tok.(string)
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			if _, dup := seen[key]; dup {
				return path, nil
			}
			seen[key] = struct{}{}
			if found, err := scanDuplicates(dec, path); err != nil || found != "" {
				return found, err
			}
		}
	}
	_, err = dec.Token()
	return "", err
}

func validateObject(m map[string]any) (FlowRunFilter, error) {
	if obj, ok := m[KeyObject].(string); !ok || obj != ObjectFlowRun {
		return nil, &ValidationError{Kind: KindWrongObjectKind, Field: KeyObject, Value: m[KeyObject]}
	}

	raw, ok := m[KeyProperty]
	if !ok || raw == nil {
		return nil, &ValidationError{Kind: KindMissingDiscriminator, Field: KeyProperty}
	}
	name, ok := raw.(string)
	if !ok {
		return nil, &ValidationError{Kind: KindUnknownProperty, Field: KeyProperty, Value: raw}
	}
	property := Property(name)
	family, ok := property.Family()
	if !ok {
		return nil, &ValidationError{Kind: KindUnknownProperty, Field: KeyProperty, Value: name}
	}

	fields := make(map[string]any, len(m))
	for k, v := range m {
		if k == KeyObject || k == KeyProperty {
			continue
		}
		fields[k] = v
	}
	if key, ok := firstUnknown(fields, family.Recognizes); ok {
		return nil, &ValidationError{Kind: KindUnknownField, Family: family, Field: key, Value: fields[key]}
	}

	f, ferr := build(property, family, fields)
	if ferr != nil {
		kind := KindInvalidField
		if ferr.unknown {
			kind = KindUnknownField
		}
		return nil, &ValidationError{Kind: kind, Family: family, Field: ferr.field, Value: ferr.value, Err: ferr.err}
	}
	return f, nil
}

// fieldError is a family-level failure before it is placed in a ValidationError.
type fieldError struct {
	field   string
	value   any
	err     error
	unknown bool
}

func invalid(field string, value any, err error) *fieldError {
	return &fieldError{field: field, value: value, err: err}
}

// firstUnknown returns the alphabetically first key that recognizes rejects.
func firstUnknown(fields map[string]any, recognizes func(string) bool) (string, bool) {
	var unknown []string
	for k := range fields {
		if !recognizes(k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return "", false
	}
	sort.Strings(unknown)
	return unknown[0], true
}

func build(property Property, family Family, fields map[string]any) (FlowRunFilter, *fieldError) {
	switch family {
	case FamilyString:
		return buildString(fields)
	case FamilyDate:
		return buildDate(property, fields)
	case FamilyTag:
		return buildTag(fields)
	case FamilyState:
		return buildState(fields)
	}
	return nil, invalid(KeyProperty, property, ErrUnknownProperty)
}

func buildString(fields map[string]any) (FlowRunFilter, *fieldError) {
	anyOf, err := stringList(fields[FieldAny])
	if err != nil {
		return nil, invalid(FieldAny, fields[FieldAny], err)
	}
	return NewNameFilter(StringFields{Any: anyOf}), nil
}

func buildDate(property Property, fields map[string]any) (FlowRunFilter, *fieldError) {
	var out DateFields
	var err error
	if out.Before, err = timestamp(fields[FieldBefore]); err != nil {
		return nil, invalid(FieldBefore, fields[FieldBefore], err)
	}
	if out.After, err = timestamp(fields[FieldAfter]); err != nil {
		return nil, invalid(FieldAfter, fields[FieldAfter], err)
	}
	if out.IsNull, err = boolean(fields[FieldIsNull]); err != nil {
		return nil, invalid(FieldIsNull, fields[FieldIsNull], err)
	}
	if out.Before != nil && out.After != nil && out.After.After(*out.Before) {
		return nil, invalid(FieldAfter, fields[FieldAfter], ErrInvalidRange)
	}
	if property == PropertyEndDate {
		return NewEndDateFilter(out), nil
	}
	return NewStartDateFilter(out), nil
}

func buildTag(fields map[string]any) (FlowRunFilter, *fieldError) {
	all, err := stringList(fields[FieldAll])
	if err != nil {
		return nil, invalid(FieldAll, fields[FieldAll], err)
	}
	isNull, err := boolean(fields[FieldIsNull])
	if err != nil {
		return nil, invalid(FieldIsNull, fields[FieldIsNull], err)
	}
	return NewTagFilter(TagFields{All: all, IsNull: isNull}), nil
}

func buildState(fields map[string]any) (FlowRunFilter, *fieldError) {
	var out StateFields

	if raw := fields[FieldType]; raw != nil {
		nested, ferr := nestedObject(FieldType, raw)
		if ferr != nil {
			return nil, ferr
		}
		names, err := stringList(nested[FieldAny])
		if err != nil {
			return nil, invalid(FieldType+"."+FieldAny, nested[FieldAny], err)
		}
		out.Type = &StateTypeFields{}
		if names != nil {
			out.Type.Any = make([]flowrun.StateType, 0, len(names))
			for _, n := range names {
				st, err := flowrun.ParseStateType(n)
				if err != nil {
					return nil, invalid(FieldType+"."+FieldAny, n, fmt.Errorf("%w %q, want one of %v", ErrUnknownStateType, n, flowrun.StateTypes()))
				}
				out.Type.Any = append(out.Type.Any, st)
			}
		}
	}

	if raw := fields[FieldName]; raw != nil {
		nested, ferr := nestedObject(FieldName, raw)
		if ferr != nil {
			return nil, ferr
		}
		names, err := stringList(nested[FieldAny])
		if err != nil {
			return nil, invalid(FieldName+"."+FieldAny, nested[FieldAny], err)
		}
		out.Name = &StateNameFields{Any: names}
	}

	return NewStateFilter(out), nil
}

// nestedObject checks a state sub-object, whose only field is any_.
func nestedObject(field string, raw any) (map[string]any, *fieldError) {
	nested, ok := raw.(map[string]any)
	if !ok {
		return nil, invalid(field, raw, ErrNotObject)
	}
	if key, ok := firstUnknown(nested, func(k string) bool { return k == FieldAny }); ok {
		return nil, &fieldError{field: field + "." + key, value: nested[key], unknown: true}
	}
	return nested, nil
}

func stringList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return slices.Clone(v), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, ErrNotStringList
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, ErrNotStringList
	}
}

func boolean(raw any) (*bool, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		return &v, nil
	default:
		return nil, ErrNotBool
	}
}

func timestamp(raw any) (*time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return Time(v), nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v))
		if err != nil {
			return nil, ErrInvalidTimestamp
		}
		return Time(t), nil
	default:
		return nil, ErrInvalidTimestamp
	}
}
