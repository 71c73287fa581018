// Package filter validates and represents flow run filters.
//
// A flow run filter is a tagged union: the "object" field is always
// "flow_run", the "property" field selects one of four field families, and
// the remaining fields belong to that family only:
//
//	{"object": "flow_run", "property": "start_date", "after_": "2024-01-01T00:00:00Z"}
//
// Validate turns untrusted input into one of NameFilter, DateFilter,
// TagFilter or StateFilter. Callers type-switch on the result instead of
// re-inspecting the property.
package filter

import "slices"

// ObjectFlowRun is the only accepted value of the "object" field.
const ObjectFlowRun = "flow_run"

// Top-level keys shared by every filter.
const (
	KeyObject   = "object"
	KeyProperty = "property"
)

// Family field names.
const (
	FieldAny    = "any_"
	FieldAll    = "all_"
	FieldBefore = "before_"
	FieldAfter  = "after_"
	FieldIsNull = "is_null_"
	FieldType   = "type"
	FieldName   = "name"
)

// Property is the discriminator selecting which flow run attribute a filter constrains.
type Property string

// Property values.
const (
	PropertyName      Property = "name"
	PropertyStartDate Property = "start_date"
	PropertyEndDate   Property = "end_date"
	PropertyTag       Property = "tag"
	PropertyState     Property = "state"
)

// Properties returns every recognised discriminator.
func Properties() []Property {
	return []Property{PropertyName, PropertyStartDate, PropertyEndDate, PropertyTag, PropertyState}
}

// Family returns the field family the property selects.
func (p Property) Family() (Family, bool) {
	switch p {
	case PropertyName:
		return FamilyString, true
	case PropertyStartDate, PropertyEndDate:
		return FamilyDate, true
	case PropertyTag:
		return FamilyTag, true
	case PropertyState:
		return FamilyState, true
	}
	return "", false
}

// IsValid reports whether p is a recognised discriminator.
func (p Property) IsValid() bool {
	_, ok := p.Family()
	return ok
}

// Family is a set of comparison fields shared by one or more properties.
type Family string

// Family values.
const (
	FamilyString Family = "string"
	FamilyDate   Family = "date"
	FamilyTag    Family = "tag"
	FamilyState  Family = "state"
)

// Fields returns the top-level field names the family recognises.
func (f Family) Fields() []string {
	switch f {
	case FamilyString:
		return []string{FieldAny}
	case FamilyDate:
		return []string{FieldBefore, FieldAfter, FieldIsNull}
	case FamilyTag:
		return []string{FieldAll, FieldIsNull}
	case FamilyState:
		return []string{FieldType, FieldName}
	}
	return nil
}

// Recognizes reports whether field belongs to the family.
func (f Family) Recognizes(field string) bool {
	return slices.Contains(f.Fields(), field)
}
