package filter

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/helixml/runfilter/domain/flowrun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obj(property string, fields map[string]any) map[string]any {
	m := map[string]any{KeyObject: ObjectFlowRun, KeyProperty: property}
	for k, v := range fields {
		m[k] = v
	}
	return m
}

func TestValidate_BareFilterForEveryProperty(t *testing.T) {
	tests := []struct {
		property Property
		family   Family
	}{
		{PropertyName, FamilyString},
		{PropertyStartDate, FamilyDate},
		{PropertyEndDate, FamilyDate},
		{PropertyTag, FamilyTag},
		{PropertyState, FamilyState},
	}
	for _, tt := range tests {
		t.Run(string(tt.property), func(t *testing.T) {
			f, err := Validate(obj(string(tt.property), nil))
			require.NoError(t, err)
			assert.Equal(t, tt.property, f.Property())
			assert.Equal(t, tt.family, f.Family())
		})
	}
}

func TestValidate_NameResolvesToStringVariant(t *testing.T) {
	f, err := Validate(obj("name", nil))
	require.NoError(t, err)

	name, ok := f.(NameFilter)
	require.True(t, ok)
	assert.True(t, name.Fields().IsEmpty())
}

func TestValidate_StartDate(t *testing.T) {
	f, err := Validate(obj("start_date", map[string]any{
		FieldAfter:  "2024-01-01T00:00:00Z",
		FieldBefore: "2024-02-01T12:30:00+02:00",
	}))
	require.NoError(t, err)

	date, ok := f.(DateFilter)
	require.True(t, ok)
	assert.Equal(t, PropertyStartDate, date.Property())
	assert.Equal(t, flowrun.ColumnStartTime, date.Column())

	fields := date.Fields()
	require.NotNil(t, fields.After)
	require.NotNil(t, fields.Before)
	assert.True(t, fields.After.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, fields.Before.Equal(time.Date(2024, 2, 1, 10, 30, 0, 0, time.UTC)))
	assert.Nil(t, fields.IsNull)
}

func TestValidate_EndDateSharesDateFamily(t *testing.T) {
	f, err := Validate(obj("end_date", map[string]any{FieldIsNull: true}))
	require.NoError(t, err)

	date, ok := f.(DateFilter)
	require.True(t, ok)
	assert.Equal(t, PropertyEndDate, date.Property())
	assert.Equal(t, FamilyDate, date.Family())
	assert.Equal(t, flowrun.ColumnEndTime, date.Column())
	require.NotNil(t, date.Fields().IsNull)
	assert.True(t, *date.Fields().IsNull)
}

func TestValidate_AcceptsYAMLTimestamps(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.FixedZone("X", -3600))
	f, err := Validate(obj("end_date", map[string]any{FieldBefore: at}))
	require.NoError(t, err)
	before := f.(DateFilter).Fields().Before
	require.NotNil(t, before)
	assert.True(t, before.Equal(at))
	assert.Equal(t, time.UTC, before.Location())
}

func TestValidate_Tag(t *testing.T) {
	f, err := Validate(obj("tag", map[string]any{FieldAll: []any{"prod", "etl"}, FieldIsNull: false}))
	require.NoError(t, err)

	tag, ok := f.(TagFilter)
	require.True(t, ok)
	assert.Equal(t, []string{"prod", "etl"}, tag.Fields().All)
	assert.False(t, *tag.Fields().IsNull)
}

func TestValidate_State(t *testing.T) {
	f, err := Validate(obj("state", map[string]any{
		FieldType: map[string]any{FieldAny: []any{"running", "Completed"}},
		FieldName: map[string]any{FieldAny: []any{"Retrying"}},
	}))
	require.NoError(t, err)

	state, ok := f.(StateFilter)
	require.True(t, ok)
	fields := state.Fields()
	require.NotNil(t, fields.Type)
	require.NotNil(t, fields.Name)
	assert.Equal(t, []flowrun.StateType{flowrun.StateTypeRunning, flowrun.StateTypeCompleted}, fields.Type.Any)
	assert.Equal(t, []string{"Retrying"}, fields.Name.Any)
}

func TestValidate_NullFieldsAreUnset(t *testing.T) {
	f, err := Validate(obj("tag", map[string]any{FieldAll: nil, FieldIsNull: nil}))
	require.NoError(t, err)
	assert.True(t, f.(TagFilter).Fields().IsEmpty())
}

func TestValidate_EmptyListIsKept(t *testing.T) {
	f, err := Validate(obj("name", map[string]any{FieldAny: []any{}}))
	require.NoError(t, err)
	values := f.(NameFilter).Fields().Any
	assert.NotNil(t, values)
	assert.Empty(t, values)
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name      string
		candidate any
		kind      Kind
		sentinel  error
		field     string
		cause     error
	}{
		{
			name:      "wrong object kind",
			candidate: map[string]any{KeyObject: "flow_task", KeyProperty: "name"},
			kind:      KindWrongObjectKind,
			sentinel:  ErrWrongObjectKind,
			field:     KeyObject,
		},
		{
			name:      "missing object",
			candidate: map[string]any{KeyProperty: "name"},
			kind:      KindWrongObjectKind,
			sentinel:  ErrWrongObjectKind,
			field:     KeyObject,
		},
		{
			name:      "not an object",
			candidate: []any{"flow_run"},
			kind:      KindWrongObjectKind,
			sentinel:  ErrWrongObjectKind,
		},
		{
			name:      "nil candidate",
			candidate: nil,
			kind:      KindWrongObjectKind,
			sentinel:  ErrWrongObjectKind,
		},
		{
			name:      "missing property",
			candidate: map[string]any{KeyObject: ObjectFlowRun},
			kind:      KindMissingDiscriminator,
			sentinel:  ErrMissingDiscriminator,
			field:     KeyProperty,
		},
		{
			name:      "null property",
			candidate: map[string]any{KeyObject: ObjectFlowRun, KeyProperty: nil},
			kind:      KindMissingDiscriminator,
			sentinel:  ErrMissingDiscriminator,
			field:     KeyProperty,
		},
		{
			name:      "unknown property",
			candidate: obj("owner", nil),
			kind:      KindUnknownProperty,
			sentinel:  ErrUnknownProperty,
			field:     KeyProperty,
		},
		{
			name:      "non-string property",
			candidate: map[string]any{KeyObject: ObjectFlowRun, KeyProperty: 7.0},
			kind:      KindUnknownProperty,
			sentinel:  ErrUnknownProperty,
			field:     KeyProperty,
		},
		{
			name:      "name with state field",
			candidate: obj("name", map[string]any{FieldType: map[string]any{}}),
			kind:      KindUnknownField,
			sentinel:  ErrUnknownField,
			field:     FieldType,
		},
		{
			name:      "tag with state field",
			candidate: obj("tag", map[string]any{FieldName: map[string]any{FieldAny: []any{"Running"}}}),
			kind:      KindUnknownField,
			sentinel:  ErrUnknownField,
			field:     FieldName,
		},
		{
			name:      "tag with date field",
			candidate: obj("tag", map[string]any{FieldBefore: "2024-01-01T00:00:00Z"}),
			kind:      KindUnknownField,
			sentinel:  ErrUnknownField,
			field:     FieldBefore,
		},
		{
			name:      "date with string field",
			candidate: obj("start_date", map[string]any{FieldAny: []any{"x"}}),
			kind:      KindUnknownField,
			sentinel:  ErrUnknownField,
			field:     FieldAny,
		},
		{
			name:      "state with nested unknown",
			candidate: obj("state", map[string]any{FieldType: map[string]any{FieldAll: []any{"RUNNING"}}}),
			kind:      KindUnknownField,
			sentinel:  ErrUnknownField,
			field:     "type.all_",
		},
		{
			name:      "name any not a list",
			candidate: obj("name", map[string]any{FieldAny: "etl"}),
			kind:      KindInvalidField,
			sentinel:  ErrInvalidField,
			field:     FieldAny,
			cause:     ErrNotStringList,
		},
		{
			name:      "tag all with a number",
			candidate: obj("tag", map[string]any{FieldAll: []any{"a", 1.0}}),
			kind:      KindInvalidField,
			sentinel:  ErrInvalidField,
			field:     FieldAll,
			cause:     ErrNotStringList,
		},
		{
			name:      "is_null not a bool",
			candidate: obj("end_date", map[string]any{FieldIsNull: "yes"}),
			kind:      KindInvalidField,
			sentinel:  ErrInvalidField,
			field:     FieldIsNull,
			cause:     ErrNotBool,
		},
		{
			name:      "bad timestamp",
			candidate: obj("start_date", map[string]any{FieldBefore: "yesterday"}),
			kind:      KindInvalidField,
			sentinel:  ErrInvalidField,
			field:     FieldBefore,
			cause:     ErrInvalidTimestamp,
		},
		{
			name: "inverted range",
			candidate: obj("start_date", map[string]any{
				FieldAfter:  "2024-03-01T00:00:00Z",
				FieldBefore: "2024-01-01T00:00:00Z",
			}),
			kind:     KindInvalidField,
			sentinel: ErrInvalidField,
			field:    FieldAfter,
			cause:    ErrInvalidRange,
		},
		{
			name:      "unknown state type",
			candidate: obj("state", map[string]any{FieldType: map[string]any{FieldAny: []any{"PAUSED"}}}),
			kind:      KindInvalidField,
			sentinel:  ErrInvalidField,
			field:     "type.any_",
			cause:     ErrUnknownStateType,
		},
		{
			name:      "state type not an object",
			candidate: obj("state", map[string]any{FieldType: []any{"RUNNING"}}),
			kind:      KindInvalidField,
			sentinel:  ErrInvalidField,
			field:     FieldType,
			cause:     ErrNotObject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Validate(tt.candidate)
			require.Error(t, err)
			assert.Nil(t, f)

			assert.ErrorIs(t, err, ErrValidation)
			assert.ErrorIs(t, err, tt.sentinel)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.kind, verr.Kind)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidate_UnknownFieldReportsFamily(t *testing.T) {
	_, err := Validate(obj("name", map[string]any{FieldAll: []any{}, FieldBefore: "x"}))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, FamilyString, verr.Family)
	assert.Equal(t, FieldAll, verr.Field, "first unknown key in sorted order")
	assert.Equal(t, `unknown field "all_" for string filter`, verr.Error())
	assert.Equal(t, "/all_", verr.Pointer())
}

func TestValidate_SameRangeBoundsAreValid(t *testing.T) {
	at := "2024-01-01T00:00:00Z"
	_, err := Validate(obj("start_date", map[string]any{FieldAfter: at, FieldBefore: at}))
	assert.NoError(t, err)
}

func TestParse(t *testing.T) {
	f, err := Parse([]byte(`{"object":"flow_run","property":"tag","all_":["a"]}`))
	require.NoError(t, err)
	assert.Equal(t, PropertyTag, f.Property())
}

func TestParse_DuplicateField(t *testing.T) {
	_, err := Parse([]byte(`{"object":"flow_run","property":"name","property":"tag"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateField)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, KeyProperty, verr.Field)
}

func TestParse_DuplicateNestedField(t *testing.T) {
	_, err := Parse([]byte(`{"object":"flow_run","property":"state","type":{"any_":["RUNNING"],"any_":["FAILED"]}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateField)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "type.any_", verr.Field)
	assert.Equal(t, "/type/any_", verr.Pointer())
}

func TestParse_RepeatedKeysInSeparateObjects(t *testing.T) {
	f, err := Parse([]byte(`{"object":"flow_run","property":"state","type":{"any_":["RUNNING"]},"name":{"any_":["Late"]}}`))
	require.NoError(t, err)
	assert.Equal(t, PropertyState, f.Property())
}

func TestValidationError_PointerEscapesField(t *testing.T) {
	_, err := Validate(obj("name", map[string]any{"a/b~c": true}))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, KindUnknownField, verr.Kind)
	assert.Equal(t, "/a~1b~0c", verr.Pointer())
}

func TestValidate_UnknownStateTypeListsKnownValues(t *testing.T) {
	_, err := Validate(obj("state", map[string]any{FieldType: map[string]any{FieldAny: []any{"PAUSED"}}}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownStateType)
	assert.Contains(t, err.Error(), `"PAUSED"`)
	assert.Contains(t, err.Error(), "SCHEDULED PENDING RUNNING COMPLETED FAILED CANCELLED")
}

func TestValidate_NilVariantPointer(t *testing.T) {
	candidates := []any{(*NameFilter)(nil), (*DateFilter)(nil), (*TagFilter)(nil), (*StateFilter)(nil)}
	for _, c := range candidates {
		var (
			f   FlowRunFilter
			err error
		)
		require.NotPanics(t, func() { f, err = Validate(c) }, "%T", c)
		assert.Nil(t, f)
		assert.ErrorIs(t, err, ErrWrongObjectKind, "%T", c)
	}

	tag := NewTagFilter(TagFields{All: []string{"prod"}})
	f, err := Validate(&tag)
	require.NoError(t, err)
	assert.Equal(t, tag, f)
}

func TestParse_Malformed(t *testing.T) {
	tests := []string{
		`{"object":`,
		`{"object":"flow_run","property":"name"} {}`,
		``,
	}
	for _, input := range tests {
		_, err := Parse([]byte(input))
		assert.ErrorIs(t, err, ErrValidation, input)
	}
}

func TestParse_NonObject(t *testing.T) {
	_, err := Parse([]byte(`"flow_run"`))
	assert.ErrorIs(t, err, ErrWrongObjectKind)
}

func TestValidate_RawJSON(t *testing.T) {
	f, err := Validate(json.RawMessage(`{"object":"flow_run","property":"state","name":{"any_":["Late"]}}`))
	require.NoError(t, err)
	assert.Equal(t, PropertyState, f.Property())
}

func TestValidate_Idempotent(t *testing.T) {
	candidates := []map[string]any{
		obj("name", map[string]any{FieldAny: []any{"a", "b"}}),
		obj("name", map[string]any{FieldAny: []any{}}),
		obj("start_date", map[string]any{FieldAfter: "2024-01-01T00:00:00.5Z", FieldIsNull: false}),
		obj("end_date", nil),
		obj("tag", map[string]any{FieldAll: []any{}, FieldIsNull: true}),
		obj("state", map[string]any{FieldType: map[string]any{}, FieldName: map[string]any{FieldAny: []any{"Late"}}}),
	}
	for _, c := range candidates {
		first, err := Validate(c)
		require.NoError(t, err)

		second, err := Validate(first)
		require.NoError(t, err)
		assert.True(t, Equal(first, second))
		assert.Equal(t, first, second)
	}
}

func TestMustValidate_Panics(t *testing.T) {
	assert.Panics(t, func() { MustValidate(obj("owner", nil)) })
	assert.NotPanics(t, func() { MustValidate(obj("name", nil)) })
}
