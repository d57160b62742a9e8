package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/buger/jsonparser"
)

// ObjectValue represents a FHIR resource or complex type as an opaque
// JSON object. Navigation is lazy: fields are parsed on first access
// and cached. The underlying bytes are shared, never copied.
type ObjectValue struct {
	data     []byte
	fhirType string           // declared element type, set by the navigator
	fields   map[string]Value // cache of accessed fields
}

// NewObjectValue creates a new ObjectValue from JSON bytes.
func NewObjectValue(data []byte) *ObjectValue {
	return &ObjectValue{
		data:   data,
		fields: make(map[string]Value),
	}
}

// NewResourceValue creates an ObjectValue for a resource root. The
// object must carry a string resourceType property.
func NewResourceValue(data []byte) (*ObjectValue, error) {
	rt, err := jsonparser.GetString(data, "resourceType")
	if err != nil || rt == "" {
		return nil, fmt.Errorf("not a FHIR resource: missing resourceType")
	}
	o := NewObjectValue(data)
	o.fhirType = rt
	return o, nil
}

// WithFHIRType returns the object annotated with its schema-declared
// element type. A resourceType property always wins.
func (o *ObjectValue) WithFHIRType(name string) *ObjectValue {
	if o.fhirType == name || name == "" {
		return o
	}
	return &ObjectValue{data: o.data, fhirType: name, fields: o.fields}
}

// FHIR type constants for structural inference.
const (
	typeQuantity        = "Quantity"
	typeCoding          = "Coding"
	typeCodeableConcept = "CodeableConcept"
	typeReference       = "Reference"
	typePeriod          = "Period"
	typeIdentifier      = "Identifier"
	typeRange           = "Range"
	typeRatio           = "Ratio"
	typeAttachment      = "Attachment"
	typeHumanName       = "HumanName"
	typeAddress         = "Address"
	typeContactPoint    = "ContactPoint"
	typeAnnotation      = "Annotation"
	typeObject          = "Object"
)

// Type returns the FHIR type of this object: the resourceType when
// present, the navigator-declared type, or a structural guess.
func (o *ObjectValue) Type() string {
	if rt, err := jsonparser.GetString(o.data, "resourceType"); err == nil {
		return rt
	}
	if o.fhirType != "" {
		return o.fhirType
	}
	return o.inferType()
}

// TypeInfo returns the FHIR-namespace type of the object.
func (o *ObjectValue) TypeInfo() TypeInfo {
	return FHIRType(o.Type())
}

// ResourceType returns the resourceType property and whether this
// object is a resource root.
func (o *ObjectValue) ResourceType() (string, bool) {
	rt, err := jsonparser.GetString(o.data, "resourceType")
	return rt, err == nil && rt != ""
}

// inferType attempts to identify common FHIR complex types from shape.
func (o *ObjectValue) inferType() string {
	if o.hasField("value") && (o.hasField("unit") || o.hasField("code") || o.hasField("system")) {
		return typeQuantity
	}
	if o.hasField("system") && o.hasField("code") && !o.hasField("value") {
		return typeCoding
	}
	if t := o.inferComplexType(); t != "" {
		return t
	}
	return typeObject
}

func (o *ObjectValue) inferComplexType() string {
	switch {
	case o.hasArrayField("coding"):
		return typeCodeableConcept
	case o.hasField("reference"):
		return typeReference
	case o.hasField("start") || o.hasField("end"):
		return typePeriod
	case o.hasField("system") && o.hasStringField("value"):
		return typeIdentifier
	case o.hasField("low") || o.hasField("high"):
		return typeRange
	case o.hasField("numerator") || o.hasField("denominator"):
		return typeRatio
	case o.hasField("contentType"):
		return typeAttachment
	case o.hasField("family") || o.hasArrayField("given"):
		return typeHumanName
	case o.hasField("city") || o.hasField("postalCode"):
		return typeAddress
	case o.hasField("system") && o.hasField("use"):
		return typeContactPoint
	case o.hasField("text") && (o.hasField("time") || o.hasField("authorReference") || o.hasField("authorString")):
		return typeAnnotation
	}
	return ""
}

func (o *ObjectValue) hasField(name string) bool {
	_, _, _, err := jsonparser.Get(o.data, name)
	return err == nil
}

func (o *ObjectValue) hasArrayField(name string) bool {
	_, dataType, _, err := jsonparser.Get(o.data, name)
	return err == nil && dataType == jsonparser.Array
}

func (o *ObjectValue) hasStringField(name string) bool {
	_, dataType, _, err := jsonparser.Get(o.data, name)
	return err == nil && dataType == jsonparser.String
}

// Equal returns true if the JSON data is byte-identical.
func (o *ObjectValue) Equal(other Value) bool {
	if ov, ok := other.(*ObjectValue); ok {
		return bytes.Equal(o.data, ov.data)
	}
	return false
}

// Equivalent is the same as Equal for objects.
func (o *ObjectValue) Equivalent(other Value) bool {
	return o.Equal(other)
}

// String returns the JSON representation.
func (o *ObjectValue) String() string {
	return string(o.data)
}

// IsEmpty returns false for object values.
func (o *ObjectValue) IsEmpty() bool {
	return false
}

// Data returns the raw JSON bytes.
func (o *ObjectValue) Data() []byte {
	return o.data
}

// Get retrieves a field value, caching the result. Arrays come back as
// a Collection.
func (o *ObjectValue) Get(field string) (Value, bool) {
	if v, ok := o.fields[field]; ok {
		return v, true
	}
	value, dataType, _, err := jsonparser.Get(o.data, field)
	if err != nil {
		return nil, false
	}
	var v Value
	if dataType == jsonparser.Array {
		v = jsonArrayToCollection(value)
	} else {
		v = jsonValueToFHIRValue(value, dataType)
	}
	if v == nil {
		return nil, false
	}
	o.fields[field] = v
	return v, true
}

// GetCollection retrieves a field as a Collection: arrays expand to
// all elements, scalars become singletons, absent fields are empty.
func (o *ObjectValue) GetCollection(field string) Collection {
	v, ok := o.Get(field)
	if !ok {
		return Collection{}
	}
	if col, isCol := v.(Collection); isCol {
		return col
	}
	return Collection{v}
}

// Has reports whether the field is present in the instance.
func (o *ObjectValue) Has(field string) bool {
	return o.hasField(field)
}

// Keys returns all field names in document order.
func (o *ObjectValue) Keys() []string {
	var keys []string
	//nolint:errcheck // ObjectEach only errors on non-objects
	jsonparser.ObjectEach(o.data, func(key []byte, _ []byte, _ jsonparser.ValueType, _ int) error {
		keys = append(keys, string(key))
		return nil
	})
	return keys
}

// Children returns all immediate child values, skipping primitive
// element companions (underscore-prefixed keys).
func (o *ObjectValue) Children() Collection {
	var result Collection
	//nolint:errcheck // ObjectEach only errors on non-objects
	jsonparser.ObjectEach(o.data, func(key []byte, value []byte, dataType jsonparser.ValueType, _ int) error {
		name := string(key)
		if name == "resourceType" || strings.HasPrefix(name, "_") {
			return nil
		}
		if dataType == jsonparser.Array {
			result = append(result, jsonArrayToCollection(value)...)
		} else if v := jsonValueToFHIRValue(value, dataType); v != nil {
			result = append(result, v)
		}
		return nil
	})
	return result
}

// JSONToCollection parses top-level JSON into a collection: an object
// becomes one ObjectValue, an array becomes its elements, a scalar a
// singleton.
func JSONToCollection(data []byte) (Collection, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Collection{}, fmt.Errorf("empty JSON input")
	}
	switch trimmed[0] {
	case '{':
		return Collection{NewObjectValue(trimmed)}, nil
	case '[':
		return jsonArrayToCollection(trimmed), nil
	}
	var probe interface{}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("invalid JSON input: %w", err)
	}
	value, dataType, _, err := jsonparser.Get(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON input: %w", err)
	}
	return Singleton(jsonValueToFHIRValue(value, dataType)), nil
}

// jsonValueToFHIRValue converts a JSON scalar or object to a Value.
func jsonValueToFHIRValue(data []byte, dataType jsonparser.ValueType) Value {
	switch dataType {
	case jsonparser.String:
		s, err := jsonparser.ParseString(data)
		if err != nil {
			s = string(data)
		}
		return NewString(s)

	case jsonparser.Number:
		v, err := ParseDecimalOrInteger(string(data))
		if err != nil {
			return nil
		}
		return v

	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(data)
		if err != nil {
			return nil
		}
		return NewBoolean(b)

	case jsonparser.Object:
		return NewObjectValue(data)

	case jsonparser.Array:
		return jsonArrayToCollection(data)
	}
	return nil
}

// jsonArrayToCollection converts a JSON array to a flat Collection.
func jsonArrayToCollection(data []byte) Collection {
	var result Collection
	//nolint:errcheck // ArrayEach only errors on non-arrays
	jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		switch dataType {
		case jsonparser.Array:
			result = append(result, jsonArrayToCollection(value)...)
		default:
			if v := jsonValueToFHIRValue(value, dataType); v != nil {
				result = append(result, v)
			}
		}
	})
	return result
}
