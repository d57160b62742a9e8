package fhirpath

import (
	"encoding/json"
	"fmt"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

// Collection is an alias for types.Collection for easier external use.
type Collection = types.Collection

// Value is an alias for types.Value for easier external use.
type Value = types.Value

// Resource is any Go value that identifies itself as a FHIR resource.
type Resource interface {
	GetResourceType() string
}

// EvaluateResource evaluates an expression against a Go struct by
// serializing it to JSON first. Cache the JSON for repeated use.
func EvaluateResource(resource Resource, expr string) (Collection, error) {
	jsonBytes, err := json.Marshal(resource)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return Evaluate(jsonBytes, expr)
}

// EvaluateResourceCached is EvaluateResource through the default
// expression cache.
func EvaluateResourceCached(resource Resource, expr string) (Collection, error) {
	jsonBytes, err := json.Marshal(resource)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return EvaluateCached(jsonBytes, expr)
}

// ResourceJSON pairs a resource with its serialized JSON for
// efficient repeated evaluation.
type ResourceJSON struct {
	resource Resource
	json     []byte
}

// NewResourceJSON serializes a resource once for repeated evaluation.
func NewResourceJSON(resource Resource) (*ResourceJSON, error) {
	jsonBytes, err := json.Marshal(resource)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return &ResourceJSON{resource: resource, json: jsonBytes}, nil
}

// Evaluate runs an expression against the pre-serialized resource.
func (r *ResourceJSON) Evaluate(expr string) (Collection, error) {
	return EvaluateCached(r.json, expr)
}

// Resource returns the wrapped resource.
func (r *ResourceJSON) Resource() Resource {
	return r.resource
}

// JSON returns the serialized form.
func (r *ResourceJSON) JSON() []byte {
	return r.json
}
