package types

// Namespace identifies the type system a type name belongs to.
type Namespace string

const (
	// NamespaceSystem holds the FHIRPath primitive types.
	NamespaceSystem Namespace = "System"
	// NamespaceFHIR holds FHIR resource and complex types.
	NamespaceFHIR Namespace = "FHIR"
)

// TypeInfo is a first-class reification of a type name, produced by
// type() and by the operands of is/as/ofType.
type TypeInfo struct {
	Namespace Namespace
	Name      string
}

// SystemType builds a TypeInfo in the System namespace.
func SystemType(name string) TypeInfo {
	return TypeInfo{Namespace: NamespaceSystem, Name: name}
}

// FHIRType builds a TypeInfo in the FHIR namespace.
func FHIRType(name string) TypeInfo {
	return TypeInfo{Namespace: NamespaceFHIR, Name: name}
}

// Type returns "TypeInfo".
func (t TypeInfo) Type() string {
	return "TypeInfo"
}

// TypeInfo returns the type of a TypeInfo, which is itself a System type.
func (t TypeInfo) TypeInfo() TypeInfo {
	return SystemType("TypeInfo")
}

// Equal returns true if other names the same type in the same namespace.
func (t TypeInfo) Equal(other Value) bool {
	if o, ok := other.(TypeInfo); ok {
		return t.Namespace == o.Namespace && t.Name == o.Name
	}
	return false
}

// Equivalent is the same as Equal for type infos.
func (t TypeInfo) Equivalent(other Value) bool {
	return t.Equal(other)
}

// String returns the qualified name, e.g. "System.Integer".
func (t TypeInfo) String() string {
	if t.Namespace == "" {
		return t.Name
	}
	return string(t.Namespace) + "." + t.Name
}

// IsEmpty returns false for type infos.
func (t TypeInfo) IsEmpty() bool {
	return false
}

// Property gives navigation access to the namespace and name members.
func (t TypeInfo) Property(name string) (Value, bool) {
	switch name {
	case "namespace":
		return NewString(string(t.Namespace)), true
	case "name":
		return NewString(t.Name), true
	}
	return nil, false
}

// ParseTypeSpecifier splits a possibly-qualified type name. Unqualified
// names resolve to System when they match a primitive, FHIR otherwise.
func ParseTypeSpecifier(name string) TypeInfo {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			ns := name[:i]
			rest := name[i+1:]
			if ns == string(NamespaceSystem) {
				return SystemType(rest)
			}
			return FHIRType(rest)
		}
	}
	if isSystemTypeName(name) {
		return SystemType(name)
	}
	return FHIRType(name)
}

// isSystemTypeName reports whether name is a FHIRPath primitive type.
func isSystemTypeName(name string) bool {
	switch name {
	case "Boolean", "Integer", "Decimal", "String", "Date", "DateTime", "Time", "Quantity", "TypeInfo":
		return true
	}
	return false
}
