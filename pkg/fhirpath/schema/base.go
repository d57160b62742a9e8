package schema

import (
	"context"
	"sort"
	"strings"
)

// baseProvider is the embedded provider: static tables covering the
// base R4 resource hierarchy, the common complex types, and the choice
// elements the engine is most often asked about. It lets the engine
// run standalone; a package-manager-backed Provider replaces it when
// full definitions are available.
type baseProvider struct{}

// Base returns the embedded base-R4 provider. All answers are map
// lookups; the returned provider is safe for concurrent use.
func Base() Provider {
	return baseProvider{}
}

// resourceParents maps each resource type to its base type.
var resourceParents = map[string]string{
	"Resource":       "",
	"DomainResource": "Resource",
	"Bundle":         "Resource",
	"Binary":         "Resource",
	"Parameters":     "Resource",

	"Patient":              "DomainResource",
	"Practitioner":         "DomainResource",
	"PractitionerRole":     "DomainResource",
	"Organization":         "DomainResource",
	"Location":             "DomainResource",
	"Encounter":            "DomainResource",
	"EpisodeOfCare":        "DomainResource",
	"Observation":          "DomainResource",
	"Condition":            "DomainResource",
	"Procedure":            "DomainResource",
	"DiagnosticReport":     "DomainResource",
	"Specimen":             "DomainResource",
	"Medication":           "DomainResource",
	"MedicationRequest":    "DomainResource",
	"MedicationStatement":  "DomainResource",
	"AllergyIntolerance":   "DomainResource",
	"Immunization":         "DomainResource",
	"CarePlan":             "DomainResource",
	"CareTeam":             "DomainResource",
	"Goal":                 "DomainResource",
	"ServiceRequest":       "DomainResource",
	"Claim":                "DomainResource",
	"Coverage":             "DomainResource",
	"Device":               "DomainResource",
	"Composition":          "DomainResource",
	"DocumentReference":    "DomainResource",
	"Questionnaire":        "DomainResource",
	"QuestionnaireResponse": "DomainResource",
	"ValueSet":             "DomainResource",
	"CodeSystem":           "DomainResource",
	"StructureDefinition":  "DomainResource",
	"OperationOutcome":     "DomainResource",
	"Provenance":           "DomainResource",
	"RelatedPerson":        "DomainResource",
	"Group":                "DomainResource",
	"List":                 "DomainResource",
	"Task":                 "DomainResource",
	"Appointment":          "DomainResource",
	"Schedule":             "DomainResource",
	"Slot":                 "DomainResource",
}

// primitiveTypes holds the FHIR primitive type names.
var primitiveTypes = map[string]bool{
	"boolean": true, "integer": true, "string": true, "decimal": true,
	"uri": true, "url": true, "canonical": true, "base64Binary": true,
	"instant": true, "date": true, "dateTime": true, "time": true,
	"code": true, "oid": true, "id": true, "markdown": true,
	"unsignedInt": true, "positiveInt": true, "uuid": true, "xhtml": true,
}

// complexTypes holds the common complex datatype names.
var complexTypes = map[string]bool{
	"Quantity": true, "SimpleQuantity": true, "Money": true, "Duration": true,
	"Age": true, "Count": true, "Distance": true, "Range": true, "Ratio": true,
	"Period": true, "Coding": true, "CodeableConcept": true, "Identifier": true,
	"HumanName": true, "Address": true, "ContactPoint": true, "Attachment": true,
	"Annotation": true, "Signature": true, "SampledData": true, "Timing": true,
	"Reference": true, "Meta": true, "Narrative": true, "Extension": true,
	"Dosage": true, "ContactDetail": true, "UsageContext": true,
	"BackboneElement": true, "Element": true,
}

// choiceSuffixes lists the concrete type suffixes a choice element may
// take, in the order navigation probes them.
var choiceSuffixes = []string{
	"String", "Integer", "Boolean", "Decimal", "DateTime", "Date", "Time",
	"Instant", "Uri", "Code", "Quantity", "CodeableConcept", "Coding",
	"Period", "Range", "Ratio", "Reference", "Attachment", "SampledData",
	"Age", "Duration", "Annotation", "Identifier", "Signature", "Timing",
	"Markdown", "Oid", "PositiveInt", "UnsignedInt", "Base64Binary", "Id",
	"Canonical", "Url", "Uuid", "ContactPoint", "HumanName", "Address",
	"Money", "Dosage", "Meta",
}

// choiceElements records the choice properties of the base resources,
// keyed by "Type.property".
var choiceElements = map[string]bool{
	"Observation.value":            true,
	"Observation.effective":        true,
	"Observation.component.value":  true,
	"Condition.onset":              true,
	"Condition.abatement":          true,
	"Patient.deceased":             true,
	"Patient.multipleBirth":        true,
	"MedicationRequest.medication": true,
	"MedicationRequest.reported":   true,
	"MedicationStatement.medication": true,
	"MedicationStatement.effective":  true,
	"Procedure.performed":          true,
	"Immunization.occurrence":      true,
	"AllergyIntolerance.onset":     true,
	"DiagnosticReport.effective":   true,
	"Specimen.collection.collected": true,
	"CarePlan.activity.detail.scheduled": true,
	"Goal.start":                   true,
	"Goal.target.detail":           true,
	"Goal.target.due":              true,
	"ServiceRequest.occurrence":    true,
	"ServiceRequest.quantity":      true,
	"Extension.value":              true,
	"Questionnaire.item.enableWhen.answer": true,
	"QuestionnaireResponse.item.answer.value": true,
	"Timing.repeat.bounds":         true,
	"Dosage.asNeeded":              true,
	"Dosage.doseAndRate.dose":      true,
	"Dosage.doseAndRate.rate":      true,
	"Annotation.author":            true,
	"Task.input.value":             true,
	"Task.output.value":            true,
}

// suffixTypes maps a choice suffix to its element type name.
var suffixTypes = map[string]string{
	"String": "string", "Integer": "integer", "Boolean": "boolean",
	"Decimal": "decimal", "DateTime": "dateTime", "Date": "date",
	"Time": "time", "Instant": "instant", "Uri": "uri", "Code": "code",
	"Markdown": "markdown", "Oid": "oid", "Id": "id", "Canonical": "canonical",
	"Url": "url", "Uuid": "uuid", "PositiveInt": "positiveInt",
	"UnsignedInt": "unsignedInt", "Base64Binary": "base64Binary",
}

func (baseProvider) HasResourceType(_ context.Context, name string) (bool, error) {
	_, ok := resourceParents[name]
	return ok, nil
}

func (baseProvider) IsPrimitiveType(_ context.Context, name string) (bool, error) {
	return primitiveTypes[name], nil
}

func (baseProvider) IsComplexType(_ context.Context, name string) (bool, error) {
	return complexTypes[name], nil
}

func (baseProvider) PropertyInfo(_ context.Context, typeName, property string) (PropertyInfo, error) {
	if choiceElements[typeName+"."+property] {
		return PropertyInfo{Exists: true, IsChoice: true}, nil
	}
	// The base tables do not enumerate every element of every type, so
	// unknown direct properties are reported as absent rather than
	// invalid; the navigator falls back to instance-driven access.
	return PropertyInfo{}, nil
}

func (baseProvider) ResolveChoice(_ context.Context, typeName, path, suffix string) (ChoiceResolution, error) {
	if !choiceElements[typeName+"."+path] {
		return ChoiceResolution{}, nil
	}
	elementType := suffixTypes[suffix]
	if elementType == "" {
		if complexTypes[suffix] {
			elementType = suffix
		} else {
			return ChoiceResolution{}, nil
		}
	}
	return ChoiceResolution{
		Resolved: true,
		Property: path + suffix,
		Type:     elementType,
	}, nil
}

func (baseProvider) IsSubtypeOf(_ context.Context, child, parent string) (bool, error) {
	if child == parent {
		return true, nil
	}
	// FHIR primitive codes relate to their System counterparts only by
	// name; the hierarchy here is the resource hierarchy.
	for cur := child; cur != ""; {
		next, ok := resourceParents[cur]
		if !ok {
			break
		}
		if next == parent {
			return true, nil
		}
		cur = next
	}
	if parent == "Element" && (complexTypes[child] || primitiveTypes[child]) {
		return true, nil
	}
	return false, nil
}

func (baseProvider) ResourceTypes(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(resourceParents))
	for name := range resourceParents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ChoiceSuffixes returns the probe order for choice-type resolution.
func ChoiceSuffixes() []string {
	return choiceSuffixes
}

// SuffixFromProperty splits a concrete choice property into its base
// path given the declared prefix, e.g. ("value", "valueString") ->
// "String".
func SuffixFromProperty(prefix, property string) (string, bool) {
	if !strings.HasPrefix(property, prefix) || len(property) == len(prefix) {
		return "", false
	}
	suffix := property[len(prefix):]
	if suffix[0] < 'A' || suffix[0] > 'Z' {
		return "", false
	}
	return suffix, true
}
