// Package sdkgen turns a typed OpenAPI document into the source tree of a
// Python client library: one function per operation, grouped into modules
// that mirror the URL hierarchy, with package-index files at every level.
package sdkgen

import "github.com/mark3labs/swagger2sdk/internal/spec"

// Type is the fixed primitive set emitted signatures are typed with.
type Type int

const (
	TypeUnknown Type = iota
	TypeString
	TypeInteger
	TypeNumber
	TypeBoolean
	TypeArray
	TypeObject
)

var rawTypes = map[string]Type{
	"string":  TypeString,
	"integer": TypeInteger,
	"number":  TypeNumber,
	"boolean": TypeBoolean,
	"array":   TypeArray,
	"object":  TypeObject,
}

// Raw types and formats that denote file content. Multipart carries them as
// a path on disk, so they map to strings.
var (
	binaryTypes   = map[string]bool{"binary": true, "file": true}
	binaryFormats = map[string]bool{"binary": true}
)

// Python returns the annotation used in emitted signatures.
func (t Type) Python() string {
	switch t {
	case TypeString:
		return "str"
	case TypeInteger:
		return "int"
	case TypeNumber:
		return "float"
	case TypeBoolean:
		return "bool"
	case TypeArray:
		return "list"
	case TypeObject:
		return "dict"
	default:
		return "object"
	}
}

func (t Type) String() string {
	if t == TypeUnknown {
		return "unknown"
	}
	return t.Python()
}

// typeOf maps a raw schema to the primitive set. ok is false when the raw
// type has no mapping; the caller reports it.
func typeOf(s *spec.Schema) (Type, bool) {
	if s == nil {
		return TypeUnknown, false
	}
	if t, ok := rawTypes[s.Type]; ok {
		return t, true
	}
	if s.Type == "" {
		switch {
		case len(s.Properties) > 0:
			return TypeObject, true
		case s.Items != nil:
			return TypeArray, true
		}
	}
	return TypeUnknown, false
}

func isBinary(s *spec.Schema) bool {
	if s == nil {
		return false
	}
	return binaryTypes[s.Type] || binaryFormats[s.Format]
}
