package sdkgen

import "github.com/mark3labs/swagger2sdk/internal/spec"

// Resolver looks up component references. Components in the supported subset
// only point at leaf definitions, so one hop is enough.
type Resolver struct {
	params  map[string]*spec.Parameter
	schemas map[string]*spec.Schema
}

func NewResolver(doc *spec.Document) *Resolver {
	r := &Resolver{}
	if doc != nil {
		r.params = doc.ParameterComponents
		r.schemas = doc.SchemaComponents
	}
	return r
}

// Parameter returns p when it is inline, or the component it references.
// ok is false when the reference names a missing component.
func (r *Resolver) Parameter(p *spec.Parameter) (*spec.Parameter, bool) {
	if p == nil || p.Ref == "" {
		return p, true
	}
	target, ok := r.params[p.Ref]
	if !ok || target == nil {
		return nil, false
	}
	return target, true
}

// Schema returns s when it is inline, or the component it references.
// A nil schema resolves to nil.
func (r *Resolver) Schema(s *spec.Schema) (*spec.Schema, bool) {
	if s == nil || s.Ref == "" {
		return s, true
	}
	target, ok := r.schemas[s.Ref]
	if !ok || target == nil {
		return nil, false
	}
	return target, true
}
