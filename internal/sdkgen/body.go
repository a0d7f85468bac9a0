package sdkgen

import (
	"fmt"

	"github.com/mark3labs/swagger2sdk/internal/spec"
)

// MultipartField is one named part of a multipart form body. Children is only
// set for object fields.
type MultipartField struct {
	Name        string
	Type        Type
	Description string
	Default     any
	Enum        []any
	// FilePath marks fields whose argument is a path to upload.
	FilePath bool
	Children []MultipartField
}

// DocLines renders the field and its children, indented by depth levels.
func (f MultipartField) DocLines(depth int) []string {
	pad := indent(depth)
	head := fmt.Sprintf("%s%s : %s", pad, f.Name, f.Type)
	if len(f.Enum) > 0 {
		head += " " + enumSet(f.Enum)
	}
	if f.Default != nil {
		head += ", default: " + docValue(f.Default)
	}
	lines := []string{head}
	desc := f.Description
	if f.FilePath {
		desc = joinSentences("path to the file to upload.", desc)
	}
	for _, l := range descriptionLines(desc) {
		lines = append(lines, indent(depth+1)+l)
	}
	for _, child := range f.Children {
		lines = append(lines, child.DocLines(depth+1)...)
	}
	return lines
}

// BodyCompiler inspects request bodies.
type BodyCompiler struct {
	resolver *Resolver
	literals Literals
	diags    *Diagnostics
	scope    scope
}

func newBodyCompiler(r *Resolver, lit Literals, diags *Diagnostics, s scope) *BodyCompiler {
	return &BodyCompiler{resolver: r, literals: lit, diags: diags, scope: s}
}

// HasJSON reports whether the body declares an application/json media type.
func (c *BodyCompiler) HasJSON(rb *spec.RequestBody) bool {
	return rb != nil && rb.JSON != nil
}

// HasMultipart reports whether the body declares multipart/form-data.
func (c *BodyCompiler) HasMultipart(rb *spec.RequestBody) bool {
	return rb != nil && rb.Multipart != nil
}

// MultipartFields describes the named parts of the multipart schema, sorted by
// name.
func (c *BodyCompiler) MultipartFields(rb *spec.RequestBody) []MultipartField {
	if !c.HasMultipart(rb) {
		return nil
	}
	schema, ok := c.resolver.Schema(rb.Multipart)
	if !ok {
		c.diags.add(c.scope.diag(UnresolvedRef, "", "multipart schema %q not found", rb.Multipart.Ref))
		return nil
	}
	return c.fields(schema, "")
}

func (c *BodyCompiler) fields(schema *spec.Schema, prefix string) []MultipartField {
	if schema == nil || len(schema.Properties) == 0 {
		return nil
	}
	out := make([]MultipartField, 0, len(schema.Properties))
	for _, prop := range schema.Properties {
		out = append(out, c.field(prop, prefix))
	}
	return out
}

func (c *BodyCompiler) field(prop spec.Property, prefix string) MultipartField {
	f := MultipartField{Name: prop.Name}
	qualified := prefix + prop.Name
	schema, ok := c.resolver.Schema(prop.Schema)
	if !ok {
		c.diags.add(c.scope.diag(UnresolvedRef, qualified, "schema component %q not found", prop.Schema.Ref))
	}
	if schema != nil {
		f.Description = schema.Description
		f.Default = schema.Default
		f.Enum = schema.Enum
	}

	switch {
	case prefix == "" && c.literals.isFileField(prop.Name), isBinary(schema):
		f.Type = TypeString
		f.FilePath = true
		f.Enum = nil
		return f
	}

	t, known := typeOf(schema)
	if !known && ok {
		raw := ""
		if schema != nil {
			raw = schema.Type
		}
		c.diags.add(c.scope.diag(UnknownType, qualified, "no mapping for type %q", raw))
	}
	f.Type = t
	if t == TypeObject {
		f.Children = c.fields(schema, qualified+".")
	}
	return f
}
