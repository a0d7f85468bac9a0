package sdkgen

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mark3labs/swagger2sdk/internal/spec"
)

// ParameterDescriptor is a resolved, typed parameter ready for emission.
type ParameterDescriptor struct {
	// Name is the Python identifier. RawName is the wire name.
	Name        string
	RawName     string
	In          string
	Description string
	Required    bool
	Type        Type
	Enum        []any
	Default     any
	Minimum     *float64
	Maximum     *float64
}

// Equal reports structural equality, which is what deduplication keys on.
func (p ParameterDescriptor) Equal(o ParameterDescriptor) bool {
	return reflect.DeepEqual(p, o)
}

// DocLine renders the docstring entry of the parameter, without indentation.
// The description, when present, is returned as separate lines.
func (p ParameterDescriptor) DocLine() (string, []string) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s : %s", p.Name, p.Type)
	if len(p.Enum) > 0 {
		b.WriteString(" " + enumSet(p.Enum))
	}
	if p.Default != nil {
		fmt.Fprintf(&b, ", default: %s", docValue(p.Default))
	}
	if p.Minimum != nil {
		fmt.Fprintf(&b, ", minimum: %s", docValue(*p.Minimum))
	}
	if p.Maximum != nil {
		fmt.Fprintf(&b, ", maximum: %s", docValue(*p.Maximum))
	}
	return b.String(), descriptionLines(p.Description)
}

// ParameterCompiler resolves and types the raw parameters of one operation.
type ParameterCompiler struct {
	resolver *Resolver
	diags    *Diagnostics
	scope    scope
}

func newParameterCompiler(r *Resolver, diags *Diagnostics, s scope) *ParameterCompiler {
	return &ParameterCompiler{resolver: r, diags: diags, scope: s}
}

// Compile resolves references, drops header and cookie parameters and
// structural duplicates, and types the rest. Order of first appearance is kept.
func (c *ParameterCompiler) Compile(raw []*spec.Parameter) []ParameterDescriptor {
	var out []ParameterDescriptor
	for _, p := range raw {
		if p == nil {
			continue
		}
		resolved, ok := c.resolver.Parameter(p)
		if !ok {
			c.diags.add(c.scope.diag(UnresolvedRef, p.Ref, "parameter component %q not found", p.Ref))
			continue
		}
		if resolved.In != "path" && resolved.In != "query" {
			continue
		}
		desc := c.describe(resolved)
		if containsDescriptor(out, desc) {
			continue
		}
		out = append(out, desc)
	}
	return out
}

func (c *ParameterCompiler) describe(p *spec.Parameter) ParameterDescriptor {
	d := ParameterDescriptor{
		Name:        identifier(p.Name),
		RawName:     p.Name,
		In:          p.In,
		Description: p.Description,
		Required:    p.Required || p.In == "path",
	}
	schema, ok := c.resolver.Schema(p.Schema)
	if !ok {
		c.diags.add(c.scope.diag(UnresolvedRef, p.Name, "schema component %q not found", p.Schema.Ref))
	}
	t, known := typeOf(schema)
	if !known && ok {
		raw := ""
		if schema != nil {
			raw = schema.Type
		}
		c.diags.add(c.scope.diag(UnknownType, p.Name, "no mapping for type %q", raw))
	}
	d.Type = t
	if schema != nil {
		d.Enum = schema.Enum
		d.Default = schema.Default
		d.Minimum = schema.Minimum
		d.Maximum = schema.Maximum
		if d.Description == "" {
			d.Description = schema.Description
		}
	}
	return d
}

func containsDescriptor(list []ParameterDescriptor, d ParameterDescriptor) bool {
	for _, existing := range list {
		if existing.Equal(d) {
			return true
		}
	}
	return false
}

// mergeParameters overlays operation-level parameters on path-level ones.
// An operation parameter with the same location and wire name replaces the
// shared one in place.
func mergeParameters(shared, own []ParameterDescriptor) []ParameterDescriptor {
	out := append([]ParameterDescriptor(nil), shared...)
	for _, p := range own {
		replaced := false
		for i := range out {
			if out[i].In == p.In && out[i].RawName == p.RawName {
				out[i] = p
				replaced = true
				break
			}
		}
		if !replaced && !containsDescriptor(out, p) {
			out = append(out, p)
		}
	}
	return out
}

var pyKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true, "assert": true,
	"async": true, "await": true, "break": true, "class": true, "continue": true,
	"def": true, "del": true, "elif": true, "else": true, "except": true, "finally": true,
	"for": true, "from": true, "global": true, "if": true, "import": true, "in": true,
	"is": true, "lambda": true, "nonlocal": true, "not": true, "or": true, "pass": true,
	"raise": true, "return": true, "try": true, "while": true, "with": true, "yield": true,
}

var identifierReplacer = strings.NewReplacer(" ", "_", "-", "_", ".", "_")

// identifier turns a wire name into a Python identifier.
func identifier(name string) string {
	id := identifierReplacer.Replace(name)
	if id != "" && id[0] >= '0' && id[0] <= '9' {
		id = "_" + id
	}
	if pyKeywords[id] {
		id += "_"
	}
	return id
}

// rewriteTemplate renames URI placeholders to their sanitized identifiers.
func rewriteTemplate(path string) string {
	segs := strings.Split(path, "/")
	for i, seg := range segs {
		if isPathVariable(seg) {
			segs[i] = "{" + identifier(seg[1:len(seg)-1]) + "}"
		}
	}
	return strings.Join(segs, "/")
}
