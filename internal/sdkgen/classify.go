package sdkgen

import (
	"sort"
	"strings"

	"github.com/mark3labs/swagger2sdk/internal/spec"
)

// CompiledOperation is one emittable operation with everything resolved.
type CompiledOperation struct {
	ID      string
	Method  spec.HttpMethod
	Path    string
	Summary string
	Tags    []string
	// URI is the request template with sanitized placeholders.
	URI         string
	PathParams  []ParameterDescriptor
	QueryParams []ParameterDescriptor
	JSONBody    bool
	Multipart   []MultipartField
	// HasMultipart is set even when the multipart schema has no properties.
	HasMultipart bool
	// Rule is set when the operation is inside an active deprecation window.
	// A renamed operation whose old id is still declared carries none.
	Rule *DeprecationRule
	role ruleRole
}

// Endpoint is the classified form of one path item.
type Endpoint struct {
	Path       string
	PathParams []ParameterDescriptor
	Operations []CompiledOperation
	// Skipped is set when every present operation is deprecated and none is
	// kept alive by a rule.
	Skipped bool
}

// Classifier decides which operations of a path item are emitted.
type Classifier struct {
	resolver *Resolver
	literals Literals
	rules    *Rules
	version  string
	diags    *Diagnostics
	// declared holds every operationId present in the document.
	declared map[string]bool
}

func NewClassifier(r *Resolver, lit Literals, rules *Rules, currentVersion string, diags *Diagnostics) *Classifier {
	return &Classifier{resolver: r, literals: lit, rules: rules, version: currentVersion, diags: diags}
}

// DeclareOperations records the operation ids of doc. A rule whose old id is
// still declared gets no shim on its new operation, since the old operation
// is emitted under that name already.
func (c *Classifier) DeclareOperations(doc *spec.Document) {
	c.declared = map[string]bool{}
	for _, e := range doc.Paths {
		if e.Item == nil {
			continue
		}
		for _, m := range spec.Methods {
			if op := e.Item.Operation(m); op != nil && op.OperationID != "" {
				c.declared[op.OperationID] = true
			}
		}
	}
}

// Classify resolves the shared path parameters and compiles every emittable
// operation in GET, POST, PUT, DELETE order.
func (c *Classifier) Classify(path string, item *spec.PathItem) Endpoint {
	ep := Endpoint{Path: path}
	if item == nil {
		return ep
	}
	ep.PathParams = newParameterCompiler(c.resolver, nil, scope{path: path}).Compile(item.Parameters)

	present, deprecated, rescued := 0, 0, 0
	for _, m := range spec.Methods {
		op := item.Operation(m)
		if op == nil {
			continue
		}
		present++
		rule, role := c.rules.lookup(op.OperationID)
		active := rule != nil && ShouldEmitShim(*rule, c.version)
		if op.Deprecated {
			deprecated++
			if active {
				rescued++
			}
		}
		if !c.emittable(path, op, rule, role, active) {
			continue
		}
		compiled, ok := c.compile(path, m, op, item.Parameters)
		if !ok {
			continue
		}
		if active && !(role == roleNew && c.declared[rule.OldOperationID]) {
			compiled.Rule = rule
			compiled.role = role
		}
		ep.Operations = append(ep.Operations, compiled)
	}
	ep.Skipped = present > 0 && deprecated == present && rescued == 0
	if ep.Skipped {
		ep.Operations = nil
	}
	return ep
}

func (c *Classifier) emittable(path string, op *spec.Operation, rule *DeprecationRule, role ruleRole, active bool) bool {
	if rule != nil && role == roleOld && !active {
		c.diags.add(scope{path: path, operation: op.OperationID}.diag(ShimExpired, "",
			"renamed to %s, removed in %s", rule.NewOperationID, rule.VersionRemoved))
		return false
	}
	return !op.Deprecated || active
}

// compile builds one operation. Shared path-item parameters are compiled in
// the operation's scope so their diagnostics name it.
func (c *Classifier) compile(path string, m spec.HttpMethod, op *spec.Operation, shared []*spec.Parameter) (CompiledOperation, bool) {
	s := scope{path: path, operation: op.OperationID}
	if strings.TrimSpace(op.OperationID) == "" {
		c.diags.add(s.diag(MissingOperationID, "", "%s operation has no operationId", strings.ToUpper(string(m))))
		return CompiledOperation{}, false
	}

	pc := newParameterCompiler(c.resolver, c.diags, s)
	params := mergeParameters(pc.Compile(shared), pc.Compile(op.Parameters))

	out := CompiledOperation{
		ID:      op.OperationID,
		Method:  m,
		Path:    path,
		Summary: op.Summary,
		Tags:    op.Tags,
		URI:     rewriteTemplate(path),
	}
	for _, p := range params {
		if p.In == "path" {
			out.PathParams = append(out.PathParams, p)
		} else {
			out.QueryParams = append(out.QueryParams, p)
		}
	}
	out.PathParams = c.completePathParams(s, path, out.PathParams)

	body := newBodyCompiler(c.resolver, c.literals, c.diags, s)
	out.JSONBody = body.HasJSON(op.RequestBody)
	out.HasMultipart = body.HasMultipart(op.RequestBody)
	out.Multipart = body.MultipartFields(op.RequestBody)
	return out, true
}

// completePathParams orders path parameters by their position in the URI
// template and adds string parameters for undeclared placeholders.
func (c *Classifier) completePathParams(s scope, path string, params []ParameterDescriptor) []ParameterDescriptor {
	vars := pathVariables(path)
	position := make(map[string]int, len(vars))
	for i, v := range vars {
		if _, seen := position[v]; !seen {
			position[v] = i
		}
	}
	declared := map[string]bool{}
	for _, p := range params {
		declared[p.RawName] = true
	}
	for _, v := range vars {
		if declared[v] {
			continue
		}
		declared[v] = true
		c.diags.add(s.diag(UndeclaredPathParam, v, "placeholder has no parameter definition"))
		params = append(params, ParameterDescriptor{
			Name:     identifier(v),
			RawName:  v,
			In:       "path",
			Required: true,
			Type:     TypeString,
		})
	}
	sort.SliceStable(params, func(i, j int) bool {
		pi, iok := position[params[i].RawName]
		pj, jok := position[params[j].RawName]
		switch {
		case iok && jok:
			return pi < pj
		case iok != jok:
			return iok
		}
		return false
	})
	return params
}
