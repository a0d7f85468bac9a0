package sdkgen

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/cbroglie/mustache"
	"github.com/mark3labs/swagger2sdk/internal/spec"
)

// BodyKind selects how a function sends its request body.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyJSON
	BodyMultipart
)

// Shim carries the decorator arguments of a deprecated function.
type Shim struct {
	Introduced  string
	Removed     string
	Current     string
	Replacement string
}

// Function is one Python function to render. An operation yields one or more.
type Function struct {
	Name        string
	Method      spec.HttpMethod
	URI         string
	DocURL      string
	Summary     string
	PathParams  []ParameterDescriptor
	QueryParams []ParameterDescriptor
	Body        BodyKind
	Multipart   []MultipartField
	Deprecation *Shim
}

// EmittedFunction is rendered Python source for a single function.
type EmittedFunction struct {
	Name       string
	Source     string
	Deprecated bool
}

// EmitterConfig configures an Emitter.
type EmitterConfig struct {
	Package        string
	Title          string
	CurrentVersion string
	Runtime        Runtime
	DocBaseURL     string
}

// Emitter renders functions, module files and package indexes.
type Emitter struct {
	cfg      EmitterConfig
	header   *mustache.Template
	imports  *mustache.Template
	function *mustache.Template
	index    *mustache.Template
}

func NewEmitter(cfg EmitterConfig) (*Emitter, error) {
	if cfg.Package == "" {
		return nil, fmt.Errorf("emitter: package name is required")
	}
	e := &Emitter{cfg: cfg}
	for _, t := range []struct {
		dst  **mustache.Template
		name string
		src  string
	}{
		{&e.header, "header", moduleHeaderTemplate},
		{&e.imports, "imports", moduleImportsTemplate},
		{&e.function, "function", functionTemplate},
		{&e.index, "index", indexTemplate},
	} {
		tmpl, err := mustache.ParseString(t.src)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", t.name, err)
		}
		*t.dst = tmpl
	}
	return e, nil
}

// Functions expands a compiled operation into the functions it is emitted as.
// An operation with both JSON and multipart bodies yields a second function
// suffixed "File". An operation carrying the replacement name of an active
// rule also yields deprecated copies under the retired name.
func (e *Emitter) Functions(op CompiledOperation) []Function {
	base := Function{
		Name:        op.ID,
		Method:      op.Method,
		URI:         op.URI,
		Summary:     op.Summary,
		PathParams:  op.PathParams,
		QueryParams: op.QueryParams,
		DocURL:      DocURL(e.cfg.DocBaseURL, op.Tags, op.ID),
	}

	var out []Function
	switch {
	case op.Method != spec.POST && op.Method != spec.PUT:
		out = append(out, base)
	case op.HasMultipart && op.JSONBody:
		out = append(out, withBody(base, BodyJSON, nil), withBody(base, BodyMultipart, op.Multipart))
		out[1].Name = op.ID + "File"
	case op.HasMultipart:
		out = append(out, withBody(base, BodyMultipart, op.Multipart))
	case op.JSONBody || op.Method == spec.PUT:
		out = append(out, withBody(base, BodyJSON, nil))
	default:
		out = append(out, base)
	}

	if op.Rule == nil {
		return out
	}
	switch op.role {
	case roleOld:
		for i := range out {
			out[i].Deprecation = e.shim(op.Rule)
		}
	case roleNew:
		n := len(out)
		for i := 0; i < n; i++ {
			shim := out[i]
			shim.Name = op.Rule.OldOperationID + strings.TrimPrefix(out[i].Name, op.ID)
			shim.Deprecation = e.shim(op.Rule)
			out = append(out, shim)
		}
	}
	return out
}

func withBody(f Function, kind BodyKind, fields []MultipartField) Function {
	f.Body = kind
	f.Multipart = fields
	return f
}

func (e *Emitter) shim(rule *DeprecationRule) *Shim {
	return &Shim{
		Introduced:  rule.VersionIntroduced,
		Removed:     rule.VersionRemoved,
		Current:     e.cfg.CurrentVersion,
		Replacement: rule.NewOperationID,
	}
}

// EmitOperation renders every function of op.
func (e *Emitter) EmitOperation(op CompiledOperation) ([]EmittedFunction, error) {
	fns := e.Functions(op)
	out := make([]EmittedFunction, 0, len(fns))
	for _, fn := range fns {
		src, err := e.Render(fn)
		if err != nil {
			return nil, err
		}
		out = append(out, EmittedFunction{Name: fn.Name, Source: src, Deprecated: fn.Deprecation != nil})
	}
	return out, nil
}

type functionView struct {
	Decorator     string
	Name          string
	Args          []string
	Doc           []string
	Body          []string
	ResponseClass string
}

// Render produces the source of one function. The text starts with two
// newlines and ends with one, so functions concatenate into a module.
func (e *Emitter) Render(fn Function) (string, error) {
	view := functionView{
		Name:          fn.Name,
		Args:          e.signature(fn),
		Doc:           e.docstring(fn),
		Body:          e.body(fn),
		ResponseClass: e.cfg.Runtime.ResponseClass,
	}
	if fn.Deprecation != nil {
		view.Decorator = decorator(fn.Deprecation)
	}
	src, err := e.function.Render(view)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", fn.Name, err)
	}
	return src, nil
}

func decorator(s *Shim) string {
	return fmt.Sprintf("@deprecation.deprecated(deprecated_in=%s, removed_in=%s, current_version=%s, details=%s)",
		strconv.Quote(s.Introduced), strconv.Quote(s.Removed), strconv.Quote(s.Current),
		strconv.Quote("function replaced with "+s.Replacement))
}

func (e *Emitter) signature(fn Function) []string {
	rt := e.cfg.Runtime
	args := []string{fmt.Sprintf("%s: _%s", rt.SessionArg, rt.SessionClass)}
	for _, p := range fn.PathParams {
		args = append(args, fmt.Sprintf("%s: %s", p.Name, p.Type.Python()))
	}
	if fn.Body == BodyJSON {
		args = append(args, "body: dict")
	}
	var optional []string
	for _, p := range fn.QueryParams {
		switch {
		case p.Default != nil:
			if lit, ok := pyLiteral(p.Default); ok {
				optional = append(optional, fmt.Sprintf("%s: %s = %s", p.Name, p.Type.Python(), lit))
			} else {
				optional = append(optional, fmt.Sprintf("%s: %s | None = None", p.Name, p.Type.Python()))
			}
		case p.Required:
			args = append(args, fmt.Sprintf("%s: %s", p.Name, p.Type.Python()))
		default:
			optional = append(optional, fmt.Sprintf("%s: %s | None = None", p.Name, p.Type.Python()))
		}
	}
	if fn.Body == BodyMultipart {
		for _, f := range fn.Multipart {
			optional = append(optional, fmt.Sprintf("%s: %s | None = None", identifier(f.Name), f.Type.Python()))
		}
	}
	args = append(args, optional...)
	for i := range args {
		args[i] = pyIndent + args[i] + ","
	}
	return args
}

type docWriter struct {
	lines []string
}

func (w *docWriter) line(depth int, text string) {
	if text == "" {
		w.lines = append(w.lines, "")
		return
	}
	w.lines = append(w.lines, indent(depth)+text)
}

func (w *docWriter) section(title string) {
	w.line(0, "")
	w.line(1, title)
	w.line(1, strings.Repeat("-", max(len(title), 11)))
}

func (w *docWriter) param(p ParameterDescriptor) {
	head, desc := p.DocLine()
	w.line(1, head)
	for _, l := range desc {
		w.line(2, l)
	}
}

func (e *Emitter) docstring(fn Function) []string {
	rt := e.cfg.Runtime
	w := &docWriter{}
	for _, l := range descriptionLines(fn.Summary) {
		w.line(1, l)
	}
	if fn.Summary != "" {
		w.line(0, "")
	}
	w.line(1, "API doc: "+fn.DocURL)

	w.section("PARAMS")
	w.line(1, fmt.Sprintf("%s.%s : %s", e.cfg.Package, rt.SessionClass, rt.SessionArg))
	w.line(2, "session including authentication and host information")

	if len(fn.PathParams) > 0 {
		w.section("PATH PARAMS")
		for _, p := range fn.PathParams {
			w.param(p)
		}
	}
	if len(fn.QueryParams) > 0 {
		w.section("QUERY PARAMS")
		for _, p := range fn.QueryParams {
			w.param(p)
		}
	}
	switch fn.Body {
	case BodyJSON:
		w.section("BODY PARAMS")
		w.line(1, "body : dict")
		w.line(2, "JSON object to send (see API doc above for more details)")
	case BodyMultipart:
		w.section("MULTIPART FORM DATA")
		for _, f := range fn.Multipart {
			for _, l := range f.DocLines(0) {
				w.line(1, l)
			}
		}
	}

	w.section("RETURN")
	w.line(1, fmt.Sprintf("%s.%s", e.cfg.Package, rt.ResponseClass))
	w.line(2, "response from the API call")
	return w.lines
}

func (e *Emitter) body(fn Function) []string {
	rt := e.cfg.Runtime
	session := rt.SessionArg
	var lines []string
	add := func(depth int, format string, args ...any) {
		lines = append(lines, indent(depth)+fmt.Sprintf(format, args...))
	}

	if strings.Contains(fn.URI, "{") {
		add(1, "uri = f%s", strconv.Quote(fn.URI))
	} else {
		add(1, "uri = %s", strconv.Quote(fn.URI))
	}

	switch fn.Method {
	case spec.GET, spec.DELETE:
		add(1, "query_params: dict[str, str] = {}")
		for _, p := range fn.QueryParams {
			add(1, "if %s:", p.Name)
			add(2, "query_params[%s] = %s", strconv.Quote(p.RawName), queryValue(p))
		}
		primitive := rt.Get
		if fn.Method == spec.DELETE {
			primitive = rt.Delete
		}
		add(1, "resp = %s.%s(uri=uri, query=query_params)", session, primitive)
	default:
		primitive := rt.Post
		if fn.Method == spec.PUT {
			primitive = rt.Put
		}
		switch fn.Body {
		case BodyJSON:
			add(1, "resp = %s.%s(uri=uri, body=body)", session, primitive)
		case BodyMultipart:
			if len(fn.Multipart) == 0 {
				add(1, "multipart_form_data: dict = {}")
			} else {
				add(1, "multipart_form_data = {")
				for _, f := range fn.Multipart {
					add(2, "%s: %s,", strconv.Quote(f.Name), identifier(f.Name))
				}
				add(1, "}")
			}
			add(1, "resp = %s.%s(uri=uri, multipart_form_data=multipart_form_data)", session, rt.PostFile)
		default:
			add(1, "resp = %s.%s(uri=uri)", session, primitive)
		}
	}
	add(1, "return resp")
	return lines
}

func queryValue(p ParameterDescriptor) string {
	switch p.Type {
	case TypeBoolean:
		return fmt.Sprintf("str(%s).lower()", p.Name)
	case TypeArray:
		return fmt.Sprintf(`",".join(str(v) for v in %s)`, p.Name)
	}
	return fmt.Sprintf("str(%s)", p.Name)
}

type headerView struct {
	Lines []string
}

type importsView struct {
	Package        string
	SessionClass   string
	ResponseModule string
	ResponseClass  string
	Deprecated     bool
}

// ModuleSource assembles a module file from its functions.
func (e *Emitter) ModuleSource(functions []EmittedFunction) (string, error) {
	deprecated := false
	for _, fn := range functions {
		deprecated = deprecated || fn.Deprecated
	}
	header, err := e.renderHeader()
	if err != nil {
		return "", err
	}
	rt := e.cfg.Runtime
	imports, err := e.imports.Render(importsView{
		Package:        e.cfg.Package,
		SessionClass:   rt.SessionClass,
		ResponseModule: rt.ResponseModule,
		ResponseClass:  rt.ResponseClass,
		Deprecated:     deprecated,
	})
	if err != nil {
		return "", fmt.Errorf("render module imports: %w", err)
	}
	var b strings.Builder
	b.WriteString(header)
	b.WriteString(imports)
	for _, fn := range functions {
		b.WriteString(fn.Source)
	}
	return b.String(), nil
}

func (e *Emitter) renderHeader() (string, error) {
	lines := []string{strings.Repeat("-", 80), "Code generated by swagger2sdk. DO NOT EDIT.", ""}
	if e.cfg.Title != "" {
		lines = append(lines, e.cfg.Title)
	}
	if e.cfg.CurrentVersion != "" {
		lines = append(lines, "Package version: "+e.cfg.CurrentVersion)
	}
	lines = append(lines, strings.Repeat("-", 80))
	out, err := e.header.Render(headerView{Lines: lines})
	if err != nil {
		return "", fmt.Errorf("render header: %w", err)
	}
	return out, nil
}

type indexView struct {
	Imports []string
	Exports string
}

// IndexSource renders the package index of a folder: one import per child,
// then the explicit re-export list.
func (e *Emitter) IndexSource(folder []string, children []string) (string, error) {
	header, err := e.renderHeader()
	if err != nil {
		return "", err
	}
	module := strings.Join(append([]string{e.cfg.Package}, folder...), ".")
	view := indexView{}
	quoted := make([]string, len(children))
	for i, c := range children {
		view.Imports = append(view.Imports, fmt.Sprintf("from %s import %s", module, c))
		quoted[i] = strconv.Quote(c)
	}
	view.Exports = "\n__all__ = [" + strings.Join(quoted, ", ") + "]\n"
	body, err := e.index.Render(view)
	if err != nil {
		return "", fmt.Errorf("render index %s: %w", module, err)
	}
	return header + body, nil
}

// DocURL builds the reference-documentation link of an operation from the
// first tag and the operation id.
func DocURL(base string, tags []string, operationID string) string {
	parts := []string{strings.TrimRight(base, "/")}
	if len(tags) > 0 {
		parts = append(parts, tagSegments(tags[0])...)
	}
	parts = append(parts, kebab(operationID))
	return strings.Join(parts, "/")
}

// tagSegments splits "Orgs Sites - Maps" into orgs, sites, maps. The first
// word is the primary segment.
func tagSegments(tag string) []string {
	groups := strings.Split(tag, " - ")
	var out []string
	words := strings.Fields(groups[0])
	if len(words) > 0 {
		out = append(out, strings.ToLower(words[0]))
		if len(words) > 1 {
			out = append(out, hyphenate(strings.Join(words[1:], " ")))
		}
	}
	for _, g := range groups[1:] {
		if h := hyphenate(g); h != "" {
			out = append(out, h)
		}
	}
	return out
}

func hyphenate(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "-"))
}

// kebab inserts a hyphen before every non-leading uppercase letter, so
// getOrgSSO becomes get-org-s-s-o.
func kebab(id string) string {
	var b strings.Builder
	for i, r := range id {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
