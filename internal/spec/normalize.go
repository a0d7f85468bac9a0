package spec

import (
    "errors"
    "fmt"
    "regexp"
    "sort"
    "strings"

    "github.com/getkin/kin-openapi/openapi3"
)

// ErrNoPaths and ErrNoComponents are returned when a required top-level table
// is missing; generation cannot proceed without them.
var (
    ErrNoPaths      = errors.New("spec: document has no paths table")
    ErrNoComponents = errors.New("spec: document has no components table")
)

const (
    mimeJSON      = "application/json"
    mimeMultipart = "multipart/form-data"
)

// BuildOption configures how the Document is built from an OpenAPI doc.
type BuildOption func(*buildConfig)

type buildConfig struct {
    includeTags map[string]struct{}
    excludeTags map[string]struct{}
    pathRes     []*regexp.Regexp
}

// WithIncludeTags keeps only operations that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
    return func(c *buildConfig) {
        c.includeTags = addTags(c.includeTags, tags)
    }
}

// WithExcludeTags removes operations that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
    return func(c *buildConfig) {
        c.excludeTags = addTags(c.excludeTags, tags)
    }
}

func addTags(set map[string]struct{}, tags []string) map[string]struct{} {
    for _, t := range tags {
        t = strings.TrimSpace(t)
        if t == "" {
            continue
        }
        if set == nil {
            set = make(map[string]struct{}, len(tags))
        }
        set[t] = struct{}{}
    }
    return set
}

// WithPathPatterns keeps only paths matching at least one of the provided
// regular expressions. Invalid patterns never match.
func WithPathPatterns(patterns []string) BuildOption {
    return func(c *buildConfig) {
        for _, p := range patterns {
            p = strings.TrimSpace(p)
            if p == "" {
                continue
            }
            re, err := regexp.Compile(p)
            if err != nil {
                re = regexp.MustCompile("a^$")
            }
            c.pathRes = append(c.pathRes, re)
        }
    }
}

// BuildDocument converts a loaded OpenAPI v3 document into the typed Document.
// Local component references are kept by name rather than inlined, so the
// generator resolves them itself.
func BuildDocument(src *Source, opts ...BuildOption) (*Document, error) {
    if src == nil || src.Doc == nil {
        return nil, fmt.Errorf("nil document")
    }
    doc := src.Doc
    if doc.Paths == nil {
        return nil, ErrNoPaths
    }
    if doc.Components == nil {
        return nil, ErrNoComponents
    }

    cfg := &buildConfig{}
    for _, opt := range opts {
        opt(cfg)
    }

    out := &Document{
        ParameterComponents: make(map[string]*Parameter, len(doc.Components.Parameters)),
        SchemaComponents:    make(map[string]*Schema, len(doc.Components.Schemas)),
    }
    if doc.Info != nil {
        out.Title = safeStr(doc.Info.Title)
        out.Version = safeStr(doc.Info.Version)
    }

    for name, ref := range doc.Components.Parameters {
        if p := toParameter(ref); p != nil {
            out.ParameterComponents[name] = p
        }
    }
    for name, ref := range doc.Components.Schemas {
        if ref == nil {
            continue
        }
        if target := componentName(ref.Ref, "schemas"); target != "" && target != name {
            out.SchemaComponents[name] = &Schema{Ref: target}
            continue
        }
        out.SchemaComponents[name] = toSchemaValue(ref.Value)
    }

    declared, err := pathOrder(src.Raw)
    if err != nil {
        return nil, err
    }
    for _, p := range orderedPaths(doc.Paths, declared) {
        if !allowByPath(p, cfg) {
            continue
        }
        item := doc.Paths[p]
        if item == nil {
            continue
        }
        pi := &PathItem{Parameters: toParameters(item.Parameters)}
        for _, pair := range []struct {
            m HttpMethod
            o *openapi3.Operation
        }{
            {GET, item.Get},
            {POST, item.Post},
            {PUT, item.Put},
            {DELETE, item.Delete},
        } {
            if pair.o == nil {
                continue
            }
            op := toOperation(pair.o)
            if !allowByTags(op.Tags, cfg) {
                continue
            }
            pi.setOperation(pair.m, op)
        }
        out.Paths = append(out.Paths, PathEntry{Path: p, Item: pi})
    }

    props, err := propertyOrder(src.Raw)
    if err != nil {
        return nil, err
    }
    orderDocument(out, props)
    return out, nil
}

// orderedPaths returns the keys of paths in declared order, followed by any
// keys the raw walk did not see, sorted.
func orderedPaths(paths openapi3.Paths, declared []string) []string {
    out := make([]string, 0, len(paths))
    seen := make(map[string]struct{}, len(paths))
    for _, p := range declared {
        if _, ok := paths[p]; !ok {
            continue
        }
        if _, dup := seen[p]; dup {
            continue
        }
        seen[p] = struct{}{}
        out = append(out, p)
    }
    var rest []string
    for p := range paths {
        if _, ok := seen[p]; !ok {
            rest = append(rest, p)
        }
    }
    sort.Strings(rest)
    return append(out, rest...)
}

func allowByPath(path string, cfg *buildConfig) bool {
    if len(cfg.pathRes) == 0 {
        return true
    }
    for _, re := range cfg.pathRes {
        if re.MatchString(path) {
            return true
        }
    }
    return false
}

func allowByTags(tags []string, cfg *buildConfig) bool {
    if len(cfg.includeTags) > 0 {
        ok := false
        for _, t := range tags {
            if _, yes := cfg.includeTags[t]; yes {
                ok = true
                break
            }
        }
        if !ok {
            return false
        }
    }
    for _, t := range tags {
        if _, blocked := cfg.excludeTags[t]; blocked {
            return false
        }
    }
    return true
}

func safeStr(s string) string { return strings.TrimSpace(s) }

// componentName returns the component name a local ref points to within
// #/components/<kind>/, or "" for inline and external refs.
func componentName(ref, kind string) string {
    prefix := "#/components/" + kind + "/"
    if !strings.HasPrefix(ref, prefix) {
        return ""
    }
    name := strings.TrimPrefix(ref, prefix)
    return strings.NewReplacer("~1", "/", "~0", "~").Replace(name)
}

func toOperation(o *openapi3.Operation) *Operation {
    op := &Operation{
        OperationID: safeStr(o.OperationID),
        Summary:     safeStr(o.Summary),
        Deprecated:  o.Deprecated,
        Parameters:  toParameters(o.Parameters),
    }
    for _, t := range o.Tags {
        if t = safeStr(t); t != "" {
            op.Tags = append(op.Tags, t)
        }
    }
    if o.RequestBody != nil && o.RequestBody.Value != nil {
        op.RequestBody = toRequestBody(o.RequestBody.Value)
    }
    return op
}

func toParameters(refs openapi3.Parameters) []*Parameter {
    var out []*Parameter
    for _, ref := range refs {
        if p := toParameter(ref); p != nil {
            out = append(out, p)
        }
    }
    return out
}

func toParameter(ref *openapi3.ParameterRef) *Parameter {
    if ref == nil {
        return nil
    }
    if name := componentName(ref.Ref, "parameters"); name != "" {
        return &Parameter{Ref: name}
    }
    if ref.Value == nil {
        return nil
    }
    p := ref.Value
    return &Parameter{
        Name:        safeStr(p.Name),
        In:          safeStr(p.In),
        Description: safeStr(p.Description),
        Required:    p.Required,
        Schema:      toSchema(p.Schema),
    }
}

func toRequestBody(rb *openapi3.RequestBody) *RequestBody {
    out := &RequestBody{Required: rb.Required}
    for mime := range rb.Content {
        out.MediaTypes = append(out.MediaTypes, mime)
    }
    sort.Strings(out.MediaTypes)
    for _, mime := range out.MediaTypes {
        mt := rb.Content[mime]
        if mt == nil {
            continue
        }
        base := mediaBase(mime)
        switch {
        case base == mimeJSON && out.JSON == nil:
            out.JSON = orEmpty(toSchema(mt.Schema))
        case base == mimeMultipart && out.Multipart == nil:
            out.Multipart = orEmpty(toSchema(mt.Schema))
        }
    }
    return out
}

// mediaBase strips parameters from a media type and lowercases it.
func mediaBase(mime string) string {
    return strings.ToLower(strings.TrimSpace(strings.SplitN(mime, ";", 2)[0]))
}

func orEmpty(s *Schema) *Schema {
    if s == nil {
        return &Schema{}
    }
    return s
}

func toSchema(ref *openapi3.SchemaRef) *Schema {
    if ref == nil {
        return nil
    }
    if name := componentName(ref.Ref, "schemas"); name != "" {
        return &Schema{Ref: name}
    }
    return toSchemaValue(ref.Value)
}

func toSchemaValue(v *openapi3.Schema) *Schema {
    if v == nil {
        return &Schema{}
    }
    s := &Schema{
        Type:        safeStr(v.Type),
        Format:      safeStr(v.Format),
        Description: safeStr(v.Description),
        Default:     v.Default,
        Minimum:     v.Min,
        Maximum:     v.Max,
        Items:       toSchema(v.Items),
    }
    if len(v.Enum) > 0 {
        s.Enum = append([]any(nil), v.Enum...)
    }
    if len(v.Properties) > 0 {
        names := make([]string, 0, len(v.Properties))
        for name := range v.Properties {
            names = append(names, name)
        }
        sort.Strings(names)
        for _, name := range names {
            s.Properties = append(s.Properties, Property{Name: name, Schema: orEmpty(toSchema(v.Properties[name]))})
        }
    }
    return s
}
