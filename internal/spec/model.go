package spec

// Typed view of an OpenAPI document, decoded once at the loader boundary and
// read-only for the generator.

type HttpMethod string

const (
    GET    HttpMethod = "get"
    POST   HttpMethod = "post"
    PUT    HttpMethod = "put"
    DELETE HttpMethod = "delete"
)

// Methods lists the verbs the generator handles, in emission order.
var Methods = []HttpMethod{GET, POST, PUT, DELETE}

// Document holds the three tables the generator consumes.
type Document struct {
    Title   string
    Version string
    // Paths keeps spec-declaration order.
    Paths               []PathEntry
    ParameterComponents map[string]*Parameter
    SchemaComponents    map[string]*Schema
}

type PathEntry struct {
    Path string
    Item *PathItem
}

// PathItem carries shared path-level parameters and at most one operation per verb.
type PathItem struct {
    Parameters []*Parameter
    Get        *Operation
    Post       *Operation
    Put        *Operation
    Delete     *Operation
}

// Operation returns the operation registered for m, or nil.
func (p *PathItem) Operation(m HttpMethod) *Operation {
    if p == nil {
        return nil
    }
    switch m {
    case GET:
        return p.Get
    case POST:
        return p.Post
    case PUT:
        return p.Put
    case DELETE:
        return p.Delete
    }
    return nil
}

func (p *PathItem) setOperation(m HttpMethod, op *Operation) {
    switch m {
    case GET:
        p.Get = op
    case POST:
        p.Post = op
    case PUT:
        p.Put = op
    case DELETE:
        p.Delete = op
    }
}

type Operation struct {
    OperationID string
    Summary     string
    Tags        []string
    Deprecated  bool
    Parameters  []*Parameter
    RequestBody *RequestBody
}

// Parameter is either inline or a reference to ParameterComponents[Ref].
type Parameter struct {
    Ref         string
    Name        string
    In          string // path|query|header|cookie
    Description string
    Required    bool
    Schema      *Schema
}

// RequestBody keeps the two media types the generator understands. MediaTypes
// lists every declared content type, sorted.
type RequestBody struct {
    Required   bool
    JSON       *Schema
    Multipart  *Schema
    MediaTypes []string
}

// Schema is either inline or a reference to SchemaComponents[Ref].
type Schema struct {
    Ref         string
    Type        string
    Format      string
    Description string
    Default     any
    Enum        []any
    Minimum     *float64
    Maximum     *float64
    // Properties keep declaration order; names the raw walk cannot place
    // follow, sorted.
    Properties []Property
    Items      *Schema
}

type Property struct {
    Name   string
    Schema *Schema
}

// Path returns the item registered for path, or nil.
func (d *Document) Path(path string) *PathItem {
    for _, e := range d.Paths {
        if e.Path == path {
            return e.Item
        }
    }
    return nil
}
