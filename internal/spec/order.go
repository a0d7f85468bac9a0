package spec

import (
    "fmt"
    "strings"

    "gopkg.in/yaml.v3"
)

// kin-openapi decodes into Go maps, so every declaration order the generator
// cares about is recovered from a yaml.v3 node walk over the raw bytes. JSON
// input parses as YAML, so one walk covers both.

func parseTop(raw []byte) (*yaml.Node, error) {
    var root yaml.Node
    if err := yaml.Unmarshal(raw, &root); err != nil {
        return nil, fmt.Errorf("parse spec: %w", err)
    }
    if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
        return nil, nil
    }
    top := root.Content[0]
    if top.Kind != yaml.MappingNode {
        return nil, nil
    }
    return top, nil
}

// mappingValue returns the value node stored under key in a mapping node.
func mappingValue(n *yaml.Node, key string) *yaml.Node {
    if n == nil || n.Kind != yaml.MappingNode {
        return nil
    }
    for i := 0; i+1 < len(n.Content); i += 2 {
        if n.Content[i].Value == key {
            return n.Content[i+1]
        }
    }
    return nil
}

func mappingKeys(n *yaml.Node) []string {
    keys := make([]string, 0, len(n.Content)/2)
    for i := 0; i+1 < len(n.Content); i += 2 {
        keys = append(keys, n.Content[i].Value)
    }
    return keys
}

// pathOrder returns the keys of the top-level "paths" mapping in the order
// they are declared in raw.
func pathOrder(raw []byte) ([]string, error) {
    top, err := parseTop(raw)
    if err != nil || top == nil {
        return nil, err
    }
    paths := mappingValue(top, "paths")
    if paths == nil || paths.Kind != yaml.MappingNode {
        return nil, nil
    }
    return mappingKeys(paths), nil
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func pointerJoin(base, token string) string {
    return base + "/" + pointerEscaper.Replace(token)
}

// propertyOrder maps the JSON pointer of every schema declaring "properties"
// to its property names in declaration order. Pointers are expressed in the
// OpenAPI v3 layout: Swagger 2 definitions land under /components/schemas and
// formData parameters under the converted multipart request body.
func propertyOrder(raw []byte) (map[string][]string, error) {
    top, err := parseTop(raw)
    if err != nil || top == nil {
        return nil, err
    }
    out := map[string][]string{}
    v2 := mappingValue(top, "swagger") != nil
    for i := 0; i+1 < len(top.Content); i += 2 {
        key, val := top.Content[i].Value, top.Content[i+1]
        base := pointerJoin("", key)
        if v2 && key == "definitions" {
            base = "/components/schemas"
        }
        walkProperties(val, base, out)
    }
    if v2 {
        formDataOrder(mappingValue(top, "paths"), out)
    }
    return out, nil
}

func walkProperties(n *yaml.Node, ptr string, out map[string][]string) {
    switch n.Kind {
    case yaml.MappingNode:
        for i := 0; i+1 < len(n.Content); i += 2 {
            key, val := n.Content[i].Value, n.Content[i+1]
            if key == "properties" && val.Kind == yaml.MappingNode {
                out[ptr] = mappingKeys(val)
            }
            walkProperties(val, pointerJoin(ptr, key), out)
        }
    case yaml.SequenceNode:
        for i, child := range n.Content {
            walkProperties(child, fmt.Sprintf("%s/%d", ptr, i), out)
        }
    }
}

// formDataOrder records Swagger 2 formData parameter names, which openapi2conv
// turns into the properties of a multipart/form-data body.
func formDataOrder(paths *yaml.Node, out map[string][]string) {
    if paths == nil || paths.Kind != yaml.MappingNode {
        return
    }
    for i := 0; i+1 < len(paths.Content); i += 2 {
        path, item := paths.Content[i].Value, paths.Content[i+1]
        for _, m := range Methods {
            op := mappingValue(item, string(m))
            params := mappingValue(op, "parameters")
            if params == nil || params.Kind != yaml.SequenceNode {
                continue
            }
            var names []string
            for _, p := range params.Content {
                if in := mappingValue(p, "in"); in != nil && in.Value == "formData" {
                    if name := mappingValue(p, "name"); name != nil {
                        names = append(names, name.Value)
                    }
                }
            }
            if len(names) > 0 {
                ptr := pointerJoin(pointerJoin(pointerJoin("/paths", path), string(m)), "requestBody")
                out[pointerJoin(pointerJoin(ptr+"/content", mimeMultipart), "schema")] = names
            }
        }
    }
}

// applyPropertyOrder reorders s.Properties (sorted by name when built) so the
// declared ones come first in declaration order, then recurses.
func applyPropertyOrder(s *Schema, ptr string, order map[string][]string) {
    if s == nil || len(order) == 0 {
        return
    }
    if declared, ok := order[ptr]; ok && len(s.Properties) > 1 {
        byName := make(map[string]Property, len(s.Properties))
        for _, p := range s.Properties {
            byName[p.Name] = p
        }
        sorted := make([]Property, 0, len(s.Properties))
        for _, name := range declared {
            if p, ok := byName[name]; ok {
                sorted = append(sorted, p)
                delete(byName, name)
            }
        }
        for _, p := range s.Properties {
            if _, left := byName[p.Name]; left {
                sorted = append(sorted, p)
            }
        }
        s.Properties = sorted
    }
    for _, p := range s.Properties {
        applyPropertyOrder(p.Schema, pointerJoin(ptr+"/properties", p.Name), order)
    }
    applyPropertyOrder(s.Items, ptr+"/items", order)
}

// orderDocument applies the declared property order to every schema component
// and request body of doc.
func orderDocument(doc *Document, order map[string][]string) {
    if len(order) == 0 {
        return
    }
    for name, s := range doc.SchemaComponents {
        applyPropertyOrder(s, pointerJoin("/components/schemas", name), order)
    }
    for _, e := range doc.Paths {
        for _, m := range Methods {
            op := e.Item.Operation(m)
            if op == nil || op.RequestBody == nil {
                continue
            }
            rb := op.RequestBody
            for _, mime := range rb.MediaTypes {
                ptr := pointerJoin(pointerJoin(pointerJoin(pointerJoin("/paths", e.Path), string(m))+"/requestBody/content", mime), "schema")
                switch mediaBase(mime) {
                case mimeMultipart:
                    applyPropertyOrder(rb.Multipart, ptr, order)
                case mimeJSON:
                    applyPropertyOrder(rb.JSON, ptr, order)
                }
            }
        }
    }
}
