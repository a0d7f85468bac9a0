package sdkgen

import (
	"fmt"
	"strings"
)

// DiagnosticKind categorizes non-fatal generation problems.
type DiagnosticKind string

const (
	UnknownType         DiagnosticKind = "unknown-type"
	UnresolvedRef       DiagnosticKind = "unresolved-ref"
	UndeclaredPathParam DiagnosticKind = "undeclared-path-param"
	MissingOperationID  DiagnosticKind = "missing-operation-id"
	ShimExpired         DiagnosticKind = "shim-expired"
)

// Diagnostic is a problem that degraded one operation but did not stop the run.
type Diagnostic struct {
	Kind      DiagnosticKind
	Path      string
	Operation string
	Parameter string
	Message   string
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", d.Kind)
	if d.Path != "" {
		fmt.Fprintf(&b, " %s", d.Path)
	}
	if d.Operation != "" {
		fmt.Fprintf(&b, " %s", d.Operation)
	}
	if d.Parameter != "" {
		fmt.Fprintf(&b, " (%s)", d.Parameter)
	}
	if d.Message != "" {
		fmt.Fprintf(&b, ": %s", d.Message)
	}
	return b.String()
}

// Diagnostics collects diagnostics in the order they were raised.
type Diagnostics struct {
	items []Diagnostic
}

func (d *Diagnostics) add(diag Diagnostic) {
	if d == nil {
		return
	}
	d.items = append(d.items, diag)
}

// All returns the collected diagnostics.
func (d *Diagnostics) All() []Diagnostic {
	if d == nil {
		return nil
	}
	return d.items
}

func (d *Diagnostics) Len() int {
	if d == nil {
		return 0
	}
	return len(d.items)
}

// Count returns how many diagnostics of kind were raised.
func (d *Diagnostics) Count(kind DiagnosticKind) int {
	n := 0
	for _, item := range d.All() {
		if item.Kind == kind {
			n++
		}
	}
	return n
}

// scope identifies where a diagnostic comes from.
type scope struct {
	path      string
	operation string
}

func (s scope) diag(kind DiagnosticKind, param, format string, args ...any) Diagnostic {
	return Diagnostic{
		Kind:      kind,
		Path:      s.path,
		Operation: s.operation,
		Parameter: param,
		Message:   fmt.Sprintf(format, args...),
	}
}
