package sdkgen

import (
	"fmt"
	"log/slog"

	"github.com/mark3labs/swagger2sdk/internal/spec"
)

// DefaultDocBaseURL is the root of the Mist API reference.
const DefaultDocBaseURL = "https://www.juniper.net/documentation/us/en/software/mist/api/http/api"

// Options configures a generation run. Zero-valued Literals and Runtime fall
// back to the defaults.
type Options struct {
	Package        string
	CurrentVersion string
	Rules          *Rules
	Literals       Literals
	Runtime        Runtime
	DocBaseURL     string
	Logger         *slog.Logger
}

// Result is the outcome of a run.
type Result struct {
	Tree         *Tree
	Functions    int
	Operations   int
	SkippedPaths []string
	Diagnostics  []Diagnostic
}

// Generator drives one generation run. It is single-use and not safe for
// concurrent use.
type Generator struct {
	doc      *spec.Document
	opts     Options
	emitter  *Emitter
	resolver *Resolver
	logger   *slog.Logger
}

// New validates opts. A malformed current version is fatal here, before any
// output is produced.
func New(doc *spec.Document, opts Options) (*Generator, error) {
	if doc == nil {
		return nil, fmt.Errorf("generator: document is required")
	}
	if err := ValidateVersion(opts.CurrentVersion); err != nil {
		return nil, fmt.Errorf("current version: %w", err)
	}
	if opts.Literals.FallbackName == "" && opts.Literals.NestedSegment == "" &&
		len(opts.Literals.Renames) == 0 && len(opts.Literals.FileFields) == 0 {
		opts.Literals = DefaultLiterals()
	}
	if opts.Runtime == (Runtime{}) {
		opts.Runtime = DefaultRuntime()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	emitter, err := NewEmitter(EmitterConfig{
		Package:        opts.Package,
		Title:          doc.Title,
		CurrentVersion: opts.CurrentVersion,
		Runtime:        opts.Runtime,
		DocBaseURL:     opts.DocBaseURL,
	})
	if err != nil {
		return nil, err
	}
	return &Generator{
		doc:      doc,
		opts:     opts,
		emitter:  emitter,
		resolver: NewResolver(doc),
		logger:   opts.Logger,
	}, nil
}

// Emitter returns the emitter used to materialize the result tree.
func (g *Generator) Emitter() *Emitter { return g.emitter }

// Run walks every path in declaration order and builds the module tree.
func (g *Generator) Run() (*Result, error) {
	diags := &Diagnostics{}
	classifier := NewClassifier(g.resolver, g.opts.Literals, g.opts.Rules, g.opts.CurrentVersion, diags)
	classifier.DeclareOperations(g.doc)
	res := &Result{Tree: NewTree()}

	for _, entry := range g.doc.Paths {
		ep := classifier.Classify(entry.Path, entry.Item)
		if ep.Skipped {
			g.logger.Debug("skipping deprecated path", "path", entry.Path)
			res.SkippedPaths = append(res.SkippedPaths, entry.Path)
			continue
		}
		if len(ep.Operations) == 0 {
			continue
		}
		target := MapPath(entry.Path, g.opts.Literals)
		for _, op := range ep.Operations {
			fns, err := g.emitter.EmitOperation(op)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", op.Method, entry.Path, err)
			}
			for _, fn := range fns {
				res.Tree.Insert(target, fn)
			}
			res.Operations++
			res.Functions += len(fns)
		}
	}
	res.Diagnostics = diags.All()
	g.logger.Debug("generation finished",
		"operations", res.Operations,
		"functions", res.Functions,
		"skipped_paths", len(res.SkippedPaths),
		"diagnostics", len(res.Diagnostics))
	return res, nil
}

// Generate runs doc through a new generator and materializes the tree.
func Generate(doc *spec.Document, opts Options) ([]File, *Result, error) {
	g, err := New(doc, opts)
	if err != nil {
		return nil, nil, err
	}
	res, err := g.Run()
	if err != nil {
		return nil, nil, err
	}
	files, err := res.Tree.Materialize(g.emitter)
	if err != nil {
		return nil, nil, err
	}
	return files, res, nil
}
