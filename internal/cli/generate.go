package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/mark3labs/swagger2sdk/internal/emitter/pyemitter"
	"github.com/mark3labs/swagger2sdk/internal/sdkgen"
	genspec "github.com/mark3labs/swagger2sdk/internal/spec"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Input         string
	Out           string
	Package       string
	Version       string
	Deprecations  string
	DocBaseURL    string
	IncludeTags   []string
	ExcludeTags   []string
	PathPatterns  []string
	NestedSegment string
	Renames       map[string]string
	FileFields    []string
	ConfigPath    string
	Strict        bool
	DryRun        bool
	Force         bool
	Clean         bool
	Verbose       bool
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{DocBaseURL: sdkgen.DefaultDocBaseURL}
}

var generateRunner = runGenerate

var packageNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a Python client module tree from an OpenAPI/Swagger document",
		Long: "Generate a Python client module tree from an OpenAPI/Swagger document. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  swagger2sdk generate --input openapi.yaml --package mistapi --version 0.52.3 --out ./src
  swagger2sdk --config swagger2sdk.yaml generate --force --clean --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the Swagger/OpenAPI document")
	flags.String("out", "", "Output directory that will contain the package folder (defaults to the package name)")
	flags.String("package", "", "Python package name (derived from the spec title when omitted)")
	flags.String("version", "", "Version of the package being generated; drives deprecation shims")
	flags.String("deprecations", "", "TOML file of renamed operations (built-in table when omitted)")
	flags.String("doc-base-url", "", "Base URL of the API reference linked from docstrings")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")
	flags.StringSlice("path-pattern", nil, "Only include paths matching these regular expressions")
	flags.String("nested-segment", "", "Path segment that deepens the module folders by one level")
	flags.StringToString("rename", nil, "Rename path segments used as module names (old=new)")
	flags.StringSlice("file-fields", nil, "Multipart fields always treated as file uploads")
	flags.Bool("strict", false, "Fail on spec validation errors and on generation diagnostics")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Write into a non-empty output directory")
	flags.Bool("clean", false, "Remove previously generated folders before writing")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"input", &cfg.Input},
		{"out", &cfg.Out},
		{"package", &cfg.Package},
		{"version", &cfg.Version},
		{"deprecations", &cfg.Deprecations},
		{"doc-base-url", &cfg.DocBaseURL},
		{"nested-segment", &cfg.NestedSegment},
	}
	for _, s := range strs {
		if !flags.Changed(s.name) {
			continue
		}
		value, err := flags.GetString(s.name)
		if err != nil {
			return err
		}
		*s.dst = strings.TrimSpace(value)
	}

	slices := []struct {
		name string
		dst  *[]string
	}{
		{"include-tags", &cfg.IncludeTags},
		{"exclude-tags", &cfg.ExcludeTags},
		{"path-pattern", &cfg.PathPatterns},
		{"file-fields", &cfg.FileFields},
	}
	for _, s := range slices {
		if !flags.Changed(s.name) {
			continue
		}
		value, err := flags.GetStringSlice(s.name)
		if err != nil {
			return err
		}
		*s.dst = sanitizeTags(value)
	}

	if flags.Changed("rename") {
		value, err := flags.GetStringToString("rename")
		if err != nil {
			return err
		}
		if cfg.Renames == nil {
			cfg.Renames = map[string]string{}
		}
		for k, v := range value {
			cfg.Renames[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"strict", &cfg.Strict},
		{"dry-run", &cfg.DryRun},
		{"force", &cfg.Force},
		{"clean", &cfg.Clean},
		{"verbose", &cfg.Verbose},
	}
	for _, b := range bools {
		if !flags.Changed(b.name) {
			continue
		}
		value, err := flags.GetBool(b.name)
		if err != nil {
			return err
		}
		*b.dst = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Out = strings.TrimSpace(c.Out)
	c.Package = strings.TrimSpace(c.Package)
	c.Version = strings.TrimSpace(c.Version)
	c.Deprecations = strings.TrimSpace(c.Deprecations)
	c.DocBaseURL = strings.TrimSpace(c.DocBaseURL)
	c.NestedSegment = strings.TrimSpace(c.NestedSegment)
	c.IncludeTags = sanitizeTags(c.IncludeTags)
	c.ExcludeTags = sanitizeTags(c.ExcludeTags)
	c.PathPatterns = sanitizeTags(c.PathPatterns)
	c.FileFields = sanitizeTags(c.FileFields)
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: --input is required (set via flag or config file)")
	}
	if c.Version == "" {
		return newUsageError("generate: --version is required (set via flag or config file)")
	}
	if err := sdkgen.ValidateVersion(c.Version); err != nil {
		return newUsageError(fmt.Sprintf("generate: --version: %v", err))
	}
	if c.Package != "" && !packageNameRe.MatchString(c.Package) {
		return newUsageError(fmt.Sprintf("generate: --package %q is not a valid Python identifier", c.Package))
	}
	for _, p := range c.PathPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return newUsageError(fmt.Sprintf("generate: --path-pattern %q: %v", p, err))
		}
	}

	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("generate: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}

	return nil
}

// literals layers the configured special cases over the defaults.
func (c *GenerateConfig) literals() sdkgen.Literals {
	lit := sdkgen.DefaultLiterals()
	if c.NestedSegment != "" {
		lit.NestedSegment = c.NestedSegment
	}
	if len(c.FileFields) > 0 {
		lit.FileFields = c.FileFields
	}
	for from, to := range c.Renames {
		lit.Renames[from] = to
	}
	return lit
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	logger := slog.Default()

	// 1) Deprecation rules: explicit file or the built-in table
	rules, err := loadRules(cfg.Deprecations)
	if err != nil {
		return err
	}

	// 2) Load the spec (file or http/https URL) with validation and conversion
	src, err := genspec.Load(ctx, cfg.Input, genspec.WithStrictValidation(cfg.Strict))
	if err != nil {
		return specUsageError(err)
	}

	// 3) Decode the typed document with tag and path filters
	doc, err := genspec.BuildDocument(src,
		genspec.WithIncludeTags(cfg.IncludeTags),
		genspec.WithExcludeTags(cfg.ExcludeTags),
		genspec.WithPathPatterns(cfg.PathPatterns),
	)
	if err != nil {
		if errors.Is(err, genspec.ErrNoPaths) || errors.Is(err, genspec.ErrNoComponents) {
			return newUsageError(fmt.Sprintf("spec: %v\nLocation: %s", err, src.Location))
		}
		return fmt.Errorf("build document: %w", err)
	}
	logger.Debug("loaded spec", "location", src.Location, "swagger", src.SpecVersion, "paths", len(doc.Paths))

	// 4) Derive defaults for the package name and output directory
	pkg := cfg.Package
	if pkg == "" {
		pkg = derivePackageName(doc.Title)
	}
	outDir := cfg.Out
	if outDir == "" {
		outDir = pkg
	}
	absOut := outDir
	if ap, err := filepath.Abs(outDir); err == nil {
		absOut = ap
	}

	// 5) Generate the module tree
	gen, err := sdkgen.New(doc, sdkgen.Options{
		Package:        pkg,
		CurrentVersion: cfg.Version,
		Rules:          rules,
		Literals:       cfg.literals(),
		Runtime:        sdkgen.DefaultRuntime(),
		DocBaseURL:     cfg.DocBaseURL,
		Logger:         logger,
	})
	if err != nil {
		return newUsageError(fmt.Sprintf("generate: %v", err))
	}
	res, err := gen.Run()
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	for _, d := range res.Diagnostics {
		logger.Warn(d.Message,
			"kind", string(d.Kind),
			"path", d.Path,
			"operation", d.Operation,
			"parameter", d.Parameter)
	}
	if cfg.Strict && hasBlockingDiagnostics(res.Diagnostics) {
		return fmt.Errorf("generate: %d diagnostics reported in strict mode", len(res.Diagnostics))
	}
	files, err := res.Tree.Materialize(gen.Emitter())
	if err != nil {
		return fmt.Errorf("materialize: %w", err)
	}

	// 6) Write the tree
	written, err := pyemitter.Emit(ctx, files, pyemitter.Options{
		OutDir: outDir,
		Force:  cfg.Force,
		DryRun: cfg.DryRun,
		Clean:  cfg.Clean,
		Logger: logger,
	})
	if err != nil {
		return wrapOutputError(err, absOut)
	}
	if cfg.DryRun {
		printPlan(os.Stdout, absOut, written)
	}

	logger.Info("generation complete",
		"package", pkg,
		"out", absOut,
		"operations", res.Operations,
		"functions", res.Functions,
		"files", len(written.Planned),
		"written", written.Written,
		"skipped_paths", len(res.SkippedPaths),
		"diagnostics", len(res.Diagnostics),
		"dry_run", cfg.DryRun)
	return nil
}

func loadRules(path string) (*sdkgen.Rules, error) {
	if path == "" {
		rules, err := sdkgen.DefaultRules()
		if err != nil {
			return nil, fmt.Errorf("built-in deprecation rules: %w", err)
		}
		return rules, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, newUsageError(fmt.Sprintf("read deprecations file %q: %v", path, err))
	}
	defer f.Close()
	rules, err := sdkgen.LoadRules(f)
	if err != nil {
		return nil, newUsageError(fmt.Sprintf("deprecations file %q: %v", path, err))
	}
	return rules, nil
}

// specUsageError maps structured spec errors into friendly messages.
func specUsageError(err error) error {
	var se *genspec.SpecError
	if !errors.As(err, &se) {
		return err
	}
	msg := fmt.Sprintf("spec: %s", se.Message)
	if se.Location != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
	}
	if se.JSONPointer != "" {
		msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
	}
	return newUsageError(msg)
}

// Every kind except expired shims means some emitted code is degraded.
func hasBlockingDiagnostics(diags []sdkgen.Diagnostic) bool {
	for _, d := range diags {
		switch d.Kind {
		case sdkgen.UnknownType, sdkgen.UnresolvedRef, sdkgen.UndeclaredPathParam, sdkgen.MissingOperationID:
			return true
		}
	}
	return false
}

func derivePackageName(title string) string {
	name := strcase.ToSnake(strings.TrimSpace(title))
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" || !packageNameRe.MatchString(out) {
		return "sdk"
	}
	return out
}

func printPlan(w io.Writer, outDir string, res *pyemitter.Result) {
	fmt.Fprintf(w, "Planned writes to %s (%d files):\n", outDir, len(res.Planned))
	for _, p := range res.Planned {
		fmt.Fprintf(w, "- %s (%s)\n", p.RelPath, p.Status)
	}
	for _, dir := range res.Removed {
		fmt.Fprintf(w, "- remove %s/\n", dir)
	}
}

func wrapOutputError(err error, outDir string) error {
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}

func sanitizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	// Sorted so the first bad key reported is stable.
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		var err error
		switch normalizeKey(key) {
		case "input":
			cfg.Input, err = valueAsString(value)
		case "out":
			cfg.Out, err = valueAsString(value)
		case "package", "packagename":
			cfg.Package, err = valueAsString(value)
		case "version":
			cfg.Version, err = valueAsString(value)
		case "deprecations":
			cfg.Deprecations, err = valueAsString(value)
		case "docbaseurl":
			cfg.DocBaseURL, err = valueAsString(value)
		case "nestedsegment":
			cfg.NestedSegment, err = valueAsString(value)
		case "includetags":
			cfg.IncludeTags, err = valueAsStringSlice(value)
		case "excludetags":
			cfg.ExcludeTags, err = valueAsStringSlice(value)
		case "pathpatterns", "pathpattern":
			cfg.PathPatterns, err = valueAsStringSlice(value)
		case "filefields":
			cfg.FileFields, err = valueAsStringSlice(value)
		case "renames":
			cfg.Renames, err = valueAsStringMap(value)
		case "strict":
			cfg.Strict, err = valueAsBool(value)
		case "dryrun":
			cfg.DryRun, err = valueAsBool(value)
		case "force":
			cfg.Force, err = valueAsBool(value)
		case "clean":
			cfg.Clean, err = valueAsBool(value)
		case "verbose":
			cfg.Verbose, err = valueAsBool(value)
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
		if err != nil {
			return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
		}
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsStringMap(v any) (map[string]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		out := make(map[string]string, len(val))
		for k, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[strings.TrimSpace(k)] = str
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected mapping, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
