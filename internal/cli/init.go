package cli

import (
    "context"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "strings"

    "github.com/spf13/cobra"
)

const defaultConfigName = "swagger2sdk.yaml"

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
	Stdout     io.Writer
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
    cmd := &cobra.Command{
        Use:   "init",
        Short: "Scaffold a sample swagger2sdk configuration file",
        Long:  "Scaffold a commented swagger2sdk configuration file that documents available options.",
        RunE: func(cmd *cobra.Command, args []string) error {
            out, err := cmd.Flags().GetString("out")
            if err != nil {
                return err
            }
            force, err := cmd.Flags().GetBool("force")
            if err != nil {
                return err
            }
            verbose, err := cmd.Flags().GetBool("verbose")
            if err != nil {
                return err
            }
            cfg := &InitConfig{
                OutputPath: out,
                Force:      force,
                Verbose:    verbose,
                Stdout:     cmd.OutOrStdout(),
            }
            return initRunner(cmd.Context(), cfg)
        },
    }

    cmd.Flags().String("out", defaultConfigName, "Where to write the sample config file")
    cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

    return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
    _ = ctx

    out := strings.TrimSpace(cfg.OutputPath)
    if out == "" {
        out = defaultConfigName
    }
    absPath, err := filepath.Abs(out)
    if err != nil {
        return fmt.Errorf("init: resolve output path: %w", err)
    }

    if st, err := os.Stat(absPath); err == nil && !cfg.Force {
        if st.Mode().IsRegular() {
            return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
        }
    }

    if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
        return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
    }

    content := strings.TrimSpace(sampleConfigYAML) + "\n"

    // Atomic write via temp + rename
    tmp := absPath + ".tmp"
    if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
        return newUsageError(fmt.Sprintf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err))
    }
    if err := os.Rename(tmp, absPath); err != nil {
        _ = os.Remove(tmp)
        return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
    }
    stdout := cfg.Stdout
    if stdout == nil {
        stdout = os.Stdout
    }
    fmt.Fprintf(stdout, "Wrote sample config to %s\n", absPath)
    return nil
}

// sampleConfigYAML is a commented example config documenting available options.
// Every key line is "# key: value" so uncommenting yields a valid config.
const sampleConfigYAML = `# swagger2sdk configuration (YAML)
# All fields are optional except input and version. Command-line flags
# override config values.

# Path or URL to the Swagger/OpenAPI document (http/https or local file).
# input: ./openapi.yaml

# Directory that will contain the package folder. Defaults to the package name.
# out: ./src

# Python package name. Derived from the spec title when omitted.
# package: mistapi

# Version of the package being generated. Deprecation shims are kept while
# this is lower than their removal version.
# version: 0.52.3

# TOML table of renamed operations. The built-in table is used when omitted.
# deprecations: ./deprecations.toml

# Base URL of the API reference linked from each docstring.
# docBaseUrl: https://www.juniper.net/documentation/us/en/software/mist/api/http/api

# Only include operations with these tags (comma-separated or list).
# includeTags: [Sites, Orgs]

# Exclude operations with these tags (comma-separated or list).
# excludeTags: [Internal]

# Only include paths matching these regular expressions.
# pathPatterns: ["^/api/v1/orgs/"]

# Path segment that adds one more folder level to the module tree.
# nestedSegment: installer

# Path segments renamed before they become Python names.
# renames: {128routers: ssr}

# Multipart fields always treated as file uploads.
# fileFields: [csv, file]

# Fail on spec validation errors and on generation diagnostics.
# strict: false

# Preview planned outputs without writing files.
# dryRun: false

# Write into a non-empty output directory.
# force: false

# Remove previously generated folders before writing.
# clean: false

# Enable verbose logging.
# verbose: false
`
