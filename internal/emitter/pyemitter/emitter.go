package pyemitter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mark3labs/swagger2sdk/internal/sdkgen"
)

// Options controls how generated files are written.
type Options struct {
	OutDir string // required; directory that will contain the package folder
	Force  bool   // allow writing into a non-empty directory
	DryRun bool   // don't write, only plan
	// Clean removes the generated top-level folders before writing, so modules
	// that are no longer produced disappear. Hand-written files next to them
	// are left alone.
	Clean  bool
	Logger *slog.Logger
}

// FileStatus says what happened, or would happen, to a planned file.
type FileStatus string

const (
	StatusCreate    FileStatus = "create"
	StatusUpdate    FileStatus = "update"
	StatusUnchanged FileStatus = "unchanged"
)

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
	Status  FileStatus
}

// Result returns the planned files and what was done with them.
type Result struct {
	Planned []PlannedFile
	Written int
	// Removed lists the folders deleted by Clean, relative to OutDir.
	Removed []string
}

const fileMode os.FileMode = 0o644

// Emit writes files under opts.OutDir. Files whose content is already on disk
// are not rewritten.
func Emit(ctx context.Context, files []sdkgen.File, opts Options) (*Result, error) {
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("pyemitter: OutDir is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(opts.OutDir)
	if err != nil {
		return nil, fmt.Errorf("pyemitter: resolve output directory: %w", err)
	}
	if err := validateOutputDirectory(abs, opts.Force); err != nil {
		return nil, err
	}

	contents := make(map[string][]byte, len(files))
	for _, f := range files {
		rel, err := cleanRelPath(f.RelPath)
		if err != nil {
			return nil, err
		}
		if _, dup := contents[rel]; dup {
			return nil, fmt.Errorf("pyemitter: file %s planned twice", rel)
		}
		contents[rel] = []byte(f.Content)
	}

	res := &Result{}
	if opts.Clean {
		res.Removed = generatedRoots(contents)
		if !opts.DryRun {
			for _, dir := range res.Removed {
				if err := os.RemoveAll(filepath.Join(abs, filepath.FromSlash(dir))); err != nil {
					return nil, fmt.Errorf("pyemitter: clean %s: %w", dir, err)
				}
				logger.Debug("removed generated folder", "dir", dir)
			}
		}
	}

	// Plan in deterministic order
	rels := make([]string, 0, len(contents))
	for rel := range contents {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		status, err := compareExisting(filepath.Join(abs, filepath.FromSlash(rel)), contents[rel])
		if err != nil {
			return nil, fmt.Errorf("pyemitter: inspect %s: %w", rel, err)
		}
		// a dry run does not clean, so report what the clean would cause
		if opts.Clean && opts.DryRun && isUnder(rel, res.Removed) {
			status = StatusCreate
		}
		res.Planned = append(res.Planned, PlannedFile{
			RelPath: rel,
			Size:    len(contents[rel]),
			Mode:    fileMode,
			Status:  status,
		})
	}

	if opts.DryRun {
		return res, nil
	}

	if err := createDirectoryStructure(abs, rels); err != nil {
		return nil, fmt.Errorf("pyemitter: create directory structure: %w", err)
	}
	for _, p := range res.Planned {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p.Status == StatusUnchanged {
			continue
		}
		if err := writeFileAtomic(abs, p.RelPath, contents[p.RelPath]); err != nil {
			return nil, fmt.Errorf("pyemitter: write file %s: %w", p.RelPath, err)
		}
		res.Written++
		logger.Debug("wrote file", "path", p.RelPath, "status", string(p.Status), "bytes", p.Size)
	}
	return res, nil
}

func cleanRelPath(rel string) (string, error) {
	rel = path.Clean(filepath.ToSlash(rel))
	if rel == "." || path.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("pyemitter: invalid relative path %q", rel)
	}
	return rel, nil
}

// generatedRoots returns the folders directly under each package directory
// that the plan writes into, such as "mistapi/api".
func generatedRoots(contents map[string][]byte) []string {
	seen := map[string]bool{}
	for rel := range contents {
		parts := strings.SplitN(rel, "/", 3)
		if len(parts) < 3 {
			continue
		}
		seen[parts[0]+"/"+parts[1]] = true
	}
	out := make([]string, 0, len(seen))
	for dir := range seen {
		out = append(out, dir)
	}
	sort.Strings(out)
	return out
}

func isUnder(rel string, dirs []string) bool {
	for _, d := range dirs {
		if strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}

func compareExisting(fullPath string, content []byte) (FileStatus, error) {
	existing, err := os.ReadFile(fullPath)
	if os.IsNotExist(err) {
		return StatusCreate, nil
	}
	if err != nil {
		return "", err
	}
	if bytes.Equal(existing, content) {
		return StatusUnchanged, nil
	}
	return StatusUpdate, nil
}

// validateOutputDirectory checks if the output directory is valid for writing
func validateOutputDirectory(absPath string, force bool) error {
	stat, err := os.Stat(absPath)
	if os.IsNotExist(err) {
		// Directory doesn't exist, will be created - this is fine
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access output directory %q: %w", absPath, err)
	}
	if !stat.IsDir() {
		return fmt.Errorf("output path %q is not a directory", absPath)
	}
	if force {
		return nil
	}

	entries, err := os.ReadDir(absPath)
	if err != nil {
		return fmt.Errorf("cannot read output directory %q: %w", absPath, err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("output directory %q is not empty (use --force to overwrite)", absPath)
	}
	return nil
}

// createDirectoryStructure creates all necessary directories for the file structure
func createDirectoryStructure(baseDir string, rels []string) error {
	dirs := map[string]bool{}
	for _, rel := range rels {
		if dir := path.Dir(rel); dir != "." {
			dirs[dir] = true
		}
	}
	sorted := make([]string, 0, len(dirs))
	for d := range dirs {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)
	for _, dir := range sorted {
		if err := os.MkdirAll(filepath.Join(baseDir, filepath.FromSlash(dir)), 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// writeFileAtomic writes a file atomically using temporary file + rename
func writeFileAtomic(baseDir, relPath string, content []byte) error {
	fullPath := filepath.Join(baseDir, filepath.FromSlash(relPath))
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure target directory %s: %w", dir, err)
	}

	// Create temporary file in the same directory as the target
	tmpFile, err := os.CreateTemp(dir, ".tmp-swagger2sdk-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", relPath, err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
		}
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(content); err != nil {
		return fmt.Errorf("write content to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Chmod(fileMode); err != nil {
		return fmt.Errorf("set file permissions: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Rename(tmpPath, fullPath); err != nil {
		return fmt.Errorf("atomic rename %s to %s: %w", tmpPath, fullPath, err)
	}
	success = true
	return nil
}
