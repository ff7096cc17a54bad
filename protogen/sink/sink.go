// Package sink provides the destinations generated schemas are written to.
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// OutputSink receives generated files. Implementations must be safe for
// concurrent calls.
type OutputSink interface {
	// WriteFile stores content under a relative, slash-separated path.
	WriteFile(ctx context.Context, path string, content []byte) error
}

// Layout directories created under the output root.
const (
	ProtoDir = "proto"
	JavaDir  = "java"
)

// FilesystemSink writes files below Root.
type FilesystemSink struct {
	Root string

	// Mode is the permission of written files. Zero means 0644.
	Mode os.FileMode

	// Overwrite replaces existing files. When false, writing to an existing
	// path fails.
	Overwrite bool
}

// NewFilesystemSink returns a sink that overwrites files below root.
func NewFilesystemSink(root string) *FilesystemSink {
	return &FilesystemSink{Root: root, Mode: 0o644, Overwrite: true}
}

// Skeleton creates the output directory layout: the proto directory and the
// java source directory of the target package, e.g. "java/com/example/api"
// for "com.example.api". It returns the created directories relative to Root.
func (s *FilesystemSink) Skeleton(targetPackage string) ([]string, error) {
	dirs := []string{ProtoDir}
	if targetPackage != "" {
		dirs = append(dirs, JavaDir+"/"+strings.ReplaceAll(targetPackage, ".", "/"))
	}
	for _, d := range dirs {
		if err := ValidatePath(d); err != nil {
			return nil, fmt.Errorf("invalid layout directory %q: %w", d, err)
		}
		if err := os.MkdirAll(filepath.Join(s.Root, filepath.FromSlash(d)), 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", d, err)
		}
	}
	return dirs, nil
}

// WriteFile writes content atomically: the data goes to a temp file in the
// destination directory which is then renamed (or linked, without
// Overwrite) into place.
func (s *FilesystemSink) WriteFile(ctx context.Context, path string, content []byte) error {
	if err := ValidatePath(path); err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".restproto-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	discard := func() { _ = os.Remove(tmpPath) }

	_, werr := tmp.Write(content)
	cerr := tmp.Close()
	if werr != nil {
		discard()
		return fmt.Errorf("write %s: %w", path, werr)
	}
	if cerr != nil {
		discard()
		return fmt.Errorf("close %s: %w", path, cerr)
	}

	mode := s.Mode
	if mode == 0 {
		mode = 0o644
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		discard()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		discard()
		return err
	}

	if s.Overwrite {
		if err := os.Rename(tmpPath, full); err != nil {
			discard()
			return fmt.Errorf("rename %s: %w", path, err)
		}
		return nil
	}

	// Link fails with EEXIST instead of replacing the target.
	err = os.Link(tmpPath, full)
	discard()
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("file already exists: %q", path)
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return nil
}

// resolve joins path to Root and rejects results outside Root.
func (s *FilesystemSink) resolve(path string) (string, error) {
	full := filepath.Join(s.Root, filepath.FromSlash(path))
	absRoot, err := filepath.Abs(s.Root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	absPath, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if absPath != absRoot && !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root directory: %q", path)
	}
	return full, nil
}

// MemorySink keeps written files in memory.
type MemorySink struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

// WriteFile stores a copy of content.
func (s *MemorySink) WriteFile(ctx context.Context, path string, content []byte) error {
	if err := ValidatePath(path); err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data := append([]byte(nil), content...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
	return nil
}

// Get returns a copy of the file at path, or nil.
func (s *MemorySink) Get(path string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[path]
	if !ok {
		return nil
	}
	return append([]byte(nil), data...)
}

// Paths returns the stored paths in sorted order.
func (s *MemorySink) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Sources returns the stored files as strings keyed by path, the shape
// protocompile's map accessor expects.
func (s *MemorySink) Sources() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.files))
	for p, data := range s.files {
		out[p] = string(data)
	}
	return out
}

// ValidatePath reports whether path is a clean, relative, slash-separated
// path that stays inside the sink root.
func ValidatePath(path string) error {
	switch {
	case path == "":
		return errors.New("path is empty")
	case filepath.IsAbs(path) || strings.HasPrefix(path, "/"):
		return errors.New("absolute paths not allowed")
	case len(path) >= 2 && path[1] == ':' && isLetter(path[0]):
		return errors.New("absolute paths not allowed")
	case strings.Contains(path, ".."):
		return errors.New("path traversal not allowed")
	}
	slashed := filepath.ToSlash(path)
	if cleaned := filepath.ToSlash(filepath.Clean(slashed)); cleaned != slashed {
		return fmt.Errorf("path is not clean (expected %q, got %q)", cleaned, path)
	}
	return nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
