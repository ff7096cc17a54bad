// Package protocheck compiles generated proto3 text to make sure it parses
// and links: every referenced message exists, field numbers and names are
// unique, and the standard imports resolve.
package protocheck

import (
	"context"
	"errors"
	"fmt"

	"github.com/bufbuild/protocompile"
	"github.com/bufbuild/protocompile/linker"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// ErrNoFiles is returned when there is nothing to compile.
var ErrNoFiles = errors.New("protocheck: no files")

// CompileSource compiles one in-memory file and returns its descriptor.
func CompileSource(ctx context.Context, name string, content []byte) (protoreflect.FileDescriptor, error) {
	files, err := CompileSources(ctx, map[string]string{name: string(content)}, name)
	if err != nil {
		return nil, err
	}
	return files[0], nil
}

// CompileSources compiles the named entries of an in-memory file set. Files
// may import each other and the google/protobuf well-known types.
func CompileSources(ctx context.Context, sources map[string]string, names ...string) ([]protoreflect.FileDescriptor, error) {
	if len(names) == 0 {
		return nil, ErrNoFiles
	}
	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			Accessor: protocompile.SourceAccessorFromMap(sources),
		}),
	}
	return compile(ctx, compiler, names)
}

// CompileFiles compiles files from disk. Paths are resolved against
// importPaths; with no import paths they are opened as given.
func CompileFiles(ctx context.Context, paths []string, importPaths []string) ([]protoreflect.FileDescriptor, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			ImportPaths: importPaths,
		}),
	}
	return compile(ctx, compiler, paths)
}

func compile(ctx context.Context, compiler protocompile.Compiler, names []string) ([]protoreflect.FileDescriptor, error) {
	compiled, err := compiler.Compile(ctx, names...)
	if err != nil {
		return nil, fmt.Errorf("compile proto: %w", err)
	}
	out := make([]protoreflect.FileDescriptor, 0, len(compiled))
	for _, f := range compiled {
		out = append(out, f)
	}
	return out, nil
}

// Summary counts the top-level declarations of a compiled file.
type Summary struct {
	Path     string
	Package  string
	Messages int
	Services int
	Methods  int
}

// Summarize returns the declaration counts of fd.
func Summarize(fd protoreflect.FileDescriptor) Summary {
	s := Summary{
		Path:     fd.Path(),
		Package:  string(fd.Package()),
		Messages: fd.Messages().Len(),
		Services: fd.Services().Len(),
	}
	for i := 0; i < fd.Services().Len(); i++ {
		s.Methods += fd.Services().Get(i).Methods().Len()
	}
	return s
}

var _ protoreflect.FileDescriptor = (linker.File)(nil)
