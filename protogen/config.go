package protogen

import (
	"context"
	"log/slog"

	"github.com/broady/restproto/internal/extraclass"
	"github.com/broady/restproto/protogen/sink"
)

// Generator provides a fluent API for schema generation.
// Create with FromModel() or FromSource() and configure with method chaining.
//
// Example:
//
//	protogen.FromSource("./api").
//	    Packages("com.example.api", "example.api.v1").
//	    OuterName("Shop").
//	    Verify().
//	    ToDir(ctx, "./gen")
type Generator struct {
	cfg Config
}

// FromModel creates a Generator that reads YAML model documents below root.
func FromModel(root string) *Generator {
	return &Generator{cfg: Config{SourceRoot: root, Provider: ProviderModel}}
}

// FromSource creates a Generator that analyzes the Go packages below root.
func FromSource(root string) *Generator {
	return &Generator{cfg: Config{SourceRoot: root, Provider: ProviderSource}}
}

// Packages sets the Java target package and the proto wire package.
func (g *Generator) Packages(target, wire string) *Generator {
	g.cfg.TargetPackage = target
	g.cfg.WirePackage = wire
	return g
}

// OuterName sets the outer type name.
func (g *Generator) OuterName(name string) *Generator {
	g.cfg.OuterName = name
	return g
}

// Archives adds model archives.
func (g *Generator) Archives(paths ...string) *Generator {
	g.cfg.Archives = append(g.cfg.Archives, paths...)
	return g
}

// ExtraClasses adds classes to emit regardless of reachability.
func (g *Generator) ExtraClasses(specs ...extraclass.Spec) *Generator {
	g.cfg.ExtraClasses = append(g.cfg.ExtraClasses, specs...)
	return g
}

// Import adds proto imports after the standard ones.
func (g *Generator) Import(files ...string) *Generator {
	g.cfg.Imports = append(g.cfg.Imports, files...)
	return g
}

// Verify compiles the schema before it is written.
func (g *Generator) Verify() *Generator {
	g.cfg.Verify = true
	return g
}

// Logger sets the logger.
func (g *Generator) Logger(l *slog.Logger) *Generator {
	g.cfg.Logger = l
	return g
}

// Config returns a copy of the accumulated configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// ToDir generates files to the specified directory.
// This is a terminal operation that writes files to disk.
func (g *Generator) ToDir(ctx context.Context, dir string) (*GenerateResult, error) {
	cfg := g.cfg
	cfg.OutDir = dir
	return Generate(ctx, &cfg)
}

// ToSink generates files into s.
func (g *Generator) ToSink(ctx context.Context, s sink.OutputSink) (*GenerateResult, error) {
	cfg := g.cfg
	cfg.Sink = s
	return Generate(ctx, &cfg)
}

// Generate returns generated files in memory without writing them.
func (g *Generator) Generate(ctx context.Context) (*GenerateResult, error) {
	cfg := g.cfg
	return Generate(ctx, &cfg)
}
