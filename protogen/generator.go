// Package protogen compiles REST resource classes into a single proto3
// schema and the mappings side file consumed by the runtime translator.
package protogen

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/broady/restproto/internal/extraclass"
	"github.com/broady/restproto/protogen/idl"
	"github.com/broady/restproto/protogen/ir"
	"github.com/broady/restproto/protogen/protocheck"
	"github.com/broady/restproto/protogen/provider"
	"github.com/broady/restproto/protogen/schema"
	"github.com/broady/restproto/protogen/sink"
)

// Providers.
const (
	ProviderModel  = "model"
	ProviderSource = "source"
)

// Config holds the configuration for schema generation.
type Config struct {
	// SourceRoot is the directory resources and classes are loaded from.
	SourceRoot string `validate:"required"`

	// TargetPackage is the Java package of generated code, e.g. "com.example.api".
	TargetPackage string `validate:"required,dotted"`

	// WirePackage is the proto package, e.g. "example.api.v1".
	WirePackage string `validate:"required,dotted"`

	// OuterName names the proto file, the service and the outer class.
	OuterName string `validate:"required,ident"`

	// Provider selects how the source root is read.
	// "model" (default) - YAML model documents
	// "source" - Go packages with //rest: directives
	Provider string `validate:"omitempty,oneof=model source"`

	// Archives are additional model documents, directories or glob patterns.
	// Only used by the model provider.
	Archives []string

	// ExtraClasses are emitted even when no resource method references them.
	// Relative directories are resolved against SourceRoot.
	ExtraClasses []extraclass.Spec

	// Imports are extra proto imports added after the standard ones.
	Imports []string `validate:"dive,required,endswith=.proto"`

	// OutDir is the output root. The schema goes to "<OutDir>/proto" and the
	// java package directory is created under "<OutDir>/java". With neither
	// OutDir nor Sink the output is only returned.
	OutDir string

	// Sink receives the generated files instead of OutDir when set.
	Sink sink.OutputSink `validate:"-"`

	// Verify compiles the generated schema before returning. Extra imports
	// are resolved from "<OutDir>/proto".
	Verify bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger `validate:"-"`
}

// GenerateResult describes a generation run.
type GenerateResult struct {
	// Files maps output paths, relative to OutDir, to their content.
	Files map[string][]byte

	// ProtoPath and MappingsPath are the keys of the two generated files.
	ProtoPath    string
	MappingsPath string

	// Dirs are the skeleton directories created under OutDir.
	Dirs []string

	// Schema is the assembled schema.
	Schema *schema.Output

	// Summary is set when the schema was verified.
	Summary *protocheck.Summary

	Warnings []string
}

// Model is a loaded source: a class resolver plus the resources to expose.
type Model interface {
	ir.Resolver
	Resources() []ir.ResourceClass
}

var configValidate = func() *validator.Validate {
	v := validator.New()
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(v.RegisterValidation("ident", func(fl validator.FieldLevel) bool {
		return isIdent(fl.Field().String())
	}))
	must(v.RegisterValidation("dotted", func(fl validator.FieldLevel) bool {
		return isDotted(fl.Field().String())
	}))
	return v
}()

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if len(c.Archives) > 0 && c.Provider == ProviderSource {
		return errors.New("invalid config: archives are only supported by the model provider")
	}
	return nil
}

// Generate loads the configured source, builds the schema and writes it.
func Generate(ctx context.Context, cfg *Config) (*GenerateResult, error) {
	cfg = applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	start := time.Now()

	model, extras, err := loadModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.SourceRoot, err)
	}

	out, err := schema.Build(model, model.Resources(), schema.Options{
		TargetPackage: cfg.TargetPackage,
		WirePackage:   cfg.WirePackage,
		OuterName:     cfg.OuterName,
		Imports:       cfg.Imports,
		ExtraClasses:  extras,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}

	mappings, err := out.Mappings.JSON()
	if err != nil {
		return nil, fmt.Errorf("encode mappings: %w", err)
	}
	result := &GenerateResult{
		Files:        make(map[string][]byte, 2),
		ProtoPath:    path.Join(sink.ProtoDir, schema.FileName(cfg.OuterName)),
		MappingsPath: path.Join(sink.ProtoDir, schema.MappingsFileName(cfg.OuterName)),
		Schema:       out,
		Warnings:     out.Warnings,
	}
	result.Files[result.ProtoPath] = idl.Bytes(out.File)
	result.Files[result.MappingsPath] = mappings

	if cfg.Verify {
		summary, err := verify(ctx, cfg, out.File.Name, result.Files[result.ProtoPath])
		if err != nil {
			return nil, err
		}
		result.Summary = &summary
	}

	dst := cfg.Sink
	if dst == nil && cfg.OutDir != "" {
		fsSink := sink.NewFilesystemSink(cfg.OutDir)
		if result.Dirs, err = fsSink.Skeleton(cfg.TargetPackage); err != nil {
			return nil, err
		}
		dst = fsSink
	}
	if dst != nil {
		for _, p := range []string{result.ProtoPath, result.MappingsPath} {
			if err := dst.WriteFile(ctx, p, result.Files[p]); err != nil {
				return nil, fmt.Errorf("write %s: %w", p, err)
			}
		}
	}

	logger.Info("generated schema",
		slog.String("proto", result.ProtoPath),
		slog.String("out", cfg.OutDir),
		slog.Int("warnings", len(result.Warnings)),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

// applyConfigDefaults applies default values to Config.
func applyConfigDefaults(cfg *Config) *Config {
	result := *cfg

	if result.Provider == "" {
		result.Provider = ProviderModel
	}
	if result.Logger == nil {
		result.Logger = slog.Default()
	}
	return &result
}

// loadModel loads the configured provider and returns it together with the
// qualified names of the extra classes.
func loadModel(ctx context.Context, cfg *Config) (Model, []string, error) {
	switch cfg.Provider {
	case ProviderSource:
		p := &provider.SourceProvider{
			Dir:          cfg.SourceRoot,
			ExtraClasses: cfg.ExtraClasses,
			Logger:       cfg.Logger,
		}
		m, err := p.Load(ctx)
		if err != nil {
			return nil, nil, err
		}
		return m, m.ExtraClasses(), nil

	case ProviderModel:
		p := &provider.ModelProvider{
			Root:     cfg.SourceRoot,
			Archives: append([]string(nil), cfg.Archives...),
			Logger:   cfg.Logger,
		}
		var extras []string
		for _, ec := range cfg.ExtraClasses {
			dir := ec.Dir
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(cfg.SourceRoot, dir)
			}
			p.Archives = append(p.Archives, dir)
			extras = append(extras, ec.QualifiedName)
		}
		m, err := p.Load(ctx)
		if err != nil {
			return nil, nil, err
		}
		return m, extras, nil

	default:
		return nil, nil, fmt.Errorf("unknown provider: %q (expected %q or %q)", cfg.Provider, ProviderModel, ProviderSource)
	}
}

// verify compiles the generated file. Extra imports are read from the proto
// output directory when present there.
func verify(ctx context.Context, cfg *Config, name string, content []byte) (protocheck.Summary, error) {
	sources := map[string]string{name: string(content)}
	if cfg.OutDir != "" {
		protoDir := os.DirFS(filepath.Join(cfg.OutDir, sink.ProtoDir))
		for _, imp := range cfg.Imports {
			data, err := fs.ReadFile(protoDir, imp)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return protocheck.Summary{}, fmt.Errorf("read import %s: %w", imp, err)
			}
			sources[imp] = string(data)
		}
	}
	fd, err := protocheck.CompileSources(ctx, sources, name)
	if err != nil {
		return protocheck.Summary{}, fmt.Errorf("verify schema: %w", err)
	}
	summary := protocheck.Summarize(fd[0])
	cfg.Logger.Debug("verified schema",
		slog.String("path", summary.Path),
		slog.Int("messages", summary.Messages),
		slog.Int("rpcs", summary.Methods))
	return summary, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func isDotted(s string) bool {
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '.' {
			if !isIdent(s[start:i]) {
				return false
			}
			start = i + 1
		}
	}
	return true
}
