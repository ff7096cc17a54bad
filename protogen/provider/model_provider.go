package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/broady/restproto/protogen/ir"
)

// ModelPattern matches model documents below a source root.
const ModelPattern = "**/*.{yaml,yml}"

var validate = validator.New()

// Document is one YAML model document.
type Document struct {
	// Package qualifies unqualified class names in this document.
	Package string `yaml:"package"`

	// Interfaces declares external names that have no model declaration and
	// are represented opaquely.
	Interfaces []string `yaml:"interfaces"`

	Classes   []ClassDecl    `yaml:"classes" validate:"dive"`
	Resources []ResourceDecl `yaml:"resources" validate:"dive"`
}

// ClassDecl declares a class, interface, abstract class or record.
type ClassDecl struct {
	Name           string      `yaml:"name" validate:"required"`
	Kind           string      `yaml:"kind" validate:"omitempty,oneof=class interface abstract record"`
	Nesting        string      `yaml:"nesting" validate:"omitempty,oneof=top public hidden"`
	Superclass     string      `yaml:"superclass"`
	TypeParameters []string    `yaml:"typeParameters"`
	Fields         []FieldDecl `yaml:"fields" validate:"dive"`
	Components     []FieldDecl `yaml:"components" validate:"dive"`
	InternalTypes  []string    `yaml:"internalTypes"`
}

// FieldDecl declares a field or record component.
type FieldDecl struct {
	Name string `yaml:"name" validate:"required"`
	Type string `yaml:"type" validate:"required"`
}

// ResourceDecl declares a resource class.
type ResourceDecl struct {
	Name     string       `yaml:"name" validate:"required"`
	Path     string       `yaml:"path"`
	Produces []string     `yaml:"produces"`
	Methods  []MethodDecl `yaml:"methods" validate:"dive"`
}

// MethodDecl declares a resource method. A nil Path means no routing
// annotation, which differs from an empty one.
type MethodDecl struct {
	Name     string      `yaml:"name" validate:"required"`
	Verb     string      `yaml:"verb" validate:"omitempty,oneof=GET POST PUT DELETE PATCH HEAD OPTIONS get post put delete patch head options"`
	Path     *string     `yaml:"path"`
	Produces []string    `yaml:"produces"`
	Params   []ParamDecl `yaml:"params" validate:"dive"`
	Returns  string      `yaml:"returns"`
}

// ParamDecl declares a method parameter.
type ParamDecl struct {
	Name    string `yaml:"name" validate:"required"`
	Type    string `yaml:"type" validate:"required"`
	Binding string `yaml:"binding" validate:"omitempty,oneof=entity header cookie path query matrix form context suspended"`
}

// ModelProvider builds the resolved object model from YAML documents.
type ModelProvider struct {
	// Root is searched for documents matching ModelPattern.
	Root string

	// Archives are extra documents: files, directories (searched like Root)
	// or doublestar glob patterns.
	Archives []string

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// Files returns the document paths to load, sorted and without duplicates.
func (p *ModelProvider) Files() ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(paths ...string) {
		for _, path := range paths {
			path = filepath.Clean(path)
			if !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
		}
	}

	if p.Root != "" {
		found, err := globDir(p.Root)
		if err != nil {
			return nil, err
		}
		add(found...)
	}
	for _, a := range p.Archives {
		info, err := os.Stat(a)
		switch {
		case err == nil && info.IsDir():
			found, err := globDir(a)
			if err != nil {
				return nil, err
			}
			add(found...)
		case err == nil:
			add(a)
		default:
			matches, gerr := doublestar.FilepathGlob(a)
			if gerr != nil {
				return nil, fmt.Errorf("archive %q: %w", a, gerr)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("archive %q: %w", a, err)
			}
			add(matches...)
		}
	}
	sort.Strings(files)
	return files, nil
}

func globDir(dir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), ModelPattern)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", dir, err)
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = filepath.Join(dir, filepath.FromSlash(m))
	}
	return out, nil
}

// Load decodes every document concurrently and merges them into one model
// in path order, so later files override earlier declarations of the same
// name deterministically.
func (p *ModelProvider) Load(ctx context.Context) (*ir.Model, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	files, err := p.Files()
	if err != nil {
		return nil, err
	}

	docs := make([]*Document, len(files))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range files {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			doc, err := DecodeDocument(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	model := ir.NewModel()
	for i, doc := range docs {
		m, err := doc.Model()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", files[i], err)
		}
		model.Merge(m)
		logger.Debug("loaded model document",
			slog.String("path", files[i]),
			slog.Int("classes", len(doc.Classes)),
			slog.Int("resources", len(doc.Resources)))
	}
	return model, nil
}

// LoadFS is like Load for documents in an fs.FS, searched with ModelPattern.
func LoadFS(fsys fs.FS) (*ir.Model, error) {
	matches, err := doublestar.Glob(fsys, ModelPattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	model := ir.NewModel()
	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		doc, err := DecodeDocument(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		m, err := doc.Model()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		model.Merge(m)
	}
	return model, nil
}

// DecodeDocument decodes and validates one document. Unknown keys are errors.
func DecodeDocument(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return &doc, nil
}

// Model converts the document to resolved declarations.
func (d *Document) Model() (*ir.Model, error) {
	scope := typeScope{pkg: d.Package, interfaces: make(map[string]bool)}
	for _, name := range d.Interfaces {
		scope.interfaces[name] = true
		scope.interfaces[scope.qualify(name)] = true
	}

	m := ir.NewModel()
	for _, c := range d.Classes {
		desc, err := c.descriptor(scope)
		if err != nil {
			return nil, err
		}
		m.AddClass(desc)
	}
	for _, r := range d.Resources {
		rc, err := r.resource(scope)
		if err != nil {
			return nil, err
		}
		m.AddResource(rc)
	}
	return m, nil
}

func (c *ClassDecl) descriptor(scope typeScope) (*ir.ClassDescriptor, error) {
	name := scope.qualify(c.Name)
	d := &ir.ClassDescriptor{
		QualifiedName:         name,
		IsInterfaceOrAbstract: c.Kind == "interface" || c.Kind == "abstract",
		IsRecord:              c.Kind == "record",
		TypeParameters:        c.TypeParameters,
	}
	switch c.Nesting {
	case "public":
		d.Nesting = ir.PublicNested
	case "hidden":
		d.Nesting = ir.HiddenNested
	}
	if c.Superclass != "" {
		d.Superclass = scope.qualify(c.Superclass)
	}
	for _, it := range c.InternalTypes {
		d.InternalTypes = append(d.InternalTypes, scope.qualify(it))
	}

	inner := scope
	if len(c.TypeParameters) > 0 {
		inner.vars = make(map[string]bool, len(c.TypeParameters))
		for _, v := range c.TypeParameters {
			inner.vars[v] = true
		}
	}

	var err error
	if d.Fields, err = fields(c.Fields, inner, name); err != nil {
		return nil, err
	}
	if d.Components, err = fields(c.Components, inner, name); err != nil {
		return nil, err
	}
	if len(d.Components) > 0 && !d.IsRecord {
		return nil, fmt.Errorf("class %s: components are only allowed on records", name)
	}
	return d, nil
}

func fields(decls []FieldDecl, scope typeScope, owner string) ([]ir.Field, error) {
	var out []ir.Field
	for _, f := range decls {
		t, err := parseType(f.Type, scope)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", owner, f.Name, err)
		}
		out = append(out, ir.Field{Name: f.Name, Type: t})
	}
	return out, nil
}

func (r *ResourceDecl) resource(scope typeScope) (ir.ResourceClass, error) {
	rc := ir.ResourceClass{QualifiedName: scope.qualify(r.Name), Path: r.Path}
	for _, md := range r.Methods {
		decl := ir.MethodDecl{
			Name:     md.Name,
			Verb:     strings.ToUpper(md.Verb),
			Produces: md.Produces,
		}
		if len(decl.Produces) == 0 {
			decl.Produces = r.Produces
		}
		if md.Path != nil {
			decl.HasPath = true
			decl.Path = *md.Path
		}
		for _, pd := range md.Params {
			t, err := parseType(pd.Type, scope)
			if err != nil {
				return rc, fmt.Errorf("%s.%s(%s): %w", rc.QualifiedName, md.Name, pd.Name, err)
			}
			b := ir.Binding(pd.Binding)
			if b == "entity" {
				b = ir.BindEntity
			}
			decl.Params = append(decl.Params, ir.Parameter{Name: pd.Name, Type: t, Binding: b})
		}
		if md.Returns != "" && md.Returns != "void" {
			t, err := parseType(md.Returns, scope)
			if err != nil {
				return rc, fmt.Errorf("%s.%s returns: %w", rc.QualifiedName, md.Name, err)
			}
			decl.Returns = t
		}
		rc.Methods = append(rc.Methods, decl)
	}
	return rc, nil
}
