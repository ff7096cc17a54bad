// Package directive parses restproto directives from Go source files.
//
// Directives are line comments in a declaration's doc comment:
//
//	//rest:path /users            type: resource root path; method: routing path
//	//rest:get [path]             method: HTTP verb (get, post, put, delete, patch, head, options)
//	//rest:produces a/b[,c/d]     type or method: response media types
//	//rest:params path=id&query=q method: framework-bound parameters by name
//
// A named type with a path directive is a resource. A method with a path
// directive and no verb is a sub-resource locator.
package directive

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

// Prefix starts every directive comment.
const Prefix = "//rest:"

// Kind is the directive keyword.
type Kind string

const (
	KindPath     Kind = "path"
	KindVerb     Kind = "verb"
	KindProduces Kind = "produces"
	KindParams   Kind = "params"
)

var verbs = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// Directive is one parsed directive line.
type Directive struct {
	Kind Kind
	Verb string // set for KindVerb
	Arg  string // remainder of the line
	Pos  token.Position
}

// Annotations are the directives attached to one declaration.
type Annotations struct {
	HasPath  bool
	Path     string
	Verb     string
	Produces []string
	Params   Params
	Pos      token.Position
}

// Empty reports whether no directive was found.
func (a *Annotations) Empty() bool {
	return !a.HasPath && a.Verb == "" && len(a.Produces) == 0 && a.Params.Len() == 0
}

// Method is an annotated method.
type Method struct {
	Name        string
	Annotations Annotations
}

// Type is an annotated named type and its annotated methods in source order.
type Type struct {
	Name        string
	Annotations Annotations
	Methods     []Method
}

// IsResource reports whether the type declares a resource path.
func (t *Type) IsResource() bool {
	return t.Annotations.HasPath
}

// Result contains all directives found in a package.
type Result struct {
	// Types are the annotated types sorted by name, including types that
	// only have annotated methods.
	Types []Type

	// PackagePath is the import path of the parsed package.
	PackagePath string

	// Dir is the directory containing the package.
	Dir string
}

// Type returns the annotated type with the given name.
func (r *Result) Type(name string) (*Type, bool) {
	for i := range r.Types {
		if r.Types[i].Name == name {
			return &r.Types[i], true
		}
	}
	return nil, false
}

// ParseDir loads the package matching pattern, relative to dir when dir is
// not empty, and parses its directives.
func ParseDir(pattern, dir string) (*Result, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles,
		Dir:  dir,
	}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("load package: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found matching %q", pattern)
	}
	if len(pkgs) > 1 {
		return nil, fmt.Errorf("multiple packages found matching %q; specify a single package", pattern)
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkg.Errors[0])
	}

	fset := token.NewFileSet()
	var files []*ast.File
	for _, name := range pkg.GoFiles {
		f, err := parser.ParseFile(fset, name, nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		files = append(files, f)
	}

	result, err := ParseFiles(fset, files)
	if err != nil {
		return nil, err
	}
	result.PackagePath = pkg.PkgPath
	if len(pkg.GoFiles) > 0 {
		result.Dir = filepath.Dir(pkg.GoFiles[0])
	}
	return result, nil
}

// ParseFiles extracts directives from already parsed files of one package.
// Directives must sit in the doc comment of a type or method declaration.
func ParseFiles(fset *token.FileSet, files []*ast.File) (*Result, error) {
	types := make(map[string]*Type)
	get := func(name string) *Type {
		t, ok := types[name]
		if !ok {
			t = &Type{Name: name}
			types[name] = t
		}
		return t
	}

	for _, f := range files {
		attached := make(map[*ast.CommentGroup]bool)

		for _, decl := range f.Decls {
			switch decl := decl.(type) {
			case *ast.GenDecl:
				if decl.Tok != token.TYPE {
					continue
				}
				for _, spec := range decl.Specs {
					ts := spec.(*ast.TypeSpec)
					doc := ts.Doc
					if doc == nil && len(decl.Specs) == 1 {
						doc = decl.Doc
					}
					if doc == nil {
						continue
					}
					attached[doc] = true
					a, err := ParseGroup(fset, doc)
					if err != nil {
						return nil, err
					}
					if a.Empty() {
						continue
					}
					if a.Verb != "" || a.Params.Len() > 0 {
						return nil, fmt.Errorf("%s: only //rest:path and //rest:produces apply to types", a.Pos)
					}
					get(ts.Name.Name).Annotations = a
				}

			case *ast.FuncDecl:
				if decl.Doc == nil {
					continue
				}
				attached[decl.Doc] = true
				a, err := ParseGroup(fset, decl.Doc)
				if err != nil {
					return nil, err
				}
				if a.Empty() {
					continue
				}
				recv := ReceiverName(decl)
				if recv == "" {
					return nil, fmt.Errorf("%s: //rest: directives on function %s need a method receiver", a.Pos, decl.Name.Name)
				}
				t := get(recv)
				t.Methods = append(t.Methods, Method{Name: decl.Name.Name, Annotations: a})
			}
		}

		for _, cg := range f.Comments {
			if attached[cg] {
				continue
			}
			for _, c := range cg.List {
				if strings.HasPrefix(c.Text, Prefix) {
					return nil, fmt.Errorf("%s: directive must be followed by a type or method declaration",
						fset.Position(c.Pos()))
				}
			}
		}
	}

	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)

	result := &Result{}
	for _, name := range names {
		result.Types = append(result.Types, *types[name])
	}
	return result, nil
}

// ParseGroup parses every directive in a comment group.
func ParseGroup(fset *token.FileSet, cg *ast.CommentGroup) (Annotations, error) {
	var a Annotations
	for _, c := range cg.List {
		if !strings.HasPrefix(c.Text, Prefix) {
			continue
		}
		pos := fset.Position(c.Pos())
		d, err := ParseLine(c.Text)
		if err != nil {
			return Annotations{}, fmt.Errorf("%s: %w", pos, err)
		}
		d.Pos = pos
		if a.Pos.Line == 0 {
			a.Pos = pos
		}
		if err := a.apply(d); err != nil {
			return Annotations{}, fmt.Errorf("%s: %w", pos, err)
		}
	}
	return a, nil
}

func (a *Annotations) apply(d Directive) error {
	switch d.Kind {
	case KindPath:
		if a.HasPath {
			return fmt.Errorf("duplicate //rest:path")
		}
		a.HasPath = true
		a.Path = d.Arg
	case KindVerb:
		if a.Verb != "" {
			return fmt.Errorf("multiple HTTP verbs: %s and %s", a.Verb, d.Verb)
		}
		a.Verb = d.Verb
		if d.Arg != "" {
			if a.HasPath {
				return fmt.Errorf("path given both in //rest:%s and //rest:path", strings.ToLower(d.Verb))
			}
			a.HasPath = true
			a.Path = d.Arg
		}
	case KindProduces:
		for _, mt := range strings.Split(d.Arg, ",") {
			if mt = strings.TrimSpace(mt); mt != "" {
				a.Produces = append(a.Produces, mt)
			}
		}
	case KindParams:
		p, err := ParseParams(d.Arg)
		if err != nil {
			return err
		}
		a.Params = a.Params.merge(p)
	}
	return nil
}

// ParseLine parses a single "//rest:" comment.
func ParseLine(text string) (Directive, error) {
	rest, ok := strings.CutPrefix(text, Prefix)
	if !ok {
		return Directive{}, fmt.Errorf("not a directive: %q", text)
	}
	keyword, arg, _ := strings.Cut(strings.TrimSpace(rest), " ")
	arg = strings.TrimSpace(arg)

	switch {
	case keyword == "":
		return Directive{}, fmt.Errorf("empty directive")
	case keyword == string(KindPath):
		return Directive{Kind: KindPath, Arg: arg}, nil
	case keyword == string(KindProduces):
		if arg == "" {
			return Directive{}, fmt.Errorf("//rest:produces needs a media type")
		}
		return Directive{Kind: KindProduces, Arg: arg}, nil
	case keyword == string(KindParams):
		return Directive{Kind: KindParams, Arg: arg}, nil
	case verbs[strings.ToUpper(keyword)]:
		return Directive{Kind: KindVerb, Verb: strings.ToUpper(keyword), Arg: arg}, nil
	default:
		return Directive{}, fmt.Errorf("unknown directive //rest:%s", keyword)
	}
}

// ReceiverName returns the base type name of a method's receiver, or "" for
// plain functions.
func ReceiverName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	expr := fn.Recv.List[0].Type
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.ParenExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.Ident:
			return e.Name
		default:
			return ""
		}
	}
}
