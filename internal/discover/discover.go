// Package discover finds REST resource types in Go packages.
//
// A resource is a named type whose doc comment carries a //rest:path
// directive. Its routable methods are the methods with a verb or path
// directive.
package discover

import (
	"errors"
	"fmt"
	"go/token"
	"go/types"
	"sort"

	"golang.org/x/tools/go/packages"

	"github.com/broady/restproto/internal/directive"
)

// ErrNoResources is returned by Select when nothing matches.
var ErrNoResources = errors.New("no resources found")

// LoadMode is the go/packages mode needed to discover and resolve resources.
const LoadMode = packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
	packages.NeedTypes | packages.NeedTypesInfo | packages.NeedModule | packages.NeedImports |
	packages.NeedDeps

// Method is a routable method of a resource.
type Method struct {
	Func        *types.Func
	Annotations directive.Annotations
}

// Resource is a discovered resource type.
type Resource struct {
	Type        *types.TypeName
	Annotations directive.Annotations
	Methods     []Method
	Pos         token.Position
}

// QualifiedName returns "<package path>.<type name>".
func (r *Resource) QualifiedName() string {
	return r.Type.Pkg().Path() + "." + r.Type.Name()
}

// Result contains the loaded packages and the resources found in them.
type Result struct {
	Packages  []*packages.Package
	Resources []Resource

	// ModulePath and ModuleDir describe the module of the first package.
	ModulePath string
	ModuleDir  string
}

// Find loads the packages matching patterns and collects their resources.
func Find(patterns ...string) (*Result, error) {
	return FindDir("", patterns...)
}

// FindDir is like Find but loads relative to dir.
func FindDir(dir string, patterns ...string) (*Result, error) {
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	cfg := &packages.Config{Mode: LoadMode, Dir: dir}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found matching %v", patterns)
	}
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, fmt.Errorf("package %s: %v", pkg.PkgPath, pkg.Errors[0])
		}
	}

	result := &Result{Packages: pkgs}
	if m := pkgs[0].Module; m != nil {
		result.ModulePath = m.Path
		result.ModuleDir = m.Dir
	}

	for _, pkg := range pkgs {
		found, err := FromPackage(pkg)
		if err != nil {
			return nil, err
		}
		result.Resources = append(result.Resources, found...)
	}
	sort.Slice(result.Resources, func(i, j int) bool {
		return result.Resources[i].QualifiedName() < result.Resources[j].QualifiedName()
	})
	return result, nil
}

// FromPackage returns the resources declared in one loaded package. The
// package must have been loaded with syntax and types.
func FromPackage(pkg *packages.Package) ([]Resource, error) {
	parsed, err := directive.ParseFiles(pkg.Fset, pkg.Syntax)
	if err != nil {
		return nil, err
	}

	scope := pkg.Types.Scope()
	var out []Resource
	for _, dt := range parsed.Types {
		obj, ok := scope.Lookup(dt.Name).(*types.TypeName)
		if !ok {
			return nil, fmt.Errorf("%s: %s is not a package-level type", pkg.PkgPath, dt.Name)
		}
		if !dt.IsResource() {
			if len(dt.Methods) > 0 {
				return nil, fmt.Errorf("%s: methods of %s carry //rest: directives but the type has no //rest:path",
					dt.Methods[0].Annotations.Pos, dt.Name)
			}
			continue
		}

		r := Resource{
			Type:        obj,
			Annotations: dt.Annotations,
			Pos:         pkg.Fset.Position(obj.Pos()),
		}
		for _, dm := range dt.Methods {
			fn := lookupMethod(obj, dm.Name)
			if fn == nil {
				return nil, fmt.Errorf("%s: method %s.%s not found", dm.Annotations.Pos, dt.Name, dm.Name)
			}
			r.Methods = append(r.Methods, Method{Func: fn, Annotations: dm.Annotations})
		}
		out = append(out, r)
	}
	return out, nil
}

// lookupMethod finds a method declared on the named type or its pointer.
func lookupMethod(obj *types.TypeName, name string) *types.Func {
	named, ok := obj.Type().(*types.Named)
	if !ok {
		return nil
	}
	for i := 0; i < named.NumMethods(); i++ {
		if m := named.Method(i); m.Name() == name {
			return m
		}
	}
	return nil
}

// Select returns the resources whose qualified or bare name is in names.
// With no names every resource is returned.
func Select(resources []Resource, names ...string) ([]Resource, error) {
	if len(resources) == 0 {
		return nil, ErrNoResources
	}
	if len(names) == 0 {
		return resources, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Resource
	for _, r := range resources {
		if want[r.QualifiedName()] || want[r.Type.Name()] {
			out = append(out, r)
			delete(want, r.QualifiedName())
			delete(want, r.Type.Name())
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for n := range want {
			missing = append(missing, n)
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %v", ErrNoResources, missing)
	}
	return out, nil
}
