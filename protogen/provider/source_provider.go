// Package provider builds the resolved object model that the schema compiler
// consumes. ModelProvider reads YAML model documents; SourceProvider analyzes
// Go packages with go/packages.
package provider

import (
	"context"
	"fmt"
	"go/types"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"golang.org/x/tools/go/packages"

	"github.com/broady/restproto/internal/directive"
	"github.com/broady/restproto/internal/discover"
	"github.com/broady/restproto/internal/extraclass"
	"github.com/broady/restproto/protogen/ir"
	"github.com/broady/restproto/protogen/scan"
)

// SuspendedTypeName marks a parameter through which a method completes its
// response asynchronously.
const SuspendedTypeName = "AsyncResponse"

// SourceProvider extracts resources and classes by analyzing Go source code.
type SourceProvider struct {
	// Dir is the directory packages are loaded from.
	Dir string

	// Patterns are go/packages patterns. Defaults to "./...".
	Patterns []string

	// Resources optionally restricts the resources by name.
	Resources []string

	// ExtraClasses are loaded in addition to Patterns. Each Dir is a package
	// directory relative to Dir and the last segment of QualifiedName is
	// looked up in that package.
	ExtraClasses []extraclass.Spec

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// SourceModel is the result of loading Go packages. It resolves classes
// lazily from the loaded type information and is safe for concurrent use.
type SourceModel struct {
	pkgs      map[string]*types.Package
	resources []ir.ResourceClass
	extras    []string

	mu      sync.Mutex
	classes map[string]*ir.ClassDescriptor
}

// Load loads the packages and converts their resources.
func (p *SourceProvider) Load(ctx context.Context) (*SourceModel, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	patterns := append([]string(nil), p.Patterns...)
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	for _, ec := range p.ExtraClasses {
		patterns = append(patterns, packagePattern(ec.Dir))
	}
	found, err := discover.FindDir(p.Dir, patterns...)
	if err != nil {
		return nil, err
	}
	selected, err := discover.Select(found.Resources, p.Resources...)
	if err != nil {
		return nil, err
	}

	m := &SourceModel{
		pkgs:    make(map[string]*types.Package),
		classes: make(map[string]*ir.ClassDescriptor),
	}
	packages.Visit(found.Packages, nil, func(pkg *packages.Package) {
		if pkg.Types != nil {
			m.pkgs[pkg.PkgPath] = pkg.Types
		}
	})

	for _, ec := range p.ExtraClasses {
		name, err := lookupExtra(found.Packages, p.Dir, ec)
		if err != nil {
			return nil, err
		}
		m.extras = append(m.extras, name)
	}

	for _, r := range selected {
		rc, err := convertResource(r)
		if err != nil {
			return nil, err
		}
		m.resources = append(m.resources, rc)
		logger.Debug("found resource",
			slog.String("type", rc.QualifiedName),
			slog.String("path", rc.Path),
			slog.Int("methods", len(rc.Methods)))
	}
	return m, nil
}

// Resources returns the converted resources sorted by qualified name.
func (m *SourceModel) Resources() []ir.ResourceClass {
	return m.resources
}

// ExtraClasses returns the qualified names of the loaded extra classes.
func (m *SourceModel) ExtraClasses() []string {
	return m.extras
}

// Class implements ir.Resolver. Names have the form "<package path>.<Type>".
func (m *SourceModel) Class(name string) (*ir.ClassDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.classes[name]; ok {
		return d, nil
	}

	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return nil, &ir.ResolutionError{Name: name}
	}
	pkg, ok := m.pkgs[name[:i]]
	if !ok {
		return nil, &ir.ResolutionError{Name: name}
	}
	tn, ok := pkg.Scope().Lookup(name[i+1:]).(*types.TypeName)
	if !ok {
		return nil, &ir.ResolutionError{Name: name}
	}

	d, err := describe(tn)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", name, err)
	}
	m.classes[name] = d
	return d, nil
}

func packagePattern(dir string) string {
	if filepath.IsAbs(dir) || strings.HasPrefix(dir, ".") {
		return dir
	}
	return "./" + filepath.ToSlash(dir)
}

// lookupExtra finds the package loaded from ec.Dir and the named type in it.
func lookupExtra(pkgs []*packages.Package, base string, ec extraclass.Spec) (string, error) {
	dir := ec.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(base, dir)
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	_, simple := ir.SplitQualifiedName(ec.QualifiedName)

	for _, pkg := range pkgs {
		if len(pkg.GoFiles) == 0 || filepath.Dir(pkg.GoFiles[0]) != dir {
			continue
		}
		tn, ok := pkg.Types.Scope().Lookup(simple).(*types.TypeName)
		if !ok {
			return "", &ir.ResolutionError{Name: ec.QualifiedName, Referrer: ec.String()}
		}
		return qualifiedName(tn), nil
	}
	return "", fmt.Errorf("extra class %s: no package loaded from %s", ec, dir)
}

// qualifiedName is the resolver key of a named type.
func qualifiedName(obj *types.TypeName) string {
	if obj.Pkg() == nil {
		return obj.Name()
	}
	return obj.Pkg().Path() + "." + obj.Name()
}

// describe builds the class descriptor of a named type.
func describe(tn *types.TypeName) (*ir.ClassDescriptor, error) {
	named, ok := types.Unalias(tn.Type()).(*types.Named)
	if !ok {
		return nil, fmt.Errorf("%s is not a named type", tn.Name())
	}
	d := &ir.ClassDescriptor{QualifiedName: qualifiedName(named.Obj())}
	if !tn.Exported() {
		d.Nesting = ir.HiddenNested
	}
	if tparams := named.TypeParams(); tparams != nil {
		for i := 0; i < tparams.Len(); i++ {
			d.TypeParameters = append(d.TypeParameters, tparams.At(i).Obj().Name())
		}
	}

	switch u := named.Underlying().(type) {
	case *types.Interface:
		d.IsInterfaceOrAbstract = true
	case *types.Struct:
		if err := describeStruct(d, u); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%s has no fields (underlying %s)", tn.Name(), u)
	}
	return d, nil
}

// describeStruct adds the exported fields of s. The first embedded struct
// without a json name becomes the superclass; later ones are plain fields.
func describeStruct(d *ir.ClassDescriptor, s *types.Struct) error {
	for i := 0; i < s.NumFields(); i++ {
		f := s.Field(i)
		if !f.Exported() && !f.Embedded() {
			continue
		}
		name, skip := jsonName(s.Tag(i))
		if skip {
			continue
		}

		if f.Embedded() && name == "" && d.Superclass == "" {
			if super, ok := embeddedStruct(f.Type()); ok {
				d.Superclass = qualifiedName(super.Obj())
				continue
			}
		}
		if !f.Exported() {
			continue
		}
		if name == "" {
			name = f.Name()
		}

		t, err := ConvertType(f.Type())
		if err != nil {
			return fmt.Errorf("field %s: %w", f.Name(), err)
		}
		d.Fields = append(d.Fields, ir.Field{Name: name, Type: t})
	}
	return nil
}

func embeddedStruct(t types.Type) (*types.Named, bool) {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	named, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return nil, false
	}
	_, isStruct := named.Underlying().(*types.Struct)
	return named, isStruct
}

// jsonName returns the json tag name and whether the field is skipped.
func jsonName(tag string) (string, bool) {
	v, ok := reflect.StructTag(tag).Lookup("json")
	if !ok {
		return "", false
	}
	name, _, _ := strings.Cut(v, ",")
	if name == "-" {
		return "", true
	}
	return name, false
}

// ConvertType maps a Go type to a resolved type:
//
//   - bool, integer and float kinds map to primitives; byte to byte, rune to
//     char, int16 to short, int32 and uint16 to int, other integers to long
//   - pointers to those map to boxed wrappers
//   - string and time.Time map to the string type
//   - slices and arrays map to arrays
//   - named structs map to class references, named interfaces to interfaces
//   - maps, anonymous structs and the empty interface are opaque
//   - type parameters map to type variables
func ConvertType(t types.Type) (ir.ResolvedType, error) {
	t = types.Unalias(t)
	switch t := t.(type) {
	case *types.Basic:
		return convertBasic(t)

	case *types.Pointer:
		elem := types.Unalias(t.Elem())
		if b, ok := elem.Underlying().(*types.Basic); ok && !isString(b) && !isTime(elem) {
			prim, err := convertBasic(b)
			if err != nil {
				return nil, err
			}
			return ir.Boxed(prim.(*ir.PrimitiveType).Scalar), nil
		}
		return ConvertType(elem)

	case *types.Slice:
		elem, err := ConvertType(t.Elem())
		if err != nil {
			return nil, err
		}
		return ir.Array(elem), nil

	case *types.Array:
		elem, err := ConvertType(t.Elem())
		if err != nil {
			return nil, err
		}
		return ir.Array(elem), nil

	case *types.Named:
		if isTime(t) {
			return ir.String(), nil
		}
		args, err := typeArgs(t)
		if err != nil {
			return nil, err
		}
		switch u := t.Underlying().(type) {
		case *types.Struct:
			return ir.Class(qualifiedName(t.Obj()), args...), nil
		case *types.Interface:
			return ir.Interface(qualifiedName(t.Obj()), args...), nil
		default:
			return ConvertType(u)
		}

	case *types.Interface:
		return ir.Class(ir.ObjectName), nil

	case *types.Map, *types.Struct:
		return ir.Interface(t.String()), nil

	case *types.TypeParam:
		return ir.TypeVar(t.Obj().Name()), nil

	default:
		return nil, fmt.Errorf("unsupported type %s", t)
	}
}

func typeArgs(n *types.Named) ([]ir.ResolvedType, error) {
	targs := n.TypeArgs()
	if targs == nil {
		return nil, nil
	}
	out := make([]ir.ResolvedType, 0, targs.Len())
	for i := 0; i < targs.Len(); i++ {
		a, err := ConvertType(targs.At(i))
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func convertBasic(b *types.Basic) (ir.ResolvedType, error) {
	switch b.Name() {
	case "byte":
		return ir.Primitive(ir.Byte), nil
	case "rune":
		return ir.Primitive(ir.Char), nil
	}
	switch b.Kind() {
	case types.Bool:
		return ir.Primitive(ir.Boolean), nil
	case types.Int8, types.Uint8:
		return ir.Primitive(ir.Byte), nil
	case types.Int16:
		return ir.Primitive(ir.Short), nil
	case types.Int32, types.Uint16:
		return ir.Primitive(ir.Int), nil
	case types.Int, types.Int64, types.Uint, types.Uint32, types.Uint64, types.Uintptr:
		return ir.Primitive(ir.Long), nil
	case types.Float32:
		return ir.Primitive(ir.Float), nil
	case types.Float64:
		return ir.Primitive(ir.Double), nil
	case types.String:
		return ir.String(), nil
	default:
		return nil, fmt.Errorf("unsupported basic type %s", b)
	}
}

func isString(b *types.Basic) bool {
	return b.Kind() == types.String
}

func isTime(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok || named.Obj().Pkg() == nil {
		return false
	}
	return named.Obj().Pkg().Path() == "time" && named.Obj().Name() == "Time"
}

func isNamed(t types.Type, pkgPath, name string) bool {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	named, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	if obj.Name() != name {
		return false
	}
	return pkgPath == "" || (obj.Pkg() != nil && obj.Pkg().Path() == pkgPath)
}

func isError(t types.Type) bool {
	return types.Identical(t, types.Universe.Lookup("error").Type())
}

// convertResource converts a discovered resource and its routable methods.
func convertResource(r discover.Resource) (ir.ResourceClass, error) {
	rc := ir.ResourceClass{QualifiedName: r.QualifiedName(), Path: r.Annotations.Path}
	for _, m := range r.Methods {
		decl, err := convertMethod(m, r.Annotations)
		if err != nil {
			return rc, fmt.Errorf("%s.%s: %w", rc.QualifiedName, m.Func.Name(), err)
		}
		rc.Methods = append(rc.Methods, decl)
	}
	return rc, nil
}

func convertMethod(m discover.Method, resource directive.Annotations) (ir.MethodDecl, error) {
	a := m.Annotations
	decl := ir.MethodDecl{
		Name:     m.Func.Name(),
		Verb:     a.Verb,
		HasPath:  a.HasPath,
		Path:     a.Path,
		Produces: a.Produces,
	}
	if len(decl.Produces) == 0 {
		decl.Produces = resource.Produces
	}

	sig := m.Func.Type().(*types.Signature)
	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		v := params.At(i)
		if isNamed(v.Type(), "context", "Context") {
			continue
		}
		name := v.Name()
		if name == "" || name == "_" {
			name = fmt.Sprintf("arg%d", i)
		}
		binding := a.Params.Binding(name)
		if isNamed(v.Type(), "", SuspendedTypeName) {
			binding = ir.BindSuspended
		}
		t, err := ConvertType(v.Type())
		if err != nil {
			return decl, fmt.Errorf("parameter %s: %w", name, err)
		}
		decl.Params = append(decl.Params, ir.Parameter{Name: name, Type: t, Binding: binding})
	}

	results := sig.Results()
	n := results.Len()
	if n > 0 && isError(results.At(n-1).Type()) {
		n--
	}
	switch n {
	case 0:
	case 1:
		rt := results.At(0).Type()
		if ch, ok := types.Unalias(rt).Underlying().(*types.Chan); ok {
			rt = ch.Elem()
			if !producesEventStream(decl.Produces) {
				decl.Produces = append([]string{scan.EventStream}, decl.Produces...)
			}
		}
		t, err := ConvertType(rt)
		if err != nil {
			return decl, fmt.Errorf("result: %w", err)
		}
		decl.Returns = t
	default:
		return decl, fmt.Errorf("%d results; want at most one value and an error", results.Len())
	}
	return decl, nil
}

func producesEventStream(mediaTypes []string) bool {
	for _, mt := range mediaTypes {
		if scan.IsEventStream(mt) {
			return true
		}
	}
	return false
}
