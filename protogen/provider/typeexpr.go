package provider

import (
	"fmt"
	"strings"

	"github.com/broady/restproto/protogen/ir"
)

var primitiveNames = map[string]ir.Scalar{
	"boolean": ir.Boolean,
	"byte":    ir.Byte,
	"short":   ir.Short,
	"int":     ir.Int,
	"long":    ir.Long,
	"float":   ir.Float,
	"double":  ir.Double,
	"char":    ir.Char,
}

var boxedNames = func() map[string]ir.Scalar {
	m := make(map[string]ir.Scalar)
	for _, s := range ir.Scalars() {
		qualified := s.BoxedName()
		m[qualified] = s
		m[strings.TrimPrefix(qualified, "java.lang.")] = s
	}
	return m
}()

// opaqueNames are library types with no model declaration. They are always
// represented as interfaces.
var opaqueNames = map[string]string{
	"List":       "java.util.List",
	"Set":        "java.util.Set",
	"Map":        "java.util.Map",
	"Collection": "java.util.Collection",
	"Iterable":   "java.lang.Iterable",
	"Optional":   "java.util.Optional",
	"Number":     "java.lang.Number",
}

var opaqueQualified = func() map[string]bool {
	m := make(map[string]bool, len(opaqueNames))
	for _, q := range opaqueNames {
		m[q] = true
	}
	return m
}()

// typeScope resolves the names used inside type expressions.
type typeScope struct {
	// pkg qualifies names without a package.
	pkg string

	// vars are the type parameters in scope.
	vars map[string]bool

	// interfaces are extra names declared opaque by the document.
	interfaces map[string]bool
}

func (s typeScope) qualify(name string) string {
	if s.pkg == "" || strings.Contains(name, ".") {
		return name
	}
	return s.pkg + "." + name
}

// ParseType parses a type expression with no package or type variables in
// scope. See parseType for the grammar.
func ParseType(expr string) (ir.ResolvedType, error) {
	return parseType(expr, typeScope{})
}

// parseType parses:
//
//	type := name [ "<" type { "," type } ">" ] { "[]" }
//	name := ident { ("." | "$") ident }
//
// Primitive and boxed spellings map to scalars, String and Object to their
// fixed types, declared type variables to TypeVariable, and anything else to
// a class reference qualified with the scope's package.
func parseType(expr string, scope typeScope) (ir.ResolvedType, error) {
	p := &typeParser{src: expr, scope: scope}
	t, err := p.typ()
	if err != nil {
		return nil, fmt.Errorf("type %q: %w", expr, err)
	}
	p.space()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("type %q: unexpected %q at offset %d", expr, p.src[p.pos:], p.pos)
	}
	return t, nil
}

type typeParser struct {
	src   string
	pos   int
	scope typeScope
}

func (p *typeParser) space() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *typeParser) peek(s string) bool {
	p.space()
	return strings.HasPrefix(p.src[p.pos:], s)
}

func (p *typeParser) typ() (ir.ResolvedType, error) {
	name, err := p.name()
	if err != nil {
		return nil, err
	}

	var args []ir.ResolvedType
	if p.peek("<") {
		p.pos++
		for {
			arg, err := p.typ()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek(",") {
				p.pos++
				continue
			}
			if p.peek(">") {
				p.pos++
				break
			}
			return nil, fmt.Errorf("expected ',' or '>' at offset %d", p.pos)
		}
	}

	t, err := p.base(name, args)
	if err != nil {
		return nil, err
	}
	for p.peek("[]") {
		p.pos += 2
		t = ir.Array(t)
	}
	return t, nil
}

func (p *typeParser) name() (string, error) {
	p.space()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c == '.' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(p.pos > start && c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	name := p.src[start:p.pos]
	if name == "" {
		return "", fmt.Errorf("expected a type name at offset %d", start)
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") || strings.Contains(name, "..") {
		return "", fmt.Errorf("malformed name %q", name)
	}
	return name, nil
}

func (p *typeParser) base(name string, args []ir.ResolvedType) (ir.ResolvedType, error) {
	noArgs := func() error {
		if len(args) > 0 {
			return fmt.Errorf("%s takes no type arguments", name)
		}
		return nil
	}

	if s, ok := primitiveNames[name]; ok {
		return ir.Primitive(s), noArgs()
	}
	if s, ok := boxedNames[name]; ok {
		return ir.Boxed(s), noArgs()
	}
	switch name {
	case "String", ir.StringName:
		return ir.String(), noArgs()
	case "Object", ir.ObjectName:
		return ir.Class(ir.ObjectName), noArgs()
	}
	if p.scope.vars[name] {
		return ir.TypeVar(name), noArgs()
	}
	if q, ok := opaqueNames[name]; ok {
		return ir.Interface(q, args...), nil
	}
	if opaqueQualified[name] || p.scope.interfaces[name] {
		return ir.Interface(name, args...), nil
	}
	qualified := p.scope.qualify(name)
	if p.scope.interfaces[qualified] {
		return ir.Interface(qualified, args...), nil
	}
	return ir.Class(qualified, args...), nil
}
