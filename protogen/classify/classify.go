// Package classify maps resolved types to wire variants. Classification is
// table-driven and side-effect free; the only lookup is the resolver query
// that decides whether a class reference is concrete.
package classify

import (
	"fmt"

	"github.com/broady/restproto/protogen/ir"
)

// Variant is the wire representation category of a type.
type Variant int

const (
	Primitive Variant = iota
	Boxed
	String
	Array
	InterfaceOrAbstract
	Record
	PlainClass
	TypeVariable
)

// String returns the string representation of the variant.
func (v Variant) String() string {
	switch v {
	case Primitive:
		return "Primitive"
	case Boxed:
		return "BoxedWrapper"
	case String:
		return "StringType"
	case Array:
		return "ArrayType"
	case InterfaceOrAbstract:
		return "InterfaceOrAbstract"
	case Record:
		return "RecordType"
	case PlainClass:
		return "PlainClass"
	case TypeVariable:
		return "TypeVariable"
	default:
		return "Unknown"
	}
}

// ClassLike reports whether values of the variant are emitted as their own message.
func (v Variant) ClassLike() bool {
	return v == PlainClass || v == Record
}

// Result is the classification of one type.
type Result struct {
	Variant Variant

	// Scalar is the wire scalar type for Primitive, Boxed and String.
	Scalar string

	// Box is the single-field box message name for Primitive, Boxed and String.
	Box string

	// Rank and Component describe arrays; Component is the innermost non-array type.
	Rank      int
	Component ir.ResolvedType

	// Class is the resolved declaration for PlainClass and Record.
	Class *ir.ClassDescriptor

	// Name is the qualified name for InterfaceOrAbstract and TypeVariable.
	Name string
}

// Wire scalar types of the primitive kinds.
var primitiveWire = map[ir.Scalar]string{
	ir.Boolean: "bool",
	ir.Byte:    "int32",
	ir.Short:   "int32",
	ir.Int:     "int32",
	ir.Long:    "int64",
	ir.Float:   "float",
	ir.Double:  "double",
	ir.Char:    "string",
}

// BoxKind describes one boxed-wrapper kind.
type BoxKind struct {
	// Name is the qualified wrapper class name.
	Name string

	// Message is the single-field box message name.
	Message string

	// Scalar is the wire type of the box's value field.
	Scalar string
}

// boxes lists the nine boxed-wrapper kinds in emission order.
var boxes = []BoxKind{
	{Name: "java.lang.Boolean", Message: "gBoolean", Scalar: "bool"},
	{Name: "java.lang.Byte", Message: "gByte", Scalar: "int32"},
	{Name: "java.lang.Short", Message: "gShort", Scalar: "int32"},
	{Name: "java.lang.Integer", Message: "gInteger", Scalar: "int32"},
	{Name: "java.lang.Long", Message: "gLong", Scalar: "int64"},
	{Name: "java.lang.Float", Message: "gFloat", Scalar: "float"},
	{Name: "java.lang.Double", Message: "gDouble", Scalar: "double"},
	{Name: "java.lang.Character", Message: "gCharacter", Scalar: "string"},
	{Name: ir.StringName, Message: "gString", Scalar: "string"},
}

var boxByName = func() map[string]BoxKind {
	m := make(map[string]BoxKind, len(boxes))
	for _, b := range boxes {
		m[b.Name] = b
	}
	return m
}()

// Boxes returns the boxed-wrapper kinds in emission order.
func Boxes() []BoxKind {
	out := make([]BoxKind, len(boxes))
	copy(out, boxes)
	return out
}

// PrimitiveWire returns the wire scalar for a primitive kind.
func PrimitiveWire(s ir.Scalar) string {
	return primitiveWire[s]
}

// BoxFor returns the box kind of a scalar-like type.
func BoxFor(t ir.ResolvedType) (BoxKind, bool) {
	switch t := t.(type) {
	case *ir.PrimitiveType:
		b, ok := boxByName[t.Scalar.BoxedName()]
		return b, ok
	case *ir.BoxedType:
		b, ok := boxByName[t.Scalar.BoxedName()]
		return b, ok
	case *ir.StringType:
		return boxByName[ir.StringName], true
	}
	return BoxKind{}, false
}

// Classify classifies t. Class references are resolved through r; a missing
// declaration is returned as *ir.ResolutionError.
func Classify(t ir.ResolvedType, r ir.Resolver) (Result, error) {
	switch t := t.(type) {
	case *ir.PrimitiveType:
		box, _ := BoxFor(t)
		return Result{Variant: Primitive, Scalar: primitiveWire[t.Scalar], Box: box.Message}, nil

	case *ir.BoxedType:
		box, _ := BoxFor(t)
		return Result{Variant: Boxed, Scalar: box.Scalar, Box: box.Message}, nil

	case *ir.StringType:
		box, _ := BoxFor(t)
		return Result{Variant: String, Scalar: box.Scalar, Box: box.Message}, nil

	case *ir.ArrayType:
		rank, component := t.Rank()
		return Result{Variant: Array, Rank: rank, Component: component}, nil

	case *ir.InterfaceType:
		return Result{Variant: InterfaceOrAbstract, Name: t.Name}, nil

	case *ir.TypeVariable:
		return Result{Variant: TypeVariable, Name: t.Name}, nil

	case *ir.RecordType:
		d, err := r.Class(t.Name)
		if err != nil {
			return Result{}, err
		}
		return Result{Variant: Record, Class: d, Name: d.QualifiedName}, nil

	case *ir.ClassType:
		if t.Name == ir.ObjectName {
			return Result{Variant: InterfaceOrAbstract, Name: t.Name}, nil
		}
		if box, ok := boxByName[t.Name]; ok {
			if box.Name == ir.StringName {
				return Result{Variant: String, Scalar: box.Scalar, Box: box.Message}, nil
			}
			return Result{Variant: Boxed, Scalar: box.Scalar, Box: box.Message}, nil
		}
		d, err := r.Class(t.Name)
		if err != nil {
			return Result{}, err
		}
		switch {
		case d.IsInterfaceOrAbstract:
			return Result{Variant: InterfaceOrAbstract, Name: d.QualifiedName}, nil
		case d.IsRecord:
			return Result{Variant: Record, Class: d, Name: d.QualifiedName}, nil
		default:
			return Result{Variant: PlainClass, Class: d, Name: d.QualifiedName}, nil
		}

	case nil:
		return Result{}, fmt.Errorf("classify: nil type")

	default:
		return Result{}, fmt.Errorf("classify: unsupported type %T", t)
	}
}
