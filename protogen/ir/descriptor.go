// Package ir defines the resolved object model that the schema compiler consumes.
// Providers build these values from source (YAML model documents or Go packages);
// the closure engine and resource scanner read them without modification.
package ir

// Kind identifies the category of a resolved type.
type Kind int

const (
	KindPrimitive    Kind = iota // boolean, byte, short, int, long, float, double, char
	KindBoxed                    // nullable wrapper of a primitive (java.lang.Integer, *int32)
	KindString                   // string
	KindArray                    // single array level; rank is nesting depth
	KindInterface                // interface or abstract class, represented opaquely
	KindRecord                   // record; members come from declared components
	KindClass                    // plain class with declared fields
	KindTypeVariable             // unresolved generic parameter
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "Primitive"
	case KindBoxed:
		return "Boxed"
	case KindString:
		return "String"
	case KindArray:
		return "Array"
	case KindInterface:
		return "Interface"
	case KindRecord:
		return "Record"
	case KindClass:
		return "Class"
	case KindTypeVariable:
		return "TypeVariable"
	default:
		return "Unknown"
	}
}

// ResolvedType is the base interface for all resolved types.
type ResolvedType interface {
	// Kind returns the type kind for type switching.
	Kind() Kind

	// String returns the source-level spelling of the type, e.g. "int",
	// "java.lang.Integer" or "com.example.User[]". Two types with the same
	// spelling are the same type.
	String() string

	// Ensure only types in this package can implement ResolvedType.
	sealed()
}

// Scalar identifies one of the eight primitive kinds.
type Scalar int

const (
	Boolean Scalar = iota
	Byte
	Short
	Int
	Long
	Float
	Double
	Char
)

var scalarNames = [...]string{"boolean", "byte", "short", "int", "long", "float", "double", "char"}

var boxedNames = [...]string{
	"java.lang.Boolean",
	"java.lang.Byte",
	"java.lang.Short",
	"java.lang.Integer",
	"java.lang.Long",
	"java.lang.Float",
	"java.lang.Double",
	"java.lang.Character",
}

// String returns the primitive spelling ("int", "boolean", ...).
func (s Scalar) String() string {
	if s < 0 || int(s) >= len(scalarNames) {
		return "unknown"
	}
	return scalarNames[s]
}

// BoxedName returns the qualified name of the scalar's boxed wrapper.
func (s Scalar) BoxedName() string {
	if s < 0 || int(s) >= len(boxedNames) {
		return "unknown"
	}
	return boxedNames[s]
}

// Scalars returns all primitive kinds in declaration order.
func Scalars() []Scalar {
	return []Scalar{Boolean, Byte, Short, Int, Long, Float, Double, Char}
}

// StringName is the qualified name used for the string type.
const StringName = "java.lang.String"

// ObjectName is the qualified name of the root class. It has no concrete
// definition and is always represented opaquely.
const ObjectName = "java.lang.Object"
