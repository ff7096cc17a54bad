package ir

import "strings"

// PrimitiveType is a non-nullable scalar.
type PrimitiveType struct {
	Scalar Scalar
}

func (t *PrimitiveType) Kind() Kind     { return KindPrimitive }
func (t *PrimitiveType) String() string { return t.Scalar.String() }
func (*PrimitiveType) sealed()          {}

// BoxedType is the nullable wrapper of a primitive.
type BoxedType struct {
	Scalar Scalar
}

func (t *BoxedType) Kind() Kind     { return KindBoxed }
func (t *BoxedType) String() string { return t.Scalar.BoxedName() }
func (*BoxedType) sealed()          {}

// StringType is the string type.
type StringType struct{}

func (t *StringType) Kind() Kind     { return KindString }
func (t *StringType) String() string { return StringName }
func (*StringType) sealed()          {}

// ArrayType is one array level. T[][] is an ArrayType whose Component is
// itself an ArrayType.
type ArrayType struct {
	Component ResolvedType
}

func (t *ArrayType) Kind() Kind     { return KindArray }
func (t *ArrayType) String() string { return t.Component.String() + "[]" }
func (*ArrayType) sealed()          {}

// Rank returns the number of array levels and the innermost component.
func (t *ArrayType) Rank() (int, ResolvedType) {
	rank := 1
	component := t.Component
	for {
		inner, ok := component.(*ArrayType)
		if !ok {
			return rank, component
		}
		rank++
		component = inner.Component
	}
}

// InterfaceType is a type that cannot be represented as a concrete message:
// an interface, or a class with no concrete definition.
type InterfaceType struct {
	Name string

	// TypeArgs holds generic arguments when the reference was instantiated.
	// They never affect naming; the scanner uses them to unwrap completion stages.
	TypeArgs []ResolvedType
}

func (t *InterfaceType) Kind() Kind     { return KindInterface }
func (t *InterfaceType) String() string { return t.Name + typeArgsString(t.TypeArgs) }
func (*InterfaceType) sealed()          {}

// RecordType references a record declaration.
type RecordType struct {
	Name string
}

func (t *RecordType) Kind() Kind     { return KindRecord }
func (t *RecordType) String() string { return t.Name }
func (*RecordType) sealed()          {}

// ClassType references a class declaration. Whether the class is concrete,
// abstract, an interface or a record is answered by its ClassDescriptor.
type ClassType struct {
	Name     string
	TypeArgs []ResolvedType
}

func (t *ClassType) Kind() Kind     { return KindClass }
func (t *ClassType) String() string { return t.Name + typeArgsString(t.TypeArgs) }
func (*ClassType) sealed()          {}

// TypeVariable is a generic parameter with no concrete binding.
type TypeVariable struct {
	Name string
}

func (t *TypeVariable) Kind() Kind     { return KindTypeVariable }
func (t *TypeVariable) String() string { return t.Name }
func (*TypeVariable) sealed()          {}

func typeArgsString(args []ResolvedType) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return "<" + strings.Join(parts, ",") + ">"
}

// Convenience constructors.

// Primitive returns a PrimitiveType.
func Primitive(s Scalar) *PrimitiveType { return &PrimitiveType{Scalar: s} }

// Boxed returns a BoxedType.
func Boxed(s Scalar) *BoxedType { return &BoxedType{Scalar: s} }

// String returns a StringType.
func String() *StringType { return &StringType{} }

// Array returns an ArrayType of the given component.
func Array(component ResolvedType) *ArrayType { return &ArrayType{Component: component} }

// ArrayOfRank wraps component in rank array levels.
func ArrayOfRank(component ResolvedType, rank int) ResolvedType {
	t := component
	for i := 0; i < rank; i++ {
		t = Array(t)
	}
	return t
}

// Interface returns an InterfaceType.
func Interface(name string, args ...ResolvedType) *InterfaceType {
	return &InterfaceType{Name: name, TypeArgs: args}
}

// Record returns a RecordType.
func Record(name string) *RecordType { return &RecordType{Name: name} }

// Class returns a ClassType.
func Class(name string, args ...ResolvedType) *ClassType {
	return &ClassType{Name: name, TypeArgs: args}
}

// TypeVar returns a TypeVariable.
func TypeVar(name string) *TypeVariable { return &TypeVariable{Name: name} }

// IsScalar reports whether t is a primitive, boxed or string type.
func IsScalar(t ResolvedType) bool {
	switch t.(type) {
	case *PrimitiveType, *BoxedType, *StringType:
		return true
	}
	return false
}
