package ir

// NestingKind classifies where a type is declared. It selects the separator
// used when mangling the type's wire name.
type NestingKind int

const (
	TopLevel     NestingKind = iota // declared at package level
	PublicNested                    // publicly visible member type
	HiddenNested                    // member type that is not publicly visible
)

// String returns the string representation of the nesting kind.
func (k NestingKind) String() string {
	switch k {
	case TopLevel:
		return "TopLevel"
	case PublicNested:
		return "PublicNested"
	case HiddenNested:
		return "HiddenNested"
	default:
		return "Unknown"
	}
}

// Field is a declared field or record component.
type Field struct {
	Name string
	Type ResolvedType
}

// ClassDescriptor describes a class, interface, or record declaration.
// QualifiedName is the unique key; descriptors are immutable once built.
type ClassDescriptor struct {
	// QualifiedName is the fully qualified name, e.g. "com.example.User"
	// or "com.example.Outer$Inner" for member types.
	QualifiedName string

	// Fields are the declared instance fields in declaration order.
	Fields []Field

	// Components are the record components. Only used when IsRecord is set.
	Components []Field

	// Superclass is the qualified name of the superclass, empty for none.
	Superclass string

	// Nesting selects the name separator.
	Nesting NestingKind

	// IsInterfaceOrAbstract marks types that have no concrete definition.
	IsInterfaceOrAbstract bool

	// IsRecord marks records.
	IsRecord bool

	// InternalTypes are the qualified names of declared member types.
	InternalTypes []string

	// TypeParameters are the declared generic parameter names.
	TypeParameters []string
}

// Members returns the components of a record, otherwise the declared fields.
func (d *ClassDescriptor) Members() []Field {
	if d.IsRecord {
		return d.Components
	}
	return d.Fields
}

// SimpleName returns the name after the last '.' or '$'.
func (d *ClassDescriptor) SimpleName() string {
	_, simple := SplitQualifiedName(d.QualifiedName)
	return simple
}

// SplitQualifiedName splits a qualified name at its last package or nesting
// separator ('.', '/' or '$'). The prefix is empty for unqualified names.
func SplitQualifiedName(name string) (prefix, simple string) {
	for i := len(name) - 1; i >= 0; i-- {
		switch name[i] {
		case '.', '/', '$':
			return name[:i], name[i+1:]
		}
	}
	return "", name
}
