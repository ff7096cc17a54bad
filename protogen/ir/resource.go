package ir

// Binding identifies how the framework supplies a method parameter.
// Only BindEntity parameters carry the request entity.
type Binding string

const (
	BindEntity    Binding = ""
	BindHeader    Binding = "header"
	BindCookie    Binding = "cookie"
	BindPath      Binding = "path"
	BindQuery     Binding = "query"
	BindMatrix    Binding = "matrix"
	BindForm      Binding = "form"
	BindContext   Binding = "context"
	BindSuspended Binding = "suspended"
)

// FrameworkManaged reports whether the framework supplies the parameter,
// which excludes it from entity selection.
func (b Binding) FrameworkManaged() bool {
	return b != BindEntity
}

// Bindings returns every framework-managed binding kind.
func Bindings() []Binding {
	return []Binding{BindHeader, BindCookie, BindPath, BindQuery, BindMatrix, BindForm, BindContext, BindSuspended}
}

// Parameter is a declared method parameter.
type Parameter struct {
	Name    string
	Type    ResolvedType
	Binding Binding
}

// MethodDecl is a method declared on a resource class, as written in source.
type MethodDecl struct {
	// Name is the method name.
	Name string

	// Verb is the HTTP verb annotation (GET, POST, ...), empty if absent.
	Verb string

	// HasPath is set when the method carries a routing annotation.
	HasPath bool

	// Path is the routing template, relative to the resource path.
	Path string

	// Produces lists the declared response media types.
	Produces []string

	// Params are the declared parameters in order.
	Params []Parameter

	// Returns is the declared return type. Nil means void.
	Returns ResolvedType
}

// Routable reports whether the method has a routing or HTTP-verb annotation.
func (m *MethodDecl) Routable() bool {
	return m.HasPath || m.Verb != ""
}

// ResourceClass is a class whose methods are exposed as REST endpoints.
type ResourceClass struct {
	QualifiedName string
	Path          string
	Methods       []MethodDecl
}

// SyncKind classifies how a resource method produces its response.
type SyncKind int

const (
	Sync SyncKind = iota
	Suspended
	CompletionStage
	ServerSentEvents
	Locator
)

// String returns the lower-case name used in RPC comments and mapping files.
func (k SyncKind) String() string {
	switch k {
	case Sync:
		return "sync"
	case Suspended:
		return "suspended"
	case CompletionStage:
		return "completionStage"
	case ServerSentEvents:
		return "sse"
	case Locator:
		return "locator"
	default:
		return "unknown"
	}
}

// ResourceMethod is a routable method after scanning.
type ResourceMethod struct {
	// Resource is the declaring resource class.
	Resource string

	// Name is the declared method name.
	Name string

	// HTTPVerb is the verb, or "ANY" for locators.
	HTTPVerb string

	// PathTemplate is the resource path joined with the method path.
	PathTemplate string

	// ParameterType is the entity parameter type. Nil when the method has no
	// entity parameter; the empty message is used in that case.
	ParameterType ResolvedType

	// ReturnType is the response type after completion-stage unwrapping.
	// Nil for void.
	ReturnType ResolvedType

	// SyncKind classifies the method.
	SyncKind SyncKind
}
