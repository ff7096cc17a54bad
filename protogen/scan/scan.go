// Package scan walks resource classes and derives one RPC per routable method.
//
// For each method the scanner picks the synchronization kind, the entity
// parameter and the response type. Entity and return types are collected into
// ordered sets for the envelope unions, and every non-scalar one is returned
// as a closure seed.
package scan

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/broady/restproto/protogen/idl"
	"github.com/broady/restproto/protogen/ir"
	"github.com/broady/restproto/protogen/naming"
)

// Fixed message names used by RPC declarations.
const (
	RequestEnvelope  = "GeneralEntityMessage"
	ResponseEnvelope = "GeneralReturnMessage"
	EmptyMessage     = "GEmpty"
	EventMessage     = "SseEvent"
)

// AnyVerb is the verb reported for sub-resource locators.
const AnyVerb = "ANY"

// EventStream is the media type that marks a server-sent-events method.
const EventStream = "text/event-stream"

// completionStages are the simple names of single-argument types whose value
// arrives later. The argument is the effective return type.
var completionStages = map[string]bool{
	"CompletionStage":   true,
	"CompletableFuture": true,
	"Future":            true,
	"Promise":           true,
}

// Result is the outcome of scanning a set of resource classes.
type Result struct {
	// Methods are the routable methods in scan order.
	Methods []ir.ResourceMethod

	// RPCs are the service declarations, parallel to Methods.
	RPCs []idl.RPC

	// Entities and Returns are the distinct entity and return types in
	// first-seen order. Nil (empty) entries are not included; see
	// EmptyEntity and EmptyReturn.
	Entities []ir.ResolvedType
	Returns  []ir.ResolvedType

	// Seeds are the distinct non-scalar entity, return and event payload
	// types.
	Seeds []ir.ResolvedType

	// EmptyEntity is set when some method has no entity parameter.
	// EmptyReturn is set when some non-streaming method returns void.
	EmptyEntity bool
	EmptyReturn bool

	// SSE is set when any method streams server-sent events.
	SSE bool

	// Warnings are non-fatal findings, such as ignored extra entity parameters.
	Warnings []string
}

// EmptyNeeded reports whether the empty message must be emitted.
func (r *Result) EmptyNeeded() bool {
	return r.EmptyEntity || r.EmptyReturn
}

// Option configures a scan.
type Option func(*scanner)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(s *scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

type scanner struct {
	logger *slog.Logger
	result *Result
	rpcs   *naming.Names

	entitySet map[string]bool
	returnSet map[string]bool
	seedSet   map[string]bool
}

// Scan scans resources in the order given. Methods without a routing or verb
// annotation are skipped.
func Scan(resources []ir.ResourceClass, opts ...Option) (*Result, error) {
	s := &scanner{
		logger:    slog.Default(),
		result:    &Result{},
		rpcs:      naming.NewNames(),
		entitySet: make(map[string]bool),
		returnSet: make(map[string]bool),
		seedSet:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, rc := range resources {
		for i := range rc.Methods {
			decl := &rc.Methods[i]
			if !decl.Routable() {
				continue
			}
			if err := s.method(rc, decl); err != nil {
				return nil, err
			}
		}
	}
	return s.result, nil
}

func (s *scanner) method(rc ir.ResourceClass, decl *ir.MethodDecl) error {
	if decl.Name == "" {
		return fmt.Errorf("resource %s: method without a name", rc.QualifiedName)
	}

	kind, ret := Classify(decl)
	entity := s.entity(rc, decl)

	verb := strings.ToUpper(decl.Verb)
	if kind == ir.Locator {
		verb = AnyVerb
	}

	m := ir.ResourceMethod{
		Resource:      rc.QualifiedName,
		Name:          decl.Name,
		HTTPVerb:      verb,
		PathTemplate:  JoinPath(rc.Path, decl.Path),
		ParameterType: entity,
		ReturnType:    ret,
		SyncKind:      kind,
	}

	if entity == nil {
		s.result.EmptyEntity = true
	} else {
		s.addEntity(entity)
	}

	rpc := idl.RPC{
		Name:     s.rpcs.Resolve(rpcName(decl.Name)),
		Request:  RequestEnvelope,
		Response: ResponseEnvelope,
		Comment:  fmt.Sprintf("%s %s %s", verb, m.PathTemplate, kind),
	}
	switch {
	case kind == ir.ServerSentEvents:
		rpc.Response = EventMessage
		rpc.ServerStreaming = true
		s.result.SSE = true
		if ret != nil {
			s.addSeed(ret)
		}
	case ret == nil:
		s.result.EmptyReturn = true
	default:
		s.addReturn(ret)
	}

	s.result.Methods = append(s.result.Methods, m)
	s.result.RPCs = append(s.result.RPCs, rpc)
	s.logger.Debug("scanned method",
		slog.String("rpc", rpc.Name),
		slog.String("resource", rc.QualifiedName),
		slog.String("sync", kind.String()))
	return nil
}

// entity returns the first parameter not supplied by the framework.
func (s *scanner) entity(rc ir.ResourceClass, decl *ir.MethodDecl) ir.ResolvedType {
	var entity ir.ResolvedType
	for _, p := range decl.Params {
		if p.Binding.FrameworkManaged() || p.Type == nil {
			continue
		}
		if entity != nil {
			s.result.Warnings = append(s.result.Warnings,
				fmt.Sprintf("%s.%s: ignoring extra entity parameter %s", rc.QualifiedName, decl.Name, p.Name))
			continue
		}
		entity = p.Type
	}
	return entity
}

func (s *scanner) addEntity(t ir.ResolvedType) {
	key := t.String()
	if !s.entitySet[key] {
		s.entitySet[key] = true
		s.result.Entities = append(s.result.Entities, t)
	}
	s.addSeed(t)
}

func (s *scanner) addReturn(t ir.ResolvedType) {
	key := t.String()
	if !s.returnSet[key] {
		s.returnSet[key] = true
		s.result.Returns = append(s.result.Returns, t)
	}
	s.addSeed(t)
}

func (s *scanner) addSeed(t ir.ResolvedType) {
	if ir.IsScalar(t) {
		return
	}
	key := t.String()
	if s.seedSet[key] {
		return
	}
	s.seedSet[key] = true
	s.result.Seeds = append(s.result.Seeds, t)
}

// Classify returns the synchronization kind of a method and its effective
// return type. The checks run in priority order: suspended parameter, event
// stream media type, completion-stage return, locator, plain.
func Classify(decl *ir.MethodDecl) (ir.SyncKind, ir.ResolvedType) {
	for _, p := range decl.Params {
		if p.Binding == ir.BindSuspended {
			return ir.Suspended, decl.Returns
		}
	}
	for _, mt := range decl.Produces {
		if IsEventStream(mt) {
			return ir.ServerSentEvents, decl.Returns
		}
	}
	if inner, ok := UnwrapCompletionStage(decl.Returns); ok {
		return ir.CompletionStage, inner
	}
	if decl.HasPath && decl.Verb == "" {
		return ir.Locator, decl.Returns
	}
	return ir.Sync, decl.Returns
}

// IsEventStream reports whether a media type is text/event-stream,
// ignoring case and parameters.
func IsEventStream(mediaType string) bool {
	mt, _, _ := strings.Cut(mediaType, ";")
	return strings.EqualFold(strings.TrimSpace(mt), EventStream)
}

// UnwrapCompletionStage returns the type argument of a completion-stage type.
func UnwrapCompletionStage(t ir.ResolvedType) (ir.ResolvedType, bool) {
	var name string
	var args []ir.ResolvedType
	switch t := t.(type) {
	case *ir.InterfaceType:
		name, args = t.Name, t.TypeArgs
	case *ir.ClassType:
		name, args = t.Name, t.TypeArgs
	default:
		return nil, false
	}
	if len(args) != 1 {
		return nil, false
	}
	_, simple := ir.SplitQualifiedName(name)
	if !completionStages[simple] {
		return nil, false
	}
	return args[0], true
}

// JoinPath joins a resource path and a method path with exactly one slash.
// The result always starts with '/'.
func JoinPath(base, sub string) string {
	base = strings.Trim(base, "/")
	sub = strings.Trim(sub, "/")
	switch {
	case base == "" && sub == "":
		return "/"
	case base == "":
		return "/" + sub
	case sub == "":
		return "/" + base
	default:
		return "/" + base + "/" + sub
	}
}

// rpcName makes a method name a valid proto identifier.
func rpcName(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
