// Package schema assembles the complete proto3 file for a set of resource
// classes: header, service, closure messages, fixed request metadata
// messages, box messages, the two envelopes and the array definitions.
package schema

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/broady/restproto/protogen/arrays"
	"github.com/broady/restproto/protogen/classify"
	"github.com/broady/restproto/protogen/closure"
	"github.com/broady/restproto/protogen/idl"
	"github.com/broady/restproto/protogen/ir"
	"github.com/broady/restproto/protogen/naming"
	"github.com/broady/restproto/protogen/scan"
)

// Options configures Build.
type Options struct {
	// TargetPackage is the java_package option of the generated file.
	TargetPackage string

	// WirePackage is the proto package.
	WirePackage string

	// OuterName names the service ("<OuterName>Service"), the file
	// ("<OuterName>.proto") and the java_outer_classname option.
	OuterName string

	// Imports are appended after the standard imports.
	Imports []string

	// ExtraClasses are qualified class names whose messages are emitted even
	// when no resource method reaches them.
	ExtraClasses []string

	// Logger receives debug and warning output. Defaults to slog.Default().
	Logger *slog.Logger
}

// Output is the result of Build.
type Output struct {
	File     *idl.File
	Mappings *Mappings

	// Warnings are non-fatal findings from scanning.
	Warnings []string
}

// FileName returns the proto file name for an outer name.
func FileName(outerName string) string {
	return outerName + ".proto"
}

// MappingsFileName returns the side file name for an outer name.
func MappingsFileName(outerName string) string {
	return outerName + ".mappings.json"
}

// ServiceName returns the service name for an outer name.
func ServiceName(outerName string) string {
	return outerName + "Service"
}

// emptyMembers are the envelope members resolved for the empty message, or
// "" when no method needs them.
type emptyMembers struct {
	entity string
	ret    string
}

// alternative is one envelope oneof member.
type alternative struct {
	wireType string
	field    string
}

// envelope collects distinct oneof members keyed by wire type. Member names
// are resolved against the envelope's fixed fields up front so the names
// recorded in the mappings match the emitted message.
type envelope struct {
	alts  []alternative
	index map[string]int
	names *naming.Names
}

func newEnvelope(fixed ...string) *envelope {
	e := &envelope{index: make(map[string]int), names: naming.NewNames()}
	for _, name := range fixed {
		e.names.Resolve(name)
	}
	return e
}

// add returns the member for wireType, creating it on first use.
func (e *envelope) add(wireType string) alternative {
	if i, ok := e.index[wireType]; ok {
		return e.alts[i]
	}
	a := alternative{wireType: wireType, field: e.names.Resolve(VariantFieldName(wireType))}
	e.index[wireType] = len(e.alts)
	e.alts = append(e.alts, a)
	return a
}

// Build scans resources, computes the type closure through r and assembles
// the schema. Any resolution failure aborts the build.
func Build(r ir.Resolver, resources []ir.ResourceClass, opts Options) (*Output, error) {
	if opts.OuterName == "" {
		return nil, fmt.Errorf("schema: OuterName is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	scanned, err := scan.Scan(resources, scan.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("scan resources: %w", err)
	}
	for _, w := range scanned.Warnings {
		logger.Warn(w)
	}

	registry := arrays.NewRegistry()
	engine := closure.New(r, registry, closure.WithLogger(logger))
	seeds := append([]ir.ResolvedType(nil), scanned.Seeds...)
	for _, name := range opts.ExtraClasses {
		seeds = append(seeds, ir.Class(name))
	}
	if _, err := engine.Run(seeds...); err != nil {
		return nil, err
	}

	b := &builder{
		engine:   engine,
		requests: newEnvelope(requestFixedFields...),
		returns:  newEnvelope(responseFixedFields...),
		boxes:    map[string]bool{"gInteger": true},
	}
	entityAlts, err := b.alternatives(b.requests, scanned.Entities, "entity")
	if err != nil {
		return nil, err
	}
	returnAlts, err := b.alternatives(b.returns, scanned.Returns, "return")
	if err != nil {
		return nil, err
	}
	var empties emptyMembers
	if scanned.EmptyEntity {
		empties.entity = b.requests.add(scan.EmptyMessage).field
	}
	if scanned.EmptyReturn {
		empties.ret = b.returns.add(scan.EmptyMessage).field
	}
	streams, err := b.streams(scanned)
	if err != nil {
		return nil, err
	}

	// Drain anything the envelope wire types enqueued.
	if _, err := engine.Run(); err != nil {
		return nil, err
	}

	f := &idl.File{
		Name:    FileName(opts.OuterName),
		Package: opts.WirePackage,
		Imports: append([]string{idl.AnyImport, idl.TimestampImport}, opts.Imports...),
	}
	if opts.TargetPackage != "" {
		f.Options = append(f.Options, idl.Option{Name: "java_package", Value: opts.TargetPackage})
	}
	f.Options = append(f.Options, idl.Option{Name: "java_outer_classname", Value: opts.OuterName})

	f.Services = []*idl.Service{{Name: ServiceName(opts.OuterName), RPCs: scanned.RPCs}}

	f.AddMessages(engine.Messages()...)
	f.AddMessages(ancillaryMessages()...)
	if scanned.EmptyNeeded() {
		f.AddMessages(emptyMessage(scan.EmptyMessage))
	}
	if scanned.SSE {
		f.AddMessages(eventMessage(scan.EventMessage))
	}
	f.AddMessages(boxMessages(b.boxes)...)
	f.AddMessages(requestEnvelope(b.requests), responseEnvelope(b.returns))
	if registry.Used() {
		f.AddMessages(registry.Messages()...)
	}

	m := newMappings(opts, engine, scanned, entityAlts, returnAlts, streams, empties, registry)

	logger.Info("schema built",
		slog.String("file", f.Name),
		slog.Int("rpcs", len(scanned.RPCs)),
		slog.Int("messages", len(f.Messages)),
		slog.Int("interfaces", len(engine.Interfaces())),
		slog.Duration("duration", time.Since(start)))

	return &Output{File: f, Mappings: m, Warnings: scanned.Warnings}, nil
}

type builder struct {
	engine   *closure.Engine
	requests *envelope
	returns  *envelope
	boxes    map[string]bool
}

// alternatives adds one envelope member per type and returns the members
// keyed by the type's spelling.
func (b *builder) alternatives(env *envelope, types []ir.ResolvedType, role string) (map[string]alternative, error) {
	out := make(map[string]alternative, len(types))
	for _, t := range types {
		wire, err := b.envelopeType(t, role)
		if err != nil {
			return nil, err
		}
		out[t.String()] = env.add(wire)
	}
	return out, nil
}

// envelopeType is the wire type of t as a oneof member. Scalars cannot be
// distinguished from each other inside a oneof by value alone, so they use
// their box message.
func (b *builder) envelopeType(t ir.ResolvedType, role string) (string, error) {
	if box, ok := classify.BoxFor(t); ok {
		b.boxes[box.Message] = true
		return box.Message, nil
	}
	if ct, ok := t.(*ir.ClassType); ok {
		if box, ok := boxByName(ct.Name); ok {
			b.boxes[box.Message] = true
			return box.Message, nil
		}
	}
	return b.engine.WireType(t, role+" "+t.String())
}

// streams returns the wire types packed into event data, keyed by the
// payload type's spelling. Scalars use their box message since only messages
// can be packed.
func (b *builder) streams(scanned *scan.Result) (map[string]string, error) {
	out := make(map[string]string)
	for _, m := range scanned.Methods {
		if m.SyncKind != ir.ServerSentEvents || m.ReturnType == nil {
			continue
		}
		key := m.ReturnType.String()
		if _, ok := out[key]; ok {
			continue
		}
		wire, err := b.envelopeType(m.ReturnType, "event")
		if err != nil {
			return nil, err
		}
		out[key] = wire
	}
	return out, nil
}

func boxByName(name string) (classify.BoxKind, bool) {
	for _, box := range classify.Boxes() {
		if box.Name == name {
			return box, true
		}
	}
	return classify.BoxKind{}, false
}

var (
	requestFixedFields  = []string{"servletInfo", "URL", "headers", "cookies", "httpMethod", "messageType", FormField}
	responseFixedFields = []string{"headers", "cookies", "status", "messageType"}
)

func requestEnvelope(env *envelope) *idl.Message {
	m := idl.NewMessage(scan.RequestEnvelope)
	m.AddField(ServletInfoMessage, "servletInfo")
	m.AddField("string", "URL")
	m.AddMap("string", HeaderMessage, "headers")
	m.AddRepeated(CookieMessage, "cookies")
	m.AddField("string", "httpMethod")

	o := m.AddOneof("messageType")
	for _, a := range env.alts {
		o.AddField(a.wireType, a.field)
	}
	o.AddField(FormMapMessage, FormField)
	return m
}

func responseEnvelope(env *envelope) *idl.Message {
	m := idl.NewMessage(scan.ResponseEnvelope)
	m.AddMap("string", HeaderMessage, "headers")
	m.AddRepeated(NewCookieMessage, "cookies")
	m.AddField("gInteger", "status")

	if len(env.alts) > 0 {
		o := m.AddOneof("messageType")
		for _, a := range env.alts {
			o.AddField(a.wireType, a.field)
		}
	}
	return m
}

// VariantFieldName is the envelope oneof member name for a wire type:
// the last name segment with a lower-case first letter and a "_field" suffix.
func VariantFieldName(wireType string) string {
	if i := strings.LastIndexByte(wireType, '.'); i >= 0 {
		wireType = wireType[i+1:]
	}
	if wireType == "" {
		return "_field"
	}
	return strings.ToLower(wireType[:1]) + wireType[1:] + "_field"
}
