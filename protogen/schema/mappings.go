package schema

import (
	"encoding/json"

	"github.com/broady/restproto/protogen/arrays"
	"github.com/broady/restproto/protogen/closure"
	"github.com/broady/restproto/protogen/ir"
	"github.com/broady/restproto/protogen/naming"
	"github.com/broady/restproto/protogen/scan"
)

// Mappings is the side file consulted by the runtime translator. It records
// which message each source type became and which envelope member each RPC
// uses.
type Mappings struct {
	Package   string `json:"package"`
	JavaPkg   string `json:"javaPackage,omitempty"`
	OuterName string `json:"outerName"`
	Service   string `json:"service"`

	// Types lists every emitted class message in emission order.
	Types []TypeMapping `json:"types"`

	// Entities and Returns list the envelope members.
	Entities []TypeMapping `json:"entities"`
	Returns  []TypeMapping `json:"returns"`

	// Interfaces are the types represented as google.protobuf.Any.
	Interfaces []string `json:"interfaces"`

	// ArrayLeaves are the registered array leaf names, sorted.
	ArrayLeaves []string `json:"arrayLeaves,omitempty"`

	RPCs []RPCMapping `json:"rpcs"`
}

// TypeMapping maps a source type to its message.
type TypeMapping struct {
	Type    string `json:"type"`
	Message string `json:"message"`

	// Field is the envelope oneof member, set for entities and returns.
	Field string `json:"field,omitempty"`

	// Fields maps wire field names to source field names for the fields
	// whose name had to change in the message.
	Fields map[string]string `json:"fields,omitempty"`
}

// RPCMapping describes one rpc.
type RPCMapping struct {
	Name     string `json:"name"`
	Resource string `json:"resource"`
	Method   string `json:"method"`
	Verb     string `json:"verb"`
	Path     string `json:"path"`
	Sync     string `json:"sync"`

	// Entity and Return are the envelope oneof members the rpc reads and
	// writes. Empty methods use the empty message member.
	Entity string `json:"entity,omitempty"`
	Return string `json:"return,omitempty"`

	// Stream is the message packed into each event's data for streaming
	// rpcs with a payload type.
	Stream string `json:"stream,omitempty"`
}

// JSON renders the mappings as indented JSON with a trailing newline.
func (m *Mappings) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func newMappings(opts Options, engine *closure.Engine, scanned *scan.Result,
	entities, returns map[string]alternative, streams map[string]string, empties emptyMembers,
	registry *arrays.Registry) *Mappings {
	m := &Mappings{
		Package:    opts.WirePackage,
		JavaPkg:    opts.TargetPackage,
		OuterName:  opts.OuterName,
		Service:    ServiceName(opts.OuterName),
		Types:      []TypeMapping{},
		Entities:   []TypeMapping{},
		Returns:    []TypeMapping{},
		Interfaces: engine.Interfaces(),
		RPCs:       []RPCMapping{},
	}
	if m.Interfaces == nil {
		m.Interfaces = []string{}
	}

	for _, d := range engine.Visited() {
		m.Types = append(m.Types, TypeMapping{
			Type:    d.QualifiedName,
			Message: naming.MangleClass(d),
			Fields:  engine.RenamedFields(d.QualifiedName),
		})
	}
	for _, t := range scanned.Entities {
		a := entities[t.String()]
		m.Entities = append(m.Entities, TypeMapping{Type: t.String(), Message: a.wireType, Field: a.field})
	}
	for _, t := range scanned.Returns {
		a := returns[t.String()]
		m.Returns = append(m.Returns, TypeMapping{Type: t.String(), Message: a.wireType, Field: a.field})
	}
	if registry.Used() {
		for _, l := range registry.Leaves() {
			m.ArrayLeaves = append(m.ArrayLeaves, l.Name)
		}
	}

	for i, meth := range scanned.Methods {
		rm := RPCMapping{
			Name:     scanned.RPCs[i].Name,
			Resource: meth.Resource,
			Method:   meth.Name,
			Verb:     meth.HTTPVerb,
			Path:     meth.PathTemplate,
			Sync:     meth.SyncKind.String(),
		}
		rm.Entity = memberOf(entities, meth.ParameterType, empties.entity)
		if meth.SyncKind == ir.ServerSentEvents {
			if meth.ReturnType != nil {
				rm.Stream = streams[meth.ReturnType.String()]
			}
		} else {
			rm.Return = memberOf(returns, meth.ReturnType, empties.ret)
		}
		m.RPCs = append(m.RPCs, rm)
	}
	return m
}

func memberOf(alts map[string]alternative, t ir.ResolvedType, empty string) string {
	if t == nil {
		return empty
	}
	return alts[t.String()].field
}
