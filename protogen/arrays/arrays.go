// Package arrays implements the recursive array representation.
//
// Every array field, whatever its rank or element type, is declared as the
// single container message ArrayHolder. ArrayHolder is a oneof over "WArray"
// messages: one per leaf element type, plus a self-referential variant that
// holds further ArrayHolders for higher ranks. Elements are wrapped in a
// two-variant message {none, value} so repeated fields can carry nulls.
//
// Leaf wrapper/WArray pairs are registered lazily in a Registry, once per
// distinct leaf across the whole schema.
package arrays

import (
	"sort"

	"github.com/broady/restproto/protogen/idl"
	"github.com/broady/restproto/protogen/ir"
)

// HolderName is the declared type of every array field.
const HolderName = "ArrayHolder"

// Suffixes of the per-leaf messages.
const (
	WrapperSuffix = "___wrapper"
	WArraySuffix  = "___WArray"
)

// ComponentField carries the source element type name for the runtime translator.
const ComponentField = "componentClass"

// Leaf is an array element wire type.
type Leaf struct {
	// Name is the canonical leaf name; wrapper and WArray names derive from it.
	Name string

	// WireType is the type of the wrapper's value field.
	WireType string

	// WellKnown marks the fixed scalar and opaque leaves.
	WellKnown bool
}

// WrapperName returns the element wrapper message name.
func (l Leaf) WrapperName() string { return l.Name + WrapperSuffix }

// WArrayName returns the repeated-of-wrapper message name.
func (l Leaf) WArrayName() string { return l.Name + WArraySuffix }

// Well-known leaves in ArrayHolder variant order.
var (
	BooleanLeaf = Leaf{Name: "Boolean", WireType: "bool", WellKnown: true}
	ByteLeaf    = Leaf{Name: "Byte", WireType: "int32", WellKnown: true}
	ShortLeaf   = Leaf{Name: "Short", WireType: "int32", WellKnown: true}
	IntLeaf     = Leaf{Name: "Int", WireType: "int32", WellKnown: true}
	LongLeaf    = Leaf{Name: "Long", WireType: "int64", WellKnown: true}
	FloatLeaf   = Leaf{Name: "Float", WireType: "float", WellKnown: true}
	DoubleLeaf  = Leaf{Name: "Double", WireType: "double", WellKnown: true}
	CharLeaf    = Leaf{Name: "Char", WireType: "string", WellKnown: true}
	StringLeaf  = Leaf{Name: "String", WireType: "string", WellKnown: true}
	AnyLeaf     = Leaf{Name: "Any", WireType: idl.AnyType, WellKnown: true}
)

var wellKnown = []Leaf{
	BooleanLeaf, ByteLeaf, ShortLeaf, IntLeaf, LongLeaf,
	FloatLeaf, DoubleLeaf, CharLeaf, StringLeaf, AnyLeaf,
}

var scalarLeaves = map[ir.Scalar]Leaf{
	ir.Boolean: BooleanLeaf,
	ir.Byte:    ByteLeaf,
	ir.Short:   ShortLeaf,
	ir.Int:     IntLeaf,
	ir.Long:    LongLeaf,
	ir.Float:   FloatLeaf,
	ir.Double:  DoubleLeaf,
	ir.Char:    CharLeaf,
}

// WellKnown returns the fixed leaves in variant order.
func WellKnown() []Leaf {
	out := make([]Leaf, len(wellKnown))
	copy(out, wellKnown)
	return out
}

// ScalarLeaf returns the leaf of a primitive kind. Boxed arrays share the
// leaf of their primitive; componentClass tells them apart at runtime.
func ScalarLeaf(s ir.Scalar) Leaf {
	return scalarLeaves[s]
}

// MessageLeaf returns the leaf of a generated message type.
func MessageLeaf(messageName string) Leaf {
	return Leaf{Name: messageName, WireType: messageName}
}

// holderLeaf is the self-referential leaf: an array of ArrayHolder.
var holderLeaf = Leaf{Name: HolderName, WireType: HolderName}

// Registry accumulates the leaves discovered during closure computation.
// Entries are never removed; registering a leaf twice is a no-op.
type Registry struct {
	leaves map[string]Leaf
	order  []string
	used   bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{leaves: make(map[string]Leaf)}
}

// Register records l and reports whether it was new.
func (r *Registry) Register(l Leaf) bool {
	if _, ok := r.leaves[l.Name]; ok {
		return false
	}
	r.leaves[l.Name] = l
	r.order = append(r.order, l.Name)
	return true
}

// WrapAsArrayField registers the element leaf and returns the declared type
// of the array field, which is always HolderName.
func (r *Registry) WrapAsArrayField(element Leaf) string {
	r.used = true
	r.Register(element)
	return HolderName
}

// Used reports whether any array field was wrapped.
func (r *Registry) Used() bool {
	return r.used
}

// Leaves returns the registered leaves sorted by name.
func (r *Registry) Leaves() []Leaf {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)

	out := make([]Leaf, len(names))
	for i, name := range names {
		out[i] = r.leaves[name]
	}
	return out
}

// Has reports whether a leaf with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.leaves[name]
	return ok
}

// Messages returns the array definitions: one wrapper and WArray pair per
// leaf in sorted order, the pair for nested holders, then ArrayHolder.
// The well-known leaves are registered first since ArrayHolder always
// enumerates them.
func (r *Registry) Messages() []*idl.Message {
	for _, l := range wellKnown {
		r.Register(l)
	}

	var msgs []*idl.Message
	for _, l := range r.Leaves() {
		msgs = append(msgs, wrapperMessage(l), warrayMessage(l))
	}
	msgs = append(msgs, wrapperMessage(holderLeaf), warrayMessage(holderLeaf))
	msgs = append(msgs, r.holderMessage())
	return msgs
}

func wrapperMessage(l Leaf) *idl.Message {
	m := idl.NewMessage(l.WrapperName())
	o := m.AddOneof("element")
	o.AddField("bool", "none")
	o.AddField(l.WireType, "value")
	return m
}

func warrayMessage(l Leaf) *idl.Message {
	m := idl.NewMessage(l.WArrayName())
	m.AddRepeated(l.WrapperName(), "elements")
	return m
}

// holderMessage builds ArrayHolder: componentClass, then the well-known
// variants, the nested-holder variant, and one variant per message leaf.
func (r *Registry) holderMessage() *idl.Message {
	m := idl.NewMessage(HolderName)
	m.AddField("string", ComponentField)

	o := m.AddOneof("messageType")
	for _, l := range wellKnown {
		o.AddField(l.WArrayName(), VariantFieldName(l))
	}
	o.AddField(holderLeaf.WArrayName(), VariantFieldName(holderLeaf))
	for _, l := range r.Leaves() {
		if l.WellKnown {
			continue
		}
		o.AddField(l.WArrayName(), VariantFieldName(l))
	}
	return m
}

// VariantFieldName is the ArrayHolder oneof member name for a leaf.
func VariantFieldName(l Leaf) string {
	return lowerFirst(l.Name) + "_field"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
