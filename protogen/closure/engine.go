// Package closure computes the transitive closure of the types reachable from
// a set of seeds and emits one message per reached class.
//
// The engine is a worklist fixpoint. Each class descriptor moves
// discovered -> pending -> emitted exactly once: the visited set only grows and
// is updated before a class's fields are scanned, so cycles terminate and
// every participant is emitted once. Superclass fields are flattened into the
// subclass message; a superclass gets a standalone message only when it is
// referenced on its own.
package closure

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/broady/restproto/protogen/arrays"
	"github.com/broady/restproto/protogen/classify"
	"github.com/broady/restproto/protogen/idl"
	"github.com/broady/restproto/protogen/ir"
	"github.com/broady/restproto/protogen/naming"
)

// ErrCircularInheritance is returned when a superclass chain loops.
var ErrCircularInheritance = errors.New("circular inheritance")

// ErrNameClash is returned when two classes mangle to the same message name.
var ErrNameClash = errors.New("message name clash")

// Engine holds the state of one closure computation. Engines are not safe
// for concurrent use.
type Engine struct {
	resolver ir.Resolver
	arrays   *arrays.Registry
	logger   *slog.Logger

	pending    []*ir.ClassDescriptor
	inPending  map[string]bool
	visited    map[string]bool
	visitOrder []*ir.ClassDescriptor
	interfaces []string
	ifaceSet   map[string]bool
	messages   []*idl.Message

	// owners maps emitted message names to their qualified class names.
	owners map[string]string

	// renamed maps a qualified class name to the wire names of fields whose
	// source name had to change, and the source names they came from.
	renamed map[string]map[string]string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an engine that resolves classes through r and registers array
// leaves in reg.
func New(r ir.Resolver, reg *arrays.Registry, opts ...Option) *Engine {
	e := &Engine{
		resolver:  r,
		arrays:    reg,
		logger:    slog.Default(),
		inPending: make(map[string]bool),
		visited:   make(map[string]bool),
		ifaceSet:  make(map[string]bool),
		owners:    make(map[string]string),
		renamed:   make(map[string]map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run seeds the engine and drains the worklist. It returns every message
// emitted so far in visitation order; calling Run again with more seeds
// continues the same closure.
func (e *Engine) Run(seeds ...ir.ResolvedType) ([]*idl.Message, error) {
	for _, t := range seeds {
		if err := e.Seed(t); err != nil {
			return nil, err
		}
	}
	if err := e.drain(); err != nil {
		return nil, err
	}
	return e.Messages(), nil
}

// Seed classifies t and enqueues any class it reaches without draining.
func (e *Engine) Seed(t ir.ResolvedType) error {
	if t == nil {
		return nil
	}
	_, err := e.WireType(t, "seed")
	return err
}

// WireType returns the declared wire type of a value of type t, enqueueing
// referenced classes and registering array leaves as a side effect.
// referrer names the reference site for error messages.
func (e *Engine) WireType(t ir.ResolvedType, referrer string) (string, error) {
	c, err := classify.Classify(t, e.resolver)
	if err != nil {
		return "", withReferrer(err, referrer)
	}

	switch c.Variant {
	case classify.Primitive, classify.Boxed, classify.String:
		return c.Scalar, nil

	case classify.Array:
		leaf, err := e.leaf(c.Component, referrer)
		if err != nil {
			return "", err
		}
		return e.arrays.WrapAsArrayField(leaf), nil

	case classify.InterfaceOrAbstract:
		e.addInterface(c.Name)
		return idl.AnyType, nil

	case classify.TypeVariable:
		return idl.AnyType, nil

	case classify.PlainClass, classify.Record:
		e.enqueue(c.Class)
		return naming.MangleClass(c.Class), nil

	default:
		return "", fmt.Errorf("unhandled variant %s for %s", c.Variant, t)
	}
}

// leaf returns the array leaf of an innermost component type.
func (e *Engine) leaf(component ir.ResolvedType, referrer string) (arrays.Leaf, error) {
	c, err := classify.Classify(component, e.resolver)
	if err != nil {
		return arrays.Leaf{}, withReferrer(err, referrer)
	}

	switch c.Variant {
	case classify.Primitive:
		return arrays.ScalarLeaf(component.(*ir.PrimitiveType).Scalar), nil
	case classify.Boxed:
		if b, ok := component.(*ir.BoxedType); ok {
			return arrays.ScalarLeaf(b.Scalar), nil
		}
		return boxedLeafByName(c.Box), nil
	case classify.String:
		return arrays.StringLeaf, nil
	case classify.InterfaceOrAbstract:
		e.addInterface(c.Name)
		return arrays.AnyLeaf, nil
	case classify.TypeVariable:
		return arrays.AnyLeaf, nil
	case classify.PlainClass, classify.Record:
		e.enqueue(c.Class)
		return arrays.MessageLeaf(naming.MangleClass(c.Class)), nil
	default:
		return arrays.Leaf{}, fmt.Errorf("unhandled array component %s", component)
	}
}

func boxedLeafByName(box string) arrays.Leaf {
	switch box {
	case "gBoolean":
		return arrays.BooleanLeaf
	case "gByte":
		return arrays.ByteLeaf
	case "gShort":
		return arrays.ShortLeaf
	case "gInteger":
		return arrays.IntLeaf
	case "gLong":
		return arrays.LongLeaf
	case "gFloat":
		return arrays.FloatLeaf
	case "gDouble":
		return arrays.DoubleLeaf
	case "gCharacter":
		return arrays.CharLeaf
	default:
		return arrays.StringLeaf
	}
}

func (e *Engine) enqueue(d *ir.ClassDescriptor) {
	if e.visited[d.QualifiedName] || e.inPending[d.QualifiedName] {
		return
	}
	e.inPending[d.QualifiedName] = true
	e.pending = append(e.pending, d)
}

func (e *Engine) addInterface(name string) {
	if e.ifaceSet[name] {
		return
	}
	e.ifaceSet[name] = true
	e.interfaces = append(e.interfaces, name)
}

// drain pops pending descriptors until the worklist is empty.
func (e *Engine) drain() error {
	for len(e.pending) > 0 {
		d := e.pending[0]
		e.pending = e.pending[1:]
		delete(e.inPending, d.QualifiedName)

		if e.visited[d.QualifiedName] {
			continue
		}
		e.visited[d.QualifiedName] = true
		e.visitOrder = append(e.visitOrder, d)

		name := naming.MangleClass(d)
		if other, ok := e.owners[name]; ok {
			return fmt.Errorf("%w: %s and %s both map to %s", ErrNameClash, other, d.QualifiedName, name)
		}
		e.owners[name] = d.QualifiedName

		m, err := e.emitBody(d, name)
		if err != nil {
			return err
		}
		e.messages = append(e.messages, m)
		e.logger.Debug("emitted message",
			slog.String("type", d.QualifiedName),
			slog.String("message", m.Name),
			slog.Int("fields", m.NumFields()))
	}
	return nil
}

// emitBody builds the message for d with superclass fields flattened in,
// ancestors first.
func (e *Engine) emitBody(d *ir.ClassDescriptor, name string) (*idl.Message, error) {
	m := idl.NewMessage(name)
	if err := e.inline(m, d, d.QualifiedName, make(map[string]bool)); err != nil {
		return nil, err
	}
	return m, nil
}

// inline appends the members of d, after those of its superclass chain, to m,
// the message of the class owner.
func (e *Engine) inline(m *idl.Message, d *ir.ClassDescriptor, owner string, chain map[string]bool) error {
	if chain[d.QualifiedName] {
		return fmt.Errorf("%w: %s", ErrCircularInheritance, d.QualifiedName)
	}
	chain[d.QualifiedName] = true

	if d.Superclass != "" && d.Superclass != ir.ObjectName {
		super, err := e.resolver.Class(d.Superclass)
		if err != nil {
			return withReferrer(err, "superclass of "+d.QualifiedName)
		}
		if err := e.inline(m, super, owner, chain); err != nil {
			return err
		}
	}

	for _, name := range d.InternalTypes {
		nested, err := e.resolver.Class(name)
		if err != nil {
			return withReferrer(err, "member type of "+d.QualifiedName)
		}
		if nested.IsInterfaceOrAbstract {
			continue
		}
		e.enqueue(nested)
	}

	for _, member := range d.Members() {
		typ, err := e.WireType(member.Type, d.QualifiedName+"."+member.Name)
		if err != nil {
			return err
		}
		f := m.AddField(typ, member.Name)
		if f.Name != member.Name {
			if e.renamed[owner] == nil {
				e.renamed[owner] = make(map[string]string)
			}
			e.renamed[owner][f.Name] = member.Name
		}
	}
	return nil
}

// Messages returns the emitted messages in visitation order.
func (e *Engine) Messages() []*idl.Message {
	out := make([]*idl.Message, len(e.messages))
	copy(out, e.messages)
	return out
}

// Visited returns the emitted class descriptors in visitation order.
func (e *Engine) Visited() []*ir.ClassDescriptor {
	out := make([]*ir.ClassDescriptor, len(e.visitOrder))
	copy(out, e.visitOrder)
	return out
}

// IsVisited reports whether the class has been emitted.
func (e *Engine) IsVisited(qualifiedName string) bool {
	return e.visited[qualifiedName]
}

// RenamedFields returns, for the message of a class, the wire names of the
// fields whose source name was changed to be a valid or unique identifier,
// mapped to the source names. It returns nil when every name was kept.
func (e *Engine) RenamedFields(qualifiedName string) map[string]string {
	src := e.renamed[qualifiedName]
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Interfaces returns the names of types represented opaquely, in discovery order.
func (e *Engine) Interfaces() []string {
	out := make([]string, len(e.interfaces))
	copy(out, e.interfaces)
	return out
}

// Pending returns the number of queued descriptors.
func (e *Engine) Pending() int {
	return len(e.pending)
}

func withReferrer(err error, referrer string) error {
	var re *ir.ResolutionError
	if errors.As(err, &re) && re.Referrer == "" && referrer != "" {
		return &ir.ResolutionError{Name: re.Name, Referrer: referrer}
	}
	return err
}
