// Package idl is the output model of the schema compiler: a proto3 file made
// of services and messages. Message builders number fields sequentially from 1
// and keep names unique; Print renders the file as text.
package idl

import "github.com/broady/restproto/protogen/naming"

// Well-known wire types referenced by generated messages.
const (
	AnyType       = "google.protobuf.Any"
	TimestampType = "google.protobuf.Timestamp"
)

// Standard imports for the well-known types.
const (
	AnyImport       = "google/protobuf/any.proto"
	TimestampImport = "google/protobuf/timestamp.proto"
)

// File is one proto3 file.
type File struct {
	// Name is the file path used for imports and verification, e.g. "Example.proto".
	Name string

	Package  string
	Imports  []string
	Options  []Option
	Services []*Service
	Messages []*Message
}

// Option is a file-level string option.
type Option struct {
	Name  string
	Value string
}

// AddMessages appends messages in order.
func (f *File) AddMessages(msgs ...*Message) {
	f.Messages = append(f.Messages, msgs...)
}

// FindMessage returns the message with the given name, or nil.
func (f *File) FindMessage(name string) *Message {
	for _, m := range f.Messages {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Service is a service block.
type Service struct {
	Name string
	RPCs []RPC
}

// RPC is one rpc declaration.
type RPC struct {
	Name            string
	Request         string
	Response        string
	ServerStreaming bool

	// Comment is emitted as a line comment above the rpc.
	Comment string
}

// Field is a message field or oneof member.
type Field struct {
	Type     string
	Name     string
	Number   int
	Repeated bool

	// MapKey is set for map fields; Type is then the value type.
	MapKey string

	// Oneof names the enclosing oneof, empty for plain fields.
	Oneof string
}

// EnumValue is one enum constant.
type EnumValue struct {
	Name   string
	Number int
}

// Enum is an enum declared inside a message.
type Enum struct {
	Name   string
	Values []EnumValue
}

// Oneof is a discriminated union inside a message.
type Oneof struct {
	Name   string
	Fields []Field

	msg *Message
}

// AddField adds a member to the oneof, numbered in the enclosing message's
// sequence. The name is made unique within the message.
func (o *Oneof) AddField(typ, name string) Field {
	f := o.msg.newField(typ, name)
	f.Oneof = o.Name
	o.Fields = append(o.Fields, f)
	return f
}

// Len returns the number of members.
func (o *Oneof) Len() int {
	return len(o.Fields)
}

// decl is one declaration in a message body, kept in insertion order.
type decl struct {
	field *Field
	oneof *Oneof
	enum  *Enum
}

// Message is a message block under construction.
type Message struct {
	Name string

	decls []decl
	names *naming.Names
	next  int
}

// NewMessage returns an empty message.
func NewMessage(name string) *Message {
	return &Message{
		Name:  name,
		names: naming.NewNames(),
		next:  1,
	}
}

func (m *Message) newField(typ, name string) Field {
	f := Field{
		Type:   typ,
		Name:   m.names.Resolve(name),
		Number: m.next,
	}
	m.next++
	return f
}

// AddField appends a singular field and returns it with its resolved name
// and number.
func (m *Message) AddField(typ, name string) Field {
	f := m.newField(typ, name)
	m.decls = append(m.decls, decl{field: &f})
	return f
}

// AddRepeated appends a repeated field.
func (m *Message) AddRepeated(typ, name string) Field {
	f := m.newField(typ, name)
	f.Repeated = true
	m.decls = append(m.decls, decl{field: &f})
	return f
}

// AddMap appends a map field.
func (m *Message) AddMap(key, value, name string) Field {
	f := m.newField(value, name)
	f.MapKey = key
	m.decls = append(m.decls, decl{field: &f})
	return f
}

// AddOneof appends an empty oneof. Members are added through the returned value.
func (m *Message) AddOneof(name string) *Oneof {
	o := &Oneof{Name: m.names.Resolve(name), msg: m}
	m.decls = append(m.decls, decl{oneof: o})
	return o
}

// AddEnum declares a nested enum.
func (m *Message) AddEnum(name string, values ...string) *Enum {
	e := &Enum{Name: m.names.Resolve(name)}
	for i, v := range values {
		e.Values = append(e.Values, EnumValue{Name: v, Number: i})
	}
	m.decls = append(m.decls, decl{enum: e})
	return e
}

// Fields returns every field, including oneof members, in number order.
func (m *Message) Fields() []Field {
	var out []Field
	for _, d := range m.decls {
		switch {
		case d.field != nil:
			out = append(out, *d.field)
		case d.oneof != nil:
			out = append(out, d.oneof.Fields...)
		}
	}
	return out
}

// Field returns the field with the given name.
func (m *Message) Field(name string) (Field, bool) {
	for _, f := range m.Fields() {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Oneofs returns the message's oneofs in declaration order.
func (m *Message) Oneofs() []*Oneof {
	var out []*Oneof
	for _, d := range m.decls {
		if d.oneof != nil {
			out = append(out, d.oneof)
		}
	}
	return out
}

// Enums returns the message's nested enums.
func (m *Message) Enums() []*Enum {
	var out []*Enum
	for _, d := range m.decls {
		if d.enum != nil {
			out = append(out, d.enum)
		}
	}
	return out
}

// NumFields returns the number of fields assigned so far.
func (m *Message) NumFields() int {
	return m.next - 1
}
