package idl

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

const indent = "  "

// Print writes f as proto3 text.
func Print(w io.Writer, f *File) error {
	var buf bytes.Buffer
	p := printer{buf: &buf}
	p.file(f)
	_, err := w.Write(buf.Bytes())
	return err
}

// Bytes renders f as proto3 text.
func Bytes(f *File) []byte {
	var buf bytes.Buffer
	p := printer{buf: &buf}
	p.file(f)
	return buf.Bytes()
}

type printer struct {
	buf *bytes.Buffer
}

func (p *printer) line(depth int, format string, args ...any) {
	for i := 0; i < depth; i++ {
		p.buf.WriteString(indent)
	}
	fmt.Fprintf(p.buf, format, args...)
	p.buf.WriteByte('\n')
}

func (p *printer) file(f *File) {
	p.line(0, "syntax = \"proto3\";")
	if f.Package != "" {
		p.buf.WriteByte('\n')
		p.line(0, "package %s;", f.Package)
	}

	if len(f.Imports) > 0 {
		p.buf.WriteByte('\n')
		for _, imp := range f.Imports {
			p.line(0, "import %s;", strconv.Quote(imp))
		}
	}

	if len(f.Options) > 0 {
		p.buf.WriteByte('\n')
		for _, opt := range f.Options {
			p.line(0, "option %s = %s;", opt.Name, strconv.Quote(opt.Value))
		}
	}

	for _, s := range f.Services {
		p.buf.WriteByte('\n')
		p.service(s)
	}

	for _, m := range f.Messages {
		p.buf.WriteByte('\n')
		p.message(m)
	}
}

func (p *printer) service(s *Service) {
	p.line(0, "service %s {", s.Name)
	for _, rpc := range s.RPCs {
		if rpc.Comment != "" {
			p.line(1, "// %s", rpc.Comment)
		}
		stream := ""
		if rpc.ServerStreaming {
			stream = "stream "
		}
		p.line(1, "rpc %s (%s) returns (%s%s);", rpc.Name, rpc.Request, stream, rpc.Response)
	}
	p.line(0, "}")
}

func (p *printer) message(m *Message) {
	p.line(0, "message %s {", m.Name)
	for _, d := range m.decls {
		switch {
		case d.enum != nil:
			p.enum(1, d.enum)
		case d.oneof != nil:
			p.line(1, "oneof %s {", d.oneof.Name)
			for _, f := range d.oneof.Fields {
				p.field(2, f)
			}
			p.line(1, "}")
		case d.field != nil:
			p.field(1, *d.field)
		}
	}
	p.line(0, "}")
}

func (p *printer) enum(depth int, e *Enum) {
	p.line(depth, "enum %s {", e.Name)
	for _, v := range e.Values {
		p.line(depth+1, "%s = %d;", v.Name, v.Number)
	}
	p.line(depth, "}")
}

func (p *printer) field(depth int, f Field) {
	switch {
	case f.MapKey != "":
		p.line(depth, "map<%s, %s> %s = %d;", f.MapKey, f.Type, f.Name, f.Number)
	case f.Repeated:
		p.line(depth, "repeated %s %s = %d;", f.Type, f.Name, f.Number)
	default:
		p.line(depth, "%s %s = %d;", f.Type, f.Name, f.Number)
	}
}
