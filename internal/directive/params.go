package directive

import (
	"fmt"
	"go/token"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"

	"github.com/broady/restproto/protogen/ir"
)

var (
	validate      = validator.New()
	paramsDecoder = schema.NewDecoder()
)

func init() {
	paramsDecoder.IgnoreUnknownKeys(false)
	_ = validate.RegisterValidation("goident", func(fl validator.FieldLevel) bool {
		return token.IsIdentifier(fl.Field().String())
	})
}

// Params maps parameter names to framework bindings. It is decoded from the
// query-string form of a params directive, e.g.
//
//	//rest:params path=id&query=limit&query=offset&header=auth
type Params struct {
	Header    []string `schema:"header" validate:"dive,goident"`
	Cookie    []string `schema:"cookie" validate:"dive,goident"`
	Path      []string `schema:"path" validate:"dive,goident"`
	Query     []string `schema:"query" validate:"dive,goident"`
	Matrix    []string `schema:"matrix" validate:"dive,goident"`
	Form      []string `schema:"form" validate:"dive,goident"`
	Context   []string `schema:"context" validate:"dive,goident"`
	Suspended []string `schema:"suspended" validate:"dive,goident"`
}

// ParseParams decodes a params directive argument.
func ParseParams(arg string) (Params, error) {
	var p Params
	if strings.TrimSpace(arg) == "" {
		return p, fmt.Errorf("//rest:params needs at least one binding")
	}
	values, err := url.ParseQuery(arg)
	if err != nil {
		return p, fmt.Errorf("//rest:params: %w", err)
	}
	if err := paramsDecoder.Decode(&p, values); err != nil {
		return p, fmt.Errorf("//rest:params: %w", err)
	}
	if err := validate.Struct(p); err != nil {
		return p, fmt.Errorf("//rest:params: %w", err)
	}
	return p, nil
}

func (p Params) groups() []struct {
	binding ir.Binding
	names   []string
} {
	return []struct {
		binding ir.Binding
		names   []string
	}{
		{ir.BindHeader, p.Header},
		{ir.BindCookie, p.Cookie},
		{ir.BindPath, p.Path},
		{ir.BindQuery, p.Query},
		{ir.BindMatrix, p.Matrix},
		{ir.BindForm, p.Form},
		{ir.BindContext, p.Context},
		{ir.BindSuspended, p.Suspended},
	}
}

// Binding returns the binding declared for the named parameter. Parameters
// not mentioned carry the entity binding.
func (p Params) Binding(name string) ir.Binding {
	for _, g := range p.groups() {
		for _, n := range g.names {
			if n == name {
				return g.binding
			}
		}
	}
	return ir.BindEntity
}

// Len returns the number of bound names.
func (p Params) Len() int {
	n := 0
	for _, g := range p.groups() {
		n += len(g.names)
	}
	return n
}

func (p Params) merge(o Params) Params {
	p.Header = append(p.Header, o.Header...)
	p.Cookie = append(p.Cookie, o.Cookie...)
	p.Path = append(p.Path, o.Path...)
	p.Query = append(p.Query, o.Query...)
	p.Matrix = append(p.Matrix, o.Matrix...)
	p.Form = append(p.Form, o.Form...)
	p.Context = append(p.Context, o.Context...)
	p.Suspended = append(p.Suspended, o.Suspended...)
	return p
}
