package provider

import (
	"context"
	"errors"
	"go/types"
	"reflect"
	"testing"

	"github.com/broady/restproto/internal/extraclass"
	"github.com/broady/restproto/protogen/ir"
)

const fixturePkg = "github.com/broady/restproto/protogen/provider/testdata/shop"

func loadFixture(t *testing.T) *SourceModel {
	t.Helper()
	p := &SourceProvider{
		Dir:          "testdata/shop",
		Patterns:     []string{"."},
		ExtraClasses: []extraclass.Spec{{Dir: "extra", QualifiedName: "Audit"}},
	}
	m, err := p.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return m
}

func fieldTypes(fields []ir.Field) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Name] = f.Type.String()
	}
	return out
}

func TestSourceProvider_Resources(t *testing.T) {
	m := loadFixture(t)

	resources := m.Resources()
	if len(resources) != 1 {
		t.Fatalf("expected 1 resource, got %d", len(resources))
	}
	users := resources[0]
	if users.QualifiedName != fixturePkg+".Users" {
		t.Errorf("QualifiedName = %q", users.QualifiedName)
	}
	if users.Path != "/users" {
		t.Errorf("Path = %q, want /users", users.Path)
	}

	type want struct {
		verb     string
		hasPath  bool
		path     string
		produces []string
		params   []string
		returns  string
	}
	tests := map[string]want{
		"Get": {
			verb: "GET", hasPath: true, path: "/{id}",
			produces: []string{"application/json"},
			params:   []string{"id:java.lang.String:path"},
			returns:  fixturePkg + ".User",
		},
		"Create": {
			verb:     "POST",
			produces: []string{"application/json"},
			params:   []string{"u:" + fixturePkg + ".User:"},
		},
		"List": {
			verb:     "GET",
			produces: []string{"application/json"},
			params:   []string{"cursor:java.lang.String:query"},
			returns:  fixturePkg + ".Page<" + fixturePkg + ".User>",
		},
		"Events": {
			verb: "GET", hasPath: true, path: "/events",
			produces: []string{"text/event-stream", "application/json"},
			returns:  fixturePkg + ".User",
		},
		"Wait": {
			verb: "PUT", hasPath: true, path: "/{id}/wait",
			produces: []string{"application/json"},
			params:   []string{"id:java.lang.String:path", "resp:" + fixturePkg + ".AsyncResponse:suspended"},
		},
		"Secret": {
			hasPath: true, path: "/secret",
			produces: []string{"application/json"},
			returns:  fixturePkg + ".secret",
		},
	}
	if len(users.Methods) != len(tests) {
		t.Fatalf("expected %d methods, got %d", len(tests), len(users.Methods))
	}
	for _, decl := range users.Methods {
		t.Run(decl.Name, func(t *testing.T) {
			w, ok := tests[decl.Name]
			if !ok {
				t.Fatalf("unexpected method %s", decl.Name)
			}
			if decl.Verb != w.verb || decl.HasPath != w.hasPath || decl.Path != w.path {
				t.Errorf("route = %q %v %q, want %q %v %q", decl.Verb, decl.HasPath, decl.Path, w.verb, w.hasPath, w.path)
			}
			if !reflect.DeepEqual(decl.Produces, w.produces) {
				t.Errorf("Produces = %v, want %v", decl.Produces, w.produces)
			}
			var params []string
			for _, p := range decl.Params {
				params = append(params, p.Name+":"+p.Type.String()+":"+string(p.Binding))
			}
			if !reflect.DeepEqual(params, w.params) {
				t.Errorf("Params = %v, want %v", params, w.params)
			}
			got := ""
			if decl.Returns != nil {
				got = decl.Returns.String()
			}
			if got != w.returns {
				t.Errorf("Returns = %q, want %q", got, w.returns)
			}
		})
	}
}

func TestSourceProvider_Classes(t *testing.T) {
	m := loadFixture(t)

	user, err := m.Class(fixturePkg + ".User")
	if err != nil {
		t.Fatalf("Class(User): %v", err)
	}
	if user.Superclass != fixturePkg+".Base" {
		t.Errorf("Superclass = %q, want Base", user.Superclass)
	}
	if user.Nesting != ir.TopLevel {
		t.Errorf("Nesting = %v, want TopLevel", user.Nesting)
	}
	wantFields := map[string]string{
		"name":    "java.lang.String",
		"age":     "java.lang.Integer",
		"tags":    "java.lang.String[]",
		"scores":  "double[][]",
		"avatar":  "byte[]",
		"attrs":   "map[string]string",
		"pet":     fixturePkg + ".Pet",
		"status":  "java.lang.String",
		"initial": "char",
	}
	if got := fieldTypes(user.Fields); !reflect.DeepEqual(got, wantFields) {
		t.Errorf("User fields = %v, want %v", got, wantFields)
	}
	if user.Fields[0].Name != "name" {
		t.Errorf("fields out of declaration order: first is %q", user.Fields[0].Name)
	}

	base, err := m.Class(fixturePkg + ".Base")
	if err != nil {
		t.Fatalf("Class(Base): %v", err)
	}
	if got := fieldTypes(base.Fields); got["id"] != "long" || got["created"] != "java.lang.String" {
		t.Errorf("Base fields = %v", got)
	}

	pet, err := m.Class(fixturePkg + ".Pet")
	if err != nil {
		t.Fatalf("Class(Pet): %v", err)
	}
	if !pet.IsInterfaceOrAbstract {
		t.Error("Pet should be an interface")
	}

	page, err := m.Class(fixturePkg + ".Page")
	if err != nil {
		t.Fatalf("Class(Page): %v", err)
	}
	if !reflect.DeepEqual(page.TypeParameters, []string{"T"}) {
		t.Errorf("Page type parameters = %v", page.TypeParameters)
	}
	if got := fieldTypes(page.Fields); got["items"] != "T[]" || got["Next"] != "java.lang.String" {
		t.Errorf("Page fields = %v", got)
	}

	secret, err := m.Class(fixturePkg + ".secret")
	if err != nil {
		t.Fatalf("Class(secret): %v", err)
	}
	if secret.Nesting != ir.HiddenNested {
		t.Errorf("unexported type nesting = %v, want HiddenNested", secret.Nesting)
	}

	again, _ := m.Class(fixturePkg + ".User")
	if again != user {
		t.Error("Class should return the cached descriptor")
	}
}

func TestSourceProvider_ResolutionErrors(t *testing.T) {
	m := loadFixture(t)
	for _, name := range []string{
		"Unqualified",
		"example.com/missing.Type",
		fixturePkg + ".Missing",
	} {
		_, err := m.Class(name)
		var re *ir.ResolutionError
		if !errors.As(err, &re) {
			t.Errorf("Class(%q) error = %v, want *ir.ResolutionError", name, err)
		}
	}
	if _, err := m.Class(fixturePkg + ".Status"); err == nil {
		t.Error("Class(Status) should fail: a named string has no fields")
	}
}

func TestSourceProvider_ExtraClasses(t *testing.T) {
	m := loadFixture(t)
	want := []string{fixturePkg + "/extra.Audit"}
	if !reflect.DeepEqual(m.ExtraClasses(), want) {
		t.Fatalf("ExtraClasses = %v, want %v", m.ExtraClasses(), want)
	}
	audit, err := m.Class(want[0])
	if err != nil {
		t.Fatalf("Class(Audit): %v", err)
	}
	if got := fieldTypes(audit.Fields); got["actor"] != "java.lang.String" {
		t.Errorf("Audit fields = %v", got)
	}
}

func TestConvertType(t *testing.T) {
	tests := []struct {
		typ  types.Type
		want string
	}{
		{types.Typ[types.Bool], "boolean"},
		{types.Typ[types.Int8], "byte"},
		{types.Typ[types.Byte], "byte"},
		{types.Typ[types.Int16], "short"},
		{types.Typ[types.Uint16], "int"},
		{types.Typ[types.Int32], "int"},
		{types.Typ[types.Int], "long"},
		{types.Typ[types.Uint64], "long"},
		{types.Typ[types.Float32], "float"},
		{types.Typ[types.Float64], "double"},
		{types.Typ[types.String], "java.lang.String"},
		{types.NewPointer(types.Typ[types.Int64]), "java.lang.Long"},
		{types.NewPointer(types.Typ[types.String]), "java.lang.String"},
		{types.NewSlice(types.NewSlice(types.Typ[types.Int32])), "int[][]"},
		{types.NewArray(types.Typ[types.Float64], 3), "double[]"},
		{types.NewInterfaceType(nil, nil), ir.ObjectName},
		{types.NewMap(types.Typ[types.String], types.Typ[types.Int]), "map[string]int"},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			got, err := ConvertType(tt.typ)
			if err != nil {
				t.Fatalf("ConvertType(%s): %v", tt.typ, err)
			}
			if got.String() != tt.want {
				t.Errorf("ConvertType(%s) = %s, want %s", tt.typ, got, tt.want)
			}
		})
	}

	for _, bad := range []types.Type{
		types.Typ[types.Complex128],
		types.NewChan(types.SendRecv, types.Typ[types.Int]),
		types.NewSignatureType(nil, nil, nil, nil, nil, false),
	} {
		if _, err := ConvertType(bad); err == nil {
			t.Errorf("ConvertType(%s) succeeded, want error", bad)
		}
	}
}
