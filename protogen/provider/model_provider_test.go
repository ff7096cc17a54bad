package provider

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/broady/restproto/protogen/ir"
)

func TestModelProvider_Load(t *testing.T) {
	p := &ModelProvider{Root: "testdata/models"}
	files, err := p.Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	want := []string{
		filepath.Join("testdata", "models", "extra.yml"),
		filepath.Join("testdata", "models", "shop.yaml"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Files = %v, want %v", files, want)
	}

	m, err := p.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	wantClasses := []string{
		"com.example.audit.Audit",
		"com.example.shop.Entity",
		"com.example.shop.Point",
		"com.example.shop.User",
		"com.example.shop.User$Address",
	}
	if got := m.ClassNames(); !reflect.DeepEqual(got, wantClasses) {
		t.Errorf("ClassNames = %v, want %v", got, wantClasses)
	}

	user, err := m.Class("com.example.shop.User")
	if err != nil {
		t.Fatal(err)
	}
	if user.Superclass != "com.example.shop.Entity" {
		t.Errorf("Superclass = %q", user.Superclass)
	}
	if !reflect.DeepEqual(user.InternalTypes, []string{"com.example.shop.User$Address"}) {
		t.Errorf("InternalTypes = %v", user.InternalTypes)
	}
	wantFields := map[string]string{
		"name":    "java.lang.String",
		"age":     "java.lang.Integer",
		"tags":    "java.util.List<java.lang.String>",
		"scores":  "double[][]",
		"pet":     "com.example.shop.Pet",
		"address": "com.example.shop.User$Address",
	}
	if got := fieldTypes(user.Fields); !reflect.DeepEqual(got, wantFields) {
		t.Errorf("User fields = %v, want %v", got, wantFields)
	}
	for _, f := range user.Fields {
		if f.Name == "pet" && f.Type.Kind() != ir.KindInterface {
			t.Errorf("declared interface pet has kind %v", f.Type.Kind())
		}
	}

	entity, _ := m.Class("com.example.shop.Entity")
	if !entity.IsInterfaceOrAbstract {
		t.Error("abstract class should be IsInterfaceOrAbstract")
	}
	address, _ := m.Class("com.example.shop.User$Address")
	if address.Nesting != ir.PublicNested {
		t.Errorf("Address nesting = %v", address.Nesting)
	}
	point, _ := m.Class("com.example.shop.Point")
	if !point.IsRecord || len(point.Members()) != 2 {
		t.Errorf("Point should be a record with 2 components: %+v", point)
	}

	resources := m.Resources()
	if len(resources) != 1 {
		t.Fatalf("expected 1 resource, got %d", len(resources))
	}
	r := resources[0]
	if r.QualifiedName != "com.example.shop.UserResource" || r.Path != "/users" {
		t.Errorf("resource = %s %s", r.QualifiedName, r.Path)
	}
	get, create, sub := r.Methods[0], r.Methods[1], r.Methods[2]
	if get.Verb != "GET" || !get.HasPath || get.Path != "/{id}" || get.Params[0].Binding != ir.BindPath {
		t.Errorf("get = %+v", get)
	}
	if !reflect.DeepEqual(get.Produces, []string{"application/json"}) {
		t.Errorf("resource produces not inherited: %v", get.Produces)
	}
	if create.HasPath || create.Returns != nil || create.Params[0].Binding != ir.BindEntity {
		t.Errorf("create = %+v", create)
	}
	if sub.Verb != "" || !sub.HasPath || sub.Returns.String() != "com.example.shop.Point" {
		t.Errorf("sub = %+v", sub)
	}
}

func TestModelProvider_Archives(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "lib.yaml")
	if err := os.WriteFile(archive, []byte("classes:\n  - name: lib.Money\n    fields:\n      - {name: cents, type: long}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := &ModelProvider{Archives: []string{archive, filepath.Join("testdata", "models", "*.yml")}}
	m, err := p.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.HasClass("lib.Money") || !m.HasClass("com.example.audit.Audit") {
		t.Errorf("ClassNames = %v", m.ClassNames())
	}

	p = &ModelProvider{Archives: []string{filepath.Join(dir, "missing.yaml")}}
	if _, err := p.Files(); err == nil {
		t.Error("missing archive should fail")
	}
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"a/one.yaml": {Data: []byte("package: p\nclasses:\n  - name: A\n    fields:\n      - {name: b, type: B}\n")},
		"b/two.yml":  {Data: []byte("package: p\nclasses:\n  - name: B\n")},
		"empty.yaml": {Data: nil},
		"notes.txt":  {Data: []byte("ignored")},
	}
	m, err := LoadFS(fsys)
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	if got := m.ClassNames(); !reflect.DeepEqual(got, []string{"p.A", "p.B"}) {
		t.Errorf("ClassNames = %v", got)
	}
}

func TestDecodeDocument_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown key", "classes:\n  - name: A\n    color: red\n", "decode"},
		{"missing name", "classes:\n  - kind: class\n", "validate"},
		{"bad kind", "classes:\n  - name: A\n    kind: struct\n", "validate"},
		{"bad binding", "resources:\n  - name: R\n    methods:\n      - name: m\n        params:\n          - {name: x, type: int, binding: body}\n", "validate"},
		{"bad verb", "resources:\n  - name: R\n    methods:\n      - name: m\n        verb: FETCH\n", "validate"},
		{"malformed yaml", "classes: [", "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDocument([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDocumentModel_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"components on class", "classes:\n  - name: A\n    components:\n      - {name: x, type: int}\n"},
		{"bad field type", "classes:\n  - name: A\n    fields:\n      - {name: x, type: \"List<\"}\n"},
		{"bad param type", "resources:\n  - name: R\n    methods:\n      - name: m\n        params:\n          - {name: x, type: \"int<String>\"}\n"},
		{"bad return type", "resources:\n  - name: R\n    methods:\n      - name: m\n        returns: \"a..b\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := DecodeDocument([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("DecodeDocument: %v", err)
			}
			if _, err := doc.Model(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
