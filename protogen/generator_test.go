package protogen

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/broady/restproto/internal/extraclass"
	"github.com/broady/restproto/protogen/sink"
)

const (
	modelRoot  = "provider/testdata/models"
	sourceRoot = "provider/testdata/shop"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerate_Model(t *testing.T) {
	ctx := context.Background()
	mem := sink.NewMemorySink()

	result, err := FromModel(modelRoot).
		Packages("com.example.api", "example.api.v1").
		OuterName("Shop").
		Verify().
		Logger(quietLogger()).
		ToSink(ctx, mem)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if want := []string{"proto/Shop.mappings.json", "proto/Shop.proto"}; !reflect.DeepEqual(mem.Paths(), want) {
		t.Errorf("written paths = %v, want %v", mem.Paths(), want)
	}
	if result.ProtoPath != "proto/Shop.proto" || result.MappingsPath != "proto/Shop.mappings.json" {
		t.Errorf("paths = %s, %s", result.ProtoPath, result.MappingsPath)
	}
	if result.Summary == nil || result.Summary.Methods != 3 || result.Summary.Package != "example.api.v1" {
		t.Errorf("Summary = %+v", result.Summary)
	}
	if len(result.Dirs) != 0 {
		t.Errorf("a sink run should not create directories, got %v", result.Dirs)
	}

	proto := string(mem.Get("proto/Shop.proto"))
	for _, want := range []string{
		"service ShopService {",
		"// GET /users/{id} sync",
		"// ANY /users/points locator",
		"message com_example_shop___User {",
		"message com_example_shop___Point {",
		`option java_package = "com.example.api";`,
	} {
		if !strings.Contains(proto, want) {
			t.Errorf("proto missing %q", want)
		}
	}
	if strings.Contains(proto, "com_example_audit___Audit") {
		t.Error("unreferenced class was emitted")
	}
	if !strings.Contains(string(mem.Get("proto/Shop.mappings.json")), `"service": "ShopService"`) {
		t.Error("mappings missing service")
	}
}

func TestGenerate_ModelExtraClasses(t *testing.T) {
	result, err := FromModel(modelRoot).
		Packages("com.example.api", "example.api.v1").
		OuterName("Shop").
		ExtraClasses(extraclass.Spec{Dir: ".", QualifiedName: "com.example.audit.Audit"}).
		Logger(quietLogger()).
		Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.Schema.File.FindMessage("com_example_audit___Audit") == nil {
		t.Error("extra class was not emitted")
	}
}

func TestGenerate_Source(t *testing.T) {
	result, err := FromSource(sourceRoot).
		Packages("com.example.api", "example.api.v1").
		OuterName("Shop").
		ExtraClasses(extraclass.Spec{Dir: "extra", QualifiedName: "Audit"}).
		Verify().
		Logger(quietLogger()).
		Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.Summary.Methods != 6 {
		t.Errorf("Methods = %d, want 6", result.Summary.Methods)
	}

	proto := string(result.Files[result.ProtoPath])
	for _, want := range []string{
		"rpc Events (GeneralEntityMessage) returns (stream SseEvent);",
		"// PUT /users/{id}/wait suspended",
		"// ANY /users/secret locator",
		"extra___Audit {",
	} {
		if !strings.Contains(proto, want) {
			t.Errorf("proto missing %q", want)
		}
	}
}

func TestGenerator_ToDir(t *testing.T) {
	dir := t.TempDir()
	result, err := FromModel(modelRoot).
		Packages("com.example.api", "example.api.v1").
		OuterName("Shop").
		Logger(quietLogger()).
		ToDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("ToDir() error = %v", err)
	}
	if want := []string{"proto", "java/com/example/api"}; !reflect.DeepEqual(result.Dirs, want) {
		t.Errorf("Dirs = %v, want %v", result.Dirs, want)
	}
	for _, p := range []string{"proto/Shop.proto", "proto/Shop.mappings.json"} {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(p)))
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if string(data) != string(result.Files[p]) {
			t.Errorf("%s on disk differs from result", p)
		}
	}
	if info, err := os.Stat(filepath.Join(dir, "java", "com", "example", "api")); err != nil || !info.IsDir() {
		t.Errorf("java package directory missing: %v", err)
	}
}

func TestGenerate_VerifyImports(t *testing.T) {
	dir := t.TempDir()
	protoDir := filepath.Join(dir, sink.ProtoDir)
	if err := os.MkdirAll(protoDir, 0o755); err != nil {
		t.Fatal(err)
	}
	common := "syntax = \"proto3\";\npackage example.common;\nmessage Money { int64 units = 1; }\n"
	if err := os.WriteFile(filepath.Join(protoDir, "common.proto"), []byte(common), 0o644); err != nil {
		t.Fatal(err)
	}

	gen := func(imports ...string) error {
		_, err := FromModel(modelRoot).
			Packages("com.example.api", "example.api.v1").
			OuterName("Shop").
			Import(imports...).
			Verify().
			Logger(quietLogger()).
			ToDir(context.Background(), dir)
		return err
	}
	if err := gen("common.proto"); err != nil {
		t.Errorf("existing import: %v", err)
	}
	err := gen("missing.proto")
	if err == nil || !strings.Contains(err.Error(), "verify schema") {
		t.Errorf("missing import: error = %v, want verify failure", err)
	}
}

func TestGenerate_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := "package: com.x\nresources:\n  - name: R\n    methods:\n      - {name: get, verb: GET, returns: Missing}\n"
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := FromModel(dir).
		Packages("com.x", "x.v1").
		OuterName("X").
		Logger(quietLogger()).
		Generate(context.Background())
	if err == nil || !strings.Contains(err.Error(), "com.x.Missing") {
		t.Errorf("error = %v, want unresolved com.x.Missing", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			SourceRoot:    ".",
			TargetPackage: "com.example.api",
			WirePackage:   "example.api.v1",
			OuterName:     "Shop",
		}
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "source provider", mutate: func(c *Config) { c.Provider = ProviderSource }},
		{name: "missing root", mutate: func(c *Config) { c.SourceRoot = "" }, wantErr: "SourceRoot"},
		{name: "bad wire package", mutate: func(c *Config) { c.WirePackage = "example..v1" }, wantErr: "WirePackage"},
		{name: "bad target package", mutate: func(c *Config) { c.TargetPackage = "com.1x" }, wantErr: "TargetPackage"},
		{name: "bad outer name", mutate: func(c *Config) { c.OuterName = "Shop-API" }, wantErr: "OuterName"},
		{name: "unknown provider", mutate: func(c *Config) { c.Provider = "xml" }, wantErr: "Provider"},
		{name: "bad import", mutate: func(c *Config) { c.Imports = []string{"common.txt"} }, wantErr: "Imports"},
		{
			name: "archives with source provider",
			mutate: func(c *Config) {
				c.Provider = ProviderSource
				c.Archives = []string{"x.yaml"}
			},
			wantErr: "archives",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestGenerate_InvalidConfig(t *testing.T) {
	if _, err := Generate(context.Background(), &Config{}); err == nil {
		t.Error("Generate() with empty config should fail")
	}
}

func TestApplyConfigDefaults(t *testing.T) {
	in := &Config{SourceRoot: "."}
	out := applyConfigDefaults(in)
	if out.Provider != ProviderModel || out.Logger == nil {
		t.Errorf("defaults not applied: %+v", out)
	}
	if in.Provider != "" || in.Logger != nil {
		t.Error("applyConfigDefaults modified its input")
	}
}

func TestGenerator_Config(t *testing.T) {
	g := FromSource("./api").
		Packages("com.a", "a.v1").
		OuterName("A").
		Import("x.proto").
		Verify()
	want := Config{
		SourceRoot:    "./api",
		Provider:      ProviderSource,
		TargetPackage: "com.a",
		WirePackage:   "a.v1",
		OuterName:     "A",
		Imports:       []string{"x.proto"},
		Verify:        true,
	}
	if got := g.Config(); !reflect.DeepEqual(got, want) {
		t.Errorf("Config() = %+v, want %+v", got, want)
	}
}

func TestIdentifiers(t *testing.T) {
	idents := map[string]bool{
		"Shop": true, "_x": true, "a1": true,
		"": false, "1a": false, "a-b": false, "a.b": false,
	}
	for s, want := range idents {
		if got := isIdent(s); got != want {
			t.Errorf("isIdent(%q) = %v, want %v", s, got, want)
		}
	}
	dotted := map[string]bool{
		"com.example.api": true, "v1": true,
		"": false, ".a": false, "a.": false, "a..b": false, "a.1b": false,
	}
	for s, want := range dotted {
		if got := isDotted(s); got != want {
			t.Errorf("isDotted(%q) = %v, want %v", s, got, want)
		}
	}
}
