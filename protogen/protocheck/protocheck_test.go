package protocheck

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const valid = `syntax = "proto3";
package demo.v1;

import "google/protobuf/any.proto";

service DemoService {
  rpc get (Req) returns (Resp);
  rpc watch (Req) returns (stream Resp);
}

message Req {
  string id = 1;
}

message Resp {
  google.protobuf.Any data = 1;
}
`

func TestCompileSource(t *testing.T) {
	fd, err := CompileSource(context.Background(), "demo.proto", []byte(valid))
	if err != nil {
		t.Fatalf("CompileSource() error = %v", err)
	}
	got := Summarize(fd)
	want := Summary{Path: "demo.proto", Package: "demo.v1", Messages: 2, Services: 1, Methods: 2}
	if got != want {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}
}

func TestCompileSource_Errors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		errMsg string
	}{
		{
			name:   "syntax",
			src:    "syntax = \"proto3\";\nmessage {",
			errMsg: "compile proto",
		},
		{
			name:   "unknown type",
			src:    "syntax = \"proto3\";\nmessage A { Missing m = 1; }\n",
			errMsg: "Missing",
		},
		{
			name:   "duplicate field number",
			src:    "syntax = \"proto3\";\nmessage A { string a = 1; string b = 1; }\n",
			errMsg: "compile proto",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileSource(context.Background(), "bad.proto", []byte(tt.src))
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %v, want error containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestCompileSources_Imports(t *testing.T) {
	sources := map[string]string{
		"common.proto": "syntax = \"proto3\";\npackage demo.v1;\nmessage Shared { string v = 1; }\n",
		"main.proto":   "syntax = \"proto3\";\npackage demo.v1;\nimport \"common.proto\";\nmessage Uses { Shared s = 1; }\n",
	}
	fds, err := CompileSources(context.Background(), sources, "main.proto")
	if err != nil {
		t.Fatalf("CompileSources() error = %v", err)
	}
	if len(fds) != 1 || fds[0].Path() != "main.proto" {
		t.Errorf("CompileSources() = %v", fds)
	}

	if _, err := CompileSources(context.Background(), sources); !errors.Is(err, ErrNoFiles) {
		t.Errorf("no names: error = %v, want ErrNoFiles", err)
	}
}

func TestCompileFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "demo.proto"), []byte(valid), 0o644); err != nil {
		t.Fatal(err)
	}
	fds, err := CompileFiles(context.Background(), []string{"demo.proto"}, []string{dir})
	if err != nil {
		t.Fatalf("CompileFiles() error = %v", err)
	}
	if got := Summarize(fds[0]); got.Methods != 2 {
		t.Errorf("Summarize() = %+v", got)
	}

	if _, err := CompileFiles(context.Background(), nil, nil); !errors.Is(err, ErrNoFiles) {
		t.Errorf("error = %v, want ErrNoFiles", err)
	}
	if _, err := CompileFiles(context.Background(), []string{"missing.proto"}, []string{dir}); err == nil {
		t.Error("missing file should fail")
	}
}
