package gen

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/fsnotify/fsnotify"

	"github.com/broady/restproto/internal/extraclass"
)

func TestRelevant(t *testing.T) {
	tests := map[string]bool{
		"api/users.go":      true,
		"api/users_test.go": false,
		"models/shop.yaml":  true,
		"models/shop.yml":   true,
		"proto/Shop.proto":  false,
		"README.md":         false,
		"api/.users.go.swp": false,
	}
	for name, want := range tests {
		if got := relevant(name); got != want {
			t.Errorf("relevant(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestCmd_Config(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	out := t.TempDir()
	c := &Cmd{
		SourceRoot:    ".",
		TargetPackage: "com.example.api",
		WirePackage:   "example.api.v1",
		OuterName:     "Shop",
		Archives:      " a.yaml, ,b/*.yml",
		ExtraClasses:  "audit:com.example.audit.Audit",
		Provider:      "model",
		Out:           out,
		Import:        []string{"common.proto"},
	}
	cfg, err := c.config(logger)
	if err != nil {
		t.Fatalf("config() error = %v", err)
	}
	if want := []string{"a.yaml", "b/*.yml"}; !reflect.DeepEqual(cfg.Archives, want) {
		t.Errorf("Archives = %v, want %v", cfg.Archives, want)
	}
	if want := []extraclass.Spec{{Dir: "audit", QualifiedName: "com.example.audit.Audit"}}; !reflect.DeepEqual(cfg.ExtraClasses, want) {
		t.Errorf("ExtraClasses = %v, want %v", cfg.ExtraClasses, want)
	}
	if cfg.OutDir != out || cfg.Logger != logger {
		t.Errorf("OutDir = %q", cfg.OutDir)
	}

	c.ExtraClasses = "missing-colon"
	if _, err := c.config(logger); err == nil {
		t.Error("malformed extra classes should fail")
	}

	c.ExtraClasses = ""
	c.OuterName = "not valid"
	if _, err := c.config(logger); err == nil {
		t.Error("invalid outer name should fail")
	}
}

func TestAddDirs(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"api/v1", ".git/objects", "gen/proto"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := addDirs(w, root, filepath.Join(root, "gen")); err != nil {
		t.Fatalf("addDirs() error = %v", err)
	}
	got := w.WatchList()
	sort.Strings(got)
	want := []string{root, filepath.Join(root, "api"), filepath.Join(root, "api", "v1")}
	sort.Strings(want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("watched = %v, want %v", got, want)
	}
}

func TestAddDirs_OutputIsRoot(t *testing.T) {
	root := t.TempDir()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := addDirs(w, root, root); err != nil {
		t.Fatal(err)
	}
	if got := w.WatchList(); len(got) != 1 {
		t.Errorf("watched = %v, want the root only", got)
	}
}
