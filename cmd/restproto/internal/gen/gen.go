package gen

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/broady/restproto/internal/extraclass"
	"github.com/broady/restproto/protogen"
)

// debounce is how long the watcher waits for more events before regenerating.
const debounce = 200 * time.Millisecond

type Cmd struct {
	SourceRoot    string `arg:"" help:"Directory resources and classes are loaded from." type:"existingdir"`
	TargetPackage string `arg:"" help:"Java package of the generated code, e.g. com.example.api."`
	WirePackage   string `arg:"" help:"Proto package of the schema, e.g. example.api.v1."`
	OuterName     string `arg:"" help:"Outer type name; names the proto file and the service."`
	Archives      string `arg:"" optional:"" help:"Comma-separated extra model archives."`
	ExtraClasses  string `arg:"" optional:"" help:"Comma-separated dir:qualifiedName classes to always include."`

	Provider string   `help:"Source reader: model (YAML documents) or source (Go packages)." enum:"model,source" default:"model" short:"p"`
	Out      string   `help:"Output root; the schema goes to <out>/proto." default:"." short:"o"`
	Import   []string `help:"Extra proto import, repeatable." short:"i"`
	Verify   bool     `help:"Compile the schema before writing it."`
	Watch    bool     `help:"Watch the source root and regenerate on change." short:"w"`
}

func (c *Cmd) Run(logger *slog.Logger) error {
	cfg, err := c.config(logger)
	if err != nil {
		return err
	}
	if !c.Watch {
		return c.generate(context.Background(), cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return c.watch(ctx, cfg, logger)
}

func (c *Cmd) config(logger *slog.Logger) (*protogen.Config, error) {
	extras, err := extraclass.ParseList(c.ExtraClasses)
	if err != nil {
		return nil, err
	}
	var archives []string
	for _, a := range strings.Split(c.Archives, ",") {
		if a = strings.TrimSpace(a); a != "" {
			archives = append(archives, a)
		}
	}
	outDir, err := filepath.Abs(c.Out)
	if err != nil {
		return nil, fmt.Errorf("resolve output path: %w", err)
	}

	cfg := &protogen.Config{
		SourceRoot:    c.SourceRoot,
		TargetPackage: c.TargetPackage,
		WirePackage:   c.WirePackage,
		OuterName:     c.OuterName,
		Provider:      c.Provider,
		Archives:      archives,
		ExtraClasses:  extras,
		Imports:       c.Import,
		OutDir:        outDir,
		Verify:        c.Verify,
		Logger:        logger,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Cmd) generate(ctx context.Context, cfg *protogen.Config) error {
	result, err := protogen.Generate(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("✓ %s\n", filepath.Join(cfg.OutDir, result.ProtoPath))
	fmt.Printf("✓ %s\n", filepath.Join(cfg.OutDir, result.MappingsPath))
	if result.Summary != nil {
		fmt.Printf("✓ verified: %d messages, %d rpcs\n", result.Summary.Messages, result.Summary.Methods)
	}
	return nil
}

// watch regenerates whenever a model or Go file below the source root
// changes. Generation errors are logged and watching continues.
func (c *Cmd) watch(ctx context.Context, cfg *protogen.Config, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addDirs(watcher, cfg.SourceRoot, cfg.OutDir); err != nil {
		return err
	}
	if err := c.generate(ctx, cfg); err != nil {
		logger.Error("generate failed", slog.Any("error", err))
	}
	logger.Info("watching for changes", slog.String("root", cfg.SourceRoot))

	timer := time.NewTimer(debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addDirs(watcher, event.Name, cfg.OutDir); err != nil {
						logger.Warn("watch directory", slog.String("dir", event.Name), slog.Any("error", err))
					}
				}
			}
			if relevant(event.Name) {
				logger.Debug("change", slog.String("file", event.Name), slog.String("op", event.Op.String()))
				timer.Reset(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", slog.Any("error", err))

		case <-timer.C:
			if err := c.generate(ctx, cfg); err != nil {
				logger.Error("generate failed", slog.Any("error", err))
			}
		}
	}
}

func relevant(name string) bool {
	switch filepath.Ext(name) {
	case ".go", ".yaml", ".yml":
		return !strings.HasSuffix(name, "_test.go")
	}
	return false
}

// addDirs watches root and every directory below it except skip and hidden
// directories.
func addDirs(watcher *fsnotify.Watcher, root, skip string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root {
			if abs, _ := filepath.Abs(path); abs == skip || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
		}
		return watcher.Add(path)
	})
}
