package check

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/broady/restproto/protogen/protocheck"
)

type Cmd struct {
	Files       []string `arg:"" help:"Proto files to compile."`
	ImportPaths []string `help:"Directories imports are resolved against. Files are then given relative to them." short:"I" name:"import-path"`
}

func (c *Cmd) Run(logger *slog.Logger) error {
	fds, err := protocheck.CompileFiles(context.Background(), c.Files, c.ImportPaths)
	if err != nil {
		return err
	}
	for _, fd := range fds {
		s := protocheck.Summarize(fd)
		logger.Debug("compiled", slog.String("path", s.Path), slog.String("package", s.Package))
		fmt.Printf("✓ %s: package %s, %d messages, %d services, %d rpcs\n",
			s.Path, s.Package, s.Messages, s.Services, s.Methods)
	}
	return nil
}
