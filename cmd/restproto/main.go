package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/broady/restproto/cmd/restproto/internal/check"
	"github.com/broady/restproto/cmd/restproto/internal/gen"
)

type CLI struct {
	Verbose bool `help:"Enable debug logging." short:"v"`

	Version VersionCmd `cmd:"" help:"Print version information."`
	Gen     gen.Cmd    `cmd:"" help:"Generate the proto3 schema and mappings for REST resources."`
	Check   check.Cmd  `cmd:"" help:"Compile proto files to check that they parse and link."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("restproto"),
		kong.Description("Compile REST resource classes into a proto3 schema."),
		kong.UsageOnError(),
	)

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	ctx.Bind(logger)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
