package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/tofupilot/codeblock/internal/flagvalue"
	"github.com/tofupilot/codeblock/internal/remote"
	"github.com/tofupilot/codeblock/internal/server"
)

var (
	errHelp             = flag.ErrHelp
	errInvalidArguments = errors.New("invalid arguments")
)

// _envPrefix is the prefix for environment variables
// that set flags: CODEBLOCK_CACHE_SIZE sets -cache-size.
const _envPrefix = "CODEBLOCK"

// params holds all arguments for codeblock.
type params struct {
	version bool
	help    Help

	Debug flagvalue.FileSwitch

	OutputDir string
	Serve     string

	Org  string
	Repo string

	Style   string
	Classes bool
	Embed   bool

	Timeout   time.Duration
	CacheSize int

	Manifest string
}

// cliParser parses the command line arguments for codeblock.
type cliParser struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (cmd *cliParser) newFlagSet() (*params, *flag.FlagSet) {
	flag := flag.NewFlagSet("codeblock", flag.ContinueOnError)
	flag.SetOutput(cmd.Stderr)
	flag.Usage = func() {
		_ = DefaultHelp.Write(cmd.Stderr)
	}

	var p params

	// Output:
	flag.StringVar(&p.OutputDir, "out", "_site", "")
	flag.StringVar(&p.Serve, "serve", "", "")

	// Remote repository:
	flag.StringVar(&p.Org, "org", remote.DefaultRepository.Org, "")
	flag.StringVar(&p.Repo, "repo", remote.DefaultRepository.Repo, "")
	flag.DurationVar(&p.Timeout, "timeout", server.DefaultTimeout, "")
	flag.IntVar(&p.CacheSize, "cache-size", 256, "")

	// HTML output:
	flag.StringVar(&p.Style, "style", "plain", "")
	flag.BoolVar(&p.Classes, "classes", true, "")
	flag.BoolVar(&p.Embed, "embed", false, "")

	// Program-level:
	flag.String("config", "", "")
	flag.Var(&p.Debug, "debug", "")
	flag.BoolVar(&p.version, "version", false, "")
	flag.Var(&p.help, "help", "")
	flag.Var(&p.help, "h", "")

	return &p, flag
}

func (cmd *cliParser) Parse(args []string) (*params, error) {
	p, flag := cmd.newFlagSet()
	err := ff.Parse(flag, args,
		ff.WithEnvVarPrefix(_envPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	)
	if err != nil {
		return nil, err
	}
	args = flag.Args()

	if p.version {
		fmt.Fprintln(cmd.Stdout, "codeblock", _version)
		return nil, errHelp
	}

	if p.help == DefaultHelp && len(args) > 0 {
		// The user might have done "-h foo"
		// instead of "-h=foo".
		// If the argument is a known help topic,
		// take it.
		var h Help
		if err := h.Set(args[0]); err == nil {
			if _, ok := _helpTopics[h]; ok {
				p.help = h
			}
		}
	}

	switch p.help {
	case NoHelp:
		// proceed as usual
	default:
		if err := p.help.Write(cmd.Stderr); err != nil {
			fmt.Fprintln(cmd.Stderr, err)
		}
		return nil, errHelp
	}

	switch len(args) {
	case 0:
		if p.Serve == "" {
			fmt.Fprintln(cmd.Stderr, "Please provide a page manifest.")
			_ = UsageHelp.Write(cmd.Stderr)
			return nil, errInvalidArguments
		}
	case 1:
		p.Manifest = args[0]
	default:
		fmt.Fprintf(cmd.Stderr, "Expected one page manifest, got %d.\n", len(args))
		_ = UsageHelp.Write(cmd.Stderr)
		return nil, errInvalidArguments
	}

	if p.CacheSize <= 0 {
		fmt.Fprintln(cmd.Stderr, "-cache-size must be positive.")
		return nil, errInvalidArguments
	}

	return p, nil
}
