// codeblock renders code snippets from a hosted repository into
// highlighted HTML.
//
// See codeblock -help for usage.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"

	"braces.dev/errtrace"
	"github.com/joho/godotenv"
	"github.com/tofupilot/codeblock/internal/errdefer"
	"github.com/tofupilot/codeblock/internal/highlight"
	"github.com/tofupilot/codeblock/internal/html"
	"github.com/tofupilot/codeblock/internal/page"
	"github.com/tofupilot/codeblock/internal/remote"
	"github.com/tofupilot/codeblock/internal/server"
	"github.com/tofupilot/codeblock/internal/snippet"
)

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	cmd := mainCmd{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	os.Exit(cmd.Run(os.Args[1:]))
}

// mainCmd is the actual entry point to the program.
type mainCmd struct {
	Stdout io.Writer // == os.Stdout
	Stderr io.Writer // == os.Stderr

	// Listen starts the HTTP server for -serve.
	// Defaults to http.ListenAndServe with graceful shutdown.
	Listen func(ctx context.Context, srv *http.Server) error

	log *log.Logger
}

func (cmd *mainCmd) Run(args []string) (exitCode int) {
	cmd.log = log.New(cmd.Stderr, "", 0)

	opts, err := (&cliParser{
		Stdout: cmd.Stdout,
		Stderr: cmd.Stderr,
	}).Parse(args)
	if err != nil {
		// '$cmd -h' should exit with zero.
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		// No need to print anything.
		// Parse prints messages.
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.run(ctx, opts); err != nil {
		cmd.log.Printf("codeblock: %v", err)
		return 1
	}
	return 0
}

func (cmd *mainCmd) run(ctx context.Context, opts *params) (err error) {
	debugLog, closeDebug, err := opts.Debug.Logger(cmd.Stderr, "[debug] ")
	if err != nil {
		return errtrace.Wrap(err)
	}
	defer errdefer.Invoke(&err, closeDebug)

	var manifest *page.Manifest
	if opts.Manifest != "" {
		manifest, err = page.LoadFile(opts.Manifest)
		if err != nil {
			return errtrace.Wrap(err)
		}
	}

	fetcher, err := remote.NewCachingFetcher(&remote.HTTPFetcher{
		Client: &http.Client{Timeout: opts.Timeout},
		Log:    debugLog,
	}, opts.CacheSize, debugLog)
	if err != nil {
		return errtrace.Wrap(err)
	}

	hl := highlight.Highlighter{
		Style:      highlight.Style(opts.Style),
		UseClasses: opts.Classes,
	}
	highlighter, err := highlight.NewService(&hl, opts.CacheSize, debugLog)
	if err != nil {
		return errtrace.Wrap(err)
	}

	pipeline := snippet.Pipeline{
		Fetcher:     fetcher,
		Highlighter: highlighter,
		Repository:  remote.Repository{Org: opts.Org, Repo: opts.Repo},
		Log:         debugLog,
	}
	renderer := html.Renderer{
		Embedded:    opts.Embed,
		Highlighter: &hl,
		Log:         cmd.log,
	}

	if opts.Serve != "" {
		return errtrace.Wrap(cmd.serve(ctx, opts.Serve, &server.Server{
			Pipeline: &pipeline,
			Renderer: &renderer,
			Manifest: manifest,
			Timeout:  opts.Timeout,
			Log:      debugLog,
		}))
	}

	return errtrace.Wrap((&Generator{
		Log:      cmd.log,
		Pipeline: &pipeline,
		Renderer: &renderer,
		OutDir:   opts.OutputDir,
		Timeout:  opts.Timeout,
	}).Generate(ctx, manifest))
}

func (cmd *mainCmd) serve(ctx context.Context, addr string, s *server.Server) error {
	srv := http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	listen := cmd.Listen
	if listen == nil {
		listen = listenAndServe
	}
	cmd.log.Printf("Serving on %v", addr)
	return errtrace.Wrap(listen(ctx, &srv))
}

// listenAndServe runs srv until ctx ends.
func listenAndServe(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errtrace.Wrap(err)
	case <-ctx.Done():
		return errtrace.Wrap(srv.Shutdown(context.WithoutCancel(ctx)))
	}
}
