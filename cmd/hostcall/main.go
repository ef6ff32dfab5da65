// Command hostcall exposes the Simple sample object through the typed
// argument marshaller.
//
// Usage:
//
//	hostcall [-log-level info] [-log-format text] <command> [flags] [args]
//
// Commands:
//
//	demo                      replay the sample scenario against Simple("foo")
//	run [-parallel N] FILE    run a YAML call script
//	schema [-script|-request] print argument schemas
//	wasm [flags] GUEST.wasm   load a guest module and call one of its exports
//
// HOSTCALL_LOG_LEVEL and HOSTCALL_LOG_FORMAT set the logging defaults.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	hostlog "github.com/reglet-dev/hostcall/log"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	envLogLevel = "HOSTCALL_LOG_LEVEL"
	envLogFmt   = "HOSTCALL_LOG_FORMAT"
)

// env carries the process streams so commands can be driven from tests.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

type command struct {
	run     func(ctx context.Context, e *env, args []string) int
	summary string
}

var commands = map[string]command{
	"demo":   {run: runDemo, summary: "replay the sample scenario against Simple(\"foo\")"},
	"run":    {run: runScript, summary: "run a YAML call script"},
	"schema": {run: runSchema, summary: "print argument schemas"},
	"wasm":   {run: runWasm, summary: "load a guest module and call one of its exports"},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("hostcall", flag.ContinueOnError)
	global.SetOutput(stderr)
	level := global.String("log-level", envOr(envLogLevel, "info"), "log level: debug, info, warn, error")
	format := global.String("log-format", envOr(envLogFmt, "text"), "log format: text, json")
	global.Usage = func() { usage(global) }

	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	logger, err := newLogger(*level, *format, stderr)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "hostcall:", err)
		return exitUsage
	}
	slog.SetDefault(logger)

	rest := global.Args()
	if len(rest) == 0 {
		usage(global)
		return exitUsage
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		_, _ = fmt.Fprintf(stderr, "hostcall: unknown command %q\n", rest[0])
		usage(global)
		return exitUsage
	}

	return cmd.run(ctx, &env{stdin: stdin, stdout: stdout, stderr: stderr, logger: logger}, rest[1:])
}

func newLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	lvl, err := hostlog.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	f, err := hostlog.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return hostlog.New(hostlog.WithLevel(lvl), hostlog.WithFormat(f), hostlog.WithWriter(w)), nil
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	_, _ = fmt.Fprintln(w, "usage: hostcall [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].summary)
	}
	_, _ = fmt.Fprintln(w, "\nflags:")
	fs.PrintDefaults()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
