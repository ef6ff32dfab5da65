package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/reglet-dev/hostcall/application/runner"
	"github.com/reglet-dev/hostcall/domain/entities"
	"github.com/reglet-dev/hostcall/host"
	"github.com/reglet-dev/hostcall/infrastructure/grantstore"
	"github.com/reglet-dev/hostcall/infrastructure/parser"
	"github.com/reglet-dev/hostcall/infrastructure/prompter"
	hostwazero "github.com/reglet-dev/hostcall/infrastructure/wazero"
	"github.com/reglet-dev/hostcall/marshal"
	"github.com/reglet-dev/hostcall/samples/simple"
)

//go:embed demo.yaml
var demoScript []byte

func simpleFactory(ctorArgs []entities.Value) (*marshal.Marshaller, error) {
	_, m, err := simple.NewMarshaller(ctorArgs)
	return m, err
}

func runDemo(ctx context.Context, e *env, args []string) int {
	if len(args) != 0 {
		_, _ = fmt.Fprintln(e.stderr, "usage: hostcall demo")
		return exitUsage
	}
	script, err := parser.NewYamlScriptParser().Parse(demoScript)
	if err != nil {
		e.logger.ErrorContext(ctx, "demo script is invalid", "error", err)
		return exitFailed
	}
	return execute(ctx, e, script)
}

func runScript(ctx context.Context, e *env, args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	parallel := fs.Int("parallel", 0, "maximum concurrent calls, overriding the script")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 || *parallel < 0 {
		_, _ = fmt.Fprintln(e.stderr, "usage: hostcall run [-parallel N] FILE")
		return exitUsage
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to read script", "path", fs.Arg(0), "error", err)
		return exitFailed
	}
	script, err := parser.NewYamlScriptParser().Parse(data)
	if err != nil {
		e.logger.ErrorContext(ctx, "invalid script", "path", fs.Arg(0), "error", err)
		return exitFailed
	}
	if *parallel > 0 {
		script.Parallel = *parallel
	}
	return execute(ctx, e, script)
}

func execute(ctx context.Context, e *env, script *entities.Script) int {
	report, err := runner.New(simpleFactory, runner.WithLogger(e.logger)).Run(ctx, script)
	if err != nil {
		e.logger.ErrorContext(ctx, "script failed", "error", err)
		return exitFailed
	}

	printReport(e.stdout, script, report)
	if failed := report.Failed(); failed > 0 {
		_, _ = fmt.Fprintf(e.stderr, "%d of %d expectations failed\n", failed, len(report.Outcomes))
		return exitFailed
	}
	return exitOK
}

// printReport writes one line per call:
//
//	numberTest(1.5, 1000) = 1001.5
//	numberTest(1.5, "1000") ! TYPE_MISMATCH: ...
func printReport(w io.Writer, script *entities.Script, report *runner.Report) {
	for i, o := range report.Outcomes {
		req := script.Calls[i].Request
		line := fmt.Sprintf("%s(%s)", req.Name, formatArgs(req.Args))
		if o.Result.IsError() {
			line += fmt.Sprintf(" ! %s: %s", o.Result.Error.Code, o.Result.Error.Message)
		} else {
			line += " = " + formatValue(o.Result.Value)
		}
		if o.Mismatch != nil {
			line += "  [FAIL: " + o.Mismatch.Error() + "]"
		}
		_, _ = fmt.Fprintln(w, line)
	}
}

func formatArgs(args []entities.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatValue(a)
	}
	return strings.Join(parts, ", ")
}

func formatValue(v entities.Value) string {
	data, err := json.Marshal(v)
	if err != nil {
		return v.String()
	}
	return string(data)
}

func runSchema(ctx context.Context, e *env, args []string) int {
	fs := flag.NewFlagSet("schema", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	script := fs.Bool("script", false, "print the call script schema")
	request := fs.Bool("request", false, "print the wire call request schema")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *script && *request {
		_, _ = fmt.Fprintln(e.stderr, "usage: hostcall schema [-script|-request]")
		return exitUsage
	}

	var (
		data []byte
		err  error
	)
	switch {
	case *script:
		data, err = parser.ScriptSchema()
	case *request:
		data, err = marshal.GenerateRequestSchema()
	default:
		var m *marshal.Marshaller
		m, err = simpleFactory([]entities.Value{entities.String("foo")})
		if err == nil {
			data, err = json.MarshalIndent(m.ArgumentSchemas(), "", "  ")
		}
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to generate schema", "error", err)
		return exitFailed
	}
	_, _ = fmt.Fprintln(e.stdout, string(data))
	return exitOK
}

func runWasm(ctx context.Context, e *env, args []string) int {
	fs := flag.NewFlagSet("wasm", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	name := fs.String("name", "", "guest module name used for grants (default: file name without extension)")
	ctor := fs.String("ctor", "foo", "name the Simple object is constructed with")
	grantsPath := fs.String("grants", "", "grants file (default: ~/.hostcall/grants.yaml)")
	inputPath := fs.String("input", "", "file whose contents are passed to the export")
	export := fs.String("export", "run", "guest export to call")
	exportOps := fs.Bool("export-ops", false, "also export each operation under its own name")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		_, _ = fmt.Fprintln(e.stderr, "usage: hostcall wasm [flags] GUEST.wasm")
		return exitUsage
	}

	wasmPath := fs.Arg(0)
	guestName := *name
	if guestName == "" {
		guestName = strings.TrimSuffix(filepath.Base(wasmPath), filepath.Ext(wasmPath))
	}

	wasmBytes, err := os.ReadFile(wasmPath)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to read guest", "path", wasmPath, "error", err)
		return exitFailed
	}
	var input []byte
	if *inputPath != "" {
		if input, err = os.ReadFile(*inputPath); err != nil {
			e.logger.ErrorContext(ctx, "failed to read input", "path", *inputPath, "error", err)
			return exitFailed
		}
	}

	var storeOpts []grantstore.FileStoreOption
	if *grantsPath != "" {
		storeOpts = append(storeOpts, grantstore.WithPath(*grantsPath))
	}
	store := grantstore.NewFileStore(storeOpts...)
	policy, err := accessPolicy(e, store)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to load grants", "path", store.ConfigPath(), "error", err)
		return exitFailed
	}

	m, err := simpleFactory([]entities.Value{entities.String(*ctor)})
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to construct Simple", "error", err)
		return exitFailed
	}

	adapterOpts := []hostwazero.AdapterOption{hostwazero.WithAccessPolicy(policy)}
	if *exportOps {
		adapterOpts = append(adapterOpts, hostwazero.WithOperationExports())
	}
	executor, err := host.NewExecutor(ctx,
		host.WithMarshaller(m),
		host.WithLogger(e.logger),
		host.WithAdapterOptions(adapterOpts...),
	)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to create executor", "error", err)
		return exitFailed
	}
	defer executor.Close(ctx)

	guest, err := executor.LoadModule(ctx, guestName, wasmBytes)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to load guest", "guest", guestName, "error", err)
		return exitFailed
	}
	defer guest.Close(ctx)

	out, err := guest.Call(ctx, *export, input)
	if err != nil {
		e.logger.ErrorContext(ctx, "guest call failed", "guest", guestName, "export", *export, "error", err)
		return exitFailed
	}
	_, _ = fmt.Fprintln(e.stdout, string(out))
	return exitOK
}

// accessPolicy asks on the terminal for calls the stored grants do not
// cover. Without a terminal, uncovered calls are denied with a hint naming
// the grants file.
func accessPolicy(e *env, store *grantstore.FileStore) (hostwazero.AccessPolicy, error) {
	grants, err := store.Load()
	if err != nil {
		return nil, err
	}

	p := prompter.NewCliPrompter(e.stdin, e.stderr)
	if p.IsInteractive() {
		return prompter.NewPolicy(grants, p, store, prompter.WithLogger(e.logger)), nil
	}
	return hostwazero.AccessPolicyFunc(func(guest, operation string) error {
		err := grants.Allow(guest, operation)
		if err != nil {
			e.logger.Warn("call denied",
				"hint", prompter.FormatNonInteractiveError(guest, operation, store.ConfigPath()).Error())
		}
		return err
	}), nil
}
