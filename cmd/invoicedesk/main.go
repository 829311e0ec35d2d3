// Command invoicedesk runs the invoice API server and offers one-shot
// commands against the same storage.
//
//	invoicedesk [-config invoicedesk.yaml] <command> [flags] [args]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"invoicedesk/internal/blob"
	"invoicedesk/internal/config"
	"invoicedesk/internal/core"
	"invoicedesk/internal/documents"
	"invoicedesk/internal/kv"
	"invoicedesk/internal/logging"
	"invoicedesk/internal/session"
)

var exitFunc = os.Exit

const usage = `usage: invoicedesk [-config file] [-trace file] <command> [args]

commands:
  serve                         run the HTTP API
  login <user>                  make user the active session
  logout                        clear the active session
  whoami                        print the active user
  list [-search s] [-status s] [-sort field] [-direction asc|desc] [-json|-csv]
  stats                         print dashboard totals
  submit [-document file.pdf] <invoice.json>
  approve|reject|delete <invoiceId>
  seed                          add the sample invoices
`

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

// app holds the wiring shared by every command.
type app struct {
	cfg      config.Config
	zl       *zap.Logger
	store    kv.Store
	gate     *session.Gate
	svc      *core.Service
	docs     *documents.Library
	registry *prometheus.Registry
	stdout   io.Writer
	closers  []func() error
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("invoicedesk", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { _, _ = fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "path to a config file")
	tracePath := fs.String("trace", "", "append JSON trace lines for every operation to this file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}
	cmd, cmdArgs := rest[0], rest[1:]
	handler, ok := commands[cmd]
	if !ok {
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fs.Usage()
		return 2
	}

	ctx := context.Background()
	a, err := newApp(ctx, options{configPath: *configPath, tracePath: *tracePath, serving: cmd == "serve"}, stdout)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "invoicedesk: %v\n", err)
		return 1
	}
	defer a.close()

	if err := handler(ctx, a, cmdArgs); err != nil {
		var uerr usageError
		if errors.As(err, &uerr) {
			_, _ = fmt.Fprintf(stderr, "invoicedesk %s: %v\n", cmd, err)
			return 2
		}
		_, _ = fmt.Fprintf(stderr, "invoicedesk %s: %v\n", cmd, describe(err))
		return 1
	}
	return 0
}

type options struct {
	configPath string
	tracePath  string
	serving    bool
}

func newApp(ctx context.Context, o options, stdout io.Writer) (*app, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	logCfg := cfg.Logging()
	if !o.serving && logCfg.Level == "" {
		logCfg.Level = "warn"
	}
	zl, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, zl: zl, stdout: stdout, registry: prometheus.NewRegistry()}
	a.closers = append(a.closers, func() error { _ = zl.Sync(); return nil })

	store, err := kv.Open(ctx, cfg.KV())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open %s storage: %w", cfg.StorageDriver, err)
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	blobs, err := blob.Open(ctx, cfg.Blob())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open %s document store: %w", cfg.BlobDriver, err)
	}

	logger := core.NewZapLogger(zl)
	prom, err := core.NewPrometheusMetricsRecorder(a.registry)
	if err != nil {
		a.close()
		return nil, err
	}
	opts := []core.Option{
		core.WithLogger(logger),
		core.WithMetricsRecorder(core.MultiMetricsRecorder{prom, core.NewExpvarMetricsRecorder("")}),
	}
	if cfg.StrictWorkflow {
		opts = append(opts, core.WithStrictWorkflow())
	}
	if o.tracePath != "" {
		f, err := os.OpenFile(filepath.Clean(o.tracePath), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		a.closers = append(a.closers, f.Close)
		opts = append(opts, core.WithTracer(core.NewJSONTracer(f)))
	}
	a.svc = core.NewService(store, opts...)
	a.gate = session.NewGate(store)
	a.docs = documents.NewLibrary(blobs, documents.WithLogger(logger), documents.WithURLExpiry(cfg.DocumentURLExpiry))

	stop, err := a.svc.Bind(ctx, a.gate)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, func() error { stop(); return nil })
	if _, err := a.gate.Restore(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func readCandidate(path, documentRef string) ([]byte, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	if documentRef == "" {
		return raw, nil
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	fields["pdfUrl"] = documentRef
	return json.Marshal(fields)
}
