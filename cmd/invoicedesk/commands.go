package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"invoicedesk/internal/adapters/httpapi"
	"invoicedesk/internal/core"
	"invoicedesk/internal/dashboard"
	"invoicedesk/pkg/domain"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"serve":   runServe,
	"login":   runLogin,
	"logout":  runLogout,
	"whoami":  runWhoami,
	"list":    runList,
	"stats":   runStats,
	"submit":  runSubmit,
	"approve": actionCommand(domain.ActionApprove),
	"reject":  actionCommand(domain.ActionReject),
	"delete":  actionCommand(domain.ActionDelete),
	"seed":    runSeed,
}

func runServe(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("addr", a.cfg.HTTPAddr, "listen address")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	opts := []httpapi.Option{httpapi.WithGatherer(a.registry), httpapi.WithLogger(core.NewZapLogger(a.zl))}
	srv := &http.Server{
		Addr:              *addr,
		Handler:           httpapi.NewServer(a.svc, a.gate, a.docs, opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	a.zl.Sugar().Infow("invoicedesk listening", "addr", *addr, "storage", a.cfg.StorageDriver, "documents", a.cfg.BlobDriver)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runLogin(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return usageError{"expected exactly one user identifier"}
	}
	if err := a.gate.Login(ctx, args[0]); err != nil {
		return err
	}
	if err := a.svc.LoadErr(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(a.stdout, "logged in as %s (%d invoices)\n", args[0], len(a.svc.Invoices()))
	return err
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.gate.Logout(ctx); err != nil {
		return err
	}
	_, err := fmt.Fprintln(a.stdout, "logged out")
	return err
}

func runWhoami(_ context.Context, a *app, _ []string) error {
	user, active := a.gate.Current()
	if !active {
		return domain.ErrNoActiveSession
	}
	_, err := fmt.Fprintln(a.stdout, user)
	return err
}

func runList(_ context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	search := fs.String("search", "", "match vendor, invoice number or description")
	status := fs.String("status", "all", "all|draft|pending|approved|rejected")
	sortKey := fs.String("sort", string(dashboard.SortUpdatedAt), "field to sort by")
	direction := fs.String("direction", string(dashboard.Desc), "asc|desc")
	asJSON := fs.Bool("json", false, "print JSON")
	asCSV := fs.Bool("csv", false, "print CSV")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	q := dashboard.Query{Search: *search}
	var err error
	if q.Status, err = dashboard.ParseStatusFilter(*status); err != nil {
		return usageError{err.Error()}
	}
	if q.SortKey, err = dashboard.ParseSortKey(*sortKey); err != nil {
		return usageError{err.Error()}
	}
	if q.Direction, err = dashboard.ParseDirection(*direction); err != nil {
		return usageError{err.Error()}
	}
	if _, active := a.gate.Current(); !active {
		return domain.ErrNoActiveSession
	}
	if err := a.svc.LoadErr(); err != nil {
		return err
	}
	invoices, _ := a.svc.Dashboard(q)
	switch {
	case *asJSON:
		return a.printJSON(invoices)
	case *asCSV:
		return dashboard.WriteCSV(a.stdout, invoices)
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "INVOICE ID\tNUMBER\tVENDOR\tSTATUS\tTOTAL\tUPDATED")
	for _, inv := range invoices {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			inv.InvoiceID, inv.InvoiceNumber, inv.Vendor, inv.Status, inv.TotalAmount.StringFixed(2), inv.UpdatedAt)
	}
	return tw.Flush()
}

func runStats(_ context.Context, a *app, _ []string) error {
	if _, active := a.gate.Current(); !active {
		return domain.ErrNoActiveSession
	}
	if err := a.svc.LoadErr(); err != nil {
		return err
	}
	_, stats := a.svc.Dashboard(dashboard.DefaultQuery())
	_, err := fmt.Fprintf(a.stdout, "total=%d pending=%d drafts=%d amount=%s\n",
		stats.Total, stats.Pending, stats.Drafts, stats.TotalAmount.StringFixed(2))
	return err
}

func runSubmit(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	document := fs.String("document", "", "PDF to attach before submitting")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	if fs.NArg() != 1 {
		return usageError{"expected one invoice JSON file"}
	}
	user, active := a.gate.Current()
	if !active {
		return domain.ErrNoActiveSession
	}
	ref := ""
	if *document != "" {
		f, err := os.Open(filepath.Clean(*document))
		if err != nil {
			return err
		}
		doc, err := a.docs.Attach(ctx, user, filepath.Base(*document), "", f)
		_ = f.Close()
		if err != nil {
			return err
		}
		ref = doc.Ref
	}
	candidate, err := readCandidate(fs.Arg(0), ref)
	if err != nil {
		return err
	}
	created, res, err := a.svc.Submit(ctx, candidate)
	if err != nil {
		return err
	}
	printViolations(a, res)
	_, err = fmt.Fprintf(a.stdout, "submitted %s (%s)\n", created.InvoiceID, created.Status)
	return err
}

func actionCommand(action domain.Action) command {
	return func(ctx context.Context, a *app, args []string) error {
		if len(args) != 1 {
			return usageError{"expected exactly one invoice id"}
		}
		inv, res, err := a.svc.HandleAction(ctx, action, args[0])
		if err != nil {
			return err
		}
		printViolations(a, res)
		if inv.InvoiceID == "" {
			_, err = fmt.Fprintf(a.stdout, "no invoice %s\n", args[0])
			return err
		}
		if action == domain.ActionDelete {
			_, err = fmt.Fprintf(a.stdout, "deleted %s\n", inv.InvoiceID)
			return err
		}
		_, err = fmt.Fprintf(a.stdout, "%s is %s\n", inv.InvoiceID, inv.Status)
		return err
	}
}

func runSeed(ctx context.Context, a *app, _ []string) error {
	added, err := a.svc.Seed(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "added %d sample invoices\n", added)
	return err
}

func printViolations(a *app, res domain.Result) {
	for _, v := range res.Violations {
		_, _ = fmt.Fprintf(a.stdout, "%s: %s\n", v.Severity, v.Message)
	}
}

// describe adds a hint to errors a user can act on.
func describe(err error) string {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNoActiveSession):
		return err.Error() + " (run: invoicedesk login <user>)"
	case errors.Is(err, core.ErrDocumentRequired):
		return err.Error() + " (use -document file.pdf)"
	case errors.As(err, &verr):
		return fmt.Sprintf("invalid fields: %v", verr.Paths())
	default:
		return err.Error()
	}
}
