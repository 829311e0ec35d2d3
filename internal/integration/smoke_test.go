package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"invoicedesk/internal/blob"
	"invoicedesk/internal/core"
	"invoicedesk/internal/dashboard"
	"invoicedesk/internal/documents"
	"invoicedesk/internal/kv"
	"invoicedesk/internal/session"
	"invoicedesk/pkg/domain"
)

const pdfBody = "%PDF-1.7\n1 0 obj\n%%EOF\n"

func candidate(t *testing.T, ref string) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"invoiceId":           "smoke-1",
		"vendor":              "Harbor Freight Lines",
		"vendorAddress":       "9 Dock St., Salem",
		"purchaseOrderNumber": "PO-900",
		"invoiceNumber":       "INV-900",
		"invoiceDate":         "2025-04-01",
		"invoiceDueDate":      "2025-05-01",
		"glPostDate":          "2025-04-02",
		"paymentTerms":        "Net 30",
		"totalAmount":         640.10,
		"invoiceDescription":  "Freight for April",
		"expenses": []any{
			map[string]any{"lineAmount": 640.10, "department": "Logistics", "account": "5200", "location": "Dock", "description": "Freight"},
		},
		"comments":  "",
		"status":    "draft",
		"createdAt": "2025-04-01T08:00:00.000Z",
		"updatedAt": "2025-04-01T08:00:00.000Z",
		"pdfUrl":    ref,
	})
	if err != nil {
		t.Fatalf("marshal candidate: %v", err)
	}
	return raw
}

// TestIntegrationSmoke runs the full submit and approve cycle against each
// in-process storage and blob backend pairing, then reopens the account to
// check that the collection survived.
func TestIntegrationSmoke(t *testing.T) {
	kvVariants := []struct {
		name string
		cfg  func(t *testing.T) kv.Config
	}{
		{"memory-kv", func(*testing.T) kv.Config { return kv.Config{Driver: kv.DriverMemory} }},
		{"sqlite-kv", func(t *testing.T) kv.Config {
			return kv.Config{Driver: kv.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "smoke.db")}
		}},
	}
	blobVariants := []struct {
		name string
		cfg  func(t *testing.T) blob.Config
	}{
		{"memory-blob", func(*testing.T) blob.Config { return blob.Config{Driver: blob.DriverMemory} }},
		{"filesystem-blob", func(t *testing.T) blob.Config {
			return blob.Config{Driver: blob.DriverFilesystem, FSRoot: filepath.Join(t.TempDir(), "blobs")}
		}},
	}

	for _, kvv := range kvVariants {
		for _, bv := range blobVariants {
			t.Run(kvv.name+"/"+bv.name, func(t *testing.T) {
				ctx := context.Background()
				store, err := kv.Open(ctx, kvv.cfg(t))
				if err != nil {
					t.Fatalf("open kv: %v", err)
				}
				t.Cleanup(func() { _ = store.Close() })
				blobs, err := blob.Open(ctx, bv.cfg(t))
				if err != nil {
					t.Fatalf("open blob: %v", err)
				}

				metrics := core.NewExpvarMetricsRecorder("")
				var traces bytes.Buffer
				tracer := core.NewJSONTracer(&traces)
				gate := session.NewGate(store)
				svc := core.NewService(store, core.WithMetricsRecorder(metrics), core.WithTracer(tracer))
				stop, err := svc.Bind(ctx, gate)
				if err != nil {
					t.Fatalf("bind: %v", err)
				}
				defer stop()
				if err := gate.Login(ctx, "clerk@example.com"); err != nil {
					t.Fatalf("login: %v", err)
				}

				library := documents.NewLibrary(blobs)
				doc, err := library.Attach(ctx, "clerk@example.com", "freight.pdf", "application/pdf", strings.NewReader(pdfBody))
				if err != nil {
					t.Fatalf("attach: %v", err)
				}
				created, res, err := svc.Submit(ctx, candidate(t, doc.Ref))
				if err != nil || res.HasBlocking() {
					t.Fatalf("submit: %v %+v", err, res.Violations)
				}
				if created.Status != domain.StatusPending {
					t.Fatalf("expected pending, got %s", created.Status)
				}
				if _, _, err := svc.HandleAction(ctx, domain.ActionApprove, created.InvoiceID); err != nil {
					t.Fatalf("approve: %v", err)
				}

				_, rc, err := library.Open(ctx, created.PDFURL)
				if err != nil {
					t.Fatalf("open document: %v", err)
				}
				body, _ := io.ReadAll(rc)
				_ = rc.Close()
				if string(body) != pdfBody {
					t.Fatalf("document mismatch %q", body)
				}

				// A second process sharing the backend restores the session
				// and sees the approved record.
				gate2 := session.NewGate(store)
				if ok, err := gate2.Restore(ctx); err != nil || !ok {
					t.Fatalf("restore: ok=%v err=%v", ok, err)
				}
				svc2 := core.NewService(store)
				stop2, err := svc2.Bind(ctx, gate2)
				if err != nil {
					t.Fatalf("bind second service: %v", err)
				}
				defer stop2()
				invoices, stats := svc2.Dashboard(dashboard.DefaultQuery())
				if len(invoices) != 1 || invoices[0].Status != domain.StatusApproved || stats.Total != 1 || stats.Pending != 0 {
					t.Fatalf("unexpected reopened collection %+v %+v", invoices, stats)
				}

				if metrics.Snapshot()["submit_invoice"].Calls != 1 {
					t.Fatalf("expected submit metric, got %+v", metrics.Snapshot())
				}
				var approved bool
				for _, entry := range tracer.Entries() {
					if entry.Operation == "approve_invoice" && entry.Status == "success" {
						approved = true
					}
				}
				if !approved || traces.Len() == 0 {
					t.Fatalf("expected approve span, entries=%+v", tracer.Entries())
				}
			})
		}
	}
}
