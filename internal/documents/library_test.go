package documents

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"invoicedesk/internal/blob"
)

const samplePDF = "%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n"

func TestAttachAndOpen(t *testing.T) {
	ctx := context.Background()
	lib := NewLibrary(blob.NewMemory())
	doc, err := lib.Attach(ctx, "alice@example.com", "scan.pdf", "application/pdf", strings.NewReader(samplePDF))
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if !strings.HasPrefix(doc.Ref, "blob://documents/alice@example.com/") || !strings.HasSuffix(doc.Ref, ".pdf") {
		t.Fatalf("unexpected ref %q", doc.Ref)
	}
	if doc.URL != "" {
		t.Fatalf("memory driver should not produce a url, got %q", doc.URL)
	}
	if doc.Info.Metadata["filename"] != "scan.pdf" || doc.Info.ContentType != "application/pdf" {
		t.Fatalf("unexpected info %+v", doc.Info)
	}

	info, rc, err := lib.Open(ctx, doc.Ref)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != samplePDF || info.Size != int64(len(samplePDF)) {
		t.Fatalf("unexpected body %q size=%d", body, info.Size)
	}

	docs, err := lib.List(ctx, "alice@example.com")
	if err != nil || len(docs) != 1 || docs[0].Ref != doc.Ref {
		t.Fatalf("unexpected list %+v err=%v", docs, err)
	}
	if others, _ := lib.List(ctx, "bob@example.com"); len(others) != 0 {
		t.Fatalf("expected no documents for another user, got %+v", others)
	}

	if ok, err := lib.Remove(ctx, doc.Ref); err != nil || !ok {
		t.Fatalf("remove: ok=%v err=%v", ok, err)
	}
	if _, _, err := lib.Open(ctx, doc.Ref); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected not found after remove, got %v", err)
	}
}

func TestAttachRejectsNonPDF(t *testing.T) {
	ctx := context.Background()
	lib := NewLibrary(blob.NewMemory())
	cases := []struct {
		name, filename, contentType, body string
	}{
		{"declared image", "photo.png", "image/png", samplePDF},
		{"missing signature", "fake.pdf", "application/pdf", "hello world"},
		{"empty", "empty.pdf", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := lib.Attach(ctx, "alice", tc.filename, tc.contentType, strings.NewReader(tc.body)); !errors.Is(err, ErrNotPDF) {
				t.Fatalf("expected ErrNotPDF, got %v", err)
			}
		})
	}
	if _, err := lib.Attach(ctx, "", "a.pdf", "application/pdf", strings.NewReader(samplePDF)); err == nil {
		t.Fatalf("expected user required error")
	}
	if _, err := lib.Attach(ctx, "alice", "upper.PDF", "application/octet-stream", strings.NewReader(samplePDF)); err != nil {
		t.Fatalf("extension match should be accepted: %v", err)
	}
}

func TestFilesystemDocumentURL(t *testing.T) {
	ctx := context.Background()
	store, err := blob.Open(ctx, blob.Config{Driver: blob.DriverFilesystem, FSRoot: filepath.Join(t.TempDir(), "blobs")})
	if err != nil {
		t.Fatalf("open blob: %v", err)
	}
	lib := NewLibrary(store)
	doc, err := lib.Attach(ctx, "alice", "a.pdf", "application/pdf; charset=binary", strings.NewReader(samplePDF))
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if !strings.HasPrefix(doc.URL, "file://") {
		t.Fatalf("expected file url, got %q", doc.URL)
	}
	u, err := lib.URL(ctx, doc.Ref)
	if err != nil || u != doc.URL {
		t.Fatalf("unexpected url %q err=%v", u, err)
	}
}

func TestParseRef(t *testing.T) {
	if key, err := ParseRef("blob://documents/alice/x.pdf"); err != nil || key != "documents/alice/x.pdf" {
		t.Fatalf("unexpected parse %q %v", key, err)
	}
	for _, ref := range []string{"", "https://example.com/a.pdf", "blob://other/a.pdf", "blob://documents/../secret"} {
		if _, err := ParseRef(ref); !errors.Is(err, ErrInvalidRef) {
			t.Fatalf("expected ErrInvalidRef for %q, got %v", ref, err)
		}
	}
}
