package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"invoicedesk/internal/blob/core"
)

func TestMemoryBlobLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	meta := map[string]string{"filename": "a.pdf"}
	info, err := s.Put(ctx, "documents/alice/a.pdf", strings.NewReader("%PDF-1.7"), core.PutOptions{ContentType: "application/pdf", Metadata: meta})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	meta["filename"] = "changed"
	if info.Size != 8 || info.ETag == "" || info.Metadata["filename"] != "a.pdf" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "documents/alice/a.pdf", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, rc, err := s.Get(ctx, "documents/alice/a.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "%PDF-1.7" || got.ContentType != "application/pdf" {
		t.Fatalf("unexpected object %q %+v", body, got)
	}

	if _, err := s.Put(ctx, "documents/bob/b.pdf", strings.NewReader("b"), core.PutOptions{}); err != nil {
		t.Fatalf("put bob: %v", err)
	}
	list, _ := s.List(ctx, "documents/alice/")
	if len(list) != 1 || list[0].Key != "documents/alice/a.pdf" {
		t.Fatalf("unexpected list %+v", list)
	}

	if ok, err := s.Delete(ctx, "documents/alice/a.pdf"); err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.Delete(ctx, "documents/alice/a.pdf"); ok {
		t.Fatalf("second delete should report missing")
	}
	if _, err := s.Head(ctx, "documents/alice/a.pdf"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.PresignURL(ctx, "documents/bob/b.pdf", time.Minute); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if _, err := s.Put(ctx, " ", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
}
