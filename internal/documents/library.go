// Package documents stores the PDF attached to an invoice in a blob store and
// hands out the reference kept in the invoice's pdfUrl field.
package documents

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"invoicedesk/internal/blob"
	"invoicedesk/internal/core"
)

const (
	// RefScheme prefixes every document reference.
	RefScheme = "blob://"

	pdfContentType = "application/pdf"
	keyPrefix      = "documents/"
	defaultExpiry  = 15 * time.Minute
)

var (
	// ErrNotPDF is returned when an upload is not a PDF document.
	ErrNotPDF = errors.New("only PDF documents can be attached")
	// ErrInvalidRef is returned for references this library did not issue.
	ErrInvalidRef = errors.New("invalid document reference")

	pdfMagic = []byte("%PDF-")
)

// Document is an attached file.
type Document struct {
	Ref  string    `json:"ref"`
	Key  string    `json:"key"`
	URL  string    `json:"url,omitempty"`
	Info blob.Info `json:"info"`
}

// Library attaches and serves invoice documents.
type Library struct {
	store  blob.Store
	expiry time.Duration
	logger core.Logger
}

// Option customises a Library.
type Option func(*Library)

// WithURLExpiry sets the lifetime of presigned viewing URLs.
func WithURLExpiry(d time.Duration) Option {
	return func(l *Library) {
		if d > 0 {
			l.expiry = d
		}
	}
}

// WithLogger sets the library logger.
func WithLogger(logger core.Logger) Option {
	return func(l *Library) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLibrary wraps store.
func NewLibrary(store blob.Store, opts ...Option) *Library {
	l := &Library{store: store, expiry: defaultExpiry, logger: core.NewZapLogger(nil)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Attach stores a PDF uploaded by user and returns its reference. The upload
// is accepted when it is declared as application/pdf or named *.pdf, and its
// content starts with the PDF signature.
func (l *Library) Attach(ctx context.Context, user, filename, contentType string, r io.Reader) (Document, error) {
	if strings.TrimSpace(user) == "" || strings.Contains(user, "..") {
		return Document{}, fmt.Errorf("attach document: invalid user %q", user)
	}
	if !declaredPDF(filename, contentType) {
		return Document{}, fmt.Errorf("%w: %s (%s)", ErrNotPDF, filename, contentType)
	}
	br := bufio.NewReader(r)
	head, err := br.Peek(len(pdfMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if !bytes.Equal(head, pdfMagic) {
		return Document{}, fmt.Errorf("%w: %s has no PDF signature", ErrNotPDF, filename)
	}

	key := userPrefix(user) + uuid.NewString() + ".pdf"
	info, err := l.store.Put(ctx, key, br, blob.PutOptions{
		ContentType: pdfContentType,
		Metadata:    map[string]string{"filename": path.Base(filename), "user": user},
	})
	if err != nil {
		return Document{}, fmt.Errorf("store document: %w", err)
	}
	doc := Document{Ref: RefScheme + key, Key: key, Info: info}
	doc.URL = l.viewURL(ctx, key)
	l.logger.Info("document attached", "user", user, "key", key, "size", info.Size)
	return doc, nil
}

// Open streams the document behind ref. The caller closes the reader.
func (l *Library) Open(ctx context.Context, ref string) (blob.Info, io.ReadCloser, error) {
	key, err := ParseRef(ref)
	if err != nil {
		return blob.Info{}, nil, err
	}
	return l.store.Get(ctx, key)
}

// URL returns a viewing URL for ref, or an empty string when the driver
// cannot produce one.
func (l *Library) URL(ctx context.Context, ref string) (string, error) {
	key, err := ParseRef(ref)
	if err != nil {
		return "", err
	}
	if _, err := l.store.Head(ctx, key); err != nil {
		return "", err
	}
	return l.viewURL(ctx, key), nil
}

// List returns the documents uploaded by user, ordered by key.
func (l *Library) List(ctx context.Context, user string) ([]Document, error) {
	infos, err := l.store.List(ctx, userPrefix(user))
	if err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(infos))
	for _, info := range infos {
		out = append(out, Document{Ref: RefScheme + info.Key, Key: info.Key, Info: info})
	}
	return out, nil
}

// Remove deletes the document behind ref; false when it did not exist.
func (l *Library) Remove(ctx context.Context, ref string) (bool, error) {
	key, err := ParseRef(ref)
	if err != nil {
		return false, err
	}
	return l.store.Delete(ctx, key)
}

// ParseRef extracts the blob key from a document reference.
func ParseRef(ref string) (string, error) {
	key, ok := strings.CutPrefix(ref, RefScheme)
	if !ok || !strings.HasPrefix(key, keyPrefix) || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return key, nil
}

func (l *Library) viewURL(ctx context.Context, key string) string {
	u, err := l.store.PresignURL(ctx, key, l.expiry)
	if err != nil {
		if !errors.Is(err, blob.ErrUnsupported) {
			l.logger.Warn("presign document failed", "key", key, "error", err)
		}
		return ""
	}
	return u
}

func declaredPDF(filename, contentType string) bool {
	if strings.EqualFold(strings.TrimSpace(strings.Split(contentType, ";")[0]), pdfContentType) {
		return true
	}
	return strings.EqualFold(path.Ext(filename), ".pdf")
}

func userPrefix(user string) string {
	return keyPrefix + url.PathEscape(user) + "/"
}
