package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"invoicedesk/pkg/domain"
)

// NewDraft returns a blank invoice for the creation form: a fresh id, draft
// status, both timestamps set to now and a single empty expense line.
func NewDraft(now time.Time) domain.Invoice {
	stamp := now.UTC().Format(time.RFC3339Nano)
	return domain.Invoice{
		InvoiceID: uuid.NewString(),
		Status:    domain.StatusDraft,
		CreatedAt: stamp,
		UpdatedAt: stamp,
		Expenses:  []domain.Expense{{}},
	}
}

// DraftSlot is the single in-progress invoice location shared by the
// creation form. It is overwritten on every save and never deleted.
type DraftSlot struct {
	kv domain.KeyValueStore
}

// NewDraftSlot binds a draft slot to kv.
func NewDraftSlot(kv domain.KeyValueStore) *DraftSlot {
	return &DraftSlot{kv: kv}
}

// Save overwrites the draft and its document reference. An empty reference
// clears the stored one.
func (d *DraftSlot) Save(ctx context.Context, draft domain.Invoice, documentRef string) error {
	draft.PDFURL = ""
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := d.kv.Set(ctx, domain.DraftKey, payload); err != nil {
		return &domain.StorageError{Op: "set", Key: domain.DraftKey, Err: err}
	}
	if err := d.kv.Set(ctx, domain.DraftDocumentKey, []byte(documentRef)); err != nil {
		return &domain.StorageError{Op: "set", Key: domain.DraftDocumentKey, Err: err}
	}
	return nil
}

// Load returns the stored draft with pdfUrl set from the stored document
// reference. found is false when no draft has been saved.
func (d *DraftSlot) Load(ctx context.Context) (domain.Invoice, bool, error) {
	raw, ok, err := d.kv.Get(ctx, domain.DraftKey)
	if err != nil {
		return domain.Invoice{}, false, &domain.StorageError{Op: "get", Key: domain.DraftKey, Err: err}
	}
	if !ok {
		return domain.Invoice{}, false, nil
	}
	var draft domain.Invoice
	if err := json.Unmarshal(raw, &draft); err != nil {
		return domain.Invoice{}, false, &domain.CorruptStateError{Key: domain.DraftKey, Err: err}
	}
	ref, ok, err := d.kv.Get(ctx, domain.DraftDocumentKey)
	if err != nil {
		return domain.Invoice{}, false, &domain.StorageError{Op: "get", Key: domain.DraftDocumentKey, Err: err}
	}
	if ok && len(ref) > 0 {
		draft.PDFURL = string(ref)
	}
	return draft, true, nil
}
