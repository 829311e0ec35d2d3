package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"invoicedesk/pkg/domain"
)

func TestStoreLoadAbsentKeyYieldsEmptyCollection(t *testing.T) {
	kv := newFakeKV()
	store := loadedStore(t, kv)
	if got := store.Invoices(); len(got) != 0 {
		t.Fatalf("expected empty collection, got %d", len(got))
	}
	if kv.setCount() != 0 {
		t.Fatalf("load must not write")
	}
	if store.Key() != "invoices_alice" {
		t.Fatalf("unexpected key %s", store.Key())
	}
}

func TestStoreAddRoundTripsInOrder(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := loadedStore(t, kv)
	ids := []string{"c", "a", "b"}
	for i, id := range ids {
		if _, _, err := store.Add(ctx, testInvoice(id, "INV-"+id, float64(i+1), domain.StatusPending)); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
	if kv.setCount() != 3 {
		t.Fatalf("expected one write per add, got %d", kv.setCount())
	}

	reloaded := loadedStore(t, kv)
	got := reloaded.Invoices()
	if len(got) != len(ids) {
		t.Fatalf("expected %d invoices, got %d", len(ids), len(got))
	}
	for i, id := range ids {
		if got[i].InvoiceID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].InvoiceID)
		}
		if !got[i].TotalAmount.Equal(domain.NewAmount(float64(i + 1)).Decimal) {
			t.Fatalf("amount not preserved for %s: %s", id, got[i].TotalAmount)
		}
	}
}

func TestStoreAddFillsMissingIdentityAndTimestamps(t *testing.T) {
	store := loadedStore(t, newFakeKV(), WithStoreClock(fixedClock()))
	inv := testInvoice("", "INV-1", 10, "")
	inv.CreatedAt, inv.UpdatedAt = "", ""
	created, _, err := store.Add(context.Background(), inv)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if created.InvoiceID == "" {
		t.Fatalf("expected assigned id")
	}
	if created.Status != domain.StatusDraft {
		t.Fatalf("expected draft default, got %s", created.Status)
	}
	if created.CreatedAt != "2025-06-01T12:00:00Z" || created.UpdatedAt != created.CreatedAt {
		t.Fatalf("unexpected timestamps %s %s", created.CreatedAt, created.UpdatedAt)
	}
}

func TestStoreAddRejectsInvalidInvoice(t *testing.T) {
	kv := newFakeKV()
	store := loadedStore(t, kv)
	inv := testInvoice("x", "INV-1", 10, domain.StatusPending)
	inv.Vendor = ""
	_, _, err := store.Add(context.Background(), inv)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || !verr.Has("vendor") {
		t.Fatalf("expected vendor validation error, got %v", err)
	}
	if kv.setCount() != 0 || len(store.Invoices()) != 0 {
		t.Fatalf("invalid add must not change or persist state")
	}
}

func TestStoreAddBlocksDuplicateID(t *testing.T) {
	ctx := context.Background()
	store := loadedStore(t, newFakeKV())
	if _, _, err := store.Add(ctx, testInvoice("dup", "INV-1", 1, domain.StatusPending)); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, _, err := store.Add(ctx, testInvoice("dup", "INV-2", 1, domain.StatusPending))
	var rv domain.RuleViolationError
	if !errors.As(err, &rv) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if len(store.Invoices()) != 1 {
		t.Fatalf("duplicate must not be committed")
	}
}

func TestStoreLoadCorruptStateIsReportedNotReset(t *testing.T) {
	kv := newFakeKV()
	kv.data["invoices_alice"] = []byte("{not json")
	store := NewInvoiceStore(kv, "alice")
	err := store.Load(context.Background())
	var corrupt *domain.CorruptStateError
	if !errors.As(err, &corrupt) || corrupt.Key != "invoices_alice" {
		t.Fatalf("expected corrupt state error, got %v", err)
	}
	if string(kv.data["invoices_alice"]) != "{not json" {
		t.Fatalf("corrupt bytes must be left untouched")
	}
	_, _, err = store.Add(context.Background(), testInvoice("a", "INV-1", 1, domain.StatusPending))
	if !errors.As(err, &corrupt) {
		t.Fatalf("mutations on a corrupt store must return the load error, got %v", err)
	}
	if kv.setCount() != 0 {
		t.Fatalf("corrupt store must never write")
	}
}

func TestStoreLoadBackendFailure(t *testing.T) {
	kv := newFakeKV()
	kv.failGet = true
	err := NewInvoiceStore(kv, "alice").Load(context.Background())
	var serr *domain.StorageError
	if !errors.As(err, &serr) || !errors.Is(err, errBackendDown) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestStoreMutationBeforeLoad(t *testing.T) {
	store := NewInvoiceStore(newFakeKV(), "alice")
	if _, _, err := store.Add(context.Background(), testInvoice("a", "INV-1", 1, domain.StatusPending)); !errors.Is(err, ErrStoreNotLoaded) {
		t.Fatalf("expected ErrStoreNotLoaded, got %v", err)
	}
}

func TestStorePersistFailureKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := loadedStore(t, kv)
	if _, _, err := store.Add(ctx, testInvoice("a", "INV-1", 1, domain.StatusPending)); err != nil {
		t.Fatalf("add: %v", err)
	}
	kv.failSet = true
	_, _, err := store.Add(ctx, testInvoice("b", "INV-2", 1, domain.StatusPending))
	var serr *domain.StorageError
	if !errors.As(err, &serr) || serr.Op != "set" {
		t.Fatalf("expected storage error, got %v", err)
	}
	if got := store.Invoices(); len(got) != 1 || got[0].InvoiceID != "a" {
		t.Fatalf("failed persist must not change memory: %+v", got)
	}
}

func TestStoreUnknownIDIsSilentNoop(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := loadedStore(t, kv)
	if _, _, err := store.Add(ctx, testInvoice("a", "INV-1", 1, domain.StatusPending)); err != nil {
		t.Fatalf("add: %v", err)
	}
	writes := kv.setCount()

	vendor := "Other"
	if _, found, _, err := store.Update(ctx, "missing", domain.InvoicePatch{Vendor: &vendor}); err != nil || found {
		t.Fatalf("update on unknown id: found=%v err=%v", found, err)
	}
	if _, found, _, err := store.Transition(ctx, "missing", domain.ActionApprove); err != nil || found {
		t.Fatalf("approve on unknown id: found=%v err=%v", found, err)
	}
	if found, _, err := store.Delete(ctx, "missing"); err != nil || found {
		t.Fatalf("delete on unknown id: found=%v err=%v", found, err)
	}
	if kv.setCount() != writes {
		t.Fatalf("no-op mutations must not write")
	}
}

func TestStoreDeleteRemovesExactlyOne(t *testing.T) {
	ctx := context.Background()
	store := loadedStore(t, newFakeKV())
	for _, id := range []string{"a", "b", "c"} {
		if _, _, err := store.Add(ctx, testInvoice(id, "INV-"+id, 1, domain.StatusPending)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if found, _, err := store.Delete(ctx, "b"); err != nil || !found {
		t.Fatalf("delete: found=%v err=%v", found, err)
	}
	got := store.Invoices()
	if len(got) != 2 || got[0].InvoiceID != "a" || got[1].InvoiceID != "c" {
		t.Fatalf("unexpected collection after delete: %+v", got)
	}
	if found, _, err := store.Delete(ctx, "b"); err != nil || found {
		t.Fatalf("second delete should be a no-op: found=%v err=%v", found, err)
	}
	if len(store.Invoices()) != 2 {
		t.Fatalf("second delete changed the collection")
	}
}

func TestStoreApproveTransitions(t *testing.T) {
	ctx := context.Background()
	logger := &captureLogger{}
	store := loadedStore(t, newFakeKV(), WithStoreLogger(logger))
	if _, _, err := store.Add(ctx, testInvoice("a", "INV-1", 1, domain.StatusPending)); err != nil {
		t.Fatalf("add: %v", err)
	}
	updated, found, res, err := store.Transition(ctx, "a", domain.ActionApprove)
	if err != nil || !found || updated.Status != domain.StatusApproved {
		t.Fatalf("approve pending: %+v found=%v err=%v", updated, found, err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("legal transition should not report violations: %+v", res)
	}

	updated, _, res, err = store.Transition(ctx, "a", domain.ActionApprove)
	if err != nil || updated.Status != domain.StatusApproved {
		t.Fatalf("approve approved: %+v err=%v", updated, err)
	}
	if len(res.Violations) != 1 || res.Violations[0].Severity != domain.SeverityWarn {
		t.Fatalf("expected one warning, got %+v", res)
	}
	if logger.count("warn") != 1 {
		t.Fatalf("expected warning to be logged")
	}

	updated, _, _, err = store.Transition(ctx, "a", domain.ActionReject)
	if err != nil || updated.Status != domain.StatusRejected {
		t.Fatalf("reject approved overwrites status in lenient mode: %+v err=%v", updated, err)
	}
}

func TestStoreStrictWorkflowBlocksOutOfOrderActions(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := loadedStore(t, kv, WithStoreRules(NewDefaultRulesEngine(true)))
	if _, _, err := store.Add(ctx, testInvoice("a", "INV-1", 1, domain.StatusApproved)); err != nil {
		t.Fatalf("add: %v", err)
	}
	writes := kv.setCount()
	_, _, _, err := store.Transition(ctx, "a", domain.ActionReject)
	var rv domain.RuleViolationError
	if !errors.As(err, &rv) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if inv, _ := store.Find("a"); inv.Status != domain.StatusApproved {
		t.Fatalf("blocked transition changed status to %s", inv.Status)
	}
	if kv.setCount() != writes {
		t.Fatalf("blocked transition must not write")
	}
}

func TestStoreTransitionRejectsUnknownAction(t *testing.T) {
	store := loadedStore(t, newFakeKV())
	if _, _, _, err := store.Transition(context.Background(), "a", domain.Action("archive")); err == nil {
		t.Fatalf("expected unknown action error")
	}
}

func TestStoreUpdateMergesAndRevalidates(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := loadedStore(t, kv)
	if _, _, err := store.Add(ctx, testInvoice("a", "INV-1", 10, domain.StatusPending)); err != nil {
		t.Fatalf("add: %v", err)
	}

	comments := "checked"
	updated, found, _, err := store.Update(ctx, "a", domain.InvoicePatch{Comments: &comments})
	if err != nil || !found || updated.Comments != "checked" || updated.Vendor != "Acme" {
		t.Fatalf("update: %+v found=%v err=%v", updated, found, err)
	}

	empty := []domain.Expense{}
	_, _, _, err = store.Update(ctx, "a", domain.InvoicePatch{Expenses: &empty})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || !verr.Has("expenses") {
		t.Fatalf("expected expenses validation error, got %v", err)
	}
	inv, _ := store.Find("a")
	if len(inv.Expenses) != 1 || inv.Comments != "checked" {
		t.Fatalf("rejected update changed the record: %+v", inv)
	}

	var persisted []domain.Invoice
	if err := json.Unmarshal(kv.data["invoices_alice"], &persisted); err != nil {
		t.Fatalf("decode persisted: %v", err)
	}
	if persisted[0].Comments != "checked" || len(persisted[0].Expenses) != 1 {
		t.Fatalf("persisted state does not match memory: %+v", persisted[0])
	}
}

func TestStoreEmptyPatchDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := loadedStore(t, kv)
	if _, _, err := store.Add(ctx, testInvoice("a", "INV-1", 10, domain.StatusPending)); err != nil {
		t.Fatalf("add: %v", err)
	}
	writes := kv.setCount()
	got, found, _, err := store.Update(ctx, "a", domain.InvoicePatch{})
	if err != nil || !found || got.InvoiceID != "a" {
		t.Fatalf("empty patch: %+v found=%v err=%v", got, found, err)
	}
	if kv.setCount() != writes {
		t.Fatalf("empty patch must not write")
	}
}

func TestStoreInvoicesReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := loadedStore(t, newFakeKV())
	if _, _, err := store.Add(ctx, testInvoice("a", "INV-1", 10, domain.StatusPending)); err != nil {
		t.Fatalf("add: %v", err)
	}
	got := store.Invoices()
	got[0].Vendor = "mutated"
	got[0].Expenses[0].Account = "mutated"
	inv, _ := store.Find("a")
	if inv.Vendor != "Acme" || inv.Expenses[0].Account != "6000" {
		t.Fatalf("caller mutation leaked into the store")
	}
}
