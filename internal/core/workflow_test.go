package core

import (
	"context"
	"testing"

	"invoicedesk/pkg/domain"
)

func TestNextStatus(t *testing.T) {
	cases := []struct {
		from   domain.Status
		action domain.Action
		want   domain.Status
		legal  bool
	}{
		{domain.StatusPending, domain.ActionApprove, domain.StatusApproved, true},
		{domain.StatusPending, domain.ActionReject, domain.StatusRejected, true},
		{domain.StatusApproved, domain.ActionApprove, domain.StatusApproved, false},
		{domain.StatusRejected, domain.ActionApprove, domain.StatusApproved, false},
		{domain.StatusDraft, domain.ActionReject, domain.StatusRejected, false},
		{domain.StatusPending, domain.ActionDelete, domain.StatusPending, false},
	}
	for _, tc := range cases {
		got, legal := NextStatus(tc.from, tc.action)
		if got != tc.want || legal != tc.legal {
			t.Fatalf("%s on %s: expected (%s,%v) got (%s,%v)", tc.action, tc.from, tc.want, tc.legal, got, legal)
		}
	}
}

func TestNoTransitionReturnsToPending(t *testing.T) {
	for _, action := range []domain.Action{domain.ActionApprove, domain.ActionReject, domain.ActionDelete} {
		for _, from := range domain.Statuses() {
			if next, legal := NextStatus(from, action); legal && next == domain.StatusPending {
				t.Fatalf("%s from %s returns to pending", action, from)
			}
		}
	}
}

func TestStatusTransitionRuleBlocksDirectStatusEdits(t *testing.T) {
	before := testInvoice("a", "INV-1", 1, domain.StatusPending)
	after := before.Clone()
	after.Status = domain.StatusApproved
	res, err := StatusTransitionRule(false).Evaluate(context.Background(), &Transaction{}, []domain.Change{
		{Kind: domain.ChangeUpdate, Before: &before, After: &after},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("status edit without an action must be blocked")
	}
}

func TestStatusTransitionRuleBlocksInvalidStatus(t *testing.T) {
	after := testInvoice("a", "INV-1", 1, domain.Status("paid"))
	res, _ := StatusTransitionRule(false).Evaluate(context.Background(), &Transaction{}, []domain.Change{
		{Kind: domain.ChangeCreate, After: &after},
	})
	if !res.HasBlocking() {
		t.Fatalf("invalid status must be blocked")
	}
}

func TestDuplicateInvoiceNumberRuleWarns(t *testing.T) {
	ctx := context.Background()
	store := loadedStore(t, newFakeKV())
	if _, _, err := store.Add(ctx, testInvoice("a", "INV-1", 1, domain.StatusPending)); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, res, err := store.Add(ctx, testInvoice("b", "INV-1", 1, domain.StatusPending))
	if err != nil {
		t.Fatalf("duplicate numbers are allowed: %v", err)
	}
	if len(res.Violations) != 1 || res.Violations[0].Rule != ruleDuplicateNumber || res.Violations[0].Severity != domain.SeverityWarn {
		t.Fatalf("expected duplicate number warning, got %+v", res)
	}
}

func TestDefaultRulesEngineRegistration(t *testing.T) {
	names := NewDefaultRulesEngine(false).Rules()
	want := []string{ruleUniqueInvoiceID, ruleStatusTransition, ruleDuplicateNumber}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}
