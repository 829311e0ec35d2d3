package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestAmountJSONIsBareNumber(t *testing.T) {
	inv := Invoice{InvoiceID: "a", TotalAmount: NewAmount(1250.5)}
	raw, err := json.Marshal(inv)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"totalAmount":1250.5`) {
		t.Fatalf("expected numeric totalAmount, got %s", raw)
	}

	var decoded Invoice
	if err := json.Unmarshal([]byte(`{"totalAmount":"19.99"}`), &decoded); err != nil {
		t.Fatalf("quoted amount should decode: %v", err)
	}
	if decoded.TotalAmount.String() != "19.99" {
		t.Fatalf("unexpected amount %s", decoded.TotalAmount)
	}
}

func TestAmountAddIsExact(t *testing.T) {
	sum := NewAmount(0.1).Add(NewAmount(0.2))
	if sum.String() != "0.3" {
		t.Fatalf("expected 0.3, got %s", sum)
	}
}

func TestParseAction(t *testing.T) {
	for _, raw := range []string{"approve", "reject", "delete"} {
		if _, err := ParseAction(raw); err != nil {
			t.Fatalf("ParseAction(%q): %v", raw, err)
		}
	}
	if _, err := ParseAction("resubmit"); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range Statuses() {
		if !s.Valid() {
			t.Fatalf("status %s should be valid", s)
		}
	}
	if Status("archived").Valid() {
		t.Fatalf("archived is not a workflow status")
	}
}

func TestInvoicePatchApplyLeavesOriginalUntouched(t *testing.T) {
	original := Invoice{
		InvoiceID: "inv-1",
		Vendor:    "Acme",
		Expenses:  []Expense{{Department: "IT", Account: "6000", Description: "laptops", LineAmount: NewAmount(10)}},
		Status:    StatusPending,
	}
	vendor := "Acme Corp"
	expenses := []Expense{{Department: "HR", Account: "7000", Description: "training", LineAmount: NewAmount(5)}}
	patched := InvoicePatch{Vendor: &vendor, Expenses: &expenses}.Apply(original)

	if patched.Vendor != "Acme Corp" || patched.Expenses[0].Department != "HR" {
		t.Fatalf("patch not applied: %+v", patched)
	}
	if original.Vendor != "Acme" || original.Expenses[0].Department != "IT" {
		t.Fatalf("original mutated: %+v", original)
	}
	if patched.InvoiceID != "inv-1" || patched.Status != StatusPending {
		t.Fatalf("identifier and status must survive a patch: %+v", patched)
	}
	expenses[0].Department = "changed later"
	if patched.Expenses[0].Department != "HR" {
		t.Fatalf("patched expenses alias the patch slice")
	}
}

func TestInvoicePatchIsEmpty(t *testing.T) {
	if !(InvoicePatch{}).IsEmpty() {
		t.Fatalf("zero patch should be empty")
	}
	c := "note"
	if (InvoicePatch{Comments: &c}).IsEmpty() {
		t.Fatalf("patch with comments should not be empty")
	}
}

func TestCloneInvoicesIsDeep(t *testing.T) {
	in := []Invoice{{InvoiceID: "x", Expenses: []Expense{{Account: "1"}}}}
	out := CloneInvoices(in)
	out[0].Expenses[0].Account = "2"
	if in[0].Expenses[0].Account != "1" {
		t.Fatalf("clone shares expense storage")
	}
	if CloneInvoices(nil) != nil {
		t.Fatalf("nil clone should stay nil")
	}
}

func TestValidationErrorReporting(t *testing.T) {
	var verr ValidationError
	if verr.Err() != nil {
		t.Fatalf("empty validation error should be nil")
	}
	verr.Add("vendor", "is required")
	verr.Add("expenses[1].account", "is required")
	verr.Add("vendor", "must be a string")
	if !verr.Has("expenses[1].account") {
		t.Fatalf("expected expense path")
	}
	if got := verr.Paths(); len(got) != 2 || got[0] != "vendor" {
		t.Fatalf("unexpected paths %v", got)
	}
	if !strings.Contains(verr.Error(), "expenses[1].account: is required") {
		t.Fatalf("unexpected message %q", verr.Error())
	}
}

func TestCorruptStateErrorUnwraps(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := error(&CorruptStateError{Key: InvoicesKey("a@b.c"), Err: cause})
	if !errors.Is(err, cause) {
		t.Fatalf("expected unwrap to cause")
	}
	if !strings.Contains(err.Error(), "invoices_a@b.c") {
		t.Fatalf("message should name the key: %s", err)
	}
}

func TestRuleViolationErrorListsBlockingMessages(t *testing.T) {
	err := RuleViolationError{Result: Result{Violations: []Violation{
		{Rule: "a", Severity: SeverityWarn, Message: "just a warning"},
		{Rule: "b", Severity: SeverityBlock, Message: "blocked"},
	}}}
	if !strings.Contains(err.Error(), "blocked") || strings.Contains(err.Error(), "just a warning") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !err.Result.HasBlocking() {
		t.Fatalf("expected blocking result")
	}
}
