package dashboard

import (
	"encoding/csv"
	"strings"
	"testing"

	"invoicedesk/pkg/domain"
)

func TestWriteCSV(t *testing.T) {
	invoices := []domain.Invoice{
		{InvoiceID: "a", InvoiceNumber: "INV-1", Vendor: "Acme, Inc.", TotalAmount: domain.NewAmount(10), Status: domain.StatusPending,
			Expenses: []domain.Expense{{}, {}}},
		{InvoiceID: "b", InvoiceNumber: "INV-2", Vendor: "Globex", TotalAmount: domain.NewAmount(2.5), Status: domain.StatusDraft},
	}
	var b strings.Builder
	if err := WriteCSV(&b, invoices); err != nil {
		t.Fatalf("write: %v", err)
	}
	rows, err := csv.NewReader(strings.NewReader(b.String())).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "invoiceId" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if rows[1][2] != "Acme, Inc." || rows[1][7] != "10.00" || rows[1][9] != "2" || rows[2][8] != "draft" {
		t.Fatalf("unexpected values %v", rows)
	}
}
