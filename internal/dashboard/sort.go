package dashboard

import (
	"fmt"

	"invoicedesk/pkg/domain"
)

// SortKey names the invoice field a projection is ordered by.
type SortKey string

// Sortable fields. TotalAmount compares numerically, everything else with
// locale-aware collation.
const (
	SortInvoiceID           SortKey = "invoiceId"
	SortVendor              SortKey = "vendor"
	SortVendorAddress       SortKey = "vendorAddress"
	SortPurchaseOrderNumber SortKey = "purchaseOrderNumber"
	SortInvoiceNumber       SortKey = "invoiceNumber"
	SortInvoiceDate         SortKey = "invoiceDate"
	SortInvoiceDueDate      SortKey = "invoiceDueDate"
	SortGLPostDate          SortKey = "glPostDate"
	SortPaymentTerms        SortKey = "paymentTerms"
	SortTotalAmount         SortKey = "totalAmount"
	SortInvoiceDescription  SortKey = "invoiceDescription"
	SortComments            SortKey = "comments"
	SortStatus              SortKey = "status"
	SortCreatedAt           SortKey = "createdAt"
	SortUpdatedAt           SortKey = "updatedAt"
)

var textFields = map[SortKey]func(domain.Invoice) string{
	SortInvoiceID:           func(i domain.Invoice) string { return i.InvoiceID },
	SortVendor:              func(i domain.Invoice) string { return i.Vendor },
	SortVendorAddress:       func(i domain.Invoice) string { return i.VendorAddress },
	SortPurchaseOrderNumber: func(i domain.Invoice) string { return i.PurchaseOrderNumber },
	SortInvoiceNumber:       func(i domain.Invoice) string { return i.InvoiceNumber },
	SortInvoiceDate:         func(i domain.Invoice) string { return i.InvoiceDate },
	SortInvoiceDueDate:      func(i domain.Invoice) string { return i.InvoiceDueDate },
	SortGLPostDate:          func(i domain.Invoice) string { return i.GLPostDate },
	SortPaymentTerms:        func(i domain.Invoice) string { return i.PaymentTerms },
	SortInvoiceDescription:  func(i domain.Invoice) string { return i.InvoiceDescription },
	SortComments:            func(i domain.Invoice) string { return i.Comments },
	SortStatus:              func(i domain.Invoice) string { return string(i.Status) },
	SortCreatedAt:           func(i domain.Invoice) string { return i.CreatedAt },
	SortUpdatedAt:           func(i domain.Invoice) string { return i.UpdatedAt },
}

// ParseSortKey validates a sort field name; empty selects updatedAt.
func ParseSortKey(raw string) (SortKey, error) {
	if raw == "" {
		return SortUpdatedAt, nil
	}
	key := SortKey(raw)
	if key == SortTotalAmount {
		return key, nil
	}
	if _, ok := textFields[key]; ok {
		return key, nil
	}
	return "", fmt.Errorf("cannot sort by %q", raw)
}

// comparator returns an ascending comparison for key. Unknown keys compare
// every pair as equal, which leaves the stable input order untouched.
func comparator(key SortKey) func(a, b domain.Invoice) int {
	if key == SortTotalAmount {
		return func(a, b domain.Invoice) int {
			return a.TotalAmount.Cmp(b.TotalAmount.Decimal)
		}
	}
	field, ok := textFields[key]
	if !ok {
		return func(domain.Invoice, domain.Invoice) int { return 0 }
	}
	return func(a, b domain.Invoice) int {
		return compareText(field(a), field(b))
	}
}
