// Package domain defines the invoice records, value types, and rule
// evaluation primitives used by invoicedesk.
package domain

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Status is the workflow state of an invoice.
type Status string

// Canonical invoice statuses.
const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Statuses lists every valid status in workflow order.
func Statuses() []Status {
	return []Status{StatusDraft, StatusPending, StatusApproved, StatusRejected}
}

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Action names a workflow operation applied to a stored invoice.
type Action string

// Workflow actions accepted by the store's transition operation.
const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionDelete  Action = "delete"
)

// ParseAction converts raw input into a workflow action.
func ParseAction(raw string) (Action, error) {
	switch a := Action(raw); a {
	case ActionApprove, ActionReject, ActionDelete:
		return a, nil
	default:
		return "", fmt.Errorf("unknown invoice action %q", raw)
	}
}

// Amount is a money value. It encodes as a bare JSON number so persisted
// collections keep the numeric shape of the original records.
type Amount struct {
	decimal.Decimal
}

// NewAmount builds an Amount from a float. Intended for literals and tests.
func NewAmount(v float64) Amount {
	return Amount{Decimal: decimal.NewFromFloat(v)}
}

// ParseAmount parses a decimal string.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Decimal: d}, nil
}

// MarshalJSON writes the amount as a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted decimals.
func (a *Amount) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		a.Decimal = decimal.Zero
		return nil
	}
	return a.Decimal.UnmarshalJSON(b)
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{Decimal: a.Decimal.Add(b.Decimal)}
}

// Expense is a line item owned by an invoice.
type Expense struct {
	LineAmount  Amount `json:"lineAmount" validate:"gt=0"`
	Department  string `json:"department" validate:"required"`
	Account     string `json:"account" validate:"required"`
	Location    string `json:"location"`
	Description string `json:"description" validate:"required"`
}

// Invoice is a vendor bill tracked through the approval workflow.
type Invoice struct {
	InvoiceID           string    `json:"invoiceId"`
	Vendor              string    `json:"vendor" validate:"required"`
	VendorAddress       string    `json:"vendorAddress"`
	PurchaseOrderNumber string    `json:"purchaseOrderNumber"`
	InvoiceNumber       string    `json:"invoiceNumber" validate:"required"`
	InvoiceDate         string    `json:"invoiceDate" validate:"required"`
	InvoiceDueDate      string    `json:"invoiceDueDate" validate:"required"`
	GLPostDate          string    `json:"glPostDate"`
	PaymentTerms        string    `json:"paymentTerms"`
	TotalAmount         Amount    `json:"totalAmount" validate:"gt=0"`
	InvoiceDescription  string    `json:"invoiceDescription"`
	Expenses            []Expense `json:"expenses" validate:"min=1,dive"`
	Comments            string    `json:"comments"`
	Status              Status    `json:"status" validate:"invoice_status"`
	CreatedAt           string    `json:"createdAt" validate:"iso_timestamp"`
	UpdatedAt           string    `json:"updatedAt" validate:"iso_timestamp"`
	PDFURL              string    `json:"pdfUrl,omitempty"`
}

// Clone returns a deep copy of the invoice.
func (i Invoice) Clone() Invoice {
	out := i
	if i.Expenses != nil {
		out.Expenses = make([]Expense, len(i.Expenses))
		copy(out.Expenses, i.Expenses)
	}
	return out
}

// CloneInvoices deep-copies a collection.
func CloneInvoices(in []Invoice) []Invoice {
	if in == nil {
		return nil
	}
	out := make([]Invoice, len(in))
	for i, inv := range in {
		out[i] = inv.Clone()
	}
	return out
}

// InvoicePatch carries the fields of a partial update. Nil fields are left
// untouched. The identifier and the workflow status are not patchable.
type InvoicePatch struct {
	Vendor              *string    `json:"vendor,omitempty"`
	VendorAddress       *string    `json:"vendorAddress,omitempty"`
	PurchaseOrderNumber *string    `json:"purchaseOrderNumber,omitempty"`
	InvoiceNumber       *string    `json:"invoiceNumber,omitempty"`
	InvoiceDate         *string    `json:"invoiceDate,omitempty"`
	InvoiceDueDate      *string    `json:"invoiceDueDate,omitempty"`
	GLPostDate          *string    `json:"glPostDate,omitempty"`
	PaymentTerms        *string    `json:"paymentTerms,omitempty"`
	TotalAmount         *Amount    `json:"totalAmount,omitempty"`
	InvoiceDescription  *string    `json:"invoiceDescription,omitempty"`
	Expenses            *[]Expense `json:"expenses,omitempty"`
	Comments            *string    `json:"comments,omitempty"`
	CreatedAt           *string    `json:"createdAt,omitempty"`
	UpdatedAt           *string    `json:"updatedAt,omitempty"`
	PDFURL              *string    `json:"pdfUrl,omitempty"`
}

// IsEmpty reports whether the patch sets no field.
func (p InvoicePatch) IsEmpty() bool {
	return p == InvoicePatch{}
}

// Apply merges the patch into a copy of inv and returns it.
func (p InvoicePatch) Apply(inv Invoice) Invoice {
	out := inv.Clone()
	setString(&out.Vendor, p.Vendor)
	setString(&out.VendorAddress, p.VendorAddress)
	setString(&out.PurchaseOrderNumber, p.PurchaseOrderNumber)
	setString(&out.InvoiceNumber, p.InvoiceNumber)
	setString(&out.InvoiceDate, p.InvoiceDate)
	setString(&out.InvoiceDueDate, p.InvoiceDueDate)
	setString(&out.GLPostDate, p.GLPostDate)
	setString(&out.PaymentTerms, p.PaymentTerms)
	setString(&out.InvoiceDescription, p.InvoiceDescription)
	setString(&out.Comments, p.Comments)
	setString(&out.CreatedAt, p.CreatedAt)
	setString(&out.UpdatedAt, p.UpdatedAt)
	setString(&out.PDFURL, p.PDFURL)
	if p.TotalAmount != nil {
		out.TotalAmount = *p.TotalAmount
	}
	if p.Expenses != nil {
		out.Expenses = make([]Expense, len(*p.Expenses))
		copy(out.Expenses, *p.Expenses)
	}
	return out
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
