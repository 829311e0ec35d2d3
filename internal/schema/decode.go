package schema

import (
	"encoding/json"
	"fmt"

	"invoicedesk/pkg/domain"
)

// reader pulls typed fields out of a decoded JSON object, reporting missing
// fields and primitive type mismatches.
type reader struct {
	obj    map[string]any
	prefix string
	rep    *report
}

func (r reader) path(name string) string {
	if r.prefix == "" {
		return name
	}
	return r.prefix + "." + name
}

func (r reader) str(name string, required bool) string {
	raw, ok := r.obj[name]
	if !ok || raw == nil {
		if required {
			r.rep.add(r.path(name), "is required", priorityShape)
		}
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		r.rep.add(r.path(name), fmt.Sprintf("must be a string, got %s", jsonKind(raw)), priorityShape)
		return ""
	}
	return s
}

func (r reader) amount(name string) domain.Amount {
	raw, ok := r.obj[name]
	if !ok || raw == nil {
		r.rep.add(r.path(name), "is required", priorityShape)
		return domain.Amount{}
	}
	num, ok := raw.(json.Number)
	if !ok {
		r.rep.add(r.path(name), fmt.Sprintf("must be a number, got %s", jsonKind(raw)), priorityShape)
		return domain.Amount{}
	}
	amt, err := domain.ParseAmount(num.String())
	if err != nil {
		r.rep.add(r.path(name), "must be a finite decimal number", priorityShape)
		return domain.Amount{}
	}
	return amt
}

func decodeInvoice(r reader) domain.Invoice {
	inv := domain.Invoice{
		InvoiceID:           r.str("invoiceId", false),
		Vendor:              r.str("vendor", true),
		VendorAddress:       r.str("vendorAddress", true),
		PurchaseOrderNumber: r.str("purchaseOrderNumber", true),
		InvoiceNumber:       r.str("invoiceNumber", true),
		InvoiceDate:         r.str("invoiceDate", true),
		InvoiceDueDate:      r.str("invoiceDueDate", true),
		GLPostDate:          r.str("glPostDate", true),
		PaymentTerms:        r.str("paymentTerms", true),
		TotalAmount:         r.amount("totalAmount"),
		InvoiceDescription:  r.str("invoiceDescription", true),
		Comments:            r.str("comments", true),
		Status:              domain.Status(r.str("status", false)),
		CreatedAt:           r.str("createdAt", false),
		UpdatedAt:           r.str("updatedAt", false),
		PDFURL:              r.str("pdfUrl", false),
	}
	if _, present := r.obj["status"]; !present {
		inv.Status = domain.StatusDraft
	}
	inv.Expenses = decodeExpenses(r)
	return inv
}

func decodeExpenses(r reader) []domain.Expense {
	raw, ok := r.obj["expenses"]
	if !ok || raw == nil {
		r.rep.add(r.path("expenses"), "is required", priorityShape)
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		r.rep.add(r.path("expenses"), fmt.Sprintf("must be an array, got %s", jsonKind(raw)), priorityShape)
		return nil
	}
	out := make([]domain.Expense, 0, len(items))
	for i, item := range items {
		prefix := fmt.Sprintf("%s[%d]", r.path("expenses"), i)
		obj, ok := item.(map[string]any)
		if !ok {
			r.rep.add(prefix, fmt.Sprintf("must be an object, got %s", jsonKind(item)), priorityShape)
			out = append(out, domain.Expense{})
			continue
		}
		er := reader{obj: obj, prefix: prefix, rep: r.rep}
		out = append(out, domain.Expense{
			LineAmount:  er.amount("lineAmount"),
			Department:  er.str("department", true),
			Account:     er.str("account", true),
			Location:    er.str("location", true),
			Description: er.str("description", true),
		})
	}
	return out
}

func jsonKind(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
