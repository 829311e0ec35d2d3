package core

import "invoicedesk/pkg/domain"

type sampleSpec struct {
	id, vendor, address, n   string
	invoiceDate, dueDate, gl string
	amount                   float64
	description              string
	department, account      string
	line                     string
	comments                 string
	status                   domain.Status
	createdAt, updatedAt     string
}

var samples = []sampleSpec{
	{"inv-001", "A-1 Exterminators", "550 Main St., Lynn", "001", "2025-05-15", "2025-06-15", "2025-05-16", 1250.00,
		"Monthly pest control services for headquarters", "Operations", "Maintenance", "Pest control services - May 2025",
		"Approved by facilities manager", domain.StatusApproved, "2025-05-15T10:30:00Z", "2025-05-16T14:20:00Z"},
	{"inv-002", "Office Supplies Co.", "123 Business Ave., Boston", "002", "2025-05-18", "2025-06-18", "2025-05-19", 458.75,
		"Office supplies for marketing department", "Marketing", "Office Supplies", "Paper, pens, notebooks, and printer ink",
		"Rush order for new marketing campaign", domain.StatusPending, "2025-05-18T09:15:00Z", "2025-05-18T09:15:00Z"},
	{"inv-003", "Tech Solutions Inc.", "456 Innovation Blvd., Cambridge", "003", "2025-05-20", "2025-06-20", "2025-05-21", 3750.00,
		"IT consulting services - May 2025", "IT", "Professional Services", "Network security audit and recommendations",
		"Approved by IT Director", domain.StatusApproved, "2025-05-20T11:45:00Z", "2025-05-22T16:30:00Z"},
	{"inv-004", "Catering Delights", "789 Culinary Lane, Brookline", "004", "2025-05-22", "2025-06-22", "2025-05-23", 875.50,
		"Catering for quarterly board meeting", "Administration", "Meetings", "Breakfast and lunch for 25 people",
		"Special dietary requirements noted", domain.StatusDraft, "2025-05-22T14:00:00Z", "2025-05-22T14:00:00Z"},
	{"inv-005", "Clean & Green Janitorial", "321 Service Road, Quincy", "005", "2025-05-25", "2025-06-25", "2025-05-26", 2100.00,
		"Monthly janitorial services - May 2025", "Facilities", "Maintenance", "Regular cleaning services plus carpet cleaning",
		"Additional charge for carpet cleaning approved", domain.StatusRejected, "2025-05-25T10:00:00Z", "2025-05-27T09:30:00Z"},
}

// SampleInvoices returns the demo collection used to seed an empty account.
func SampleInvoices() []domain.Invoice {
	out := make([]domain.Invoice, 0, len(samples))
	for _, s := range samples {
		out = append(out, domain.Invoice{
			InvoiceID:           s.id,
			Vendor:              s.vendor,
			VendorAddress:       s.address,
			PurchaseOrderNumber: "PO-2025-" + s.n,
			InvoiceNumber:       "INV-2025-" + s.n,
			InvoiceDate:         s.invoiceDate,
			InvoiceDueDate:      s.dueDate,
			GLPostDate:          s.gl,
			PaymentTerms:        "Net 30",
			TotalAmount:         domain.NewAmount(s.amount),
			InvoiceDescription:  s.description,
			Expenses: []domain.Expense{{
				LineAmount:  domain.NewAmount(s.amount),
				Department:  s.department,
				Account:     s.account,
				Location:    "Headquarters",
				Description: s.line,
			}},
			Comments:  s.comments,
			Status:    s.status,
			CreatedAt: s.createdAt,
			UpdatedAt: s.updatedAt,
		})
	}
	return out
}
