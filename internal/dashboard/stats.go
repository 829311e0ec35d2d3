package dashboard

import "invoicedesk/pkg/domain"

// Stats are the dashboard summary cards. They always describe the whole
// collection, independent of the active search, tab, or sort.
type Stats struct {
	Total       int           `json:"total"`
	Pending     int           `json:"pending"`
	Drafts      int           `json:"drafts"`
	TotalAmount domain.Amount `json:"totalAmount"`
}

// Summarize computes Stats over the unfiltered collection.
func Summarize(collection []domain.Invoice) Stats {
	var s Stats
	for _, inv := range collection {
		s.Total++
		s.TotalAmount = s.TotalAmount.Add(inv.TotalAmount)
		switch inv.Status {
		case domain.StatusPending:
			s.Pending++
		case domain.StatusDraft:
			s.Drafts++
		}
	}
	return s
}
