// Package dashboard derives the display projection of an invoice collection:
// text search, status filter, stable sort, and summary statistics. Every
// function is pure and never mutates its input.
package dashboard

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"invoicedesk/pkg/domain"
)

// StatusFilter selects records by workflow status. FilterAll keeps everything.
type StatusFilter string

// FilterAll disables status filtering.
const FilterAll StatusFilter = "all"

// Tabs lists the dashboard status tabs in display order.
var Tabs = []StatusFilter{
	FilterAll,
	StatusFilter(domain.StatusPending),
	StatusFilter(domain.StatusApproved),
	StatusFilter(domain.StatusRejected),
	StatusFilter(domain.StatusDraft),
}

// ParseStatusFilter accepts "all", an empty string, or a workflow status.
func ParseStatusFilter(raw string) (StatusFilter, error) {
	if raw == "" || raw == string(FilterAll) {
		return FilterAll, nil
	}
	if !domain.Status(raw).Valid() {
		return "", fmt.Errorf("unknown status filter %q", raw)
	}
	return StatusFilter(raw), nil
}

// Direction orders the sort.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts asc or desc; empty means desc.
func ParseDirection(raw string) (Direction, error) {
	switch Direction(strings.ToLower(raw)) {
	case "", Desc:
		return Desc, nil
	case Asc:
		return Asc, nil
	default:
		return "", fmt.Errorf("unknown sort direction %q", raw)
	}
}

// Query holds the dashboard controls.
type Query struct {
	Search    string
	Status    StatusFilter
	SortKey   SortKey
	Direction Direction
}

// DefaultQuery mirrors the dashboard's initial state: every status, most
// recently updated first.
func DefaultQuery() Query {
	return Query{Status: FilterAll, SortKey: SortUpdatedAt, Direction: Desc}
}

// Toggle returns the query after a click on a sortable column: the same
// column flips the direction, a new column sorts ascending.
func (q Query) Toggle(key SortKey) Query {
	if q.SortKey == key {
		if q.Direction == Asc {
			q.Direction = Desc
		} else {
			q.Direction = Asc
		}
		return q
	}
	q.SortKey = key
	q.Direction = Asc
	return q
}

// Project filters and sorts the collection for display.
func Project(collection []domain.Invoice, q Query) []domain.Invoice {
	term := strings.ToLower(q.Search)
	out := make([]domain.Invoice, 0, len(collection))
	for _, inv := range collection {
		if !matchesSearch(inv, term) || !matchesStatus(inv, q.Status) {
			continue
		}
		out = append(out, inv.Clone())
	}
	key := q.SortKey
	if key == "" {
		key = SortUpdatedAt
	}
	cmp := comparator(key)
	if q.Direction == Asc {
		slices.SortStableFunc(out, cmp)
	} else {
		slices.SortStableFunc(out, func(a, b domain.Invoice) int { return cmp(b, a) })
	}
	return out
}

func matchesSearch(inv domain.Invoice, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(inv.Vendor), term) ||
		strings.Contains(strings.ToLower(inv.InvoiceNumber), term) ||
		strings.Contains(strings.ToLower(inv.InvoiceDescription), term)
}

func matchesStatus(inv domain.Invoice, filter StatusFilter) bool {
	if filter == "" || filter == FilterAll {
		return true
	}
	return string(inv.Status) == string(filter)
}

// collate.Collator keeps internal buffers and is not safe for concurrent use.
var collatorMu sync.Mutex
var collator = collate.New(language.English)

func compareText(a, b string) int {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}
