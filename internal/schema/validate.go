// Package schema enforces the shape of invoice candidates before they reach
// the store. It is pure: no I/O and no shared mutable state beyond the
// compiled validator.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"invoicedesk/pkg/domain"
)

// check priorities; lower values are reported first.
const (
	priorityShape = iota
	priorityNonEmpty
	priorityPositive
	priorityExpenses
	priorityStatus
	priorityTimestamp
)

var (
	validateOnce sync.Once
	structCheck  *validator.Validate
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if a, ok := field.Interface().(domain.Amount); ok {
				return a.InexactFloat64()
			}
			return nil
		}, domain.Amount{})
		_ = v.RegisterValidation("iso_timestamp", func(fl validator.FieldLevel) bool {
			return isTimestamp(fl.Field().String())
		})
		_ = v.RegisterValidation("invoice_status", func(fl validator.FieldLevel) bool {
			return domain.Status(fl.Field().String()).Valid()
		})
		structCheck = v
	})
	return structCheck
}

// timestampLayouts are the ISO-8601 forms accepted for createdAt and
// updatedAt: full RFC 3339, local date-time without a zone, and a bare date.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	time.DateOnly,
}

func isTimestamp(s string) bool {
	if s == "" {
		return true
	}
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

type fieldFailure struct {
	domain.FieldError
	priority int
	order    int
}

type report struct {
	failures []fieldFailure
	seen     map[string]struct{}
}

func newReport() *report {
	return &report{seen: make(map[string]struct{})}
}

func (r *report) add(path, message string, priority int) {
	if r.covered(path) {
		return
	}
	r.seen[path] = struct{}{}
	r.failures = append(r.failures, fieldFailure{
		FieldError: domain.FieldError{Path: path, Message: message},
		priority:   priority,
		order:      len(r.failures),
	})
}

// covered reports whether path, or an enclosing path, already failed.
func (r *report) covered(path string) bool {
	if _, dup := r.seen[path]; dup {
		return true
	}
	for prev := range r.seen {
		if strings.HasPrefix(path, prev+".") || strings.HasPrefix(path, prev+"[") {
			return true
		}
	}
	return false
}

func (r *report) err() error {
	if len(r.failures) == 0 {
		return nil
	}
	sort.SliceStable(r.failures, func(i, j int) bool {
		return r.failures[i].priority < r.failures[j].priority
	})
	out := &domain.ValidationError{Fields: make([]domain.FieldError, 0, len(r.failures))}
	for _, f := range r.failures {
		out.Fields = append(out.Fields, f.FieldError)
	}
	return out
}

// Validate decodes a raw JSON candidate and checks every constraint of the
// invoice schema. On failure it returns a *domain.ValidationError listing each
// failing field path. An absent status defaults to draft.
func Validate(candidate []byte) (domain.Invoice, error) {
	rep := newReport()
	dec := json.NewDecoder(bytes.NewReader(candidate))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		rep.add("$", fmt.Sprintf("is not valid JSON: %v", err), priorityShape)
		return domain.Invoice{}, rep.err()
	}
	obj, ok := root.(map[string]any)
	if !ok {
		rep.add("$", "must be an object", priorityShape)
		return domain.Invoice{}, rep.err()
	}

	inv := decodeInvoice(reader{obj: obj, rep: rep})
	checkStruct(inv, rep)
	if err := rep.err(); err != nil {
		return domain.Invoice{}, err
	}
	return inv, nil
}

// ValidateInvoice checks an already typed invoice against the content
// constraints. Used to re-validate merged partial updates.
func ValidateInvoice(inv domain.Invoice) error {
	rep := newReport()
	checkStruct(inv, rep)
	return rep.err()
}

func checkStruct(inv domain.Invoice, rep *report) {
	err := engine().Struct(inv)
	if err == nil {
		return
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		rep.add("$", err.Error(), priorityShape)
		return
	}
	for _, fe := range verrs {
		path := fe.Namespace()
		if idx := strings.IndexByte(path, '.'); idx >= 0 {
			path = path[idx+1:]
		}
		msg, priority := describe(fe)
		rep.add(path, msg, priority)
	}
}

func describe(fe validator.FieldError) (string, int) {
	switch fe.Tag() {
	case "required":
		return "must not be empty", priorityNonEmpty
	case "gt":
		return "must be a positive number", priorityPositive
	case "min":
		return "must contain at least one expense", priorityExpenses
	case "invoice_status":
		return fmt.Sprintf("must be one of draft, pending, approved, rejected (got %q)", fe.Value()), priorityStatus
	case "iso_timestamp":
		return "must be an ISO-8601 timestamp", priorityTimestamp
	default:
		return fmt.Sprintf("failed %s constraint", fe.Tag()), priorityShape
	}
}
