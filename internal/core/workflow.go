package core

import (
	"context"
	"fmt"

	"invoicedesk/pkg/domain"
)

const (
	ruleStatusTransition = "status_transition"
	ruleUniqueInvoiceID  = "unique_invoice_id"
	ruleDuplicateNumber  = "duplicate_invoice_number"
)

// actionTargets maps workflow actions to the status they produce. Delete
// removes the record and has no target status.
var actionTargets = map[domain.Action]domain.Status{
	domain.ActionApprove: domain.StatusApproved,
	domain.ActionReject:  domain.StatusRejected,
}

// transitionSources lists the statuses each action is legal from.
var transitionSources = map[domain.Action]map[domain.Status]struct{}{
	domain.ActionApprove: toSet(domain.StatusPending),
	domain.ActionReject:  toSet(domain.StatusPending),
}

// NextStatus returns the status produced by applying action to a record in
// current. The boolean reports whether the transition is legal; an illegal
// approve or reject still yields its target status, the caller decides
// whether to accept it.
func NextStatus(current domain.Status, action domain.Action) (domain.Status, bool) {
	target, ok := actionTargets[action]
	if !ok {
		return current, false
	}
	_, legal := transitionSources[action][current]
	return target, legal
}

// StatusTransitionRule reports approve/reject actions applied outside the
// pending state and blocks status edits that bypass the workflow. When strict
// is false out-of-order actions are warnings and the mutation proceeds.
func StatusTransitionRule(strict bool) domain.Rule {
	return statusTransitionRule{strict: strict}
}

type statusTransitionRule struct {
	strict bool
}

func (statusTransitionRule) Name() string { return ruleStatusTransition }

func (r statusTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.After != nil && !change.After.Status.Valid() {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:      ruleStatusTransition,
				Severity:  domain.SeverityBlock,
				Message:   fmt.Sprintf("invoice %s has invalid status %q", change.After.InvoiceID, change.After.Status),
				InvoiceID: change.After.InvoiceID,
			})
			continue
		}
		if change.Kind != domain.ChangeUpdate || change.Before == nil || change.After == nil {
			continue
		}
		before, after := change.Before.Status, change.After.Status
		if change.Action == "" {
			if before != after {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:      ruleStatusTransition,
					Severity:  domain.SeverityBlock,
					Message:   fmt.Sprintf("invoice %s status may only change through approve or reject", change.After.InvoiceID),
					InvoiceID: change.After.InvoiceID,
				})
			}
			continue
		}
		if _, legal := NextStatus(before, change.Action); legal {
			continue
		}
		severity := domain.SeverityWarn
		if r.strict {
			severity = domain.SeverityBlock
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:      ruleStatusTransition,
			Severity:  severity,
			Message:   fmt.Sprintf("%s applied to invoice %s in status %s", change.Action, change.After.InvoiceID, before),
			InvoiceID: change.After.InvoiceID,
		})
	}
	return res, nil
}

// UniqueInvoiceIDRule blocks creates that reuse an existing invoiceId.
func UniqueInvoiceIDRule() domain.Rule {
	return uniqueInvoiceIDRule{}
}

type uniqueInvoiceIDRule struct{}

func (uniqueInvoiceIDRule) Name() string { return ruleUniqueInvoiceID }

func (uniqueInvoiceIDRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	counts := make(map[string]int)
	for _, inv := range view.ListInvoices() {
		counts[inv.InvoiceID]++
	}
	for _, change := range changes {
		if change.Kind != domain.ChangeCreate || change.After == nil {
			continue
		}
		if counts[change.After.InvoiceID] > 1 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:      ruleUniqueInvoiceID,
				Severity:  domain.SeverityBlock,
				Message:   fmt.Sprintf("invoice id %s already exists", change.After.InvoiceID),
				InvoiceID: change.After.InvoiceID,
			})
		}
	}
	return res, nil
}

// DuplicateInvoiceNumberRule warns when a created or edited record shares its
// invoiceNumber with another record. Invoice numbers are unique by convention
// only, so the mutation is never blocked.
func DuplicateInvoiceNumberRule() domain.Rule {
	return duplicateInvoiceNumberRule{}
}

type duplicateInvoiceNumberRule struct{}

func (duplicateInvoiceNumberRule) Name() string { return ruleDuplicateNumber }

func (duplicateInvoiceNumberRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.After == nil || change.Kind == domain.ChangeDelete {
			continue
		}
		if change.Before != nil && change.Before.InvoiceNumber == change.After.InvoiceNumber {
			continue
		}
		for _, other := range view.ListInvoices() {
			if other.InvoiceID == change.After.InvoiceID || other.InvoiceNumber != change.After.InvoiceNumber {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:      ruleDuplicateNumber,
				Severity:  domain.SeverityWarn,
				Message:   fmt.Sprintf("invoice number %s is also used by invoice %s", change.After.InvoiceNumber, other.InvoiceID),
				InvoiceID: change.After.InvoiceID,
			})
			break
		}
	}
	return res, nil
}

// NewDefaultRulesEngine registers the built-in invoice rules.
func NewDefaultRulesEngine(strict bool) *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(UniqueInvoiceIDRule())
	engine.Register(StatusTransitionRule(strict))
	engine.Register(DuplicateInvoiceNumberRule())
	return engine
}

func toSet[T comparable](values ...T) map[T]struct{} {
	set := make(map[T]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
