package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"invoicedesk/internal/dashboard"
	"invoicedesk/internal/schema"
	"invoicedesk/pkg/domain"
)

// ErrDocumentRequired is returned by Submit when the candidate carries no
// document reference.
var ErrDocumentRequired = errors.New("an invoice document must be attached before submitting")

// SessionSource supplies the active user and notifies on every change.
type SessionSource interface {
	Current() (user string, active bool)
	Subscribe(fn func(ctx context.Context, user string, active bool)) (unsubscribe func())
}

// Service is the invoice surface consumed by the HTTP adapter and the CLI.
// It holds one InvoiceStore for the active user and swaps it whenever the
// session changes.
type Service struct {
	// activateMu serializes Activate so a load and its store swap are atomic
	// with respect to other session changes.
	activateMu sync.Mutex
	mu         sync.RWMutex
	kv         domain.KeyValueStore
	store      *InvoiceStore
	drafts     *DraftSlot
	engine     *domain.RulesEngine
	strict     bool
	logger     Logger
	metrics    MetricsRecorder
	tracer     Tracer
	now        func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the service and store logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the recorder observing every operation.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer sets the tracer wrapping every operation.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithRulesEngine replaces the default rules engine.
func WithRulesEngine(engine *domain.RulesEngine) Option {
	return func(s *Service) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithStrictWorkflow blocks approve and reject on records that are not pending.
func WithStrictWorkflow() Option {
	return func(s *Service) {
		s.strict = true
	}
}

// WithClock overrides the service clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs an inactive service backed by kv. Call Activate or
// Bind before issuing mutations.
func NewService(kv domain.KeyValueStore, opts ...Option) *Service {
	s := &Service{
		kv:      kv,
		drafts:  NewDraftSlot(kv),
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = NewDefaultRulesEngine(s.strict)
	}
	return s
}

// Bind activates the current session user and reloads on every later
// session change. Each reload reads the source's current state rather than
// the notified one, so overlapping changes settle on the latest session.
// The returned function stops following the session.
func (s *Service) Bind(ctx context.Context, src SessionSource) (func(), error) {
	unsubscribe := src.Subscribe(func(ctx context.Context, _ string, _ bool) {
		s.activateMu.Lock()
		defer s.activateMu.Unlock()
		user, active := src.Current()
		if err := s.activate(ctx, user, active); err != nil {
			s.logger.Error("reload after session change failed", "user", user, "error", err)
		}
	})
	user, active := src.Current()
	return unsubscribe, s.Activate(ctx, user, active)
}

// Activate replaces the store with a freshly loaded one for user. When active
// is false or user is empty the service becomes inactive and reads return an
// empty collection.
func (s *Service) Activate(ctx context.Context, user string, active bool) error {
	s.activateMu.Lock()
	defer s.activateMu.Unlock()
	return s.activate(ctx, user, active)
}

func (s *Service) activate(ctx context.Context, user string, active bool) error {
	return s.instrument(ctx, "activate", func(ctx context.Context) error {
		if !active || user == "" {
			s.mu.Lock()
			s.store = nil
			s.mu.Unlock()
			s.logger.Info("invoice service inactive")
			return nil
		}
		store := NewInvoiceStore(s.kv, user,
			WithStoreRules(s.engine),
			WithStoreLogger(s.logger),
			WithStoreClock(s.now),
		)
		err := store.Load(ctx)
		s.mu.Lock()
		s.store = store
		s.mu.Unlock()
		if err != nil {
			return err
		}
		s.logger.Info("invoice service activated", "user", user)
		return nil
	})
}

// ActiveUser returns the user whose collection is loaded.
func (s *Service) ActiveUser() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return "", false
	}
	return s.store.User(), true
}

// LoadErr reports why the active collection could not be loaded. It is nil
// when no user is active or the load succeeded.
func (s *Service) LoadErr() error {
	store, err := s.activeStore()
	if err != nil {
		return nil
	}
	return store.LoadErr()
}

func (s *Service) activeStore() (*InvoiceStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil, domain.ErrNoActiveSession
	}
	return s.store, nil
}

// Invoices returns a read-only copy of the active collection in insertion
// order. It is empty when no user is active.
func (s *Service) Invoices() []domain.Invoice {
	store, err := s.activeStore()
	if err != nil {
		return []domain.Invoice{}
	}
	return store.Invoices()
}

// Dashboard projects the active collection through q and summarizes the
// unfiltered collection.
func (s *Service) Dashboard(q dashboard.Query) ([]domain.Invoice, dashboard.Stats) {
	all := s.Invoices()
	return dashboard.Project(all, q), dashboard.Summarize(all)
}

// AddInvoice appends inv to the active collection.
func (s *Service) AddInvoice(ctx context.Context, inv domain.Invoice) (domain.Invoice, domain.Result, error) {
	var (
		created domain.Invoice
		res     domain.Result
	)
	err := s.instrument(ctx, "add_invoice", func(ctx context.Context) error {
		store, err := s.activeStore()
		if err != nil {
			return err
		}
		created, res, err = store.Add(ctx, inv)
		return err
	})
	return created, res, err
}

// Submit validates a raw candidate from the creation form and adds it as a
// pending invoice. The candidate must reference an uploaded document.
func (s *Service) Submit(ctx context.Context, candidate []byte) (domain.Invoice, domain.Result, error) {
	var (
		created domain.Invoice
		res     domain.Result
	)
	err := s.instrument(ctx, "submit_invoice", func(ctx context.Context) error {
		store, err := s.activeStore()
		if err != nil {
			return err
		}
		inv, err := schema.Validate(candidate)
		if err != nil {
			return err
		}
		if inv.PDFURL == "" {
			return ErrDocumentRequired
		}
		if inv.InvoiceID == "" {
			inv.InvoiceID = uuid.NewString()
		}
		inv.Status = domain.StatusPending
		created, res, err = store.Add(ctx, inv)
		return err
	})
	return created, res, err
}

// UpdateInvoice merges patch into the record with invoiceId id. An unknown id
// is a silent no-op and returns a zero Invoice.
func (s *Service) UpdateInvoice(ctx context.Context, id string, patch domain.InvoicePatch) (domain.Invoice, domain.Result, error) {
	var (
		updated domain.Invoice
		res     domain.Result
	)
	err := s.instrument(ctx, "update_invoice", func(ctx context.Context) error {
		store, err := s.activeStore()
		if err != nil {
			return err
		}
		var found bool
		updated, found, res, err = store.Update(ctx, id, patch)
		if err == nil && !found {
			s.logger.Debug("update ignored for unknown invoice", "invoice_id", id)
		}
		return err
	})
	return updated, res, err
}

// DeleteInvoice removes the record with invoiceId id.
func (s *Service) DeleteInvoice(ctx context.Context, id string) (domain.Result, error) {
	_, res, err := s.HandleAction(ctx, domain.ActionDelete, id)
	return res, err
}

// HandleAction applies a workflow action to the record with invoiceId id.
// For delete the returned Invoice is the removed record.
func (s *Service) HandleAction(ctx context.Context, action domain.Action, id string) (domain.Invoice, domain.Result, error) {
	var (
		updated domain.Invoice
		res     domain.Result
	)
	err := s.instrument(ctx, string(action)+"_invoice", func(ctx context.Context) error {
		store, err := s.activeStore()
		if err != nil {
			return err
		}
		var found bool
		updated, found, res, err = store.Transition(ctx, id, action)
		if err == nil && !found {
			s.logger.Debug("action ignored for unknown invoice", "action", action, "invoice_id", id)
		}
		return err
	})
	return updated, res, err
}

// Seed adds the sample invoices that are not already present and returns how
// many were added.
func (s *Service) Seed(ctx context.Context) (int, error) {
	added := 0
	err := s.instrument(ctx, "seed", func(ctx context.Context) error {
		store, err := s.activeStore()
		if err != nil {
			return err
		}
		for _, inv := range SampleInvoices() {
			if _, ok := store.Find(inv.InvoiceID); ok {
				continue
			}
			if _, _, err := store.Add(ctx, inv); err != nil {
				return fmt.Errorf("seed %s: %w", inv.InvoiceID, err)
			}
			added++
		}
		return nil
	})
	return added, err
}

// NewDraft returns a blank creation-form invoice stamped with the service clock.
func (s *Service) NewDraft() domain.Invoice {
	return NewDraft(s.now())
}

// SaveDraft overwrites the draft slot.
func (s *Service) SaveDraft(ctx context.Context, draft domain.Invoice, documentRef string) error {
	return s.instrument(ctx, "save_draft", func(ctx context.Context) error {
		return s.drafts.Save(ctx, draft, documentRef)
	})
}

// LoadDraft reads the draft slot. found is false when nothing was saved.
func (s *Service) LoadDraft(ctx context.Context) (domain.Invoice, bool, error) {
	var (
		draft domain.Invoice
		found bool
	)
	err := s.instrument(ctx, "load_draft", func(ctx context.Context) error {
		var err error
		draft, found, err = s.drafts.Load(ctx)
		return err
	})
	return draft, found, err
}

func (s *Service) instrument(ctx context.Context, op string, fn func(context.Context) error) error {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, time.Since(started))

	var verr *domain.ValidationError
	switch {
	case err == nil:
		s.logger.Debug("invoice operation completed", "operation", op)
	case errors.As(err, &verr), errors.Is(err, ErrDocumentRequired), errors.Is(err, domain.ErrNoActiveSession):
		s.logger.Debug("invoice operation rejected", "operation", op, "error", err)
	default:
		s.logger.Error("invoice operation failed", "operation", op, "error", err)
	}
	return err
}
