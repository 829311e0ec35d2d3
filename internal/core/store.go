package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"invoicedesk/internal/schema"
	"invoicedesk/pkg/domain"
)

// ErrStoreNotLoaded is returned by mutations issued before Load succeeded.
var ErrStoreNotLoaded = errors.New("invoice store has not been loaded")

// InvoiceStore owns one user's invoice collection. Every committed mutation
// re-serializes the full collection under InvoicesKey(user). The store keeps
// insertion order and serializes callers with a mutex.
type InvoiceStore struct {
	mu       sync.Mutex
	kv       domain.KeyValueStore
	user     string
	key      string
	invoices []domain.Invoice
	loaded   bool
	loadErr  error
	engine   *domain.RulesEngine
	logger   Logger
	nowFn    func() time.Time
}

// StoreOption customises an InvoiceStore.
type StoreOption func(*InvoiceStore)

// WithStoreRules sets the rules engine evaluated before every commit.
func WithStoreRules(engine *domain.RulesEngine) StoreOption {
	return func(s *InvoiceStore) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithStoreLogger sets the store logger.
func WithStoreLogger(logger Logger) StoreOption {
	return func(s *InvoiceStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStoreClock overrides the clock used to fill missing timestamps.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *InvoiceStore) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// NewInvoiceStore constructs an unloaded store for user backed by kv.
func NewInvoiceStore(kv domain.KeyValueStore, user string, opts ...StoreOption) *InvoiceStore {
	s := &InvoiceStore{
		kv:     kv,
		user:   user,
		key:    domain.InvoicesKey(user),
		engine: NewDefaultRulesEngine(false),
		logger: noopLogger{},
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// User returns the user key the store is bound to.
func (s *InvoiceStore) User() string { return s.user }

// Key returns the storage key holding the collection.
func (s *InvoiceStore) Key() string { return s.key }

// Load replaces the in-memory collection with the persisted one. An absent
// key yields an empty collection. A present but unparsable value returns a
// CorruptStateError and leaves both the stored bytes and the store unloaded.
func (s *InvoiceStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = false
	s.invoices = nil
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.loadErr = &domain.StorageError{Op: "get", Key: s.key, Err: err}
		s.logger.Error("invoice store load failed", "key", s.key, "error", err)
		return s.loadErr
	}
	invoices := []domain.Invoice{}
	if ok {
		var decoded []domain.Invoice
		if err := json.Unmarshal(raw, &decoded); err != nil {
			s.loadErr = &domain.CorruptStateError{Key: s.key, Err: err}
			s.logger.Error("stored invoices are corrupt", "key", s.key, "error", err)
			return s.loadErr
		}
		if decoded != nil {
			invoices = decoded
		}
	}
	s.invoices = invoices
	s.loaded = true
	s.loadErr = nil
	s.logger.Debug("invoice store loaded", "key", s.key, "count", len(invoices))
	return nil
}

// Loaded reports whether the last Load succeeded.
func (s *InvoiceStore) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// LoadErr returns the error of the last Load, or nil.
func (s *InvoiceStore) LoadErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Invoices returns a deep copy of the collection in insertion order.
func (s *InvoiceStore) Invoices() []domain.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := domain.CloneInvoices(s.invoices)
	if out == nil {
		out = []domain.Invoice{}
	}
	return out
}

// Find returns a copy of the record with the given invoiceId.
func (s *InvoiceStore) Find(id string) (domain.Invoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := indexOf(s.invoices, id); idx >= 0 {
		return s.invoices[idx].Clone(), true
	}
	return domain.Invoice{}, false
}

// Add validates inv and appends it to the collection. An empty invoiceId is
// assigned and absent timestamps are filled with the current time.
func (s *InvoiceStore) Add(ctx context.Context, inv domain.Invoice) (domain.Invoice, domain.Result, error) {
	var created domain.Invoice
	res, err := s.runInTransaction(ctx, func(tx *Transaction) error {
		var err error
		created, err = tx.Add(inv)
		return err
	})
	if err != nil {
		return domain.Invoice{}, res, err
	}
	return created, res, nil
}

// Update merges patch into the record with invoiceId id. The merged record
// must still satisfy the validator. An unknown id or an empty patch is a
// no-op and returns found=false or the unchanged record without writing.
func (s *InvoiceStore) Update(ctx context.Context, id string, patch domain.InvoicePatch) (domain.Invoice, bool, domain.Result, error) {
	var (
		updated domain.Invoice
		found   bool
	)
	res, err := s.runInTransaction(ctx, func(tx *Transaction) error {
		var err error
		updated, found, err = tx.Update(id, patch)
		return err
	})
	if err != nil {
		return domain.Invoice{}, found, res, err
	}
	return updated, found, res, nil
}

// Transition applies a workflow action to the record with invoiceId id.
// Delete removes the record; approve and reject overwrite its status.
func (s *InvoiceStore) Transition(ctx context.Context, id string, action domain.Action) (domain.Invoice, bool, domain.Result, error) {
	var (
		updated domain.Invoice
		found   bool
	)
	res, err := s.runInTransaction(ctx, func(tx *Transaction) error {
		var err error
		updated, found, err = tx.Transition(id, action)
		return err
	})
	if err != nil {
		return domain.Invoice{}, found, res, err
	}
	return updated, found, res, nil
}

// Delete removes the record with invoiceId id. Removing an unknown id is a
// no-op.
func (s *InvoiceStore) Delete(ctx context.Context, id string) (bool, domain.Result, error) {
	_, found, res, err := s.Transition(ctx, id, domain.ActionDelete)
	return found, res, err
}

func (s *InvoiceStore) runInTransaction(ctx context.Context, fn func(tx *Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if s.loadErr != nil {
			return domain.Result{}, s.loadErr
		}
		return domain.Result{}, ErrStoreNotLoaded
	}

	tx := &Transaction{
		state: domain.CloneInvoices(s.invoices),
		now:   s.nowFn(),
	}
	if err := fn(tx); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			s.logger.Debug("invoice rejected by validator", "key", s.key, "fields", verr.Paths())
		}
		return domain.Result{}, err
	}
	if len(tx.changes) == 0 {
		return domain.Result{}, nil
	}

	res, err := s.engine.Evaluate(ctx, tx, tx.changes)
	if err != nil {
		return domain.Result{}, fmt.Errorf("evaluate invoice rules: %w", err)
	}
	for _, v := range res.Violations {
		switch v.Severity {
		case domain.SeverityWarn:
			s.logger.Warn("invoice rule warning", "rule", v.Rule, "invoice_id", v.InvoiceID, "message", v.Message)
		case domain.SeverityLog:
			s.logger.Info("invoice rule notice", "rule", v.Rule, "invoice_id", v.InvoiceID, "message", v.Message)
		}
	}
	if res.HasBlocking() {
		return res, domain.RuleViolationError{Result: res}
	}

	if err := s.persist(ctx, tx.state); err != nil {
		return res, err
	}
	s.invoices = tx.state
	return res, nil
}

func (s *InvoiceStore) persist(ctx context.Context, invoices []domain.Invoice) error {
	if invoices == nil {
		invoices = []domain.Invoice{}
	}
	payload, err := json.Marshal(invoices)
	if err != nil {
		return fmt.Errorf("encode invoices: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, payload); err != nil {
		s.logger.Error("invoice store persist failed", "key", s.key, "error", err)
		return &domain.StorageError{Op: "set", Key: s.key, Err: err}
	}
	return nil
}

// Transaction is the working copy of the collection a mutation applies to.
// It also serves as the RuleView the rules engine sees before commit.
type Transaction struct {
	state   []domain.Invoice
	changes []domain.Change
	now     time.Time
}

// ListInvoices implements domain.RuleView.
func (tx *Transaction) ListInvoices() []domain.Invoice {
	return domain.CloneInvoices(tx.state)
}

// FindInvoice implements domain.RuleView.
func (tx *Transaction) FindInvoice(id string) (domain.Invoice, bool) {
	if idx := indexOf(tx.state, id); idx >= 0 {
		return tx.state[idx].Clone(), true
	}
	return domain.Invoice{}, false
}

// Add appends a validated record.
func (tx *Transaction) Add(inv domain.Invoice) (domain.Invoice, error) {
	rec := inv.Clone()
	if rec.InvoiceID == "" {
		rec.InvoiceID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = domain.StatusDraft
	}
	stamp := tx.now.UTC().Format(time.RFC3339Nano)
	if rec.CreatedAt == "" {
		rec.CreatedAt = stamp
	}
	if rec.UpdatedAt == "" {
		rec.UpdatedAt = stamp
	}
	if err := schema.ValidateInvoice(rec); err != nil {
		return domain.Invoice{}, err
	}
	tx.state = append(tx.state, rec)
	after := rec.Clone()
	tx.changes = append(tx.changes, domain.Change{Kind: domain.ChangeCreate, After: &after})
	return rec.Clone(), nil
}

// Update merges patch into the record matched by id.
func (tx *Transaction) Update(id string, patch domain.InvoicePatch) (domain.Invoice, bool, error) {
	idx := indexOf(tx.state, id)
	if idx < 0 {
		return domain.Invoice{}, false, nil
	}
	before := tx.state[idx].Clone()
	if patch.IsEmpty() {
		return before, true, nil
	}
	merged := patch.Apply(before)
	if err := schema.ValidateInvoice(merged); err != nil {
		return domain.Invoice{}, true, err
	}
	tx.state[idx] = merged
	after := merged.Clone()
	tx.changes = append(tx.changes, domain.Change{Kind: domain.ChangeUpdate, Before: &before, After: &after})
	return merged.Clone(), true, nil
}

// Transition applies action to the record matched by id.
func (tx *Transaction) Transition(id string, action domain.Action) (domain.Invoice, bool, error) {
	if _, err := domain.ParseAction(string(action)); err != nil {
		return domain.Invoice{}, false, err
	}
	idx := indexOf(tx.state, id)
	if idx < 0 {
		return domain.Invoice{}, false, nil
	}
	before := tx.state[idx].Clone()
	if action == domain.ActionDelete {
		tx.state = append(tx.state[:idx], tx.state[idx+1:]...)
		tx.changes = append(tx.changes, domain.Change{Kind: domain.ChangeDelete, Action: action, Before: &before})
		return before, true, nil
	}
	next, _ := NextStatus(before.Status, action)
	updated := before.Clone()
	updated.Status = next
	tx.state[idx] = updated
	after := updated.Clone()
	tx.changes = append(tx.changes, domain.Change{Kind: domain.ChangeUpdate, Action: action, Before: &before, After: &after})
	return updated.Clone(), true, nil
}

func indexOf(invoices []domain.Invoice, id string) int {
	for i := range invoices {
		if invoices[i].InvoiceID == id {
			return i
		}
	}
	return -1
}
