package webhook

import (
	"context"
	"errors"
	"sync"
	"time"

	"blackfall_back_end/internal/models"
	"blackfall_back_end/internal/orders"
	"blackfall_back_end/internal/printful"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v83"
)

// memStore est un Store en mémoire qui honore le contrat documenté
// d'internal/orders (upsert idempotent, CAS de claim, champs write-once)
type memStore struct {
	mu   sync.Mutex
	rows map[string]*models.Order

	upserts  int
	finds    int
	failNext error

	failNextRecord error
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]*models.Order)}
}

func (m *memStore) get(sessionID string) *models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.rows[sessionID]; ok {
		cp := *o
		return &cp
	}
	return nil
}

func (m *memStore) put(o models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[o.SessionID] = &o
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memStore) UpsertFromCheckoutSession(_ context.Context, s *stripe.CheckoutSession, rawEvent []byte) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return nil, err
	}

	m.upserts++
	normalized := orders.NormalizeCheckoutSession(s)
	normalized.RawEvent = string(rawEvent)
	now := time.Now().UTC()

	existing, ok := m.rows[s.ID]
	if !ok {
		normalized.OrderID = uuid.NewString()
		normalized.CreatedAt = now
		normalized.UpdatedAt = now
		m.rows[s.ID] = &normalized
		cp := normalized
		return &cp, nil
	}

	status := normalized.Status
	if existing.Status == models.OrderFulfillmentRequested || existing.Status == models.OrderFulfilled {
		status = existing.Status
	}

	existing.PaymentIntentID = normalized.PaymentIntentID
	existing.Status = status
	existing.Currency = normalized.Currency
	existing.AmountTotal = normalized.AmountTotal
	existing.CustomerEmail = normalized.CustomerEmail
	existing.CustomerName = normalized.CustomerName
	existing.Recipient = normalized.Recipient
	existing.RawEvent = normalized.RawEvent
	existing.UpdatedAt = now

	cp := *existing
	return &cp, nil
}

func (m *memStore) MarkExpired(_ context.Context, sessionID string, rawEvent []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.rows[sessionID]
	if !ok {
		return nil
	}
	o.Status = models.OrderCanceled
	o.RawEvent = string(rawEvent)
	return nil
}

func (m *memStore) ClaimDispatch(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.rows[sessionID]
	if !ok {
		return false, nil
	}
	if o.Status != models.OrderPaid || o.PrintfulOrderID != 0 {
		return false, nil
	}
	o.Status = models.OrderFulfillmentRequested
	return true, nil
}

func (m *memStore) RecordFulfillment(_ context.Context, sessionID string, printfulOrderID int64, rawResponse []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNextRecord != nil {
		err := m.failNextRecord
		m.failNextRecord = nil
		return err
	}

	o, ok := m.rows[sessionID]
	if !ok {
		return orders.ErrNotFound
	}
	if o.PrintfulOrderID != 0 {
		return nil
	}
	o.PrintfulOrderID = printfulOrderID
	o.PrintfulResponse = string(rawResponse)
	o.Status = models.OrderFulfillmentRequested
	return nil
}

func (m *memStore) RecordFulfillmentFailure(_ context.Context, sessionID string, detail []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.rows[sessionID]
	if !ok {
		return orders.ErrNotFound
	}
	o.Status = models.OrderFulfillmentFailed
	o.PrintfulResponse = string(detail)
	return nil
}

func (m *memStore) MarkNotified(_ context.Context, sessionID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.rows[sessionID]
	if !ok {
		return false, orders.ErrNotFound
	}
	if !o.NotifiedAt.IsZero() {
		return false, nil
	}
	o.NotifiedAt = at
	return true, nil
}

func (m *memStore) FindBySessionID(_ context.Context, sessionID string) (*models.Order, error) {
	m.mu.Lock()
	m.finds++
	m.mu.Unlock()

	if o := m.get(sessionID); o != nil {
		return o, nil
	}
	return nil, orders.ErrNotFound
}

func (m *memStore) findCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finds
}

func (m *memStore) ListByStatus(_ context.Context, status string, limit int) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.Order
	for _, o := range m.rows {
		if o.Status == status && len(result) < limit {
			result = append(result, *o)
		}
	}
	return result, nil
}

// fakePrintful enregistre les appels CreateOrder et peut simuler un refus
type fakePrintful struct {
	mu      sync.Mutex
	calls   []printful.OrderRequest
	stores  []printful.StoreInfo
	nextErr *printful.APIError
	nextID  int64
}

func newFakePrintful() *fakePrintful {
	return &fakePrintful{
		nextID: 42,
		stores: []printful.StoreInfo{{ID: 7, Name: "Blackfall Records", Type: "native"}},
	}
}

func (f *fakePrintful) CreateOrder(_ context.Context, _ int64, req *printful.OrderRequest) (*printful.OrderResult, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, *req)
	if f.nextErr != nil {
		return nil, f.nextErr.Raw, f.nextErr
	}
	return &printful.OrderResult{ID: f.nextID, ExternalID: req.ExternalID, Status: "draft"},
		[]byte(`{"code":200,"result":{"id":42,"status":"draft"}}`), nil
}

func (f *fakePrintful) ListStores(_ context.Context) ([]printful.StoreInfo, error) {
	return f.stores, nil
}

func (f *fakePrintful) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeMailer compte les envois et peut simuler une panne SMTP
type fakeMailer struct {
	mu      sync.Mutex
	sent    []string
	nextErr error
}

func (f *fakeMailer) Send(subject, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.nextErr != nil {
		err := f.nextErr
		return err
	}
	f.sent = append(f.sent, subject)
	return nil
}

func (f *fakeMailer) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

var errBoom = errors.New("boom")
