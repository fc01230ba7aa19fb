package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/abel4moyo/zimnat-api-sub003/internal/domain"
	"github.com/abel4moyo/zimnat-api-sub003/internal/errs"
)

// MemoryRepository is an in-memory Repository used by tests. A single mutex
// gives the same serialization the database row lock provides.
type MemoryRepository struct {
	mu      sync.Mutex
	nextID  int64
	records map[string]*domain.PaymentRecord
	logs    []domain.PaymentStatusLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]*domain.PaymentRecord)}
}

func (m *MemoryRepository) Create(_ context.Context, rec *domain.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.PaymentReference]; ok {
		return errs.New(errs.KindDuplicateReference, "payment reference %s already exists", rec.PaymentReference)
	}
	m.nextID++
	rec.ID = m.nextID
	cp := *rec
	m.records[rec.PaymentReference] = &cp
	return nil
}

func (m *MemoryRepository) GetByReference(_ context.Context, reference string) (*domain.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[reference]
	if !ok {
		return nil, errs.New(errs.KindPaymentNotFound, "payment %s not found", reference)
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryRepository) ListByPolicy(_ context.Context, policyNumber string) ([]domain.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PaymentRecord
	for _, rec := range m.records {
		if rec.PolicyNumber == policyNumber {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].InitiatedAt.After(out[j].InitiatedAt)
	})
	return out, nil
}

func (m *MemoryRepository) StatusLog(_ context.Context, reference string) ([]domain.PaymentStatusLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PaymentStatusLog
	for _, entry := range m.logs {
		if entry.PaymentReference == reference {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (m *MemoryRepository) Transition(_ context.Context, reference string, apply applyFunc) (*domain.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[reference]
	if !ok {
		return nil, errs.New(errs.KindPaymentNotFound, "payment %s not found", reference)
	}

	work := *rec
	entry, err := apply(&work)
	if err != nil {
		if errors.Is(err, errNoop) {
			cp := *rec
			return &cp, nil
		}
		return nil, err
	}

	*rec = work
	entry.ID = int64(len(m.logs) + 1)
	m.logs = append(m.logs, *entry)
	cp := *rec
	return &cp, nil
}
