package ratetable

import (
	"context"
	"sync"

	"github.com/abel4moyo/zimnat-api-sub003/internal/domain"
)

// MemoryRepository is an in-memory catalog backed by a rebuilt snapshot.
// Used by tests and local tooling; the production path uses GormRepository.
type MemoryRepository struct {
	mu       sync.RWMutex
	products []domain.InsProduct
	packages []domain.InsPackage
	benefits []domain.InsBenefit
	limits   []domain.InsLimit
	factors  []domain.InsRiskFactor
	snap     *Snapshot
}

func NewMemoryRepository() *MemoryRepository {
	m := &MemoryRepository{}
	m.rebuild()
	return m
}

func (m *MemoryRepository) AddProduct(p domain.InsProduct) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = append(m.products, p)
	m.rebuild()
}

func (m *MemoryRepository) AddPackage(pkg domain.InsPackage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packages = append(m.packages, pkg)
	m.rebuild()
}

func (m *MemoryRepository) AddBenefit(b domain.InsBenefit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.benefits = append(m.benefits, b)
	m.rebuild()
}

func (m *MemoryRepository) AddLimit(l domain.InsLimit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits = append(m.limits, l)
	m.rebuild()
}

func (m *MemoryRepository) AddRiskFactor(f domain.InsRiskFactor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factors = append(m.factors, f)
	m.rebuild()
}

// rebuild must be called with mu held.
func (m *MemoryRepository) rebuild() {
	m.snap = NewSnapshot(m.products, m.packages, m.benefits, m.limits, m.factors)
}

func (m *MemoryRepository) current() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

func (m *MemoryRepository) GetProduct(ctx context.Context, productID string) (*domain.InsProduct, error) {
	return m.current().GetProduct(ctx, productID)
}

func (m *MemoryRepository) GetPackage(ctx context.Context, productID, packageID string, includeInactive bool) (*domain.InsPackage, error) {
	return m.current().GetPackage(ctx, productID, packageID, includeInactive)
}

func (m *MemoryRepository) GetBenefits(ctx context.Context, packageID string) ([]domain.InsBenefit, error) {
	return m.current().GetBenefits(ctx, packageID)
}

func (m *MemoryRepository) GetLimits(ctx context.Context, packageID string) (*domain.InsLimit, error) {
	return m.current().GetLimits(ctx, packageID)
}

func (m *MemoryRepository) GetRiskFactors(ctx context.Context, productID, factorType string) ([]domain.InsRiskFactor, error) {
	return m.current().GetRiskFactors(ctx, productID, factorType)
}

func (m *MemoryRepository) ListPackages(ctx context.Context, productID string, includeInactive bool) ([]domain.InsPackage, error) {
	return m.current().ListPackages(ctx, productID, includeInactive)
}

// LoadSnapshot builds a fresh snapshot so callers relying on reload
// semantics observe a distinct value per load.
func (m *MemoryRepository) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return NewSnapshot(m.products, m.packages, m.benefits, m.limits, m.factors), nil
}
