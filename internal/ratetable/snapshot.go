package ratetable

import (
	"context"
	"sort"
	"time"

	"github.com/abel4moyo/zimnat-api-sub003/internal/domain"
	"github.com/abel4moyo/zimnat-api-sub003/internal/errs"
)

// Snapshot is an immutable in-memory view of the rate catalog. It implements
// Repository so a rating session can run every lookup against one consistent
// view regardless of concurrent catalog refreshes.
type Snapshot struct {
	products map[string]*domain.InsProduct
	packages map[string]map[string]*domain.InsPackage // productID -> packageID
	benefits map[string][]domain.InsBenefit           // packageID
	limits   map[string]*domain.InsLimit              // packageID
	factors  map[string]map[string][]domain.InsRiskFactor // productID -> factorType
	loadedAt time.Time
}

func NewSnapshot(
	products []domain.InsProduct,
	packages []domain.InsPackage,
	benefits []domain.InsBenefit,
	limits []domain.InsLimit,
	factors []domain.InsRiskFactor,
) *Snapshot {
	s := &Snapshot{
		products: make(map[string]*domain.InsProduct, len(products)),
		packages: make(map[string]map[string]*domain.InsPackage),
		benefits: make(map[string][]domain.InsBenefit),
		limits:   make(map[string]*domain.InsLimit, len(limits)),
		factors:  make(map[string]map[string][]domain.InsRiskFactor),
		loadedAt: time.Now(),
	}
	for i := range products {
		p := products[i]
		s.products[p.ProductID] = &p
	}
	for i := range packages {
		pkg := packages[i]
		byID, ok := s.packages[pkg.ProductID]
		if !ok {
			byID = make(map[string]*domain.InsPackage)
			s.packages[pkg.ProductID] = byID
		}
		byID[pkg.PackageID] = &pkg
	}
	for _, b := range benefits {
		s.benefits[b.PackageID] = append(s.benefits[b.PackageID], b)
	}
	for i := range limits {
		l := limits[i]
		s.limits[l.PackageID] = &l
	}
	for _, f := range factors {
		if !f.IsActive {
			continue
		}
		byType, ok := s.factors[f.ProductID]
		if !ok {
			byType = make(map[string][]domain.InsRiskFactor)
			s.factors[f.ProductID] = byType
		}
		byType[f.FactorType] = append(byType[f.FactorType], f)
	}
	// deterministic factor composition order
	for _, byType := range s.factors {
		for _, fs := range byType {
			sortFactorsByKey(fs)
		}
	}
	return s
}

// LoadedAt reports when this snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

func (s *Snapshot) GetProduct(_ context.Context, productID string) (*domain.InsProduct, error) {
	p, ok := s.products[productID]
	if !ok {
		return nil, errs.New(errs.KindProductNotFound, "product %s not found", productID)
	}
	return p, nil
}

func (s *Snapshot) GetPackage(_ context.Context, productID, packageID string, includeInactive bool) (*domain.InsPackage, error) {
	pkg, ok := s.packages[productID][packageID]
	if !ok {
		return nil, errs.New(errs.KindPackageNotFound, "package %s/%s not found", productID, packageID)
	}
	if !pkg.IsActive && !includeInactive {
		return nil, errs.New(errs.KindPackageInactive, "package %s/%s is inactive", productID, packageID)
	}
	return pkg, nil
}

func (s *Snapshot) GetBenefits(_ context.Context, packageID string) ([]domain.InsBenefit, error) {
	return s.benefits[packageID], nil
}

func (s *Snapshot) GetLimits(_ context.Context, packageID string) (*domain.InsLimit, error) {
	return s.limits[packageID], nil
}

func (s *Snapshot) GetRiskFactors(_ context.Context, productID, factorType string) ([]domain.InsRiskFactor, error) {
	return s.factors[productID][factorType], nil
}

func (s *Snapshot) ListPackages(_ context.Context, productID string, includeInactive bool) ([]domain.InsPackage, error) {
	byID := s.packages[productID]
	out := make([]domain.InsPackage, 0, len(byID))
	for _, pkg := range byID {
		if !pkg.IsActive && !includeInactive {
			continue
		}
		out = append(out, *pkg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].PackageID < out[j].PackageID
	})
	return out, nil
}
