// Package ratetable provides read-only access to the product/package rate
// catalog. The catalog is administered externally; this core only reads it.
package ratetable

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/abel4moyo/zimnat-api-sub003/internal/domain"
	"github.com/abel4moyo/zimnat-api-sub003/internal/errs"
)

// Repository is the lookup surface consumed by the rating engine. All
// lookups are deterministic for a given data snapshot and have no side
// effects.
type Repository interface {
	// GetProduct retrieves a product by its stable key.
	GetProduct(ctx context.Context, productID string) (*domain.InsProduct, error)

	// GetPackage retrieves a package under a product. Inactive packages fail
	// with PACKAGE_INACTIVE unless includeInactive is set.
	GetPackage(ctx context.Context, productID, packageID string, includeInactive bool) (*domain.InsPackage, error)

	// GetBenefits returns the benefits of a package in insertion order.
	GetBenefits(ctx context.Context, packageID string) ([]domain.InsBenefit, error)

	// GetLimits returns the eligibility limits of a package, nil when the
	// package is unrestricted.
	GetLimits(ctx context.Context, packageID string) (*domain.InsLimit, error)

	// GetRiskFactors returns the active risk factors of a product for one
	// factor type, ordered ascending by factor key.
	GetRiskFactors(ctx context.Context, productID, factorType string) ([]domain.InsRiskFactor, error)

	// ListPackages returns the packages of a product ordered by sort order,
	// active ones only unless includeInactive is set.
	ListPackages(ctx context.Context, productID string, includeInactive bool) ([]domain.InsPackage, error)
}

// Loader builds a full in-memory snapshot of the catalog in one pass.
type Loader interface {
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
}

// GormRepository is the GORM implementation of Repository and Loader.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) GetProduct(ctx context.Context, productID string) (*domain.InsProduct, error) {
	var p domain.InsProduct
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.KindProductNotFound, "product %s not found", productID)
		}
		return nil, errs.Wrap(err, errs.KindStorage, "query product %s", productID)
	}
	return &p, nil
}

func (r *GormRepository) GetPackage(ctx context.Context, productID, packageID string, includeInactive bool) (*domain.InsPackage, error) {
	var pkg domain.InsPackage
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND package_id = ?", productID, packageID).
		First(&pkg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.KindPackageNotFound, "package %s/%s not found", productID, packageID)
		}
		return nil, errs.Wrap(err, errs.KindStorage, "query package %s/%s", productID, packageID)
	}
	if !pkg.IsActive && !includeInactive {
		return nil, errs.New(errs.KindPackageInactive, "package %s/%s is inactive", productID, packageID)
	}
	return &pkg, nil
}

func (r *GormRepository) GetBenefits(ctx context.Context, packageID string) ([]domain.InsBenefit, error) {
	var benefits []domain.InsBenefit
	err := r.db.WithContext(ctx).
		Where("package_id = ?", packageID).
		Order("id ASC").
		Find(&benefits).Error
	if err != nil {
		return nil, errs.Wrap(err, errs.KindStorage, "query benefits of %s", packageID)
	}
	return benefits, nil
}

func (r *GormRepository) GetLimits(ctx context.Context, packageID string) (*domain.InsLimit, error) {
	var limit domain.InsLimit
	err := r.db.WithContext(ctx).Where("package_id = ?", packageID).First(&limit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// no row means no restriction
			return nil, nil
		}
		return nil, errs.Wrap(err, errs.KindStorage, "query limits of %s", packageID)
	}
	return &limit, nil
}

func (r *GormRepository) GetRiskFactors(ctx context.Context, productID, factorType string) ([]domain.InsRiskFactor, error) {
	var factors []domain.InsRiskFactor
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND factor_type = ? AND is_active = ?", productID, factorType, true).
		Order("factor_key ASC").
		Find(&factors).Error
	if err != nil {
		return nil, errs.Wrap(err, errs.KindStorage, "query risk factors of %s", productID)
	}
	return factors, nil
}

func (r *GormRepository) ListPackages(ctx context.Context, productID string, includeInactive bool) ([]domain.InsPackage, error) {
	query := r.db.WithContext(ctx).Where("product_id = ?", productID)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	var packages []domain.InsPackage
	if err := query.Order("sort_order ASC, package_id ASC").Find(&packages).Error; err != nil {
		return nil, errs.Wrap(err, errs.KindStorage, "list packages of %s", productID)
	}
	return packages, nil
}

// LoadSnapshot reads the whole catalog in one pass for caching.
func (r *GormRepository) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	var (
		products []domain.InsProduct
		packages []domain.InsPackage
		benefits []domain.InsBenefit
		limits   []domain.InsLimit
		factors  []domain.InsRiskFactor
	)
	db := r.db.WithContext(ctx)
	if err := db.Order("id ASC").Find(&products).Error; err != nil {
		return nil, errs.Wrap(err, errs.KindStorage, "load products")
	}
	if err := db.Order("id ASC").Find(&packages).Error; err != nil {
		return nil, errs.Wrap(err, errs.KindStorage, "load packages")
	}
	if err := db.Order("id ASC").Find(&benefits).Error; err != nil {
		return nil, errs.Wrap(err, errs.KindStorage, "load benefits")
	}
	if err := db.Find(&limits).Error; err != nil {
		return nil, errs.Wrap(err, errs.KindStorage, "load limits")
	}
	if err := db.Find(&factors).Error; err != nil {
		return nil, errs.Wrap(err, errs.KindStorage, "load risk factors")
	}
	return NewSnapshot(products, packages, benefits, limits, factors), nil
}

func sortFactorsByKey(factors []domain.InsRiskFactor) {
	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].FactorKey < factors[j].FactorKey
	})
}
