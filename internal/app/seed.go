package app

import (
	"time"

	"go.uber.org/zap"

	"github.com/abel4moyo/zimnat-api-sub003/internal/domain"
)

func fptr(v float64) *float64 { return &v }

// checkRateCatalog seeds the default product catalog when empty. The rate
// catalog is administered externally in production; these defaults mirror
// the standard retail packages so a fresh install can quote immediately.
func (a *Application) checkRateCatalog() {
	defaultProducts := []domain.InsProduct{
		{ProductID: "PA", Name: "Personal Accident", RatingStrategy: domain.StrategyFlat, Status: domain.ProductActive},
		{ProductID: "DOMESTIC", Name: "Domestic Insurance", RatingStrategy: domain.StrategyPercentage, Status: domain.ProductActive},
		{ProductID: "TRAVEL", Name: "Travel Insurance", RatingStrategy: domain.StrategyDurationBased, Status: domain.ProductActive},
	}

	for _, p := range defaultProducts {
		var count int64
		a.gormDB.Model(&domain.InsProduct{}).Where("product_id = ?", p.ProductID).Count(&count)
		if count == 0 {
			p.CreatedAt = time.Now()
			p.UpdatedAt = time.Now()
			if err := a.gormDB.Create(&p).Error; err != nil {
				zap.L().Error("failed to create default product", zap.String("product_id", p.ProductID), zap.Error(err))
			} else {
				zap.L().Info("initialized default product", zap.String("product_id", p.ProductID))
			}
		}
	}

	defaultPackages := []domain.InsPackage{
		{ProductID: "PA", PackageID: "PA_STANDARD", Name: "PA Standard", Rate: 1.00, Currency: "USD", SortOrder: 1, IsActive: true},
		{ProductID: "PA", PackageID: "PA_PLUS", Name: "PA Plus", Rate: 2.50, Currency: "USD", SortOrder: 2, IsActive: true},
		{ProductID: "DOMESTIC", PackageID: "DOMESTIC_STANDARD", Name: "Domestic Standard", Rate: 0.75, Currency: "USD", MinimumPremium: fptr(25.00), SortOrder: 1, IsActive: true},
		{ProductID: "DOMESTIC", PackageID: "DOMESTIC_PREMIER", Name: "Domestic Premier", Rate: 1.10, Currency: "USD", MinimumPremium: fptr(40.00), SortOrder: 2, IsActive: true},
		{ProductID: "TRAVEL", PackageID: "TRAVEL_STANDARD", Name: "Travel Standard", Rate: 2.00, Currency: "USD", SortOrder: 1, IsActive: true},
	}

	for _, pkg := range defaultPackages {
		var count int64
		a.gormDB.Model(&domain.InsPackage{}).
			Where("product_id = ? AND package_id = ?", pkg.ProductID, pkg.PackageID).
			Count(&count)
		if count == 0 {
			pkg.CreatedAt = time.Now()
			pkg.UpdatedAt = time.Now()
			if err := a.gormDB.Create(&pkg).Error; err != nil {
				zap.L().Error("failed to create default package", zap.String("package_id", pkg.PackageID), zap.Error(err))
			} else {
				zap.L().Info("initialized default package", zap.String("package_id", pkg.PackageID))
			}
		}
	}

	defaultLimits := []domain.InsLimit{
		{PackageID: "PA_STANDARD", MinAge: 18, MaxAge: 65, MinFamilySize: 1, MaxFamilySize: 6},
		{PackageID: "PA_PLUS", MinAge: 18, MaxAge: 70, MinFamilySize: 1, MaxFamilySize: 8},
		{PackageID: "DOMESTIC_STANDARD", MinSumInsured: 500, MaxSumInsured: 100000},
	}

	for _, l := range defaultLimits {
		var count int64
		a.gormDB.Model(&domain.InsLimit{}).Where("package_id = ?", l.PackageID).Count(&count)
		if count == 0 {
			if err := a.gormDB.Create(&l).Error; err != nil {
				zap.L().Error("failed to create default limit", zap.String("package_id", l.PackageID), zap.Error(err))
			}
		}
	}

	defaultFactors := []domain.InsRiskFactor{
		{ProductID: "PA", FactorType: domain.FactorFamilySize, FactorKey: domain.FactorKeyExtraMember, Addition: fptr(0.50), Description: "Charge per family member above package limit", IsActive: true},
		{ProductID: "DOMESTIC", FactorType: domain.FactorCoverType, FactorKey: "FULL_VALUE", Multiplier: fptr(1.25), Description: "Full replacement value loading", IsActive: true},
		{ProductID: "DOMESTIC", FactorType: domain.FactorCoverType, FactorKey: "FIRST_LOSS", Multiplier: fptr(0.85), Description: "First loss basis discount", IsActive: true},
	}

	for _, f := range defaultFactors {
		var count int64
		a.gormDB.Model(&domain.InsRiskFactor{}).
			Where("product_id = ? AND factor_type = ? AND factor_key = ?", f.ProductID, f.FactorType, f.FactorKey).
			Count(&count)
		if count == 0 {
			if err := a.gormDB.Create(&f).Error; err != nil {
				zap.L().Error("failed to create default risk factor",
					zap.String("product_id", f.ProductID),
					zap.String("factor_key", f.FactorKey),
					zap.Error(err))
			}
		}
	}
}
