package rating

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abel4moyo/zimnat-api-sub003/internal/domain"
	"github.com/abel4moyo/zimnat-api-sub003/internal/errs"
	"github.com/abel4moyo/zimnat-api-sub003/internal/ratetable"
)

func fptr(v float64) *float64 { return &v }

func newTestEngine() *Engine {
	repo := ratetable.NewMemoryRepository()

	repo.AddProduct(domain.InsProduct{ProductID: "PA", Name: "Personal Accident", RatingStrategy: domain.StrategyFlat, Status: domain.ProductActive})
	repo.AddProduct(domain.InsProduct{ProductID: "DOMESTIC", Name: "Domestic", RatingStrategy: domain.StrategyPercentage, Status: domain.ProductActive})
	repo.AddProduct(domain.InsProduct{ProductID: "TRAVEL", Name: "Travel", RatingStrategy: domain.StrategyDurationBased, Status: domain.ProductActive})
	repo.AddProduct(domain.InsProduct{ProductID: "LEGACY", Name: "Legacy", RatingStrategy: "ACTUARIAL", Status: domain.ProductActive})

	repo.AddPackage(domain.InsPackage{ProductID: "PA", PackageID: "PA_STANDARD", Rate: 1.00, Currency: "USD", IsActive: true})
	repo.AddPackage(domain.InsPackage{ProductID: "PA", PackageID: "PA_RETIRED", Rate: 0.80, Currency: "USD", IsActive: false})
	repo.AddPackage(domain.InsPackage{ProductID: "DOMESTIC", PackageID: "DOMESTIC_STANDARD", Rate: 0.75, Currency: "USD", MinimumPremium: fptr(25.00), IsActive: true})
	repo.AddPackage(domain.InsPackage{ProductID: "TRAVEL", PackageID: "TRAVEL_STANDARD", Rate: 2.00, Currency: "USD", IsActive: true})
	repo.AddPackage(domain.InsPackage{ProductID: "LEGACY", PackageID: "LEGACY_STANDARD", Rate: 1.00, Currency: "USD", IsActive: true})

	repo.AddLimit(domain.InsLimit{PackageID: "PA_STANDARD", MinFamilySize: 1, MaxFamilySize: 6})
	repo.AddLimit(domain.InsLimit{PackageID: "DOMESTIC_STANDARD", MinSumInsured: 500, MaxSumInsured: 100000})

	repo.AddRiskFactor(domain.InsRiskFactor{ProductID: "PA", FactorType: domain.FactorFamilySize, FactorKey: domain.FactorKeyExtraMember, Addition: fptr(0.50), IsActive: true})
	repo.AddRiskFactor(domain.InsRiskFactor{ProductID: "DOMESTIC", FactorType: domain.FactorCoverType, FactorKey: "FULL_VALUE", Multiplier: fptr(1.25), IsActive: true})
	repo.AddRiskFactor(domain.InsRiskFactor{ProductID: "DOMESTIC", FactorType: domain.FactorCoverType, FactorKey: "FIRST_LOSS", Multiplier: fptr(0.85), IsActive: true})

	return NewEngine(repo)
}

func TestFlatPremium(t *testing.T) {
	engine := newTestEngine()

	b, err := engine.CalculatePremium(context.Background(), "PA", "PA_STANDARD", FlatInput{}, 12, Options{})
	require.NoError(t, err)

	assert.Equal(t, domain.StrategyFlat, b.Strategy)
	assert.Equal(t, "USD", b.Currency)
	assert.Equal(t, 1.00, b.UnitPremium)
	assert.Equal(t, 12.00, b.TotalPremium)
	assert.False(t, b.MinimumApplied)
	assert.Empty(t, b.AppliedFactors)
}

func TestFlatTotalEqualsUnitTimesTerm(t *testing.T) {
	engine := newTestEngine()

	for _, term := range []int{1, 3, 6, 12, 24} {
		b, err := engine.CalculatePremium(context.Background(), "PA", "PA_STANDARD", FlatInput{FamilySize: 4}, term, Options{})
		require.NoError(t, err)
		assert.Equal(t, b.UnitPremium*float64(term), b.TotalPremium, "term=%d", term)
	}
}

func TestFlatExtraFamilyMembers(t *testing.T) {
	engine := newTestEngine()

	// 8 members against a package limit of 6: two extra members at 0.50
	b, err := engine.CalculatePremium(context.Background(), "PA", "PA_STANDARD", FlatInput{FamilySize: 8}, 12, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1.00, b.BasePremium)
	assert.Equal(t, 2.00, b.UnitPremium)
	assert.Equal(t, 24.00, b.TotalPremium)
	require.Len(t, b.AppliedFactors, 1)
	assert.Equal(t, domain.FactorFamilySize, b.AppliedFactors[0].Type)
	assert.Equal(t, domain.FactorKeyExtraMember, b.AppliedFactors[0].Key)
	assert.Equal(t, "addition", b.AppliedFactors[0].Mode)
	assert.Equal(t, 1.00, b.AppliedFactors[0].Effect)
}

func TestPercentageMinimumFloor(t *testing.T) {
	engine := newTestEngine()

	// 1000 x 0.75% = 7.50, below the 25.00 floor
	b, err := engine.CalculatePremium(context.Background(), "DOMESTIC", "DOMESTIC_STANDARD", PercentageInput{CoverValue: 1000}, 1, Options{})
	require.NoError(t, err)

	assert.Equal(t, 7.50, b.BasePremium)
	assert.Equal(t, 25.00, b.UnitPremium)
	assert.Equal(t, 25.00, b.TotalPremium)
	assert.True(t, b.MinimumApplied)
}

func TestPercentageAboveMinimum(t *testing.T) {
	engine := newTestEngine()

	b, err := engine.CalculatePremium(context.Background(), "DOMESTIC", "DOMESTIC_STANDARD", PercentageInput{CoverValue: 10000}, 1, Options{})
	require.NoError(t, err)

	assert.Equal(t, 75.00, b.UnitPremium)
	assert.False(t, b.MinimumApplied)
}

func TestPercentageCoverTypeFactor(t *testing.T) {
	engine := newTestEngine()

	// 10000 x 0.75% = 75.00, FULL_VALUE loading x1.25 = 93.75
	b, err := engine.CalculatePremium(context.Background(), "DOMESTIC", "DOMESTIC_STANDARD",
		PercentageInput{CoverValue: 10000, CoverageType: "FULL_VALUE"}, 1, Options{})
	require.NoError(t, err)

	assert.Equal(t, 93.75, b.UnitPremium)
	require.Len(t, b.AppliedFactors, 1)
	assert.Equal(t, "multiplier", b.AppliedFactors[0].Mode)
	assert.Equal(t, 1.25, b.AppliedFactors[0].Effect)
}

func TestPercentageTermMultiplies(t *testing.T) {
	engine := newTestEngine()

	b, err := engine.CalculatePremium(context.Background(), "DOMESTIC", "DOMESTIC_STANDARD", PercentageInput{CoverValue: 10000}, 12, Options{})
	require.NoError(t, err)
	assert.Equal(t, 75.00, b.UnitPremium)
	assert.Equal(t, 900.00, b.TotalPremium)
}

func TestPercentageInvalidCoverValue(t *testing.T) {
	engine := newTestEngine()

	for _, cover := range []float64{0, -1, -1000} {
		_, err := engine.CalculatePremium(context.Background(), "DOMESTIC", "DOMESTIC_STANDARD", PercentageInput{CoverValue: cover}, 1, Options{})
		require.Error(t, err)
		assert.Equal(t, errs.KindInvalidCoverValue, errs.KindOf(err))
	}
}

func TestDurationPremium(t *testing.T) {
	engine := newTestEngine()

	// 2.00 x 1.5 (INTERNATIONAL) x 1.8 (COMPREHENSIVE) = 5.40/day
	// 5.40 x 10 days x 2 travelers = 108.00
	b, err := engine.CalculatePremium(context.Background(), "TRAVEL", "TRAVEL_STANDARD",
		DurationInput{DurationDays: 10, Destination: "INTERNATIONAL", CoverType: "COMPREHENSIVE", Travelers: 2}, 1, Options{})
	require.NoError(t, err)

	assert.Equal(t, 2.00, b.BasePremium)
	assert.Equal(t, 5.40, b.UnitPremium)
	assert.Equal(t, 108.00, b.TotalPremium)
}

func TestDurationUnknownValuesDefaultToOne(t *testing.T) {
	engine := newTestEngine()

	b, err := engine.CalculatePremium(context.Background(), "TRAVEL", "TRAVEL_STANDARD",
		DurationInput{DurationDays: 5, Destination: "MOON", CoverType: "GOLD"}, 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, 10.00, b.TotalPremium) // 2.00 x 5 days x 1 traveler
}

func TestDurationMonotonicity(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	var prev float64
	for days := 1; days <= 30; days++ {
		b, err := engine.CalculatePremium(ctx, "TRAVEL", "TRAVEL_STANDARD",
			DurationInput{DurationDays: days, Destination: "REGIONAL", Travelers: 2}, 1, Options{})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, b.TotalPremium, prev)
		prev = b.TotalPremium
	}

	prev = 0
	for travelers := 1; travelers <= 6; travelers++ {
		b, err := engine.CalculatePremium(ctx, "TRAVEL", "TRAVEL_STANDARD",
			DurationInput{DurationDays: 7, Travelers: travelers}, 1, Options{})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, b.TotalPremium, prev)
		prev = b.TotalPremium
	}
}

func TestDurationInvalidInputs(t *testing.T) {
	engine := newTestEngine()

	_, err := engine.CalculatePremium(context.Background(), "TRAVEL", "TRAVEL_STANDARD", DurationInput{DurationDays: 0}, 1, Options{})
	assert.Equal(t, errs.KindInvalidInput, errs.KindOf(err))

	_, err = engine.CalculatePremium(context.Background(), "TRAVEL", "TRAVEL_STANDARD", DurationInput{DurationDays: 3, Travelers: -1}, 1, Options{})
	assert.Equal(t, errs.KindInvalidInput, errs.KindOf(err))
}

func TestLookupFailures(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	_, err := engine.CalculatePremium(ctx, "MARINE", "ANY", FlatInput{}, 1, Options{})
	assert.Equal(t, errs.KindProductNotFound, errs.KindOf(err))

	_, err = engine.CalculatePremium(ctx, "PA", "PA_GOLD", FlatInput{}, 1, Options{})
	assert.Equal(t, errs.KindPackageNotFound, errs.KindOf(err))

	_, err = engine.CalculatePremium(ctx, "PA", "PA_RETIRED", FlatInput{}, 1, Options{})
	assert.Equal(t, errs.KindPackageInactive, errs.KindOf(err))

	_, err = engine.CalculatePremium(ctx, "LEGACY", "LEGACY_STANDARD", FlatInput{}, 1, Options{})
	assert.Equal(t, errs.KindUnsupportedStrategy, errs.KindOf(err))

	// input variant does not match the product strategy
	_, err = engine.CalculatePremium(ctx, "PA", "PA_STANDARD", PercentageInput{CoverValue: 100}, 1, Options{})
	assert.Equal(t, errs.KindInvalidInput, errs.KindOf(err))
}

func TestLimitsAdvisoryByDefault(t *testing.T) {
	engine := newTestEngine()

	// cover value below the package minimum sum insured still rates
	b, err := engine.CalculatePremium(context.Background(), "DOMESTIC", "DOMESTIC_STANDARD", PercentageInput{CoverValue: 100}, 1, Options{})
	require.NoError(t, err)
	require.NotNil(t, b.Limits)
	assert.Equal(t, 500.0, b.Limits.MinSumInsured)
}

func TestLimitsEnforcedOnOptIn(t *testing.T) {
	engine := newTestEngine()

	_, err := engine.CalculatePremium(context.Background(), "DOMESTIC", "DOMESTIC_STANDARD",
		PercentageInput{CoverValue: 100}, 1, Options{EnforceLimits: true})
	assert.Equal(t, errs.KindOutOfLimits, errs.KindOf(err))

	_, err = engine.CalculatePremium(context.Background(), "DOMESTIC", "DOMESTIC_STANDARD",
		PercentageInput{CoverValue: 500000}, 1, Options{EnforceLimits: true})
	assert.Equal(t, errs.KindOutOfLimits, errs.KindOf(err))
}

func TestInputFromMap(t *testing.T) {
	in, err := InputFromMap(domain.StrategyPercentage, map[string]interface{}{
		"coverValue":   "1500.50",
		"coverageType": "FULL_VALUE",
	})
	require.NoError(t, err)
	p, ok := in.(PercentageInput)
	require.True(t, ok)
	assert.Equal(t, 1500.50, p.CoverValue)
	assert.Equal(t, "FULL_VALUE", p.CoverageType)

	in, err = InputFromMap(domain.StrategyDurationBased, map[string]interface{}{
		"durationDays": 10,
		"travelers":    "2",
	})
	require.NoError(t, err)
	d, ok := in.(DurationInput)
	require.True(t, ok)
	assert.Equal(t, 10, d.DurationDays)
	assert.Equal(t, 2, d.Travelers)

	_, err = InputFromMap("ACTUARIAL", nil)
	assert.Equal(t, errs.KindUnsupportedStrategy, errs.KindOf(err))
}
