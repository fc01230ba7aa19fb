// Package rating computes premium breakdowns for product/package
// combinations. The engine is pure: the same inputs against the same rate
// table snapshot always produce the same breakdown, and no I/O happens
// beyond rate table reads.
package rating

import (
	"context"
	"math"

	"github.com/abel4moyo/zimnat-api-sub003/internal/domain"
	"github.com/abel4moyo/zimnat-api-sub003/internal/errs"
	"github.com/abel4moyo/zimnat-api-sub003/internal/ratetable"
)

// Destination multipliers for DURATION_BASED rating. Unknown destinations
// rate as domestic.
var destinationMultipliers = map[string]float64{
	"DOMESTIC":      1.0,
	"REGIONAL":      1.2,
	"INTERNATIONAL": 1.5,
	"WORLDWIDE":     2.0,
}

// Cover type multipliers for DURATION_BASED rating.
var coverTypeMultipliers = map[string]float64{
	"BASIC":         1.0,
	"COMPREHENSIVE": 1.8,
}

// AppliedFactor records one adjustment that entered the premium arithmetic.
type AppliedFactor struct {
	Type   string  `json:"type"`
	Key    string  `json:"key"`
	Mode   string  `json:"mode"` // multiplier | addition
	Effect float64 `json:"effect"`
}

// PremiumBreakdown is the structured result of a rating computation.
// Monetary values are rounded to 2 decimal places at presentation; the
// arithmetic itself runs unrounded.
type PremiumBreakdown struct {
	ProductID      string           `json:"product_id"`
	PackageID      string           `json:"package_id"`
	Strategy       string           `json:"strategy"`
	Currency       string           `json:"currency"`
	BasePremium    float64          `json:"base_premium"`
	UnitPremium    float64          `json:"unit_premium"` // monthly, or per rated period
	TotalPremium   float64          `json:"total_premium"`
	TermMonths     int              `json:"term_months"`
	AppliedFactors []AppliedFactor  `json:"applied_factors"`
	MinimumApplied bool             `json:"minimum_applied"`
	Limits         *domain.InsLimit `json:"limits,omitempty"` // advisory eligibility bounds
}

// Options tune a single rating call.
type Options struct {
	// EnforceLimits turns package eligibility limits into hard OUT_OF_LIMITS
	// failures. Off by default: limits travel advisorily on the breakdown so
	// upstream callers can rate out-of-band risks for manual underwriting.
	EnforceLimits bool
}

// Provider yields the rate table view for one rating session. Engines built
// over a snapshot cache hand every CalculatePremium call one consistent
// snapshot, so a concurrent catalog refresh can never split a session.
type Provider func(ctx context.Context) (ratetable.Repository, error)

// Engine dispatches on the product rating strategy.
type Engine struct {
	rates Provider
}

// NewEngine builds an engine over a fixed repository view.
func NewEngine(rates ratetable.Repository) *Engine {
	return &Engine{rates: func(context.Context) (ratetable.Repository, error) { return rates, nil }}
}

// NewEngineWithProvider builds an engine that resolves its rate table view
// once per calculation.
func NewEngineWithProvider(p Provider) *Engine {
	return &Engine{rates: p}
}

// CalculatePremium resolves the product and package, applies the product's
// rating strategy and returns the premium breakdown.
//
// termMonths is a plain multiplier for FLAT and PERCENTAGE premiums; callers
// pass 1 for one-off percentage covers and >1 for recurring billing.
// DURATION_BASED premiums are priced by durationDays and ignore termMonths.
func (e *Engine) CalculatePremium(ctx context.Context, productID, packageID string, input CoverageInput, termMonths int, opts Options) (*PremiumBreakdown, error) {
	if input == nil {
		return nil, errs.New(errs.KindInvalidInput, "coverage input is required")
	}
	if termMonths < 1 {
		termMonths = 1
	}

	rates, err := e.rates(ctx)
	if err != nil {
		return nil, err
	}

	product, err := rates.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Status != domain.ProductActive {
		return nil, errs.New(errs.KindPackageInactive, "product %s is inactive", productID)
	}
	switch product.RatingStrategy {
	case domain.StrategyFlat, domain.StrategyPercentage, domain.StrategyDurationBased:
	default:
		return nil, errs.New(errs.KindUnsupportedStrategy, "product %s has unsupported rating strategy %q", productID, product.RatingStrategy)
	}
	if input.Strategy() != product.RatingStrategy {
		return nil, errs.New(errs.KindInvalidInput, "input for strategy %s does not match product strategy %s",
			input.Strategy(), product.RatingStrategy)
	}

	pkg, err := rates.GetPackage(ctx, productID, packageID, false)
	if err != nil {
		return nil, err
	}
	limits, err := rates.GetLimits(ctx, packageID)
	if err != nil {
		return nil, err
	}

	breakdown := &PremiumBreakdown{
		ProductID:  productID,
		PackageID:  packageID,
		Strategy:   product.RatingStrategy,
		Currency:   pkg.Currency,
		TermMonths: termMonths,
		Limits:     limits,
	}

	switch in := input.(type) {
	case FlatInput:
		err = e.rateFlat(ctx, rates, pkg, limits, in, termMonths, opts, breakdown)
	case PercentageInput:
		err = e.ratePercentage(ctx, rates, pkg, limits, in, termMonths, opts, breakdown)
	case DurationInput:
		err = e.rateDuration(ctx, rates, pkg, in, breakdown)
	default:
		err = errs.New(errs.KindInvalidInput, "unrecognised coverage input type")
	}
	if err != nil {
		return nil, err
	}

	breakdown.BasePremium = round2(breakdown.BasePremium)
	breakdown.UnitPremium = round2(breakdown.UnitPremium)
	breakdown.TotalPremium = round2(breakdown.TotalPremium)
	return breakdown, nil
}

// rateFlat: monthly premium is the package rate plus the extra-member
// addition once per family member above the package limit.
func (e *Engine) rateFlat(ctx context.Context, rates ratetable.Repository, pkg *domain.InsPackage, limits *domain.InsLimit, in FlatInput, termMonths int, opts Options, out *PremiumBreakdown) error {
	if in.FamilySize < 0 {
		return errs.New(errs.KindInvalidInput, "familySize must not be negative")
	}
	if opts.EnforceLimits && limits != nil && limits.MinFamilySize > 0 &&
		in.FamilySize > 0 && in.FamilySize < limits.MinFamilySize {
		return errs.New(errs.KindOutOfLimits, "family size %d below package minimum %d",
			in.FamilySize, limits.MinFamilySize)
	}

	base := pkg.Rate
	monthly := base

	if limits != nil && limits.MaxFamilySize > 0 && in.FamilySize > limits.MaxFamilySize {
		extra := in.FamilySize - limits.MaxFamilySize
		factors, err := rates.GetRiskFactors(ctx, pkg.ProductID, domain.FactorFamilySize)
		if err != nil {
			return err
		}
		for _, f := range factors {
			if f.FactorKey != domain.FactorKeyExtraMember || f.Addition == nil {
				continue
			}
			charge := float64(extra) * *f.Addition
			monthly += charge
			out.AppliedFactors = append(out.AppliedFactors, AppliedFactor{
				Type:   f.FactorType,
				Key:    f.FactorKey,
				Mode:   "addition",
				Effect: round2(charge),
			})
			break
		}
	}

	out.BasePremium = base
	out.UnitPremium = monthly
	out.TotalPremium = monthly * float64(termMonths)
	return nil
}

// ratePercentage: premium is coverValue x rate/100, raised to the package
// minimum when below it. Multiplicative cover-type factors apply before the
// floor.
func (e *Engine) ratePercentage(ctx context.Context, rates ratetable.Repository, pkg *domain.InsPackage, limits *domain.InsLimit, in PercentageInput, termMonths int, opts Options, out *PremiumBreakdown) error {
	if in.CoverValue <= 0 {
		return errs.New(errs.KindInvalidCoverValue, "coverValue must be greater than zero, got %v", in.CoverValue)
	}
	if opts.EnforceLimits && limits != nil {
		if limits.MinSumInsured > 0 && in.CoverValue < limits.MinSumInsured {
			return errs.New(errs.KindOutOfLimits, "cover value %v below package minimum %v",
				in.CoverValue, limits.MinSumInsured)
		}
		if limits.MaxSumInsured > 0 && in.CoverValue > limits.MaxSumInsured {
			return errs.New(errs.KindOutOfLimits, "cover value %v above package maximum %v",
				in.CoverValue, limits.MaxSumInsured)
		}
	}

	base := in.CoverValue * pkg.Rate / 100
	premium := base

	if in.CoverageType != "" {
		factors, err := rates.GetRiskFactors(ctx, pkg.ProductID, domain.FactorCoverType)
		if err != nil {
			return err
		}
		premium = applyMultipliers(factors, in.CoverageType, premium, out)
	}

	if pkg.MinimumPremium != nil && premium < *pkg.MinimumPremium {
		premium = *pkg.MinimumPremium
		out.MinimumApplied = true
	}

	out.BasePremium = base
	out.UnitPremium = premium
	out.TotalPremium = premium * float64(termMonths)
	return nil
}

// rateDuration: adjusted daily rate times duration times travelers. The
// destination and cover-type tables default to 1.0 for unknown values;
// product cover-type risk factors compound on top.
func (e *Engine) rateDuration(ctx context.Context, rates ratetable.Repository, pkg *domain.InsPackage, in DurationInput, out *PremiumBreakdown) error {
	if in.DurationDays <= 0 {
		return errs.New(errs.KindInvalidInput, "durationDays must be greater than zero, got %d", in.DurationDays)
	}
	if in.Travelers < 0 {
		return errs.New(errs.KindInvalidInput, "travelers must not be negative")
	}
	travelers := in.Travelers
	if travelers == 0 {
		travelers = 1
	}

	daily := pkg.Rate

	if in.Destination != "" {
		mult, ok := destinationMultipliers[in.Destination]
		if !ok {
			mult = 1.0
		}
		daily *= mult
		out.AppliedFactors = append(out.AppliedFactors, AppliedFactor{
			Type: "DESTINATION", Key: in.Destination, Mode: "multiplier", Effect: mult,
		})
	}
	if in.CoverType != "" {
		mult, ok := coverTypeMultipliers[in.CoverType]
		if !ok {
			mult = 1.0
		}
		daily *= mult
		out.AppliedFactors = append(out.AppliedFactors, AppliedFactor{
			Type: domain.FactorCoverType, Key: in.CoverType, Mode: "multiplier", Effect: mult,
		})

		factors, err := rates.GetRiskFactors(ctx, pkg.ProductID, domain.FactorCoverType)
		if err != nil {
			return err
		}
		daily = applyMultipliers(factors, in.CoverType, daily, out)
	}

	out.BasePremium = pkg.Rate
	out.UnitPremium = daily
	out.TotalPremium = daily * float64(in.DurationDays) * float64(travelers)
	return nil
}

// applyMultipliers composes the multiplicative factors matching key onto
// base. Factors arrive sorted ascending by factor key from the repository,
// which fixes the composition order when several apply.
func applyMultipliers(factors []domain.InsRiskFactor, key string, base float64, out *PremiumBreakdown) float64 {
	adjusted := base
	for _, f := range factors {
		if f.FactorKey != key || f.Multiplier == nil {
			continue
		}
		adjusted *= *f.Multiplier
		out.AppliedFactors = append(out.AppliedFactors, AppliedFactor{
			Type:   f.FactorType,
			Key:    f.FactorKey,
			Mode:   "multiplier",
			Effect: *f.Multiplier,
		})
	}
	return adjusted
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
