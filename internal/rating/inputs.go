package rating

import (
	"github.com/spf13/cast"

	"github.com/abel4moyo/zimnat-api-sub003/internal/domain"
	"github.com/abel4moyo/zimnat-api-sub003/internal/errs"
)

// CoverageInput is the tagged union of strategy-specific rating inputs.
// Each variant carries only the fields its strategy understands, so invalid
// combinations cannot be expressed.
type CoverageInput interface {
	Strategy() string
}

// FlatInput rates a FLAT package: base premium is the package rate; family
// members above the package limit attract the EXTRA_MEMBER addition.
type FlatInput struct {
	FamilySize int
}

func (FlatInput) Strategy() string { return domain.StrategyFlat }

// PercentageInput rates a PERCENTAGE package against a declared cover value.
type PercentageInput struct {
	CoverValue   float64
	CoverageType string
}

func (PercentageInput) Strategy() string { return domain.StrategyPercentage }

// DurationInput rates a DURATION_BASED package per day of cover.
type DurationInput struct {
	DurationDays int
	Destination  string
	CoverType    string
	Travelers    int
}

func (DurationInput) Strategy() string { return domain.StrategyDurationBased }

// InputFromMap converts a loosely-typed option map (as delivered by the
// HTTP tier) into the typed variant for the given strategy. Unrecognised
// keys are ignored.
func InputFromMap(strategy string, opts map[string]interface{}) (CoverageInput, error) {
	switch strategy {
	case domain.StrategyFlat:
		return FlatInput{
			FamilySize: cast.ToInt(opts["familySize"]),
		}, nil
	case domain.StrategyPercentage:
		return PercentageInput{
			CoverValue:   cast.ToFloat64(opts["coverValue"]),
			CoverageType: cast.ToString(opts["coverageType"]),
		}, nil
	case domain.StrategyDurationBased:
		return DurationInput{
			DurationDays: cast.ToInt(opts["durationDays"]),
			Destination:  cast.ToString(opts["destination"]),
			CoverType:    cast.ToString(opts["coverType"]),
			Travelers:    cast.ToInt(opts["travelers"]),
		}, nil
	}
	return nil, errs.New(errs.KindUnsupportedStrategy, "unsupported rating strategy %q", strategy)
}
