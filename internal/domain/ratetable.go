package domain

import "time"

// Rating strategies. Each product carries exactly one strategy which decides
// how the package rate is interpreted by the rating engine.
const (
	StrategyFlat          = "FLAT"
	StrategyPercentage    = "PERCENTAGE"
	StrategyDurationBased = "DURATION_BASED"
)

// Product status values.
const (
	ProductActive   = "ACTIVE"
	ProductInactive = "INACTIVE"
)

// Risk factor types recognised by the rating engine.
const (
	FactorFamilySize = "FAMILY_SIZE"
	FactorAgeBand    = "AGE_BAND"
	FactorCoverType  = "COVER_TYPE"
)

// FactorKeyExtraMember is the FAMILY_SIZE factor key holding the per-member
// addition charged above a package's family size limit.
const FactorKeyExtraMember = "EXTRA_MEMBER"

// InsProduct is a line of insurance business (Personal Accident, Domestic,
// Travel). Immutable after creation except for Status.
type InsProduct struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID      string    `gorm:"size:64;uniqueIndex" json:"product_id"`
	Name           string    `gorm:"size:200" json:"name"`
	RatingStrategy string    `gorm:"size:32" json:"rating_strategy"` // FLAT | PERCENTAGE | DURATION_BASED
	Status         string    `gorm:"size:16;index;default:'ACTIVE'" json:"status"`
	Remark         string    `gorm:"size:255" json:"remark"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// InsPackage is a purchasable rate variant of a product. The meaning of Rate
// depends on the product strategy: flat currency amount, percentage of cover
// value, or daily rate.
type InsPackage struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID      string    `gorm:"size:64;index;uniqueIndex:idx_product_package" json:"product_id"`
	PackageID      string    `gorm:"size:64;uniqueIndex:idx_product_package" json:"package_id"`
	Name           string    `gorm:"size:200" json:"name"`
	Rate           float64   `json:"rate"`
	Currency       string    `gorm:"size:8" json:"currency"`
	MinimumPremium *float64  `json:"minimum_premium,omitempty"` // floor for PERCENTAGE premiums, null = no floor
	SortOrder      int       `gorm:"default:0" json:"sort_order"`
	IsActive       bool      `gorm:"index;default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// InsBenefit describes a coverage feature of a package. Quoting metadata
// only; benefits never enter premium arithmetic.
type InsBenefit struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PackageID   string    `gorm:"size:64;index" json:"package_id"`
	BenefitType string    `gorm:"size:64" json:"benefit_type"`
	Value       float64   `json:"value"`
	Unit        string    `gorm:"size:32" json:"unit"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// InsLimit holds eligibility bounds for a package. A zero Max* value means
// that bound is unrestricted; a missing row means the package has no
// restrictions at all.
type InsLimit struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PackageID     string    `gorm:"size:64;uniqueIndex" json:"package_id"`
	MinAge        int       `json:"min_age"`
	MaxAge        int       `json:"max_age"`
	MinFamilySize int       `json:"min_family_size"`
	MaxFamilySize int       `json:"max_family_size"`
	MinSumInsured float64   `json:"min_sum_insured"`
	MaxSumInsured float64   `json:"max_sum_insured"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// InsRiskFactor is a named adjustment to a base rate, keyed by
// (factor_type, factor_key). Exactly one of Multiplier or Addition is set;
// multiplicative factors are composed before additive ones.
type InsRiskFactor struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   string    `gorm:"size:64;index" json:"product_id"`
	FactorType  string    `gorm:"size:32;index" json:"factor_type"`
	FactorKey   string    `gorm:"size:64" json:"factor_key"`
	Multiplier  *float64  `json:"multiplier,omitempty"`
	Addition    *float64  `json:"addition,omitempty"`
	Description string    `gorm:"size:255" json:"description"`
	IsActive    bool      `gorm:"index;default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
