package orchestrator

import (
	"context"
	"time"

	"github.com/abel4moyo/zimnat-api-sub003/internal/domain"
)

// PolicyRecord is the view of a policy returned by an external policy
// source. FixedPremium, when set, bypasses the rating engine.
type PolicyRecord struct {
	PolicyNumber string
	HolderName   string
	ProductID    string
	PackageID    string
	Currency     string
	SumInsured   float64
	FixedPremium *float64
	Status       string
}

// PolicySource looks up policies in the external policy databases. An
// unavailable source must fail with a Transient kind
// (POLICY_SOURCE_UNAVAILABLE), distinct from PAYMENT/PRODUCT not-found
// results.
type PolicySource interface {
	Search(ctx context.Context, identifier, currency, productFilter string) ([]PolicyRecord, error)
	GetDetails(ctx context.Context, identifier, currency string) (*PolicyRecord, error)
}

// SubmitResult is the gateway's answer to a payment submission. Accepted
// false is a business rejection; transport failures are returned as errors
// instead.
type SubmitResult struct {
	Accepted         bool
	GatewayReference string
	Message          string
}

// GatewayAdapter submits payments to an external payment gateway. Submit
// must distinguish transport failure (error, Transient kind) from business
// rejection (Accepted=false).
type GatewayAdapter interface {
	Submit(ctx context.Context, rec *domain.PaymentRecord) (*SubmitResult, error)
}

// CallbackPayload is the normalized form of a gateway settlement callback.
type CallbackPayload struct {
	PaymentReference string
	GatewayReference string
	ResultCode       string
	Message          string
	ReceivedAt       time.Time
	Raw              map[string]interface{}
}
