// Package orchestrator drives a payment end to end: policy resolution,
// premium rating, ledger entry, gateway submission and settlement
// callbacks. It is the only component permitted to do so.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abel4moyo/zimnat-api-sub003/internal/domain"
	"github.com/abel4moyo/zimnat-api-sub003/internal/errs"
	"github.com/abel4moyo/zimnat-api-sub003/internal/ledger"
	"github.com/abel4moyo/zimnat-api-sub003/internal/rating"
)

// Config controls orchestration behaviour.
type Config struct {
	// AllowUnresolvedPolicy lets Initiate proceed on policy source outage
	// when the caller supplied product, package and coverage input to rate
	// locally. Explicit fail-open policy; default fail-closed.
	AllowUnresolvedPolicy bool
	// GatewayTimeout bounds each Submit call. Zero means the caller's
	// context deadline applies unchanged.
	GatewayTimeout time.Duration
	// ChangedBy is recorded on transitions driven by this orchestrator.
	ChangedBy string
}

// InitiateParams describes one payment initiation request.
type InitiateParams struct {
	PolicyNumber     string
	Currency         string
	PaymentMethod    string
	PaymentReference string // optional, ledger issues one when empty
	// ProductID/PackageID/CoverageInput/TermMonths feed the rating engine
	// when the policy carries no fixed premium (or cannot be resolved under
	// the fail-open policy).
	ProductID     string
	PackageID     string
	CoverageInput rating.CoverageInput
	TermMonths    int
}

type Orchestrator struct {
	policies PolicySource
	gateway  GatewayAdapter
	engine   *rating.Engine
	payments *ledger.Service
	cfg      Config
}

func New(policies PolicySource, gateway GatewayAdapter, engine *rating.Engine, payments *ledger.Service, cfg Config) *Orchestrator {
	if cfg.ChangedBy == "" {
		cfg.ChangedBy = "orchestrator"
	}
	return &Orchestrator{
		policies: policies,
		gateway:  gateway,
		engine:   engine,
		payments: payments,
		cfg:      cfg,
	}
}

// Initiate resolves the policy, determines the premium, records the payment
// and submits it to the gateway.
//
// A gateway transport failure is inconclusive: the ledger entry stays
// INITIATED (never rolled back, never marked FAILED) and the record is
// returned together with the transient error so the caller can reconcile
// later. Only an explicit gateway response moves the record on.
func (o *Orchestrator) Initiate(ctx context.Context, p InitiateParams) (*domain.PaymentRecord, error) {
	policy, err := o.resolvePolicy(ctx, p)
	if err != nil {
		return nil, err
	}

	amount, currency, metadata, err := o.determinePremium(ctx, policy, p)
	if err != nil {
		return nil, err
	}

	rec, err := o.payments.CreatePayment(ctx, ledger.CreateParams{
		PaymentReference: p.PaymentReference,
		PolicyNumber:     p.PolicyNumber,
		Amount:           amount,
		Currency:         currency,
		PaymentMethod:    p.PaymentMethod,
		Metadata:         metadata,
	})
	if err != nil {
		return nil, err
	}

	subCtx := ctx
	if o.cfg.GatewayTimeout > 0 {
		var cancel context.CancelFunc
		subCtx, cancel = context.WithTimeout(ctx, o.cfg.GatewayTimeout)
		defer cancel()
	}

	result, err := o.gateway.Submit(subCtx, rec)
	if err != nil {
		// transport failure: inconclusive, record stays INITIATED for
		// external reconciliation
		zap.L().Warn("gateway submit failed, payment left INITIATED",
			zap.String("reference", rec.PaymentReference),
			zap.Error(err))
		return rec, errs.Wrap(err, errs.KindGatewayUnavailable, "gateway submit for %s", rec.PaymentReference)
	}

	if !result.Accepted {
		return o.payments.Transition(ctx, rec.PaymentReference, ledger.TransitionParams{
			NewStatus:        domain.PaymentFailed,
			Reason:           "gateway rejected: " + result.Message,
			ChangedBy:        o.cfg.ChangedBy,
			GatewayReference: result.GatewayReference,
		})
	}

	return o.payments.Transition(ctx, rec.PaymentReference, ledger.TransitionParams{
		NewStatus:        domain.PaymentPending,
		Reason:           "gateway accepted",
		ChangedBy:        o.cfg.ChangedBy,
		GatewayReference: result.GatewayReference,
	})
}

func (o *Orchestrator) resolvePolicy(ctx context.Context, p InitiateParams) (*PolicyRecord, error) {
	policy, err := o.policies.GetDetails(ctx, p.PolicyNumber, p.Currency)
	if err == nil {
		return policy, nil
	}
	if errs.IsTransient(err) && o.cfg.AllowUnresolvedPolicy &&
		p.ProductID != "" && p.PackageID != "" && p.CoverageInput != nil {
		zap.L().Warn("policy source unavailable, proceeding fail-open with caller-rated premium",
			zap.String("policy", p.PolicyNumber),
			zap.Error(err))
		return nil, nil
	}
	return nil, err
}

// determinePremium prefers the premium fixed on the policy; otherwise it
// rates from the caller-supplied product/package and coverage input.
func (o *Orchestrator) determinePremium(ctx context.Context, policy *PolicyRecord, p InitiateParams) (float64, string, map[string]interface{}, error) {
	if policy != nil && policy.FixedPremium != nil {
		currency := policy.Currency
		if currency == "" {
			currency = p.Currency
		}
		return *policy.FixedPremium, currency, map[string]interface{}{
			"premium_source": "policy",
			"product_id":     policy.ProductID,
		}, nil
	}

	productID, packageID := p.ProductID, p.PackageID
	if policy != nil {
		if productID == "" {
			productID = policy.ProductID
		}
		if packageID == "" {
			packageID = policy.PackageID
		}
	}

	breakdown, err := o.engine.CalculatePremium(ctx, productID, packageID, p.CoverageInput, p.TermMonths, rating.Options{})
	if err != nil {
		return 0, "", nil, err
	}
	return breakdown.TotalPremium, breakdown.Currency, map[string]interface{}{
		"premium_source": "rating_engine",
		"product_id":     productID,
		"package_id":     packageID,
		"strategy":       breakdown.Strategy,
		"unit_premium":   breakdown.UnitPremium,
		"term_months":    breakdown.TermMonths,
	}, nil
}

// SearchPolicies looks up candidate policies for an identifier, optionally
// narrowed by currency and product. Source outages surface as Transient
// errors, distinct from an empty result.
func (o *Orchestrator) SearchPolicies(ctx context.Context, identifier, currency, productFilter string) ([]PolicyRecord, error) {
	return o.policies.Search(ctx, identifier, currency, productFilter)
}

// ApplyCallback maps a gateway settlement callback onto the state machine.
// Duplicate deliveries for an already-terminal payment are a no-op success;
// gateways retry callbacks and must never see duplicates as fatal. A
// callback for an unknown reference fails with UNKNOWN_REFERENCE.
func (o *Orchestrator) ApplyCallback(ctx context.Context, payload CallbackPayload) (*domain.PaymentRecord, error) {
	if payload.PaymentReference == "" {
		return nil, errs.New(errs.KindInvalidInput, "callback payment reference is required")
	}

	if _, err := o.payments.GetByReference(ctx, payload.PaymentReference); err != nil {
		if errs.IsNotFound(err) {
			zap.L().Warn("callback for unknown payment reference",
				zap.String("reference", payload.PaymentReference),
				zap.String("result_code", payload.ResultCode))
			return nil, errs.New(errs.KindUnknownReference, "no payment matches reference %s", payload.PaymentReference)
		}
		return nil, err
	}

	newStatus := mapResultCode(payload.ResultCode)
	reason := payload.Message
	if reason == "" {
		reason = "gateway callback " + payload.ResultCode
	}

	rec, err := o.payments.Transition(ctx, payload.PaymentReference, ledger.TransitionParams{
		NewStatus:        newStatus,
		Reason:           reason,
		ChangedBy:        o.cfg.ChangedBy,
		FromCallback:     true,
		GatewayReference: payload.GatewayReference,
		AdditionalData:   payload.Raw,
	})
	if err != nil {
		if errs.KindOf(err) == errs.KindInvalidTransition {
			zap.L().Error("conflicting gateway callback",
				zap.String("reference", payload.PaymentReference),
				zap.String("attempted", newStatus),
				zap.String("result_code", payload.ResultCode))
		}
		return nil, err
	}
	return rec, nil
}

// mapResultCode translates external gateway result codes to the internal
// state machine. Unrecognised codes settle as FAILED with the raw code kept
// in the audit reason.
func mapResultCode(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "00", "0", "SUCCESS", "COMPLETED", "PAID", "OK":
		return domain.PaymentSuccess
	default:
		return domain.PaymentFailed
	}
}
