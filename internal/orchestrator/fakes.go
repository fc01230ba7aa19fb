package orchestrator

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/abel4moyo/zimnat-api-sub003/internal/domain"
	"github.com/abel4moyo/zimnat-api-sub003/internal/errs"
)

// FakePolicySource is an in-memory PolicySource for tests and local runs.
type FakePolicySource struct {
	mu       sync.Mutex
	policies map[string]PolicyRecord
	// Unavailable simulates a source outage: every call fails with a
	// Transient kind.
	Unavailable bool
}

func NewFakePolicySource() *FakePolicySource {
	return &FakePolicySource{policies: make(map[string]PolicyRecord)}
}

func (f *FakePolicySource) AddPolicy(p PolicyRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policies[p.PolicyNumber] = p
}

func (f *FakePolicySource) Search(_ context.Context, identifier, currency, productFilter string) ([]PolicyRecord, error) {
	if f.Unavailable {
		return nil, errs.New(errs.KindSourceUnavailable, "policy source unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []PolicyRecord
	for _, p := range f.policies {
		if p.PolicyNumber != identifier {
			continue
		}
		if currency != "" && p.Currency != currency {
			continue
		}
		if productFilter != "" && p.ProductID != productFilter {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *FakePolicySource) GetDetails(_ context.Context, identifier, currency string) (*PolicyRecord, error) {
	if f.Unavailable {
		return nil, errs.New(errs.KindSourceUnavailable, "policy source unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.policies[identifier]
	if !ok {
		return nil, errs.New(errs.KindPolicyNotFound, "policy %s not found", identifier)
	}
	if currency != "" && p.Currency != currency {
		return nil, errs.New(errs.KindPolicyNotFound, "policy %s not found in currency %s", identifier, currency)
	}
	return &p, nil
}

// FakeGateway is an in-memory GatewayAdapter. Behaviour toggles let tests
// exercise acceptance, business rejection and transport failure.
type FakeGateway struct {
	mu sync.Mutex
	// Reject makes Submit return a business rejection.
	Reject bool
	// RejectMessage accompanies a rejection.
	RejectMessage string
	// TransportErr, when set, is returned as a transport failure.
	TransportErr error

	Submissions []string // references seen, in order
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{}
}

func (g *FakeGateway) Submit(_ context.Context, rec *domain.PaymentRecord) (*SubmitResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Submissions = append(g.Submissions, rec.PaymentReference)
	if g.TransportErr != nil {
		return nil, g.TransportErr
	}
	if g.Reject {
		msg := g.RejectMessage
		if msg == "" {
			msg = "declined"
		}
		return &SubmitResult{Accepted: false, Message: msg}, nil
	}
	return &SubmitResult{
		Accepted:         true,
		GatewayReference: "gw_" + uuid.NewString(),
		Message:          "accepted",
	}, nil
}
