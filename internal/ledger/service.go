package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/bwmarrin/snowflake"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/abel4moyo/zimnat-api-sub003/internal/domain"
	"github.com/abel4moyo/zimnat-api-sub003/internal/errs"
)

// TopicPaymentStatus is the event bus topic on which committed transitions
// are published.
const TopicPaymentStatus = "payment.status"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StatusEvent is published on TopicPaymentStatus after each committed
// transition.
type StatusEvent struct {
	PaymentReference string    `json:"payment_reference"`
	PolicyNumber     string    `json:"policy_number"`
	OldStatus        string    `json:"old_status"`
	NewStatus        string    `json:"new_status"`
	Reason           string    `json:"reason"`
	ChangedAt        time.Time `json:"changed_at"`
}

// CreateParams describes a payment to record. PaymentReference is optional;
// the ledger issues a snowflake reference when absent.
type CreateParams struct {
	PaymentReference string
	PolicyNumber     string
	Amount           float64
	Currency         string
	PaymentMethod    string
	Metadata         map[string]interface{}
}

// TransitionParams describes one requested status change.
type TransitionParams struct {
	NewStatus string
	Reason    string
	ChangedBy string
	// FromCallback marks transitions driven by an external gateway callback
	// and stamps CallbackReceivedAt.
	FromCallback bool
	// GatewayReference, when set, is recorded on the payment.
	GatewayReference string
	AdditionalData   map[string]interface{}
}

// Service drives payment records through the status state machine.
// Transitions on one reference are serialized through a per-reference mutex
// on top of the repository's row lock, so concurrent attempts cannot
// interleave.
type Service struct {
	repo Repository
	bus  EventBus.Bus
	node *snowflake.Node

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex

	now func() time.Time
}

func NewService(repo Repository, bus EventBus.Bus, node *snowflake.Node) *Service {
	return &Service{
		repo:  repo,
		bus:   bus,
		node:  node,
		locks: make(map[string]*sync.Mutex),
		now:   time.Now,
	}
}

// WithNow injects a deterministic clock for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) refLock(reference string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	mu, ok := s.locks[reference]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[reference] = mu
	}
	return mu
}

// CreatePayment records a new payment attempt in INITIATED status. Fails
// with DUPLICATE_REFERENCE when the reference is already taken.
func (s *Service) CreatePayment(ctx context.Context, p CreateParams) (*domain.PaymentRecord, error) {
	if p.PolicyNumber == "" {
		return nil, errs.New(errs.KindInvalidInput, "policy number is required")
	}
	if p.Amount <= 0 {
		return nil, errs.New(errs.KindInvalidInput, "payment amount must be greater than zero")
	}

	reference := p.PaymentReference
	if reference == "" {
		reference = fmt.Sprintf("PAY%s", s.node.Generate().String())
	}

	var metadata string
	if len(p.Metadata) > 0 {
		b, err := json.Marshal(p.Metadata)
		if err != nil {
			return nil, errs.Wrap(err, errs.KindInvalidInput, "encode payment metadata")
		}
		metadata = string(b)
	}

	rec := &domain.PaymentRecord{
		PaymentReference: reference,
		PolicyNumber:     p.PolicyNumber,
		Amount:           p.Amount,
		Currency:         p.Currency,
		PaymentMethod:    p.PaymentMethod,
		Status:           domain.PaymentInitiated,
		Metadata:         metadata,
		InitiatedAt:      s.now(),
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	zap.L().Info("payment created",
		zap.String("reference", rec.PaymentReference),
		zap.String("policy", rec.PolicyNumber),
		zap.Float64("amount", rec.Amount),
		zap.String("currency", rec.Currency))
	return rec, nil
}

// Transition applies one status change. The record update and exactly one
// status log entry commit atomically. A duplicate of an already-applied
// terminal transition is a no-op success and writes no log entry; an
// unreachable status fails with INVALID_TRANSITION.
func (s *Service) Transition(ctx context.Context, reference string, p TransitionParams) (*domain.PaymentRecord, error) {
	mu := s.refLock(reference)
	mu.Lock()
	defer mu.Unlock()

	var oldStatus string
	rec, err := s.repo.Transition(ctx, reference, func(rec *domain.PaymentRecord) (*domain.PaymentStatusLog, error) {
		oldStatus = rec.Status

		if rec.Status == p.NewStatus && domain.PaymentTerminal(rec.Status) {
			// duplicate delivery of an already-applied terminal transition
			return nil, errNoop
		}
		if !domain.CanTransition(rec.Status, p.NewStatus) {
			return nil, errs.New(errs.KindInvalidTransition, "payment %s cannot move from %s to %s",
				reference, rec.Status, p.NewStatus)
		}

		now := s.now()
		rec.Status = p.NewStatus
		if p.GatewayReference != "" {
			rec.GatewayReference = p.GatewayReference
		}
		if p.NewStatus == domain.PaymentSuccess {
			rec.CompletedAt = &now
		}
		if p.FromCallback {
			rec.CallbackReceivedAt = &now
		}

		entry := &domain.PaymentStatusLog{
			PaymentID:        rec.ID,
			PaymentReference: rec.PaymentReference,
			OldStatus:        oldStatus,
			NewStatus:        p.NewStatus,
			Reason:           p.Reason,
			ChangedBy:        p.ChangedBy,
			ChangedAt:        now,
		}
		if len(p.AdditionalData) > 0 {
			if b, err := json.Marshal(p.AdditionalData); err == nil {
				entry.AdditionalData = string(b)
			}
		}
		return entry, nil
	})
	if err != nil {
		if errs.KindOf(err) == errs.KindInvalidTransition {
			zap.L().Warn("invalid payment transition rejected",
				zap.String("reference", reference),
				zap.String("from", oldStatus),
				zap.String("to", p.NewStatus),
				zap.String("reason", p.Reason))
		}
		return nil, err
	}

	if rec.Status != oldStatus {
		zap.L().Info("payment transition applied",
			zap.String("reference", reference),
			zap.String("from", oldStatus),
			zap.String("to", rec.Status),
			zap.String("reason", p.Reason))
		if s.bus != nil {
			s.bus.Publish(TopicPaymentStatus, StatusEvent{
				PaymentReference: rec.PaymentReference,
				PolicyNumber:     rec.PolicyNumber,
				OldStatus:        oldStatus,
				NewStatus:        rec.Status,
				Reason:           p.Reason,
				ChangedAt:        s.now(),
			})
		}
	}
	return rec, nil
}

// GetByReference returns one payment record.
func (s *Service) GetByReference(ctx context.Context, reference string) (*domain.PaymentRecord, error) {
	return s.repo.GetByReference(ctx, reference)
}

// History returns the payment attempts of a policy, most recent first.
func (s *Service) History(ctx context.Context, policyNumber string) ([]domain.PaymentRecord, error) {
	return s.repo.ListByPolicy(ctx, policyNumber)
}

// StatusLog returns the audit trail of one payment in application order.
func (s *Service) StatusLog(ctx context.Context, reference string) ([]domain.PaymentStatusLog, error) {
	return s.repo.StatusLog(ctx, reference)
}
