package ledger

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abel4moyo/zimnat-api-sub003/internal/domain"
	"github.com/abel4moyo/zimnat-api-sub003/internal/errs"
)

func newTestService(t *testing.T) (*Service, *MemoryRepository, EventBus.Bus) {
	t.Helper()
	repo := NewMemoryRepository()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	bus := EventBus.New()
	return NewService(repo, bus, node), repo, bus
}

func createPayment(t *testing.T, svc *Service, reference string) *domain.PaymentRecord {
	t.Helper()
	rec, err := svc.CreatePayment(context.Background(), CreateParams{
		PaymentReference: reference,
		PolicyNumber:     "POL-1001",
		Amount:           25.00,
		Currency:         "USD",
		PaymentMethod:    "ecocash",
	})
	require.NoError(t, err)
	return rec
}

func TestCreatePaymentGeneratesReference(t *testing.T) {
	svc, _, _ := newTestService(t)

	rec, err := svc.CreatePayment(context.Background(), CreateParams{
		PolicyNumber: "POL-1001",
		Amount:       10,
		Currency:     "USD",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rec.PaymentReference, "PAY"))
	assert.Equal(t, domain.PaymentInitiated, rec.Status)
	assert.False(t, rec.InitiatedAt.IsZero())
}

func TestCreatePaymentValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreatePayment(ctx, CreateParams{Amount: 10})
	assert.Equal(t, errs.KindInvalidInput, errs.KindOf(err))

	_, err = svc.CreatePayment(ctx, CreateParams{PolicyNumber: "POL-1", Amount: 0})
	assert.Equal(t, errs.KindInvalidInput, errs.KindOf(err))
}

func TestCreateDuplicateReference(t *testing.T) {
	svc, _, _ := newTestService(t)
	createPayment(t, svc, "REF-1")

	_, err := svc.CreatePayment(context.Background(), CreateParams{
		PaymentReference: "REF-1",
		PolicyNumber:     "POL-2002",
		Amount:           50,
		Currency:         "USD",
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindDuplicateReference, errs.KindOf(err))

	// ledger unchanged: the original record survives untouched
	rec, err := svc.GetByReference(context.Background(), "REF-1")
	require.NoError(t, err)
	assert.Equal(t, "POL-1001", rec.PolicyNumber)
	assert.Equal(t, 25.00, rec.Amount)
}

func TestTransitionLifecycle(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	createPayment(t, svc, "REF-1")

	rec, err := svc.Transition(ctx, "REF-1", TransitionParams{
		NewStatus:        domain.PaymentPending,
		Reason:           "gateway accepted",
		ChangedBy:        "orchestrator",
		GatewayReference: "gw_123",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, rec.Status)
	assert.Equal(t, "gw_123", rec.GatewayReference)
	assert.Nil(t, rec.CompletedAt)

	rec, err = svc.Transition(ctx, "REF-1", TransitionParams{
		NewStatus:    domain.PaymentSuccess,
		Reason:       "callback settled",
		FromCallback: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSuccess, rec.Status)
	require.NotNil(t, rec.CompletedAt)
	require.NotNil(t, rec.CallbackReceivedAt)

	entries, err := svc.StatusLog(ctx, "REF-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.PaymentInitiated, entries[0].OldStatus)
	assert.Equal(t, domain.PaymentPending, entries[0].NewStatus)
	assert.Equal(t, domain.PaymentPending, entries[1].OldStatus)
	assert.Equal(t, domain.PaymentSuccess, entries[1].NewStatus)
}

func TestTransitionUnknownPayment(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Transition(context.Background(), "NOPE", TransitionParams{NewStatus: domain.PaymentPending})
	assert.Equal(t, errs.KindPaymentNotFound, errs.KindOf(err))
}

func TestInvalidTransitionFromTerminal(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	createPayment(t, svc, "REF-1")

	_, err := svc.Transition(ctx, "REF-1", TransitionParams{NewStatus: domain.PaymentFailed, Reason: "declined"})
	require.NoError(t, err)

	_, err = svc.Transition(ctx, "REF-1", TransitionParams{NewStatus: domain.PaymentSuccess})
	require.Error(t, err)
	assert.Equal(t, errs.KindInvalidTransition, errs.KindOf(err))

	// the rejected attempt must not write a log entry
	entries, err := svc.StatusLog(ctx, "REF-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDuplicateTerminalTransitionIsNoop(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	createPayment(t, svc, "REF-1")

	first, err := svc.Transition(ctx, "REF-1", TransitionParams{NewStatus: domain.PaymentSuccess})
	require.NoError(t, err)

	second, err := svc.Transition(ctx, "REF-1", TransitionParams{NewStatus: domain.PaymentSuccess})
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)

	entries, err := svc.StatusLog(ctx, "REF-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCancelFromNonTerminal(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	createPayment(t, svc, "REF-1")
	_, err := svc.Transition(ctx, "REF-1", TransitionParams{NewStatus: domain.PaymentCancelled, Reason: "customer abandoned"})
	require.NoError(t, err)

	createPayment(t, svc, "REF-2")
	_, err = svc.Transition(ctx, "REF-2", TransitionParams{NewStatus: domain.PaymentPending})
	require.NoError(t, err)
	rec, err := svc.Transition(ctx, "REF-2", TransitionParams{NewStatus: domain.PaymentCancelled})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCancelled, rec.Status)

	// no way out of CANCELLED
	_, err = svc.Transition(ctx, "REF-2", TransitionParams{NewStatus: domain.PaymentSuccess})
	assert.Equal(t, errs.KindInvalidTransition, errs.KindOf(err))
}

func TestHistoryOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	createPayment(t, svc, "REF-1")
	createPayment(t, svc, "REF-2")
	createPayment(t, svc, "REF-3")

	history, err := svc.History(ctx, "POL-1001")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].InitiatedAt.After(history[i-1].InitiatedAt))
	}
}

func TestStatusEventPublished(t *testing.T) {
	svc, _, bus := newTestService(t)
	ctx := context.Background()

	var mu sync.Mutex
	var events []StatusEvent
	err := bus.Subscribe(TopicPaymentStatus, func(ev StatusEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	require.NoError(t, err)

	createPayment(t, svc, "REF-1")
	_, err = svc.Transition(ctx, "REF-1", TransitionParams{NewStatus: domain.PaymentSuccess, Reason: "ok"})
	require.NoError(t, err)

	// duplicate terminal delivery publishes nothing
	_, err = svc.Transition(ctx, "REF-1", TransitionParams{NewStatus: domain.PaymentSuccess})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, domain.PaymentInitiated, events[0].OldStatus)
	assert.Equal(t, domain.PaymentSuccess, events[0].NewStatus)
}

func TestConcurrentTransitionsSingleWinner(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	createPayment(t, svc, "REF-RACE")

	const n = 100
	var wg sync.WaitGroup
	errsCh := make(chan error, n)

	for i := 0; i < n; i++ {
		target := domain.PaymentSuccess
		if i%2 == 1 {
			target = domain.PaymentFailed
		}
		wg.Add(1)
		go func(status string) {
			defer wg.Done()
			_, err := svc.Transition(ctx, "REF-RACE", TransitionParams{NewStatus: status, Reason: "race"})
			errsCh <- err
		}(target)
	}
	wg.Wait()
	close(errsCh)

	// losers racing the other terminal status observe InvalidTransition;
	// duplicates of the winning status are no-ops
	for err := range errsCh {
		if err != nil {
			assert.Equal(t, errs.KindInvalidTransition, errs.KindOf(err))
		}
	}

	rec, err := svc.GetByReference(ctx, "REF-RACE")
	require.NoError(t, err)
	assert.True(t, domain.PaymentTerminal(rec.Status))

	entries, err := svc.StatusLog(ctx, "REF-RACE")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, rec.Status, entries[0].NewStatus)
}

func TestStateMachineEdges(t *testing.T) {
	assert.True(t, domain.CanTransition(domain.PaymentInitiated, domain.PaymentPending))
	assert.True(t, domain.CanTransition(domain.PaymentInitiated, domain.PaymentFailed))
	assert.True(t, domain.CanTransition(domain.PaymentPending, domain.PaymentSuccess))
	assert.True(t, domain.CanTransition(domain.PaymentPending, domain.PaymentCancelled))

	for _, terminal := range []string{domain.PaymentSuccess, domain.PaymentFailed, domain.PaymentCancelled} {
		for _, to := range []string{domain.PaymentInitiated, domain.PaymentPending, domain.PaymentSuccess, domain.PaymentFailed, domain.PaymentCancelled} {
			assert.False(t, domain.CanTransition(terminal, to), "%s -> %s", terminal, to)
		}
	}
}
