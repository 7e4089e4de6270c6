package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"planhub-be/internal/apperr"
	"planhub-be/internal/entity"
	"planhub-be/internal/pkg/logger"
	"planhub-be/internal/repository/memory"
	"planhub-be/pkg/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type completionFixture struct {
	store     *memStore
	publisher *recordingPublisher
	service   *completionService
	buyer     *entity.User
	plan      *entity.Plan
	purchase  *entity.Purchase
}

func newCompletionFixture(t *testing.T) *completionFixture {
	t.Helper()
	store := newMemStore()
	designer := store.addUser(entity.UserRoleDesigner)
	buyer := store.addUser(entity.UserRoleCustomer)
	plan := store.addPlan(&entity.Plan{
		DesignerId: designer.Id,
		Name:       "Courtyard House",
		Price:      500,
	})
	purchase := store.addPurchase(&entity.Purchase{
		UserId:        buyer.Id,
		PlanId:        plan.Id,
		Amount:        500,
		PaymentMethod: entity.PaymentMethodPaystack,
		PaymentStatus: entity.PaymentStatusPending,
		TransactionId: "PH-ref-1",
		Selection:     entity.FullPlan(),
		Metadata:      entity.PurchaseMetadata{References: []string{"PH-ref-1"}, LastReference: "PH-ref-1"},
	})

	publisher := &recordingPublisher{}
	gateways := payment.NewRegistry(newFakeGateway(payment.ProviderPaystack), newFakeGateway(payment.ProviderMidtrans))
	svc := NewCompletionService(store, gateways, memory.NewPlanCache(time.Minute), publisher, logger.NewNopLogger()).(*completionService)
	svc.now = func() time.Time { return time.Date(2026, 5, 4, 12, 30, 0, 0, time.UTC) }

	return &completionFixture{
		store:     store,
		publisher: publisher,
		service:   svc,
		buyer:     buyer,
		plan:      plan,
		purchase:  purchase,
	}
}

func (f *completionFixture) echo() payment.Metadata {
	return payment.Metadata{
		PlanID:     f.plan.Id.String(),
		UserID:     f.buyer.Id.String(),
		PurchaseID: f.purchase.Id.String(),
	}
}

func TestComplete_SettlesPurchase(t *testing.T) {
	f := newCompletionFixture(t)

	res, err := f.service.Complete(context.Background(), "PH-ref-1", paidTransaction("PH-ref-1", 50000, "NGN", f.echo()))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.Code)
	assert.False(t, res.Already)
	assert.Equal(t, "ORD-20260504-"+orderSuffix(f.purchase), res.OrderId)

	stored := f.store.purchase(f.purchase.Id)
	assert.True(t, stored.IsCompleted())
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, stored.Metadata.HasReference("PH-ref-1"))
	assert.Equal(t, 1, f.store.plans[f.plan.Id].SalesCount)

	require.Len(t, f.publisher.completed, 1)
	evt := f.publisher.completed[0]
	assert.Equal(t, f.buyer.Email, evt.Email)
	assert.Equal(t, f.plan.DesignerId, evt.DesignerId)
	assert.Equal(t, "Courtyard House", evt.PlanName)
	assert.Equal(t, "NGN", evt.Currency)
}

func TestComplete_SettlementCurrencyFollowsProvider(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		currency string
		code     int
		message  string
	}{
		{name: "midtrans settles in IDR", method: entity.PaymentMethodMidtrans, currency: "IDR", code: http.StatusOK},
		{name: "midtrans paid in NGN", method: entity.PaymentMethodMidtrans, currency: "NGN", code: http.StatusConflict, message: "currency mismatch"},
		{name: "paystack paid in IDR", method: entity.PaymentMethodPaystack, currency: "IDR", code: http.StatusConflict, message: "currency mismatch"},
		{name: "provider no longer configured", method: "flutterwave", currency: "NGN", code: http.StatusConflict, message: "payment provider not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCompletionFixture(t)
			f.store.purchase(f.purchase.Id).PaymentMethod = tt.method

			res, err := f.service.Complete(context.Background(), "PH-ref-1", paidTransaction("PH-ref-1", 50000, tt.currency, f.echo()))
			if tt.code == http.StatusOK {
				require.NoError(t, err)
				assert.False(t, res.Already)
				require.Len(t, f.publisher.completed, 1)
				assert.Equal(t, tt.currency, f.publisher.completed[0].Currency)
				return
			}

			require.Error(t, err)
			appErr, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.message, appErr.Message)
			assert.False(t, f.store.purchase(f.purchase.Id).IsCompleted())
		})
	}
}

func orderSuffix(p *entity.Purchase) string {
	id := entity.NewOrderID(p.Id, time.Time{})
	return id[len(id)-8:]
}

func TestComplete_IsIdempotent(t *testing.T) {
	f := newCompletionFixture(t)
	txn := paidTransaction("PH-ref-1", 50000, "NGN", f.echo())

	first, err := f.service.Complete(context.Background(), "PH-ref-1", txn)
	require.NoError(t, err)

	second, err := f.service.Complete(context.Background(), "PH-ref-1", txn)
	require.NoError(t, err)

	assert.True(t, second.Already)
	assert.Equal(t, first.OrderId, second.OrderId)
	assert.Equal(t, 1, f.store.plans[f.plan.Id].SalesCount)
	assert.Len(t, f.publisher.completed, 1)
}

func TestComplete_ConcurrentTriggersIncrementOnce(t *testing.T) {
	f := newCompletionFixture(t)
	txn := paidTransaction("PH-ref-1", 50000, "NGN", f.echo())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Complete(context.Background(), "PH-ref-1", txn)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.store.plans[f.plan.Id].SalesCount)
	assert.Len(t, f.publisher.completed, 1)
}

func TestComplete_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		txn       func(f *completionFixture) *payment.Transaction
		code      int
		message   string
	}{
		{
			name:      "not successful",
			reference: "PH-ref-1",
			txn: func(f *completionFixture) *payment.Transaction {
				txn := paidTransaction("PH-ref-1", 50000, "NGN", f.echo())
				txn.Status = payment.StatusFailed
				return txn
			},
			code:    http.StatusBadRequest,
			message: "payment not successful",
		},
		{
			name:      "not yet settled",
			reference: "PH-ref-1",
			txn: func(f *completionFixture) *payment.Transaction {
				txn := paidTransaction("PH-ref-1", 50000, "NGN", f.echo())
				txn.PaidAt = nil
				return txn
			},
			code:    http.StatusAccepted,
			message: "payment not yet settled",
		},
		{
			name:      "unknown reference",
			reference: "PH-missing",
			txn: func(f *completionFixture) *payment.Transaction {
				return paidTransaction("PH-missing", 50000, "NGN", f.echo())
			},
			code:    http.StatusNotFound,
			message: "purchase not found",
		},
		{
			name:      "plan echo mismatch",
			reference: "PH-ref-1",
			txn: func(f *completionFixture) *payment.Transaction {
				meta := f.echo()
				meta.PlanID = f.buyer.Id.String()
				return paidTransaction("PH-ref-1", 50000, "NGN", meta)
			},
			code:    http.StatusConflict,
			message: "payment metadata mismatch",
		},
		{
			name:      "currency mismatch",
			reference: "PH-ref-1",
			txn: func(f *completionFixture) *payment.Transaction {
				return paidTransaction("PH-ref-1", 50000, "USD", f.echo())
			},
			code:    http.StatusConflict,
			message: "currency mismatch",
		},
		{
			name:      "one kobo short",
			reference: "PH-ref-1",
			txn: func(f *completionFixture) *payment.Transaction {
				return paidTransaction("PH-ref-1", 49999, "NGN", f.echo())
			},
			code:    http.StatusConflict,
			message: "amount mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCompletionFixture(t)

			res, err := f.service.Complete(context.Background(), tt.reference, tt.txn(f))
			require.Error(t, err)
			assert.Nil(t, res)

			appErr, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.message, appErr.Message)

			assert.False(t, f.store.purchase(f.purchase.Id).IsCompleted())
			assert.Zero(t, f.store.plans[f.plan.Id].SalesCount)
			assert.Empty(t, f.publisher.completed)
		})
	}
}

func TestComplete_EmptyEchoIsIgnored(t *testing.T) {
	f := newCompletionFixture(t)

	res, err := f.service.Complete(context.Background(), "PH-ref-1", paidTransaction("PH-ref-1", 50000, "ngn", payment.Metadata{}))
	require.NoError(t, err)
	assert.False(t, res.Already)
}

func TestComplete_ResolvesHistoricalReference(t *testing.T) {
	f := newCompletionFixture(t)
	stored := f.store.purchase(f.purchase.Id)
	stored.Metadata.AddReference("PH-ref-2")
	stored.TransactionId = "PH-ref-2"

	res, err := f.service.Complete(context.Background(), "PH-ref-1", paidTransaction("PH-ref-1", 50000, "NGN", f.echo()))
	require.NoError(t, err)
	assert.False(t, res.Already)

	after := f.store.purchase(f.purchase.Id)
	assert.Equal(t, "PH-ref-2", after.TransactionId)
	assert.Equal(t, "PH-ref-1", after.Metadata.LastReference)
	assert.ElementsMatch(t, []string{"PH-ref-1", "PH-ref-2"}, after.Metadata.References)
}
