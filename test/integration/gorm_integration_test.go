package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"planhub-be/internal/entity"
	"planhub-be/internal/repository/contract"
	"planhub-be/internal/repository/specification"
	"planhub-be/internal/repository/unitofwork"
	"planhub-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err, "connect to DB")
	require.NoError(t, database.Migrate(db), "migrate")
	return db
}

func seedPlan(t *testing.T, ctx context.Context, uow unitofwork.UnitOfWork) (*entity.User, *entity.User, *entity.Plan) {
	t.Helper()
	now := time.Now()
	designer := &entity.User{
		Id:        uuid.New(),
		Email:     "designer-" + uuid.NewString() + "@example.com",
		FullName:  "Integration Designer",
		Role:      entity.UserRoleDesigner,
		Status:    entity.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	buyer := &entity.User{
		Id:        uuid.New(),
		Email:     "buyer-" + uuid.NewString() + "@example.com",
		FullName:  "Integration Buyer",
		Role:      entity.UserRoleCustomer,
		Status:    entity.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, uow.UserRepository().Create(ctx, designer))
	require.NoError(t, uow.UserRepository().Create(ctx, buyer))

	plan := &entity.Plan{
		Id:                uuid.New(),
		DesignerId:        designer.Id,
		Name:              "Integration Plan",
		Price:             500,
		DeliverablePrices: map[string]float64{"architectural": 300, "structural": 200, "renders": 0},
		Status:            entity.PlanStatusAvailable,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, uow.PlanRepository().Create(ctx, plan))
	return designer, buyer, plan
}

func TestGormConnection(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	uow := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(ctx)

	_, buyer, plan := seedPlan(t, ctx, uow)

	purchase := &entity.Purchase{
		Id:            uuid.New(),
		UserId:        buyer.Id,
		PlanId:        plan.Id,
		Amount:        200,
		PaymentMethod: entity.PaymentMethodPaystack,
		PaymentStatus: entity.PaymentStatusPending,
		TransactionId: "PH-int-" + uuid.NewString(),
		Selection:     entity.Deliverables("structural"),
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	oldRef := "PH-int-old-" + uuid.NewString()
	purchase.Metadata.AddReference(oldRef)
	purchase.Metadata.AddReference(purchase.TransactionId)
	require.NoError(t, uow.PurchaseRepository().Create(ctx, purchase))

	t.Run("Resolve by historical reference", func(t *testing.T) {
		found, err := uow.PurchaseRepository().FindOne(ctx, specification.ByReference{Reference: oldRef})
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, purchase.Id, found.Id)
		assert.Equal(t, []string{"structural"}, found.Selection.Keys())
	})

	t.Run("MarkCompleted flips once", func(t *testing.T) {
		now := time.Now()
		purchase.CompletedAt = &now
		purchase.Metadata.OrderID = entity.NewOrderID(purchase.Id, now)

		first, err := uow.PurchaseRepository().MarkCompleted(ctx, purchase)
		require.NoError(t, err)
		assert.True(t, first)

		second, err := uow.PurchaseRepository().MarkCompleted(ctx, purchase)
		require.NoError(t, err)
		assert.False(t, second)

		stored, err := uow.PurchaseRepository().FindOne(ctx, specification.ByID{ID: purchase.Id})
		require.NoError(t, err)
		assert.True(t, stored.IsCompleted())
		assert.Equal(t, purchase.Metadata.OrderID, stored.Metadata.OrderID)
	})

	t.Run("Retry cannot reopen a completed row", func(t *testing.T) {
		retry := *purchase
		retry.TransactionId = "PH-int-retry-" + uuid.NewString()
		retry.UpdatedAt = time.Now()

		swapped, err := uow.PurchaseRepository().RetryPending(ctx, &retry)
		require.NoError(t, err)
		assert.False(t, swapped)

		stored, err := uow.PurchaseRepository().FindOne(ctx, specification.ByID{ID: purchase.Id})
		require.NoError(t, err)
		assert.True(t, stored.IsCompleted())
		assert.Equal(t, purchase.TransactionId, stored.TransactionId)
	})

	t.Run("Download token is consumed once", func(t *testing.T) {
		purchaseId := purchase.Id
		token := &entity.DownloadToken{
			Id:           uuid.New(),
			Token:        uuid.NewString(),
			UserId:       buyer.Id,
			PlanId:       plan.Id,
			PurchaseId:   &purchaseId,
			MaxDownloads: 1,
			ExpiresAt:    time.Now().Add(time.Hour),
			CreatedAt:    time.Now(),
		}
		require.NoError(t, uow.DownloadTokenRepository().Create(ctx, token))

		consumed, err := uow.DownloadTokenRepository().HasConsumed(ctx, purchaseId)
		require.NoError(t, err)
		assert.False(t, consumed)

		ok, err := uow.DownloadTokenRepository().Consume(ctx, token.Id, time.Now())
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = uow.DownloadTokenRepository().Consume(ctx, token.Id, time.Now())
		require.NoError(t, err)
		assert.False(t, ok)

		consumed, err = uow.DownloadTokenRepository().HasConsumed(ctx, purchaseId)
		require.NoError(t, err)
		assert.True(t, consumed)
	})

	t.Run("Second live token for a purchase is rejected", func(t *testing.T) {
		purchaseId := purchase.Id
		newToken := func() *entity.DownloadToken {
			return &entity.DownloadToken{
				Id:           uuid.New(),
				Token:        uuid.NewString(),
				UserId:       buyer.Id,
				PlanId:       plan.Id,
				PurchaseId:   &purchaseId,
				MaxDownloads: 1,
				ExpiresAt:    time.Now().Add(time.Hour),
				CreatedAt:    time.Now(),
			}
		}
		require.NoError(t, uow.DownloadTokenRepository().Create(ctx, newToken()))
		err := uow.DownloadTokenRepository().Create(ctx, newToken())
		assert.ErrorIs(t, err, contract.ErrLiveTokenExists)
	})

	t.Run("Sales count increments", func(t *testing.T) {
		require.NoError(t, uow.PlanRepository().IncrementSalesCount(ctx, plan.Id))
		stored, err := uow.PlanRepository().FindOne(ctx, specification.ByID{ID: plan.Id})
		require.NoError(t, err)
		assert.Equal(t, 1, stored.SalesCount)
	})
}
