package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"planhub-be/internal/dto"
	"planhub-be/internal/model"
	"planhub-be/internal/pkg/logger"
	"planhub-be/internal/repository"
	"planhub-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotificationRepo struct {
	mu      sync.Mutex
	saved   []model.Notification
	admins  []uuid.UUID
	missing bool
}

var _ repository.NotificationRepository = (*fakeNotificationRepo)(nil)

func (r *fakeNotificationRepo) CreateNotification(ctx context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	r.saved = append(r.saved, *n)
	return nil
}

func (r *fakeNotificationRepo) GetNotificationsByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notification
	for _, n := range r.saved {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeNotificationRepo) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (r *fakeNotificationRepo) MarkAsRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	if r.missing {
		return repository.ErrNotificationNotFound
	}
	return nil
}

func (r *fakeNotificationRepo) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func (r *fakeNotificationRepo) GetUserIDsByRole(ctx context.Context, role string) ([]uuid.UUID, error) {
	return r.admins, nil
}

type recordingDelivery struct {
	sent       map[uuid.UUID][]model.Notification
	broadcasts []model.Notification
}

func (d *recordingDelivery) Send(userID uuid.UUID, n model.Notification) {
	if d.sent == nil {
		d.sent = make(map[uuid.UUID][]model.Notification)
	}
	d.sent[userID] = append(d.sent[userID], n)
}

func (d *recordingDelivery) Broadcast(n model.Notification) {
	d.broadcasts = append(d.broadcasts, n)
}

func TestHandleEvent_PurchaseCompleted(t *testing.T) {
	repo := &fakeNotificationRepo{}
	delivery := &recordingDelivery{}
	mail := &recordingMailQueue{}
	svc := NewNotificationService(repo, nil, delivery, mail, logger.NewNopLogger())

	buyer, designer, purchase := uuid.New(), uuid.New(), uuid.New()
	err := svc.HandleEvent(context.Background(), events.BaseEvent{
		Type: events.PurchaseCompleted,
		Data: map[string]interface{}{
			"purchase_id": purchase.String(),
			"user_id":     buyer.String(),
			"designer_id": designer.String(),
			"plan_name":   "Garden Villa",
			"order_id":    "ORD-20260504-ABCDEF12",
			"amount":      500.0,
			"currency":    "NGN",
			"entitlement": "full plan",
			"email":       "buyer@example.com",
			"full_name":   "Ada Obi",
			"entity_type": "purchase",
			"entity_id":   purchase.String(),
		},
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)

	require.Len(t, repo.saved, 2)
	assert.Len(t, delivery.sent[buyer], 1)
	assert.Len(t, delivery.sent[designer], 1)

	for _, n := range repo.saved {
		assert.Equal(t, "purchase", n.EntityType)
		require.NotNil(t, n.EntityID)
		assert.Equal(t, purchase, *n.EntityID)
		assert.NotContains(t, string(n.Metadata), "buyer@example.com")
	}

	require.Len(t, mail.payloads, 1)
	var msg dto.MailMessage
	require.NoError(t, json.Unmarshal(mail.payloads[0], &msg))
	assert.Equal(t, dto.MailKindPurchaseReceipt, msg.Kind)
	assert.Equal(t, "buyer@example.com", msg.To)
	assert.Equal(t, "ORD-20260504-ABCDEF12", msg.OrderId)
	assert.InDelta(t, 500.0, msg.Amount, 0.001)
}

func TestHandleEvent_AdminTargets(t *testing.T) {
	admins := []uuid.UUID{uuid.New(), uuid.New()}
	repo := &fakeNotificationRepo{admins: admins}
	delivery := &recordingDelivery{}
	svc := NewNotificationService(repo, nil, delivery, nil, logger.NewNopLogger())

	err := svc.HandleEvent(context.Background(), events.BaseEvent{
		Type: events.PlanPublished,
		Data: map[string]interface{}{"plan_name": "Garden Villa", "plan_id": uuid.NewString()},
	})
	require.NoError(t, err)

	require.Len(t, repo.saved, 2)
	for _, id := range admins {
		require.Len(t, delivery.sent[id], 1)
		assert.Contains(t, delivery.sent[id][0].Message, "Garden Villa")
	}
}

func TestHandleEvent_BroadcastAndUnknown(t *testing.T) {
	repo := &fakeNotificationRepo{}
	delivery := &recordingDelivery{}
	svc := NewNotificationService(repo, nil, delivery, nil, logger.NewNopLogger())

	require.NoError(t, svc.HandleEvent(context.Background(), events.BaseEvent{
		Type: SystemBroadcast,
		Data: map[string]interface{}{"title": "Maintenance", "message": "Back soon"},
	}))
	require.NoError(t, svc.HandleEvent(context.Background(), events.BaseEvent{Type: events.DownloadRedeemed}))

	require.Len(t, delivery.broadcasts, 1)
	assert.Equal(t, "Maintenance", delivery.broadcasts[0].Title)
	assert.Empty(t, repo.saved)
}

func TestStart_WithoutSubscriber(t *testing.T) {
	svc := NewNotificationService(&fakeNotificationRepo{}, nil, nil, nil, logger.NewNopLogger())
	assert.NoError(t, svc.Start(context.Background()))
}

func TestMarkAsRead_NotFound(t *testing.T) {
	svc := NewNotificationService(&fakeNotificationRepo{missing: true}, nil, nil, nil, logger.NewNopLogger())

	err := svc.MarkAsRead(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
}
