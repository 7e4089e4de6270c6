package events

import (
	"context"
	"time"

	"planhub-be/internal/pkg/logger"
	pkgEvents "planhub-be/pkg/events"
	pktNats "planhub-be/pkg/nats"

	"github.com/google/uuid"
)

// Publisher abstracts domain event publishing. Every method is best effort:
// failures are logged, never returned.
type Publisher interface {
	PublishUserRegistered(ctx context.Context, userId uuid.UUID, email, fullName, role string)
	PublishPlanPublished(ctx context.Context, planId, designerId uuid.UUID, planName string)
	PublishPurchaseInitiated(ctx context.Context, purchaseId, userId, planId uuid.UUID, reference string, amount float64)
	PublishPurchaseCompleted(ctx context.Context, evt PurchaseCompleted)
	PublishDownloadIssued(ctx context.Context, userId, planId uuid.UUID, purchaseId *uuid.UUID)
	PublishDownloadRedeemed(ctx context.Context, userId, planId uuid.UUID, files int)
}

type PurchaseCompleted struct {
	PurchaseId  uuid.UUID
	UserId      uuid.UUID
	PlanId      uuid.UUID
	DesignerId  uuid.UUID
	PlanName    string
	OrderId     string
	Reference   string
	Amount      float64
	Currency    string
	Entitlement string
	Email       string
	FullName    string
}

type NatsPublisher struct {
	publisher *pktNats.Publisher
	logger    logger.ILogger
}

func NewNatsPublisher(publisher *pktNats.Publisher, logger logger.ILogger) *NatsPublisher {
	return &NatsPublisher{
		publisher: publisher,
		logger:    logger,
	}
}

func (p *NatsPublisher) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if p.publisher == nil {
		return
	}

	evt := pkgEvents.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
	if err := p.publisher.Publish(ctx, evt); err != nil {
		p.logger.Error("EVENTS", "Failed to publish "+eventType+" event", map[string]interface{}{"error": err.Error()})
	}
}

func (p *NatsPublisher) PublishUserRegistered(ctx context.Context, userId uuid.UUID, email, fullName, role string) {
	p.publish(ctx, pkgEvents.UserRegistered, map[string]interface{}{
		"user_id":     userId.String(),
		"email":       email,
		"full_name":   fullName,
		"role":        role,
		"entity_type": "user",
		"entity_id":   userId.String(),
	})
}

func (p *NatsPublisher) PublishPlanPublished(ctx context.Context, planId, designerId uuid.UUID, planName string) {
	p.publish(ctx, pkgEvents.PlanPublished, map[string]interface{}{
		"plan_id":     planId.String(),
		"designer_id": designerId.String(),
		"plan_name":   planName,
		"entity_type": "plan",
		"entity_id":   planId.String(),
	})
}

func (p *NatsPublisher) PublishPurchaseInitiated(ctx context.Context, purchaseId, userId, planId uuid.UUID, reference string, amount float64) {
	p.publish(ctx, pkgEvents.PurchaseInitiated, map[string]interface{}{
		"purchase_id": purchaseId.String(),
		"user_id":     userId.String(),
		"plan_id":     planId.String(),
		"reference":   reference,
		"amount":      amount,
	})
}

func (p *NatsPublisher) PublishPurchaseCompleted(ctx context.Context, evt PurchaseCompleted) {
	p.publish(ctx, pkgEvents.PurchaseCompleted, map[string]interface{}{
		"purchase_id": evt.PurchaseId.String(),
		"user_id":     evt.UserId.String(),
		"plan_id":     evt.PlanId.String(),
		"designer_id": evt.DesignerId.String(),
		"plan_name":   evt.PlanName,
		"order_id":    evt.OrderId,
		"reference":   evt.Reference,
		"amount":      evt.Amount,
		"currency":    evt.Currency,
		"entitlement": evt.Entitlement,
		"email":       evt.Email,
		"full_name":   evt.FullName,
		"entity_type": "purchase",
		"entity_id":   evt.PurchaseId.String(),
	})
}

func (p *NatsPublisher) PublishDownloadIssued(ctx context.Context, userId, planId uuid.UUID, purchaseId *uuid.UUID) {
	data := map[string]interface{}{
		"user_id": userId.String(),
		"plan_id": planId.String(),
	}
	if purchaseId != nil {
		data["purchase_id"] = purchaseId.String()
	}
	p.publish(ctx, pkgEvents.DownloadIssued, data)
}

func (p *NatsPublisher) PublishDownloadRedeemed(ctx context.Context, userId, planId uuid.UUID, files int) {
	p.publish(ctx, pkgEvents.DownloadRedeemed, map[string]interface{}{
		"user_id": userId.String(),
		"plan_id": planId.String(),
		"files":   files,
	})
}
