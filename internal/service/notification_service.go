package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"planhub-be/internal/apperr"
	"planhub-be/internal/dto"
	"planhub-be/internal/model"
	"planhub-be/internal/pkg/logger"
	"planhub-be/internal/repository"
	"planhub-be/pkg/events"
	pktNats "planhub-be/pkg/nats"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const SystemBroadcast = "SYSTEM_BROADCAST"

// NotificationDelivery pushes real-time updates. The websocket Hub
// implements it.
type NotificationDelivery interface {
	Send(userID uuid.UUID, notification model.Notification)
	Broadcast(notification model.Notification)
}

const (
	targetSelf     = "SELF"
	targetDesigner = "DESIGNER"
	targetAdmin    = "ADMIN"
)

type notificationRule struct {
	Target   string
	Title    string
	Template string
}

// notificationRules maps event types to inbox entries. Templates use
// {key} placeholders filled from the event payload.
var notificationRules = map[string][]notificationRule{
	events.PurchaseCompleted: {
		{Target: targetSelf, Title: "Purchase confirmed", Template: "Your purchase of {plan_name} is complete. Order {order_id}."},
		{Target: targetDesigner, Title: "New sale", Template: "{plan_name} was just purchased ({entitlement})."},
	},
	events.UserRegistered: {
		{Target: targetAdmin, Title: "New user", Template: "{full_name} registered as {role}."},
	},
	events.PlanPublished: {
		{Target: targetAdmin, Title: "Plan published", Template: "{plan_name} is now available in the catalog."},
	},
}

type NotificationService struct {
	repo       repository.NotificationRepository
	subscriber *pktNats.Subscriber
	delivery   NotificationDelivery
	mailQueue  IPublisherService
	logger     logger.ILogger
}

func NewNotificationService(
	repo repository.NotificationRepository,
	sub *pktNats.Subscriber,
	delivery NotificationDelivery,
	mailQueue IPublisherService,
	log logger.ILogger,
) *NotificationService {
	return &NotificationService{
		repo:       repo,
		subscriber: sub,
		delivery:   delivery,
		mailQueue:  mailQueue,
		logger:     log,
	}
}

// Start attaches a durable consumer to every domain event.
func (s *NotificationService) Start(ctx context.Context) error {
	if s.subscriber == nil {
		s.logger.Warn("NOTIFICATION", "No event subscriber configured, notifications disabled", nil)
		return nil
	}
	if err := s.subscriber.Subscribe(ctx, pktNats.Subject(">"), "notif-service-worker", s.HandleEvent); err != nil {
		return fmt.Errorf("start notification subscriber: %w", err)
	}
	s.logger.Info("NOTIFICATION", "Notification service listening", map[string]interface{}{"subject": pktNats.Subject(">")})
	return nil
}

func (s *NotificationService) HandleEvent(ctx context.Context, event events.BaseEvent) error {
	typeCode := strings.TrimPrefix(event.EventType(), "events.")

	if typeCode == SystemBroadcast {
		if s.delivery != nil {
			s.delivery.Broadcast(model.Notification{
				ID:        uuid.New(),
				TypeCode:  SystemBroadcast,
				Title:     event.String("title"),
				Message:   event.String("message"),
				CreatedAt: time.Now(),
			})
		}
		return nil
	}

	if typeCode == events.PurchaseCompleted {
		s.enqueueReceipt(ctx, event)
	}

	rules, ok := notificationRules[typeCode]
	if !ok {
		return nil
	}

	for _, rule := range rules {
		recipients, err := s.resolveRecipients(ctx, rule, event)
		if err != nil {
			s.logger.Error("NOTIFICATION", "Failed to resolve recipients", map[string]interface{}{"type": typeCode, "error": err.Error()})
			return err
		}

		for _, userID := range recipients {
			notif := buildNotification(userID, typeCode, rule, event)
			if err := s.repo.CreateNotification(ctx, &notif); err != nil {
				s.logger.Error("NOTIFICATION", "Failed to save notification", map[string]interface{}{"user_id": userID, "error": err.Error()})
				continue
			}
			if s.delivery != nil {
				s.delivery.Send(userID, notif)
			}
		}
	}
	return nil
}

func (s *NotificationService) enqueueReceipt(ctx context.Context, event events.BaseEvent) {
	email := event.String("email")
	if email == "" {
		return
	}
	amount, _ := event.Payload()["amount"].(float64)
	enqueueMail(ctx, s.mailQueue, s.logger, dto.MailMessage{
		Kind:         dto.MailKindPurchaseReceipt,
		To:           email,
		Name:         event.String("full_name"),
		PlanName:     event.String("plan_name"),
		OrderId:      event.String("order_id"),
		Amount:       amount,
		Currency:     event.String("currency"),
		Deliverables: event.String("entitlement"),
	})
}

func parseUserID(event events.BaseEvent, key string) []uuid.UUID {
	uid, err := uuid.Parse(event.String(key))
	if err != nil || uid == uuid.Nil {
		return nil
	}
	return []uuid.UUID{uid}
}

func (s *NotificationService) resolveRecipients(ctx context.Context, rule notificationRule, event events.BaseEvent) ([]uuid.UUID, error) {
	switch rule.Target {
	case targetSelf:
		return parseUserID(event, "user_id"), nil
	case targetDesigner:
		return parseUserID(event, "designer_id"), nil
	case targetAdmin:
		return s.repo.GetUserIDsByRole(ctx, "admin")
	}
	return nil, nil
}

func buildNotification(userID uuid.UUID, typeCode string, rule notificationRule, event events.BaseEvent) model.Notification {
	payload := event.Payload()

	msg := rule.Template
	for k, v := range payload {
		msg = strings.ReplaceAll(msg, "{"+k+"}", fmt.Sprintf("%v", v))
	}

	entityType := event.String("entity_type")
	var entityID *uuid.UUID
	if eid, err := uuid.Parse(event.String("entity_id")); err == nil {
		entityID = &eid
	}

	metaMap := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		// Contact details stay out of other users' inboxes.
		if k == "email" {
			continue
		}
		metaMap[k] = v
	}
	if entityType != "" && entityID != nil {
		metaMap["action_url"] = fmt.Sprintf("/%ss/%s", entityType, entityID.String())
	}
	metaJSON, _ := json.Marshal(metaMap)

	return model.Notification{
		ID:         uuid.New(),
		UserID:     userID,
		TypeCode:   typeCode,
		Title:      rule.Title,
		Message:    msg,
		Metadata:   datatypes.JSON(metaJSON),
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now(),
	}
}

func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, int64, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.GetNotificationsByUserID(ctx, userID, limit, offset)
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}

func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.MarkAsRead(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return apperr.NotFound("notification not found")
		}
		return err
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}
