package service

import (
	"context"
	"encoding/json"

	"planhub-be/internal/dto"
	"planhub-be/internal/pkg/logger"
	"planhub-be/internal/pkg/mailer"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the mail queue. Mail is a side channel, so a send
// failure is logged and the message acked.
type consumerService struct {
	pubSub       *gochannel.GoChannel
	topicName    string
	emailService mailer.IEmailService
	logger       logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	emailService mailer.IEmailService,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:       pubSub,
		topicName:    topicName,
		emailService: emailService,
		logger:       logger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	var payload dto.MailMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("MAIL_QUEUE", "Failed to unmarshal mail message", map[string]interface{}{"error": err.Error()})
		msg.Ack()
		return
	}

	var err error
	switch payload.Kind {
	case dto.MailKindDownloadLink:
		err = cs.emailService.SendDownloadLink(payload.To, payload.Name, payload.PlanName, payload.Link, payload.ExpiresAt)
	case dto.MailKindPurchaseReceipt:
		err = cs.emailService.SendPurchaseReceipt(payload.To, payload.Name, payload.PlanName, payload.OrderId, payload.Amount, payload.Currency, payload.Deliverables)
	default:
		cs.logger.Warn("MAIL_QUEUE", "Unknown mail kind", map[string]interface{}{"kind": payload.Kind})
	}

	if err != nil {
		cs.logger.Warn("MAIL_QUEUE", "Mail delivery failed", map[string]interface{}{
			"kind":  payload.Kind,
			"to":    payload.To,
			"error": err.Error(),
		})
	}
	msg.Ack()
}

// enqueueMail is best effort; callers never fail because of it.
func enqueueMail(ctx context.Context, publisher IPublisherService, log logger.ILogger, mail dto.MailMessage) {
	if publisher == nil {
		return
	}
	payload, err := json.Marshal(mail)
	if err != nil {
		log.Error("MAIL_QUEUE", "Failed to encode mail message", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := publisher.Publish(ctx, payload); err != nil {
		log.Warn("MAIL_QUEUE", "Failed to enqueue mail", map[string]interface{}{"kind": mail.Kind, "error": err.Error()})
	}
}
