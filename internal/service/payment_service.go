package service

import (
	"context"
	"errors"
	"net/http"

	"planhub-be/internal/apperr"
	"planhub-be/internal/dto"
	"planhub-be/internal/entity"
	"planhub-be/internal/pkg/logger"
	"planhub-be/internal/repository/unitofwork"
	"planhub-be/pkg/payment"

	"github.com/google/uuid"
)

// IPaymentService adapts the three completion triggers onto the
// completion engine.
type IPaymentService interface {
	HandleWebhook(ctx context.Context, provider string, body []byte, header payment.HeaderGetter) (*dto.CompletionResponse, error)
	VerifyForUser(ctx context.Context, userId uuid.UUID, reference string) (*dto.CompletionResponse, error)
	VerifyForAdmin(ctx context.Context, reference string) (*dto.CompletionResponse, error)
}

type paymentService struct {
	uowFactory unitofwork.RepositoryFactory
	gateways   *payment.Registry
	completion ICompletionService
	logger     logger.ILogger
}

func NewPaymentService(
	uowFactory unitofwork.RepositoryFactory,
	gateways *payment.Registry,
	completion ICompletionService,
	logger logger.ILogger,
) IPaymentService {
	return &paymentService{
		uowFactory: uowFactory,
		gateways:   gateways,
		completion: completion,
		logger:     logger,
	}
}

// HandleWebhook acknowledges soft outcomes and non-charge events so the
// provider stops redelivering them.
func (s *paymentService) HandleWebhook(ctx context.Context, provider string, body []byte, header payment.HeaderGetter) (*dto.CompletionResponse, error) {
	gateway, err := s.gateways.Get(provider)
	if err != nil {
		return nil, apperr.NotFound("unknown payment provider")
	}

	evt, err := gateway.ParseWebhook(body, header)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			s.logger.Warn("PAYMENT", "Rejected webhook with bad signature", map[string]interface{}{"provider": gateway.Name()})
			return nil, apperr.Unauthorized("invalid signature")
		}
		return nil, apperr.BadRequest("malformed webhook payload")
	}

	if !evt.IsCharge || evt.Transaction == nil {
		return &dto.CompletionResponse{Message: "event ignored", Code: http.StatusOK}, nil
	}

	res, err := s.completion.Complete(ctx, evt.Transaction.Reference, evt.Transaction)
	if err != nil {
		if appErr, ok := apperr.As(err); ok && appErr.Soft() {
			return &dto.CompletionResponse{Message: appErr.Message, Code: http.StatusOK, Soft: true}, nil
		}
		s.logger.Warn("PAYMENT", "Webhook completion rejected", map[string]interface{}{
			"provider":  gateway.Name(),
			"reference": evt.Transaction.Reference,
			"error":     err.Error(),
		})
		return nil, err
	}
	return res, nil
}

func (s *paymentService) VerifyForUser(ctx context.Context, userId uuid.UUID, reference string) (*dto.CompletionResponse, error) {
	purchase, err := resolvePurchase(ctx, s.uowFactory.NewUnitOfWork(ctx), reference)
	if err != nil {
		return nil, err
	}
	if purchase.UserId != userId {
		return nil, apperr.Forbidden("purchase does not belong to you")
	}
	return s.verify(ctx, purchase, reference)
}

func (s *paymentService) VerifyForAdmin(ctx context.Context, reference string) (*dto.CompletionResponse, error) {
	purchase, err := resolvePurchase(ctx, s.uowFactory.NewUnitOfWork(ctx), reference)
	if err != nil {
		return nil, err
	}
	return s.verify(ctx, purchase, reference)
}

func (s *paymentService) verify(ctx context.Context, purchase *entity.Purchase, reference string) (*dto.CompletionResponse, error) {
	gateway, err := s.gateways.Get(purchase.PaymentMethod)
	if err != nil {
		return nil, apperr.BadRequest("unsupported payment method")
	}

	txn, err := gateway.Verify(ctx, reference)
	if err != nil {
		s.logger.Error("PAYMENT", "Gateway verification failed", map[string]interface{}{
			"provider":  gateway.Name(),
			"reference": reference,
			"error":     err.Error(),
		})
		return nil, apperr.BadGateway("payment provider unavailable", err)
	}

	return s.completion.Complete(ctx, reference, txn)
}
