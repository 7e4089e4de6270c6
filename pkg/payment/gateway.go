// Package payment normalizes payment providers behind one Gateway interface.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusSuccess = "success"
	StatusPending = "pending"
	StatusFailed  = "failed"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUnknownProvider  = errors.New("unknown payment provider")
	// ErrUnsupportedAmount means the provider cannot charge the amount
	// exactly, e.g. cents on a whole-unit currency.
	ErrUnsupportedAmount = errors.New("amount not supported by payment provider")
)

// HeaderGetter reads one request header; fiber's ctx.Get satisfies it.
type HeaderGetter func(key string) string

// Metadata is what the provider echoes back from initialization.
// Either field may be empty when the provider drops it.
type Metadata struct {
	PlanID     string `json:"plan_id,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	PurchaseID string `json:"purchase_id,omitempty"`
}

// Transaction is a provider's view of one payment, normalized.
type Transaction struct {
	Reference   string
	Status      string
	RawStatus   string
	PaidAt      *time.Time
	AmountMinor int64
	Currency    string
	Metadata    Metadata
}

func (t *Transaction) Successful() bool {
	return t.Status == StatusSuccess
}

type InitRequest struct {
	Reference    string
	Email        string
	CustomerName string
	ItemName     string
	AmountMinor  int64
	Currency     string
	CallbackURL  string
	Metadata     Metadata
}

type InitResult struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
}

type WebhookEvent struct {
	Event       string
	IsCharge    bool
	Transaction *Transaction
}

type Gateway interface {
	Name() string
	// Currency is the settlement currency every transaction is checked against.
	Currency() string
	Initialize(ctx context.Context, req InitRequest) (*InitResult, error)
	Verify(ctx context.Context, reference string) (*Transaction, error)
	ParseWebhook(body []byte, header HeaderGetter) (*WebhookEvent, error)
}

// Registry resolves gateways by name.
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway)}
	for _, g := range gateways {
		if g != nil {
			r.gateways[g.Name()] = g
		}
	}
	return r
}

func (r *Registry) Get(name string) (Gateway, error) {
	g, ok := r.gateways[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return g, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	return names
}

// ToMinorUnits converts a decimal major amount to integer minor units.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func NewReference() string {
	return "PH-" + uuid.NewString()
}
