package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	ProviderPaystack        = "paystack"
	paystackSignatureHeader = "x-paystack-signature"
	paystackChargeSuccess   = "charge.success"
)

type PaystackGateway struct {
	secretKey string
	baseURL   string
	currency  string
	client    *http.Client
}

func NewPaystackGateway(secretKey, baseURL, currency string) *PaystackGateway {
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	if currency == "" {
		currency = "NGN"
	}
	return &PaystackGateway{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		currency:  strings.ToUpper(currency),
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *PaystackGateway) Name() string {
	return ProviderPaystack
}

func (g *PaystackGateway) Currency() string {
	return g.currency
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitRequest struct {
	Email       string   `json:"email"`
	Amount      int64    `json:"amount"`
	Currency    string   `json:"currency,omitempty"`
	Reference   string   `json:"reference"`
	CallbackURL string   `json:"callback_url,omitempty"`
	Metadata    Metadata `json:"metadata"`
}

type paystackInitData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackTransaction struct {
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	PaidAt    *string         `json:"paid_at"`
	Metadata  json.RawMessage `json:"metadata"`
}

type paystackWebhook struct {
	Event string              `json:"event"`
	Data  paystackTransaction `json:"data"`
}

func (g *PaystackGateway) Initialize(ctx context.Context, req InitRequest) (*InitResult, error) {
	body, err := json.Marshal(paystackInitRequest{
		Email:       req.Email,
		Amount:      req.AmountMinor,
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	var data paystackInitData
	if err := g.do(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return nil, err
	}

	ref := data.Reference
	if ref == "" {
		ref = req.Reference
	}
	return &InitResult{Reference: ref, AuthorizationURL: data.AuthorizationURL, AccessCode: data.AccessCode}, nil
}

func (g *PaystackGateway) Verify(ctx context.Context, reference string) (*Transaction, error) {
	var data paystackTransaction
	if err := g.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &data); err != nil {
		return nil, err
	}
	if data.Reference == "" {
		data.Reference = reference
	}
	return data.normalize(), nil
}

func (g *PaystackGateway) ParseWebhook(body []byte, header HeaderGetter) (*WebhookEvent, error) {
	if !g.validSignature(body, header(paystackSignatureHeader)) {
		return nil, ErrInvalidSignature
	}

	var hook paystackWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("decode paystack webhook: %w", err)
	}

	return &WebhookEvent{
		Event:       hook.Event,
		IsCharge:    hook.Event == paystackChargeSuccess,
		Transaction: hook.Data.normalize(),
	}, nil
}

func (g *PaystackGateway) validSignature(body []byte, signature string) bool {
	if signature == "" || g.secretKey == "" {
		return false
	}
	expected := PaystackSignature(g.secretKey, body)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// PaystackSignature is hex(HMAC-SHA512(secret, body)).
func PaystackSignature(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *PaystackGateway) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("paystack request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("paystack read failed: %w", err)
	}

	var envelope paystackEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("paystack returned status %d with unreadable body", resp.StatusCode)
	}
	if resp.StatusCode >= 300 || !envelope.Status {
		return fmt.Errorf("paystack error (status %d): %s", resp.StatusCode, envelope.Message)
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode paystack data: %w", err)
	}
	return nil
}

func (t paystackTransaction) normalize() *Transaction {
	tx := &Transaction{
		Reference:   t.Reference,
		RawStatus:   t.Status,
		Status:      normalizePaystackStatus(t.Status),
		AmountMinor: t.Amount,
		Currency:    strings.ToUpper(t.Currency),
		Metadata:    decodePaystackMetadata(t.Metadata),
	}
	if t.PaidAt != nil && *t.PaidAt != "" {
		if paidAt, err := time.Parse(time.RFC3339, *t.PaidAt); err == nil {
			tx.PaidAt = &paidAt
		}
	}
	return tx
}

func normalizePaystackStatus(status string) string {
	switch strings.ToLower(status) {
	case "success":
		return StatusSuccess
	case "failed", "abandoned", "reversed":
		return StatusFailed
	case "ongoing", "pending", "processing", "queued":
		return StatusPending
	default:
		return strings.ToLower(status)
	}
}

// Paystack sends metadata as an object, a JSON-encoded string, or "".
func decodePaystackMetadata(raw json.RawMessage) Metadata {
	var meta Metadata
	if len(raw) == 0 {
		return meta
	}
	if err := json.Unmarshal(raw, &meta); err == nil {
		return meta
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil && encoded != "" {
		_ = json.Unmarshal([]byte(encoded), &meta)
	}
	return meta
}
