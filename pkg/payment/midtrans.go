package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

const ProviderMidtrans = "midtrans"

// Midtrans reports local timestamps in Western Indonesia Time.
var jakarta = time.FixedZone("WIB", 7*60*60)

type MidtransGateway struct {
	serverKey   string
	currency    string
	createSnap  func(req *snap.Request) (*snap.Response, *midtrans.Error)
	checkStatus func(orderID string) (*midtransStatus, error)
}

func NewMidtransGateway(serverKey, currency string, isProduction bool) *MidtransGateway {
	env := midtrans.Sandbox
	if isProduction {
		env = midtrans.Production
	}

	if currency == "" {
		currency = "IDR"
	}

	var sClient snap.Client
	sClient.New(serverKey, env)

	var cClient coreapi.Client
	cClient.New(serverKey, env)

	return &MidtransGateway{
		serverKey:  serverKey,
		currency:   strings.ToUpper(currency),
		createSnap: sClient.CreateTransaction,
		checkStatus: func(orderID string) (*midtransStatus, error) {
			res, midErr := cClient.CheckTransaction(orderID)
			if midErr != nil {
				return nil, errors.New(midErr.GetMessage())
			}
			return &midtransStatus{
				OrderID:           res.OrderID,
				StatusCode:        res.StatusCode,
				GrossAmount:       res.GrossAmount,
				Currency:          res.Currency,
				TransactionStatus: res.TransactionStatus,
				FraudStatus:       res.FraudStatus,
				TransactionTime:   res.TransactionTime,
				SettlementTime:    res.SettlementTime,
				CustomField1:      res.CustomField1,
				CustomField2:      res.CustomField2,
				CustomField3:      res.CustomField3,
			}, nil
		},
	}
}

func (g *MidtransGateway) Name() string {
	return ProviderMidtrans
}

func (g *MidtransGateway) Currency() string {
	return g.currency
}

// midtransStatus is the subset shared by status responses and HTTP notifications.
type midtransStatus struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	Currency          string `json:"currency"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	TransactionTime   string `json:"transaction_time"`
	SettlementTime    string `json:"settlement_time"`
	SignatureKey      string `json:"signature_key"`
	CustomField1      string `json:"custom_field1"`
	CustomField2      string `json:"custom_field2"`
	CustomField3      string `json:"custom_field3"`
}

func (g *MidtransGateway) Initialize(ctx context.Context, req InitRequest) (*InitResult, error) {
	// Midtrans takes whole major units; truncating cents would settle for
	// less than the purchase row and never pass the amount check.
	if req.AmountMinor%100 != 0 {
		return nil, fmt.Errorf("%w: %d minor units", ErrUnsupportedAmount, req.AmountMinor)
	}
	gross := req.AmountMinor / 100

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: gross,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.CustomerName,
			Email: req.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    req.Metadata.PlanID,
				Name:  truncate(req.ItemName, 50),
				Price: gross,
				Qty:   1,
			},
		},
		EnabledPayments: snap.AllSnapPaymentType,
		CustomField1:    req.Metadata.PlanID,
		CustomField2:    req.Metadata.UserID,
		CustomField3:    req.Metadata.PurchaseID,
	}
	if req.CallbackURL != "" {
		snapReq.Callbacks = &snap.Callbacks{Finish: req.CallbackURL}
	}

	resp, midErr := g.createSnap(snapReq)
	if midErr != nil {
		return nil, fmt.Errorf("midtrans error: %v", midErr.GetMessage())
	}

	return &InitResult{
		Reference:        req.Reference,
		AuthorizationURL: resp.RedirectURL,
		AccessCode:       resp.Token,
	}, nil
}

func (g *MidtransGateway) Verify(ctx context.Context, reference string) (*Transaction, error) {
	status, err := g.checkStatus(reference)
	if err != nil {
		return nil, fmt.Errorf("midtrans status check failed: %w", err)
	}
	if status.OrderID == "" {
		status.OrderID = reference
	}
	return g.normalize(status), nil
}

func (g *MidtransGateway) ParseWebhook(body []byte, _ HeaderGetter) (*WebhookEvent, error) {
	var n midtransStatus
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("decode midtrans notification: %w", err)
	}

	expected := MidtransSignature(n.OrderID, n.StatusCode, n.GrossAmount, g.serverKey)
	if g.serverKey == "" || !hmac.Equal([]byte(expected), []byte(strings.ToLower(n.SignatureKey))) {
		return nil, ErrInvalidSignature
	}

	tx := g.normalize(&n)
	return &WebhookEvent{
		Event:       n.TransactionStatus,
		IsCharge:    tx.Status == StatusSuccess,
		Transaction: tx,
	}, nil
}

// MidtransSignature is hex(SHA512(order_id + status_code + gross_amount + server_key)).
func MidtransSignature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func (g *MidtransGateway) normalize(s *midtransStatus) *Transaction {
	currency := strings.ToUpper(s.Currency)
	if currency == "" {
		currency = g.currency
	}

	tx := &Transaction{
		Reference: s.OrderID,
		RawStatus: s.TransactionStatus,
		Status:    normalizeMidtransStatus(s.TransactionStatus, s.FraudStatus),
		Currency:  currency,
		Metadata:  Metadata{PlanID: s.CustomField1, UserID: s.CustomField2, PurchaseID: s.CustomField3},
	}
	if minor, err := parseDecimalMinor(s.GrossAmount); err == nil {
		tx.AmountMinor = minor
	}

	if tx.Status == StatusSuccess {
		paidAt := s.SettlementTime
		if paidAt == "" && s.TransactionStatus == "capture" {
			paidAt = s.TransactionTime
		}
		if t, err := time.ParseInLocation("2006-01-02 15:04:05", paidAt, jakarta); err == nil {
			utc := t.UTC()
			tx.PaidAt = &utc
		}
	}
	return tx
}

func normalizeMidtransStatus(status, fraud string) string {
	switch status {
	case "settlement":
		return StatusSuccess
	case "capture":
		if fraud == "" || fraud == "accept" {
			return StatusSuccess
		}
		return StatusPending
	case "pending", "authorize":
		return StatusPending
	case "deny", "cancel", "expire", "failure", "refund", "partial_refund":
		return StatusFailed
	default:
		return status
	}
}

// parseDecimalMinor turns "50000.00" into 5000000 without float rounding.
func parseDecimalMinor(amount string) (int64, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return 0, errors.New("empty amount")
	}
	whole, frac, _ := strings.Cut(amount, ".")
	if len(frac) > 2 {
		if strings.Trim(frac[2:], "0") != "" {
			return 0, fmt.Errorf("amount %q has sub-minor precision", amount)
		}
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}
	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}
	minor, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, err
	}
	return major*100 + minor, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
