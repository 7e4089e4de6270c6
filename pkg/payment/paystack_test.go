package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "sk_test_secret"

func headers(m map[string]string) HeaderGetter {
	return func(key string) string { return m[key] }
}

func TestPaystack_Initialize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer "+testSecret, r.Header.Get("Authorization"))

		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, float64(5000000), body["amount"])
		assert.Equal(t, "PH-ref-1", body["reference"])
		assert.Equal(t, "NGN", body["currency"])

		_, _ = w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"PH-ref-1"}}`))
	}))
	defer srv.Close()

	g := NewPaystackGateway(testSecret, srv.URL, "NGN")
	res, err := g.Initialize(context.Background(), InitRequest{
		Reference:   "PH-ref-1",
		Email:       "buyer@example.com",
		AmountMinor: 5000000,
		Currency:    "NGN",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc", res.AuthorizationURL)
	assert.Equal(t, "PH-ref-1", res.Reference)
}

func TestPaystack_InitializeProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"Invalid key"}`))
	}))
	defer srv.Close()

	g := NewPaystackGateway(testSecret, srv.URL, "NGN")
	_, err := g.Initialize(context.Background(), InitRequest{Reference: "x", AmountMinor: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid key")
}

func TestPaystack_Verify(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		wantStatus string
		wantPaid   bool
		wantPlan   string
	}{
		{
			name:       "settled with object metadata",
			data:       `{"reference":"PH-1","status":"success","amount":5000000,"currency":"ngn","paid_at":"2026-03-01T10:00:00.000Z","metadata":{"plan_id":"p1","user_id":"u1"}}`,
			wantStatus: StatusSuccess,
			wantPaid:   true,
			wantPlan:   "p1",
		},
		{
			name:       "success without paid_at",
			data:       `{"reference":"PH-1","status":"success","amount":5000000,"currency":"NGN","paid_at":null,"metadata":""}`,
			wantStatus: StatusSuccess,
		},
		{
			name:       "string encoded metadata",
			data:       `{"reference":"PH-1","status":"abandoned","amount":5000000,"currency":"NGN","metadata":"{\"plan_id\":\"p9\"}"}`,
			wantStatus: StatusFailed,
			wantPlan:   "p9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/transaction/verify/PH-1", r.URL.Path)
				_, _ = w.Write([]byte(`{"status":true,"message":"Verification successful","data":` + tt.data + `}`))
			}))
			defer srv.Close()

			tx, err := NewPaystackGateway(testSecret, srv.URL, "NGN").Verify(context.Background(), "PH-1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, tx.Status)
			assert.Equal(t, tt.wantPaid, tx.PaidAt != nil)
			assert.Equal(t, tt.wantPlan, tx.Metadata.PlanID)
			assert.Equal(t, int64(5000000), tx.AmountMinor)
			assert.Equal(t, "NGN", tx.Currency)
		})
	}
}

func TestPaystack_ParseWebhook(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"PH-1","status":"success","amount":100,"currency":"NGN","paid_at":"2026-03-01T10:00:00Z","metadata":{}}}`)
	g := NewPaystackGateway(testSecret, "", "NGN")

	t.Run("valid signature", func(t *testing.T) {
		evt, err := g.ParseWebhook(body, headers(map[string]string{
			"x-paystack-signature": PaystackSignature(testSecret, body),
		}))
		require.NoError(t, err)
		assert.True(t, evt.IsCharge)
		assert.Equal(t, "PH-1", evt.Transaction.Reference)
		assert.NotNil(t, evt.Transaction.PaidAt)
	})

	t.Run("tampered body", func(t *testing.T) {
		sig := PaystackSignature(testSecret, body)
		tampered := append([]byte{}, body...)
		tampered[len(tampered)-3] = ' '
		_, err := g.ParseWebhook(tampered, headers(map[string]string{"x-paystack-signature": sig}))
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := g.ParseWebhook(body, headers(nil))
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("non charge event", func(t *testing.T) {
		other := []byte(`{"event":"transfer.success","data":{"reference":"T-1","status":"success"}}`)
		evt, err := g.ParseWebhook(other, headers(map[string]string{
			"x-paystack-signature": PaystackSignature(testSecret, other),
		}))
		require.NoError(t, err)
		assert.False(t, evt.IsCharge)
	})
}
