package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpay-backend/internal/config"
	"marketpay-backend/internal/domain"
	"marketpay-backend/internal/infrastructure/repo"
	"marketpay-backend/internal/infrastructure/stripe/stripefake"
	"marketpay-backend/internal/usecase"
)

const webhookSecret = "whsec_test"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	store    *repo.MemoryStore
	provider *stripefake.Provider
	handler  http.Handler
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config, *Services)) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repo.NewMemoryStore()
	provider := stripefake.New(webhookSecret)

	cfg := config.Default()
	cfg.RateLimit.RPS = 0
	svc := Services{
		Orders: &usecase.OrderService{Sellers: store, Orders: store, FrontendURL: "https://shop.example.com", Currency: "usd", Log: log},
		Payments: &usecase.PaymentService{
			Sellers: store, Orders: store, Transactions: store, Provider: provider,
			Fees: domain.DefaultFeePolicy(), Currency: "usd", Log: log,
		},
		Webhooks: &usecase.WebhookService{Sellers: store, Orders: store, Transactions: store, Provider: provider, Log: log},
		Sellers:  &usecase.SellerService{Sellers: store},
	}
	for _, m := range mutate {
		m(&cfg, &svc)
	}
	return &testEnv{store: store, provider: provider, handler: New(cfg, svc, log).Handler()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	case []byte:
		r = bytes.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, w)
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, w.Body.String())
	return e["code"].(string)
}

const productID = "0b7c1f7e-6a55-4d8e-9d43-2f1c3b0a9e11"

func orderBody() map[string]any {
	return map[string]any{
		"sellerEmail":    "shop@example.com",
		"buyerEmail":     "buyer@example.com",
		"buyerName":      "Ada",
		"items":          []map[string]any{{"productId": productID, "productName": "Mug", "quantity": 2, "unitPrice": 500}},
		"shippingAmount": 300,
		"taxAmount":      50,
	}
}

// createReadyOrder places an order and completes seller onboarding.
func (e *testEnv) createReadyOrder(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/orders", orderBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	orderID := decode(t, w)["order"].(map[string]any)["id"].(string)

	o, err := e.store.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	w = e.do(t, http.MethodPost, "/api/payments/onboard", map[string]any{
		"sellerId": o.SellerID, "refreshUrl": "https://shop.example.com/refresh", "returnUrl": "https://shop.example.com/return",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	accountID := decode(t, w)["accountId"].(string)

	e.provider.SetAccount(domain.ProviderAccount{ID: accountID, ChargesEnabled: true, DetailsSubmitted: true})
	w = e.do(t, http.MethodGet, "/api/payments/callback?sellerId="+o.SellerID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return orderID
}

func TestCreateOrder(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodPost, "/api/orders", orderBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	order := body["order"].(map[string]any)
	assert.Equal(t, float64(1350), order["totalAmount"])
	assert.Equal(t, "pending", order["status"])

	w = e.do(t, http.MethodGet, "/api/orders/"+order["id"].(string), nil)
	require.Equal(t, http.StatusOK, w.Code)
	full := decode(t, w)["order"].(map[string]any)
	assert.Equal(t, float64(1000), full["subtotal"])
	assert.Equal(t, "unpaid", full["paymentStatus"])
	assert.Len(t, full["items"], 1)
	assert.Equal(t, "shop@example.com", full["seller"].(map[string]any)["email"])
	assert.Empty(t, full["transactions"])
}

func TestCreateOrder_Validation(t *testing.T) {
	cases := map[string]func(map[string]any){
		"no items":        func(b map[string]any) { b["items"] = []any{} },
		"missing items":   func(b map[string]any) { delete(b, "items") },
		"bad email":       func(b map[string]any) { b["buyerEmail"] = "nope" },
		"zero quantity":   func(b map[string]any) { b["items"].([]map[string]any)[0]["quantity"] = 0 },
		"fractional":      func(b map[string]any) { b["items"].([]map[string]any)[0]["unitPrice"] = 1.5 },
		"bad product id":  func(b map[string]any) { b["items"].([]map[string]any)[0]["productId"] = "p1" },
		"negative tax":    func(b map[string]any) { b["taxAmount"] = -5 },
		"unknown field":   func(b map[string]any) { b["totalAmount"] = 1 },
		"empty name":      func(b map[string]any) { b["items"].([]map[string]any)[0]["productName"] = "" },
		"huge unit price": func(b map[string]any) { b["items"].([]map[string]any)[0]["unitPrice"] = int64(1) << 62 },
		"huge quantity":   func(b map[string]any) { b["items"].([]map[string]any)[0]["quantity"] = 1 << 40 },
		"huge shipping":   func(b map[string]any) { b["shippingAmount"] = int64(1) << 62 },
		"total too large": func(b map[string]any) {
			b["items"] = []map[string]any{
				{"productId": productID, "productName": "Mug", "quantity": 1000, "unitPrice": 99999999},
			}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			e := newTestEnv(t)
			b := orderBody()
			mutate(b)
			w := e.do(t, http.MethodPost, "/api/orders", b)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "BadRequest", errorCode(t, w))
			_, err := e.store.GetSellerByEmail(context.Background(), "shop@example.com")
			assert.ErrorIs(t, err, domain.ErrRecordNotFound)
		})
	}

	e := newTestEnv(t)
	w := e.do(t, http.MethodPost, "/api/orders", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrder_Errors(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/api/orders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/orders/00000000-0000-4000-8000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NotFound", errorCode(t, w))
}

func TestErrorEnvelopeCarriesRequestID(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/api/orders/00000000-0000-4000-8000-000000000000", nil, "X-Request-ID", "req-123")
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	body := decode(t, w)
	assert.Equal(t, "req-123", body["error"].(map[string]any)["requestId"])
}

func TestCreateIntent_ReusesPendingIntent(t *testing.T) {
	e := newTestEnv(t)
	orderID := e.createReadyOrder(t)

	w := e.do(t, http.MethodPost, "/api/payments/create-intent", map[string]any{"orderId": orderID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode(t, w)
	assert.NotEmpty(t, first["clientSecret"])

	w = e.do(t, http.MethodPost, "/api/payments/create-intent", map[string]any{"orderId": orderID})
	require.Equal(t, http.StatusOK, w.Code)
	second := decode(t, w)
	assert.Equal(t, first["paymentIntentId"], second["paymentIntentId"])

	txs := e.store.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, int64(57), txs[0].ApplicationFeeAmount)
	assert.Equal(t, int64(1293), txs[0].SellerTransferAmount)
}

func TestCreateIntent_Conflicts(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodPost, "/api/orders", orderBody())
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := decode(t, w)["order"].(map[string]any)["id"].(string)

	w = e.do(t, http.MethodPost, "/api/payments/create-intent", map[string]any{"orderId": orderID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Conflict", errorCode(t, w))
	assert.Contains(t, w.Body.String(), "Seller payment setup incomplete")

	w = e.do(t, http.MethodPost, "/api/payments/create-intent", map[string]any{"orderId": "00000000-0000-4000-8000-000000000000"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateIntent_UpstreamFailureIsGeneric(t *testing.T) {
	e := newTestEnv(t)
	orderID := e.createReadyOrder(t)
	e.provider.CreatePaymentIntentFunc = func(context.Context, domain.PaymentIntentRequest) (*domain.PaymentIntent, error) {
		return nil, errors.New("sk_live_secret leaked in message")
	}
	w := e.do(t, http.MethodPost, "/api/payments/create-intent", map[string]any{"orderId": orderID})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "UpstreamError", errorCode(t, w))
	assert.NotContains(t, w.Body.String(), "sk_live")
}

func TestOnboard_Errors(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodPost, "/api/payments/onboard", map[string]any{
		"sellerId": "00000000-0000-4000-8000-000000000000", "refreshUrl": "https://a.example.com/r", "returnUrl": "https://a.example.com/r",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPost, "/api/payments/onboard", map[string]any{
		"sellerId": "00000000-0000-4000-8000-000000000000", "refreshUrl": "/relative", "returnUrl": "https://a.example.com/r",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/payments/callback", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOnboard_ProviderFailure(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodPost, "/api/sellers", map[string]any{"email": "shop@example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	sellerID := decode(t, w)["id"].(string)

	e.provider.CreateAccountFunc = func(context.Context, string) (string, error) { return "", errors.New("boom") }
	w = e.do(t, http.MethodPost, "/api/payments/onboard", map[string]any{
		"sellerId": sellerID, "refreshUrl": "https://a.example.com/r", "returnUrl": "https://a.example.com/r",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to create onboarding link")
}

func TestPortal(t *testing.T) {
	e := newTestEnv(t)
	orderID := e.createReadyOrder(t)
	o, err := e.store.GetOrder(context.Background(), orderID)
	require.NoError(t, err)

	w := e.do(t, http.MethodPost, "/api/payments/portal", map[string]any{"sellerId": o.SellerID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, decode(t, w)["url"], o.Seller.AccountID())

	w = e.do(t, http.MethodPost, "/api/payments/portal", map[string]any{"sellerId": "00000000-0000-4000-8000-000000000000"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhook_MarksOrderPaid(t *testing.T) {
	e := newTestEnv(t)
	orderID := e.createReadyOrder(t)
	w := e.do(t, http.MethodPost, "/api/payments/create-intent", map[string]any{"orderId": orderID})
	require.Equal(t, http.StatusOK, w.Code)
	intentID := decode(t, w)["paymentIntentId"].(string)

	payload := stripefake.IntentEvent("evt_1", domain.EventPaymentSucceeded, domain.PaymentIntent{
		ID: intentID, Amount: 1350, Currency: "usd", Status: domain.IntentSucceeded,
		Metadata: map[string]string{"orderId": orderID},
	})
	for i := 0; i < 2; i++ {
		w = e.do(t, http.MethodPost, "/api/webhooks/stripe", payload, "Stripe-Signature", stripefake.Sign(webhookSecret, payload))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, true, decode(t, w)["received"])
	}

	w = e.do(t, http.MethodGet, "/api/orders/"+orderID, nil)
	order := decode(t, w)["order"].(map[string]any)
	assert.Equal(t, "paid", order["paymentStatus"])
	assert.Equal(t, "paid", order["status"])

	w = e.do(t, http.MethodPost, "/api/payments/create-intent", map[string]any{"orderId": orderID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Order already paid")
}

func TestWebhook_InvalidSignature(t *testing.T) {
	e := newTestEnv(t)
	orderID := e.createReadyOrder(t)
	w := e.do(t, http.MethodPost, "/api/payments/create-intent", map[string]any{"orderId": orderID})
	require.Equal(t, http.StatusOK, w.Code)
	intentID := decode(t, w)["paymentIntentId"].(string)

	payload := stripefake.IntentEvent("evt_1", domain.EventPaymentSucceeded, domain.PaymentIntent{
		ID: intentID, Status: domain.IntentSucceeded, Metadata: map[string]string{"orderId": orderID},
	})
	w = e.do(t, http.MethodPost, "/api/webhooks/stripe", payload, "Stripe-Signature", stripefake.Sign("whsec_other", payload))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidSignature", errorCode(t, w))

	w = e.do(t, http.MethodPost, "/api/webhooks/stripe", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	o, err := e.store.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.False(t, o.Paid())
	assert.Equal(t, domain.TransactionPending, o.Transactions[0].Status)
}

func TestWebhook_BodyLimit(t *testing.T) {
	e := newTestEnv(t)
	payload := bytes.Repeat([]byte("a"), maxWebhookBody+1)
	w := e.do(t, http.MethodPost, "/api/webhooks/stripe", payload, "Stripe-Signature", stripefake.Sign(webhookSecret, payload))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestSellers(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodPost, "/api/sellers", map[string]any{"email": "shop@example.com", "businessName": "Shop"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "pending", created["stripeAccountStatus"])
	assert.Nil(t, created["stripeAccountId"])
	assert.Equal(t, false, created["stripeOnboardingCompleted"])

	w = e.do(t, http.MethodPost, "/api/sellers", map[string]any{"email": "shop@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Duplicate", errorCode(t, w))

	w = e.do(t, http.MethodGet, "/api/sellers/"+created["id"].(string), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Shop", decode(t, w)["businessName"])

	w = e.do(t, http.MethodGet, "/api/sellers/by-email/shop@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created["id"], decode(t, w)["id"])

	w = e.do(t, http.MethodGet, "/api/sellers/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckoutLink(t *testing.T) {
	links := &usecase.LinkService{Secret: "s3cret", TTL: time.Hour}
	e := newTestEnv(t, func(_ *config.Config, s *Services) { s.Orders.Links = links })

	w := e.do(t, http.MethodPost, "/api/orders", orderBody())
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := decode(t, w)["order"].(map[string]any)["id"].(string)

	token, err := links.Issue(orderID)
	require.NoError(t, err)
	w = e.do(t, http.MethodGet, "/api/checkout/"+token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, orderID, decode(t, w)["order"].(map[string]any)["id"])

	w = e.do(t, http.MethodGet, "/api/checkout/garbage", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	unknown, err := links.Issue("00000000-0000-4000-8000-000000000000")
	require.NoError(t, err)
	w = e.do(t, http.MethodGet, "/api/checkout/"+unknown, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	down := newTestEnv(t, func(_ *config.Config, s *Services) {
		s.Ping = func(context.Context) error { return errors.New("db down") }
	})
	w = down.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORS(t *testing.T) {
	e := newTestEnv(t, func(c *config.Config, _ *Services) {
		c.AllowedOrigins = []string{"https://shop.example.com"}
	})
	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCORS_NoOriginsConfigured(t *testing.T) {
	var e *testEnv
	require.NotPanics(t, func() {
		e = newTestEnv(t, func(c *config.Config, _ *Services) { c.AllowedOrigins = nil })
	})
	w := e.do(t, http.MethodGet, "/api/health", nil, "Origin", "https://shop.example.com")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownFieldsRejectedWithoutGlobalSwitch(t *testing.T) {
	e := newTestEnv(t)
	assert.False(t, binding.EnableDecoderDisallowUnknownFields)

	b := orderBody()
	b["totalAmount"] = 1
	w := e.do(t, http.MethodPost, "/api/orders", b)
	require.Equal(t, http.StatusBadRequest, w.Code)
	msg := decode(t, w)["error"].(map[string]any)["message"].(string)
	assert.Contains(t, msg, `unknown field "totalAmount"`)
}

func TestRateLimit(t *testing.T) {
	e := newTestEnv(t, func(c *config.Config, _ *Services) {
		c.RateLimit.RPS = 1
		c.RateLimit.Burst = 2
	})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := e.do(t, http.MethodGet, "/api/orders/00000000-0000-4000-8000-000000000000", nil)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusNotFound, http.StatusNotFound, http.StatusTooManyRequests}, codes)

	// Health is outside the limited groups.
	w := e.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
