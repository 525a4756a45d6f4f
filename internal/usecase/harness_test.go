package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"marketpay-backend/internal/domain"
	"marketpay-backend/internal/infrastructure/repo"
	"marketpay-backend/internal/infrastructure/stripe/stripefake"
)

const webhookSecret = "whsec_test"

type recordingNotifier struct {
	sent []PaymentLinkNotice
	err  error
}

func (n *recordingNotifier) SendPaymentLink(_ context.Context, notice PaymentLinkNotice) error {
	n.sent = append(n.sent, notice)
	return n.err
}

type harness struct {
	store    *repo.MemoryStore
	provider *stripefake.Provider
	notifier *recordingNotifier
	orders   *OrderService
	payments *PaymentService
	webhooks *WebhookService
	sellers  *SellerService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repo.NewMemoryStore()
	provider := stripefake.New(webhookSecret)
	notifier := &recordingNotifier{}
	return &harness{
		store:    store,
		provider: provider,
		notifier: notifier,
		orders: &OrderService{
			Sellers: store, Orders: store, Notifier: notifier,
			FrontendURL: "https://shop.example.com/", Currency: "usd", Log: log,
		},
		payments: &PaymentService{
			Sellers: store, Orders: store, Transactions: store, Provider: provider,
			Fees: domain.DefaultFeePolicy(), Currency: "usd", Log: log,
		},
		webhooks: &WebhookService{
			Sellers: store, Orders: store, Transactions: store, Provider: provider, Log: log,
		},
		sellers: &SellerService{Sellers: store},
	}
}

func sampleOrderInput() CreateOrderInput {
	return CreateOrderInput{
		SellerEmail: "shop@example.com",
		BuyerEmail:  "buyer@example.com",
		BuyerName:   "Ada",
		Items: []domain.LineItem{
			{ProductID: "0b7c1f7e-6a55-4d8e-9d43-2f1c3b0a9e11", ProductName: "Mug", Quantity: 2, UnitPrice: 500},
		},
		ShippingAmount: 300,
		TaxAmount:      50,
	}
}

// readyOrder creates an order whose seller has finished onboarding.
func (h *harness) readyOrder(t *testing.T) *domain.Order {
	t.Helper()
	ctx := context.Background()
	o, err := h.orders.Create(ctx, sampleOrderInput())
	require.NoError(t, err)
	res, err := h.payments.Onboard(ctx, o.SellerID, "https://shop.example.com/refresh", "https://shop.example.com/return")
	require.NoError(t, err)
	h.provider.SetAccount(domain.ProviderAccount{ID: res.AccountID, ChargesEnabled: true, DetailsSubmitted: true})
	_, err = h.payments.SyncAccountStatus(ctx, o.SellerID)
	require.NoError(t, err)
	return o
}
