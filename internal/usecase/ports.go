package usecase

import (
	"context"

	"marketpay-backend/internal/domain"
)

// Store lookups return domain.ErrRecordNotFound when nothing matches.

type SellerStore interface {
	GetSeller(ctx context.Context, id string) (*domain.Seller, error)
	GetSellerByEmail(ctx context.Context, email string) (*domain.Seller, error)
	CreateSeller(ctx context.Context, s *domain.Seller) error
	// FindOrCreateSeller inserts s unless a seller with the same email exists,
	// and returns the stored row either way.
	FindOrCreateSeller(ctx context.Context, s *domain.Seller) (*domain.Seller, bool, error)
	// SetSellerAccountID stores accountID only if the seller has none yet and
	// returns the id that is stored afterwards.
	SetSellerAccountID(ctx context.Context, sellerID, accountID string) (string, error)
	UpdateSellerOnboarding(ctx context.Context, sellerID string, completed bool, status domain.AccountStatus) error
	UpdateSellerStatusByAccountID(ctx context.Context, accountID string, status domain.AccountStatus) (int64, error)
}

type OrderStore interface {
	// CreateOrder persists the order and its items atomically.
	CreateOrder(ctx context.Context, o *domain.Order) error
	// GetOrder loads the order with items, seller and transactions.
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, payment domain.PaymentStatus) (int64, error)
}

type TransactionStore interface {
	FindPendingTransaction(ctx context.Context, orderID string) (*domain.Transaction, error)
	// UpsertTransaction inserts t, or when a row with the same payment intent
	// id exists, marks it pending and refreshes its timestamp. Succeeded rows
	// are left alone.
	UpsertTransaction(ctx context.Context, t *domain.Transaction) error
	UpdateTransactionStatus(ctx context.Context, paymentIntentID string, status domain.TransactionStatus) (int64, error)
}

type PaymentProvider interface {
	CreateAccount(ctx context.Context, email string) (string, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	GetAccount(ctx context.Context, accountID string) (*domain.ProviderAccount, error)
	CreatePaymentIntent(ctx context.Context, req domain.PaymentIntentRequest) (*domain.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*domain.PaymentIntent, error)
	CreateLoginLink(ctx context.Context, accountID string) (string, error)
	// ParseWebhookEvent verifies signature over payload and decodes the event.
	// Verification failures wrap domain.ErrInvalidSignature.
	ParseWebhookEvent(payload []byte, signature string) (*domain.WebhookEvent, error)
}

type PaymentLinkNotice struct {
	To          string
	BuyerName   string
	OrderID     string
	TotalAmount int64
	Currency    string
	PaymentLink string
}

type Notifier interface {
	SendPaymentLink(ctx context.Context, n PaymentLinkNotice) error
}
