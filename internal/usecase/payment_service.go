package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"marketpay-backend/internal/domain"
)

type PaymentService struct {
	Sellers      SellerStore
	Orders       OrderStore
	Transactions TransactionStore
	Provider     PaymentProvider
	Fees         domain.FeePolicy
	Currency     string
	Log          *slog.Logger
}

type OnboardResult struct {
	URL       string
	AccountID string
}

// Onboard makes sure the seller has a connected account and returns a fresh
// onboarding link for it.
func (s *PaymentService) Onboard(ctx context.Context, sellerID, refreshURL, returnURL string) (*OnboardResult, error) {
	seller, err := s.Sellers.GetSeller(ctx, sellerID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, ErrNotFound("seller")
	}
	if err != nil {
		return nil, err
	}

	accountID := seller.AccountID()
	if accountID == "" {
		created, err := s.Provider.CreateAccount(ctx, seller.Email)
		if err != nil {
			return nil, upstream("create onboarding link", fmt.Errorf("create account: %w", err))
		}
		// A concurrent onboarding call may have stored its own account first.
		accountID, err = s.Sellers.SetSellerAccountID(ctx, seller.ID, created)
		if err != nil {
			return nil, err
		}
		if accountID != created {
			s.log().Warn("discarding duplicate connected account", "seller_id", seller.ID, "account_id", created, "kept", accountID)
		} else {
			s.log().Info("connected account created", "seller_id", seller.ID, "account_id", accountID)
		}
	}

	url, err := s.Provider.CreateAccountLink(ctx, accountID, refreshURL, returnURL)
	if err != nil {
		return nil, upstream("create onboarding link", err)
	}
	return &OnboardResult{URL: url, AccountID: accountID}, nil
}

// SyncAccountStatus pulls the live account state from the provider and
// stores it on the seller.
func (s *PaymentService) SyncAccountStatus(ctx context.Context, sellerID string) (*domain.ProviderAccount, error) {
	seller, err := s.Sellers.GetSeller(ctx, sellerID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, ErrNotFound("seller")
	}
	if err != nil {
		return nil, err
	}
	if seller.AccountID() == "" {
		return nil, ErrNotFound("seller payment account")
	}
	acct, err := s.Provider.GetAccount(ctx, seller.AccountID())
	if err != nil {
		return nil, upstream("retrieve connected account", err)
	}
	status := domain.AccountStatusFor(acct.ChargesEnabled)
	if err := s.Sellers.UpdateSellerOnboarding(ctx, seller.ID, acct.DetailsSubmitted, status); err != nil {
		return nil, err
	}
	s.log().Info("seller account synced", "seller_id", seller.ID, "status", status, "details_submitted", acct.DetailsSubmitted)
	return acct, nil
}

type IntentResult struct {
	ClientSecret    string
	PaymentIntentID string
}

func (s *PaymentService) CreateIntent(ctx context.Context, orderID string) (*IntentResult, error) {
	o, err := s.Orders.GetOrder(ctx, orderID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, ErrNotFound("order")
	}
	if err != nil {
		return nil, err
	}
	if o.Paid() {
		return nil, ErrConflict("Order already paid")
	}
	seller := o.Seller
	if seller == nil {
		seller, err = s.Sellers.GetSeller(ctx, o.SellerID)
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, ErrNotFound("seller")
		}
		if err != nil {
			return nil, err
		}
	}
	if !seller.ReadyForPayments() {
		return nil, ErrConflict("Seller payment setup incomplete")
	}

	fee, transfer := s.Fees.Split(o.TotalAmount)
	if transfer <= 0 {
		return nil, ErrConflict("Order total does not cover the platform fee")
	}

	// The provider replays the first intent for a repeated key, so a
	// replacement for a dead intent needs a key of its own.
	idempotencyKey := "pi_" + o.ID
	existing, err := s.Transactions.FindPendingTransaction(ctx, o.ID)
	switch {
	case err == nil:
		intent, gerr := s.Provider.GetPaymentIntent(ctx, existing.PaymentIntentID)
		if gerr != nil {
			s.log().Warn("could not retrieve existing payment intent, creating new one", "order_id", o.ID, "payment_intent_id", existing.PaymentIntentID, "error", gerr)
			break
		}
		switch {
		case intent.Reusable():
			return &IntentResult{ClientSecret: intent.ClientSecret, PaymentIntentID: intent.ID}, nil
		case intent.Status == domain.IntentSucceeded:
			return nil, s.settle(ctx, o.ID, intent.ID)
		}
		s.log().Info("payment intent canceled, creating new one", "order_id", o.ID, "payment_intent_id", intent.ID)
		if _, err := s.Transactions.UpdateTransactionStatus(ctx, intent.ID, domain.TransactionFailed); err != nil {
			return nil, err
		}
		idempotencyKey = "pi_" + o.ID + "_" + intent.ID
	case !errors.Is(err, domain.ErrRecordNotFound):
		return nil, err
	}

	intent, err := s.Provider.CreatePaymentIntent(ctx, domain.PaymentIntentRequest{
		Amount:             o.TotalAmount,
		Currency:           s.currency(),
		DestinationAccount: seller.AccountID(),
		ApplicationFee:     fee,
		Metadata:           map[string]string{"orderId": o.ID, "sellerId": seller.ID},
		IdempotencyKey:     idempotencyKey,
	})
	if err != nil {
		return nil, upstream("create payment intent", err)
	}

	now := time.Now().UTC()
	err = s.Transactions.UpsertTransaction(ctx, &domain.Transaction{
		ID:                   newID(),
		SellerID:             seller.ID,
		OrderID:              o.ID,
		PaymentIntentID:      intent.ID,
		AmountTotal:          o.TotalAmount,
		ApplicationFeeAmount: fee,
		SellerTransferAmount: transfer,
		Currency:             s.currency(),
		BuyerEmail:           o.BuyerEmail,
		Status:               domain.TransactionPending,
		CreatedAt:            now,
		UpdatedAt:            now,
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("payment intent ready", "order_id", o.ID, "payment_intent_id", intent.ID, "amount", o.TotalAmount, "fee", fee)
	return &IntentResult{ClientSecret: intent.ClientSecret, PaymentIntentID: intent.ID}, nil
}

// settle records a charge whose success webhook has not arrived yet and
// reports the order as paid.
func (s *PaymentService) settle(ctx context.Context, orderID, intentID string) error {
	s.log().Warn("payment intent already succeeded, reconciling", "order_id", orderID, "payment_intent_id", intentID)
	if _, err := s.Transactions.UpdateTransactionStatus(ctx, intentID, domain.TransactionSucceeded); err != nil {
		return err
	}
	if _, err := s.Orders.UpdateOrderStatus(ctx, orderID, domain.OrderPaid, domain.PaymentPaid); err != nil {
		return err
	}
	return ErrConflict("Order already paid")
}

// LoginLink returns a short-lived provider dashboard URL for the seller.
func (s *PaymentService) LoginLink(ctx context.Context, sellerID string) (string, error) {
	seller, err := s.Sellers.GetSeller(ctx, sellerID)
	if err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		return "", err
	}
	if seller == nil || seller.AccountID() == "" {
		return "", ErrNotFound("seller payment account")
	}
	url, err := s.Provider.CreateLoginLink(ctx, seller.AccountID())
	if err != nil {
		return "", upstream("create login link", err)
	}
	return url, nil
}

func (s *PaymentService) currency() string {
	if s.Currency == "" {
		return "usd"
	}
	return s.Currency
}

func (s *PaymentService) log() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
