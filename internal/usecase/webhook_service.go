package usecase

import (
	"context"
	"log/slog"

	"marketpay-backend/internal/domain"
)

// WebhookService applies verified provider events to stored state. Every
// transition is idempotent so redelivered events are harmless.
type WebhookService struct {
	Sellers      SellerStore
	Orders       OrderStore
	Transactions TransactionStore
	Provider     PaymentProvider
	Log          *slog.Logger
}

func (s *WebhookService) Handle(ctx context.Context, payload []byte, signature string) (*domain.WebhookEvent, error) {
	ev, err := s.Provider.ParseWebhookEvent(payload, signature)
	if err != nil {
		return nil, err
	}
	log := s.log().With("event_id", ev.ID, "event_type", ev.Type)

	switch ev.Type {
	case domain.EventPaymentSucceeded:
		if ev.PaymentIntent == nil {
			return nil, ErrBadRequest("event has no payment intent")
		}
		pi := ev.PaymentIntent
		n, err := s.Transactions.UpdateTransactionStatus(ctx, pi.ID, domain.TransactionSucceeded)
		if err != nil {
			return nil, err
		}
		if orderID := pi.OrderID(); orderID != "" {
			if _, err := s.Orders.UpdateOrderStatus(ctx, orderID, domain.OrderPaid, domain.PaymentPaid); err != nil {
				return nil, err
			}
			// Inventory, fulfillment and confirmation email hook in here.
			log.Info("order paid", "order_id", orderID, "payment_intent_id", pi.ID, "transactions", n)
		}

	case domain.EventPaymentFailed:
		if ev.PaymentIntent == nil {
			return nil, ErrBadRequest("event has no payment intent")
		}
		n, err := s.Transactions.UpdateTransactionStatus(ctx, ev.PaymentIntent.ID, domain.TransactionFailed)
		if err != nil {
			return nil, err
		}
		log.Info("payment failed", "payment_intent_id", ev.PaymentIntent.ID, "order_id", ev.PaymentIntent.OrderID(), "transactions", n)

	case domain.EventAccountUpdated:
		if ev.Account == nil {
			return nil, ErrBadRequest("event has no account")
		}
		status := domain.AccountStatusFor(ev.Account.ChargesEnabled)
		n, err := s.Sellers.UpdateSellerStatusByAccountID(ctx, ev.Account.ID, status)
		if err != nil {
			return nil, err
		}
		log.Info("seller account updated", "account_id", ev.Account.ID, "status", status, "sellers", n)

	default:
		log.Debug("unhandled webhook event")
	}
	return ev, nil
}

func (s *WebhookService) log() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
