package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"marketpay-backend/internal/domain"
)

type CreateOrderInput struct {
	SellerEmail    string
	BuyerEmail     string
	BuyerName      string
	BuyerPhone     string
	Items          []domain.LineItem
	ShippingAmount int64
	TaxAmount      int64
	Notes          string
}

func (in CreateOrderInput) validate() error {
	if strings.TrimSpace(in.SellerEmail) == "" {
		return ErrBadRequest("sellerEmail required")
	}
	if strings.TrimSpace(in.BuyerEmail) == "" {
		return ErrBadRequest("buyerEmail required")
	}
	if len(in.Items) == 0 {
		return ErrBadRequest("at least one item required")
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return ErrBadRequest("item quantity must be positive")
		}
		if it.UnitPrice <= 0 {
			return ErrBadRequest("item unitPrice must be positive")
		}
		if strings.TrimSpace(it.ProductName) == "" {
			return ErrBadRequest("item productName required")
		}
	}
	if in.ShippingAmount < 0 || in.TaxAmount < 0 {
		return ErrBadRequest("shippingAmount and taxAmount must not be negative")
	}
	if _, err := domain.ComputeTotals(in.Items, in.ShippingAmount, in.TaxAmount); err != nil {
		return ErrBadRequest(fmt.Sprintf("order total must not exceed %d", domain.MaxAmount))
	}
	return nil
}

type OrderService struct {
	Sellers     SellerStore
	Orders      OrderStore
	Notifier    Notifier
	Links       *LinkService
	FrontendURL string
	Currency    string
	Log         *slog.Logger
}

func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	seller, _, err := s.Sellers.FindOrCreateSeller(ctx, &domain.Seller{
		ID:            newID(),
		Email:         in.SellerEmail,
		AccountStatus: domain.AccountPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, err
	}

	o, err := domain.NewOrder(seller.ID, in.Items, in.ShippingAmount, in.TaxAmount, now)
	if err != nil {
		return nil, ErrBadRequest(err.Error())
	}
	o.ID = newID()
	o.BuyerEmail = in.BuyerEmail
	o.BuyerName = in.BuyerName
	o.BuyerPhone = in.BuyerPhone
	o.Notes = in.Notes
	for i := range o.Items {
		o.Items[i].ID = newID()
		o.Items[i].OrderID = o.ID
	}
	if err := s.Orders.CreateOrder(ctx, o); err != nil {
		return nil, err
	}
	s.log().Info("order created", "order_id", o.ID, "seller_id", seller.ID, "total", o.TotalAmount)

	s.notify(ctx, o)
	return o, nil
}

// notify sends the payment link email. Failures are logged and never
// returned: the order already exists.
func (s *OrderService) notify(ctx context.Context, o *domain.Order) {
	if s.Notifier == nil {
		return
	}
	link, err := s.PaymentLink(o.ID)
	if err != nil {
		s.log().Error("build payment link", "order_id", o.ID, "error", err)
		return
	}
	err = s.Notifier.SendPaymentLink(ctx, PaymentLinkNotice{
		To:          o.BuyerEmail,
		BuyerName:   o.BuyerName,
		OrderID:     o.ID,
		TotalAmount: o.TotalAmount,
		Currency:    s.Currency,
		PaymentLink: link,
	})
	if err != nil {
		s.log().Error("send payment link email", "order_id", o.ID, "to", o.BuyerEmail, "error", err)
	}
}

// PaymentLink is the buyer-facing checkout URL for orderID.
func (s *OrderService) PaymentLink(orderID string) (string, error) {
	base := strings.TrimRight(s.FrontendURL, "/")
	if base == "" {
		base = "http://localhost:5173"
	}
	link := base + "/checkout/" + url.PathEscape(orderID)
	if s.Links != nil && s.Links.Enabled() {
		token, err := s.Links.Issue(orderID)
		if err != nil {
			return "", err
		}
		link += "?token=" + url.QueryEscape(token)
	}
	return link, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	o, err := s.Orders.GetOrder(ctx, id)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, ErrNotFound("order")
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// GetByLink resolves a signed checkout token to its order.
func (s *OrderService) GetByLink(ctx context.Context, token string) (*domain.Order, error) {
	if s.Links == nil || !s.Links.Enabled() {
		return nil, ErrNotFound("checkout link")
	}
	orderID, err := s.Links.Resolve(token)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

func (s *OrderService) log() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
