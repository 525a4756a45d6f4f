package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"marketpay-backend/internal/domain"
)

type SellerService struct {
	Sellers SellerStore
}

func (s *SellerService) Get(ctx context.Context, id string) (*domain.Seller, error) {
	seller, err := s.Sellers.GetSeller(ctx, id)
	return sellerResult(seller, err)
}

func (s *SellerService) GetByEmail(ctx context.Context, email string) (*domain.Seller, error) {
	seller, err := s.Sellers.GetSellerByEmail(ctx, strings.TrimSpace(email))
	return sellerResult(seller, err)
}

func (s *SellerService) Create(ctx context.Context, email, businessName string) (*domain.Seller, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrBadRequest("email required")
	}
	now := time.Now().UTC()
	seller := &domain.Seller{
		ID:            newID(),
		Email:         email,
		BusinessName:  strings.TrimSpace(businessName),
		AccountStatus: domain.AccountPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := s.Sellers.CreateSeller(ctx, seller)
	if errors.Is(err, domain.ErrDuplicateKey) {
		return nil, ErrDuplicate("seller")
	}
	if err != nil {
		return nil, err
	}
	return seller, nil
}

// Ensure returns the seller with email, creating it with businessName when
// missing. Used to seed demo data.
func (s *SellerService) Ensure(ctx context.Context, email, businessName string) (*domain.Seller, bool, error) {
	now := time.Now().UTC()
	return s.Sellers.FindOrCreateSeller(ctx, &domain.Seller{
		ID:            newID(),
		Email:         strings.TrimSpace(email),
		BusinessName:  strings.TrimSpace(businessName),
		AccountStatus: domain.AccountPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

func sellerResult(seller *domain.Seller, err error) (*domain.Seller, error) {
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, ErrNotFound("seller")
	}
	if err != nil {
		return nil, err
	}
	return seller, nil
}
