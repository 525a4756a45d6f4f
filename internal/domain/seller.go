package domain

import "time"

type Seller struct {
	ID                  string        `json:"id" gorm:"primaryKey;size:36"`
	Email               string        `json:"email" gorm:"uniqueIndex;size:255;not null"`
	BusinessName        string        `json:"businessName,omitempty" gorm:"size:255"`
	PaymentAccountID    *string       `json:"stripeAccountId" gorm:"uniqueIndex;size:255"`
	OnboardingCompleted bool          `json:"stripeOnboardingCompleted" gorm:"not null;default:false"`
	AccountStatus       AccountStatus `json:"stripeAccountStatus" gorm:"size:20;not null;default:'pending'"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// AccountID returns the connected account id, or "" before onboarding starts.
func (s *Seller) AccountID() string {
	if s.PaymentAccountID == nil {
		return ""
	}
	return *s.PaymentAccountID
}

// ReadyForPayments reports whether buyers can be charged on behalf of the seller.
func (s *Seller) ReadyForPayments() bool {
	return s.AccountID() != "" && s.OnboardingCompleted
}
