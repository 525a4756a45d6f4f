package domain

import "errors"

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

type IntentStatus string

const (
	IntentRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentRequiresAction        IntentStatus = "requires_action"
	IntentProcessing            IntentStatus = "processing"
	IntentRequiresCapture       IntentStatus = "requires_capture"
	IntentCanceled              IntentStatus = "canceled"
	IntentSucceeded             IntentStatus = "succeeded"
)

// PaymentIntent is the provider-side charge attempt as seen by the orchestration.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
	Amount       int64
	Currency     string
	Metadata     map[string]string
}

// Reusable reports whether a buyer can still complete payment on the intent.
func (p *PaymentIntent) Reusable() bool {
	return p.Status != IntentCanceled && p.Status != IntentSucceeded
}

func (p *PaymentIntent) OrderID() string {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata["orderId"]
}

type PaymentIntentRequest struct {
	Amount             int64
	Currency           string
	DestinationAccount string
	ApplicationFee     int64
	Metadata           map[string]string
	IdempotencyKey     string
}

// ProviderAccount is the live state of a connected account.
type ProviderAccount struct {
	ID               string `json:"id"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
}

type EventType string

const (
	EventPaymentSucceeded EventType = "payment_intent.succeeded"
	EventPaymentFailed    EventType = "payment_intent.payment_failed"
	EventAccountUpdated   EventType = "account.updated"
)

// WebhookEvent is a verified provider event. Only the object relevant to
// Type is populated.
type WebhookEvent struct {
	ID            string
	Type          EventType
	PaymentIntent *PaymentIntent
	Account       *ProviderAccount
}
