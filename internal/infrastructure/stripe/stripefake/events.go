package stripefake

import (
	"encoding/json"
	"time"

	"github.com/stripe/stripe-go/v81/webhook"

	"marketpay-backend/internal/domain"
)

// Sign returns a Stripe-Signature header for payload.
func Sign(secret string, payload []byte) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	}).Header
}

// IntentEvent builds a payment_intent.* event body in Stripe's wire format.
func IntentEvent(eventID string, typ domain.EventType, pi domain.PaymentIntent) []byte {
	obj := map[string]any{
		"id":       pi.ID,
		"object":   "payment_intent",
		"amount":   pi.Amount,
		"currency": pi.Currency,
		"status":   string(pi.Status),
		"metadata": pi.Metadata,
	}
	return event(eventID, typ, obj)
}

// AccountEvent builds an account.updated event body.
func AccountEvent(eventID string, a domain.ProviderAccount) []byte {
	obj := map[string]any{
		"id":                a.ID,
		"object":            "account",
		"charges_enabled":   a.ChargesEnabled,
		"details_submitted": a.DetailsSubmitted,
	}
	return event(eventID, domain.EventAccountUpdated, obj)
}

func event(id string, typ domain.EventType, obj map[string]any) []byte {
	b, _ := json.Marshal(map[string]any{
		"id":     id,
		"object": "event",
		"type":   string(typ),
		"data":   map[string]any{"object": obj},
	})
	return b
}
