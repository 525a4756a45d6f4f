package stripe

import (
	"context"
	"encoding/json"
	"fmt"

	stripego "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"

	"marketpay-backend/internal/domain"
)

// Client adapts the Stripe Connect API to the payment provider port.
type Client struct {
	API           *client.API
	WebhookSecret string
}

func New(secretKey, webhookSecret string) *Client {
	return &Client{API: client.New(secretKey, nil), WebhookSecret: webhookSecret}
}

// NewWithBackend points the client at a custom API backend, e.g. a local stub.
func NewWithBackend(secretKey, webhookSecret string, backend stripego.Backend) *Client {
	return &Client{
		API:           client.New(secretKey, &stripego.Backends{API: backend, Connect: backend, Uploads: backend}),
		WebhookSecret: webhookSecret,
	}
}

func (c *Client) CreateAccount(ctx context.Context, email string) (string, error) {
	params := &stripego.AccountParams{
		Type:  stripego.String(string(stripego.AccountTypeExpress)),
		Email: stripego.String(email),
		Capabilities: &stripego.AccountCapabilitiesParams{
			CardPayments: &stripego.AccountCapabilitiesCardPaymentsParams{Requested: stripego.Bool(true)},
			Transfers:    &stripego.AccountCapabilitiesTransfersParams{Requested: stripego.Bool(true)},
		},
	}
	params.Context = ctx
	acct, err := c.API.Accounts.New(params)
	if err != nil {
		return "", err
	}
	return acct.ID, nil
}

func (c *Client) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripego.AccountLinkParams{
		Account:    stripego.String(accountID),
		RefreshURL: stripego.String(refreshURL),
		ReturnURL:  stripego.String(returnURL),
		Type:       stripego.String(string(stripego.AccountLinkTypeAccountOnboarding)),
	}
	params.Context = ctx
	link, err := c.API.AccountLinks.New(params)
	if err != nil {
		return "", err
	}
	return link.URL, nil
}

func (c *Client) GetAccount(ctx context.Context, accountID string) (*domain.ProviderAccount, error) {
	params := &stripego.AccountParams{}
	params.Context = ctx
	acct, err := c.API.Accounts.GetByID(accountID, params)
	if err != nil {
		return nil, err
	}
	return toAccount(acct), nil
}

func (c *Client) CreatePaymentIntent(ctx context.Context, req domain.PaymentIntentRequest) (*domain.PaymentIntent, error) {
	params := &stripego.PaymentIntentParams{
		Amount:               stripego.Int64(req.Amount),
		Currency:             stripego.String(req.Currency),
		ApplicationFeeAmount: stripego.Int64(req.ApplicationFee),
		TransferData: &stripego.PaymentIntentTransferDataParams{
			Destination: stripego.String(req.DestinationAccount),
		},
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx
	pi, err := c.API.PaymentIntents.New(params)
	if err != nil {
		return nil, err
	}
	return toIntent(pi), nil
}

func (c *Client) GetPaymentIntent(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	params := &stripego.PaymentIntentParams{}
	params.Context = ctx
	pi, err := c.API.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, err
	}
	return toIntent(pi), nil
}

func (c *Client) CreateLoginLink(ctx context.Context, accountID string) (string, error) {
	params := &stripego.LoginLinkParams{Account: stripego.String(accountID)}
	params.Context = ctx
	link, err := c.API.LoginLinks.New(params)
	if err != nil {
		return "", err
	}
	return link.URL, nil
}

// ParseWebhookEvent verifies the Stripe-Signature header and decodes the
// event object for the event types the service handles.
func (c *Client) ParseWebhookEvent(payload []byte, signature string) (*domain.WebhookEvent, error) {
	if c.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", domain.ErrInvalidSignature)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	ev := &domain.WebhookEvent{ID: event.ID, Type: domain.EventType(event.Type)}
	if event.Data == nil {
		return ev, nil
	}
	switch ev.Type {
	case domain.EventPaymentSucceeded, domain.EventPaymentFailed:
		var pi stripego.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		ev.PaymentIntent = toIntent(&pi)
	case domain.EventAccountUpdated:
		var acct stripego.Account
		if err := json.Unmarshal(event.Data.Raw, &acct); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		ev.Account = toAccount(&acct)
	}
	return ev, nil
}

func toIntent(pi *stripego.PaymentIntent) *domain.PaymentIntent {
	return &domain.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       domain.IntentStatus(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

func toAccount(a *stripego.Account) *domain.ProviderAccount {
	return &domain.ProviderAccount{
		ID:               a.ID,
		ChargesEnabled:   a.ChargesEnabled,
		DetailsSubmitted: a.DetailsSubmitted,
	}
}
