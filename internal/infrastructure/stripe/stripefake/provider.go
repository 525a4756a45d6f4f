// Package stripefake is an in-process payment provider for tests. Webhook
// parsing uses the real Stripe signature check.
package stripefake

import (
	"context"
	"fmt"
	"sync"

	"marketpay-backend/internal/domain"
	"marketpay-backend/internal/infrastructure/stripe"
)

type Provider struct {
	Webhooks *stripe.Client

	// Optional overrides; nil means the built-in behaviour.
	CreateAccountFunc       func(ctx context.Context, email string) (string, error)
	CreateAccountLinkFunc   func(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	CreatePaymentIntentFunc func(ctx context.Context, req domain.PaymentIntentRequest) (*domain.PaymentIntent, error)
	GetPaymentIntentFunc    func(ctx context.Context, id string) (*domain.PaymentIntent, error)

	mu       sync.Mutex
	seq      int
	accounts map[string]*domain.ProviderAccount
	intents  map[string]*domain.PaymentIntent
	byKey    map[string]string
	calls    map[string]int
}

func New(webhookSecret string) *Provider {
	return &Provider{
		Webhooks: &stripe.Client{WebhookSecret: webhookSecret},
		accounts: map[string]*domain.ProviderAccount{},
		intents:  map[string]*domain.PaymentIntent{},
		byKey:    map[string]string{},
		calls:    map[string]int{},
	}
}

// Calls reports how many times op was invoked.
func (p *Provider) Calls(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

// SetAccount stores the live state returned by GetAccount.
func (p *Provider) SetAccount(a domain.ProviderAccount) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts[a.ID] = &a
}

// SetIntentStatus changes a stored intent, e.g. to simulate cancellation.
func (p *Provider) SetIntentStatus(id string, status domain.IntentStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pi, ok := p.intents[id]; ok {
		pi.Status = status
	}
}

func (p *Provider) CreateAccount(ctx context.Context, email string) (string, error) {
	p.record("CreateAccount")
	if p.CreateAccountFunc != nil {
		return p.CreateAccountFunc(ctx, email)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	id := fmt.Sprintf("acct_fake%d", p.seq)
	p.accounts[id] = &domain.ProviderAccount{ID: id}
	return id, nil
}

func (p *Provider) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	p.record("CreateAccountLink")
	if p.CreateAccountLinkFunc != nil {
		return p.CreateAccountLinkFunc(ctx, accountID, refreshURL, returnURL)
	}
	return "https://connect.example.test/setup/" + accountID, nil
}

func (p *Provider) GetAccount(_ context.Context, accountID string) (*domain.ProviderAccount, error) {
	p.record("GetAccount")
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("no such account: %s", accountID)
	}
	cp := *a
	return &cp, nil
}

// CreatePaymentIntent returns the same intent for a repeated idempotency key.
func (p *Provider) CreatePaymentIntent(ctx context.Context, req domain.PaymentIntentRequest) (*domain.PaymentIntent, error) {
	p.record("CreatePaymentIntent")
	if p.CreatePaymentIntentFunc != nil {
		return p.CreatePaymentIntentFunc(ctx, req)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if id, ok := p.byKey[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		cp := *p.intents[id]
		return &cp, nil
	}
	p.seq++
	id := fmt.Sprintf("pi_fake%d", p.seq)
	md := make(map[string]string, len(req.Metadata))
	for k, v := range req.Metadata {
		md[k] = v
	}
	pi := &domain.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       domain.IntentRequiresPaymentMethod,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Metadata:     md,
	}
	p.intents[id] = pi
	if req.IdempotencyKey != "" {
		p.byKey[req.IdempotencyKey] = id
	}
	cp := *pi
	return &cp, nil
}

func (p *Provider) GetPaymentIntent(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	p.record("GetPaymentIntent")
	if p.GetPaymentIntentFunc != nil {
		return p.GetPaymentIntentFunc(ctx, id)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	pi, ok := p.intents[id]
	if !ok {
		return nil, fmt.Errorf("no such payment intent: %s", id)
	}
	cp := *pi
	return &cp, nil
}

func (p *Provider) CreateLoginLink(_ context.Context, accountID string) (string, error) {
	p.record("CreateLoginLink")
	return "https://connect.example.test/login/" + accountID, nil
}

func (p *Provider) ParseWebhookEvent(payload []byte, signature string) (*domain.WebhookEvent, error) {
	p.record("ParseWebhookEvent")
	return p.Webhooks.ParseWebhookEvent(payload, signature)
}

func (p *Provider) record(op string) {
	p.mu.Lock()
	p.calls[op]++
	p.mu.Unlock()
}
