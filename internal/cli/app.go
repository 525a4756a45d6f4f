package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"marketpay-backend/internal/config"
	"marketpay-backend/internal/domain"
	"marketpay-backend/internal/infrastructure/mailer"
	"marketpay-backend/internal/infrastructure/repo"
	"marketpay-backend/internal/infrastructure/stripe"
	"marketpay-backend/internal/usecase"
)

type store interface {
	usecase.SellerStore
	usecase.OrderStore
	usecase.TransactionStore
}

// app holds the dependencies every command wires from one Config.
type app struct {
	cfg   config.Config
	log   *slog.Logger
	store store
	ping  func(ctx context.Context) error
	close func() error

	// provider is nil until withProvider is called.
	provider usecase.PaymentProvider
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func newApp(cfg config.Config) (*app, error) {
	log := newLogger(cfg, os.Stderr)
	a := &app{cfg: cfg, log: log, close: func() error { return nil }}
	if cfg.DatabaseURL == "" {
		log.Warn("no database configured, using in-memory store")
		a.store = repo.NewMemoryStore()
		return a, nil
	}
	db, err := repo.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.store = db
	a.ping = db.Ping
	a.close = db.Close
	return a, nil
}

func (a *app) withProvider() error {
	if a.cfg.Stripe.SecretKey == "" {
		return fmt.Errorf("stripe secret key is required (MARKETPAY_STRIPE_SECRET_KEY)")
	}
	a.provider = stripe.New(a.cfg.Stripe.SecretKey, a.cfg.Stripe.WebhookSecret)
	return nil
}

func (a *app) notifier() (usecase.Notifier, error) {
	mc := mailer.Config{
		Host: a.cfg.Email.Host,
		Port: a.cfg.Email.Port,
		User: a.cfg.Email.User,
		Pass: a.cfg.Email.Pass,
		From: a.cfg.Email.From,
	}
	if !mc.Enabled() {
		return mailer.Noop{Log: a.log}, nil
	}
	return mailer.New(mc)
}

func (a *app) fees() (domain.FeePolicy, error) {
	return domain.ParseFeePolicy(a.cfg.Fee.Rate, a.cfg.Fee.Fixed)
}

func (a *app) sellerService() *usecase.SellerService {
	return &usecase.SellerService{Sellers: a.store}
}

func (a *app) orderService(n usecase.Notifier) *usecase.OrderService {
	return &usecase.OrderService{
		Sellers:     a.store,
		Orders:      a.store,
		Notifier:    n,
		Links:       &usecase.LinkService{Secret: a.cfg.Links.Secret, TTL: a.cfg.Links.TTL},
		FrontendURL: a.cfg.FrontendURL,
		Currency:    a.cfg.Currency,
		Log:         a.log,
	}
}

func (a *app) paymentService(fees domain.FeePolicy) *usecase.PaymentService {
	return &usecase.PaymentService{
		Sellers:      a.store,
		Orders:       a.store,
		Transactions: a.store,
		Provider:     a.provider,
		Fees:         fees,
		Currency:     a.cfg.Currency,
		Log:          a.log,
	}
}

func (a *app) webhookService() *usecase.WebhookService {
	return &usecase.WebhookService{
		Sellers:      a.store,
		Orders:       a.store,
		Transactions: a.store,
		Provider:     a.provider,
		Log:          a.log,
	}
}
