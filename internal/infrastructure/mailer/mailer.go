package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/wneessen/go-mail"

	"marketpay-backend/internal/domain"
	"marketpay-backend/internal/usecase"
)

//go:embed templates/*
var templateFS embed.FS

var (
	textTmpl = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/payment_link.txt"))
	htmlTmpl = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/payment_link.html"))
)

type Config struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Enabled reports whether enough is configured to send mail.
func (c Config) Enabled() bool {
	return c.Host != "" && c.From != ""
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, msgs ...*mail.Msg) error
}

// SMTP delivers notifications through an SMTP relay.
type SMTP struct {
	from   string
	sender sender
}

func New(cfg Config) (*SMTP, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(15 * time.Second),
	}
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Pass),
		)
	}
	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTP{from: cfg.From, sender: c}, nil
}

func (m *SMTP) SendPaymentLink(ctx context.Context, n usecase.PaymentLinkNotice) error {
	msg, err := composePaymentLink(m.from, n)
	if err != nil {
		return err
	}
	if err := m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send payment link: %w", err)
	}
	return nil
}

// Noop stands in when SMTP is not configured and only logs what would be sent.
type Noop struct {
	Log *slog.Logger
}

func (n Noop) SendPaymentLink(_ context.Context, notice usecase.PaymentLinkNotice) error {
	log := n.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("email disabled, skipping payment link", "order_id", notice.OrderID, "to", notice.To)
	return nil
}

type paymentLinkView struct {
	BuyerName   string
	OrderID     string
	Total       string
	Currency    string
	PaymentLink string
}

func render(n usecase.PaymentLinkNotice) (string, string, error) {
	v := paymentLinkView{
		BuyerName:   n.BuyerName,
		OrderID:     n.OrderID,
		Total:       domain.FormatMinor(n.TotalAmount),
		Currency:    strings.ToUpper(n.Currency),
		PaymentLink: n.PaymentLink,
	}
	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, v); err != nil {
		return "", "", fmt.Errorf("render text body: %w", err)
	}
	if err := htmlTmpl.Execute(&html, v); err != nil {
		return "", "", fmt.Errorf("render html body: %w", err)
	}
	return text.String(), html.String(), nil
}

func composePaymentLink(from string, n usecase.PaymentLinkNotice) (*mail.Msg, error) {
	text, html, err := render(n)
	if err != nil {
		return nil, err
	}
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(n.To); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(fmt.Sprintf("Complete payment for order %s", n.OrderID))
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)
	return msg, nil
}
