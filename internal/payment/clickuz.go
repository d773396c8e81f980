// Package payment integrates Click.uz through the Telegram Payments API.
// Invoices are issued by the bot with a provider token; the actual charge
// happens inside Telegram, so this provider only shapes invoices and vets
// pre-checkout attempts.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const currencyUZS = "UZS"

type Config struct {
	LiveToken string
	TestToken string
	TestMode  bool
}

type Provider struct {
	cfg Config
	log *slog.Logger
}

func NewProvider(cfg Config, log *slog.Logger) *Provider {
	if log == nil {
		log = slog.Default()
	}
	return &Provider{
		cfg: cfg,
		log: log.With(slog.String("component", "payment")),
	}
}

func (p *Provider) providerToken() string {
	if p.cfg.TestMode {
		return p.cfg.TestToken
	}
	return p.cfg.LiveToken
}

type InvoiceInput struct {
	Title       string
	Description string
	// Payload round-trips through Telegram and comes back verbatim on the
	// successful-payment notification. The booking id lives here.
	Payload string
	// Amount in whole currency units.
	Amount int64
}

// Invoice is everything the transport needs to send a Telegram invoice.
type Invoice struct {
	Title          string
	Description    string
	Payload        string
	ProviderToken  string
	Currency       string
	PriceLabel     string
	AmountMinor    int64
	StartParameter string
}

func (p *Provider) CreateInvoice(ctx context.Context, in InvoiceInput) (Invoice, error) {
	if strings.TrimSpace(in.Payload) == "" {
		return Invoice{}, fmt.Errorf("invoice payload is required")
	}
	if in.Amount <= 0 {
		return Invoice{}, fmt.Errorf("invoice amount must be positive, got %d", in.Amount)
	}
	token := p.providerToken()
	if token == "" {
		return Invoice{}, fmt.Errorf("no provider token configured")
	}

	return Invoice{
		Title:          in.Title,
		Description:    in.Description,
		Payload:        in.Payload,
		ProviderToken:  token,
		Currency:       currencyUZS,
		PriceLabel:     in.Title,
		AmountMinor:    in.Amount * 100,
		StartParameter: "booking_payment",
	}, nil
}

// Attempt is a pre-checkout query awaiting approval.
type Attempt struct {
	Payload     string
	Currency    string
	TotalAmount int64
}

// VerifyPayment vets an attempt before the gateway charges the user.
// Rejected attempts are never charged.
func (p *Provider) VerifyPayment(ctx context.Context, attempt Attempt) bool {
	if strings.TrimSpace(attempt.Payload) == "" {
		p.log.Warn("payment attempt without payload rejected")
		return false
	}
	if attempt.Currency != currencyUZS {
		p.log.Warn("payment attempt with unexpected currency rejected",
			slog.String("currency", attempt.Currency))
		return false
	}
	if attempt.TotalAmount <= 0 {
		p.log.Warn("payment attempt with non-positive amount rejected",
			slog.Int64("total_amount", attempt.TotalAmount))
		return false
	}
	return true
}
