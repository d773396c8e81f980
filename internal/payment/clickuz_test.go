package payment

import (
	"context"
	"testing"
)

func TestCreateInvoice(t *testing.T) {
	p := NewProvider(Config{LiveToken: "live-token", TestToken: "test-token"}, nil)

	inv, err := p.CreateInvoice(context.Background(), InvoiceInput{
		Title:       "Booking with Dr. Aziza",
		Description: "Date: 2024-06-10\nTime: 09:00-10:00",
		Payload:     "0190b5a0-0000-7000-8000-000000000001",
		Amount:      150000,
	})
	if err != nil {
		t.Fatalf("CreateInvoice error: %v", err)
	}

	if inv.ProviderToken != "live-token" {
		t.Fatalf("token = %q, want live token", inv.ProviderToken)
	}
	if inv.Currency != "UZS" {
		t.Fatalf("currency = %q, want UZS", inv.Currency)
	}
	if inv.AmountMinor != 15000000 {
		t.Fatalf("amount minor = %d, want 15000000", inv.AmountMinor)
	}
	if inv.Payload != "0190b5a0-0000-7000-8000-000000000001" {
		t.Fatalf("payload = %q, want the booking id unchanged", inv.Payload)
	}
}

func TestCreateInvoice_TestModeToken(t *testing.T) {
	p := NewProvider(Config{LiveToken: "live-token", TestToken: "test-token", TestMode: true}, nil)

	inv, err := p.CreateInvoice(context.Background(), InvoiceInput{
		Title: "t", Payload: "b1", Amount: 100,
	})
	if err != nil {
		t.Fatalf("CreateInvoice error: %v", err)
	}
	if inv.ProviderToken != "test-token" {
		t.Fatalf("token = %q, want test token", inv.ProviderToken)
	}
}

func TestCreateInvoice_Validation(t *testing.T) {
	p := NewProvider(Config{LiveToken: "live-token"}, nil)

	if _, err := p.CreateInvoice(context.Background(), InvoiceInput{Title: "t", Amount: 100}); err == nil {
		t.Fatalf("expected error for empty payload")
	}
	if _, err := p.CreateInvoice(context.Background(), InvoiceInput{Title: "t", Payload: "b1"}); err == nil {
		t.Fatalf("expected error for zero amount")
	}

	empty := NewProvider(Config{}, nil)
	if _, err := empty.CreateInvoice(context.Background(), InvoiceInput{Title: "t", Payload: "b1", Amount: 1}); err == nil {
		t.Fatalf("expected error for missing token")
	}
}

func TestVerifyPayment(t *testing.T) {
	p := NewProvider(Config{LiveToken: "live-token"}, nil)
	ctx := context.Background()

	if !p.VerifyPayment(ctx, Attempt{Payload: "b1", Currency: "UZS", TotalAmount: 100}) {
		t.Fatalf("expected valid attempt to pass")
	}
	if p.VerifyPayment(ctx, Attempt{Currency: "UZS", TotalAmount: 100}) {
		t.Fatalf("expected missing payload to be rejected")
	}
	if p.VerifyPayment(ctx, Attempt{Payload: "b1", Currency: "USD", TotalAmount: 100}) {
		t.Fatalf("expected wrong currency to be rejected")
	}
	if p.VerifyPayment(ctx, Attempt{Payload: "b1", Currency: "UZS"}) {
		t.Fatalf("expected zero amount to be rejected")
	}
}
