//go:build !integration

package model

import (
	"errors"
	"strings"
	"testing"

	"mpesa-subscription-shop/internal/domain"
)

// --- MSISDN Tests ---

func TestNormalizeMSISDN(t *testing.T) {
	t.Run("should accept already canonical numbers", func(t *testing.T) {
		got, err := NormalizeMSISDN("254712345678")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if got != "254712345678" {
			t.Errorf("expected 254712345678, got %s", got)
		}
	})

	t.Run("should rewrite local trunk prefix", func(t *testing.T) {
		got, err := NormalizeMSISDN("0712345678")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if got != "254712345678" {
			t.Errorf("expected 254712345678, got %s", got)
		}
	})

	t.Run("should strip a leading plus", func(t *testing.T) {
		got, err := NormalizeMSISDN("+254 712 345 678")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if got != "254712345678" {
			t.Errorf("expected 254712345678, got %s", got)
		}
	})

	t.Run("should accept bare subscriber form", func(t *testing.T) {
		got, err := NormalizeMSISDN("712345678")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if got != "254712345678" {
			t.Errorf("expected 254712345678, got %s", got)
		}
	})

	t.Run("should reject everything else", func(t *testing.T) {
		bad := []string{
			"",
			"0612345678",    // not a mobile prefix
			"25471234567",   // too short
			"2547123456789", // too long
			"07123",
			"not-a-number",
			"2548123456780",
		}
		for _, in := range bad {
			if _, err := NormalizeMSISDN(in); !errors.Is(err, domain.ErrInvalidPhone) {
				t.Errorf("input %q: expected ErrInvalidPhone, got %v", in, err)
			}
		}
	})
}

// --- Reference Tests ---

func TestNewReference(t *testing.T) {
	t.Run("should embed the uppercased plan id", func(t *testing.T) {
		ref := NewReference(IntentSubscription, "netflix")
		if !strings.HasPrefix(ref, "NETFLIX-") {
			t.Errorf("expected NETFLIX- prefix, got %s", ref)
		}
	})

	t.Run("should mark donations", func(t *testing.T) {
		ref := NewReference(IntentDonation, "")
		if !strings.HasPrefix(ref, "DONATION-") {
			t.Errorf("expected DONATION- prefix, got %s", ref)
		}
	})

	t.Run("should never collide across rapid calls", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 1000; i++ {
			ref := NewReference(IntentSubscription, "netflix")
			if seen[ref] {
				t.Fatalf("duplicate reference generated: %s", ref)
			}
			seen[ref] = true
		}
	})

	t.Run("should round-trip through parse", func(t *testing.T) {
		intent, planID, err := ParseReferenceIntent(NewReference(IntentSubscription, "netflix"))
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if intent != IntentSubscription || planID != "netflix" {
			t.Errorf("expected subscription/netflix, got %s/%s", intent, planID)
		}

		intent, planID, err = ParseReferenceIntent(NewReference(IntentDonation, ""))
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if intent != IntentDonation || planID != "" {
			t.Errorf("expected donation with no plan, got %s/%s", intent, planID)
		}
	})

	t.Run("should reject malformed references", func(t *testing.T) {
		for _, in := range []string{"", "NETFLIX", "-01ABCDEF", "NETFLIX-"} {
			if _, _, err := ParseReferenceIntent(in); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("input %q: expected ErrInvalidArgument, got %v", in, err)
			}
		}
	})
}

// --- PaymentRecord Tests ---

func TestPaymentRecordFulfillmentSettled(t *testing.T) {
	cases := []struct {
		name string
		rec  PaymentRecord
		want bool
	}{
		{"pending never settled", PaymentRecord{Status: PaymentStatusPending}, false},
		{"failed always settled", PaymentRecord{Status: PaymentStatusFailed}, true},
		{"success without fulfillment", PaymentRecord{Status: PaymentStatusSuccess}, false},
		{"success fulfilled", PaymentRecord{Status: PaymentStatusSuccess, Fulfilled: true}, true},
		{"success with shortage", PaymentRecord{Status: PaymentStatusSuccess, Shortage: true}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rec.FulfillmentSettled(); got != tc.want {
				t.Errorf("FulfillmentSettled() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNewPlan(t *testing.T) {
	t.Run("should create a plan", func(t *testing.T) {
		p, err := NewPlan("netflix", "Netflix Premium", 500, "1 Month", []string{"4K Ultra HD"})
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if p.IsZero() {
			t.Error("expected a non-zero plan")
		}
	})

	t.Run("should reject non-positive price", func(t *testing.T) {
		if _, err := NewPlan("netflix", "Netflix Premium", 0, "1 Month", nil); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
