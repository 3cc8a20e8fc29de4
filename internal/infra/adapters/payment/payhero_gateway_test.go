//go:build !integration

package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mpesa-subscription-shop/internal/domain"
	"mpesa-subscription-shop/internal/domain/model"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *PayHeroGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g, err := NewPayHeroGateway("token-123", srv.URL, 42, "")
	if err != nil {
		t.Fatalf("NewPayHeroGateway: %v", err)
	}
	return g
}

func TestPayHeroGateway_InitiateCharge(t *testing.T) {
	ctx := context.Background()

	t.Run("should send the STK push request", func(t *testing.T) {
		var got payheroChargeRequest
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/payments" || r.Method != http.MethodPost {
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Basic token-123" {
				t.Errorf("missing basic auth header, got %q", r.Header.Get("Authorization"))
			}
			_ = json.NewDecoder(r.Body).Decode(&got)
			_ = json.NewEncoder(w).Encode(payheroChargeResponse{
				Success: true, Status: "QUEUED", CheckoutRequestID: "ws_CO_1",
			})
		})

		ack, err := g.InitiateCharge(ctx, "254712345678", 500, "NETFLIX-01ABC", "Jane Payer")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if ack.ProviderRef != "ws_CO_1" {
			t.Errorf("expected provider ref ws_CO_1, got %s", ack.ProviderRef)
		}
		if got.PhoneNumber != "254712345678" || got.Amount != 500 || got.ExternalReference != "NETFLIX-01ABC" {
			t.Errorf("unexpected payload: %+v", got)
		}
		if got.Provider != "m-pesa" || got.ChannelID != 42 {
			t.Errorf("unexpected provider/channel: %+v", got)
		}
	})

	t.Run("should map a provider rejection to ErrChargeRejected", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(payheroChargeResponse{Success: false, ErrorMessage: "invalid channel"})
		})

		_, err := g.InitiateCharge(ctx, "254712345678", 500, "NETFLIX-01ABC", "Jane Payer")
		if !errors.Is(err, domain.ErrChargeRejected) {
			t.Fatalf("expected ErrChargeRejected, got %v", err)
		}
	})

	t.Run("should map auth and server trouble to ErrGatewayUnavailable", func(t *testing.T) {
		for _, code := range []int{http.StatusUnauthorized, http.StatusInternalServerError} {
			g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
				_ = json.NewEncoder(w).Encode(payheroChargeResponse{})
			})
			if _, err := g.InitiateCharge(ctx, "254712345678", 500, "NETFLIX-01ABC", "Jane Payer"); !errors.Is(err, domain.ErrGatewayUnavailable) {
				t.Errorf("http %d: expected ErrGatewayUnavailable, got %v", code, err)
			}
		}
	})

	t.Run("should map a dead endpoint to ErrGatewayUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close() // connection refused from now on
		g, err := NewPayHeroGateway("token-123", srv.URL, 42, "")
		if err != nil {
			t.Fatalf("NewPayHeroGateway: %v", err)
		}
		if _, err := g.InitiateCharge(ctx, "254712345678", 500, "NETFLIX-01ABC", "Jane Payer"); !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
		}
	})
}

func TestPayHeroGateway_QueryStatus(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		provider string
		want     model.PaymentStatus
	}{
		{"SUCCESS", model.PaymentStatusSuccess},
		{"FAILED", model.PaymentStatusFailed},
		{"CANCELLED", model.PaymentStatusFailed},
		{"QUEUED", model.PaymentStatusPending},
		{"PENDING", model.PaymentStatusPending},
	}
	for _, tc := range cases {
		t.Run("provider status "+tc.provider, func(t *testing.T) {
			g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/transaction-status" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if got := r.URL.Query().Get("reference"); got != "NETFLIX-01ABC" {
					t.Errorf("expected reference query, got %q", got)
				}
				_ = json.NewEncoder(w).Encode(payheroStatusResponse{Success: true, Status: tc.provider})
			})

			state, err := g.QueryStatus(ctx, "NETFLIX-01ABC")
			if err != nil {
				t.Fatalf("expected no error, but got: %v", err)
			}
			if state.Status != tc.want {
				t.Errorf("expected %s, got %s", tc.want, state.Status)
			}
		})
	}

	t.Run("should treat non-200 as transient", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		if _, err := g.QueryStatus(ctx, "NETFLIX-01ABC"); !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
		}
	})
}
