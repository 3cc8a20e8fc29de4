// File: internal/infra/adapters/payment/payhero_gateway.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mpesa-subscription-shop/internal/domain"
	"mpesa-subscription-shop/internal/domain/model"
	"mpesa-subscription-shop/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*PayHeroGateway)(nil)

// PayHeroGateway implements adapter.PaymentGateway against the PayHero
// mobile-money API: POST /payments sends the STK push, GET
// /transaction-status polls it by external reference.
type PayHeroGateway struct {
	authToken string
	baseURL   string
	channelID int
	callback  string
	client    *http.Client
}

func NewPayHeroGateway(authToken, baseURL string, channelID int, callbackURL string) (*PayHeroGateway, error) {
	if authToken == "" {
		return nil, errors.New("payhero auth token empty")
	}
	if baseURL == "" {
		baseURL = "https://backend.payhero.co.ke/api/v2"
	}
	if callbackURL != "" {
		if _, err := url.Parse(callbackURL); err != nil {
			return nil, fmt.Errorf("invalid callback url: %w", err)
		}
	}
	return &PayHeroGateway{
		authToken: authToken,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		channelID: channelID,
		callback:  callbackURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *PayHeroGateway) Name() string { return "payhero" }

type payheroChargeRequest struct {
	Amount            int64  `json:"amount"`
	PhoneNumber       string `json:"phone_number"`
	ChannelID         int    `json:"channel_id"`
	Provider          string `json:"provider"`
	ExternalReference string `json:"external_reference"`
	CustomerName      string `json:"customer_name"`
	CallbackURL       string `json:"callback_url,omitempty"`
}

type payheroChargeResponse struct {
	Success           bool   `json:"success"`
	Status            string `json:"status"`
	Reference         string `json:"reference"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ErrorMessage      string `json:"error_message"`
}

// InitiateCharge sends one STK push. No internal retry: retry policy belongs
// to the caller.
func (g *PayHeroGateway) InitiateCharge(ctx context.Context, phone string, amount int64, reference, payerName string) (adapter.ChargeAck, error) {
	payload := payheroChargeRequest{
		Amount:            amount,
		PhoneNumber:       phone,
		ChannelID:         g.channelID,
		Provider:          "m-pesa",
		ExternalReference: reference,
		CustomerName:      payerName,
		CallbackURL:       g.callback,
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/payments", bytes.NewReader(b))
	if err != nil {
		return adapter.ChargeAck{}, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+g.authToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return adapter.ChargeAck{}, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	var out payheroChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.ChargeAck{}, fmt.Errorf("%w: decode: %v", domain.ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return adapter.ChargeAck{}, fmt.Errorf("%w: http %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400 || !out.Success:
		return adapter.ChargeAck{}, fmt.Errorf("%w: %s", domain.ErrChargeRejected, out.ErrorMessage)
	}

	return adapter.ChargeAck{
		ProviderRef:     out.CheckoutRequestID,
		CustomerMessage: fmt.Sprintf("M-Pesa prompt sent to %s for KES %d. Enter your PIN to complete.", phone, amount),
	}, nil
}

type payheroStatusResponse struct {
	Success           bool   `json:"success"`
	Status            string `json:"status"` // QUEUED | PENDING | SUCCESS | FAILED | CANCELLED
	ProviderReference string `json:"provider_reference"`
	ResultDescription string `json:"result_description"`
}

// QueryStatus polls the charge by external reference. A transport or auth
// problem is an error; a provider-reported failure is a valid ChargeState.
func (g *PayHeroGateway) QueryStatus(ctx context.Context, reference string) (adapter.ChargeState, error) {
	u := g.baseURL + "/transaction-status?reference=" + url.QueryEscape(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return adapter.ChargeState{}, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	req.Header.Set("Authorization", "Basic "+g.authToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return adapter.ChargeState{}, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return adapter.ChargeState{}, fmt.Errorf("%w: http %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}

	var out payheroStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.ChargeState{}, fmt.Errorf("%w: decode: %v", domain.ErrGatewayUnavailable, err)
	}

	switch strings.ToUpper(out.Status) {
	case "SUCCESS":
		return adapter.ChargeState{Status: model.PaymentStatusSuccess, ProviderMessage: "Payment received"}, nil
	case "FAILED", "CANCELLED":
		msg := out.ResultDescription
		if msg == "" {
			msg = "Payment was not completed"
		}
		return adapter.ChargeState{Status: model.PaymentStatusFailed, ProviderMessage: msg}, nil
	default:
		return adapter.ChargeState{Status: model.PaymentStatusPending, ProviderMessage: "Waiting for payment confirmation"}, nil
	}
}
