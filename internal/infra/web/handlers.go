// File: internal/infra/web/handlers.go
package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"mpesa-subscription-shop/internal/domain"
	"mpesa-subscription-shop/internal/usecase"
)

type planDTO struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    int64    `json:"price"`
	Duration string   `json:"duration"`
	Features []string `json:"features"`
	Popular  bool     `json:"popular"`
}

type categoryDTO struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Icon  string    `json:"icon"`
	Color string    `json:"color"`
	Plans []planDTO `json:"plans"`
}

type initiatePaymentRequest struct {
	PlanID       string `json:"planId"`
	PhoneNumber  string `json:"phoneNumber"`
	CustomerName string `json:"customerName"`
	Email        string `json:"email"`
}

type donateRequest struct {
	PhoneNumber  string `json:"phoneNumber"`
	Amount       int64  `json:"amount"`
	CustomerName string `json:"customerName"`
	Email        string `json:"email"`
	Message      string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}

// writeDomainError maps domain sentinels to HTTP statuses. Provider payloads
// never reach the client; only our own messages do.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPhone):
		writeError(w, http.StatusBadRequest, "Invalid phone number. Use format 07XXXXXXXX or 2547XXXXXXXX")
	case errors.Is(err, domain.ErrAmountOutOfRange):
		writeError(w, http.StatusBadRequest, "Donation amount is out of the accepted range")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, domain.ErrPlanNotFound):
		writeError(w, http.StatusNotFound, "Unknown plan")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Payment not found")
	case errors.Is(err, domain.ErrChargeRejected):
		writeError(w, http.StatusBadGateway, "Payment could not be initiated. Please try again")
	case errors.Is(err, domain.ErrGatewayUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Payment provider is unreachable. Please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "Something went wrong")
	}
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func plansHandler(catalogUC usecase.CatalogUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := catalogUC.Categories(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load plans")
			return
		}

		out := make([]categoryDTO, 0, len(cats))
		for _, c := range cats {
			dto := categoryDTO{ID: c.ID, Name: c.Name, Icon: c.Icon, Color: c.Color, Plans: make([]planDTO, 0, len(c.Plans))}
			for _, p := range c.Plans {
				dto.Plans = append(dto.Plans, planDTO{
					ID: p.ID, Name: p.Name, Price: p.Price,
					Duration: p.Duration, Features: p.Features, Popular: p.Popular,
				})
			}
			out = append(out, dto)
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"categories": out,
		})
	}
}

func initiatePaymentHandler(paymentUC usecase.PaymentUseCase, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req initiatePaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		res, err := paymentUC.Initiate(r.Context(), usecase.ChargeRequest{
			PlanID:     req.PlanID,
			Phone:      req.PhoneNumber,
			PayerName:  req.CustomerName,
			PayerEmail: req.Email,
		})
		if err != nil {
			log.Warn().Err(err).Str("plan", req.PlanID).Msg("initiate payment rejected")
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"reference":       res.Reference,
				"amount":          res.Amount,
				"planName":        res.PlanName,
				"categoryName":    res.CategoryName,
				"checkoutMessage": res.Message,
			},
		})
	}
}

func donateHandler(paymentUC usecase.PaymentUseCase, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req donateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		res, err := paymentUC.Initiate(r.Context(), usecase.ChargeRequest{
			Donation:   true,
			Amount:     req.Amount,
			Phone:      req.PhoneNumber,
			PayerName:  req.CustomerName,
			PayerEmail: req.Email,
			Note:       req.Message,
		})
		if err != nil {
			log.Warn().Err(err).Msg("donation rejected")
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"reference":       res.Reference,
				"amount":          res.Amount,
				"checkoutMessage": res.Message,
				"thankYouMessage": "Thank you for supporting us!",
			},
		})
	}
}

func checkPaymentHandler(paymentUC usecase.PaymentUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reference := chi.URLParam(r, "reference")
		if reference == "" {
			writeError(w, http.StatusBadRequest, "Payment reference is required")
			return
		}

		res, err := paymentUC.CheckStatus(r.Context(), reference)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"status":  string(res.Status),
			"message": res.Message,
		})
	}
}

// statsHandler serves payment totals, revenue and inventory levels.
func statsHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		byStatus, inventory, err := statsUC.Totals(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get totals")
			return
		}

		day, week, month, err := statsUC.Revenue(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get revenue")
			return
		}

		counts := make(map[string]int64, len(byStatus))
		for status, n := range byStatus {
			counts[string(status)] = n
		}

		response := struct {
			PaymentsByStatus map[string]int64 `json:"payments_by_status"`
			Inventory        map[string]int   `json:"inventory"`
			Revenue          struct {
				Day   int64 `json:"day"`
				Week  int64 `json:"week"`
				Month int64 `json:"month"`
			} `json:"revenue_kes"`
		}{
			PaymentsByStatus: counts,
			Inventory:        inventory,
		}
		response.Revenue.Day = day
		response.Revenue.Week = week
		response.Revenue.Month = month

		writeJSON(w, http.StatusOK, response)
	}
}
