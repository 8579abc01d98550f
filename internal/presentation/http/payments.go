package httppresentation

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	apppayment "github.com/Zhima-Mochi/minishop-storefront/app/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/validation"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/infrastructure/mpesa"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"
)

// payRequest keeps amount raw: clients send it as a string or a number.
type payRequest struct {
	PhoneNumber string          `json:"phone_number"`
	Amount      json.RawMessage `json:"amount"`
	OrderID     *uint           `json:"order_id"`
}

func (req payRequest) amount() (string, error) {
	raw := bytes.TrimSpace(req.Amount)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", validation.New("amount", "A valid number is required.")
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", validation.New("amount", "A valid number is required.")
	}
	return n.String(), nil
}

// handleInitiatePayment relays the gateway's own response body on success
// and on a declined push alike.
func (s *Server) handleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	var req payRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	amount, err := req.amount()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	res, err := s.svc.InitiatePayment.Execute(r.Context(), apppayment.InitiatePaymentInput{
		UserID:      p.UserID,
		PhoneNumber: req.PhoneNumber,
		Amount:      amount,
		OrderID:     req.OrderID,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if len(res.Raw) == 0 {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Raw)
}

// handleMpesaCallback always acknowledges. The gateway retries anything
// else, and a failed settlement is visible in the logs.
func (s *Server) handleMpesaCallback(w http.ResponseWriter, r *http.Request) {
	log := s.logger(r)
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		log.Warn("mpesa_callback_read_failed", observability.F("error", err.Error()))
		writeJSON(w, http.StatusOK, mpesa.Accepted)
		return
	}
	result, err := mpesa.DecodeCallback(body)
	if err != nil {
		log.Warn("mpesa_callback_malformed",
			observability.F("error", err.Error()),
			observability.F("body_bytes", len(body)),
		)
		writeJSON(w, http.StatusOK, mpesa.Accepted)
		return
	}
	if _, err := s.svc.HandleCallback.Execute(r.Context(), result); err != nil {
		log.Error("mpesa_callback_unapplied",
			observability.F("checkout_request_id", result.CheckoutRequestID),
			observability.F("error", err.Error()),
		)
	}
	writeJSON(w, http.StatusOK, mpesa.Accepted)
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	id := strings.TrimSpace(r.PathValue("checkout_request_id"))
	if id == "" {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	pay, err := s.svc.GetPayment.Execute(r.Context(), apppayment.GetPaymentInput{UserID: p.UserID, CheckoutRequestID: id})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayment(pay))
}
