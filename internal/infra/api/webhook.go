package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"pos-provisioning/internal/domain"
	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/infra/logging"
	"pos-provisioning/internal/infra/metrics"
	"pos-provisioning/internal/usecase"
)

const (
	signatureHeader = "X-Signature"
	maxWebhookBody  = 64 << 10
)

// DeliveryGuard remembers which gateway events were already handled.
type DeliveryGuard interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type webhookPayload struct {
	EventID       string    `json:"event_id"`
	Reference     string    `json:"reference"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	PaidAt        time.Time `json:"paid_at"`
}

// SignPayload is the hex HMAC-SHA256 of body under secret, as sent in X-Signature.
func SignPayload(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func verifySignature(secret string, body []byte, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil || secret == "" {
		return false
	}
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hmac.Equal(h.Sum(nil), got)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, reason := "ok", ""
	defer func() {
		metrics.WebhookRequests.WithLabelValues(result, reason).Inc()
		metrics.WebhookDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()
	fail := func(status int, why string, msg string) {
		result, reason = "fail", why
		writeJSON(w, status, errorBody{Error: msg})
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		fail(http.StatusBadRequest, "bad_json", "unreadable body")
		return
	}
	if !verifySignature(s.webhookSecret, body, r.Header.Get(signatureHeader)) {
		fail(http.StatusUnauthorized, "bad_signature", "invalid signature")
		return
	}
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil || p.EventID == "" || p.Reference == "" {
		fail(http.StatusBadRequest, "bad_json", "malformed payload")
		return
	}

	ctx := r.Context()
	l := logging.With(ctx, s.log).With().Str("event_id", p.EventID).Str("reference", p.Reference).Logger()

	claimed, err := s.guard.Claim(ctx, p.EventID)
	if err != nil {
		// fail open, MarkPaid is idempotent
		l.Warn().Err(err).Msg("webhook dedupe unavailable")
		claimed = true
	}
	if !claimed {
		result = "duplicate"
		writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}

	var pay *model.SubscriptionPayment
	switch p.Status {
	case "paid", "settled", "success":
		pay, err = s.payments.MarkPaid(ctx, usecase.PaymentConfirmation{
			Reference:     p.Reference,
			TransactionID: p.TransactionID,
			Amount:        p.Amount,
			PaidAt:        p.PaidAt,
		})
	case "failed", "expired", "cancelled":
		pay, err = s.payments.MarkFailed(ctx, p.Reference)
	default:
		_ = s.guard.Release(ctx, p.EventID)
		fail(http.StatusBadRequest, "bad_json", "unknown status")
		return
	}
	if err != nil {
		if rerr := s.guard.Release(ctx, p.EventID); rerr != nil {
			l.Warn().Err(rerr).Msg("release webhook event")
		}
		switch {
		case errors.Is(err, domain.ErrNotFound):
			fail(http.StatusNotFound, "unknown_reference", "unknown reference")
		case errors.Is(err, domain.ErrAmountMismatch):
			fail(http.StatusUnprocessableEntity, "amount_mismatch", "amount mismatch")
		default:
			l.Error().Err(err).Msg("webhook confirmation failed")
			result, reason = "fail", "confirm_error"
			writeError(w, err)
		}
		return
	}

	l.Info().Str("payment_id", pay.ID).Str("status", string(pay.Status)).Msg("webhook processed")
	writeJSON(w, http.StatusOK, map[string]string{"status": string(pay.Status), "payment_id": pay.ID})
}
