package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/kashvijewels/jewel-shop/internal/service"
)

// what Razorpay signs the envelope with
const webhookSignatureHeader = "X-Razorpay-Signature"

// RazorpayWebhookHandler handles POST /webhook/razorpay-webhook. The route
// is public: the envelope HMAC is its authentication, checked over the raw
// body before any field is inspected.
func RazorpayWebhookHandler(log *slog.Logger, paymentService service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RazorpayWebhookHandler"
		logger := log.With(slog.String("op", op))

		signature := r.Header.Get(webhookSignatureHeader)
		if signature == "" {
			logger.Warn("webhook without signature header")
			http.Error(w, "missing signature", http.StatusBadRequest)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			logger.Error("failed to read webhook body", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		if err := paymentService.HandleWebhook(r.Context(), body, signature); err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	}
}
