package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kashvijewels/jewel-shop/internal/security/jwtmiddleware"
	"github.com/kashvijewels/jewel-shop/internal/service"
)

// GatewayOrderRequest asks the gateway to register an existing local order.
type GatewayOrderRequest struct {
	OrderID int64 `json:"order_id" validate:"required,gt=0"`
}

// CreateGatewayOrderHandler handles POST /payment/razorpay/order.
func CreateGatewayOrderHandler(log *slog.Logger, paymentService service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateGatewayOrderHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("actor not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req GatewayOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		gwOrder, err := paymentService.CreateGatewayOrder(r.Context(), req.OrderID, actor)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, gwOrder)
	}
}

// VerifyPaymentRequest carries the client-side confirmation callback fields.
type VerifyPaymentRequest struct {
	OrderID         int64  `json:"order_id" validate:"required,gt=0"`
	RazorpayOrderID string `json:"razorpay_order_id" validate:"required"`
	RazorpayPayID   string `json:"razorpay_payment_id" validate:"required"`
	Signature       string `json:"razorpay_signature" validate:"required"`
}

// VerifyPaymentHandler handles POST /payment/razorpay/verify.
func VerifyPaymentHandler(log *slog.Logger, paymentService service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.VerifyPaymentHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("actor not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req VerifyPaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		err := paymentService.VerifyPayment(r.Context(), service.VerifyRequest{
			OrderID:          req.OrderID,
			GatewayOrderID:   req.RazorpayOrderID,
			GatewayPaymentID: req.RazorpayPayID,
			Signature:        req.Signature,
		}, actor)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]string{"message": "payment verified"})
	}
}
