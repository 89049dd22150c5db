package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kashvijewels/jewel-shop/internal/domain/models"
	"github.com/kashvijewels/jewel-shop/internal/gateway"
	"github.com/kashvijewels/jewel-shop/internal/storage"
)

// GatewayOrder is returned to the client so it can open the gateway
// checkout widget.
type GatewayOrder struct {
	OrderID        int64  `json:"order_id"`
	GatewayOrderID string `json:"razorpay_order_id"`
	Amount         int64  `json:"amount"` // paise
	Currency       string `json:"currency"`
	GatewayKeyID   string `json:"key_id"`
}

// VerifyRequest carries a client-side payment confirmation callback.
type VerifyRequest struct {
	OrderID          int64
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

type PaymentService interface {
	CreateGatewayOrder(ctx context.Context, orderID int64, actor models.Actor) (*GatewayOrder, error)
	VerifyPayment(ctx context.Context, req VerifyRequest, actor models.Actor) error
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

type paymentService struct {
	log           *slog.Logger
	db            *sql.DB
	orderRepo     storage.OrderStorage
	gw            gateway.Gateway
	notifier      *Notifier
	keyID         string
	keySecret     string
	webhookSecret string
}

func NewPaymentService(log *slog.Logger, db *sql.DB, orderRepo storage.OrderStorage, gw gateway.Gateway, notifier *Notifier, keyID, keySecret, webhookSecret string) PaymentService {
	return &paymentService{
		log:           log,
		db:            db,
		orderRepo:     orderRepo,
		gw:            gw,
		notifier:      notifier,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}
}

// CreateGatewayOrder registers the order with the payment gateway and pins
// the gateway order id locally. Calling it again returns the existing id.
func (s *paymentService) CreateGatewayOrder(ctx context.Context, orderID int64, actor models.Actor) (*GatewayOrder, error) {
	const op = "service.PaymentService.CreateGatewayOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("orderID", orderID))

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		logger.Error("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}

	if !actor.Role.IsStaff() && actor.ID != order.UserID {
		logger.Warn("gateway order rejected: not owner")
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	if order.RazorpayOrderID != "" {
		return s.gatewayOrderResponse(order, order.RazorpayOrderID), nil
	}

	receipt := fmt.Sprintf("order_%d", order.ID)
	gatewayOrderID, err := s.gw.CreateOrder(ctx, order.TotalAmount, "INR", receipt)
	if err != nil {
		logger.Error("gateway order creation failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: gateway order creation failed: %w", op, err)
	}

	if err := s.orderRepo.SetGatewayOrderID(ctx, order.ID, gatewayOrderID); err != nil {
		// Lost the set-once race: a concurrent call registered first,
		// so answer with the id that actually stuck.
		if errors.Is(err, storage.ErrGatewayOrderAlreadySet) {
			current, readErr := s.orderRepo.GetOrderByID(ctx, order.ID)
			if readErr != nil {
				logger.Error("failed to reload order after lost race", slog.Any("error", readErr))
				return nil, fmt.Errorf("%s: failed to reload order: %w", op, readErr)
			}
			logger.Info("gateway order already registered", slog.String("gatewayOrderID", current.RazorpayOrderID))
			return s.gatewayOrderResponse(current, current.RazorpayOrderID), nil
		}
		logger.Error("failed to store gateway order id", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to store gateway order id: %w", op, err)
	}

	logger.Info("gateway order created", slog.String("gatewayOrderID", gatewayOrderID))
	return s.gatewayOrderResponse(order, gatewayOrderID), nil
}

func (s *paymentService) gatewayOrderResponse(order *models.Order, gatewayOrderID string) *GatewayOrder {
	return &GatewayOrder{
		OrderID:        order.ID,
		GatewayOrderID: gatewayOrderID,
		Amount:         order.TotalAmount,
		Currency:       "INR",
		GatewayKeyID:   s.keyID,
	}
}

// VerifyPayment checks the gateway signature before any state change:
// HMAC-SHA256 over "gatewayOrderID|gatewayPaymentID" with the key secret,
// compared in constant time. The signature only attests to that gateway
// pair, so the order it is applied to must carry the same gateway order id
// and belong to the caller; a replay of the same payment id is an
// idempotent no-op.
func (s *paymentService) VerifyPayment(ctx context.Context, req VerifyRequest, actor models.Actor) error {
	const op = "service.PaymentService.VerifyPayment"
	logger := s.log.With(slog.String("op", op), slog.Int64("orderID", req.OrderID))

	payload := req.GatewayOrderID + "|" + req.GatewayPaymentID
	if !verifyHMAC(payload, req.Signature, s.keySecret) {
		logger.Warn("payment signature mismatch")
		return fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	}

	applied, err := s.markPaid(ctx, logger, req.OrderID, req.GatewayOrderID, req.GatewayPaymentID, &actor)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !applied {
		logger.Info("payment already applied, skipping", slog.String("paymentID", req.GatewayPaymentID))
	}
	return nil
}

// HandleWebhook authenticates the webhook envelope itself — HMAC over the
// raw body with the webhook secret — before looking at any payment fields.
func (s *paymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	const op = "service.PaymentService.HandleWebhook"
	logger := s.log.With(slog.String("op", op))

	if !verifyHMAC(string(body), signature, s.webhookSecret) {
		logger.Warn("webhook signature mismatch")
		return fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	}

	var event struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID      string `json:"id"`
					OrderID string `json:"order_id"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		logger.Error("failed to decode webhook body", slog.Any("error", err))
		return fmt.Errorf("%s: failed to decode webhook body: %w", op, err)
	}

	if event.Event != "payment.captured" {
		logger.Info("ignoring webhook event", slog.String("event", event.Event))
		return nil
	}

	order, err := s.orderRepo.GetOrderByGatewayOrderID(ctx, event.Payload.Payment.Entity.OrderID)
	if err != nil {
		logger.Error("failed to find order for webhook", slog.Any("error", err))
		return fmt.Errorf("%s: failed to find order: %w", op, err)
	}

	// The order was resolved from the gateway order id, and the envelope
	// itself is authenticated, so no actor check applies here.
	applied, err := s.markPaid(ctx, logger, order.ID, event.Payload.Payment.Entity.OrderID, event.Payload.Payment.Entity.ID, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !applied {
		logger.Info("webhook replay, payment already applied", slog.Int64("orderID", order.ID))
	}
	return nil
}

// markPaid applies the completion exactly once per gateway payment id. The
// row lock plus the conditional update make a replayed confirmation a
// no-op; a different payment id against a paid order is rejected. The
// locked order must carry gatewayOrderID — a valid signature for one order
// proves nothing about any other — and a non-nil actor must own the order
// or be staff.
func (s *paymentService) markPaid(ctx context.Context, logger *slog.Logger, orderID int64, gatewayOrderID, paymentID string, actor *models.Actor) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}

	order, err := s.orderRepo.LockOrderByIDTx(ctx, tx, orderID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to lock order", slog.Any("error", err))
		return false, fmt.Errorf("failed to lock order: %w", err)
	}

	if order.RazorpayOrderID == "" || order.RazorpayOrderID != gatewayOrderID {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Warn("gateway order id does not match the order",
			slog.String("pinned", order.RazorpayOrderID), slog.String("claimed", gatewayOrderID))
		return false, ErrInvalidSignature
	}

	if actor != nil && !actor.Role.IsStaff() && actor.ID != order.UserID {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Warn("payment confirmation rejected: not owner", slog.Int64("actorID", actor.ID))
		return false, ErrForbidden
	}

	if order.TransactionID != "" {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		if order.TransactionID == paymentID {
			return false, nil // replay, nothing to do
		}
		logger.Warn("order already paid with a different payment id",
			slog.String("existing", order.TransactionID), slog.String("incoming", paymentID))
		return false, ErrInvalidState
	}

	applied, err := s.orderRepo.MarkPaidTx(ctx, tx, orderID, paymentID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to mark order paid", slog.Any("error", err))
		return false, fmt.Errorf("failed to mark order paid: %w", err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if applied {
		s.notifier.PaymentCompleted(ctx, order, paymentID)
		logger.Info("payment completed", slog.String("paymentID", paymentID))
	}
	return applied, nil
}

// verifyHMAC compares the hex HMAC-SHA256 of payload against the supplied
// signature in constant time.
func verifyHMAC(payload, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
