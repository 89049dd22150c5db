package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kashvijewels/jewel-shop/internal/domain/models"
	"github.com/kashvijewels/jewel-shop/internal/storage"
)

// Mailer sends one transactional email. No retry contract is assumed.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Notifier produces the user-facing email and the internal activity entry
// that follow a successful state change. Delivery is best-effort: every
// failure is logged and swallowed, it never rolls back or fails the
// triggering request. Callers invoke it only after commit.
type Notifier struct {
	log          *slog.Logger
	mailer       Mailer
	userRepo     storage.UserStorage
	activityRepo storage.ActivityStorage
	opsEmail     string
}

func NewNotifier(log *slog.Logger, mailer Mailer, userRepo storage.UserStorage, activityRepo storage.ActivityStorage, opsEmail string) *Notifier {
	return &Notifier{
		log:          log,
		mailer:       mailer,
		userRepo:     userRepo,
		activityRepo: activityRepo,
		opsEmail:     opsEmail,
	}
}

// OrderCreated notifies the owner and sends a copy to the ops mailbox.
func (n *Notifier) OrderCreated(ctx context.Context, order *models.Order) {
	const op = "service.Notifier.OrderCreated"
	n.recordActivity(ctx, op, order.ID, order.UserID, "order created")

	owner, ok := n.lookupOwner(ctx, op, order.UserID)
	if !ok {
		return
	}

	subject := fmt.Sprintf("Your booking #%d is confirmed", order.ID)
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Your order <b>#%d</b> has been booked. We will hold your selection for an in-person fitting.</p>",
		ownerName(owner), order.ID)
	n.send(ctx, op, owner.Email, subject, body)

	opsSubject := fmt.Sprintf("New booking #%d", order.ID)
	opsBody := fmt.Sprintf("<p>Order <b>#%d</b> booked by %s (%s).</p>", order.ID, ownerName(owner), owner.Email)
	n.send(ctx, op, n.opsEmail, opsSubject, opsBody)
}

// StatusChanged notifies the owner about an accepted transition.
func (n *Notifier) StatusChanged(ctx context.Context, order *models.Order, newStatus models.OrderStatus, actorID int64) {
	const op = "service.Notifier.StatusChanged"
	n.recordActivity(ctx, op, order.ID, actorID, fmt.Sprintf("status changed to %s", newStatus))

	owner, ok := n.lookupOwner(ctx, op, order.UserID)
	if !ok {
		return
	}

	subject := fmt.Sprintf("Order #%d update", order.ID)
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Your order <b>#%d</b> is now <b>%s</b>.</p>",
		ownerName(owner), order.ID, newStatus)
	n.send(ctx, op, owner.Email, subject, body)
}

// PaymentCompleted notifies the owner about a verified payment. Called at
// most once per gateway payment id.
func (n *Notifier) PaymentCompleted(ctx context.Context, order *models.Order, paymentID string) {
	const op = "service.Notifier.PaymentCompleted"
	n.recordActivity(ctx, op, order.ID, order.UserID, "payment completed")

	owner, ok := n.lookupOwner(ctx, op, order.UserID)
	if !ok {
		return
	}

	subject := fmt.Sprintf("Payment received for order #%d", order.ID)
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>We received your payment for order <b>#%d</b> (reference %s). Thank you!</p>",
		ownerName(owner), order.ID, paymentID)
	n.send(ctx, op, owner.Email, subject, body)
}

// recordActivity writes the admin feed entry independently of email delivery.
func (n *Notifier) recordActivity(ctx context.Context, op string, orderID, actorID int64, action string) {
	if err := n.activityRepo.CreateEntry(ctx, orderID, actorID, action); err != nil {
		n.log.Error("failed to record activity entry",
			slog.String("op", op), slog.Int64("orderID", orderID), slog.Any("error", err))
	}
}

func (n *Notifier) lookupOwner(ctx context.Context, op string, userID int64) (*models.User, bool) {
	owner, err := n.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		n.log.Error("failed to look up order owner for notification",
			slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, false
	}
	return owner, true
}

func (n *Notifier) send(ctx context.Context, op, to, subject, body string) {
	if err := n.mailer.Send(ctx, to, subject, body); err != nil {
		n.log.Error("failed to send notification email",
			slog.String("op", op), slog.String("to", to), slog.Any("error", err))
	}
}

func ownerName(u *models.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
