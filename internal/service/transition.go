package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/kashvijewels/jewel-shop/internal/domain/models"
	"github.com/kashvijewels/jewel-shop/internal/storage"
)

// TransitionService drives the order lifecycle. Every mutation goes through
// the transition guard against the status read under the row lock, and the
// status update plus history append commit as one transaction.
type TransitionService interface {
	Transition(ctx context.Context, orderID int64, newStatus models.OrderStatus, actor models.Actor) (*models.Order, error)
	Delete(ctx context.Context, orderID int64, actor models.Actor) error
	DeleteAll(ctx context.Context, actor models.Actor) (int64, error)
}

type transitionService struct {
	log       *slog.Logger
	db        *sql.DB
	orderRepo storage.OrderStorage
	notifier  *Notifier
}

func NewTransitionService(log *slog.Logger, db *sql.DB, orderRepo storage.OrderStorage, notifier *Notifier) TransitionService {
	return &transitionService{
		log:       log,
		db:        db,
		orderRepo: orderRepo,
		notifier:  notifier,
	}
}

func (s *transitionService) Transition(ctx context.Context, orderID int64, newStatus models.OrderStatus, actor models.Actor) (*models.Order, error) {
	const op = "service.TransitionService.Transition"
	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("orderID", orderID),
		slog.String("newStatus", string(newStatus)),
		slog.Int64("actorID", actor.ID),
	)
	logger.Info("starting status transition")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	// The lock pins the current status; a concurrent transition commits
	// either before this read or after this commit, never in between.
	order, err := s.orderRepo.LockOrderByIDTx(ctx, tx, orderID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to lock order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock order: %w", op, err)
	}

	if err := CheckTransition(actor, order.UserID, order.Status, newStatus); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Warn("transition rejected",
			slog.String("current", string(order.Status)), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.orderRepo.UpdateStatusTx(ctx, tx, orderID, newStatus); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to update status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update status: %w", op, err)
	}

	if err := s.orderRepo.AppendHistoryTx(ctx, tx, orderID, newStatus, actor.ID, time.Now()); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to append history", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to append history: %w", op, err)
	}

	// Read back through the transaction so the reply shows exactly the
	// state being committed, not whatever a later writer does to the row.
	updated, err := s.orderRepo.GetOrderByIDTx(ctx, tx, orderID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to load updated order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to load updated order: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	s.notifier.StatusChanged(ctx, updated, newStatus, actor.ID)

	logger.Info("status transition completed")
	return updated, nil
}

// Delete hard-removes one order. Administrative action, irreversible.
func (s *transitionService) Delete(ctx context.Context, orderID int64, actor models.Actor) error {
	const op = "service.TransitionService.Delete"
	logger := s.log.With(slog.String("op", op), slog.Int64("orderID", orderID), slog.Int64("actorID", actor.ID))

	if !actor.Role.IsStaff() {
		logger.Warn("delete rejected: not staff")
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	if err := s.orderRepo.DeleteOrder(ctx, orderID); err != nil {
		logger.Error("failed to delete order", slog.Any("error", err))
		return fmt.Errorf("%s: failed to delete order: %w", op, err)
	}

	logger.Info("order deleted")
	return nil
}

// DeleteAll wipes every order. ADMIN only; the handler additionally demands
// an explicit confirmation before this is ever reached.
func (s *transitionService) DeleteAll(ctx context.Context, actor models.Actor) (int64, error) {
	const op = "service.TransitionService.DeleteAll"
	logger := s.log.With(slog.String("op", op), slog.Int64("actorID", actor.ID))

	if actor.Role != models.RoleAdmin {
		logger.Warn("delete-all rejected: not admin")
		return 0, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	deleted, err := s.orderRepo.DeleteAllOrders(ctx)
	if err != nil {
		logger.Error("failed to delete all orders", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to delete all orders: %w", op, err)
	}

	logger.Info("all orders deleted", slog.Int64("count", deleted))
	return deleted, nil
}
