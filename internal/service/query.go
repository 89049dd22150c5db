package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kashvijewels/jewel-shop/internal/domain/models"
	"github.com/kashvijewels/jewel-shop/internal/storage"
)

// QueryService is the read surface: single order (owner or staff), the
// owner's own orders, the full admin list and the admin activity feed.
type QueryService interface {
	GetByID(ctx context.Context, orderID int64, actor models.Actor) (*models.Order, error)
	ListMine(ctx context.Context, actor models.Actor) ([]*models.Order, error)
	ListAll(ctx context.Context, actor models.Actor) ([]*models.Order, error)
	Activity(ctx context.Context, actor models.Actor, limit int) ([]*models.ActivityEntry, error)
}

type queryService struct {
	log          *slog.Logger
	orderRepo    storage.OrderStorage
	activityRepo storage.ActivityStorage
}

func NewQueryService(log *slog.Logger, orderRepo storage.OrderStorage, activityRepo storage.ActivityStorage) QueryService {
	return &queryService{
		log:          log,
		orderRepo:    orderRepo,
		activityRepo: activityRepo,
	}
}

// GetByID returns one populated order. Non-staff actors may only read
// orders they own.
func (s *queryService) GetByID(ctx context.Context, orderID int64, actor models.Actor) (*models.Order, error) {
	const op = "service.QueryService.GetByID"
	logger := s.log.With(slog.String("op", op), slog.Int64("orderID", orderID), slog.Int64("actorID", actor.ID))

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		logger.Error("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}

	if !actor.Role.IsStaff() && actor.ID != order.UserID {
		logger.Warn("read rejected: not owner")
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	return order, nil
}

// ListMine returns the actor's orders, newest first. An empty result is
// reported as not found, matching the API contract.
func (s *queryService) ListMine(ctx context.Context, actor models.Actor) ([]*models.Order, error) {
	const op = "service.QueryService.ListMine"
	logger := s.log.With(slog.String("op", op), slog.Int64("actorID", actor.ID))

	orders, err := s.orderRepo.GetOrdersByUserID(ctx, actor.ID)
	if err != nil {
		logger.Error("failed to list orders", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list orders: %w", op, err)
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrOrderNotFound)
	}
	return orders, nil
}

// ListAll returns every order, newest first. Staff only.
func (s *queryService) ListAll(ctx context.Context, actor models.Actor) ([]*models.Order, error) {
	const op = "service.QueryService.ListAll"
	logger := s.log.With(slog.String("op", op), slog.Int64("actorID", actor.ID))

	if !actor.Role.IsStaff() {
		logger.Warn("list rejected: not staff")
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	orders, err := s.orderRepo.GetAllOrders(ctx)
	if err != nil {
		logger.Error("failed to list all orders", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list all orders: %w", op, err)
	}
	return orders, nil
}

// Activity returns the most recent admin feed entries. Staff only.
func (s *queryService) Activity(ctx context.Context, actor models.Actor, limit int) ([]*models.ActivityEntry, error) {
	const op = "service.QueryService.Activity"

	if !actor.Role.IsStaff() {
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	entries, err := s.activityRepo.ListRecent(ctx, limit)
	if err != nil {
		s.log.Error("failed to list activity", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list activity: %w", op, err)
	}
	return entries, nil
}
