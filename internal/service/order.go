package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/kashvijewels/jewel-shop/internal/domain/models"
	"github.com/kashvijewels/jewel-shop/internal/storage"
)

// LineItemInput is one requested line of a new order.
type LineItemInput struct {
	ProductID int64
	Quantity  int
	Color     string
	Size      string
}

type OrderService interface {
	Create(ctx context.Context, ownerID int64, items []LineItemInput) (*models.Order, error)
}

type orderService struct {
	log         *slog.Logger
	db          *sql.DB
	userRepo    storage.UserStorage
	productRepo storage.ProductStorage
	orderRepo   storage.OrderStorage
	notifier    *Notifier
}

func NewOrderService(log *slog.Logger, db *sql.DB, userRepo storage.UserStorage, productRepo storage.ProductStorage, orderRepo storage.OrderStorage, notifier *Notifier) OrderService {
	return &orderService{
		log:         log,
		db:          db,
		userRepo:    userRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		notifier:    notifier,
	}
}

// Create books a new order: status BOOKED, payment PENDING, history length 1.
// The order row, its items and the first history entry are written in one
// transaction. Notification is best-effort after commit.
func (s *orderService) Create(ctx context.Context, ownerID int64, items []LineItemInput) (*models.Order, error) {
	const op = "service.OrderService.Create"
	logger := s.log.With(slog.String("op", op), slog.Int64("ownerID", ownerID))
	logger.Info("creating order")

	if len(items) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyOrder)
	}

	owner, err := s.userRepo.GetUserByID(ctx, ownerID)
	if err != nil {
		logger.Error("failed to get owner", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get owner: %w", op, err)
	}

	order := &models.Order{
		UserID:        owner.ID,
		Status:        models.StatusBooked,
		PaymentStatus: models.PaymentPending,
	}

	// Snapshot product name, price and first image into the line items.
	for _, in := range items {
		if in.Quantity < 1 {
			return nil, fmt.Errorf("%s: %w", op, ErrEmptyOrder)
		}
		product, err := s.productRepo.GetProductByID(ctx, in.ProductID)
		if err != nil {
			logger.Error("failed to get product", slog.Int64("productID", in.ProductID), slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
		}
		item := models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    in.Quantity,
			UnitPrice:   product.Price,
			Color:       in.Color,
			Size:        in.Size,
		}
		if len(product.Images) > 0 {
			item.ImageURL = product.Images[0]
		}
		order.Items = append(order.Items, item)
		order.TotalAmount += product.Price * int64(in.Quantity)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	orderID, err := s.orderRepo.CreateOrderTx(ctx, tx, order)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}

	created, err := s.orderRepo.GetOrderByIDTx(ctx, tx, orderID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to load created order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to load created order: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	s.notifier.OrderCreated(ctx, created)

	logger.Info("order created", slog.Int64("orderID", orderID))
	return created, nil
}
