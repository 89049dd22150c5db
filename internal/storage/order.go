package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kashvijewels/jewel-shop/internal/domain/models"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrGatewayOrderAlreadySet — a concurrent registration won the
	// set-once race; the stored id is the one to use.
	ErrGatewayOrderAlreadySet = errors.New("gateway order id already set")
)

// OrderStorage owns all order writes. Status and history updates are only
// ever composed inside a single transaction by the service layer, so the
// two are never observably separate.
type OrderStorage interface {
	// CreateOrderTx inserts the order, its line items and the first history
	// entry. Returns the new order id.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error)
	// LockOrderByIDTx reads the order row FOR UPDATE so the status checked
	// by the guard is the status at the moment of persistence.
	LockOrderByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, status models.OrderStatus) error
	AppendHistoryTx(ctx context.Context, tx *sql.Tx, id int64, status models.OrderStatus, actorID int64, at time.Time) error
	// MarkPaidTx completes the payment only if no transaction id is set yet;
	// reports whether the update applied.
	MarkPaidTx(ctx context.Context, tx *sql.Tx, id int64, paymentID string) (bool, error)
	// SetGatewayOrderID pins the gateway order id once. If another writer
	// already pinned one, ErrGatewayOrderAlreadySet is returned.
	SetGatewayOrderID(ctx context.Context, id int64, gatewayOrderID string) error

	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	// GetOrderByIDTx reads the populated order through the transaction, so
	// the caller can return exactly the state it is about to commit.
	GetOrderByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error)
	GetOrderByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error)
	GetAllOrders(ctx context.Context) ([]*models.Order, error)

	DeleteOrder(ctx context.Context, id int64) error
	DeleteAllOrders(ctx context.Context) (int64, error)
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, order_status, payment_status, total_amount, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id`,
		order.UserID, order.Status, order.PaymentStatus, order.TotalAmount,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range order.Items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, color, size, image_url)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			id, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.Color, item.Size, item.ImageURL,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := r.AppendHistoryTx(ctx, tx, id, order.Status, order.UserID, time.Now()); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *orderRepository) LockOrderByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	order := &models.Order{}
	var gatewayID, paymentID sql.NullString

	row := tx.QueryRowContext(ctx,
		`SELECT id, user_id, order_status, payment_status, razorpay_order_id, transaction_id, total_amount, created_at, updated_at
		 FROM orders WHERE id = $1 FOR UPDATE NOWAIT`, id)
	if err := row.Scan(&order.ID, &order.UserID, &order.Status, &order.PaymentStatus,
		&gatewayID, &paymentID, &order.TotalAmount, &order.CreatedAt, &order.UpdatedAt); err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "55P03" { // lock
				return nil, fmt.Errorf("order is locked, please try again: %w", err)
			}
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	order.RazorpayOrderID = gatewayID.String
	order.TransactionID = paymentID.String
	return order, nil
}

func (r *orderRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, status models.OrderStatus) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET order_status = $1, updated_at = NOW() WHERE id = $2", status, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) AppendHistoryTx(ctx context.Context, tx *sql.Tx, id int64, status models.OrderStatus, actorID int64, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO order_history (order_id, status, changed_by, changed_at) VALUES ($1, $2, $3, $4)",
		id, status, actorID, at)
	if err != nil {
		return fmt.Errorf("failed to append order history: %w", err)
	}
	return nil
}

func (r *orderRepository) MarkPaidTx(ctx context.Context, tx *sql.Tx, id int64, paymentID string) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET payment_status = $1, transaction_id = $2, updated_at = NOW()
		 WHERE id = $3 AND transaction_id IS NULL`,
		models.PaymentCompleted, paymentID, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark order paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *orderRepository) SetGatewayOrderID(ctx context.Context, id int64, gatewayOrderID string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET razorpay_order_id = $1, updated_at = NOW() WHERE id = $2 AND razorpay_order_id IS NULL",
		gatewayOrderID, id)
	if err != nil {
		return fmt.Errorf("failed to set gateway order id: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// Zero rows means either the order is gone or another writer already
	// pinned an id; tell the two apart.
	var existing sql.NullString
	err = r.db.QueryRowContext(ctx, "SELECT razorpay_order_id FROM orders WHERE id = $1", id).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	if existing.Valid && existing.String != "" {
		return ErrGatewayOrderAlreadySet
	}
	return ErrOrderNotFound
}

const orderSelect = `
	SELECT o.id, o.user_id, o.order_status, o.payment_status, o.razorpay_order_id, o.transaction_id,
	       o.total_amount, o.created_at, o.updated_at, u.name, u.email, u.mobile
	FROM orders o
	JOIN users u ON o.user_id = u.id`

func scanOrder(row interface{ Scan(dest ...any) error }) (*models.Order, error) {
	order := &models.Order{}
	owner := &models.OwnerInfo{}
	var gatewayID, paymentID sql.NullString

	if err := row.Scan(&order.ID, &order.UserID, &order.Status, &order.PaymentStatus,
		&gatewayID, &paymentID, &order.TotalAmount, &order.CreatedAt, &order.UpdatedAt,
		&owner.Name, &owner.Email, &owner.Mobile); err != nil {
		return nil, err
	}
	order.RazorpayOrderID = gatewayID.String
	order.TransactionID = paymentID.String
	owner.ID = order.UserID
	order.Owner = owner
	return order, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	return r.getOrderByID(ctx, r.db, id)
}

func (r *orderRepository) GetOrderByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	return r.getOrderByID(ctx, tx, id)
}

func (r *orderRepository) getOrderByID(ctx context.Context, q querier, id int64) (*models.Order, error) {
	row := q.QueryRowContext(ctx, orderSelect+" WHERE o.id = $1", id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if err := r.loadItems(ctx, q, []*models.Order{order}); err != nil {
		return nil, err
	}
	if err := r.loadHistory(ctx, q, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetOrderByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, orderSelect+" WHERE o.razorpay_order_id = $1", gatewayOrderID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	return r.queryOrders(ctx, orderSelect+" WHERE o.user_id = $1 ORDER BY o.created_at DESC", userID)
}

func (r *orderRepository) GetAllOrders(ctx context.Context) ([]*models.Order, error) {
	return r.queryOrders(ctx, orderSelect+" ORDER BY o.created_at DESC")
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, r.db, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadItems fills Items for the given orders in one query.
func (r *orderRepository) loadItems(ctx context.Context, q querier, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[int64]*models.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, product_id, product_name, quantity, unit_price, color, size, image_url
		 FROM order_items WHERE order_id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := models.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.UnitPrice, &item.Color, &item.Size, &item.ImageURL); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	return rows.Err()
}

// loadHistory fills History in append order.
func (r *orderRepository) loadHistory(ctx context.Context, q querier, order *models.Order) error {
	rows, err := q.QueryContext(ctx,
		"SELECT id, order_id, status, changed_by, changed_at FROM order_history WHERE order_id = $1 ORDER BY id",
		order.ID)
	if err != nil {
		return fmt.Errorf("failed to query order history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry := models.HistoryEntry{}
		if err := rows.Scan(&entry.ID, &entry.OrderID, &entry.Status, &entry.ChangedBy, &entry.ChangedAt); err != nil {
			return fmt.Errorf("failed to scan history entry: %w", err)
		}
		order.History = append(order.History, entry)
	}
	return rows.Err()
}

func (r *orderRepository) DeleteOrder(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) DeleteAllOrders(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM orders")
	if err != nil {
		return 0, fmt.Errorf("failed to delete all orders: %w", err)
	}
	return res.RowsAffected()
}
