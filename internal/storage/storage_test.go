package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/kashvijewels/jewel-shop/internal/domain/models"
	"github.com/kashvijewels/jewel-shop/internal/storage"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestGetUserByEmail_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)
	ctx := context.Background()
	email := "asha@example.com"

	rows := sqlmock.NewRows([]string{"id", "name", "email", "pass_hash", "mobile", "role", "is_active"}).
		AddRow(int64(1), "Asha", email, []byte("hashed-password"), "9876543210", "USER", true)

	mock.ExpectQuery("SELECT id, name, email, pass_hash, mobile, role, is_active FROM users WHERE email = \\$1").
		WithArgs(email).WillReturnRows(rows)

	user, err := repo.GetUserByEmail(ctx, email)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, email, user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.True(t, user.Active)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail_NoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "email", "pass_hash", "mobile", "role", "is_active"})
	mock.ExpectQuery("SELECT id, name, email, pass_hash, mobile, role, is_active FROM users WHERE email = \\$1").
		WithArgs("missing@example.com").WillReturnRows(rows)

	user, err := repo.GetUserByEmail(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	assert.Nil(t, user)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductByID_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewProductRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "price", "images"}).
		AddRow(int64(1), "Gold Ring", int64(250000), []byte("{ring.jpg,ring2.jpg}"))

	mock.ExpectQuery("SELECT id, name, price, images FROM products WHERE id = \\$1").
		WithArgs(int64(1)).WillReturnRows(rows)

	product, err := repo.GetProductByID(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, "Gold Ring", product.Name)
	assert.Equal(t, int64(250000), product.Price)
	assert.Equal(t, []string{"ring.jpg", "ring2.jpg"}, product.Images)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderTx_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewOrderRepository(db)
	ctx := context.Background()

	tx, err := db.Begin()
	assert.NoError(t, err)

	order := &models.Order{
		UserID:        int64(1),
		Status:        models.StatusBooked,
		PaymentStatus: models.PaymentPending,
		TotalAmount:   250000,
		Items: []models.OrderItem{
			{ProductID: 5, ProductName: "Gold Ring", Quantity: 1, UnitPrice: 250000, Size: "6", ImageURL: "ring.jpg"},
		},
	}

	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(int64(1), "BOOKED", "PENDING", int64(250000)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(int64(7), int64(5), "Gold Ring", 1, int64(250000), "", "6", "ring.jpg").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO order_history").
		WithArgs(int64(7), "BOOKED", int64(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := repo.CreateOrderTx(ctx, tx, order)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), id)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockOrderByIDTx_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewOrderRepository(db)

	tx, err := db.Begin()
	assert.NoError(t, err)

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "order_status", "payment_status", "razorpay_order_id",
		"transaction_id", "total_amount", "created_at", "updated_at",
	})
	mock.ExpectQuery("FROM orders WHERE id = \\$1 FOR UPDATE NOWAIT").
		WithArgs(int64(404)).WillReturnRows(rows)

	order, err := repo.LockOrderByIDTx(context.Background(), tx, 404)
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
	assert.Nil(t, order)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaidTx_AppliedOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewOrderRepository(db)

	tx, err := db.Begin()
	assert.NoError(t, err)

	// First confirmation matches the NULL transaction_id condition.
	mock.ExpectExec("UPDATE orders SET payment_status").
		WithArgs("COMPLETED", "pay_abc", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	applied, err := repo.MarkPaidTx(context.Background(), tx, 7, "pay_abc")
	assert.NoError(t, err)
	assert.True(t, applied)

	// Replay matches zero rows.
	mock.ExpectExec("UPDATE orders SET payment_status").
		WithArgs("COMPLETED", "pay_abc", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	applied, err = repo.MarkPaidTx(context.Background(), tx, 7, "pay_abc")
	assert.NoError(t, err)
	assert.False(t, applied)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusTx_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewOrderRepository(db)

	tx, err := db.Begin()
	assert.NoError(t, err)

	mock.ExpectExec("UPDATE orders SET order_status").
		WithArgs("CANCELLED", int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateStatusTx(context.Background(), tx, 404, models.StatusCancelled)
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetGatewayOrderID_AlreadySet(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)

	mock.ExpectExec("UPDATE orders SET razorpay_order_id").
		WithArgs("order_rzp_2", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT razorpay_order_id FROM orders WHERE id = \\$1").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"razorpay_order_id"}).AddRow("order_rzp_1"))

	err = repo.SetGatewayOrderID(context.Background(), 7, "order_rzp_2")
	assert.ErrorIs(t, err, storage.ErrGatewayOrderAlreadySet)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetGatewayOrderID_OrderMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)

	mock.ExpectExec("UPDATE orders SET razorpay_order_id").
		WithArgs("order_rzp_2", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT razorpay_order_id FROM orders WHERE id = \\$1").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"razorpay_order_id"}))

	err = repo.SetGatewayOrderID(context.Background(), 7, "order_rzp_2")
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderByID_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	now := time.Now()

	orderRows := sqlmock.NewRows([]string{
		"id", "user_id", "order_status", "payment_status", "razorpay_order_id",
		"transaction_id", "total_amount", "created_at", "updated_at", "name", "email", "mobile",
	}).AddRow(int64(7), int64(1), "BOOKED", "PENDING", nil, nil, int64(250000), now, now, "Asha", "asha@example.com", "9876543210")
	mock.ExpectQuery("JOIN users u ON o.user_id = u.id WHERE o.id = \\$1").
		WithArgs(int64(7)).WillReturnRows(orderRows)

	itemRows := sqlmock.NewRows([]string{
		"id", "order_id", "product_id", "product_name", "quantity", "unit_price", "color", "size", "image_url",
	}).AddRow(int64(1), int64(7), int64(5), "Gold Ring", 1, int64(250000), "", "6", "ring.jpg")
	mock.ExpectQuery("FROM order_items WHERE order_id = ANY\\(\\$1\\) ORDER BY id").
		WithArgs(pq.Array([]int64{7})).WillReturnRows(itemRows)

	historyRows := sqlmock.NewRows([]string{"id", "order_id", "status", "changed_by", "changed_at"}).
		AddRow(int64(1), int64(7), "BOOKED", int64(1), now)
	mock.ExpectQuery("FROM order_history WHERE order_id = \\$1 ORDER BY id").
		WithArgs(int64(7)).WillReturnRows(historyRows)

	order, err := repo.GetOrderByID(context.Background(), 7)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), order.ID)
	assert.Equal(t, models.StatusBooked, order.Status)
	assert.Empty(t, order.RazorpayOrderID)
	assert.Len(t, order.Items, 1)
	assert.Equal(t, "Gold Ring", order.Items[0].ProductName)
	assert.Len(t, order.History, 1)
	assert.NotNil(t, order.Owner)
	assert.Equal(t, "asha@example.com", order.Owner.Email)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "order_status", "payment_status", "razorpay_order_id",
		"transaction_id", "total_amount", "created_at", "updated_at", "name", "email", "mobile",
	})
	mock.ExpectQuery("JOIN users u ON o.user_id = u.id WHERE o.id = \\$1").
		WithArgs(int64(404)).WillReturnRows(rows)

	order, err := repo.GetOrderByID(context.Background(), 404)
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
	assert.Nil(t, order)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAllOrders(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)

	mock.ExpectExec("DELETE FROM orders").
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := repo.DeleteAllOrders(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityListRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewActivityRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "order_id", "actor_id", "action", "created_at"}).
		AddRow(int64(2), int64(7), int64(1), "status changed to PURCHASED", now).
		AddRow(int64(1), int64(7), int64(1), "order created", now.Add(-time.Minute))
	mock.ExpectQuery("FROM activity_log ORDER BY created_at DESC LIMIT \\$1").
		WithArgs(50).WillReturnRows(rows)

	entries, err := repo.ListRecent(context.Background(), 50)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "status changed to PURCHASED", entries[0].Action)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityCreateEntry_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewActivityRepository(db)

	mock.ExpectExec("INSERT INTO activity_log").
		WithArgs(int64(7), int64(1), "order created").
		WillReturnError(errors.New("db error"))

	err = repo.CreateEntry(context.Background(), 7, 1, "order created")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
