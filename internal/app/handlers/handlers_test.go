package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kashvijewels/jewel-shop/internal/app/handlers"
	"github.com/kashvijewels/jewel-shop/internal/domain/models"
	"github.com/kashvijewels/jewel-shop/internal/security/jwtmiddleware"
	"github.com/kashvijewels/jewel-shop/internal/service"
	"github.com/kashvijewels/jewel-shop/internal/storage"
	"github.com/stretchr/testify/assert"
)

type fakeAuthService struct {
	token string
	err   error
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (string, error) {
	return f.token, f.err
}

type fakeOrderService struct {
	order *models.Order
	err   error
}

func (f *fakeOrderService) Create(ctx context.Context, ownerID int64, items []service.LineItemInput) (*models.Order, error) {
	return f.order, f.err
}

type fakeQueryService struct {
	order   *models.Order
	orders  []*models.Order
	entries []*models.ActivityEntry
	err     error
}

func (f *fakeQueryService) GetByID(ctx context.Context, orderID int64, actor models.Actor) (*models.Order, error) {
	return f.order, f.err
}

func (f *fakeQueryService) ListMine(ctx context.Context, actor models.Actor) ([]*models.Order, error) {
	return f.orders, f.err
}

func (f *fakeQueryService) ListAll(ctx context.Context, actor models.Actor) ([]*models.Order, error) {
	return f.orders, f.err
}

func (f *fakeQueryService) Activity(ctx context.Context, actor models.Actor, limit int) ([]*models.ActivityEntry, error) {
	return f.entries, f.err
}

type fakeTransitionService struct {
	order   *models.Order
	err     error
	deleted int64
	called  bool
}

func (f *fakeTransitionService) Transition(ctx context.Context, orderID int64, newStatus models.OrderStatus, actor models.Actor) (*models.Order, error) {
	f.called = true
	return f.order, f.err
}

func (f *fakeTransitionService) Delete(ctx context.Context, orderID int64, actor models.Actor) error {
	f.called = true
	return f.err
}

func (f *fakeTransitionService) DeleteAll(ctx context.Context, actor models.Actor) (int64, error) {
	f.called = true
	return f.deleted, f.err
}

type fakePaymentService struct {
	gwOrder   *service.GatewayOrder
	err       error
	gotBody   []byte
	gotSig    string
	webhookOK bool
}

func (f *fakePaymentService) CreateGatewayOrder(ctx context.Context, orderID int64, actor models.Actor) (*service.GatewayOrder, error) {
	return f.gwOrder, f.err
}

func (f *fakePaymentService) VerifyPayment(ctx context.Context, req service.VerifyRequest, actor models.Actor) error {
	return f.err
}

func (f *fakePaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	f.gotBody = body
	f.gotSig = signature
	f.webhookOK = f.err == nil
	return f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// asActor injects the authenticated actor the way the JWT middleware does.
func asActor(req *http.Request, actor models.Actor) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), jwtmiddleware.ActorKey, actor))
}

func TestAuthHandler_Success(t *testing.T) {
	handler := handlers.AuthHandler(testLogger(), &fakeAuthService{token: "test-token"})

	reqBody := `{"email": "test@example.com", "password": "password123"}`
	req := httptest.NewRequest("POST", "/api/auth", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp handlers.AuthResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "test-token", resp.Token)
}

func TestAuthHandler_ValidationError(t *testing.T) {
	handler := handlers.AuthHandler(testLogger(), &fakeAuthService{})

	reqBody := `{"email": "test@example.com", "password": "short"}`
	req := httptest.NewRequest("POST", "/api/auth", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuthHandler_LoginError(t *testing.T) {
	handler := handlers.AuthHandler(testLogger(), &fakeAuthService{err: service.ErrInvalidCredentials})

	reqBody := `{"email": "test@example.com", "password": "password123"}`
	req := httptest.NewRequest("POST", "/api/auth", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreateOrderHandler_Success(t *testing.T) {
	fakeSvc := &fakeOrderService{order: &models.Order{
		ID:            7,
		UserID:        1,
		Status:        models.StatusBooked,
		PaymentStatus: models.PaymentPending,
		TotalAmount:   250000,
	}}
	handler := handlers.CreateOrderHandler(testLogger(), fakeSvc)

	reqBody := `{"items": [{"product_id": 5, "quantity": 1, "size": "6"}]}`
	req := httptest.NewRequest("POST", "/order/create", bytes.NewBufferString(reqBody))
	req = asActor(req, models.Actor{ID: 1, Role: models.RoleUser})
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp models.Order
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, int64(7), resp.ID)
	assert.Equal(t, models.StatusBooked, resp.Status)
}

func TestCreateOrderHandler_Unauthorized(t *testing.T) {
	handler := handlers.CreateOrderHandler(testLogger(), &fakeOrderService{})

	reqBody := `{"items": [{"product_id": 5, "quantity": 1}]}`
	req := httptest.NewRequest("POST", "/order/create", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "No actor in context")
}

func TestCreateOrderHandler_NoItems(t *testing.T) {
	handler := handlers.CreateOrderHandler(testLogger(), &fakeOrderService{})

	reqBody := `{"items": []}`
	req := httptest.NewRequest("POST", "/order/create", bytes.NewBufferString(reqBody))
	req = asActor(req, models.Actor{ID: 1, Role: models.RoleUser})
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetOrderHandler_Forbidden(t *testing.T) {
	fakeSvc := &fakeQueryService{err: fmt.Errorf("service.QueryService.GetByID: %w", service.ErrForbidden)}

	r := chi.NewRouter()
	r.Get("/order/get/{orderID}", handlers.GetOrderHandler(testLogger(), fakeSvc))

	req := httptest.NewRequest("GET", "/order/get/7", nil)
	req = asActor(req, models.Actor{ID: 99, Role: models.RoleUser})
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestGetOrderHandler_NotFound(t *testing.T) {
	fakeSvc := &fakeQueryService{err: fmt.Errorf("service.QueryService.GetByID: %w", storage.ErrOrderNotFound)}

	r := chi.NewRouter()
	r.Get("/order/get/{orderID}", handlers.GetOrderHandler(testLogger(), fakeSvc))

	req := httptest.NewRequest("GET", "/order/get/404", nil)
	req = asActor(req, models.Actor{ID: 1, Role: models.RoleUser})
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetOrderHandler_BadID(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/order/get/{orderID}", handlers.GetOrderHandler(testLogger(), &fakeQueryService{}))

	req := httptest.NewRequest("GET", "/order/get/notanumber", nil)
	req = asActor(req, models.Actor{ID: 1, Role: models.RoleUser})
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateStatusHandler_InvalidState(t *testing.T) {
	fakeSvc := &fakeTransitionService{err: fmt.Errorf("service.TransitionService.Transition: %w", service.ErrInvalidState)}

	r := chi.NewRouter()
	r.Put("/order/admin/update/{orderID}", handlers.UpdateStatusHandler(testLogger(), fakeSvc))

	reqBody := `{"status": "CANCELLED"}`
	req := httptest.NewRequest("PUT", "/order/admin/update/7", bytes.NewBufferString(reqBody))
	req = asActor(req, models.Actor{ID: 1, Role: models.RoleAdmin})
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCancelOrderHandler_Success(t *testing.T) {
	fakeSvc := &fakeTransitionService{order: &models.Order{ID: 7, Status: models.StatusCancelled}}

	r := chi.NewRouter()
	r.Put("/order/cancel/{orderID}", handlers.CancelOrderHandler(testLogger(), fakeSvc))

	req := httptest.NewRequest("PUT", "/order/cancel/7", nil)
	req = asActor(req, models.Actor{ID: 1, Role: models.RoleUser})
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp models.Order
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, models.StatusCancelled, resp.Status)
}

func TestDeleteAllOrdersHandler_ConfirmationRequired(t *testing.T) {
	fakeSvc := &fakeTransitionService{deleted: 3}
	handler := handlers.DeleteAllOrdersHandler(testLogger(), fakeSvc)

	req := httptest.NewRequest("DELETE", "/order/admin/delete-all", bytes.NewBufferString(`{}`))
	req = asActor(req, models.Actor{ID: 1, Role: models.RoleAdmin})
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, fakeSvc.called, "Service must not be reached without confirmation")
}

func TestDeleteAllOrdersHandler_Success(t *testing.T) {
	fakeSvc := &fakeTransitionService{deleted: 3}
	handler := handlers.DeleteAllOrdersHandler(testLogger(), fakeSvc)

	req := httptest.NewRequest("DELETE", "/order/admin/delete-all", bytes.NewBufferString(`{"confirm": true}`))
	req = asActor(req, models.Actor{ID: 1, Role: models.RoleAdmin})
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]int64
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, int64(3), resp["deleted"])
}

func TestVerifyPaymentHandler_InvalidSignature(t *testing.T) {
	fakeSvc := &fakePaymentService{err: fmt.Errorf("service.PaymentService.VerifyPayment: %w", service.ErrInvalidSignature)}
	handler := handlers.VerifyPaymentHandler(testLogger(), fakeSvc)

	reqBody := `{"order_id": 7, "razorpay_order_id": "order_rzp_1", "razorpay_payment_id": "pay_abc", "razorpay_signature": "bad"}`
	req := httptest.NewRequest("POST", "/payment/razorpay/verify", bytes.NewBufferString(reqBody))
	req = asActor(req, models.Actor{ID: 1, Role: models.RoleUser})
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRazorpayWebhookHandler_MissingSignature(t *testing.T) {
	fakeSvc := &fakePaymentService{}
	handler := handlers.RazorpayWebhookHandler(testLogger(), fakeSvc)

	req := httptest.NewRequest("POST", "/webhook/razorpay-webhook", bytes.NewBufferString(`{"event":"payment.captured"}`))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, fakeSvc.webhookOK, "Service must not be reached without a signature header")
}

func TestRazorpayWebhookHandler_Success(t *testing.T) {
	fakeSvc := &fakePaymentService{}
	handler := handlers.RazorpayWebhookHandler(testLogger(), fakeSvc)

	body := `{"event":"payment.captured"}`
	req := httptest.NewRequest("POST", "/webhook/razorpay-webhook", bytes.NewBufferString(body))
	req.Header.Set("X-Razorpay-Signature", "abc123")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, body, string(fakeSvc.gotBody), "Raw body must be handed over untouched")
	assert.Equal(t, "abc123", fakeSvc.gotSig)
}
