package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kashvijewels/jewel-shop/internal/security/jwtmiddleware"
	"github.com/kashvijewels/jewel-shop/internal/service"
)

// CreateOrderItem is one requested line item.
type CreateOrderItem struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
	Color     string `json:"color"`
	Size      string `json:"size"`
}

// CreateOrderRequest is the booking payload. The owner is the
// authenticated actor.
type CreateOrderRequest struct {
	Items []CreateOrderItem `json:"items" validate:"required,min=1,dive"`
}

// CreateOrderHandler handles POST /order/create.
func CreateOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateOrderHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("actor not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req CreateOrderRequest
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

		items := make([]service.LineItemInput, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, service.LineItemInput{
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Color:     it.Color,
				Size:      it.Size,
			})
		}

		order, err := orderService.Create(r.Context(), actor.ID, items)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusCreated, order)
	}
}

// MyOrdersHandler handles GET /order/myorder.
func MyOrdersHandler(log *slog.Logger, queryService service.QueryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.MyOrdersHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("actor not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		orders, err := queryService.ListMine(r.Context(), actor)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, orders)
	}
}

// GetOrderHandler handles GET /order/get/{orderID}.
func GetOrderHandler(log *slog.Logger, queryService service.QueryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("actor not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		orderID, err := orderIDParam(r)
		if err != nil {
			logger.Error("invalid order id", slog.Any("error", err))
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		order, err := queryService.GetByID(r.Context(), orderID, actor)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, order)
	}
}

// AllOrdersHandler handles GET /order/get/admin.
func AllOrdersHandler(log *slog.Logger, queryService service.QueryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AllOrdersHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("actor not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		orders, err := queryService.ListAll(r.Context(), actor)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, orders)
	}
}

func orderIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
}
