package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kashvijewels/jewel-shop/internal/domain/models"
	"github.com/kashvijewels/jewel-shop/internal/security/jwtmiddleware"
	"github.com/kashvijewels/jewel-shop/internal/service"
)

// UpdateStatusRequest carries the requested new status. Role and state
// legality are decided by the transition guard, not here.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatusHandler handles PUT /order/admin/update/{orderID}.
func UpdateStatusHandler(log *slog.Logger, transitionService service.TransitionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateStatusHandler"
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

		var req UpdateStatusRequest
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

		order, err := transitionService.Transition(r.Context(), orderID, models.OrderStatus(req.Status), actor)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, order)
	}
}

// CancelOrderHandler handles PUT /order/cancel/{orderID}. The guard lets
// the owner through only while the order is still BOOKED.
func CancelOrderHandler(log *slog.Logger, transitionService service.TransitionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CancelOrderHandler"
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

		order, err := transitionService.Transition(r.Context(), orderID, models.StatusCancelled, actor)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, order)
	}
}

// DeleteOrderHandler handles DELETE /order/admin/delete/{orderID}.
func DeleteOrderHandler(log *slog.Logger, transitionService service.TransitionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteOrderHandler"
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

		if err := transitionService.Delete(r.Context(), orderID, actor); err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]string{"message": "order deleted"})
	}
}

// DeleteAllRequest is the explicit confirmation gate for the bulk wipe.
type DeleteAllRequest struct {
	Confirm bool `json:"confirm"`
}

// DeleteAllOrdersHandler handles DELETE /order/admin/delete-all. The wipe
// is irreversible, so the body must carry {"confirm": true} on top of the
// ADMIN role check in the service.
func DeleteAllOrdersHandler(log *slog.Logger, transitionService service.TransitionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteAllOrdersHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("actor not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req DeleteAllRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Confirm {
			logger.Warn("delete-all without explicit confirmation")
			http.Error(w, "confirmation required", http.StatusBadRequest)
			return
		}

		deleted, err := transitionService.DeleteAll(r.Context(), actor)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]int64{"deleted": deleted})
	}
}

// ActivityHandler handles GET /order/admin/activity.
func ActivityHandler(log *slog.Logger, queryService service.QueryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ActivityHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("actor not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		entries, err := queryService.Activity(r.Context(), actor, limit)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, entries)
	}
}
