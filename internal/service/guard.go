package service

import (
	"github.com/kashvijewels/jewel-shop/internal/domain/models"
)

// CheckTransition is the status transition guard: it decides whether the
// actor may move an order owned by ownerID from current to requested.
// Pure decision, no side effects; every mutation path consults it, and the
// caller must hold the order row lock so current is the status at the
// moment of persistence.
//
//	BOOKED        — never a transition target, only an initial status
//	PURCHASED     — ADMIN or MANAGER
//	EXPIRED       — ADMIN or MANAGER
//	OUT_OF_STOCK  — ADMIN or MANAGER
//	CANCELLED     — staff or the owning user, and only from BOOKED
func CheckTransition(actor models.Actor, ownerID int64, current, requested models.OrderStatus) error {
	if !requested.Valid() {
		return ErrInvalidState
	}

	switch requested {
	case models.StatusBooked:
		return ErrInvalidState

	case models.StatusPurchased, models.StatusExpired, models.StatusOutOfStock:
		if !actor.Role.IsStaff() {
			return ErrForbidden
		}
		if current == requested {
			return ErrInvalidState
		}
		return nil

	case models.StatusCancelled:
		if !actor.Role.IsStaff() && actor.ID != ownerID {
			return ErrForbidden
		}
		switch current {
		case models.StatusCancelled:
			return ErrAlreadyCancelled
		case models.StatusBooked:
			return nil
		default:
			// PURCHASED is locked against cancellation; EXPIRED and
			// OUT_OF_STOCK are terminal for the owner as well.
			return ErrInvalidState
		}
	}

	return ErrInvalidState
}
