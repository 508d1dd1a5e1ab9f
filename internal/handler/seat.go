package handler // handler package contains the administrative seat endpoints

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/seatflow/seat-coordinator/internal/model"
	"github.com/seatflow/seat-coordinator/internal/repository"
	"github.com/seatflow/seat-coordinator/internal/service"
)

// StateNotifier is implemented by the gateway hub.  Administrative
// mutations nudge it so every connected client sees the change without
// waiting for the next command to pass through the hub.
type StateNotifier interface {
	NotifyStateChange()
}

// AdminHandler groups the operator-facing REST endpoints over the seat
// allocator and waitlist manager.
type AdminHandler struct {
	Allocator *service.SeatAllocator
	Waitlist  *service.WaitlistManager
	Notifier  StateNotifier
}

// NewAdminHandler constructs an AdminHandler.  notifier may be nil in tests.
func NewAdminHandler(allocator *service.SeatAllocator, waitlist *service.WaitlistManager, notifier StateNotifier) *AdminHandler {
	return &AdminHandler{Allocator: allocator, Waitlist: waitlist, Notifier: notifier}
}

func (h *AdminHandler) notify() {
	if h.Notifier != nil {
		h.Notifier.NotifyStateChange()
	}
}

// CreateSeat handles POST /v1/seats.  A duplicate active label is a 409; a
// label belonging to a soft-deleted seat resurrects that seat instead.
func (h *AdminHandler) CreateSeat(c echo.Context) error {
	var body struct {
		Label  uint32 `json:"label"`
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if body.Label == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "label is required and must be greater than zero"})
	}
	status := model.SeatStatus(body.Status)
	if body.Status != "" && !status.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid seat status"})
	}
	seat, err := h.Allocator.CreateSeat(c.Request().Context(), body.Label, status)
	if err != nil {
		if errors.Is(err, repository.ErrSeatExists) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "seat already exists"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "create failed"})
	}
	h.notify()
	return c.JSON(http.StatusCreated, seat)
}

// ListSeats handles GET /v1/seats and returns all active seats by label.
func (h *AdminHandler) ListSeats(c echo.Context) error {
	seats, err := h.Allocator.ListSeats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not list seats"})
	}
	if seats == nil {
		seats = []model.Seat{}
	}
	return c.JSON(http.StatusOK, seats)
}

// ListAvailableSeats handles GET /v1/seats/available.
func (h *AdminHandler) ListAvailableSeats(c echo.Context) error {
	seats, err := h.Allocator.ListAvailableSeats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not list available seats"})
	}
	return c.JSON(http.StatusOK, seats)
}

// GetStatistics handles GET /v1/seats/statistics.
func (h *AdminHandler) GetStatistics(c echo.Context) error {
	stats, err := h.Allocator.Statistics(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not compute statistics"})
	}
	return c.JSON(http.StatusOK, stats)
}

// SeatsWithStatus handles GET /v1/seats/with-status: every active seat
// annotated with live occupancy, the REST flavor of the operator view.
func (h *AdminHandler) SeatsWithStatus(c echo.Context) error {
	seats, err := h.Allocator.SeatsWithStatus(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not list seats"})
	}
	return c.JSON(http.StatusOK, seats)
}

// GetSeat handles GET /v1/seats/:id.
func (h *AdminHandler) GetSeat(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	seat, err := h.Allocator.GetSeat(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "seat not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, seat)
}

// GetSeatStatus handles GET /v1/seats/:id/status and resolves who, if
// anyone, occupies the seat right now.
func (h *AdminHandler) GetSeatStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	seat, err := h.Allocator.SeatStatus(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "seat not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not read seat status"})
	}
	return c.JSON(http.StatusOK, seat)
}

// UpdateSeat handles PATCH /v1/seats/:id and applies a partial update of
// label and/or administrative status.
func (h *AdminHandler) UpdateSeat(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var body struct {
		Label  *uint32 `json:"label"`
		Status *string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if body.Label == nil && body.Status == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "nothing to update"})
	}
	if body.Label != nil && *body.Label == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "label must be greater than zero"})
	}
	var status *model.SeatStatus
	if body.Status != nil {
		s := model.SeatStatus(*body.Status)
		if !s.Valid() {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid seat status"})
		}
		status = &s
	}
	seat, err := h.Allocator.UpdateSeat(c.Request().Context(), id, body.Label, status)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSeatNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "seat not found"})
		case errors.Is(err, repository.ErrSeatExists):
			return c.JSON(http.StatusConflict, map[string]string{"error": "seat already exists"})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "update failed"})
		}
	}
	h.notify()
	return c.JSON(http.StatusOK, seat)
}

// DeleteSeat handles DELETE /v1/seats/:id (soft delete).  Deleting an
// occupied seat is allowed as an administrative override; the occupancy
// record is left alone, so operators should release first.
func (h *AdminHandler) DeleteSeat(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	seat, err := h.Allocator.SoftDelete(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "seat not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "delete failed"})
	}
	h.notify()
	return c.JSON(http.StatusOK, seat)
}
