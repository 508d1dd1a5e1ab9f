package handler // queue endpoints give the operator station manual control over the waitlist

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/seatflow/seat-coordinator/internal/model"
	"github.com/seatflow/seat-coordinator/internal/service"
)

// JoinQueue handles POST /v1/seats/queue/join.  The operator can enqueue a
// party on behalf of a connection (e.g. a kiosk that lost its socket).
func (h *AdminHandler) JoinQueue(c echo.Context) error {
	var body struct {
		ConnectionID string `json:"connectionId"`
		DisplayName  string `json:"displayName"`
		PartySize    int    `json:"partySize"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if body.ConnectionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "connectionId is required"})
	}
	position, err := h.Waitlist.Join(c.Request().Context(), body.ConnectionID, body.DisplayName, body.PartySize)
	if err != nil {
		if errors.Is(err, service.ErrAlreadySeated) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "connection already holds a seat"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not join the queue"})
	}
	h.notify()
	return c.JSON(http.StatusCreated, map[string]any{
		"position": position,
		"message":  fmt.Sprintf("queued at position %d", position),
	})
}

// LeaveQueue handles DELETE /v1/seats/queue/leave?connectionId=...  Absence
// is not an error; the removal is idempotent.
func (h *AdminHandler) LeaveQueue(c echo.Context) error {
	connectionID := c.QueryParam("connectionId")
	if connectionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "connectionId is required"})
	}
	if err := h.Waitlist.Leave(c.Request().Context(), connectionID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not leave the queue"})
	}
	h.notify()
	return c.JSON(http.StatusOK, map[string]string{"message": "left the queue"})
}

// QueueList handles GET /v1/seats/queue/list.
func (h *AdminHandler) QueueList(c echo.Context) error {
	entries, err := h.Waitlist.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not read the queue"})
	}
	if entries == nil {
		entries = []model.WaitlistEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}

// QueuePosition handles GET /v1/seats/queue/position?connectionId=...
// Position is 1-based; -1 means the connection is not waiting.
func (h *AdminHandler) QueuePosition(c echo.Context) error {
	connectionID := c.QueryParam("connectionId")
	if connectionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "connectionId is required"})
	}
	position, err := h.Waitlist.Position(c.Request().Context(), connectionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not read the queue"})
	}
	return c.JSON(http.StatusOK, map[string]int{"position": position})
}

// CallNext handles POST /v1/seats/queue/call-next: pops the head entry so
// the operator can seat that party by hand.
func (h *AdminHandler) CallNext(c echo.Context) error {
	entry, err := h.Waitlist.PopNext(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not pop the queue"})
	}
	if entry == nil {
		return c.JSON(http.StatusOK, map[string]string{"message": "queue is empty"})
	}
	h.notify()
	return c.JSON(http.StatusOK, entry)
}
