package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/seatflow/seat-coordinator/internal/gateway"
	"github.com/seatflow/seat-coordinator/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // kiosks and operator tablets connect from their own origins
	},
}

// WSHandler upgrades /ws/seat requests and hands the connection to the hub.
type WSHandler struct {
	Hub       *gateway.Hub
	JWTSecret string
}

// Serve upgrades the connection.  A valid operator token passed as
// ?token=... marks the connection as an operator view; anything else —
// missing, expired or malformed — degrades to a regular guest connection
// rather than refusing the socket.
func (h *WSHandler) Serve(c echo.Context) error {
	operator := false
	if token := c.QueryParam("token"); token != "" {
		if ok, _ := utils.VerifyOperatorToken(h.JWTSecret, token); ok {
			operator = true
		}
	}
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	h.Hub.Attach(conn, operator)
	return nil
}
