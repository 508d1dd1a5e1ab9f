package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/seatflow/seat-coordinator/internal/utils"
)

// AuthHandler issues operator bearer tokens.  There is no user store in this
// service; an operator station proves itself with the shared station key
// from the environment and receives a short-lived JWT for the admin surface
// and the merchant websocket view.
type AuthHandler struct {
	JWTSecret   string
	StationKey  string
	TokenTTLMin int
}

// IssueOperatorToken handles POST /v1/auth/operator-token.  The station key
// travels in the body, never in a query string, and is compared in constant
// time.  Subject defaults to a generic station identity when omitted.
func (h *AuthHandler) IssueOperatorToken(c echo.Context) error {
	var body struct {
		StationKey string `json:"stationKey"`
		Subject    string `json:"subject"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if h.StationKey == "" ||
		subtle.ConstantTimeCompare([]byte(body.StationKey), []byte(h.StationKey)) != 1 {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid station key"})
	}
	subject := body.Subject
	if subject == "" {
		subject = "operator-station"
	}
	token, err := utils.NewOperatorToken(h.JWTSecret, subject, h.TokenTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not issue token"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"token":          token,
		"expires_in_min": h.TokenTTLMin,
	})
}
