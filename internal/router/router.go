package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/seatflow/seat-coordinator/internal/handler"
	"github.com/seatflow/seat-coordinator/internal/middleware"
	"github.com/seatflow/seat-coordinator/internal/utils"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers and monitoring to verify the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers operator token issuance.  The endpoint itself is
// unauthenticated; the station key in the request body is the credential.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	e.POST("/v1/auth/operator-token", a.IssueOperatorToken)
}

// RegisterGateway registers the websocket entry point.  The endpoint itself
// is open — guests connect anonymously — while operator privileges are
// granted per connection from the ?token= query parameter.
func RegisterGateway(e *echo.Echo, ws *handler.WSHandler) {
	e.GET("/ws/seat", ws.Serve)
}

// RegisterAdmin registers the operator REST surface under /v1/seats.  All
// of it sits behind bearer-token auth with the OPERATOR role: the catalog
// mutations, the live views and the manual queue controls.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/seats")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(utils.RoleOperator))

	// Catalog.
	g.POST("", a.CreateSeat)
	g.GET("", a.ListSeats)
	g.GET("/available", a.ListAvailableSeats)
	g.GET("/statistics", a.GetStatistics)
	g.GET("/with-status", a.SeatsWithStatus)

	// Manual waitlist controls for the operator station.  These are
	// registered before /:id so the literal "queue" segment wins.
	g.POST("/queue/join", a.JoinQueue)
	g.DELETE("/queue/leave", a.LeaveQueue)
	g.GET("/queue/list", a.QueueList)
	g.GET("/queue/position", a.QueuePosition)
	g.POST("/queue/call-next", a.CallNext)

	// Single-seat operations.
	g.GET("/:id", a.GetSeat)
	g.GET("/:id/status", a.GetSeatStatus)
	g.PATCH("/:id", a.UpdateSeat)
	g.DELETE("/:id", a.DeleteSeat)
}
