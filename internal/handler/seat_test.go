package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatflow/seat-coordinator/internal/handler"
	"github.com/seatflow/seat-coordinator/internal/model"
	"github.com/seatflow/seat-coordinator/internal/repository"
	"github.com/seatflow/seat-coordinator/internal/router"
	"github.com/seatflow/seat-coordinator/internal/service"
	"github.com/seatflow/seat-coordinator/internal/testutil"
	"github.com/seatflow/seat-coordinator/internal/utils"
)

const (
	testSecret     = "test-secret"
	testStationKey = "test-station-key"
)

type apiFixture struct {
	e         *echo.Echo
	catalog   *testutil.MemCatalog
	allocator *service.SeatAllocator
	waitlist  *service.WaitlistManager
	token     string
	notified  int
}

func (f *apiFixture) NotifyStateChange() { f.notified++ }

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	catalog := testutil.NewMemCatalog()
	occupancy := repository.NewOccupancyRepo(rdb)
	waitlistRepo := repository.NewWaitlistRepo(rdb)
	allocator := service.NewSeatAllocator(catalog, occupancy, waitlistRepo)
	waitlist := service.NewWaitlistManager(waitlistRepo, occupancy)

	f := &apiFixture{catalog: catalog, allocator: allocator, waitlist: waitlist}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, &handler.AuthHandler{
		JWTSecret:   testSecret,
		StationKey:  testStationKey,
		TokenTTLMin: 5,
	})
	router.RegisterAdmin(e, handler.NewAdminHandler(allocator, waitlist, f), testSecret)
	f.e = e

	token, err := utils.NewOperatorToken(testSecret, "test-station", 5)
	require.NoError(t, err)
	f.token = token
	return f
}

// do performs an authenticated request against the in-memory server.
func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.token)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("no token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/seats", nil)
		rec := httptest.NewRecorder()
		f.e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/seats", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer not.a.jwt")
		rec := httptest.NewRecorder()
		f.e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := utils.NewOperatorToken("other-secret", "x", 5)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/v1/seats", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		f.e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong role", func(t *testing.T) {
		claims := jwt.MapClaims{
			"sub":  "someone",
			"role": "GUEST",
			"exp":  time.Now().Add(5 * time.Minute).Unix(),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/v1/seats", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		f.e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestCreateSeat(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/seats", map[string]any{"label": 12})
	require.Equal(t, http.StatusCreated, rec.Code)
	seat := decode[model.Seat](t, rec)
	assert.Equal(t, uint32(12), seat.Label)
	assert.Equal(t, model.SeatAvailable, seat.Status, "status defaults to available")
	assert.Equal(t, 1, f.notified)

	t.Run("duplicate label conflicts", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/v1/seats", map[string]any{"label": 12})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("zero label rejected", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/v1/seats", map[string]any{"label": 0})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad status rejected", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/v1/seats", map[string]any{"label": 13, "status": "reserved"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDeleteThenRecreate(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/seats", map[string]any{"label": 7})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[model.Seat](t, rec)

	rec = f.do(t, http.MethodDelete, "/v1/seats/"+strconv.FormatUint(created.ID, 10), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deleted := decode[model.Seat](t, rec)
	assert.False(t, deleted.IsActive)

	// Gone from the listing.
	rec = f.do(t, http.MethodGet, "/v1/seats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]model.Seat](t, rec))

	// Re-creating the label brings the same row back.
	rec = f.do(t, http.MethodPost, "/v1/seats", map[string]any{"label": 7})
	require.Equal(t, http.StatusCreated, rec.Code)
	revived := decode[model.Seat](t, rec)
	assert.Equal(t, created.ID, revived.ID)
	assert.True(t, revived.IsActive)
}

func TestUpdateSeat(t *testing.T) {
	f := newAPIFixture(t)
	seats := f.catalog.Seed(1, 2)
	id := strconv.FormatUint(seats[1].ID, 10)

	rec := f.do(t, http.MethodPatch, "/v1/seats/"+id, map[string]any{"status": "closed"})
	require.Equal(t, http.StatusOK, rec.Code)
	seat := decode[model.Seat](t, rec)
	assert.Equal(t, model.SeatClosed, seat.Status)
	assert.Equal(t, uint32(1), seat.Label)

	t.Run("empty body rejected", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, "/v1/seats/"+id, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("label collision conflicts", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, "/v1/seats/"+id, map[string]any{"label": 2})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown seat", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, "/v1/seats/999", map[string]any{"status": "closed"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSeatViews(t *testing.T) {
	f := newAPIFixture(t)
	seats := f.catalog.Seed(1, 2, 3)
	ctx := context.Background()

	_, err := f.allocator.Claim(ctx, seats[2].ID, "conn-1", "Ada")
	require.NoError(t, err)
	_, err = f.allocator.UpdateStatus(ctx, seats[3].ID, model.SeatClosed)
	require.NoError(t, err)

	t.Run("available excludes occupied and closed", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/seats/available", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		available := decode[[]model.Seat](t, rec)
		require.Len(t, available, 1)
		assert.Equal(t, uint32(1), available[0].Label)
	})

	t.Run("statistics partition", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/seats/statistics", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		stats := decode[model.Statistics](t, rec)
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 1, stats.Available)
		assert.Equal(t, 1, stats.Occupied)
		assert.Equal(t, 1, stats.Closed)
	})

	t.Run("with-status annotates occupancy", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/seats/with-status", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		out := decode[[]model.SeatWithOccupancy](t, rec)
		require.Len(t, out, 3)
		assert.True(t, out[1].Occupied)
		require.NotNil(t, out[1].Occupancy)
		assert.Equal(t, "Ada", out[1].Occupancy.DisplayName)
	})

	t.Run("single seat status", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/seats/"+strconv.FormatUint(seats[2].ID, 10)+"/status", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		out := decode[model.SeatWithOccupancy](t, rec)
		assert.True(t, out.Occupied)
	})

	t.Run("unknown seat is 404", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/seats/999", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestQueueEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/seats/queue/join",
		map[string]any{"connectionId": "kiosk-1", "displayName": "Ada", "partySize": 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	joined := decode[map[string]any](t, rec)
	assert.EqualValues(t, 1, joined["position"])

	rec = f.do(t, http.MethodPost, "/v1/seats/queue/join",
		map[string]any{"connectionId": "kiosk-2"})
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("list", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/seats/queue/list", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		entries := decode[[]model.WaitlistEntry](t, rec)
		require.Len(t, entries, 2)
		assert.Equal(t, "kiosk-1", entries[0].ConnectionID)
		assert.Equal(t, 2, entries[0].PartySize)
	})

	t.Run("position", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/seats/queue/position?connectionId=kiosk-2", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		out := decode[map[string]int](t, rec)
		assert.Equal(t, 2, out["position"])

		rec = f.do(t, http.MethodGet, "/v1/seats/queue/position?connectionId=nobody", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		out = decode[map[string]int](t, rec)
		assert.Equal(t, -1, out["position"])
	})

	t.Run("call-next pops in order", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/v1/seats/queue/call-next", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		entry := decode[model.WaitlistEntry](t, rec)
		assert.Equal(t, "kiosk-1", entry.ConnectionID)
	})

	t.Run("leave is idempotent", func(t *testing.T) {
		rec := f.do(t, http.MethodDelete, "/v1/seats/queue/leave?connectionId=kiosk-2", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		rec = f.do(t, http.MethodDelete, "/v1/seats/queue/leave?connectionId=kiosk-2", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("call-next on empty queue", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/v1/seats/queue/call-next", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		out := decode[map[string]string](t, rec)
		assert.Equal(t, "queue is empty", out["message"])
	})

	t.Run("join while seated conflicts", func(t *testing.T) {
		seats := f.catalog.Seed(1)
		_, err := f.allocator.Claim(context.Background(), seats[1].ID, "seated-conn", "")
		require.NoError(t, err)
		rec := f.do(t, http.MethodPost, "/v1/seats/queue/join",
			map[string]any{"connectionId": "seated-conn"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
