package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatflow/seat-coordinator/internal/utils"
)

func postToken(t *testing.T, f *apiFixture, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/operator-token", strings.NewReader(string(raw)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestIssueOperatorToken(t *testing.T) {
	f := newAPIFixture(t)

	rec := postToken(t, f, map[string]string{"stationKey": testStationKey, "subject": "front-desk"})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[map[string]any](t, rec)
	token, _ := out["token"].(string)
	require.NotEmpty(t, token)

	ok, err := utils.VerifyOperatorToken(testSecret, token)
	require.NoError(t, err)
	assert.True(t, ok)

	// The issued token opens the admin surface.
	req := httptest.NewRequest(http.MethodGet, "/v1/seats", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	res := httptest.NewRecorder()
	f.e.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestIssueOperatorTokenRejections(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("wrong key", func(t *testing.T) {
		rec := postToken(t, f, map[string]string{"stationKey": "guessing"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing key", func(t *testing.T) {
		rec := postToken(t, f, map[string]string{"subject": "front-desk"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
