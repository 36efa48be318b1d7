package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/funzone-backend/internal/testutil"
)

func getReady(t *testing.T, r *gin.Engine) (int, HealthResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestReadyHandler_DatabaseAndRedis(t *testing.T) {
	db := testutil.NewTestDB(t)
	mr, client := testutil.NewTestRedis(t)

	r := testutil.NewEngine()
	r.GET("/health", healthHandler)
	r.GET("/ready", readyHandler(map[string]probe{
		"database": databaseProbe(db),
		"redis":    redisProbe(client),
	}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	code, resp := getReady(t, r)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, map[string]string{"database": "ok", "redis": "ok"}, resp.Checks)

	mr.Close()
	code, resp = getReady(t, r)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not ready", resp.Status)
	assert.Equal(t, "ok", resp.Checks["database"])
	assert.Contains(t, resp.Checks["redis"], "error: ")
}

func TestReadyHandler_ProbeError(t *testing.T) {
	r := testutil.NewEngine()
	r.GET("/ready", readyHandler(map[string]probe{
		"mqtt": func(context.Context) error { return errors.New("broker down") },
	}))

	code, resp := getReady(t, r)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "error: broker down", resp.Checks["mqtt"])
}
