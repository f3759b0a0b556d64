package health

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

	"dairy-advisor/internal/pkg/common"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", h.HealthCheck)
	r.GET("/ready", h.ReadinessCheck)
	r.GET("/live", h.LivenessCheck)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthAndLiveness(t *testing.T) {
	h := NewHandler("1.2.3", nil, func() map[string]interface{} {
		return map[string]interface{}{"enabled": true, "size": 2}
	})

	w := serve(h, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, true, resp.Cache["enabled"])

	assert.Equal(t, http.StatusOK, serve(h, "/live").Code)
}

func TestReadiness(t *testing.T) {
	ok := func(context.Context) error { return nil }

	w := serve(NewHandler("v", map[string]Check{"datasets": ok, "redis": ok}, nil), "/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	failing := func(context.Context) error {
		return &common.SourceUnreadableError{Path: "/secret/volume.csv", Err: errors.New("missing")}
	}
	w = serve(NewHandler("v", map[string]Check{"datasets": failing, "redis": ok}, nil), "/ready")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "ok", resp.Checks["redis"])
	assert.NotContains(t, resp.Checks["datasets"], "/secret")
}
