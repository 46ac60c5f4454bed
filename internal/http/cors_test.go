package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corsRouter(t *testing.T, enabled bool, origins string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	if middleware := createCORSMiddleware(enabled, origins, slog.New(slog.NewTextHandler(io.Discard, nil))); middleware != nil {
		router.Use(middleware)
	}
	router.GET("/v1/tenants/:tenant_id/audit-entries", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": []any{}})
	})
	router.POST("/v1/tenants/:tenant_id/audit-entries", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return router
}

func TestCreateCORSMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		enabled bool
		origins string
		wantNil bool
	}{
		{name: "disabled", enabled: false, origins: "https://ward.example.com", wantNil: true},
		{name: "enabled without origins", enabled: true, origins: "", wantNil: true},
		{name: "enabled with only separators", enabled: true, origins: " , ,", wantNil: true},
		{name: "enabled with origins", enabled: true, origins: "https://ward.example.com, https://ops.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			middleware := createCORSMiddleware(tt.enabled, tt.origins, logger)
			if tt.wantNil {
				assert.Nil(t, middleware)
			} else {
				assert.NotNil(t, middleware)
			}
		})
	}
}

func TestParseOrigins(t *testing.T) {
	assert.Equal(t,
		[]string{"https://ward.example.com", "https://ops.example.com"},
		parseOrigins(" https://ward.example.com ,,https://ops.example.com "),
	)
	assert.Nil(t, parseOrigins(""))
}

func TestCORS_AllowedOrigin(t *testing.T) {
	router := corsRouter(t, true, "https://ward.example.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/tenants/tenant-a/audit-entries", nil)
	req.Header.Set("Origin", "https://ward.example.com")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://ward.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Request-Id")
}

func TestCORS_DisabledAddsNoHeaders(t *testing.T) {
	router := corsRouter(t, false, "https://ward.example.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/tenants/tenant-a/audit-entries", nil)
	req.Header.Set("Origin", "https://ward.example.com")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	router := corsRouter(t, true, "https://ward.example.com")

	t.Run("append with actor headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/v1/tenants/tenant-a/audit-entries", nil)
		req.Header.Set("Origin", "https://ward.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "X-Actor-Id, X-Actor-Name")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
		assert.NotContains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodDelete)
	})

	t.Run("delete is not advertised", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/v1/tenants/tenant-a/audit-entries", nil)
		req.Header.Set("Origin", "https://ward.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
		router.ServeHTTP(w, req)

		// The preflight succeeds; the browser refuses DELETE because it is not listed.
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.NotContains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodDelete)
	})
}
