package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/temcen/shoprec/internal/services"
)

type stubHealth string

func (s stubHealth) CheckHealth(context.Context) *services.HealthStatus {
	return &services.HealthStatus{Status: string(s)}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status string
		code   int
	}{
		{"healthy", http.StatusOK},
		{"degraded", http.StatusOK},
		{"unhealthy", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			router := gin.New()
			router.GET("/health", NewHealthHandler(testLogger(), stubHealth(tt.status)).Check)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.status)
		})
	}
}
