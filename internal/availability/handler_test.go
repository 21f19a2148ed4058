package availability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainerbook/internal/auth"
)

func slotsRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", 1)
		c.Set("user_role", auth.RoleClient)
	})
	r.GET("/availability", NewHandler(svc).ListSlots)
	return r
}

func TestListSlotsHandler(t *testing.T) {
	svc := newTestService(&stubBookings{}, nil)

	w := httptest.NewRecorder()
	slotsRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/availability?date=2026-03-03", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp SlotsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2026-03-03", resp.Date)
	assert.Len(t, resp.Slots, 29)
}

func TestListSlotsHandlerValidation(t *testing.T) {
	svc := newTestService(&stubBookings{}, nil)

	tests := []struct {
		name  string
		query string
	}{
		{"missing date", "/availability"},
		{"bad date", "/availability?date=03-03-2026"},
		{"bad package", "/availability?date=2026-03-03&package_id=0"},
		{"unknown package", "/availability?date=2026-03-03&package_id=99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			slotsRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.query, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
