package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/generic"
	"github.com/warp/physics-compliance/store/memory"
)

func corsRequest(t *testing.T, origins []string, origin string) *httptest.ResponseRecorder {
	t.Helper()
	logger := quietLogger()
	h := NewHandler(memory.New(), compliance.NewWorklistBuilder(logger, 0), logger)
	h.Clock = func() generic.Date { return asOf }
	router := NewRouter(h, RouterOptions{CORSOrigins: origins})

	req := httptest.NewRequest(http.MethodGet, "/api/scenarios/", nil)
	req.Header.Set("Origin", origin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCORS_ExplicitOriginsAllowCredentials(t *testing.T) {
	rec := corsRequest(t, []string{"https://physics.example.org"}, "https://physics.example.org")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://physics.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_WildcardDropsCredentials(t *testing.T) {
	rec := corsRequest(t, []string{"*"}, "https://anywhere.example.com")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_DefaultsToLocalDashboards(t *testing.T) {
	rec := corsRequest(t, nil, "http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = corsRequest(t, nil, "https://evil.example.com")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSOptions(t *testing.T) {
	assert.False(t, corsOptions([]string{"https://a.example.org", "*"}).AllowCredentials)
	assert.True(t, corsOptions(nil).AllowCredentials)
}
