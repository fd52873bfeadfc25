package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func adminRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/orders", RequireAdminToken, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestRequireAdminTokenUnconfigured(t *testing.T) {
	t.Setenv("ADMIN_API_TOKEN", "")

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("X-Admin-Token", "peu-importe")

	rr := httptest.NewRecorder()
	adminRouter().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("sans ADMIN_API_TOKEN : attendu 503, reçu %d", rr.Code)
	}
}

func TestRequireAdminTokenRejectsBadToken(t *testing.T) {
	t.Setenv("ADMIN_API_TOKEN", "jeton-correct")

	for _, provided := range []string{"", "mauvais-jeton", "jeton-correct "} {
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		if provided != "" {
			req.Header.Set("X-Admin-Token", provided)
		}

		rr := httptest.NewRecorder()
		adminRouter().ServeHTTP(rr, req)

		if rr.Code != http.StatusForbidden {
			t.Fatalf("jeton %q : attendu 403, reçu %d", provided, rr.Code)
		}
	}
}

func TestRequireAdminTokenAccepts(t *testing.T) {
	t.Setenv("ADMIN_API_TOKEN", "jeton-correct")

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("X-Admin-Token", "jeton-correct")

	rr := httptest.NewRecorder()
	adminRouter().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("jeton valide : attendu 200, reçu %d", rr.Code)
	}
}
