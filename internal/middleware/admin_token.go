package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// RequireAdminToken protège les routes back-office avec le jeton partagé
// ADMIN_API_TOKEN (header X-Admin-Token)
func RequireAdminToken(c *gin.Context) {
	expected := os.Getenv("ADMIN_API_TOKEN")
	if expected == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Back-office non configuré"})
		c.Abort()
		return
	}

	provided := c.GetHeader("X-Admin-Token")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès réservé aux administrateurs"})
		c.Abort()
		return
	}

	c.Next()
}
