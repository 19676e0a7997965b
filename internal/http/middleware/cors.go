package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the dashboard origin only. Credentials stay enabled for the
// session cookie the dashboard sends alongside API calls.
func CORS(dashboardURL string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins:     []string{dashboardURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	return cors.New(cfg)
}
