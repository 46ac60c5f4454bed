package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	cryptoHTTP "github.com/sobebarali/useHely-sub006/internal/crypto/http"
)

// createCORSMiddleware returns nil unless CORS is enabled with at least one
// origin. Audit entries are append-only, so DELETE and PATCH are never offered.
func createCORSMiddleware(enabled bool, allowOriginsStr string, logger *slog.Logger) gin.HandlerFunc {
	if !enabled {
		return nil
	}

	origins := parseOrigins(allowOriginsStr)
	if len(origins) == 0 {
		logger.Warn("CORS enabled but no origins configured, skipping")
		return nil
	}

	logger.Info("CORS enabled", slog.Any("origins", origins))

	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{
			"Content-Type",
			cryptoHTTP.HeaderActorID,
			cryptoHTTP.HeaderActorName,
		},
		ExposeHeaders: []string{"X-Request-Id", "Retry-After"},
		MaxAge:        time.Hour,
	})
}

func parseOrigins(originsStr string) []string {
	var origins []string
	for part := range strings.SplitSeq(originsStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
