// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/popsync/internal/api/handlers"
	"github.com/andresuchdata/popsync/internal/api/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Ingester handlers.Ingester
	Reporter handlers.Reporter
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
	switch {
	case allowAll:
		corsConfig.AllowAllOrigins = true
	case len(normalizedOrigins) > 0:
		corsConfig.AllowOrigins = normalizedOrigins
	default:
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")
	if services != nil && services.Ingester != nil && services.Reporter != nil {
		trigger := handlers.NewTriggerHandler(services.Ingester, services.Reporter)
		apiGroup.POST("/ingest", trigger.Ingest)
		apiGroup.POST("/report", trigger.Report)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
