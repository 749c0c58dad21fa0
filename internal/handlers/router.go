package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"invite-exchange/internal/auth"
	"invite-exchange/internal/config"
	"invite-exchange/internal/middleware"
	"invite-exchange/internal/services"
)

// NewRouter builds the HTTP engine. limiter may be nil.
func NewRouter(cfg *config.Config, svc *services.Services, limiter middleware.RateLimiter, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recovery(log),
	)

	allowAll := len(cfg.Server.AllowOrigins) == 0
	for _, o := range cfg.Server.AllowOrigins {
		if o == "*" {
			allowAll = true
		}
	}
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept", auth.UserIDHeader, middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if allowAll {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.Server.AllowOrigins
		corsCfg.AllowCredentials = true
	}
	router.Use(cors.New(corsCfg))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	codeHandler := NewCodeHandler(svc, log)
	writeLimit := middleware.RateLimit(limiter, cfg.RateLimit.PerMinute, time.Minute, log)

	api := router.Group("/api")
	api.Use(auth.IdentityMiddleware(log))
	{
		api.GET("/codes", codeHandler.ListCodes)
		api.GET("/user/stats", codeHandler.GetStats)
		api.POST("/codes", writeLimit, codeHandler.CreateCode)
		api.POST("/codes/:id/claim", writeLimit, codeHandler.ClaimCode)
	}

	return router
}
