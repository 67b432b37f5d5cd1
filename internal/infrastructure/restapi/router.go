package restapi

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter builds the gin engine with the read API routes under /api/v1 and /health.
// Extra middleware (CORS for instance) runs after logging and recovery.
func SetupRouter(tokenHandler *TokenHandler, logger *zap.Logger, middleware ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(ZapLoggerMiddleware(logger))
	router.Use(gin.Recovery())
	router.Use(middleware...)

	router.GET("/health", HealthHandler)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/tokens", tokenHandler.ListTokensHandler)
		v1.GET("/tokens/:id", tokenHandler.GetTokenHandler)
		v1.GET("/tokens/:id/history", tokenHandler.GetHistoryHandler)
		v1.GET("/social/:id", tokenHandler.GetSocialHandler)
	}

	return router
}
