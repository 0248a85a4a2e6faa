package server

import (
	"net/http"

	"github.com/cozy-creator/product-studio/internal/api"
	"github.com/cozy-creator/product-studio/internal/app"

	"github.com/gin-gonic/gin"
)

func (s *Server) SetupRoutes(app *app.App) {
	s.ginEngine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Serves locally stored outputs; s3 and minio hand out their own urls.
	s.ginEngine.GET("/files/*path", handlerWrapper(app, api.GetFile))

	apiV1 := s.ginEngine.Group("/api/v1")

	apiV1.POST("/generations", handlerWrapper(app, api.SubmitGeneration))
	apiV1.GET("/jobs/:id", handlerWrapper(app, api.GetJob))
	apiV1.GET("/batches/:id", handlerWrapper(app, api.GetBatch))
	apiV1.GET("/credits/:tenant", handlerWrapper(app, api.GetCredits))
	apiV1.POST("/credits/refund", handlerWrapper(app, api.RefundCredits))
}

func handlerWrapper(app *app.App, f func(c *gin.Context)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set("app", app)
		f(ctx)
	}
}
