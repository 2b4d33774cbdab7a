package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRouter(engineService Engine) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(CORSMiddleware())

	handler := NewHandler(engineService)

	r.GET("/health", handler.HealthCheck)

	v1 := r.Group("/api/v1")
	v1.Use(AuthMiddleware())
	{
		v1.POST("/calculate-probability", handler.CalculateProbability)
		v1.POST("/find-matches", handler.FindMatches)
		v1.GET("/explain/:match_id", handler.Explain)
		v1.POST("/feedback", handler.Feedback)
		v1.GET("/thresholds", handler.Thresholds)
		v1.GET("/thresholds/:tier", handler.TierThreshold)
		v1.POST("/retrain", handler.Retrain)
		v1.GET("/models/metrics", handler.ModelMetrics)
	}

	return r
}
