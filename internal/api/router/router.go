package router

import (
	"net/http"

	"github.com/cuongbtq/whisper-go/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if err := deps.DBClient.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "whisper-ingest-api",
				"error":   err.Error(),
			})
			return
		}
		if !deps.RabbitClient.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "whisper-ingest-api",
				"error":   "rabbitmq connection lost",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "whisper-ingest-api",
		})
	})

	// Initialize extraction handler
	extractionHandler := handler.NewExtractionHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		extractions := v1.Group("/extractions")
		{
			// POST /api/v1/extractions - Queue a new document extraction
			extractions.POST("", extractionHandler.CreateExtraction)

			// GET /api/v1/extractions - List extractions with filtering and pagination
			extractions.GET("", extractionHandler.ListExtractions)

			// GET /api/v1/extractions/:extraction_id - Get extraction details and result
			extractions.GET("/:extraction_id", extractionHandler.GetExtraction)

			// DELETE /api/v1/extractions/:extraction_id - Delete a terminal extraction
			extractions.DELETE("/:extraction_id", extractionHandler.DeleteExtraction)
		}
	}

	return r
}
