package routes

import (
	"github.com/gin-gonic/gin"

	"leafscan/internal/controllers"
	"leafscan/internal/middleware"
)

func RegisterPredictionRoutes(router *gin.Engine, predictionController *controllers.PredictionController, jwtSecret string) {
	predictionRoutes := router.Group("/predictions")
	predictionRoutes.Use(middleware.AuthMiddleware(jwtSecret))
	{
		predictionRoutes.POST("", predictionController.MakePrediction)
		predictionRoutes.GET("", predictionController.GetPredictions)
		predictionRoutes.DELETE("", predictionController.DeletePredictions)

		predictionRoutes.GET("/stats", predictionController.GetDiseaseStats)
		predictionRoutes.GET("/activity/weekly", predictionController.GetWeeklyActivity)
		predictionRoutes.GET("/remedy", predictionController.GetRemedyDetails)

		predictionRoutes.GET("/:id", predictionController.GetPredictionByID)
	}
}
