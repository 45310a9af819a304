package routes

import (
	"energy_study_backend/internal/handlers"
	"energy_study_backend/internal/logger"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все HTTP маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
) {
	api := ginRouter.Group("/api")
	{
		appHandlers.SubmissionHandler.RegisterRoutes(api)
	}

	appHandlers.PageHandler.RegisterRoutes(ginRouter)
	logger.Debug("Routes registered", "routes", len(ginRouter.Routes()))
}
