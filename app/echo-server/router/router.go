package router

import (
	"github.com/labstack/echo/v4"

	"newsRanker/internal/rest"
)

func SetupExperimentRoutes(api *echo.Group, handler *rest.ExperimentHandler) {
	experiments := api.Group("/experiments")

	experiments.GET("/:key/assignment", handler.GetAssignment)
	experiments.GET("/:key/metrics", handler.GetMetrics)
}

func SetupExperimentAdminRoutes(api *echo.Group, handler *rest.ExperimentHandler) {
	admin := api.Group("/admin/experiments")

	admin.POST("", handler.Create)
	admin.POST("/:key/activate", handler.Activate)
	admin.POST("/:key/stop", handler.Stop)
}

func SetupRankingRoutes(api *echo.Group, handler *rest.RankingHandler) {
	api.POST("/rank", handler.Rank)
}

func SetupRecommendationRoutes(api *echo.Group, handler *rest.RecommendationHandler) {
	reco := api.Group("/recommendations")

	reco.POST("/decide", handler.Decide)
	reco.POST("/reward", handler.Reward)
}

func SetupPreferenceRoutes(api *echo.Group, handler *rest.PreferenceHandler) {
	api.GET("/preferences", handler.Get)
	api.PUT("/preferences", handler.Update)
	api.DELETE("/preferences", handler.Deactivate)
	api.POST("/events/click", handler.LogClick)
}
