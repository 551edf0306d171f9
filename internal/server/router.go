package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/courseflow-backend/internal/handlers"
	"github.com/yungbote/courseflow-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware *middleware.AuthMiddleware
	StudyHandler   *handlers.StudyHandler
	CourseHandler  *handlers.CourseHandler
	AllowOrigins   []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	study := api.Group("/study")
	study.POST("/run", cfg.StudyHandler.RunScript)
	study.GET("/courses", cfg.CourseHandler.ListCourses)
	study.GET("/courses/:id/outline", cfg.CourseHandler.GetOutline)
	study.POST("/courses/:id/reset", cfg.CourseHandler.ResetProgress)

	return router
}
