package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/courseflow-backend/internal/server"
)

func wireRouter(cfg Config, handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthMiddleware: middleware.Auth,
		StudyHandler:   handlers.Study,
		CourseHandler:  handlers.Course,
		AllowOrigins:   cfg.AllowOrigins,
	})
}
