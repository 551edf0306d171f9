package app

import (
	"github.com/yungbote/courseflow-backend/internal/handlers"
	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/sse"
)

type Handlers struct {
	Study  *handlers.StudyHandler
	Course *handlers.CourseHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	encoder := sse.NewEncoder(log)
	return Handlers{
		Study:  handlers.NewStudyHandler(log, services.Study, encoder),
		Course: handlers.NewCourseHandler(log, services.Course),
	}
}
