package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/courseflow-backend/internal/engine"
	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/services"
	"github.com/yungbote/courseflow-backend/internal/structure"
)

type Services struct {
	Index    *structure.Index
	Engine   *engine.Engine
	Identity services.IdentityService
	Study    services.StudyService
	Course   services.CourseService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	index := structure.NewIndex(repos.Course, repos.Lesson, repos.ContentBlock, log)

	var locker engine.Locker
	if clients.RunLock != nil {
		locker = clients.RunLock
	}
	eng := engine.New(db, log, index, repos.Attend, repos.UserVariable, clients.Openai, locker)

	identityService := services.NewIdentityService(log, cfg.JWTSecretKey)
	studyService := services.NewStudyService(log, eng)
	courseService := services.NewCourseService(log, repos.Course, repos.Attend, index)

	return Services{
		Index:    index,
		Engine:   eng,
		Identity: identityService,
		Study:    studyService,
		Course:   courseService,
	}, nil
}
