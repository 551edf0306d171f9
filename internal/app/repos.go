package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/repos"
)

type Repos struct {
	User         repos.UserRepo
	Course       repos.CourseRepo
	Lesson       repos.LessonRepo
	ContentBlock repos.ContentBlockRepo
	Attend       repos.AttendRepo
	UserVariable repos.UserVariableRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:         repos.NewUserRepo(db, log),
		Course:       repos.NewCourseRepo(db, log),
		Lesson:       repos.NewLessonRepo(db, log),
		ContentBlock: repos.NewContentBlockRepo(db, log),
		Attend:       repos.NewAttendRepo(db, log),
		UserVariable: repos.NewUserVariableRepo(db, log),
	}
}
