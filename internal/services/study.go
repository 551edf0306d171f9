package services

import (
	"context"

	"github.com/yungbote/courseflow-backend/internal/engine"
	"github.com/yungbote/courseflow-backend/internal/logger"
)

// StudyService is the delivery engine's facade. One Run call is one learner
// turn: it streams events until the next interaction block or course end.
type StudyService interface {
	Run(ctx context.Context, req engine.RunRequest) <-chan engine.Event
}

type studyService struct {
	log *logger.Logger
	eng *engine.Engine
}

func NewStudyService(baseLog *logger.Logger, eng *engine.Engine) StudyService {
	return &studyService{log: baseLog.With("service", "StudyService"), eng: eng}
}

func (s *studyService) Run(ctx context.Context, req engine.RunRequest) <-chan engine.Event {
	s.log.Debug("run requested", "user_id", req.UserID, "course_id", req.CourseID, "kind", req.Kind)
	return s.eng.Run(ctx, req)
}
