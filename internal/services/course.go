package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/repos"
	"github.com/yungbote/courseflow-backend/internal/structure"
	"github.com/yungbote/courseflow-backend/internal/types"
)

type LessonView struct {
	ID           uuid.UUID          `json:"id"`
	PositionCode string             `json:"position_code"`
	Title        string             `json:"title"`
	Kind         types.LessonKind   `json:"kind"`
	Status       types.AttendStatus `json:"status"`
	BlockIndex   int                `json:"block_index"`
	BlockCount   int                `json:"block_count"`
}

type ChapterView struct {
	ID           uuid.UUID          `json:"id"`
	PositionCode string             `json:"position_code"`
	Title        string             `json:"title"`
	Status       types.AttendStatus `json:"status"`
	Lessons      []LessonView       `json:"lessons"`
}

type OutlineView struct {
	CourseID uuid.UUID     `json:"course_id"`
	Title    string        `json:"title"`
	Chapters []ChapterView `json:"chapters"`
}

// CourseService serves the learner-facing course views and the
// administrative progress reset.
type CourseService interface {
	ListCourses(ctx context.Context) ([]*types.Course, error)
	GetOutlineForUser(ctx context.Context, userID, courseID uuid.UUID) (*OutlineView, error)
	// ResetProgressForUser invalidates the learner's live attempts for the
	// whole course. Rows flip to reset and stay as history; fresh attempts
	// are created on the next run.
	ResetProgressForUser(ctx context.Context, userID, courseID uuid.UUID) error
}

type courseService struct {
	log     *logger.Logger
	courses repos.CourseRepo
	attends repos.AttendRepo
	index   *structure.Index
}

func NewCourseService(baseLog *logger.Logger, courses repos.CourseRepo, attends repos.AttendRepo, index *structure.Index) CourseService {
	return &courseService{
		log:     baseLog.With("service", "CourseService"),
		courses: courses,
		attends: attends,
		index:   index,
	}
}

func (s *courseService) ListCourses(ctx context.Context) ([]*types.Course, error) {
	return s.courses.List(ctx, nil)
}

func (s *courseService) GetOutlineForUser(ctx context.Context, userID, courseID uuid.UUID) (*OutlineView, error) {
	outline, err := s.index.Resolve(ctx, courseID)
	if err != nil {
		return nil, err
	}
	attends, err := s.attends.GetActiveByCourse(ctx, nil, userID, courseID)
	if err != nil {
		return nil, err
	}
	statusByLesson := make(map[uuid.UUID]*types.Attend, len(attends))
	for _, at := range attends {
		statusByLesson[at.LessonID] = at
	}
	statusOf := func(lessonID uuid.UUID) (types.AttendStatus, int) {
		if at, ok := statusByLesson[lessonID]; ok {
			return at.Status, at.BlockIndex
		}
		return types.AttendStatusNotStarted, 0
	}

	view := &OutlineView{CourseID: outline.Course.ID, Title: outline.Course.Title}
	for _, ch := range outline.Chapters {
		chStatus, _ := statusOf(ch.Chapter.ID)
		chView := ChapterView{
			ID:           ch.Chapter.ID,
			PositionCode: ch.Chapter.PositionCode,
			Title:        ch.Chapter.Title,
			Status:       chStatus,
		}
		for _, ln := range ch.Lessons {
			if ln.Lesson.Kind == types.LessonKindHidden {
				continue
			}
			status, blockIndex := statusOf(ln.Lesson.ID)
			chView.Lessons = append(chView.Lessons, LessonView{
				ID:           ln.Lesson.ID,
				PositionCode: ln.Lesson.PositionCode,
				Title:        ln.Lesson.Title,
				Kind:         ln.Lesson.Kind,
				Status:       status,
				BlockIndex:   blockIndex,
				BlockCount:   len(ln.Blocks),
			})
		}
		view.Chapters = append(view.Chapters, chView)
	}
	return view, nil
}

func (s *courseService) ResetProgressForUser(ctx context.Context, userID, courseID uuid.UUID) error {
	outline, err := s.index.Resolve(ctx, courseID)
	if err != nil {
		return err
	}
	ids := outline.LessonIDs()
	for _, ch := range outline.Chapters {
		ids = append(ids, ch.Chapter.ID)
	}
	if err := s.attends.ResetActive(ctx, nil, userID, ids); err != nil {
		return err
	}
	s.log.Info("progress reset", "user_id", userID, "course_id", courseID)
	return nil
}
