package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseflow-backend/internal/apierr"
	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/repos"
	"github.com/yungbote/courseflow-backend/internal/structure"
	"github.com/yungbote/courseflow-backend/internal/types"
)

// Advancer owns the progress state machine:
//
//	not_started --(first block rendered)--> in_progress
//	in_progress --(last block completed)--> completed
//	in_progress --(branch block resolved)--> branch
//	locked      --(unlock cascade)--------> not_started
//	any         --(administrative reset)--> reset
//
// Completion cascades upward synchronously: lesson -> chapter aggregate ->
// next-chapter unlock, all inside the caller's transaction so a partial
// cascade is never visible.
type Advancer struct {
	attends repos.AttendRepo
	log     *logger.Logger
}

func NewAdvancer(attends repos.AttendRepo, baseLog *logger.Logger) *Advancer {
	return &Advancer{attends: attends, log: baseLog.With("component", "StatusAdvancer")}
}

// EnsureActive returns the learner's live attempt for the lesson, creating a
// not_started one the first time the lesson becomes reachable. A locked
// attempt stays locked and surfaces as PREREQUISITE_LOCKED.
func (a *Advancer) EnsureActive(ctx context.Context, tx *gorm.DB, outline *structure.Outline, userID uuid.UUID, node *structure.LessonNode) (*types.Attend, error) {
	attend, err := a.attends.GetActive(ctx, tx, userID, node.Lesson.ID)
	if err != nil {
		return nil, err
	}
	if attend != nil {
		if attend.Status == types.AttendStatusLocked {
			return nil, apierr.New(403, apierr.CodePrerequisiteLocked,
				fmt.Errorf("lesson %s is locked for user %s", node.Lesson.ID, userID))
		}
		return attend, nil
	}

	status := types.AttendStatusNotStarted
	if !a.reachable(ctx, tx, outline, userID, node) {
		status = types.AttendStatusLocked
	}
	rows, err := a.attends.Create(ctx, tx, []*types.Attend{{
		UserID:   userID,
		CourseID: outline.Course.ID,
		LessonID: node.Lesson.ID,
		Status:   status,
	}})
	if err != nil {
		return nil, err
	}
	if status == types.AttendStatusLocked {
		return nil, apierr.New(403, apierr.CodePrerequisiteLocked,
			fmt.Errorf("lesson %s is locked for user %s", node.Lesson.ID, userID))
	}
	return rows[0], nil
}

// reachable: lessons of the first chapter always are; later chapters require
// the previous chapter's aggregate to be completed.
func (a *Advancer) reachable(ctx context.Context, tx *gorm.DB, outline *structure.Outline, userID uuid.UUID, node *structure.LessonNode) bool {
	chapter := outline.ChapterOf(node.Lesson.ID)
	if chapter == nil || len(outline.Chapters) == 0 {
		return false
	}
	if chapter == outline.Chapters[0] {
		return true
	}
	var prev *structure.ChapterNode
	for _, ch := range outline.Chapters {
		if ch == chapter {
			break
		}
		prev = ch
	}
	if prev == nil {
		return true
	}
	agg, err := a.attends.GetActive(ctx, tx, userID, prev.Chapter.ID)
	if err != nil || agg == nil {
		return false
	}
	return agg.Status == types.AttendStatusCompleted
}

// MarkInProgress records the first delivery of a lesson's content.
func (a *Advancer) MarkInProgress(ctx context.Context, tx *gorm.DB, attend *types.Attend) error {
	if attend.Status != types.AttendStatusNotStarted {
		return nil
	}
	attend.Status = types.AttendStatusInProgress
	return a.attends.Update(ctx, tx, attend)
}

// AdvanceBlock makes the completion of one block durable.
func (a *Advancer) AdvanceBlock(ctx context.Context, tx *gorm.DB, attend *types.Attend) error {
	attend.BlockIndex++
	return a.attends.Update(ctx, tx, attend)
}

// lessonDone treats branch-selected lessons as terminal for cascade purposes.
func lessonDone(s types.AttendStatus) bool {
	return s == types.AttendStatusCompleted || s == types.AttendStatusBranch
}

// CompleteLesson marks the lesson finished and runs the upward cascade,
// returning the boundary events in structural order: lesson completion,
// chapter completion, next-chapter unlock.
func (a *Advancer) CompleteLesson(ctx context.Context, tx *gorm.DB, outline *structure.Outline, userID uuid.UUID, attend *types.Attend, terminal types.AttendStatus) ([]Event, error) {
	now := time.Now()
	attend.Status = terminal
	attend.CompletedAt = &now
	if err := a.attends.Update(ctx, tx, attend); err != nil {
		return nil, err
	}

	node, err := outline.LessonByID(attend.LessonID)
	if err != nil {
		return nil, err
	}
	events := []Event{{Type: EventLessonUpdate, Content: LessonUpdateContent{
		LessonID:     node.Lesson.ID,
		PositionCode: node.Lesson.PositionCode,
		Title:        node.Lesson.Title,
		Status:       terminal,
	}}}

	chapter := outline.ChapterOf(attend.LessonID)
	if chapter == nil {
		return events, nil
	}
	done, err := a.chapterDone(ctx, tx, userID, chapter)
	if err != nil {
		return nil, err
	}
	if !done {
		return events, nil
	}

	chapterEvents, err := a.completeChapter(ctx, tx, outline, userID, chapter)
	if err != nil {
		return nil, err
	}
	return append(events, chapterEvents...), nil
}

func (a *Advancer) chapterDone(ctx context.Context, tx *gorm.DB, userID uuid.UUID, chapter *structure.ChapterNode) (bool, error) {
	ids := make([]uuid.UUID, 0, len(chapter.Lessons))
	required := 0
	for _, ln := range chapter.Lessons {
		switch ln.Lesson.Kind {
		case types.LessonKindBranch, types.LessonKindHidden:
			continue
		}
		ids = append(ids, ln.Lesson.ID)
		required++
	}
	attends, err := a.attends.GetActiveByLessonIDs(ctx, tx, userID, ids)
	if err != nil {
		return false, err
	}
	doneCount := 0
	for _, at := range attends {
		if lessonDone(at.Status) {
			doneCount++
		}
	}
	return required > 0 && doneCount >= required, nil
}

func (a *Advancer) completeChapter(ctx context.Context, tx *gorm.DB, outline *structure.Outline, userID uuid.UUID, chapter *structure.ChapterNode) ([]Event, error) {
	now := time.Now()
	agg, err := a.attends.GetActive(ctx, tx, userID, chapter.Chapter.ID)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		rows, err := a.attends.Create(ctx, tx, []*types.Attend{{
			UserID:   userID,
			CourseID: outline.Course.ID,
			LessonID: chapter.Chapter.ID,
			Status:   types.AttendStatusCompleted,
			CompletedAt: &now,
		}})
		if err != nil {
			return nil, err
		}
		agg = rows[0]
	} else {
		agg.Status = types.AttendStatusCompleted
		agg.CompletedAt = &now
		if err := a.attends.Update(ctx, tx, agg); err != nil {
			return nil, err
		}
	}

	events := []Event{{Type: EventChapterUpdate, Content: ChapterUpdateContent{
		ChapterID:    chapter.Chapter.ID,
		PositionCode: chapter.Chapter.PositionCode,
		Title:        chapter.Chapter.Title,
		Status:       types.AttendStatusCompleted,
	}}}

	next := outline.NextChapterAfter(chapter)
	if next == nil {
		return events, nil
	}
	if err := a.unlockChapter(ctx, tx, outline, userID, next); err != nil {
		return nil, err
	}
	events = append(events, Event{Type: EventChapterUpdate, Content: ChapterUpdateContent{
		ChapterID:    next.Chapter.ID,
		PositionCode: next.Chapter.PositionCode,
		Title:        next.Chapter.Title,
		Status:       types.AttendStatusNotStarted,
	}})
	return events, nil
}

// unlockChapter flips locked attempts of the chapter's lessons to
// not_started and creates missing ones, inside the caller's transaction.
func (a *Advancer) unlockChapter(ctx context.Context, tx *gorm.DB, outline *structure.Outline, userID uuid.UUID, chapter *structure.ChapterNode) error {
	for _, ln := range chapter.Lessons {
		switch ln.Lesson.Kind {
		case types.LessonKindBranch, types.LessonKindHidden:
			continue
		}
		attend, err := a.attends.GetActive(ctx, tx, userID, ln.Lesson.ID)
		if err != nil {
			return err
		}
		if attend == nil {
			if _, err := a.attends.Create(ctx, tx, []*types.Attend{{
				UserID:   userID,
				CourseID: outline.Course.ID,
				LessonID: ln.Lesson.ID,
				Status:   types.AttendStatusNotStarted,
			}}); err != nil {
				return err
			}
			continue
		}
		if attend.Status == types.AttendStatusLocked {
			attend.Status = types.AttendStatusNotStarted
			if err := a.attends.Update(ctx, tx, attend); err != nil {
				return err
			}
		}
	}
	return nil
}
