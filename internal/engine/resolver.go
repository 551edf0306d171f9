package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/structure"
	"github.com/yungbote/courseflow-backend/internal/types"
)

// ErrEndOfCourse signals that no further lesson is reachable.
var ErrEndOfCourse = errors.New("end of course")

// ResolvedBlock is the unit the run loop delivers next.
type ResolvedBlock struct {
	Node   *structure.LessonNode
	Attend *types.Attend
	Block  *types.ContentBlock
}

// Resolver walks the course structure from the learner's progress to the next
// deliverable block, crossing lesson and chapter boundaries through the
// advancer so every boundary is both durable and announced.
type Resolver struct {
	advancer *Advancer
	log      *logger.Logger
}

func NewResolver(advancer *Advancer, baseLog *logger.Logger) *Resolver {
	return &Resolver{advancer: advancer, log: baseLog.With("component", "ScriptResolver")}
}

// Next resolves the block to deliver. step 0 re-delivers the pending block,
// step 1 advances past it; the advance is made durable inside tx before the
// new block is returned. Boundary events come back in structural order:
// finished lesson, finished chapter, unlocked chapter, entered lesson —
// always ahead of the resolved block's content.
func (r *Resolver) Next(ctx context.Context, tx *gorm.DB, outline *structure.Outline, userID uuid.UUID, attend *types.Attend, step int) (*ResolvedBlock, []Event, error) {
	node, err := outline.LessonByID(attend.LessonID)
	if err != nil {
		return nil, nil, err
	}

	idx := attend.BlockIndex + step
	if idx < len(node.Blocks) {
		if step > 0 {
			if err := r.advancer.AdvanceBlock(ctx, tx, attend); err != nil {
				return nil, nil, err
			}
		}
		return &ResolvedBlock{Node: node, Attend: attend, Block: node.Blocks[idx]}, nil, nil
	}

	// Lesson exhausted: complete it and walk forward until a lesson with
	// content remains, completing empty ones along the way.
	var events []Event
	current := node
	currentAttend := attend
	for {
		finished, err := r.advancer.CompleteLesson(ctx, tx, outline, userID, currentAttend, types.AttendStatusCompleted)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, finished...)

		next := outline.NextLessonAfter(current.Lesson.ID)
		if next == nil {
			return nil, events, ErrEndOfCourse
		}
		nextAttend, err := r.advancer.EnsureActive(ctx, tx, outline, userID, next)
		if err != nil {
			return nil, nil, err
		}
		if err := r.advancer.MarkInProgress(ctx, tx, nextAttend); err != nil {
			return nil, nil, err
		}
		events = append(events, Event{Type: EventLessonUpdate, Content: LessonUpdateContent{
			LessonID:     next.Lesson.ID,
			PositionCode: next.Lesson.PositionCode,
			Title:        next.Lesson.Title,
			Status:       types.AttendStatusInProgress,
		}})

		if nextAttend.BlockIndex < len(next.Blocks) {
			return &ResolvedBlock{Node: next, Attend: nextAttend, Block: next.Blocks[nextAttend.BlockIndex]}, events, nil
		}
		current = next
		currentAttend = nextAttend
	}
}
