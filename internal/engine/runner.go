// Package engine implements the per-learner lesson progression loop: resolve
// the next content block, apply input, stream rendered output, and advance
// durable progress, one bounded-buffer event at a time.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseflow-backend/internal/apierr"
	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/repos"
	"github.com/yungbote/courseflow-backend/internal/structure"
	"github.com/yungbote/courseflow-backend/internal/types"
)

type RunKind string

const (
	RunKindStart    RunKind = "start"
	RunKindContinue RunKind = "continue"
	RunKindAsk      RunKind = "ask"
)

type RunRequest struct {
	UserID   uuid.UUID
	CourseID uuid.UUID
	// LessonID pins the run to a lesson; nil resumes from stored progress.
	LessonID *uuid.UUID
	Input    string
	Kind     RunKind
}

type Engine struct {
	db       *gorm.DB
	log      *logger.Logger
	index    *structure.Index
	attends  repos.AttendRepo
	vars     repos.UserVariableRepo
	advancer *Advancer
	resolver *Resolver
	interp   *Interpreter
	renderer *Renderer
	gen      TextGenerator
	locker   Locker
}

func New(db *gorm.DB, baseLog *logger.Logger, index *structure.Index, attends repos.AttendRepo, vars repos.UserVariableRepo, gen TextGenerator, locker Locker) *Engine {
	log := baseLog.With("component", "RunEngine")
	advancer := NewAdvancer(attends, baseLog)
	return &Engine{
		db:       db,
		log:      log,
		index:    index,
		attends:  attends,
		vars:     vars,
		advancer: advancer,
		resolver: NewResolver(advancer, baseLog),
		interp:   NewInterpreter(vars, baseLog),
		renderer: NewRenderer(gen, baseLog),
		gen:      gen,
		locker:   locker,
	}
}

// Run starts one delivery loop and returns its ordered event stream. The
// channel capacity is 1 so the producer never runs ahead of a slow consumer
// by more than one event; cancelling ctx tears the producer down.
func (e *Engine) Run(ctx context.Context, req RunRequest) <-chan Event {
	out := make(chan Event, 1)
	go func() {
		defer close(out)
		e.produce(ctx, req, out)
	}()
	return out
}

func (e *Engine) emitter(ctx context.Context, out chan<- Event) EmitFunc {
	return func(ev Event) error {
		select {
		case out <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Engine) produce(ctx context.Context, req RunRequest, out chan<- Event) {
	emit := e.emitter(ctx, out)

	switch req.Kind {
	case RunKindStart, RunKindContinue, RunKindAsk:
	default:
		e.fail(emit, invalidInput("unknown input kind %q", req.Kind))
		return
	}

	// Per-learner mutual exclusion. Lock failure degrades to an unlocked
	// run: availability over strict serialization for this workload.
	var release func()
	var ok bool
	var err error
	if e.locker != nil {
		release, ok, err = e.locker.Acquire(ctx, req.UserID.String())
	}
	if err != nil || !ok {
		e.log.Warn("running without user lock", "user_id", req.UserID, "error", err)
		release = func() {}
	}
	released := false
	unlock := func() {
		if !released {
			released = true
			release()
		}
	}
	defer unlock()

	outline, err := e.index.Resolve(ctx, req.CourseID)
	if err != nil {
		e.fail(emit, err)
		return
	}

	if err := emit(Event{Type: EventAvatar, Content: AvatarContent{
		AvatarURL: outline.Course.TeacherAvatar,
		Title:     outline.Course.Title,
	}}); err != nil {
		return
	}

	node, attend, err := e.locate(ctx, outline, req)
	if err != nil {
		if errors.Is(err, ErrEndOfCourse) {
			_ = emit(endEvent())
			return
		}
		e.fail(emit, err)
		return
	}

	if req.Kind == RunKindAsk {
		unlock()
		e.answerAsk(ctx, outline, node, attend, req, emit)
		return
	}

	var boundary []Event
	if req.Kind == RunKindContinue && attend.BlockIndex < len(node.Blocks) {
		boundary, attend, err = e.applyInput(ctx, outline, req, node, attend)
		if err != nil {
			e.fail(emit, err)
			return
		}
	}

	// Early release: the input transition is durable; streaming happens
	// outside the lock to bound hold time.
	unlock()

	for _, ev := range boundary {
		if emit(ev) != nil {
			return
		}
	}

	e.deliver(ctx, outline, req.UserID, attend, 0, emit)
}

// applyInput validates and applies a continue input in one transaction: the
// captured variables, the block advance or branch transition, and any
// completion cascade all commit together. It returns the attempt the
// delivery loop should continue from (the branch destination's, if the input
// resolved a branch).
func (e *Engine) applyInput(ctx context.Context, outline *structure.Outline, req RunRequest, node *structure.LessonNode, attend *types.Attend) ([]Event, *types.Attend, error) {
	block := node.Blocks[attend.BlockIndex]
	var boundary []Event
	next := attend
	err := e.db.Transaction(func(tx *gorm.DB) error {
		result, err := e.interp.Apply(ctx, tx, req.UserID, req.CourseID, block, req.Input)
		if err != nil {
			return err
		}
		if result.BranchTo == nil {
			return e.advancer.AdvanceBlock(ctx, tx, attend)
		}

		dest, err := outline.LessonByID(*result.BranchTo)
		if err != nil {
			return err
		}
		finished, err := e.advancer.CompleteLesson(ctx, tx, outline, req.UserID, attend, types.AttendStatusBranch)
		if err != nil {
			return err
		}
		destAttend, err := e.advancer.EnsureActive(ctx, tx, outline, req.UserID, dest)
		if err != nil {
			return err
		}
		if err := e.advancer.MarkInProgress(ctx, tx, destAttend); err != nil {
			return err
		}
		boundary = append(boundary, finished...)
		boundary = append(boundary, Event{Type: EventLessonUpdate, Content: LessonUpdateContent{
			LessonID:     dest.Lesson.ID,
			PositionCode: dest.Lesson.PositionCode,
			Title:        dest.Lesson.Title,
			Status:       types.AttendStatusInProgress,
		}})
		next = destAttend
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return boundary, next, nil
}

// locate finds the lesson the run operates on: the pinned one, else the
// learner's live position in structural order, else the course start.
func (e *Engine) locate(ctx context.Context, outline *structure.Outline, req RunRequest) (*structure.LessonNode, *types.Attend, error) {
	var node *structure.LessonNode
	if req.LessonID != nil {
		n, err := outline.LessonByID(*req.LessonID)
		if err != nil {
			return nil, nil, err
		}
		node = n
	} else {
		attends, err := e.attends.GetActiveByCourse(ctx, nil, req.UserID, outline.Course.ID)
		if err != nil {
			return nil, nil, err
		}
		byLesson := make(map[uuid.UUID]*types.Attend, len(attends))
		for _, at := range attends {
			byLesson[at.LessonID] = at
		}
		seen := 0
		for _, ch := range outline.Chapters {
			for _, ln := range ch.Lessons {
				at, ok := byLesson[ln.Lesson.ID]
				if !ok {
					continue
				}
				seen++
				if at.Status == types.AttendStatusInProgress || at.Status == types.AttendStatusNotStarted {
					node = ln
				}
				if node != nil {
					break
				}
			}
			if node != nil {
				break
			}
		}
		if node == nil {
			if seen > 0 {
				return nil, nil, ErrEndOfCourse
			}
			node = outline.FirstLesson()
			if node == nil {
				return nil, nil, apierr.NotFound(apierr.CodeLessonNotFound,
					fmt.Errorf("course %s has no deliverable lessons", outline.Course.ID))
			}
		}
	}

	var attend *types.Attend
	err := e.db.Transaction(func(tx *gorm.DB) error {
		at, err := e.advancer.EnsureActive(ctx, tx, outline, req.UserID, node)
		if err != nil {
			return err
		}
		attend = at
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return node, attend, nil
}

// deliver renders blocks from the learner's position until an interaction
// block, the course end, cancellation, or a failure. Each non-interactive
// block's completion is its own transaction, so a late failure keeps every
// earlier block durable.
func (e *Engine) deliver(ctx context.Context, outline *structure.Outline, userID uuid.UUID, attend *types.Attend, step int, emit EmitFunc) {
	vars, err := e.vars.GetBindings(ctx, nil, userID, outline.Course.ID)
	if err != nil {
		e.fail(emit, err)
		return
	}

	for {
		var rb *ResolvedBlock
		var boundary []Event
		var resolveErr error
		err := e.db.Transaction(func(tx *gorm.DB) error {
			var err error
			rb, boundary, err = e.resolver.Next(ctx, tx, outline, userID, attend, step)
			if errors.Is(err, ErrEndOfCourse) {
				// The completion cascade above must still commit.
				resolveErr = err
				return nil
			}
			return err
		})
		if err != nil {
			e.fail(emit, err)
			return
		}
		for _, ev := range boundary {
			if emit(ev) != nil {
				return
			}
		}
		if resolveErr != nil {
			_ = emit(endEvent())
			return
		}
		step = 0
		attend = rb.Attend

		if attend.Status == types.AttendStatusNotStarted {
			err := e.db.Transaction(func(tx *gorm.DB) error {
				return e.advancer.MarkInProgress(ctx, tx, attend)
			})
			if err != nil {
				e.fail(emit, err)
				return
			}
			if emit(Event{Type: EventLessonUpdate, Content: LessonUpdateContent{
				LessonID:     rb.Node.Lesson.ID,
				PositionCode: rb.Node.Lesson.PositionCode,
				Title:        rb.Node.Lesson.Title,
				Status:       types.AttendStatusInProgress,
			}}) != nil {
				return
			}
		}

		if err := e.renderer.Render(ctx, rb.Block, vars, emit); err != nil {
			if ctx.Err() != nil {
				// Client gone: committed progress stays, nothing further.
				e.log.Debug("run cancelled mid-stream", "user_id", userID)
				return
			}
			e.fail(emit, err)
			return
		}

		if rb.Block.Kind.IsInteraction() {
			return
		}

		err = e.db.Transaction(func(tx *gorm.DB) error {
			return e.advancer.AdvanceBlock(ctx, tx, attend)
		})
		if err != nil {
			e.fail(emit, err)
			return
		}
	}
}

// answerAsk handles an out-of-band learner question: answered in one streamed
// turn with the current block as context, zero progress mutation.
func (e *Engine) answerAsk(ctx context.Context, outline *structure.Outline, node *structure.LessonNode, attend *types.Attend, req RunRequest, emit EmitFunc) {
	vars, err := e.vars.GetBindings(ctx, nil, req.UserID, outline.Course.ID)
	if err != nil {
		e.fail(emit, err)
		return
	}
	material := ""
	if idx := attend.BlockIndex; idx < len(node.Blocks) {
		if expanded, err := expandTemplate(node.Blocks[idx].Content, vars); err == nil {
			material = expanded
		}
	}
	prompt := fmt.Sprintf(
		"You are the teacher of the course %q, currently on the lesson %q.\nCurrent material:\n%s\n\nThe learner asks:\n%s\n\nAnswer briefly and stay on topic.",
		outline.Course.Title, node.Lesson.Title, material, req.Input,
	)
	flushed := false
	err = e.gen.Stream(ctx, GenerateRequest{Prompt: prompt}, func(delta string) error {
		if delta == "" {
			return nil
		}
		if err := emit(textEvent(delta)); err != nil {
			return err
		}
		flushed = true
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if flushed {
			_ = emit(textEndEvent())
		}
		e.fail(emit, apierr.New(502, apierr.CodeGenerationFailed, fmt.Errorf("ask answer: %w", err)))
		return
	}
	if emit(textEndEvent()) != nil {
		return
	}
	_ = emit(endEvent())
}

// fail maps any error to its stable public code; internals are logged, never
// streamed.
func (e *Engine) fail(emit EmitFunc, err error) {
	ae := apierr.From(err)
	e.log.Error("run failed", "code", ae.Code, "error", err)
	_ = emit(Event{Type: EventError, Content: ErrorContent{
		Code:    ae.Code,
		Message: publicMessage(ae.Code),
	}})
}

func publicMessage(code string) string {
	switch code {
	case apierr.CodeCourseNotFound:
		return "This course does not exist."
	case apierr.CodeLessonNotFound:
		return "This lesson does not exist."
	case apierr.CodeInvalidInput:
		return "That input does not match what the lesson expects."
	case apierr.CodePrerequisiteLocked:
		return "This lesson is still locked."
	case apierr.CodeGenerationFailed:
		return "The teacher could not answer right now. Please try again."
	}
	return "Something went wrong. Please try again."
}
