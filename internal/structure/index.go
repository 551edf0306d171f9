// Package structure builds read-only course outlines: the ordered
// chapter/lesson/content-block tree one engine run navigates. An Outline is a
// snapshot; nothing mutates it after Resolve returns.
package structure

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/courseflow-backend/internal/apierr"
	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/repos"
	"github.com/yungbote/courseflow-backend/internal/types"
)

type LessonNode struct {
	Lesson *types.Lesson
	Blocks []*types.ContentBlock
}

type ChapterNode struct {
	Chapter *types.Lesson
	Lessons []*LessonNode
}

type Outline struct {
	Course   *types.Course
	Chapters []*ChapterNode

	lessonsByID map[uuid.UUID]*LessonNode
	chapterOf   map[uuid.UUID]*ChapterNode
}

type Index struct {
	courses repos.CourseRepo
	lessons repos.LessonRepo
	blocks  repos.ContentBlockRepo
	log     *logger.Logger
}

func NewIndex(courses repos.CourseRepo, lessons repos.LessonRepo, blocks repos.ContentBlockRepo, baseLog *logger.Logger) *Index {
	return &Index{
		courses: courses,
		lessons: lessons,
		blocks:  blocks,
		log:     baseLog.With("component", "StructureIndex"),
	}
}

// Resolve loads the full tree for one course. Position codes drive the
// shape: two digits is a chapter, longer codes attach to the chapter owning
// their prefix.
func (ix *Index) Resolve(ctx context.Context, courseID uuid.UUID) (*Outline, error) {
	course, err := ix.courses.GetByID(ctx, nil, courseID)
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, apierr.NotFound(apierr.CodeCourseNotFound, fmt.Errorf("course %s: %w", courseID, err))
		}
		return nil, err
	}

	rows, err := ix.lessons.GetByCourseID(ctx, nil, courseID)
	if err != nil {
		return nil, err
	}

	outline := Build(course, rows, nil)

	blocks, err := ix.blocks.GetByLessonIDs(ctx, nil, outline.LessonIDs())
	if err != nil {
		return nil, err
	}
	outline.attachBlocks(blocks)

	return outline, nil
}

// Build assembles an outline from already-loaded rows. Lessons must be sorted
// by position code; rows whose prefix does not match any chapter are dropped.
func Build(course *types.Course, lessons []*types.Lesson, blocks []*types.ContentBlock) *Outline {
	outline := &Outline{
		Course:      course,
		lessonsByID: make(map[uuid.UUID]*LessonNode),
		chapterOf:   make(map[uuid.UUID]*ChapterNode),
	}
	var current *ChapterNode
	for _, row := range lessons {
		if row.IsChapter() {
			current = &ChapterNode{Chapter: row}
			outline.Chapters = append(outline.Chapters, current)
			continue
		}
		if current == nil || !strings.HasPrefix(row.PositionCode, current.Chapter.PositionCode) {
			continue
		}
		node := &LessonNode{Lesson: row}
		current.Lessons = append(current.Lessons, node)
		outline.lessonsByID[row.ID] = node
		outline.chapterOf[row.ID] = current
	}
	outline.attachBlocks(blocks)
	return outline
}

func (o *Outline) attachBlocks(blocks []*types.ContentBlock) {
	if len(blocks) == 0 {
		return
	}
	for _, b := range blocks {
		if node, ok := o.lessonsByID[b.LessonID]; ok {
			node.Blocks = append(node.Blocks, b)
		}
	}
	for _, node := range o.lessonsByID {
		sort.Slice(node.Blocks, func(i, j int) bool {
			return node.Blocks[i].Index < node.Blocks[j].Index
		})
	}
}

// LessonByID returns the node for a lesson id, or a LESSON_NOT_FOUND error.
func (o *Outline) LessonByID(id uuid.UUID) (*LessonNode, error) {
	if node, ok := o.lessonsByID[id]; ok {
		return node, nil
	}
	return nil, apierr.NotFound(apierr.CodeLessonNotFound, fmt.Errorf("lesson %s not in course %s", id, o.Course.ID))
}

// ChapterOf returns the chapter containing the lesson, or nil.
func (o *Outline) ChapterOf(lessonID uuid.UUID) *ChapterNode {
	return o.chapterOf[lessonID]
}

// deliverable reports whether a lesson appears in default structural order.
// Branch and hidden lessons are reachable only through branch rules.
func deliverable(l *types.Lesson) bool {
	switch l.Kind {
	case types.LessonKindBranch, types.LessonKindHidden:
		return false
	}
	return true
}

// FirstLesson returns the first deliverable lesson of the course, or nil for
// an empty course.
func (o *Outline) FirstLesson() *LessonNode {
	for _, ch := range o.Chapters {
		for _, ln := range ch.Lessons {
			if deliverable(ln.Lesson) {
				return ln
			}
		}
	}
	return nil
}

// NextLessonAfter returns the next deliverable lesson in structural order,
// crossing chapter boundaries. Nil means the course is exhausted.
func (o *Outline) NextLessonAfter(lessonID uuid.UUID) *LessonNode {
	passed := false
	for _, ch := range o.Chapters {
		for _, ln := range ch.Lessons {
			if passed && deliverable(ln.Lesson) {
				return ln
			}
			if ln.Lesson.ID == lessonID {
				passed = true
			}
		}
	}
	return nil
}

// NextChapterAfter returns the chapter following the given one in structural
// order, or nil.
func (o *Outline) NextChapterAfter(chapter *ChapterNode) *ChapterNode {
	for i, ch := range o.Chapters {
		if ch == chapter && i+1 < len(o.Chapters) {
			return o.Chapters[i+1]
		}
	}
	return nil
}

// LessonIDs returns every lesson id in structural order.
func (o *Outline) LessonIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(o.lessonsByID))
	for _, ch := range o.Chapters {
		for _, ln := range ch.Lessons {
			ids = append(ids, ln.Lesson.ID)
		}
	}
	return ids
}
