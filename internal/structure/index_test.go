package structure

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/courseflow-backend/internal/types"
)

func mkLesson(courseID uuid.UUID, code, title string, kind types.LessonKind) *types.Lesson {
	return &types.Lesson{
		ID:           uuid.New(),
		CourseID:     courseID,
		PositionCode: code,
		Title:        title,
		Kind:         kind,
	}
}

func testRows(courseID uuid.UUID) []*types.Lesson {
	return []*types.Lesson{
		mkLesson(courseID, "01", "Basics", types.LessonKindNormal),
		mkLesson(courseID, "0101", "Welcome", types.LessonKindTrial),
		mkLesson(courseID, "0102", "First steps", types.LessonKindNormal),
		mkLesson(courseID, "0103", "Detour", types.LessonKindBranch),
		mkLesson(courseID, "02", "Advanced", types.LessonKindNormal),
		mkLesson(courseID, "0201", "Deep dive", types.LessonKindNormal),
		mkLesson(courseID, "0202", "Secret", types.LessonKindHidden),
	}
}

func TestBuildGroupsLessonsUnderChapters(t *testing.T) {
	course := &types.Course{ID: uuid.New(), Title: "Go from zero"}
	rows := testRows(course.ID)

	outline := Build(course, rows, nil)

	if len(outline.Chapters) != 2 {
		t.Fatalf("chapters: want=2 got=%d", len(outline.Chapters))
	}
	if got := len(outline.Chapters[0].Lessons); got != 3 {
		t.Fatalf("chapter 01 lessons: want=3 got=%d", got)
	}
	if got := len(outline.Chapters[1].Lessons); got != 2 {
		t.Fatalf("chapter 02 lessons: want=2 got=%d", got)
	}
	if ch := outline.ChapterOf(rows[5].ID); ch == nil || ch.Chapter.PositionCode != "02" {
		t.Fatalf("ChapterOf(0201): want chapter 02 got %v", ch)
	}
}

func TestBuildDropsOrphanLessons(t *testing.T) {
	course := &types.Course{ID: uuid.New()}
	rows := []*types.Lesson{
		mkLesson(course.ID, "0101", "Orphan before any chapter", types.LessonKindNormal),
		mkLesson(course.ID, "02", "Advanced", types.LessonKindNormal),
		mkLesson(course.ID, "0301", "Wrong prefix", types.LessonKindNormal),
		mkLesson(course.ID, "0201", "Kept", types.LessonKindNormal),
	}

	outline := Build(course, rows, nil)

	if len(outline.Chapters) != 1 {
		t.Fatalf("chapters: want=1 got=%d", len(outline.Chapters))
	}
	if got := len(outline.Chapters[0].Lessons); got != 1 {
		t.Fatalf("kept lessons: want=1 got=%d", got)
	}
	if outline.Chapters[0].Lessons[0].Lesson.Title != "Kept" {
		t.Fatalf("kept lesson: got %q", outline.Chapters[0].Lessons[0].Lesson.Title)
	}
}

func TestFirstLessonSkipsBranchAndHidden(t *testing.T) {
	course := &types.Course{ID: uuid.New()}
	rows := []*types.Lesson{
		mkLesson(course.ID, "01", "Basics", types.LessonKindNormal),
		mkLesson(course.ID, "0101", "Detour", types.LessonKindBranch),
		mkLesson(course.ID, "0102", "Secret", types.LessonKindHidden),
		mkLesson(course.ID, "0103", "Welcome", types.LessonKindNormal),
	}

	outline := Build(course, rows, nil)

	first := outline.FirstLesson()
	if first == nil || first.Lesson.Title != "Welcome" {
		t.Fatalf("FirstLesson: want Welcome got %v", first)
	}
}

func TestNextLessonAfterCrossesChapters(t *testing.T) {
	course := &types.Course{ID: uuid.New()}
	rows := testRows(course.ID)
	outline := Build(course, rows, nil)

	// 0102 is the last deliverable lesson of chapter 01 (0103 is branch).
	next := outline.NextLessonAfter(rows[2].ID)
	if next == nil || next.Lesson.PositionCode != "0201" {
		t.Fatalf("NextLessonAfter(0102): want 0201 got %v", next)
	}

	// 0201 is the last deliverable lesson of the course (0202 is hidden).
	if got := outline.NextLessonAfter(rows[5].ID); got != nil {
		t.Fatalf("NextLessonAfter(0201): want nil got %v", got.Lesson.PositionCode)
	}
}

func TestNextChapterAfter(t *testing.T) {
	course := &types.Course{ID: uuid.New()}
	outline := Build(course, testRows(course.ID), nil)

	next := outline.NextChapterAfter(outline.Chapters[0])
	if next == nil || next.Chapter.PositionCode != "02" {
		t.Fatalf("NextChapterAfter(01): want 02 got %v", next)
	}
	if got := outline.NextChapterAfter(outline.Chapters[1]); got != nil {
		t.Fatalf("NextChapterAfter(02): want nil got %v", got)
	}
}

func TestLessonByIDNotFound(t *testing.T) {
	course := &types.Course{ID: uuid.New()}
	outline := Build(course, testRows(course.ID), nil)

	if _, err := outline.LessonByID(uuid.New()); err == nil {
		t.Fatalf("LessonByID with unknown id: want error got nil")
	}
}

func TestAttachBlocksSortsByIndex(t *testing.T) {
	course := &types.Course{ID: uuid.New()}
	rows := testRows(course.ID)
	lessonID := rows[1].ID

	blocks := []*types.ContentBlock{
		{ID: uuid.New(), LessonID: lessonID, Index: 2, Kind: types.BlockKindButton},
		{ID: uuid.New(), LessonID: lessonID, Index: 0, Kind: types.BlockKindText},
		{ID: uuid.New(), LessonID: lessonID, Index: 1, Kind: types.BlockKindText},
		{ID: uuid.New(), LessonID: uuid.New(), Index: 0, Kind: types.BlockKindText},
	}

	outline := Build(course, rows, blocks)

	node, err := outline.LessonByID(lessonID)
	if err != nil {
		t.Fatalf("LessonByID: %v", err)
	}
	if len(node.Blocks) != 3 {
		t.Fatalf("blocks attached: want=3 got=%d", len(node.Blocks))
	}
	for i, b := range node.Blocks {
		if b.Index != i {
			t.Fatalf("block order at %d: want index=%d got=%d", i, i, b.Index)
		}
	}
}
