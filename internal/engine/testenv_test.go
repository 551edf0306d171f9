package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/repos"
	"github.com/yungbote/courseflow-backend/internal/structure"
	"github.com/yungbote/courseflow-backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func lessonRow(courseID uuid.UUID, code, title string, kind types.LessonKind) *types.Lesson {
	return &types.Lesson{
		ID:           uuid.New(),
		CourseID:     courseID,
		PositionCode: code,
		Title:        title,
		Kind:         kind,
	}
}

func blockRow(lessonID uuid.UUID, idx int, kind types.BlockKind, content string, payload BlockPayload) *types.ContentBlock {
	return &types.ContentBlock{
		ID:       uuid.New(),
		LessonID: lessonID,
		Index:    idx,
		Kind:     kind,
		Content:  content,
		Payload:  MustPayload(payload),
	}
}

// --- repo fakes ---

type fakeCourseRepo struct {
	course *types.Course
}

func (f *fakeCourseRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Course) ([]*types.Course, error) {
	return rows, nil
}

func (f *fakeCourseRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Course, error) {
	if f.course != nil && f.course.ID == id {
		cp := *f.course
		return &cp, nil
	}
	return nil, repos.ErrNotFound
}

func (f *fakeCourseRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Course, error) {
	if f.course == nil {
		return nil, nil
	}
	return []*types.Course{f.course}, nil
}

type fakeLessonRepo struct {
	rows []*types.Lesson
}

func (f *fakeLessonRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Lesson) ([]*types.Lesson, error) {
	return rows, nil
}

func (f *fakeLessonRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lesson, error) {
	for _, row := range f.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return nil, repos.ErrNotFound
}

func (f *fakeLessonRepo) GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Lesson, error) {
	var out []*types.Lesson
	for _, row := range f.rows {
		if row.CourseID == courseID {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeBlockRepo struct {
	rows []*types.ContentBlock
}

func (f *fakeBlockRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.ContentBlock) ([]*types.ContentBlock, error) {
	return rows, nil
}

func (f *fakeBlockRepo) GetByLessonIDs(ctx context.Context, tx *gorm.DB, lessonIDs []uuid.UUID) ([]*types.ContentBlock, error) {
	want := make(map[uuid.UUID]bool, len(lessonIDs))
	for _, id := range lessonIDs {
		want[id] = true
	}
	var out []*types.ContentBlock
	for _, row := range f.rows {
		if want[row.LessonID] {
			out = append(out, row)
		}
	}
	return out, nil
}

// fakeAttendRepo keeps rows by value so callers only observe state that went
// through Create/Update, like a real store.
type fakeAttendRepo struct {
	mu   sync.Mutex
	rows []types.Attend
}

func (f *fakeAttendRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Attend) ([]*types.Attend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range rows {
		row.ID = uuid.New()
		row.CreatedAt = time.Now()
		f.rows = append(f.rows, *row)
	}
	return rows, nil
}

func (f *fakeAttendRepo) GetActive(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.Attend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.rows) - 1; i >= 0; i-- {
		row := f.rows[i]
		if row.UserID == userID && row.LessonID == lessonID && row.Status.Active() {
			cp := row
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAttendRepo) GetActiveByLessonIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.Attend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(lessonIDs))
	for _, id := range lessonIDs {
		want[id] = true
	}
	var out []*types.Attend
	for i := range f.rows {
		row := f.rows[i]
		if row.UserID == userID && want[row.LessonID] && row.Status.Active() {
			cp := row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAttendRepo) GetActiveByCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) ([]*types.Attend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Attend
	for i := range f.rows {
		row := f.rows[i]
		if row.UserID == userID && row.CourseID == courseID && row.Status.Active() {
			cp := row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAttendRepo) Update(ctx context.Context, tx *gorm.DB, row *types.Attend) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == row.ID {
			f.rows[i] = *row
			return nil
		}
	}
	return fmt.Errorf("attend %s not found", row.ID)
}

func (f *fakeAttendRepo) ResetActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(lessonIDs))
	for _, id := range lessonIDs {
		want[id] = true
	}
	for i := range f.rows {
		if f.rows[i].UserID == userID && want[f.rows[i].LessonID] {
			f.rows[i].Status = types.AttendStatusReset
		}
	}
	return nil
}

// mustActive returns the live attempt for a lesson or fails the test.
func (f *fakeAttendRepo) mustActive(t *testing.T, userID, lessonID uuid.UUID) *types.Attend {
	t.Helper()
	row, err := f.GetActive(context.Background(), nil, userID, lessonID)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if row == nil {
		t.Fatalf("no active attempt for lesson %s", lessonID)
	}
	return row
}

type varKey struct {
	courseID uuid.UUID // uuid.Nil for global
	name     string
}

type fakeVarRepo struct {
	mu   sync.Mutex
	vals map[varKey]string
}

func (f *fakeVarRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.UserVariable) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.vals == nil {
		f.vals = map[varKey]string{}
	}
	key := varKey{name: row.Name}
	if row.CourseID != nil {
		key.courseID = *row.CourseID
	}
	f.vals[key] = row.Value
	return nil
}

func (f *fakeVarRepo) GetBindings(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	for k, v := range f.vals {
		if k.courseID == uuid.Nil {
			out[k.name] = v
		}
	}
	for k, v := range f.vals {
		if k.courseID == courseID {
			out[k.name] = v
		}
	}
	return out, nil
}

// --- collaborator fakes ---

type scriptedGenerator struct {
	deltas  []string
	err     error
	prompts []string
}

func (g *scriptedGenerator) Stream(ctx context.Context, req GenerateRequest, onDelta func(delta string) error) error {
	g.prompts = append(g.prompts, req.Prompt)
	for _, d := range g.deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return g.err
}

type fakeLocker struct {
	mu       sync.Mutex
	acquired int
	released int
	deny     bool
	failErr  error
}

func (l *fakeLocker) Acquire(ctx context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failErr != nil {
		return nil, false, l.failErr
	}
	if l.deny {
		return nil, false, nil
	}
	l.acquired++
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, true, nil
}

func (l *fakeLocker) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquired, l.released
}

// --- engine wiring ---

func newTestEngine(t *testing.T, course *types.Course, lessons []*types.Lesson, blocks []*types.ContentBlock, gen TextGenerator, locker Locker) (*Engine, *fakeAttendRepo, *fakeVarRepo) {
	t.Helper()
	log := logger.NewNop()
	index := structure.NewIndex(
		&fakeCourseRepo{course: course},
		&fakeLessonRepo{rows: lessons},
		&fakeBlockRepo{rows: blocks},
		log,
	)
	attends := &fakeAttendRepo{}
	vars := &fakeVarRepo{}
	return New(newTestDB(t), log, index, attends, vars, gen, locker), attends, vars
}

func drainEvents(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, open := <-ch:
			if !open {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out draining events, got %d so far", len(out))
		}
	}
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}
