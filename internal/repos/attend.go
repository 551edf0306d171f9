package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/types"
)

type AttendRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Attend) ([]*types.Attend, error)
	// GetActive returns the learner's live attempt for one lesson, or nil.
	GetActive(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.Attend, error)
	GetActiveByLessonIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.Attend, error)
	GetActiveByCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) ([]*types.Attend, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.Attend) error
	// ResetActive flips the live attempts for the given lessons to reset.
	// Rows are kept as history, never deleted.
	ResetActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonIDs []uuid.UUID) error
}

type attendRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttendRepo(db *gorm.DB, baseLog *logger.Logger) AttendRepo {
	return &attendRepo{db: db, log: baseLog.With("repo", "AttendRepo")}
}

func (r *attendRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Attend) ([]*types.Attend, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Attend{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *attendRepo) GetActive(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.Attend, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Attend
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ? AND status <> ?", userID, lessonID, types.AttendStatusReset).
		Order("created_at desc").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *attendRepo) GetActiveByLessonIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.Attend, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Attend
	if userID == uuid.Nil || len(lessonIDs) == 0 {
		return rows, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND lesson_id IN ? AND status <> ?", userID, lessonIDs, types.AttendStatusReset).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *attendRepo) GetActiveByCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) ([]*types.Attend, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Attend
	if userID == uuid.Nil || courseID == uuid.Nil {
		return rows, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND status <> ?", userID, courseID, types.AttendStatusReset).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *attendRepo) Update(ctx context.Context, tx *gorm.DB, row *types.Attend) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(row).Error
}

func (r *attendRepo) ResetActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || len(lessonIDs) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Attend{}).
		Where("user_id = ? AND lesson_id IN ? AND status <> ?", userID, lessonIDs, types.AttendStatusReset).
		Update("status", types.AttendStatusReset).Error
}
