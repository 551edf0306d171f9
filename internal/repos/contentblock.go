package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/types"
)

type ContentBlockRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.ContentBlock) ([]*types.ContentBlock, error)
	GetByLessonIDs(ctx context.Context, tx *gorm.DB, lessonIDs []uuid.UUID) ([]*types.ContentBlock, error)
}

type contentBlockRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentBlockRepo(db *gorm.DB, baseLog *logger.Logger) ContentBlockRepo {
	return &contentBlockRepo{db: db, log: baseLog.With("repo", "ContentBlockRepo")}
}

func (r *contentBlockRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.ContentBlock) ([]*types.ContentBlock, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.ContentBlock{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *contentBlockRepo) GetByLessonIDs(ctx context.Context, tx *gorm.DB, lessonIDs []uuid.UUID) ([]*types.ContentBlock, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.ContentBlock
	if len(lessonIDs) == 0 {
		return rows, nil
	}
	if err := transaction.WithContext(ctx).
		Where("lesson_id IN ?", lessonIDs).
		Order(`lesson_id, "index" asc`).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
