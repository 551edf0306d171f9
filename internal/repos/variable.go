package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/types"
)

type UserVariableRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, row *types.UserVariable) error
	// GetBindings merges the learner's global variables with the course-scoped
	// ones; course scope wins on name collisions.
	GetBindings(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (map[string]string, error)
}

type userVariableRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserVariableRepo(db *gorm.DB, baseLog *logger.Logger) UserVariableRepo {
	return &userVariableRepo{db: db, log: baseLog.With("repo", "UserVariableRepo")}
}

func (r *userVariableRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.UserVariable) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	query := transaction.WithContext(ctx).
		Where("user_id = ? AND name = ?", row.UserID, row.Name)
	if row.CourseID == nil {
		query = query.Where("course_id IS NULL")
	} else {
		query = query.Where("course_id = ?", *row.CourseID)
	}
	var existing types.UserVariable
	err := query.First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return transaction.WithContext(ctx).Create(row).Error
	}
	if err != nil {
		return err
	}
	existing.Value = row.Value
	if err := transaction.WithContext(ctx).Save(&existing).Error; err != nil {
		return err
	}
	*row = existing
	return nil
}

func (r *userVariableRepo) GetBindings(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (map[string]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	bindings := map[string]string{}
	if userID == uuid.Nil {
		return bindings, nil
	}
	var rows []*types.UserVariable
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND (course_id IS NULL OR course_id = ?)", userID, courseID).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.CourseID == nil {
			bindings[row.Name] = row.Value
		}
	}
	for _, row := range rows {
		if row.CourseID != nil {
			bindings[row.Name] = row.Value
		}
	}
	return bindings, nil
}
