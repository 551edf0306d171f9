package types

import (
	"time"

	"github.com/google/uuid"
)

// UserVariable is a key/value captured from learner input, read back by
// later prompt templates. CourseID nil means the variable is global to the
// learner.
type UserVariable struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_var_user_course_name,unique" json:"user_id"`
	CourseID  *uuid.UUID `gorm:"type:uuid;index:idx_var_user_course_name,unique" json:"course_id,omitempty"`
	Name      string     `gorm:"column:name;not null;index:idx_var_user_course_name,unique" json:"name"`
	Value     string     `gorm:"column:value;type:text" json:"value"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserVariable) TableName() string { return "user_variable" }
