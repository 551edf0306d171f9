package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AttendStatus string

const (
	AttendStatusNotStarted AttendStatus = "not_started"
	AttendStatusInProgress AttendStatus = "in_progress"
	AttendStatusCompleted  AttendStatus = "completed"
	AttendStatusBranch     AttendStatus = "branch"
	AttendStatusLocked     AttendStatus = "locked"
	AttendStatusReset      AttendStatus = "reset"
)

// Active reports whether the record is the learner's live attempt. Reset
// records are retained history, never deleted.
func (s AttendStatus) Active() bool { return s != AttendStatusReset }

// Attend is a learner's progress record for one lesson (or chapter
// aggregate). At most one active row exists per (user, lesson); superseding
// an attempt flips the old row to reset and creates a fresh one.
type Attend struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_attend_user_lesson" json:"user_id"`
	User        *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	CourseID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	LessonID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_attend_user_lesson" json:"lesson_id"`
	Lesson      *Lesson        `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"lesson,omitempty"`
	Status      AttendStatus   `gorm:"column:status;not null;default:'not_started'" json:"status"`
	BlockIndex  int            `gorm:"column:block_index;not null;default:0" json:"block_index"`
	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Attend) TableName() string { return "attend" }
