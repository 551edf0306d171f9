package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Lesson kind. Branch lessons are reachable only through a branch-select
// block; hidden lessons never appear in the default structural order.
type LessonKind string

const (
	LessonKindTrial    LessonKind = "trial"
	LessonKindNormal   LessonKind = "normal"
	LessonKindExtended LessonKind = "extended"
	LessonKindBranch   LessonKind = "branch"
	LessonKindHidden   LessonKind = "hidden"
)

// Lesson is one node of a course tree. Chapters and lessons share the table:
// a two-digit position code is a chapter, a longer code is a lesson whose
// parent is the row owning its code prefix. Codes are unique per course and
// lexicographic order is structural order.
type Lesson struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_course_position,unique" json:"course_id"`
	Course       *Course        `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	PositionCode string         `gorm:"column:position_code;not null;index:idx_course_position,unique" json:"position_code"`
	Title        string         `gorm:"column:title;not null" json:"title"`
	Kind         LessonKind     `gorm:"column:kind;not null;default:'normal'" json:"kind"`
	Metadata     datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lesson) TableName() string { return "lesson" }

// IsChapter reports whether the row is a top-level grouping node.
func (l *Lesson) IsChapter() bool { return len(l.PositionCode) == 2 }
