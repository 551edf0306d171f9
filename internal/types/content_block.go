package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BlockKind is the closed set of deliverable unit types. Interpreter and
// renderer switch exhaustively over it; adding a kind means touching both.
type BlockKind string

const (
	BlockKindText         BlockKind = "text"      // static text
	BlockKindAIText       BlockKind = "ai_text"   // prompt-templated, streamed from the generator
	BlockKindButton       BlockKind = "button"    // single continue button or choice set
	BlockKindTextInput    BlockKind = "input"     // free text, optionally captured as a variable
	BlockKindPhoneInput   BlockKind = "phone"     // phone number
	BlockKindCodeInput    BlockKind = "code"      // verification code
	BlockKindBranchSelect BlockKind = "branch"    // choice that routes to another lesson
	BlockKindPayment      BlockKind = "pay"       // stops the run until the order boundary clears it
	BlockKindLogin        BlockKind = "login"     // stops the run until the identity boundary clears it
)

// IsInteraction reports whether the block waits for learner input before the
// run may advance past it.
func (k BlockKind) IsInteraction() bool {
	switch k {
	case BlockKindButton, BlockKindTextInput, BlockKindPhoneInput,
		BlockKindCodeInput, BlockKindBranchSelect, BlockKindPayment, BlockKindLogin:
		return true
	}
	return false
}

// ContentBlock is the smallest deliverable unit of a lesson. Content holds
// static text, or the prompt template for ai_text blocks. Payload carries
// kind-specific settings (see engine.BlockPayload).
type ContentBlock struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LessonID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_lesson_block,unique" json:"lesson_id"`
	Lesson      *Lesson        `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"lesson,omitempty"`
	Index       int            `gorm:"column:index;not null;index:idx_lesson_block,unique" json:"index"`
	Kind        BlockKind      `gorm:"column:kind;not null" json:"kind"`
	Content     string         `gorm:"column:content;type:text" json:"content"`
	Model       string         `gorm:"column:model" json:"model,omitempty"`
	Temperature float64        `gorm:"column:temperature;default:0.8" json:"temperature,omitempty"`
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ContentBlock) TableName() string { return "content_block" }
