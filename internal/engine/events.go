package engine

import (
	"github.com/google/uuid"

	"github.com/yungbote/courseflow-backend/internal/types"
)

// EventType is the wire discriminator. Consumers process events strictly in
// arrival order and ignore unknown types.
type EventType string

const (
	EventAvatar        EventType = "avatar"
	EventLessonUpdate  EventType = "lesson_update"
	EventChapterUpdate EventType = "chapter_update"
	EventText          EventType = "text"
	EventTextEnd       EventType = "text_end"
	EventInteraction   EventType = "interaction"
	EventOrderRequired EventType = "order_required"
	EventLoginRequired EventType = "login_required"
	EventError         EventType = "error"
	EventEnd           EventType = "end"
)

type Event struct {
	Type    EventType `json:"type"`
	Content any       `json:"content,omitempty"`
}

// AvatarContent announces the course's teacher avatar at the start of a run.
type AvatarContent struct {
	AvatarURL string `json:"avatar_url"`
	Title     string `json:"title"`
}

// LessonUpdateContent is a lesson boundary notification.
type LessonUpdateContent struct {
	LessonID     uuid.UUID          `json:"lesson_id"`
	PositionCode string             `json:"position_code"`
	Title        string             `json:"title"`
	Status       types.AttendStatus `json:"status"`
}

// ChapterUpdateContent is a chapter boundary or unlock notification.
type ChapterUpdateContent struct {
	ChapterID    uuid.UUID          `json:"chapter_id"`
	PositionCode string             `json:"position_code"`
	Title        string             `json:"title"`
	Status       types.AttendStatus `json:"status"`
}

// InteractionContent tells the client what input the pending block expects.
type InteractionContent struct {
	BlockKind   types.BlockKind `json:"block_kind"`
	Prompt      string          `json:"prompt,omitempty"`
	Placeholder string          `json:"placeholder,omitempty"`
	Buttons     []ButtonOption  `json:"buttons,omitempty"`
}

// ErrorContent carries only the stable public code and a generic message.
type ErrorContent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func textEvent(s string) Event { return Event{Type: EventText, Content: s} }
func textEndEvent() Event      { return Event{Type: EventTextEnd} }
func endEvent() Event          { return Event{Type: EventEnd} }
