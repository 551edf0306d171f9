package engine

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ButtonOption is one choice of a button or branch-select block.
type ButtonOption struct {
	Label string `json:"label"`
	Key   string `json:"key"`
}

// BranchRule routes a captured value to a destination lesson, overriding
// structural order.
type BranchRule struct {
	Value    string    `json:"value"`
	LessonID uuid.UUID `json:"lesson_id"`
}

// BlockPayload is the kind-specific configuration stored in
// ContentBlock.Payload. Fields irrelevant to a kind stay zero.
type BlockPayload struct {
	Buttons     []ButtonOption `json:"buttons,omitempty"`
	Placeholder string         `json:"placeholder,omitempty"`
	// Variable names the captured binding for input blocks; empty means the
	// answer is not retained.
	Variable string `json:"variable,omitempty"`
	// Scope is "course" (default) or "global" for captured variables.
	Scope string       `json:"scope,omitempty"`
	Rules []BranchRule `json:"rules,omitempty"`
}

func ParsePayload(raw datatypes.JSON) (*BlockPayload, error) {
	p := &BlockPayload{}
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, err
	}
	return p, nil
}

// MustPayload marshals a payload back to JSONB. Fixture/test helper.
func MustPayload(p BlockPayload) datatypes.JSON {
	raw, err := json.Marshal(p)
	if err != nil {
		panic(err)
	}
	return datatypes.JSON(raw)
}
