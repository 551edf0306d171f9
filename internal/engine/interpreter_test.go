package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/courseflow-backend/internal/apierr"
	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/types"
)

func TestApplyValidatesInputShape(t *testing.T) {
	dest := uuid.New()
	cases := []struct {
		name    string
		kind    types.BlockKind
		payload BlockPayload
		input   string
		wantErr bool
	}{
		{name: "text ignores input", kind: types.BlockKindText, input: "anything"},
		{name: "generated text ignores input", kind: types.BlockKindAIText},
		{name: "button accepts known key", kind: types.BlockKindButton,
			payload: BlockPayload{Buttons: []ButtonOption{{Key: "yes"}}}, input: "yes"},
		{name: "button rejects unknown key", kind: types.BlockKindButton,
			payload: BlockPayload{Buttons: []ButtonOption{{Key: "yes"}}}, input: "no", wantErr: true},
		{name: "button without options accepts anything", kind: types.BlockKindButton, input: "tap"},
		{name: "text input rejects empty", kind: types.BlockKindTextInput, input: "   ", wantErr: true},
		{name: "text input accepts text", kind: types.BlockKindTextInput, input: "Ada"},
		{name: "phone accepts international", kind: types.BlockKindPhoneInput, input: "+49 170 1234567"},
		{name: "phone rejects words", kind: types.BlockKindPhoneInput, input: "call me", wantErr: true},
		{name: "code accepts digits", kind: types.BlockKindCodeInput, input: "482910"},
		{name: "code rejects short", kind: types.BlockKindCodeInput, input: "12", wantErr: true},
		{name: "code rejects letters", kind: types.BlockKindCodeInput, input: "12a4", wantErr: true},
		{name: "branch routes known value", kind: types.BlockKindBranchSelect,
			payload: BlockPayload{Rules: []BranchRule{{Value: "left", LessonID: dest}}}, input: "left"},
		{name: "branch rejects unknown value", kind: types.BlockKindBranchSelect,
			payload: BlockPayload{Rules: []BranchRule{{Value: "left", LessonID: dest}}}, input: "up", wantErr: true},
		{name: "payment needs confirmation", kind: types.BlockKindPayment, wantErr: true},
		{name: "payment accepts confirmation", kind: types.BlockKindPayment, input: "paid"},
		{name: "login needs confirmation", kind: types.BlockKindLogin, wantErr: true},
		{name: "unknown kind rejected", kind: types.BlockKind("video"), input: "x", wantErr: true},
	}

	interp := NewInterpreter(&fakeVarRepo{}, logger.NewNop())
	userID, courseID := uuid.New(), uuid.New()

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			block := blockRow(uuid.New(), 0, tc.kind, "", tc.payload)
			result, err := interp.Apply(context.Background(), nil, userID, courseID, block, tc.input)
			if tc.wantErr {
				var ae *apierr.Error
				if !errors.As(err, &ae) || ae.Code != apierr.CodeInvalidInput {
					t.Fatalf("want INVALID_INPUT, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if tc.kind == types.BlockKindBranchSelect {
				if result.BranchTo == nil || *result.BranchTo != dest {
					t.Fatalf("branch destination: want=%s got=%v", dest, result.BranchTo)
				}
			}
		})
	}
}

func TestApplyCapturesCourseScopedVariable(t *testing.T) {
	vars := &fakeVarRepo{}
	interp := NewInterpreter(vars, logger.NewNop())
	userID, courseID := uuid.New(), uuid.New()

	block := blockRow(uuid.New(), 0, types.BlockKindTextInput, "Name?", BlockPayload{Variable: "name"})
	result, err := interp.Apply(context.Background(), nil, userID, courseID, block, "  Ada  ")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(result.Captured) != 1 {
		t.Fatalf("captured: want=1 got=%d", len(result.Captured))
	}
	captured := result.Captured[0]
	if captured.Value != "Ada" {
		t.Fatalf("captured value: want=Ada got=%q", captured.Value)
	}
	if captured.CourseID == nil || *captured.CourseID != courseID {
		t.Fatalf("captured scope: want course %s got %v", courseID, captured.CourseID)
	}

	bindings, err := vars.GetBindings(context.Background(), nil, userID, courseID)
	if err != nil {
		t.Fatalf("GetBindings: %v", err)
	}
	if bindings["name"] != "Ada" {
		t.Fatalf("binding: want=Ada got=%q", bindings["name"])
	}
}

func TestApplyCapturesGlobalVariable(t *testing.T) {
	vars := &fakeVarRepo{}
	interp := NewInterpreter(vars, logger.NewNop())
	userID, courseID := uuid.New(), uuid.New()

	block := blockRow(uuid.New(), 0, types.BlockKindPhoneInput, "Phone?", BlockPayload{Variable: "phone", Scope: "global"})
	result, err := interp.Apply(context.Background(), nil, userID, courseID, block, "+1 555 0100100")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Captured[0].CourseID != nil {
		t.Fatalf("global capture must have no course, got %v", result.Captured[0].CourseID)
	}

	// Globals are visible from any course.
	bindings, err := vars.GetBindings(context.Background(), nil, userID, uuid.New())
	if err != nil {
		t.Fatalf("GetBindings: %v", err)
	}
	if bindings["phone"] == "" {
		t.Fatalf("global binding not visible across courses")
	}
}
