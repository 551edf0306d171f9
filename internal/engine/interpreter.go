package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courseflow-backend/internal/apierr"
	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/repos"
	"github.com/yungbote/courseflow-backend/internal/types"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\- ]{6,19}$`)
	codePattern  = regexp.MustCompile(`^[0-9]{4,6}$`)
)

// ApplyResult is what a validated learner input did: variables captured and,
// for branch-select blocks, the destination lesson overriding structural
// order.
type ApplyResult struct {
	Captured []*types.UserVariable
	BranchTo *uuid.UUID
}

// Interpreter validates learner input against the pending block and records
// its side effects. It is the sole writer of captured variables.
type Interpreter struct {
	vars repos.UserVariableRepo
	log  *logger.Logger
}

func NewInterpreter(vars repos.UserVariableRepo, baseLog *logger.Logger) *Interpreter {
	return &Interpreter{vars: vars, log: baseLog.With("component", "InputInterpreter")}
}

// Apply checks the input against the block's expected shape and persists the
// side effects inside tx. Shape mismatches fail with INVALID_INPUT and leave
// progress untouched.
func (in *Interpreter) Apply(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID, block *types.ContentBlock, input string) (*ApplyResult, error) {
	payload, err := ParsePayload(block.Payload)
	if err != nil {
		return nil, fmt.Errorf("block %s payload: %w", block.ID, err)
	}
	input = strings.TrimSpace(input)
	result := &ApplyResult{}

	switch block.Kind {
	case types.BlockKindText, types.BlockKindAIText:
		// Nothing to consume; the block advances on any continue.
		return result, nil

	case types.BlockKindButton:
		if len(payload.Buttons) > 0 && !matchesButton(payload.Buttons, input) {
			return nil, invalidInput("unknown button key %q", input)
		}

	case types.BlockKindTextInput:
		if input == "" {
			return nil, invalidInput("empty input for text block")
		}

	case types.BlockKindPhoneInput:
		if !phonePattern.MatchString(input) {
			return nil, invalidInput("input does not look like a phone number")
		}

	case types.BlockKindCodeInput:
		if !codePattern.MatchString(input) {
			return nil, invalidInput("input does not look like a verification code")
		}

	case types.BlockKindBranchSelect:
		dest, ok := matchBranch(payload.Rules, input)
		if !ok {
			return nil, invalidInput("no branch rule matches %q", input)
		}
		result.BranchTo = &dest

	case types.BlockKindPayment, types.BlockKindLogin:
		// The payment/identity boundary confirms out of band; any
		// confirmation input clears the block.
		if input == "" {
			return nil, invalidInput("confirmation required")
		}

	default:
		return nil, invalidInput("block kind %q accepts no input", block.Kind)
	}

	if payload.Variable != "" {
		captured, err := in.capture(ctx, tx, userID, courseID, payload, input)
		if err != nil {
			return nil, err
		}
		result.Captured = append(result.Captured, captured)
	}
	return result, nil
}

func (in *Interpreter) capture(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID, payload *BlockPayload, value string) (*types.UserVariable, error) {
	row := &types.UserVariable{
		UserID: userID,
		Name:   payload.Variable,
		Value:  value,
	}
	if payload.Scope != "global" {
		cid := courseID
		row.CourseID = &cid
	}
	if err := in.vars.Upsert(ctx, tx, row); err != nil {
		return nil, err
	}
	in.log.Debug("captured variable", "user_id", userID, "name", row.Name)
	return row, nil
}

func matchesButton(buttons []ButtonOption, input string) bool {
	for _, b := range buttons {
		if b.Key == input {
			return true
		}
	}
	return false
}

func matchBranch(rules []BranchRule, input string) (uuid.UUID, bool) {
	for _, r := range rules {
		if r.Value == input {
			return r.LessonID, true
		}
	}
	return uuid.Nil, false
}

func invalidInput(format string, args ...any) error {
	return apierr.BadRequest(apierr.CodeInvalidInput, fmt.Errorf(format, args...))
}
