package engine

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/yungbote/courseflow-backend/internal/apierr"
	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/types"
)

// EmitFunc forwards one event downstream. Returning an error means the
// consumer is gone; rendering must stop cleanly.
type EmitFunc func(Event) error

// Renderer turns a content block plus the current variable bindings into
// deliverable events. Generated text is forwarded fragment by fragment, never
// buffered.
type Renderer struct {
	gen TextGenerator
	log *logger.Logger
}

func NewRenderer(gen TextGenerator, baseLog *logger.Logger) *Renderer {
	return &Renderer{gen: gen, log: baseLog.With("component", "OutputRenderer")}
}

// Render emits the block's content. The switch over block kinds is
// exhaustive; interaction kinds emit a single prompt event.
func (r *Renderer) Render(ctx context.Context, block *types.ContentBlock, vars map[string]string, emit EmitFunc) error {
	payload, err := ParsePayload(block.Payload)
	if err != nil {
		return fmt.Errorf("block %s payload: %w", block.ID, err)
	}

	switch block.Kind {
	case types.BlockKindText:
		text, err := expandTemplate(block.Content, vars)
		if err != nil {
			return err
		}
		if err := emit(textEvent(text)); err != nil {
			return err
		}
		return emit(textEndEvent())

	case types.BlockKindAIText:
		return r.renderGenerated(ctx, block, vars, emit)

	case types.BlockKindButton, types.BlockKindTextInput, types.BlockKindPhoneInput,
		types.BlockKindCodeInput, types.BlockKindBranchSelect:
		prompt, err := expandTemplate(block.Content, vars)
		if err != nil {
			return err
		}
		return emit(Event{Type: EventInteraction, Content: InteractionContent{
			BlockKind:   block.Kind,
			Prompt:      prompt,
			Placeholder: payload.Placeholder,
			Buttons:     payload.Buttons,
		}})

	case types.BlockKindPayment:
		return emit(Event{Type: EventOrderRequired, Content: InteractionContent{
			BlockKind: block.Kind,
			Prompt:    block.Content,
		}})

	case types.BlockKindLogin:
		return emit(Event{Type: EventLoginRequired, Content: InteractionContent{
			BlockKind: block.Kind,
			Prompt:    block.Content,
		}})
	}
	return fmt.Errorf("unknown block kind %q", block.Kind)
}

// renderGenerated streams the collaborator's fragments straight through. A
// provider failure after fragments were flushed still terminates the stream
// with text_end so the flushed output stays consumable.
func (r *Renderer) renderGenerated(ctx context.Context, block *types.ContentBlock, vars map[string]string, emit EmitFunc) error {
	prompt, err := expandTemplate(block.Content, vars)
	if err != nil {
		return err
	}
	flushed := false
	streamErr := r.gen.Stream(ctx, GenerateRequest{
		Prompt:      prompt,
		Model:       block.Model,
		Temperature: block.Temperature,
	}, func(delta string) error {
		if delta == "" {
			return nil
		}
		if err := emit(textEvent(delta)); err != nil {
			return err
		}
		flushed = true
		return nil
	})
	if streamErr != nil {
		if flushed {
			_ = emit(textEndEvent())
		}
		r.log.Error("text generation failed", "block_id", block.ID, "error", streamErr)
		return apierr.New(502, apierr.CodeGenerationFailed, fmt.Errorf("text generation: %w", streamErr))
	}
	return emit(textEndEvent())
}

// expandTemplate substitutes captured variables into content using
// text/template. Plain content passes through untouched.
func expandTemplate(content string, vars map[string]string) (string, error) {
	if !strings.Contains(content, "{{") {
		return content, nil
	}
	tmpl, err := template.New("block").Option("missingkey=zero").Parse(content)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}
