package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/courseflow-backend/internal/engine"
	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/requestdata"
	"github.com/yungbote/courseflow-backend/internal/services"
	"github.com/yungbote/courseflow-backend/internal/sse"
)

type StudyHandler struct {
	log     *logger.Logger
	svc     services.StudyService
	encoder *sse.Encoder
}

func NewStudyHandler(log *logger.Logger, svc services.StudyService, encoder *sse.Encoder) *StudyHandler {
	return &StudyHandler{log: log.With("handler", "StudyHandler"), svc: svc, encoder: encoder}
}

type runScriptRequest struct {
	CourseID  uuid.UUID  `json:"course_id" binding:"required"`
	LessonID  *uuid.UUID `json:"lesson_id,omitempty"`
	Input     string     `json:"input,omitempty"`
	InputKind string     `json:"input_kind" binding:"required"`
}

// POST /api/study/run
//
// One learner turn. The response is an SSE stream of typed events ending at
// the next interaction block or course end.
func (h *StudyHandler) RunScript(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	var req runScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	events := h.svc.Run(c.Request.Context(), engine.RunRequest{
		UserID:   rd.UserID,
		CourseID: req.CourseID,
		LessonID: req.LessonID,
		Input:    req.Input,
		Kind:     engine.RunKind(req.InputKind),
	})
	h.encoder.Stream(c, events)
}
