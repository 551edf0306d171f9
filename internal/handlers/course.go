package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/courseflow-backend/internal/apierr"
	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/requestdata"
	"github.com/yungbote/courseflow-backend/internal/services"
)

type CourseHandler struct {
	log *logger.Logger
	svc services.CourseService
}

func NewCourseHandler(log *logger.Logger, svc services.CourseService) *CourseHandler {
	return &CourseHandler{log: log.With("handler", "CourseHandler"), svc: svc}
}

// GET /api/study/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.svc.ListCourses(c.Request.Context())
	if err != nil {
		h.abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

// GET /api/study/courses/:id/outline
func (h *CourseHandler) GetOutline(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
		return
	}
	outline, err := h.svc.GetOutlineForUser(c.Request.Context(), rd.UserID, courseID)
	if err != nil {
		h.abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, outline)
}

// POST /api/study/courses/:id/reset
func (h *CourseHandler) ResetProgress(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
		return
	}
	if err := h.svc.ResetProgressForUser(c.Request.Context(), rd.UserID, courseID); err != nil {
		h.abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (h *CourseHandler) abortWith(c *gin.Context, err error) {
	ae := apierr.From(err)
	if ae.Code == apierr.CodeInternal {
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(ae.Status, gin.H{"error": ae.Code})
}
