package exam

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hmarroquin/labtrack-api/internal/handler"
	"github.com/hmarroquin/labtrack-api/internal/model"
	"github.com/hmarroquin/labtrack-api/internal/service/exam"
)

type Handler struct {
	service exam.ExamService
}

func NewHandler(service exam.ExamService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	exams := r.Group("/exams")
	{
		exams.POST("", h.CreateExam)
		exams.GET("", h.ListExams)
		exams.GET("/:id", h.GetExam)
		exams.PATCH("/:id/status", h.UpdateStatus)
	}
	r.GET("/patients/:id/exams", h.ListPatientExams)
}

func (h *Handler) CreateExam(c *gin.Context) {
	var req model.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) GetExam(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid exam ID"))
		return
	}

	found, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(found))
}

func (h *Handler) ListExams(c *gin.Context) {
	var filters model.ExamFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	exams, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(exams))
}

func (h *Handler) ListPatientExams(c *gin.Context) {
	patientID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	exams, err := h.service.ListByPatient(c.Request.Context(), patientID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(exams))
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid exam ID"))
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.service.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"id": id, "status": req.Status}))
}
