package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/smartscore-service/internal/services"
	"github.com/SAP-F-2025/smartscore-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type QuestionHandler struct {
	BaseHandler
	service services.QuestionService
}

func NewQuestionHandler(service services.QuestionService, logger utils.Logger) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// GetQuestion retrieves a question by ID
// @Summary Get question
// @Tags questions
// @Produce json
// @Param id path string true "Question ID"
// @Success 200 {object} models.QuestionResponse
// @Failure 404 {object} ErrorResponse
// @Router /questions/{id} [get]
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == "" {
		return
	}

	question, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// CreateRubric attaches the marking rubric of a question
// @Summary Create rubric
// @Tags questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param rubric body services.CreateRubricRequest true "Rubric data"
// @Success 201 {object} models.RubricResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Question already has a rubric"
// @Router /questions/{id}/rubric [post]
func (h *QuestionHandler) CreateRubric(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.CreateRubricRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating rubric", "question_id", id)

	rubric, err := h.service.AddRubric(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rubric)
}

// GetRubric retrieves the rubric of a question
// @Summary Get rubric
// @Tags questions
// @Produce json
// @Param id path string true "Question ID"
// @Success 200 {object} models.RubricResponse
// @Failure 404 {object} ErrorResponse
// @Router /questions/{id}/rubric [get]
func (h *QuestionHandler) GetRubric(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == "" {
		return
	}

	rubric, err := h.service.GetRubric(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, rubric)
}
