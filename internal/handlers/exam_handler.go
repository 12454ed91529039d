package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/SAP-F-2025/smartscore-service/internal/services"
	"github.com/SAP-F-2025/smartscore-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExamHandler struct {
	BaseHandler
	examService         services.ExamService
	questionService     services.QuestionService
	submissionService   services.SubmissionService
	importExportService services.ImportExportService
}

func NewExamHandler(
	examService services.ExamService,
	questionService services.QuestionService,
	submissionService services.SubmissionService,
	importExportService services.ImportExportService,
	logger utils.Logger,
) *ExamHandler {
	return &ExamHandler{
		BaseHandler:         NewBaseHandler(logger),
		examService:         examService,
		questionService:     questionService,
		submissionService:   submissionService,
		importExportService: importExportService,
	}
}

// CreateExam creates a new exam
// @Summary Create exam
// @Tags exams
// @Accept json
// @Produce json
// @Param exam body services.CreateExamRequest true "Exam data"
// @Success 201 {object} models.ExamResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "Creator not found"
// @Failure 500 {object} ErrorResponse
// @Router /exams [post]
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req services.CreateExamRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating exam", "created_by", req.CreatedBy)

	exam, err := h.examService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, exam)
}

// ListExams lists exams, newest first
// @Summary List exams
// @Tags exams
// @Produce json
// @Param created_by query string false "Filter by creator"
// @Param date_from query string false "Created at or after (RFC 3339)"
// @Param date_to query string false "Created at or before (RFC 3339)"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} services.ExamListResponse
// @Failure 400 {object} ErrorResponse
// @Router /exams [get]
func (h *ExamHandler) ListExams(c *gin.Context) {
	filters := services.ExamListFilters{
		Page: h.queryInt(c, "page"),
		Size: h.queryInt(c, "size"),
	}
	if createdBy := c.Query("created_by"); createdBy != "" {
		filters.CreatedBy = &createdBy
	}

	var ok bool
	if filters.DateFrom, ok = h.queryTime(c, "date_from"); !ok {
		return
	}
	if filters.DateTo, ok = h.queryTime(c, "date_to"); !ok {
		return
	}

	list, err := h.examService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// GetExam retrieves an exam by ID
// @Summary Get exam
// @Tags exams
// @Produce json
// @Param id path string true "Exam ID"
// @Param include query string false "Set to questions to embed the exam's questions"
// @Success 200 {object} models.ExamResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id} [get]
func (h *ExamHandler) GetExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == "" {
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), id, c.Query("include") == "questions")
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// DeleteExam deletes an exam with its questions, rubrics and submissions
// @Summary Delete exam
// @Tags exams
// @Param id path string true "Exam ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id} [delete]
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Deleting exam", "exam_id", id)

	if err := h.examService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddQuestions appends a batch of questions to an exam
// @Summary Add questions to exam
// @Description Stores the whole list or nothing. The response keeps request order.
// @Description An empty list stores nothing and answers 201 with [].
// @Tags exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param questions body []services.CreateQuestionRequest true "Questions"
// @Success 201 {array} models.QuestionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/questions [post]
func (h *ExamHandler) AddQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == "" {
		return
	}

	var req []services.CreateQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Adding questions", "exam_id", id, "count", len(req))

	questions, err := h.questionService.AddQuestions(c.Request.Context(), id, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, questions)
}

// ImportQuestions adds questions read from an uploaded XLSX workbook
// @Summary Import questions
// @Tags exams
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Exam ID"
// @Param file formData file true "Workbook with question_number, type, marks and text columns"
// @Success 201 {array} models.QuestionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/questions/import [post]
func (h *ExamHandler) ImportQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == "" {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: services.ValidationErrors{{Field: "file", Message: "is required", Rule: "required"}},
		})
		return
	}
	file, err := header.Open()
	if err != nil {
		h.handleServiceError(c, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing questions", "exam_id", id, "filename", header.Filename)

	questions, err := h.importExportService.ImportQuestions(c.Request.Context(), id, file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, questions)
}

// ExportExam downloads the exam as an XLSX workbook
// @Summary Export exam
// @Tags exams
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Exam ID"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/export [get]
func (h *ExamHandler) ExportExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == "" {
		return
	}

	export, err := h.importExportService.ExportExam(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Data(http.StatusOK, xlsxContentType, export.Data)
}

// ListSubmissions lists the submissions of an exam
// @Summary List exam submissions
// @Tags exams
// @Produce json
// @Param id path string true "Exam ID"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Param student_id query string false "Filter by student"
// @Param graded query bool false "Filter by grading state"
// @Success 200 {object} services.SubmissionListResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/submissions [get]
func (h *ExamHandler) ListSubmissions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == "" {
		return
	}

	filters := services.SubmissionListFilters{
		Page: h.queryInt(c, "page"),
		Size: h.queryInt(c, "size"),
	}
	if studentID := c.Query("student_id"); studentID != "" {
		filters.StudentID = &studentID
	}
	if graded, err := strconv.ParseBool(c.Query("graded")); err == nil {
		filters.Graded = &graded
	}

	list, err := h.submissionService.ListByExam(c.Request.Context(), id, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}
