package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/SAP-F-2025/smartscore-service/internal/services"
	"github.com/SAP-F-2025/smartscore-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// maxSheetSize bounds an uploaded answer sheet
const maxSheetSize = 20 << 20

type SubmissionHandler struct {
	BaseHandler
	submissionService services.SubmissionService
	gradingService    services.GradingService
}

func NewSubmissionHandler(
	submissionService services.SubmissionService,
	gradingService services.GradingService,
	logger utils.Logger,
) *SubmissionHandler {
	return &SubmissionHandler{
		BaseHandler:       NewBaseHandler(logger),
		submissionService: submissionService,
		gradingService:    gradingService,
	}
}

// CreateSubmission records a student's answers for an exam
// @Summary Create submission
// @Tags submissions
// @Accept json
// @Produce json
// @Param submission body services.CreateSubmissionRequest true "Submission data"
// @Success 201 {object} models.SubmissionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "Exam or student not found"
// @Router /submissions [post]
func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	var req services.CreateSubmissionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating submission", "exam_id", req.ExamID, "student_id", req.StudentID)

	submission, err := h.submissionService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, submission)
}

// UploadSubmission records a submission together with its scanned answer sheet
// @Summary Upload submission
// @Tags submissions
// @Accept multipart/form-data
// @Produce json
// @Param exam_id formData string true "Exam ID"
// @Param student_id formData string true "Student ID"
// @Param answers formData string false "JSON list of {question_id, content}"
// @Param file formData file true "Answer sheet"
// @Success 201 {object} models.SubmissionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse "Blob storage not configured"
// @Router /submissions/upload [post]
func (h *SubmissionHandler) UploadSubmission(c *gin.Context) {
	req := services.CreateSubmissionRequest{
		ExamID:    c.PostForm("exam_id"),
		StudentID: c.PostForm("student_id"),
	}
	if raw := c.PostForm("answers"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Answers); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Validation failed",
				Details: services.ValidationErrors{{Field: "answers", Message: "must be a JSON list", Rule: "json"}},
			})
			return
		}
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: services.ValidationErrors{{Field: "file", Message: "is required", Rule: "required"}},
		})
		return
	}
	if header.Size > maxSheetSize {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: services.ValidationErrors{{Field: "file", Message: "exceeds 20 MiB", Value: header.Size, Rule: "max"}},
		})
		return
	}

	file, err := header.Open()
	if err != nil {
		h.handleServiceError(c, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.handleServiceError(c, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	h.LogRequest(c, "Uploading submission", "exam_id", req.ExamID, "student_id", req.StudentID, "filename", header.Filename)

	submission, err := h.submissionService.CreateWithSheet(c.Request.Context(), &req, &services.AnswerSheet{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, submission)
}

// GetSubmission retrieves a submission with its answers
// @Summary Get submission
// @Tags submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} models.SubmissionResponse
// @Failure 404 {object} ErrorResponse
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == "" {
		return
	}

	submission, err := h.submissionService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}

// GetSheetURL returns a temporary download link for the answer sheet
// @Summary Get answer sheet link
// @Tags submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} services.SheetURLResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse "Blob storage not configured"
// @Router /submissions/{id}/sheet [get]
func (h *SubmissionHandler) GetSheetURL(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == "" {
		return
	}

	url, err := h.submissionService.GetSheetURL(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, url)
}

// DeleteSubmission deletes a submission and its answers
// @Summary Delete submission
// @Tags submissions
// @Param id path string true "Submission ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /submissions/{id} [delete]
func (h *SubmissionHandler) DeleteSubmission(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Deleting submission", "submission_id", id)

	if err := h.submissionService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RecordGrading applies a grading result to a submission
// @Summary Record grading result
// @Tags submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param result body services.GradingResultRequest true "Grading result"
// @Success 200 {object} models.SubmissionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /submissions/{id}/grading [post]
func (h *SubmissionHandler) RecordGrading(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.GradingResultRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.SubmissionID = id

	h.LogRequest(c, "Recording grading result", "submission_id", id, "answers", len(req.Answers))

	submission, err := h.gradingService.RecordResult(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}
