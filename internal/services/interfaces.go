package services

import (
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/smartscore-service/internal/models"
	"github.com/SAP-F-2025/smartscore-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateUserRequest = validator.UserCreateRequest
type CreateStudentRequest = validator.StudentCreateRequest
type CreateExamRequest = validator.ExamCreateRequest
type CreateQuestionRequest = validator.QuestionCreateRequest
type CreateRubricRequest = validator.RubricCreateRequest
type CreateSubmissionRequest = validator.SubmissionCreateRequest
type CreateAnswerRequest = validator.AnswerCreateRequest
type GradingResultRequest = validator.GradingResultRequest
type AnswerGradeRequest = validator.AnswerGradeRequest

// AnswerSheet is a scanned answer sheet uploaded with a submission
type AnswerSheet struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ExamListFilters struct {
	CreatedBy *string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	Size      int
}

type ExamListResponse struct {
	Exams []*models.ExamResponse `json:"exams"`
	Total int64                  `json:"total"`
	Page  int                    `json:"page"`
	Size  int                    `json:"size"`
}

type SubmissionListFilters struct {
	StudentID *string
	Graded    *bool
	Page      int
	Size      int
}

type SubmissionListResponse struct {
	Submissions []*models.SubmissionResponse `json:"submissions"`
	Total       int64                        `json:"total"`
	Page        int                          `json:"page"`
	Size        int                          `json:"size"`
}

type SheetURLResponse struct {
	URL string `json:"url"`
}

// ImportUsersResult summarizes a directory import
type ImportUsersResult struct {
	Created []*models.UserResponse `json:"created"`
	Skipped int                    `json:"skipped"`
}

// ExportFile is a rendered spreadsheet ready to be served
type ExportFile struct {
	Filename string
	Data     []byte
}

// ===== SERVICE INTERFACES =====

type UserService interface {
	Create(ctx context.Context, req *CreateUserRequest) (*models.UserResponse, error)
	GetByID(ctx context.Context, id string) (*models.UserResponse, error)

	// ImportFromDirectory creates local users for directory accounts whose email is unknown
	ImportFromDirectory(ctx context.Context) (*ImportUsersResult, error)
}

type StudentService interface {
	Create(ctx context.Context, req *CreateStudentRequest) (*models.StudentResponse, error)
	GetByID(ctx context.Context, id string) (*models.StudentResponse, error)
}

type ExamService interface {
	Create(ctx context.Context, req *CreateExamRequest) (*models.ExamResponse, error)
	GetByID(ctx context.Context, id string, includeQuestions bool) (*models.ExamResponse, error)
	List(ctx context.Context, filters ExamListFilters) (*ExamListResponse, error)
	Delete(ctx context.Context, id string) error
}

type QuestionService interface {
	// AddQuestions stores the batch atomically and returns it in caller order
	AddQuestions(ctx context.Context, examID string, questions []CreateQuestionRequest) ([]models.QuestionResponse, error)
	GetByID(ctx context.Context, id string) (*models.QuestionResponse, error)

	AddRubric(ctx context.Context, questionID string, req *CreateRubricRequest) (*models.RubricResponse, error)
	GetRubric(ctx context.Context, questionID string) (*models.RubricResponse, error)
}

type SubmissionService interface {
	Create(ctx context.Context, req *CreateSubmissionRequest) (*models.SubmissionResponse, error)
	CreateWithSheet(ctx context.Context, req *CreateSubmissionRequest, sheet *AnswerSheet) (*models.SubmissionResponse, error)
	GetByID(ctx context.Context, id string) (*models.SubmissionResponse, error)
	ListByExam(ctx context.Context, examID string, filters SubmissionListFilters) (*SubmissionListResponse, error)
	GetSheetURL(ctx context.Context, id string) (*SheetURLResponse, error)
	Delete(ctx context.Context, id string) error
}

type GradingService interface {
	// RecordResult applies the grading engine output for one submission
	RecordResult(ctx context.Context, req *GradingResultRequest) (*models.SubmissionResponse, error)

	// HandleResultMessage decodes a grading.results payload and records it
	HandleResultMessage(ctx context.Context, payload []byte) error
}

type ImportExportService interface {
	ImportQuestions(ctx context.Context, examID string, r io.Reader) ([]models.QuestionResponse, error)
	ExportExam(ctx context.Context, examID string) (*ExportFile, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	User() UserService
	Student() StudentService
	Exam() ExamService
	Question() QuestionService
	Submission() SubmissionService
	Grading() GradingService

	// Additional service getters
	ImportExport() ImportExportService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
