package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/smartscore-service/internal/events"
	"github.com/SAP-F-2025/smartscore-service/internal/metrics"
	"github.com/SAP-F-2025/smartscore-service/internal/models"
	"github.com/SAP-F-2025/smartscore-service/internal/repositories"
	"github.com/SAP-F-2025/smartscore-service/internal/storage"
	"github.com/SAP-F-2025/smartscore-service/internal/validator"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type submissionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	store     storage.BlobStore
	logger    *slog.Logger
	validator *validator.Validator
	observer  workflowObserver
}

// NewSubmissionService builds the submission service. store may be nil when
// answer sheet storage is not configured.
func NewSubmissionService(repo repositories.Repository, db *gorm.DB, store storage.BlobStore, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, m *metrics.Metrics) SubmissionService {
	return &submissionService{
		repo:      repo,
		db:        db,
		store:     store,
		logger:    logger,
		validator: validator,
		observer:  newWorkflowObserver(publisher, m, logger),
	}
}

func (s *submissionService) Create(ctx context.Context, req *CreateSubmissionRequest) (*models.SubmissionResponse, error) {
	return s.create(ctx, req, nil)
}

// CreateWithSheet stores the scanned sheet before the submission row so the row can record its key
func (s *submissionService) CreateWithSheet(ctx context.Context, req *CreateSubmissionRequest, sheet *AnswerSheet) (*models.SubmissionResponse, error) {
	if s.store == nil {
		return nil, ErrBlobStorageDisabled
	}
	if sheet == nil || len(sheet.Data) == 0 {
		return nil, ValidationErrors{{Field: "file", Message: "is required", Rule: "required"}}
	}
	return s.create(ctx, req, sheet)
}

func (s *submissionService) create(ctx context.Context, req *CreateSubmissionRequest, sheet *AnswerSheet) (resp *models.SubmissionResponse, err error) {
	defer func() { s.observer.finish(WorkflowCreateSubmission, err) }()

	s.logger.Info("Creating submission", "exam_id", req.ExamID, "student_id", req.StudentID, "answers", len(req.Answers))

	bv := s.validator.GetBusinessValidator()
	if errors := bv.ValidateSubmissionCreate(req, nil); len(errors) > 0 {
		return nil, errors
	}

	submission := &models.Submission{
		ID:        uuid.NewString(),
		ExamID:    req.ExamID,
		StudentID: req.StudentID,
	}

	var stored *models.Submission
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.Exam().GetByID(ctx, tx, req.ExamID); err != nil {
			return mapNotFound(err, ErrExamNotFound, "get exam")
		}
		if _, err := s.repo.Student().GetByID(ctx, tx, req.StudentID); err != nil {
			return mapNotFound(err, ErrStudentNotFound, "get student")
		}

		questions, err := s.repo.Question().ListByExam(ctx, tx, req.ExamID)
		if err != nil {
			return fmt.Errorf("failed to list exam questions: %w", err)
		}
		examQuestionIDs := make(map[string]bool, len(questions))
		for _, q := range questions {
			examQuestionIDs[q.ID] = true
		}
		if errors := bv.ValidateSubmissionCreate(req, examQuestionIDs); len(errors) > 0 {
			return errors
		}

		if sheet != nil {
			key := storage.SheetKey(req.ExamID, submission.ID, sheet.Filename)
			if err := s.store.Put(ctx, key, sheet.Data, sheet.ContentType); err != nil {
				return fmt.Errorf("failed to store answer sheet: %w", err)
			}
			submission.SheetKey = &key
		}

		if err := s.repo.Submission().Create(ctx, tx, submission); err != nil {
			return fmt.Errorf("failed to create submission: %w", err)
		}

		if len(req.Answers) > 0 {
			answers := make([]*models.Answer, len(req.Answers))
			for i, a := range req.Answers {
				answers[i] = &models.Answer{QuestionID: a.QuestionID, Content: a.Content}
			}
			if err := s.repo.Answer().CreateBatch(ctx, tx, submission.ID, answers); err != nil {
				return fmt.Errorf("failed to create answers: %w", err)
			}
		}

		reloaded, err := s.repo.Submission().GetByIDWithAnswers(ctx, tx, submission.ID)
		if err != nil {
			return fmt.Errorf("failed to reload submission: %w", err)
		}
		stored = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Submission created successfully", "submission_id", stored.ID, "sheet", stored.SheetKey != nil)

	s.observer.publish(ctx, events.SubmissionCreated, events.SubmissionCreatedEvent{
		SubmissionID: stored.ID,
		ExamID:       stored.ExamID,
		StudentID:    stored.StudentID,
		AnswerCount:  len(stored.Answers),
		SheetKey:     stored.SheetKey,
	})

	return models.NewSubmissionResponse(stored), nil
}

func (s *submissionService) GetByID(ctx context.Context, id string) (*models.SubmissionResponse, error) {
	submission, err := s.repo.Submission().GetByIDWithAnswers(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrSubmissionNotFound, "get submission")
	}
	return models.NewSubmissionResponse(submission), nil
}

// ListByExam pages through an exam's submissions, oldest first. Answers are not included.
func (s *submissionService) ListByExam(ctx context.Context, examID string, filters SubmissionListFilters) (*SubmissionListResponse, error) {
	exists, err := s.repo.Exam().ExistsByID(ctx, nil, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to check exam: %w", err)
	}
	if !exists {
		return nil, ErrExamNotFound
	}

	page, size := normalizePage(filters.Page, filters.Size)
	submissions, total, err := s.repo.Submission().ListByExam(ctx, nil, examID, repositories.SubmissionFilters{
		StudentID: filters.StudentID,
		Graded:    filters.Graded,
		Limit:     size,
		Offset:    (page - 1) * size,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	resp := &SubmissionListResponse{
		Submissions: make([]*models.SubmissionResponse, 0, len(submissions)),
		Total:       total,
		Page:        page,
		Size:        size,
	}
	for _, submission := range submissions {
		resp.Submissions = append(resp.Submissions, models.NewSubmissionResponse(submission))
	}
	return resp, nil
}

func (s *submissionService) GetSheetURL(ctx context.Context, id string) (*SheetURLResponse, error) {
	if s.store == nil {
		return nil, ErrBlobStorageDisabled
	}

	submission, err := s.repo.Submission().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrSubmissionNotFound, "get submission")
	}
	if submission.SheetKey == nil {
		return nil, ErrSheetNotFound
	}

	url, err := s.store.PresignURL(ctx, *submission.SheetKey, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to presign answer sheet: %w", err)
	}
	return &SheetURLResponse{URL: url}, nil
}

// Delete removes the submission and its answers. Stored sheets are kept.
func (s *submissionService) Delete(ctx context.Context, id string) (err error) {
	defer func() { s.observer.finish(WorkflowDeleteSubmission, err) }()

	s.logger.Info("Deleting submission", "submission_id", id)

	if err := s.repo.Submission().Delete(ctx, nil, id); err != nil {
		return mapNotFound(err, ErrSubmissionNotFound, "delete submission")
	}
	return nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}
