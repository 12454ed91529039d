package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/smartscore-service/internal/events"
	"github.com/SAP-F-2025/smartscore-service/internal/metrics"
	"github.com/SAP-F-2025/smartscore-service/internal/models"
	"github.com/SAP-F-2025/smartscore-service/internal/repositories"
	"github.com/SAP-F-2025/smartscore-service/internal/validator"
	"gorm.io/gorm"
)

type questionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	observer  workflowObserver
}

func NewQuestionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, m *metrics.Metrics) QuestionService {
	return &questionService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		observer:  newWorkflowObserver(publisher, m, logger),
	}
}

// ===== QUESTIONS =====

// AddQuestions validates the whole batch, then stores it in one transaction.
// Nothing is created when the exam is missing or any item fails. An empty
// batch only checks the exam and yields an empty list.
func (s *questionService) AddQuestions(ctx context.Context, examID string, questions []CreateQuestionRequest) (resp []models.QuestionResponse, err error) {
	defer func() { s.observer.finish(WorkflowAddQuestions, err) }()

	s.logger.Info("Adding questions", "exam_id", examID, "count", len(questions))

	req := &validator.ExamQuestionsRequest{ExamID: examID, Questions: questions}
	if errors := s.validator.GetBusinessValidator().ValidateQuestionsCreate(req); len(errors) > 0 {
		return nil, errors
	}

	batch := make([]*models.Question, len(questions))
	for i, q := range questions {
		batch[i] = &models.Question{
			QuestionNumber: *q.QuestionNumber,
			Type:           q.Type,
			Marks:          q.Marks,
			Text:           q.Text,
		}
	}

	var created []*models.Question
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.Exam().GetByID(ctx, tx, examID); err != nil {
			return mapNotFound(err, ErrExamNotFound, "get exam")
		}

		stored, err := s.repo.Question().CreateBatch(ctx, tx, examID, batch)
		if err != nil {
			return fmt.Errorf("failed to create questions: %w", err)
		}
		created = stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(created))
	for i, q := range created {
		ids[i] = q.ID
	}
	s.logger.Info("Questions added successfully", "exam_id", examID, "question_ids", ids)

	if len(ids) > 0 {
		s.observer.publish(ctx, events.QuestionsAdded, events.QuestionsAddedEvent{
			ExamID:      examID,
			QuestionIDs: ids,
		})
	}

	return models.NewQuestionResponses(created), nil
}

func (s *questionService) GetByID(ctx context.Context, id string) (*models.QuestionResponse, error) {
	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrQuestionNotFound, "get question")
	}

	resp := models.NewQuestionResponse(question)
	return &resp, nil
}

// ===== RUBRICS =====

// AddRubric attaches the single rubric a question may have. A second rubric
// for the same question fails with a uniqueness violation.
func (s *questionService) AddRubric(ctx context.Context, questionID string, req *CreateRubricRequest) (resp *models.RubricResponse, err error) {
	defer func() { s.observer.finish(WorkflowAddRubric, err) }()

	s.logger.Info("Adding rubric", "question_id", questionID, "strictness", req.Strictness)

	if errors := s.validator.GetBusinessValidator().ValidateRubricCreate(questionID, req); len(errors) > 0 {
		return nil, errors
	}

	rubric := &models.Rubric{
		QuestionID:    questionID,
		KeyPoints:     *req.KeyPoints,
		MarkingScheme: *req.MarkingScheme,
		Strictness:    req.Strictness,
	}

	var stored *models.Rubric
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.Question().GetByID(ctx, tx, questionID); err != nil {
			return mapNotFound(err, ErrQuestionNotFound, "get question")
		}

		if err := s.repo.Rubric().Create(ctx, tx, rubric); err != nil {
			return fmt.Errorf("failed to create rubric: %w", err)
		}

		reloaded, err := s.repo.Rubric().GetByQuestionID(ctx, tx, questionID)
		if err != nil {
			return fmt.Errorf("failed to reload rubric: %w", err)
		}
		stored = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Rubric added successfully", "rubric_id", stored.ID, "question_id", questionID)

	s.observer.publish(ctx, events.RubricCreated, events.RubricCreatedEvent{
		RubricID:   stored.ID,
		QuestionID: questionID,
		Strictness: string(stored.Strictness),
	})

	return models.NewRubricResponse(stored), nil
}

func (s *questionService) GetRubric(ctx context.Context, questionID string) (*models.RubricResponse, error) {
	rubric, err := s.repo.Rubric().GetByQuestionID(ctx, nil, questionID)
	if err != nil {
		return nil, mapNotFound(err, ErrRubricNotFound, "get rubric")
	}
	return models.NewRubricResponse(rubric), nil
}
