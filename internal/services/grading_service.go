package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/smartscore-service/internal/events"
	"github.com/SAP-F-2025/smartscore-service/internal/metrics"
	"github.com/SAP-F-2025/smartscore-service/internal/models"
	"github.com/SAP-F-2025/smartscore-service/internal/repositories"
	"github.com/SAP-F-2025/smartscore-service/internal/validator"
)

type gradingService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	observer  workflowObserver
}

func NewGradingService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, m *metrics.Metrics) GradingService {
	return &gradingService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		observer:  newWorkflowObserver(nil, m, logger),
	}
}

// RecordResult writes the grading engine output for a submission. Every graded
// answer must belong to the submission; all writes share one transaction.
// A missing total_marks leaves the stored total untouched.
func (s *gradingService) RecordResult(ctx context.Context, req *GradingResultRequest) (resp *models.SubmissionResponse, err error) {
	defer func() { s.observer.finish(WorkflowRecordGrading, err) }()

	s.logger.Info("Recording grading result", "submission_id", req.SubmissionID, "answers", len(req.Answers))

	bv := s.validator.GetBusinessValidator()
	if errors := bv.ValidateGradingResult(req, nil); len(errors) > 0 {
		return nil, errors
	}

	var graded *models.Submission
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if _, err := txRepo.Submission().GetByID(ctx, nil, req.SubmissionID); err != nil {
			return mapNotFound(err, ErrSubmissionNotFound, "get submission")
		}

		answers, err := txRepo.Answer().ListBySubmission(ctx, nil, req.SubmissionID)
		if err != nil {
			return fmt.Errorf("failed to list submission answers: %w", err)
		}
		answerIDs := make(map[string]bool, len(answers))
		for _, a := range answers {
			answerIDs[a.ID] = true
		}
		if errors := bv.ValidateGradingResult(req, answerIDs); len(errors) > 0 {
			return errors
		}

		for _, grade := range req.Answers {
			evaluation, err := grade.EvaluationJSON()
			if err != nil {
				return fmt.Errorf("failed to encode evaluation for answer %s: %w", grade.AnswerID, err)
			}
			if err := txRepo.Answer().UpdateGrading(ctx, nil, repositories.AnswerGrade{
				AnswerID:       grade.AnswerID,
				MarksAwarded:   grade.MarksAwarded,
				EvaluationData: datatypes.JSON(evaluation),
			}); err != nil {
				return mapNotFound(err, ErrAnswerNotFound, "grade answer")
			}
		}

		if req.TotalMarks != nil {
			if err := txRepo.Submission().UpdateTotalMarks(ctx, nil, req.SubmissionID, req.TotalMarks); err != nil {
				return mapNotFound(err, ErrSubmissionNotFound, "update total marks")
			}
		}

		reloaded, err := txRepo.Submission().GetByIDWithAnswers(ctx, nil, req.SubmissionID)
		if err != nil {
			return fmt.Errorf("failed to reload submission: %w", err)
		}
		graded = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Grading result recorded", "submission_id", graded.ID, "total_marks", graded.TotalMarks)
	return models.NewSubmissionResponse(graded), nil
}

// HandleResultMessage is the grading.results subscriber. Malformed payloads and
// rejected results are permanent and never redelivered.
func (s *gradingService) HandleResultMessage(ctx context.Context, payload []byte) error {
	var req GradingResultRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return events.Permanent(fmt.Errorf("invalid grading result payload: %w", err))
	}

	if _, err := s.RecordResult(ctx, &req); err != nil {
		if IsRejection(err) {
			return events.Permanent(err)
		}
		return err
	}
	return nil
}
