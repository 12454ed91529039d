package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/SAP-F-2025/smartscore-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	// Report fields by their JSON names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateUserCreate validates user creation
func (bv *BusinessValidator) ValidateUserCreate(req *UserCreateRequest) ValidationErrors {
	return bv.Validate(req)
}

// ValidateStudentCreate validates student profile creation
func (bv *BusinessValidator) ValidateStudentCreate(req *StudentCreateRequest) ValidationErrors {
	return bv.Validate(req)
}

// ValidateExamCreate validates exam creation
func (bv *BusinessValidator) ValidateExamCreate(req *ExamCreateRequest) ValidationErrors {
	return bv.Validate(req)
}

// ValidateQuestionsCreate validates an ordered batch of questions for one exam
func (bv *BusinessValidator) ValidateQuestionsCreate(req *ExamQuestionsRequest) ValidationErrors {
	return bv.Validate(req)
}

// ValidateRubricCreate validates a rubric payload for the given question
func (bv *BusinessValidator) ValidateRubricCreate(questionID string, req *RubricCreateRequest) ValidationErrors {
	var errors ValidationErrors

	if strings.TrimSpace(questionID) == "" {
		errors = append(errors, ValidationError{
			Field:   "question_id",
			Message: "is required",
			Rule:    "required",
		})
	}

	errors = append(errors, bv.Validate(req)...)

	return errors
}

// ValidateSubmissionCreate validates a submission and its answers against the exam's questions
func (bv *BusinessValidator) ValidateSubmissionCreate(req *SubmissionCreateRequest, examQuestionIDs map[string]bool) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	if len(errors) > 0 || examQuestionIDs == nil {
		return errors
	}

	seen := make(map[string]bool, len(req.Answers))
	for i, answer := range req.Answers {
		if !examQuestionIDs[answer.QuestionID] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("answers[%d].question_id", i),
				Message: "question does not belong to the exam",
				Value:   answer.QuestionID,
				Rule:    "exam_question",
			})
			continue
		}
		if seen[answer.QuestionID] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("answers[%d].question_id", i),
				Message: "question answered more than once",
				Value:   answer.QuestionID,
				Rule:    "unique_answer",
			})
		}
		seen[answer.QuestionID] = true
	}

	return errors
}

// ValidateGradingResult validates grading output against the submission's answers
func (bv *BusinessValidator) ValidateGradingResult(req *GradingResultRequest, submissionAnswerIDs map[string]bool) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	if len(errors) > 0 || submissionAnswerIDs == nil {
		return errors
	}

	for i, grade := range req.Answers {
		if !submissionAnswerIDs[grade.AnswerID] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("answers[%d].answer_id", i),
				Message: "answer does not belong to the submission",
				Value:   grade.AnswerID,
				Rule:    "submission_answer",
			})
		}
	}

	return errors
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	bv.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).IsValid()
	})

	bv.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return models.QuestionType(fl.Field().String()).IsValid()
	})

	bv.validate.RegisterValidation("rubric_strictness", func(fl validator.FieldLevel) bool {
		return models.Strictness(fl.Field().String()).IsValid()
	})

	bv.validate.RegisterValidation("not_blank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}
