package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/smartscore-service/internal/metrics"
	"github.com/SAP-F-2025/smartscore-service/internal/models"
	"github.com/SAP-F-2025/smartscore-service/internal/repositories"
)

// Sheet names used by the exam workbook
const (
	QuestionsSheet   = "Questions"
	RubricsSheet     = "Rubrics"
	SubmissionsSheet = "Submissions"
)

var questionColumns = []string{"question_number", "type", "marks", "text"}

type importExportService struct {
	repo      repositories.Repository
	questions QuestionService
	logger    *slog.Logger
	observer  workflowObserver
}

// NewImportExportService builds the spreadsheet service. Imported questions go
// through questions so they get the same validation and atomic batch.
func NewImportExportService(repo repositories.Repository, questions QuestionService, logger *slog.Logger, m *metrics.Metrics) ImportExportService {
	return &importExportService{
		repo:      repo,
		questions: questions,
		logger:    logger,
		observer:  newWorkflowObserver(nil, m, logger),
	}
}

// ===== IMPORT =====

// ImportQuestions reads the Questions sheet (or the first sheet) of an XLSX
// workbook. The header row names the columns; blank rows are skipped.
func (s *importExportService) ImportQuestions(ctx context.Context, examID string, r io.Reader) (resp []models.QuestionResponse, err error) {
	defer func() { s.observer.finish(WorkflowImportQuestions, err) }()

	s.logger.Info("Importing questions", "exam_id", examID)

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, ValidationErrors{{Field: "file", Message: "is not a valid XLSX workbook", Rule: "xlsx"}}
	}
	defer f.Close()

	sheet := QuestionsSheet
	if sheets := f.GetSheetList(); !slices.Contains(sheets, QuestionsSheet) {
		if len(sheets) == 0 {
			return nil, ValidationErrors{{Field: "file", Message: "has no sheets", Rule: "xlsx"}}
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	requests, errors := parseQuestionRows(rows)
	if len(errors) > 0 {
		return nil, errors
	}

	return s.questions.AddQuestions(ctx, examID, requests)
}

func parseQuestionRows(rows [][]string) ([]CreateQuestionRequest, ValidationErrors) {
	if len(rows) == 0 {
		return nil, ValidationErrors{{Field: "file", Message: "has no header row", Rule: "xlsx"}}
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var errors ValidationErrors
	for _, column := range questionColumns {
		if _, ok := index[column]; !ok {
			errors = append(errors, ValidationError{
				Field:   column,
				Message: "column is missing",
				Rule:    "xlsx_column",
			})
		}
	}
	if len(errors) > 0 {
		return nil, errors
	}

	cell := func(row []string, column string) string {
		if i := index[column]; i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	requests := make([]CreateQuestionRequest, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		line := n + 2

		req := CreateQuestionRequest{
			Type: models.QuestionType(strings.ToLower(cell(row, "type"))),
			Text: cell(row, "text"),
		}

		if number, err := strconv.Atoi(cell(row, "question_number")); err != nil {
			errors = append(errors, rowError(line, "question_number", cell(row, "question_number")))
		} else {
			req.QuestionNumber = &number
		}

		if marks, err := strconv.Atoi(cell(row, "marks")); err != nil {
			errors = append(errors, rowError(line, "marks", cell(row, "marks")))
		} else {
			req.Marks = marks
		}

		requests = append(requests, req)
	}

	if len(requests) == 0 && len(errors) == 0 {
		errors = append(errors, ValidationError{Field: "file", Message: "has no question rows", Rule: "xlsx"})
	}
	return requests, errors
}

func rowError(line int, column, value string) ValidationError {
	return ValidationError{
		Field:   fmt.Sprintf("row %d %s", line, column),
		Message: "must be a whole number",
		Value:   value,
		Rule:    "number",
	}
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ===== EXPORT =====

// ExportExam renders the exam's questions, rubrics and submissions as a workbook
func (s *importExportService) ExportExam(ctx context.Context, examID string) (*ExportFile, error) {
	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		return nil, mapNotFound(err, ErrExamNotFound, "get exam")
	}

	questions, err := s.repo.Question().ListByExam(ctx, nil, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	rubrics, err := s.repo.Rubric().ListByExam(ctx, nil, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rubrics: %w", err)
	}
	submissions, _, err := s.repo.Submission().ListByExam(ctx, nil, examID, repositories.SubmissionFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	studentIDs := make([]string, 0, len(submissions))
	for _, sub := range submissions {
		if !slices.Contains(studentIDs, sub.StudentID) {
			studentIDs = append(studentIDs, sub.StudentID)
		}
	}
	students, err := s.repo.Student().GetByIDs(ctx, nil, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load students: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeQuestionsSheet(f, questions); err != nil {
		return nil, err
	}
	if err := writeRubricsSheet(f, questions, rubrics); err != nil {
		return nil, err
	}
	if err := writeSubmissionsSheet(f, submissions, students); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Exam exported", "exam_id", exam.ID, "questions", len(questions), "submissions", len(submissions))

	return &ExportFile{
		Filename: fmt.Sprintf("exam-%s.xlsx", exam.ID),
		Data:     buf.Bytes(),
	}, nil
}

func writeQuestionsSheet(f *excelize.File, questions []*models.Question) error {
	// a new workbook starts with Sheet1
	if err := f.SetSheetName("Sheet1", QuestionsSheet); err != nil {
		return fmt.Errorf("failed to create %s sheet: %w", QuestionsSheet, err)
	}

	rows := make([][]interface{}, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, []interface{}{q.QuestionNumber, string(q.Type), q.Marks, q.Text, q.ID})
	}
	return writeSheet(f, QuestionsSheet, append(questionColumns[:len(questionColumns):len(questionColumns)], "id"), rows)
}

func writeRubricsSheet(f *excelize.File, questions []*models.Question, rubrics []*models.Rubric) error {
	if _, err := f.NewSheet(RubricsSheet); err != nil {
		return fmt.Errorf("failed to create %s sheet: %w", RubricsSheet, err)
	}

	numbers := make(map[string]int, len(questions))
	for _, q := range questions {
		numbers[q.ID] = q.QuestionNumber
	}

	rows := make([][]interface{}, 0, len(rubrics))
	for _, r := range rubrics {
		keyPoints, err := json.Marshal(r.KeyPoints)
		if err != nil {
			return fmt.Errorf("failed to encode key points of rubric %s: %w", r.ID, err)
		}
		scheme, err := json.Marshal(r.MarkingScheme)
		if err != nil {
			return fmt.Errorf("failed to encode marking scheme of rubric %s: %w", r.ID, err)
		}
		rows = append(rows, []interface{}{numbers[r.QuestionID], r.QuestionID, string(r.Strictness), string(keyPoints), string(scheme)})
	}
	return writeSheet(f, RubricsSheet, []string{"question_number", "question_id", "strictness", "key_points", "marking_scheme"}, rows)
}

func writeSubmissionsSheet(f *excelize.File, submissions []*models.Submission, students []*models.Student) error {
	if _, err := f.NewSheet(SubmissionsSheet); err != nil {
		return fmt.Errorf("failed to create %s sheet: %w", SubmissionsSheet, err)
	}

	byID := make(map[string]*models.Student, len(students))
	for _, st := range students {
		byID[st.ID] = st
	}

	rows := make([][]interface{}, 0, len(submissions))
	for _, sub := range submissions {
		var rollNumber, className string
		if st, ok := byID[sub.StudentID]; ok {
			rollNumber, className = st.RollNumber, st.ClassName
		}
		var total interface{} = ""
		if sub.TotalMarks != nil {
			total = *sub.TotalMarks
		}
		rows = append(rows, []interface{}{sub.ID, sub.StudentID, rollNumber, className, sub.UploadedAt.UTC().Format(time.RFC3339), total})
	}
	return writeSheet(f, SubmissionsSheet, []string{"submission_id", "student_id", "roll_number", "class_name", "uploaded_at", "total_marks"}, rows)
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]interface{}) error {
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
