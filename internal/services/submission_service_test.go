package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/SAP-F-2025/smartscore-service/internal/events"
	"github.com/SAP-F-2025/smartscore-service/internal/models"
	"github.com/SAP-F-2025/smartscore-service/internal/repositories"
)

func (e *testEnv) createStudent(t *testing.T, email, roll string) *models.StudentResponse {
	t.Helper()
	ctx := context.Background()

	user, err := e.services.User().Create(ctx, &CreateUserRequest{Name: "Student " + roll, Email: email, Role: models.RoleStudent})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	student, err := e.services.Student().Create(ctx, &CreateStudentRequest{UserID: user.ID, RollNumber: roll, ClassName: "10-B"})
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	return student
}

func floatPtr(v float64) *float64 { return &v }

func TestSubmissionService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.createExam(t)
	questions := env.addQuestions(t, exam.ID, 1, 2)
	student := env.createStudent(t, "lin@example.com", "R-07")

	sub, err := env.services.Submission().Create(ctx, &CreateSubmissionRequest{
		ExamID:    exam.ID,
		StudentID: student.ID,
		Answers: []CreateAnswerRequest{
			{QuestionID: questions[1].ID, Content: "second first"},
			{QuestionID: questions[0].ID, Content: "then the first"},
		},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if sub.ID == "" || sub.UploadedAt.IsZero() || sub.TotalMarks != nil {
		t.Errorf("Create() = %+v", sub)
	}
	if len(sub.Answers) != 2 || sub.Answers[0].QuestionID != questions[1].ID || sub.Answers[1].Content != "then the first" {
		t.Errorf("answers = %+v, want caller order", sub.Answers)
	}

	published := env.publisher.GetPublishedEvents()
	last := published[len(published)-1]
	payload, ok := last.Data.(events.SubmissionCreatedEvent)
	if last.Type != events.SubmissionCreated || !ok || payload.AnswerCount != 2 || payload.SheetKey != nil {
		t.Errorf("last event = %+v", last)
	}

	got, err := env.services.Submission().GetByID(ctx, sub.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if len(got.Answers) != 2 || got.Answers[0].ID != sub.Answers[0].ID {
		t.Errorf("GetByID() answers = %+v", got.Answers)
	}
}

func TestSubmissionService_Create_Rejections(t *testing.T) {
	env := newTestEnv(t)
	exam := env.createExam(t)
	questions := env.addQuestions(t, exam.ID, 1)
	student := env.createStudent(t, "lin@example.com", "R-07")

	other, err := env.services.Exam().Create(context.Background(), &CreateExamRequest{Title: "Other", CreatedBy: exam.CreatedBy})
	if err != nil {
		t.Fatalf("create exam: %v", err)
	}
	foreign := env.addQuestions(t, other.ID, 1)

	tests := []struct {
		name    string
		req     *CreateSubmissionRequest
		wantErr func(error) bool
	}{
		{
			name:    "missing exam",
			req:     &CreateSubmissionRequest{ExamID: "no-such-exam", StudentID: student.ID},
			wantErr: func(err error) bool { return errors.Is(err, ErrExamNotFound) },
		},
		{
			name:    "missing student",
			req:     &CreateSubmissionRequest{ExamID: exam.ID, StudentID: "no-such-student"},
			wantErr: func(err error) bool { return errors.Is(err, ErrStudentNotFound) },
		},
		{
			name: "question of another exam",
			req: &CreateSubmissionRequest{ExamID: exam.ID, StudentID: student.ID, Answers: []CreateAnswerRequest{
				{QuestionID: foreign[0].ID, Content: "x"},
			}},
			wantErr: IsValidationError,
		},
		{
			name: "question answered twice",
			req: &CreateSubmissionRequest{ExamID: exam.ID, StudentID: student.ID, Answers: []CreateAnswerRequest{
				{QuestionID: questions[0].ID, Content: "a"},
				{QuestionID: questions[0].ID, Content: "b"},
			}},
			wantErr: IsValidationError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.services.Submission().Create(context.Background(), tt.req)
			if !tt.wantErr(err) {
				t.Errorf("Create() error = %v", err)
			}
		})
	}

	if n := env.count(t, &models.Submission{}); n != 0 {
		t.Errorf("submissions stored = %d, want 0", n)
	}
}

func TestSubmissionService_CreateWithSheet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.createExam(t)
	student := env.createStudent(t, "lin@example.com", "R-07")
	req := &CreateSubmissionRequest{ExamID: exam.ID, StudentID: student.ID}

	if _, err := env.services.Submission().CreateWithSheet(ctx, req, &AnswerSheet{Filename: "scan.pdf"}); !IsValidationError(err) {
		t.Errorf("CreateWithSheet() with empty file error = %v", err)
	}

	sub, err := env.services.Submission().CreateWithSheet(ctx, req, &AnswerSheet{
		Filename:    "Scan.PDF",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.7"),
	})
	if err != nil {
		t.Fatalf("CreateWithSheet() error = %v", err)
	}

	wantKey := "exams/" + exam.ID + "/submissions/" + sub.ID + "/sheet.pdf"
	if sub.SheetKey == nil || *sub.SheetKey != wantKey {
		t.Fatalf("SheetKey = %v, want %s", sub.SheetKey, wantKey)
	}
	if string(env.store.objects[wantKey]) != "%PDF-1.7" {
		t.Error("sheet was not stored")
	}

	url, err := env.services.Submission().GetSheetURL(ctx, sub.ID)
	if err != nil {
		t.Fatalf("GetSheetURL() error = %v", err)
	}
	if !strings.Contains(url.URL, wantKey) {
		t.Errorf("GetSheetURL() = %s", url.URL)
	}

	plain, err := env.services.Submission().Create(ctx, req)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := env.services.Submission().GetSheetURL(ctx, plain.ID); !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("GetSheetURL() without sheet error = %v", err)
	}
}

func TestSubmissionService_CreateWithSheet_StorageDisabled(t *testing.T) {
	env := newTestEnv(t)
	svc := NewSubmissionService(env.repo, env.db, nil, discardLogger(), nil, nil, nil)

	_, err := svc.CreateWithSheet(context.Background(), &CreateSubmissionRequest{}, &AnswerSheet{Data: []byte("x")})
	if !errors.Is(err, ErrBlobStorageDisabled) {
		t.Errorf("CreateWithSheet() error = %v, want ErrBlobStorageDisabled", err)
	}
}

func TestSubmissionService_ListAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.createExam(t)
	first := env.createStudent(t, "lin@example.com", "R-07")
	second := env.createStudent(t, "kai@example.com", "R-08")

	var ids []string
	for _, st := range []*models.StudentResponse{first, second} {
		sub, err := env.services.Submission().Create(ctx, &CreateSubmissionRequest{ExamID: exam.ID, StudentID: st.ID})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ids = append(ids, sub.ID)
	}

	list, err := env.services.Submission().ListByExam(ctx, exam.ID, SubmissionListFilters{})
	if err != nil {
		t.Fatalf("ListByExam() error = %v", err)
	}
	if list.Total != 2 || len(list.Submissions) != 2 || list.Page != 1 || list.Size != defaultPageSize {
		t.Errorf("ListByExam() = %+v", list)
	}

	filtered, err := env.services.Submission().ListByExam(ctx, exam.ID, SubmissionListFilters{StudentID: &second.ID})
	if err != nil {
		t.Fatalf("ListByExam() error = %v", err)
	}
	if filtered.Total != 1 || filtered.Submissions[0].StudentID != second.ID {
		t.Errorf("filtered ListByExam() = %+v", filtered)
	}

	if _, err := env.services.Submission().ListByExam(ctx, "no-such-exam", SubmissionListFilters{}); !errors.Is(err, ErrExamNotFound) {
		t.Errorf("ListByExam() on missing exam error = %v", err)
	}

	if err := env.services.Submission().Delete(ctx, ids[0]); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := env.services.Submission().GetByID(ctx, ids[0]); !errors.Is(err, ErrSubmissionNotFound) {
		t.Errorf("GetByID() after delete error = %v", err)
	}
	if err := env.services.Submission().Delete(ctx, ids[0]); !errors.Is(err, ErrSubmissionNotFound) {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, defaultPageSize},
		{3, 10, 3, 10},
		{-1, 500, 1, maxPageSize},
	}
	for _, tt := range tests {
		page, size := normalizePage(tt.page, tt.size)
		if page != tt.wantPage || size != tt.wantSize {
			t.Errorf("normalizePage(%d, %d) = %d, %d", tt.page, tt.size, page, size)
		}
	}
}

// ===== USERS AND STUDENTS =====

func TestStudentService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.createStudent(t, "lin@example.com", "R-07")

	got, err := env.services.Student().GetByID(ctx, student.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.RollNumber != "R-07" || got.ClassName != "10-B" {
		t.Errorf("GetByID() = %+v", got)
	}

	_, err = env.services.Student().Create(ctx, &CreateStudentRequest{UserID: student.UserID, RollNumber: "R-99", ClassName: "11-A"})
	if !errors.Is(err, ErrStudentExists) || !repositories.IsUniquenessViolation(err) {
		t.Errorf("second profile error = %v, want ErrStudentExists", err)
	}
	if n := env.count(t, &models.Student{}); n != 1 {
		t.Errorf("students stored = %d, want 1", n)
	}

	_, err = env.services.Student().Create(ctx, &CreateStudentRequest{UserID: "7f0c4f5e-3a8e-4a5e-9a43-3b0b8d2c1e10", RollNumber: "R-1", ClassName: "9"})
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user error = %v, want ErrUserNotFound", err)
	}

	if _, err := env.services.Student().GetByID(ctx, "missing"); !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("GetByID() error = %v, want ErrStudentNotFound", err)
	}
}

func TestStudentService_Create_ReturnsStoredRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.services.User().Create(ctx, &CreateUserRequest{Name: "Lin", Email: "lin@example.com", Role: models.RoleStudent})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	created, err := env.services.Student().Create(ctx, &CreateStudentRequest{UserID: user.ID, RollNumber: "  R-07 ", ClassName: " 10-B"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	var stored models.Student
	if err := env.db.Where("id = ?", created.ID).First(&stored).Error; err != nil {
		t.Fatalf("load stored student: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"user_id", created.UserID, stored.UserID},
		{"roll_number", created.RollNumber, stored.RollNumber},
		{"class_name", created.ClassName, stored.ClassName},
		{"created_at", created.CreatedAt.Unix(), stored.CreatedAt.Unix()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, stored %v", tt.name, tt.got, tt.want)
			}
		})
	}
	if stored.RollNumber != "R-07" || stored.ClassName != "10-B" {
		t.Errorf("stored = %+v, want trimmed values", stored)
	}
}

func TestUserService_CreateAndGet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.services.User().Create(ctx, &CreateUserRequest{Name: " Grace ", Email: "Grace@Example.com", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.Name != "Grace" || user.Email != "grace@example.com" {
		t.Errorf("Create() = %+v", user)
	}

	got, err := env.services.User().GetByID(ctx, user.ID)
	if err != nil || got.Email != user.Email {
		t.Errorf("GetByID() = %+v, %v", got, err)
	}

	_, err = env.services.User().Create(ctx, &CreateUserRequest{Name: "Other", Email: "grace@example.com", Role: models.RoleStudent})
	if !repositories.IsUniquenessViolation(err) {
		t.Errorf("duplicate email error = %v", err)
	}

	_, err = env.services.User().Create(ctx, &CreateUserRequest{Name: "Bad", Email: "bad@example.com", Role: "principal"})
	if !IsValidationError(err) {
		t.Errorf("unknown role error = %v", err)
	}

	if _, err := env.services.User().GetByID(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID() error = %v, want ErrUserNotFound", err)
	}
}

func TestUserService_ImportFromDirectory(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.createTeacher(t)
	env.directory.users = []*models.User{
		{Name: "Ada Again", Email: "ada@example.com", Role: models.RoleTeacher},
		{Name: "Lin", Email: "lin@example.com", Role: models.RoleStudent},
		{Name: "Lin Duplicate", Email: "lin@example.com", Role: models.RoleStudent},
		{Name: "Root", Email: "root@example.com", Role: models.RoleAdmin},
	}

	result, err := env.services.User().ImportFromDirectory(context.Background())
	if err != nil {
		t.Fatalf("ImportFromDirectory() error = %v", err)
	}
	if len(result.Created) != 2 || result.Skipped != 2 {
		t.Fatalf("ImportFromDirectory() = %d created, %d skipped", len(result.Created), result.Skipped)
	}
	if result.Created[1].Role != models.RoleAdmin || result.Created[1].ID == "" {
		t.Errorf("imported user = %+v", result.Created[1])
	}
	if n := env.count(t, &models.User{}); n != 3 {
		t.Errorf("users stored = %d, want 3", n)
	}
	kept, err := env.services.User().GetByID(context.Background(), teacher.ID)
	if err != nil || kept.Name != "Ada Teacher" {
		t.Errorf("known user = %+v, %v, want it untouched", kept, err)
	}

	env.directory.err = errors.New("directory unavailable")
	if _, err := env.services.User().ImportFromDirectory(context.Background()); err == nil {
		t.Error("ImportFromDirectory() should surface directory errors")
	}
}

func TestUserService_ImportFromDirectory_Disabled(t *testing.T) {
	env := newTestEnv(t)
	svc := NewUserService(env.repo, env.db, nil, discardLogger(), nil, nil)

	if _, err := svc.ImportFromDirectory(context.Background()); !errors.Is(err, ErrDirectoryDisabled) {
		t.Errorf("ImportFromDirectory() error = %v, want ErrDirectoryDisabled", err)
	}
}
