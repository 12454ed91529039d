package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/smartscore-service/internal/config"
	"github.com/SAP-F-2025/smartscore-service/internal/metrics"
	"github.com/SAP-F-2025/smartscore-service/internal/models"
	"github.com/SAP-F-2025/smartscore-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/smartscore-service/internal/services"
	"github.com/SAP-F-2025/smartscore-service/internal/storage"
	"github.com/SAP-F-2025/smartscore-service/internal/utils"
	"github.com/SAP-F-2025/smartscore-service/internal/validator"
	"github.com/SAP-F-2025/smartscore-service/pkg"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type sheetStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *sheetStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if len(body) == 0 {
		return storage.ErrEmptyBlob
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = body
	return nil
}

func (s *sheetStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.objects[key]
	if !ok {
		return nil, "", storage.ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(body)), "application/pdf", nil
}

func (s *sheetStore) PresignURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://blobs.example.com/" + key, nil
}

type testServer struct {
	router *gin.Engine
	store  *sheetStore
}

// newTestServer wires the full stack on SQLite. Without a store, sheet routes answer 503.
func newTestServer(t *testing.T, withStore bool) *testServer {
	t.Helper()

	db, err := pkg.OpenDatabase(config.DriverSQLite, filepath.Join(t.TempDir(), "api.db"), logger.Silent)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := pkg.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
	})

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	cfg := services.ServiceManagerConfig{Metrics: m}
	ts := &testServer{}
	if withStore {
		ts.store = &sheetStore{objects: make(map[string][]byte)}
		cfg.BlobStore = ts.store
	}

	sm := services.NewServiceManager(db, repo, slogger, validator.New(), cfg)
	if err := sm.Initialize(context.Background()); err != nil {
		t.Fatalf("failed to initialize services: %v", err)
	}

	log := utils.NewSlogLogger(slogger)
	router := gin.New()
	SetupMiddleware(router, log, m)
	NewHandlerManager(sm, log, m).SetupRoutes(router)
	ts.router = router
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) upload(t *testing.T, path string, fields map[string]string, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(data)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", w.Code, want, w.Body.String())
	}
}

// seed creates a teacher, an exam with two questions and a student
func (ts *testServer) seed(t *testing.T) (exam models.ExamResponse, questions []models.QuestionResponse, student models.StudentResponse) {
	t.Helper()

	var teacher models.UserResponse
	w := ts.do(t, http.MethodPost, "/api/users", map[string]string{"name": "Ada", "email": "ada@example.com", "role": "teacher"})
	expectStatus(t, w, http.StatusCreated)
	decode(t, w, &teacher)

	w = ts.do(t, http.MethodPost, "/api/exams", map[string]string{"title": "Physics", "created_by": teacher.ID})
	expectStatus(t, w, http.StatusCreated)
	decode(t, w, &exam)

	w = ts.do(t, http.MethodPost, "/api/exams/"+exam.ID+"/questions", []map[string]interface{}{
		{"question_number": 2, "type": "short", "marks": 4, "text": "Define force"},
		{"question_number": 1, "type": "long", "marks": 6, "text": "Derive v = u + at"},
	})
	expectStatus(t, w, http.StatusCreated)
	decode(t, w, &questions)

	var user models.UserResponse
	w = ts.do(t, http.MethodPost, "/api/users", map[string]string{"name": "Lin", "email": "lin@example.com", "role": "student"})
	expectStatus(t, w, http.StatusCreated)
	decode(t, w, &user)

	w = ts.do(t, http.MethodPost, "/api/students", map[string]string{"user_id": user.ID, "roll_number": "R-07", "class_name": "10B"})
	expectStatus(t, w, http.StatusCreated)
	decode(t, w, &student)
	return exam, questions, student
}

func TestExamRoutes(t *testing.T) {
	ts := newTestServer(t, false)
	exam, questions, _ := ts.seed(t)

	if len(questions) != 2 || questions[0].QuestionNumber != 2 || questions[1].QuestionNumber != 1 {
		t.Fatalf("questions = %+v, want caller order [2 1]", questions)
	}

	w := ts.do(t, http.MethodGet, "/api/exams/"+exam.ID, nil)
	expectStatus(t, w, http.StatusOK)
	var got models.ExamResponse
	decode(t, w, &got)
	if got.Title != "Physics" || got.Description != nil || len(got.Questions) != 0 {
		t.Errorf("GET exam = %+v", got)
	}

	w = ts.do(t, http.MethodGet, "/api/exams/"+exam.ID+"?include=questions", nil)
	expectStatus(t, w, http.StatusOK)
	decode(t, w, &got)
	if len(got.Questions) != 2 {
		t.Errorf("GET exam with questions = %d questions, want 2", len(got.Questions))
	}

	w = ts.do(t, http.MethodGet, "/api/questions/"+questions[0].ID, nil)
	expectStatus(t, w, http.StatusOK)

	w = ts.do(t, http.MethodDelete, "/api/exams/"+exam.ID, nil)
	expectStatus(t, w, http.StatusNoContent)

	w = ts.do(t, http.MethodGet, "/api/exams/"+exam.ID, nil)
	expectStatus(t, w, http.StatusNotFound)
	w = ts.do(t, http.MethodGet, "/api/questions/"+questions[0].ID, nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestAddQuestions_EmptyList(t *testing.T) {
	ts := newTestServer(t, false)
	exam, _, _ := ts.seed(t)

	w := ts.do(t, http.MethodPost, "/api/exams/"+exam.ID+"/questions", []map[string]interface{}{})
	expectStatus(t, w, http.StatusCreated)
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("body = %s, want []", body)
	}

	w = ts.do(t, http.MethodGet, "/api/exams/"+exam.ID+"?include=questions", nil)
	expectStatus(t, w, http.StatusOK)
	var got models.ExamResponse
	decode(t, w, &got)
	if len(got.Questions) != 2 {
		t.Errorf("questions = %d, want the 2 seeded", len(got.Questions))
	}
}

func TestListExams(t *testing.T) {
	ts := newTestServer(t, false)
	exam, _, student := ts.seed(t)

	w := ts.do(t, http.MethodPost, "/api/exams", map[string]string{"title": "Chemistry", "created_by": student.UserID})
	expectStatus(t, w, http.StatusCreated)
	var other models.ExamResponse
	decode(t, w, &other)

	future := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)

	tests := []struct {
		name      string
		query     string
		wantTotal int64
		wantIDs   []string
	}{
		{"all", "", 2, nil},
		{"by creator", "?created_by=" + exam.CreatedBy, 1, []string{exam.ID}},
		{"other creator", "?created_by=" + student.UserID, 1, []string{other.ID}},
		{"unknown creator", "?created_by=6f1c1d5e-1d2b-4c59-9d7a-0a0e5b0f3c11", 0, []string{}},
		{"created after now", "?date_from=" + future, 0, []string{}},
		{"created before future", "?date_to=" + future + "&size=1", 2, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, "/api/exams"+tt.query, nil)
			expectStatus(t, w, http.StatusOK)

			var list services.ExamListResponse
			decode(t, w, &list)
			if list.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", list.Total, tt.wantTotal)
			}
			if list.Page != 1 || list.Size < 1 || len(list.Exams) > list.Size {
				t.Errorf("page = %d, size = %d, exams = %d", list.Page, list.Size, len(list.Exams))
			}
			if tt.wantIDs == nil {
				return
			}
			if len(list.Exams) != len(tt.wantIDs) {
				t.Fatalf("exams = %d, want %d", len(list.Exams), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if list.Exams[i].ID != id {
					t.Errorf("exams[%d] = %s, want %s", i, list.Exams[i].ID, id)
				}
			}
		})
	}
}

func TestErrorStatuses(t *testing.T) {
	ts := newTestServer(t, false)
	exam, questions, student := ts.seed(t)
	rubric := `{"key_points":{"units":"m/s"},"marking_scheme":{"full":4},"strictness":"neutral"}`

	if w := ts.do(t, http.MethodPost, "/api/questions/"+questions[0].ID+"/rubric", rubric); w.Code != http.StatusCreated {
		t.Fatalf("first rubric status = %d; body = %s", w.Code, w.Body.String())
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"malformed json", http.MethodPost, "/api/exams", `{"title":`, http.StatusBadRequest},
		{"missing title", http.MethodPost, "/api/exams", map[string]string{"created_by": student.UserID}, http.StatusBadRequest},
		{"unknown creator", http.MethodPost, "/api/exams", map[string]string{"title": "T", "created_by": "6f1c1d5e-1d2b-4c59-9d7a-0a0e5b0f3c11"}, http.StatusNotFound},
		{"questions on missing exam", http.MethodPost, "/api/exams/missing/questions", []map[string]interface{}{
			{"question_number": 1, "type": "short", "marks": 1, "text": "Q"},
		}, http.StatusNotFound},
		{"empty question list on missing exam", http.MethodPost, "/api/exams/missing/questions", []map[string]interface{}{}, http.StatusNotFound},
		{"bad date filter", http.MethodGet, "/api/exams?date_from=yesterday", nil, http.StatusBadRequest},
		{"bad question type", http.MethodPost, "/api/exams/" + exam.ID + "/questions", []map[string]interface{}{
			{"question_number": 1, "type": "essay", "marks": 1, "text": "Q"},
		}, http.StatusBadRequest},
		{"second rubric", http.MethodPost, "/api/questions/" + questions[0].ID + "/rubric", rubric, http.StatusConflict},
		{"rubric duplicate key", http.MethodPost, "/api/questions/" + questions[1].ID + "/rubric",
			`{"key_points":{"a":1,"a":2},"marking_scheme":{},"strictness":"tough"}`, http.StatusBadRequest},
		{"rubric on missing question", http.MethodPost, "/api/questions/missing/rubric", rubric, http.StatusNotFound},
		{"missing rubric", http.MethodGet, "/api/questions/" + questions[1].ID + "/rubric", nil, http.StatusNotFound},
		{"duplicate email", http.MethodPost, "/api/users", map[string]string{"name": "A", "email": "ADA@example.com", "role": "admin"}, http.StatusConflict},
		{"second student profile", http.MethodPost, "/api/students", map[string]string{"user_id": student.UserID, "roll_number": "R-08", "class_name": "10B"}, http.StatusConflict},
		{"answer from other exam", http.MethodPost, "/api/submissions", map[string]interface{}{
			"exam_id": exam.ID, "student_id": student.ID,
			"answers": []map[string]string{{"question_id": "not-in-exam", "content": "x"}},
		}, http.StatusBadRequest},
		{"directory disabled", http.MethodPost, "/api/users/import", nil, http.StatusServiceUnavailable},
		{"sheet storage disabled", http.MethodGet, "/api/submissions/missing/sheet", nil, http.StatusServiceUnavailable},
		{"unknown submission", http.MethodGet, "/api/submissions/missing", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, tt.method, tt.path, tt.body)
			expectStatus(t, w, tt.want)

			var body ErrorResponse
			decode(t, w, &body)
			if body.Message == "" {
				t.Errorf("error body has no message: %s", w.Body.String())
			}
		})
	}
}

func TestValidationDetails(t *testing.T) {
	ts := newTestServer(t, false)

	w := ts.do(t, http.MethodPost, "/api/users", map[string]string{"name": "Ada", "email": "not-an-email", "role": "teacher"})
	expectStatus(t, w, http.StatusBadRequest)

	var body struct {
		Message string                      `json:"message"`
		Details []validator.ValidationError `json:"details"`
	}
	decode(t, w, &body)
	if body.Message != "Validation failed" || len(body.Details) != 1 || body.Details[0].Field != "email" || body.Details[0].Rule != "email" {
		t.Errorf("body = %+v", body)
	}
}

func TestSubmissionRoutes(t *testing.T) {
	ts := newTestServer(t, false)
	exam, questions, student := ts.seed(t)

	w := ts.do(t, http.MethodPost, "/api/submissions", map[string]interface{}{
		"exam_id":    exam.ID,
		"student_id": student.ID,
		"answers": []map[string]string{
			{"question_id": questions[1].ID, "content": "v = u + at"},
			{"question_id": questions[0].ID, "content": "F = ma"},
		},
	})
	expectStatus(t, w, http.StatusCreated)
	var sub models.SubmissionResponse
	decode(t, w, &sub)
	if len(sub.Answers) != 2 || sub.TotalMarks != nil {
		t.Fatalf("submission = %+v", sub)
	}

	w = ts.do(t, http.MethodPost, "/api/submissions/"+sub.ID+"/grading", map[string]interface{}{
		"total_marks": 8.5,
		"answers": []map[string]interface{}{
			{"answer_id": sub.Answers[0].ID, "marks_awarded": 5, "evaluation_data": map[string]string{"feedback": "good"}},
		},
	})
	expectStatus(t, w, http.StatusOK)
	var graded models.SubmissionResponse
	decode(t, w, &graded)
	if graded.TotalMarks == nil || *graded.TotalMarks != 8.5 {
		t.Errorf("total_marks = %v, want 8.5", graded.TotalMarks)
	}

	w = ts.do(t, http.MethodGet, "/api/exams/"+exam.ID+"/submissions?graded=true&size=5", nil)
	expectStatus(t, w, http.StatusOK)
	var list services.SubmissionListResponse
	decode(t, w, &list)
	if list.Total != 1 || list.Size != 5 || len(list.Submissions) != 1 || list.Submissions[0].ID != sub.ID {
		t.Errorf("list = %+v", list)
	}

	w = ts.do(t, http.MethodGet, "/api/exams/"+exam.ID+"/submissions?graded=false", nil)
	expectStatus(t, w, http.StatusOK)
	decode(t, w, &list)
	if list.Total != 0 {
		t.Errorf("ungraded total = %d, want 0", list.Total)
	}

	w = ts.do(t, http.MethodDelete, "/api/submissions/"+sub.ID, nil)
	expectStatus(t, w, http.StatusNoContent)
	w = ts.do(t, http.MethodGet, "/api/submissions/"+sub.ID, nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestUploadSubmission(t *testing.T) {
	ts := newTestServer(t, true)
	exam, questions, student := ts.seed(t)

	answers := fmt.Sprintf(`[{"question_id":%q,"content":"F = ma"}]`, questions[0].ID)
	w := ts.upload(t, "/api/submissions/upload", map[string]string{
		"exam_id":    exam.ID,
		"student_id": student.ID,
		"answers":    answers,
	}, "sheet.pdf", []byte("%PDF-1.4"))
	expectStatus(t, w, http.StatusCreated)

	var sub models.SubmissionResponse
	decode(t, w, &sub)
	if sub.SheetKey == nil || len(sub.Answers) != 1 {
		t.Fatalf("submission = %+v", sub)
	}
	if _, ok := ts.store.objects[*sub.SheetKey]; !ok {
		t.Errorf("sheet %s not stored", *sub.SheetKey)
	}

	w = ts.do(t, http.MethodGet, "/api/submissions/"+sub.ID+"/sheet", nil)
	expectStatus(t, w, http.StatusOK)
	var link services.SheetURLResponse
	decode(t, w, &link)
	if !strings.HasSuffix(link.URL, *sub.SheetKey) {
		t.Errorf("url = %s", link.URL)
	}

	t.Run("missing file", func(t *testing.T) {
		w := ts.upload(t, "/api/submissions/upload", map[string]string{"exam_id": exam.ID, "student_id": student.ID}, "", nil)
		expectStatus(t, w, http.StatusBadRequest)
	})
	t.Run("answers not json", func(t *testing.T) {
		w := ts.upload(t, "/api/submissions/upload", map[string]string{"exam_id": exam.ID, "student_id": student.ID, "answers": "F = ma"}, "sheet.pdf", []byte("x"))
		expectStatus(t, w, http.StatusBadRequest)
	})
	t.Run("unknown student", func(t *testing.T) {
		w := ts.upload(t, "/api/submissions/upload", map[string]string{"exam_id": exam.ID, "student_id": "nobody"}, "sheet.pdf", []byte("x"))
		expectStatus(t, w, http.StatusNotFound)
	})
}

func TestImportExportRoutes(t *testing.T) {
	ts := newTestServer(t, false)
	exam, _, _ := ts.seed(t)

	w := ts.do(t, http.MethodGet, "/api/exams/"+exam.ID+"/export", nil)
	expectStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Content-Type = %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "exam-"+exam.ID+".xlsx") {
		t.Errorf("Content-Disposition = %s", cd)
	}

	w = ts.upload(t, "/api/exams/"+exam.ID+"/questions/import", nil, "exam.xlsx", w.Body.Bytes())
	expectStatus(t, w, http.StatusCreated)
	var imported []models.QuestionResponse
	decode(t, w, &imported)
	if len(imported) != 2 {
		t.Errorf("imported = %d questions, want 2", len(imported))
	}

	w = ts.upload(t, "/api/exams/"+exam.ID+"/questions/import", nil, "", nil)
	expectStatus(t, w, http.StatusBadRequest)

	w = ts.do(t, http.MethodGet, "/api/exams/missing/export", nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, false)

	w := ts.do(t, http.MethodGet, "/health", nil)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("health body = %s", w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	ts.do(t, http.MethodGet, "/api/exams/missing", nil)

	w = ts.do(t, http.MethodGet, "/metrics", nil)
	expectStatus(t, w, http.StatusOK)
	body := w.Body.String()
	for _, want := range []string{
		`http_requests_total{method="GET",route="/api/exams/:id",status="404"} 1`,
		"http_request_duration_seconds",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, false)

	w := ts.do(t, http.MethodOptions, "/api/exams", nil)
	expectStatus(t, w, http.StatusNoContent)
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS headers: %v", w.Header())
	}
}
