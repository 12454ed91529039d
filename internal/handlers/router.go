package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/smartscore-service/internal/metrics"
	"github.com/SAP-F-2025/smartscore-service/internal/services"
	"github.com/SAP-F-2025/smartscore-service/internal/utils"
)

type HandlerManager struct {
	examHandler       *ExamHandler
	questionHandler   *QuestionHandler
	userHandler       *UserHandler
	studentHandler    *StudentHandler
	submissionHandler *SubmissionHandler

	serviceManager services.ServiceManager
	metrics        *metrics.Metrics
	logger         utils.Logger
}

// NewHandlerManager builds the resource handlers. m may be nil, which leaves /metrics unregistered.
func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	m *metrics.Metrics,
) *HandlerManager {
	return &HandlerManager{
		examHandler: NewExamHandler(
			serviceManager.Exam(),
			serviceManager.Question(),
			serviceManager.Submission(),
			serviceManager.ImportExport(),
			logger,
		),
		questionHandler:   NewQuestionHandler(serviceManager.Question(), logger),
		userHandler:       NewUserHandler(serviceManager.User(), logger),
		studentHandler:    NewStudentHandler(serviceManager.Student(), logger),
		submissionHandler: NewSubmissionHandler(serviceManager.Submission(), serviceManager.Grading(), logger),
		serviceManager:    serviceManager,
		metrics:           m,
		logger:            logger,
	}
}

// SetupRoutes sets up all API routes. Every POST that creates a resource
// answers 201 Created with the stored representation, not 200.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		exams := api.Group("/exams")
		{
			exams.POST("", hm.examHandler.CreateExam)
			exams.GET("", hm.examHandler.ListExams)
			exams.GET("/:id", hm.examHandler.GetExam)
			exams.DELETE("/:id", hm.examHandler.DeleteExam)

			exams.POST("/:id/questions", hm.examHandler.AddQuestions)
			exams.POST("/:id/questions/import", hm.examHandler.ImportQuestions)
			exams.GET("/:id/export", hm.examHandler.ExportExam)
			exams.GET("/:id/submissions", hm.examHandler.ListSubmissions)
		}

		questions := api.Group("/questions")
		{
			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.POST("/:id/rubric", hm.questionHandler.CreateRubric)
			questions.GET("/:id/rubric", hm.questionHandler.GetRubric)
		}

		users := api.Group("/users")
		{
			users.POST("", hm.userHandler.CreateUser)
			users.POST("/import", hm.userHandler.ImportUsers)
			users.GET("/:id", hm.userHandler.GetUser)
		}

		students := api.Group("/students")
		{
			students.POST("", hm.studentHandler.CreateStudent)
			students.GET("/:id", hm.studentHandler.GetStudent)
		}

		submissions := api.Group("/submissions")
		{
			submissions.POST("", hm.submissionHandler.CreateSubmission)
			submissions.POST("/upload", hm.submissionHandler.UploadSubmission)
			submissions.GET("/:id", hm.submissionHandler.GetSubmission)
			submissions.DELETE("/:id", hm.submissionHandler.DeleteSubmission)
			submissions.GET("/:id/sheet", hm.submissionHandler.GetSheetURL)
			submissions.POST("/:id/grading", hm.submissionHandler.RecordGrading)
		}
	}

	router.GET("/health", hm.health)

	if hm.metrics != nil {
		router.GET("/metrics", gin.WrapH(hm.metrics.Handler()))
	}
}

func (hm *HandlerManager) health(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		utils.GetLogger(c, hm.logger).Warn("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
