package services

import (
	"context"
	"log/slog"

	"github.com/SAP-F-2025/smartscore-service/internal/events"
	"github.com/SAP-F-2025/smartscore-service/internal/metrics"
)

// Workflow names used as metric labels
const (
	WorkflowCreateUser       = "create_user"
	WorkflowImportUsers      = "import_users"
	WorkflowCreateStudent    = "create_student"
	WorkflowCreateExam       = "create_exam"
	WorkflowDeleteExam       = "delete_exam"
	WorkflowAddQuestions     = "add_questions"
	WorkflowImportQuestions  = "import_questions"
	WorkflowAddRubric        = "add_rubric"
	WorkflowCreateSubmission = "create_submission"
	WorkflowDeleteSubmission = "delete_submission"
	WorkflowRecordGrading    = "record_grading"
)

// workflowObserver reports the outcome of a write workflow and announces committed changes
type workflowObserver struct {
	publisher events.EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func newWorkflowObserver(publisher events.EventPublisher, m *metrics.Metrics, logger *slog.Logger) workflowObserver {
	return workflowObserver{publisher: publisher, metrics: m, logger: logger}
}

func (o workflowObserver) finish(workflow string, err error) {
	switch {
	case err == nil:
		o.metrics.RecordWorkflow(workflow, metrics.OutcomeCommitted)
	case IsRejection(err):
		o.metrics.RecordWorkflow(workflow, metrics.OutcomeRejected)
	default:
		o.metrics.RecordWorkflow(workflow, metrics.OutcomeFailed)
	}
}

// publish runs after commit; a failed publish is logged and never undoes the write
func (o workflowObserver) publish(ctx context.Context, eventType string, data interface{}) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		o.logger.Warn("Failed to publish event", "event_type", eventType, "error", err)
	}
}
