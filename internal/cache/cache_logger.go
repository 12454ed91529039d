package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateExamCache drops a deleted exam and the questions it owned
func InvalidateExamCache(ctx context.Context, cm *CacheManager, examID string, questionIDs []string) {
	SafeDelete(ctx, cm.Exam, fmt.Sprintf("id:%s", examID))

	if len(questionIDs) == 0 {
		return
	}
	keys := make([]string, len(questionIDs))
	for i, id := range questionIDs {
		keys[i] = fmt.Sprintf("id:%s", id)
	}
	SafeDelete(ctx, cm.Question, keys...)
}
