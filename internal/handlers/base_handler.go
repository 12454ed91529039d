package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/smartscore-service/internal/repositories"
	"github.com/SAP-F-2025/smartscore-service/internal/services"
	"github.com/SAP-F-2025/smartscore-service/internal/utils"
	"github.com/SAP-F-2025/smartscore-service/internal/validator"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// BaseHandler carries the helpers shared by all resource handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	l := utils.GetLogger(c, h.logger)
	l.Debug(msg, append(args, "method", c.Request.Method, "path", c.FullPath())...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	l := utils.GetLogger(c, h.logger)
	l.Error(msg, append(args, "error", err)...)
}

// parseIDParam returns the trimmed path parameter, answering 400 when it is blank
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) string {
	id := strings.TrimSpace(c.Param(param))
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "ID cannot be empty",
		})
		return ""
	}
	return id
}

// bindJSON decodes the body into dst. Decode failures are answered as validation errors.
func (h *BaseHandler) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: validator.ToValidationErrors(err),
		})
		return false
	}
	return true
}

func (h *BaseHandler) queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

// queryTime parses an optional RFC 3339 query parameter, answering 400 when it is malformed
func (h *BaseHandler) queryTime(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: services.ValidationErrors{{Field: key, Message: "must be an RFC 3339 timestamp", Value: raw, Rule: "datetime"}},
		})
		return nil, false
	}
	return &t, true
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	switch {
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: err.Error(),
		})
	case repositories.IsUniquenessViolation(err):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Resource already exists",
			Details: err.Error(),
		})
	case repositories.IsReferentialIntegrityError(err):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Referenced resource does not exist",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrBlobStorageDisabled), errors.Is(err, services.ErrDirectoryDisabled):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Message: err.Error(),
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
