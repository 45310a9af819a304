package handlers

import (
	"errors"
	"net/http"
	"strings"

	"energy_study_backend/internal/logger"
	"energy_study_backend/internal/validator"
	"energy_study_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// ============================================================================
// 1. Базовая структура обработчика
// ============================================================================

type BaseHandler struct {
	validator      *validator.Validator
	maxRequestSize int64
}

func NewBaseHandler(v *validator.Validator, maxRequestSize int64) *BaseHandler {
	return &BaseHandler{
		validator:      v,
		maxRequestSize: maxRequestSize,
	}
}

// ============================================================================
// 2. Методы привязки и валидации
// ============================================================================

// BindAndValidate привязывает тело (JSON или форму) и проверяет его валидатором.
// При ошибке ответ уже записан и возвращается false.
func (h *BaseHandler) BindAndValidate(c *gin.Context, obj interface{}) bool {
	ctx := c.Request.Context()

	if err := c.ShouldBind(obj); err != nil {
		if isBodyTooLarge(err) {
			logger.CtxWarn(ctx, "Request body too large", "path", c.Request.URL.Path, "limit", h.maxRequestSize)
			apperrors.HandleError(c, apperrors.ErrFileTooLarge(h.maxRequestSize))
			return false
		}
		logger.CtxWithError(ctx, "Failed to bind request body", err, "path", c.Request.URL.Path)
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid request body"))
		return false
	}

	if err := h.validator.Validate(obj); err != nil {
		var vErr *validator.ValidationError
		if errors.As(err, &vErr) {
			logger.CtxWarn(ctx, "Validation failed", "errors", vErr.Errors, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.ValidationError(vErr.First()))
		} else {
			logger.CtxWithError(ctx, "Internal validator error", err, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.InternalError(err))
		}
		return false
	}
	return true
}

// ============================================================================
// 3. Обработчики ошибок
// ============================================================================

func (h *BaseHandler) HandleServiceError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		if appErr.HTTPCode >= http.StatusInternalServerError {
			logger.CtxWithError(ctx, "Service error", err, "path", c.Request.URL.Path)
		} else {
			logger.CtxWarn(ctx, "Service error",
				"error", appErr.Message,
				"code", string(appErr.Code),
				"path", c.Request.URL.Path,
			)
		}
		apperrors.HandleError(c, appErr)
		return
	}

	logger.CtxWithError(ctx, "Internal server error", err, "path", c.Request.URL.Path)
	apperrors.HandleError(c, apperrors.InternalError(err))
}

// isBodyTooLarge распознает ошибку http.MaxBytesReader, в том числе
// обернутую парсером multipart без %w
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
