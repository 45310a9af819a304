package apperrors

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse - стандартный ответ об ошибке
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HandleError переводит ошибку этапа в HTTP ответ.
// Всё, что не является AppError, считается внутренней ошибкой.
func HandleError(c *gin.Context, err error) {
	appErr, ok := AsAppError(err)
	if !ok {
		appErr = InternalError(err)
	}
	c.AbortWithStatusJSON(appErr.HTTPCode, ErrorResponse{Success: false, Message: appErr.Message})
}

// AsAppError - пытается преобразовать error в *AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
