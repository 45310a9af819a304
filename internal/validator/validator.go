package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError содержит ошибки в порядке полей структуры.
// Errors - карта "поле" -> "сообщение".
type ValidationError struct {
	Fields []string
	Errors map[string]string
}

// Error реализует стандартный интерфейс error.
func (e *ValidationError) Error() string {
	var errMsgs []string
	for _, field := range e.Fields {
		errMsgs = append(errMsgs, fmt.Sprintf("field '%s': %s", field, e.Errors[field]))
	}
	return "Validation failed: " + strings.Join(errMsgs, "; ")
}

// First возвращает сообщение для первого неверного поля
func (e *ValidationError) First() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Errors[e.Fields[0]]
}

// Validator - обертка над go-playground/validator.
type Validator struct {
	validate *validator.Validate
}

// New создает новый экземпляр Validator.
func New() *Validator {
	v := validator.New()

	// Имена полей в ошибках берутся из json/form тегов DTO
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	registerCustomRules(v)

	return &Validator{
		validate: v,
	}
}

// Validate выполняет валидацию переданной структуры.
// Если есть ошибки, возвращает *ValidationError.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	result := &ValidationError{Errors: make(map[string]string)}
	for _, fe := range validationErrors {
		fieldName := fe.Field()
		if _, seen := result.Errors[fieldName]; seen {
			continue
		}
		result.Fields = append(result.Fields, fieldName)
		result.Errors[fieldName] = v.getErrorMessage(fe)
	}

	return result
}

func (v *Validator) getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "study-email":
		return "Valid email required"
	case "participant-id":
		return "Invalid participant id"
	case "required":
		return "This field is required"
	case "max":
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "json":
		return "Must be valid JSON"
	default:
		return fmt.Sprintf("Invalid value (failed on '%s' tag)", fe.Tag())
	}
}
