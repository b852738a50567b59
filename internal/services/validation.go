package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/WilliamDrmrd/todo-app/internal/models"
	"github.com/go-playground/validator/v10"
)

type CreateTodoRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Completed   *bool   `json:"completed"`
	Priority    *string `json:"priority" validate:"omitempty,priority"`
}

// UpdateTodoRequest is a partial patch. A nil field was not supplied.
type UpdateTodoRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Completed   *bool   `json:"completed"`
	Priority    *string `json:"priority" validate:"omitempty,priority"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
			return models.Priority(fl.Field().String()).IsValid()
		})
	})
	return validate
}

// ValidateCreate trims the title in place and checks every field rule.
func ValidateCreate(req *CreateTodoRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	return validateStruct(req)
}

// ValidateUpdate trims a supplied title in place and checks only the
// supplied fields. A supplied title must still be non-blank.
func ValidateUpdate(req *UpdateTodoRequest) error {
	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		req.Title = &trimmed
	}

	err := validateStruct(req)

	if req.Title != nil && *req.Title == "" {
		blank := FieldError{Field: "title", Message: "title should not be empty"}
		if verr, ok := err.(*ValidationError); ok {
			verr.Fields = append([]FieldError{blank}, verr.Fields...)
			return verr
		}
		if err == nil {
			return &ValidationError{Fields: []FieldError{blank}}
		}
	}
	return err
}

func validateStruct(req interface{}) error {
	err := getValidator().Struct(req)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("failed to validate request: %w", err)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, toFieldError(fe))
	}
	return &ValidationError{Fields: fields}
}

func toFieldError(fe validator.FieldError) FieldError {
	field := strings.ToLower(fe.Field())

	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s should not be empty", field)
	case "max":
		msg = fmt.Sprintf("%s must be shorter than or equal to %s characters", field, fe.Param())
	case "priority":
		msg = fmt.Sprintf("%s must be one of the following values: %s, %s, %s",
			field, models.PriorityLow, models.PriorityMedium, models.PriorityHigh)
	default:
		msg = fmt.Sprintf("%s is invalid", field)
	}
	return FieldError{Field: field, Message: msg}
}
