package engine

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"fast-frontend/internal/frontend"
	"fast-frontend/internal/store"
)

type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func NotConfiguredError(key string) *AppError {
	return &AppError{
		Code:    "NOT_CONFIGURED",
		Status:  fiber.StatusNotFound,
		Message: fmt.Sprintf("No frontend configured for %s", key),
	}
}

func UnknownEntityError(name string) *AppError {
	return &AppError{
		Code:    "UNKNOWN_ENTITY",
		Status:  fiber.StatusNotFound,
		Message: fmt.Sprintf("Unknown entity: %s", name),
	}
}

func UnknownGroupError(name string) *AppError {
	return &AppError{
		Code:    "UNKNOWN_GROUP",
		Status:  fiber.StatusNotFound,
		Message: fmt.Sprintf("Unknown group: %s", name),
	}
}

func NotFoundError(entity, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Status:  fiber.StatusNotFound,
		Message: fmt.Sprintf("%s with id %s not found", entity, id),
	}
}

func ForbiddenError(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Status: fiber.StatusForbidden, Message: msg}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: fiber.StatusUnauthorized, Message: msg}
}

func FormInvalidError(details []ErrorDetail) *AppError {
	return &AppError{
		Code:    "FORM_INVALID",
		Status:  fiber.StatusUnprocessableEntity,
		Message: "Form validation failed",
		Details: details,
	}
}

// ErrorHandler is the fiber error handler. AppErrors and lookup sentinels are
// rendered with their status; anything else is logged and hidden behind a 500.
func ErrorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *AppError
		switch {
		case errors.As(err, &appErr):
		case errors.Is(err, frontend.ErrNotConfigured):
			appErr = NotConfiguredError(c.Path())
		case errors.Is(err, store.ErrNotFound):
			appErr = NewAppError("NOT_FOUND", fiber.StatusNotFound, "Not found")
		}
		if appErr != nil {
			return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
		}

		code := fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
			return c.Status(code).JSON(ErrorResponse{Error: NewAppError("HTTP_ERROR", code, fiberErr.Message)})
		}

		log.WithError(err).WithFields(logrus.Fields{"method": c.Method(), "path": c.Path()}).Error("request failed")
		return c.Status(code).JSON(ErrorResponse{
			Error: &AppError{
				Code:    "INTERNAL_ERROR",
				Message: "Internal server error",
			},
		})
	}
}
