package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/softiel/backend/internal/dto"
	"github.com/softiel/backend/internal/service"
	"github.com/softiel/backend/internal/thread"
	"go.uber.org/zap"
)

// NewValidator returns a validator that reports fields by their json names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationError(c *fiber.Ctx, err error) error {
	var details []dto.ErrorDetail
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details = append(details, dto.ErrorDetail{
				Field:   fe.Field(),
				Message: validationMessage(fe),
			})
		}
	}
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse("VALIDATION_ERROR", "Invalid request", details...))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param()
	default:
		return "is invalid"
	}
}

// writeError maps domain errors to the response envelope.
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	switch {
	case errors.Is(err, thread.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse("COMMENT_NOT_FOUND", "Comment not found"))
	case errors.Is(err, thread.ErrInvalidTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse("INVALID_TRANSITION", err.Error()))
	case errors.Is(err, thread.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse("VERSION_CONFLICT", "Comment was modified by someone else, reload and retry"))
	case errors.Is(err, thread.ErrAlreadyLiked):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse("ALREADY_LIKED", "You already liked this comment"))
	case errors.Is(err, service.ErrReservedAuthorEmail):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse("RESERVED_EMAIL", "This email address is reserved"))
	}
	log.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse("INTERNAL_ERROR", "Something went wrong"))
}

func parseID(c *fiber.Ctx, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(param))
	return id, err == nil
}

func invalidID(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse("INVALID_ID", "Invalid "+what+" ID"))
}

func pagination(c *fiber.Ctx) (int, int) {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
