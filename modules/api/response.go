package api

import (
	"errors"
	"log/slog"

	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// SuccessResponse wraps every successful payload.
type SuccessResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(SuccessResponse{Status: "success", Data: data})
}

func created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(SuccessResponse{Status: "success", Data: data})
}

// httpCodes names plain Fiber errors such as unmatched routes.
var httpCodes = map[int]string{
	fiber.StatusBadRequest:            string(apperr.KindValidation),
	fiber.StatusUnauthorized:          string(apperr.KindUnauthorized),
	fiber.StatusForbidden:             string(apperr.KindForbidden),
	fiber.StatusNotFound:              string(apperr.KindNotFound),
	fiber.StatusMethodNotAllowed:      "method_not_allowed",
	fiber.StatusRequestEntityTooLarge: "payload_too_large",
	fiber.StatusUnsupportedMediaType:  "unsupported_media_type",
}

// errorHandler renders errors in the common envelope. Classified errors keep
// their message; anything unclassified is logged and reported generically.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code, known := httpCodes[fe.Code]
			if !known {
				code = "http_error"
			}
			return c.Status(fe.Code).JSON(ErrorResponse{Status: "error", Code: code, Message: fe.Message})
		}

		err = apperr.Decode(err)
		kind := apperr.KindOf(err)
		status := apperr.HTTPStatus(kind)

		if kind == apperr.KindInternal {
			logger.Error("request failed",
				"request_id", requestID(c),
				"method", c.Method(),
				"path", c.Path(),
				"error", err,
			)
			return c.Status(status).JSON(ErrorResponse{
				Status:  "error",
				Code:    string(kind),
				Message: "internal server error",
			})
		}

		if status >= fiber.StatusInternalServerError {
			logger.Warn("upstream failure",
				"request_id", requestID(c),
				"path", c.Path(),
				"error", err,
			)
		}

		message := err.Error()
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Message != "" {
			message = ae.Message
		}
		return c.Status(status).JSON(ErrorResponse{Status: "error", Code: string(kind), Message: message})
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
		return id
	}
	return ""
}
