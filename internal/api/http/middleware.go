package http

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/observability"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// errorHandlingMiddleware writes every failure as
// {"error":{"code","message","details","request_id"}}.
func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("request_id", requestID(c)),
					zap.ByteString("stack", debug.Stack()),
				)
				err = apperrors.NewInternalError(nil)
			}
			if err == nil {
				return
			}
			domainErr := toDomainError(err)
			route := routeLabel(c)
			metrics.RecordError(route, c.Method(), domainErr.Code)

			body := fiber.Map{
				"code":    domainErr.Code,
				"message": domainErr.Message,
			}
			if len(domainErr.Details) > 0 {
				body["details"] = domainErr.Details
			}
			if id := requestID(c); id != "" {
				body["request_id"] = id
			}
			if domainErr.HTTPStatus >= http.StatusInternalServerError {
				logger.Error("request failed",
					zap.String("route", route),
					zap.String("method", c.Method()),
					zap.String("request_id", requestID(c)),
					zap.Error(domainErr),
				)
			}
			c.Status(domainErr.HTTPStatus)
			_ = c.JSON(fiber.Map{"error": body})
			err = nil
		}()
		return c.Next()
	}
}

// toDomainError also covers fiber's own errors, such as an unknown route.
func toDomainError(err error) *apperrors.DomainError {
	var fe *fiber.Error
	if !errors.As(err, &fe) {
		return apperrors.ToDomainError(err)
	}
	code := apperrors.CodeValidation
	switch fe.Code {
	case http.StatusUnauthorized:
		code = apperrors.CodeUnauthorized
	case http.StatusForbidden:
		code = apperrors.CodeForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		code = apperrors.CodeNotFound
	case http.StatusRequestTimeout:
		code = apperrors.CodeTimeout
	case http.StatusConflict:
		code = apperrors.CodeConflict
	default:
		if fe.Code >= http.StatusInternalServerError {
			return apperrors.ToDomainError(err)
		}
	}
	return apperrors.NewDomainError(code, fe.Message, fe.Code, nil)
}

func routeLabel(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" {
		return r.Path
	}
	return "unmatched"
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("request_id").(string); ok {
		return id
	}
	return string(c.Response().Header.Peek(observability.RequestIDHeader))
}
