package middleware

import (
	"log/slog"
	"net/http"

	"sopmaker/config"
	deliverycontext "sopmaker/internal/delivery/context"
	"sopmaker/internal/delivery/http/response"
	"sopmaker/internal/domain/entity"
	domainerrors "sopmaker/internal/domain/errors"
	"sopmaker/internal/errors"

	"github.com/labstack/echo/v4"
)

// ErrorMiddleware is the outer boundary that turns handler errors into JSON.
type ErrorMiddleware struct {
	logger        *slog.Logger
	exposeDetails bool
}

// NewErrorMiddleware creates a new error handling middleware
func NewErrorMiddleware(logger *slog.Logger, cfg *config.Config) *ErrorMiddleware {
	return &ErrorMiddleware{
		logger:        logger,
		exposeDetails: cfg.ExposeErrorDetails(),
	}
}

// HandleHTTPError handles errors as Echo's HTTPErrorHandler
func (m *ErrorMiddleware) HandleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	logger := deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger)

	if syncErr, ok := errors.AsType[*domainerrors.RoleSyncError](err); ok {
		logger.Warn("Role sync failed", slog.Any("error", err))
		details := map[string]any{
			"partial":   syncErr.Partial,
			"succeeded": storeList(syncErr.Succeeded),
			"failed":    storeList(syncErr.Failed),
			"skipped":   storeList(syncErr.Skipped),
		}
		if m.exposeDetails {
			details["cause"] = syncErr.Details()
		}
		_ = response.Error(c, syncErr.HTTPCode(), syncErr.ErrorCode(), syncErr.Message(), details)

		return
	}

	if appErr, ok := errors.AsType[domainerrors.AppError](err); ok {
		if appErr.HTTPCode() >= http.StatusInternalServerError {
			logger.Error("Request failed", slog.Any("error", err), slog.String("code", appErr.ErrorCode()))
		}
		_ = response.Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), m.details(appErr.Details()))

		return
	}

	if httpErr, ok := errors.AsType[*echo.HTTPError](err); ok {
		message := http.StatusText(httpErr.Code)
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
		_ = response.Error(c, httpErr.Code, "HTTP_ERROR", message, nil)

		return
	}

	logger.Error("Unhandled error",
		slog.Any("error", err),
		slog.String("path", c.Request().URL.Path),
		slog.String("method", c.Request().Method),
	)

	_ = response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR",
		"Internal server error, please try again later", m.details(err.Error()))
}

// details drops internal detail outside development.
func (m *ErrorMiddleware) details(detail string) any {
	if !m.exposeDetails || detail == "" {
		return nil
	}

	return detail
}

// storeList keeps empty store lists as [] in the response body.
func storeList(stores []entity.Store) []entity.Store {
	if stores == nil {
		return []entity.Store{}
	}

	return stores
}
