package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/playtube/authcore/internal/service"
	"github.com/playtube/authcore/internal/storage"
)

func ErrorHandler(log *zap.SugaredLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		switch {
		// Every failed login serializes the one sentinel, whether the
		// identifier is unknown or the password is wrong, so the responses
		// cannot be used to enumerate accounts.
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, map[string]string{"reason": service.ErrInvalidCredentials.Error()})
			return
		case errors.Is(err, service.ErrInvalidRefreshToken):
			c.JSON(http.StatusUnauthorized, map[string]string{"reason": service.ErrInvalidRefreshToken.Error()})
			return
		case isUnauthorizedTokenError(err):
			c.JSON(http.StatusUnauthorized, map[string]string{"reason": err.Error()})
			return
		case errors.Is(err, service.ErrMissingFields):
			c.JSON(http.StatusBadRequest, map[string]string{"reason": service.ErrMissingFields.Error()})
			return
		case errors.Is(err, storage.ErrUserExists):
			c.JSON(http.StatusConflict, map[string]string{"reason": storage.ErrUserExists.Error()})
			return
		case errors.Is(err, storage.ErrUserNotFound):
			c.JSON(http.StatusNotFound, map[string]string{"reason": storage.ErrUserNotFound.Error()})
			return
		}

		he, ok := err.(*echo.HTTPError)
		if ok {
			if he.Code == http.StatusInternalServerError {
				log.Errorw("HTTP error", "error", err, "uri", c.Request().RequestURI)
			}
			reason, ok := he.Message.(string)
			if !ok {
				reason = http.StatusText(he.Code)
			}
			if err := c.JSON(he.Code, map[string]string{"reason": reason}); err != nil {
				log.Errorw("failed to write json response", "error", err)
			}
			return
		}

		// Internal failures are logged with detail and surfaced without it.
		log.Errorw("unhandled error", "error", err, "uri", c.Request().RequestURI)
		c.JSON(http.StatusInternalServerError, map[string]string{"reason": "internal server error"})
	}
}

func isUnauthorizedTokenError(err error) bool {
	return errors.Is(err, service.ErrTokenExpired) ||
		errors.Is(err, service.ErrTokenInvalid) ||
		errors.Is(err, service.ErrTokenMalformed) ||
		errors.Is(err, service.ErrInvalidSigningMethod) ||
		errors.Is(err, service.ErrInvalidUserID)
}
