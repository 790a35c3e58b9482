package respond

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/daryakhm/flower_shop/internal/apperr"
	"github.com/daryakhm/flower_shop/internal/logging"
)

// Envelope is the uniform two-field response body. Error is null on
// success so clients can branch structurally, not just on status code.
type Envelope struct {
	Data  any     `json:"data"`
	Error *string `json:"error"`
}

func Data(c echo.Context, code int, data any) error {
	return c.JSON(code, Envelope{Data: data})
}

func Message(c echo.Context, code int, msg string) error {
	return c.JSON(code, Envelope{Data: map[string]string{"message": msg}})
}

// Err maps an error onto the envelope. Unrecognized errors are logged
// and answered as a generic 500 without leaking detail.
func Err(c echo.Context, err error) error {
	if appErr, ok := apperr.As(err); ok {
		return c.JSON(appErr.Status, Envelope{Data: appErr.Details, Error: &appErr.Message})
	}

	logging.FromContext(c.Request().Context()).Error("internal error",
		"method", c.Request().Method,
		"path", c.Path(),
		"error", err,
	)
	msg := "internal server error"
	return c.JSON(http.StatusInternalServerError, Envelope{Error: &msg})
}
