package middleware

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/ElVatoEste/biblioteca-reservas/internal/dto"
	"github.com/labstack/echo/v4"
)

// ErrorHandler renders every error as dto.ErrorResponse. Errors that are not
// *echo.HTTPError are logged and reported as a generic 500.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	resp := dto.ErrorResponse{Message: "operation failed"}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch m := he.Message.(type) {
		case string:
			resp.Message = m
		case dto.ErrorResponse:
			resp = m
		case error:
			resp.Message = m.Error()
		default:
			resp.Message = fmt.Sprint(m)
		}
	} else {
		log.Printf("[HTTP] %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, resp)
}
