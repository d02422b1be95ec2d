package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"FinWatch/pkg/logger"
)

// Recover turns a handler panic into a 500 envelope. Hijacked websocket
// connections have already been answered and are only logged.
func Recover(l *logger.Logger) echo.MiddlewareFunc {
	if l == nil {
		l = logger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				perr, ok := r.(error)
				if !ok {
					perr = fmt.Errorf("%v", r)
				}
				l.Error("http handler panic",
					logger.String("route", c.Path()),
					logger.String("symbol", c.Param("symbol")),
					logger.Error(perr),
					logger.String("stack", string(debug.Stack())),
				)
				if c.Response().Committed || isUpgrade(c.Request()) {
					err = nil
					return
				}
				err = c.JSON(http.StatusOK, map[string]interface{}{
					"status":  http.StatusInternalServerError,
					"message": http.StatusText(http.StatusInternalServerError),
				})
			}()
			return next(c)
		}
	}
}
