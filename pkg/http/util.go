package http

import (
	"time"

	xutil "FinWatch/pkg/util"

	"github.com/labstack/echo/v4"
)

// QueryInt reads an integer query parameter, falling back to def when it is
// missing or malformed.
func QueryInt(c echo.Context, name string, def int) int {
	return xutil.ParseIntDefault(c.QueryParam(name), def)
}

// QueryTime reads an RFC3339 or unix-seconds query parameter.
func QueryTime(c echo.Context, name string, def time.Time) time.Time {
	return xutil.ParseTimeDefault(c.QueryParam(name), def)
}
