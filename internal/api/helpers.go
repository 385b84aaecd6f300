package api

import (
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/natread/pkg/nat"
)

func writeError(c *echo.Context, err error) error {
	status, typ := statusOf(err)
	return c.JSON(status, ErrorBody{Error: ErrorDetail{Type: typ, Message: err.Error()}})
}

func writeNotFound(c *echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, ErrorBody{Error: ErrorDetail{Type: "not_found_error", Message: msg}})
}

// upload resolves the :id path parameter.
func (s *Server) upload(c *echo.Context) (*Upload, error) {
	id := c.Param("id")
	u, ok := s.store.Get(id)
	if !ok {
		return nil, writeNotFound(c, "file "+id+" not found")
	}
	return u, nil
}

// sizeParam parses a byte size such as "50MB" or "1048576".
func sizeParam(c *echo.Context, name string, def int64) (int64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := humanize.ParseBytes(v)
	if err != nil {
		return 0, newInvalidRequest("invalid " + name + ": " + err.Error())
	}
	return int64(n), nil
}

func indexParam(c *echo.Context, name string) (int, error) {
	v := c.Param(name)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, newInvalidRequest("invalid " + name + " " + strconv.Quote(v))
	}
	return n, nil
}

func selectionParam(c *echo.Context) (nat.Selection, error) {
	v := c.QueryParam("records")
	if v == "" {
		return nat.All(), nil
	}
	return nat.ParseSelection(v)
}
