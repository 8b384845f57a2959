package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/tenant-ticketing/internal/service"
)

// writeError maps a service error onto a status code and a JSON body.
// Unclassified errors are logged and reported as 500 without detail.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrInsufficientStock):
		return c.JSON(http.StatusConflict, echo.Map{"error": "not enough tickets left", "code": "INSUFFICIENT_STOCK"})
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// pathID parses a positive int64 path parameter.
func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// dateLayouts are accepted for event dates, most specific first.  Values
// without a zone are taken as UTC.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseDates converts the submitted date list.  Blank entries mean
// "no date" and become nil.
func parseDates(raw []string) ([]*time.Time, error) {
	out := make([]*time.Time, 0, len(raw))
	for i, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			out = append(out, nil)
			continue
		}
		var (
			t   time.Time
			err error
		)
		for _, layout := range dateLayouts {
			if t, err = time.ParseInLocation(layout, s, time.UTC); err == nil {
				break
			}
		}
		if err != nil {
			return nil, &service.ValidationError{Field: "dates[" + strconv.Itoa(i) + "]", Msg: "unrecognised date " + strconv.Quote(s)}
		}
		t = t.UTC()
		out = append(out, &t)
	}
	return out, nil
}
