package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/zeebo/xxh3"
)

func (h *Handler) requireSnapshot(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.snap.Load() == nil {
			return ErrNotReady
		}
		return next(c)
	}
}

// etag tags every read with the snapshot fingerprint and the request URI.
// Responses only change when the snapshot is swapped.
func (h *Handler) etag(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s := h.snap.Load()
		if s == nil {
			return next(c)
		}
		tag := fmt.Sprintf(`"%s-%x"`, s.Fingerprint, xxh3.HashString(c.Request().URL.RequestURI()))
		c.Response().Header().Set("ETag", tag)
		if c.Request().Header.Get("If-None-Match") == tag {
			return c.NoContent(http.StatusNotModified)
		}
		return next(c)
	}
}

// errorHandler maps ErrNotReady to 503 and defers everything else to echo.
func errorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if errors.Is(err, ErrNotReady) {
			err = echo.NewHTTPError(http.StatusServiceUnavailable, "data is still loading")
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
}

// JSONSerializer encodes with goccy/go-json.
type JSONSerializer struct{}

func (JSONSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (JSONSerializer) Deserialize(c echo.Context, i interface{}) error {
	if err := json.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json body").SetInternal(err)
	}
	return nil
}
