package httputil

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Audit entry listings page newest first; these bound a single page.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

var (
	errInvalidOffset = errors.New("invalid offset parameter: must be a non-negative integer")
	errInvalidLimit  = errors.New("invalid limit parameter: must be between 1 and 100")
)

// ParsePagination reads the offset and limit query parameters.
func ParsePagination(c *gin.Context) (offset, limit int, err error) {
	offset, ok := intQuery(c, "offset", 0)
	if !ok || offset < 0 {
		return 0, 0, errInvalidOffset
	}

	limit, ok = intQuery(c, "limit", DefaultPageLimit)
	if !ok || limit < 1 || limit > MaxPageLimit {
		return 0, 0, errInvalidLimit
	}

	return offset, limit, nil
}

func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw, present := c.GetQuery(name)
	if !present {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	return v, err == nil
}
