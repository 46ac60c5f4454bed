package httputil

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/jellydator/validation"

	customValidation "github.com/sobebarali/useHely-sub006/internal/validation"
)

// ParseTimeQuery parses an optional RFC3339 query parameter. A missing parameter
// yields a nil time.
func ParseTimeQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s parameter: must be an RFC3339 timestamp", name)
	}
	ts = ts.UTC()
	return &ts, nil
}

// ParseUint64Query parses an optional positive integer query parameter, returning
// def when the parameter is absent.
func ParseUint64Query(c *gin.Context, name string, def uint64) (uint64, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid %s parameter: must be a positive integer", name)
	}
	return v, nil
}

// ParseUint64Param parses a required positive integer path parameter.
func ParseUint64Param(c *gin.Context, name string) (uint64, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", name)
	}
	return v, nil
}

// TenantParam returns the validated :tenant_id path parameter.
func TenantParam(c *gin.Context) (string, error) {
	tenantID := c.Param("tenant_id")
	if err := validation.Validate(tenantID, validation.Required, customValidation.Identifier); err != nil {
		return "", fmt.Errorf("invalid tenant_id: %w", err)
	}
	return tenantID, nil
}
