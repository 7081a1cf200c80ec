package middleware

import (
	"strconv"
	"strings"

	"constructerp/internal/common"

	"github.com/labstack/echo/v4"
)

// APIVersion represents API version information
type APIVersion struct {
	Version string `json:"version"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// VersionMiddleware provides API versioning functionality
type VersionMiddleware struct {
	supportedVersions map[string]APIVersion
	defaultVersion    string
}

// NewVersionMiddleware creates a new version middleware instance
func NewVersionMiddleware() *VersionMiddleware {
	return &VersionMiddleware{
		supportedVersions: map[string]APIVersion{
			"v1": {
				Version: "v1",
				Status:  "active",
				Message: "Current stable API version",
			},
		},
		defaultVersion: "v1",
	}
}

// VersionRoute creates a version-specific route group. The group carries no middleware of its
// own: echo answers 404 instead of 405 under groups that do.
func (vm *VersionMiddleware) VersionRoute(e *echo.Echo, version string) *echo.Group {
	return e.Group("/" + version)
}

// APIVersionResolver rejects requests addressed to an unknown version prefix and stamps the
// version headers on the rest
func (vm *VersionMiddleware) APIVersionResolver() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			version := extractVersionFromPath(c.Request().URL.Path)
			if version == "" {
				c.Set("api_version", vm.defaultVersion)
				return next(c)
			}
			ver, supported := vm.supportedVersions[version]
			if !supported {
				return common.SendNotFoundError(c, "API version "+version)
			}

			header := c.Response().Header()
			header.Set("X-API-Version", version)
			header.Set("X-API-Message", ver.Message)
			c.Set("api_version", version)
			return next(c)
		}
	}
}

// extractVersionFromPath extracts the API version from the URL path
func extractVersionFromPath(path string) string {
	if !strings.HasPrefix(path, "/v") {
		return ""
	}
	segment, _, _ := strings.Cut(path[2:], "/")
	if n, err := strconv.Atoi(segment); err == nil && n > 0 {
		return "v" + segment
	}
	return ""
}

// GetCurrentVersion returns the current active API version
func (vm *VersionMiddleware) GetCurrentVersion() string {
	return vm.defaultVersion
}
