package middleware

// identity.go holds helpers shared across middleware files for reading the
// authenticated identity out of the Echo context. JWTAuth stores the values;
// everything here tolerates their absence so public routes keep working.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// currentUserID returns the authenticated user's ID as a string suitable
// for rate-limit key construction, or "anon" for unauthenticated requests.
func currentUserID(c echo.Context) string {
    if v := c.Get("user_id"); v != nil {
        if id, ok := v.(uint64); ok && id != 0 {
            return strconv.FormatUint(id, 10)
        }
        if s, ok := v.(string); ok && s != "" {
            return s
        }
    }
    return "anon"
}
