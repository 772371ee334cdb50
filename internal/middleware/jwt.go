package middleware // middleware provides reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strconv"  // numeric claim parsing
    "strings"  // prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT parsing and validation
    "github.com/labstack/echo/v4"  // Echo framework middleware contracts
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the token's subject and role claims into the request context.
// The provided secret must match the one used when issuing tokens.  This
// middleware wraps protected routes so handlers can read the authenticated
// identity via `c.Get("user_id")` (uint64) and `c.Get("role")` (string).
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Parse with HS256 only; tokens signed with any other
            // algorithm are rejected.
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }

            uid := subjectID(claims)
            if uid == 0 {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject"})
            }
            role, _ := claims["role"].(string)

            // Normalized values: handlers never re-parse claims.
            c.Set("user_id", uid)
            c.Set("role", role)
            return next(c)
        }
    }
}

// subjectID extracts the numeric user ID from the sub claim.  JSON numbers
// decode as float64; string subjects are parsed for compatibility with
// tokens issued by other tooling.  Returns 0 when no usable subject exists.
func subjectID(claims jwt.MapClaims) uint64 {
    switch v := claims["sub"].(type) {
    case float64:
        if v > 0 {
            return uint64(v)
        }
    case string:
        if n, err := strconv.ParseUint(v, 10, 64); err == nil {
            return n
        }
    }
    return 0
}
