package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/mkarwowski/room-reservation/internal/utils"
)

const testSecret = "unit-test-secret"

func runJWT(t *testing.T, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    if authHeader != "" {
        req.Header.Set("Authorization", authHeader)
    }
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)

    var captured echo.Context
    h := JWTAuth(testSecret)(func(c echo.Context) error {
        captured = c
        return c.NoContent(http.StatusOK)
    })
    if err := h(c); err != nil {
        t.Fatalf("middleware returned error: %v", err)
    }
    return rec, captured
}

func TestJWTAuth(t *testing.T) {
    t.Run("valid token injects typed identity", func(t *testing.T) {
        at, err := utils.NewAccessToken(testSecret, 7, "ADMIN", 5)
        if err != nil {
            t.Fatalf("issue token: %v", err)
        }
        rec, c := runJWT(t, "Bearer "+at.Token)
        if rec.Code != http.StatusOK {
            t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
        }
        if uid, ok := c.Get("user_id").(uint64); !ok || uid != 7 {
            t.Fatalf("user_id = %v, want uint64(7)", c.Get("user_id"))
        }
        if role, ok := c.Get("role").(string); !ok || role != "ADMIN" {
            t.Fatalf("role = %v, want ADMIN", c.Get("role"))
        }
    })

    t.Run("missing header is rejected", func(t *testing.T) {
        rec, _ := runJWT(t, "")
        if rec.Code != http.StatusUnauthorized {
            t.Fatalf("status = %d, want 401", rec.Code)
        }
    })

    t.Run("token signed with another secret is rejected", func(t *testing.T) {
        at, err := utils.NewAccessToken("some-other-secret", 7, "USER", 5)
        if err != nil {
            t.Fatalf("issue token: %v", err)
        }
        rec, _ := runJWT(t, "Bearer "+at.Token)
        if rec.Code != http.StatusUnauthorized {
            t.Fatalf("status = %d, want 401", rec.Code)
        }
    })

    t.Run("garbage token is rejected", func(t *testing.T) {
        rec, _ := runJWT(t, "Bearer not.a.jwt")
        if rec.Code != http.StatusUnauthorized {
            t.Fatalf("status = %d, want 401", rec.Code)
        }
    })
}

func TestRequireRole(t *testing.T) {
    run := func(role interface{}, allowed ...string) *httptest.ResponseRecorder {
        e := echo.New()
        req := httptest.NewRequest(http.MethodGet, "/", nil)
        rec := httptest.NewRecorder()
        c := e.NewContext(req, rec)
        if role != nil {
            c.Set("role", role)
        }
        h := RequireRole(allowed...)(func(c echo.Context) error {
            return c.NoContent(http.StatusOK)
        })
        if err := h(c); err != nil {
            t.Fatalf("middleware returned error: %v", err)
        }
        return rec
    }

    if rec := run("ADMIN", "ADMIN"); rec.Code != http.StatusOK {
        t.Errorf("admin on admin route: status = %d, want 200", rec.Code)
    }
    if rec := run("USER", "USER", "ADMIN"); rec.Code != http.StatusOK {
        t.Errorf("user on shared route: status = %d, want 200", rec.Code)
    }
    if rec := run("USER", "ADMIN"); rec.Code != http.StatusForbidden {
        t.Errorf("user on admin route: status = %d, want 403", rec.Code)
    }
    if rec := run(nil, "ADMIN"); rec.Code != http.StatusForbidden {
        t.Errorf("missing role: status = %d, want 403", rec.Code)
    }
}
