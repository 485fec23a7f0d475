package middleware

import (
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/group-invite-service/internal/config"
)

func rateCtx(t *testing.T) echo.Context {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/v1/invites", nil)
    return e.NewContext(req, httptest.NewRecorder())
}

func TestCurrentUserIDNormalizesClaimTypes(t *testing.T) {
    cases := []struct {
        name  string
        value interface{}
        want  string
    }{
        {"decoded jwt subject", float64(42), "42"},
        {"string subject", "42", "42"},
        {"uint64", uint64(42), "42"},
        {"int", 42, "42"},
        {"unset", nil, "anon"},
        {"empty string", "", "anon"},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            c := rateCtx(t)
            if tc.value != nil {
                c.Set("user_id", tc.value)
            }
            if got := currentUserID(c); got != tc.want {
                t.Fatalf("currentUserID(%v) = %q, want %q", tc.value, got, tc.want)
            }
        })
    }
}

func TestBuildRateKeyUsesAuthenticatedUser(t *testing.T) {
    cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}
    c := rateCtx(t)
    c.Set("user_id", float64(7)) // as stored by JWTAuth

    key := buildRateKey(cfg, c)
    if !strings.Contains(key, ":user:7") {
        t.Fatalf("expected user-scoped key, got %q", key)
    }
    if strings.Contains(key, "anon") {
        t.Fatalf("authenticated request fell back to anon bucket: %q", key)
    }
}
