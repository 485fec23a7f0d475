package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/group-invite-service/internal/utils"
)

const testSecret = "test-secret"

func protectedEcho(roles ...string) *echo.Echo {
    e := echo.New()
    g := e.Group("/v1", JWTAuth(testSecret))
    if len(roles) > 0 {
        g.Use(RequireRole(roles...))
    }
    g.GET("/ping", func(c echo.Context) error {
        return c.JSON(http.StatusOK, echo.Map{
            "user_id": c.Get("user_id"),
            "role":    c.Get("role"),
        })
    })
    return e
}

func doGet(e *echo.Echo, token string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
    if token != "" {
        req.Header.Set("Authorization", "Bearer "+token)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestJWTAuthRejectsMissingToken(t *testing.T) {
    rec := doGet(protectedEcho(), "")
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("expected 401, got %d", rec.Code)
    }
}

func TestJWTAuthRejectsGarbageToken(t *testing.T) {
    rec := doGet(protectedEcho(), "not-a-jwt")
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("expected 401, got %d", rec.Code)
    }
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
    tok, err := utils.NewAccessToken("other-secret", 7, "CUSTOMER", 15)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    rec := doGet(protectedEcho(), tok.Token)
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("expected 401, got %d", rec.Code)
    }
}

func TestJWTAuthRejectsExpiredToken(t *testing.T) {
    tok, err := utils.NewAccessToken(testSecret, 7, "CUSTOMER", -5)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    rec := doGet(protectedEcho(), tok.Token)
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("expected 401, got %d", rec.Code)
    }
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
    tok, err := utils.NewAccessToken(testSecret, 7, "CUSTOMER", 15)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    rec := doGet(protectedEcho(), tok.Token)
    if rec.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
    }
}

func TestRequireRoleFiltersByRole(t *testing.T) {
    e := protectedEcho("OWNER", "CUSTOMER")

    tok, err := utils.NewAccessToken(testSecret, 7, "CUSTOMER", 15)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    if rec := doGet(e, tok.Token); rec.Code != http.StatusOK {
        t.Fatalf("allowed role: expected 200, got %d", rec.Code)
    }

    tok, err = utils.NewAccessToken(testSecret, 7, "GUEST", 15)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    if rec := doGet(e, tok.Token); rec.Code != http.StatusForbidden {
        t.Fatalf("disallowed role: expected 403, got %d", rec.Code)
    }
}
