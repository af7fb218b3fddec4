package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/seat-picker/internal/config"
    "github.com/iliyamo/seat-picker/internal/utils"
)

func TestSessionAuth(t *testing.T) {
    tok, err := utils.NewSessionToken("secret", "sess-1", 9, time.Minute)
    if err != nil {
        t.Fatal(err)
    }

    tests := []struct {
        name   string
        header string
        want   int
    }{
        {"missing header", "", http.StatusUnauthorized},
        {"not bearer", "Basic abc", http.StatusUnauthorized},
        {"bad token", "Bearer nope", http.StatusUnauthorized},
        {"valid", "Bearer " + tok.Token, http.StatusOK},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            e := echo.New()
            req := httptest.NewRequest(http.MethodGet, "/", nil)
            if tt.header != "" {
                req.Header.Set("Authorization", tt.header)
            }
            rec := httptest.NewRecorder()
            c := e.NewContext(req, rec)

            h := SessionAuth("secret")(func(c echo.Context) error {
                if SessionID(c) != "sess-1" || c.Get(VenueIDKey) != uint64(9) {
                    t.Errorf("context = %v / %v", c.Get(SessionIDKey), c.Get(VenueIDKey))
                }
                return c.NoContent(http.StatusOK)
            })
            if err := h(c); err != nil {
                t.Fatal(err)
            }
            if rec.Code != tt.want {
                t.Fatalf("status = %d, want %d", rec.Code, tt.want)
            }
        })
    }
}

func TestBuildRateKey(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/v1/session/clicks", nil)
    req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/v1/session/clicks")

    cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "session_route"}
    if got := buildRateKey(cfg, c); got != "rl:ip:10.0.0.1:route:POST /v1/session/clicks" {
        t.Fatalf("anonymous key = %q", got)
    }
    c.Set(SessionIDKey, "s-1")
    if got := buildRateKey(cfg, c); got != "rl:session:s-1:route:POST /v1/session/clicks" {
        t.Fatalf("session key = %q", got)
    }
    cfg.KeyStrategy = "ip_session"
    if got := buildRateKey(cfg, c); got != "rl:ip:10.0.0.1:session:s-1" {
        t.Fatalf("ip_session key = %q", got)
    }
}

func TestMiddleware_PassThroughWithoutRedis(t *testing.T) {
    e := echo.New()
    calls := 0
    h := func(c echo.Context) error { calls++; return c.String(http.StatusOK, "ok") }

    wrapped := NewRedisCache(config.CacheConfig{Enabled: true}, nil)(NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil)(h))
    for i := 0; i < 3; i++ {
        rec := httptest.NewRecorder()
        if err := wrapped(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
            t.Fatal(err)
        }
        if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
            t.Fatalf("status %d, X-Cache %q", rec.Code, rec.Header().Get("X-Cache"))
        }
    }
    if calls != 3 {
        t.Fatalf("handler called %d times, want 3", calls)
    }
}

func TestCachePayload(t *testing.T) {
    hdr := http.Header{"Content-Type": []string{"application/json"}}
    bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
    if err != nil {
        t.Fatal(err)
    }
    status, gotHdr, body, ok := decodePayload(bs)
    if !ok || status != http.StatusOK || gotHdr.Get("Content-Type") != "application/json" || string(body) != `{"a":1}` {
        t.Fatalf("decoded %d %v %q %v", status, gotHdr, body, ok)
    }
    if _, _, _, ok := decodePayload(bs[:6]); ok {
        t.Fatal("short payload decoded")
    }
}

func TestTokenBucket_LocalFallback(t *testing.T) {
    e := echo.New()
    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       2,
        RefillTokens:   1,
        RefillInterval: time.Hour,
        TTL:            time.Hour,
        Prefix:         "rl",
        KeyStrategy:    "ip",
    }
    h := NewTokenBucket(cfg, nil)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

    hit := func(ip string) *httptest.ResponseRecorder {
        req := httptest.NewRequest(http.MethodPost, "/v1/session/clicks", nil)
        req.Header.Set(echo.HeaderXRealIP, ip)
        rec := httptest.NewRecorder()
        if err := h(e.NewContext(req, rec)); err != nil {
            t.Fatal(err)
        }
        return rec
    }

    for i := 0; i < 2; i++ {
        if rec := hit("10.0.0.1"); rec.Code != http.StatusOK {
            t.Fatalf("request %d: status %d", i, rec.Code)
        }
    }
    rec := hit("10.0.0.1")
    if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
        t.Fatalf("third request: status %d, Retry-After %q", rec.Code, rec.Header().Get("Retry-After"))
    }
    if rec := hit("10.0.0.2"); rec.Code != http.StatusOK {
        t.Fatalf("other caller limited: status %d", rec.Code)
    }
}

func TestRequireRole(t *testing.T) {
    e := echo.New()
    h := RequireRole(utils.RoleOperator)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

    tests := []struct {
        name string
        role any
        want int
    }{
        {"operator", utils.RoleOperator, http.StatusOK},
        {"other role", "CUSTOMER", http.StatusForbidden},
        {"missing", nil, http.StatusForbidden},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            rec := httptest.NewRecorder()
            c := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/venues", nil), rec)
            if tt.role != nil {
                c.Set(RoleKey, tt.role)
            }
            if err := h(c); err != nil {
                t.Fatal(err)
            }
            if rec.Code != tt.want {
                t.Fatalf("status = %d, want %d", rec.Code, tt.want)
            }
        })
    }
}

func TestOperatorAuth(t *testing.T) {
    raw, _, err := utils.NewOperatorToken("op", "alice", time.Minute)
    if err != nil {
        t.Fatal(err)
    }
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/v1/venues", nil)
    req.Header.Set("Authorization", "Bearer "+raw)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)

    h := OperatorAuth("op")(func(c echo.Context) error {
        if c.Get(OperatorKey) != "alice" || c.Get(RoleKey) != utils.RoleOperator {
            t.Errorf("context = %v / %v", c.Get(OperatorKey), c.Get(RoleKey))
        }
        return c.NoContent(http.StatusOK)
    })
    if err := h(c); err != nil {
        t.Fatal(err)
    }
    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d", rec.Code)
    }
}
