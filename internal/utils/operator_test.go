package utils

import (
    "errors"
    "testing"
    "time"
)

func TestOperatorToken_RoundTrip(t *testing.T) {
    raw, exp, err := NewOperatorToken("op-secret", "alice", time.Hour)
    if err != nil {
        t.Fatalf("NewOperatorToken: %v", err)
    }
    if !exp.After(time.Now()) {
        t.Fatalf("expiry %v is not in the future", exp)
    }
    claims, err := ParseOperatorToken("op-secret", raw)
    if err != nil {
        t.Fatalf("ParseOperatorToken: %v", err)
    }
    if claims.Subject != "alice" || claims.Role != RoleOperator {
        t.Fatalf("claims = %+v", claims)
    }
}

func TestOperatorToken_Rejected(t *testing.T) {
    raw, _, err := NewOperatorToken("op-secret", "alice", time.Hour)
    if err != nil {
        t.Fatal(err)
    }
    expired, _, err := NewOperatorToken("op-secret", "alice", -time.Minute)
    if err != nil {
        t.Fatal(err)
    }
    // a session token has no role claim
    session, err := NewSessionToken("op-secret", "sess-1", 1, time.Hour)
    if err != nil {
        t.Fatal(err)
    }

    tests := []struct {
        name, secret, raw string
    }{
        {"wrong secret", "other", raw},
        {"expired", "op-secret", expired},
        {"session token", "op-secret", session.Token},
        {"garbage", "op-secret", "x.y.z"},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            if _, err := ParseOperatorToken(tt.secret, tt.raw); !errors.Is(err, ErrInvalidOperatorToken) {
                t.Fatalf("error = %v, want ErrInvalidOperatorToken", err)
            }
        })
    }
}
