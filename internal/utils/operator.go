package utils

import (
    "errors" // errors for sentinel definitions
    "fmt"    // fmt wraps parse failures
    "time"   // token lifetime

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// RoleOperator is the role claim carried by tokens allowed to register
// venues.
const RoleOperator = "OPERATOR"

// ErrInvalidOperatorToken is returned when an operator token is malformed,
// expired, signed with another key or lacks a subject or role.
var ErrInvalidOperatorToken = errors.New("invalid operator token")

// OperatorClaims are the values carried inside an operator token.
type OperatorClaims struct {
    Subject string // sub, who the token was issued to
    Role    string // role
}

// NewOperatorToken signs an HS256 JWT for an operator.  Operator tokens are
// minted out of band (see cmd/optoken) and are never issued over HTTP.
func NewOperatorToken(secret, subject string, ttl time.Duration) (string, time.Time, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := jwt.MapClaims{
        "sub":  subject,
        "role": RoleOperator,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return "", time.Time{}, err
    }
    return signed, exp, nil
}

// ParseOperatorToken verifies raw and extracts its claims.  Only HMAC
// signatures are accepted and the exp claim is mandatory.
func ParseOperatorToken(secret, raw string) (OperatorClaims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
        }
        return []byte(secret), nil
    }, jwt.WithExpirationRequired())
    if err != nil || !tok.Valid {
        return OperatorClaims{}, fmt.Errorf("%w: %v", ErrInvalidOperatorToken, err)
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return OperatorClaims{}, ErrInvalidOperatorToken
    }
    sub, err := claims.GetSubject()
    if err != nil || sub == "" {
        return OperatorClaims{}, fmt.Errorf("%w: missing subject", ErrInvalidOperatorToken)
    }
    role, _ := claims["role"].(string)
    if role == "" {
        return OperatorClaims{}, fmt.Errorf("%w: missing role", ErrInvalidOperatorToken)
    }
    return OperatorClaims{Subject: sub, Role: role}, nil
}
