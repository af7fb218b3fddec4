package utils // package utils provides helpers for signing and verifying session tokens

import (
    "errors" // errors for sentinel definitions
    "fmt"    // fmt wraps parse failures
    "time"   // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidSessionToken is returned when a token is malformed, expired,
// signed with another key or lacks the expected claims.
var ErrInvalidSessionToken = errors.New("invalid session token")

// SessionToken is a signed JWT handed to the client when a selection
// session is opened.  The client presents it as a Bearer token on every
// later call so the server can find the session again.
type SessionToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// SessionClaims are the values carried inside a session token.
type SessionClaims struct {
    SessionID string // sub
    VenueID   uint64 // venue
}

// NewSessionToken builds and signs an HS256 JWT for a selection session.
// The subject is the session id and the venue claim records which layout
// the session was opened on.
func NewSessionToken(secret, sessionID string, venueID uint64, ttl time.Duration) (SessionToken, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := jwt.MapClaims{
        "sub":   sessionID,
        "venue": venueID,
        "exp":   exp.Unix(),
        "iat":   now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return SessionToken{}, err
    }
    return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies raw and extracts its claims.  Only HMAC
// signatures are accepted.
func ParseSessionToken(secret, raw string) (SessionClaims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return SessionClaims{}, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return SessionClaims{}, ErrInvalidSessionToken
    }
    sub, err := claims.GetSubject()
    if err != nil || sub == "" {
        return SessionClaims{}, fmt.Errorf("%w: missing subject", ErrInvalidSessionToken)
    }
    // numeric claims decode as float64
    venue, _ := claims["venue"].(float64)
    return SessionClaims{SessionID: sub, VenueID: uint64(venue)}, nil
}
