// Package utils holds the token and password primitives shared by the
// auth handlers and the JWT middleware.
package utils

import (
    "crypto/rand"
    "crypto/sha256"
    "encoding/hex"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// AccessToken is a signed HS256 JWT plus its expiry. It is short-lived
// and travels in the Authorization header.
type AccessToken struct {
    Token string
    Exp   time.Time // UTC
}

// RefreshToken is the long-lived opaque token a client trades in for
// new access tokens. Raw goes to the client; only the SHA-256 hash of
// Raw ever reaches the database.
type RefreshToken struct {
    Raw string
    Exp time.Time // UTC
}

// NewAccessToken signs an HS256 JWT carrying the user ID as sub and
// the role as a custom claim, valid for ttlMin minutes.
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
        "sub":  userID,
        "role": role,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    })
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken draws 48 random bytes (96 hex characters) and stamps
// an expiry ttlDays from now.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
    raw, err := randomHex(48)
    if err != nil {
        return RefreshToken{}, err
    }
    return RefreshToken{
        Raw: raw,
        Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
    }, nil
}

// HashRefreshRaw is the storage form of a refresh token. A leaked
// token table on its own cannot refresh a session.
func HashRefreshRaw(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
