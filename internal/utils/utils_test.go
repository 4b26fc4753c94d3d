package utils

import (
    "testing"

    "github.com/golang-jwt/jwt/v5"
    "golang.org/x/crypto/bcrypt"
)

func TestAccessTokenClaims(t *testing.T) {
    tok, err := NewAccessToken("s3cret", 7, "STUDENT", "2101", 15)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
    if err != nil || !parsed.Valid {
        t.Fatalf("parse: %v", err)
    }
    claims := parsed.Claims.(jwt.MapClaims)
    if claims["sub"].(float64) != 7 || claims["role"] != "STUDENT" || claims["roll_no"] != "2101" {
        t.Fatalf("unexpected claims %v", claims)
    }
    if _, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("other"), nil }); err == nil {
        t.Fatalf("token must not verify with another secret")
    }
}

func TestRefreshTokenHash(t *testing.T) {
    a, err := NewRefreshToken(7)
    if err != nil {
        t.Fatalf("NewRefreshToken: %v", err)
    }
    b, _ := NewRefreshToken(7)
    if len(a.Raw) != 96 || a.Raw == b.Raw {
        t.Fatalf("unexpected raw tokens %q %q", a.Raw, b.Raw)
    }
    if HashRefreshRaw(a.Raw) != HashRefreshRaw(a.Raw) || HashRefreshRaw(a.Raw) == HashRefreshRaw(b.Raw) {
        t.Fatalf("hash must be deterministic and distinct")
    }
    if len(HashRefreshRaw(a.Raw)) != 64 {
        t.Fatalf("expected hex sha256")
    }
}

func TestPasswordRoundTrip(t *testing.T) {
    h, err := HashPassword("pa55word", bcrypt.MinCost)
    if err != nil {
        t.Fatalf("HashPassword: %v", err)
    }
    if !VerifyPassword(h, "pa55word") || VerifyPassword(h, "wrong") {
        t.Fatalf("verify mismatch")
    }
}
