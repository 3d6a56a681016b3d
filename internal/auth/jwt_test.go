package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenIssuer_GenerateAndParse(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"), 0)

	if issuer.TTL() != DefaultTokenTTL {
		t.Errorf("TTL = %v, want %v", issuer.TTL(), DefaultTokenTTL)
	}

	token, err := issuer.Generate("user-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	userID, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("userID = %q, want %q", userID, "user-1")
	}
}

func TestTokenIssuer_RejectsOtherSecret(t *testing.T) {
	token, err := NewTokenIssuer([]byte("secret-a"), time.Minute).Generate("user-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	_, err = NewTokenIssuer([]byte("secret-b"), time.Minute).Parse(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenIssuer_RejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"), 300*time.Second)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return issued }

	token, err := issuer.Generate("user-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	issuer.now = func() time.Time { return issued.Add(299 * time.Second) }
	if _, err := issuer.Parse(token); err != nil {
		t.Errorf("token should be valid before expiry: %v", err)
	}

	issuer.now = func() time.Time { return issued.Add(301 * time.Second) }
	if _, err := issuer.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenIssuer_RejectsUnsignedToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: "user-1",
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build unsigned token: %v", err)
	}

	if _, err := NewTokenIssuer([]byte("secret"), 0).Parse(signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenIssuer_RejectsTokenWithoutUserID(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"), 0)
	token, err := issuer.Generate("")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := issuer.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("error = %v, want ErrInvalidToken", err)
	}
}
