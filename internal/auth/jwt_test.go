package auth_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskhub/notifier/internal/auth"
)

const secret = "test-secret"

func TestGenerateAndParse(t *testing.T) {
	token, err := auth.Generate(secret, "u1", "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := auth.Parse(secret, token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.UserID != "u1" || claims.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	token, _ := auth.Generate(secret, "u1", "alice")

	if _, err := auth.Parse("other-secret", token); err != auth.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParse_Garbage(t *testing.T) {
	if _, err := auth.Parse(secret, "not.a.token"); err != auth.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

// Only HS256 is accepted: a token signed with another HMAC variant of the
// same secret still verifies cryptographically, so the method itself must
// be pinned.
func TestParse_WrongSigningMethod(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"user_id": "u1"})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := auth.Parse(secret, signed); err != auth.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for HS512 token, got %v", err)
	}
}

func TestParse_MissingUserID(t *testing.T) {
	token, _ := auth.Generate(secret, "", "alice")

	if _, err := auth.Parse(secret, token); err != auth.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for empty user id, got %v", err)
	}
}
