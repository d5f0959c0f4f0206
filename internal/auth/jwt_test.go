package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
)

func TestVerifyRoundTrip(t *testing.T) {
	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	verifier, err := NewVerifier("test-secret")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	identity := Identity{UserID: node.Generate(), Email: "User@Example.com"}
	token, err := verifier.Sign(identity, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, err := verifier.FromAuthorizationHeader("Bearer " + token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.UserID != identity.UserID {
		t.Fatalf("expected user id %s, got %s", identity.UserID, got.UserID)
	}
	if got.Email != "user@example.com" {
		t.Fatalf("expected lowercased email, got %s", got.Email)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	node, _ := snowflake.NewNode(5)
	verifier, _ := NewVerifier("test-secret")
	other, _ := NewVerifier("other-secret")

	identity := Identity{UserID: node.Generate(), Email: "user@example.com"}

	if _, err := verifier.FromAuthorizationHeader(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if _, err := verifier.FromAuthorizationHeader("Token abc"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong scheme, got %v", err)
	}

	forged, err := other.Sign(identity, time.Hour)
	if err != nil {
		t.Fatalf("sign forged: %v", err)
	}
	if _, err := verifier.FromAuthorizationHeader("Bearer " + forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}

	expired, err := verifier.Sign(identity, -time.Minute)
	if err != nil {
		t.Fatalf("sign expired: %v", err)
	}
	if _, err := verifier.Verify(expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}
