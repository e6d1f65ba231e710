package backend

import (
	"testing"
	"time"
)

func TestServiceTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, err := IssueServiceToken(secret, "user-42", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	subject, err := VerifyServiceToken(secret, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if subject != "user-42" {
		t.Errorf("subject = %q, want user-42", subject)
	}
}

func TestServiceTokenExpired(t *testing.T) {
	secret := []byte("test-secret")

	token, err := IssueServiceToken(secret, "user-42", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := VerifyServiceToken(secret, token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestServiceTokenWrongSecret(t *testing.T) {
	token, err := IssueServiceToken([]byte("right"), "user-42", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := VerifyServiceToken([]byte("wrong"), token); err == nil {
		t.Error("expected wrong-secret token to be rejected")
	}
}
