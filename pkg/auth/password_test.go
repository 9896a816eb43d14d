package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_Matches(t *testing.T) {
	hasher := NewPasswordHasherWithCost(bcrypt.MinCost)

	hash, err := hasher.Hash("admin123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if !hasher.Matches("admin123", hash) {
		t.Error("correct password must match")
	}
	if hasher.Matches("wrong", hash) {
		t.Error("wrong password must not match")
	}
	if hasher.Matches("", hash) {
		t.Error("empty password must not match")
	}
}

func TestPasswordHasher_SaltedEncodings(t *testing.T) {
	hasher := NewPasswordHasherWithCost(bcrypt.MinCost)

	h1, err := hasher.Hash("correct")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	h2, err := hasher.Hash("correct")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if h1 == h2 {
		t.Error("two hashes of the same input should differ (random salt)")
	}
	if !hasher.Matches("correct", h1) || !hasher.Matches("correct", h2) {
		t.Error("both encodings must verify against the original input")
	}
}

func TestNewPasswordHasherWithCost_OutOfRange(t *testing.T) {
	hasher := NewPasswordHasherWithCost(99)

	hash, err := hasher.Hash("pw")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("Cost failed: %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Errorf("out-of-range cost should fall back to default, got %d", cost)
	}
}
