package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(bcrypt.MinCost)

	digest, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if digest == "secret1" || !strings.HasPrefix(digest, "$2") {
		t.Fatalf("digest does not look like bcrypt: %q", digest)
	}

	ok, err := h.Verify("secret1", digest)
	if err != nil || !ok {
		t.Fatalf("Verify(correct) = %v, %v", ok, err)
	}

	ok, err = h.Verify("secret2", digest)
	if err != nil {
		t.Fatalf("mismatch must not be an error, got %v", err)
	}
	if ok {
		t.Fatal("Verify(wrong) must be false")
	}
}

func TestBcryptHasher_SaltedDigests(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(bcrypt.MinCost)

	a, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	b, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if a == b {
		t.Fatal("same plaintext must hash to different digests")
	}
}

func TestBcryptHasher_CorruptDigestIsFault(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(bcrypt.MinCost)

	ok, err := h.Verify("secret1", "not-a-bcrypt-digest")
	if err == nil {
		t.Fatal("expected a fault for a corrupt digest")
	}
	if ok {
		t.Fatal("a fault must never report a match")
	}
}

func TestBcryptHasher_HashTooLongIsFault(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(bcrypt.MinCost)

	if _, err := h.Hash(strings.Repeat("x", 73)); err == nil {
		t.Fatal("expected error for a password longer than 72 bytes")
	}
}

func TestNewBcryptHasher_CostFallback(t *testing.T) {
	t.Parallel()

	if got := NewBcryptHasher(0).cost; got != bcrypt.DefaultCost {
		t.Fatalf("cost = %d, want %d", got, bcrypt.DefaultCost)
	}
	if got := NewBcryptHasher(bcrypt.MaxCost + 1).cost; got != bcrypt.DefaultCost {
		t.Fatalf("cost = %d, want %d", got, bcrypt.DefaultCost)
	}
	if got := NewBcryptHasher(12).cost; got != 12 {
		t.Fatalf("cost = %d, want 12", got)
	}
}
