package soci

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestPasswordHasherHashAndCompareArgon2(t *testing.T) {
	t.Parallel()

	h, err := newPasswordHasher(HashConfig{})
	if err != nil {
		t.Fatalf("newPasswordHasher() error = %v", err)
	}

	const secret = "correct-horse"
	hash, err := h.hash(context.Background(), secret)
	if err != nil {
		t.Fatalf("hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("expected argon2id hash prefix, got %q", hash)
	}
	if err := h.compare(context.Background(), hash, secret); err != nil {
		t.Fatalf("compare() error = %v", err)
	}
	if err := h.compare(context.Background(), hash, "mismatch"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestPasswordHasherCompareBcrypt(t *testing.T) {
	t.Parallel()

	h, err := newPasswordHasher(HashConfig{})
	if err != nil {
		t.Fatalf("newPasswordHasher() error = %v", err)
	}

	const secret = "bcrypt-secret"
	hash, err := h.hashWith(context.Background(), AlgorithmBcrypt, secret)
	if err != nil {
		t.Fatalf("hashWith(bcrypt) error = %v", err)
	}
	if err := h.compare(context.Background(), hash, secret); err != nil {
		t.Fatalf("compare bcrypt error = %v", err)
	}
}

func TestPasswordHasherCompareUnknownFormat(t *testing.T) {
	t.Parallel()

	h, err := newPasswordHasher(HashConfig{})
	if err != nil {
		t.Fatalf("newPasswordHasher() error = %v", err)
	}

	if err := h.compare(context.Background(), "plain-text", "secret"); !errors.Is(err, ErrUnknownHashFormat) {
		t.Fatalf("expected ErrUnknownHashFormat, got %v", err)
	}
}

func TestPasswordHasherRejectsEmptySecret(t *testing.T) {
	h, err := newPasswordHasher(HashConfig{})
	if err != nil {
		t.Fatalf("newPasswordHasher() error = %v", err)
	}
	if _, err := h.hash(context.Background(), ""); !errors.Is(err, ErrPasswordEmpty) {
		t.Fatalf("expected ErrPasswordEmpty, got %v", err)
	}
}
