package auth

import (
	"context"
	"errors"
	"testing"

	"identidraw-be/internal/store"
)

func newTestUserService(t *testing.T) *UserService {
	t.Helper()

	ms := store.NewMemoryStore()
	t.Cleanup(func() { ms.Close() })

	return NewUserService(StaticVerifier{}, ms)
}

func TestRegisterAndLookup(t *testing.T) {
	us := newTestUserService(t)
	ctx := context.Background()

	user, err := us.Register(ctx, "token-a", "Alice")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.ID == "" || user.Username != "Alice" {
		t.Fatalf("unexpected user: %+v", user)
	}

	found, err := us.Lookup(ctx, "token-a")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if found.ID != user.ID || found.Username != "Alice" {
		t.Fatalf("lookup returned a different user: %+v vs %+v", found, user)
	}
}

func TestRegisterSameSubjectIsIdempotent(t *testing.T) {
	us := newTestUserService(t)
	ctx := context.Background()

	first, err := us.Register(ctx, "token-a", "Alice")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// re-registering the same subject returns the existing profile,
	// even under a different requested username
	again, err := us.Register(ctx, "token-a", "SomeoneElse")
	if err != nil {
		t.Fatalf("re-register failed: %v", err)
	}
	if again.ID != first.ID || again.Username != "Alice" {
		t.Fatalf("re-register should return the original profile, got %+v", again)
	}
}

func TestRegisterUsernameTaken(t *testing.T) {
	us := newTestUserService(t)
	ctx := context.Background()

	if _, err := us.Register(ctx, "token-a", "Alice"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// uniqueness is case-insensitive
	if _, err := us.Register(ctx, "token-b", "alice"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("want ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	us := newTestUserService(t)
	ctx := context.Background()

	if _, err := us.Register(ctx, "token-a", "   "); !errors.Is(err, ErrUsernameRequired) {
		t.Fatalf("want ErrUsernameRequired, got %v", err)
	}
	if _, err := us.Register(ctx, "", "Alice"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestLookupUnregistered(t *testing.T) {
	us := newTestUserService(t)

	if _, err := us.Lookup(context.Background(), "token-x"); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("want ErrNotRegistered, got %v", err)
	}
}
