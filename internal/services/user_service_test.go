package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	domain "github.com/silverline-jewels/storefront-api/internal/domain"
)

func newUserTestService(t *testing.T, users *stubUserRepository) UserService {
	t.Helper()
	svc, err := NewUserService(UserServiceDeps{
		Users:       users,
		Clock:       func() time.Time { return time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC) },
		IDGenerator: func() string { return "TEST00000001" },
		HashCost:    bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("NewUserService returned error: %v", err)
	}
	return svc
}

func TestUserRegisterHashesPassword(t *testing.T) {
	var inserted domain.User
	users := &stubUserRepository{
		insertFunc: func(ctx context.Context, user domain.User) error {
			inserted = user
			return nil
		},
	}
	svc := newUserTestService(t, users)

	user, err := svc.Register(context.Background(), RegisterUserCommand{
		Username:  "Asha.K",
		Email:     "Asha@Example.com",
		Password:  "correct-horse",
		FirstName: "Asha",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if user.Username != "asha.k" || user.Email != "asha@example.com" {
		t.Fatalf("expected normalised identity, got %+v", user)
	}
	if user.PasswordHash != "" {
		t.Fatal("password hash must not leave the service")
	}
	if inserted.PasswordHash == "" || inserted.PasswordHash == "correct-horse" {
		t.Fatalf("expected a bcrypt hash, got %q", inserted.PasswordHash)
	}
	if bcrypt.CompareHashAndPassword([]byte(inserted.PasswordHash), []byte("correct-horse")) != nil {
		t.Fatal("stored hash does not match the password")
	}
}

func TestUserRegisterValidation(t *testing.T) {
	users := &stubUserRepository{
		insertFunc: func(ctx context.Context, user domain.User) error {
			t.Fatal("insert must not run for invalid input")
			return nil
		},
	}
	svc := newUserTestService(t, users)

	cases := []struct {
		name string
		cmd  RegisterUserCommand
	}{
		{"short username", RegisterUserCommand{Username: "ab", Email: "a@b.io", Password: "longenough"}},
		{"bad email", RegisterUserCommand{Username: "asha", Email: "not-an-email", Password: "longenough"}},
		{"short password", RegisterUserCommand{Username: "asha", Email: "a@b.io", Password: "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), tc.cmd); !errors.Is(err, ErrUserInvalidInput) {
				t.Fatalf("expected ErrUserInvalidInput, got %v", err)
			}
		})
	}
}

func TestUserRegisterDuplicateUsername(t *testing.T) {
	users := &stubUserRepository{
		insertFunc: func(ctx context.Context, user domain.User) error {
			return conflictErr()
		},
	}
	svc := newUserTestService(t, users)

	_, err := svc.Register(context.Background(), RegisterUserCommand{
		Username: "asha", Email: "a@b.io", Password: "longenough",
	})
	if !errors.Is(err, ErrUserDuplicate) {
		t.Fatalf("expected ErrUserDuplicate, got %v", err)
	}
}

func TestUserAuthenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	users := &stubUserRepository{
		findByUsernameFunc: func(ctx context.Context, username string) (domain.User, error) {
			if username != "asha" {
				return domain.User{}, notFoundErr()
			}
			return domain.User{ID: "usr_1", Username: "asha", PasswordHash: string(hash)}, nil
		},
	}
	svc := newUserTestService(t, users)

	user, err := svc.Authenticate(context.Background(), "Asha", "correct-horse")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if user.ID != "usr_1" || user.PasswordHash != "" {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err := svc.Authenticate(context.Background(), "asha", "wrong"); !errors.Is(err, ErrUserInvalidCredentials) {
		t.Fatalf("expected ErrUserInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "nobody", "correct-horse"); !errors.Is(err, ErrUserInvalidCredentials) {
		t.Fatalf("expected ErrUserInvalidCredentials for unknown user, got %v", err)
	}
}

func TestUserUpdateProfile(t *testing.T) {
	var saved domain.User
	users := &stubUserRepository{
		findByIDFunc: func(ctx context.Context, userID string) (domain.User, error) {
			return domain.User{ID: userID, Username: "asha", Email: "old@b.io", PasswordHash: "hash"}, nil
		},
		updateProfileFunc: func(ctx context.Context, user domain.User) (domain.User, error) {
			saved = user
			return user, nil
		},
	}
	svc := newUserTestService(t, users)

	user, err := svc.UpdateProfile(context.Background(), UpdateProfileCommand{
		UserID:    "usr_1",
		Email:     "new@b.io",
		FirstName: "Asha",
		LastName:  "<b>K</b>",
		Phone:     "+91 98765 43210",
	})
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if saved.Email != "new@b.io" || saved.FirstName != "Asha" {
		t.Fatalf("unexpected saved profile %+v", saved)
	}
	if saved.LastName != "K" {
		t.Fatalf("expected markup stripped, got %q", saved.LastName)
	}
	if user.PasswordHash != "" {
		t.Fatal("password hash must not leave the service")
	}
}
