package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	domain "github.com/silverline-jewels/storefront-api/internal/domain"
	"github.com/silverline-jewels/storefront-api/internal/repositories"
)

const (
	userIDPrefix      = "usr_"
	minPasswordLength = 8
)

var (
	// ErrUserInvalidInput indicates missing or malformed registration or profile fields.
	ErrUserInvalidInput = errors.New("user: invalid input")
	// ErrUserDuplicate indicates the username is already taken.
	ErrUserDuplicate = errors.New("user: username already exists")
	// ErrUserNotFound indicates the account does not exist.
	ErrUserNotFound = errors.New("user: not found")
	// ErrUserInvalidCredentials indicates the username/password pair did not match.
	ErrUserInvalidCredentials = errors.New("user: invalid credentials")
	// ErrUserUnavailable indicates the account store is unavailable.
	ErrUserUnavailable = errors.New("user: unavailable")

	usernamePattern = regexp.MustCompile(`^[a-z0-9_.-]{3,30}$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// UserServiceDeps wires the dependencies for the user service.
type UserServiceDeps struct {
	Users repositories.UserRepository
	Clock func() time.Time
	// IDGenerator overrides entity id generation, primarily for tests.
	IDGenerator func() string
	// HashCost overrides the bcrypt cost, primarily to speed up tests.
	HashCost int
}

type userService struct {
	users     repositories.UserRepository
	now       func() time.Time
	newID     func() string
	hashCost  int
	sanitizer *bluemonday.Policy
}

// NewUserService constructs a UserService validating required dependencies.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errors.New("user service: user repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	cost := deps.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &userService{
		users: deps.Users,
		now: func() time.Time {
			return clock().UTC()
		},
		newID:     idGen,
		hashCost:  cost,
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

// Register creates a new account with a bcrypt password hash. The username
// reservation is transactional, so a duplicate registration loses cleanly.
func (s *userService) Register(ctx context.Context, cmd RegisterUserCommand) (User, error) {
	username := strings.ToLower(strings.TrimSpace(cmd.Username))
	if !usernamePattern.MatchString(username) {
		return User{}, fmt.Errorf("%w: username must be 3-30 characters of a-z, 0-9, '_', '.', '-'", ErrUserInvalidInput)
	}
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if !emailPattern.MatchString(email) {
		return User{}, fmt.Errorf("%w: email is invalid", ErrUserInvalidInput)
	}
	if len(cmd.Password) < minPasswordLength {
		return User{}, fmt.Errorf("%w: password must be at least %d characters", ErrUserInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.hashCost)
	if err != nil {
		return User{}, fmt.Errorf("%w: hash password: %v", ErrUserUnavailable, err)
	}

	now := s.now()
	user := domain.User{
		ID:           userIDPrefix + s.newID(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    s.cleanText(cmd.FirstName),
		LastName:     s.cleanText(cmd.LastName),
		Phone:        strings.TrimSpace(cmd.Phone),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Insert(ctx, user); err != nil {
		return User{}, s.translateRepoError(err)
	}
	user.PasswordHash = ""
	return user, nil
}

// Authenticate checks the username/password pair. A missing account and a
// wrong password report the same error so probing stays uninformative.
func (s *userService) Authenticate(ctx context.Context, username string, password string) (User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return User{}, ErrUserInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return User{}, ErrUserInvalidCredentials
		}
		return User{}, s.translateRepoError(err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return User{}, ErrUserInvalidCredentials
	}
	user.PasswordHash = ""
	return user, nil
}

// GetProfile loads the account record without the password hash.
func (s *userService) GetProfile(ctx context.Context, userID string) (User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return User{}, s.translateRepoError(err)
	}
	user.PasswordHash = ""
	return user, nil
}

// UpdateProfile edits the mutable profile fields.
func (s *userService) UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (User, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if email != "" && !emailPattern.MatchString(email) {
		return User{}, fmt.Errorf("%w: email is invalid", ErrUserInvalidInput)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return User{}, s.translateRepoError(err)
	}

	if email != "" {
		user.Email = email
	}
	user.FirstName = s.cleanText(cmd.FirstName)
	user.LastName = s.cleanText(cmd.LastName)
	user.Phone = strings.TrimSpace(cmd.Phone)
	user.UpdatedAt = s.now()

	updated, err := s.users.UpdateProfile(ctx, user)
	if err != nil {
		return User{}, s.translateRepoError(err)
	}
	updated.PasswordHash = ""
	return updated, nil
}

func (s *userService) cleanText(value string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(value))
}

func (s *userService) translateRepoError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrUserNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrUserDuplicate, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrUserUnavailable, err)
}
