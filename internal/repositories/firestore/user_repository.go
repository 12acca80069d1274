package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/silverline-jewels/storefront-api/internal/domain"
	pfirestore "github.com/silverline-jewels/storefront-api/internal/platform/firestore"
)

const (
	userCollection     = "users"
	usernameCollection = "usernames"
)

type userDocument struct {
	Username     string    `firestore:"username"`
	Email        string    `firestore:"email"`
	PasswordHash string    `firestore:"passwordHash"`
	FirstName    string    `firestore:"firstName"`
	LastName     string    `firestore:"lastName"`
	Phone        string    `firestore:"phone"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

// usernameDocument reserves a username and points back at its owner.
type usernameDocument struct {
	UserID    string    `firestore:"userId"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// UserRepository persists account records in Firestore. Username uniqueness
// is enforced through a reservation document created in the same transaction
// as the user record.
type UserRepository struct {
	provider  *pfirestore.Provider
	users     *pfirestore.BaseRepository[userDocument]
	usernames *pfirestore.BaseRepository[usernameDocument]
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	return &UserRepository{
		provider:  provider,
		users:     pfirestore.NewBaseRepository[userDocument](provider, userCollection, nil, nil),
		usernames: pfirestore.NewBaseRepository[usernameDocument](provider, usernameCollection, nil, nil),
	}, nil
}

// Insert creates the user together with its username reservation. A taken
// username surfaces as a conflict.
func (r *UserRepository) Insert(ctx context.Context, user domain.User) error {
	if r == nil || r.provider == nil {
		return errors.New("user repository not initialised")
	}
	if strings.TrimSpace(user.ID) == "" {
		return errors.New("user repository: user id is required")
	}
	username := normaliseUsername(user.Username)
	if username == "" {
		return errors.New("user repository: username is required")
	}

	userRef, err := r.users.DocumentRef(ctx, user.ID)
	if err != nil {
		return err
	}
	usernameRef, err := r.usernames.DocumentRef(ctx, username)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	doc := fromDomainUser(user, now)

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(usernameRef, usernameDocument{UserID: user.ID, CreatedAt: now}); err != nil {
			return err
		}
		return tx.Create(userRef, doc)
	})
	if err != nil {
		return pfirestore.WrapError("users.insert", err)
	}
	return nil
}

// FindByID loads the account record by user ID.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	if r == nil || r.users == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}

	doc, err := r.users.Get(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	return toDomainUser(doc.ID, doc.Data), nil
}

// FindByUsername resolves the username reservation and loads its owner.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	if r == nil || r.usernames == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}
	normalised := normaliseUsername(username)
	if normalised == "" {
		return domain.User{}, pfirestore.NewNotFound("usernames.get", errors.New("username is empty"))
	}

	reservation, err := r.usernames.Get(ctx, normalised)
	if err != nil {
		return domain.User{}, err
	}
	return r.FindByID(ctx, reservation.Data.UserID)
}

// UpdateProfile mutates the editable profile fields, leaving the username
// and credentials untouched.
func (r *UserRepository) UpdateProfile(ctx context.Context, user domain.User) (domain.User, error) {
	if r == nil || r.users == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}
	if strings.TrimSpace(user.ID) == "" {
		return domain.User{}, errors.New("user repository: user id is required")
	}

	updates := []firestore.Update{
		{Path: "email", Value: strings.TrimSpace(user.Email)},
		{Path: "firstName", Value: strings.TrimSpace(user.FirstName)},
		{Path: "lastName", Value: strings.TrimSpace(user.LastName)},
		{Path: "phone", Value: strings.TrimSpace(user.Phone)},
		{Path: "updatedAt", Value: time.Now().UTC()},
	}
	if _, err := r.users.Update(ctx, user.ID, updates); err != nil {
		return domain.User{}, err
	}
	return r.FindByID(ctx, user.ID)
}

func normaliseUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func fromDomainUser(user domain.User, now time.Time) userDocument {
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return userDocument{
		Username:     normaliseUsername(user.Username),
		Email:        strings.TrimSpace(user.Email),
		PasswordHash: user.PasswordHash,
		FirstName:    strings.TrimSpace(user.FirstName),
		LastName:     strings.TrimSpace(user.LastName),
		Phone:        strings.TrimSpace(user.Phone),
		CreatedAt:    createdAt,
		UpdatedAt:    now,
	}
}

func toDomainUser(id string, doc userDocument) domain.User {
	return domain.User{
		ID:           id,
		Username:     doc.Username,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		FirstName:    doc.FirstName,
		LastName:     doc.LastName,
		Phone:        doc.Phone,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}
