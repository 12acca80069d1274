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

	domain "github.com/silverline-jewels/storefront-api/internal/domain"
	"github.com/silverline-jewels/storefront-api/internal/repositories"
)

const addressIDPrefix = "adr_"

var (
	// ErrAddressInvalidInput indicates a malformed address payload.
	ErrAddressInvalidInput = errors.New("address: invalid input")
	// ErrAddressNotFound indicates the address does not exist for the caller.
	ErrAddressNotFound = errors.New("address: not found")
	// ErrAddressInUse indicates the address is still referenced by an order
	// and cannot be deleted.
	ErrAddressInUse = errors.New("address: referenced by an order")
	// ErrAddressUnavailable indicates the address store is unavailable.
	ErrAddressUnavailable = errors.New("address: unavailable")

	addressPhonePattern  = regexp.MustCompile(`^[0-9+()\-\s]{6,20}$`)
	addressPostalPattern = regexp.MustCompile(`^[0-9A-Za-z\-\s]{3,16}$`)
)

// AddressServiceDeps wires the dependencies for the address service.
type AddressServiceDeps struct {
	Addresses repositories.AddressRepository
	Clock     func() time.Time
	// IDGenerator overrides entity id generation, primarily for tests.
	IDGenerator func() string
}

type addressService struct {
	addresses repositories.AddressRepository
	now       func() time.Time
	newID     func() string
	sanitizer *bluemonday.Policy
}

// NewAddressService constructs an AddressService validating required dependencies.
func NewAddressService(deps AddressServiceDeps) (AddressService, error) {
	if deps.Addresses == nil {
		return nil, errors.New("address service: address repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &addressService{
		addresses: deps.Addresses,
		now: func() time.Time {
			return clock().UTC()
		},
		newID:     idGen,
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

// ListAddresses returns the caller's addresses, default first.
func (s *addressService) ListAddresses(ctx context.Context, userID string) ([]Address, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrAddressInvalidInput)
	}
	addresses, err := s.addresses.List(ctx, userID)
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	return addresses, nil
}

// CreateAddress stores a new shipping address for the caller. When the new
// address is flagged default the previous default is cleared in the same
// transaction.
func (s *addressService) CreateAddress(ctx context.Context, cmd UpsertAddressCommand) (Address, error) {
	address, err := s.buildAddress(cmd)
	if err != nil {
		return Address{}, err
	}
	now := s.now()
	address.ID = addressIDPrefix + s.newID()
	address.CreatedAt = now
	address.UpdatedAt = now

	created, err := s.addresses.Insert(ctx, address)
	if err != nil {
		return Address{}, s.translateRepoError(err)
	}
	return created, nil
}

// UpdateAddress rewrites an existing address owned by the caller.
func (s *addressService) UpdateAddress(ctx context.Context, cmd UpsertAddressCommand) (Address, error) {
	addressID := strings.TrimSpace(cmd.AddressID)
	if addressID == "" {
		return Address{}, fmt.Errorf("%w: address id is required", ErrAddressInvalidInput)
	}
	address, err := s.buildAddress(cmd)
	if err != nil {
		return Address{}, err
	}

	existing, err := s.addresses.Get(ctx, address.UserID, addressID)
	if err != nil {
		return Address{}, s.translateRepoError(err)
	}
	address.ID = existing.ID
	address.CreatedAt = existing.CreatedAt
	address.UpdatedAt = s.now()

	updated, err := s.addresses.Update(ctx, address)
	if err != nil {
		return Address{}, s.translateRepoError(err)
	}
	return updated, nil
}

// DeleteAddress removes an address owned by the caller.
func (s *addressService) DeleteAddress(ctx context.Context, userID string, addressID string) error {
	userID = strings.TrimSpace(userID)
	addressID = strings.TrimSpace(addressID)
	if userID == "" || addressID == "" {
		return fmt.Errorf("%w: user id and address id are required", ErrAddressInvalidInput)
	}
	if err := s.addresses.Delete(ctx, userID, addressID); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *addressService) buildAddress(cmd UpsertAddressCommand) (Address, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return Address{}, fmt.Errorf("%w: user id is required", ErrAddressInvalidInput)
	}

	fullName := s.cleanText(cmd.FullName)
	if fullName == "" {
		return Address{}, fmt.Errorf("%w: full name is required", ErrAddressInvalidInput)
	}
	line1 := s.cleanText(cmd.Line1)
	if line1 == "" {
		return Address{}, fmt.Errorf("%w: address line 1 is required", ErrAddressInvalidInput)
	}
	city := s.cleanText(cmd.City)
	if city == "" {
		return Address{}, fmt.Errorf("%w: city is required", ErrAddressInvalidInput)
	}
	state := s.cleanText(cmd.State)
	if state == "" {
		return Address{}, fmt.Errorf("%w: state is required", ErrAddressInvalidInput)
	}
	phone := strings.TrimSpace(cmd.Phone)
	if !addressPhonePattern.MatchString(phone) {
		return Address{}, fmt.Errorf("%w: phone number is invalid", ErrAddressInvalidInput)
	}
	postalCode := strings.TrimSpace(cmd.PostalCode)
	if !addressPostalPattern.MatchString(postalCode) {
		return Address{}, fmt.Errorf("%w: postal code is invalid", ErrAddressInvalidInput)
	}
	country := strings.TrimSpace(cmd.Country)
	if country == "" {
		country = "India"
	}

	return domain.Address{
		UserID:     userID,
		FullName:   fullName,
		Phone:      phone,
		Line1:      line1,
		Line2:      s.cleanText(cmd.Line2),
		City:       city,
		State:      state,
		PostalCode: postalCode,
		Country:    country,
		IsDefault:  cmd.IsDefault,
	}, nil
}

func (s *addressService) cleanText(value string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(value))
}

func (s *addressService) translateRepoError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrAddressNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrAddressInUse, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrAddressUnavailable, err)
}
