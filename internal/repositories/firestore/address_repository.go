package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/silverline-jewels/storefront-api/internal/domain"
	pfirestore "github.com/silverline-jewels/storefront-api/internal/platform/firestore"
)

const addressCollection = "addresses"

type addressDocument struct {
	UserID     string    `firestore:"userId"`
	FullName   string    `firestore:"fullName"`
	Phone      string    `firestore:"phone"`
	Line1      string    `firestore:"line1"`
	Line2      string    `firestore:"line2"`
	City       string    `firestore:"city"`
	State      string    `firestore:"state"`
	PostalCode string    `firestore:"postalCode"`
	Country    string    `firestore:"country"`
	IsDefault  bool      `firestore:"isDefault"`
	CreatedAt  time.Time `firestore:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

// AddressRepository stores shipping addresses. Every mutation that sets the
// default flag clears competing defaults in the same transaction, so a user
// never holds two defaults.
type AddressRepository struct {
	provider  *pfirestore.Provider
	addresses *pfirestore.BaseRepository[addressDocument]
}

// NewAddressRepository constructs a Firestore-backed address repository.
func NewAddressRepository(provider *pfirestore.Provider) (*AddressRepository, error) {
	if provider == nil {
		return nil, errors.New("address repository requires firestore provider")
	}
	return &AddressRepository{
		provider:  provider,
		addresses: pfirestore.NewBaseRepository[addressDocument](provider, addressCollection, nil, nil),
	}, nil
}

// List returns the user's addresses, default first, newest first after that.
func (r *AddressRepository) List(ctx context.Context, userID string) ([]domain.Address, error) {
	if r == nil || r.addresses == nil {
		return nil, errors.New("address repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("address repository: user id is required")
	}

	docs, err := r.addresses.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("userId", "==", userID).
			OrderBy("isDefault", firestore.Desc).
			OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}

	addresses := make([]domain.Address, 0, len(docs))
	for _, doc := range docs {
		addresses = append(addresses, toDomainAddress(doc.ID, doc.Data))
	}
	return addresses, nil
}

// Get loads a single address, treating another user's address as not found.
func (r *AddressRepository) Get(ctx context.Context, userID string, addressID string) (domain.Address, error) {
	if r == nil || r.addresses == nil {
		return domain.Address{}, errors.New("address repository not initialised")
	}

	doc, err := r.addresses.Get(ctx, addressID)
	if err != nil {
		return domain.Address{}, err
	}
	if doc.Data.UserID != strings.TrimSpace(userID) {
		return domain.Address{}, pfirestore.NewNotFound("addresses.get", fmt.Errorf("address %s not owned by caller", addressID))
	}
	return toDomainAddress(doc.ID, doc.Data), nil
}

// Insert creates the address. When the new address is flagged default, the
// previous default is cleared in the same transaction.
func (r *AddressRepository) Insert(ctx context.Context, addr domain.Address) (domain.Address, error) {
	if r == nil || r.provider == nil {
		return domain.Address{}, errors.New("address repository not initialised")
	}
	if strings.TrimSpace(addr.ID) == "" {
		return domain.Address{}, errors.New("address repository: address id is required")
	}
	if strings.TrimSpace(addr.UserID) == "" {
		return domain.Address{}, errors.New("address repository: user id is required")
	}

	now := time.Now().UTC()
	doc := fromDomainAddress(addr, now)

	ref, err := r.addresses.DocumentRef(ctx, addr.ID)
	if err != nil {
		return domain.Address{}, err
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if doc.IsDefault {
			if err := r.clearDefaults(ctx, tx, addr.UserID, addr.ID); err != nil {
				return err
			}
		}
		return tx.Create(ref, doc)
	})
	if err != nil {
		return domain.Address{}, pfirestore.WrapError("addresses.insert", err)
	}
	return toDomainAddress(addr.ID, doc), nil
}

// Update rewrites the address fields, preserving ownership and creation time.
func (r *AddressRepository) Update(ctx context.Context, addr domain.Address) (domain.Address, error) {
	if r == nil || r.provider == nil {
		return domain.Address{}, errors.New("address repository not initialised")
	}

	ref, err := r.addresses.DocumentRef(ctx, addr.ID)
	if err != nil {
		return domain.Address{}, err
	}

	now := time.Now().UTC()
	var saved addressDocument

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var current addressDocument
		if err := snap.DataTo(&current); err != nil {
			return fmt.Errorf("decode address %s: %w", addr.ID, err)
		}
		if current.UserID != strings.TrimSpace(addr.UserID) {
			return pfirestore.NewNotFound("addresses.update", fmt.Errorf("address %s not owned by caller", addr.ID))
		}

		doc := fromDomainAddress(addr, now)
		doc.CreatedAt = current.CreatedAt
		doc.UserID = current.UserID

		if doc.IsDefault && !current.IsDefault {
			if err := r.clearDefaults(ctx, tx, current.UserID, addr.ID); err != nil {
				return err
			}
		}
		saved = doc
		return tx.Set(ref, doc)
	})
	if err != nil {
		return domain.Address{}, pfirestore.WrapError("addresses.update", err)
	}
	return toDomainAddress(addr.ID, saved), nil
}

// Delete removes the address after verifying ownership. An address that is
// still referenced by an order is the shipping record of a frozen financial
// document, so the delete is refused with a conflict.
func (r *AddressRepository) Delete(ctx context.Context, userID string, addressID string) error {
	if r == nil || r.provider == nil {
		return errors.New("address repository not initialised")
	}

	ref, err := r.addresses.DocumentRef(ctx, addressID)
	if err != nil {
		return err
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var current addressDocument
		if err := snap.DataTo(&current); err != nil {
			return fmt.Errorf("decode address %s: %w", addressID, err)
		}
		if current.UserID != strings.TrimSpace(userID) {
			return pfirestore.NewNotFound("addresses.delete", fmt.Errorf("address %s not owned by caller", addressID))
		}

		refs := tx.Documents(client.Collection(orderCollection).
			Where("addressId", "==", addressID).
			Limit(1))
		defer refs.Stop()
		if _, err := refs.Next(); err == nil {
			return pfirestore.NewConflict("addresses.delete", fmt.Errorf("address %s is referenced by an order", addressID))
		} else if !errors.Is(err, iterator.Done) {
			return err
		}

		return tx.Delete(ref)
	})
	if err != nil {
		return pfirestore.WrapError("addresses.delete", err)
	}
	return nil
}

// SetDefault marks the address as the user's default and clears any previous
// default in the same transaction.
func (r *AddressRepository) SetDefault(ctx context.Context, userID string, addressID string) (domain.Address, error) {
	if r == nil || r.provider == nil {
		return domain.Address{}, errors.New("address repository not initialised")
	}

	ref, err := r.addresses.DocumentRef(ctx, addressID)
	if err != nil {
		return domain.Address{}, err
	}

	now := time.Now().UTC()
	var saved addressDocument

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var current addressDocument
		if err := snap.DataTo(&current); err != nil {
			return fmt.Errorf("decode address %s: %w", addressID, err)
		}
		if current.UserID != strings.TrimSpace(userID) {
			return pfirestore.NewNotFound("addresses.setDefault", fmt.Errorf("address %s not owned by caller", addressID))
		}

		if err := r.clearDefaults(ctx, tx, current.UserID, addressID); err != nil {
			return err
		}

		current.IsDefault = true
		current.UpdatedAt = now
		saved = current
		return tx.Set(ref, current)
	})
	if err != nil {
		return domain.Address{}, pfirestore.WrapError("addresses.setDefault", err)
	}
	return toDomainAddress(addressID, saved), nil
}

// clearDefaults unsets the default flag on every other address of the user.
// Reads happen through the transaction so the flip stays atomic.
func (r *AddressRepository) clearDefaults(ctx context.Context, tx *firestore.Transaction, userID string, keepID string) error {
	coll, err := r.addresses.CollectionRef(ctx)
	if err != nil {
		return err
	}

	// Transactions require all reads before any write, so collect the
	// matching refs first.
	iter := tx.Documents(coll.Where("userId", "==", userID).Where("isDefault", "==", true))
	defer iter.Stop()

	var refs []*firestore.DocumentRef
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return err
		}
		if snap.Ref.ID == keepID {
			continue
		}
		refs = append(refs, snap.Ref)
	}

	now := time.Now().UTC()
	for _, ref := range refs {
		if err := tx.Update(ref, []firestore.Update{
			{Path: "isDefault", Value: false},
			{Path: "updatedAt", Value: now},
		}); err != nil {
			return err
		}
	}
	return nil
}

func fromDomainAddress(addr domain.Address, now time.Time) addressDocument {
	createdAt := addr.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return addressDocument{
		UserID:     strings.TrimSpace(addr.UserID),
		FullName:   strings.TrimSpace(addr.FullName),
		Phone:      strings.TrimSpace(addr.Phone),
		Line1:      strings.TrimSpace(addr.Line1),
		Line2:      strings.TrimSpace(addr.Line2),
		City:       strings.TrimSpace(addr.City),
		State:      strings.TrimSpace(addr.State),
		PostalCode: strings.TrimSpace(addr.PostalCode),
		Country:    strings.TrimSpace(addr.Country),
		IsDefault:  addr.IsDefault,
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	}
}

func toDomainAddress(id string, doc addressDocument) domain.Address {
	return domain.Address{
		ID:         id,
		UserID:     doc.UserID,
		FullName:   doc.FullName,
		Phone:      doc.Phone,
		Line1:      doc.Line1,
		Line2:      doc.Line2,
		City:       doc.City,
		State:      doc.State,
		PostalCode: doc.PostalCode,
		Country:    doc.Country,
		IsDefault:  doc.IsDefault,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}
