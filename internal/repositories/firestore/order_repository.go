package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	domain "github.com/silverline-jewels/storefront-api/internal/domain"
	pfirestore "github.com/silverline-jewels/storefront-api/internal/platform/firestore"
	"github.com/silverline-jewels/storefront-api/internal/repositories"
)

const (
	orderCollection        = "orders"
	orderItemCollection    = "items"
	orderPaymentCollection = "payments"

	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

type orderDocument struct {
	Number        string    `firestore:"number"`
	UserID        string    `firestore:"userId"`
	AddressID     string    `firestore:"addressId"`
	Subtotal      string    `firestore:"subtotal"`
	ShippingFee   string    `firestore:"shippingFee"`
	Total         string    `firestore:"total"`
	Status        string    `firestore:"status"`
	PaymentMethod string    `firestore:"paymentMethod"`
	Notes         string    `firestore:"notes,omitempty"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

type orderItemDocument struct {
	ProductID string `firestore:"productId"`
	Quantity  int    `firestore:"quantity"`
	Price     string `firestore:"price"`
	Position  int    `firestore:"position"`
}

type paymentDocument struct {
	OrderID           string    `firestore:"orderId"`
	Provider          string    `firestore:"provider"`
	ProviderOrderID   string    `firestore:"providerOrderId"`
	ProviderPaymentID string    `firestore:"providerPaymentId,omitempty"`
	ProviderSignature string    `firestore:"providerSignature,omitempty"`
	Amount            string    `firestore:"amount"`
	Currency          string    `firestore:"currency"`
	Success           bool      `firestore:"success"`
	CreatedAt         time.Time `firestore:"createdAt"`
	UpdatedAt         time.Time `firestore:"updatedAt"`
}

// mergeData returns the document as a field map. The SDK only accepts map
// data for Set with MergeAll; struct data makes the write fail client-side.
func (d paymentDocument) mergeData() map[string]any {
	data := map[string]any{
		"orderId":         d.OrderID,
		"provider":        d.Provider,
		"providerOrderId": d.ProviderOrderID,
		"amount":          d.Amount,
		"currency":        d.Currency,
		"success":         d.Success,
		"createdAt":       d.CreatedAt,
		"updatedAt":       d.UpdatedAt,
	}
	if d.ProviderPaymentID != "" {
		data["providerPaymentId"] = d.ProviderPaymentID
	}
	if d.ProviderSignature != "" {
		data["providerSignature"] = d.ProviderSignature
	}
	return data
}

// OrderRepository persists order aggregates in Firestore. The order header
// lives in the orders collection with items and payments as subcollections;
// header and items are always written in one transaction.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		orders:   pfirestore.NewBaseRepository[orderDocument](provider, orderCollection, nil, nil),
	}, nil
}

// Insert writes the order header and all items atomically. Either the whole
// aggregate lands or nothing does.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order repository: order id is required")
	}
	if len(order.Items) == 0 {
		return errors.New("order repository: order has no items")
	}

	orderRef, err := r.orders.DocumentRef(ctx, order.ID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	doc := fromDomainOrder(order, now)

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(orderRef, doc); err != nil {
			return err
		}
		for i, item := range order.Items {
			itemRef := orderRef.Collection(orderItemCollection).Doc(fmt.Sprintf("%04d", i))
			if err := tx.Create(itemRef, orderItemDocument{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     item.Price.StringFixed(2),
				Position:  i,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// FindByID loads the order header and its items.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.orders == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}

	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	order, err := toDomainOrder(doc.ID, doc.Data)
	if err != nil {
		return domain.Order{}, err
	}

	items, err := r.loadItems(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items
	return order, nil
}

// FindByUser loads the order, treating another user's order as not found.
func (r *OrderRepository) FindByUser(ctx context.Context, userID string, orderID string) (domain.Order, error) {
	order, err := r.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.UserID != strings.TrimSpace(userID) {
		return domain.Order{}, pfirestore.NewNotFound("orders.findByUser", fmt.Errorf("order %s not owned by caller", orderID))
	}
	return order, nil
}

// ListByUser returns the user's orders, newest first, with items attached.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.orders == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository: user id is required")
	}

	limit := pager.PageSize
	if limit <= 0 {
		limit = defaultOrderPageSize
	}
	if limit > maxOrderPageSize {
		limit = maxOrderPageSize
	}

	var startAfter []any
	if token := strings.TrimSpace(pager.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("order repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("userId", "==", userID).
			OrderBy("createdAt", firestore.Desc).
			OrderBy(firestore.DocumentID, firestore.Asc)
		if len(startAfter) > 0 {
			q = q.StartAfter(startAfter...)
		}
		return q.Limit(limit + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	page := domain.CursorPage[domain.Order]{}
	for i, doc := range docs {
		if i == limit {
			last := docs[limit-1]
			page.NextPageToken = encodeListToken(last.Data.CreatedAt, last.ID)
			break
		}
		order, err := toDomainOrder(doc.ID, doc.Data)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		items, err := r.loadItems(ctx, doc.ID)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		order.Items = items
		page.Items = append(page.Items, order)
	}
	return page, nil
}

// Transition moves the order to the target status, rejecting moves the state
// machine does not allow with a conflict.
func (r *OrderRepository) Transition(ctx context.Context, orderID string, to domain.OrderStatus) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}

	orderRef, err := r.orders.DocumentRef(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(orderRef)
		if err != nil {
			return err
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode order %s: %w", orderID, err)
		}

		from := domain.OrderStatus(doc.Status)
		if !domain.CanTransition(from, to) {
			return pfirestore.NewConflict("orders.transition", fmt.Errorf("order %s cannot move from %s to %s", orderID, from, to))
		}

		return tx.Update(orderRef, []firestore.Update{
			{Path: "status", Value: string(to)},
			{Path: "updatedAt", Value: time.Now().UTC()},
		})
	})
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.transition", err)
	}
	return r.FindByID(ctx, orderID)
}

// MarkPaid settles a pending order. The status check and the payment update
// share one transaction, so concurrent verified callbacks settle exactly
// once; later callers observe the already-paid order and report AlreadyPaid.
func (r *OrderRepository) MarkPaid(ctx context.Context, orderID string, payment domain.Payment) (repositories.MarkPaidResult, error) {
	if r == nil || r.provider == nil {
		return repositories.MarkPaidResult{}, errors.New("order repository not initialised")
	}
	if strings.TrimSpace(payment.ID) == "" {
		return repositories.MarkPaidResult{}, errors.New("order repository: payment id is required")
	}

	orderRef, err := r.orders.DocumentRef(ctx, orderID)
	if err != nil {
		return repositories.MarkPaidResult{}, err
	}
	paymentRef := orderRef.Collection(orderPaymentCollection).Doc(payment.ID)

	now := time.Now().UTC()
	alreadyPaid := false

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		alreadyPaid = false

		snap, err := tx.Get(orderRef)
		if err != nil {
			return err
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode order %s: %w", orderID, err)
		}

		switch domain.OrderStatus(doc.Status) {
		case domain.OrderStatusPaid:
			alreadyPaid = true
			return nil
		case domain.OrderStatusPending:
			// fall through to the settle writes
		default:
			return pfirestore.NewConflict("orders.markPaid", fmt.Errorf("order %s is %s, not pending", orderID, doc.Status))
		}

		if err := tx.Update(orderRef, []firestore.Update{
			{Path: "status", Value: string(domain.OrderStatusPaid)},
			{Path: "updatedAt", Value: now},
		}); err != nil {
			return err
		}

		paymentDoc := fromDomainPayment(payment, now)
		paymentDoc.Success = true
		return tx.Set(paymentRef, paymentDoc.mergeData(), firestore.MergeAll)
	})
	if err != nil {
		return repositories.MarkPaidResult{}, pfirestore.WrapError("orders.markPaid", err)
	}

	order, err := r.FindByID(ctx, orderID)
	if err != nil {
		return repositories.MarkPaidResult{}, err
	}
	return repositories.MarkPaidResult{Order: order, AlreadyPaid: alreadyPaid}, nil
}

// InsertPayment records a payment attempt under the order.
func (r *OrderRepository) InsertPayment(ctx context.Context, payment domain.Payment) error {
	if r == nil || r.orders == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(payment.OrderID) == "" || strings.TrimSpace(payment.ID) == "" {
		return errors.New("order repository: payment and order ids are required")
	}

	orderRef, err := r.orders.DocumentRef(ctx, payment.OrderID)
	if err != nil {
		return err
	}

	doc := fromDomainPayment(payment, time.Now().UTC())
	if _, err := orderRef.Collection(orderPaymentCollection).Doc(payment.ID).Create(ctx, doc); err != nil {
		return pfirestore.WrapError("payments.insert", err)
	}
	return nil
}

// UpdatePayment rewrites the payment record.
func (r *OrderRepository) UpdatePayment(ctx context.Context, payment domain.Payment) error {
	if r == nil || r.orders == nil {
		return errors.New("order repository not initialised")
	}

	orderRef, err := r.orders.DocumentRef(ctx, payment.OrderID)
	if err != nil {
		return err
	}

	doc := fromDomainPayment(payment, time.Now().UTC())
	if _, err := orderRef.Collection(orderPaymentCollection).Doc(payment.ID).Set(ctx, doc.mergeData(), firestore.MergeAll); err != nil {
		return pfirestore.WrapError("payments.update", err)
	}
	return nil
}

// ListPayments returns the payment records for an order, oldest first.
func (r *OrderRepository) ListPayments(ctx context.Context, orderID string) ([]domain.Payment, error) {
	if r == nil || r.orders == nil {
		return nil, errors.New("order repository not initialised")
	}

	orderRef, err := r.orders.DocumentRef(ctx, orderID)
	if err != nil {
		return nil, err
	}

	iter := orderRef.Collection(orderPaymentCollection).OrderBy("createdAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var payments []domain.Payment
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("payments.list", err)
		}
		var doc paymentDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode payment %s: %w", snap.Ref.ID, err)
		}
		payment, err := toDomainPayment(snap.Ref.ID, doc)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	orderRef, err := r.orders.DocumentRef(ctx, orderID)
	if err != nil {
		return nil, err
	}

	iter := orderRef.Collection(orderItemCollection).OrderBy("position", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var items []domain.OrderItem
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("orders.items", err)
		}
		var doc orderItemDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode order item %s: %w", snap.Ref.ID, err)
		}
		price, err := decimal.NewFromString(doc.Price)
		if err != nil {
			return nil, fmt.Errorf("order item %s has invalid price %q: %w", snap.Ref.ID, doc.Price, err)
		}
		items = append(items, domain.OrderItem{
			ProductID: doc.ProductID,
			Quantity:  doc.Quantity,
			Price:     price,
		})
	}
	return items, nil
}

func fromDomainOrder(order domain.Order, now time.Time) orderDocument {
	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return orderDocument{
		Number:        order.Number,
		UserID:        strings.TrimSpace(order.UserID),
		AddressID:     strings.TrimSpace(order.AddressID),
		Subtotal:      order.Subtotal.StringFixed(2),
		ShippingFee:   order.ShippingFee.StringFixed(2),
		Total:         order.Total.StringFixed(2),
		Status:        string(order.Status),
		PaymentMethod: string(order.PaymentMethod),
		Notes:         strings.TrimSpace(order.Notes),
		CreatedAt:     createdAt,
		UpdatedAt:     now,
	}
}

func toDomainOrder(id string, doc orderDocument) (domain.Order, error) {
	subtotal, err := decimal.NewFromString(doc.Subtotal)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %s has invalid subtotal %q: %w", id, doc.Subtotal, err)
	}
	shippingFee, err := decimal.NewFromString(doc.ShippingFee)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %s has invalid shipping fee %q: %w", id, doc.ShippingFee, err)
	}
	total, err := decimal.NewFromString(doc.Total)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %s has invalid total %q: %w", id, doc.Total, err)
	}

	return domain.Order{
		ID:            id,
		Number:        doc.Number,
		UserID:        doc.UserID,
		AddressID:     doc.AddressID,
		Subtotal:      subtotal,
		ShippingFee:   shippingFee,
		Total:         total,
		Status:        domain.OrderStatus(doc.Status),
		PaymentMethod: domain.PaymentMethod(doc.PaymentMethod),
		Notes:         doc.Notes,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}, nil
}

func fromDomainPayment(payment domain.Payment, now time.Time) paymentDocument {
	createdAt := payment.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return paymentDocument{
		OrderID:           strings.TrimSpace(payment.OrderID),
		Provider:          payment.Provider,
		ProviderOrderID:   payment.ProviderOrderID,
		ProviderPaymentID: payment.ProviderPaymentID,
		ProviderSignature: payment.ProviderSignature,
		Amount:            payment.Amount.StringFixed(2),
		Currency:          payment.Currency,
		Success:           payment.Success,
		CreatedAt:         createdAt,
		UpdatedAt:         now,
	}
}

func toDomainPayment(id string, doc paymentDocument) (domain.Payment, error) {
	amount, err := decimal.NewFromString(doc.Amount)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("payment %s has invalid amount %q: %w", id, doc.Amount, err)
	}
	return domain.Payment{
		ID:                id,
		OrderID:           doc.OrderID,
		Provider:          doc.Provider,
		ProviderOrderID:   doc.ProviderOrderID,
		ProviderPaymentID: doc.ProviderPaymentID,
		ProviderSignature: doc.ProviderSignature,
		Amount:            amount,
		Currency:          doc.Currency,
		Success:           doc.Success,
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
	}, nil
}
