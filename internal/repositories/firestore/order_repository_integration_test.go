//go:build integration

package firestore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	domain "github.com/silverline-jewels/storefront-api/internal/domain"
	pconfig "github.com/silverline-jewels/storefront-api/internal/platform/config"
	pfirestore "github.com/silverline-jewels/storefront-api/internal/platform/firestore"
	"github.com/silverline-jewels/storefront-api/internal/repositories"
)

func newIntegrationProvider(t *testing.T, projectID string) *pfirestore.Provider {
	t.Helper()

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}
	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	t.Cleanup(func() { stopContainer(containerID) })

	waitForEndpoint(t, endpoint, 30*time.Second)

	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{
		ProjectID:    projectID,
		EmulatorHost: endpoint,
	})
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})
	return provider
}

func testOrder(id, userID, addressID string) domain.Order {
	return domain.Order{
		ID:            id,
		Number:        "SL-2025-000042",
		UserID:        userID,
		AddressID:     addressID,
		Subtotal:      decimal.RequireFromString("1998.00"),
		ShippingFee:   decimal.Zero,
		Total:         decimal.RequireFromString("1998.00"),
		Status:        domain.OrderStatusPending,
		PaymentMethod: domain.PaymentMethodGateway,
		Items: []domain.OrderItem{
			{ProductID: "prd_1", Quantity: 2, Price: decimal.RequireFromString("999.00")},
		},
	}
}

func TestOrderRepositoryIntegration(t *testing.T) {
	provider := newIntegrationProvider(t, "order-test")

	repo, err := NewOrderRepository(provider)
	if err != nil {
		t.Fatalf("new order repository: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := provider.Client(ctx)
	if err != nil {
		t.Fatalf("provider client: %v", err)
	}

	if err := repo.Insert(ctx, testOrder("ord_1", "usr_1", "adr_1")); err != nil {
		t.Fatalf("insert order: %v", err)
	}

	loaded, err := repo.FindByID(ctx, "ord_1")
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	if loaded.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending order, got %s", loaded.Status)
	}
	if len(loaded.Items) != 1 || loaded.Items[0].ProductID != "prd_1" {
		t.Fatalf("expected the inserted item back, got %+v", loaded.Items)
	}
	if loaded.Total.StringFixed(2) != "1998.00" {
		t.Fatalf("expected total 1998.00, got %s", loaded.Total.StringFixed(2))
	}

	// A failing insert must leave no rows at all. Seed a clashing header so
	// the transaction aborts, then check that no item documents landed.
	if _, err := client.Collection(orderCollection).Doc("ord_2").Create(ctx, map[string]any{
		"userId": "usr_9",
		"status": string(domain.OrderStatusPending),
	}); err != nil {
		t.Fatalf("seed clashing header: %v", err)
	}
	if err := repo.Insert(ctx, testOrder("ord_2", "usr_9", "adr_9")); err == nil {
		t.Fatal("expected insert over an existing order to fail")
	}
	itemIter := client.Collection(orderCollection).Doc("ord_2").Collection(orderItemCollection).Documents(ctx)
	defer itemIter.Stop()
	if _, err := itemIter.Next(); !errors.Is(err, iterator.Done) {
		t.Fatalf("expected no items after aborted insert, got %v", err)
	}

	// Payment attempt followed by the settle update.
	attempt := domain.Payment{
		ID:              "pay_1",
		OrderID:         "ord_1",
		Provider:        "razorpay",
		ProviderOrderID: "order_MkWq7zCxAbc123",
		Amount:          decimal.RequireFromString("1998.00"),
		Currency:        "INR",
	}
	if err := repo.InsertPayment(ctx, attempt); err != nil {
		t.Fatalf("insert payment: %v", err)
	}

	attempt.ProviderPaymentID = "pay_Mk001"
	attempt.ProviderSignature = "deadbeef"
	if err := repo.UpdatePayment(ctx, attempt); err != nil {
		t.Fatalf("update payment: %v", err)
	}
	payments, err := repo.ListPayments(ctx, "ord_1")
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != 1 || payments[0].ProviderPaymentID != "pay_Mk001" {
		t.Fatalf("expected updated payment attempt, got %+v", payments)
	}
	if payments[0].Success {
		t.Fatal("expected attempt to remain unsettled before MarkPaid")
	}

	// First settle transitions; the repeat reports AlreadyPaid.
	result, err := repo.MarkPaid(ctx, "ord_1", attempt)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if result.AlreadyPaid {
		t.Fatal("expected first settle to report AlreadyPaid=false")
	}
	if result.Order.Status != domain.OrderStatusPaid {
		t.Fatalf("expected paid order, got %s", result.Order.Status)
	}

	repeat, err := repo.MarkPaid(ctx, "ord_1", attempt)
	if err != nil {
		t.Fatalf("repeat mark paid: %v", err)
	}
	if !repeat.AlreadyPaid {
		t.Fatal("expected repeat settle to report AlreadyPaid=true")
	}

	payments, err = repo.ListPayments(ctx, "ord_1")
	if err != nil {
		t.Fatalf("list payments after settle: %v", err)
	}
	if len(payments) != 1 || !payments[0].Success {
		t.Fatalf("expected the attempt row upgraded to success, got %+v", payments)
	}

	// A settled order cannot be cancelled.
	if _, err := repo.Transition(ctx, "ord_1", domain.OrderStatusCancelled); err == nil {
		t.Fatal("expected transition from paid to cancelled to fail")
	} else {
		var repoErr repositories.RepositoryError
		if !errors.As(err, &repoErr) || !repoErr.IsConflict() {
			t.Fatalf("expected conflict error, got %v", err)
		}
	}
}

func TestAddressRepositoryIntegrationDeleteBlockedWhileReferenced(t *testing.T) {
	provider := newIntegrationProvider(t, "address-test")

	addresses, err := NewAddressRepository(provider)
	if err != nil {
		t.Fatalf("new address repository: %v", err)
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		t.Fatalf("new order repository: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	addr, err := addresses.Insert(ctx, domain.Address{
		ID:         "adr_1",
		UserID:     "usr_1",
		FullName:   "Asha K",
		Phone:      "+91 98765 43210",
		Line1:      "12 Marine Drive",
		City:       "Mumbai",
		State:      "Maharashtra",
		PostalCode: "400001",
		Country:    "India",
	})
	if err != nil {
		t.Fatalf("insert address: %v", err)
	}

	if err := orders.Insert(ctx, testOrder("ord_1", "usr_1", addr.ID)); err != nil {
		t.Fatalf("insert order: %v", err)
	}

	err = addresses.Delete(ctx, "usr_1", addr.ID)
	if err == nil {
		t.Fatal("expected delete of a referenced address to fail")
	}
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsConflict() {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if !strings.Contains(err.Error(), "referenced") {
		t.Fatalf("expected reference conflict message, got %v", err)
	}

	// Still present after the refused delete.
	if _, err := addresses.Get(ctx, "usr_1", addr.ID); err != nil {
		t.Fatalf("expected address to survive, got %v", err)
	}

	// An unreferenced address deletes normally.
	other, err := addresses.Insert(ctx, domain.Address{
		ID:         "adr_2",
		UserID:     "usr_1",
		FullName:   "Asha K",
		Phone:      "+91 98765 43210",
		Line1:      "7 Hill Road",
		City:       "Mumbai",
		State:      "Maharashtra",
		PostalCode: "400050",
		Country:    "India",
	})
	if err != nil {
		t.Fatalf("insert second address: %v", err)
	}
	if err := addresses.Delete(ctx, "usr_1", other.ID); err != nil {
		t.Fatalf("delete unreferenced address: %v", err)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to allocate port: %v", err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port
}

func startFirestoreEmulator(t *testing.T, port int) string {
	t.Helper()
	args := []string{
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		firestoreEmulatorImage,
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080",
		"--quiet",
	}

	out, err := exec.Command("docker", args...).CombinedOutput()
	if err != nil {
		t.Fatalf("failed to start firestore emulator: %v - %s", err, string(out))
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		t.Fatalf("docker returned empty container id")
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func ensureDockerDaemon(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, "docker", "info").Run(); err != nil {
		t.Fatalf("docker daemon not available: %v", err)
	}
}

func stopContainer(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = exec.CommandContext(ctx, "docker", "stop", id).Run()
}

func waitForEndpoint(t *testing.T, endpoint string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("firestore emulator at %s did not become ready within %s", endpoint, timeout)
}

const firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"
