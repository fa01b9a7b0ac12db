package customer

import (
	"context"
	"sync"
	"testing"
	"time"

	internaljwt "monger-backend/internal/jwt"
	"monger-backend/internal/model"
)

type memoryRepository struct {
	mu        sync.Mutex
	customers map[string]model.CustomerItem
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{customers: make(map[string]model.CustomerItem)}
}

func (m *memoryRepository) CreateCustomer(ctx context.Context, item model.CustomerItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[item.CustomerID] = item
	return nil
}

func (m *memoryRepository) GetCustomer(ctx context.Context, customerID string) (model.CustomerItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.customers[customerID]
	if !ok {
		return model.CustomerItem{}, ErrNotFound
	}
	return item, nil
}

func (m *memoryRepository) TouchLastSeen(ctx context.Context, customerID, seenAt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.customers[customerID]
	if !ok {
		return ErrNotFound
	}
	item.LastSeenAt = seenAt
	m.customers[customerID] = item
	return nil
}

func (m *memoryRepository) SetBlockedUntil(ctx context.Context, customerID, until string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.customers[customerID]
	if !ok {
		return ErrNotFound
	}
	item.BlockedUntil = until
	m.customers[customerID] = item
	return nil
}

func (m *memoryRepository) RecordPurchase(ctx context.Context, customerID, purchasedAt string) (model.CustomerItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.customers[customerID]
	if !ok {
		return model.CustomerItem{}, ErrNotFound
	}
	item.ShirtsBought++
	item.LastPurchaseAt = purchasedAt
	item.BlockedUntil = ""
	m.customers[customerID] = item
	return item, nil
}

func newTestService(repo Repository) *Service {
	internaljwt.SetIdentitySecret([]byte("test-secret"))
	return NewWithRepository(repo, func() time.Time {
		return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	})
}

func TestResolveMintsFreshIdentity(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo)

	res, err := svc.Resolve(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Customer.CustomerID == "" {
		t.Fatal("no customer id minted")
	}
	if res.Token == "" {
		t.Fatal("expected a fresh token for a stranger")
	}
	if _, ok := repo.customers[res.Customer.CustomerID]; !ok {
		t.Error("customer not persisted")
	}
}

func TestResolveRecognizesReturningVisitor(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo)

	first, err := svc.Resolve(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}

	again, err := svc.Resolve(context.Background(), first.Token)
	if err != nil {
		t.Fatal(err)
	}
	if again.Customer.CustomerID != first.Customer.CustomerID {
		t.Errorf("customer id changed: %s vs %s", again.Customer.CustomerID, first.Customer.CustomerID)
	}
	if again.Token != "" {
		t.Error("valid token should not be re-minted")
	}
}

func TestResolveGarbageTokenBecomesStranger(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo)

	res, err := svc.Resolve(context.Background(), "not-a-jwt")
	if err != nil {
		t.Fatal(err)
	}
	if res.Token == "" {
		t.Error("garbage token should yield a fresh identity")
	}
}

func TestIsBlocked(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		until string
		want  bool
	}{
		{"no block", "", false},
		{"future block", now.Add(time.Hour).Format(time.RFC3339), true},
		{"expired block", now.Add(-time.Hour).Format(time.RFC3339), false},
		{"garbage timestamp", "not-a-time", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := model.CustomerItem{BlockedUntil: tc.until}
			if got := IsBlocked(c, now); got != tc.want {
				t.Errorf("IsBlocked = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMarkBlockedThenPurchaseClearsBlock(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo)

	res, err := svc.Resolve(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	id := res.Customer.CustomerID

	until, err := svc.MarkBlocked(context.Background(), id, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !until.After(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("until = %v", until)
	}

	blocked, _ := svc.Get(context.Background(), id)
	if !IsBlocked(blocked, time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC)) {
		t.Fatal("expected block to be active")
	}

	updated, err := svc.RecordPurchase(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if updated.ShirtsBought != 1 {
		t.Errorf("shirtsBought = %d", updated.ShirtsBought)
	}
	if updated.BlockedUntil != "" {
		t.Error("purchase must lift the block")
	}
}
