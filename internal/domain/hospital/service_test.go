package hospital

import (
	"context"
	"fmt"
	"testing"
)

type mockRepo struct {
	store map[string]*Hospital
}

func newMockRepo() *mockRepo { return &mockRepo{store: make(map[string]*Hospital)} }

func (m *mockRepo) CreateIfAbsent(_ context.Context, h *Hospital) (bool, error) {
	if _, ok := m.store[h.ID]; ok {
		return false, nil
	}
	m.store[h.ID] = h
	return true, nil
}
func (m *mockRepo) GetByID(_ context.Context, id string) (*Hospital, error) {
	h, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return h, nil
}
func (m *mockRepo) Update(_ context.Context, h *Hospital) error {
	if _, ok := m.store[h.ID]; !ok {
		return fmt.Errorf("not found")
	}
	m.store[h.ID] = h
	return nil
}
func (m *mockRepo) Delete(_ context.Context, id string) error { delete(m.store, id); return nil }
func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Hospital, int, error) {
	var r []*Hospital
	for _, h := range m.store {
		r = append(r, h)
	}
	return r, len(r), nil
}
func (m *mockRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Hospital, int, error) {
	var r []*Hospital
	for _, h := range m.store {
		if v, ok := params["type"]; ok && h.Type != v {
			continue
		}
		r = append(r, h)
	}
	return r, len(r), nil
}

func TestSeed_InsertsNewRows(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	n, err := svc.Seed(context.Background(), []*Hospital{
		{ID: "a", Name: "A", Type: "Oncology", BudgetCategory: "Premium"},
		{ID: "b", Name: "B", Type: "Cardiac", BudgetCategory: "Government"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 inserts, got %d", n)
	}
}

func TestSeed_SkipsExistingRows(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	batch := []*Hospital{{ID: "a", Name: "A", Type: "Oncology", BudgetCategory: "Premium"}}
	if _, err := svc.Seed(context.Background(), batch); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	repo.store["a"].Name = "Edited"
	n, err := svc.Seed(context.Background(), batch)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 inserts on reseed, got %d", n)
	}
	if repo.store["a"].Name != "Edited" {
		t.Error("reseed must not clobber existing rows")
	}
}

func TestSeed_RejectsMissingID(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.Seed(context.Background(), []*Hospital{{Name: "A", Type: "Oncology", BudgetCategory: "Premium"}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSeed_RejectsInvalidBudgetCategory(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.Seed(context.Background(), []*Hospital{{ID: "a", Name: "A", Type: "Oncology", BudgetCategory: "Luxury"}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestList_FilterPassthrough(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	svc.Seed(context.Background(), []*Hospital{
		{ID: "a", Name: "A", Type: "Oncology", BudgetCategory: "Premium"},
		{ID: "b", Name: "B", Type: "Cardiac", BudgetCategory: "Government"},
	})
	items, total, err := svc.List(context.Background(), map[string]string{"type": "Oncology"}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Errorf("expected 1 filtered hospital, got %d", total)
	}
	items, total, err = svc.List(context.Background(), nil, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 hospitals unfiltered, got %d", total)
	}
	_ = items
}
