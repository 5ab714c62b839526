package memory

import (
	"context"
	"errors"
	"testing"

	"churn-horizon-lab/internal/domain"
	"churn-horizon-lab/internal/storage"
)

func testRun(runID string, createdAt int64) *domain.ForecastRun {
	return &domain.ForecastRun{
		RunID:    runID,
		Label:    "test",
		Scenario: domain.Scenario{PriceChangePct: 10, BaselineChurn: 0.05},
		Segments: []domain.Segment{{Name: "Monthly", Size: "100", Elasticity: -2}},
		Horizons: domain.HorizonForecast{
			{Horizon: domain.Horizon0To4Weeks, ChurnRate: 0.06, ChurnUplift: 0.01, ChurnUpliftPP: 1},
		},
		SegmentResults: []domain.SegmentResult{
			{Name: "Monthly", Size: "100", Multiplier: 1, Uplifts: []domain.SegmentUplift{
				{Horizon: domain.Horizon0To4Weeks, UpliftPP: 1},
			}},
		},
		CreatedAt: createdAt,
	}
}

func TestForecastRunStore_InsertAndGet(t *testing.T) {
	store := NewForecastRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testRun("run-1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Scenario.PriceChangePct != 10 {
		t.Errorf("PriceChangePct mismatch: got %f, want %f", got.Scenario.PriceChangePct, 10.0)
	}
	if len(got.SegmentResults) != 1 || got.SegmentResults[0].Multiplier != 1 {
		t.Errorf("unexpected segment results: %+v", got.SegmentResults)
	}
}

func TestForecastRunStore_DuplicateKey(t *testing.T) {
	store := NewForecastRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testRun("run-1", 1000)); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, testRun("run-1", 2000))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestForecastRunStore_InvalidInput(t *testing.T) {
	store := NewForecastRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil run, got %v", err)
	}
	if err := store.Insert(ctx, testRun("", 1)); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty run id, got %v", err)
	}
}

func TestForecastRunStore_NotFound(t *testing.T) {
	store := NewForecastRunStore()

	_, err := store.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestForecastRunStore_GetAllOrdering(t *testing.T) {
	store := NewForecastRunStore()
	ctx := context.Background()

	for _, r := range []*domain.ForecastRun{
		testRun("run-c", 2000),
		testRun("run-b", 1000),
		testRun("run-a", 2000),
	} {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}

	want := []string{"run-b", "run-a", "run-c"}
	if len(all) != len(want) {
		t.Fatalf("expected %d runs, got %d", len(want), len(all))
	}
	for i, id := range want {
		if all[i].RunID != id {
			t.Errorf("position %d: got %s, want %s", i, all[i].RunID, id)
		}
	}
}

func TestForecastRunStore_ReturnsCopies(t *testing.T) {
	store := NewForecastRunStore()
	ctx := context.Background()

	run := testRun("run-1", 1000)
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating the inserted value must not leak into the store
	run.SegmentResults[0].Uplifts[0].UpliftPP = 99

	got, _ := store.GetByID(ctx, "run-1")
	got.Horizons[0].ChurnRate = 42

	again, _ := store.GetByID(ctx, "run-1")
	if again.SegmentResults[0].Uplifts[0].UpliftPP != 1 {
		t.Errorf("stored uplift mutated through caller: %f", again.SegmentResults[0].Uplifts[0].UpliftPP)
	}
	if again.Horizons[0].ChurnRate != 0.06 {
		t.Errorf("stored churn rate mutated through caller: %f", again.Horizons[0].ChurnRate)
	}
}
