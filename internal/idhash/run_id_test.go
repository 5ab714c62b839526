package idhash

import (
	"testing"

	"github.com/google/uuid"

	"churn-horizon-lab/internal/domain"
)

func testSegments() []domain.Segment {
	return []domain.Segment{
		{Name: "Monthly", Size: "80000", Elasticity: -2.5},
		{Name: "Annual", Size: "20000", Elasticity: -0.8},
	}
}

func TestComputeRunID_Format(t *testing.T) {
	got := ComputeRunID("spring", domain.Scenario{PriceChangePct: 16.67, BaselineChurn: 0.05}, testSegments())

	id, err := uuid.Parse(got)
	if err != nil {
		t.Fatalf("run id is not a UUID: %v", err)
	}
	if id.Version() != 5 {
		t.Errorf("expected version 5 UUID, got %d", id.Version())
	}
}

func TestComputeRunID_Determinism(t *testing.T) {
	scenario := domain.Scenario{PriceChangePct: 10, BaselineChurn: 0.05}

	results := make([]string, 10)
	for i := 0; i < 10; i++ {
		results[i] = ComputeRunID("q3", scenario, testSegments())
	}

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Errorf("Determinism failed: results[%d]=%s != results[0]=%s", i, results[i], results[0])
		}
	}
}

func TestComputeRunID_DifferentInputs(t *testing.T) {
	scenario := domain.Scenario{PriceChangePct: 10, BaselineChurn: 0.05}
	base := ComputeRunID("q3", scenario, testSegments())

	if base == ComputeRunID("q4", scenario, testSegments()) {
		t.Error("Different label should produce different id")
	}

	if base == ComputeRunID("q3", domain.Scenario{PriceChangePct: 10.000001, BaselineChurn: 0.05}, testSegments()) {
		t.Error("Different price change should produce different id")
	}

	if base == ComputeRunID("q3", domain.Scenario{PriceChangePct: 10, BaselineChurn: 0.06}, testSegments()) {
		t.Error("Different baseline should produce different id")
	}

	reordered := testSegments()
	reordered[0], reordered[1] = reordered[1], reordered[0]
	if base == ComputeRunID("q3", scenario, reordered) {
		t.Error("Segment order should change the id")
	}

	if base == ComputeRunID("q3", scenario, nil) {
		t.Error("Dropping segments should change the id")
	}

	// Separator inside a name must not collide with a different segment split
	a := ComputeRunID("", scenario, []domain.Segment{{Name: "a|b", Size: "1"}})
	b := ComputeRunID("", scenario, []domain.Segment{{Name: "a", Size: "1"}, {Name: "b", Size: "1"}})
	if a == b {
		t.Error("Quoted names should prevent separator collisions")
	}
}

func TestComputeRunID_SizeSpelling(t *testing.T) {
	scenario := domain.Scenario{PriceChangePct: 10, BaselineChurn: 0.05}
	id := func(size domain.Size) string {
		return ComputeRunID("", scenario, []domain.Segment{{Name: "All", Size: size}})
	}

	if id("1000") != id("1000.0") || id("1000") != id("1e3") {
		t.Error("Equal sizes written differently should share an id")
	}
	if id("12345678901234567") == id("12345678901234568") {
		t.Error("Integer counts beyond float64 precision should stay distinct")
	}
	if id("") != id("0") {
		t.Error("Empty size should hash as zero")
	}
}

func TestShortCode_RoundTrip(t *testing.T) {
	runID := ComputeRunID("launch", domain.Scenario{PriceChangePct: 5, BaselineChurn: 0.03}, nil)

	code, err := ShortCode(runID)
	if err != nil {
		t.Fatalf("ShortCode failed: %v", err)
	}
	if len(code) == 0 || len(code) > 22 {
		t.Errorf("unexpected short code length %d: %q", len(code), code)
	}

	back, err := ParseShortCode(code)
	if err != nil {
		t.Fatalf("ParseShortCode failed: %v", err)
	}
	if back != runID {
		t.Errorf("round trip mismatch: %s != %s", back, runID)
	}
}

func TestShortCode_InvalidInput(t *testing.T) {
	if _, err := ShortCode("not-a-uuid"); err == nil {
		t.Error("expected error for invalid run id")
	}
	if _, err := ParseShortCode("0OIl"); err == nil {
		t.Error("expected error for invalid base58")
	}
	if _, err := ParseShortCode("2g"); err == nil {
		t.Error("expected error for short payload")
	}
}
