package churn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churn-horizon-lab/internal/domain"
)

func TestSegmentMultiplier(t *testing.T) {
	tests := []struct {
		name       string
		elasticity float64
		want       float64
		delta      float64
	}{
		{"zero elasticity", 0, 0.7, 0},
		{"default elasticity", -2.0, 1.0, 0},
		{"positive sign uses magnitude", 2.0, 1.0, 0},
		{"low elasticity", -1.0, 0.85, 1e-12},
		{"clamp boundary", -4.0, 1.3, 1e-12},
		{"clamped beyond 4", -9.5, 1.3, 1e-12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SegmentMultiplier(tt.elasticity)
			if tt.delta == 0 {
				assert.Equal(t, tt.want, got)
			} else {
				assert.InDelta(t, tt.want, got, tt.delta)
			}
		})
	}
}

func TestSegmentMultiplier_ClampIsExact(t *testing.T) {
	atFour := SegmentMultiplier(4)
	for _, e := range []float64{4.0, -4.0, 4.5, -10, 1e9} {
		assert.Equal(t, atFour, SegmentMultiplier(e), "elasticity %v", e)
	}
}

func TestSegmentMultiplier_Bounds(t *testing.T) {
	for e := -12.0; e <= 12.0; e += 0.25 {
		m := SegmentMultiplier(e)
		assert.GreaterOrEqual(t, m, 0.7, "elasticity %v", e)
		assert.LessOrEqual(t, m, 1.3+1e-12, "elasticity %v", e)
	}
}

func TestPredictBySegment_DefaultElasticityIsUnscaled(t *testing.T) {
	s := domain.Scenario{PriceChangePct: 16.67, BaselineChurn: 0.05}
	base := PredictByHorizon(s)

	results := PredictBySegment(s, []domain.Segment{
		{Name: "Core", Size: "1000", Elasticity: domain.DefaultElasticity},
	})
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, 1.0, r.Multiplier)
	require.Len(t, r.Uplifts, len(base))
	for i, u := range r.Uplifts {
		assert.Equal(t, base[i].Horizon, u.Horizon)
		assert.Equal(t, base[i].ChurnUpliftPP, u.UpliftPP)
	}
}

func TestPredictBySegment_ScalesUplift(t *testing.T) {
	s := domain.Scenario{PriceChangePct: 10, BaselineChurn: 0.04}
	base := PredictByHorizon(s)

	results := PredictBySegment(s, []domain.Segment{
		{Name: "Loyal", Size: "0.6", Elasticity: 0},
		{Name: "Deal seekers", Size: "0.4", Elasticity: -6},
	})
	require.Len(t, results, 2)

	for i, h := range base {
		assert.Equal(t, h.ChurnUpliftPP*0.7, results[0].Uplifts[i].UpliftPP)
		assert.Equal(t, h.ChurnUpliftPP*SegmentMultiplier(4), results[1].Uplifts[i].UpliftPP)
	}
}

func TestPredictBySegment_PreservesInputOrder(t *testing.T) {
	segments := []domain.Segment{
		{Name: "zeta", Size: "5", Elasticity: -1},
		{Name: "alpha", Size: "500", Elasticity: -3},
		{Name: "mid", Size: "50", Elasticity: -2},
		{Name: "alpha", Size: "1", Elasticity: -2},
	}

	results := PredictBySegment(domain.Scenario{PriceChangePct: 5, BaselineChurn: 0.05}, segments)
	require.Len(t, results, len(segments))
	for i, seg := range segments {
		assert.Equal(t, seg.Name, results[i].Name)
		assert.Equal(t, seg.Size, results[i].Size)
	}
}

func TestPredictBySegment_Empty(t *testing.T) {
	results := PredictBySegment(domain.Scenario{}, nil)
	assert.Empty(t, results)
	assert.NotNil(t, results)
}

func TestPredictBySegmentInputs(t *testing.T) {
	name := "Family plan"
	size := domain.Size("4200")

	results, err := PredictBySegmentInputs(
		domain.ScenarioInput{}.Resolve(),
		[]domain.SegmentInput{{Name: &name, Size: &size}},
	)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1.0, results[0].Multiplier)

	_, err = PredictBySegmentInputs(domain.Scenario{}, []domain.SegmentInput{{Name: &name}})
	assert.True(t, errors.Is(err, domain.ErrMissingField), "expected ErrMissingField, got %v", err)
}

func TestSweep(t *testing.T) {
	prices := []float64{25, 0, 10, 10}
	points := Sweep(0.05, prices)
	require.Len(t, points, len(prices))

	for i, p := range points {
		assert.Equal(t, prices[i], p.PriceChangePct)
		want := PredictByHorizon(domain.Scenario{PriceChangePct: prices[i], BaselineChurn: 0.05})
		assert.Equal(t, want, p.Horizons)
	}
	assert.Empty(t, Sweep(0.05, nil))
}
