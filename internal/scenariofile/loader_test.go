package scenariofile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churn-horizon-lab/internal/domain"
)

const sampleYAML = `
label: spring-price-rise
scenario:
  price_change_pct: 16.67
  baseline_churn: 0.05
segments:
  - name: Enthusiasts
    size: 120000
    elasticity: -1.2
  - name: Casual
    size: 80000
sweep:
  price_change_pcts: [0, 5, 10, 16.67, 25]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	r, err := Load(writeFile(t, "scenario.yaml", sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "spring-price-rise", r.Label)
	assert.Equal(t, domain.Scenario{PriceChangePct: 16.67, BaselineChurn: 0.05}, r.Scenario)
	require.Len(t, r.Segments, 2)
	assert.Equal(t, domain.Segment{Name: "Enthusiasts", Size: "120000", Elasticity: -1.2}, r.Segments[0])
	assert.Equal(t, domain.DefaultElasticity, r.Segments[1].Elasticity)
	assert.Equal(t, []float64{0, 5, 10, 16.67, 25}, r.SweepPrices)
	assert.Equal(t, 0.05, r.SweepBaseline)
	assert.False(t, r.SweepBaselineSet)
}

func TestLoad_JSON(t *testing.T) {
	r, err := Load(writeFile(t, "scenario.json", `{
		"scenario": {"price_change_pct": 10},
		"segments": [{"name": "Team", "size": 0.25, "elasticity": 0}],
		"sweep": {"baseline_churn": 0.08, "price_change_pcts": [10, 5]}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "", r.Label)
	assert.Equal(t, 10.0, r.Scenario.PriceChangePct)
	assert.Equal(t, domain.DefaultBaselineChurn, r.Scenario.BaselineChurn)

	// Explicit zero elasticity is kept, not defaulted
	require.Len(t, r.Segments, 1)
	assert.Equal(t, 0.0, r.Segments[0].Elasticity)

	assert.Equal(t, 0.08, r.SweepBaseline)
	assert.True(t, r.SweepBaselineSet)
	assert.Equal(t, []float64{10, 5}, r.SweepPrices)
}

func TestLoad_LargeSizeKeepsDigits(t *testing.T) {
	for name, content := range map[string]string{
		"big.yaml": "segments:\n  - name: All\n    size: 12345678901234567\n",
		"big.json": `{"segments": [{"name": "All", "size": 12345678901234567}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			r, err := Load(writeFile(t, name, content))
			require.NoError(t, err)
			require.Len(t, r.Segments, 1)
			assert.Equal(t, domain.Size("12345678901234567"), r.Segments[0].Size)
		})
	}
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	for _, name := range []string{"empty.yml", "empty.json"} {
		t.Run(name, func(t *testing.T) {
			r, err := Load(writeFile(t, name, "\n"))
			require.NoError(t, err)
			assert.Equal(t, domain.Scenario{PriceChangePct: 0, BaselineChurn: 0.05}, r.Scenario)
			assert.Empty(t, r.Segments)
			assert.Nil(t, r.SweepPrices)
		})
	}
}

func TestLoad_MissingField(t *testing.T) {
	_, err := Load(writeFile(t, "s.yaml", "segments:\n  - name: A\n    size: 1\n  - name: B\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingField))
	assert.Contains(t, err.Error(), "segment 1")
	assert.Contains(t, err.Error(), "size")

	_, err = Load(writeFile(t, "s.json", `{"segments": [{"size": 10}]}`))
	assert.True(t, errors.Is(err, domain.ErrMissingField))
}

func TestLoad_TypeFaults(t *testing.T) {
	tests := []struct {
		name, file, content string
	}{
		{"yaml string price", "a.yaml", "scenario:\n  price_change_pct: ten\n"},
		{"yaml string size", "b.yaml", "segments:\n  - name: A\n    size: lots\n"},
		{"json string baseline", "c.json", `{"scenario": {"baseline_churn": "0.05"}}`},
		{"yaml unknown key", "d.yaml", "scenario:\n  price: 5\n"},
		{"json unknown key", "e.json", `{"scenarios": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.False(t, errors.Is(err, domain.ErrMissingField))
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("x/scenario.YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	f, err = FormatFromPath("scenario.json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = FormatFromPath("scenario.toml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Parse([]byte("{}"), Format("toml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
