// Package scenariofile reads forecast inputs from YAML or JSON files.
package scenariofile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"churn-horizon-lab/internal/domain"
)

// Format is a scenario file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat is returned for file extensions other than .yaml, .yml and .json.
var ErrUnsupportedFormat = errors.New("unsupported scenario file format")

// File is the on-disk layout. Omitted fields take their defaults on Resolve.
type File struct {
	Label    string                `yaml:"label" json:"label"`
	Scenario domain.ScenarioInput  `yaml:"scenario" json:"scenario"`
	Segments []domain.SegmentInput `yaml:"segments" json:"segments"`
	Sweep    *SweepSpec            `yaml:"sweep" json:"sweep"`
}

// SweepSpec lists price changes to evaluate. BaselineChurn defaults to the scenario's.
type SweepSpec struct {
	BaselineChurn   *float64  `yaml:"baseline_churn" json:"baseline_churn"`
	PriceChangePcts []float64 `yaml:"price_change_pcts" json:"price_change_pcts"`
}

// Resolved is a File with defaults applied and required fields checked.
type Resolved struct {
	Label         string
	Scenario      domain.Scenario
	Segments      []domain.Segment
	SweepBaseline float64
	SweepPrices   []float64 // nil when the file has no sweep

	// SweepBaselineSet reports an explicit sweep.baseline_churn in the file.
	SweepBaselineSet bool
}

// FormatFromPath picks the format by extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads and resolves a scenario file.
func Load(path string) (*Resolved, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	f, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f.Resolve()
}

// Parse decodes a scenario file. Unknown keys and wrong types are errors.
// An empty document decodes to an empty File.
func Parse(data []byte, format Format) (*File, error) {
	var f File

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatJSON:
		if len(bytes.TrimSpace(data)) == 0 {
			return &f, nil
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	return &f, nil
}

// Resolve applies scenario and segment defaults. A segment missing its name
// or size fails with domain.ErrMissingField.
func (f *File) Resolve() (*Resolved, error) {
	segments, err := domain.ResolveSegments(f.Segments)
	if err != nil {
		return nil, err
	}

	r := &Resolved{
		Label:    f.Label,
		Scenario: f.Scenario.Resolve(),
		Segments: segments,
	}
	r.SweepBaseline = r.Scenario.BaselineChurn

	if f.Sweep != nil {
		if f.Sweep.BaselineChurn != nil {
			r.SweepBaseline = *f.Sweep.BaselineChurn
			r.SweepBaselineSet = true
		}
		r.SweepPrices = append([]float64{}, f.Sweep.PriceChangePcts...)
	}
	return r, nil
}
