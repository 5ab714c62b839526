package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"churn-horizon-lab/internal/domain"
	"churn-horizon-lab/internal/scenariofile"
)

// Output formats.
const (
	formatJSON     = "json"
	formatCSV      = "csv"
	formatMarkdown = "markdown"
)

var errUnknownFormat = errors.New("unknown output format (use json, csv or markdown)")

// inputFlags are shared by every subcommand that takes a scenario.
type inputFlags struct {
	file     string
	price    float64
	baseline float64
	segments []string
	format   string
}

func (f *inputFlags) register(cmd *cobra.Command, withSegments bool) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Scenario file (.yaml, .yml or .json)")
	cmd.Flags().Float64Var(&f.price, "price", domain.DefaultPriceChangePct, "Price change in percent (overrides the file)")
	cmd.Flags().Float64Var(&f.baseline, "baseline", domain.DefaultBaselineChurn, "Baseline churn fraction (overrides the file; sweeps keep an explicit sweep.baseline_churn)")
	cmd.Flags().StringVarP(&f.format, "format", "o", formatJSON, "Output format: json|csv|markdown")
	if withSegments {
		cmd.Flags().StringArrayVar(&f.segments, "segment", nil, "Segment as name:size[:elasticity], repeatable (appended to the file's)")
	}
}

// resolve loads the scenario file, if any, and applies flag overrides.
func (f *inputFlags) resolve(cmd *cobra.Command) (*scenariofile.Resolved, error) {
	var (
		r   *scenariofile.Resolved
		err error
	)
	if f.file != "" {
		r, err = scenariofile.Load(f.file)
	} else {
		r, err = (&scenariofile.File{}).Resolve()
	}
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("price") {
		r.Scenario.PriceChangePct = f.price
	}
	if cmd.Flags().Changed("baseline") {
		r.Scenario.BaselineChurn = f.baseline
		if !r.SweepBaselineSet {
			r.SweepBaseline = f.baseline
		}
	}

	for i, raw := range f.segments {
		seg, err := parseSegmentFlag(raw)
		if err != nil {
			return nil, fmt.Errorf("--segment %d: %w", i, err)
		}
		r.Segments = append(r.Segments, seg)
	}

	switch f.format {
	case formatJSON, formatCSV, formatMarkdown:
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownFormat, f.format)
	}
	return r, nil
}

// parseSegmentFlag parses name:size[:elasticity].
func parseSegmentFlag(raw string) (domain.Segment, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return domain.Segment{}, fmt.Errorf("expected name:size[:elasticity], got %q", raw)
	}

	name := strings.TrimSpace(parts[0])
	in := domain.SegmentInput{Name: &name}

	size, err := domain.ParseSize(strings.TrimSpace(parts[1]))
	if err != nil {
		return domain.Segment{}, err
	}
	in.Size = &size

	if len(parts) == 3 {
		e, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return domain.Segment{}, fmt.Errorf("elasticity: %w", err)
		}
		in.Elasticity = &e
	}
	return in.Resolve()
}

func writeOut(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	return err
}
