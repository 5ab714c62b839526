package reporting

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"churn-horizon-lab/internal/domain"
)

// Workbook sheet names.
const (
	SheetSummary  = "Summary"
	SheetHorizons = "Horizons"
	SheetSegments = "Segments"
	SheetSpread   = "Spread"
	SheetSweep    = "Sweep"
)

// WriteXLSX writes the report as an Excel workbook.
// Spread and Sweep sheets are only added when the report has rows for them.
func WriteXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	summary := [][]interface{}{
		{"Label", r.Label},
		{"Run ID", r.RunID},
		{"Short code", r.ShortCode},
		{"Generated", r.GeneratedAt.Format(time.RFC3339)},
		{"Price change (%)", r.Scenario.PriceChangePct},
		{"Baseline churn", r.Scenario.BaselineChurn},
	}
	if r.Peak != nil {
		summary = append(summary, []interface{}{"Peak horizon", r.Peak.Horizon.String()})
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return err
	}

	horizons := [][]interface{}{{"Horizon", "Churn rate", "Uplift", "Uplift (pp)"}}
	for _, h := range r.Horizons {
		horizons = append(horizons, []interface{}{h.Horizon.String(), h.ChurnRate, h.ChurnUplift, h.ChurnUpliftPP})
	}
	if err := addSheet(f, SheetHorizons, horizons); err != nil {
		return err
	}

	segments := [][]interface{}{append([]interface{}{"Segment", "Size", "Multiplier"}, horizonHeaders()...)}
	for _, s := range r.Segments {
		row := []interface{}{s.Name, s.Size.Float64(), s.Multiplier}
		for _, v := range s.UpliftPP {
			row = append(row, v)
		}
		segments = append(segments, row)
	}
	if err := addSheet(f, SheetSegments, segments); err != nil {
		return err
	}

	if len(r.SegmentSpread) > 0 {
		spread := [][]interface{}{{"Horizon", "Segments", "Min (pp)", "Median (pp)", "Max (pp)", "Mean (pp)", "Size-weighted (pp)"}}
		for _, s := range r.SegmentSpread {
			spread = append(spread, []interface{}{s.Horizon.String(), s.SegmentCount, s.MinPP, s.MedianPP, s.MaxPP, s.MeanPP, s.WeightedPP})
		}
		if err := addSheet(f, SheetSpread, spread); err != nil {
			return err
		}
	}

	if len(r.Sweep) > 0 {
		sweep := [][]interface{}{append(append([]interface{}{"Price change (%)"}, horizonHeaders()...), "Peak")}
		for _, p := range r.Sweep {
			row := []interface{}{p.PriceChangePct}
			for _, v := range p.UpliftPP {
				row = append(row, v)
			}
			sweep = append(sweep, append(row, p.Peak.String()))
		}
		if err := addSheet(f, SheetSweep, sweep); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func horizonHeaders() []interface{} {
	headers := make([]interface{}, 0, len(domain.AllHorizons))
	for _, h := range domain.AllHorizons {
		headers = append(headers, h.String()+" (pp)")
	}
	return headers
}

func addSheet(f *excelize.File, sheet string, rows [][]interface{}) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	return writeRows(f, sheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
