package reporting

import (
	"fmt"
	"strings"
	"time"

	"churn-horizon-lab/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	title := r.Label
	if title == "" {
		title = "Churn Forecast"
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: %s (%s)\n\n", r.RunID, r.ShortCode))
	}
	sb.WriteString(fmt.Sprintf("Price change: %.2f%% | Baseline churn: %.4f\n\n",
		r.Scenario.PriceChangePct, r.Scenario.BaselineChurn))

	// Horizons
	sb.WriteString("## Churn by Horizon\n\n")
	writeHorizonTable(&sb, r.Horizons)
	if r.Peak != nil {
		sb.WriteString(fmt.Sprintf("Peak uplift: **%s** (%+.4f pp)\n\n", r.Peak.Horizon, r.Peak.ChurnUpliftPP))
	}

	// Segments
	sb.WriteString("## Segments\n\n")
	if len(r.Segments) > 0 {
		writeSegmentTable(&sb, r.Segments)
	} else {
		sb.WriteString("No segments evaluated.\n\n")
	}

	// Spread
	if len(r.SegmentSpread) > 0 {
		sb.WriteString("## Segment Spread\n\n")
		sb.WriteString("| Horizon | Segments | Min (pp) | Median (pp) | Max (pp) | Mean (pp) | Size-weighted (pp) |\n")
		sb.WriteString("|---------|----------|----------|-------------|----------|-----------|--------------------|\n")
		for _, s := range r.SegmentSpread {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.4f | %.4f | %.4f | %.4f | %.4f |\n",
				s.Horizon, s.SegmentCount, s.MinPP, s.MedianPP, s.MaxPP, s.MeanPP, s.WeightedPP))
		}
		sb.WriteString("\n")
	}

	// Sweep
	if len(r.Sweep) > 0 {
		sb.WriteString("## Price Sensitivity\n\n")
		writeSweepTable(&sb, r.Sweep)
	}

	return sb.String()
}

// RenderHorizonMarkdown renders a bare horizon forecast as a Markdown table.
func RenderHorizonMarkdown(f domain.HorizonForecast) string {
	var sb strings.Builder
	writeHorizonTable(&sb, horizonRows(f))
	return sb.String()
}

// RenderSegmentMarkdown renders segment results as a Markdown table.
func RenderSegmentMarkdown(results []domain.SegmentResult) string {
	var sb strings.Builder
	writeSegmentTable(&sb, segmentRows(results))
	return sb.String()
}

// RenderSweepMarkdown renders sweep points as a Markdown table.
func RenderSweepMarkdown(points []domain.SweepPoint) string {
	var sb strings.Builder
	writeSweepTable(&sb, sweepRows(points))
	return sb.String()
}

func writeHorizonTable(sb *strings.Builder, rows []HorizonRow) {
	sb.WriteString("| Horizon | Churn Rate | Uplift | Uplift (pp) |\n")
	sb.WriteString("|---------|------------|--------|-------------|\n")
	for _, h := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %.6f | %+.6f | %+.4f |\n",
			h.Horizon, h.ChurnRate, h.ChurnUplift, h.ChurnUpliftPP))
	}
	sb.WriteString("\n")
}

func writeSegmentTable(sb *strings.Builder, rows []SegmentRow) {
	sb.WriteString("| Segment | Size | Multiplier |")
	for _, h := range domain.AllHorizons {
		sb.WriteString(fmt.Sprintf(" %s (pp) |", h))
	}
	sb.WriteString("\n|---------|------|------------|")
	for range domain.AllHorizons {
		sb.WriteString("------|")
	}
	sb.WriteString("\n")

	for _, s := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %s | %.4f |", s.Name, s.Size, s.Multiplier))
		for _, v := range s.UpliftPP {
			sb.WriteString(fmt.Sprintf(" %+.4f |", v))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func writeSweepTable(sb *strings.Builder, rows []SweepRow) {
	sb.WriteString("| Price change (%) |")
	for _, h := range domain.AllHorizons {
		sb.WriteString(fmt.Sprintf(" %s (pp) |", h))
	}
	sb.WriteString(" Peak |\n|------------------|")
	for range domain.AllHorizons {
		sb.WriteString("------|")
	}
	sb.WriteString("------|\n")

	for _, p := range rows {
		sb.WriteString(fmt.Sprintf("| %.2f |", p.PriceChangePct))
		for _, v := range p.UpliftPP {
			sb.WriteString(fmt.Sprintf(" %+.4f |", v))
		}
		sb.WriteString(fmt.Sprintf(" %s |\n", p.Peak))
	}
	sb.WriteString("\n")
}
