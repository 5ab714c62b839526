package reporting

import (
	"fmt"
	"strings"

	"churn-horizon-lab/internal/domain"
)

// RenderHorizonCSV renders a horizon forecast as CSV, one row per horizon.
func RenderHorizonCSV(f domain.HorizonForecast) string {
	var sb strings.Builder

	sb.WriteString("horizon,churn_rate,churn_uplift,churn_uplift_pp\n")
	for _, h := range f {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%.6f,%.4f\n",
			h.Horizon.Key(), h.ChurnRate, h.ChurnUplift, h.ChurnUpliftPP))
	}

	return sb.String()
}

// RenderSegmentCSV renders segment results as CSV, one row per segment in input order.
// Columns after name and size follow the segment JSON keys.
func RenderSegmentCSV(results []domain.SegmentResult) string {
	var sb strings.Builder

	sb.WriteString("name,size,multiplier")
	for _, h := range domain.AllHorizons {
		sb.WriteString("," + h.Key())
	}
	sb.WriteString("\n")

	for _, row := range segmentRows(results) {
		sb.WriteString(fmt.Sprintf("%s,%s,%.6f", csvField(row.Name), row.Size, row.Multiplier))
		for _, v := range row.UpliftPP {
			sb.WriteString(fmt.Sprintf(",%.4f", v))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderSweepCSV renders sweep points as CSV, one row per price change.
func RenderSweepCSV(points []domain.SweepPoint) string {
	var sb strings.Builder

	sb.WriteString("price_change_pct")
	for _, h := range domain.AllHorizons {
		sb.WriteString("," + h.Key())
	}
	sb.WriteString(",peak_horizon\n")

	for _, row := range sweepRows(points) {
		sb.WriteString(fmt.Sprintf("%g", row.PriceChangePct))
		for _, v := range row.UpliftPP {
			sb.WriteString(fmt.Sprintf(",%.4f", v))
		}
		sb.WriteString("," + row.Peak.Key() + "\n")
	}

	return sb.String()
}

// csvField quotes a free-text value when it contains a separator, quote or newline.
func csvField(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
