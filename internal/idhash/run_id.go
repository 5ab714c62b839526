package idhash

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"churn-horizon-lab/internal/domain"
)

// runNamespace scopes forecast run IDs.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("churn-horizon-lab/forecast-run"))

// ComputeRunID computes a deterministic run_id as a name-based (v5) UUID.
// Formula: UUIDv5(label|price_change_pct|baseline_churn|name:size:elasticity|...)
// Floats are encoded with the shortest round-trip representation, so equal
// inputs always yield the same ID and any changed bit yields a new one.
func ComputeRunID(label string, scenario domain.Scenario, segments []domain.Segment) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%s",
		strconv.Quote(label),
		formatFloat(scenario.PriceChangePct),
		formatFloat(scenario.BaselineChurn),
	)
	for _, s := range segments {
		fmt.Fprintf(&sb, "|%s:%s:%s",
			strconv.Quote(s.Name),
			formatSize(s.Size),
			formatFloat(s.Elasticity),
		)
	}

	return uuid.NewSHA1(runNamespace, []byte(sb.String())).String()
}

// ShortCode returns a compact base58 form of a run ID for filenames and logs.
func ShortCode(runID string) (string, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return "", fmt.Errorf("parse run id: %w", err)
	}
	return base58.Encode(id[:]), nil
}

// ParseShortCode reverses ShortCode.
func ParseShortCode(code string) (string, error) {
	raw, err := base58.Decode(code)
	if err != nil {
		return "", fmt.Errorf("decode short code: %w", err)
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return "", fmt.Errorf("short code is not a run id: %w", err)
	}
	return id.String(), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatSize keeps integer counts exact; other sizes hash by float value,
// so "1000" and "1000.0" share an ID.
func formatSize(s domain.Size) string {
	if n, err := strconv.ParseInt(string(s), 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return formatFloat(s.Float64())
}
