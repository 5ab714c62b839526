package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Horizon is a time window after a price change over which churn impact is measured.
type Horizon int

// Horizons in fixed order. Iterate with AllHorizons, never over a map.
const (
	Horizon0To4Weeks Horizon = iota
	Horizon4To8Weeks
	Horizon8To12Weeks
	Horizon12PlusWeeks
)

// AllHorizons lists every horizon in display order.
var AllHorizons = []Horizon{
	Horizon0To4Weeks,
	Horizon4To8Weeks,
	Horizon8To12Weeks,
	Horizon12PlusWeeks,
}

var horizonNames = [...]string{
	Horizon0To4Weeks:   "0-4 Weeks",
	Horizon4To8Weeks:   "4-8 Weeks",
	Horizon8To12Weeks:  "8-12 Weeks",
	Horizon12PlusWeeks: "12+ Weeks",
}

// String returns the display name, e.g. "8-12 Weeks".
func (h Horizon) String() string {
	if h < 0 || int(h) >= len(horizonNames) {
		return "unknown"
	}
	return horizonNames[h]
}

// Key returns the normalized per-segment field name, e.g. "churn_12plus_weeks".
func (h Horizon) Key() string {
	return HorizonKey(h.String())
}

// HorizonKey normalizes a horizon display name into a segment result field name.
// Replaces ' ' and '-' with '_', '+' with "plus", lowercases, and prefixes "churn_".
func HorizonKey(name string) string {
	key := strings.ReplaceAll(name, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, "+", "plus")
	return "churn_" + strings.ToLower(key)
}

// ParseHorizon resolves a display name or normalized key back to a Horizon.
func ParseHorizon(s string) (Horizon, bool) {
	for _, h := range AllHorizons {
		if s == h.String() || s == h.Key() {
			return h, true
		}
	}
	return 0, false
}

// HorizonResult holds churn estimates for one horizon.
type HorizonResult struct {
	Horizon       Horizon
	ChurnRate     float64 // logistic probability, in (0,1)
	ChurnUplift   float64 // ChurnRate - baseline
	ChurnUpliftPP float64 // ChurnUplift * 100
}

// HorizonForecast is the ordered set of horizon results for one scenario.
type HorizonForecast []HorizonResult

// Get returns the result for h.
func (f HorizonForecast) Get(h Horizon) (HorizonResult, bool) {
	for _, r := range f {
		if r.Horizon == h {
			return r, true
		}
	}
	return HorizonResult{}, false
}

// Peak returns the result with the largest uplift. First wins on ties.
func (f HorizonForecast) Peak() (HorizonResult, bool) {
	if len(f) == 0 {
		return HorizonResult{}, false
	}
	peak := f[0]
	for _, r := range f[1:] {
		if r.ChurnUpliftPP > peak.ChurnUpliftPP {
			peak = r
		}
	}
	return peak, true
}

type horizonResultJSON struct {
	ChurnRate     float64 `json:"churn_rate"`
	ChurnUplift   float64 `json:"churn_uplift"`
	ChurnUpliftPP float64 `json:"churn_uplift_pp"`
}

// MarshalJSON encodes the forecast as an object keyed by horizon display name,
// keys written in horizon order.
func (f HorizonForecast) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(r.Horizon.String())
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(horizonResultJSON{
			ChurnRate:     r.ChurnRate,
			ChurnUplift:   r.ChurnUplift,
			ChurnUpliftPP: r.ChurnUpliftPP,
		})
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the object form produced by MarshalJSON.
// Unknown horizon names are rejected.
func (f *HorizonForecast) UnmarshalJSON(data []byte) error {
	var raw map[string]horizonResultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for name := range raw {
		if _, ok := ParseHorizon(name); !ok {
			return &UnknownHorizonError{Name: name}
		}
	}
	out := make(HorizonForecast, 0, len(raw))
	for _, h := range AllHorizons {
		r, ok := raw[h.String()]
		if !ok {
			continue
		}
		out = append(out, HorizonResult{
			Horizon:       h,
			ChurnRate:     r.ChurnRate,
			ChurnUplift:   r.ChurnUplift,
			ChurnUpliftPP: r.ChurnUpliftPP,
		})
	}
	*f = out
	return nil
}

// UnknownHorizonError reports a horizon name outside the fixed set.
type UnknownHorizonError struct {
	Name string
}

func (e *UnknownHorizonError) Error() string {
	return "unknown horizon: " + e.Name
}
