package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// DefaultElasticity is used when a segment carries no elasticity.
const DefaultElasticity = -2.0

// ErrMissingField is returned when a required segment field is absent.
var ErrMissingField = errors.New("missing required field")

// Size is a segment's customer count or share. It holds the number as
// written, so counts beyond float64 precision pass through unchanged.
// The zero value reads as 0.
type Size string

// ParseSize accepts a JSON number literal.
func ParseSize(text string) (Size, error) {
	var n json.Number
	if text == "" || text[0] == '"' {
		return "", fmt.Errorf("size %q is not a number", text)
	}
	if err := json.Unmarshal([]byte(text), &n); err != nil || n == "" {
		return "", fmt.Errorf("size %q is not a number", text)
	}
	return Size(n), nil
}

// Float64 returns the size for arithmetic.
func (s Size) Float64() float64 {
	f, _ := strconv.ParseFloat(string(s), 64)
	return f
}

func (s Size) String() string {
	if s == "" {
		return "0"
	}
	return string(s)
}

// MarshalJSON writes the size as a bare number.
func (s Size) MarshalJSON() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalJSON keeps the literal digits of a JSON number.
func (s *Size) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	parsed, err := ParseSize(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UnmarshalText decodes YAML scalars.
func (s *Size) UnmarshalText(text []byte) error {
	parsed, err := ParseSize(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Segment is a customer segment with all defaults resolved.
type Segment struct {
	Name       string  `json:"name"`
	Size       Size    `json:"size"`       // customer count or share, passed through
	Elasticity float64 `json:"elasticity"` // only the magnitude is used
}

// SegmentInput is the boundary form of a Segment.
// Name and Size are required; Elasticity defaults to DefaultElasticity.
type SegmentInput struct {
	Name       *string  `json:"name" yaml:"name"`
	Size       *Size    `json:"size" yaml:"size"`
	Elasticity *float64 `json:"elasticity,omitempty" yaml:"elasticity,omitempty"`
}

// Resolve validates required fields and applies defaults.
func (in SegmentInput) Resolve() (Segment, error) {
	if in.Name == nil {
		return Segment{}, fmt.Errorf("%w: name", ErrMissingField)
	}
	if in.Size == nil {
		return Segment{}, fmt.Errorf("%w: size", ErrMissingField)
	}
	seg := Segment{
		Name:       *in.Name,
		Size:       *in.Size,
		Elasticity: DefaultElasticity,
	}
	if in.Elasticity != nil {
		seg.Elasticity = *in.Elasticity
	}
	return seg, nil
}

// ResolveSegments resolves inputs in order and stops at the first missing field.
func ResolveSegments(inputs []SegmentInput) ([]Segment, error) {
	segments := make([]Segment, 0, len(inputs))
	for i, in := range inputs {
		seg, err := in.Resolve()
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// SegmentUplift is one horizon's scaled uplift for a segment, in percentage points.
type SegmentUplift struct {
	Horizon  Horizon
	UpliftPP float64
}

// SegmentResult holds per-horizon scaled uplift for one segment.
type SegmentResult struct {
	Name       string
	Size       Size
	Multiplier float64
	Uplifts    []SegmentUplift // horizon order
}

// Uplift returns the scaled uplift for h.
func (r SegmentResult) Uplift(h Horizon) (float64, bool) {
	for _, u := range r.Uplifts {
		if u.Horizon == h {
			return u.UpliftPP, true
		}
	}
	return 0, false
}

// MarshalJSON writes the flat form {"name", "size", "churn_<key>": value...}.
// The multiplier is not part of the wire form.
func (r SegmentResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"name":`)
	name, err := json.Marshal(r.Name)
	if err != nil {
		return nil, err
	}
	buf.Write(name)
	buf.WriteString(`,"size":`)
	size, err := json.Marshal(r.Size)
	if err != nil {
		return nil, err
	}
	buf.Write(size)
	for _, u := range r.Uplifts {
		v, err := json.Marshal(u.UpliftPP)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"` + u.Horizon.Key() + `":`)
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the flat form. Multiplier is left zero.
func (r *SegmentResult) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out SegmentResult
	if v, ok := raw["name"]; ok {
		if err := json.Unmarshal(v, &out.Name); err != nil {
			return fmt.Errorf("name: %w", err)
		}
	}
	if v, ok := raw["size"]; ok {
		if err := json.Unmarshal(v, &out.Size); err != nil {
			return fmt.Errorf("size: %w", err)
		}
	}
	for _, h := range AllHorizons {
		v, ok := raw[h.Key()]
		if !ok {
			continue
		}
		var pp float64
		if err := json.Unmarshal(v, &pp); err != nil {
			return fmt.Errorf("%s: %w", h.Key(), err)
		}
		out.Uplifts = append(out.Uplifts, SegmentUplift{Horizon: h, UpliftPP: pp})
	}
	*r = out
	return nil
}
