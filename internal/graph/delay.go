package graph

import (
	"fmt"
	"strings"

	"github.com/cadencehq/cadence/pkg/schema"
)

// ClampDelay coerces every duration field to >= 0. Negative input is
// corrected, never rejected.
func ClampDelay(d schema.DelayData) schema.DelayData {
	if d.Days < 0 {
		d.Days = 0
	}
	if d.Hours < 0 {
		d.Hours = 0
	}
	if d.Minutes < 0 {
		d.Minutes = 0
	}
	if d.Seconds < 0 {
		d.Seconds = 0
	}
	return d
}

// FormatDelay derives the compact display label from a duration: only the
// non-zero units, in days, hours, minutes, seconds order. An all-zero
// duration yields "0m".
func FormatDelay(d schema.DelayData) string {
	var parts []string
	if d.Days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", d.Days))
	}
	if d.Hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", d.Hours))
	}
	if d.Minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", d.Minutes))
	}
	if d.Seconds > 0 {
		parts = append(parts, fmt.Sprintf("%ds", d.Seconds))
	}
	if len(parts) == 0 {
		return "0m"
	}
	return strings.Join(parts, " ")
}

// SetDelay updates a delay edge's duration. The numeric fields are the source
// of truth; the label is recomputed from them here and nowhere else. Other
// keys in the edge payload survive untouched.
func (s *Store) SetDelay(edgeID string, d schema.DelayData) error {
	if _, ok := s.Edge(edgeID); !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "edge not found: %s", edgeID)
	}
	d = ClampDelay(d)
	return s.UpdateEdge(edgeID, mustMarshal(schema.EdgeData{
		Delay:     FormatDelay(d),
		DelayData: d,
	}))
}
