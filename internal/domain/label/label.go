// Package label merges detected and user-supplied labels into the label set of a photo.
package label

import (
	"cmp"
	"slices"
	"strings"
)

// CustomSeparator splits the custom-labels metadata field.
const CustomSeparator = ","

// Detected is a label returned by the detection engine.
type Detected struct {
	Name       string
	Confidence float64
}

// FilterDetected applies the detection boundary: entries below minConfidence are dropped,
// the rest are ordered by confidence (highest first) and truncated to maxCount.
// maxCount <= 0 means no cap.
func FilterDetected(labels []Detected, minConfidence float64, maxCount int) []Detected {
	out := make([]Detected, 0, len(labels))
	for _, l := range labels {
		if l.Confidence >= minConfidence {
			out = append(out, l)
		}
	}
	slices.SortStableFunc(out, func(a, b Detected) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	if maxCount > 0 && len(out) > maxCount {
		out = out[:maxCount]
	}
	return out
}

// ParseCustom splits a comma-separated custom-labels field into normalized labels.
// An empty field yields no labels.
func ParseCustom(field string) []string {
	if field == "" {
		return nil
	}
	parts := strings.Split(field, CustomSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if n := normalize(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Aggregate returns the sorted, deduplicated union of the detected label names and the
// custom labels field, all lowercased.
func Aggregate(detected []Detected, customField string) []string {
	seen := make(map[string]struct{}, len(detected))
	out := make([]string, 0, len(detected))
	add := func(l string) {
		if l == "" {
			return
		}
		if _, ok := seen[l]; ok {
			return
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}

	for _, d := range detected {
		add(normalize(d.Name))
	}
	for _, c := range ParseCustom(customField) {
		add(c)
	}

	slices.Sort(out)
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
