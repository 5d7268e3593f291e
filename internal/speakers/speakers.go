// Package speakers consolidates the different spellings of speaker names
// found in the legacy data.
//
// Normalization is a pure transform: collapse whitespace, then consult an
// optional mapping table loaded once at startup. The analyzer is a
// diagnostic aid for building that table; it never alters migrated data.
package speakers

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// Normalizer maps raw speaker names to canonical ones.
type Normalizer struct {
	mappings map[string]string // keyed by lowercased source name
	enabled  bool
}

// mappingsFile is the on-disk shape of the mapping table.
type mappingsFile struct {
	Mappings map[string]string `json:"mappings"`
}

// NewNormalizer creates a Normalizer without a mapping table; only
// whitespace normalization applies.
func NewNormalizer() *Normalizer {
	return &Normalizer{mappings: make(map[string]string)}
}

// LoadNormalizer creates a Normalizer from a JSON mapping file. A missing
// file is not an error: the normalizer falls back to whitespace-only
// normalization.
func LoadNormalizer(path string) (*Normalizer, error) {
	n := NewNormalizer()

	if path == "" {
		return n, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return n, nil
		}
		return nil, fmt.Errorf("failed to read speaker mappings: %w", err)
	}

	var file mappingsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse speaker mappings: %w", err)
	}

	for source, target := range file.Mappings {
		// Example entries document the file format and are not real mappings.
		if strings.HasPrefix(source, "Example:") || target == "" {
			continue
		}
		n.mappings[strings.ToLower(source)] = target
	}

	n.enabled = len(n.mappings) > 0
	return n, nil
}

// MappingCount returns the number of loaded mappings.
func (n *Normalizer) MappingCount() int { return len(n.mappings) }

// Enabled reports whether a mapping table is loaded.
func (n *Normalizer) Enabled() bool { return n.enabled }

// Normalize maps a raw speaker name to its canonical form. Idempotent:
// Normalize(Normalize(x)) == Normalize(x).
func (n *Normalizer) Normalize(raw string) string {
	if raw == "" {
		return raw
	}

	collapsed := strings.TrimSpace(whitespace.ReplaceAllString(raw, " "))

	if mapped, ok := n.mappings[strings.ToLower(collapsed)]; ok {
		return mapped
	}

	// The table may key on the original spelling, whitespace and all.
	if mapped, ok := n.mappings[strings.ToLower(raw)]; ok {
		return mapped
	}

	return collapsed
}

// NameCount is one distinct speaker name and its message count.
type NameCount struct {
	Name  string
	Count int
}

// DuplicatePair is two names the analyzer considers likely spellings of
// the same speaker.
type DuplicatePair struct {
	A, B string
}

// Report is the result of analyzing a set of raw speaker names.
type Report struct {
	Names      []NameCount
	Duplicates []DuplicatePair
}

// Analyze groups raw names, counts per-name frequency, and flags
// near-duplicate pairs.
func Analyze(raw []string) Report {
	counts := make(map[string]int)
	for _, name := range raw {
		counts[strings.TrimSpace(name)]++
	}

	names := make([]NameCount, 0, len(counts))
	for name, count := range counts {
		names = append(names, NameCount{Name: name, Count: count})
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Name < names[j].Name })

	var duplicates []DuplicatePair
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			a, b := names[i].Name, names[j].Name
			if a == "" || b == "" {
				continue
			}
			if similar(a, b) {
				duplicates = append(duplicates, DuplicatePair{A: a, B: b})
			}
		}
	}

	return Report{Names: names, Duplicates: duplicates}
}

// similar applies the near-duplicate heuristics: exact match after trim,
// containment either direction, or same first rune with close length and
// high character overlap.
func similar(a, b string) bool {
	if strings.TrimSpace(a) == strings.TrimSpace(b) {
		return true
	}

	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}

	ra, rb := []rune(a), []rune(b)
	diff := len(ra) - len(rb)
	if diff < 0 {
		diff = -diff
	}
	if diff > 2 || len(ra) == 0 || len(rb) == 0 || ra[0] != rb[0] {
		return false
	}

	return overlapRatio(ra, rb) > 0.7
}

// overlapRatio is the share of distinct runes of the longer name that
// also occur in the other.
func overlapRatio(a, b []rune) float64 {
	setA := make(map[rune]struct{}, len(a))
	for _, r := range a {
		setA[r] = struct{}{}
	}
	setB := make(map[rune]struct{}, len(b))
	for _, r := range b {
		setB[r] = struct{}{}
	}

	common := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			common++
		}
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return float64(common) / float64(maxLen)
}
