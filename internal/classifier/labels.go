package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// UnknownBreed is the display name for an index outside the label table
const UnknownBreed = "Unknown"

// Breed is one entry of the breed taxonomy
type Breed struct {
	Label int    `json:"label_number"`
	Name  string `json:"name"`
	Raw   string `json:"raw_name,omitempty"`
}

// Labels is the ordered breed taxonomy. Index i names model output i.
type Labels []string

// LoadLabels reads a labels.json file. Both an index keyed object
// ({"0": "n02085620-Chihuahua"}) and a plain array are accepted.
// Object keys must cover 0..n-1 without gaps.
func LoadLabels(path string) (Labels, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}
	labels, err := ParseLabels(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse labels file %s: %w", path, err)
	}
	return labels, nil
}

// ParseLabels decodes labels.json content
func ParseLabels(data []byte) (Labels, error) {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list) == 0 {
			return nil, fmt.Errorf("no labels")
		}
		return Labels(list), nil
	}

	var byIndex map[string]string
	if err := json.Unmarshal(data, &byIndex); err != nil {
		return nil, fmt.Errorf("labels must be a JSON object or array: %w", err)
	}
	if len(byIndex) == 0 {
		return nil, fmt.Errorf("no labels")
	}

	labels := make(Labels, len(byIndex))
	for key, name := range byIndex {
		i, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("label key %q is not an index", key)
		}
		if i < 0 || i >= len(labels) {
			return nil, fmt.Errorf("label index %d out of range for %d labels", i, len(labels))
		}
		labels[i] = name
	}
	for i, name := range labels {
		if name == "" {
			return nil, fmt.Errorf("label %d is missing or empty", i)
		}
	}
	return labels, nil
}

// Name returns the display name of label i
func (l Labels) Name(i int) string {
	if i < 0 || i >= len(l) {
		return UnknownBreed
	}
	return DisplayName(l[i])
}

// Breeds lists every label with its display name
func (l Labels) Breeds() []Breed {
	breeds := make([]Breed, len(l))
	for i, raw := range l {
		breeds[i] = Breed{Label: i, Name: DisplayName(raw), Raw: raw}
	}
	return breeds
}

// Breed returns entry i and whether it exists
func (l Labels) Breed(i int) (Breed, bool) {
	if i < 0 || i >= len(l) {
		return Breed{}, false
	}
	return Breed{Label: i, Name: DisplayName(l[i]), Raw: l[i]}, true
}

// DisplayName turns a WordNet style label such as "n02085620-Chihuahua"
// or "n02089078-black-and-tan_coonhound" into "Chihuahua" or
// "Black-And-Tan Coonhound".
func DisplayName(raw string) string {
	name := raw
	if _, rest, ok := strings.Cut(raw, "-"); ok {
		name = rest
	}
	return titleCase(strings.ReplaceAll(name, "_", " "))
}

// titleCase upper-cases letters that follow a non-letter and lower-cases the rest
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		isLetter := unicode.IsLetter(r)
		switch {
		case isLetter && !prevLetter:
			b.WriteRune(unicode.ToUpper(r))
		case isLetter:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = isLetter
	}
	return b.String()
}
