package metadata

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	errBadCorrections = errors.New("failed to load camera name corrections")
	errBadCorrection  = errors.New("invalid camera name correction")
)

// Corrections maps a normalized camera name to the name it should be
// filed under.
type Corrections map[string]string

// Apply returns the corrected name, or name itself when there is no entry.
func (c Corrections) Apply(name string) string {
	if corrected, ok := c[name]; ok {
		return corrected
	}
	return name
}

// LoadCorrections reads a JSON or YAML object of name pairs. An empty path
// yields an empty map.
func LoadCorrections(path string) (Corrections, error) {
	if path == "" {
		return Corrections{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadCorrections, err)
	}
	return ParseCorrections(data)
}

// ParseCorrections decodes JSON or YAML; JSON objects are valid YAML.
func ParseCorrections(data []byte) (Corrections, error) {
	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadCorrections, err)
	}

	corrections := make(Corrections, len(raw))
	for from, to := range raw {
		if strings.TrimSpace(to) == "" || strings.ContainsAny(to, `/\`) || strings.Trim(to, ". ") == "" {
			return nil, fmt.Errorf("%w: %q -> %q", errBadCorrection, from, to)
		}
		corrections[from] = to
	}
	return corrections, nil
}
