package impact

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"LiteratureDigest/internal/domain"
	"LiteratureDigest/internal/ports"
)

// TableLookup serves impact factors from a static YAML mapping of journal to factor.
type TableLookup struct {
	factors map[string]float64
}

var _ ports.ImpactLookup = (*TableLookup)(nil)

// LoadTable reads a YAML file such as:
//
//	Nature: 49.962
//	Journal of Medicinal Chemistry: 7.446
func LoadTable(path string) (*TableLookup, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read impact table: %w", err)
	}
	return ParseTable(raw)
}

// ParseTable decodes the YAML mapping. Journal names are matched case-insensitively.
func ParseTable(raw []byte) (*TableLookup, error) {
	var entries map[string]float64
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse impact table: %w", err)
	}

	factors := make(map[string]float64, len(entries))
	for name, factor := range entries {
		factors[normalize(name)] = factor
	}
	return &TableLookup{factors: factors}, nil
}

// Lookup returns the tabled factor or domain.ErrJournalNotFound.
func (t *TableLookup) Lookup(_ context.Context, journal string) (float64, error) {
	factor, ok := t.factors[normalize(journal)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrJournalNotFound, journal)
	}
	return factor, nil
}

// Len reports the number of journals in the table.
func (t *TableLookup) Len() int {
	return len(t.factors)
}

func normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
