// Package directory resolves display names for tradeable symbols from the
// exchange equity master list.
package directory

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/suwi/papertrade/internal/domain"
)

const maxSearchResults = 25

// CSVDirectory is a read-only symbol directory loaded once from a CSV file
// with symbol,name rows. Safe for concurrent reads after construction.
type CSVDirectory struct {
	names   map[string]string
	entries []domain.SymbolInfo
	log     zerolog.Logger
}

var _ domain.SymbolDirectory = (*CSVDirectory)(nil)

// LoadCSV reads the equity master list from path. Rows without both a
// symbol and a name are skipped.
func LoadCSV(path string, log zerolog.Logger) (*CSVDirectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open symbol list %s: %w", path, err)
	}
	defer f.Close()

	d := &CSVDirectory{
		names: make(map[string]string),
		log:   log.With().Str("service", "directory").Logger(),
	}

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse symbol list %s: %w", path, err)
		}

		if first {
			first = false
			// Header row
			if len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "symbol") {
				continue
			}
		}

		if len(record) < 2 {
			continue
		}
		symbol := strings.ToUpper(strings.TrimSpace(record[0]))
		name := strings.TrimSpace(record[1])
		if symbol == "" || name == "" {
			continue
		}

		if _, ok := d.names[symbol]; ok {
			continue
		}
		d.names[symbol] = name
		d.entries = append(d.entries, domain.SymbolInfo{Symbol: symbol, Name: name})
	}

	d.log.Info().Int("symbols", len(d.entries)).Str("path", path).Msg("Symbol directory loaded")
	return d, nil
}

// Empty creates a directory with no entries, used when the master list is
// unavailable. Every lookup misses and search returns nothing.
func Empty(log zerolog.Logger) *CSVDirectory {
	return &CSVDirectory{
		names: make(map[string]string),
		log:   log.With().Str("service", "directory").Logger(),
	}
}

// ResolveName returns the display name for a symbol, or the empty string
// when the symbol is unknown.
func (d *CSVDirectory) ResolveName(symbol string) string {
	return d.names[strings.ToUpper(strings.TrimSpace(symbol))]
}

// Search returns directory entries whose symbol or name contains the query,
// case-insensitive, capped. An empty query returns nothing.
func (d *CSVDirectory) Search(query string) []domain.SymbolInfo {
	query = strings.ToUpper(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var results []domain.SymbolInfo
	for _, e := range d.entries {
		if strings.Contains(e.Symbol, query) || strings.Contains(strings.ToUpper(e.Name), query) {
			results = append(results, e)
			if len(results) == maxSearchResults {
				break
			}
		}
	}
	return results
}

// Len returns the number of loaded symbols
func (d *CSVDirectory) Len() int {
	return len(d.entries)
}
