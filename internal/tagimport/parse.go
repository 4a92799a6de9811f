// Package tagimport loads tag manifests and provisions the tags they list.
package tagimport

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tagreturn/tagreturn-server/internal/domain"
	"github.com/tagreturn/tagreturn-server/internal/validation"
)

// Format is a manifest encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for files whose extension is not a manifest type.
var ErrUnknownFormat = errors.New("unknown manifest format")

// FormatFor picks a format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Base(path))
	}
}

// record is one manifest row. Field names follow the tag export columns.
type record struct {
	ID   string `json:"tag1" yaml:"tag1"`
	Name string `json:"tag_name" yaml:"tag_name"`
	Date string `json:"date" yaml:"date"`
}

// ParseFile reads a manifest, choosing the decoder by extension.
func ParseFile(path string) ([]domain.Tag, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	//#nosec G304 -- operator-supplied manifest path
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, format)
}

// Parse decodes a manifest. Rows whose id is empty or not a valid tag id
// are rejected; a missing date defaults to the import time.
func Parse(r io.Reader, format Format) ([]domain.Tag, error) {
	var (
		records []record
		err     error
	)
	switch format {
	case FormatCSV:
		records, err = parseCSV(r)
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&records)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&records)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s manifest: %w", format, err)
	}

	now := time.Now().UTC()
	seen := make(map[string]bool, len(records))
	tags := make([]domain.Tag, 0, len(records))
	for i, rec := range records {
		id := strings.TrimSpace(rec.ID)
		if id == "" {
			return nil, fmt.Errorf("row %d: tag id is empty", i+1)
		}
		if !validation.IsTagID(id) {
			return nil, fmt.Errorf("row %d: tag id %q must be 1-64 letters, digits, '-' or '_'", i+1, id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		created := now
		if d := strings.TrimSpace(rec.Date); d != "" {
			created, err = parseDate(d)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
		}
		tags = append(tags, domain.Tag{ID: id, Name: strings.TrimSpace(rec.Name), CreatedAt: created})
	}
	return tags, nil
}

func parseCSV(r io.Reader) ([]record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := map[string]int{"tag1": 0, "tag_name": 1, "date": 2}
	if hasColumn(rows[0], "tag1") {
		cols = map[string]int{}
		for i, name := range rows[0] {
			cols[strings.ToLower(strings.TrimSpace(name))] = i
		}
		rows = rows[1:]
	}

	get := func(row []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := make([]record, 0, len(rows))
	for _, row := range rows {
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		records = append(records, record{ID: get(row, "tag1"), Name: get(row, "tag_name"), Date: get(row, "date")})
	}
	return records, nil
}

func hasColumn(header []string, name string) bool {
	for _, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return true
		}
	}
	return false
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.DateTime,
	time.DateOnly,
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
