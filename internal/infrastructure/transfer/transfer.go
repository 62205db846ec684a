// Package transfer reads and writes the entity directory as YAML or XLSX
// so it can be moved between installations or edited in a spreadsheet.
package transfer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/buyercheck/backend/internal/domain"
)

// Format identifies a transfer file format
type Format string

const (
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

// FormatFromPath picks the format from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported file type %q: use .yaml, .yml or .xlsx", filepath.Ext(path))
}

// Encode writes inputs to w in the given format
func Encode(w io.Writer, format Format, inputs []domain.EntityInput) error {
	switch format {
	case FormatYAML:
		return WriteYAML(w, inputs)
	case FormatXLSX:
		return WriteXLSX(w, inputs)
	}
	return fmt.Errorf("unsupported format %q", format)
}

// Decode reads entity inputs from r in the given format
func Decode(r io.Reader, format Format) ([]domain.EntityInput, error) {
	switch format {
	case FormatYAML:
		return ReadYAML(r)
	case FormatXLSX:
		return ReadXLSX(r)
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// column binds a spreadsheet heading to an EntityInput field
type column struct {
	heading string
	get     func(domain.EntityInput) string
	set     func(*domain.EntityInput, string)
}

var columns = []column{
	{"Entity", func(in domain.EntityInput) string { return in.Entity }, func(in *domain.EntityInput, v string) { in.Entity = v }},
	{"Name", func(in domain.EntityInput) string { return in.Name }, func(in *domain.EntityInput, v string) { in.Name = v }},
	{"TIN", func(in domain.EntityInput) string { return in.TIN }, func(in *domain.EntityInput, v string) { in.TIN = v }},
	{"Type", func(in domain.EntityInput) string { return in.Type }, func(in *domain.EntityInput, v string) { in.Type = v }},
	{"ID", func(in domain.EntityInput) string { return in.ID }, func(in *domain.EntityInput, v string) { in.ID = v }},
	{"SST", func(in domain.EntityInput) string { return in.SST }, func(in *domain.EntityInput, v string) { in.SST = v }},
	{"Address", func(in domain.EntityInput) string { return in.Address }, func(in *domain.EntityInput, v string) { in.Address = v }},
	{"Email", func(in domain.EntityInput) string { return in.Email }, func(in *domain.EntityInput, v string) { in.Email = v }},
	{"Contact Number", func(in domain.EntityInput) string { return in.ContactNumber }, func(in *domain.EntityInput, v string) { in.ContactNumber = v }},
}

func headingKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}
