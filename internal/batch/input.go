package batch

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Row is one lookup request read from an input sheet. Line is the 1-based
// record number, counting the header when present.
type Row struct {
	Line       int    `json:"line"`
	County     string `json:"county,omitempty"`
	Address    string `json:"address,omitempty"`
	QuickRefID string `json:"quickrefid,omitempty"`
}

// column order used when the sheet has no header
var defaultColumns = []string{"county", "address", "quickrefid"}

// ReadRows loads rows from a .csv or .xlsx file. The header row is optional;
// without one, columns are county, address, quickrefid. Blank rows are
// skipped.
func ReadRows(path string) ([]Row, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		records, err = readCSV(path)
	case ".xlsx":
		records, err = readXLSX(path)
	default:
		return nil, eris.Errorf("batch: unsupported input type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return toRows(records), nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "batch: open csv")
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.Comment = '#'
	reader.LazyQuotes = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "batch: read csv row")
		}
		records = append(records, rec)
	}
}

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "batch: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("batch: xlsx has no sheets")
	}

	sheet := f.Sheets[0]
	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			records = append(records, nil)
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		records = append(records, cells)
	}
	return records, nil
}

func toRows(records [][]string) []Row {
	columns := map[string]int{}
	for i, name := range defaultColumns {
		columns[name] = i
	}

	start := 0
	if len(records) > 0 && isHeader(records[0]) {
		columns = map[string]int{}
		for i, h := range records[0] {
			columns[strings.ToLower(strings.TrimSpace(h))] = i
		}
		start = 1
	}

	cell := func(rec []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make([]Row, 0, len(records)-start)
	for i := start; i < len(records); i++ {
		r := Row{
			Line:       i + 1,
			County:     cell(records[i], "county"),
			Address:    cell(records[i], "address"),
			QuickRefID: cell(records[i], "quickrefid"),
		}
		if r.County == "" && r.Address == "" && r.QuickRefID == "" {
			continue
		}
		rows = append(rows, r)
	}
	return rows
}

func isHeader(rec []string) bool {
	for _, h := range rec {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "county", "address", "quickrefid":
			return true
		}
	}
	return false
}
