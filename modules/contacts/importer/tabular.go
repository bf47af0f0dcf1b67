package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/extrame/xls"
	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
	ExtXLS  = ".xls"
)

// RawRow maps a header name to the cell value of one data row.
type RawRow map[string]string

// Table is a parsed upload. Headers keep source column order.
type Table struct {
	Headers []string `json:"headers"`
	Rows    []RawRow `json:"rows"`
}

func (t *Table) Len() int {
	return len(t.Rows)
}

func emptyTable() *Table {
	return &Table{Headers: []string{}, Rows: []RawRow{}}
}

// NormalizeExt lowercases ext and makes sure it starts with a dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func IsSupported(ext string) bool {
	switch NormalizeExt(ext) {
	case ExtCSV, ExtXLSX, ExtXLS:
		return true
	}
	return false
}

// ParseFile reads the file at path using the parser selected by ext.
func ParseFile(path, ext string) (*Table, error) {
	ext = NormalizeExt(ext)
	if !IsSupported(ext) {
		return nil, &UnsupportedFormatError{Ext: ext}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext {
	case ExtCSV:
		return ParseCSV(f)
	case ExtXLSX:
		return ParseXLSX(f)
	default:
		return ParseXLS(f)
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV treats the first record as headers. Blank lines are skipped.
func ParseCSV(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return tableFromRecords(records), nil
}

// ParseXLSX reads the first worksheet of an OOXML workbook.
func ParseXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return emptyTable(), nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return tableFromRecords(rows), nil
}

// ParseXLS reads the first worksheet of a legacy BIFF workbook. Files saved
// with an .xls extension that actually contain OOXML are routed to ParseXLSX.
func ParseXLS(r io.ReadSeeker) (table *Table, err error) {
	// The BIFF reader panics on some malformed streams.
	defer func() {
		if p := recover(); p != nil {
			table, err = nil, fmt.Errorf("read xls: malformed workbook: %v", p)
		}
	}()

	mtype, err := mimetype.DetectReader(r)
	if err != nil {
		return nil, fmt.Errorf("detect xls content: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if mtype.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet") || mtype.Is("application/zip") {
		return ParseXLSX(r)
	}

	wb, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if wb == nil {
		return nil, errors.New("open xls: no workbook stream")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return emptyTable(), nil
	}

	records := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		// LastCol is one past the last cell.
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		records = append(records, cells)
	}
	return tableFromRecords(records), nil
}

// tableFromRecords turns raw records into a Table. Cells are trimmed, short
// rows are padded with empty strings and extra cells are dropped.
func tableFromRecords(records [][]string) *Table {
	var header []string
	start := 0
	for ; start < len(records); start++ {
		if !isBlankRecord(records[start]) {
			header = records[start]
			break
		}
	}
	if header == nil {
		return emptyTable()
	}

	headers := headerNames(header)
	rows := make([]RawRow, 0, len(records)-start-1)
	for _, rec := range records[start+1:] {
		if isBlankRecord(rec) {
			continue
		}
		row := make(RawRow, len(headers))
		for i, h := range headers {
			v := ""
			if i < len(rec) {
				v = strings.TrimSpace(rec[i])
			}
			row[h] = v
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return emptyTable()
	}
	return &Table{Headers: headers, Rows: rows}
}

// headerNames trims headers and makes them unique. Blank headers become
// "Column N"; repeated names get a numeric suffix.
func headerNames(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, 0, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h = fmt.Sprintf("%s (%d)", h, n)
		}
		out = append(out, h)
	}
	return out
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
