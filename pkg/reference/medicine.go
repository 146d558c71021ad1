// Package reference loads the static medicine and symptom datasets and answers lookups against them.
package reference

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
)

var ErrEmptyDataset = errors.New("reference dataset is empty")

// Field is one cell of a record. A nil Value is a missing cell.
type Field struct {
	Name  string
	Value *string
}

// Record is one row of the medicine dataset with its columns in file order.
type Record struct {
	Fields []Field
}

// Get returns the value of the named column.
func (r Record) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name && f.Value != nil {
			return *f.Value, true
		}
	}
	return "", false
}

// Text renders the record as "column: value" lines, skipping missing cells.
func (r Record) Text() string {
	var b strings.Builder
	for _, f := range r.Fields {
		if f.Value == nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(*f.Value)
	}
	return b.String()
}

// MarshalJSON keeps column order and encodes missing cells as null.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MedicineTable is the in-memory medicine dataset. It is read-only after load
// and safe for concurrent use.
type MedicineTable struct {
	columns []string
	// searchable marks text columns; numeric columns never take part in matching.
	searchable []bool
	rows       []Record
	// lowered caches lowercase cell values, nil where the cell is missing.
	lowered [][]*string
}

// LoadMedicineCSV reads the dataset from a CSV file with a header row.
func LoadMedicineCSV(path string) (*MedicineTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open medicine dataset: %w", err)
	}
	defer f.Close()
	table, err := ParseMedicineCSV(f)
	if err != nil {
		return nil, fmt.Errorf("load medicine dataset %s: %w", path, err)
	}
	return table, nil
}

// ParseMedicineCSV builds a table from CSV content. Empty cells become missing values.
func ParseMedicineCSV(r io.Reader) (*MedicineTable, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	table := &MedicineTable{
		columns:    header,
		searchable: make([]bool, len(header)),
		rows:       make([]Record, 0, len(rows)),
		lowered:    make([][]*string, 0, len(rows)),
	}
	numeric := make([]bool, len(header))
	for i := range numeric {
		numeric[i] = true
	}
	for _, row := range rows {
		rec := Record{Fields: make([]Field, len(header))}
		low := make([]*string, len(header))
		for i, name := range header {
			rec.Fields[i].Name = name
			if i >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[i])
			if cell == "" {
				continue
			}
			v := cell
			rec.Fields[i].Value = &v
			l := strings.ToLower(cell)
			low[i] = &l
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				numeric[i] = false
			}
		}
		table.rows = append(table.rows, rec)
		table.lowered = append(table.lowered, low)
	}
	for i := range header {
		table.searchable[i] = !numeric[i]
	}
	return table, nil
}

// Columns returns the header in file order.
func (t *MedicineTable) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *MedicineTable) Len() int {
	return len(t.rows)
}

// Search returns up to limit rows, in table order, where any text column contains any query term.
// limit <= 0 returns every match.
func (t *MedicineTable) Search(query string, limit int) []Record {
	terms := QueryTerms(query)
	if len(terms) == 0 {
		return nil
	}
	var out []Record
	for i, low := range t.lowered {
		if !t.rowMatches(low, terms) {
			continue
		}
		out = append(out, t.rows[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// First returns the first matching row.
func (t *MedicineTable) First(query string) (Record, bool) {
	res := t.Search(query, 1)
	if len(res) == 0 {
		return Record{}, false
	}
	return res[0], true
}

func (t *MedicineTable) rowMatches(low []*string, terms []string) bool {
	for col, cell := range low {
		if cell == nil || !t.searchable[col] {
			continue
		}
		for _, term := range terms {
			if strings.Contains(*cell, term) {
				return true
			}
		}
	}
	return false
}

// QueryTerms lowercases a query and splits it on whitespace and commas.
// "and"/"or" are dropped only as whole words, so terms such as "brand",
// "sandal" or "oral" stay intact. Empty terms are dropped.
func QueryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "and" || f == "or" {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, ErrEmptyDataset
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	rows := records[1:]
	if len(rows) == 0 {
		return nil, nil, ErrEmptyDataset
	}
	return header, rows, nil
}
