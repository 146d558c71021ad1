package reference

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Diagnosis is one row of the symptom dataset.
type Diagnosis struct {
	Symptom    string `json:"symptom"`
	Condition  string `json:"condition"`
	Treatment  string `json:"treatment"`
	Precaution string `json:"precaution"`
	Medicine   string `json:"medicine"`
}

// MedicineSeparator joins combined medicines in the Medicine column.
const MedicineSeparator = " + "

// Medicines splits the Medicine column into individual names.
func (d Diagnosis) Medicines() []string {
	if strings.TrimSpace(d.Medicine) == "" {
		return nil
	}
	return strings.Split(d.Medicine, MedicineSeparator)
}

// MedicineList renders the combined medicines comma separated.
func (d Diagnosis) MedicineList() string {
	return strings.ReplaceAll(d.Medicine, MedicineSeparator, ", ")
}

// SymptomTable is the in-memory symptom dataset.
type SymptomTable struct {
	rows    []Diagnosis
	lowered []string
}

var symptomColumns = []string{"Symptom", "Condition", "Treatment", "Precaution", "Medicine"}

func LoadSymptomCSV(path string) (*SymptomTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open symptom dataset: %w", err)
	}
	defer f.Close()
	table, err := ParseSymptomCSV(f)
	if err != nil {
		return nil, fmt.Errorf("load symptom dataset %s: %w", path, err)
	}
	return table, nil
}

// ParseSymptomCSV expects the columns Symptom, Condition, Treatment, Precaution and Medicine in any order.
func ParseSymptomCSV(r io.Reader) (*SymptomTable, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	for _, col := range symptomColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("symptom dataset missing column %q", col)
		}
	}
	cell := func(row []string, col string) string {
		i := idx[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	table := &SymptomTable{
		rows:    make([]Diagnosis, 0, len(rows)),
		lowered: make([]string, 0, len(rows)),
	}
	for _, row := range rows {
		d := Diagnosis{
			Symptom:    cell(row, "Symptom"),
			Condition:  cell(row, "Condition"),
			Treatment:  cell(row, "Treatment"),
			Precaution: cell(row, "Precaution"),
			Medicine:   cell(row, "Medicine"),
		}
		table.rows = append(table.rows, d)
		table.lowered = append(table.lowered, strings.ToLower(d.Symptom))
	}
	return table, nil
}

func (t *SymptomTable) Len() int {
	return len(t.rows)
}

// Diagnose returns the first row whose Symptom column contains the whole
// symptom text, case-insensitively.
func (t *SymptomTable) Diagnose(symptoms string) (Diagnosis, bool) {
	needle := strings.ToLower(strings.TrimSpace(symptoms))
	if needle == "" {
		return Diagnosis{}, false
	}
	for i, s := range t.lowered {
		if s != "" && strings.Contains(s, needle) {
			return t.rows[i], true
		}
	}
	return Diagnosis{}, false
}
