package document

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
	"sync"

	"github.com/matzehuels/vase/pkg/errors"
)

// Required column ids. A table needs a column named exactly
// ResidueNumberColumn and at least one column whose id ends in
// PDBResidueSuffix.
const (
	ResidueNumberColumn = "residue_number"
	PDBResidueSuffix    = "pdb_residue"
)

// ColumnInfo describes one table column.
type ColumnInfo struct {
	ID        string // Unique within a table, never empty
	Title     string // Display label; empty means no title
	Hidden    bool
	MouseOver bool
}

// DisplayTitle returns Title, or ID when no title is set.
func (c ColumnInfo) DisplayTitle() string {
	if c.Title == "" {
		return c.ID
	}
	return c.Title
}

// Table is an ordered set of columns plus an ordered sequence of rows.
//
// Rows are supplied positionally (one value per column, in column order)
// and stored keyed by column id. Columns are fixed at construction.
// Rows are appended by the producer until the table is handed to [New];
// from then on the table is frozen, AddRow fails, and the table is safe for
// concurrent readers.
type Table struct {
	columns []ColumnInfo
	index   map[string]int
	rows    []map[string]string

	mu      sync.Mutex
	frozen  bool
	numeric map[string]bool // lazily computed, reset by AddRow
}

// NewTable creates an empty table with the given columns.
//
// It fails with MISSING_ATTRIBUTE for an empty column id, DUPLICATE_ID for a
// repeated id, INVALID_INPUT for an id or title XML cannot carry, and
// MISSING_REQUIRED_COLUMN unless both a "residue_number" column and a
// "*pdb_residue" column are present.
func NewTable(columns []ColumnInfo) (*Table, error) {
	t := &Table{
		columns: make([]ColumnInfo, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}

	var hasResidueNumber, hasPDBResidue bool
	for _, c := range columns {
		if c.ID == "" {
			return nil, errors.New(errors.ErrCodeMissingAttribute, "column %d has no id", len(t.columns)).WithSubject("id")
		}
		if err := checkText(c.ID, "column id", c.ID); err != nil {
			return nil, err
		}
		if err := checkText(c.Title, fmt.Sprintf("title of column %q", c.ID), c.ID); err != nil {
			return nil, err
		}
		if _, dup := t.index[c.ID]; dup {
			return nil, errors.New(errors.ErrCodeDuplicateID, "duplicate column id %q", c.ID).WithSubject(c.ID)
		}
		if c.ID == ResidueNumberColumn {
			hasResidueNumber = true
		}
		if strings.HasSuffix(c.ID, PDBResidueSuffix) {
			hasPDBResidue = true
		}
		t.index[c.ID] = len(t.columns)
		t.columns = append(t.columns, c)
	}

	if err := requireColumns(hasResidueNumber, hasPDBResidue); err != nil {
		return nil, err
	}
	return t, nil
}

// CheckRequiredColumns fails with MISSING_REQUIRED_COLUMN unless columns
// contain a "residue_number" column and a column ending in "pdb_residue".
// It does not look at ids for emptiness or uniqueness.
func CheckRequiredColumns(columns []ColumnInfo) error {
	var hasResidueNumber, hasPDBResidue bool
	for _, c := range columns {
		hasResidueNumber = hasResidueNumber || c.ID == ResidueNumberColumn
		hasPDBResidue = hasPDBResidue || strings.HasSuffix(c.ID, PDBResidueSuffix)
	}
	return requireColumns(hasResidueNumber, hasPDBResidue)
}

// requireColumns reports which of the mandatory column classes is missing.
func requireColumns(hasResidueNumber, hasPDBResidue bool) error {
	switch {
	case !hasResidueNumber && !hasPDBResidue:
		return errors.New(errors.ErrCodeMissingRequiredColumn,
			"data table must contain the columns %q and %q", ResidueNumberColumn, PDBResidueSuffix).
			WithSubject(ResidueNumberColumn)
	case !hasResidueNumber:
		return errors.New(errors.ErrCodeMissingRequiredColumn,
			"data table has no %q column", ResidueNumberColumn).WithSubject(ResidueNumberColumn)
	case !hasPDBResidue:
		return errors.New(errors.ErrCodeMissingRequiredColumn,
			"data table has no column ending in %q", PDBResidueSuffix).WithSubject(PDBResidueSuffix)
	}
	return nil
}

// AddRow appends a row. values are assigned to the columns by position and
// must contain exactly one value per column; empty strings are allowed.
// A value XML cannot carry fails with INVALID_INPUT naming its column.
// AddRow fails with UNSUPPORTED once the table belongs to a document.
func (t *Table) AddRow(values []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return errors.New(errors.ErrCodeUnsupported, "table belongs to a document and cannot change").
			WithSubject("data_table")
	}
	if len(values) != len(t.columns) {
		return errors.New(errors.ErrCodeStructuralMismatch,
			"row %d has %d values, table has %d columns", len(t.rows), len(values), len(t.columns)).
			WithSubject(strconv.Itoa(len(t.rows)))
	}

	row := make(map[string]string, len(values))
	for i, v := range values {
		id := t.columns[i].ID
		if err := checkText(v, fmt.Sprintf("row %d, column %q", len(t.rows), id), id); err != nil {
			return err
		}
		row[id] = v
	}

	t.rows = append(t.rows, row)
	t.numeric = nil
	return nil
}

// freeze stops further AddRow calls.
func (t *Table) freeze() {
	t.mu.Lock()
	t.frozen = true
	t.mu.Unlock()
}

// Columns returns a copy of the column descriptors in order.
func (t *Table) Columns() []ColumnInfo {
	return append([]ColumnInfo(nil), t.columns...)
}

// Column returns the descriptor of the column with the given id.
func (t *Table) Column(id string) (ColumnInfo, bool) {
	i, ok := t.index[id]
	if !ok {
		return ColumnInfo{}, false
	}
	return t.columns[i], true
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.columns) }

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.rows) }

// Row returns a copy of row i keyed by column id.
func (t *Table) Row(i int) map[string]string {
	return maps.Clone(t.rows[i])
}

// Value returns the value of column id in row i.
func (t *Table) Value(i int, id string) string {
	return t.rows[i][id]
}

// Values returns row i in column order.
func (t *Table) Values(i int) []string {
	out := make([]string, len(t.columns))
	for j, c := range t.columns {
		out[j] = t.rows[i][c.ID]
	}
	return out
}

// IsNumber reports whether every value of column id parses as a number.
// It returns false for unknown columns. A column of a table without rows
// is numeric. The answer is computed once per column and cached until the
// next AddRow.
func (t *Table) IsNumber(id string) bool {
	if _, ok := t.index[id]; !ok {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.numeric == nil {
		t.numeric = make(map[string]bool, len(t.columns))
	}
	if v, ok := t.numeric[id]; ok {
		return v
	}

	numeric := true
	for _, row := range t.rows {
		if !isNumber(row[id]) {
			numeric = false
			break
		}
	}
	t.numeric[id] = numeric
	return numeric
}

// isNumber reports whether s is lexically a number. Values outside the
// float64 range, such as 1e400, still count.
func isNumber(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
		return true
	}
	return err == nil
}

// Equal reports whether t and other have the same columns and rows in the
// same order.
func (t *Table) Equal(other *Table) bool {
	if t == nil || other == nil {
		return t == other
	}
	if len(t.columns) != len(other.columns) || len(t.rows) != len(other.rows) {
		return false
	}
	for i := range t.columns {
		if t.columns[i] != other.columns[i] {
			return false
		}
	}
	for i := range t.rows {
		if !maps.Equal(t.rows[i], other.rows[i]) {
			return false
		}
	}
	return true
}
