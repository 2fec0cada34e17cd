package server

import "github.com/matzehuels/vase/pkg/document"

// DocumentView is the JSON form of a document served to the viewer. The
// structure file is served separately by /rest/structure.
type DocumentView struct {
	Sequences []SequenceView `json:"sequences"`
	Columns   []ColumnView   `json:"columns"`
	Rows      [][]string     `json:"rows"`
	Plots     []PlotView     `json:"plots"`
}

// SequenceView is one aligned sequence.
type SequenceView struct {
	ID       string `json:"id"`
	Residues string `json:"residues"`
	URL      string `json:"url,omitempty"`
}

// ColumnView is one table column.
type ColumnView struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Hidden    bool   `json:"hidden"`
	MouseOver bool   `json:"mouseover"`
	Numeric   bool   `json:"numeric"`
}

// PlotView is one plot declaration.
type PlotView struct {
	Title string `json:"title"`
	X     string `json:"x"`
	Y     string `json:"y"`
}

// NewDocumentView builds the JSON view of doc. Column titles fall back to
// the column id.
func NewDocumentView(doc *document.Document) DocumentView {
	v := DocumentView{
		Sequences: []SequenceView{},
		Columns:   []ColumnView{},
		Rows:      [][]string{},
		Plots:     []PlotView{},
	}

	urls := doc.SequenceURLs()
	for _, s := range doc.Alignment() {
		sv := SequenceView{ID: s.ID, Residues: s.Residues}
		if u, ok := urls[s.ID]; ok {
			sv.URL = u.String()
		}
		v.Sequences = append(v.Sequences, sv)
	}

	tbl := doc.Table()
	for _, c := range tbl.Columns() {
		v.Columns = append(v.Columns, ColumnView{
			ID:        c.ID,
			Title:     c.DisplayTitle(),
			Hidden:    c.Hidden,
			MouseOver: c.MouseOver,
			Numeric:   tbl.IsNumber(c.ID),
		})
	}
	for i := 0; i < tbl.NumRows(); i++ {
		v.Rows = append(v.Rows, tbl.Values(i))
	}

	for _, p := range doc.Plots() {
		v.Plots = append(v.Plots, PlotView{Title: p.Title, X: p.X, Y: p.Y})
	}
	return v
}
