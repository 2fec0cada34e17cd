package alignment

import (
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	input := `>1crn_A
TTCCPSIVARSNFNVCRLPGTPEA
ICATYTGCIIIPGATCPGDYAN
; a comment
>UniRef90_P01542

TTCC-SIVARSNF
NVCR..
`
	aln, err := ParseString(input)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if aln.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", aln.Len())
	}

	wantIDs := []string{"1crn_A", "UniRef90_P01542"}
	for i, id := range aln.IDs() {
		if id != wantIDs[i] {
			t.Errorf("IDs()[%d] = %q, want %q", i, id, wantIDs[i])
		}
	}

	res, ok := aln.Lookup("1crn_A")
	if !ok {
		t.Fatal("Lookup(1crn_A) not found")
	}
	if res != "TTCCPSIVARSNFNVCRLPGTPEAICATYTGCIIIPGATCPGDYAN" {
		t.Errorf("residues = %q", res)
	}

	res, _ = aln.Lookup("UniRef90_P01542")
	if res != "TTCC-SIVARSNFNVCR.." {
		t.Errorf("gaps should be kept verbatim, got %q", res)
	}

	if aln.Has("missing") {
		t.Error("Has(missing) = true")
	}
}

func TestParseEmpty(t *testing.T) {
	for _, input := range []string{"", "\n\n", "  \n"} {
		aln, err := ParseString(input)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", input, err)
		}
		if aln.Len() != 0 {
			t.Errorf("Parse(%q) Len() = %d, want 0", input, aln.Len())
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"duplicate id", ">a\nAC\n>a\nGT\n", ErrDuplicateID},
		{"empty id", ">\nAC\n", ErrEmptyID},
		{"no header", "ACGT\n>a\nAC\n", ErrNoHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input)
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRenderRoundTrip(t *testing.T) {
	alns := []Alignment{
		nil,
		{{ID: "only", Residues: ""}},
		{{ID: "a", Residues: "AC-GT"}, {ID: "b b", Residues: "AC.GT"}, {ID: "c", Residues: "ACXGT"}},
	}

	for _, aln := range alns {
		text := aln.String()
		got, err := ParseString(text)
		if err != nil {
			t.Fatalf("Parse(Render()) error: %v", err)
		}
		if !got.Equal(aln) {
			t.Errorf("round trip mismatch:\n got %v\nwant %v", got, aln)
		}
	}
}

func TestRenderFormat(t *testing.T) {
	aln := Alignment{{ID: "x", Residues: "AAA"}, {ID: "y", Residues: "CCC"}}
	var sb strings.Builder
	if err := Render(&sb, aln); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if sb.String() != ">x\nAAA\n>y\nCCC\n" {
		t.Errorf("Render() = %q", sb.String())
	}
}

func TestCloneAndMap(t *testing.T) {
	aln := Alignment{{ID: "x", Residues: "AAA"}}
	c := aln.Clone()
	c[0].Residues = "GGG"
	if aln[0].Residues != "AAA" {
		t.Error("Clone should not share backing array")
	}

	m := aln.Map()
	if m["x"] != "AAA" || len(m) != 1 {
		t.Errorf("Map() = %v", m)
	}
}
