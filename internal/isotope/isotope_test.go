package isotope

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParseFormula(t *testing.T) {
	tests := []struct {
		in   string
		want Formula
	}{
		{"C42H82NO8P", Formula{"C": 42, "H": 82, "N": 1, "O": 8, "P": 1}},
		{"C 42 H 82 N 1 O 8 P 1", Formula{"C": 42, "H": 82, "N": 1, "O": 8, "P": 1}},
		{"C2H4Na0", Formula{"C": 2, "H": 4}},
		{"NaCl", Formula{"Na": 1, "Cl": 1}},
	}
	for _, tt := range tests {
		got, err := ParseFormula(tt.in)
		if err != nil {
			t.Errorf("ParseFormula(%q): error return %v", tt.in, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseFormula(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}

	if _, err := ParseFormula("C2Xx3"); !errors.Is(err, ErrUnknownElement) {
		t.Errorf("expected ErrUnknownElement, got %v", err)
	}
	if _, err := ParseFormula("c2h4"); !errors.Is(err, ErrInvalidFormula) {
		t.Errorf("expected ErrInvalidFormula, got %v", err)
	}
	if _, err := ParseFormula(""); !errors.Is(err, ErrInvalidFormula) {
		t.Errorf("expected ErrInvalidFormula, got %v", err)
	}
}

func TestDistribution(t *testing.T) {
	var calc Calculator = Natural{}

	// Single carbon: M+1/M = 0.0107/0.9893
	d, err := calc.Distribution("C", 3)
	if err != nil {
		t.Fatalf("Distribution: error return %v", err)
	}
	want := []float64{1, 0.0107 / 0.9893, 0}
	if diff := cmp.Diff(want, d, cmpopts.EquateApprox(1e-12, 1e-15)); diff != "" {
		t.Errorf("Distribution(C) mismatch (-want +got):\n%s", diff)
	}

	// Two carbons: binomial
	d, err = calc.Distribution("C2", 3)
	if err != nil {
		t.Fatalf("Distribution: error return %v", err)
	}
	r := 0.0107 / 0.9893
	want = []float64{1, 2 * r, r * r}
	if diff := cmp.Diff(want, d, cmpopts.EquateApprox(1e-12, 1e-15)); diff != "" {
		t.Errorf("Distribution(C2) mismatch (-want +got):\n%s", diff)
	}

	// Lipid sized molecule, M+1 roughly 1.1% per carbon
	d, err = calc.Distribution("C42H82NO8P", 2)
	if err != nil {
		t.Fatalf("Distribution: error return %v", err)
	}
	if d[1] < 0.45 || d[1] > 0.5 {
		t.Errorf("unexpected M+1 ratio %f", d[1])
	}

	if _, err := calc.Distribution("C2", 0); !errors.Is(err, ErrInvalidIsotopes) {
		t.Errorf("expected ErrInvalidIsotopes, got %v", err)
	}
}

func TestExtrapolate(t *testing.T) {
	got := Extrapolate(100, []float64{1, 0.5, 0.1}, 2)
	if got != 150 {
		t.Errorf("Extrapolate: got %f, expected 150", got)
	}
	got = Extrapolate(100, []float64{1, 0.5, 0.1}, 3)
	if diff := cmp.Diff(160.0, got, cmpopts.EquateApprox(1e-12, 0)); diff != "" {
		t.Errorf("Extrapolate mismatch (-want +got):\n%s", diff)
	}
}
