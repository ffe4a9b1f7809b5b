package quantxml

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/524D/lipidnorm/internal/quant"
)

const testXML = `<?xml version="1.0" encoding="UTF-8"?>
<QuantResults experiment="E1">
  <Class name="PC">
    <Analyte name="PC 34:1" dbs="1" mass="759.578" formula="C42H82NO8P" rt="5.00">
      <Mod name="H">
        <Isotope area="1200000" multiPeak="false"/>
        <Isotope area="550000" multiPeak="true"/>
      </Mod>
      <Mod name="Na"><Isotope area="" /></Mod>
    </Analyte>
    <Analyte name="IS PC 31:1" dbs="1" mass="717.53" formula="C39H76NO8P" rt="">
      <Mod name="H"><Isotope area="3.5e5"/></Mod>
    </Analyte>
  </Class>
  <Class name="PE">
    <Analyte name="PE 36:2" dbs="2" rt="6.1">
      <Mod name="H"><Isotope area="42"/></Mod>
    </Analyte>
  </Class>
</QuantResults>
`

func TestRead(t *testing.T) {
	q, err := Read(strings.NewReader(testXML))
	if err != nil {
		t.Fatalf("Read: error return %v", err)
	}
	if q.ExperimentName() != "E1" {
		t.Errorf("ExperimentName is %q, expected E1", q.ExperimentName())
	}
	if q.NumClasses() != 2 {
		t.Errorf("NumClasses is %d, expected 2", q.NumClasses())
	}
	name, err := q.ClassName(1)
	if err != nil || name != "PE" {
		t.Errorf("ClassName(1) is %q (%v), expected PE", name, err)
	}
	if _, err = q.ClassName(2); err != ErrInvalidClassIndex {
		t.Errorf("ClassName(2): error return %v, should be ErrInvalidClassIndex", err)
	}

	obs, err := q.Observations(0)
	if err != nil {
		t.Fatalf("Observations: error return %v", err)
	}
	want := []quant.Observation{
		{
			Name: "PC 34:1", DoubleBonds: 1, Mass: 759.578, Formula: "C42H82NO8P", RT: "5.00",
			Mods: []quant.ModResult{
				{Name: "H", Areas: []float64{1200000, 550000}, MultiPeak: []bool{false, true}},
				{Name: "Na", Areas: []float64{0}, MultiPeak: []bool{false}},
			},
		},
		{
			Name: "IS PC 31:1", DoubleBonds: 1, Mass: 717.53, Formula: "C39H76NO8P",
			Mods: []quant.ModResult{{Name: "H", Areas: []float64{350000}, MultiPeak: []bool{false}}},
		},
	}
	if diff := cmp.Diff(want, obs); diff != "" {
		t.Errorf("Observations mismatch (-want +got):\n%s", diff)
	}

	exp, err := q.Experiment()
	if err != nil {
		t.Fatalf("Experiment: error return %v", err)
	}
	if diff := cmp.Diff([]string{"PC", "PE"}, exp.ClassOrder); diff != "" {
		t.Errorf("ClassOrder mismatch (-want +got):\n%s", diff)
	}
	if len(exp.Classes["PE"]) != 1 || exp.Classes["PE"][0].IsotopeArea(0) != 42 {
		t.Errorf("unexpected PE class %+v", exp.Classes["PE"])
	}
}

func TestReadErrors(t *testing.T) {
	dup := `<QuantResults><Class name="PC"/><Class name="PC"/></QuantResults>`
	if _, err := Read(strings.NewReader(dup)); !errors.Is(err, ErrDuplicateClass) {
		t.Errorf("duplicate class: error return %v, should be ErrDuplicateClass", err)
	}

	bad := `<QuantResults><Class name="PC"><Analyte name="PC 34:1"><Mod name="H"><Isotope area="lots"/></Mod></Analyte></Class></QuantResults>`
	q, err := Read(strings.NewReader(bad))
	if err != nil {
		t.Fatalf("Read: error return %v", err)
	}
	if _, err := q.Experiment(); err == nil {
		t.Errorf("Experiment: expected error for unparseable area")
	}

	if _, err := Read(strings.NewReader(`<Other/>`)); err == nil {
		t.Errorf("Read: expected error for wrong root element")
	}
}

func TestReadCharset(t *testing.T) {
	latin1 := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<QuantResults experiment=\"Probe \xe9\"></QuantResults>"
	q, err := Read(strings.NewReader(latin1))
	if err != nil {
		t.Fatalf("Read: error return %v", err)
	}
	if q.ExperimentName() != "Probe é" {
		t.Errorf("ExperimentName is %q, expected %q", q.ExperimentName(), "Probe é")
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run7.xml")
	noName := strings.Replace(testXML, ` experiment="E1"`, ``, 1)
	if err := os.WriteFile(path, []byte(noName), 0o644); err != nil {
		t.Fatal(err)
	}
	exp, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: error return %v", err)
	}
	if exp.Name != "run7" {
		t.Errorf("Name is %q, expected run7", exp.Name)
	}
	if _, err := ReadFile(filepath.Join(dir, "missing.xml")); err == nil {
		t.Errorf("ReadFile: expected error for missing file")
	}
}
