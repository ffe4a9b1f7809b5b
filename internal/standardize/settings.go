package standardize

// Settings is the externally supplied absolute quantity metadata. The
// engine only reads it.
type Settings struct {
	// per experiment name
	Experiments map[string]ExperimentSettings `yaml:"experiments" json:"experiments,omitempty"`
	// class -> standard name -> experiment name
	Standards map[string]map[string]map[string]Amount `yaml:"standards" json:"standards,omitempty"`
}

// ExperimentSettings of one experiment. Zero means not declared.
type ExperimentSettings struct {
	ProbeVolume      float64 `yaml:"probe_volume" json:"probeVolume,omitempty"`
	EndVolume        float64 `yaml:"end_volume" json:"endVolume,omitempty"`
	SampleWeight     float64 `yaml:"sample_weight" json:"sampleWeight,omitempty"`
	ProteinConc      float64 `yaml:"protein_conc" json:"proteinConc,omitempty"`
	NeutralLipidConc float64 `yaml:"neutral_lipid_conc" json:"neutralLipidConc,omitempty"`
	Dilution         float64 `yaml:"dilution" json:"dilution,omitempty"`
}

// Amount of a standard added to an experiment
type Amount struct {
	Volume        float64 `yaml:"volume" json:"volume"`
	Concentration float64 `yaml:"concentration" json:"concentration"`
}

// Value is volume times concentration
func (a Amount) Value() float64 {
	return a.Volume * a.Concentration
}

func (s *Settings) experiment(name string) (ExperimentSettings, bool) {
	if s == nil {
		return ExperimentSettings{}, false
	}
	es, ok := s.Experiments[name]
	return es, ok
}

// amounts returns the amount of a standard per experiment, 0 where not
// declared
func (s *Settings) amounts(class, standard string, experiments []string) []float64 {
	out := make([]float64, len(experiments))
	if s == nil {
		return out
	}
	byExp := s.Standards[class][standard]
	for e, name := range experiments {
		out[e] = byExp[name].Value()
	}
	return out
}
