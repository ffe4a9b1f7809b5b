package quantxml

import (
	"encoding/xml"
	"errors"
)

// Types for parsing quantification result files

// QuantXML holds the content of one quantification result file
type QuantXML struct {
	content quantContent
}

type quantContent struct {
	XMLName    xml.Name `xml:"QuantResults"`
	Experiment string   `xml:"experiment,attr"`
	Class      []class  `xml:"Class"`
}

type class struct {
	Name    string    `xml:"name,attr"`
	Analyte []analyte `xml:"Analyte"`
}

type analyte struct {
	Name    string  `xml:"name,attr"`
	DBs     int     `xml:"dbs,attr"`
	Mass    float64 `xml:"mass,attr"`
	Formula string  `xml:"formula,attr"`
	// Retention time is kept as text, an empty value means not available
	RT  string `xml:"rt,attr"`
	Mod []mod  `xml:"Mod"`
}

type mod struct {
	Name    string    `xml:"name,attr"`
	Isotope []isotope `xml:"Isotope"`
}

type isotope struct {
	Area      string `xml:"area,attr"`
	MultiPeak bool   `xml:"multiPeak,attr"`
}

var (
	ErrInvalidClassIndex = errors.New("quantXML: invalid class index")
	ErrNoExperimentName  = errors.New("quantXML: no experiment name")
	ErrDuplicateClass    = errors.New("quantXML: duplicate class")
	ErrInvalidArea       = errors.New("quantXML: area is not a finite number")
)
