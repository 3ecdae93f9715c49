// internal/mzml/mzml.go
package mzml

import "encoding/xml"

// Minimal mzML document model: only what scan extraction needs is typed,
// the rest is ignored on decode.

type document struct {
	XMLName xml.Name `xml:"mzML"`
	Run     run      `xml:"run"`
}

// indexedDocument unwraps files with an indexedmzML envelope.
type indexedDocument struct {
	XMLName xml.Name `xml:"indexedmzML"`
	MzML    document `xml:"mzML"`
}

type run struct {
	ID           string       `xml:"id,attr"`
	SpectrumList spectrumList `xml:"spectrumList"`
}

type spectrumList struct {
	Count    int        `xml:"count,attr"`
	Spectrum []spectrum `xml:"spectrum"`
}

type spectrum struct {
	Index               int                 `xml:"index,attr"`
	ID                  string              `xml:"id,attr"`
	DefaultArrayLength  int                 `xml:"defaultArrayLength,attr"`
	CvPar               []cvParam           `xml:"cvParam"`
	ScanList            scanList            `xml:"scanList"`
	PrecursorList       precursorList       `xml:"precursorList"`
	BinaryDataArrayList binaryDataArrayList `xml:"binaryDataArrayList"`
}

type scanList struct {
	Scan []scan `xml:"scan"`
}

type scan struct {
	CvPar []cvParam `xml:"cvParam"`
}

type precursorList struct {
	Precursor []precursor `xml:"precursor"`
}

type precursor struct {
	SelectedIonList selectedIonList `xml:"selectedIonList"`
}

type selectedIonList struct {
	SelectedIon []selectedIon `xml:"selectedIon"`
}

type selectedIon struct {
	CvPar []cvParam `xml:"cvParam"`
}

type binaryDataArrayList struct {
	BinaryDataArray []binaryDataArray `xml:"binaryDataArray"`
}

type binaryDataArray struct {
	EncodedLength int       `xml:"encodedLength,attr"`
	CvPar         []cvParam `xml:"cvParam"`
	Binary        string    `xml:"binary"`
}

type cvParam struct {
	Accession     string `xml:"accession,attr"`
	Name          string `xml:"name,attr"`
	Value         string `xml:"value,attr"`
	UnitAccession string `xml:"unitAccession,attr"`
	UnitName      string `xml:"unitName,attr"`
}

// Controlled-vocabulary accessions used during extraction.
const (
	cvMSLevel         = "MS:1000511"
	cvScanStartTime   = "MS:1000016"
	cvSelectedIonMZ   = "MS:1000744"
	cvPeakIntensity   = "MS:1000042"
	cvMZArray         = "MS:1000514"
	cvIntensityArray  = "MS:1000515"
	cvFloat64         = "MS:1000523"
	cvFloat32         = "MS:1000521"
	cvZlibCompression = "MS:1000574"
	cvNoCompression   = "MS:1000576"
	cvUnitMinute      = "UO:0000031"
	cvUnitSecond      = "UO:0000010"
)

func findCV(params []cvParam, accession string) (cvParam, bool) {
	for _, p := range params {
		if p.Accession == accession {
			return p, true
		}
	}
	return cvParam{}, false
}
