// internal/mzml/writer.go
package mzml

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	"mzflow-core/msdata"
)

// WriteFile serializes scans as a minimal mzML document with
// uncompressed 64-bit arrays. It exists for fixtures and round-trip
// checks, not as a general converter.
func WriteFile(path string, scans []msdata.Scan) error {
	var b strings.Builder
	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, "  <run id=\"run\">\n    <spectrumList count=\"%d\">\n", len(scans))
	for i, sc := range scans {
		writeSpectrum(&b, i, sc)
	}
	b.WriteString("    </spectrumList>\n  </run>\n</mzML>\n")
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

const xmlHeader = `<?xml version="1.0" encoding="utf-8"?>
<mzML xmlns="http://psi.hupo.org/ms/mzml" version="1.1.0">
`

func writeSpectrum(b *strings.Builder, idx int, sc msdata.Scan) {
	mzs := make([]float64, len(sc.Peaks))
	ints := make([]float64, len(sc.Peaks))
	for i, p := range sc.Peaks {
		mzs[i] = p.MZ
		ints[i] = p.Intensity
	}

	fmt.Fprintf(b, "      <spectrum index=\"%d\" id=\"scan=%d\" defaultArrayLength=\"%d\">\n",
		idx, idx+1, len(sc.Peaks))
	fmt.Fprintf(b, "        <cvParam accession=%q name=\"ms level\" value=\"%d\"/>\n",
		cvMSLevel, sc.Level)
	b.WriteString("        <scanList count=\"1\">\n          <scan>\n")
	fmt.Fprintf(b, "            <cvParam accession=%q name=\"scan start time\" value=\"%g\" unitAccession=%q unitName=\"minute\"/>\n",
		cvScanStartTime, sc.RT, cvUnitMinute)
	b.WriteString("          </scan>\n        </scanList>\n")
	if sc.Level >= 2 {
		b.WriteString("        <precursorList count=\"1\">\n          <precursor>\n")
		b.WriteString("            <selectedIonList count=\"1\">\n              <selectedIon>\n")
		fmt.Fprintf(b, "                <cvParam accession=%q name=\"selected ion m/z\" value=\"%g\"/>\n",
			cvSelectedIonMZ, sc.PrecursorMZ)
		if sc.PrecursorIntensity > 0 {
			fmt.Fprintf(b, "                <cvParam accession=%q name=\"peak intensity\" value=\"%g\"/>\n",
				cvPeakIntensity, sc.PrecursorIntensity)
		}
		b.WriteString("              </selectedIon>\n            </selectedIonList>\n")
		b.WriteString("          </precursor>\n        </precursorList>\n")
	}
	b.WriteString("        <binaryDataArrayList count=\"2\">\n")
	writeArray(b, cvMZArray, "m/z array", mzs)
	writeArray(b, cvIntensityArray, "intensity array", ints)
	b.WriteString("        </binaryDataArrayList>\n      </spectrum>\n")
}

func writeArray(b *strings.Builder, accession, name string, vals []float64) {
	raw := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}
	enc := base64.StdEncoding.EncodeToString(raw)
	fmt.Fprintf(b, "          <binaryDataArray encodedLength=\"%d\">\n", len(enc))
	fmt.Fprintf(b, "            <cvParam accession=%q name=\"64-bit float\"/>\n", cvFloat64)
	fmt.Fprintf(b, "            <cvParam accession=%q name=\"no compression\"/>\n", cvNoCompression)
	fmt.Fprintf(b, "            <cvParam accession=%q name=%q/>\n", accession, name)
	fmt.Fprintf(b, "            <binary>%s</binary>\n", enc)
	b.WriteString("          </binaryDataArray>\n")
}
