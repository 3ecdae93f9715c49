// internal/mzml/reader.go
package mzml

import (
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"mzflow-core/msdata"
)

// Read parses an mzML file and returns its spectra as scans in
// acquisition order. Retention times are normalized to minutes and
// each scan's centroids are sorted by m/z.
func Read(path string) ([]msdata.Scan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scans, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scans, nil
}

// Parse reads an mzML document from r. Both plain mzML and the
// indexedmzML envelope are accepted.
func Parse(r io.Reader) ([]msdata.Scan, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var doc document
	if strings.Contains(string(data[:min(len(data), 512)]), "<indexedmzML") {
		var idx indexedDocument
		if err := xml.Unmarshal(data, &idx); err != nil {
			return nil, fmt.Errorf("parse indexedmzML: %w", err)
		}
		doc = idx.MzML
	} else if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse mzML: %w", err)
	}

	scans := make([]msdata.Scan, 0, len(doc.Run.SpectrumList.Spectrum))
	for i, sp := range doc.Run.SpectrumList.Spectrum {
		sc, err := extractScan(sp)
		if err != nil {
			return nil, fmt.Errorf("spectrum %d: %w", i, err)
		}
		sc.Index = i
		scans = append(scans, sc)
	}
	return scans, nil
}

func extractScan(sp spectrum) (msdata.Scan, error) {
	var sc msdata.Scan

	sc.Level = 1
	if p, ok := findCV(sp.CvPar, cvMSLevel); ok {
		lvl, err := strconv.Atoi(p.Value)
		if err != nil {
			return sc, fmt.Errorf("ms level %q: %w", p.Value, err)
		}
		sc.Level = lvl
	}

	rt, err := scanStartTime(sp)
	if err != nil {
		return sc, err
	}
	sc.RT = rt

	if sc.Level >= 2 {
		if len(sp.PrecursorList.Precursor) == 0 ||
			len(sp.PrecursorList.Precursor[0].SelectedIonList.SelectedIon) == 0 {
			return sc, fmt.Errorf("ms%d spectrum without selected ion", sc.Level)
		}
		ion := sp.PrecursorList.Precursor[0].SelectedIonList.SelectedIon[0]
		p, ok := findCV(ion.CvPar, cvSelectedIonMZ)
		if !ok {
			return sc, fmt.Errorf("selected ion without m/z")
		}
		mz, err := strconv.ParseFloat(p.Value, 64)
		if err != nil {
			return sc, fmt.Errorf("selected ion m/z %q: %w", p.Value, err)
		}
		sc.PrecursorMZ = mz
		if p, ok := findCV(ion.CvPar, cvPeakIntensity); ok {
			if v, err := strconv.ParseFloat(p.Value, 64); err == nil {
				sc.PrecursorIntensity = v
			}
		}
	}

	var mzs, ints []float64
	for _, bda := range sp.BinaryDataArrayList.BinaryDataArray {
		vals, err := decodeArray(bda)
		if err != nil {
			return sc, err
		}
		if _, ok := findCV(bda.CvPar, cvMZArray); ok {
			mzs = vals
		} else if _, ok := findCV(bda.CvPar, cvIntensityArray); ok {
			ints = vals
		}
	}
	if len(mzs) != len(ints) {
		return sc, fmt.Errorf("array length mismatch: %d m/z vs %d intensity", len(mzs), len(ints))
	}
	sc.Peaks = make([]msdata.Peak, len(mzs))
	for i := range mzs {
		sc.Peaks[i] = msdata.Peak{MZ: mzs[i], Intensity: ints[i]}
	}
	sort.Slice(sc.Peaks, func(i, j int) bool { return sc.Peaks[i].MZ < sc.Peaks[j].MZ })
	return sc, nil
}

// scanStartTime returns the scan start time in minutes. Files written
// by some converters carry it in seconds.
func scanStartTime(sp spectrum) (float64, error) {
	for _, sl := range sp.ScanList.Scan {
		p, ok := findCV(sl.CvPar, cvScanStartTime)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(p.Value, 64)
		if err != nil {
			return 0, fmt.Errorf("scan start time %q: %w", p.Value, err)
		}
		if p.UnitAccession == cvUnitSecond || strings.EqualFold(p.UnitName, "second") {
			v /= 60
		}
		return v, nil
	}
	return 0, fmt.Errorf("spectrum without scan start time")
}

// decodeArray decodes one binaryDataArray element: base64, optional
// zlib, then 32- or 64-bit little-endian IEEE floats.
func decodeArray(bda binaryDataArray) ([]float64, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(bda.Binary))
	if err != nil {
		return nil, fmt.Errorf("base64: %w", err)
	}
	if _, ok := findCV(bda.CvPar, cvZlibCompression); ok {
		zr, err := zlib.NewReader(strings.NewReader(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
		raw, err = io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
	}

	width := 8
	if _, ok := findCV(bda.CvPar, cvFloat32); ok {
		width = 4
	}
	if len(raw)%width != 0 {
		return nil, fmt.Errorf("binary payload of %d bytes not a multiple of %d", len(raw), width)
	}
	vals := make([]float64, len(raw)/width)
	for i := range vals {
		chunk := raw[i*width:]
		if width == 8 {
			vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(chunk))
		} else {
			vals[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(chunk)))
		}
	}
	return vals, nil
}
