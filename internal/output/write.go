// internal/output/write.go
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"mzflow-core/align"
)

// EncodePretty writes v as indented JSON with a trailing newline.
func EncodePretty(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteJSON writes the full consensus table as one pretty JSON document.
func WriteJSON(w io.Writer, t *align.Table) error {
	return EncodePretty(w, ToAPITable(t))
}

// WriteText prints one line per feature for quick terminal inspection.
func WriteText(w io.Writer, t *align.Table) error {
	for _, f := range t.Features {
		name := ""
		if len(f.Annotations) > 0 {
			name = f.Annotations[0].Name
		}
		_, err := fmt.Fprintf(w, "%d\t%.4f\t%.3f\t%d/%d\t%s\t%s\n",
			f.ID, f.MZ, f.RT, f.Present(), len(f.Entries), f.Role, name)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteTSV writes the feature table as a spreadsheet-friendly report:
// fixed columns, then one intensity column per sample.
func WriteTSV(w io.Writer, t *align.Table) error {
	head := []string{
		"feature_id", "mz", "rt", "group_id", "role",
		"isotope_rank", "adduct", "detected",
		"annotation", "formula", "similarity", "matched_peaks",
	}
	head = append(head, t.Samples...)
	if _, err := fmt.Fprintln(w, strings.Join(head, "\t")); err != nil {
		return err
	}
	for _, f := range t.Features {
		row := make([]string, 0, len(head))
		row = append(row,
			fmt.Sprintf("%d", f.ID),
			fmt.Sprintf("%.4f", f.MZ),
			fmt.Sprintf("%.3f", f.RT),
			fmt.Sprintf("%d", f.GroupID),
			f.Role,
			fmt.Sprintf("%d", f.IsotopeRank),
			f.AdductType,
			fmt.Sprintf("%d", f.Present()),
		)
		if len(f.Annotations) > 0 {
			a := f.Annotations[0]
			row = append(row, a.Name, a.Formula,
				fmt.Sprintf("%.4f", a.Similarity),
				fmt.Sprintf("%d", a.MatchedPeaks))
		} else {
			row = append(row, "", "", "", "")
		}
		for _, e := range f.Entries {
			if e.ROI == nil {
				row = append(row, "0")
			} else {
				row = append(row, fmt.Sprintf("%.1f", e.Intensity))
			}
		}
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}
