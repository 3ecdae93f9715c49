// internal/writers/feature.go
package writers

import (
	"encoding/json"
	"io"

	"mzflow-core/align"

	"mzflow/internal/common"
	"mzflow/internal/output"
)

// StartFeatureWriter spins up a writer goroutine consuming features in
// table order. Buffered formats collect everything and emit once the
// channel closes; "jsonl" streams one JSON line per feature as it
// arrives. The single error (or nil) is delivered on the returned
// channel after the input channel is closed and drained.
func StartFeatureWriter(out io.Writer, format string, samples []string, bufSize int) (chan<- *align.Feature, <-chan error) {
	if bufSize <= 0 {
		bufSize = 64
	}
	in := make(chan *align.Feature, bufSize)
	errCh := make(chan error, 1)

	go func() {
		var err error
		switch format {
		case "jsonl":
			enc := json.NewEncoder(out)
			for f := range in {
				if err != nil {
					continue // drain
				}
				if e := enc.Encode(output.ToAPIFeature(f, samples)); e != nil {
					if IsBrokenPipe(e) {
						e = nil
					}
					err = e
				}
			}
		default:
			t := &align.Table{Samples: samples}
			for f := range in {
				t.Features = append(t.Features, f)
			}
			common.SortFeatures(t.Features)
			err = WriteTable(format, out, t)
			if IsBrokenPipe(err) {
				err = nil
			}
		}
		errCh <- err
	}()

	return in, errCh
}
