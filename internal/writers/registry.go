// internal/writers/registry.go
package writers

import (
	"fmt"
	"io"

	"mzflow-core/align"

	"mzflow/internal/output"
)

// TableWriters maps output formats to buffered table writers.
// Register in init() blocks; last registration wins.
var TableWriters = map[string]func(w io.Writer, t *align.Table) error{}

// Register installs a table writer for a format name.
func Register(format string, fn func(io.Writer, *align.Table) error) {
	TableWriters[format] = fn
}

// WriteTable dispatches a full table to the writer for format.
func WriteTable(format string, w io.Writer, t *align.Table) error {
	fn, ok := TableWriters[format]
	if !ok {
		return fmt.Errorf("unknown output format %q (no writer registered)", format)
	}
	return fn(w, t)
}

func init() {
	Register("json", output.WriteJSON)
	Register("tsv", output.WriteTSV)
	Register("text", output.WriteText)
}
