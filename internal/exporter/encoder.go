package exporter

import "io"

// RowEncoder is the common interface over the export formats (CSV, JSON
// lines, Excel, PDF). It keeps the streaming pipeline agnostic of the output
// format.
type RowEncoder interface {
	// WriteHeader writes the column headers. Call it exactly once, before
	// any rows.
	WriteHeader(columns []string) error

	// WriteRow writes one row of data. The values slice length must match
	// the header length.
	WriteRow(values []interface{}) error

	// Flush pushes buffered data to the underlying writer. Required for
	// buffered formats before the output is complete.
	Flush() error

	// Error returns the first error seen while encoding, if any, so loops
	// can defer error checking to the end.
	Error() error

	// Close flushes the encoder and releases its resources. For Excel this
	// writes the workbook footer.
	io.Closer
}

// New returns the encoder for a format tag ("csv", "json", "excel"/"xlsx",
// "pdf"), defaulting to CSV for anything unrecognized.
func New(format string, w io.Writer) RowEncoder {
	switch format {
	case "json":
		return NewJSONEncoder(w)
	case "excel", "xlsx":
		return NewExcelEncoder(w)
	case "pdf":
		return NewPDFEncoder(w)
	default:
		return NewCSVEncoder(w)
	}
}
