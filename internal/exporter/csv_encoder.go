package exporter

import (
	"bufio"
	"encoding/csv"
	"io"
)

// CSVEncoder streams rows as CSV through a bufio.Writer sized for
// high-throughput exports.
type CSVEncoder struct {
	w       *csv.Writer
	buf     *bufio.Writer
	columns []string
}

// NewCSVEncoder creates a CSV encoder writing to w with a 64KB buffer.
func NewCSVEncoder(w io.Writer) *CSVEncoder {
	buf := bufio.NewWriterSize(w, 64*1024)
	return &CSVEncoder{
		w:   csv.NewWriter(buf),
		buf: buf,
	}
}

// WriteHeader writes the CSV header row.
func (e *CSVEncoder) WriteHeader(columns []string) error {
	e.columns = columns
	return e.w.Write(columns)
}

// WriteRow converts one row of scanned SQL values with the shared cell
// rules and writes it. Exported files are routinely opened in spreadsheet
// software, so cells starting with a formula trigger character are prefixed
// with a quote (CSV injection mitigation).
func (e *CSVEncoder) WriteRow(values []interface{}) error {
	record := make([]string, len(values))
	for i, v := range values {
		record[i] = sanitizeFormula(CellString(v))
	}
	return e.w.Write(record)
}

// Flush pushes the csv writer and the underlying buffer.
func (e *CSVEncoder) Flush() error {
	e.w.Flush()
	if err := e.w.Error(); err != nil {
		return err
	}
	return e.buf.Flush()
}

// Error returns any error stored in the csv writer.
func (e *CSVEncoder) Error() error {
	return e.w.Error()
}

// Close flushes and satisfies io.Closer.
func (e *CSVEncoder) Close() error {
	return e.Flush()
}

// sanitizeFormula neutralizes spreadsheet formula injection: cells starting
// with =, +, - or @ get a leading single quote.
func sanitizeFormula(s string) string {
	if len(s) > 0 {
		switch s[0] {
		case '=', '+', '-', '@':
			return "'" + s
		}
	}
	return s
}
