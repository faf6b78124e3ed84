package exporter

import (
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

// PDFEncoder implements RowEncoder as a simple landscape A4 grid. PDF
// generation is slower and more memory intensive than the other formats;
// it exists for small human-facing result sets.
type PDFEncoder struct {
	pdf  *fpdf.Fpdf
	w    io.Writer
	err  error
	done bool
}

// NewPDFEncoder creates a PDF encoder writing the document to w on Flush.
func NewPDFEncoder(w io.Writer) *PDFEncoder {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 10)
	pdf.AddPage()
	return &PDFEncoder{pdf: pdf, w: w}
}

func (e *PDFEncoder) WriteHeader(columns []string) error {
	if e.err != nil {
		return e.err
	}
	e.pdf.SetFont("Arial", "B", 10)
	colWidth := e.columnWidth(len(columns))
	for _, col := range columns {
		e.pdf.CellFormat(colWidth, 7, col, "1", 0, "C", false, 0, "")
	}
	e.pdf.Ln(-1)
	e.pdf.SetFont("Arial", "", 10)
	return nil
}

func (e *PDFEncoder) WriteRow(values []interface{}) error {
	if e.err != nil {
		return e.err
	}
	colWidth := e.columnWidth(len(values))
	for _, v := range values {
		// No formula mitigation in PDF output; strip nothing but keep
		// cells on one line.
		cell := strings.ReplaceAll(CellString(v), "\n", " ")
		e.pdf.CellFormat(colWidth, 7, cell, "1", 0, "L", false, 0, "")
	}
	e.pdf.Ln(-1)
	return nil
}

// columnWidth distributes the usable page width equally.
func (e *PDFEncoder) columnWidth(n int) float64 {
	pageWidth, _ := e.pdf.GetPageSize()
	left, _, right, _ := e.pdf.GetMargins()
	return (pageWidth - left - right) / float64(n)
}

// Flush writes the document to the underlying writer. The document can only
// be emitted once; later flushes are no-ops so Close after Flush does not
// duplicate it.
func (e *PDFEncoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	if e.done {
		return nil
	}
	e.done = true
	if err := e.pdf.Output(e.w); err != nil {
		e.err = err
		return err
	}
	return nil
}

func (e *PDFEncoder) Error() error {
	return e.err
}

func (e *PDFEncoder) Close() error {
	return e.Flush()
}
