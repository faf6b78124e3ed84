package exporter

import (
	"encoding/json"
	"io"
	"strconv"
)

// JSONEncoder implements RowEncoder for JSON Lines output: one JSON object
// per row, keyed by column name.
type JSONEncoder struct {
	w       io.Writer
	columns []string
	err     error
}

// NewJSONEncoder creates a JSON Lines encoder writing to w.
func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{w: w}
}

// WriteHeader captures the column names used as object keys. JSON Lines has
// no header row of its own.
func (e *JSONEncoder) WriteHeader(columns []string) error {
	e.columns = columns
	return nil
}

func (e *JSONEncoder) WriteRow(values []interface{}) error {
	if e.err != nil {
		return e.err
	}

	row := make(map[string]string, len(values))
	for i, v := range values {
		key := "column_" + strconv.Itoa(i)
		if i < len(e.columns) {
			key = e.columns[i]
		}
		row[key] = CellString(v)
	}

	data, err := json.Marshal(row)
	if err != nil {
		e.err = err
		return err
	}
	if _, err := e.w.Write(append(data, '\n')); err != nil {
		e.err = err
		return err
	}
	return nil
}

func (e *JSONEncoder) Flush() error {
	return nil
}

func (e *JSONEncoder) Error() error {
	return e.err
}

func (e *JSONEncoder) Close() error {
	return e.Flush()
}
