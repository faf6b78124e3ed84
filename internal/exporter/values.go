package exporter

import (
	"fmt"
	"strconv"
	"time"
)

// CellString renders one scanned SQL value as text. This is the single place
// where numeric and date fidelity is traded for text portability across the
// caller boundary, so the same rules apply to every tabular format:
//
//   - temporal values serialize as RFC 3339 (ISO-8601) text
//   - binary and exact-decimal values keep their canonical string form
//     (the MySQL driver delivers both as []byte)
//   - NULL renders as the empty string
//   - everything else falls through to generic string conversion
func CellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.Format(time.RFC3339)
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
