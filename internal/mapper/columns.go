package mapper

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// columnIndex locates columns by name so any projection holding the
// required columns can be mapped.
type columnIndex struct {
	names []string
}

func newColumnIndex(rows *sql.Rows, required ...string) (columnIndex, error) {
	names, err := rows.Columns()
	if err != nil {
		return columnIndex{}, fmt.Errorf("media cursor columns: %w", err)
	}

	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[strings.ToLower(n)] = true
	}
	for _, want := range required {
		if !present[want] {
			return columnIndex{}, fmt.Errorf("%w: %s", ErrMissingColumn, want)
		}
	}
	return columnIndex{names: names}, nil
}

// scan reads the current row into a map keyed by lowercased column name.
func (c columnIndex) scan(rows *sql.Rows) (map[string]any, error) {
	raw := make([]any, len(c.names))
	dest := make([]any, len(c.names))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	values := make(map[string]any, len(c.names))
	for i, n := range c.names {
		values[strings.ToLower(n)] = raw[i]
	}
	return values, nil
}

func toString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case []byte:
		return string(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case time.Time:
		return t.Format(time.RFC3339), true
	default:
		return fmt.Sprint(t), true
	}
}

// toFloat treats NULL as zero.
func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return float64(t), nil
	case float64:
		return t, nil
	case string:
		return parseFloat(t)
	case []byte:
		return parseFloat(string(t))
	default:
		return 0, fmt.Errorf("unsupported numeric value %T", v)
	}
}

// toInt treats NULL as zero and truncates fractional values.
func toInt(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return t, nil
	case float64:
		return int64(t), nil
	default:
		f, err := toFloat(v)
		return int64(f), err
	}
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
