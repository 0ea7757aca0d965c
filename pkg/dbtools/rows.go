package dbtools

import (
	"database/sql"
	"time"
)

// RowSet is the uniform shape of a query result. Rows are keyed by column
// name with driver values normalized to JSON-friendly types.
type RowSet struct {
	Columns   []string                 `json:"columns"`
	Rows      []map[string]interface{} `json:"rows"`
	RowCount  int                      `json:"row_count"`
	Truncated bool                     `json:"truncated"`
}

// Truncate caps the row set at max rows, setting the Truncated flag when
// rows were dropped. Returns true if truncation happened.
func (rs *RowSet) Truncate(max int) bool {
	if max <= 0 || len(rs.Rows) <= max {
		return false
	}
	rs.Rows = rs.Rows[:max]
	rs.RowCount = max
	rs.Truncated = true
	return true
}

// rowsToSet scans rows into a RowSet, reading at most max rows when max
// is positive. The caller still owns closing rows.
func rowsToSet(rows *sql.Rows, max int) (*RowSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &RowSet{Columns: columns, Rows: []map[string]interface{}{}}

	values := make([]interface{}, len(columns))
	scanArgs := make([]interface{}, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	for rows.Next() {
		if max > 0 && len(rs.Rows) >= max {
			break
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rs.RowCount = len(rs.Rows)
	return rs, nil
}

// normalizeValue converts driver values into types that marshal cleanly.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return v
	}
}
