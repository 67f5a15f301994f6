package engine

import "database/sql"

// ScanRows drains a result set into column names and generic row values.
// []byte values are normalized to strings so results serialize cleanly.
func ScanRows(rows *sql.Rows) ([]string, [][]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	data := make([][]any, 0)

	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))

		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, nil, err
		}

		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}

		data = append(data, values)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	if columns == nil {
		columns = []string{}
	}

	return columns, data, nil
}
