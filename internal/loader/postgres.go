package loader

import (
	"context"
	"database/sql"
	"fmt"
)

// documentsQuery streams documents in insertion order.
const documentsQuery = `SELECT id, title, body FROM documents ORDER BY id`

// Rows adds every row of the documents table. Titles fall back to the row
// ID when empty.
func Rows(ctx context.Context, db *sql.DB, add AddFunc, progress ProgressFunc) (int, error) {
	rows, err := db.QueryContext(ctx, documentsQuery)
	if err != nil {
		return 0, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	added := 0
	for rows.Next() {
		var id, title string
		var body []byte
		if err := rows.Scan(&id, &title, &body); err != nil {
			return added, fmt.Errorf("scanning document row: %w", err)
		}
		if title == "" {
			title = id
		}
		if err := add(title, body); err != nil {
			return added, err
		}
		added++
		if progress != nil && added%ProgressEvery == 0 {
			progress(added)
		}
	}
	if err := rows.Err(); err != nil {
		return added, fmt.Errorf("iterating documents: %w", err)
	}
	return added, nil
}
